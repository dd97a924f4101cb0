package domain

import (
	"strconv"
	"time"
)

// Well-known notification categories. The set is open: the backend may
// introduce new categories without a client release, so Type is not validated.
const (
	TypeInfo          = "info"
	TypeInvoiceReady  = "invoice_ready"
	TypeExportReady   = "export_ready"
	TypeOCRCompleted  = "ocr_completed"
	TypePaymentDue    = "payment_due"
	TypeBillingNotice = "billing_notice"
)

// Notification is a single in-app notification as returned by the backend.
// Records are created server-side; the only field mutated locally is IsRead.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// MarkRead sets IsRead. The transition is one-way: a notification that has
// been read never becomes unread again within a session.
func (n *Notification) MarkRead() {
	n.IsRead = true
}

// badgeCeiling is the presentation ceiling for the unread indicator. The
// underlying count keeps its real value.
const badgeCeiling = 99

// UnreadCount is the server-derived number of unread notifications.
type UnreadCount int

// NewUnreadCount clamps negative backend values to zero.
func NewUnreadCount(n int) UnreadCount {
	if n < 0 {
		return 0
	}
	return UnreadCount(n)
}

// Dec decrements the count by one, floored at zero.
func (c UnreadCount) Dec() UnreadCount {
	if c <= 0 {
		return 0
	}
	return c - 1
}

// Badge renders the count for display, clamped at "99+".
func (c UnreadCount) Badge() string {
	if c > badgeCeiling {
		return strconv.Itoa(badgeCeiling) + "+"
	}
	return strconv.Itoa(int(c))
}
