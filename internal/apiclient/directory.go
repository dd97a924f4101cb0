package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/invopilot/invoice-edge/internal/domain"
)

// Contact is an invoice recipient in the user's address book.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	VATID string `json:"vat_id,omitempty"`
}

// Supplier is a vendor whose incoming invoices are ingested via OCR.
type Supplier struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	IBAN  string `json:"iban,omitempty"`
}

// AnalyticsSummary is the dashboard aggregate computed server-side.
type AnalyticsSummary struct {
	TotalInvoices    int   `json:"total_invoices"`
	OpenAmountCents  int64 `json:"open_amount_cents"`
	PaidAmountCents  int64 `json:"paid_amount_cents"`
	OverdueCount     int   `json:"overdue_count"`
	ContactsCount    int   `json:"contacts_count"`
	SuppliersCount   int   `json:"suppliers_count"`
	OCRDocumentCount int   `json:"ocr_document_count"`
}

// AuditEvent is one entry of the account's audit trail.
type AuditEvent struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditLogParams filters and paginates audit log queries.
type AuditLogParams struct {
	Page     int
	PageSize int
	Action   string
	From     *time.Time
	To       *time.Time
}

const maxAuditPageSize = 100

func (p AuditLogParams) validate() error {
	if p.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if p.PageSize < 1 || p.PageSize > maxAuditPageSize {
		return fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxAuditPageSize)
	}
	return nil
}

type auditLogResponse struct {
	Data  []AuditEvent `json:"data"`
	Total int64        `json:"total"`
}

func (c *Client) ListContacts(ctx context.Context) ([]Contact, error) {
	var out []Contact
	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetResult(&out).
			Get("/api/contacts")
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, newAPIError(resp)
	}

	return out, nil
}

func (c *Client) CreateContact(ctx context.Context, contact Contact) (*Contact, error) {
	if strings.TrimSpace(contact.Name) == "" {
		return nil, fmt.Errorf("%w: contact name is required", domain.ErrValidation)
	}

	var out Contact
	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(contact).
			SetResult(&out).
			Post("/api/contacts")
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, newAPIError(resp)
	}

	return &out, nil
}

func (c *Client) DeleteContact(ctx context.Context, id string) error {
	return c.deleteByID(ctx, "/api/contacts/", "contact", id)
}

func (c *Client) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var out []Supplier
	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetResult(&out).
			Get("/api/suppliers")
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, newAPIError(resp)
	}

	return out, nil
}

func (c *Client) CreateSupplier(ctx context.Context, supplier Supplier) (*Supplier, error) {
	if strings.TrimSpace(supplier.Name) == "" {
		return nil, fmt.Errorf("%w: supplier name is required", domain.ErrValidation)
	}

	var out Supplier
	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(supplier).
			SetResult(&out).
			Post("/api/suppliers")
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, newAPIError(resp)
	}

	return &out, nil
}

func (c *Client) DeleteSupplier(ctx context.Context, id string) error {
	return c.deleteByID(ctx, "/api/suppliers/", "supplier", id)
}

func (c *Client) GetAnalyticsSummary(ctx context.Context) (*AnalyticsSummary, error) {
	var out AnalyticsSummary
	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetResult(&out).
			Get("/api/analytics/summary")
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, newAPIError(resp)
	}

	return &out, nil
}

func (c *Client) QueryAuditLog(ctx context.Context, params AuditLogParams) ([]AuditEvent, int64, error) {
	if err := params.validate(); err != nil {
		return nil, 0, err
	}

	var out auditLogResponse
	resp, err := c.do(func() (*resty.Response, error) {
		req := c.rest.R().
			SetContext(ctx).
			SetQueryParam("page", strconv.Itoa(params.Page)).
			SetQueryParam("page_size", strconv.Itoa(params.PageSize)).
			SetResult(&out)

		if action := strings.TrimSpace(params.Action); action != "" {
			req.SetQueryParam("action", action)
		}
		if params.From != nil {
			req.SetQueryParam("from", params.From.Format(time.RFC3339))
		}
		if params.To != nil {
			req.SetQueryParam("to", params.To.Format(time.RFC3339))
		}

		return req.Get("/api/audit-log")
	})
	if err != nil {
		return nil, 0, err
	}
	if resp.IsError() {
		return nil, 0, newAPIError(resp)
	}

	return out.Data, out.Total, nil
}

// UpdateCompanyLogo replaces the company logo used on rendered invoices.
func (c *Client) UpdateCompanyLogo(ctx context.Context, filename string, content io.Reader) error {
	trimmedName := strings.TrimSpace(filename)
	if trimmedName == "" {
		return fmt.Errorf("%w: filename is required", domain.ErrValidation)
	}
	if content == nil {
		return fmt.Errorf("%w: logo content is required", domain.ErrValidation)
	}

	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetFileReader("logo", trimmedName, content).
			Put("/api/company/logo")
	})
	if err != nil {
		return err
	}
	if resp.IsError() {
		return newAPIError(resp)
	}

	return nil
}

// Ping checks backend reachability for readiness reporting.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			Get("/api/health")
	})
	if err != nil {
		return err
	}
	if resp.IsError() {
		return newAPIError(resp)
	}

	return nil
}

func (c *Client) deleteByID(ctx context.Context, basePath string, kind string, id string) error {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return fmt.Errorf("%w: %s id is required", domain.ErrValidation, kind)
	}

	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			Delete(basePath + trimmedID)
	})
	if err != nil {
		return err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %s %q", domain.ErrNotFound, kind, trimmedID)
	}
	if resp.IsError() {
		return newAPIError(resp)
	}

	return nil
}
