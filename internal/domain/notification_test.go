package domain

import "testing"

func TestMarkReadIsOneWay(t *testing.T) {
	t.Parallel()

	n := Notification{ID: "n-1"}
	if n.IsRead {
		t.Fatal("new notification should be unread")
	}

	n.MarkRead()
	if !n.IsRead {
		t.Fatal("MarkRead() should set IsRead")
	}

	// Marking again must not flip the state back.
	n.MarkRead()
	if !n.IsRead {
		t.Fatal("IsRead reverted after repeated MarkRead()")
	}
}

func TestNewUnreadCountClampsNegative(t *testing.T) {
	t.Parallel()

	if got := NewUnreadCount(-5); got != 0 {
		t.Fatalf("NewUnreadCount(-5) = %d, want 0", got)
	}
	if got := NewUnreadCount(7); got != 7 {
		t.Fatalf("NewUnreadCount(7) = %d, want 7", got)
	}
}

func TestUnreadCountDecFloorsAtZero(t *testing.T) {
	t.Parallel()

	c := UnreadCount(1)
	if c = c.Dec(); c != 0 {
		t.Fatalf("Dec() = %d, want 0", c)
	}
	if c = c.Dec(); c != 0 {
		t.Fatalf("Dec() below zero = %d, want 0", c)
	}
}

func TestUnreadCountBadge(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		count UnreadCount
		want  string
	}{
		{name: "zero", count: 0, want: "0"},
		{name: "small count", count: 3, want: "3"},
		{name: "at ceiling", count: 99, want: "99"},
		{name: "above ceiling keeps internal value", count: 150, want: "99+"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tc.count.Badge(); got != tc.want {
				t.Fatalf("Badge() = %q, want %q", got, tc.want)
			}
			if tc.count == 150 && int(tc.count) != 150 {
				t.Fatalf("internal count = %d, want 150", tc.count)
			}
		})
	}
}
