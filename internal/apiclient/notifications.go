package apiclient

import (
	"context"

	"github.com/go-resty/resty/v2"

	"github.com/invopilot/invoice-edge/internal/domain"
)

type unreadCountResponse struct {
	Count int `json:"count"`
}

type markReadRequest struct {
	IDs []string `json:"ids,omitempty"`
}

// UnreadCount fetches the current unread notification count.
func (c *Client) UnreadCount(ctx context.Context) (domain.UnreadCount, error) {
	var out unreadCountResponse
	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetResult(&out).
			Get("/api/notifications/unread-count")
	})
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, newAPIError(resp)
	}

	return domain.NewUnreadCount(out.Count), nil
}

// ListNotifications fetches recent notifications. Order is preserved exactly
// as returned by the backend.
func (c *Client) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	var out []domain.Notification
	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetResult(&out).
			Get("/api/notifications")
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, newAPIError(resp)
	}

	return out, nil
}

// MarkRead marks the given notifications read. With no ids, every
// notification is marked read.
func (c *Client) MarkRead(ctx context.Context, ids ...string) error {
	resp, err := c.do(func() (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(markReadRequest{IDs: ids}).
			Post("/api/notifications/mark-read")
	})
	if err != nil {
		return err
	}
	if resp.IsError() {
		return newAPIError(resp)
	}

	return nil
}
