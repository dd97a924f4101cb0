package gateway

import (
	"bufio"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/invopilot/invoice-edge/internal/notify"
)

const ssePingInterval = 30 * time.Second

type localHandler struct {
	poller *notify.Poller
	hub    *notify.Hub
	logger *zap.Logger
}

// registerLocalRoutes mounts the gateway's own notification API, consumed by
// UI clients alongside the proxied backend routes.
func registerLocalRoutes(router fiber.Router, poller *notify.Poller, hub *notify.Hub, logger *zap.Logger) {
	h := &localHandler{poller: poller, hub: hub, logger: logger}

	v1 := router.Group("/local/v1")
	v1.Get("/notifications", h.GetNotifications)
	v1.Get("/notifications/unread-count", h.GetUnreadCount)
	v1.Post("/notifications/read", h.MarkRead)
	v1.Post("/panel/toggle", h.TogglePanel)
	v1.Get("/events", h.StreamEvents)
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}

type unreadCountResponse struct {
	Count int    `json:"count"`
	Badge string `json:"badge"`
}

func (h *localHandler) GetNotifications(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.poller.Snapshot())
}

func (h *localHandler) GetUnreadCount(c *fiber.Ctx) error {
	state := h.poller.Snapshot()
	return c.Status(fiber.StatusOK).JSON(unreadCountResponse{
		Count: state.Unread,
		Badge: state.Badge,
	})
}

func (h *localHandler) MarkRead(c *fiber.Ctx) error {
	var req markReadRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	if len(req.IDs) == 0 {
		return c.Status(fiber.StatusOK).JSON(h.poller.MarkAllRead(c.UserContext()))
	}

	var state notify.State
	for _, id := range req.IDs {
		var err error
		state, err = h.poller.MarkOneRead(c.UserContext(), id)
		if err != nil {
			return err
		}
	}
	return c.Status(fiber.StatusOK).JSON(state)
}

func (h *localHandler) TogglePanel(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.poller.TogglePanel(c.UserContext()))
}

// StreamEvents pushes notification state changes to the client as SSE.
func (h *localHandler) StreamEvents(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	events, cancel := h.hub.Subscribe()
	initial := h.poller.Snapshot()
	h.logger.Debug("event stream client connected")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		if err := writeSSE(w, notify.Event{Kind: notify.EventStateChanged, State: initial}); err != nil {
			return
		}

		ping := time.NewTicker(ssePingInterval)
		defer ping.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := writeSSE(w, event); err != nil {
					return
				}
			case <-ping.C:
				// Comment line keeps idle connections alive.
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeSSE(w *bufio.Writer, event notify.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := w.WriteString("event: " + event.Kind + "\n"); err != nil {
		return err
	}
	if _, err := w.WriteString("data: " + string(payload) + "\n\n"); err != nil {
		return err
	}
	return w.Flush()
}
