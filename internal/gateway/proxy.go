package gateway

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/invopilot/invoice-edge/internal/cache"
	"github.com/invopilot/invoice-edge/internal/domain"
	"github.com/invopilot/invoice-edge/internal/observability"
)

type proxyHandler struct {
	engine  *cache.Engine
	logger  *zap.Logger
	metrics *observability.Metrics
}

func newProxyHandler(engine *cache.Engine, logger *zap.Logger, metrics *observability.Metrics) *proxyHandler {
	return &proxyHandler{engine: engine, logger: logger, metrics: metrics}
}

// Handle forwards the intercepted request to the backend through the cache
// engine and streams the resolved entry back.
func (p *proxyHandler) Handle(c *fiber.Ctx) error {
	req, err := stdRequest(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request")
	}

	entry, err := p.engine.Serve(c.UserContext(), req)
	if err != nil {
		logger := observability.WithContextLogger(p.logger, c.UserContext())

		// A navigation that cannot be satisfied gets the offline page
		// instead of a raw connection error.
		if isNavigation(c) {
			logger.Info("serving offline page",
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			p.metrics.IncOfflinePage()
			return serveOfflinePage(c)
		}

		logger.Warn("proxy request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return fmt.Errorf("%w: backend unreachable", domain.ErrUnavailable)
	}

	return writeEntry(c, entry)
}

// stdRequest rebuilds the intercepted request for the cache engine.
func stdRequest(c *fiber.Ctx) (*http.Request, error) {
	var body *bytes.Reader
	if len(c.Body()) > 0 {
		body = bytes.NewReader(c.Body())
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(c.UserContext(), c.Method(), c.OriginalURL(), body)
	if err != nil {
		return nil, err
	}

	for key, values := range c.GetReqHeaders() {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return req, nil
}

func writeEntry(c *fiber.Ctx, entry *cache.Entry) error {
	for key, values := range entry.Header {
		// The body length may differ after the round trip through storage.
		if key == fiber.HeaderContentLength {
			continue
		}
		for _, value := range values {
			c.Response().Header.Add(key, value)
		}
	}
	return c.Status(entry.Status).Send(entry.Body)
}

func isNavigation(c *fiber.Ctx) bool {
	return c.Method() == fiber.MethodGet &&
		strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMETextHTML)
}
