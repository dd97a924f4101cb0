package gateway

import (
	"fmt"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/invopilot/invoice-edge/internal/cache"
	"github.com/invopilot/invoice-edge/internal/notify"
	"github.com/invopilot/invoice-edge/internal/observability"
	"github.com/invopilot/invoice-edge/internal/transport"
)

const requestIDHeader = "X-Request-Id"

// Deps carries everything the gateway needs. Readiness is an optional probe
// of the backing stores.
type Deps struct {
	Engine    *cache.Engine
	Poller    *notify.Poller
	Hub       *notify.Hub
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	Readiness *Readiness
}

// New assembles the fiber application: middleware, operational endpoints, the
// local notification API and the catch-all proxy.
func New(deps Deps) (*fiber.App, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("cache engine is required")
	}
	if deps.Poller == nil {
		return nil, fmt.Errorf("notification poller is required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("notification hub is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "invoice-edge",
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(deps.Logger),
	})

	app.Use(requestIDMiddleware())
	if deps.Metrics != nil {
		app.Use(deps.Metrics.HTTPMiddleware())
	}

	registerHealthRoutes(app, deps.Readiness)
	app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))

	registerLocalRoutes(app, deps.Poller, deps.Hub, deps.Logger)

	proxy := newProxyHandler(deps.Engine, deps.Logger, deps.Metrics)
	app.All("/*", proxy.Handle)

	return app, nil
}

func requestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDHeader, requestID)
		c.SetUserContext(observability.WithRequestID(c.UserContext(), requestID))
		return c.Next()
	}
}
