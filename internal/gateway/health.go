package gateway

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

// Readiness probes the gateway's dependencies. Redis gates readiness because
// the cache partitions live there; the backend is reported but not gating,
// offline operation is the point of the cache layer.
type Readiness struct {
	Redis       *redis.Client
	BackendPing func(ctx context.Context) error
}

func registerHealthRoutes(app fiber.Router, readiness *Readiness) {
	app.Get("/livez", livezHandler())
	app.Get("/readyz", readyzHandler(readiness))
}

func livezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

func readyzHandler(readiness *Readiness) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if readiness == nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"status": "ready",
			})
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()

		redisStatus := "ok"
		var redisErr error
		if readiness.Redis != nil {
			redisErr = readiness.Redis.Ping(ctx).Err()
			if redisErr != nil {
				redisStatus = "down"
			}
		}

		backendStatus := "ok"
		if readiness.BackendPing != nil {
			if err := readiness.BackendPing(ctx); err != nil {
				backendStatus = "down"
			}
		}

		status := "ready"
		statusCode := fiber.StatusOK
		if redisErr != nil {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": fiber.Map{
				"redis":   redisStatus,
				"backend": backendStatus,
			},
		})
	}
}
