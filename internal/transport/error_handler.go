package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/invopilot/invoice-edge/internal/apiclient"
	"github.com/invopilot/invoice-edge/internal/domain"
)

func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := apiclient.GenericErrorMessage

		var fiberErr *fiber.Error
		var apiErr *apiclient.APIError
		switch {
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			message = fiberErr.Message
		case errors.As(err, &apiErr):
			// Backend failure statuses pass through; anything else that
			// surfaced as an error becomes a bad gateway.
			code = apiErr.StatusCode
			if code < fiber.StatusBadRequest {
				code = fiber.StatusBadGateway
			}
			message = apiErr.Message()
		case errors.Is(err, domain.ErrValidation):
			code = fiber.StatusBadRequest
			message = err.Error()
		case errors.Is(err, domain.ErrNotFound):
			code = fiber.StatusNotFound
			message = err.Error()
		case errors.Is(err, domain.ErrUnavailable):
			code = fiber.StatusServiceUnavailable
			message = err.Error()
		}

		logger.Error("request error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": message,
		})
	}
}
