package serverutils

import (
	"errors"

	"loan-insights-be/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps the error taxonomy onto HTTP statuses:
// NotFound → 404, Validation → 400, UpstreamUnavailable → 502, anything
// else → 500. Fiber errors pass through with their own code.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			status := fiber.StatusInternalServerError
			switch appErr.Kind {
			case apperr.KindNotFound:
				status = fiber.StatusNotFound
			case apperr.KindValidation:
				status = fiber.StatusBadRequest
			case apperr.KindUpstream:
				status = fiber.StatusBadGateway
			case apperr.KindUnavailable:
				status = fiber.StatusServiceUnavailable
			}
			return ctx.Status(status).JSON(ErrorResponse(appErr.Message))
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("Internal Server Error"))
	}
}
