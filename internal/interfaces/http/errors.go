package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/application/dto"
	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
)

// statusFor traduce errores de dominio a códigos HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrTimerNotFound),
		errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidSubState),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrDuplicateScan):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrCategoryNotEligible),
		errors.Is(err, domain.ErrSystemGroupImmutable),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyInState),
		errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrDispatcherNotRunning):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNetworkFailure):
		return fiber.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func writeError(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(dto.ErrorResponse{Code: dto.ErrorCode(err), Message: err.Error()})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// bulkStatus 200 éxito total, 207 parcial, 502 ningún ítem aplicado.
func bulkStatus(r dto.BulkOperationResult) int {
	switch err := r.Err(); {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, domain.ErrBulkOperationFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusMultiStatus
	}
}
