package handler

import (
	"errors"

	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/port"
	"github.com/gofiber/fiber/v3"
)

// fail maps a service error to an HTTP status and a stable machine-readable
// code, so clients can branch on "code" instead of parsing messages.
func fail(c fiber.Ctx, err error) error {
	status, code := classify(err)
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, port.ErrValidation):
		return fiber.StatusBadRequest, "validation_failed"
	case errors.Is(err, port.ErrInvalidCredentials),
		errors.Is(err, port.ErrTokenInvalid),
		errors.Is(err, port.ErrTokenExpired):
		return fiber.StatusUnauthorized, "unauthorized"
	case errors.Is(err, port.ErrAccountDisabled):
		return fiber.StatusForbidden, "account_disabled"
	case errors.Is(err, port.ErrUserExists):
		return fiber.StatusConflict, "user_exists"
	case errors.Is(err, port.ErrUserNotFound),
		errors.Is(err, port.ErrCVNotFound),
		errors.Is(err, port.ErrNoResumeData):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, port.ErrEmptyDocument):
		return fiber.StatusUnprocessableEntity, "empty_document"
	case errors.Is(err, port.ErrEmbedding),
		errors.Is(err, port.ErrIndexUnavailable),
		errors.Is(err, port.ErrGeneration):
		return fiber.StatusBadGateway, "upstream_failed"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}
