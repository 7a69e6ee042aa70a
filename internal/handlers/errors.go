package handlers

import (
	"errors"

	"usersvc/internal/apperrors"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindConflict:
		return fiber.StatusConflict
	case apperrors.KindNotFound:
		return fiber.StatusNotFound
	case apperrors.KindInvalidCredential:
		return fiber.StatusUnauthorized
	case apperrors.KindInvalidInput:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	kind := apperrors.KindOf(err)
	return c.Status(StatusFor(kind)).JSON(fiber.Map{
		"message": apperrors.Message(err),
		"error":   string(kind),
	})
}

// ErrorHandler renders errors that escape route handlers, including
// Fiber's own routing errors, in the service's JSON error shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		kind := apperrors.KindInternal
		switch fe.Code {
		case fiber.StatusNotFound:
			kind = apperrors.KindNotFound
		case fiber.StatusBadRequest, fiber.StatusMethodNotAllowed, fiber.StatusUnprocessableEntity:
			kind = apperrors.KindInvalidInput
		}
		return c.Status(fe.Code).JSON(fiber.Map{
			"message": fe.Message,
			"error":   string(kind),
		})
	}
	return respondError(c, err)
}
