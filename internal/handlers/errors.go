package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/partsmirror/internal/services"
	"github.com/example/partsmirror/internal/upstream"
)

// ErrorHandler renders every error in the API envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		message = fe.Message
	case errors.Is(err, services.ErrNotFound), errors.Is(err, upstream.ErrNotFound):
		code = fiber.StatusNotFound
		message = "not found"
	case errors.Is(err, upstream.ErrCredential):
		code = fiber.StatusBadGateway
		message = "upstream authentication failed"
	default:
		var se *upstream.StatusError
		if errors.As(err, &se) {
			code = fiber.StatusBadGateway
			message = "upstream request failed"
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// notFound maps a missing entity to a 404 with message; other errors pass through.
func notFound(err error, message string) error {
	if errors.Is(err, services.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, message)
	}
	return err
}
