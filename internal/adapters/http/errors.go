package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"` // bad_request, not_found, rate_limited, internal_error
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errTooManyRequests returns a 429 error.
func errTooManyRequests(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusTooManyRequests, "rate_limited", msg)
}

// errFromService maps a mark service error onto the response. Unexpected
// errors are logged and answered with a generic 500.
func errFromService(c *fiber.Ctx, op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrMarkNotFound):
		return errNotFound(c, "mark not found")
	case errors.Is(err, domain.ErrInvalidCoordinate), errors.Is(err, domain.ErrMessageTooLong):
		return errBadRequest(c, err.Error())
	default:
		LoggerFromCtx(c.UserContext()).Error(op, "error", err)
		return errInternal(c, op+" failed")
	}
}
