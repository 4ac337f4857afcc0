package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"invoiceparser/internal/processor"
	"invoiceparser/internal/server/middleware"
)

// errorBody is the JSON envelope for all error responses.
type errorBody struct {
	RequestID string    `json:"request_id,omitempty"`
	Error     errorInfo `json:"error"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError renders the standard error envelope with the request id
// propagated from the middleware.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	rid, _ := c.Locals(middleware.RequestIDLocalKey).(string)
	return c.Status(status).JSON(errorBody{
		RequestID: rid,
		Error:     errorInfo{Code: code, Message: message},
	})
}

// processingError maps pipeline precondition errors to HTTP responses.
// Document-level extraction failures never reach here; they live on the
// record's error_detail and come back as a 200 with status FAILED.
func processingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, processor.ErrRecordNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "no processing record for that document")
	case errors.Is(err, processor.ErrAlreadyInProgress):
		return writeError(c, fiber.StatusConflict, "ALREADY_IN_PROGRESS", "extraction is already running for this document")
	case errors.Is(err, processor.ErrAlreadyCompleted):
		return writeError(c, fiber.StatusConflict, "ALREADY_COMPLETED", "document already has a completed extraction")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

// ErrorHandler is the app-level fiber error handler: anything a handler
// returns as a plain error ends up in the same envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return writeError(c, fe.Code, "HTTP_ERROR", fe.Message)
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL", "internal error")
}
