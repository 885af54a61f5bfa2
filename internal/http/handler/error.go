package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"timetabledocs/internal/http/middleware"
)

// errorPayload is the body of every non-2xx JSON response. Error is shown to users as is.
type errorPayload struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Error     string `json:"error"`
}

type errorText struct{ code, message string }

// Fallback bodies for errors that reach the global handler instead of a handler's writeError.
var statusText = map[int]errorText{
	fiber.StatusBadRequest:            {"BAD_REQUEST", "bad request"},
	fiber.StatusUnauthorized:          {"UNAUTHORIZED", "authentication required"},
	fiber.StatusNotFound:              {"NOT_FOUND", "resource not found"},
	fiber.StatusMethodNotAllowed:      {"METHOD_NOT_ALLOWED", "method not allowed"},
	fiber.StatusRequestEntityTooLarge: {"FILE_TOO_LARGE", "file exceeds the maximum upload size"},
}

var internalError = errorText{"INTERNAL_ERROR", "internal server error"}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.RequestIDLocalKey).(string)
	return id
}

// writeError responds with status and a safe message; internal error text never reaches the body.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestID(c),
		Code:      code,
		Error:     message,
	})
}

// ErrorHandler is the app-wide fiber error handler.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		text, ok := statusText[status]
		if !ok {
			text = internalError
		}
		return writeError(c, status, text.code, text.message)
	}
}
