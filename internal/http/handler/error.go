package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func requestIDFromCtx(c *fiber.Ctx) string {
	s, _ := c.Locals(middleware.RequestIDLocalKey).(string)
	return s
}

// writeError writes the standard envelope. message must be safe to show to clients.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	})
}

// writeServiceError maps the service error taxonomy onto HTTP responses.
// Unrecognized errors are logged and answered with a generic 500.
func writeServiceError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	var (
		notFound     *service.NotFoundError
		unauthorized *service.UnauthorizedError
		invalidFile  *service.InvalidFileError
		exists       *service.AlreadyExistsError
		validation   *service.ValidationError
	)

	switch {
	case errors.As(err, &notFound):
		if notFound.Resource == service.ResourceBlob {
			log.Error().Str("request_id", requestIDFromCtx(c)).Err(err).Msg("stored file missing")
			return writeError(c, fiber.StatusNotFound, "BLOB_MISSING", notFound.Error())
		}
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", notFound.Error())
	case errors.As(err, &unauthorized):
		return writeError(c, fiber.StatusForbidden, "UNAUTHORIZED", unauthorized.Error())
	case errors.As(err, &invalidFile):
		if invalidFile.Reason == service.ReasonIO {
			log.Error().Str("request_id", requestIDFromCtx(c)).Err(err).Msg("file storage failed")
			return writeError(c, fiber.StatusBadRequest, "INVALID_FILE", "file storage failed")
		}
		return writeError(c, fiber.StatusBadRequest, "INVALID_FILE", invalidFile.Error())
	case errors.As(err, &exists):
		return writeError(c, fiber.StatusConflict, "ALREADY_EXISTS", exists.Error())
	case errors.Is(err, service.ErrAuthenticationFailed):
		return writeError(c, fiber.StatusUnauthorized, "AUTHENTICATION_FAILED", err.Error())
	case errors.As(err, &validation):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", validation.Error())
	}

	log.Error().Str("request_id", requestIDFromCtx(c)).Err(err).Msg("request failed")
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler for framework-level errors.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
	}
}
