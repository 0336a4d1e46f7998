// Package api provides HTTP handlers for the REST API endpoints.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/reel/internal/logger"
	"github.com/stwalsh4118/reel/internal/media"
	"github.com/stwalsh4118/reel/internal/models"
	"github.com/stwalsh4118/reel/internal/session"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// DeleteResponse represents a successful delete operation
type DeleteResponse struct {
	Message string `json:"message"`
}

// respondError maps a session or engine error to a status code and error body
func respondError(c *gin.Context, op string, err error) {
	status, code := classifyError(err)

	event := logger.Log.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Log.Error()
	}
	event.
		Err(err).
		Str("op", op).
		Int("status", status).
		Msg("Request failed")

	c.JSON(status, ErrorResponse{
		Error:   code,
		Message: err.Error(),
	})
}

func classifyError(err error) (int, string) {
	var engineErr *models.EngineError
	if errors.As(err, &engineErr) {
		switch engineErr.Kind {
		case models.KindValidation:
			return http.StatusBadRequest, engineErr.Kind.String()
		case models.KindDecodeFailure:
			if errors.Is(err, media.ErrToolUnavailable) {
				return http.StatusServiceUnavailable, "tool_unavailable"
			}
			if errors.Is(err, media.ErrFileNotFound) {
				return http.StatusNotFound, "file_not_found"
			}
			return http.StatusUnprocessableEntity, engineErr.Kind.String()
		default:
			return http.StatusInternalServerError, engineErr.Kind.String()
		}
	}

	switch {
	case errors.Is(err, session.ErrClipNotFound):
		return http.StatusNotFound, "clip_not_found"
	case errors.Is(err, session.ErrSessionClosed), errors.Is(err, session.ErrNotStarted):
		return http.StatusServiceUnavailable, "session_unavailable"
	case errors.Is(err, session.ErrNoImporter):
		return http.StatusServiceUnavailable, "import_disabled"
	case errors.Is(err, media.ErrUnsupportedFormat):
		return http.StatusBadRequest, "unsupported_format"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
