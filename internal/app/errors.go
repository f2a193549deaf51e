package app

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ideaflow/api/internal/apperr"
	"ideaflow/api/internal/auth"
	"ideaflow/api/internal/store"
)

func mapError(err error) (status int, code, message string, details any) {
	if domainErr, ok := apperr.As(err); ok {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, apperr.ErrNotFound.Code, "Not found", nil
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, apperr.ErrConflict.Code, "Conflict", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, apperr.ErrUnauthorized.Code, "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func writeError(c *gin.Context, status int, code, message string, details any) {
	response := gin.H{
		"code":       code,
		"error":      message,
		"statusCode": status,
	}
	if details != nil {
		response["details"] = details
	}
	c.AbortWithStatusJSON(status, response)
}

// fail writes err as a JSON error. Server errors are logged with the
// request id; domain errors are not.
func (s *HTTPServer) fail(c *gin.Context, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed",
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Any("error", err),
		)
	}
	writeError(c, status, code, message, details)
}
