package app

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ideaflow/api/internal/authpw"
	"ideaflow/api/internal/rbac"
)

const (
	requestIDKey = "request_id"
	principalKey = "principal"
)

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// requestLogger assigns a request id and logs one line per request.
func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		started := time.Now()
		c.Next()

		s.logger.InfoContext(c.Request.Context(), "request",
			slog.String("request_id", requestID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Int64("duration_ms", time.Since(started).Milliseconds()),
		)
	}
}

func (s *HTTPServer) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", s.corsOrigin)
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		header.Set("Cache-Control", "no-store")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// requireSession validates the bearer token and stores the principal on
// the context for the handlers below it.
func (s *HTTPServer) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := s.auth.ValidateSession(c.Request.Context(), bearerToken(c))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// requireAction rejects callers whose role may not perform action.
func (s *HTTPServer) requireAction(action rbac.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.auth.Authorize(principalFrom(c), action); err != nil {
			s.fail(c, err)
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) authpw.Principal {
	value, _ := c.Get(principalKey)
	principal, _ := value.(authpw.Principal)
	return principal
}

func actorFrom(c *gin.Context) rbac.Actor {
	return principalFrom(c).Actor()
}
