package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arklim/social-platform-accounts/internal/infra/logger"
)

const requestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds caller-supplied ids so a hostile header cannot
// bloat every downstream log line.
const maxRequestIDLength = 64

// RequestID propagates the caller's X-Request-ID or mints a fresh one, then
// stores it on the request context for the access log and response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}

		c.Writer.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey{}, id)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
