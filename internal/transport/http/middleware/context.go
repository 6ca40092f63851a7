package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDHeader carries the trace id between services.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key holding the trace id.
	TraceIDKey = "trace_id"
	// AccountIDKey is the gin context key holding the authenticated account id.
	AccountIDKey = "account_id"

	requestContextKey = "request_context"
)

// RequestContext aggregates the request-scoped values handlers and
// middleware share: correlation id, caller identity, and client metadata.
type RequestContext struct {
	TraceID   string
	AccountID string
	IP        string
	UserAgent string
}

// EnrichContext accepts an inbound X-Trace-ID or mints one, reflects it in
// the response, and seeds the shared RequestContext.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID returns the trace id seeded by EnrichContext, or "" when the
// middleware did not run.
func GetTraceID(c *gin.Context) string {
	id, ok := c.Get(TraceIDKey)
	if !ok {
		return ""
	}
	s, _ := id.(string)
	return s
}

// GetRequestContext returns the shared request context. The result is never
// nil so callers can read fields without checking.
func GetRequestContext(c *gin.Context) *RequestContext {
	v, ok := c.Get(requestContextKey)
	if !ok {
		return &RequestContext{}
	}
	if reqCtx, ok := v.(*RequestContext); ok {
		return reqCtx
	}
	return &RequestContext{}
}
