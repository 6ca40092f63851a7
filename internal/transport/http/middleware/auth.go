package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-accounts/internal/usecase"
)

// ErrorResponse mirrors the handlers error payload so middleware rejections
// look identical to handler rejections.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Error:   message,
		TraceID: GetTraceID(c),
	})
}

// bearerToken pulls the token out of an Authorization header. The second
// return value carries the client-facing failure message when extraction
// fails.
func bearerToken(c *gin.Context) (string, string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", "missing authorization header"
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found {
		return "", "invalid authorization format: expected 'Bearer <token>'"
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization format: must start with 'Bearer'"
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", "missing access token"
	}
	return token, ""
}

// RequireAuth rejects requests without a valid Bearer access token and
// exposes the verified claims to downstream handlers.
func RequireAuth(authService *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, failure := bearerToken(c)
		if failure != "" {
			abortUnauthorized(c, failure)
			return
		}

		claims, err := authService.ParseAccessToken(token)
		switch {
		case err == nil:
		case errors.Is(err, usecase.ErrExpiredAccessToken):
			abortUnauthorized(c, "access token expired")
			return
		case errors.Is(err, usecase.ErrInvalidAccessToken):
			abortUnauthorized(c, "invalid access token")
			return
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "authentication failed",
				TraceID: GetTraceID(c),
			})
			return
		}

		c.Set(AccountIDKey, claims.AccountID)
		c.Set("claims", claims)
		GetRequestContext(c).AccountID = claims.AccountID

		c.Next()
	}
}

// GetAuthenticatedAccountID reads the account id stamped by RequireAuth.
func GetAuthenticatedAccountID(c *gin.Context) (string, bool) {
	v, exists := c.Get(AccountIDKey)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
