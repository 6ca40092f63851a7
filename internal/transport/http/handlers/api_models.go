package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-accounts/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary describes the sanitized view of an account returned by the API.
type AccountSummary struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}

// RegistrationRequest defines the account registration payload. Field-level
// validation lives in the registration service so its messages reach clients.
type RegistrationRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// RegistrationResponse contains registration results and next steps.
type RegistrationResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	AccountID string `json:"account_id,omitempty"`
	// SECURITY: DevToken is ONLY exposed in development mode.
	// In production, verification tokens are sent via email only.
	DevToken *string `json:"dev_token,omitempty"` // Development only
}

// VerifyEmailRequest holds the verification payload.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// VerifyEmailResponse is returned after a verification attempt.
type VerifyEmailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ResendVerificationRequest asks for a fresh verification email.
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// ResendVerificationResponse acknowledges a resend request without
// disclosing whether the account exists.
type ResendVerificationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// SECURITY: DevToken is ONLY exposed in development mode.
	DevToken *string `json:"dev_token,omitempty"` // Development only
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse describes the response returned for a login attempt. Token
// fields and the account summary are present only on success.
type LoginResponse struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	AccessToken string          `json:"access_token,omitempty"`
	TokenType   string          `json:"token_type,omitempty"`
	ExpiresIn   int             `json:"expires_in,omitempty"`
	Account     *AccountSummary `json:"account,omitempty"`
}

// PasswordChangeRequest captures a password change request body.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// PasswordChangeResponse conveys the result of a password change.
type PasswordChangeResponse struct {
	Message   string    `json:"message"`
	ChangedAt time.Time `json:"changed_at"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// JWKSKey describes an individual JSON Web Key in the JWKS response.
type JWKSKey struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSResponse represents the JSON Web Key Set payload.
type JWKSResponse struct {
	Keys []JWKSKey `json:"keys"`
}

// newAccountSummary converts a domain account to a summary suitable for API
// responses. Callers are expected to pass sanitized accounts; the summary
// never includes credential material either way.
func newAccountSummary(account domain.Account) AccountSummary {
	summary := AccountSummary{
		ID:            account.ID,
		Email:         account.Email,
		FirstName:     account.FirstName,
		LastName:      account.LastName,
		EmailVerified: account.EmailVerified,
		CreatedAt:     account.CreatedAt,
	}

	if account.LastLogin != nil {
		lastLogin := account.LastLogin.UTC()
		summary.LastLogin = &lastLogin
	}

	return summary
}
