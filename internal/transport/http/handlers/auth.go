package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-accounts/internal/usecase"
)

// AuthHandler exposes the credential login endpoint.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login godoc
// @Summary Authenticate with email and password
// @Description Validates credentials against the lockout and verification policy, returning a bearer token on success. Failure messages never disclose account existence.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse "Successfully authenticated"
// @Failure 400 {object} LoginResponse "Missing email or password"
// @Failure 401 {object} LoginResponse "Invalid credentials"
// @Failure 403 {object} LoginResponse "Account locked or email not verified"
// @Failure 429 {object} middleware.ProblemDetails "Rate limit exceeded"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	if h.auth == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "authentication service unavailable"))
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	meta := usecase.LoginMetadata{}
	if ip := c.ClientIP(); ip != "" {
		meta.IP = &ip
	}
	if agent := c.Request.UserAgent(); agent != "" {
		meta.UserAgent = &agent
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, meta)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authentication failed"))
		return
	}

	if !result.Success {
		c.JSON(loginFailureStatus(result.Reason), LoginResponse{
			Success: false,
			Message: result.Message,
		})
		return
	}

	accessToken, err := h.auth.IssueAccessToken(*result.Account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to issue access token"))
		return
	}

	summary := newAccountSummary(*result.Account)

	c.JSON(http.StatusOK, LoginResponse{
		Success:     true,
		Message:     result.Message,
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   computeExpiresIn(accessToken, h.auth),
		Account:     &summary,
	})
}

// loginFailureStatus maps login outcome reasons onto HTTP status codes.
// Locked and unverified accounts are 403: the credentials may be right but
// the account is not allowed to log in.
func loginFailureStatus(reason usecase.OutcomeReason) int {
	switch reason {
	case usecase.ReasonInvalidCredentials:
		return http.StatusUnauthorized
	case usecase.ReasonAccountLocked, usecase.ReasonEmailNotVerified:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func computeExpiresIn(token string, auth *usecase.AuthService) int {
	if auth == nil {
		return 0
	}
	claims, err := auth.ParseAccessToken(token)
	if err != nil || claims == nil || claims.ExpiresAt == nil {
		return 0
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return 0
	}

	return int(remaining.Seconds())
}
