package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-accounts/internal/usecase"
)

// RegistrationHandler exposes endpoints for account registration and email
// verification.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
	isDev        bool // Development mode flag
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *usecase.RegistrationService, isDev bool) *RegistrationHandler {
	return &RegistrationHandler{
		registration: registration,
		isDev:        isDev,
	}
}

// Register godoc
// @Summary Register a new account
// @Description Creates an unverified account and sends a verification email. Validation and duplicate failures are reported in the response body.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body RegistrationRequest true "Registration request"
// @Success 201 {object} RegistrationResponse
// @Failure 400 {object} RegistrationResponse "Validation failure"
// @Failure 409 {object} RegistrationResponse "Email already registered"
// @Failure 502 {object} RegistrationResponse "Account stored but verification email failed"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	if h.registration == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "registration service unavailable"))
		return
	}

	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	result, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to register account"))
		return
	}

	resp := RegistrationResponse{
		Success:   result.Success,
		Message:   result.Message,
		AccountID: result.AccountID,
	}

	// SECURITY: Only expose raw tokens in development mode.
	// In production, tokens are delivered via the notifier only.
	if h.isDev {
		if token := strings.TrimSpace(result.Token); token != "" {
			resp.DevToken = &token
		}
	}

	if result.Success {
		c.JSON(http.StatusCreated, resp)
		return
	}

	c.JSON(registrationFailureStatus(result.Reason), resp)
}

// VerifyEmail godoc
// @Summary Verify an account email address
// @Description Consumes a verification token and marks the owning account as verified. Repeat verification is idempotent.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body VerifyEmailRequest true "Verification request"
// @Success 200 {object} VerifyEmailResponse
// @Failure 400 {object} VerifyEmailResponse "Missing, unknown, used, or expired token"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/verify-email [post]
func (h *RegistrationHandler) VerifyEmail(c *gin.Context) {
	if h.registration == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "registration service unavailable"))
		return
	}

	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	result, err := h.registration.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to verify email"))
		return
	}

	resp := VerifyEmailResponse{
		Success: result.Success,
		Message: result.Message,
	}

	if result.Success {
		c.JSON(http.StatusOK, resp)
		return
	}

	c.JSON(http.StatusBadRequest, resp)
}

// ResendVerification godoc
// @Summary Resend the verification email
// @Description Issues a fresh verification token for unverified accounts. The response does not disclose whether the account exists.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body ResendVerificationRequest true "Resend request"
// @Success 202 {object} ResendVerificationResponse
// @Failure 400 {object} ResendVerificationResponse "Missing email"
// @Failure 502 {object} ResendVerificationResponse "Verification email failed"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/resend-verification [post]
func (h *RegistrationHandler) ResendVerification(c *gin.Context) {
	if h.registration == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "registration service unavailable"))
		return
	}

	var req ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid resend payload"))
		return
	}

	result, err := h.registration.ResendVerification(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to resend verification"))
		return
	}

	resp := ResendVerificationResponse{
		Success: result.Success,
		Message: result.Message,
	}

	if h.isDev {
		if token := strings.TrimSpace(result.Token); token != "" {
			resp.DevToken = &token
		}
	}

	if result.Success {
		c.JSON(http.StatusAccepted, resp)
		return
	}

	c.JSON(registrationFailureStatus(result.Reason), resp)
}

// registrationFailureStatus maps outcome reasons onto HTTP status codes for
// the registration endpoints.
func registrationFailureStatus(reason usecase.OutcomeReason) int {
	switch reason {
	case usecase.ReasonDuplicateEmail:
		return http.StatusConflict
	case usecase.ReasonDeliveryFailed:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
