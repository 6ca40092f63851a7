package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-accounts/internal/transport/http/middleware"
	"github.com/arklim/social-platform-accounts/internal/usecase"
)

// AccountHandler exposes endpoints operating on the authenticated account.
type AccountHandler struct {
	accounts *usecase.AccountService
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(accounts *usecase.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// ChangePassword godoc
// @Summary Change the password of the authenticated account
// @Description Verifies the current password and replaces the stored hash with a hash of the new password.
// @Tags Account
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body PasswordChangeRequest true "Password change request"
// @Success 200 {object} PasswordChangeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/account/password [post]
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	if h.accounts == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "account service unavailable"))
		return
	}

	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok || accountID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid change password payload"))
		return
	}

	changedAt, err := h.accounts.ChangePassword(c.Request.Context(), accountID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrFieldsRequired, Status: http.StatusBadRequest, Message: "current and new password are required"},
			{Err: usecase.ErrCurrentPasswordInvalid, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "new password does not meet requirements"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, PasswordChangeResponse{
		Message:   "Password changed successfully",
		ChangedAt: changedAt,
	})
}

// Me godoc
// @Summary Retrieve the authenticated account
// @Description Returns the sanitized account record for the caller.
// @Tags Account
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} AccountSummary
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/account/me [get]
func (h *AccountHandler) Me(c *gin.Context) {
	if h.accounts == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "account service unavailable"))
		return
	}

	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok || accountID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	account, err := h.accounts.Get(c.Request.Context(), accountID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to load account")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(*account))
}
