package usecase

// OutcomeReason classifies a failed business outcome so transports can map
// results to protocol status codes without parsing human-readable messages.
// Successful outcomes carry an empty reason.
type OutcomeReason string

const (
	// ReasonInvalidInput marks request fields that failed validation.
	ReasonInvalidInput OutcomeReason = "invalid_input"
	// ReasonDuplicateEmail marks registration against an existing email.
	ReasonDuplicateEmail OutcomeReason = "duplicate_email"
	// ReasonDeliveryFailed marks a notifier that did not accept the email.
	ReasonDeliveryFailed OutcomeReason = "delivery_failed"
	// ReasonTokenInvalid marks an unknown, expired, or consumed verification token.
	ReasonTokenInvalid OutcomeReason = "token_invalid"
	// ReasonInvalidCredentials covers unknown accounts and wrong passwords.
	ReasonInvalidCredentials OutcomeReason = "invalid_credentials"
	// ReasonAccountLocked marks logins rejected by an active lockout.
	ReasonAccountLocked OutcomeReason = "account_locked"
	// ReasonEmailNotVerified marks logins blocked until email verification.
	ReasonEmailNotVerified OutcomeReason = "email_not_verified"
)
