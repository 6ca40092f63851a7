package domain

import "time"

// VerificationPurposeRegistration marks tokens minted for the initial
// email-ownership check after registration.
const VerificationPurposeRegistration = "account_registration"

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID            string
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	EmailVerified bool
	FailedLogins  int
	LockoutExpiry *time.Time
	CreatedAt     time.Time
	LastLogin     *time.Time
	PasswordSetAt time.Time
}

// VerificationToken captures a single-use email verification grant.
// Only the SHA-256 hash of the issued token is ever persisted.
type VerificationToken struct {
	ID        string
	AccountID string
	TokenHash string
	Purpose   string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// LoginAttempt records authentication attempts for throttling and audit.
type LoginAttempt struct {
	ID        string
	AccountID *string
	Email     string
	Succeeded bool
	Reason    string
	IP        *string
	UserAgent *string
	CreatedAt time.Time
}
