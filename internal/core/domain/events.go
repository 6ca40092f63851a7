package domain

import "time"

// AccountRegisteredEvent represents the payload for accounts.account.registered messages.
type AccountRegisteredEvent struct {
	EventID      string
	AccountID    string
	Email        string
	FirstName    string
	LastName     string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// EmailVerifiedEvent represents the payload for accounts.account.email_verified messages.
type EmailVerifiedEvent struct {
	EventID    string
	AccountID  string
	Email      string
	VerifiedAt time.Time
	Metadata   map[string]any
}

// PasswordChangedEvent represents the payload for accounts.account.password_changed messages.
type PasswordChangedEvent struct {
	EventID   string
	AccountID string
	ChangedAt time.Time
	ChangedBy string
	Metadata  map[string]any
}

// AccountLockedEvent represents the payload for accounts.account.locked messages.
type AccountLockedEvent struct {
	EventID       string
	AccountID     string
	Email         string
	FailedLogins  int
	LockoutExpiry time.Time
	LockedAt      time.Time
	Metadata      map[string]any
}

// LoginSucceededEvent represents the payload for accounts.login.succeeded messages.
type LoginSucceededEvent struct {
	EventID    string
	AccountID  string
	Email      string
	OccurredAt time.Time
	IPAddress  *string
	Metadata   map[string]any
}

// LoginFailedEvent represents the payload for accounts.login.failed messages.
type LoginFailedEvent struct {
	EventID      string
	AccountID    *string
	Email        string
	Reason       string
	FailedLogins int
	OccurredAt   time.Time
	IPAddress    *string
	Metadata     map[string]any
}
