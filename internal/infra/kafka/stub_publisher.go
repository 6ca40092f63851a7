package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-accounts/internal/core/domain"
	"github.com/arklim/social-platform-accounts/internal/core/port"
	"github.com/arklim/social-platform-accounts/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
// Email addresses are masked before they hit the console.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(log *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: log}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountRegistered logs accounts.account.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	payload := map[string]any{
		"account_id":    event.AccountID,
		"email":         logger.MaskEmail(event.Email),
		"first_name":    event.FirstName,
		"last_name":     event.LastName,
		"registered_at": event.RegisteredAt,
		"metadata":      event.Metadata,
	}
	p.logEvent(eventAccountRegistered, event.AccountID, event.RegisteredAt, payload)
	return nil
}

// PublishEmailVerified logs accounts.account.email_verified events.
func (p *StubPublisher) PublishEmailVerified(_ context.Context, event domain.EmailVerifiedEvent) error {
	payload := map[string]any{
		"account_id":  event.AccountID,
		"email":       logger.MaskEmail(event.Email),
		"verified_at": event.VerifiedAt,
		"metadata":    event.Metadata,
	}
	p.logEvent(eventEmailVerified, event.AccountID, event.VerifiedAt, payload)
	return nil
}

// PublishPasswordChanged logs accounts.account.password_changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"changed_at": event.ChangedAt,
		"changed_by": event.ChangedBy,
		"metadata":   event.Metadata,
	}
	p.logEvent(eventPasswordChanged, event.AccountID, event.ChangedAt, payload)
	return nil
}

// PublishAccountLocked logs accounts.account.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	payload := map[string]any{
		"account_id":     event.AccountID,
		"email":          logger.MaskEmail(event.Email),
		"failed_logins":  event.FailedLogins,
		"lockout_expiry": event.LockoutExpiry,
		"locked_at":      event.LockedAt,
		"metadata":       event.Metadata,
	}
	p.logEvent(eventAccountLocked, event.AccountID, event.LockedAt, payload)
	return nil
}

// PublishLoginSucceeded logs accounts.login.succeeded events.
func (p *StubPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	payload := map[string]any{
		"account_id":  event.AccountID,
		"email":       logger.MaskEmail(event.Email),
		"occurred_at": event.OccurredAt,
		"ip_address":  maskIPPtr(event.IPAddress),
		"metadata":    event.Metadata,
	}
	p.logEvent(eventLoginSucceeded, event.AccountID, event.OccurredAt, payload)
	return nil
}

// PublishLoginFailed logs accounts.login.failed events.
func (p *StubPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	accountID := ""
	if event.AccountID != nil {
		accountID = *event.AccountID
	}

	payload := map[string]any{
		"account_id":    accountID,
		"email":         logger.MaskEmail(event.Email),
		"reason":        event.Reason,
		"failed_logins": event.FailedLogins,
		"occurred_at":   event.OccurredAt,
		"ip_address":    maskIPPtr(event.IPAddress),
		"metadata":      event.Metadata,
	}
	p.logEvent(eventLoginFailed, accountID, event.OccurredAt, payload)
	return nil
}

func maskIPPtr(ip *string) string {
	if ip == nil {
		return ""
	}
	return logger.MaskIP(*ip)
}

var _ port.EventPublisher = (*StubPublisher)(nil)
