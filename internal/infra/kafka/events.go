package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-accounts/internal/core/domain"
	"github.com/arklim/social-platform-accounts/internal/core/port"
	"github.com/arklim/social-platform-accounts/internal/infra/config"
	"github.com/arklim/social-platform-accounts/internal/infra/telemetry"
)

const schemaVersion = "1.0"

// Event types double as topic names once the configured prefix is applied.
const (
	eventAccountRegistered = "accounts.account.registered"
	eventEmailVerified     = "accounts.account.email_verified"
	eventPasswordChanged   = "accounts.account.password_changed"
	eventAccountLocked     = "accounts.account.locked"
	eventLoginSucceeded    = "accounts.login.succeeded"
	eventLoginFailed       = "accounts.login.failed"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
	metrics  *telemetry.Metrics
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

// WithMetrics attaches domain counters incremented as events are enqueued.
func (p *EventPublisher) WithMetrics(metrics *telemetry.Metrics) *EventPublisher {
	p.metrics = metrics
	return p
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		p.metrics.EventPublished(eventType)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountRegistered publishes accounts.account.registered events.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		AccountID    string         `json:"account_id"`
		Email        string         `json:"email"`
		FirstName    string         `json:"first_name"`
		LastName     string         `json:"last_name"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:    event.AccountID,
		Email:        event.Email,
		FirstName:    event.FirstName,
		LastName:     event.LastName,
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventAccountRegistered, event.AccountID, event.RegisteredAt, payload)
}

// PublishEmailVerified publishes accounts.account.email_verified events.
func (p *EventPublisher) PublishEmailVerified(ctx context.Context, event domain.EmailVerifiedEvent) error {
	payload := struct {
		AccountID  string         `json:"account_id"`
		Email      string         `json:"email"`
		VerifiedAt time.Time      `json:"verified_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:  event.AccountID,
		Email:      event.Email,
		VerifiedAt: event.VerifiedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventEmailVerified, event.AccountID, event.VerifiedAt, payload)
}

// PublishPasswordChanged publishes accounts.account.password_changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		AccountID string         `json:"account_id"`
		ChangedAt time.Time      `json:"changed_at"`
		ChangedBy string         `json:"changed_by"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		AccountID: event.AccountID,
		ChangedAt: event.ChangedAt.UTC(),
		ChangedBy: event.ChangedBy,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventPasswordChanged, event.AccountID, event.ChangedAt, payload)
}

// PublishAccountLocked publishes accounts.account.locked events.
func (p *EventPublisher) PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error {
	payload := struct {
		AccountID     string         `json:"account_id"`
		Email         string         `json:"email"`
		FailedLogins  int            `json:"failed_logins"`
		LockoutExpiry time.Time      `json:"lockout_expiry"`
		LockedAt      time.Time      `json:"locked_at"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:     event.AccountID,
		Email:         event.Email,
		FailedLogins:  event.FailedLogins,
		LockoutExpiry: event.LockoutExpiry.UTC(),
		LockedAt:      event.LockedAt.UTC(),
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventAccountLocked, event.AccountID, event.LockedAt, payload)
}

// PublishLoginSucceeded publishes accounts.login.succeeded events.
func (p *EventPublisher) PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error {
	payload := struct {
		AccountID  string         `json:"account_id"`
		Email      string         `json:"email"`
		OccurredAt time.Time      `json:"occurred_at"`
		IPAddress  *string        `json:"ip_address,omitempty"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:  event.AccountID,
		Email:      event.Email,
		OccurredAt: event.OccurredAt.UTC(),
		IPAddress:  event.IPAddress,
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventLoginSucceeded, event.AccountID, event.OccurredAt, payload)
}

// PublishLoginFailed publishes accounts.login.failed events.
func (p *EventPublisher) PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error {
	accountID := ""
	if event.AccountID != nil {
		accountID = *event.AccountID
	}

	payload := struct {
		AccountID    *string        `json:"account_id,omitempty"`
		Email        string         `json:"email"`
		Reason       string         `json:"reason"`
		FailedLogins int            `json:"failed_logins"`
		OccurredAt   time.Time      `json:"occurred_at"`
		IPAddress    *string        `json:"ip_address,omitempty"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:    event.AccountID,
		Email:        event.Email,
		Reason:       event.Reason,
		FailedLogins: event.FailedLogins,
		OccurredAt:   event.OccurredAt.UTC(),
		IPAddress:    event.IPAddress,
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventLoginFailed, accountID, event.OccurredAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
