package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-accounts/internal/core/domain"
	"github.com/arklim/social-platform-accounts/internal/core/port"
	"github.com/arklim/social-platform-accounts/internal/infra/security"
	"github.com/arklim/social-platform-accounts/internal/repository"
)

var (
	// ErrFieldsRequired indicates one or more required fields are missing.
	ErrFieldsRequired = errors.New("all fields are required")
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrCurrentPasswordInvalid indicates the provided current password is incorrect.
	ErrCurrentPasswordInvalid = errors.New("current password is incorrect")
)

// AccountService handles account lifecycle operations for authenticated callers.
type AccountService struct {
	accounts  port.AccountRepository
	hasher    port.PasswordHasher
	validator *security.PasswordValidator
	events    port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewAccountService constructs AccountService.
func NewAccountService(accounts port.AccountRepository, hasher port.PasswordHasher, validator *security.PasswordValidator) *AccountService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	return &AccountService{
		accounts:  accounts,
		hasher:    hasher,
		validator: validator,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
}

// WithEventPublisher attaches a publisher for domain events.
func (s *AccountService) WithEventPublisher(events port.EventPublisher) *AccountService {
	s.events = events
	return s
}

// WithLogger attaches a structured logger.
func (s *AccountService) WithLogger(logger *zap.Logger) *AccountService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source.
func (s *AccountService) WithClock(clock func() time.Time) *AccountService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Get returns the account with the given id. The password hash is never
// included in the returned value.
func (s *AccountService) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, fmt.Errorf("account id is required")
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	sanitized := *account
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// ChangePassword replaces the stored password hash after verifying the
// caller knows the current password and the new password satisfies the
// password policy. The current password is checked before the new one is
// validated, so a caller with a wrong current password learns nothing
// about policy compliance of the new value. Returns the change timestamp.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) (time.Time, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" || currentPassword == "" || newPassword == "" {
		return time.Time{}, ErrFieldsRequired
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return time.Time{}, ErrAccountNotFound
		}
		return time.Time{}, fmt.Errorf("lookup account: %w", err)
	}

	validCurrent, err := s.hasher.Verify(currentPassword, account.PasswordHash)
	if err != nil {
		return time.Time{}, fmt.Errorf("verify current password: %w", err)
	}
	if !validCurrent {
		return time.Time{}, ErrCurrentPasswordInvalid
	}

	if err := s.validator.Validate(newPassword); err != nil {
		var ruleErr *security.PasswordValidationError
		if errors.As(err, &ruleErr) {
			return time.Time{}, fmt.Errorf("%w: %s", ErrPasswordPolicyViolation, ruleErr.Message)
		}
		return time.Time{}, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return time.Time{}, fmt.Errorf("hash new password: %w", err)
	}

	changedAt := s.now().UTC()
	account.PasswordHash = hashed
	account.PasswordSetAt = changedAt

	if err := s.accounts.Update(ctx, *account); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return time.Time{}, ErrAccountNotFound
		}
		return time.Time{}, fmt.Errorf("update password: %w", err)
	}

	s.publishPasswordChanged(ctx, account.ID, changedAt)
	return changedAt, nil
}

func (s *AccountService) publishPasswordChanged(ctx context.Context, accountID string, changedAt time.Time) {
	if s.events == nil {
		return
	}
	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: accountID,
		ChangedAt: changedAt,
		ChangedBy: accountID,
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event failed",
			zap.String("account_id", accountID),
			zap.Error(err))
	}
}
