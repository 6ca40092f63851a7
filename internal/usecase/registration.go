package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-accounts/internal/core/domain"
	"github.com/arklim/social-platform-accounts/internal/core/port"
	"github.com/arklim/social-platform-accounts/internal/infra/security"
	"github.com/arklim/social-platform-accounts/internal/repository"
)

const defaultVerificationTTL = 24 * time.Hour

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ErrPasswordPolicyViolation indicates the password does not satisfy complexity requirements.
var ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")

// Outcome messages reported to callers. Business-rule failures surface
// through these, never through error returns.
const (
	msgEmailRequired      = "Email is required"
	msgInvalidEmail       = "Invalid email format"
	msgPasswordRequired   = "Password is required"
	msgFirstNameRequired  = "First name is required"
	msgLastNameRequired   = "Last name is required"
	msgDuplicateEmail     = "User already exists with this email"
	msgEmailSendFailed    = "User created but verification email failed"
	msgRegistered         = "User registered successfully. Please check your email for verification."
	msgTokenRequired      = "Verification token is required"
	msgTokenInvalid       = "Invalid or expired verification token"
	msgAlreadyVerified    = "Email is already verified"
	msgVerified           = "Email verified successfully"
	msgResendAcknowledged = "If the account exists and is unverified, a new verification email has been sent"
)

// RegisterInput carries the raw registration request fields.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegistrationResult reports the outcome of a registration request.
// AccountID and Token are populated only on full success.
type RegistrationResult struct {
	Success   bool
	Message   string
	Reason    OutcomeReason
	AccountID string
	Token     string
}

// VerificationResult reports the outcome of an email verification request.
type VerificationResult struct {
	Success bool
	Message string
	Reason  OutcomeReason
}

// ResendResult reports the outcome of a verification resend request.
// Token carries the freshly minted token when one was issued.
type ResendResult struct {
	Success bool
	Message string
	Reason  OutcomeReason
	Token   string
}

// RegistrationService handles new account onboarding and email verification.
type RegistrationService struct {
	accounts  port.AccountRepository
	tokens    port.TokenRepository
	notifier  port.VerificationNotifier
	hasher    port.PasswordHasher
	generator port.TokenGenerator
	validator *security.PasswordValidator
	events    port.EventPublisher
	logger    *zap.Logger

	verificationTTL time.Duration
	now             func() time.Time
}

// NewRegistrationService constructs a registration service. A nil validator
// selects the default password policy.
func NewRegistrationService(
	accounts port.AccountRepository,
	tokens port.TokenRepository,
	notifier port.VerificationNotifier,
	hasher port.PasswordHasher,
	generator port.TokenGenerator,
	validator *security.PasswordValidator,
) *RegistrationService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	return &RegistrationService{
		accounts:        accounts,
		tokens:          tokens,
		notifier:        notifier,
		hasher:          hasher,
		generator:       generator,
		validator:       validator,
		logger:          zap.NewNop(),
		verificationTTL: defaultVerificationTTL,
		now:             time.Now,
	}
}

// WithEventPublisher attaches a publisher for domain events.
func (s *RegistrationService) WithEventPublisher(events port.EventPublisher) *RegistrationService {
	s.events = events
	return s
}

// WithLogger attaches a structured logger.
func (s *RegistrationService) WithLogger(logger *zap.Logger) *RegistrationService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source.
func (s *RegistrationService) WithClock(clock func() time.Time) *RegistrationService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// WithVerificationTTL overrides the verification token lifetime.
func (s *RegistrationService) WithVerificationTTL(ttl time.Duration) *RegistrationService {
	if ttl > 0 {
		s.verificationTTL = ttl
	}
	return s
}

// Register validates the request, persists a new unverified account, and
// sends the verification token. Validation and business-rule failures are
// reported in the result; only infrastructure faults return an error.
//
// When the notifier fails the account remains persisted but the result is
// a failure. Callers retrying will hit the duplicate-email branch; resend
// verification is the recovery path.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (RegistrationResult, error) {
	if msg := validateRegistrationInput(input, s.validator); msg != "" {
		return RegistrationResult{Message: msg, Reason: ReasonInvalidInput}, nil
	}

	email := normalizeEmail(input.Email)

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return RegistrationResult{Message: msgDuplicateEmail, Reason: ReasonDuplicateEmail}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return RegistrationResult{}, fmt.Errorf("lookup account: %w", err)
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := domain.Account{
		Email:         email,
		PasswordHash:  passwordHash,
		FirstName:     strings.TrimSpace(input.FirstName),
		LastName:      strings.TrimSpace(input.LastName),
		CreatedAt:     now,
		PasswordSetAt: now,
	}

	id, err := s.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return RegistrationResult{Message: msgDuplicateEmail, Reason: ReasonDuplicateEmail}, nil
		}
		return RegistrationResult{}, fmt.Errorf("create account: %w", err)
	}
	account.ID = id

	rawToken, err := s.issueVerificationToken(ctx, id, now)
	if err != nil {
		return RegistrationResult{}, err
	}

	sent, err := s.notifier.SendVerificationEmail(ctx, email, rawToken)
	if err != nil || !sent {
		if err != nil {
			s.logger.Warn("verification email delivery failed",
				zap.String("account_id", id),
				zap.Error(err))
		}
		return RegistrationResult{Message: msgEmailSendFailed, Reason: ReasonDeliveryFailed}, nil
	}

	s.publishRegistered(ctx, account)

	return RegistrationResult{
		Success:   true,
		Message:   msgRegistered,
		AccountID: id,
		Token:     rawToken,
	}, nil
}

// VerifyEmail resolves the raw token to its account and marks the account
// verified. Verification is idempotent for already-verified accounts.
func (s *RegistrationService) VerifyEmail(ctx context.Context, rawToken string) (VerificationResult, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return VerificationResult{Message: msgTokenRequired, Reason: ReasonInvalidInput}, nil
	}

	hash := security.HashToken(rawToken)
	token, err := s.tokens.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return VerificationResult{Message: msgTokenInvalid, Reason: ReasonTokenInvalid}, nil
		}
		return VerificationResult{}, fmt.Errorf("lookup verification token: %w", err)
	}

	if token.UsedAt != nil || token.Purpose != domain.VerificationPurposeRegistration {
		return VerificationResult{Message: msgTokenInvalid, Reason: ReasonTokenInvalid}, nil
	}
	if s.now().UTC().After(token.ExpiresAt) {
		return VerificationResult{Message: msgTokenInvalid, Reason: ReasonTokenInvalid}, nil
	}

	account, err := s.accounts.GetByID(ctx, token.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return VerificationResult{Message: msgTokenInvalid, Reason: ReasonTokenInvalid}, nil
		}
		return VerificationResult{}, fmt.Errorf("lookup account: %w", err)
	}

	if account.EmailVerified {
		return VerificationResult{Success: true, Message: msgAlreadyVerified}, nil
	}

	account.EmailVerified = true
	if err := s.accounts.Update(ctx, *account); err != nil {
		return VerificationResult{}, fmt.Errorf("mark account verified: %w", err)
	}

	if err := s.tokens.Consume(ctx, token.ID); err != nil {
		return VerificationResult{}, fmt.Errorf("consume verification token: %w", err)
	}

	s.publishVerified(ctx, *account)

	return VerificationResult{Success: true, Message: msgVerified}, nil
}

// ResendVerification mints and sends a fresh token for an unverified
// account. Unknown and already-verified accounts receive the same
// acknowledgement so the endpoint does not disclose account existence.
func (s *RegistrationService) ResendVerification(ctx context.Context, email string) (ResendResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return ResendResult{Message: msgEmailRequired, Reason: ReasonInvalidInput}, nil
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ResendResult{Success: true, Message: msgResendAcknowledged}, nil
		}
		return ResendResult{}, fmt.Errorf("lookup account: %w", err)
	}
	if account.EmailVerified {
		return ResendResult{Success: true, Message: msgResendAcknowledged}, nil
	}

	rawToken, err := s.issueVerificationToken(ctx, account.ID, s.now().UTC())
	if err != nil {
		return ResendResult{}, err
	}

	sent, err := s.notifier.SendVerificationEmail(ctx, email, rawToken)
	if err != nil || !sent {
		if err != nil {
			s.logger.Warn("verification email delivery failed",
				zap.String("account_id", account.ID),
				zap.Error(err))
		}
		return ResendResult{Message: msgEmailSendFailed, Reason: ReasonDeliveryFailed}, nil
	}

	return ResendResult{Success: true, Message: msgResendAcknowledged, Token: rawToken}, nil
}

func (s *RegistrationService) issueVerificationToken(ctx context.Context, accountID string, now time.Time) (string, error) {
	rawToken, err := s.generator.Generate()
	if err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}

	token := domain.VerificationToken{
		ID:        uuid.NewString(),
		AccountID: accountID,
		TokenHash: security.HashToken(rawToken),
		Purpose:   domain.VerificationPurposeRegistration,
		CreatedAt: now,
		ExpiresAt: now.Add(s.verificationTTL),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return "", fmt.Errorf("store verification token: %w", err)
	}

	return rawToken, nil
}

func (s *RegistrationService) publishRegistered(ctx context.Context, account domain.Account) {
	if s.events == nil {
		return
	}
	event := domain.AccountRegisteredEvent{
		EventID:      uuid.NewString(),
		AccountID:    account.ID,
		Email:        account.Email,
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		RegisteredAt: account.CreatedAt,
	}
	if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
		s.logger.Warn("publish account registered event failed",
			zap.String("account_id", account.ID),
			zap.Error(err))
	}
}

func (s *RegistrationService) publishVerified(ctx context.Context, account domain.Account) {
	if s.events == nil {
		return
	}
	event := domain.EmailVerifiedEvent{
		EventID:    uuid.NewString(),
		AccountID:  account.ID,
		Email:      account.Email,
		VerifiedAt: s.now().UTC(),
	}
	if err := s.events.PublishEmailVerified(ctx, event); err != nil {
		s.logger.Warn("publish email verified event failed",
			zap.String("account_id", account.ID),
			zap.Error(err))
	}
}

// validateRegistrationInput applies the registration validation sequence
// and returns the first violation message, or "" when the input is valid.
// Order: email syntax, password policy, then names.
func validateRegistrationInput(input RegisterInput, validator *security.PasswordValidator) string {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return msgEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return msgInvalidEmail
	}

	if input.Password == "" {
		return msgPasswordRequired
	}
	if err := validator.Validate(input.Password); err != nil {
		var vErr *security.PasswordValidationError
		if errors.As(err, &vErr) {
			return vErr.Message
		}
		return err.Error()
	}

	if strings.TrimSpace(input.FirstName) == "" {
		return msgFirstNameRequired
	}
	if strings.TrimSpace(input.LastName) == "" {
		return msgLastNameRequired
	}

	return ""
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
