package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/arklim/social-platform-accounts/internal/core/domain"
	"github.com/arklim/social-platform-accounts/internal/infra/security"
	"github.com/arklim/social-platform-accounts/internal/repository"
)

const strongRegistrationPassword = "Sup3rSecurePass"

type mockAccountRepository struct {
	createErr      error
	createCalls    int
	createdAccount domain.Account
	createID       string

	accountsByEmail map[string]domain.Account
	getByEmailErr   error
	getByEmailCalls int
	getByEmailLast  string

	accountsByID map[string]domain.Account
	getByIDErr   error
	getByIDCalls int
	getByIDLast  string

	updateErr      error
	updateCalls    int
	updatedAccount domain.Account
}

func (m *mockAccountRepository) Create(_ context.Context, account domain.Account) (string, error) {
	m.createCalls++
	m.createdAccount = account
	if m.createErr != nil {
		return "", m.createErr
	}
	if m.createID == "" {
		m.createID = "acc-1"
	}
	return m.createID, nil
}

func (m *mockAccountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.getByEmailCalls++
	m.getByEmailLast = email
	if m.getByEmailErr != nil {
		return nil, m.getByEmailErr
	}
	if account, ok := m.accountsByEmail[email]; ok {
		copy := account
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockAccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.getByIDCalls++
	m.getByIDLast = id
	if m.getByIDErr != nil {
		return nil, m.getByIDErr
	}
	if account, ok := m.accountsByID[id]; ok {
		copy := account
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockAccountRepository) Update(_ context.Context, account domain.Account) error {
	m.updateCalls++
	m.updatedAccount = account
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.accountsByEmail != nil {
		if _, ok := m.accountsByEmail[account.Email]; ok {
			m.accountsByEmail[account.Email] = account
		}
	}
	if m.accountsByID != nil {
		if _, ok := m.accountsByID[account.ID]; ok {
			m.accountsByID[account.ID] = account
		}
	}
	return nil
}

type mockTokenRepository struct {
	createVerificationErr error
	createCalls           int
	createdToken          domain.VerificationToken

	getVerificationResult   *domain.VerificationToken
	getVerificationErr      error
	getVerificationCalls    int
	getVerificationLastHash string

	consumeVerificationErr    error
	consumeVerificationCalls  int
	consumeVerificationLastID string
}

func (m *mockTokenRepository) Create(_ context.Context, token domain.VerificationToken) error {
	m.createCalls++
	m.createdToken = token
	return m.createVerificationErr
}

func (m *mockTokenRepository) GetByHash(_ context.Context, hash string) (*domain.VerificationToken, error) {
	m.getVerificationCalls++
	m.getVerificationLastHash = hash
	if m.getVerificationResult != nil {
		copy := *m.getVerificationResult
		return &copy, m.getVerificationErr
	}
	return nil, m.getVerificationErr
}

func (m *mockTokenRepository) Consume(_ context.Context, id string) error {
	m.consumeVerificationCalls++
	m.consumeVerificationLastID = id
	return m.consumeVerificationErr
}

type mockNotifier struct {
	sendCalls int
	lastEmail string
	lastToken string
	sendErr   error
	declined  bool
}

func (m *mockNotifier) SendVerificationEmail(_ context.Context, email, token string) (bool, error) {
	m.sendCalls++
	m.lastEmail = email
	m.lastToken = token
	if m.sendErr != nil {
		return false, m.sendErr
	}
	return !m.declined, nil
}

type mockEventPublisher struct {
	err error

	registeredCalls int
	registeredEvent domain.AccountRegisteredEvent

	verifiedCalls int
	verifiedEvent domain.EmailVerifiedEvent

	passwordChangedCalls int
	passwordChangedEvent domain.PasswordChangedEvent

	lockedCalls int
	lockedEvent domain.AccountLockedEvent

	loginSucceededCalls int
	loginSucceededEvent domain.LoginSucceededEvent

	loginFailedCalls int
	loginFailedEvent domain.LoginFailedEvent
}

func (m *mockEventPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	m.registeredCalls++
	m.registeredEvent = event
	return m.err
}

func (m *mockEventPublisher) PublishEmailVerified(_ context.Context, event domain.EmailVerifiedEvent) error {
	m.verifiedCalls++
	m.verifiedEvent = event
	return m.err
}

func (m *mockEventPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	m.passwordChangedCalls++
	m.passwordChangedEvent = event
	return m.err
}

func (m *mockEventPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	m.lockedCalls++
	m.lockedEvent = event
	return m.err
}

func (m *mockEventPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	m.loginSucceededCalls++
	m.loginSucceededEvent = event
	return m.err
}

func (m *mockEventPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	m.loginFailedCalls++
	m.loginFailedEvent = event
	return m.err
}

type mockLoginAttemptRepository struct {
	recordErr   error
	recordCalls int
	attempts    []domain.LoginAttempt
}

func (m *mockLoginAttemptRepository) Record(_ context.Context, attempt domain.LoginAttempt) error {
	m.recordCalls++
	m.attempts = append(m.attempts, attempt)
	return m.recordErr
}

// newTestHasher returns an Argon2 hasher with the cheapest accepted
// parameters so hashing does not dominate test runtime.
func newTestHasher(t *testing.T) *security.Argon2Hasher {
	t.Helper()
	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  8,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewArgon2Hasher failed: %v", err)
	}
	return hasher
}

func newTestRegistrationService(t *testing.T, accounts *mockAccountRepository, tokens *mockTokenRepository, notifier *mockNotifier) *RegistrationService {
	t.Helper()
	return NewRegistrationService(accounts, tokens, notifier, newTestHasher(t), security.NewSecureTokenSource(32), nil)
}

func TestRegistrationService_Register_Success(t *testing.T) {
	accounts := &mockAccountRepository{}
	tokens := &mockTokenRepository{}
	notifier := &mockNotifier{}
	publisher := &mockEventPublisher{}

	fixedNow := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service := newTestRegistrationService(t, accounts, tokens, notifier).
		WithEventPublisher(publisher).
		WithClock(func() time.Time { return fixedNow })

	result, err := service.Register(context.Background(), RegisterInput{
		Email:     "  Alice@Example.COM ",
		Password:  strongRegistrationPassword,
		FirstName: "Alice",
		LastName:  "Smith",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if !result.Success {
		t.Fatalf("expected success, got message %q", result.Message)
	}
	if result.Message != "User registered successfully. Please check your email for verification." {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if result.AccountID != "acc-1" {
		t.Fatalf("expected account id acc-1, got %q", result.AccountID)
	}
	if result.Token == "" {
		t.Fatalf("expected verification token in result")
	}

	if accounts.createCalls != 1 {
		t.Fatalf("expected Create to be called once, got %d", accounts.createCalls)
	}

	created := accounts.createdAccount
	if created.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", created.Email)
	}
	if created.EmailVerified {
		t.Fatalf("expected new account to be unverified")
	}
	if created.FailedLogins != 0 || created.LockoutExpiry != nil {
		t.Fatalf("expected fresh lockout state, got count=%d expiry=%v", created.FailedLogins, created.LockoutExpiry)
	}
	if created.CreatedAt != fixedNow {
		t.Fatalf("expected created_at %v, got %v", fixedNow, created.CreatedAt)
	}
	if created.PasswordHash == "" || created.PasswordHash == strongRegistrationPassword {
		t.Fatalf("expected password to be stored hashed")
	}
	if ok, err := newTestHasher(t).Verify(strongRegistrationPassword, created.PasswordHash); err != nil || !ok {
		t.Fatalf("expected stored hash to verify original password, ok=%v err=%v", ok, err)
	}

	if tokens.createCalls != 1 {
		t.Fatalf("expected Create to be called once, got %d", tokens.createCalls)
	}
	if tokens.createdToken.AccountID != "acc-1" {
		t.Fatalf("expected token bound to acc-1, got %q", tokens.createdToken.AccountID)
	}
	if tokens.createdToken.TokenHash != security.HashToken(result.Token) {
		t.Fatalf("expected stored token hash to match issued token")
	}
	if tokens.createdToken.Purpose != domain.VerificationPurposeRegistration {
		t.Fatalf("expected registration purpose, got %q", tokens.createdToken.Purpose)
	}
	if got := tokens.createdToken.ExpiresAt; got != fixedNow.Add(24*time.Hour) {
		t.Fatalf("expected 24h expiry, got %v", got)
	}

	if notifier.sendCalls != 1 {
		t.Fatalf("expected one verification email, got %d", notifier.sendCalls)
	}
	if notifier.lastEmail != "alice@example.com" || notifier.lastToken != result.Token {
		t.Fatalf("expected email to carry the issued token, got email=%q", notifier.lastEmail)
	}

	if publisher.registeredCalls != 1 {
		t.Fatalf("expected registered event, got %d", publisher.registeredCalls)
	}
	if publisher.registeredEvent.AccountID != "acc-1" || publisher.registeredEvent.Email != "alice@example.com" {
		t.Fatalf("unexpected event payload: %+v", publisher.registeredEvent)
	}
}

func TestRegistrationService_Register_ValidationMessages(t *testing.T) {
	cases := []struct {
		name    string
		input   RegisterInput
		message string
	}{
		{
			name:    "missing email",
			input:   RegisterInput{Password: strongRegistrationPassword, FirstName: "A", LastName: "B"},
			message: "Email is required",
		},
		{
			name:    "invalid email",
			input:   RegisterInput{Email: "not-an-email", Password: strongRegistrationPassword, FirstName: "A", LastName: "B"},
			message: "Invalid email format",
		},
		{
			name:    "missing password",
			input:   RegisterInput{Email: "a@example.com", FirstName: "A", LastName: "B"},
			message: "Password is required",
		},
		{
			name:    "short password",
			input:   RegisterInput{Email: "a@example.com", Password: "Ab1", FirstName: "A", LastName: "B"},
			message: "Password must be at least 8 characters long",
		},
		{
			name:    "missing uppercase",
			input:   RegisterInput{Email: "a@example.com", Password: "password1", FirstName: "A", LastName: "B"},
			message: "Password must contain at least one uppercase letter",
		},
		{
			name:    "missing lowercase",
			input:   RegisterInput{Email: "a@example.com", Password: "PASSWORD1", FirstName: "A", LastName: "B"},
			message: "Password must contain at least one lowercase letter",
		},
		{
			name:    "missing digit",
			input:   RegisterInput{Email: "a@example.com", Password: "Password", FirstName: "A", LastName: "B"},
			message: "Password must contain at least one number",
		},
		{
			name:    "missing first name",
			input:   RegisterInput{Email: "a@example.com", Password: strongRegistrationPassword, LastName: "B"},
			message: "First name is required",
		},
		{
			name:    "missing last name",
			input:   RegisterInput{Email: "a@example.com", Password: strongRegistrationPassword, FirstName: "A"},
			message: "Last name is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			accounts := &mockAccountRepository{}
			tokens := &mockTokenRepository{}
			notifier := &mockNotifier{}
			service := newTestRegistrationService(t, accounts, tokens, notifier)

			result, err := service.Register(context.Background(), tc.input)
			if err != nil {
				t.Fatalf("Register returned error: %v", err)
			}
			if result.Success {
				t.Fatalf("expected failure outcome")
			}
			if result.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, result.Message)
			}
			if accounts.createCalls != 0 || tokens.createCalls != 0 || notifier.sendCalls != 0 {
				t.Fatalf("expected no side effects on validation failure")
			}
		})
	}
}

func TestRegistrationService_Register_ValidationOrder(t *testing.T) {
	service := newTestRegistrationService(t, &mockAccountRepository{}, &mockTokenRepository{}, &mockNotifier{})

	// Email syntax is checked before password policy.
	result, err := service.Register(context.Background(), RegisterInput{Email: "nope", Password: "short"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if result.Message != "Invalid email format" {
		t.Fatalf("expected email error first, got %q", result.Message)
	}

	// Password policy is checked before names.
	result, err = service.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "short"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if result.Message != "Password must be at least 8 characters long" {
		t.Fatalf("expected password error before name error, got %q", result.Message)
	}
}

func TestRegistrationService_Register_DuplicateEmail(t *testing.T) {
	accounts := &mockAccountRepository{
		accountsByEmail: map[string]domain.Account{
			"taken@example.com": {ID: "acc-9", Email: "taken@example.com"},
		},
	}
	tokens := &mockTokenRepository{}
	notifier := &mockNotifier{}
	service := newTestRegistrationService(t, accounts, tokens, notifier)

	result, err := service.Register(context.Background(), RegisterInput{
		Email:     "Taken@Example.com",
		Password:  strongRegistrationPassword,
		FirstName: "A",
		LastName:  "B",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected duplicate to fail")
	}
	if result.Message != "User already exists with this email" {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if result.Reason != ReasonDuplicateEmail {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
	if accounts.createCalls != 0 || tokens.createCalls != 0 || notifier.sendCalls != 0 {
		t.Fatalf("expected no side effects for duplicate email")
	}
}

func TestRegistrationService_Register_DuplicateOnCreate(t *testing.T) {
	accounts := &mockAccountRepository{createErr: repository.ErrDuplicate}
	service := newTestRegistrationService(t, accounts, &mockTokenRepository{}, &mockNotifier{})

	result, err := service.Register(context.Background(), RegisterInput{
		Email:     "race@example.com",
		Password:  strongRegistrationPassword,
		FirstName: "A",
		LastName:  "B",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if result.Success || result.Message != "User already exists with this email" {
		t.Fatalf("expected duplicate outcome, got %+v", result)
	}
}

func TestRegistrationService_Register_NotifierFailure(t *testing.T) {
	cases := []struct {
		name     string
		notifier *mockNotifier
	}{
		{"send error", &mockNotifier{sendErr: errors.New("smtp down")}},
		{"send declined", &mockNotifier{declined: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			accounts := &mockAccountRepository{}
			tokens := &mockTokenRepository{}
			publisher := &mockEventPublisher{}
			service := newTestRegistrationService(t, accounts, tokens, tc.notifier).
				WithEventPublisher(publisher)

			result, err := service.Register(context.Background(), RegisterInput{
				Email:     "carol@example.com",
				Password:  strongRegistrationPassword,
				FirstName: "Carol",
				LastName:  "Jones",
			})
			if err != nil {
				t.Fatalf("expected outcome failure, not error, got %v", err)
			}
			if result.Success {
				t.Fatalf("expected failure outcome when email delivery fails")
			}
			if result.Message != "User created but verification email failed" {
				t.Fatalf("unexpected message %q", result.Message)
			}
			if result.Reason != ReasonDeliveryFailed {
				t.Fatalf("unexpected reason %q", result.Reason)
			}

			// The account and token stay persisted; only the outcome fails.
			if accounts.createCalls != 1 {
				t.Fatalf("expected account to be persisted, createCalls=%d", accounts.createCalls)
			}
			if tokens.createCalls != 1 {
				t.Fatalf("expected verification token to be persisted, createCalls=%d", tokens.createCalls)
			}
			if publisher.registeredCalls != 0 {
				t.Fatalf("expected no registered event on delivery failure")
			}
		})
	}
}

func TestRegistrationService_Register_LookupError(t *testing.T) {
	accounts := &mockAccountRepository{getByEmailErr: errors.New("db down")}
	service := newTestRegistrationService(t, accounts, &mockTokenRepository{}, &mockNotifier{})

	if _, err := service.Register(context.Background(), RegisterInput{
		Email:     "a@example.com",
		Password:  strongRegistrationPassword,
		FirstName: "A",
		LastName:  "B",
	}); err == nil || !strings.Contains(err.Error(), "lookup account") {
		t.Fatalf("expected lookup account error, got %v", err)
	}
}

func TestRegistrationService_Register_EventFailureDoesNotBlock(t *testing.T) {
	accounts := &mockAccountRepository{}
	publisher := &mockEventPublisher{err: errors.New("kafka down")}
	service := newTestRegistrationService(t, accounts, &mockTokenRepository{}, &mockNotifier{}).
		WithEventPublisher(publisher)

	result, err := service.Register(context.Background(), RegisterInput{
		Email:     "dave@example.com",
		Password:  strongRegistrationPassword,
		FirstName: "Dave",
		LastName:  "Miller",
	})
	if err != nil {
		t.Fatalf("expected registration to succeed despite event failure, got %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got message %q", result.Message)
	}
	if publisher.registeredCalls != 1 {
		t.Fatalf("expected publisher to be invoked even on failure")
	}
}

func TestRegistrationService_VerifyEmail_Success(t *testing.T) {
	rawToken := "raw-verification-token"
	tokens := &mockTokenRepository{
		getVerificationResult: &domain.VerificationToken{
			ID:        "tok-1",
			AccountID: "acc-1",
			TokenHash: security.HashToken(rawToken),
			Purpose:   domain.VerificationPurposeRegistration,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	accounts := &mockAccountRepository{
		accountsByID: map[string]domain.Account{
			"acc-1": {ID: "acc-1", Email: "alice@example.com"},
		},
	}
	publisher := &mockEventPublisher{}
	service := newTestRegistrationService(t, accounts, tokens, &mockNotifier{}).
		WithEventPublisher(publisher)

	result, err := service.VerifyEmail(context.Background(), rawToken)
	if err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}
	if !result.Success || result.Message != "Email verified successfully" {
		t.Fatalf("unexpected result %+v", result)
	}

	if tokens.getVerificationLastHash != security.HashToken(rawToken) {
		t.Fatalf("expected lookup by token hash")
	}
	if accounts.updateCalls != 1 || !accounts.updatedAccount.EmailVerified {
		t.Fatalf("expected account to be marked verified")
	}
	if tokens.consumeVerificationCalls != 1 || tokens.consumeVerificationLastID != "tok-1" {
		t.Fatalf("expected token tok-1 to be consumed")
	}
	if publisher.verifiedCalls != 1 || publisher.verifiedEvent.AccountID != "acc-1" {
		t.Fatalf("expected verified event for acc-1")
	}
}

func TestRegistrationService_VerifyEmail_AlreadyVerified(t *testing.T) {
	rawToken := "raw-verification-token"
	tokens := &mockTokenRepository{
		getVerificationResult: &domain.VerificationToken{
			ID:        "tok-1",
			AccountID: "acc-1",
			TokenHash: security.HashToken(rawToken),
			Purpose:   domain.VerificationPurposeRegistration,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	accounts := &mockAccountRepository{
		accountsByID: map[string]domain.Account{
			"acc-1": {ID: "acc-1", Email: "alice@example.com", EmailVerified: true},
		},
	}
	service := newTestRegistrationService(t, accounts, tokens, &mockNotifier{})

	result, err := service.VerifyEmail(context.Background(), rawToken)
	if err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}
	if !result.Success || result.Message != "Email is already verified" {
		t.Fatalf("expected idempotent success, got %+v", result)
	}
	if accounts.updateCalls != 0 {
		t.Fatalf("expected no update for already verified account")
	}
	if tokens.consumeVerificationCalls != 0 {
		t.Fatalf("expected token to stay unconsumed for already verified account")
	}
}

func TestRegistrationService_VerifyEmail_InvalidToken(t *testing.T) {
	rawToken := "raw-verification-token"
	future := time.Now().Add(time.Hour)

	cases := []struct {
		name    string
		token   string
		repo    *mockTokenRepository
		message string
	}{
		{
			name:    "missing token",
			token:   "   ",
			repo:    &mockTokenRepository{},
			message: "Verification token is required",
		},
		{
			name:    "unknown token",
			token:   rawToken,
			repo:    &mockTokenRepository{getVerificationErr: repository.ErrNotFound},
			message: "Invalid or expired verification token",
		},
		{
			name:  "expired token",
			token: rawToken,
			repo: &mockTokenRepository{getVerificationResult: &domain.VerificationToken{
				ID:        "tok-1",
				AccountID: "acc-1",
				TokenHash: security.HashToken(rawToken),
				Purpose:   domain.VerificationPurposeRegistration,
				ExpiresAt: time.Now().Add(-time.Minute),
			}},
			message: "Invalid or expired verification token",
		},
		{
			name:  "already used",
			token: rawToken,
			repo: &mockTokenRepository{getVerificationResult: &domain.VerificationToken{
				ID:        "tok-1",
				AccountID: "acc-1",
				TokenHash: security.HashToken(rawToken),
				Purpose:   domain.VerificationPurposeRegistration,
				ExpiresAt: future,
				UsedAt:    ptrTime(time.Now()),
			}},
			message: "Invalid or expired verification token",
		},
		{
			name:  "wrong purpose",
			token: rawToken,
			repo: &mockTokenRepository{getVerificationResult: &domain.VerificationToken{
				ID:        "tok-1",
				AccountID: "acc-1",
				TokenHash: security.HashToken(rawToken),
				Purpose:   "password_reset",
				ExpiresAt: future,
			}},
			message: "Invalid or expired verification token",
		},
		{
			name:  "account gone",
			token: rawToken,
			repo: &mockTokenRepository{getVerificationResult: &domain.VerificationToken{
				ID:        "tok-1",
				AccountID: "acc-missing",
				TokenHash: security.HashToken(rawToken),
				Purpose:   domain.VerificationPurposeRegistration,
				ExpiresAt: future,
			}},
			message: "Invalid or expired verification token",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			accounts := &mockAccountRepository{}
			service := newTestRegistrationService(t, accounts, tc.repo, &mockNotifier{})

			result, err := service.VerifyEmail(context.Background(), tc.token)
			if err != nil {
				t.Fatalf("VerifyEmail returned error: %v", err)
			}
			if result.Success {
				t.Fatalf("expected failure outcome")
			}
			if result.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, result.Message)
			}
			if accounts.updateCalls != 0 {
				t.Fatalf("expected no account mutation")
			}
		})
	}
}

func TestRegistrationService_VerifyEmail_ConsumeError(t *testing.T) {
	rawToken := "raw-verification-token"
	tokens := &mockTokenRepository{
		getVerificationResult: &domain.VerificationToken{
			ID:        "tok-1",
			AccountID: "acc-1",
			TokenHash: security.HashToken(rawToken),
			Purpose:   domain.VerificationPurposeRegistration,
			ExpiresAt: time.Now().Add(time.Hour),
		},
		consumeVerificationErr: errors.New("db down"),
	}
	accounts := &mockAccountRepository{
		accountsByID: map[string]domain.Account{
			"acc-1": {ID: "acc-1", Email: "alice@example.com"},
		},
	}
	service := newTestRegistrationService(t, accounts, tokens, &mockNotifier{})

	if _, err := service.VerifyEmail(context.Background(), rawToken); err == nil || !strings.Contains(err.Error(), "consume verification token") {
		t.Fatalf("expected consume verification token error, got %v", err)
	}
}

func TestRegistrationService_ResendVerification(t *testing.T) {
	t.Run("unknown account acknowledged without send", func(t *testing.T) {
		notifier := &mockNotifier{}
		service := newTestRegistrationService(t, &mockAccountRepository{}, &mockTokenRepository{}, notifier)

		result, err := service.ResendVerification(context.Background(), "ghost@example.com")
		if err != nil {
			t.Fatalf("ResendVerification returned error: %v", err)
		}
		if !result.Success || result.Token != "" {
			t.Fatalf("expected acknowledgement without token, got %+v", result)
		}
		if notifier.sendCalls != 0 {
			t.Fatalf("expected no email for unknown account")
		}
	})

	t.Run("verified account acknowledged without send", func(t *testing.T) {
		accounts := &mockAccountRepository{
			accountsByEmail: map[string]domain.Account{
				"done@example.com": {ID: "acc-1", Email: "done@example.com", EmailVerified: true},
			},
		}
		notifier := &mockNotifier{}
		tokens := &mockTokenRepository{}
		service := newTestRegistrationService(t, accounts, tokens, notifier)

		result, err := service.ResendVerification(context.Background(), "done@example.com")
		if err != nil {
			t.Fatalf("ResendVerification returned error: %v", err)
		}
		if !result.Success {
			t.Fatalf("expected acknowledgement, got %+v", result)
		}
		if tokens.createCalls != 0 || notifier.sendCalls != 0 {
			t.Fatalf("expected no token or email for verified account")
		}
	})

	t.Run("unverified account gets fresh token", func(t *testing.T) {
		accounts := &mockAccountRepository{
			accountsByEmail: map[string]domain.Account{
				"bob@example.com": {ID: "acc-2", Email: "bob@example.com"},
			},
		}
		notifier := &mockNotifier{}
		tokens := &mockTokenRepository{}
		service := newTestRegistrationService(t, accounts, tokens, notifier)

		result, err := service.ResendVerification(context.Background(), "Bob@Example.com")
		if err != nil {
			t.Fatalf("ResendVerification returned error: %v", err)
		}
		if !result.Success || result.Token == "" {
			t.Fatalf("expected fresh token, got %+v", result)
		}
		if tokens.createCalls != 1 || tokens.createdToken.AccountID != "acc-2" {
			t.Fatalf("expected token stored for acc-2")
		}
		if notifier.sendCalls != 1 || notifier.lastToken != result.Token {
			t.Fatalf("expected email carrying the new token")
		}
	})

	t.Run("delivery failure reported", func(t *testing.T) {
		accounts := &mockAccountRepository{
			accountsByEmail: map[string]domain.Account{
				"bob@example.com": {ID: "acc-2", Email: "bob@example.com"},
			},
		}
		notifier := &mockNotifier{sendErr: errors.New("smtp down")}
		service := newTestRegistrationService(t, accounts, &mockTokenRepository{}, notifier)

		result, err := service.ResendVerification(context.Background(), "bob@example.com")
		if err != nil {
			t.Fatalf("ResendVerification returned error: %v", err)
		}
		if result.Success || result.Message != "User created but verification email failed" {
			t.Fatalf("expected delivery failure outcome, got %+v", result)
		}
	})
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
