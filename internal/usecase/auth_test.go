package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/arklim/social-platform-accounts/internal/core/domain"
	"github.com/arklim/social-platform-accounts/internal/infra/config"
	"github.com/arklim/social-platform-accounts/internal/infra/security"
)

const correctLoginPassword = "Correct1Password"

func newTestAuthService(t *testing.T, accounts *mockAccountRepository) *AuthService {
	t.Helper()

	provider, err := security.NewEphemeralKeyProvider("test-signing")
	if err != nil {
		t.Fatalf("NewEphemeralKeyProvider failed: %v", err)
	}

	cfg := &config.AppConfig{
		App:  config.AppSettings{Name: "accounts-test", Env: "development"},
		Auth: config.AuthSettings{MaxFailedLogins: 5, LockoutDuration: 24 * time.Hour},
		JWT:  config.JWTSettings{AccessTokenTTL: time.Minute},
	}

	service, err := NewAuthService(cfg, accounts, newTestHasher(t), security.NewJWTManager(provider))
	if err != nil {
		t.Fatalf("NewAuthService failed: %v", err)
	}
	return service
}

func verifiedTestAccount(t *testing.T, id, email string) domain.Account {
	t.Helper()
	hash, err := newTestHasher(t).Hash(correctLoginPassword)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	return domain.Account{
		ID:            id,
		Email:         email,
		PasswordHash:  hash,
		FirstName:     "Test",
		LastName:      "Account",
		EmailVerified: true,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestAuthService_Login_MissingCredentials(t *testing.T) {
	accounts := &mockAccountRepository{}
	service := newTestAuthService(t, accounts)

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"missing email", "", correctLoginPassword},
		{"missing password", "a@example.com", ""},
		{"missing both", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := service.Login(context.Background(), tc.email, tc.password, LoginMetadata{})
			if err != nil {
				t.Fatalf("Login returned error: %v", err)
			}
			if result.Success {
				t.Fatalf("expected failure outcome")
			}
			if result.Message != "Email and password are required" {
				t.Fatalf("unexpected message %q", result.Message)
			}
		})
	}

	if accounts.getByEmailCalls != 0 {
		t.Fatalf("expected no lookup for missing credentials")
	}
}

func TestAuthService_Login_UnknownAccount(t *testing.T) {
	accounts := &mockAccountRepository{}
	attempts := &mockLoginAttemptRepository{}
	service := newTestAuthService(t, accounts).WithAuditRepository(attempts)

	result, err := service.Login(context.Background(), "ghost@example.com", "whatever123", LoginMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure outcome")
	}
	if result.Message != "Invalid credentials" {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if result.Reason != ReasonInvalidCredentials {
		t.Fatalf("unexpected reason %q", result.Reason)
	}

	if attempts.recordCalls != 1 {
		t.Fatalf("expected one audit record, got %d", attempts.recordCalls)
	}
	attempt := attempts.attempts[0]
	if attempt.Succeeded || attempt.Reason != "unknown_account" || attempt.AccountID != nil {
		t.Fatalf("unexpected audit record %+v", attempt)
	}
}

func TestAuthService_Login_LockCheckedBeforeVerification(t *testing.T) {
	// An account that is both locked and unverified reports the lock.
	account := verifiedTestAccount(t, "acc-1", "locked@example.com")
	account.EmailVerified = false
	expiry := time.Now().UTC().Add(time.Hour)
	account.LockoutExpiry = &expiry
	account.FailedLogins = 5

	accounts := &mockAccountRepository{
		accountsByEmail: map[string]domain.Account{account.Email: account},
	}
	service := newTestAuthService(t, accounts)

	result, err := service.Login(context.Background(), account.Email, correctLoginPassword, LoginMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Message != "Account is temporarily locked due to too many failed attempts" {
		t.Fatalf("expected lock message, got %q", result.Message)
	}
	if result.Reason != ReasonAccountLocked {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
	if accounts.updateCalls != 0 {
		t.Fatalf("expected no account mutation while locked")
	}
}

func TestAuthService_Login_UnverifiedEmail(t *testing.T) {
	account := verifiedTestAccount(t, "acc-1", "pending@example.com")
	account.EmailVerified = false

	accounts := &mockAccountRepository{
		accountsByEmail: map[string]domain.Account{account.Email: account},
	}
	service := newTestAuthService(t, accounts)

	result, err := service.Login(context.Background(), account.Email, correctLoginPassword, LoginMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure outcome")
	}
	if result.Message != "Please verify your email before logging in" {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if result.Reason != ReasonEmailNotVerified {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
	if accounts.updateCalls != 0 {
		t.Fatalf("expected counter untouched for unverified login")
	}
}

func TestAuthService_Login_WrongPasswordIncrementsCounter(t *testing.T) {
	account := verifiedTestAccount(t, "acc-1", "alice@example.com")
	accounts := &mockAccountRepository{
		accountsByEmail: map[string]domain.Account{account.Email: account},
	}
	attempts := &mockLoginAttemptRepository{}
	publisher := &mockEventPublisher{}
	service := newTestAuthService(t, accounts).
		WithAuditRepository(attempts).
		WithEventPublisher(publisher)

	result, err := service.Login(context.Background(), account.Email, "Wrong1Password", LoginMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Success || result.Message != "Invalid credentials" {
		t.Fatalf("expected invalid credentials, got %+v", result)
	}

	if accounts.updateCalls != 1 {
		t.Fatalf("expected failure to be persisted, updateCalls=%d", accounts.updateCalls)
	}
	if accounts.updatedAccount.FailedLogins != 1 {
		t.Fatalf("expected counter 1, got %d", accounts.updatedAccount.FailedLogins)
	}
	if accounts.updatedAccount.LockoutExpiry != nil {
		t.Fatalf("expected no lockout below threshold")
	}
	if publisher.loginFailedCalls != 1 || publisher.lockedCalls != 0 {
		t.Fatalf("expected only a login failed event, failed=%d locked=%d", publisher.loginFailedCalls, publisher.lockedCalls)
	}
	if attempts.recordCalls != 1 || attempts.attempts[0].Reason != "invalid_password" {
		t.Fatalf("expected invalid_password audit record")
	}
}

func TestAuthService_Login_LockoutAfterMaxFailures(t *testing.T) {
	account := verifiedTestAccount(t, "acc-1", "alice@example.com")
	account.FailedLogins = 4

	accounts := &mockAccountRepository{
		accountsByEmail: map[string]domain.Account{account.Email: account},
	}
	publisher := &mockEventPublisher{}
	fixedNow := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service := newTestAuthService(t, accounts).
		WithEventPublisher(publisher).
		WithClock(func() time.Time { return fixedNow })

	result, err := service.Login(context.Background(), account.Email, "Wrong1Password", LoginMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Message != "Invalid credentials" {
		t.Fatalf("expected invalid credentials on the locking attempt, got %q", result.Message)
	}

	updated := accounts.updatedAccount
	if updated.FailedLogins != 5 {
		t.Fatalf("expected counter 5, got %d", updated.FailedLogins)
	}
	if updated.LockoutExpiry == nil || !updated.LockoutExpiry.Equal(fixedNow.Add(24*time.Hour)) {
		t.Fatalf("expected lockout until %v, got %v", fixedNow.Add(24*time.Hour), updated.LockoutExpiry)
	}
	if publisher.lockedCalls != 1 {
		t.Fatalf("expected account locked event, got %d", publisher.lockedCalls)
	}
	if publisher.lockedEvent.FailedLogins != 5 {
		t.Fatalf("unexpected locked event payload %+v", publisher.lockedEvent)
	}

	// The correct password is rejected while the lock holds.
	result, err = service.Login(context.Background(), account.Email, correctLoginPassword, LoginMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected locked account to reject correct password")
	}
	if result.Message != "Account is temporarily locked due to too many failed attempts" {
		t.Fatalf("unexpected message %q", result.Message)
	}
}

func TestAuthService_Login_SuccessResetsCounter(t *testing.T) {
	account := verifiedTestAccount(t, "acc-1", "alice@example.com")
	account.FailedLogins = 3
	pastExpiry := time.Now().UTC().Add(-time.Hour)
	account.LockoutExpiry = &pastExpiry

	accounts := &mockAccountRepository{
		accountsByEmail: map[string]domain.Account{account.Email: account},
	}
	attempts := &mockLoginAttemptRepository{}
	publisher := &mockEventPublisher{}
	service := newTestAuthService(t, accounts).
		WithAuditRepository(attempts).
		WithEventPublisher(publisher)

	result, err := service.Login(context.Background(), "Alice@Example.com", correctLoginPassword, LoginMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if !result.Success || result.Message != "Login successful" {
		t.Fatalf("expected successful login, got %+v", result)
	}

	if accounts.updateCalls != 1 {
		t.Fatalf("expected reset to be persisted, updateCalls=%d", accounts.updateCalls)
	}
	if accounts.updatedAccount.FailedLogins != 0 || accounts.updatedAccount.LockoutExpiry != nil {
		t.Fatalf("expected counter reset and lock cleared, got %+v", accounts.updatedAccount)
	}
	if accounts.updatedAccount.LastLogin == nil {
		t.Fatalf("expected last login to be stamped")
	}

	if result.Account == nil || result.Account.PasswordHash != "" {
		t.Fatalf("expected sanitized account in result")
	}
	if result.Account.ID != "acc-1" {
		t.Fatalf("expected account acc-1, got %q", result.Account.ID)
	}

	if publisher.loginSucceededCalls != 1 {
		t.Fatalf("expected login succeeded event")
	}
	if attempts.recordCalls != 1 || !attempts.attempts[0].Succeeded {
		t.Fatalf("expected successful audit record")
	}
}

func TestAuthService_Login_SuccessStampsLastLogin(t *testing.T) {
	account := verifiedTestAccount(t, "acc-1", "alice@example.com")
	accounts := &mockAccountRepository{
		accountsByEmail: map[string]domain.Account{account.Email: account},
	}
	fixedNow := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service := newTestAuthService(t, accounts).WithClock(func() time.Time { return fixedNow })

	result, err := service.Login(context.Background(), account.Email, correctLoginPassword, LoginMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if accounts.updateCalls != 1 {
		t.Fatalf("expected last login write, got %d", accounts.updateCalls)
	}
	if accounts.updatedAccount.LastLogin == nil || !accounts.updatedAccount.LastLogin.Equal(fixedNow) {
		t.Fatalf("expected last login %v, got %v", fixedNow, accounts.updatedAccount.LastLogin)
	}
	if result.Account.LastLogin == nil || !result.Account.LastLogin.Equal(fixedNow) {
		t.Fatalf("expected result account to carry last login")
	}
}

func TestAuthService_Login_AuditCarriesRequestContext(t *testing.T) {
	accounts := &mockAccountRepository{}
	attempts := &mockLoginAttemptRepository{}
	service := newTestAuthService(t, accounts).WithAuditRepository(attempts)

	ip := "203.0.113.7"
	agent := "test-client/1.0"
	if _, err := service.Login(context.Background(), "ghost@example.com", "whatever123", LoginMetadata{IP: &ip, UserAgent: &agent}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if attempts.recordCalls != 1 {
		t.Fatalf("expected audit record")
	}
	attempt := attempts.attempts[0]
	if attempt.IP == nil || *attempt.IP != ip {
		t.Fatalf("expected audit IP %q", ip)
	}
	if attempt.UserAgent == nil || *attempt.UserAgent != agent {
		t.Fatalf("expected audit user agent %q", agent)
	}
	if attempt.Email != "ghost@example.com" {
		t.Fatalf("expected audit email, got %q", attempt.Email)
	}
}

func TestAuthService_AccessTokenRoundTrip(t *testing.T) {
	service := newTestAuthService(t, &mockAccountRepository{})

	account := domain.Account{ID: "acc-1", Email: "alice@example.com"}
	token, err := service.IssueAccessToken(account)
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected signed token")
	}

	claims, err := service.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken returned error: %v", err)
	}
	if claims.AccountID != account.ID {
		t.Fatalf("expected account id %q, got %q", account.ID, claims.AccountID)
	}
	if claims.Subject != account.ID {
		t.Fatalf("expected subject %q, got %q", account.ID, claims.Subject)
	}
	if claims.Issuer != "accounts-test" {
		t.Fatalf("expected issuer accounts-test, got %q", claims.Issuer)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "accounts-test" {
		t.Fatalf("expected audience accounts-test, got %v", claims.Audience)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be set")
	}
}

func TestAuthService_IssueAccessToken_RequiresID(t *testing.T) {
	service := newTestAuthService(t, &mockAccountRepository{})

	if _, err := service.IssueAccessToken(domain.Account{Email: "no-id@example.com"}); err == nil {
		t.Fatalf("expected error for account without id")
	}
}

func TestAuthService_ParseAccessToken_Errors(t *testing.T) {
	service := newTestAuthService(t, &mockAccountRepository{})

	if _, err := service.ParseAccessToken("  "); err == nil {
		t.Fatalf("expected error for empty token")
	}

	if _, err := service.ParseAccessToken("not-a-jwt"); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken, got %v", err)
	}

	// A token issued in the past beyond its TTL is reported as expired.
	expiredService := newTestAuthService(t, &mockAccountRepository{}).
		WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	expiredToken, err := expiredService.IssueAccessToken(domain.Account{ID: "acc-1"})
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}
	if _, err := expiredService.ParseAccessToken(expiredToken); !errors.Is(err, ErrExpiredAccessToken) {
		t.Fatalf("expected ErrExpiredAccessToken, got %v", err)
	}

	// A token signed by a different key set is rejected.
	otherService := newTestAuthService(t, &mockAccountRepository{})
	foreignToken, err := otherService.IssueAccessToken(domain.Account{ID: "acc-1"})
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}
	if _, err := service.ParseAccessToken(foreignToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken for foreign token, got %v", err)
	}
}

func TestAuthService_Login_VerifyFaultSurfacesAsError(t *testing.T) {
	account := verifiedTestAccount(t, "acc-1", "alice@example.com")
	account.PasswordHash = "argon2id$v=19$broken"

	accounts := &mockAccountRepository{
		accountsByEmail: map[string]domain.Account{account.Email: account},
	}
	service := newTestAuthService(t, accounts)

	if _, err := service.Login(context.Background(), account.Email, correctLoginPassword, LoginMetadata{}); err == nil || !strings.Contains(err.Error(), "verify password") {
		t.Fatalf("expected verify password fault, got %v", err)
	}
}
