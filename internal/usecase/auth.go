package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-accounts/internal/core/domain"
	"github.com/arklim/social-platform-accounts/internal/core/port"
	"github.com/arklim/social-platform-accounts/internal/infra/config"
	"github.com/arklim/social-platform-accounts/internal/infra/security"
	"github.com/arklim/social-platform-accounts/internal/repository"
)

const (
	defaultMaxFailedLogins = 5
	defaultLockoutDuration = 24 * time.Hour
	defaultAccessTokenTTL  = 15 * time.Minute
)

var (
	// ErrInvalidAccessToken indicates the provided access token is malformed or signature validation failed.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the provided access token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
)

// Login outcome messages. Unknown accounts and wrong passwords share the
// same generic message so the endpoint does not disclose account existence.
const (
	msgCredentialsRequired = "Email and password are required"
	msgInvalidCredentials  = "Invalid credentials"
	msgAccountLocked       = "Account is temporarily locked due to too many failed attempts"
	msgEmailNotVerified    = "Please verify your email before logging in"
	msgLoginSuccessful     = "Login successful"
)

// Audit reasons recorded per login decision.
const (
	attemptReasonUnknownAccount = "unknown_account"
	attemptReasonLocked         = "account_locked"
	attemptReasonUnverified     = "email_not_verified"
	attemptReasonBadPassword    = "invalid_password"
	attemptReasonSuccess        = "success"
)

// LoginResult reports the outcome of a login request. Account is populated
// only on success and never carries the password hash.
type LoginResult struct {
	Success bool
	Message string
	Reason  OutcomeReason
	Account *domain.Account
}

// LoginMetadata carries transport-level request context into the audit trail.
type LoginMetadata struct {
	IP        *string
	UserAgent *string
}

// AccessTokenClaims augments registered claims with account context.
type AccessTokenClaims struct {
	AccountID string `json:"uid"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AuthService coordinates authentication and lockout handling.
type AuthService struct {
	cfg      *config.AppConfig
	accounts port.AccountRepository
	hasher   port.PasswordHasher
	keys     *security.JWTManager
	attempts port.LoginAttemptRepository
	events   port.EventPublisher
	logger   *zap.Logger

	maxFailedLogins int
	lockoutDuration time.Duration
	now             func() time.Time
}

// NewAuthService constructs an AuthService instance. Lockout tunables come
// from cfg with service defaults as fallback.
func NewAuthService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	hasher port.PasswordHasher,
	keys *security.JWTManager,
) (*AuthService, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}

	maxFailed := defaultMaxFailedLogins
	lockout := defaultLockoutDuration
	if cfg != nil {
		if cfg.Auth.MaxFailedLogins > 0 {
			maxFailed = cfg.Auth.MaxFailedLogins
		}
		if cfg.Auth.LockoutDuration > 0 {
			lockout = cfg.Auth.LockoutDuration
		}
	}

	return &AuthService{
		cfg:             cfg,
		accounts:        accounts,
		hasher:          hasher,
		keys:            keys,
		logger:          zap.NewNop(),
		maxFailedLogins: maxFailed,
		lockoutDuration: lockout,
		now:             time.Now,
	}, nil
}

// WithAuditRepository attaches the login attempt audit trail.
func (s *AuthService) WithAuditRepository(attempts port.LoginAttemptRepository) *AuthService {
	s.attempts = attempts
	return s
}

// WithEventPublisher attaches a publisher for domain events.
func (s *AuthService) WithEventPublisher(events port.EventPublisher) *AuthService {
	s.events = events
	return s
}

// WithLogger attaches a structured logger.
func (s *AuthService) WithLogger(logger *zap.Logger) *AuthService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Login validates credentials and applies the lockout policy. Decision
// order: account existence, lockout, email verification, password. Failed
// attempts are counted and persisted regardless of whether the lockout
// threshold was hit; a successful login resets the counter, clears the
// lockout, and stamps the last login time.
func (s *AuthService) Login(ctx context.Context, email, password string, meta LoginMetadata) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{Message: msgCredentialsRequired, Reason: ReasonInvalidInput}, nil
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordAttempt(ctx, nil, email, false, attemptReasonUnknownAccount, meta)
			return LoginResult{Message: msgInvalidCredentials, Reason: ReasonInvalidCredentials}, nil
		}
		return LoginResult{}, fmt.Errorf("lookup account: %w", err)
	}

	now := s.now().UTC()

	if account.LockoutExpiry != nil && now.Before(*account.LockoutExpiry) {
		s.recordAttempt(ctx, &account.ID, email, false, attemptReasonLocked, meta)
		return LoginResult{Message: msgAccountLocked, Reason: ReasonAccountLocked}, nil
	}

	if !account.EmailVerified {
		s.recordAttempt(ctx, &account.ID, email, false, attemptReasonUnverified, meta)
		return LoginResult{Message: msgEmailNotVerified, Reason: ReasonEmailNotVerified}, nil
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return LoginResult{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		if err := s.handleFailedLogin(ctx, account, now, meta); err != nil {
			return LoginResult{}, err
		}
		return LoginResult{Message: msgInvalidCredentials, Reason: ReasonInvalidCredentials}, nil
	}

	account.FailedLogins = 0
	account.LockoutExpiry = nil
	account.LastLogin = &now
	if err := s.accounts.Update(ctx, *account); err != nil {
		return LoginResult{}, fmt.Errorf("persist successful login: %w", err)
	}

	s.recordAttempt(ctx, &account.ID, email, true, attemptReasonSuccess, meta)
	s.publishLoginSucceeded(ctx, *account, now, meta)

	sanitized := *account
	sanitized.PasswordHash = ""

	return LoginResult{Success: true, Message: msgLoginSuccessful, Account: &sanitized}, nil
}

// handleFailedLogin increments the failure counter, arms the lockout when
// the threshold is reached, and persists the account.
func (s *AuthService) handleFailedLogin(ctx context.Context, account *domain.Account, now time.Time, meta LoginMetadata) error {
	account.FailedLogins++

	locked := false
	if account.FailedLogins >= s.maxFailedLogins {
		expiry := now.Add(s.lockoutDuration)
		account.LockoutExpiry = &expiry
		locked = true
	}

	if err := s.accounts.Update(ctx, *account); err != nil {
		return fmt.Errorf("persist failed login: %w", err)
	}

	s.recordAttempt(ctx, &account.ID, account.Email, false, attemptReasonBadPassword, meta)
	s.publishLoginFailed(ctx, *account, now, meta)
	if locked {
		s.publishAccountLocked(ctx, *account, now)
	}

	return nil
}

// IssueAccessToken issues a signed JWT for the authenticated account.
func (s *AuthService) IssueAccessToken(account domain.Account) (string, error) {
	if account.ID == "" {
		return "", fmt.Errorf("account id is required")
	}
	if s.keys == nil {
		return "", fmt.Errorf("jwt manager not configured")
	}

	now := s.now().UTC()
	ttl := defaultAccessTokenTTL
	issuer := ""
	if s.cfg != nil {
		if s.cfg.JWT.AccessTokenTTL > 0 {
			ttl = s.cfg.JWT.AccessTokenTTL
		}
		issuer = s.cfg.App.Name
	}

	claimAudience := jwt.ClaimStrings{}
	if issuer != "" {
		claimAudience = append(claimAudience, issuer)
	}

	claims := AccessTokenClaims{
		AccountID: account.ID,
		Email:     account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Issuer:    issuer,
			Audience:  claimAudience,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.keys.SigningKID()

	signingKey, err := s.keys.GetSigningKey()
	if err != nil {
		return "", fmt.Errorf("get signing key: %w", err)
	}

	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseAccessToken validates the JWT access token and returns its claims.
func (s *AuthService) ParseAccessToken(token string) (*AccessTokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("access token is required")
	}
	if s.keys == nil {
		return nil, fmt.Errorf("jwt manager not configured")
	}

	issuer := ""
	if s.cfg != nil {
		issuer = s.cfg.App.Name
	}

	claims := &AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		kid, ok := t.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("kid header not found")
		}

		return s.keys.GetVerificationKey(kid)
	}, jwt.WithIssuer(issuer), jwt.WithAudience(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidAccessToken
	}
	if strings.TrimSpace(claims.AccountID) == "" {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}

func (s *AuthService) recordAttempt(ctx context.Context, accountID *string, email string, succeeded bool, reason string, meta LoginMetadata) {
	if s.attempts == nil {
		return
	}
	attempt := domain.LoginAttempt{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Email:     email,
		Succeeded: succeeded,
		Reason:    reason,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		CreatedAt: s.now().UTC(),
	}
	if err := s.attempts.Record(ctx, attempt); err != nil {
		s.logger.Warn("record login attempt failed",
			zap.String("email", email),
			zap.Error(err))
	}
}

func (s *AuthService) publishLoginSucceeded(ctx context.Context, account domain.Account, now time.Time, meta LoginMetadata) {
	if s.events == nil {
		return
	}
	event := domain.LoginSucceededEvent{
		EventID:    uuid.NewString(),
		AccountID:  account.ID,
		Email:      account.Email,
		OccurredAt: now,
		IPAddress:  meta.IP,
	}
	if err := s.events.PublishLoginSucceeded(ctx, event); err != nil {
		s.logger.Warn("publish login succeeded event failed",
			zap.String("account_id", account.ID),
			zap.Error(err))
	}
}

func (s *AuthService) publishLoginFailed(ctx context.Context, account domain.Account, now time.Time, meta LoginMetadata) {
	if s.events == nil {
		return
	}
	event := domain.LoginFailedEvent{
		EventID:      uuid.NewString(),
		AccountID:    &account.ID,
		Email:        account.Email,
		Reason:       attemptReasonBadPassword,
		FailedLogins: account.FailedLogins,
		OccurredAt:   now,
		IPAddress:    meta.IP,
	}
	if err := s.events.PublishLoginFailed(ctx, event); err != nil {
		s.logger.Warn("publish login failed event failed",
			zap.String("account_id", account.ID),
			zap.Error(err))
	}
}

func (s *AuthService) publishAccountLocked(ctx context.Context, account domain.Account, now time.Time) {
	if s.events == nil || account.LockoutExpiry == nil {
		return
	}
	event := domain.AccountLockedEvent{
		EventID:       uuid.NewString(),
		AccountID:     account.ID,
		Email:         account.Email,
		FailedLogins:  account.FailedLogins,
		LockoutExpiry: *account.LockoutExpiry,
		LockedAt:      now,
	}
	if err := s.events.PublishAccountLocked(ctx, event); err != nil {
		s.logger.Warn("publish account locked event failed",
			zap.String("account_id", account.ID),
			zap.Error(err))
	}
}
