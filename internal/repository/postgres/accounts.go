package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	uuid "github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/social-platform-accounts/internal/core/domain"
	"github.com/arklim/social-platform-accounts/internal/core/port"
	"github.com/arklim/social-platform-accounts/internal/repository"
)

const uniqueViolationCode = "23505"

var accountColumns = []string{
	"id",
	"email",
	"password_hash",
	"first_name",
	"last_name",
	"email_verified",
	"failed_logins",
	"lockout_expiry",
	"created_at",
	"last_login",
	"password_set_at",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new account row and returns the assigned identifier.
// A unique violation on the email column maps to repository.ErrDuplicate.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (string, error) {
	id := account.ID
	if id == "" {
		id = uuid.NewString()
	}

	stmt, args, err := r.builder.Insert("accounts.accounts").
		Columns(accountColumns...).
		Values(
			id,
			account.Email,
			account.PasswordHash,
			account.FirstName,
			account.LastName,
			account.EmailVerified,
			account.FailedLogins,
			account.LockoutExpiry,
			account.CreatedAt,
			account.LastLogin,
			account.PasswordSetAt,
		).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return "", repository.ErrDuplicate
		}
		return "", fmt.Errorf("insert account: %w", err)
	}

	return id, nil
}

// GetByEmail retrieves an account by its normalized email address.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	stmt, args, err := r.builder.Select(accountColumns...).
		From("accounts.accounts").
		Where(squirrel.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by email sql: %w", err)
	}

	return r.scanAccountRow(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.Select(accountColumns...).
		From("accounts.accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.scanAccountRow(r.exec.QueryRow(ctx, stmt, args...))
}

// Update rewrites the mutable account columns.
func (r *AccountRepository) Update(ctx context.Context, account domain.Account) error {
	stmt, args, err := r.builder.Update("accounts.accounts").
		Set("email", account.Email).
		Set("password_hash", account.PasswordHash).
		Set("first_name", account.FirstName).
		Set("last_name", account.LastName).
		Set("email_verified", account.EmailVerified).
		Set("failed_logins", account.FailedLogins).
		Set("lockout_expiry", account.LockoutExpiry).
		Set("last_login", account.LastLogin).
		Set("password_set_at", account.PasswordSetAt).
		Where(squirrel.Eq{"id": account.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update account sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *AccountRepository) scanAccountRow(row pgx.Row) (*domain.Account, error) {
	var (
		account       domain.Account
		lockoutExpiry *time.Time
		lastLogin     *time.Time
	)

	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&account.EmailVerified,
		&account.FailedLogins,
		&lockoutExpiry,
		&account.CreatedAt,
		&lastLogin,
		&account.PasswordSetAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	account.LockoutExpiry = lockoutExpiry
	account.LastLogin = lastLogin

	return &account, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
