package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/social-platform-accounts/internal/core/domain"
	"github.com/arklim/social-platform-accounts/internal/core/port"
	"github.com/arklim/social-platform-accounts/internal/repository"
)

const verificationTokensTable = "accounts.verification_tokens"

var verificationTokenColumns = []string{
	"id",
	"account_id",
	"token_hash",
	"purpose",
	"created_at",
	"expires_at",
	"used_at",
}

// TokenRepository implements port.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewTokenRepository(exec pgExecutor) *TokenRepository {
	repo := &TokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *TokenRepository) WithTx(tx pgx.Tx) *TokenRepository {
	if tx == nil {
		return r
	}
	return &TokenRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new verification token record.
func (r *TokenRepository) Create(ctx context.Context, token domain.VerificationToken) error {
	stmt, args, err := r.builder.Insert(verificationTokensTable).
		Columns(verificationTokenColumns...).
		Values(
			token.ID,
			token.AccountID,
			token.TokenHash,
			token.Purpose,
			token.CreatedAt,
			token.ExpiresAt,
			token.UsedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert verification token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert verification token: %w", err)
	}

	return nil
}

// GetByHash retrieves a verification token by its hashed value.
func (r *TokenRepository) GetByHash(ctx context.Context, hash string) (*domain.VerificationToken, error) {
	stmt, args, err := r.builder.Select(verificationTokenColumns...).
		From(verificationTokensTable).
		Where(squirrel.Eq{"token_hash": hash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select verification token sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		token  domain.VerificationToken
		usedAt sql.NullTime
	)

	if err := row.Scan(
		&token.ID,
		&token.AccountID,
		&token.TokenHash,
		&token.Purpose,
		&token.CreatedAt,
		&token.ExpiresAt,
		&usedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan verification token: %w", err)
	}

	if usedAt.Valid {
		t := usedAt.Time
		token.UsedAt = &t
	}

	return &token, nil
}

// Consume marks a verification token as used.
func (r *TokenRepository) Consume(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update(verificationTokensTable).
		Set("used_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"used_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build consume verification sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("consume verification token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.TokenRepository = (*TokenRepository)(nil)
