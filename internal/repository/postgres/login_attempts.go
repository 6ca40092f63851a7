package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	uuid "github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/social-platform-accounts/internal/core/domain"
	"github.com/arklim/social-platform-accounts/internal/core/port"
)

// LoginAttemptRepository appends login attempt audit rows to PostgreSQL.
type LoginAttemptRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewLoginAttemptRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewLoginAttemptRepository(exec pgExecutor) *LoginAttemptRepository {
	repo := &LoginAttemptRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Record inserts a single login attempt row.
func (r *LoginAttemptRepository) Record(ctx context.Context, attempt domain.LoginAttempt) error {
	id := attempt.ID
	if id == "" {
		id = uuid.NewString()
	}

	stmt, args, err := r.builder.Insert("accounts.login_attempts").
		Columns(
			"id",
			"account_id",
			"email",
			"succeeded",
			"reason",
			"ip",
			"user_agent",
			"created_at",
		).
		Values(
			id,
			attempt.AccountID,
			attempt.Email,
			attempt.Succeeded,
			attempt.Reason,
			attempt.IP,
			attempt.UserAgent,
			attempt.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert login attempt sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}

	return nil
}

var _ port.LoginAttemptRepository = (*LoginAttemptRepository)(nil)
