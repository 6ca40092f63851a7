package port

import (
	"context"

	"github.com/arklim/social-platform-accounts/internal/core/domain"
)

// LoginAttemptRepository appends authentication attempts for audit.
// Recording is best effort; callers log and continue on failure.
type LoginAttemptRepository interface {
	Record(ctx context.Context, attempt domain.LoginAttempt) error
}
