package port

import (
	"context"

	"github.com/arklim/social-platform-accounts/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts.
// Create assigns and returns the new account id; email uniqueness is
// enforced by the store.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) (string, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	Update(ctx context.Context, account domain.Account) error
}
