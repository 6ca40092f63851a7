package port

import (
	"context"

	"github.com/arklim/social-platform-accounts/internal/core/domain"
)

// TokenRepository manages verification token records. Tokens are stored
// hashed; lookup is by hash and consumption is single use.
type TokenRepository interface {
	Create(ctx context.Context, token domain.VerificationToken) error
	GetByHash(ctx context.Context, hash string) (*domain.VerificationToken, error)
	Consume(ctx context.Context, id string) error
}
