package port

import "context"

// VerificationNotifier delivers verification tokens to account owners.
// The boolean reports delivery acceptance; a false return or an error
// does not roll back state persisted before the send.
type VerificationNotifier interface {
	SendVerificationEmail(ctx context.Context, email string, token string) (bool, error)
}
