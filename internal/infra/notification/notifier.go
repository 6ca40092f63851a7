package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-accounts/internal/core/port"
	"github.com/arklim/social-platform-accounts/internal/infra/logger"
)

// LoggingNotifier records verification dispatches through structured logging
// instead of delivering them. It stands in for a mail provider in environments
// without one; the token itself is masked so logs stay safe to ship.
type LoggingNotifier struct {
	logger *zap.Logger
}

var _ port.VerificationNotifier = (*LoggingNotifier)(nil)

// NewLoggingNotifier constructs a notifier backed by structured logging.
func NewLoggingNotifier(log *zap.Logger) *LoggingNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingNotifier{logger: log}
}

// SendVerificationEmail logs the dispatch and reports it as accepted.
func (n *LoggingNotifier) SendVerificationEmail(ctx context.Context, email string, token string) (bool, error) {
	n.logger.Info("verification email dispatched",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("token", logger.MaskString(token)),
	)
	return true, nil
}

// NoopNotifier accepts every dispatch without side effects.
type NoopNotifier struct{}

var _ port.VerificationNotifier = NoopNotifier{}

// SendVerificationEmail reports the dispatch as accepted.
func (NoopNotifier) SendVerificationEmail(ctx context.Context, email string, token string) (bool, error) {
	return true, nil
}
