package notify

import (
	"context"
	"log/slog"
)

// NoOpNotifier implements Notifier by logging discarded failures. It is used
// when Discord (or another notification backend) is not configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards failures with a log message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// SendLoadFailure logs and discards a single failure.
func (n *NoOpNotifier) SendLoadFailure(_ context.Context, failure *FailurePayload) error {
	n.log.Debug("notification discarded (no backend configured)",
		"session", failure.SessionID,
		"tenant", failure.TenantID,
		"category", failure.CategoryID,
		"kind", failure.Kind,
	)
	return nil
}
