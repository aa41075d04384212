// Package notify defines the operator notification interface and
// implementations for terminal catalog load failures.
package notify

import (
	"context"
	"time"
)

// FailurePayload contains the data needed to report a terminal load failure
// to operators.
type FailurePayload struct {
	SessionID  string
	TenantID   string
	CategoryID string
	PageIndex  int
	Kind       string
	Title      string
	Message    string
	Detail     string
	OccurredAt time.Time
}

// Notifier defines the interface for sending load failure notifications.
type Notifier interface {
	SendLoadFailure(ctx context.Context, failure *FailurePayload) error
}
