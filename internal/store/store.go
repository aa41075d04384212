// Package store defines the audit trail abstraction for tenant-storefront.
// Session code depends on the Store interface, never on a concrete
// implementation, so loaders run unchanged with or without a database.
package store

import (
	"context"
	"errors"
	"time"

	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

// ErrNotFound is returned when a session record does not exist.
var ErrNotFound = errors.New("not found")

// EventQuery defines optional filters for load event queries.
type EventQuery struct {
	SessionID  *string
	TenantID   *string
	CategoryID *string
	Kinds      []domain.LoadEventKind
	Since      *time.Time
	Limit      int // default 100
	Offset     int
	Order      string // "asc" (default) or "desc" by occurred_at
}

// Store defines the audit operations for loader sessions.
type Store interface {
	// Sessions
	InsertSession(ctx context.Context, s *domain.SessionRecord) error
	CloseSession(ctx context.Context, id string, reason string, at time.Time) error
	GetSession(ctx context.Context, id string) (*domain.SessionRecord, error)

	// Events
	InsertLoadEvent(ctx context.Context, e *domain.LoadEvent) error
	ListLoadEvents(ctx context.Context, q *EventQuery) ([]domain.LoadEvent, int, error)
	PruneSessions(ctx context.Context, olderThan time.Duration) (int, error)

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
