package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with connection pooling. A
// poolSize of zero uses the default.
func NewPostgresStore(ctx context.Context, connString string, poolSize int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	cfg.MaxConns = int32(poolSize) //nolint:gosec // bounded by config validation

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// InsertSession records a newly opened loader session. Inserting the same
// id twice is a no-op.
func (s *PostgresStore) InsertSession(ctx context.Context, r *domain.SessionRecord) error {
	openedAt := r.OpenedAt
	if openedAt.IsZero() {
		openedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, queryInsertSession, pgx.NamedArgs{
		"id":          r.ID,
		"tenant_id":   r.TenantID,
		"category_id": r.CategoryID,
		"page_size":   r.PageSize,
		"opened_at":   openedAt,
	})
	if err != nil {
		return fmt.Errorf("inserting session %s: %w", r.ID, err)
	}
	return nil
}

// CloseSession stamps the close time and reason on an open session.
// Closing an already closed session leaves the first close in place.
func (s *PostgresStore) CloseSession(ctx context.Context, id, reason string, at time.Time) error {
	if _, err := s.pool.Exec(ctx, queryCloseSession, id, at, reason); err != nil {
		return fmt.Errorf("closing session %s: %w", id, err)
	}
	return nil
}

// GetSession returns a session record by id.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*domain.SessionRecord, error) {
	var r domain.SessionRecord
	err := s.pool.QueryRow(ctx, queryGetSession, id).Scan(
		&r.ID, &r.TenantID, &r.CategoryID, &r.PageSize,
		&r.OpenedAt, &r.ClosedAt, &r.CloseReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return &r, nil
}

// PruneSessions deletes sessions (and, by cascade, their events) that were
// closed more than olderThan ago.
func (s *PostgresStore) PruneSessions(ctx context.Context, olderThan time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx, queryPruneSessions, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// InsertLoadEvent appends one event to the audit trail and sets e.ID.
func (s *PostgresStore) InsertLoadEvent(ctx context.Context, e *domain.LoadEvent) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	err := s.pool.QueryRow(ctx, queryInsertLoadEvent, pgx.NamedArgs{
		"session_id":    e.SessionID,
		"tenant_id":     e.TenantID,
		"category_id":   e.CategoryID,
		"kind":          string(e.Kind),
		"page_index":    e.PageIndex,
		"items":         e.Items,
		"records_total": e.RecordsTotal,
		"accumulated":   e.Accumulated,
		"error_kind":    e.ErrorKind,
		"error_message": e.ErrorMessage,
		"duration_ms":   e.DurationMs,
		"occurred_at":   e.OccurredAt,
	}).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("inserting %s event for session %s: %w", e.Kind, e.SessionID, err)
	}
	return nil
}

// ListLoadEvents returns events matching q and the total number of matches
// ignoring limit and offset.
func (s *PostgresStore) ListLoadEvents(
	ctx context.Context,
	q *EventQuery,
) ([]domain.LoadEvent, int, error) {
	if q == nil {
		q = &EventQuery{}
	}
	dataSQL, countSQL, args := q.ToSQL()

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting load events: %w", err)
	}

	rows, err := s.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying load events: %w", err)
	}
	defer rows.Close()

	events := []domain.LoadEvent{}
	for rows.Next() {
		var (
			e    domain.LoadEvent
			kind string
		)
		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.TenantID, &e.CategoryID, &kind,
			&e.PageIndex, &e.Items, &e.RecordsTotal, &e.Accumulated,
			&e.ErrorKind, &e.ErrorMessage, &e.DurationMs, &e.OccurredAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning load event: %w", err)
		}
		e.Kind = domain.LoadEventKind(kind)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating load events: %w", err)
	}

	return events, total, nil
}
