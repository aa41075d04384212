package store

// SQL query constants organized by entity.
// All SQL lives here; PostgresStore methods reference these constants.

// Session queries.
const (
	queryInsertSession = `
		INSERT INTO loader_sessions (id, tenant_id, category_id, page_size, opened_at)
		VALUES (@id, @tenant_id, @category_id, @page_size, @opened_at)
		ON CONFLICT (id) DO NOTHING`

	queryCloseSession = `
		UPDATE loader_sessions
		SET closed_at = $2, close_reason = $3
		WHERE id = $1 AND closed_at IS NULL`

	queryGetSession = `
		SELECT id, tenant_id, category_id, page_size, opened_at, closed_at, COALESCE(close_reason, '')
		FROM loader_sessions
		WHERE id = $1`

	queryPruneSessions = `
		DELETE FROM loader_sessions
		WHERE closed_at IS NOT NULL AND closed_at < $1`
)

// Load event queries.
const (
	queryInsertLoadEvent = `
		INSERT INTO load_events (
			session_id, tenant_id, category_id, kind,
			page_index, items, records_total, accumulated,
			error_kind, error_message, duration_ms, occurred_at
		) VALUES (
			@session_id, @tenant_id, @category_id, @kind,
			@page_index, @items, @records_total, @accumulated,
			@error_kind, @error_message, @duration_ms, @occurred_at
		)
		RETURNING id`
)
