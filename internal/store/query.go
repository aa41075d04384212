package store

import (
	"fmt"
	"strings"
)

const (
	defaultLimit = 100
	maxLimit     = 1000

	orderAsc  = "asc"
	orderDesc = "desc"
)

var validOrder = map[string]string{
	orderAsc:  "occurred_at ASC, id ASC",
	orderDesc: "occurred_at DESC, id DESC",
}

const baseEventsSelect = `SELECT id, session_id, tenant_id, category_id, kind,
	page_index, items, records_total, accumulated,
	error_kind, error_message, duration_ms, occurred_at
FROM load_events`

const countEventsSelect = "SELECT COUNT(*) FROM load_events"

// ToSQL builds the WHERE clause, ORDER BY, LIMIT, and OFFSET for an event
// query. It returns the data query, the count query and the positional
// parameters shared by both.
func (q *EventQuery) ToSQL() (dataSQL, countSQL string, args []any) {
	var conditions []string
	paramIdx := 1

	if q.SessionID != nil {
		conditions = append(conditions, fmt.Sprintf("session_id = $%d", paramIdx))
		args = append(args, *q.SessionID)
		paramIdx++
	}

	if q.TenantID != nil {
		conditions = append(conditions, fmt.Sprintf("tenant_id = $%d", paramIdx))
		args = append(args, *q.TenantID)
		paramIdx++
	}

	if q.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", paramIdx))
		args = append(args, *q.CategoryID)
		paramIdx++
	}

	if q.Since != nil {
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", paramIdx))
		args = append(args, *q.Since)
		paramIdx++
	}

	if len(q.Kinds) > 0 {
		placeholders := make([]string, len(q.Kinds))
		for i, k := range q.Kinds {
			placeholders[i] = fmt.Sprintf("$%d", paramIdx)
			args = append(args, string(k))
			paramIdx++
		}
		conditions = append(conditions, fmt.Sprintf(
			"kind IN (%s)", strings.Join(placeholders, ", "),
		))
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	orderClause := validOrder[orderAsc]
	if col, ok := validOrder[strings.ToLower(q.Order)]; ok {
		orderClause = col
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := max(q.Offset, 0)

	dataSQL = fmt.Sprintf(
		"%s%s ORDER BY %s LIMIT %d OFFSET %d",
		baseEventsSelect, whereClause, orderClause, limit, offset,
	)

	countSQL = countEventsSelect + whereClause

	return dataSQL, countSQL, args
}
