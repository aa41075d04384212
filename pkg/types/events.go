package domain

import "time"

// LoadEventKind classifies an audited loader event.
type LoadEventKind string

// Audited event kinds.
const (
	LoadEventSessionOpened LoadEventKind = "session_opened"
	LoadEventPage          LoadEventKind = "page"
	LoadEventExhausted     LoadEventKind = "exhausted"
	LoadEventFailed        LoadEventKind = "failed"
	LoadEventSessionClosed LoadEventKind = "session_closed"
)

// LoadEvent is one row of the loader audit trail.
type LoadEvent struct {
	ID           int64         `json:"id"`
	SessionID    string        `json:"session_id"`
	TenantID     string        `json:"tenant_id"`
	CategoryID   string        `json:"category_id"`
	Kind         LoadEventKind `json:"kind"`
	PageIndex    int           `json:"page_index,omitempty"`
	Items        int           `json:"items,omitempty"`
	RecordsTotal int           `json:"records_total,omitempty"`
	Accumulated  int           `json:"accumulated,omitempty"`
	ErrorKind    string        `json:"error_kind,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	DurationMs   int64         `json:"duration_ms,omitempty"`
	OccurredAt   time.Time     `json:"occurred_at"`
}

// SessionRecord is the audited lifetime of one loader session.
type SessionRecord struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	CategoryID  string     `json:"category_id"`
	PageSize    int        `json:"page_size"`
	OpenedAt    time.Time  `json:"opened_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	CloseReason string     `json:"close_reason,omitempty"`
}
