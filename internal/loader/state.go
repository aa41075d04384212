package loader

import (
	"context"
	"time"

	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

// State is the loader lifecycle state.
//
//	uninitialized --Start--> idle --trigger--> loading
//	loading --page, more remain--> idle
//	loading --page, none remain | empty page--> exhausted
//	loading --failure--> failed
//	any --Close--> closed
type State string

// Loader states. Exhausted, Failed and Closed are terminal.
const (
	StateUninitialized State = "uninitialized"
	StateIdle          State = "idle"
	StateLoading       State = "loading"
	StateExhausted     State = "exhausted"
	StateFailed        State = "failed"
	StateClosed        State = "closed"
)

// Terminal reports whether no further fetch can ever start from s.
func (s State) Terminal() bool {
	return s == StateExhausted || s == StateFailed || s == StateClosed
}

// Snapshot is a read-only copy of the loader state.
type Snapshot struct {
	TenantID      string               `json:"tenantId"`
	CategoryID    string               `json:"categoryId"`
	State         State                `json:"state"`
	Items         []domain.CatalogItem `json:"items"`
	NextPageIndex int                  `json:"nextPageIndex"`
	HasMore       bool                 `json:"hasMore"`
	IsLoading     bool                 `json:"isLoading"`
	LastError     *domain.ErrorRecord  `json:"lastError,omitempty"`
}

// EventKind classifies an Event.
type EventKind string

// Event kinds.
const (
	EventPage      EventKind = "page"
	EventExhausted EventKind = "exhausted"
	EventFailed    EventKind = "failed"
)

// Event describes the outcome of one fetch attempt.
type Event struct {
	Kind         EventKind
	TenantID     string
	CategoryID   string
	PageIndex    int
	Items        int
	RecordsTotal int
	Accumulated  int
	Duration     time.Duration
	Err          error
}

// Observer receives loader events. Observe is called outside the loader
// lock, from the goroutine that ran the fetch.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, ev Event)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, ev Event) {
	f(ctx, ev)
}
