package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/tenant-storefront/internal/store"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

// EventReader provides read access to the loader audit trail.
type EventReader interface {
	GetSession(ctx context.Context, id string) (*domain.SessionRecord, error)
	ListLoadEvents(ctx context.Context, q *store.EventQuery) ([]domain.LoadEvent, int, error)
}

// EventsHandler serves the recorded load events of a session.
type EventsHandler struct {
	events EventReader
}

// NewEventsHandler creates an EventsHandler. A nil reader means the audit
// store is disabled and every request answers 503.
func NewEventsHandler(r EventReader) *EventsHandler {
	return &EventsHandler{events: r}
}

// ListEventsInput is the request for GET /api/v1/sessions/{id}/events.
type ListEventsInput struct {
	ID     string `path:"id"     doc:"Session ID"`
	Kind   string `query:"kind"  doc:"Comma-separated event kinds to include"`
	Since  string `query:"since" doc:"Only events at or after this time (RFC 3339)"`
	Limit  int    `query:"limit"  default:"100" minimum:"1" maximum:"1000"`
	Offset int    `query:"offset" default:"0"   minimum:"0"`
	Order  string `query:"order"  default:"asc" enum:"asc,desc"`
}

// ListEventsOutput is the response for GET /api/v1/sessions/{id}/events.
type ListEventsOutput struct {
	Body struct {
		Session *domain.SessionRecord `json:"session"`
		Events  []domain.LoadEvent    `json:"events"`
		Total   int                   `json:"total"`
		Limit   int                   `json:"limit"`
		Offset  int                   `json:"offset"`
	}
}

// List returns the audited events of one session, open or closed.
func (h *EventsHandler) List(
	ctx context.Context,
	input *ListEventsInput,
) (*ListEventsOutput, error) {
	if h.events == nil {
		return nil, huma.Error503ServiceUnavailable("event history is not enabled")
	}

	var since time.Time
	if input.Since != "" {
		parsed, err := time.Parse(time.RFC3339, input.Since)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("since must be an RFC 3339 timestamp")
		}
		since = parsed
	}

	rec, err := h.events.GetSession(ctx, input.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, huma.Error404NotFound("session not found")
		}
		return nil, huma.Error500InternalServerError("loading session failed: " + err.Error())
	}

	q := &store.EventQuery{
		SessionID: &input.ID,
		Kinds:     parseKinds(input.Kind),
		Limit:     input.Limit,
		Offset:    input.Offset,
		Order:     input.Order,
	}
	if !since.IsZero() {
		q.Since = &since
	}

	events, total, err := h.events.ListLoadEvents(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing events failed: " + err.Error())
	}
	if events == nil {
		events = []domain.LoadEvent{}
	}

	out := &ListEventsOutput{}
	out.Body.Session = rec
	out.Body.Events = events
	out.Body.Total = total
	out.Body.Limit = input.Limit
	out.Body.Offset = input.Offset
	return out, nil
}

func parseKinds(raw string) []domain.LoadEventKind {
	if raw == "" {
		return nil
	}
	var kinds []domain.LoadEventKind
	for k := range strings.SplitSeq(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kinds = append(kinds, domain.LoadEventKind(k))
		}
	}
	return kinds
}

// RegisterEventRoutes registers the event history route on the Huma API.
func RegisterEventRoutes(api huma.API, h *EventsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-session-events",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}/events",
		Summary:     "List session events",
		Description: "Returns the recorded page, exhaustion and failure events of a session.",
		Tags:        []string{"events"},
		Errors:      []int{http.StatusNotFound, http.StatusServiceUnavailable},
	}, h.List)
}
