package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/donaldgifford/tenant-storefront/internal/catalog"
	"github.com/donaldgifford/tenant-storefront/internal/errsink"
	"github.com/donaldgifford/tenant-storefront/internal/loader"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

const auditTimeout = 5 * time.Second

// Recorder persists the session audit trail. *store.PostgresStore
// implements it.
type Recorder interface {
	InsertSession(ctx context.Context, s *domain.SessionRecord) error
	CloseSession(ctx context.Context, id string, reason string, at time.Time) error
	InsertLoadEvent(ctx context.Context, e *domain.LoadEvent) error
}

// auditObserver turns loader events into audit rows for one session.
type auditObserver struct {
	sessionID string
	rec       Recorder
	log       *slog.Logger
	now       func() time.Time
}

func (a *auditObserver) Observe(ctx context.Context, ev loader.Event) {
	e := &domain.LoadEvent{
		SessionID:    a.sessionID,
		TenantID:     ev.TenantID,
		CategoryID:   ev.CategoryID,
		PageIndex:    ev.PageIndex,
		Items:        ev.Items,
		RecordsTotal: ev.RecordsTotal,
		Accumulated:  ev.Accumulated,
		DurationMs:   ev.Duration.Milliseconds(),
		OccurredAt:   a.now(),
	}

	switch ev.Kind {
	case loader.EventPage:
		e.Kind = domain.LoadEventPage
	case loader.EventExhausted:
		e.Kind = domain.LoadEventExhausted
	case loader.EventFailed:
		e.Kind = domain.LoadEventFailed
		e.ErrorKind = string(catalog.KindOf(ev.Err))
		e.ErrorMessage = errsink.Normalize(ev.Err).Message
	default:
		return
	}

	a.insert(ctx, e)
}

func (a *auditObserver) insert(ctx context.Context, e *domain.LoadEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if err := a.rec.InsertLoadEvent(ctx, e); err != nil {
		a.log.Warn("recording load event", "session", a.sessionID, "kind", e.Kind, "error", err)
	}
}
