// Package errsink holds the most recent terminal catalog load failure for a
// loader session and exposes it as a dismissible error display.
package errsink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/donaldgifford/tenant-storefront/internal/catalog"
	"github.com/donaldgifford/tenant-storefront/internal/metrics"
	"github.com/donaldgifford/tenant-storefront/internal/notify"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

const (
	// DefaultTitle matches the error dialog's default heading.
	DefaultTitle = "Error"

	notifyTimeout = 10 * time.Second
)

// Display is the error dialog state handed to the view layer.
type Display struct {
	Open    bool   `json:"open"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// Report is a recorded terminal failure.
type Report struct {
	Record     domain.ErrorRecord
	Kind       catalog.ErrorKind
	PageIndex  int
	Err        error
	ReportedAt time.Time
}

// Context identifies the loader a sink belongs to, for notifications.
type Context struct {
	SessionID  string
	TenantID   string
	CategoryID string
}

// Sink receives terminal failures. Dismissing only hides the display; it
// never resumes loading.
type Sink struct {
	mu     sync.Mutex
	last   *Report
	open   bool
	owner  Context
	log    *slog.Logger
	notify notify.Notifier
	now    func() time.Time
}

// Option configures a Sink.
type Option func(*Sink)

// WithNotifier forwards every reported failure to n in the background.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Sink) {
		s.notify = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		s.log = l
	}
}

// WithOwner attaches the loader identity used in notifications.
func WithOwner(c Context) Option {
	return func(s *Sink) {
		s.owner = c
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) Option {
	return func(s *Sink) {
		s.now = f
	}
}

// New creates an empty, closed Sink.
func New(opts ...Option) *Sink {
	s := &Sink{
		log: slog.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report records err as the most recent failure and opens the display.
func (s *Sink) Report(ctx context.Context, pageIndex int, err error) {
	if err == nil {
		return
	}

	r := &Report{
		Record:     Normalize(err),
		Kind:       catalog.KindOf(err),
		PageIndex:  pageIndex,
		Err:        err,
		ReportedAt: s.now(),
	}

	s.mu.Lock()
	s.last = r
	s.open = true
	s.mu.Unlock()

	kind := string(r.Kind)
	if kind == "" {
		kind = "unknown"
	}
	metrics.ErrorsReportedTotal.WithLabelValues(kind).Inc()

	s.log.Warn("catalog load failed",
		"session", s.owner.SessionID,
		"tenant", s.owner.TenantID,
		"category", s.owner.CategoryID,
		"page", pageIndex,
		"kind", kind,
		"error", err,
	)

	if s.notify != nil {
		go s.send(context.WithoutCancel(ctx), r)
	}
}

func (s *Sink) send(ctx context.Context, r *Report) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	err := s.notify.SendLoadFailure(ctx, &notify.FailurePayload{
		SessionID:  s.owner.SessionID,
		TenantID:   s.owner.TenantID,
		CategoryID: s.owner.CategoryID,
		PageIndex:  r.PageIndex,
		Kind:       string(r.Kind),
		Title:      r.Record.Title,
		Message:    r.Record.Message,
		Detail:     r.Err.Error(),
		OccurredAt: r.ReportedAt,
	})
	if err != nil {
		metrics.NotificationFailuresTotal.Inc()
		s.log.Error("sending load failure notification", "session", s.owner.SessionID, "error", err)
	}
}

// Dismiss closes the display. The recorded failure is kept.
func (s *Sink) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
}

// Display returns the current dialog state.
func (s *Sink) Display() Display {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return Display{}
	}
	return Display{
		Open:    s.open,
		Title:   s.last.Record.Title,
		Message: s.last.Record.Message,
	}
}

// Last returns the most recent failure, or nil.
func (s *Sink) Last() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

// Normalize maps any load failure to the user-facing title/message pair.
func Normalize(err error) domain.ErrorRecord {
	var fe *catalog.FetchError
	if !errors.As(err, &fe) {
		return domain.ErrorRecord{Title: DefaultTitle, Message: catalog.DefaultBusinessMessage}
	}

	switch fe.Kind {
	case catalog.KindNetwork:
		return domain.ErrorRecord{
			Title:   "Connection Error",
			Message: "Unable to reach the catalog service. Please check your connection.",
		}
	case catalog.KindHTTPStatus:
		return domain.ErrorRecord{
			Title:   "Server Error",
			Message: fmt.Sprintf("The catalog service responded with status %d.", fe.StatusCode),
		}
	default:
		msg := fe.Message
		if msg == "" {
			msg = catalog.DefaultBusinessMessage
		}
		return domain.ErrorRecord{Title: DefaultTitle, Message: msg}
	}
}
