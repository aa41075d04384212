// Package loader implements the incremental catalog loader: it fetches
// catalog pages one at a time, accumulates the items in arrival order and
// stops for good once the catalog is exhausted or a fetch fails.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/donaldgifford/tenant-storefront/internal/catalog"
	"github.com/donaldgifford/tenant-storefront/internal/errsink"
	"github.com/donaldgifford/tenant-storefront/internal/metrics"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

// DefaultFetchTimeout bounds a single page fetch so a hung request cannot
// leave the loader in StateLoading forever.
const DefaultFetchTimeout = 15 * time.Second

// ErrInvalidConfig is returned by New for a missing tenant/category or a
// non-positive page size.
var ErrInvalidConfig = errors.New("invalid loader config")

// Reporter receives terminal fetch failures.
type Reporter interface {
	Report(ctx context.Context, pageIndex int, err error)
}

// Loader owns the accumulated catalog items for one (tenant, category)
// pair. At most one fetch is in flight at a time; triggers that arrive while
// loading, after exhaustion, or after a failure are dropped.
type Loader struct {
	fetcher      catalog.Fetcher
	tenantID     string
	categoryID   string
	pageSize     int
	fetchTimeout time.Duration
	reporter     Reporter
	observer     Observer
	onChange     func(Snapshot)
	log          *slog.Logger

	mu       sync.Mutex
	state    State
	items    []domain.CatalogItem
	nextPage int
	hasMore  bool
	loading  bool
	lastErr  error
	inflight chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Loader.
type Option func(*Loader)

// WithPageSize overrides domain.DefaultPageSize.
func WithPageSize(n int) Option {
	return func(l *Loader) {
		l.pageSize = n
	}
}

// WithFetchTimeout overrides DefaultFetchTimeout. Zero disables the timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.fetchTimeout = d
	}
}

// WithReporter forwards terminal failures to r (usually an errsink.Sink).
func WithReporter(r Reporter) Option {
	return func(l *Loader) {
		l.reporter = r
	}
}

// WithObserver receives an Event for every completed fetch.
func WithObserver(o Observer) Option {
	return func(l *Loader) {
		l.observer = o
	}
}

// WithOnChange registers a callback invoked with a fresh snapshot after
// every completed fetch. It runs outside the loader lock.
func WithOnChange(f func(Snapshot)) Option {
	return func(l *Loader) {
		l.onChange = f
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

// New creates a loader in StateUninitialized. Call Start to enter StateIdle
// and issue the initial page request.
func New(fetcher catalog.Fetcher, tenantID, categoryID string, opts ...Option) (*Loader, error) {
	l := &Loader{
		fetcher:      fetcher,
		tenantID:     tenantID,
		categoryID:   categoryID,
		pageSize:     domain.DefaultPageSize,
		fetchTimeout: DefaultFetchTimeout,
		log:          slog.Default(),
		state:        StateUninitialized,
		items:        []domain.CatalogItem{},
		nextPage:     1,
		hasMore:      true,
	}
	for _, opt := range opts {
		opt(l)
	}

	if fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher is required", ErrInvalidConfig)
	}
	if tenantID == "" || categoryID == "" {
		return nil, fmt.Errorf("%w: tenant and category are required", ErrInvalidConfig)
	}
	if l.pageSize <= 0 {
		return nil, fmt.Errorf("%w: page size must be > 0 (got %d)", ErrInvalidConfig, l.pageSize)
	}

	l.ctx, l.cancel = context.WithCancel(context.Background())
	return l, nil
}

// Start moves the loader from StateUninitialized to StateIdle and requests
// the first page. It only has an effect the first time it is called.
func (l *Loader) Start() bool {
	l.mu.Lock()
	if l.state != StateUninitialized {
		l.mu.Unlock()
		return false
	}
	l.state = StateIdle
	l.mu.Unlock()

	l.log.Debug("loader started", "tenant", l.tenantID, "category", l.categoryID)
	return l.RequestNextPage()
}

// RequestNextPage starts fetching the next page in the background and
// reports whether a fetch was started. It is a no-op while a fetch is in
// flight, before Start, after exhaustion or failure, and after Close.
func (l *Loader) RequestNextPage() bool {
	l.mu.Lock()
	if reason := l.blockedLocked(); reason != "" {
		l.mu.Unlock()
		metrics.LoaderTriggersDropped.WithLabelValues(reason).Inc()
		return false
	}

	l.loading = true
	l.state = StateLoading
	req := domain.FetchRequest{
		CategoryID: l.categoryID,
		TenantID:   l.tenantID,
		PageIndex:  l.nextPage,
		PageSize:   l.pageSize,
	}
	done := make(chan struct{})
	l.inflight = done
	ctx := l.ctx
	l.mu.Unlock()

	go l.run(ctx, req, done)
	return true
}

// blockedLocked returns why a trigger must be dropped, or "" if a fetch may
// start. Callers must hold l.mu.
func (l *Loader) blockedLocked() string {
	switch {
	case l.state == StateClosed:
		return "closed"
	case l.state == StateUninitialized:
		return "uninitialized"
	case l.loading:
		return "loading"
	case l.state == StateFailed:
		return "failed"
	case !l.hasMore:
		return "exhausted"
	}
	return ""
}

func (l *Loader) run(ctx context.Context, req domain.FetchRequest, done chan struct{}) {
	defer l.release(done)

	start := time.Now()
	page, err := l.fetch(ctx, req)
	elapsed := time.Since(start)

	ev, snap, ok := l.complete(req, page, err, elapsed)
	if !ok {
		metrics.LoaderLateResults.Inc()
		l.log.Debug("discarding fetch result for closed loader",
			"tenant", l.tenantID,
			"category", l.categoryID,
			"page", req.PageIndex,
		)
		return
	}

	if err != nil && l.reporter != nil {
		l.reporter.Report(ctx, req.PageIndex, err)
	}
	if l.observer != nil {
		for i := range ev {
			l.observer.Observe(ctx, ev[i])
		}
	}
	if l.onChange != nil {
		l.onChange(snap)
	}
}

// fetch calls the fetcher with the per-attempt timeout and turns a panic
// into an error so the loading flag is always released.
func (l *Loader) fetch(ctx context.Context, req domain.FetchRequest) (page *domain.PageResult, err error) {
	if l.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.fetchTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			page, err = nil, fmt.Errorf("catalog fetch panicked: %v", r)
		}
	}()

	page, err = l.fetcher.Fetch(ctx, req)
	if err == nil && page == nil {
		page = &domain.PageResult{}
	}
	return page, err
}

// complete applies one fetch result to the loader state. It returns false
// when the loader was closed while the fetch was in flight; in that case
// the state is left untouched apart from releasing the loading flag.
func (l *Loader) complete(
	req domain.FetchRequest,
	page *domain.PageResult,
	err error,
	elapsed time.Duration,
) ([]Event, Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loading = false

	if l.state == StateClosed {
		return nil, Snapshot{}, false
	}

	base := Event{
		TenantID:   l.tenantID,
		CategoryID: l.categoryID,
		PageIndex:  req.PageIndex,
		Duration:   elapsed,
	}

	var events []Event
	switch {
	case err != nil:
		l.lastErr = err
		l.hasMore = false
		l.state = StateFailed
		metrics.LoaderTerminalTotal.WithLabelValues(string(StateFailed)).Inc()

		ev := base
		ev.Kind = EventFailed
		ev.Accumulated = len(l.items)
		ev.Err = err
		events = append(events, ev)

	case len(page.Items) == 0:
		l.hasMore = false
		l.state = StateExhausted
		metrics.LoaderTerminalTotal.WithLabelValues(string(StateExhausted)).Inc()

		ev := base
		ev.Kind = EventExhausted
		ev.RecordsTotal = page.RecordsTotal
		ev.Accumulated = len(l.items)
		events = append(events, ev)

	default:
		l.items = append(l.items, page.Items...)
		l.nextPage++
		// Compare against the post-append length so the page just merged
		// counts toward the total.
		l.hasMore = len(l.items) < page.RecordsTotal
		metrics.LoaderPagesLoaded.Inc()
		metrics.LoaderItemsLoaded.Add(float64(len(page.Items)))

		ev := base
		ev.Kind = EventPage
		ev.Items = len(page.Items)
		ev.RecordsTotal = page.RecordsTotal
		ev.Accumulated = len(l.items)
		events = append(events, ev)

		if l.hasMore {
			l.state = StateIdle
		} else {
			l.state = StateExhausted
			metrics.LoaderTerminalTotal.WithLabelValues(string(StateExhausted)).Inc()
			ex := ev
			ex.Kind = EventExhausted
			ex.Items = 0
			events = append(events, ex)
		}
	}

	l.log.Debug("catalog page fetch complete",
		"tenant", l.tenantID,
		"category", l.categoryID,
		"page", req.PageIndex,
		"state", l.state,
		"accumulated", len(l.items),
		"has_more", l.hasMore,
		"duration_ms", elapsed.Milliseconds(),
	)

	return events, l.snapshotLocked(), true
}

// release wakes Wait callers once the attempt and all of its callbacks are
// done. A newer attempt may already own l.inflight by then.
func (l *Loader) release(done chan struct{}) {
	l.mu.Lock()
	if l.inflight == done {
		l.inflight = nil
	}
	l.mu.Unlock()
	close(done)
}

// Wait blocks until no fetch is in flight or ctx is done.
func (l *Loader) Wait(ctx context.Context) error {
	l.mu.Lock()
	done := l.inflight
	l.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the loader down. Any in-flight fetch is canceled and its
// result, should it still arrive, is discarded. Close is idempotent.
func (l *Loader) Close() {
	l.mu.Lock()
	if l.state == StateClosed {
		l.mu.Unlock()
		return
	}
	l.state = StateClosed
	l.mu.Unlock()

	l.cancel()
	l.log.Debug("loader closed", "tenant", l.tenantID, "category", l.categoryID)
}

// Snapshot returns a copy of the current loader state.
func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Loader) snapshotLocked() Snapshot {
	s := Snapshot{
		TenantID:      l.tenantID,
		CategoryID:    l.categoryID,
		State:         l.state,
		Items:         make([]domain.CatalogItem, len(l.items)),
		NextPageIndex: l.nextPage,
		HasMore:       l.hasMore,
		IsLoading:     l.loading,
	}
	copy(s.Items, l.items)
	if l.lastErr != nil {
		rec := errsink.Normalize(l.lastErr)
		s.LastError = &rec
	}
	return s
}

// Err returns the failure that stopped the loader, if any.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}
