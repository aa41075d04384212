package loader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/tenant-storefront/internal/catalog"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pagedCatalog serves total items split into pages of the requested size.
type pagedCatalog struct {
	total int
	calls atomic.Int32

	mu   sync.Mutex
	seen []domain.FetchRequest
}

func (p *pagedCatalog) Fetch(_ context.Context, req domain.FetchRequest) (*domain.PageResult, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.seen = append(p.seen, req)
	p.mu.Unlock()

	start := (req.PageIndex - 1) * req.PageSize
	end := min(start+req.PageSize, p.total)
	items := []domain.CatalogItem{}
	for i := start; i < end; i++ {
		items = append(items, domain.CatalogItem{ModelNumber: modelNumber(i)})
	}
	return &domain.PageResult{Items: items, RecordsTotal: p.total}, nil
}

func (p *pagedCatalog) requests() []domain.FetchRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.FetchRequest(nil), p.seen...)
}

func modelNumber(i int) string {
	return "M-" + string(rune('A'+i%26)) + string(rune('0'+i/26))
}

// gatedFetcher blocks every call until release is closed.
type gatedFetcher struct {
	release chan struct{}
	entered chan struct{}
	calls   atomic.Int32
	page    *domain.PageResult
}

func newGatedFetcher(page *domain.PageResult) *gatedFetcher {
	return &gatedFetcher{
		release: make(chan struct{}),
		entered: make(chan struct{}, 16),
		page:    page,
	}
}

func (g *gatedFetcher) Fetch(ctx context.Context, _ domain.FetchRequest) (*domain.PageResult, error) {
	g.calls.Add(1)
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return g.page, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type recordingReporter struct {
	mu      sync.Mutex
	reports []error
	pages   []int
}

func (r *recordingReporter) Report(_ context.Context, pageIndex int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, err)
	r.pages = append(r.pages, pageIndex)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

func waitIdle(t *testing.T, l *Loader) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx))
}

func newTestLoader(t *testing.T, f catalog.Fetcher, opts ...Option) *Loader {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	l, err := New(f, "tenant-1", "cat-1", opts...)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	f := &pagedCatalog{}
	tests := []struct {
		name     string
		fetcher  catalog.Fetcher
		tenant   string
		category string
		opts     []Option
	}{
		{name: "nil fetcher", tenant: "t", category: "c"},
		{name: "missing tenant", fetcher: f, category: "c"},
		{name: "missing category", fetcher: f, tenant: "t"},
		{name: "zero page size", fetcher: f, tenant: "t", category: "c", opts: []Option{WithPageSize(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.fetcher, tt.tenant, tt.category, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNew_InitialSnapshot(t *testing.T) {
	t.Parallel()

	l := newTestLoader(t, &pagedCatalog{total: 5})
	snap := l.Snapshot()

	assert.Equal(t, StateUninitialized, snap.State)
	assert.Empty(t, snap.Items)
	assert.NotNil(t, snap.Items)
	assert.Equal(t, 1, snap.NextPageIndex)
	assert.True(t, snap.HasMore)
	assert.False(t, snap.IsLoading)
	assert.Nil(t, snap.LastError)
}

func TestLoader_LoadsAllPagesInOrder(t *testing.T) {
	t.Parallel()

	f := &pagedCatalog{total: 25}
	l := newTestLoader(t, f)

	require.True(t, l.Start())
	waitIdle(t, l)
	snap := l.Snapshot()
	assert.Len(t, snap.Items, 10)
	assert.True(t, snap.HasMore)
	assert.Equal(t, 2, snap.NextPageIndex)
	assert.Equal(t, StateIdle, snap.State)

	require.True(t, l.RequestNextPage())
	waitIdle(t, l)
	snap = l.Snapshot()
	assert.Len(t, snap.Items, 20)
	assert.True(t, snap.HasMore)

	require.True(t, l.RequestNextPage())
	waitIdle(t, l)
	snap = l.Snapshot()
	assert.Len(t, snap.Items, 25)
	assert.False(t, snap.HasMore)
	assert.Equal(t, StateExhausted, snap.State)
	assert.Equal(t, 4, snap.NextPageIndex)

	// Exhausted: further triggers never reach the fetcher.
	assert.False(t, l.RequestNextPage())
	assert.Equal(t, int32(3), f.calls.Load())

	reqs := f.requests()
	require.Len(t, reqs, 3)
	for i, r := range reqs {
		assert.Equal(t, i+1, r.PageIndex)
		assert.Equal(t, domain.DefaultPageSize, r.PageSize)
		assert.Equal(t, "tenant-1", r.TenantID)
		assert.Equal(t, "cat-1", r.CategoryID)
	}

	for i, item := range snap.Items {
		assert.Equal(t, modelNumber(i), item.ModelNumber)
	}
}

func TestLoader_FailureIsTerminal(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	f := catalog.FetcherFunc(func(context.Context, domain.FetchRequest) (*domain.PageResult, error) {
		calls.Add(1)
		return nil, catalog.NewHTTPStatusError(500, "boom")
	})
	rep := &recordingReporter{}
	l := newTestLoader(t, f, WithReporter(rep))

	require.True(t, l.Start())
	waitIdle(t, l)

	snap := l.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Empty(t, snap.Items)
	assert.False(t, snap.HasMore)
	assert.False(t, snap.IsLoading)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, "Server Error", snap.LastError.Title)
	assert.ErrorIs(t, l.Err(), catalog.ErrHTTPStatus)

	assert.False(t, l.RequestNextPage())
	assert.False(t, l.RequestNextPage())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, rep.count())
	assert.Equal(t, []int{1}, rep.pages)
}

func TestLoader_FailureKeepsLoadedItems(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	f := catalog.FetcherFunc(func(_ context.Context, req domain.FetchRequest) (*domain.PageResult, error) {
		calls.Add(1)
		if req.PageIndex == 2 {
			return nil, catalog.NewNetworkError("executing catalog request", errors.New("connection refused"))
		}
		return &domain.PageResult{
			Items:        make([]domain.CatalogItem, req.PageSize),
			RecordsTotal: 30,
		}, nil
	})
	l := newTestLoader(t, f)

	l.Start()
	waitIdle(t, l)
	l.RequestNextPage()
	waitIdle(t, l)

	snap := l.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Len(t, snap.Items, 10)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, "Connection Error", snap.LastError.Title)
}

func TestLoader_EmptyPageExhausts(t *testing.T) {
	t.Parallel()

	// The server claims more records than it actually returns.
	var calls atomic.Int32
	f := catalog.FetcherFunc(func(_ context.Context, req domain.FetchRequest) (*domain.PageResult, error) {
		calls.Add(1)
		if req.PageIndex > 1 {
			return &domain.PageResult{Items: []domain.CatalogItem{}, RecordsTotal: 100}, nil
		}
		return &domain.PageResult{Items: make([]domain.CatalogItem, 10), RecordsTotal: 100}, nil
	})
	l := newTestLoader(t, f)

	l.Start()
	waitIdle(t, l)
	l.RequestNextPage()
	waitIdle(t, l)

	snap := l.Snapshot()
	assert.Equal(t, StateExhausted, snap.State)
	assert.False(t, snap.HasMore)
	assert.Len(t, snap.Items, 10)
	assert.Equal(t, 2, snap.NextPageIndex)
	assert.Nil(t, snap.LastError)

	assert.False(t, l.RequestNextPage())
	assert.Equal(t, int32(2), calls.Load())
}

func TestLoader_NilPageTreatedAsEmpty(t *testing.T) {
	t.Parallel()

	f := catalog.FetcherFunc(func(context.Context, domain.FetchRequest) (*domain.PageResult, error) {
		return nil, nil
	})
	l := newTestLoader(t, f)

	l.Start()
	waitIdle(t, l)
	assert.Equal(t, StateExhausted, l.Snapshot().State)
}

func TestLoader_SinglePageExhausts(t *testing.T) {
	t.Parallel()

	l := newTestLoader(t, &pagedCatalog{total: 4})
	l.Start()
	waitIdle(t, l)

	snap := l.Snapshot()
	assert.Len(t, snap.Items, 4)
	assert.False(t, snap.HasMore)
	assert.Equal(t, StateExhausted, snap.State)
}

func TestLoader_SingleFlight(t *testing.T) {
	t.Parallel()

	g := newGatedFetcher(&domain.PageResult{
		Items:        make([]domain.CatalogItem, 10),
		RecordsTotal: 50,
	})
	l := newTestLoader(t, g)

	require.True(t, l.Start())
	<-g.entered

	var wg sync.WaitGroup
	var started atomic.Int32
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.RequestNextPage() {
				started.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, started.Load())
	assert.True(t, l.Snapshot().IsLoading)
	assert.Equal(t, StateLoading, l.Snapshot().State)

	close(g.release)
	waitIdle(t, l)

	assert.Equal(t, int32(1), g.calls.Load())
	assert.False(t, l.Snapshot().IsLoading)
	assert.Len(t, l.Snapshot().Items, 10)
}

func TestLoader_StartOnlyOnce(t *testing.T) {
	t.Parallel()

	f := &pagedCatalog{total: 100}
	l := newTestLoader(t, f)

	require.True(t, l.Start())
	waitIdle(t, l)
	assert.False(t, l.Start())
	waitIdle(t, l)

	assert.Equal(t, int32(1), f.calls.Load())
}

func TestLoader_TriggerBeforeStartDropped(t *testing.T) {
	t.Parallel()

	f := &pagedCatalog{total: 100}
	l := newTestLoader(t, f)

	assert.False(t, l.RequestNextPage())
	assert.Zero(t, f.calls.Load())
	assert.Equal(t, StateUninitialized, l.Snapshot().State)
}

func TestLoader_CloseDiscardsLateResult(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	entered := make(chan struct{})
	f := catalog.FetcherFunc(func(context.Context, domain.FetchRequest) (*domain.PageResult, error) {
		close(entered)
		// Ignore cancellation to model a result that still arrives late.
		<-release
		return &domain.PageResult{Items: make([]domain.CatalogItem, 10), RecordsTotal: 20}, nil
	})

	var changes atomic.Int32
	rep := &recordingReporter{}
	l := newTestLoader(t, f,
		WithReporter(rep),
		WithOnChange(func(Snapshot) { changes.Add(1) }),
	)

	l.Start()
	<-entered
	l.Close()
	close(release)
	waitIdle(t, l)

	snap := l.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Empty(t, snap.Items)
	assert.Zero(t, changes.Load())
	assert.Zero(t, rep.count())
	assert.False(t, l.RequestNextPage())
}

func TestLoader_CloseIdempotent(t *testing.T) {
	t.Parallel()

	l := newTestLoader(t, &pagedCatalog{total: 1})
	l.Close()
	l.Close()
	assert.Equal(t, StateClosed, l.Snapshot().State)
	assert.False(t, l.Start())
}

func TestLoader_FetchTimeout(t *testing.T) {
	t.Parallel()

	g := newGatedFetcher(nil)
	rep := &recordingReporter{}
	l := newTestLoader(t, g,
		WithFetchTimeout(20*time.Millisecond),
		WithReporter(rep),
	)

	l.Start()
	waitIdle(t, l)

	snap := l.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.False(t, snap.IsLoading)
	assert.ErrorIs(t, l.Err(), context.DeadlineExceeded)
	assert.Equal(t, 1, rep.count())
}

func TestLoader_PanicBecomesFailure(t *testing.T) {
	t.Parallel()

	f := catalog.FetcherFunc(func(context.Context, domain.FetchRequest) (*domain.PageResult, error) {
		panic("fetcher exploded")
	})
	l := newTestLoader(t, f)

	l.Start()
	waitIdle(t, l)

	snap := l.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.False(t, snap.IsLoading)
	require.Error(t, l.Err())
	assert.Contains(t, l.Err().Error(), "fetcher exploded")
}

func TestLoader_ObserverAndOnChange(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var events []Event
	obs := ObserverFunc(func(_ context.Context, ev Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})

	var snaps []Snapshot
	l := newTestLoader(t, &pagedCatalog{total: 15},
		WithObserver(obs),
		WithOnChange(func(s Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			snaps = append(snaps, s)
		}),
	)

	l.Start()
	waitIdle(t, l)
	l.RequestNextPage()
	waitIdle(t, l)

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, events, 3)
	assert.Equal(t, EventPage, events[0].Kind)
	assert.Equal(t, 1, events[0].PageIndex)
	assert.Equal(t, 10, events[0].Items)
	assert.Equal(t, 15, events[0].RecordsTotal)
	assert.Equal(t, EventPage, events[1].Kind)
	assert.Equal(t, 15, events[1].Accumulated)
	assert.Equal(t, EventExhausted, events[2].Kind)

	require.Len(t, snaps, 2)
	assert.Len(t, snaps[0].Items, 10)
	assert.Len(t, snaps[1].Items, 15)
	assert.Equal(t, StateExhausted, snaps[1].State)
}

func TestLoader_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	l := newTestLoader(t, &pagedCatalog{total: 3})
	l.Start()
	waitIdle(t, l)

	snap := l.Snapshot()
	require.Len(t, snap.Items, 3)
	snap.Items[0].ModelNumber = "mutated"

	assert.NotEqual(t, "mutated", l.Snapshot().Items[0].ModelNumber)
}

func TestLoader_CustomPageSize(t *testing.T) {
	t.Parallel()

	f := &pagedCatalog{total: 7}
	l := newTestLoader(t, f, WithPageSize(3))

	l.Start()
	waitIdle(t, l)
	for l.RequestNextPage() {
		waitIdle(t, l)
	}

	assert.Len(t, l.Snapshot().Items, 7)
	assert.Equal(t, int32(3), f.calls.Load())
	for _, r := range f.requests() {
		assert.Equal(t, 3, r.PageSize)
	}
}

func TestState_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, StateUninitialized.Terminal())
	assert.False(t, StateIdle.Terminal())
	assert.False(t, StateLoading.Terminal())
	assert.True(t, StateExhausted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateClosed.Terminal())
}
