package scroll_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/tenant-storefront/internal/catalog"
	"github.com/donaldgifford/tenant-storefront/internal/loader"
	"github.com/donaldgifford/tenant-storefront/internal/scroll"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingTarget struct {
	starts   atomic.Int32
	requests atomic.Int32
}

func (c *countingTarget) Start() bool {
	c.starts.Add(1)
	return true
}

func (c *countingTarget) RequestNextPage() bool {
	c.requests.Add(1)
	return true
}

var nearBottom = scroll.Viewport{ScrollOffset: 950, ViewportHeight: 500, ScrollHeight: 1500}

func TestViewport_NearBottom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    scroll.Viewport
		want bool
	}{
		{name: "at bottom", v: scroll.Viewport{ScrollOffset: 1000, ViewportHeight: 500, ScrollHeight: 1500}, want: true},
		{name: "within threshold", v: nearBottom, want: true},
		{name: "exactly threshold", v: scroll.Viewport{ScrollOffset: 900, ViewportHeight: 500, ScrollHeight: 1500}, want: false},
		{name: "far from bottom", v: scroll.Viewport{ScrollOffset: 0, ViewportHeight: 500, ScrollHeight: 5000}, want: false},
		{name: "content shorter than viewport", v: scroll.Viewport{ScrollOffset: 0, ViewportHeight: 800, ScrollHeight: 400}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.v.NearBottom(scroll.DefaultThreshold))
		})
	}
}

func TestSource_StartFiresOnce(t *testing.T) {
	t.Parallel()

	target := &countingTarget{}
	s := scroll.NewSource(target, scroll.WithLogger(quietLogger()))
	t.Cleanup(s.Close)

	assert.True(t, s.Start())
	assert.False(t, s.Start())
	assert.Equal(t, int32(1), target.starts.Load())
	assert.Zero(t, target.requests.Load())
}

func TestSource_BurstYieldsOneTrigger(t *testing.T) {
	t.Parallel()

	target := &countingTarget{}
	s := scroll.NewSource(target,
		scroll.WithWindow(50*time.Millisecond),
		scroll.WithLogger(quietLogger()),
	)
	t.Cleanup(s.Close)

	for range 50 {
		s.Observe(nearBottom)
	}

	assert.Eventually(t, func() bool { return target.requests.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), target.requests.Load())
}

func TestSource_EvaluatesLatestPosition(t *testing.T) {
	t.Parallel()

	target := &countingTarget{}
	s := scroll.NewSource(target,
		scroll.WithWindow(20*time.Millisecond),
		scroll.WithLogger(quietLogger()),
	)
	t.Cleanup(s.Close)

	// Passing near the bottom and scrolling back up before the window
	// elapses does not trigger.
	s.Observe(nearBottom)
	s.Observe(scroll.Viewport{ScrollOffset: 100, ViewportHeight: 500, ScrollHeight: 1500})

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, target.requests.Load())
	assert.InDelta(t, 100, s.Latest().ScrollOffset, 0)
}

func TestSource_CustomThreshold(t *testing.T) {
	t.Parallel()

	target := &countingTarget{}
	s := scroll.NewSource(target,
		scroll.WithWindow(10*time.Millisecond),
		scroll.WithThreshold(600),
		scroll.WithLogger(quietLogger()),
	)
	t.Cleanup(s.Close)

	s.Observe(scroll.Viewport{ScrollOffset: 500, ViewportHeight: 500, ScrollHeight: 1500})
	assert.Eventually(t, func() bool { return target.requests.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestSource_CloseCancelsPending(t *testing.T) {
	t.Parallel()

	target := &countingTarget{}
	s := scroll.NewSource(target,
		scroll.WithWindow(30*time.Millisecond),
		scroll.WithLogger(quietLogger()),
	)

	assert.True(t, s.Observe(nearBottom))
	s.Close()

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, target.requests.Load())
	assert.False(t, s.Observe(nearBottom))
	assert.False(t, s.Start())
}

func TestSource_DrivesLoaderWithoutOverlap(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	f := catalog.FetcherFunc(func(_ context.Context, req domain.FetchRequest) (*domain.PageResult, error) {
		calls.Add(1)
		return &domain.PageResult{Items: make([]domain.CatalogItem, req.PageSize), RecordsTotal: 100}, nil
	})
	l, err := loader.New(f, "tenant-1", "cat-1", loader.WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(l.Close)

	s := scroll.NewSource(l,
		scroll.WithWindow(50*time.Millisecond),
		scroll.WithLogger(quietLogger()),
	)
	t.Cleanup(s.Close)

	require.True(t, s.Start())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx))
	require.Equal(t, int32(1), calls.Load())

	deadline := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(deadline) {
		s.Observe(nearBottom)
		time.Sleep(time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
	require.NoError(t, l.Wait(ctx))
	assert.Len(t, l.Snapshot().Items, 20)
}
