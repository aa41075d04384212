package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPruner struct {
	calls atomic.Int32
	err   error
}

func (p *countingPruner) PruneSessions(context.Context, time.Duration) (int, error) {
	p.calls.Add(1)
	return 2, p.err
}

func TestNewSweeper_RegistersCronEntries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	m := newTestManager(t, pagedFetcher(1, &calls))

	s, err := NewSweeper(m, time.Minute, quietLogger())
	require.NoError(t, err)
	assert.Len(t, s.Entries(), 1)

	s, err = NewSweeper(m, time.Minute, quietLogger(), WithPruner(&countingPruner{}, 24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, s.Entries(), 2)
}

func TestNewSweeper_InvalidInterval(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	m := newTestManager(t, pagedFetcher(1, &calls))

	_, err := NewSweeper(m, 0, quietLogger())
	require.Error(t, err)
}

func TestSweeper_StartStop(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	m := newTestManager(t, pagedFetcher(1, &calls))

	s, err := NewSweeper(m, time.Hour, quietLogger())
	require.NoError(t, err)

	s.Start()
	ctx := s.Stop()
	<-ctx.Done()
}

func TestSweeper_SweepClosesIdle(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	var calls atomic.Int32
	m := newTestManager(t, pagedFetcher(1, &calls),
		WithNowFunc(clock.Now),
		WithConfig(Config{IdleTTL: time.Minute}),
	)

	_, err := m.Open(context.Background(), "t", "c")
	require.NoError(t, err)

	s, err := NewSweeper(m, time.Minute, quietLogger())
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	s.sweep()
	assert.Zero(t, m.Len())
}

func TestSweeper_Prune(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	m := newTestManager(t, pagedFetcher(1, &calls))

	p := &countingPruner{}
	s, err := NewSweeper(m, time.Minute, quietLogger(), WithPruner(p, time.Hour))
	require.NoError(t, err)

	s.prune()
	assert.Equal(t, int32(1), p.calls.Load())

	p.err = errors.New("db down")
	s.prune()
	assert.Equal(t, int32(2), p.calls.Load())
}
