package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes audit records for sessions closed long ago.
type Pruner interface {
	PruneSessions(ctx context.Context, olderThan time.Duration) (int, error)
}

// Sweeper periodically closes idle sessions and, when a Pruner is set,
// trims the audit trail.
type Sweeper struct {
	cron      *cron.Cron
	manager   *Manager
	pruner    Pruner
	retention time.Duration
	log       *slog.Logger
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithPruner prunes audit records older than retention on every sweep.
func WithPruner(p Pruner, retention time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.pruner = p
		s.retention = retention
	}
}

// NewSweeper creates a Sweeper running every interval.
func NewSweeper(
	m *Manager,
	interval time.Duration,
	log *slog.Logger,
	opts ...SweeperOption,
) (*Sweeper, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be > 0 (got %s)", interval)
	}

	s := &Sweeper{
		cron:    cron.New(),
		manager: m,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.cron.AddFunc("@every "+interval.String(), s.sweep); err != nil {
		return nil, err
	}

	if s.pruner != nil && s.retention > 0 {
		if _, err := s.cron.AddFunc("@every 1h", s.prune); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Start begins running scheduled sweeps.
func (s *Sweeper) Start() {
	s.log.Info("session sweeper started")
	s.cron.Start()
}

// Stop stops the sweeper; the returned context is done once a running sweep
// finishes.
func (s *Sweeper) Stop() context.Context {
	s.log.Info("session sweeper stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Sweeper) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Sweeper) sweep() {
	if n := s.manager.SweepIdle(context.Background()); n > 0 {
		s.log.Info("closed idle sessions", "count", n, "open", s.manager.Len())
	}
}

func (s *Sweeper) prune() {
	n, err := s.pruner.PruneSessions(context.Background(), s.retention)
	if err != nil {
		s.log.Error("pruning session audit trail", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("pruned session audit trail", "sessions", n)
	}
}
