package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/donaldgifford/tenant-storefront/internal/catalog"
	"github.com/donaldgifford/tenant-storefront/internal/errsink"
	"github.com/donaldgifford/tenant-storefront/internal/loader"
	"github.com/donaldgifford/tenant-storefront/internal/metrics"
	"github.com/donaldgifford/tenant-storefront/internal/notify"
	"github.com/donaldgifford/tenant-storefront/internal/scroll"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

// Defaults for Config fields left at zero.
const (
	DefaultMaxSessions = 1000
	DefaultIdleTTL     = 30 * time.Minute
)

// Close reasons recorded in the audit trail.
const (
	ReasonClient   = "client"
	ReasonIdle     = "idle"
	ReasonShutdown = "shutdown"
)

var (
	// ErrNotFound is returned for an unknown or already closed session id.
	ErrNotFound = errors.New("session not found")

	// ErrTooManySessions is returned by Open when the session limit is hit.
	ErrTooManySessions = errors.New("too many open sessions")
)

// Config holds the per-session loader settings.
type Config struct {
	PageSize     int
	FetchTimeout time.Duration
	Debounce     time.Duration
	Threshold    float64
	MaxSessions  int
	IdleTTL      time.Duration
}

func (c *Config) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = domain.DefaultPageSize
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = loader.DefaultFetchTimeout
	}
	if c.Debounce <= 0 {
		c.Debounce = scroll.DefaultWindow
	}
	if c.Threshold < 0 {
		c.Threshold = scroll.DefaultThreshold
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = DefaultMaxSessions
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = DefaultIdleTTL
	}
}

// DefaultConfig returns the default session settings.
func DefaultConfig() Config {
	c := Config{Threshold: scroll.DefaultThreshold}
	c.applyDefaults()
	return c
}

// Manager owns all open sessions.
type Manager struct {
	fetcher  catalog.Fetcher
	cfg      Config
	notifier notify.Notifier
	recorder Recorder
	log      *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfig sets the session settings. Zero fields take their defaults.
func WithConfig(c Config) Option {
	return func(m *Manager) {
		m.cfg = c
	}
}

// WithNotifier forwards terminal load failures to n.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithRecorder enables the audit trail.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// WithNowFunc overrides the clock for testing.
func WithNowFunc(f func() time.Time) Option {
	return func(m *Manager) {
		m.now = f
	}
}

// NewManager creates a session manager fetching pages through f.
func NewManager(f catalog.Fetcher, opts ...Option) *Manager {
	m := &Manager{
		fetcher:  f,
		cfg:      DefaultConfig(),
		log:      slog.Default(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cfg.applyDefaults()
	return m
}

// Config returns the effective session settings.
func (m *Manager) Config() Config {
	return m.cfg
}

// Open creates a session for the tenant and category and starts its
// initial page load.
func (m *Manager) Open(ctx context.Context, tenantID, categoryID string) (*Session, error) {
	id := uuid.NewString()
	log := m.log.With("session", id, "tenant", tenantID, "category", categoryID)

	sinkOpts := []errsink.Option{
		errsink.WithLogger(log),
		errsink.WithNowFunc(m.now),
		errsink.WithOwner(errsink.Context{SessionID: id, TenantID: tenantID, CategoryID: categoryID}),
	}
	if m.notifier != nil {
		sinkOpts = append(sinkOpts, errsink.WithNotifier(m.notifier))
	}
	sink := errsink.New(sinkOpts...)

	loaderOpts := []loader.Option{
		loader.WithPageSize(m.cfg.PageSize),
		loader.WithFetchTimeout(m.cfg.FetchTimeout),
		loader.WithReporter(sink),
		loader.WithLogger(log),
	}
	if m.recorder != nil {
		loaderOpts = append(loaderOpts, loader.WithObserver(&auditObserver{
			sessionID: id,
			rec:       m.recorder,
			log:       log,
			now:       m.now,
		}))
	}

	l, err := loader.New(m.fetcher, tenantID, categoryID, loaderOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating loader: %w", err)
	}

	s := &Session{
		ID:         id,
		TenantID:   tenantID,
		CategoryID: categoryID,
		OpenedAt:   m.now(),
		loader:     l,
		source: scroll.NewSource(l,
			scroll.WithWindow(m.cfg.Debounce),
			scroll.WithThreshold(m.cfg.Threshold),
			scroll.WithLogger(log),
		),
		sink: sink,
	}
	s.touch(s.OpenedAt)

	m.mu.Lock()
	if len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		l.Close()
		return nil, fmt.Errorf("%w (max %d)", ErrTooManySessions, m.cfg.MaxSessions)
	}
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.SessionsActive.Set(float64(n))

	if m.recorder != nil {
		m.recordOpen(ctx, s)
	}

	s.source.Start()
	log.Info("session opened")
	return s, nil
}

func (m *Manager) recordOpen(ctx context.Context, s *Session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	err := m.recorder.InsertSession(ctx, &domain.SessionRecord{
		ID:         s.ID,
		TenantID:   s.TenantID,
		CategoryID: s.CategoryID,
		PageSize:   m.cfg.PageSize,
		OpenedAt:   s.OpenedAt,
	})
	if err == nil {
		err = m.recorder.InsertLoadEvent(ctx, &domain.LoadEvent{
			SessionID:  s.ID,
			TenantID:   s.TenantID,
			CategoryID: s.CategoryID,
			Kind:       domain.LoadEventSessionOpened,
			OccurredAt: s.OpenedAt,
		})
	}
	if err != nil {
		m.log.Warn("recording session open", "session", s.ID, "error", err)
	}
}

// Get returns the session with id and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.touch(m.now())
	return s, nil
}

// Scroll feeds a viewport report into the session's scroll source.
func (m *Manager) Scroll(id string, v scroll.Viewport) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.source.Observe(v)
	return nil
}

// Next requests the next page directly, bypassing the debounce. It reports
// whether a fetch was started.
func (m *Manager) Next(id string) (bool, error) {
	s, err := m.Get(id)
	if err != nil {
		return false, err
	}
	return s.loader.RequestNextPage(), nil
}

// Dismiss closes the session's error display. Loading stays stopped.
func (m *Manager) Dismiss(id string) (View, error) {
	s, err := m.Get(id)
	if err != nil {
		return View{}, err
	}
	s.sink.Dismiss()
	return s.View(), nil
}

// Wait blocks until the session has no fetch in flight or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.loader.Wait(ctx)
}

// Close tears the session down. Pending scroll evaluations are cancelled
// and any in-flight fetch result is discarded.
func (m *Manager) Close(ctx context.Context, id string) error {
	return m.closeWithReason(ctx, id, ReasonClient)
}

func (m *Manager) closeWithReason(ctx context.Context, id, reason string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	metrics.SessionsActive.Set(float64(n))

	s.close()
	m.log.Info("session closed", "session", id, "reason", reason)

	if m.recorder != nil {
		m.recordClose(ctx, s, reason)
	}
	return nil
}

func (m *Manager) recordClose(ctx context.Context, s *Session, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	at := m.now()
	snap := s.loader.Snapshot()
	err := errors.Join(
		m.recorder.InsertLoadEvent(ctx, &domain.LoadEvent{
			SessionID:   s.ID,
			TenantID:    s.TenantID,
			CategoryID:  s.CategoryID,
			Kind:        domain.LoadEventSessionClosed,
			Accumulated: len(snap.Items),
			OccurredAt:  at,
		}),
		m.recorder.CloseSession(ctx, s.ID, reason, at),
	)
	if err != nil {
		m.log.Warn("recording session close", "session", s.ID, "error", err)
	}
}

// SweepIdle closes every session not used for longer than the idle TTL
// and returns how many were closed.
func (m *Manager) SweepIdle(ctx context.Context) int {
	cutoff := m.now().Add(-m.cfg.IdleTTL)

	m.mu.RLock()
	var idle []string
	for id, s := range m.sessions {
		if s.LastAccess().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	closed := 0
	for _, id := range idle {
		if err := m.closeWithReason(ctx, id, ReasonIdle); err == nil {
			closed++
		}
	}
	if closed > 0 {
		metrics.SessionsSweptTotal.Add(float64(closed))
	}
	return closed
}

// CloseAll closes every open session. Used on shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.closeWithReason(ctx, id, ReasonShutdown)
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
