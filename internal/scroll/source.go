// Package scroll turns a stream of viewport positions into debounced
// "load the next page" triggers.
package scroll

import (
	"log/slog"
	"sync"
	"time"

	"github.com/donaldgifford/tenant-storefront/internal/metrics"
)

const (
	// DefaultWindow is how long scrolling must be quiet before the latest
	// position is evaluated.
	DefaultWindow = 200 * time.Millisecond

	// DefaultThreshold is the distance from the bottom, in the client's
	// scroll units, at which the next page is requested.
	DefaultThreshold = 100
)

// Viewport is one scroll position report.
type Viewport struct {
	ScrollOffset   float64 `json:"scrollOffset"`
	ViewportHeight float64 `json:"viewportHeight" minimum:"0"`
	ScrollHeight   float64 `json:"scrollHeight"   minimum:"0"`
}

// NearBottom reports whether the visible bottom edge is within threshold of
// the end of the scrollable content.
func (v Viewport) NearBottom(threshold float64) bool {
	return v.ScrollHeight-(v.ScrollOffset+v.ViewportHeight) < threshold
}

// Target is what a Source drives. *loader.Loader satisfies it.
type Target interface {
	Start() bool
	RequestNextPage() bool
}

// Source coalesces viewport reports for one loader.
type Source struct {
	target    Target
	window    time.Duration
	threshold float64
	log       *slog.Logger
	debounce  *Debouncer

	mu      sync.Mutex
	latest  Viewport
	started bool
	closed  bool
}

// Option configures a Source.
type Option func(*Source)

// WithWindow overrides DefaultWindow.
func WithWindow(d time.Duration) Option {
	return func(s *Source) {
		s.window = d
	}
}

// WithThreshold overrides DefaultThreshold.
func WithThreshold(t float64) Option {
	return func(s *Source) {
		s.threshold = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		s.log = l
	}
}

// NewSource creates a Source for target. Nothing is triggered until Start.
func NewSource(target Target, opts ...Option) *Source {
	s := &Source{
		target:    target,
		window:    DefaultWindow,
		threshold: DefaultThreshold,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.debounce = NewDebouncer(s.window, s.evaluate)
	return s
}

// Start fires the initial, position-independent trigger. Only the first call
// has any effect.
func (s *Source) Start() bool {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return false
	}
	s.started = true
	s.mu.Unlock()

	return s.target.Start()
}

// Observe records a viewport report and restarts the quiet window. It
// reports false once the source is closed.
func (s *Source) Observe(v Viewport) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.latest = v
	s.mu.Unlock()

	metrics.ScrollEventsTotal.Inc()
	return s.debounce.Trigger()
}

// Latest returns the most recent viewport report.
func (s *Source) Latest() Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Source) evaluate() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	v := s.latest
	s.mu.Unlock()

	metrics.ScrollEvaluationsTotal.Inc()
	if !v.NearBottom(s.threshold) {
		return
	}

	started := s.target.RequestNextPage()
	s.log.Debug("near-bottom trigger",
		"scroll_offset", v.ScrollOffset,
		"viewport_height", v.ViewportHeight,
		"scroll_height", v.ScrollHeight,
		"started", started,
	)
}

// Close cancels any pending evaluation; no trigger fires afterwards.
func (s *Source) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.debounce.Stop()
}
