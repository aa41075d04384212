package main

import "errors"

// KnownMetrics is the set of metric names exported by tenant-storefront
// plus recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"storefront_http_request_duration_seconds": true,
	"storefront_http_requests_total":           true,

	// Health metrics.
	"storefront_healthz_up": true,
	"storefront_readyz_up":  true,

	// Catalog metrics.
	"storefront_catalog_fetches_total":          true,
	"storefront_catalog_fetch_duration_seconds": true,
	"storefront_catalog_rate_limit_waits_total": true,

	// Loader metrics.
	"storefront_loader_pages_loaded_total":     true,
	"storefront_loader_items_loaded_total":     true,
	"storefront_loader_triggers_dropped_total": true,
	"storefront_loader_terminal_total":         true,
	"storefront_loader_late_results_total":     true,

	// Scroll metrics.
	"storefront_scroll_events_total":      true,
	"storefront_scroll_evaluations_total": true,

	// Session metrics.
	"storefront_sessions_active":      true,
	"storefront_sessions_swept_total": true,

	// Error metrics.
	"storefront_errors_reported_total":       true,
	"storefront_notification_failures_total": true,

	// Recording rules.
	"storefront:http_requests:rate5m":    true,
	"storefront:http_errors:rate5m":      true,
	"storefront:catalog_fetches:rate5m":  true,
	"storefront:catalog_failures:rate5m": true,
	"storefront:loader_pages:rate5m":     true,
	"storefront:errors_reported:rate5m":  true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
	// MaxSessions scales the active sessions gauge; match sessions.max.
	MaxSessions int
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
		MaxSessions:      1000,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	if c.MaxSessions <= 0 {
		return errors.New("max sessions must be > 0")
	}
	return nil
}
