// Package metrics defines Prometheus metrics for tenant-storefront.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

// HTTP metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})
)

// Operational health metrics.
var (
	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "Whether the last /healthz probe succeeded (1) or failed (0).",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "Whether the last /readyz probe succeeded (1) or failed (0).",
	})
)

// Catalog fetch metrics. The outcome label is "success" or one of the
// catalog error kinds (network, http_status, business).
var (
	CatalogFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_fetches_total",
		Help:      "Total catalog page fetches by outcome.",
	}, []string{"outcome"})

	CatalogFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "catalog_fetch_duration_seconds",
		Help:      "Duration of catalog page fetches in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	CatalogRateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_rate_limit_waits_total",
		Help:      "Total catalog calls admitted by the outbound rate limiter.",
	})
)

// Loader metrics.
var (
	LoaderPagesLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loader_pages_loaded_total",
		Help:      "Total non-empty catalog pages merged into loader sessions.",
	})

	LoaderItemsLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loader_items_loaded_total",
		Help:      "Total catalog items appended to loader sessions.",
	})

	LoaderTriggersDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loader_triggers_dropped_total",
		Help:      "Total next-page triggers ignored by the loader guard, by reason.",
	}, []string{"reason"})

	LoaderTerminalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loader_terminal_total",
		Help:      "Total loader sessions reaching a terminal state, by state.",
	}, []string{"state"})

	LoaderLateResults = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loader_late_results_total",
		Help:      "Total fetch results discarded because the loader was already closed.",
	})
)

// Scroll signal metrics.
var (
	ScrollEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scroll_events_total",
		Help:      "Total viewport reports received from clients.",
	})

	ScrollEvaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scroll_evaluations_total",
		Help:      "Total debounced near-bottom evaluations.",
	})
)

// Session metrics.
var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Number of open loader sessions.",
	})

	SessionsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_swept_total",
		Help:      "Total idle loader sessions closed by the sweeper.",
	})
)

// Error sink metrics.
var (
	ErrorsReportedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_reported_total",
		Help:      "Total terminal load errors surfaced to users, by kind.",
	}, []string{"kind"})

	NotificationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total number of operator notification send failures.",
	})
)
