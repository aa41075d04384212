package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

const fetchDuration = "storefront_catalog_fetch_duration_seconds"

// FetchOutcomes charts catalog fetches per second by outcome, alongside
// fetches that had to wait on the client rate limiter.
func FetchOutcomes() *timeseries.PanelBuilder {
	return series("Catalog Fetches",
		"Catalog page fetches per second by outcome (success, network, http_status, business)",
		ThirdWidth,
		PromQuery(Rate("storefront_catalog_fetches_total", "outcome"), "{{outcome}}", "A"),
		PromQuery(Rate("storefront_catalog_rate_limit_waits_total"), "rate limited", "B"),
	).
		Unit("reqps").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip())
}

// FetchLatency charts p50 and p95 catalog fetch durations.
func FetchLatency() *timeseries.PanelBuilder {
	return series("Fetch Latency", "Catalog page fetch duration percentiles", ThirdWidth,
		PromQuery(Quantile(0.50, fetchDuration), "p50", "A"),
		PromQuery(Quantile(0.95, fetchDuration), "p95", "B"),
	).Unit("s")
}

// FetchFailureRatio charts failed fetches as a share of all fetches.
func FetchFailureRatio() *timeseries.PanelBuilder {
	return series("Fetch Failure %", "Failed catalog fetches as percentage of all fetches", ThirdWidth,
		PromQuery(ratio(`storefront:catalog_failures:rate5m`, `storefront:catalog_fetches:rate5m`), "failed %", "A"),
	).
		Unit("percent").
		Thresholds(ThresholdsGreenYellowRed(5, 20)).
		ColorScheme(ColorSchemeThresholds())
}
