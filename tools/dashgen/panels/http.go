package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

const requestDuration = "storefront_http_request_duration_seconds"

// RequestRate charts API and storefront requests per second.
func RequestRate() *timeseries.PanelBuilder {
	return series("Request Rate", "HTTP requests per second", ThirdWidth,
		PromQuery(`storefront:http_requests:rate5m`, "req/s", "A"),
	).
		Unit("reqps").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip())
}

// LatencyPercentiles charts p50, p95 and p99 request durations.
func LatencyPercentiles() *timeseries.PanelBuilder {
	return series("Latency Percentiles", "HTTP request duration percentiles", ThirdWidth,
		PromQuery(Quantile(0.50, requestDuration), "p50", "A"),
		PromQuery(Quantile(0.95, requestDuration), "p95", "B"),
		PromQuery(Quantile(0.99, requestDuration), "p99", "C"),
	).
		Unit("s").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip())
}

// ErrorRate charts 5xx responses as a share of all requests.
func ErrorRate() *timeseries.PanelBuilder {
	return series("Error Rate %", "HTTP 5xx responses as percentage of all requests", ThirdWidth,
		PromQuery(ratio(`storefront:http_errors:rate5m`, `storefront:http_requests:rate5m`), "error %", "A"),
	).
		Unit("percent").
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds())
}
