package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/gauge"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
)

// probe renders a 0/1 probe gauge as a red or green tile.
func probe(title, description, metric string) *stat.PanelBuilder {
	return single(title, description, StatHeight, StatWidth, metric+Selector).
		Thresholds(ThresholdsRedGreen(1)).
		ColorMode(common.BigValueColorModeBackground).
		TextMode(common.BigValueTextModeValue)
}

// HealthzStat shows the liveness probe.
func HealthzStat() *stat.PanelBuilder {
	return probe("Healthz", "Liveness probe (1 = ok, 0 = failing)", "storefront_healthz_up")
}

// ReadyzStat shows the readiness probe.
func ReadyzStat() *stat.PanelBuilder {
	return probe("Readyz", "Readiness probe (1 = ready, 0 = audit store unreachable)", "storefront_readyz_up")
}

// ActiveSessions gauges open sessions against the configured maximum,
// turning yellow at 80% and red at 95%.
func ActiveSessions(maxSessions int) *gauge.PanelBuilder {
	limit := float64(maxSessions)
	return gauge.NewPanelBuilder().
		Title("Active Sessions").
		Description("Open storefront sessions against the configured maximum").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(`sum(storefront_sessions_active`+Selector+`)`, "", "A")).
		Min(0).
		Max(limit).
		Thresholds(ThresholdsGreenYellowRed(0.8*limit, 0.95*limit)).
		ColorScheme(ColorSchemeThresholds())
}

// UptimeStat shows time since the server process started.
func UptimeStat() *stat.PanelBuilder {
	return single("Uptime", "Time since process start", StatHeight, StatWidth,
		`time() - process_start_time_seconds`+Selector).
		Unit("s").
		Thresholds(ThresholdsGreenOnly())
}
