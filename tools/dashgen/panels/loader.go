package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/bargauge"
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// PagesLoaded charts pages and items appended to sessions per minute.
func PagesLoaded() *timeseries.PanelBuilder {
	return series("Pages / min", "Catalog pages and items appended to sessions per minute", ThirdWidth,
		PromQuery(`storefront:loader_pages:rate5m * 60`, "pages/min", "A"),
		PromQuery(Rate("storefront_loader_items_loaded_total")+" * 60", "items/min", "B"),
	).Legend(TableLegend("mean", "max"))
}

// DroppedTriggers charts load triggers that did not start a fetch.
func DroppedTriggers() *timeseries.PanelBuilder {
	return series("Dropped Triggers",
		"Load triggers ignored per second by reason (loading, exhausted, failed, closed)",
		ThirdWidth,
		PromQuery(Rate("storefront_loader_triggers_dropped_total", "reason"), "{{reason}}", "A"),
	).Tooltip(MultiTooltip())
}

// ScrollEvaluations compares raw scroll samples with debounced evaluations.
func ScrollEvaluations() *timeseries.PanelBuilder {
	return series("Scroll Debounce", "Scroll samples received against debounced near-bottom evaluations", ThirdWidth,
		PromQuery(Rate("storefront_scroll_events_total"), "samples/s", "A"),
		PromQuery(Rate("storefront_scroll_evaluations_total"), "evaluations/s", "B"),
	)
}

// TerminalStates shows how many loaders ended exhausted or failed in the
// last hour.
func TerminalStates() *bargauge.PanelBuilder {
	return bargauge.NewPanelBuilder().
		Title("Terminal States (1h)").
		Description("Loaders reaching exhausted or failed in the last hour").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum by (state) (increase(storefront_loader_terminal_total`+Selector+`[1h]))`,
			"{{state}}", "A",
		)).
		Orientation(common.VizOrientationHorizontal).
		Min(0).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// LateResults charts fetch results discarded because their session had
// already closed.
func LateResults() *timeseries.PanelBuilder {
	return series("Late Results", "Fetch results discarded because the session had already closed", TSWidth,
		PromQuery(Rate("storefront_loader_late_results_total"), "late/s", "A"),
	)
}
