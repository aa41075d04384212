package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// ThirdWidth fits three timeseries panels in a row.
const ThirdWidth = 8

// series returns a line chart with the dashboard's shared styling. Callers
// override unit, legend and thresholds as needed.
func series(
	title, description string,
	span uint32,
	targets ...*prometheus.DataqueryBuilder,
) *timeseries.PanelBuilder {
	b := timeseries.NewPanelBuilder().
		Title(title).
		Description(description).
		Datasource(DSRef()).
		Height(TSHeight).
		Span(span).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
	for _, t := range targets {
		b.WithTarget(t)
	}
	return b
}

// single returns a stat panel over one query without a sparkline.
func single(title, description string, height, span uint32, expr string) *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title(title).
		Description(description).
		Datasource(DSRef()).
		Height(height).
		Span(span).
		WithTarget(PromQuery(expr, "", "A")).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeNone)
}

// increase1h sums a counter's growth over the last hour.
func increase1h(metric string) string {
	return "sum(increase(" + metric + Selector + "[1h]))"
}

// ratio expresses one recorded rate as a percentage of another.
func ratio(part, whole string) string {
	return part + " / " + whole + " * 100"
}
