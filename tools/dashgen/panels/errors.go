package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// ErrorsReported charts load failures surfaced to visitors, by kind.
func ErrorsReported() *timeseries.PanelBuilder {
	return series("Errors Reported", "Load failures surfaced in the error dialog per second by kind", TSWidth,
		PromQuery(Rate("storefront_errors_reported_total", "kind"), "{{kind}}", "A"),
	).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenYellowRed(0.1, 1))
}

// NotificationFailures counts Discord failure notices that could not be
// delivered in the last hour.
func NotificationFailures() *stat.PanelBuilder {
	return single("Notification Failures (1h)", "Discord failure notifications that could not be delivered",
		TSHeight, StatWidth, increase1h("storefront_notification_failures_total")).
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorMode(common.BigValueColorModeBackground)
}

// SessionsSwept counts idle sessions closed by the sweeper in the last hour.
func SessionsSwept() *stat.PanelBuilder {
	return single("Sessions Swept (1h)", "Idle sessions closed by the sweeper", TSHeight, StatWidth,
		increase1h("storefront_sessions_swept_total")).
		Thresholds(ThresholdsGreenOnly()).
		GraphMode(common.BigValueGraphModeArea)
}
