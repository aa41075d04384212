// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/tenant-storefront/tools/dashgen/panels"
)

// UID is the stable dashboard identifier.
const UID = "storefront-overview"

// BuildOverview constructs the Storefront Overview dashboard. maxSessions
// scales the active sessions gauge.
func BuildOverview(maxSessions int) *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Storefront Overview").
		Uid(UID).
		Tags([]string{"storefront", panels.Job}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.ActiveSessions(maxSessions)).
		WithPanel(panels.UptimeStat()))

	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	b.WithRow(dashboard.NewRowBuilder("Catalog").
		WithPanel(panels.FetchOutcomes()).
		WithPanel(panels.FetchLatency()).
		WithPanel(panels.FetchFailureRatio()))

	b.WithRow(dashboard.NewRowBuilder("Loader").
		WithPanel(panels.PagesLoaded()).
		WithPanel(panels.DroppedTriggers()).
		WithPanel(panels.ScrollEvaluations()).
		WithPanel(panels.TerminalStates()).
		WithPanel(panels.LateResults()))

	b.WithRow(dashboard.NewRowBuilder("Errors").
		WithPanel(panels.ErrorsReported()).
		WithPanel(panels.NotificationFailures()).
		WithPanel(panels.SessionsSwept()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
