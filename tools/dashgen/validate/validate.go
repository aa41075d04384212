// Package validate checks generated dashboards and rules: every PromQL
// expression must parse and reference only known metrics.
package validate

import (
	"fmt"
	"strings"

	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
	"github.com/prometheus/prometheus/promql/parser"

	"github.com/donaldgifford/tenant-storefront/tools/dashgen/rules"
)

// Result collects validation findings.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether validation found no errors.
func (r *Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// histogramSuffixes are stripped before metric lookup.
var histogramSuffixes = []string{"_bucket", "_sum", "_count"}

// Expr parses expr and checks its metric names against known. where names
// the expression in findings.
func Expr(r *Result, where, expr string, known map[string]bool) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		r.errorf("%s: invalid PromQL %q: %v", where, expr, err)
		return
	}

	_ = parser.Inspect(node, func(n parser.Node, _ []parser.Node) error {
		vs, ok := n.(*parser.VectorSelector)
		if !ok || vs.Name == "" {
			return nil
		}
		if !known[metricName(vs.Name, known)] {
			r.errorf("%s: unknown metric %q", where, vs.Name)
		}
		if !strings.Contains(vs.Name, ":") && !hasJobMatcher(vs) && vs.Name != "up" {
			r.warnf("%s: metric %q has no job matcher", where, vs.Name)
		}
		return nil
	})
}

func metricName(name string, known map[string]bool) string {
	if known[name] {
		return name
	}
	for _, suffix := range histogramSuffixes {
		if base, ok := strings.CutSuffix(name, suffix); ok {
			return base
		}
	}
	return name
}

func hasJobMatcher(vs *parser.VectorSelector) bool {
	for _, m := range vs.LabelMatchers {
		if m.Name == "job" {
			return true
		}
	}
	return false
}

// Dashboard validates every Prometheus target in dash.
func Dashboard(dash dashboard.Dashboard, known map[string]bool) *Result {
	r := &Result{}

	for _, p := range dash.Panels {
		if p.Panel != nil {
			panel(r, p.Panel, known)
		}
		if p.RowPanel != nil {
			for i := range p.RowPanel.Panels {
				panel(r, &p.RowPanel.Panels[i], known)
			}
		}
	}

	return r
}

func panel(r *Result, p *dashboard.Panel, known map[string]bool) {
	title := "panel"
	if p.Title != nil {
		title = *p.Title
	}
	if len(p.Targets) == 0 {
		r.warnf("%s: no targets", title)
	}

	for _, t := range p.Targets {
		var expr string
		switch q := t.(type) {
		case prometheus.Dataquery:
			expr = q.Expr
		case *prometheus.Dataquery:
			expr = q.Expr
		default:
			r.warnf("%s: non-prometheus target %T", title, t)
			continue
		}
		Expr(r, title, expr, known)
	}
}

// Rules validates every expression in cr. Recording rule names are added
// to known so later rules and dashboards may reference them.
func Rules(cr rules.PrometheusRule, known map[string]bool) *Result {
	r := &Result{}

	for _, g := range cr.Spec.Groups {
		for _, rule := range g.Rules {
			name := rule.Record
			if name == "" {
				name = rule.Alert
			}
			if name == "" {
				r.errorf("%s: rule without record or alert name", g.Name)
				continue
			}
			Expr(r, g.Name+"/"+name, rule.Expr, known)
			if rule.Alert != "" && rule.Labels["severity"] == "" {
				r.errorf("%s/%s: alert without severity", g.Name, name)
			}
		}
	}

	return r
}
