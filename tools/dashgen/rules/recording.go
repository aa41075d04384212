package rules

import "fmt"

const selector = `{job="tenant-storefront"}`

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "storefront-recording-rules",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "storefront-recording",
					Rules: []Rule{
						{
							Record: "storefront:http_requests:rate5m",
							Expr:   fmt.Sprintf(`sum(rate(storefront_http_requests_total%s[5m]))`, selector),
						},
						{
							Record: "storefront:http_errors:rate5m",
							Expr:   `sum(rate(storefront_http_requests_total{job="tenant-storefront",status=~"5.."}[5m]))`,
						},
						{
							Record: "storefront:catalog_fetches:rate5m",
							Expr:   fmt.Sprintf(`sum(rate(storefront_catalog_fetches_total%s[5m]))`, selector),
						},
						{
							Record: "storefront:catalog_failures:rate5m",
							Expr:   `sum(rate(storefront_catalog_fetches_total{job="tenant-storefront",outcome!="success"}[5m]))`,
						},
						{
							Record: "storefront:loader_pages:rate5m",
							Expr:   fmt.Sprintf(`sum(rate(storefront_loader_pages_loaded_total%s[5m]))`, selector),
						},
						{
							Record: "storefront:errors_reported:rate5m",
							Expr:   fmt.Sprintf(`sum(rate(storefront_errors_reported_total%s[5m]))`, selector),
						},
					},
				},
			},
		},
	}
}
