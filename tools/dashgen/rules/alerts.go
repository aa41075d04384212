package rules

// AlertRules returns a PrometheusRule CR containing alert rules for
// tenant-storefront operational monitoring.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "storefront-alerts",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "storefront-alerts",
					Rules: []Rule{
						{
							Alert: "StorefrontDown",
							Expr:  `absent(up{job="tenant-storefront"})`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Tenant storefront is down",
								"description": "The tenant-storefront job has been absent for more than 2 minutes.",
							},
						},
						{
							Alert: "StorefrontReadinessDown",
							Expr:  `storefront_readyz_up{job="tenant-storefront"} == 0`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Tenant storefront readiness check is failing",
								"description": "The audit store has been unreachable for more than 2 minutes.",
							},
						},
						{
							Alert: "StorefrontHighErrorRate",
							Expr:  `storefront:http_errors:rate5m / storefront:http_requests:rate5m > 0.05`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "High HTTP error rate on the tenant storefront",
								"description": "More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
							},
						},
						{
							Alert: "StorefrontCatalogFailures",
							Expr:  `storefront:catalog_failures:rate5m / storefront:catalog_fetches:rate5m > 0.2`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Catalog fetch failure rate is elevated",
								"description": "More than 20% of catalog page fetches have failed over the last 5 minutes.",
							},
						},
						{
							Alert: "StorefrontSessionsSaturated",
							Expr:  `sum(storefront_sessions_active{job="tenant-storefront"}) >= 950`,
							For:   "10m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Open sessions are near the configured maximum",
								"description": "New visitors will be refused once sessions.max is reached.",
							},
						},
						{
							Alert: "StorefrontNotificationFailures",
							Expr:  `increase(storefront_notification_failures_total{job="tenant-storefront"}[5m]) > 0`,
							For:   "1m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Failure notification delivery is failing",
								"description": "One or more load failure notifications (Discord webhooks) have failed to send.",
							},
						},
					},
				},
			},
		},
	}
}
