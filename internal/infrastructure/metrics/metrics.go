package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "order_tracking"

var (
	// TrackingLookupsTotal counts tracking lookups by outcome.
	TrackingLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tracking",
		Name:      "lookups_total",
		Help:      "Tracking lookups by outcome.",
	}, []string{"outcome"})

	// OrderResolutionsTotal counts order reference resolutions by result.
	OrderResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tracking",
		Name:      "order_resolutions_total",
		Help:      "Order reference resolutions by result (numeric, matched, not_found, search_error).",
	}, []string{"result"})

	// OrderSearchCalls tracks how many upstream searches one resolution needed.
	OrderSearchCalls = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "tracking",
		Name:      "order_search_calls",
		Help:      "Upstream order list calls per resolution.",
		Buckets:   []float64{0, 1, 2},
	})

	// ChargesCreatedTotal counts charges created upstream by plan type.
	ChargesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "charges_created_total",
		Help:      "Charges created by plan type.",
	}, []string{"type"})

	// ReconciliationsTotal counts billing callbacks by redirect outcome.
	ReconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "reconciliations_total",
		Help:      "Billing callback reconciliations by outcome (success, declined, error).",
	}, []string{"outcome"})

	// WebhooksTotal counts webhook deliveries by topic and HTTP status.
	WebhooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhooks",
		Name:      "received_total",
		Help:      "Webhook deliveries by topic and HTTP status.",
	}, []string{"topic", "status"})

	// HTTPRequestDuration tracks request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
