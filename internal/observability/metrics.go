package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain metrics of the order pipeline. HTTP metrics live in the middleware
// package; these count what the pipeline did with each message and order.
// Labels are bounded enums (outcome, status, system) to keep cardinality low.
var (
	// WebhookOutcomes counts processed webhook events by pipeline outcome.
	WebhookOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sari_webhook_events_total",
			Help: "Webhook events by pipeline outcome.",
		},
		[]string{"outcome"},
	)

	// OrdersCreated counts orders persisted after a successful platform call.
	OrdersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sari_orders_created_total",
			Help: "Orders created on the commerce platform and persisted locally.",
		},
	)

	// OrderFailures counts failed order attempts by reason.
	OrderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sari_order_failures_total",
			Help: "Failed order attempts by reason.",
		},
		[]string{"reason"},
	)

	// DiscountUsage counts consumed discount-code uses.
	DiscountUsage = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sari_discount_usage_total",
			Help: "Discount code uses consumed.",
		},
	)

	// CartReminders counts reminder attempts by result (sent|failed|skipped).
	CartReminders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sari_cart_reminders_total",
			Help: "Abandoned-cart reminder attempts by result.",
		},
		[]string{"result"},
	)

	// ExternalCallDuration records outbound call latency by system and result.
	ExternalCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sari_external_call_duration_seconds",
			Help:    "Duration of calls to external services.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"system", "result"},
	)
)

func init() {
	prometheus.MustRegister(WebhookOutcomes, OrdersCreated, OrderFailures, DiscountUsage, CartReminders, ExternalCallDuration)
}

// ObserveExternal records the duration of an outbound call started at start.
func ObserveExternal(system string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ExternalCallDuration.WithLabelValues(system, result).Observe(time.Since(start).Seconds())
}
