package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records counters for the checkout flow.
type CheckoutMetrics struct {
	intentCreations  *prometheus.CounterVec
	confirmations    *prometheus.CounterVec
	finalizeFailures prometheus.Counter
	confirmDuration  prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	intentCreations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_intent_creations_total",
		Help: "Payment authorization creation attempts by outcome.",
	}, []string{"outcome"})
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_confirmations_total",
		Help: "Payment confirmation attempts by outcome.",
	}, []string{"outcome"})
	finalizeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_finalize_order_failures_total",
		Help: "Order submissions that failed after a confirmed payment.",
	})
	confirmDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_confirm_duration_seconds",
		Help:    "Duration of payment confirmation calls in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(intentCreations, confirmations, finalizeFailures, confirmDuration)
	return &CheckoutMetrics{
		intentCreations:  intentCreations,
		confirmations:    confirmations,
		finalizeFailures: finalizeFailures,
		confirmDuration:  confirmDuration,
	}
}

// IncIntentCreation increments the intent creation counter for the outcome.
func (c *CheckoutMetrics) IncIntentCreation(outcome string) {
	if c == nil || c.intentCreations == nil {
		return
	}
	c.intentCreations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncConfirmation increments the confirmation counter for the outcome.
func (c *CheckoutMetrics) IncConfirmation(outcome string) {
	if c == nil || c.confirmations == nil {
		return
	}
	c.confirmations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncFinalizeFailure counts an order submission failure after payment.
func (c *CheckoutMetrics) IncFinalizeFailure() {
	if c == nil || c.finalizeFailures == nil {
		return
	}
	c.finalizeFailures.Inc()
}

// ObserveConfirmDuration records the duration of a confirmation call.
func (c *CheckoutMetrics) ObserveConfirmDuration(duration time.Duration) {
	if c == nil || c.confirmDuration == nil {
		return
	}
	c.confirmDuration.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
