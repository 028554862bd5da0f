package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes application-level instruments on the default registry.
type Metrics struct {
	paymentEvents    *prometheus.CounterVec
	ledgerEntries    *prometheus.CounterVec
	webhookResults   *prometheus.CounterVec
	rateLimitAllowed *prometheus.CounterVec
	rateLimitDenied  *prometheus.CounterVec
}

// New registers the domain counters.
func New() *Metrics {
	return &Metrics{
		paymentEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sokobiz_payment_events_total",
			Help: "Payment callback events processed, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ledgerEntries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sokobiz_ledger_entries_total",
			Help: "Credit ledger entries written, by entry type.",
		}, []string{"entry_type"}),
		webhookResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sokobiz_webhook_requests_total",
			Help: "Webhook deliveries received, by provider and result.",
		}, []string{"provider", "result"}),
		rateLimitAllowed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sokobiz_rate_limit_allowed_total",
			Help: "Requests admitted by the rate limiter.",
		}, []string{"endpoint"}),
		rateLimitDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sokobiz_rate_limit_denied_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"endpoint", "reason"}),
	}
}

// RecordPaymentEvent increments payment event counts.
func (m *Metrics) RecordPaymentEvent(provider, outcome string) {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues(normalize(provider), normalize(outcome)).Inc()
}

// RecordLedgerEntry increments ledger entry counts.
func (m *Metrics) RecordLedgerEntry(entryType string) {
	if m == nil {
		return
	}
	m.ledgerEntries.WithLabelValues(normalize(entryType)).Inc()
}

// RecordWebhookResult increments webhook delivery counts.
func (m *Metrics) RecordWebhookResult(provider, result string) {
	if m == nil {
		return
	}
	m.webhookResults.WithLabelValues(normalize(provider), normalize(result)).Inc()
}

// RecordRateLimitAllowed increments rate limit admit counts.
func (m *Metrics) RecordRateLimitAllowed(endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitAllowed.WithLabelValues(normalize(endpoint)).Inc()
}

// RecordRateLimitDenied increments rate limit reject counts.
func (m *Metrics) RecordRateLimitDenied(endpoint, reason string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.WithLabelValues(normalize(endpoint), normalize(reason)).Inc()
}

func normalize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
