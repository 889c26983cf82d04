package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts payment webhook outcomes.
type WebhookMetrics struct {
	received  *prometheus.CounterVec
	delivered prometheus.Counter
	replayed  prometheus.Counter
	escalated prometheus.Counter
}

// NewWebhookMetrics registers the webhook counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Payment webhook events received, by reported status.",
	}, []string{"status"})
	delivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_deliveries_completed",
		Help: "Orders fulfilled from webhook confirmations.",
	})
	replayed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_replayed",
		Help: "Webhook events ignored because the session had already advanced.",
	})
	escalated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_escalations",
		Help: "Webhook side effects escalated to an operator after retry exhaustion.",
	})
	reg.MustRegister(received, delivered, replayed, escalated)
	return &WebhookMetrics{
		received:  received,
		delivered: delivered,
		replayed:  replayed,
		escalated: escalated,
	}
}

// IncReceived counts one received event with its reported status.
func (w *WebhookMetrics) IncReceived(status string) {
	if w == nil || w.received == nil {
		return
	}
	w.received.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncDelivered counts one completed fulfilment.
func (w *WebhookMetrics) IncDelivered() {
	if w == nil || w.delivered == nil {
		return
	}
	w.delivered.Inc()
}

// IncReplayed counts one replayed (no-op) event.
func (w *WebhookMetrics) IncReplayed() {
	if w == nil || w.replayed == nil {
		return
	}
	w.replayed.Inc()
}

// IncEscalated counts one operator escalation.
func (w *WebhookMetrics) IncEscalated() {
	if w == nil || w.escalated == nil {
		return
	}
	w.escalated.Inc()
}
