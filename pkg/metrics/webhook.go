package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts carrier webhook ingestion outcomes per carrier.
type WebhookMetrics struct {
	received   *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	rejected   *prometheus.CounterVec
}

// NewWebhookMetrics registers webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "carrier_webhook_received_total",
		Help: "Carrier webhook deliveries received.",
	}, []string{"carrier"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "carrier_webhook_duplicates_total",
		Help: "Carrier webhook deliveries dropped as already applied.",
	}, []string{"carrier"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "carrier_webhook_rejected_total",
		Help: "Carrier webhook deliveries acknowledged without state change.",
	}, []string{"carrier"})
	reg.MustRegister(received, duplicates, rejected)
	return &WebhookMetrics{received: received, duplicates: duplicates, rejected: rejected}
}

// IncReceived counts one delivery from the named carrier.
func (m *WebhookMetrics) IncReceived(carrier string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(carrier).Inc()
}

// IncDuplicate counts one already-applied delivery.
func (m *WebhookMetrics) IncDuplicate(carrier string) {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.WithLabelValues(carrier).Inc()
}

// IncRejected counts one acknowledged-but-ignored delivery.
func (m *WebhookMetrics) IncRejected(carrier string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(carrier).Inc()
}
