package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters. A nil *Metrics is valid and records
// nothing, so tests can skip metric wiring.
type Metrics struct {
	registry *prometheus.Registry

	notificationsReceived *prometheus.CounterVec
	enrichmentOutcomes    *prometheus.CounterVec
	playAPICalls          *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		notificationsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subwatch_notifications_received_total",
			Help: "Notifications stored, by transport source.",
		}, []string{"source"}),
		enrichmentOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subwatch_enrichments_total",
			Help: "Enrichment results, by status.",
		}, []string{"status"}),
		playAPICalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subwatch_play_api_requests_total",
			Help: "Play Developer API lookups, by version and outcome.",
		}, []string{"version", "outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) NotificationReceived(source string) {
	if m == nil {
		return
	}
	m.notificationsReceived.WithLabelValues(source).Inc()
}

func (m *Metrics) EnrichmentOutcome(status string) {
	if m == nil {
		return
	}
	m.enrichmentOutcomes.WithLabelValues(status).Inc()
}

func (m *Metrics) PlayAPICall(version, outcome string) {
	if m == nil {
		return
	}
	m.playAPICalls.WithLabelValues(version, outcome).Inc()
}
