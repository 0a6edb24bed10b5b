package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes panel counters to Prometheus. Each instance owns its registry
// so several servers can live in one process.
type Metrics struct {
	registry    *prometheus.Registry
	submissions *prometheus.CounterVec
	openPanels  prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "faceswap_submissions_total",
				Help: "Face swap submissions by outcome",
			},
			[]string{"outcome"},
		),
		openPanels: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "faceswap_panels_open",
				Help: "Number of open face swap panels",
			},
		),
	}

	m.registry.MustRegister(m.submissions)
	m.registry.MustRegister(m.openPanels)
	return m
}

func (m *Metrics) PanelOpened() { m.openPanels.Inc() }

func (m *Metrics) PanelClosed() { m.openPanels.Dec() }

func (m *Metrics) Submission(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
