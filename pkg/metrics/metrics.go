// Package metrics holds the Prometheus collectors of a node.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultAccepted  = "accepted"
	ResultRejected  = "rejected"
	ResultMalformed = "malformed"
	ResultFailed    = "failed"
	ResultSent      = "sent"

	OutcomeFound = "found"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Metrics groups the collectors of one node. Each instance owns its
// registry, so several nodes can live in one process. All methods are safe
// on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	ProbesTotal   *prometheus.CounterVec
	ScansTotal    *prometheus.CounterVec
	ScanDuration  prometheus.Histogram
	CommandsTotal *prometheus.CounterVec
	CommandsSent  *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ProbesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Liveness probes sent during subnet scans",
		}, []string{"alive"}),
		ScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Completed subnet scans by outcome",
		}, []string{"outcome"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall clock time of a subnet scan",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_received_total",
			Help:      "Commands received on the submission endpoint by result",
		}, []string{"result"}),
		CommandsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_sent_total",
			Help:      "Signed commands submitted to peers by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveProbe(alive bool) {
	if m == nil {
		return
	}
	label := "false"
	if alive {
		label = "true"
	}
	m.ProbesTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveScan(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(outcome).Inc()
	m.ScanDuration.Observe(took.Seconds())
}

func (m *Metrics) ObserveCommand(result string) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSent(result string) {
	if m == nil {
		return
	}
	m.CommandsSent.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
