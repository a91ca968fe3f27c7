// Package metrics exposes Prometheus instrumentation for the decision cycle.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coachd"

// Recorder owns the collectors and the registry they are registered on.
type Recorder struct {
	registry *prometheus.Registry

	decisions     *prometheus.CounterVec
	duration      prometheus.Histogram
	finalModifier *prometheus.GaugeVec
	fetchErrors   *prometheus.CounterVec
	alerts        *prometheus.CounterVec
}

// New builds a Recorder on a private registry that also carries the Go and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Decision cycles by outcome status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_duration_seconds",
			Help:      "Wall time of one decision cycle including fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		finalModifier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "final_modifier",
			Help:      "Most recent final intensity modifier per athlete.",
		}, []string{"athlete"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Upstream fetch failures by data source.",
		}, []string{"source"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts dispatched by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.decisions,
		r.duration,
		r.finalModifier,
		r.fetchErrors,
		r.alerts,
	)
	return r
}

// ObserveDecision records one finished cycle.
func (r *Recorder) ObserveDecision(athlete, status string, finalModifier float64, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(status).Inc()
	r.duration.Observe(elapsed.Seconds())
	r.finalModifier.WithLabelValues(athlete).Set(finalModifier)
}

// FetchFailed counts a failed upstream fetch.
func (r *Recorder) FetchFailed(source string) {
	if r == nil {
		return
	}
	r.fetchErrors.WithLabelValues(source).Inc()
}

// AlertSent counts a dispatched alert.
func (r *Recorder) AlertSent(kind string) {
	if r == nil {
		return
	}
	r.alerts.WithLabelValues(kind).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
