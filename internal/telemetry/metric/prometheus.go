package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "pixelsync"

// Write outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Canvas metrics
	WritesTotal     *prometheus.CounterVec
	BatchSize       prometheus.Histogram
	BroadcastsTotal *prometheus.CounterVec
	SendDropped     prometheus.Counter

	// Epoch metrics
	RolloversTotal prometheus.Counter

	// Storage metrics
	PersistFailures  *prometheus.CounterVec
	SnapshotDuration prometheus.Histogram

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with the process and Go collectors and
// every application metric registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	r := &Registry{
		reg: reg,
		WritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "writes_total",
			Help:      "Cell writes by outcome.",
		}, []string{"outcome"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "batch_size_cells",
			Help:      "Cells per write_batch request.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		BroadcastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "broadcasts_total",
			Help:      "Events fanned out to all sessions, by event name.",
		}, []string{"event"}),
		SendDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "send_dropped_total",
			Help:      "Events dropped because a session's send buffer was full.",
		}),
		RolloversTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "epoch",
			Name:      "rollovers_total",
			Help:      "Completed epoch rollovers.",
		}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "storage",
			Name:      "persist_failures_total",
			Help:      "Persistence failures by operation.",
		}, []string{"op"}),
		SnapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "storage",
			Name:      "snapshot_duration_seconds",
			Help:      "Time spent writing a canvas snapshot.",
			Buckets:   prometheus.DefBuckets,
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		r.WritesTotal,
		r.BatchSize,
		r.BroadcastsTotal,
		r.SendDropped,
		r.RolloversTotal,
		r.PersistFailures,
		r.SnapshotDuration,
		r.RequestsTotal,
		r.RequestDuration,
	)
	return r
}

// Registerer exposes the underlying registry for components that register
// their own collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// Gatherer exposes the underlying registry for scraping and tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}

// ObserveWrites counts n writes with the given outcome.
func (r *Registry) ObserveWrites(outcome string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.WritesTotal.WithLabelValues(outcome).Add(float64(n))
}

// ObserveBatch records the size of a batch request.
func (r *Registry) ObserveBatch(size int) {
	if r == nil {
		return
	}
	r.BatchSize.Observe(float64(size))
}

// ObserveBroadcast counts one fan-out of event.
func (r *Registry) ObserveBroadcast(event string) {
	if r == nil {
		return
	}
	r.BroadcastsTotal.WithLabelValues(event).Inc()
}

// ObserveDropped counts an event a session could not accept.
func (r *Registry) ObserveDropped() {
	if r == nil {
		return
	}
	r.SendDropped.Inc()
}

// ObserveRollover counts a completed rollover.
func (r *Registry) ObserveRollover() {
	if r == nil {
		return
	}
	r.RolloversTotal.Inc()
}

// ObservePersistFailure counts a failed persistence operation.
func (r *Registry) ObservePersistFailure(op string) {
	if r == nil {
		return
	}
	r.PersistFailures.WithLabelValues(op).Inc()
}

// ObserveSnapshot records how long a snapshot took.
func (r *Registry) ObserveSnapshot(d time.Duration) {
	if r == nil {
		return
	}
	r.SnapshotDuration.Observe(d.Seconds())
}

// ObserveRequest records one HTTP request.
func (r *Registry) ObserveRequest(route, code string, d time.Duration) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(route, code).Inc()
	r.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
