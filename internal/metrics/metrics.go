// Package metrics exposes watcher and delivery counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chombot/internal/watch"
)

const namespace = "chombot"

// Metrics owns a private registry so tests and the process never share
// global collector state. It implements watch.Observer and
// delivery.ChunkObserver.
type Metrics struct {
	reg *prometheus.Registry

	cycles        *prometheus.CounterVec
	fetchSeconds  *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	lastSuccess   *prometheus.GaugeVec
	chunks        *prometheus.CounterVec
}

type Option func(*options)

type options struct {
	runtime bool
	buckets []float64
}

// WithRuntimeCollectors adds the Go and process collectors.
func WithRuntimeCollectors() Option { return func(o *options) { o.runtime = true } }

// WithFetchBuckets overrides the fetch duration histogram buckets.
func WithFetchBuckets(b []float64) Option {
	return func(o *options) {
		if len(b) > 0 {
			o.buckets = b
		}
	}
}

func New(opts ...Option) *Metrics {
	o := options{buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}}
	for _, fn := range opts {
		fn(&o)
	}
	reg := prometheus.NewRegistry()
	if o.runtime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "cycles_total",
			Help:      "Poll cycles by watcher and outcome.",
		}, []string{"watcher", "result"}),
		fetchSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "fetch_seconds",
			Help:      "Duration of source fetches.",
			Buckets:   o.buckets,
		}, []string{"watcher"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "notifications_total",
			Help:      "Diffs handed to delivery.",
		}, []string{"watcher"}),
		lastSuccess: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last cycle with a successful fetch.",
		}, []string{"watcher"}),
		chunks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "chunks_total",
			Help:      "Message chunks sent, by result.",
		}, []string{"watcher", "result"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) ObserveCycle(watcher string, r watch.CycleResult) {
	m.cycles.WithLabelValues(watcher, string(r.Outcome)).Inc()
	if r.Outcome == watch.OutcomeAbandoned {
		return
	}
	m.fetchSeconds.WithLabelValues(watcher).Observe(r.Fetch.Seconds())
	switch r.Outcome {
	case watch.OutcomeNotified, watch.OutcomeNotifyFailed:
		m.notifications.WithLabelValues(watcher).Inc()
	}
	if r.Outcome != watch.OutcomeFetchFailed {
		m.lastSuccess.WithLabelValues(watcher).Set(float64(time.Now().Unix()))
	}
}

func (m *Metrics) ObserveChunk(watcher string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.chunks.WithLabelValues(watcher, result).Inc()
}
