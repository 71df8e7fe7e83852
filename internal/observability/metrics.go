package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "thinkbank"
	subsystem = "worker"

	outcomeLabel = "outcome"
	kindLabel    = "kind"
	stepLabel    = "step"
)

const (
	OutcomeCompleted   = "completed"
	OutcomeUnsupported = "unsupported"
	OutcomeFailed      = "failed"
	OutcomeDropped     = "dropped"
	OutcomeRefused     = "refused"
)

// Metrics holds the worker's collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	processed  *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	fallbacks  *prometheus.CounterVec
	recovered  prometheus.Counter
	loopErrors prometheus.Counter
	queueDepth prometheus.Gauge
	inflight   prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "assets_processed_total",
			Help:      "Assets handled by outcome and pipeline kind.",
		}, []string{outcomeLabel, kindLabel}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "asset_duration_seconds",
			Help:      "Wall time from claim to terminal status.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{kindLabel}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "step_fallbacks_total",
			Help:      "Best-effort pipeline steps that used their fallback.",
		}, []string{stepLabel}),
		recovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "recovered_tasks_total",
			Help:      "Task ids re-enqueued by startup recovery.",
		}),
		loopErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "loop_errors_total",
			Help:      "Queue errors seen by the consume loop.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_depth",
			Help:      "Task queue length at the last sample.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "inflight_assets",
			Help:      "Assets currently being processed.",
		}),
	}
	m.registry.MustRegister(
		m.processed, m.duration, m.fallbacks, m.recovered, m.loopErrors, m.queueDepth, m.inflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveAsset(kind, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.processed.With(prometheus.Labels{outcomeLabel: outcome, kindLabel: kind}).Inc()
	m.duration.With(prometheus.Labels{kindLabel: kind}).Observe(took.Seconds())
}

func (m *Metrics) IncFallback(step string) {
	if m == nil {
		return
	}
	m.fallbacks.With(prometheus.Labels{stepLabel: step}).Inc()
}

func (m *Metrics) AddRecovered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recovered.Add(float64(n))
}

func (m *Metrics) IncLoopError() {
	if m == nil {
		return
	}
	m.loopErrors.Inc()
}

func (m *Metrics) SetQueueDepth(n int64) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) InflightInc() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) InflightDec() {
	if m == nil {
		return
	}
	m.inflight.Dec()
}
