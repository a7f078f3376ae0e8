// Package metrics provides Prometheus metrics for the skiptrack daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/skiptrack/internal/logic"
)

// defaultMagnitudeBuckets spans resting (~0g) to hard landings (~6g).
var defaultMagnitudeBuckets = []float64{0.25, 0.5, 1, 1.5, 1.8, 2, 2.5, 3, 4, 6}

// Manager owns the daemon's metrics and the registry they live on.
// Safe for concurrent use.
type Manager struct {
	namespace        string
	subsystem        string
	magnitudeBuckets []float64
	registry         *prometheus.Registry

	samples   prometheus.Counter
	verdicts  *prometheus.CounterVec
	magnitude prometheus.Histogram
	jumps     *prometheus.CounterVec

	sourceFallbacks prometheus.Counter
	sourceErrors    prometheus.Counter
	sourceDegraded  prometheus.Gauge

	workouts      *prometheus.CounterVec
	workoutActive prometheus.Gauge
	workoutJumps  prometheus.Histogram

	publishErrors *prometheus.CounterVec
}

// NewManager creates a manager on a fresh registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "skiptrack",
		magnitudeBuckets: defaultMagnitudeBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.samples = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "samples_total",
		Help:      "Total number of acceleration samples read from the active source",
	})

	m.verdicts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "detector_verdicts_total",
		Help:      "Detector outcomes by verdict",
	}, []string{"verdict"})

	m.magnitude = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sample_magnitude_g",
		Help:      "Magnitude of samples evaluated while the detector is active",
		Buckets:   m.magnitudeBuckets,
	})

	m.jumps = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "jumps_total",
		Help:      "Accepted jump events by origin",
	}, []string{"origin"})

	m.sourceFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "source_fallbacks_total",
		Help:      "Number of times a failing motion source was abandoned",
	})

	m.sourceErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "source_read_errors_total",
		Help:      "Failed sample reads, including reads while no source is available",
	})

	m.sourceDegraded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "source_degraded",
		Help:      "1 when every motion source is exhausted",
	})

	m.workouts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "workouts_total",
		Help:      "Finished workouts by plan",
	}, []string{"plan"})

	m.workoutActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "workout_active",
		Help:      "1 while a workout is running",
	})

	m.workoutJumps = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "workout_jumps",
		Help:      "Jumps per finished workout",
		Buckets:   prometheus.ExponentialBuckets(25, 2, 8),
	})

	m.publishErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publish_errors_total",
		Help:      "Failed MQTT publishes by message kind",
	}, []string{"kind"})
}

// Registry returns the registry the metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveResult records one detector outcome. Inactive results carry no
// magnitude and stay out of the histogram.
func (m *Manager) ObserveResult(r logic.Result) {
	m.samples.Inc()
	m.verdicts.WithLabelValues(string(r.Verdict)).Inc()
	if r.Verdict != logic.VerdictInactive {
		m.magnitude.Observe(r.Magnitude)
	}
}

// JumpDetected counts an accepted event. It implements logic.Observer.
func (m *Manager) JumpDetected(ev logic.Event) {
	m.jumps.WithLabelValues(string(ev.Origin)).Inc()
}

// SourceError counts a failed read.
func (m *Manager) SourceError() {
	m.sourceErrors.Inc()
}

// SourceFallbacks adds n abandoned sources.
func (m *Manager) SourceFallbacks(n int) {
	if n > 0 {
		m.sourceFallbacks.Add(float64(n))
	}
}

// SetDegraded reports whether every motion source is exhausted.
func (m *Manager) SetDegraded(degraded bool) {
	m.sourceDegraded.Set(boolGauge(degraded))
}

// WorkoutStarted marks a workout as running.
func (m *Manager) WorkoutStarted() {
	m.workoutActive.Set(1)
}

// WorkoutStopped records a finished workout. Free workouts use plan "free".
func (m *Manager) WorkoutStopped(plan string, jumps int) {
	if plan == "" {
		plan = "free"
	}
	m.workoutActive.Set(0)
	m.workouts.WithLabelValues(plan).Inc()
	m.workoutJumps.Observe(float64(jumps))
}

// PublishError counts a failed publish of the given kind ("jump" or "system").
func (m *Manager) PublishError(kind string) {
	m.publishErrors.WithLabelValues(kind).Inc()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
