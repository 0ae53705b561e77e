// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "live_transcriber"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsStarted  prometheus.Counter
	SessionsActive   prometheus.Gauge
	AutoRestarts     prometheus.Counter
	RestartFailures  prometheus.Counter
	StateTransitions *prometheus.CounterVec
	DeliveryErrors   *prometheus.CounterVec

	// Transcript metrics
	Batches          prometheus.Counter
	SegmentsFinal    prometheus.Counter
	SegmentsInterim  prometheus.Counter
	InterimClears    prometheus.Counter
	TranscriptLength prometheus.Gauge

	// Control metrics
	CopyTotal *prometheus.CounterVec

	// Recognition engine metrics
	EngineStreams       *prometheus.CounterVec
	EngineStreamLatency *prometheus.HistogramVec
	EngineRPCs          *prometheus.CounterVec

	// Display metrics
	DisplayPublishTotal   *prometheus.CounterVec
	DisplayPublishErrors  *prometheus.CounterVec
	DisplayPublishLatency *prometheus.HistogramVec
	DisplayClients        prometheus.Gauge
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of user-initiated listening sessions",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "1 while the controller is listening",
		}),
		AutoRestarts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auto_restarts_total",
			Help:      "Total number of automatic restarts after a natural end of session",
		}),
		RestartFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auto_restart_failures_total",
			Help:      "Total number of automatic restarts the engine rejected",
		}),
		StateTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Session state transitions",
		}, []string{"from", "to"}),
		DeliveryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_errors_total",
			Help:      "Errors reported by the recognition engine",
		}, []string{"kind"}),

		Batches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of result batches applied",
		}),
		SegmentsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_final_total",
			Help:      "Total number of final segments received",
		}),
		SegmentsInterim: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_interim_total",
			Help:      "Total number of interim segments received",
		}),
		InterimClears: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interim_clears_total",
			Help:      "Interim text cleared by the debounce timer",
		}),
		TranscriptLength: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transcript_committed_bytes",
			Help:      "Length of the committed transcript",
		}),

		CopyTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "copy_total",
			Help:      "Clipboard copy attempts",
		}, []string{"result"}),

		EngineStreams: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_streams_total",
			Help:      "Recognition streams opened",
		}, []string{"method", "code"}),
		EngineStreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_stream_open_seconds",
			Help:      "Time to open a recognition stream",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method"}),
		EngineRPCs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_rpcs_total",
			Help:      "Unary calls made by recognition engines",
		}, []string{"method", "code"}),

		DisplayPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_publish_total",
			Help:      "Display updates published",
		}, []string{"sink", "event_type"}),
		DisplayPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_publish_errors_total",
			Help:      "Display updates that failed to publish",
		}, []string{"sink", "event_type"}),
		DisplayPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "display_publish_latency_seconds",
			Help:      "Display publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"sink"}),
		DisplayClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "display_clients",
			Help:      "Connected websocket display clients",
		}),
	}
}

// RecordSessionStart records a user-initiated session.
func (m *Metrics) RecordSessionStart() {
	m.SessionsStarted.Inc()
}

// RecordListening sets the active gauge.
func (m *Metrics) RecordListening(active bool) {
	if active {
		m.SessionsActive.Set(1)
	} else {
		m.SessionsActive.Set(0)
	}
}

// RecordAutoRestart records an automatic restart attempt.
func (m *Metrics) RecordAutoRestart(err error) {
	m.AutoRestarts.Inc()
	if err != nil {
		m.RestartFailures.Inc()
	}
}

// RecordTransition records a state transition.
func (m *Metrics) RecordTransition(from, to string) {
	m.StateTransitions.WithLabelValues(from, to).Inc()
}

// RecordDeliveryError records an engine-reported error.
func (m *Metrics) RecordDeliveryError(kind string) {
	m.DeliveryErrors.WithLabelValues(kind).Inc()
}

// RecordBatch records an applied batch and its segments.
func (m *Metrics) RecordBatch(finals, interims, committedBytes int) {
	m.Batches.Inc()
	m.SegmentsFinal.Add(float64(finals))
	m.SegmentsInterim.Add(float64(interims))
	m.TranscriptLength.Set(float64(committedBytes))
}

// RecordInterimClear records a debounce-driven interim clear.
func (m *Metrics) RecordInterimClear() {
	m.InterimClears.Inc()
}

// RecordCopy records a clipboard copy attempt.
func (m *Metrics) RecordCopy(err error) {
	if err != nil {
		m.CopyTotal.WithLabelValues("failure").Inc()
		return
	}
	m.CopyTotal.WithLabelValues("success").Inc()
}

// RecordEngineStream records a recognition stream open attempt.
func (m *Metrics) RecordEngineStream(method, code string, latencySeconds float64) {
	m.EngineStreams.WithLabelValues(method, code).Inc()
	m.EngineStreamLatency.WithLabelValues(method).Observe(latencySeconds)
}

// RecordEngineRPC records a unary engine call.
func (m *Metrics) RecordEngineRPC(method, code string) {
	m.EngineRPCs.WithLabelValues(method, code).Inc()
}

// RecordDisplayPublish records a display update publish attempt.
func (m *Metrics) RecordDisplayPublish(sink, eventType string, err error, latencySeconds float64) {
	m.DisplayPublishTotal.WithLabelValues(sink, eventType).Inc()
	m.DisplayPublishLatency.WithLabelValues(sink).Observe(latencySeconds)
	if err != nil {
		m.DisplayPublishErrors.WithLabelValues(sink, eventType).Inc()
	}
}

// RecordDisplayClients sets the connected client gauge.
func (m *Metrics) RecordDisplayClients(n int) {
	m.DisplayClients.Set(float64(n))
}
