// Package metrics provides Prometheus metrics for the relay and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ther_assist"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionDuration prometheus.Histogram

	// Audio metrics
	AudioChunksReceived prometheus.Counter
	AudioChunksDropped  prometheus.Counter
	AudioBytesReceived  prometheus.Counter

	// Recognition metrics
	TranscriptEvents *prometheus.CounterVec
	ProviderErrors   prometheus.Counter

	// HTTP API metrics
	GenerateRequests *prometheus.CounterVec
	StorageRequests  *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
// Tests pass a fresh prometheus.NewRegistry() to stay isolated.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of transcription sessions opened",
		}),
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active transcription sessions",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of transcription sessions in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 300, 900, 1800, 3600},
		}),

		AudioChunksReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_received_total",
			Help:      "Total audio chunks received from clients",
		}),
		AudioChunksDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_dropped_total",
			Help:      "Total audio chunks dropped because the ingress queue was full",
		}),
		AudioBytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received from clients",
		}),

		TranscriptEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_events_total",
			Help:      "Total transcript events produced, by kind",
		}, []string{"kind"}),
		ProviderErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Total unrecoverable speech provider errors",
		}),

		GenerateRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generate_requests_total",
			Help:      "Total generation requests, by mode and outcome",
		}, []string{"mode", "status"}),
		StorageRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_requests_total",
			Help:      "Total object storage requests, by endpoint and status code",
		}, []string{"endpoint", "code"}),
	}
}
