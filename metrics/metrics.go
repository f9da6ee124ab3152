package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// DiagnosesTotal counts diagnosis runs by outcome.
	DiagnosesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cropadvisor",
		Subsystem: "pipeline",
		Name:      "diagnoses_total",
		Help:      "Total number of diagnosis runs, labeled by result.",
	}, []string{"result"})

	// DiagnosisDurationSeconds is end-to-end time per diagnosis run.
	DiagnosisDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cropadvisor",
		Subsystem: "pipeline",
		Name:      "diagnosis_duration_seconds",
		Help:      "End-to-end time of a diagnosis run (provider call + parse + normalize).",
		// Keep buckets fairly coarse to avoid high-cardinality time series.
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 60, 120},
	}, []string{"result"})

	// StreamUpdatesTotal counts partial updates applied by accumulators.
	StreamUpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cropadvisor",
		Subsystem: "pipeline",
		Name:      "stream_updates_total",
		Help:      "Total number of streamed partial updates merged into snapshots.",
	})

	// PersistenceFailureTotal counts swallowed durable-store write failures.
	PersistenceFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cropadvisor",
		Subsystem: "pipeline",
		Name:      "persistence_failure_total",
		Help:      "Total number of best-effort persistence writes that failed and were logged.",
	})

	// TranslateFallbackTotal counts translation calls that fell back to the original text.
	TranslateFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cropadvisor",
		Subsystem: "pipeline",
		Name:      "translate_fallback_total",
		Help:      "Total number of translation calls that returned the untranslated source text.",
	})

	// WSClients is the current number of connected renderer WebSocket clients.
	WSClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cropadvisor",
		Subsystem: "pipeline",
		Name:      "ws_clients",
		Help:      "Current number of connected WebSocket clients.",
	})
)

// Register registers pipeline metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			DiagnosesTotal,
			DiagnosisDurationSeconds,
			StreamUpdatesTotal,
			PersistenceFailureTotal,
			TranslateFallbackTotal,
			WSClients,
		)
	})
}
