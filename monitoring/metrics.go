package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Error reasons recorded on PredictionErrors.
const (
	ReasonBadRequest = "bad_request"
	ReasonUnknown    = "unknown_category"
	ReasonInvalid    = "invalid_value"
	ReasonInternal   = "internal"
)

// Metrics holds the Prometheus collectors for the prediction service.
type Metrics struct {
	PredictionsTotal   *prometheus.CounterVec // labels: label, source={form,api}
	PredictionErrors   *prometheus.CounterVec // labels: reason
	PredictionDuration prometheus.Histogram
	ModelLoaded        prometheus.Gauge
	TrainedDataPoints  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.PredictionsTotal,
		m.PredictionErrors,
		m.PredictionDuration,
		m.ModelLoaded,
		m.TrainedDataPoints,
	)
	return m
}

// NewMetricsForTesting creates unregistered collectors so tests can build
// as many servers as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PredictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodrisk",
			Name:      "predictions_total",
			Help:      "Predictions served by predicted risk level and entry point.",
		}, []string{"label", "source"}),
		PredictionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodrisk",
			Name:      "prediction_errors_total",
			Help:      "Rejected or failed prediction requests by reason.",
		}, []string{"reason"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "floodrisk",
			Name:      "prediction_duration_seconds",
			Help:      "Time spent encoding and classifying one input.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		ModelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "floodrisk",
			Name:      "model_loaded",
			Help:      "1 when a model artifact is loaded, 0 otherwise.",
		}),
		TrainedDataPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "floodrisk",
			Name:      "model_data_points",
			Help:      "Rows in the dataset the loaded model was trained on.",
		}),
	}
}

// ObservePrediction records one successful prediction.
func (m *Metrics) ObservePrediction(label, source string, started time.Time) {
	m.PredictionsTotal.WithLabelValues(label, source).Inc()
	m.PredictionDuration.Observe(time.Since(started).Seconds())
}

// ObserveError records one failed prediction.
func (m *Metrics) ObserveError(reason string) {
	m.PredictionErrors.WithLabelValues(reason).Inc()
}
