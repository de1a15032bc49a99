package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ModelLoaded.Set(1)
	m.ObservePrediction("High", "api", time.Now())

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"floodrisk_predictions_total", "floodrisk_model_loaded", "floodrisk_prediction_duration_seconds"} {
		if !names[want] {
			t.Fatalf("expected %s to be registered, got %v", want, names)
		}
	}
}

func TestObserve(t *testing.T) {
	m := NewMetricsForTesting()
	m.ObservePrediction("Low", "form", time.Now())
	m.ObservePrediction("Low", "form", time.Now())
	m.ObserveError(ReasonUnknown)

	if got := testutil.ToFloat64(m.PredictionsTotal.WithLabelValues("Low", "form")); got != 2 {
		t.Fatalf("expected 2 predictions, got %v", got)
	}
	if got := testutil.ToFloat64(m.PredictionErrors.WithLabelValues(ReasonUnknown)); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
}
