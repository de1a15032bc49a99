package http

import (
	"math"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var highRiskSurvey = map[string]string{
	"rainfall":    "Continuous rain",
	"river":       "Overflowing",
	"flood_prone": "Always floods",
	"drainage":    "Clogged",
}

func TestAPIPredictSurvey(t *testing.T) {
	s := newTestServer(t)
	rr := s.postJSON(t, "/api/predict", map[string]any{
		"mode":         "survey",
		"survey":       highRiskSurvey,
		"province":     "Misamis Oriental",
		"municipality": "Opol",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp PredictResponse
	decode(t, rr, &resp)
	if resp.Label != "High" {
		t.Fatalf("expected High, got %s", resp.Label)
	}
	if len(resp.Probabilities) != 3 {
		t.Fatalf("expected 3 probabilities, got %d", len(resp.Probabilities))
	}
	sum := 0.0
	for _, p := range resp.Probabilities {
		sum += p.Probability
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities sum to %v", sum)
	}
	if resp.Marker == nil || resp.Marker.Color != "red" || resp.Marker.Popup != "Opol - High" {
		t.Fatalf("unexpected marker %+v", resp.Marker)
	}
	if got := testutil.ToFloat64(s.metrics.PredictionsTotal.WithLabelValues("High", "api")); got != 1 {
		t.Fatalf("expected 1 counted prediction, got %v", got)
	}

	records, err := s.store.RecentPredictions(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Municipality != "Opol" || records[0].Source != "api" {
		t.Fatalf("unexpected history %+v", records)
	}
}

func TestAPIPredictNumeric(t *testing.T) {
	s := newTestServer(t)
	rr := s.postJSON(t, "/api/predict", map[string]any{
		"mode": "numeric",
		"features": map[string]any{
			"avg_rainfall_mm":        12,
			"river_proximity_km":     8,
			"elevation_m":            205,
			"historical_flood_count": 0,
		},
		"province": "Camiguin",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp PredictResponse
	decode(t, rr, &resp)
	if resp.Label != "Low" {
		t.Fatalf("expected Low, got %s", resp.Label)
	}
	if resp.Marker != nil {
		t.Fatalf("expected no marker without municipality, got %+v", resp.Marker)
	}
}

func TestAPIPredictRejects(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"bad json", `{"mode":`},
		{"missing mode", map[string]any{"survey": highRiskSurvey, "province": "Bukidnon"}},
		{"unknown mode", map[string]any{"mode": "guess", "province": "Bukidnon"}},
		{"survey missing", map[string]any{"mode": "survey", "province": "Bukidnon"}},
		{"features missing", map[string]any{"mode": "numeric", "province": "Bukidnon"}},
		{"missing province", map[string]any{"mode": "survey", "survey": highRiskSurvey}},
		{"unknown province", map[string]any{"mode": "survey", "survey": highRiskSurvey, "province": "Atlantis"}},
		{"unknown answer", map[string]any{"mode": "survey", "province": "Bukidnon", "survey": map[string]string{
			"rainfall": "Hail", "river": "Normal", "flood_prone": "Not flood-prone", "drainage": "Good",
		}}},
		{"negative rainfall", map[string]any{"mode": "numeric", "province": "Bukidnon", "features": map[string]any{
			"avg_rainfall_mm": -1, "river_proximity_km": 1, "elevation_m": 1, "historical_flood_count": 0,
		}}},
		{"municipality outside province", map[string]any{"mode": "survey", "survey": highRiskSurvey,
			"province": "Bukidnon", "municipality": "Opol"}},
	}

	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.postJSON(t, "/api/predict", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var body map[string]string
			decode(t, rr, &body)
			if body["error"] == "" {
				t.Fatal("expected an error message")
			}
		})
	}

	records, err := s.store.RecentPredictions(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("rejected requests must not be recorded, got %d", len(records))
	}
}

func TestHistoryEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.postJSON(t, "/api/predict", map[string]any{"mode": "survey", "survey": highRiskSurvey, "province": "Bukidnon"})

	rr := s.get(t, "/api/predictions?limit=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body struct {
		Data []map[string]any `json:"data"`
	}
	decode(t, rr, &body)
	if len(body.Data) != 1 || body.Data[0]["label"] != "High" {
		t.Fatalf("unexpected history %+v", body.Data)
	}
}
