package db

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := InitDB(filepath.Join(t.TempDir(), "floodrisk.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTrainingLog(t *testing.T) {
	store := openTestStore(t)
	older := TrainingLog{ModelName: "random_forest", Trees: 200, Seed: 42, Accuracy: 0.91, TrainedAt: time.Now().Add(-time.Hour), DataPoints: 500}
	newer := TrainingLog{ModelName: "random_forest", Trees: 100, Seed: 7, Accuracy: 0.95, Encoding: "fixed", TrainedAt: time.Now(), DataPoints: 600}
	for _, log := range []TrainingLog{older, newer} {
		if err := store.SaveTrainingLog(log); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	logs, err := store.LoadTrainingLog()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if logs[0].Trees != 100 || logs[0].Encoding != "fixed" || logs[0].DataPoints != 600 {
		t.Fatalf("expected newest run first, got %+v", logs[0])
	}
}

func TestPredictions(t *testing.T) {
	store := openTestStore(t)
	record := PredictionRecord{
		Province:             "Misamis Oriental",
		Municipality:         "Opol",
		AvgRainfallMM:        100,
		RiverProximityKM:     1,
		ElevationM:           10,
		HistoricalFloodCount: 5,
		Label:                "High",
		ClassID:              0,
		Probabilities:        map[string]float64{"High": 0.8, "Low": 0.05, "Medium": 0.15},
		Source:               "survey",
	}
	if err := store.SavePrediction(record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := store.RecentPredictions(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.Municipality != "Opol" || got.Label != "High" || got.Probabilities["High"] != 0.8 || got.Source != "survey" {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}
}

func TestSavePredictionValidation(t *testing.T) {
	store := openTestStore(t)
	if err := store.SavePrediction(PredictionRecord{Label: "Low"}); err == nil {
		t.Fatal("expected error without province")
	}
}

func TestInitDBRequiresPath(t *testing.T) {
	if _, err := InitDB(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
