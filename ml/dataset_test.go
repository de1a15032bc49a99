package ml

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = "Province,Flood_Risk_Level,Avg_Rainfall_mm,River_Proximity_km,Elevation_m,Historical_Flood_Count\n" +
	"Bukidnon,High,120.5,0.8,12,7\n" +
	"Camiguin,Low,10,6.2,75,0\n" +
	"Misamis Oriental,Medium,55,3,30,3\n"

func TestReadDataset(t *testing.T) {
	rows, err := ReadDataset(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	first := rows[0]
	if first.Line != 2 || first.RiskLevel != "High" || first.Sample.Province != "Bukidnon" {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if first.Sample.AvgRainfallMM != 120.5 || first.Sample.HistoricalFloodCount != 7 {
		t.Fatalf("unexpected numeric fields: %+v", first.Sample)
	}
}

func TestReadDatasetStripsBOMAndReordersColumns(t *testing.T) {
	csv := "\ufeffElevation_m,Province,Historical_Flood_Count,Notes,Avg_Rainfall_mm,River_Proximity_km,Flood_Risk_Level\n" +
		"40,Lanao del Norte,1,inland,20,5,Low\n"
	rows, err := ReadDataset(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := rows[0].Sample
	if s.ElevationM != 40 || s.Province != "Lanao del Norte" || s.AvgRainfallMM != 20 || s.RiverProximityKM != 5 {
		t.Fatalf("unexpected sample: %+v", s)
	}
}

func TestReadDatasetErrors(t *testing.T) {
	header := "Province,Flood_Risk_Level,Avg_Rainfall_mm,River_Proximity_km,Elevation_m,Historical_Flood_Count\n"
	tests := []struct {
		name string
		csv  string
		want error
	}{
		{"empty", "", ErrEmptyDataset},
		{"header only", header, ErrEmptyDataset},
		{"missing column", "Province,Flood_Risk_Level,Avg_Rainfall_mm\nBukidnon,Low,1\n", ErrMissingColumn},
		{"not a number", header + "Bukidnon,Low,abc,1,1,1\n", ErrInvalidValue},
		{"negative", header + "Bukidnon,Low,10,-1,1,1\n", ErrInvalidValue},
		{"fractional flood count", header + "Bukidnon,Low,10,1,1,1.5\n", ErrInvalidValue},
		{"empty label", header + "Bukidnon,,10,1,1,1\n", ErrInvalidValue},
		{"wrong case label", header + "Bukidnon,low,10,1,1,1\n", ErrUnknownCategory},
		{"unknown label", header + "Bukidnon,Severe,10,1,1,1\n", ErrUnknownCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadDataset(strings.NewReader(tt.csv)); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestReadDatasetRejectsLabelOutsideRiskLevels(t *testing.T) {
	csv := sampleCSV + "Camiguin,Severe,10,6.2,75,0\n"
	_, err := ReadDataset(strings.NewReader(csv))
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 5") || !strings.Contains(err.Error(), "Severe") {
		t.Fatalf("expected line and label in error, got %v", err)
	}
}

func TestReadDatasetReportsPhysicalLine(t *testing.T) {
	csv := "Province,Flood_Risk_Level,Avg_Rainfall_mm,River_Proximity_km,Elevation_m,Historical_Flood_Count,Notes\n" +
		"Bukidnon,Low,10,1,1,1,\"spans\ntwo lines\"\n" +
		"Bukidnon,Low,abc,1,1,1,bad\n"
	_, err := ReadDataset(strings.NewReader(csv))
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 4") {
		t.Fatalf("expected error on line 4, got %v", err)
	}
}

func TestLoadDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flood.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if _, err := LoadDataset(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
