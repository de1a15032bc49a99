package ml

import (
	"errors"
	"fmt"
	"math"
)

// Column names as they appear in the training CSV.
const (
	ColumnRainfall     = "Avg_Rainfall_mm"
	ColumnRiver        = "River_Proximity_km"
	ColumnElevation    = "Elevation_m"
	ColumnFloodCount   = "Historical_Flood_Count"
	ColumnProvince     = "Province"
	ColumnRiskLevel    = "Flood_Risk_Level"
	featureVectorWidth = 5
)

// ErrInvalidValue is returned for a malformed or out-of-range input.
var ErrInvalidValue = errors.New("invalid feature value")

// Sample is one location's raw inputs before encoding.
type Sample struct {
	AvgRainfallMM        float64 `json:"avg_rainfall_mm"`
	RiverProximityKM     float64 `json:"river_proximity_km"`
	ElevationM           float64 `json:"elevation_m"`
	HistoricalFloodCount int     `json:"historical_flood_count"`
	Province             string  `json:"province"`
}

// FeatureNames returns the column order of every feature vector fed to the classifier.
func FeatureNames() []string {
	return []string{
		ColumnRainfall,
		ColumnRiver,
		ColumnElevation,
		ColumnFloodCount,
		ColumnProvince,
	}
}

// Validate checks the numeric fields are finite and non-negative.
func (s Sample) Validate() error {
	values := map[string]float64{
		ColumnRainfall:  s.AvgRainfallMM,
		ColumnRiver:     s.RiverProximityKM,
		ColumnElevation: s.ElevationM,
	}
	for _, name := range FeatureNames()[:3] {
		v := values[name]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidValue, name, v)
		}
	}
	if s.HistoricalFloodCount < 0 {
		return fmt.Errorf("%w: %s=%d", ErrInvalidValue, ColumnFloodCount, s.HistoricalFloodCount)
	}
	return nil
}
