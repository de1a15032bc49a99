package ml

import (
	"math/rand"
)

var testProvinces = []string{
	"Bukidnon",
	"Misamis Oriental",
	"Misamis Occidental",
	"Lanao del Norte",
	"Camiguin",
}

// syntheticRows generates rows whose risk level is separable on every
// numeric feature, so any reasonable tree recovers it.
func syntheticRows(n int, seed int64) []Row {
	rng := rand.New(rand.NewSource(seed))
	between := func(lo, hi float64) float64 {
		return lo + rng.Float64()*(hi-lo)
	}
	rows := make([]Row, n)
	for i := range rows {
		var s Sample
		var level string
		switch i % 3 {
		case 0:
			level = "Low"
			s = Sample{
				AvgRainfallMM:        between(0, 30),
				RiverProximityKM:     between(4, 8),
				ElevationM:           between(40, 80),
				HistoricalFloodCount: rng.Intn(2),
			}
		case 1:
			level = "Medium"
			s = Sample{
				AvgRainfallMM:        between(40, 90),
				RiverProximityKM:     between(2.2, 3.8),
				ElevationM:           between(22, 38),
				HistoricalFloodCount: 2 + rng.Intn(3),
			}
		default:
			level = "High"
			s = Sample{
				AvgRainfallMM:        between(100, 150),
				RiverProximityKM:     between(0.3, 2),
				ElevationM:           between(5, 20),
				HistoricalFloodCount: 5 + rng.Intn(6),
			}
		}
		s.Province = testProvinces[rng.Intn(len(testProvinces))]
		rows[i] = Row{Line: i + 2, Sample: s, RiskLevel: level}
	}
	return rows
}

func syntheticMatrix(n int, seed int64) ([][]float64, []int) {
	rows := syntheticRows(n, seed)
	features, labels, err := FixedEncoder().EncodeRows(rows)
	if err != nil {
		panic(err)
	}
	return features, labels
}
