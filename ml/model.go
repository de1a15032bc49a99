package ml

// Classifier is the contract shared by single trees and forests.
type Classifier interface {
	Fit(features [][]float64, labels []int) error
	Predict(features []float64) (int, error)
	PredictProba(features []float64) ([]float64, error)
}

var (
	_ Classifier = (*DecisionTree)(nil)
	_ Classifier = (*RandomForest)(nil)
)
