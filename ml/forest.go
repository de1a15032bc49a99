package ml

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultTrees = 200
	DefaultSeed  = 42
)

// RandomForest averages the class distributions of bootstrap-trained trees.
// Training is sequential so a fixed Seed reproduces the same forest.
type RandomForest struct {
	NTrees          int   `json:"n_trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MaxFeatures     int   `json:"max_features"`
	Seed            int64 `json:"seed"`
	NClasses        int   `json:"n_classes"`
	NFeatures       int   `json:"n_features"`

	Trees []*DecisionTree `json:"trees"`
}

// NewRandomForest returns a forest with the training defaults.
func NewRandomForest() *RandomForest {
	return &RandomForest{
		NTrees:          DefaultTrees,
		MinSamplesSplit: 2,
		Seed:            DefaultSeed,
	}
}

func (rf *RandomForest) Fit(features [][]float64, labels []int) error {
	nClasses, err := checkTrainingSet(features, labels, rf.NClasses)
	if err != nil {
		return err
	}
	if rf.NTrees <= 0 {
		rf.NTrees = DefaultTrees
	}
	rf.NClasses = nClasses
	rf.NFeatures = len(features[0])

	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(rf.NFeatures)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	rng := rand.New(rand.NewSource(rf.Seed))
	n := len(features)
	rf.Trees = make([]*DecisionTree, rf.NTrees)
	for t := range rf.Trees {
		tree := &DecisionTree{
			NClasses:        nClasses,
			MaxDepth:        rf.MaxDepth,
			MinSamplesSplit: rf.MinSamplesSplit,
			MaxFeatures:     maxFeatures,
			Seed:            rng.Int63(),
		}
		tree.rng = rand.New(rand.NewSource(tree.Seed))
		sample := make([]int, n)
		for i := range sample {
			sample[i] = tree.rng.Intn(n)
		}
		tree.fitIndices(features, labels, sample)
		rf.Trees[t] = tree
	}
	return nil
}

// PredictProba returns one probability per class; the values sum to 1.
func (rf *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, ErrNotTrained
	}
	if len(features) != rf.NFeatures {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(features), rf.NFeatures)
	}
	proba := make([]float64, rf.NClasses)
	for _, tree := range rf.Trees {
		dist, err := tree.PredictProba(features)
		if err != nil {
			return nil, err
		}
		if len(dist) != rf.NClasses {
			return nil, fmt.Errorf("tree has %d classes, forest has %d", len(dist), rf.NClasses)
		}
		floats.Add(proba, dist)
	}
	floats.Scale(1/floats.Sum(proba), proba)
	return proba, nil
}

// Predict returns the class with the highest averaged probability,
// the lowest class id on ties.
func (rf *RandomForest) Predict(features []float64) (int, error) {
	proba, err := rf.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(proba), nil
}

// PredictBatch predicts every row of features.
func PredictBatch(model Classifier, features [][]float64) ([]int, error) {
	predictions := make([]int, len(features))
	for i, row := range features {
		label, err := model.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		predictions[i] = label
	}
	return predictions, nil
}
