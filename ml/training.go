package ml

import (
	"fmt"
	"time"
)

const (
	EncodingFitted = "fitted"
	EncodingFixed  = "fixed"
)

type TrainingConfig struct {
	Trees     int
	MaxDepth  int
	Seed      int64
	TestRatio float64
	// Encoding selects EncodingFitted (sorted column values) or
	// EncodingFixed (the survey form's hand-written tables).
	Encoding string
}

// DefaultTrainingConfig mirrors the reference training run: 200 trees,
// unlimited depth, seed 42, 20% held out.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Trees:     DefaultTrees,
		Seed:      DefaultSeed,
		TestRatio: 0.2,
		Encoding:  EncodingFitted,
	}
}

// TrainingResult carries the artifact plus the held-out split it was scored on.
type TrainingResult struct {
	Artifact *Artifact
	TrainX   [][]float64
	TrainY   []int
	TestX    [][]float64
	TestY    []int
}

// Train encodes rows, splits them with stratification, fits a forest on the
// training part and scores it on the rest.
func Train(rows []Row, config TrainingConfig) (*TrainingResult, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}

	var encoder *Encoder
	switch config.Encoding {
	case "", EncodingFitted:
		fitted, err := FitEncoder(rows)
		if err != nil {
			return nil, err
		}
		encoder = fitted
		config.Encoding = EncodingFitted
	case EncodingFixed:
		encoder = FixedEncoder()
	default:
		return nil, fmt.Errorf("unsupported encoding %q", config.Encoding)
	}

	features, labels, err := encoder.EncodeRows(rows)
	if err != nil {
		return nil, err
	}

	trainIdx, testIdx, err := StratifiedSplit(labels, config.TestRatio, config.Seed)
	if err != nil {
		return nil, err
	}
	trainX, trainY := Subset(features, labels, trainIdx)
	testX, testY := Subset(features, labels, testIdx)

	forest := NewRandomForest()
	forest.NClasses = encoder.Labels.Len()
	forest.MaxDepth = config.MaxDepth
	forest.Seed = config.Seed
	if config.Trees > 0 {
		forest.NTrees = config.Trees
	}
	if err := forest.Fit(trainX, trainY); err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}

	evaluation, err := Evaluate(forest, testX, testY, encoder.Labels.Names)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	return &TrainingResult{
		Artifact: &Artifact{
			Version:      artifactVersion,
			FeatureNames: FeatureNames(),
			Encoding:     config.Encoding,
			Encoder:      encoder,
			Forest:       forest,
			TrainedAt:    time.Now().UTC(),
			DataPoints:   len(rows),
			Evaluation:   evaluation,
		},
		TrainX: trainX,
		TrainY: trainY,
		TestX:  testX,
		TestY:  testY,
	}, nil
}
