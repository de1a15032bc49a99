package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

const artifactVersion = 1

// ErrSchemaMismatch is returned for an artifact this build cannot serve.
var ErrSchemaMismatch = errors.New("model schema mismatch")

// Artifact is the persisted model: the fitted forest together with the
// encoding tables and feature order it was trained with.
type Artifact struct {
	Version      int           `json:"version"`
	FeatureNames []string      `json:"feature_names"`
	Encoding     string        `json:"encoding"`
	Encoder      *Encoder      `json:"encoder"`
	Forest       *RandomForest `json:"forest"`
	TrainedAt    time.Time     `json:"trained_at"`
	DataPoints   int           `json:"data_points"`
	Evaluation   *Evaluation   `json:"evaluation,omitempty"`
}

// ClassProbability pairs a class name with the model's confidence in it.
type ClassProbability struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Prediction is one classified sample. Probabilities are in label id order.
type Prediction struct {
	ClassID       int                `json:"class_id"`
	Label         string             `json:"label"`
	Probabilities []ClassProbability `json:"probabilities"`
	Features      []float64          `json:"features"`
}

// Predict encodes s with the artifact's own tables and classifies it.
func (a *Artifact) Predict(s Sample) (*Prediction, error) {
	vector, err := a.Encoder.Encode(s)
	if err != nil {
		return nil, err
	}
	proba, err := a.Forest.PredictProba(vector)
	if err != nil {
		return nil, err
	}
	classID, err := a.Forest.Predict(vector)
	if err != nil {
		return nil, err
	}
	label, err := a.Encoder.LabelName(classID)
	if err != nil {
		return nil, err
	}
	probabilities := make([]ClassProbability, len(proba))
	for i, p := range proba {
		name, err := a.Encoder.LabelName(i)
		if err != nil {
			return nil, err
		}
		probabilities[i] = ClassProbability{Label: name, Probability: p}
	}
	return &Prediction{
		ClassID:       classID,
		Label:         label,
		Probabilities: probabilities,
		Features:      vector,
	}, nil
}

// Validate checks the artifact is usable with this build's feature order.
func (a *Artifact) Validate() error {
	if a.Version != artifactVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrSchemaMismatch, a.Version, artifactVersion)
	}
	if !slices.Equal(a.FeatureNames, FeatureNames()) {
		return fmt.Errorf("%w: feature order %v, want %v", ErrSchemaMismatch, a.FeatureNames, FeatureNames())
	}
	if a.Encoder == nil || a.Encoder.Provinces == nil || a.Encoder.Labels == nil {
		return fmt.Errorf("%w: missing encoding tables", ErrSchemaMismatch)
	}
	for _, name := range a.Encoder.Labels.Names {
		if err := CheckRiskLevel(name); err != nil {
			return fmt.Errorf("%w: label table: %v", ErrSchemaMismatch, err)
		}
	}
	if a.Forest == nil || len(a.Forest.Trees) == 0 {
		return ErrNotTrained
	}
	if a.Forest.NFeatures != featureVectorWidth {
		return fmt.Errorf("%w: forest expects %d features", ErrSchemaMismatch, a.Forest.NFeatures)
	}
	if a.Forest.NClasses != a.Encoder.Labels.Len() {
		return fmt.Errorf("%w: forest has %d classes, label table has %d", ErrSchemaMismatch, a.Forest.NClasses, a.Encoder.Labels.Len())
	}
	for i, tree := range a.Forest.Trees {
		if tree == nil || tree.NFeatures != a.Forest.NFeatures || tree.NClasses != a.Forest.NClasses {
			return fmt.Errorf("%w: tree %d shape differs from forest", ErrSchemaMismatch, i)
		}
		if err := tree.checkStructure(); err != nil {
			return fmt.Errorf("%w: tree %d: %v", ErrSchemaMismatch, i, err)
		}
	}
	return nil
}

// SaveModel writes the artifact as a single file, creating parent directories.
func SaveModel(path string, a *Artifact) error {
	if a.Forest == nil || len(a.Forest.Trees) == 0 {
		return ErrNotTrained
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// LoadModel reads and validates an artifact written by SaveModel.
func LoadModel(path string) (*Artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &a, nil
}
