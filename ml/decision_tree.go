package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrNotTrained   = errors.New("model not trained")
	ErrFeatureCount = errors.New("feature count mismatch")
)

// DecisionTree is a CART classifier stored as a flat node slice; node 0 is
// the root and children are referenced by index.
type DecisionTree struct {
	Nodes     []TreeNode `json:"nodes"`
	NClasses  int        `json:"n_classes"`
	NFeatures int        `json:"n_features"`

	MaxDepth        int   `json:"-"`
	MinSamplesSplit int   `json:"-"`
	MaxFeatures     int   `json:"-"`
	Seed            int64 `json:"-"`

	rng *rand.Rand
}

type TreeNode struct {
	FeatureIdx   int       `json:"feature_idx"`
	Threshold    float64   `json:"threshold"`
	LeftChild    int       `json:"left_child"`
	RightChild   int       `json:"right_child"`
	Distribution []float64 `json:"distribution,omitempty"`
	IsLeaf       bool      `json:"is_leaf"`
}

// Fit trains on every row once. MaxFeatures of zero considers all features.
func (dt *DecisionTree) Fit(features [][]float64, labels []int) error {
	nClasses, err := checkTrainingSet(features, labels, dt.NClasses)
	if err != nil {
		return err
	}
	indices := make([]int, len(features))
	for i := range indices {
		indices[i] = i
	}
	dt.NClasses = nClasses
	dt.fitIndices(features, labels, indices)
	return nil
}

// fitIndices grows the tree over the rows named by indices. Repeated
// indices act as sample weights, which is how bootstrap samples are fed in.
func (dt *DecisionTree) fitIndices(features [][]float64, labels []int, indices []int) {
	if dt.rng == nil {
		dt.rng = rand.New(rand.NewSource(dt.Seed))
	}
	if dt.MinSamplesSplit < 2 {
		dt.MinSamplesSplit = 2
	}
	dt.NFeatures = len(features[0])
	if dt.MaxFeatures <= 0 || dt.MaxFeatures > dt.NFeatures {
		dt.MaxFeatures = dt.NFeatures
	}
	dt.Nodes = dt.Nodes[:0]
	dt.buildNode(features, labels, indices, 0)
}

func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	idx, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), dt.Nodes[idx].Distribution...), nil
}

func (dt *DecisionTree) Predict(features []float64) (int, error) {
	proba, err := dt.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(proba), nil
}

func (dt *DecisionTree) leaf(features []float64) (int, error) {
	if len(dt.Nodes) == 0 {
		return 0, ErrNotTrained
	}
	if len(features) != dt.NFeatures {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(features), dt.NFeatures)
	}
	idx := 0
	for {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return idx, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		parent := idx
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx <= parent || idx >= len(dt.Nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

// checkStructure rejects trees a walk from the root could not finish: every
// split must point forward to nodes inside the slice, and every leaf must
// carry one probability per class.
func (dt *DecisionTree) checkStructure() error {
	if len(dt.Nodes) == 0 {
		return ErrNotTrained
	}
	for i, node := range dt.Nodes {
		if node.IsLeaf {
			if len(node.Distribution) != dt.NClasses {
				return fmt.Errorf("node %d: %d probabilities, want %d", i, len(node.Distribution), dt.NClasses)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= dt.NFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(dt.Nodes) {
				return fmt.Errorf("node %d: child index %d must be after the node and below %d", i, child, len(dt.Nodes))
			}
		}
	}
	return nil
}

func (dt *DecisionTree) buildNode(features [][]float64, labels []int, indices []int, depth int) int {
	counts := classCounts(labels, indices, dt.NClasses)
	self := len(dt.Nodes)
	dt.Nodes = append(dt.Nodes, TreeNode{
		FeatureIdx:   -1,
		LeftChild:    -1,
		RightChild:   -1,
		Distribution: distribution(counts, len(indices)),
		IsLeaf:       true,
	})

	if (dt.MaxDepth > 0 && depth >= dt.MaxDepth) || len(indices) < dt.MinSamplesSplit || isPure(counts) {
		return self
	}

	feature, threshold, ok := dt.findBestSplit(features, labels, indices)
	if !ok {
		return self
	}
	left, right := partition(features, indices, feature, threshold)
	if len(left) == 0 || len(right) == 0 {
		return self
	}

	leftIdx := dt.buildNode(features, labels, left, depth+1)
	rightIdx := dt.buildNode(features, labels, right, depth+1)

	node := &dt.Nodes[self]
	node.FeatureIdx = feature
	node.Threshold = threshold
	node.LeftChild = leftIdx
	node.RightChild = rightIdx
	node.IsLeaf = false
	node.Distribution = nil
	return self
}

// findBestSplit draws features in random order and stops once MaxFeatures
// non-constant features have been scored.
func (dt *DecisionTree) findBestSplit(features [][]float64, labels []int, indices []int) (int, float64, bool) {
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	visited := 0
	for _, featureIdx := range dt.rng.Perm(dt.NFeatures) {
		if visited >= dt.MaxFeatures && bestFeature != -1 {
			break
		}
		threshold, impurity, ok := bestThresholdFor(features, labels, indices, featureIdx, dt.NClasses)
		if !ok {
			continue
		}
		visited++
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

// bestThresholdFor scans the sorted values of one feature and returns the
// midpoint threshold with the lowest weighted Gini impurity.
func bestThresholdFor(features [][]float64, labels []int, indices []int, featureIdx int, nClasses int) (float64, float64, bool) {
	sorted := append([]int(nil), indices...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return features[sorted[a]][featureIdx] < features[sorted[b]][featureIdx]
	})

	total := classCounts(labels, sorted, nClasses)
	left := make([]int, nClasses)
	right := append([]int(nil), total...)
	n := len(sorted)

	found := false
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64
	for k := 0; k < n-1; k++ {
		label := labels[sorted[k]]
		left[label]++
		right[label]--

		current := features[sorted[k]][featureIdx]
		next := features[sorted[k+1]][featureIdx]
		if current == next {
			continue
		}
		nl := k + 1
		nr := n - nl
		impurity := (float64(nl)*giniCounts(left, nl) + float64(nr)*giniCounts(right, nr)) / float64(n)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestThreshold = current + (next-current)/2
			if bestThreshold >= next {
				bestThreshold = current
			}
			found = true
		}
	}
	return bestThreshold, bestImpurity, found
}

func partition(features [][]float64, indices []int, featureIdx int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, i := range indices {
		if features[i][featureIdx] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func classCounts(labels []int, indices []int, nClasses int) []int {
	counts := make([]int, nClasses)
	for _, i := range indices {
		counts[labels[i]]++
	}
	return counts
}

func giniCounts(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	impurity := 1.0
	for _, count := range counts {
		p := float64(count) / float64(n)
		impurity -= p * p
	}
	return impurity
}

func distribution(counts []int, n int) []float64 {
	dist := make([]float64, len(counts))
	if n == 0 {
		return dist
	}
	for i, count := range counts {
		dist[i] = float64(count) / float64(n)
	}
	return dist
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, count := range counts {
		if count > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// checkTrainingSet validates shapes and returns the class count, which is
// at least nClasses and covers every label seen.
func checkTrainingSet(features [][]float64, labels []int, nClasses int) (int, error) {
	if len(features) == 0 || len(labels) == 0 {
		return 0, ErrEmptyDataset
	}
	if len(features) != len(labels) {
		return 0, errors.New("features and labels size mismatch")
	}
	width := len(features[0])
	if width == 0 {
		return 0, fmt.Errorf("%w: empty feature vector", ErrFeatureCount)
	}
	for i, row := range features {
		if len(row) != width {
			return 0, fmt.Errorf("%w: row %d has %d features, want %d", ErrFeatureCount, i, len(row), width)
		}
	}
	for i, label := range labels {
		if label < 0 {
			return 0, fmt.Errorf("row %d: negative label %d", i, label)
		}
		if label >= nClasses {
			nClasses = label + 1
		}
	}
	return nClasses, nil
}
