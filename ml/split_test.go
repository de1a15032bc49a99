package ml

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func labelsWithCounts(counts ...int) []int {
	labels := make([]int, 0)
	for class, n := range counts {
		for i := 0; i < n; i++ {
			labels = append(labels, class)
		}
	}
	return labels
}

func TestStratifiedSplitPreservesProportions(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		ratio  float64
	}{
		{"balanced", []int{40, 40, 40}, 0.2},
		{"skewed", []int{97, 31, 12}, 0.2},
		{"odd sizes", []int{7, 13, 5}, 0.2},
		{"large test", []int{50, 20, 30}, 0.35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := labelsWithCounts(tt.counts...)
			n := len(labels)
			train, test, err := StratifiedSplit(labels, tt.ratio, 42)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			wantTest := int(math.Ceil(float64(n) * tt.ratio))
			if len(test) != wantTest || len(train) != n-wantTest {
				t.Fatalf("expected %d/%d, got %d/%d", n-wantTest, wantTest, len(train), len(test))
			}

			testCounts := make([]int, len(tt.counts))
			trainCounts := make([]int, len(tt.counts))
			for _, i := range test {
				testCounts[labels[i]]++
			}
			for _, i := range train {
				trainCounts[labels[i]]++
			}
			for class, total := range tt.counts {
				expectedTest := float64(total) * float64(len(test)) / float64(n)
				expectedTrain := float64(total) * float64(len(train)) / float64(n)
				if math.Abs(float64(testCounts[class])-expectedTest) > 1 {
					t.Fatalf("class %d: test has %d, expected about %.2f", class, testCounts[class], expectedTest)
				}
				if math.Abs(float64(trainCounts[class])-expectedTrain) > 1 {
					t.Fatalf("class %d: train has %d, expected about %.2f", class, trainCounts[class], expectedTrain)
				}
			}

			all := append(append([]int(nil), train...), test...)
			slices.Sort(all)
			for i, idx := range all {
				if idx != i {
					t.Fatalf("split is not a partition of the rows: %v", all)
				}
			}
		})
	}
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	labels := labelsWithCounts(30, 20, 10)
	trainA, testA, err := StratifiedSplit(labels, 0.2, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	trainB, testB, _ := StratifiedSplit(labels, 0.2, 42)
	if !slices.Equal(trainA, trainB) || !slices.Equal(testA, testB) {
		t.Fatal("expected identical splits for the same seed")
	}
}

func TestStratifiedSplitErrors(t *testing.T) {
	if _, _, err := StratifiedSplit(nil, 0.2, 1); !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
	if _, _, err := StratifiedSplit(labelsWithCounts(5, 1), 0.2, 1); !errors.Is(err, ErrClassTooSmall) {
		t.Fatalf("expected ErrClassTooSmall, got %v", err)
	}
	if _, _, err := StratifiedSplit(labelsWithCounts(5, 5), 1.5, 1); err == nil {
		t.Fatal("expected error for ratio outside (0, 1)")
	}
	if _, _, err := StratifiedSplit(labelsWithCounts(2, 2, 2), 0.2, 1); err == nil {
		t.Fatal("expected error when the test split cannot hold every class")
	}
}
