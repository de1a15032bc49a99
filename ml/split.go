package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

var ErrClassTooSmall = errors.New("class has too few members to split")

// StratifiedSplit returns train and test row indices with each class
// represented in both splits in proportion to its share of labels. The
// test split holds ceil(len(labels)*testRatio) rows.
func StratifiedSplit(labels []int, testRatio float64, seed int64) (train, test []int, err error) {
	n := len(labels)
	if n == 0 {
		return nil, nil, ErrEmptyDataset
	}
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio %v outside (0, 1)", testRatio)
	}

	byClass := make(map[int][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for label, members := range byClass {
		if len(members) < 2 {
			return nil, nil, fmt.Errorf("%w: class %d has %d member", ErrClassTooSmall, label, len(members))
		}
		classes = append(classes, label)
	}
	sort.Ints(classes)

	nTest := int(math.Ceil(float64(n) * testRatio))
	nTrain := n - nTest
	if nTest < len(classes) || nTrain < len(classes) {
		return nil, nil, fmt.Errorf("split of %d rows into %d/%d cannot hold %d classes", n, nTrain, nTest, len(classes))
	}

	allocation := allocateTestCounts(classes, byClass, n, nTest)

	rng := rand.New(rand.NewSource(seed))
	train = make([]int, 0, nTrain)
	test = make([]int, 0, nTest)
	for _, label := range classes {
		members := append([]int(nil), byClass[label]...)
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		k := allocation[label]
		test = append(test, members[:k]...)
		train = append(train, members[k:]...)
	}
	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// allocateTestCounts floors each class's exact share of nTest and hands the
// leftover rows to the largest fractional remainders, lower class id first.
func allocateTestCounts(classes []int, byClass map[int][]int, n, nTest int) map[int]int {
	type share struct {
		label     int
		remainder float64
	}
	allocation := make(map[int]int, len(classes))
	shares := make([]share, 0, len(classes))
	assigned := 0
	for _, label := range classes {
		exact := float64(nTest) * float64(len(byClass[label])) / float64(n)
		whole := int(math.Floor(exact))
		allocation[label] = whole
		assigned += whole
		shares = append(shares, share{label: label, remainder: exact - float64(whole)})
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].remainder > shares[j].remainder
	})
	for i := 0; assigned < nTest; i++ {
		allocation[shares[i%len(shares)].label]++
		assigned++
	}
	return allocation
}

// Subset picks the rows named by indices.
func Subset(features [][]float64, labels []int, indices []int) ([][]float64, []int) {
	x := make([][]float64, len(indices))
	y := make([]int, len(indices))
	for i, idx := range indices {
		x[i] = features[idx]
		y[i] = labels[idx]
	}
	return x, y
}
