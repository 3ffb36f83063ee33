package dataset

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// StratifiedSplit partitions ds into training and test sets, drawing
// round(testFraction * n_c) records of each class into the test set. At
// least one record of each class lands on each side. Both results keep the
// original record order.
func StratifiedSplit(ds *Dataset, testFraction float64, seed int64) (train, test *Dataset, err error) {
	if !(testFraction > 0 && testFraction < 1) {
		return nil, nil, errors.NewConfigurationError("test-fraction", "must be in (0, 1)", testFraction)
	}
	if ds.MinorityCount() < 2 {
		return nil, nil, errors.NewConfigurationError("test-fraction", "each class needs at least two records to split", ds.MinorityCount())
	}

	r := rand.New(rand.NewPCG(uint64(seed), math.MaxUint64))
	negatives, positives := ds.ClassIndices()

	var trainIdx, testIdx []int
	for _, class := range [][]int{negatives, positives} {
		indices := append([]int(nil), class...)
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		nTest := int(math.Round(testFraction * float64(len(indices))))
		nTest = max(1, min(nTest, len(indices)-1))
		testIdx = append(testIdx, indices[:nTest]...)
		trainIdx = append(trainIdx, indices[nTest:]...)
	}

	if train, err = ds.Subset(sortedCopy(trainIdx)); err != nil {
		return nil, nil, err
	}
	if test, err = ds.Subset(sortedCopy(testIdx)); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}
