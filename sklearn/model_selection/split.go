// Package model_selection implements cross-validated grid search for binary
// classifiers: repeated stratified k-fold splitting, grid enumeration,
// parallel fold evaluation, aggregation, tie-broken selection and the final
// refit.
package model_selection

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/gbtune/dataset"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// FoldAssignment is one train/holdout partition of the training set. Both
// index slices are sorted ascending.
type FoldAssignment struct {
	Repeat         int   `json:"repeat"`
	Fold           int   `json:"fold"`
	TrainIndices   []int `json:"train_indices"`
	HoldoutIndices []int `json:"holdout_indices"`
}

// RepeatedStratifiedKFold splits a dataset into NSplits stratified folds,
// NRepeats times with an independent shuffle per repeat.
type RepeatedStratifiedKFold struct {
	NSplits    int
	NRepeats   int
	RandomSeed int64
}

// NewRepeatedStratifiedKFold creates a splitter. Arguments are validated by Split.
func NewRepeatedStratifiedKFold(nSplits, nRepeats int, randomSeed int64) *RepeatedStratifiedKFold {
	return &RepeatedStratifiedKFold{NSplits: nSplits, NRepeats: nRepeats, RandomSeed: randomSeed}
}

// GetNSplits returns the total number of folds produced by Split.
func (r *RepeatedStratifiedKFold) GetNSplits() int {
	return r.NSplits * r.NRepeats
}

// Split generates the fold assignments ordered by (repeat, fold).
func (r *RepeatedStratifiedKFold) Split(ds *dataset.Dataset) ([]FoldAssignment, error) {
	return GenerateFolds(ds, r.NSplits, r.NRepeats, r.RandomSeed)
}

// GenerateFolds partitions ds into k stratified folds, repeats times.
//
// For repeat r the indices of each class are shuffled with a PCG source
// seeded by (seed, r) and dealt round-robin over the k holdouts, negatives
// first. Every holdout therefore holds floor(n_c/k) or ceil(n_c/k) records of
// each class c, and identical inputs always produce identical folds.
func GenerateFolds(ds *dataset.Dataset, k, repeats int, seed int64) ([]FoldAssignment, error) {
	if ds == nil {
		return nil, errors.NewConfigurationError("dataset", "dataset is nil", nil)
	}
	if k < 2 {
		return nil, errors.NewConfigurationError("k", "number of folds must be at least 2", k)
	}
	if repeats < 1 {
		return nil, errors.NewConfigurationError("repeats", "number of repeats must be at least 1", repeats)
	}
	if minority := ds.MinorityCount(); k > minority {
		return nil, errors.NewConfigurationError("k",
			fmt.Sprintf("number of folds exceeds the minority class count %d", minority), k)
	}

	n := ds.Rows()
	negatives, positives := ds.ClassIndices()
	folds := make([]FoldAssignment, 0, k*repeats)

	for rep := 0; rep < repeats; rep++ {
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(rep)))

		order := make([]int, 0, n)
		for _, class := range [][]int{negatives, positives} {
			shuffled := append([]int(nil), class...)
			rng.Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})
			order = append(order, shuffled...)
		}

		foldOf := make([]int, n)
		for pos, idx := range order {
			foldOf[idx] = pos % k
		}

		for f := 0; f < k; f++ {
			fa := FoldAssignment{Repeat: rep, Fold: f}
			for idx := 0; idx < n; idx++ {
				if foldOf[idx] == f {
					fa.HoldoutIndices = append(fa.HoldoutIndices, idx)
				} else {
					fa.TrainIndices = append(fa.TrainIndices, idx)
				}
			}
			folds = append(folds, fa)
		}
	}
	return folds, nil
}

// ValidateFolds checks that every assignment partitions [0, n): indices in
// range, train and holdout disjoint, union complete. A violation would leak
// holdout records into training and is a ConfigurationError.
func ValidateFolds(folds []FoldAssignment, n int) error {
	if len(folds) == 0 {
		return errors.NewConfigurationError("folds", "no fold assignments", nil)
	}
	seen := make([]int8, n)
	for _, fa := range folds {
		name := fmt.Sprintf("folds[repeat=%d,fold=%d]", fa.Repeat, fa.Fold)
		if len(fa.TrainIndices) == 0 || len(fa.HoldoutIndices) == 0 {
			return errors.NewConfigurationError(name, "train and holdout partitions must be non-empty", nil)
		}
		clear(seen)
		for _, part := range []struct {
			indices []int
			mark    int8
		}{{fa.TrainIndices, 1}, {fa.HoldoutIndices, 2}} {
			for _, idx := range part.indices {
				if idx < 0 || idx >= n {
					return errors.NewConfigurationError(name, fmt.Sprintf("index out of range [0, %d)", n), idx)
				}
				if seen[idx] != 0 {
					return errors.NewConfigurationError(name, "index appears more than once across train and holdout", idx)
				}
				seen[idx] = part.mark
			}
		}
		if covered := len(fa.TrainIndices) + len(fa.HoldoutIndices); covered != n {
			return errors.NewConfigurationError(name, fmt.Sprintf("partitions cover %d of %d records", covered, n), nil)
		}
		if !sort.IntsAreSorted(fa.TrainIndices) || !sort.IntsAreSorted(fa.HoldoutIndices) {
			return errors.NewConfigurationError(name, "indices must be sorted ascending", nil)
		}
	}
	return nil
}
