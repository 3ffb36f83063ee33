package model

import (
	"github.com/YuminosukeSato/gbtune/core/parallel"
	"github.com/YuminosukeSato/gbtune/dataset"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// parallelThreshold is the record count above which batch prediction is split
// across cores.
const parallelThreshold = 2048

// PredictLabel returns dataset.Positive when the predicted probability is at
// least threshold.
func PredictLabel(m Model, features []float64, threshold float64) (float64, error) {
	p, err := m.PredictProbability(features)
	if err != nil {
		return 0, err
	}
	if p >= threshold {
		return dataset.Positive, nil
	}
	return dataset.Negative, nil
}

// PredictProbabilities scores the rows of ds selected by indices, or every
// row when indices is nil. Probabilities outside [0, 1] or NaN are errors.
func PredictProbabilities(m Model, ds *dataset.Dataset, indices []int) ([]float64, error) {
	n := ds.Rows()
	if indices != nil {
		n = len(indices)
	}
	out := make([]float64, n)
	errs := make([]error, n)

	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := i
			if indices != nil {
				row = indices[i]
			}
			p, err := m.PredictProbability(ds.Row(row))
			if err == nil && !(p >= 0 && p <= 1) {
				err = errors.NewValueError("PredictProbability", "probability outside [0, 1]")
			}
			out[i], errs[i] = p, err
		}
	})

	for i, err := range errs {
		if err != nil {
			return nil, errors.Wrapf(err, "predict record %d", i)
		}
	}
	return out, nil
}
