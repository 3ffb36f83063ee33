// Package metrics implements the binary-classification metrics used to score
// folds and to build the final evaluation report: the rank-based AUC with
// DeLong's variance, ROC curves, confusion matrices and Youden's J.
//
// Labels are float64 values in {0, 1}; scores are predicted probabilities.
package metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// ErrSingleClass is returned when a metric needs both classes but the labels
// hold only one. A holdout fold drawn this way cannot be scored.
var ErrSingleClass = errors.New("only one class present in labels")

// CIMethodDeLong names the confidence-interval method used by AUCWithCI.
const CIMethodDeLong = "delong"

func validateBinary(op string, yTrue, yScore []float64) (nPos, nNeg int, err error) {
	if len(yTrue) == 0 {
		return 0, 0, errors.NewValueError(op, "empty vector")
	}
	if len(yScore) != len(yTrue) {
		return 0, 0, errors.NewDimensionError(op, len(yTrue), len(yScore), 0)
	}
	for i, y := range yTrue {
		switch y {
		case 1:
			nPos++
		case 0:
			nNeg++
		default:
			return 0, 0, errors.NewValueError(op, fmt.Sprintf("label at %d is not binary: %v", i, y))
		}
		if math.IsNaN(yScore[i]) {
			return 0, 0, errors.NewValueError(op, fmt.Sprintf("score at %d is NaN", i))
		}
	}
	return nPos, nNeg, nil
}

// midranks returns 1-based ranks of values with tied values sharing the
// average of the ranks they span.
func midranks(values []float64) []float64 {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[order[j+1]] == values[order[i]] {
			j++
		}
		// positions i..j (0-based) share rank ((i+1)+(j+1))/2
		r := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[order[k]] = r
		}
		i = j + 1
	}
	return ranks
}

// ROCAUC computes the area under the ROC curve with the Mann-Whitney rank
// estimator: the probability that a random positive scores higher than a
// random negative, counting ties as one half.
func ROCAUC(yTrue, yScore []float64) (float64, error) {
	nPos, nNeg, err := validateBinary("ROCAUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if nPos == 0 || nNeg == 0 {
		return 0, errors.Wrap(ErrSingleClass, "ROCAUC")
	}

	ranks := midranks(yScore)
	var rankSum float64
	for i, y := range yTrue {
		if y == 1 {
			rankSum += ranks[i]
		}
	}
	p, n := float64(nPos), float64(nNeg)
	return (rankSum - p*(p+1)/2) / (p * n), nil
}

// AUCInterval is an AUC estimate with a two-sided confidence interval.
type AUCInterval struct {
	AUC    float64 `json:"auc"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Level  float64 `json:"level"`
	StdErr float64 `json:"std_err"`
	Method string  `json:"method"`
}

// AUCWithCI returns the rank AUC with a DeLong confidence interval at the
// given level (e.g. 0.95). Bounds are clipped to [0, 1].
func AUCWithCI(yTrue, yScore []float64, level float64) (AUCInterval, error) {
	if !(level > 0 && level < 1) {
		return AUCInterval{}, errors.NewValueError("AUCWithCI", fmt.Sprintf("confidence level must be in (0, 1), got %v", level))
	}
	auc, err := ROCAUC(yTrue, yScore)
	if err != nil {
		return AUCInterval{}, err
	}

	variance := delongVariance(yTrue, yScore)
	se := math.Sqrt(variance)
	z := distuv.UnitNormal.Quantile(1 - (1-level)/2)
	return AUCInterval{
		AUC:    auc,
		Lower:  errors.ClipValue(auc-z*se, 0, 1),
		Upper:  errors.ClipValue(auc+z*se, 0, 1),
		Level:  level,
		StdErr: se,
		Method: CIMethodDeLong,
	}, nil
}

// delongVariance computes DeLong's variance of the AUC from placement values,
// derived from midranks in O(n log n).
func delongVariance(yTrue, yScore []float64) float64 {
	var pos, neg []float64
	for i, y := range yTrue {
		if y == 1 {
			pos = append(pos, yScore[i])
		} else {
			neg = append(neg, yScore[i])
		}
	}
	m, n := float64(len(pos)), float64(len(neg))

	all := midranks(yScore)
	posRanks := midranks(pos)
	negRanks := midranks(neg)

	v10 := make([]float64, 0, len(pos))
	v01 := make([]float64, 0, len(neg))
	pi, ni := 0, 0
	for i, y := range yTrue {
		if y == 1 {
			v10 = append(v10, (all[i]-posRanks[pi])/n)
			pi++
		} else {
			v01 = append(v01, 1-(all[i]-negRanks[ni])/m)
			ni++
		}
	}

	var s10, s01 float64
	if len(v10) > 1 {
		s10 = stat.Variance(v10, nil)
	}
	if len(v01) > 1 {
		s01 = stat.Variance(v01, nil)
	}
	return s10/m + s01/n
}
