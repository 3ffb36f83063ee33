package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// ConfusionMatrix holds binary classification counts.
type ConfusionMatrix struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// ConfusionMatrixAt counts predictions with score >= threshold as positive.
func ConfusionMatrixAt(yTrue, yScore []float64, threshold float64) (ConfusionMatrix, error) {
	if _, _, err := validateBinary("ConfusionMatrixAt", yTrue, yScore); err != nil {
		return ConfusionMatrix{}, err
	}
	var cm ConfusionMatrix
	for i, y := range yTrue {
		predicted := yScore[i] >= threshold
		switch {
		case y == 1 && predicted:
			cm.TP++
		case y == 1:
			cm.FN++
		case predicted:
			cm.FP++
		default:
			cm.TN++
		}
	}
	return cm, nil
}

// Total returns the number of records counted.
func (c ConfusionMatrix) Total() int { return c.TP + c.FP + c.TN + c.FN }

// Sensitivity is TP / (TP + FN); 0 when there are no positives.
func (c ConfusionMatrix) Sensitivity() float64 {
	return errors.SafeDivide(float64(c.TP), float64(c.TP+c.FN))
}

// Specificity is TN / (TN + FP); 0 when there are no negatives.
func (c ConfusionMatrix) Specificity() float64 {
	return errors.SafeDivide(float64(c.TN), float64(c.TN+c.FP))
}

// Precision is TP / (TP + FP); 0 when nothing is predicted positive.
func (c ConfusionMatrix) Precision() float64 {
	return errors.SafeDivide(float64(c.TP), float64(c.TP+c.FP))
}

// Accuracy is (TP + TN) / total.
func (c ConfusionMatrix) Accuracy() float64 {
	return errors.SafeDivide(float64(c.TP+c.TN), float64(c.Total()))
}

// F1 is the harmonic mean of precision and sensitivity.
func (c ConfusionMatrix) F1() float64 {
	return errors.SafeDivide(float64(2*c.TP), float64(2*c.TP+c.FP+c.FN))
}

// ROCPoint is one (fpr, tpr) point reached by predicting positive when the
// score is at least Threshold.
type ROCPoint struct {
	FPR       float64 `json:"fpr"`
	TPR       float64 `json:"tpr"`
	Threshold float64 `json:"threshold"`
}

// ROCCurve sweeps every distinct score as a threshold, in descending order.
// The first point is (0, 0) at a threshold just above the highest score, and
// the last point is (1, 1) at the lowest score.
func ROCCurve(yTrue, yScore []float64) ([]ROCPoint, error) {
	nPos, nNeg, err := validateBinary("ROCCurve", yTrue, yScore)
	if err != nil {
		return nil, err
	}
	if nPos == 0 || nNeg == 0 {
		return nil, errors.Wrap(ErrSingleClass, "ROCCurve")
	}

	order := make([]int, len(yScore))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return yScore[order[a]] > yScore[order[b]] })

	points := []ROCPoint{{FPR: 0, TPR: 0, Threshold: math.Nextafter(yScore[order[0]], math.Inf(1))}}
	tp, fp := 0, 0
	for i := 0; i < len(order); {
		threshold := yScore[order[i]]
		for i < len(order) && yScore[order[i]] == threshold {
			if yTrue[order[i]] == 1 {
				tp++
			} else {
				fp++
			}
			i++
		}
		points = append(points, ROCPoint{
			FPR:       float64(fp) / float64(nNeg),
			TPR:       float64(tp) / float64(nPos),
			Threshold: threshold,
		})
	}
	return points, nil
}

// TrapezoidAUC integrates an ROC curve with the trapezoid rule. For a curve
// from ROCCurve it equals ROCAUC.
func TrapezoidAUC(points []ROCPoint) float64 {
	var area float64
	for i := 1; i < len(points); i++ {
		area += (points[i].FPR - points[i-1].FPR) * (points[i].TPR + points[i-1].TPR) / 2
	}
	return area
}

// OperatingPoint is a threshold with its sensitivity, specificity and
// Youden's J = sensitivity + specificity - 1.
type OperatingPoint struct {
	Threshold   float64 `json:"threshold"`
	Sensitivity float64 `json:"sensitivity"`
	Specificity float64 `json:"specificity"`
	YoudenJ     float64 `json:"youden_j"`
}

// YoudenOptimal returns the ROC point maximizing Youden's J. Ties keep the
// earlier point, i.e. the higher threshold.
func YoudenOptimal(points []ROCPoint) (OperatingPoint, error) {
	if len(points) == 0 {
		return OperatingPoint{}, errors.NewValueError("YoudenOptimal", "empty ROC curve")
	}
	best := OperatingPoint{YoudenJ: math.Inf(-1)}
	for _, p := range points {
		j := p.TPR - p.FPR
		if j > best.YoudenJ {
			best = OperatingPoint{
				Threshold:   p.Threshold,
				Sensitivity: p.TPR,
				Specificity: 1 - p.FPR,
				YoudenJ:     j,
			}
		}
	}
	return best, nil
}
