package lightgbm

import (
	"math"

	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// ObjectiveFunction defines the loss the booster minimizes. Predictions are
// raw scores (log-odds for the binary objective).
type ObjectiveFunction interface {
	// CalculateGradient calculates the gradient for a single sample
	CalculateGradient(prediction, target float64) float64

	// CalculateHessian calculates the hessian for a single sample
	CalculateHessian(prediction, target float64) float64

	// CalculateLoss calculates the loss for a single sample
	CalculateLoss(prediction, target float64) float64

	// GetInitScore returns the initial score for this objective
	GetInitScore(targets []float64) float64

	// Name returns the name of the objective
	Name() string
}

// BinaryLogLoss is the logistic loss on raw scores.
type BinaryLogLoss struct{}

func (BinaryLogLoss) CalculateGradient(prediction, target float64) float64 {
	return sigmoid(prediction) - target
}

func (BinaryLogLoss) CalculateHessian(prediction, _ float64) float64 {
	p := sigmoid(prediction)
	return max(p*(1-p), 1e-16)
}

func (BinaryLogLoss) CalculateLoss(prediction, target float64) float64 {
	p := sigmoid(prediction)
	return -(target*errors.StabilizeLog(p) + (1-target)*errors.StabilizeLog(1-p))
}

// GetInitScore returns the log-odds of the positive rate, clipped so a
// single-class partition still yields a finite score.
func (BinaryLogLoss) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0
	}
	var pos float64
	for _, t := range targets {
		pos += t
	}
	p := errors.ClipValue(pos/float64(len(targets)), 1e-15, 1-1e-15)
	return math.Log(p / (1 - p))
}

func (BinaryLogLoss) Name() string { return "binary" }

func sigmoid(x float64) float64 {
	return 1 / (1 + errors.StabilizeExp(-x))
}
