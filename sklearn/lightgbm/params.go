package lightgbm

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/gbtune/core/model"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// TrainingParams contains the hyperparameters of the booster.
type TrainingParams struct {
	NumIterations int     `json:"num_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	NumLeaves     int     `json:"num_leaves"`
	MaxDepth      int     `json:"max_depth"` // <= 0 means unlimited
	MinDataInLeaf int     `json:"min_data_in_leaf"`

	// Regularization
	Lambda              float64 `json:"lambda_l2"`
	Alpha               float64 `json:"lambda_l1"`
	MinGainToSplit      float64 `json:"min_gain_to_split"`
	MinSumHessianInLeaf float64 `json:"min_sum_hessian_in_leaf"`

	// Sampling
	BaggingFraction float64 `json:"bagging_fraction"`
	BaggingFreq     int     `json:"bagging_freq"`
	FeatureFraction float64 `json:"feature_fraction"`

	Seed int64 `json:"seed"`
}

// DefaultParams returns LightGBM's defaults for the supported parameters.
func DefaultParams() TrainingParams {
	return TrainingParams{
		NumIterations:       100,
		LearningRate:        0.1,
		NumLeaves:           31,
		MaxDepth:            -1,
		MinDataInLeaf:       20,
		MinSumHessianInLeaf: 1e-3,
		BaggingFraction:     1.0,
		FeatureFraction:     1.0,
	}
}

// parameter binds a canonical name and its aliases to a TrainingParams field.
type parameter struct {
	name    string
	aliases []string
	integer bool
	set     func(p *TrainingParams, v float64)
}

var parameters = []parameter{
	{model.TreeCountKeys[0], model.TreeCountKeys[1:], true,
		func(p *TrainingParams, v float64) { p.NumIterations = int(v) }},
	{"learning_rate", []string{"shrinkage_rate", "eta"}, false,
		func(p *TrainingParams, v float64) { p.LearningRate = v }},
	{"num_leaves", []string{"num_leaf", "max_leaves", "max_leaf"}, true,
		func(p *TrainingParams, v float64) { p.NumLeaves = int(v) }},
	{"max_depth", nil, true,
		func(p *TrainingParams, v float64) { p.MaxDepth = int(v) }},
	{"min_child_samples", []string{"min_data_in_leaf", "min_data", "min_samples_leaf"}, true,
		func(p *TrainingParams, v float64) { p.MinDataInLeaf = int(v) }},
	{"min_child_weight", []string{"min_sum_hessian_in_leaf", "min_sum_hessian", "min_hessian"}, false,
		func(p *TrainingParams, v float64) { p.MinSumHessianInLeaf = v }},
	{"min_split_gain", []string{"min_gain_to_split", "gamma"}, false,
		func(p *TrainingParams, v float64) { p.MinGainToSplit = v }},
	{"reg_alpha", []string{"lambda_l1", "l1_regularization", "alpha"}, false,
		func(p *TrainingParams, v float64) { p.Alpha = v }},
	{"reg_lambda", []string{"lambda_l2", "l2_regularization", "lambda"}, false,
		func(p *TrainingParams, v float64) { p.Lambda = v }},
	{"subsample", []string{"bagging_fraction", "sub_row"}, false,
		func(p *TrainingParams, v float64) { p.BaggingFraction = v }},
	{"subsample_freq", []string{"bagging_freq"}, true,
		func(p *TrainingParams, v float64) { p.BaggingFreq = int(v) }},
	{"colsample_bytree", []string{"feature_fraction", "sub_feature"}, false,
		func(p *TrainingParams, v float64) { p.FeatureFraction = v }},
	{"random_state", []string{"seed", "random_seed"}, true,
		func(p *TrainingParams, v float64) { p.Seed = int64(v) }},
}

var parameterIndex = func() map[string]*parameter {
	idx := make(map[string]*parameter)
	for i := range parameters {
		p := &parameters[i]
		idx[p.name] = p
		for _, a := range p.aliases {
			idx[a] = p
		}
	}
	return idx
}()

// CanonicalName resolves an alias to its canonical parameter name.
func CanonicalName(name string) (string, bool) {
	p, ok := parameterIndex[name]
	if !ok {
		return "", false
	}
	return p.name, true
}

// SupportedParameters returns the canonical names of all parameters, sorted.
func SupportedParameters() []string {
	names := make([]string, len(parameters))
	for i, p := range parameters {
		names[i] = p.name
	}
	sort.Strings(names)
	return names
}

// Apply overlays the values in params on top of base. Unknown names, two
// aliases of the same parameter, and fractional values for integer
// parameters are ConfigurationErrors.
func Apply(base TrainingParams, params model.Params) (TrainingParams, error) {
	out := base
	if params == nil {
		return out, out.Validate()
	}
	setBy := make(map[string]string)
	for _, name := range params.Names() {
		v, _ := params.Lookup(name)
		p, ok := parameterIndex[name]
		if !ok {
			return base, errors.NewConfigurationError(name, "unknown hyperparameter", v)
		}
		if prev, dup := setBy[p.name]; dup {
			return base, errors.NewConfigurationError(name, fmt.Sprintf("already set through alias %q", prev), v)
		}
		setBy[p.name] = name
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return base, errors.NewConfigurationError(name, "value is not finite", v)
		}
		if p.integer && v != math.Trunc(v) {
			return base, errors.NewConfigurationError(name, "value must be an integer", v)
		}
		p.set(&out, v)
	}
	return out, out.Validate()
}

// Validate checks parameter ranges.
func (p TrainingParams) Validate() error {
	switch {
	case p.NumIterations < 1:
		return errors.NewConfigurationError("n_estimators", "must be at least 1", p.NumIterations)
	case !(p.LearningRate > 0):
		return errors.NewConfigurationError("learning_rate", "must be positive", p.LearningRate)
	case p.NumLeaves < 2:
		return errors.NewConfigurationError("num_leaves", "must be at least 2", p.NumLeaves)
	case p.MinDataInLeaf < 1:
		return errors.NewConfigurationError("min_child_samples", "must be at least 1", p.MinDataInLeaf)
	case p.MinSumHessianInLeaf < 0:
		return errors.NewConfigurationError("min_child_weight", "must be non-negative", p.MinSumHessianInLeaf)
	case p.MinGainToSplit < 0:
		return errors.NewConfigurationError("min_split_gain", "must be non-negative", p.MinGainToSplit)
	case p.Alpha < 0:
		return errors.NewConfigurationError("reg_alpha", "must be non-negative", p.Alpha)
	case p.Lambda < 0:
		return errors.NewConfigurationError("reg_lambda", "must be non-negative", p.Lambda)
	case !(p.BaggingFraction > 0 && p.BaggingFraction <= 1):
		return errors.NewConfigurationError("subsample", "must be in (0, 1]", p.BaggingFraction)
	case p.BaggingFreq < 0:
		return errors.NewConfigurationError("subsample_freq", "must be non-negative", p.BaggingFreq)
	case !(p.FeatureFraction > 0 && p.FeatureFraction <= 1):
		return errors.NewConfigurationError("colsample_bytree", "must be in (0, 1]", p.FeatureFraction)
	}
	return nil
}
