// Package model defines the contract between the search harness and the
// externally supplied training primitive. The harness only ever sees a
// Trainer that turns a labeled Dataset plus a hyperparameter configuration
// into a Model that scores records.
package model

import (
	"context"
	"math"

	"github.com/YuminosukeSato/gbtune/dataset"
)

// Params is a read-only view of one hyperparameter configuration.
type Params interface {
	// Lookup returns the value of name and whether it is set.
	Lookup(name string) (float64, bool)
	// Names returns the parameter names in declaration order.
	Names() []string
}

// Trainer fits a binary classifier. Implementations must be safe for
// concurrent use: the CV evaluator calls Fit from many goroutines, each with
// its own training partition.
type Trainer interface {
	// Fit trains on train only and returns a scoring Model. Numerical or
	// convergence failures are returned as errors.
	Fit(ctx context.Context, train *dataset.Dataset, params Params) (Model, error)
}

// Model scores records. The harness never inspects its internals.
type Model interface {
	// PredictProbability returns P(positive | features) in [0, 1].
	PredictProbability(features []float64) (float64, error)
}

// ParamValidator is implemented by trainers that can reject a configuration
// before any training happens.
type ParamValidator interface {
	ValidateParams(params Params) error
}

// Named is implemented by trainers that report a name for logs and reports.
type Named interface {
	Name() string
}

// Hyperparameter names the harness itself interprets. Tie-breaking prefers
// fewer trees, then shallower trees. TreeCountKeys lists the canonical name
// first followed by every alias trainers accept for it.
var (
	TreeCountKeys = []string{
		"n_estimators",
		"num_iterations", "num_iteration",
		"num_tree", "num_trees",
		"num_round", "num_rounds",
		"num_boost_round", "nrounds", "n_iter",
	}
	MaxDepthKeys = []string{"max_depth"}
)

// EffectiveMaxDepth maps a max_depth value to its ordering. Zero and negative
// depths mean unlimited and sort after every finite depth.
func EffectiveMaxDepth(v float64) float64 {
	if v <= 0 {
		return math.Inf(1)
	}
	return v
}

// LookupAny returns the first key of keys present in params.
func LookupAny(params Params, keys []string) (float64, bool) {
	for _, k := range keys {
		if v, ok := params.Lookup(k); ok {
			return v, true
		}
	}
	return 0, false
}
