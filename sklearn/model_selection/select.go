package model_selection

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/gbtune/core/model"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// SelectedConfig is the configuration chosen for the final refit.
type SelectedConfig struct {
	Config  HyperparameterConfig
	Summary ConfigSummary
}

// Select picks the valid configuration with the highest mean AUC.
//
// Candidates whose mean AUC is within epsilon of the best are ranked by the
// simplicity tie-break: fewer trees, then smaller max_depth, then lower
// enumeration index. A max_depth of zero or below is unlimited and ranks
// after every finite depth. A parameter missing from a configuration compares
// equal to any value. The result depends only on the summaries, never on the order
// in which folds completed.
func Select(summaries []ConfigSummary, epsilon float64) (SelectedConfig, error) {
	if epsilon < 0 || math.IsNaN(epsilon) {
		return SelectedConfig{}, errors.NewConfigurationError("epsilon", "tie tolerance must be non-negative", epsilon)
	}

	best := math.Inf(-1)
	reasons := make([]string, 0, len(summaries))
	for _, s := range summaries {
		if s.Invalid {
			reasons = append(reasons, fmt.Sprintf("config #%d [%s]: %s", s.Config.Index(), s.Config, s.InvalidReason))
			continue
		}
		best = max(best, s.MeanAUC)
	}
	if math.IsInf(best, -1) {
		return SelectedConfig{}, errors.NewNoValidConfigurationError(reasons)
	}

	var chosen *ConfigSummary
	for i := range summaries {
		s := &summaries[i]
		if s.Invalid || s.MeanAUC < best-epsilon {
			continue
		}
		if chosen == nil || simpler(s.Config, chosen.Config) {
			chosen = s
		}
	}
	return SelectedConfig{Config: chosen.Config, Summary: *chosen}, nil
}

// simpler reports whether a ranks ahead of b in the simplicity order.
func simpler(a, b HyperparameterConfig) bool {
	if c := compareParam(a, b, model.TreeCountKeys, nil); c != 0 {
		return c < 0
	}
	if c := compareParam(a, b, model.MaxDepthKeys, model.EffectiveMaxDepth); c != 0 {
		return c < 0
	}
	return a.Index() < b.Index()
}

// compareParam orders a and b by the first of keys each sets, after passing
// both values through normalize when it is non-nil.
func compareParam(a, b HyperparameterConfig, keys []string, normalize func(float64) float64) int {
	av, aok := model.LookupAny(a, keys)
	bv, bok := model.LookupAny(b, keys)
	if !aok || !bok {
		return 0
	}
	if normalize != nil {
		av, bv = normalize(av), normalize(bv)
	}
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	}
	return 0
}
