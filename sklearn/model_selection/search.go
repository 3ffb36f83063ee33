package model_selection

import (
	"context"
	"fmt"

	"github.com/YuminosukeSato/gbtune/core/model"
	"github.com/YuminosukeSato/gbtune/dataset"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
	"github.com/YuminosukeSato/gbtune/pkg/log"
)

// Default search settings.
const (
	DefaultK       = 5
	DefaultRepeats = 1
)

// GridSearchCV runs an exhaustive grid search scored by repeated stratified
// k-fold AUC, then refits the selected configuration on the full data.
type GridSearchCV struct {
	K                int
	Repeats          int
	Seed             int64
	Workers          int
	FailureTolerance int
	Epsilon          float64
	Logger           log.Logger
}

// NewGridSearchCV returns a search with 5 folds, 1 repeat and zero failure
// tolerance.
func NewGridSearchCV(seed int64) *GridSearchCV {
	return &GridSearchCV{K: DefaultK, Repeats: DefaultRepeats, Seed: seed}
}

// SearchResult holds every intermediate product of a search run.
type SearchResult struct {
	Folds      []FoldAssignment
	Configs    []HyperparameterConfig
	CV         *CVResults
	Summaries  []ConfigSummary
	Selected   SelectedConfig
	FinalModel *FinalModel
}

// Fit runs fold generation, grid enumeration, cross-validation, aggregation,
// selection and the final refit.
//
// When ctx is cancelled during cross-validation the completed folds are still
// aggregated and a configuration is selected from them, with the failure
// tolerance deciding which configurations remain eligible. The final refit is
// skipped: Fit returns the partial SearchResult, with a nil FinalModel,
// together with an error wrapping ctx.Err().
func (gs *GridSearchCV) Fit(ctx context.Context, ds *dataset.Dataset, grid GridSpec, trainer model.Trainer) (*SearchResult, error) {
	logger := gs.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("model_selection")
	}
	logger = logger.With(log.OperationKey, log.OperationSearch)
	if named, ok := trainer.(model.Named); ok {
		logger = logger.With(log.ModelNameKey, named.Name())
	}

	if ds == nil {
		return nil, errors.NewConfigurationError("dataset", "dataset is nil", nil)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	folds, err := GenerateFolds(ds, gs.K, gs.Repeats, gs.Seed)
	if err != nil {
		return nil, err
	}
	neg, pos := ds.ClassCounts()
	logger.Info("Folds generated",
		log.PhaseKey, log.PhaseFolding,
		log.SamplesKey, ds.Rows(),
		log.PositivesKey, pos,
		log.NegativesKey, neg,
		log.FoldsKey, gs.K,
		log.RepeatsKey, gs.Repeats,
		log.RandomSeedKey, gs.Seed,
	)

	configs, err := Enumerate(grid)
	if err != nil {
		return nil, err
	}
	if v, ok := trainer.(model.ParamValidator); ok {
		for _, cfg := range configs {
			if err := v.ValidateParams(cfg); err != nil {
				var ce *errors.ConfigurationError
				if errors.As(err, &ce) {
					return nil, err
				}
				return nil, errors.NewConfigurationError(fmt.Sprintf("grid[%d]", cfg.Index()), err.Error(), cfg.String())
			}
		}
	}

	cv := &CrossValidator{Workers: gs.Workers, FailureTolerance: gs.FailureTolerance, Logger: logger}
	results, cvErr := cv.Evaluate(ctx, ds, folds, configs, trainer)
	if cvErr != nil && results == nil {
		return nil, cvErr
	}

	summaries := Aggregate(results)
	for _, s := range summaries {
		if s.FailedFolds > 0 || s.Invalid {
			logger.Warn("Configuration had fold failures",
				log.PhaseKey, log.PhaseAggregation,
				log.ConfigIndexKey, s.Config.Index(),
				log.ConfigKey, s.Config.String(),
				log.FailuresKey, s.FailedFolds,
				log.ReasonKey, s.InvalidReason,
			)
		}
	}

	res := &SearchResult{
		Folds:     folds,
		Configs:   configs,
		CV:        results,
		Summaries: summaries,
	}

	selected, err := Select(summaries, gs.Epsilon)
	if err != nil {
		logger.Error("No configuration could be selected", err, log.PhaseKey, log.PhaseSelection)
		if cvErr != nil {
			return res, errors.Wrap(cvErr, "search cancelled with no eligible configuration")
		}
		return nil, err
	}
	res.Selected = selected
	selectedMeanAUC.Set(selected.Summary.MeanAUC)
	logger.Info("Configuration selected",
		log.PhaseKey, log.PhaseSelection,
		log.ConfigIndexKey, selected.Config.Index(),
		log.ConfigKey, selected.Config.String(),
		log.AUCKey, selected.Summary.MeanAUC,
		log.AUCStdKey, selected.Summary.StdAUC,
	)

	if cvErr != nil {
		logger.Warn("Search cancelled, skipping final refit",
			log.PhaseKey, log.PhaseRefit,
			log.ConfigIndexKey, selected.Config.Index(),
		)
		return res, errors.Wrap(cvErr, "search cancelled during cross-validation")
	}

	final, err := FitFinal(ctx, ds, selected, trainer)
	if err != nil {
		logger.Error("Final refit failed", err, log.PhaseKey, log.PhaseRefit)
		return nil, err
	}
	res.FinalModel = final
	return res, nil
}
