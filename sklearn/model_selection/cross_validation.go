package model_selection

import (
	"context"
	"fmt"
	"time"

	"github.com/YuminosukeSato/gbtune/core/model"
	"github.com/YuminosukeSato/gbtune/core/parallel"
	"github.com/YuminosukeSato/gbtune/dataset"
	"github.com/YuminosukeSato/gbtune/metrics"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
	"github.com/YuminosukeSato/gbtune/pkg/log"
)

// DecisionThreshold is the probability at or above which a record is
// predicted positive for fold sensitivity and specificity.
const DecisionThreshold = 0.5

// FoldMetric is the holdout score of one configuration on one fold.
type FoldMetric struct {
	Repeat      int     `json:"repeat"`
	Fold        int     `json:"fold"`
	AUC         float64 `json:"auc"`
	Sensitivity float64 `json:"sensitivity"`
	Specificity float64 `json:"specificity"`
	TrainSize   int     `json:"train_size"`
	HoldoutSize int     `json:"holdout_size"`
}

// ConfigResult collects every fold outcome of one configuration.
type ConfigResult struct {
	Config          HyperparameterConfig
	Metrics         []FoldMetric
	Failures        []*errors.FoldFailure
	Excluded        bool
	ExclusionReason string
}

// CVResults is the output of CrossValidator.Evaluate, one ConfigResult per
// configuration in enumeration order.
type CVResults struct {
	Folds   []FoldAssignment
	Configs []ConfigResult
	// Cancelled is set when the context ended before every cell finished.
	Cancelled bool
}

// CrossValidator scores configurations on fold assignments in parallel.
type CrossValidator struct {
	// Workers bounds the number of concurrent cells; <= 0 means one per CPU.
	Workers int
	// FailureTolerance is the number of failed folds a configuration may have
	// before it is excluded from selection.
	FailureTolerance int
	Logger           log.Logger
}

// NewCrossValidator creates a CrossValidator with zero failure tolerance.
func NewCrossValidator(workers int) *CrossValidator {
	return &CrossValidator{Workers: workers}
}

type cellOutcome struct {
	done    bool
	metric  FoldMetric
	failure *errors.FoldFailure
}

// Evaluate trains and scores every configuration on every fold.
//
// Each (configuration, fold) cell trains on the fold's train indices only and
// predicts only its holdout indices. A cell that fails (trainer error or
// panic, bad predictions, undefined AUC) is recorded as a FoldFailure and the
// grid continues. When ctx is cancelled, cells that have not finished are
// recorded as failures carrying the context error and Evaluate returns the
// partial results together with ctx.Err().
func (cv *CrossValidator) Evaluate(ctx context.Context, ds *dataset.Dataset, folds []FoldAssignment,
	configs []HyperparameterConfig, trainer model.Trainer) (*CVResults, error) {
	if ds == nil {
		return nil, errors.NewConfigurationError("dataset", "dataset is nil", nil)
	}
	if trainer == nil {
		return nil, errors.NewConfigurationError("trainer", "trainer is nil", nil)
	}
	if len(configs) == 0 {
		return nil, errors.NewConfigurationError("configs", "no configurations to evaluate", nil)
	}
	if cv.FailureTolerance < 0 {
		return nil, errors.NewConfigurationError("failure_tolerance", "must be non-negative", cv.FailureTolerance)
	}
	if err := ValidateFolds(folds, ds.Rows()); err != nil {
		return nil, err
	}

	logger := cv.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("model_selection")
	}

	trainSets := make([]*dataset.Dataset, len(folds))
	holdoutLabels := make([][]float64, len(folds))
	for f, fa := range folds {
		sub, err := ds.Subset(fa.TrainIndices)
		if err != nil {
			return nil, errors.Wrapf(err, "build train partition for repeat %d fold %d", fa.Repeat, fa.Fold)
		}
		trainSets[f] = sub
		labels := make([]float64, len(fa.HoldoutIndices))
		for i, idx := range fa.HoldoutIndices {
			labels[i] = ds.Label(idx)
		}
		holdoutLabels[f] = labels
	}

	nFolds := len(folds)
	cells := make([]cellOutcome, len(configs)*nFolds)

	logger.Info("Cross-validation started",
		log.PhaseKey, log.PhaseValidation,
		log.CellsKey, len(cells),
		log.FoldsKey, nFolds,
		log.WorkersKey, cv.Workers,
	)

	ctxErr := parallel.ForEach(ctx, len(cells), cv.Workers, func(ctx context.Context, i int) {
		cfg := configs[i/nFolds]
		f := i % nFolds
		fa := folds[f]

		start := time.Now()
		metric, failure := evaluateCell(ctx, ds, trainSets[f], holdoutLabels[f], fa, cfg, trainer)
		elapsed := time.Since(start)

		cells[i] = cellOutcome{done: true, metric: metric, failure: failure}

		cellLogger := logger.With(
			log.ConfigIndexKey, cfg.Index(),
			log.RepeatKey, fa.Repeat,
			log.FoldKey, fa.Fold,
		)
		if failure != nil {
			observeCell(cellResultFailure, elapsed)
			cellLogger.Debug("Fold failed", log.ReasonKey, failure.Reason, log.DurationMsKey, elapsed.Milliseconds())
			return
		}
		observeCell(cellResultSuccess, elapsed)
		cellLogger.Debug("Fold scored", log.AUCKey, metric.AUC, log.DurationMsKey, elapsed.Milliseconds())
	})

	results := &CVResults{
		Folds:     folds,
		Configs:   make([]ConfigResult, len(configs)),
		Cancelled: ctxErr != nil,
	}
	for c, cfg := range configs {
		cr := ConfigResult{Config: cfg}
		for f, fa := range folds {
			cell := cells[c*nFolds+f]
			switch {
			case !cell.done:
				observeCell(cellResultCancelled, 0)
				cr.Failures = append(cr.Failures, errors.NewFoldFailure(cfg.Index(), cfg.String(),
					fa.Repeat, fa.Fold, "cancelled before completion", ctxErr))
			case cell.failure != nil:
				cr.Failures = append(cr.Failures, cell.failure)
			default:
				cr.Metrics = append(cr.Metrics, cell.metric)
			}
		}
		if len(cr.Failures) > cv.FailureTolerance {
			cr.Excluded = true
			cr.ExclusionReason = fmt.Sprintf("%d of %d folds failed (tolerance %d)",
				len(cr.Failures), nFolds, cv.FailureTolerance)
			configsExcluded.Inc()
		}
		results.Configs[c] = cr
	}

	if ctxErr != nil {
		logger.Warn("Cross-validation cancelled, keeping completed folds",
			log.ErrorKey, ctxErr,
			log.CellsKey, len(cells),
		)
		return results, ctxErr
	}
	return results, nil
}

// evaluateCell fits one configuration on one train partition and scores the
// holdout. It never returns both a metric and a failure.
func evaluateCell(ctx context.Context, ds, train *dataset.Dataset, labels []float64, fa FoldAssignment,
	cfg HyperparameterConfig, trainer model.Trainer) (FoldMetric, *errors.FoldFailure) {
	fail := func(reason string, err error) (FoldMetric, *errors.FoldFailure) {
		return FoldMetric{}, errors.NewFoldFailure(cfg.Index(), cfg.String(), fa.Repeat, fa.Fold, reason, err)
	}

	m, err := errors.SafeCall("Trainer.Fit", func() (model.Model, error) {
		return trainer.Fit(ctx, train, cfg)
	})
	if err != nil {
		if ctx.Err() != nil {
			return fail("cancelled during training", err)
		}
		return fail("training failed", err)
	}
	if m == nil {
		return fail("training failed", errors.New("trainer returned a nil model"))
	}

	probs, err := errors.SafeCall("Model.PredictProbability", func() ([]float64, error) {
		return model.PredictProbabilities(m, ds, fa.HoldoutIndices)
	})
	if err != nil {
		return fail("holdout prediction failed", err)
	}

	auc, err := metrics.ROCAUC(labels, probs)
	if err != nil {
		if errors.Is(err, metrics.ErrSingleClass) {
			return fail("AUC undefined: holdout contains a single class", err)
		}
		return fail("holdout scoring failed", err)
	}
	cm, err := metrics.ConfusionMatrixAt(labels, probs, DecisionThreshold)
	if err != nil {
		return fail("holdout scoring failed", err)
	}

	return FoldMetric{
		Repeat:      fa.Repeat,
		Fold:        fa.Fold,
		AUC:         auc,
		Sensitivity: cm.Sensitivity(),
		Specificity: cm.Specificity(),
		TrainSize:   len(fa.TrainIndices),
		HoldoutSize: len(fa.HoldoutIndices),
	}, nil
}
