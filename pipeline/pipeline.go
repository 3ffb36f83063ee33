// Package pipeline wires a full search run: load the data, cross-validate
// the grid, refit the winner, evaluate it on the test set and persist the
// report.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/gbtune/core/model"
	"github.com/YuminosukeSato/gbtune/dataset"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
	"github.com/YuminosukeSato/gbtune/pkg/log"
	"github.com/YuminosukeSato/gbtune/report"
	ms "github.com/YuminosukeSato/gbtune/sklearn/model_selection"
	"github.com/YuminosukeSato/gbtune/store"
)

// runNamespace scopes run ids generated by gbtune.
var runNamespace = uuid.MustParse("6c2b3e4a-51d7-4f0e-9a8c-2d7e1b90f5a3")

// RunID derives a name-based UUID from everything that determines a run's
// report: both datasets, the grid, the fixed parameters and the search and
// evaluation settings. Identical inputs always give the same id.
func RunID(cfg *RunConfig, train, test *dataset.Dataset) string {
	h := sha256.New()
	writeString := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	writeFloat := func(v float64) {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}

	writeString(train.Fingerprint())
	if test != nil {
		writeString(test.Fingerprint())
	}
	for _, p := range cfg.Grid {
		writeString(p.Name)
		for _, v := range p.Values {
			writeFloat(v)
		}
		writeString("")
	}
	for _, name := range model.MapParams(cfg.Params).Names() {
		writeString(name)
		writeFloat(cfg.Params[name])
	}
	for _, v := range []float64{
		float64(cfg.K), float64(cfg.Repeats), float64(cfg.Seed), float64(cfg.FailureTolerance),
		cfg.Epsilon, cfg.Threshold, cfg.ConfidenceLevel,
	} {
		writeFloat(v)
	}
	return uuid.NewSHA1(runNamespace, []byte(hex.EncodeToString(h.Sum(nil)))).String()
}

// LoadData reads the training file and either the test file or a stratified
// split of the training file.
func LoadData(cfg *RunConfig) (train, test *dataset.Dataset, err error) {
	if cfg.Train == "" {
		return nil, nil, errors.NewConfigurationError("train", "training data path is required", nil)
	}
	if cfg.Label == "" {
		return nil, nil, errors.NewConfigurationError("label", "label column is required", nil)
	}
	opts := dataset.CSVOptions{LabelColumn: cfg.Label, PositiveLabel: cfg.Positive, Features: cfg.Features}
	train, err = dataset.LoadCSV(cfg.Train, opts)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Test == "" {
		return dataset.StratifiedSplit(train, cfg.TestFraction, cfg.Seed)
	}
	if test, err = dataset.LoadCSV(cfg.Test, opts); err != nil {
		return nil, nil, err
	}
	if test.NumFeatures() != train.NumFeatures() {
		return nil, nil, errors.NewDimensionError("pipeline.LoadData", train.NumFeatures(), test.NumFeatures(), 1)
	}
	return train, test, nil
}

// Run searches the grid on train, refits the selected configuration and
// evaluates it on test. When cfg names output paths the report JSON, the ROC
// plot, the final model and the ledger row are written as well. Equal inputs
// produce equal reports.
//
// If ctx is cancelled during the search nothing is written; Run returns the
// partial SearchResult with the wrapped context error.
func Run(ctx context.Context, cfg *RunConfig, train, test *dataset.Dataset, trainer model.Trainer) (*report.EvaluationReport, *ms.SearchResult, error) {
	if cfg == nil {
		return nil, nil, errors.NewConfigurationError("config", "run config is nil", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if train == nil || test == nil {
		return nil, nil, errors.NewConfigurationError("dataset", "training and test sets are required", nil)
	}
	if trainer == nil {
		return nil, nil, errors.NewConfigurationError("trainer", "trainer is nil", nil)
	}

	runID := RunID(cfg, train, test)
	logger := log.GetLoggerWithName("pipeline").With(log.RunIDKey, runID)
	modelName := ""
	if named, ok := trainer.(model.Named); ok {
		modelName = named.Name()
	}

	gs := &ms.GridSearchCV{
		K:                cfg.K,
		Repeats:          cfg.Repeats,
		Seed:             cfg.Seed,
		Workers:          cfg.Workers,
		FailureTolerance: cfg.FailureTolerance,
		Epsilon:          cfg.Epsilon,
		Logger:           logger,
	}
	res, err := gs.Fit(ctx, train, cfg.Grid, trainer)
	if err != nil {
		// A cancelled search still hands back its partial result.
		return nil, res, err
	}

	rep, err := report.Evaluate(res.FinalModel, test, report.Options{
		RunID:           runID,
		ModelName:       modelName,
		Summaries:       res.Summaries,
		Threshold:       cfg.Threshold,
		ConfidenceLevel: cfg.ConfidenceLevel,
		Logger:          logger,
	})
	if err != nil {
		return nil, res, err
	}

	if err := persist(ctx, cfg, rep, res, logger); err != nil {
		return rep, res, err
	}
	return rep, res, nil
}

func persist(ctx context.Context, cfg *RunConfig, rep *report.EvaluationReport, res *ms.SearchResult, logger log.Logger) error {
	if cfg.Out != "" {
		if err := report.WriteJSON(cfg.Out, rep); err != nil {
			return err
		}
		logger.Info("Report written", log.PhaseKey, log.PhasePersist, log.OutputPathKey, cfg.Out)
	}
	if cfg.ROCPlot != "" {
		if err := report.SaveROCPlot(rep, cfg.ROCPlot); err != nil {
			return err
		}
		logger.Info("ROC plot written", log.PhaseKey, log.PhasePersist, log.OutputPathKey, cfg.ROCPlot)
	}
	if cfg.ModelOut != "" {
		if err := model.SaveModel(res.FinalModel.Model, cfg.ModelOut); err != nil {
			return err
		}
		logger.Info("Final model written", log.PhaseKey, log.PhasePersist, log.OutputPathKey, cfg.ModelOut)
	}
	if cfg.ResultsDB != "" {
		db, err := store.Open(cfg.ResultsDB)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.SaveRun(ctx, rep, res); err != nil {
			return err
		}
		logger.Info("Run recorded", log.PhaseKey, log.PhasePersist, log.OutputPathKey, cfg.ResultsDB)
	}
	return nil
}
