package model_selection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gbtune/core/model"
	"github.com/YuminosukeSato/gbtune/dataset"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
	"github.com/YuminosukeSato/gbtune/pkg/log"
)

func newSearch(t *testing.T, workers int) (*GridSearchCV, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	gs := NewGridSearchCV(1)
	gs.Repeats = 2
	gs.Workers = workers
	gs.Logger = logger
	return gs, logger
}

func TestGridSearchCVEndToEnd(t *testing.T) {
	ds := synthetic(t, 200)
	trainer := &stubTrainer{}
	gs, logger := newSearch(t, 4)

	res, err := gs.Fit(context.Background(), ds, noiseGrid(), trainer)
	require.NoError(t, err)

	// 3 configs x 5 folds x 2 repeats, plus the final refit
	assert.Equal(t, int64(31), trainer.calls.Load())
	assert.Len(t, res.Folds, 10)
	assert.Len(t, res.Configs, 3)
	assert.Len(t, res.Summaries, 3)
	assert.Equal(t, 0, res.Selected.Config.Index())
	require.NotNil(t, res.FinalModel)
	assert.Equal(t, res.Selected, res.FinalModel.Selected)
	assert.Len(t, trainer.ids[len(trainer.ids)-1], 200)

	assert.Equal(t, 30, logger.CountMessages("Fold scored"))
	assert.True(t, logger.ContainsMessage("Configuration selected"))
	assert.True(t, logger.ContainsField(log.ModelNameKey, "stub"))
}

func TestGridSearchCVDeterministicAcrossWorkers(t *testing.T) {
	ds := synthetic(t, 120)

	gs1, _ := newSearch(t, 1)
	res1, err := gs1.Fit(context.Background(), ds, noiseGrid(), &stubTrainer{})
	require.NoError(t, err)

	gs8, _ := newSearch(t, 8)
	res8, err := gs8.Fit(context.Background(), ds, noiseGrid(), &stubTrainer{})
	require.NoError(t, err)

	assert.Equal(t, res1.Folds, res8.Folds)
	assert.Equal(t, res1.Summaries, res8.Summaries)
	assert.Equal(t, res1.Selected, res8.Selected)
}

type rejectingTrainer struct{ stubTrainer }

func (r *rejectingTrainer) ValidateParams(p model.Params) error {
	if v, _ := p.Lookup("noise"); v > 0.9 {
		return errors.New("noise must not exceed 0.9")
	}
	return nil
}

func TestGridSearchCVValidatesParamsBeforeTraining(t *testing.T) {
	ds := synthetic(t, 60)
	trainer := &rejectingTrainer{}
	gs, _ := newSearch(t, 2)

	_, err := gs.Fit(context.Background(), ds, noiseGrid(), trainer)
	var ce *errors.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "grid[2]", ce.Param)
	assert.Zero(t, trainer.calls.Load())
}

func TestGridSearchCVNoValidConfiguration(t *testing.T) {
	ds := synthetic(t, 60)
	trainer := &stubTrainer{hook: func(context.Context, *dataset.Dataset, model.Params) error {
		return errors.New("always fails")
	}}
	gs, logger := newSearch(t, 2)

	_, err := gs.Fit(context.Background(), ds, noiseGrid(), trainer)
	var nv *errors.NoValidConfigurationError
	require.True(t, errors.As(err, &nv))
	assert.Len(t, nv.Reasons, 3)
	assert.Equal(t, 3, logger.CountMessages("Configuration had fold failures"))
}

func TestGridSearchCVRejectsBadFoldCount(t *testing.T) {
	ds := synthetic(t, 20)
	gs, _ := newSearch(t, 1)
	gs.K = 1

	_, err := gs.Fit(context.Background(), ds, noiseGrid(), &stubTrainer{})
	var ce *errors.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestGridSearchCVFinalRefitFailure(t *testing.T) {
	ds := synthetic(t, 60)
	trainer := &stubTrainer{}
	trainer.hook = func(_ context.Context, train *dataset.Dataset, _ model.Params) error {
		if train.Rows() == ds.Rows() {
			return errors.New("out of memory")
		}
		return nil
	}
	gs, _ := newSearch(t, 2)

	_, err := gs.Fit(context.Background(), ds, noiseGrid(), trainer)
	var te *errors.TrainingError
	assert.True(t, errors.As(err, &te))
}

func TestGridSearchCVCancellationSkipsFinalRefit(t *testing.T) {
	ds := synthetic(t, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trainer := &stubTrainer{}
	trainer.hook = func(context.Context, *dataset.Dataset, model.Params) error {
		if trainer.calls.Load() == 12 {
			cancel()
		}
		return nil
	}
	gs, logger := newSearch(t, 1)
	gs.FailureTolerance = 5

	res, err := gs.Fit(ctx, ds, noiseGrid(), trainer)
	require.ErrorIs(t, err, context.Canceled)
	var te *errors.TrainingError
	assert.False(t, errors.As(err, &te))

	require.NotNil(t, res)
	assert.True(t, res.CV.Cancelled)
	assert.Nil(t, res.FinalModel)
	assert.Equal(t, 0, res.Selected.Config.Index())
	assert.Equal(t, 10, res.Summaries[0].SuccessfulFolds)
	assert.True(t, res.Summaries[1].Invalid)
	assert.True(t, res.Summaries[2].Invalid)
	assert.Equal(t, int64(12), trainer.calls.Load())
	assert.Equal(t, 1, logger.CountMessages("Search cancelled, skipping final refit"))
}

func TestGridSearchCVCancellationWithoutSurvivors(t *testing.T) {
	ds := synthetic(t, 60)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trainer := &stubTrainer{}
	trainer.hook = func(context.Context, *dataset.Dataset, model.Params) error {
		cancel()
		return nil
	}
	gs, _ := newSearch(t, 1)

	res, err := gs.Fit(ctx, ds, noiseGrid(), trainer)
	require.ErrorIs(t, err, context.Canceled)
	var nv *errors.NoValidConfigurationError
	assert.False(t, errors.As(err, &nv))
	require.NotNil(t, res)
	assert.Nil(t, res.FinalModel)
	assert.Len(t, res.Summaries, 3)
}
