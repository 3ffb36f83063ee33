package model_selection

import (
	"context"

	"github.com/YuminosukeSato/gbtune/core/model"
	"github.com/YuminosukeSato/gbtune/dataset"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// FinalModel is the model refit on the full training set with the selected
// configuration.
type FinalModel struct {
	model.Model
	Selected SelectedConfig
}

// FitFinal trains once on the full training set. Any trainer error or panic
// is returned as a TrainingError carrying the configuration and the cause.
// There is no retry.
func FitFinal(ctx context.Context, ds *dataset.Dataset, selected SelectedConfig, trainer model.Trainer) (*FinalModel, error) {
	if ds == nil {
		return nil, errors.NewConfigurationError("dataset", "dataset is nil", nil)
	}
	if trainer == nil {
		return nil, errors.NewConfigurationError("trainer", "trainer is nil", nil)
	}

	m, err := errors.SafeCall("Trainer.Fit", func() (model.Model, error) {
		return trainer.Fit(ctx, ds, selected.Config)
	})
	if err != nil {
		return nil, errors.NewTrainingError(selected.Config.String(), err)
	}
	if m == nil {
		return nil, errors.NewTrainingError(selected.Config.String(), errors.New("trainer returned a nil model"))
	}
	return &FinalModel{Model: m, Selected: selected}, nil
}
