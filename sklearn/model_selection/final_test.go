package model_selection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gbtune/core/model"
	"github.com/YuminosukeSato/gbtune/dataset"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

func TestFitFinalTrainsOnceOnFullData(t *testing.T) {
	ds := synthetic(t, 50)
	trainer := &stubTrainer{}
	selected := SelectedConfig{Config: NewHyperparameterConfig(2, Param{Name: "noise", Value: 0.25})}

	final, err := FitFinal(context.Background(), ds, selected, trainer)
	require.NoError(t, err)
	assert.Equal(t, int64(1), trainer.calls.Load())
	assert.Len(t, trainer.ids[0], 50)
	assert.Equal(t, selected, final.Selected)

	p, err := final.PredictProbability([]float64{1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, p, 1e-12)
}

func TestFitFinalWrapsFailures(t *testing.T) {
	ds := synthetic(t, 50)
	selected := SelectedConfig{Config: NewHyperparameterConfig(0, Param{Name: "noise", Value: 0})}
	cause := errors.New("gradient overflow")

	tests := []struct {
		name string
		hook func(context.Context, *dataset.Dataset, model.Params) error
	}{
		{"error", func(context.Context, *dataset.Dataset, model.Params) error { return cause }},
		{"panic", func(context.Context, *dataset.Dataset, model.Params) error { panic("boom") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trainer := &stubTrainer{hook: tt.hook}
			_, err := FitFinal(context.Background(), ds, selected, trainer)

			var te *errors.TrainingError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, "noise=0", te.Config)
			assert.Equal(t, int64(1), trainer.calls.Load(), "no retry")
			if tt.name == "error" {
				assert.True(t, errors.Is(err, cause))
			}
		})
	}
}
