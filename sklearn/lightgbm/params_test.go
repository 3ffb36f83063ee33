package lightgbm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gbtune/core/model"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

func TestApplyAliases(t *testing.T) {
	p, err := Apply(DefaultParams(), model.MapParams{
		"num_boost_round":  50,
		"eta":              0.05,
		"max_depth":        4,
		"min_data_in_leaf": 5,
		"lambda_l2":        1.5,
		"bagging_fraction": 0.8,
		"feature_fraction": 0.5,
		"seed":             7,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, p.NumIterations)
	assert.Equal(t, 0.05, p.LearningRate)
	assert.Equal(t, 4, p.MaxDepth)
	assert.Equal(t, 5, p.MinDataInLeaf)
	assert.Equal(t, 1.5, p.Lambda)
	assert.Equal(t, 0.8, p.BaggingFraction)
	assert.Equal(t, 0.5, p.FeatureFraction)
	assert.Equal(t, int64(7), p.Seed)

	// untouched parameters keep the base values
	assert.Equal(t, 31, p.NumLeaves)
}

func TestApplyRejects(t *testing.T) {
	tests := []struct {
		name   string
		params model.MapParams
	}{
		{"unknown name", model.MapParams{"boosting_rounds": 10}},
		{"two aliases of one parameter", model.MapParams{"n_estimators": 10, "num_trees": 20}},
		{"fractional integer", model.MapParams{"max_depth": 2.5}},
		{"out of range", model.MapParams{"subsample": 1.5}},
		{"zero learning rate", model.MapParams{"learning_rate": 0}},
		{"too few leaves", model.MapParams{"num_leaves": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(DefaultParams(), tt.params)
			var ce *errors.ConfigurationError
			assert.True(t, errors.As(err, &ce), "got %v", err)
		})
	}
}

func TestCanonicalName(t *testing.T) {
	name, ok := CanonicalName("num_iterations")
	assert.True(t, ok)
	assert.Equal(t, "n_estimators", name)

	_, ok = CanonicalName("nope")
	assert.False(t, ok)

	assert.Contains(t, SupportedParameters(), "colsample_bytree")
	for _, key := range model.TreeCountKeys {
		name, ok := CanonicalName(key)
		assert.True(t, ok, key)
		assert.Equal(t, "n_estimators", name)
	}
	for _, key := range model.MaxDepthKeys {
		name, ok := CanonicalName(key)
		assert.True(t, ok, key)
		assert.Equal(t, "max_depth", name)
	}
}

func TestSamplingDeterministic(t *testing.T) {
	p := DefaultParams()
	p.FeatureFraction = 0.5
	p.BaggingFraction = 0.7
	p.Seed = 3

	a, b := NewSamplingStrategy(p), NewSamplingStrategy(p)
	assert.Equal(t, a.SampleFeatures(10, 4), b.SampleFeatures(10, 4))
	assert.Equal(t, a.SampleInstances(100, 4), b.SampleInstances(100, 4))

	feats := a.SampleFeatures(10, 4)
	assert.Len(t, feats, 5)
	assert.IsIncreasing(t, feats)

	rows := a.SampleInstances(100, 2)
	assert.Len(t, rows, 70)
	assert.IsIncreasing(t, rows)

	full := NewSamplingStrategy(DefaultParams())
	assert.Len(t, full.SampleInstances(100, 0), 100)
	assert.Len(t, full.SampleFeatures(10, 0), 10)
}

func TestSamplingBaggingFrequency(t *testing.T) {
	p := DefaultParams()
	p.BaggingFraction = 0.5
	p.BaggingFreq = 3
	s := NewSamplingStrategy(p)

	assert.Equal(t, s.SampleInstances(50, 0), s.SampleInstances(50, 2))
	assert.NotEqual(t, s.SampleInstances(50, 0), s.SampleInstances(50, 3))
}
