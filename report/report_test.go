package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gbtune/dataset"
	"github.com/YuminosukeSato/gbtune/metrics"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
	"github.com/YuminosukeSato/gbtune/pkg/log"
	ms "github.com/YuminosukeSato/gbtune/sklearn/model_selection"
)

// scoreModel returns the first covariate as the probability.
type scoreModel struct{}

func (scoreModel) PredictProbability(x []float64) (float64, error) { return x[0], nil }

func testSet(t *testing.T, scores, labels []float64) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(mat.NewDense(len(scores), 1, scores), labels, []string{"score"}, [2]string{"neg", "pos"})
	require.NoError(t, err)
	return ds
}

func finalModel() *ms.FinalModel {
	cfg := ms.NewHyperparameterConfig(1, ms.Param{Name: "n_estimators", Value: 100}, ms.Param{Name: "max_depth", Value: 3})
	return &ms.FinalModel{
		Model: scoreModel{},
		Selected: ms.SelectedConfig{
			Config:  cfg,
			Summary: ms.ConfigSummary{Config: cfg, MeanAUC: 0.91, StdAUC: 0.02, StdErrAUC: 0.01},
		},
	}
}

func options(t *testing.T) Options {
	logger, _ := log.NewTestLogger(log.LevelError)
	cfg0 := ms.NewHyperparameterConfig(0, ms.Param{Name: "n_estimators", Value: 50}, ms.Param{Name: "max_depth", Value: 3})
	return Options{
		RunID:     "run-1",
		ModelName: "stub",
		Summaries: []ms.ConfigSummary{
			{Config: cfg0, MeanAUC: 0.85, SuccessfulFolds: 4, FailedFolds: 1, Invalid: true, InvalidReason: "1 of 5 folds failed (tolerance 0)"},
			finalModel().Selected.Summary,
		},
		Logger: logger,
	}
}

func TestEvaluate(t *testing.T) {
	test := testSet(t,
		[]float64{0.1, 0.2, 0.6, 0.3, 0.7, 0.4, 0.8, 0.9},
		[]float64{0, 0, 0, 0, 1, 1, 1, 1},
	)

	r, err := Evaluate(finalModel(), test, options(t))
	require.NoError(t, err)

	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, "stub", r.Model)
	assert.Equal(t, 1, r.Selected.Index)
	assert.Equal(t, []ms.Param{{Name: "n_estimators", Value: 100}, {Name: "max_depth", Value: 3}}, r.Selected.Params)
	assert.Equal(t, 0.91, r.Selected.MeanAUC)

	require.Len(t, r.CVSummary, 2)
	assert.Equal(t, 1, r.CVSummary[0].FailedFolds)
	assert.True(t, r.CVSummary[0].Invalid)

	assert.Equal(t, 8, r.TestSize)
	assert.Equal(t, 4, r.TestPositives)
	assert.Equal(t, 0.5, r.Threshold)
	assert.Equal(t, metrics.ConfusionMatrix{TP: 3, FP: 1, TN: 3, FN: 1}, r.ConfusionMatrix)
	assert.Equal(t, Rates{Sensitivity: 0.75, Specificity: 0.75, Precision: 0.75, Accuracy: 0.75, F1: 0.75}, r.Rates)

	assert.Equal(t, 0.9375, r.AUC.AUC)
	assert.Equal(t, metrics.CIMethodDeLong, r.AUC.Method)
	assert.Equal(t, 0.95, r.AUC.Level)
	assert.LessOrEqual(t, r.AUC.Lower, 0.9375)
	assert.LessOrEqual(t, r.AUC.Upper, 1.0)

	require.Len(t, r.ROC, 9)
	assert.Equal(t, 0.0, r.ROC[0].FPR)
	assert.Equal(t, 0.0, r.ROC[0].TPR)
	assert.Greater(t, r.ROC[0].Threshold, 0.9)

	// J = 0.75 at thresholds 0.7 and 0.4; the higher one wins.
	assert.Equal(t, metrics.OperatingPoint{Threshold: 0.7, Sensitivity: 0.75, Specificity: 1, YoudenJ: 0.75}, r.Optimal)
	assert.Empty(t, r.Warnings)
}

func TestEvaluateUndefinedPrecisionWarns(t *testing.T) {
	test := testSet(t, []float64{0.1, 0.2, 0.3, 0.4}, []float64{0, 1, 0, 1})

	r, err := Evaluate(finalModel(), test, options(t))
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.Rates.Precision)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "precision")
	assert.Equal(t, metrics.ConfusionMatrix{TN: 2, FN: 2}, r.ConfusionMatrix)
}

func TestEvaluateRequiresBothClasses(t *testing.T) {
	full := testSet(t, []float64{0.1, 0.9, 0.8}, []float64{0, 1, 1})
	positives, err := full.Subset([]int{1, 2})
	require.NoError(t, err)

	_, err = Evaluate(finalModel(), positives, options(t))
	var ce *errors.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestEvaluateRejectsNilInputs(t *testing.T) {
	test := testSet(t, []float64{0.1, 0.9}, []float64{0, 1})
	_, err := Evaluate(nil, test, options(t))
	var ce *errors.ConfigurationError
	assert.True(t, errors.As(err, &ce))

	_, err = Evaluate(finalModel(), nil, options(t))
	assert.True(t, errors.As(err, &ce))
}

func TestJSONRoundTrip(t *testing.T) {
	test := testSet(t,
		[]float64{0.1, 0.2, 0.6, 0.3, 0.7, 0.4, 0.8, 0.9},
		[]float64{0, 0, 0, 0, 1, 1, 1, 1},
	)
	r, err := Evaluate(finalModel(), test, options(t))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "report.json")
	require.NoError(t, WriteJSON(path, r))

	back, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, r, back)
	assert.True(t, r.Equal(back))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"method": "delong"`)
	assert.Contains(t, string(raw), `"fpr"`)

	_, err = ReadJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestEvaluateOptionDefaults(t *testing.T) {
	test := testSet(t,
		[]float64{0.1, 0.2, 0.6, 0.3, 0.7, 0.4, 0.8, 0.9},
		[]float64{0, 0, 0, 0, 1, 1, 1, 1},
	)
	tests := []struct {
		name      string
		threshold float64
		level     float64
		wantThr   float64
		wantLevel float64
		wantParam string
	}{
		{name: "zero selects defaults", wantThr: DefaultThreshold, wantLevel: DefaultConfidenceLevel},
		{name: "explicit values", threshold: 0.3, level: 0.9, wantThr: 0.3, wantLevel: 0.9},
		{name: "threshold one", threshold: 1, wantThr: 1, wantLevel: DefaultConfidenceLevel},
		{name: "threshold above one", threshold: 1.5, wantParam: "threshold"},
		{name: "negative threshold", threshold: -0.1, wantParam: "threshold"},
		{name: "confidence level one", level: 1, wantParam: "confidence_level"},
		{name: "negative confidence level", level: -0.5, wantParam: "confidence_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := options(t)
			opts.Threshold = tt.threshold
			opts.ConfidenceLevel = tt.level

			r, err := Evaluate(finalModel(), test, opts)
			if tt.wantParam != "" {
				var ce *errors.ConfigurationError
				require.True(t, errors.As(err, &ce))
				assert.Equal(t, tt.wantParam, ce.Param)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantThr, r.Threshold)
			assert.Equal(t, tt.wantLevel, r.AUC.Level)
		})
	}
}

func TestSaveROCPlot(t *testing.T) {
	test := testSet(t,
		[]float64{0.1, 0.2, 0.6, 0.3, 0.7, 0.4, 0.8, 0.9},
		[]float64{0, 0, 0, 0, 1, 1, 1, 1},
	)
	r, err := Evaluate(finalModel(), test, options(t))
	require.NoError(t, err)

	for _, name := range []string{"roc.png", "roc.svg"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, SaveROCPlot(r, path))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	assert.Error(t, SaveROCPlot(&EvaluationReport{}, filepath.Join(t.TempDir(), "empty.png")))

	err = SaveROCPlot(r, filepath.Join(t.TempDir(), "roc.unknown"))
	require.Error(t, err)
	var pe *errors.PanicError
	assert.False(t, errors.As(err, &pe))
	assert.Contains(t, err.Error(), "save ROC plot")
}
