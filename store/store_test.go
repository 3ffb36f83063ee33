package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gbtune/metrics"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
	"github.com/YuminosukeSato/gbtune/report"
	ms "github.com/YuminosukeSato/gbtune/sklearn/model_selection"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func fixture() (*report.EvaluationReport, *ms.SearchResult) {
	c0 := ms.NewHyperparameterConfig(0, ms.Param{Name: "max_depth", Value: 3})
	c1 := ms.NewHyperparameterConfig(1, ms.Param{Name: "max_depth", Value: 6})

	cv := &ms.CVResults{Configs: []ms.ConfigResult{
		{
			Config: c0,
			Metrics: []ms.FoldMetric{
				{Repeat: 0, Fold: 0, AUC: 0.8, Sensitivity: 0.7, Specificity: 0.9},
				{Repeat: 0, Fold: 1, AUC: 0.9, Sensitivity: 0.8, Specificity: 0.8},
			},
		},
		{
			Config:  c1,
			Metrics: []ms.FoldMetric{{Repeat: 0, Fold: 0, AUC: 0.7, Sensitivity: 0.6, Specificity: 0.7}},
			Failures: []*errors.FoldFailure{
				errors.NewFoldFailure(1, c1.String(), 0, 1, "training failed", errors.New("diverged")),
			},
			Excluded:        true,
			ExclusionReason: "1 of 2 folds failed (tolerance 0)",
		},
	}}

	rep := &report.EvaluationReport{
		RunID: "4b1f0c3e-0000-5000-8000-000000000001",
		Model: "lightgbm",
		Selected: report.SelectedConfig{
			Index:   0,
			Params:  c0.Params(),
			MeanAUC: 0.85,
		},
		CVSummary: []report.SummaryRow{
			{Index: 0, Params: c0.Params(), MeanAUC: 0.85, StdAUC: 0.07, SuccessfulFolds: 2},
			{Index: 1, Params: c1.Params(), MeanAUC: 0.7, SuccessfulFolds: 1, FailedFolds: 1,
				Invalid: true, InvalidReason: "1 of 2 folds failed (tolerance 0)"},
		},
		TestSize:        10,
		TestPositives:   4,
		Threshold:       0.5,
		ConfusionMatrix: metrics.ConfusionMatrix{TP: 3, FP: 1, TN: 5, FN: 1},
		AUC:             metrics.AUCInterval{AUC: 0.88, Lower: 0.7, Upper: 1, Level: 0.95, Method: metrics.CIMethodDeLong},
		ROC:             []metrics.ROCPoint{{FPR: 0, TPR: 0, Threshold: 1}, {FPR: 1, TPR: 1, Threshold: 0.1}},
	}
	return rep, &ms.SearchResult{CV: cv}
}

func count(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestSaveRun(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t)
	rep, res := fixture()

	require.NoError(t, s.SaveRun(ctx, rep, res))

	assert.Equal(t, 1, count(t, s, "runs"))
	assert.Equal(t, 2, count(t, s, "config_summaries"))
	assert.Equal(t, 4, count(t, s, "fold_metrics"))

	run, err := s.Run(ctx, rep.RunID)
	require.NoError(t, err)
	assert.Equal(t, "lightgbm", run.Model)
	assert.Equal(t, 0, run.SelectedIndex)
	assert.Equal(t, []ms.Param{{Name: "max_depth", Value: 3}}, run.SelectedParams)
	assert.Equal(t, 0.88, run.TestAUC)
	assert.Equal(t, 0.7, run.AUCLower)

	summaries, err := s.Summaries(ctx, rep.RunID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.False(t, summaries[0].Invalid)
	assert.True(t, summaries[1].Invalid)
	assert.Equal(t, 1, summaries[1].FailedFolds)
	assert.Equal(t, "1 of 2 folds failed (tolerance 0)", summaries[1].InvalidReason)
	assert.Equal(t, []ms.Param{{Name: "max_depth", Value: 6}}, summaries[1].Params)

	folds, err := s.Folds(ctx, rep.RunID, 1)
	require.NoError(t, err)
	require.Len(t, folds, 2)
	assert.False(t, folds[0].Failed)
	assert.Equal(t, 0.7, folds[0].AUC)
	assert.True(t, folds[1].Failed)
	assert.Equal(t, "training failed", folds[1].Reason)
	assert.Zero(t, folds[1].AUC)

	stored, err := s.Report(ctx, rep.RunID)
	require.NoError(t, err)
	assert.True(t, rep.Equal(stored))
}

func TestSaveRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t)
	rep, res := fixture()

	require.NoError(t, s.SaveRun(ctx, rep, res))
	require.NoError(t, s.SaveRun(ctx, rep, res))

	assert.Equal(t, 1, count(t, s, "runs"))
	assert.Equal(t, 2, count(t, s, "config_summaries"))
	assert.Equal(t, 4, count(t, s, "fold_metrics"))
}

func TestSaveRunWithoutSearchResult(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t)
	rep, _ := fixture()

	require.NoError(t, s.SaveRun(ctx, rep, nil))
	assert.Equal(t, 2, count(t, s, "config_summaries"))
	assert.Equal(t, 0, count(t, s, "fold_metrics"))
}

func TestSaveRunRequiresRunID(t *testing.T) {
	s := tempStore(t)
	rep, res := fixture()
	rep.RunID = ""

	err := s.SaveRun(context.Background(), rep, res)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
	assert.Error(t, s.SaveRun(context.Background(), nil, res))
}

func TestRunNotFound(t *testing.T) {
	s := tempStore(t)
	_, err := s.Run(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	rep, res := fixture()
	require.NoError(t, s.SaveRun(context.Background(), rep, res))
	assert.Equal(t, 1, count(t, s, "runs"))
}
