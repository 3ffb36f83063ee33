package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfusionMatrixAt(t *testing.T) {
	y := []float64{1, 1, 0, 0, 1, 0}
	s := []float64{0.9, 0.4, 0.5, 0.1, 0.5, 0.2}

	cm, err := ConfusionMatrixAt(y, s, 0.5)
	require.NoError(t, err)
	assert.Equal(t, ConfusionMatrix{TP: 2, FP: 1, TN: 2, FN: 1}, cm)
	assert.Equal(t, 6, cm.Total())
	assert.InDelta(t, 2.0/3.0, cm.Sensitivity(), 1e-12)
	assert.InDelta(t, 2.0/3.0, cm.Specificity(), 1e-12)
	assert.InDelta(t, 2.0/3.0, cm.Precision(), 1e-12)
	assert.InDelta(t, 4.0/6.0, cm.Accuracy(), 1e-12)
	assert.InDelta(t, 2.0/3.0, cm.F1(), 1e-12)
}

func TestConfusionMatrixUndefinedRatesAreZero(t *testing.T) {
	cm := ConfusionMatrix{TN: 3, FN: 2}
	assert.Equal(t, 0.0, cm.Precision())
	assert.Equal(t, 0.0, cm.Sensitivity())
	assert.Equal(t, 1.0, cm.Specificity())
}

func TestROCCurve(t *testing.T) {
	y := []float64{0, 0, 1, 1}
	s := []float64{0.1, 0.4, 0.35, 0.8}

	points, err := ROCCurve(y, s)
	require.NoError(t, err)
	require.Len(t, points, 5)

	assert.Equal(t, ROCPoint{FPR: 0, TPR: 0, Threshold: math.Nextafter(0.8, math.Inf(1))}, points[0])
	assert.Equal(t, ROCPoint{FPR: 0, TPR: 0.5, Threshold: 0.8}, points[1])
	assert.Equal(t, ROCPoint{FPR: 0.5, TPR: 0.5, Threshold: 0.4}, points[2])
	assert.Equal(t, ROCPoint{FPR: 0.5, TPR: 1, Threshold: 0.35}, points[3])
	assert.Equal(t, ROCPoint{FPR: 1, TPR: 1, Threshold: 0.1}, points[4])

	for i := 1; i < len(points); i++ {
		assert.Less(t, points[i].Threshold, points[i-1].Threshold)
		assert.GreaterOrEqual(t, points[i].FPR, points[i-1].FPR)
		assert.GreaterOrEqual(t, points[i].TPR, points[i-1].TPR)
	}
}

func TestROCCurveTiedScoresShareAPoint(t *testing.T) {
	points, err := ROCCurve([]float64{0, 1, 0, 1}, []float64{0.5, 0.5, 0.5, 0.5})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 1.0, points[1].FPR)
	assert.Equal(t, 1.0, points[1].TPR)
}

func TestTrapezoidAUCMatchesRankAUC(t *testing.T) {
	y := []float64{0, 1, 0, 1, 1, 0, 0, 1, 1, 0}
	s := []float64{0.3, 0.6, 0.6, 0.9, 0.2, 0.1, 0.5, 0.5, 0.7, 0.4}

	points, err := ROCCurve(y, s)
	require.NoError(t, err)
	auc, err := ROCAUC(y, s)
	require.NoError(t, err)
	assert.InDelta(t, auc, TrapezoidAUC(points), 1e-12)
}

func TestROCCurveSingleClass(t *testing.T) {
	_, err := ROCCurve([]float64{0, 0}, []float64{0.1, 0.2})
	assert.Error(t, err)
}

func TestYoudenOptimal(t *testing.T) {
	points := []ROCPoint{
		{FPR: 0, TPR: 0, Threshold: 0.95},
		{FPR: 0, TPR: 0.5, Threshold: 0.9},
		{FPR: 0.25, TPR: 0.75, Threshold: 0.6},
		{FPR: 0.5, TPR: 1, Threshold: 0.4},
		{FPR: 1, TPR: 1, Threshold: 0.1},
	}
	op, err := YoudenOptimal(points)
	require.NoError(t, err)
	// J = 0.5 at 0.9, 0.6 and 0.4; the highest threshold wins.
	assert.Equal(t, 0.9, op.Threshold)
	assert.InDelta(t, 0.5, op.YoudenJ, 1e-12)
	assert.Equal(t, 0.5, op.Sensitivity)
	assert.Equal(t, 1.0, op.Specificity)

	_, err = YoudenOptimal(nil)
	assert.Error(t, err)
}
