package model_selection

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gbtune/core/model"
	"github.com/YuminosukeSato/gbtune/dataset"
)

// synthetic builds n records, every third one positive. Column 0 carries a
// noisy signal, column 1 pure noise and column 2 the record id, all in [0, 1]
// except the id.
func synthetic(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	rng := rand.New(rand.NewPCG(42, 7))
	x := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		if i%10 < 3 {
			y[i] = dataset.Positive
		}
		x.Set(i, 0, 0.3*y[i]+0.7*rng.Float64())
		x.Set(i, 1, rng.Float64())
		x.Set(i, 2, float64(i))
	}
	ds, err := dataset.New(x, y, []string{"signal", "noise", "id"}, [2]string{"neg", "pos"})
	require.NoError(t, err)
	return ds
}

// blendModel scores (1-noise)*signal + noise*noise-column.
type blendModel struct{ noise float64 }

func (m blendModel) PredictProbability(x []float64) (float64, error) {
	return (1-m.noise)*x[0] + m.noise*x[1], nil
}

// stubTrainer returns a blendModel driven by the "noise" parameter and
// records what it was trained on.
type stubTrainer struct {
	calls atomic.Int64

	mu  sync.Mutex
	ids [][]int

	// hook runs before the model is built; a non-nil error fails the fit.
	hook func(ctx context.Context, train *dataset.Dataset, params model.Params) error
}

func (s *stubTrainer) Fit(ctx context.Context, train *dataset.Dataset, params model.Params) (model.Model, error) {
	s.calls.Add(1)

	ids := make([]int, train.Rows())
	for i := range ids {
		ids[i] = int(train.Row(i)[2])
	}
	s.mu.Lock()
	s.ids = append(s.ids, ids)
	s.mu.Unlock()

	if s.hook != nil {
		if err := s.hook(ctx, train, params); err != nil {
			return nil, err
		}
	}
	noise, _ := params.Lookup("noise")
	return blendModel{noise: noise}, nil
}

func (s *stubTrainer) Name() string { return "stub" }

func containsID(train *dataset.Dataset, id int) bool {
	for i := 0; i < train.Rows(); i++ {
		if int(train.Row(i)[2]) == id {
			return true
		}
	}
	return false
}

func noiseGrid() GridSpec {
	return GridSpec{{Name: "noise", Values: []float64{0, 0.5, 1}}}
}
