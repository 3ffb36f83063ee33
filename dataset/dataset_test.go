package dataset

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

func newToy(t *testing.T) *Dataset {
	t.Helper()
	x := mat.NewDense(6, 2, []float64{
		0, 1,
		1, 1,
		2, 0,
		3, 0,
		4, 1,
		5, 0,
	})
	ds, err := New(x, []float64{0, 0, 0, 1, 1, 1}, []string{"age", "dose"}, [2]string{"healthy", "sick"})
	require.NoError(t, err)
	return ds
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name string
		x    *mat.Dense
		y    []float64
	}{
		{name: "single class", x: mat.NewDense(2, 1, []float64{1, 2}), y: []float64{1, 1}},
		{name: "non-binary label", x: mat.NewDense(2, 1, []float64{1, 2}), y: []float64{0, 2}},
		{name: "nan covariate", x: mat.NewDense(2, 1, []float64{math.NaN(), 2}), y: []float64{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.x, tt.y, nil, [2]string{})
			var cfgErr *errors.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "want ConfigurationError, got %v", err)
		})
	}

	_, err := New(mat.NewDense(2, 1, []float64{1, 2}), []float64{0}, nil, [2]string{})
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestDatasetAccessors(t *testing.T) {
	ds := newToy(t)

	assert.Equal(t, 6, ds.Rows())
	assert.Equal(t, 2, ds.NumFeatures())
	assert.Equal(t, []float64{3, 0}, ds.Row(3))
	assert.Equal(t, [2]string{"healthy", "sick"}, ds.Classes())

	neg, pos := ds.ClassCounts()
	assert.Equal(t, 3, neg)
	assert.Equal(t, 3, pos)
	assert.Equal(t, 3, ds.MinorityCount())

	labels := ds.Labels()
	labels[0] = 1
	assert.Equal(t, Negative, ds.Label(0), "Labels must return a copy")
}

func TestSubset(t *testing.T) {
	ds := newToy(t)

	sub, err := ds.Subset([]int{5, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, sub.Rows())
	assert.Equal(t, []float64{5, 0}, sub.Row(0))
	assert.Equal(t, Positive, sub.Label(0))
	assert.Equal(t, Negative, sub.Label(1))

	_, err = ds.Subset([]int{6})
	assert.Error(t, err)
	_, err = ds.Subset(nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestFingerprint(t *testing.T) {
	a := newToy(t)
	b := newToy(t)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	sub, err := a.Subset([]int{0, 1, 2, 3, 4})
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), sub.Fingerprint())
}

func TestReadCSV(t *testing.T) {
	const data = `age,dose,outcome
1,0.5,no
2,1.5,yes
3,2.5,no
4,3.5,yes
`
	ds, err := ReadCSV(strings.NewReader(data), CSVOptions{LabelColumn: "outcome", PositiveLabel: "yes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "dose"}, ds.Features())
	assert.Equal(t, [2]string{"no", "yes"}, ds.Classes())
	assert.Equal(t, []float64{0, 1, 0, 1}, ds.Labels())

	ds, err = ReadCSV(strings.NewReader(data), CSVOptions{LabelColumn: "outcome", PositiveLabel: "no", Features: []string{"dose"}})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.NumFeatures())
	assert.Equal(t, []float64{1, 0, 1, 0}, ds.Labels())
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		opts CSVOptions
	}{
		{name: "missing label column", data: "a,b\n1,0\n", opts: CSVOptions{LabelColumn: "y"}},
		{name: "non-numeric covariate", data: "a,y\nx,0\n2,1\n", opts: CSVOptions{LabelColumn: "y"}},
		{name: "three classes", data: "a,y\n1,0\n2,1\n3,2\n", opts: CSVOptions{LabelColumn: "y"}},
		{name: "unknown positive", data: "a,y\n1,no\n2,yes\n", opts: CSVOptions{LabelColumn: "y", PositiveLabel: "maybe"}},
		{name: "positive required", data: "a,y\n1,no\n2,yes\n", opts: CSVOptions{LabelColumn: "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.data), tt.opts)
			var cfgErr *errors.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "want ConfigurationError, got %v", err)
		})
	}
}

func TestStratifiedSplit(t *testing.T) {
	n := 100
	x := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x.Set(i, 0, float64(i))
		if i%4 == 0 {
			y[i] = Positive
		}
	}
	ds, err := New(x, y, nil, [2]string{})
	require.NoError(t, err)

	train, test, err := StratifiedSplit(ds, 0.2, 7)
	require.NoError(t, err)
	assert.Equal(t, n, train.Rows()+test.Rows())

	_, testPos := test.ClassCounts()
	_, trainPos := train.ClassCounts()
	assert.Equal(t, 5, testPos)
	assert.Equal(t, 20, trainPos)

	again, _, err := StratifiedSplit(ds, 0.2, 7)
	require.NoError(t, err)
	assert.Equal(t, train.Fingerprint(), again.Fingerprint())

	_, _, err = StratifiedSplit(ds, 1.5, 7)
	assert.Error(t, err)
}
