// Package dataset holds the labeled binary-classification data the search
// harness operates on. A Dataset is immutable once constructed: Subset and
// the accessors return copies, so it can be shared by every CV worker.
package dataset

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// Label values. Labels are stored as float64 to match gonum vectors.
const (
	Negative = 0.0
	Positive = 1.0
)

// Dataset is an ordered set of records with numeric covariates and a binary label.
type Dataset struct {
	x        *mat.Dense
	y        []float64
	features []string
	classes  [2]string
}

// New builds a validated Dataset. X and y are copied. classes holds the
// original names of the negative and positive class; empty names default to
// "0" and "1".
func New(X mat.Matrix, y []float64, features []string, classes [2]string) (*Dataset, error) {
	if X == nil {
		return nil, errors.NewConfigurationError("dataset", "covariate matrix is nil", nil)
	}
	rows, cols := X.Dims()
	if len(y) != rows {
		return nil, errors.NewDimensionError("dataset.New", rows, len(y), 0)
	}
	if features == nil {
		features = make([]string, cols)
		for j := range features {
			features[j] = fmt.Sprintf("x%d", j)
		}
	}
	if len(features) != cols {
		return nil, errors.NewDimensionError("dataset.New", cols, len(features), 1)
	}
	if classes[0] == "" {
		classes[0] = "0"
	}
	if classes[1] == "" {
		classes[1] = "1"
	}

	ds := &Dataset{
		x:        mat.DenseCopyOf(X),
		y:        append([]float64(nil), y...),
		features: append([]string(nil), features...),
		classes:  classes,
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate checks the dataset invariants: at least one record, labels in
// {0, 1}, both classes present and no NaN or Inf covariates.
func (d *Dataset) Validate() error {
	rows, cols := d.x.Dims()
	if rows == 0 {
		return errors.NewConfigurationError("dataset", "no records", 0)
	}
	for i, label := range d.y {
		if label != Negative && label != Positive {
			return errors.NewConfigurationError("dataset.label", fmt.Sprintf("record %d has a non-binary label", i), label)
		}
	}
	neg, pos := d.ClassCounts()
	if neg == 0 || pos == 0 {
		return errors.NewConfigurationError("dataset.label", "both classes must be present",
			fmt.Sprintf("negatives=%d positives=%d", neg, pos))
	}
	if err := errors.CheckMatrix("dataset covariates", d.x, rows, cols); err != nil {
		return errors.NewConfigurationError("dataset", "covariates must be finite", err.Error())
	}
	return nil
}

// Rows returns the number of records.
func (d *Dataset) Rows() int {
	return len(d.y)
}

// NumFeatures returns the number of covariates.
func (d *Dataset) NumFeatures() int {
	_, c := d.x.Dims()
	return c
}

// X returns the covariate matrix. Callers must not modify it.
func (d *Dataset) X() mat.Matrix {
	return d.x
}

// Row returns a copy of record i's covariates.
func (d *Dataset) Row(i int) []float64 {
	return mat.Row(nil, i, d.x)
}

// Label returns record i's label.
func (d *Dataset) Label(i int) float64 {
	return d.y[i]
}

// Labels returns a copy of the label vector.
func (d *Dataset) Labels() []float64 {
	return append([]float64(nil), d.y...)
}

// Features returns the covariate names.
func (d *Dataset) Features() []string {
	return append([]string(nil), d.features...)
}

// Classes returns the original names of the negative and positive class.
func (d *Dataset) Classes() [2]string {
	return d.classes
}

// ClassCounts returns the number of negative and positive records.
func (d *Dataset) ClassCounts() (negatives, positives int) {
	for _, label := range d.y {
		if label == Positive {
			positives++
		} else {
			negatives++
		}
	}
	return negatives, positives
}

// ClassIndices returns the record indices of each class in ascending order.
func (d *Dataset) ClassIndices() (negatives, positives []int) {
	for i, label := range d.y {
		if label == Positive {
			positives = append(positives, i)
		} else {
			negatives = append(negatives, i)
		}
	}
	return negatives, positives
}

// MinorityCount returns the size of the smaller class.
func (d *Dataset) MinorityCount() int {
	neg, pos := d.ClassCounts()
	if neg < pos {
		return neg
	}
	return pos
}

// Subset returns a new Dataset holding the given records in the given order.
// Unlike New it does not require both classes, so a degenerate fold can still
// be handed to a trainer and rejected there.
func (d *Dataset) Subset(indices []int) (*Dataset, error) {
	if len(indices) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.Subset")
	}
	n := d.Rows()
	cols := d.NumFeatures()
	x := mat.NewDense(len(indices), cols, nil)
	y := make([]float64, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, errors.NewValueError("dataset.Subset", fmt.Sprintf("index %d out of range [0, %d)", idx, n))
		}
		x.SetRow(i, d.x.RawRowView(idx))
		y[i] = d.y[idx]
	}
	return &Dataset{x: x, y: y, features: d.features, classes: d.classes}, nil
}

// Fingerprint returns a hex SHA-256 digest of covariates, labels and feature
// names. Equal datasets have equal fingerprints.
func (d *Dataset) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	rows, cols := d.x.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(d.x.At(i, j)))
			h.Write(buf[:])
		}
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(d.y[i]))
		h.Write(buf[:])
	}
	for _, f := range d.features {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sortedCopy(indices []int) []int {
	out := append([]int(nil), indices...)
	sort.Ints(out)
	return out
}
