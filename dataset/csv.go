package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// CSVOptions controls LoadCSV.
type CSVOptions struct {
	// LabelColumn is the header name of the label column. Required.
	LabelColumn string
	// PositiveLabel is the raw label value of the positive class. When empty
	// the labels must be "0" and "1" and "1" is positive.
	PositiveLabel string
	// Features restricts and orders the covariate columns. Empty keeps every
	// non-label column in file order.
	Features []string
}

// LoadCSV reads a headered CSV file into a Dataset.
func LoadCSV(path string, opts CSVOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	ds, err := ReadCSV(f, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "read dataset %s", path)
	}
	return ds, nil
}

// ReadCSV parses a headered CSV stream into a Dataset. Every covariate must be
// numeric; the label column must hold exactly two distinct values.
func ReadCSV(r io.Reader, opts CSVOptions) (*Dataset, error) {
	if opts.LabelColumn == "" {
		return nil, errors.NewConfigurationError("label", "label column is required", nil)
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	if len(records) < 2 {
		return nil, errors.Wrap(errors.ErrEmptyData, "csv has no data rows")
	}

	header := records[0]
	column := make(map[string]int, len(header))
	for j, name := range header {
		column[strings.TrimSpace(name)] = j
	}
	labelCol, ok := column[opts.LabelColumn]
	if !ok {
		return nil, errors.NewConfigurationError("label", "label column not found in header", opts.LabelColumn)
	}

	featureNames := opts.Features
	if len(featureNames) == 0 {
		for j, name := range header {
			if j != labelCol {
				featureNames = append(featureNames, strings.TrimSpace(name))
			}
		}
	}
	featureCols := make([]int, len(featureNames))
	for k, name := range featureNames {
		j, ok := column[name]
		if !ok || j == labelCol {
			return nil, errors.NewConfigurationError("features", "feature column not found in header", name)
		}
		featureCols[k] = j
	}

	data := records[1:]
	rawLabels := make([]string, len(data))
	x := mat.NewDense(len(data), len(featureCols), nil)
	for i, record := range data {
		for k, j := range featureCols {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[j]), 64)
			if err != nil {
				return nil, errors.NewConfigurationError(featureNames[k],
					fmt.Sprintf("non-numeric covariate at data row %d", i+1), record[j])
			}
			x.Set(i, k, v)
		}
		rawLabels[i] = strings.TrimSpace(record[labelCol])
	}

	classes, err := resolveClasses(rawLabels, opts.PositiveLabel)
	if err != nil {
		return nil, err
	}
	y := make([]float64, len(rawLabels))
	for i, raw := range rawLabels {
		if raw == classes[1] {
			y[i] = Positive
		}
	}
	return New(x, y, featureNames, classes)
}

// resolveClasses returns {negative, positive} raw label names.
func resolveClasses(raw []string, positive string) ([2]string, error) {
	seen := make(map[string]struct{})
	for _, v := range raw {
		seen[v] = struct{}{}
	}
	distinct := make([]string, 0, len(seen))
	for v := range seen {
		distinct = append(distinct, v)
	}
	sort.Strings(distinct)
	if len(distinct) != 2 {
		return [2]string{}, errors.NewConfigurationError("label", "label column must hold exactly two classes", distinct)
	}

	if positive == "" {
		if distinct[0] == "0" && distinct[1] == "1" {
			return [2]string{"0", "1"}, nil
		}
		return [2]string{}, errors.NewConfigurationError("positive", "positive label is required for non 0/1 labels", distinct)
	}
	switch positive {
	case distinct[0]:
		return [2]string{distinct[1], distinct[0]}, nil
	case distinct[1]:
		return [2]string{distinct[0], distinct[1]}, nil
	default:
		return [2]string{}, errors.NewConfigurationError("positive", "positive label does not occur in the label column", positive)
	}
}
