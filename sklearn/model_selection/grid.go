package model_selection

import (
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// ParamSpec lists the candidate values of one hyperparameter.
type ParamSpec struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// GridSpec is an ordered list of parameter candidates. Declaration order is
// significant: it fixes the enumeration order of the grid.
type GridSpec []ParamSpec

// UnmarshalYAML decodes a mapping of name to candidate list, keeping the key
// order of the document. A scalar is read as a single candidate.
//
//	n_estimators: [50, 100]
//	max_depth: [3, 5]
//	learning_rate: 0.1
func (g *GridSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.NewConfigurationError("grid", "grid must be a mapping of parameter name to candidate values", node.Tag)
	}
	spec := make(GridSpec, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		valueNode := node.Content[i+1]

		var items []*yaml.Node
		switch valueNode.Kind {
		case yaml.SequenceNode:
			items = valueNode.Content
		case yaml.ScalarNode:
			items = []*yaml.Node{valueNode}
		default:
			return errors.NewConfigurationError(name, "candidates must be a number or a list of numbers", nil)
		}

		values := make([]float64, 0, len(items))
		for _, item := range items {
			if item.Kind != yaml.ScalarNode {
				return errors.NewConfigurationError(name, "candidate is not a scalar", nil)
			}
			var v float64
			if err := item.Decode(&v); err != nil {
				return errors.NewConfigurationError(name, "candidate is not numeric", item.Value)
			}
			values = append(values, v)
		}
		spec = append(spec, ParamSpec{Name: name, Values: values})
	}
	*g = spec
	return nil
}

// ParseGridSpec decodes a YAML grid document and validates it.
func ParseGridSpec(data []byte) (GridSpec, error) {
	var spec GridSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		var ce *errors.ConfigurationError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, errors.NewConfigurationError("grid", "malformed YAML: "+err.Error(), nil)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// LoadGridSpec reads and validates a YAML grid file.
func LoadGridSpec(path string) (GridSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read grid file %s", path)
	}
	return ParseGridSpec(data)
}

// Validate rejects an empty grid, empty candidate lists, duplicate names and
// non-finite values.
func (g GridSpec) Validate() error {
	if len(g) == 0 {
		return errors.NewConfigurationError("grid", "grid declares no parameters", nil)
	}
	seen := make(map[string]struct{}, len(g))
	for _, p := range g {
		if strings.TrimSpace(p.Name) == "" {
			return errors.NewConfigurationError("grid", "parameter name is empty", nil)
		}
		if _, dup := seen[p.Name]; dup {
			return errors.NewConfigurationError(p.Name, "parameter declared more than once", nil)
		}
		seen[p.Name] = struct{}{}
		if len(p.Values) == 0 {
			return errors.NewConfigurationError(p.Name, "candidate list is empty", nil)
		}
		for _, v := range p.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewConfigurationError(p.Name, "candidate is not finite", v)
			}
		}
	}
	return nil
}

// Size returns the number of configurations the grid enumerates.
func (g GridSpec) Size() int {
	if len(g) == 0 {
		return 0
	}
	size := 1
	for _, p := range g {
		size *= len(p.Values)
	}
	return size
}

// Enumerate returns the Cartesian product of the grid. The first declared
// parameter is the most significant and the last varies fastest, so
//
//	a: [1, 2]
//	b: [10, 20]
//
// yields (1,10), (1,20), (2,10), (2,20). Each configuration carries its
// enumeration index.
func Enumerate(spec GridSpec) ([]HyperparameterConfig, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	names := make([]string, len(spec))
	for i, p := range spec {
		names[i] = p.Name
	}

	size := spec.Size()
	configs := make([]HyperparameterConfig, 0, size)
	odometer := make([]int, len(spec))
	for idx := 0; idx < size; idx++ {
		values := make([]float64, len(spec))
		for i, p := range spec {
			values[i] = p.Values[odometer[i]]
		}
		configs = append(configs, HyperparameterConfig{index: idx, names: names, values: values})

		for i := len(odometer) - 1; i >= 0; i-- {
			odometer[i]++
			if odometer[i] < len(spec[i].Values) {
				break
			}
			odometer[i] = 0
		}
	}
	return configs, nil
}

// Param is one named hyperparameter value.
type Param struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// HyperparameterConfig is one point of the grid. It is immutable and
// implements model.Params.
type HyperparameterConfig struct {
	index  int
	names  []string
	values []float64
}

// NewHyperparameterConfig builds a configuration outside of grid enumeration.
func NewHyperparameterConfig(index int, params ...Param) HyperparameterConfig {
	c := HyperparameterConfig{
		index:  index,
		names:  make([]string, len(params)),
		values: make([]float64, len(params)),
	}
	for i, p := range params {
		c.names[i] = p.Name
		c.values[i] = p.Value
	}
	return c
}

// Index returns the position of the configuration in enumeration order.
func (c HyperparameterConfig) Index() int { return c.index }

// Len returns the number of parameters.
func (c HyperparameterConfig) Len() int { return len(c.names) }

// Lookup implements model.Params.
func (c HyperparameterConfig) Lookup(name string) (float64, bool) {
	for i, n := range c.names {
		if n == name {
			return c.values[i], true
		}
	}
	return 0, false
}

// Names implements model.Params.
func (c HyperparameterConfig) Names() []string {
	return append([]string(nil), c.names...)
}

// Params returns the name/value pairs in declaration order.
func (c HyperparameterConfig) Params() []Param {
	out := make([]Param, len(c.names))
	for i := range c.names {
		out[i] = Param{Name: c.names[i], Value: c.values[i]}
	}
	return out
}

// String renders "name=value" pairs in declaration order.
func (c HyperparameterConfig) String() string {
	var b strings.Builder
	for i, n := range c.names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(n)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(c.values[i], 'g', -1, 64))
	}
	return b.String()
}

