package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/gbtune/core/model"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
	"github.com/YuminosukeSato/gbtune/report"
	"github.com/YuminosukeSato/gbtune/sklearn/lightgbm"
	ms "github.com/YuminosukeSato/gbtune/sklearn/model_selection"
)

// DefaultTestFraction is the share of records held out when no test file is
// given.
const DefaultTestFraction = 0.2

// RunConfig is the YAML run configuration of a search. Command-line flags
// override individual fields.
type RunConfig struct {
	Train        string   `yaml:"train"`
	Test         string   `yaml:"test"`
	TestFraction float64  `yaml:"test_fraction" validate:"gt=0,lt=1"`
	Label        string   `yaml:"label"`
	Positive     string   `yaml:"positive"`
	Features     []string `yaml:"features"`

	Grid ms.GridSpec `yaml:"grid" validate:"required"`
	// Params are fixed trainer parameters shared by every configuration.
	Params map[string]float64 `yaml:"params"`

	K                int     `yaml:"k" validate:"gte=2"`
	Repeats          int     `yaml:"repeats" validate:"gte=1"`
	Seed             int64   `yaml:"seed"`
	Workers          int     `yaml:"workers" validate:"gte=0"`
	FailureTolerance int     `yaml:"failure_tolerance" validate:"gte=0"`
	Epsilon          float64 `yaml:"epsilon" validate:"gte=0"`

	Threshold       float64 `yaml:"threshold" validate:"gt=0,lte=1"`
	ConfidenceLevel float64 `yaml:"confidence_level" validate:"gt=0,lt=1"`

	Out       string `yaml:"out"`
	ROCPlot   string `yaml:"roc_plot"`
	ResultsDB string `yaml:"results_db"`
	ModelOut  string `yaml:"model_out"`
}

// DefaultRunConfig returns a config with 5 folds, 1 repeat, a 0.5 decision
// threshold and a 95% AUC interval. Grid and data paths are empty.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		TestFraction:    DefaultTestFraction,
		K:               ms.DefaultK,
		Repeats:         ms.DefaultRepeats,
		Threshold:       report.DefaultThreshold,
		ConfidenceLevel: report.DefaultConfidenceLevel,
	}
}

// ParseRunConfig decodes YAML over the defaults. Unknown keys are rejected.
func ParseRunConfig(data []byte) (*RunConfig, error) {
	cfg := DefaultRunConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		var ce *errors.ConfigurationError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, errors.NewConfigurationError("config", "malformed YAML", err.Error())
	}
	return cfg, nil
}

// LoadRunConfig reads and decodes a YAML run config file.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigurationError("config", "cannot read run config", err.Error())
	}
	return ParseRunConfig(data)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field ranges, the grid, and the fixed trainer parameters.
// Every failure is a ConfigurationError naming the YAML key.
func (c *RunConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			reason := fmt.Sprintf("failed %q constraint", fe.Tag())
			if fe.Param() != "" {
				reason = fmt.Sprintf("failed %q constraint (%s)", fe.Tag(), fe.Param())
			}
			return errors.NewConfigurationError(fe.Field(), reason, fe.Value())
		}
		return errors.NewConfigurationError("config", "invalid run config", err.Error())
	}
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	if _, err := c.trainingParams(); err != nil {
		return err
	}
	return nil
}

func (c *RunConfig) trainingParams() (lightgbm.TrainingParams, error) {
	return lightgbm.Apply(lightgbm.DefaultParams(), model.MapParams(c.Params))
}

// NewTrainer builds the gradient-boosting trainer with the config's fixed
// parameters as its base.
func (c *RunConfig) NewTrainer() (*lightgbm.Trainer, error) {
	p, err := c.trainingParams()
	if err != nil {
		return nil, err
	}
	return lightgbm.NewTrainer(p), nil
}
