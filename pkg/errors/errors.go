// Package errors provides the error taxonomy and warning system for gbtune.
//
// Every constructor attaches a stack trace through cockroachdb/errors so that
// failures surfaced by the search harness carry the full context of where they
// were raised. The taxonomy mirrors the stages of a search run:
//
//   - ConfigurationError: invalid search inputs, surfaced immediately
//   - FoldFailure: one (configuration, repeat, fold) cell failed, recovered by exclusion
//   - NoValidConfigurationError: every configuration was invalid
//   - TrainingError: the final refit failed
package errors

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("gbtune-Warning: %v\n", w)
	}
	// set by pkg/log to avoid an import cycle
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the fallback warning handler.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // ignore warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs the structured warning sink.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. The zerolog sink wins when installed.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// UndefinedMetricWarning is raised when a metric cannot be computed and a
// substitute value is reported instead, e.g. precision with no predicted positives.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject adds the warning fields to a zerolog event.
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning creates a new UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	Search taxonomy
//
// ===========================================================================

// ConfigurationError reports invalid search inputs: fold counts, grids,
// datasets or run configuration. It is never retried.
type ConfigurationError struct {
	Param  string
	Reason string
	Value  interface{}
}

func (e *ConfigurationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("gbtune: invalid configuration for '%s': %s", e.Param, e.Reason)
	}
	return fmt.Sprintf("gbtune: invalid configuration for '%s': %s (got: %v)", e.Param, e.Reason, e.Value)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.Param).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigurationError")
}

// NewConfigurationError creates a ConfigurationError with a stack trace.
func NewConfigurationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ConfigurationError{Param: param, Reason: reason, Value: value})
}

// FoldFailure records that training or scoring failed for a single
// (configuration, repeat, fold) cell. The search keeps going.
type FoldFailure struct {
	ConfigIndex int
	Config      string
	Repeat      int
	Fold        int
	Reason      string
	Err         error
}

func (e *FoldFailure) Error() string {
	msg := fmt.Sprintf("gbtune: fold failure for config #%d [%s] repeat %d fold %d: %s",
		e.ConfigIndex, e.Config, e.Repeat, e.Fold, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FoldFailure) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds the failure fields to a zerolog event.
func (e *FoldFailure) MarshalZerologObject(event *zerolog.Event) {
	event.Int("config_index", e.ConfigIndex).
		Str("config", e.Config).
		Int("repeat", e.Repeat).
		Int("fold", e.Fold).
		Str("reason", e.Reason).
		Str("type", "FoldFailure")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewFoldFailure creates a FoldFailure. The concrete type is returned because
// callers store failures by value in per-cell slots.
func NewFoldFailure(configIndex int, config string, repeat, fold int, reason string, err error) *FoldFailure {
	return &FoldFailure{
		ConfigIndex: configIndex,
		Config:      config,
		Repeat:      repeat,
		Fold:        fold,
		Reason:      reason,
		Err:         err,
	}
}

// NoValidConfigurationError is returned by selection when every configuration
// was flagged invalid. Reasons holds one entry per configuration.
type NoValidConfigurationError struct {
	Reasons []string
}

func (e *NoValidConfigurationError) Error() string {
	if len(e.Reasons) == 0 {
		return "gbtune: no valid configuration: no candidates were evaluated"
	}
	return fmt.Sprintf("gbtune: no valid configuration among %d candidates: %s",
		len(e.Reasons), strings.Join(e.Reasons, "; "))
}

// NewNoValidConfigurationError creates a NoValidConfigurationError with a stack trace.
func NewNoValidConfigurationError(reasons []string) error {
	return errors.WithStack(&NoValidConfigurationError{Reasons: reasons})
}

// TrainingError wraps a Trainer failure during the final refit. The cause is
// kept verbatim.
type TrainingError struct {
	Config string
	Err    error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("gbtune: final training failed for [%s]: %v", e.Config, e.Err)
}

func (e *TrainingError) Unwrap() error {
	return e.Err
}

// NewTrainingError creates a TrainingError with a stack trace.
func NewTrainingError(config string, err error) error {
	return errors.WithStack(&TrainingError{Config: config, Err: err})
}

// ===========================================================================
//
//	Input errors
//
// ===========================================================================

// DimensionError reports that input data has an unexpected shape.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("gbtune: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValueError reports an argument with an inappropriate value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("gbtune: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap annotates err with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

var (
	// ErrEmptyData is returned when an operation receives no records.
	ErrEmptyData = New("empty data")
)
