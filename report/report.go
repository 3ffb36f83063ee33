// Package report evaluates the final model on the held-out test set and
// persists the resulting EvaluationReport.
package report

import (
	"github.com/YuminosukeSato/gbtune/core/model"
	"github.com/YuminosukeSato/gbtune/dataset"
	"github.com/YuminosukeSato/gbtune/metrics"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
	"github.com/YuminosukeSato/gbtune/pkg/log"
	ms "github.com/YuminosukeSato/gbtune/sklearn/model_selection"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultThreshold       = 0.5
	DefaultConfidenceLevel = 0.95
)

// Options controls Evaluate.
type Options struct {
	RunID     string
	ModelName string
	// Summaries is the CV table copied into the report, one row per configuration.
	Summaries []ms.ConfigSummary
	// Threshold is the decision threshold for the confusion matrix, in
	// (0, 1]. Zero selects DefaultThreshold; a threshold of exactly zero
	// cannot be requested.
	Threshold float64
	// ConfidenceLevel is the level of the AUC interval, in (0, 1). Zero
	// selects DefaultConfidenceLevel.
	ConfidenceLevel float64
	Logger          log.Logger
}

// SelectedConfig describes the configuration that produced the final model.
type SelectedConfig struct {
	Index     int        `json:"index"`
	Params    []ms.Param `json:"params"`
	MeanAUC   float64    `json:"cv_mean_auc"`
	StdAUC    float64    `json:"cv_std_auc"`
	StdErrAUC float64    `json:"cv_stderr_auc"`
}

// SummaryRow is one configuration of the CV table.
type SummaryRow struct {
	Index           int        `json:"index"`
	Params          []ms.Param `json:"params"`
	MeanAUC         float64    `json:"mean_auc"`
	StdAUC          float64    `json:"std_auc"`
	StdErrAUC       float64    `json:"stderr_auc"`
	MeanSensitivity float64    `json:"mean_sensitivity"`
	MeanSpecificity float64    `json:"mean_specificity"`
	SuccessfulFolds int        `json:"successful_folds"`
	FailedFolds     int        `json:"failed_folds"`
	Invalid         bool       `json:"invalid"`
	InvalidReason   string     `json:"invalid_reason,omitempty"`
}

// Rates are the threshold-dependent rates derived from the confusion matrix.
type Rates struct {
	Sensitivity float64 `json:"sensitivity"`
	Specificity float64 `json:"specificity"`
	Precision   float64 `json:"precision"`
	Accuracy    float64 `json:"accuracy"`
	F1          float64 `json:"f1"`
}

// EvaluationReport is the reproducible outcome of a search run.
type EvaluationReport struct {
	RunID           string                  `json:"run_id"`
	Model           string                  `json:"model,omitempty"`
	Selected        SelectedConfig          `json:"selected"`
	CVSummary       []SummaryRow            `json:"cv_summary"`
	TestSize        int                     `json:"test_size"`
	TestPositives   int                     `json:"test_positives"`
	Threshold       float64                 `json:"threshold"`
	ConfusionMatrix metrics.ConfusionMatrix `json:"confusion_matrix"`
	Rates           Rates                   `json:"rates"`
	AUC             metrics.AUCInterval     `json:"auc"`
	ROC             []metrics.ROCPoint      `json:"roc"`
	Optimal         metrics.OperatingPoint  `json:"optimal_operating_point"`
	Warnings        []string                `json:"warnings,omitempty"`
}

// Evaluate scores final on the test set: confusion matrix and rates at the
// threshold, the ROC curve with its Youden-optimal point, and the AUC with a
// DeLong confidence interval. The test set must hold both classes.
func Evaluate(final *ms.FinalModel, test *dataset.Dataset, opts Options) (*EvaluationReport, error) {
	if final == nil || final.Model == nil {
		return nil, errors.NewConfigurationError("model", "final model is nil", nil)
	}
	if test == nil {
		return nil, errors.NewConfigurationError("test", "test set is nil", nil)
	}
	neg, pos := test.ClassCounts()
	if neg == 0 || pos == 0 {
		return nil, errors.NewConfigurationError("test", "test set must contain both classes",
			[2]int{neg, pos})
	}

	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if !(threshold > 0 && threshold <= 1) {
		return nil, errors.NewConfigurationError("threshold", "must be in (0, 1]", threshold)
	}
	level := opts.ConfidenceLevel
	if level == 0 {
		level = DefaultConfidenceLevel
	}
	if !(level > 0 && level < 1) {
		return nil, errors.NewConfigurationError("confidence_level", "must be in (0, 1)", level)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("report")
	}

	probs, err := model.PredictProbabilities(final.Model, test, nil)
	if err != nil {
		return nil, errors.Wrap(err, "score test set")
	}
	labels := test.Labels()

	cm, err := metrics.ConfusionMatrixAt(labels, probs, threshold)
	if err != nil {
		return nil, err
	}
	roc, err := metrics.ROCCurve(labels, probs)
	if err != nil {
		return nil, err
	}
	optimal, err := metrics.YoudenOptimal(roc)
	if err != nil {
		return nil, err
	}
	auc, err := metrics.AUCWithCI(labels, probs, level)
	if err != nil {
		return nil, err
	}

	r := &EvaluationReport{
		RunID:           opts.RunID,
		Model:           opts.ModelName,
		Selected:        selectedOf(final.Selected),
		CVSummary:       summaryRows(opts.Summaries),
		TestSize:        test.Rows(),
		TestPositives:   pos,
		Threshold:       threshold,
		ConfusionMatrix: cm,
		Rates:           ratesOf(cm),
		AUC:             auc,
		ROC:             roc,
		Optimal:         optimal,
	}
	for _, w := range undefinedRates(cm) {
		errors.Warn(w)
		r.Warnings = append(r.Warnings, w.Error())
	}

	logger.Info("Test set evaluated",
		log.PhaseKey, log.PhaseTesting,
		log.RunIDKey, r.RunID,
		log.SamplesKey, r.TestSize,
		log.AUCKey, r.AUC.AUC,
		log.ThresholdKey, r.Optimal.Threshold,
	)
	return r, nil
}

func selectedOf(s ms.SelectedConfig) SelectedConfig {
	return SelectedConfig{
		Index:     s.Config.Index(),
		Params:    s.Config.Params(),
		MeanAUC:   s.Summary.MeanAUC,
		StdAUC:    s.Summary.StdAUC,
		StdErrAUC: s.Summary.StdErrAUC,
	}
}

func summaryRows(summaries []ms.ConfigSummary) []SummaryRow {
	rows := make([]SummaryRow, len(summaries))
	for i, s := range summaries {
		rows[i] = SummaryRow{
			Index:           s.Config.Index(),
			Params:          s.Config.Params(),
			MeanAUC:         s.MeanAUC,
			StdAUC:          s.StdAUC,
			StdErrAUC:       s.StdErrAUC,
			MeanSensitivity: s.MeanSensitivity,
			MeanSpecificity: s.MeanSpecificity,
			SuccessfulFolds: s.SuccessfulFolds,
			FailedFolds:     s.FailedFolds,
			Invalid:         s.Invalid,
			InvalidReason:   s.InvalidReason,
		}
	}
	return rows
}

func ratesOf(cm metrics.ConfusionMatrix) Rates {
	return Rates{
		Sensitivity: cm.Sensitivity(),
		Specificity: cm.Specificity(),
		Precision:   cm.Precision(),
		Accuracy:    cm.Accuracy(),
		F1:          cm.F1(),
	}
}

// undefinedRates lists the rates whose denominator is zero and which were
// therefore reported as 0.
func undefinedRates(cm metrics.ConfusionMatrix) []*errors.UndefinedMetricWarning {
	var out []*errors.UndefinedMetricWarning
	if cm.TP+cm.FP == 0 {
		out = append(out, errors.NewUndefinedMetricWarning("precision", "no predicted positives", 0))
	}
	if cm.TP+cm.FN == 0 {
		out = append(out, errors.NewUndefinedMetricWarning("sensitivity", "no positive records", 0))
	}
	if cm.TN+cm.FP == 0 {
		out = append(out, errors.NewUndefinedMetricWarning("specificity", "no negative records", 0))
	}
	if 2*cm.TP+cm.FP+cm.FN == 0 {
		out = append(out, errors.NewUndefinedMetricWarning("f1", "no positive predictions or records", 0))
	}
	return out
}

// Equal reports whether two reports have identical JSON encodings.
func (r *EvaluationReport) Equal(o *EvaluationReport) bool {
	a, errA := Encode(r)
	b, errB := Encode(o)
	return errA == nil && errB == nil && string(a) == string(b)
}
