package model_selection

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ConfigSummary is the cross-validated estimate of one configuration.
type ConfigSummary struct {
	Config          HyperparameterConfig `json:"-"`
	MeanAUC         float64              `json:"mean_auc"`
	StdAUC          float64              `json:"std_auc"`
	StdErrAUC       float64              `json:"stderr_auc"`
	MeanSensitivity float64              `json:"mean_sensitivity"`
	MeanSpecificity float64              `json:"mean_specificity"`
	SuccessfulFolds int                  `json:"successful_folds"`
	FailedFolds     int                  `json:"failed_folds"`
	Invalid         bool                 `json:"invalid"`
	InvalidReason   string               `json:"invalid_reason,omitempty"`
}

// Aggregate reduces fold metrics to one summary per configuration, in
// configuration order. The AUC standard deviation is the sample estimate
// (n-1 denominator) and is 0 for a single fold. Excluded configurations and
// configurations without a successful fold are flagged Invalid.
func Aggregate(results *CVResults) []ConfigSummary {
	if results == nil {
		return nil
	}
	summaries := make([]ConfigSummary, len(results.Configs))
	for i, cr := range results.Configs {
		s := ConfigSummary{
			Config:          cr.Config,
			SuccessfulFolds: len(cr.Metrics),
			FailedFolds:     len(cr.Failures),
		}

		if n := len(cr.Metrics); n > 0 {
			aucs := make([]float64, n)
			sens := make([]float64, n)
			spec := make([]float64, n)
			for j, m := range cr.Metrics {
				aucs[j], sens[j], spec[j] = m.AUC, m.Sensitivity, m.Specificity
			}
			if n == 1 {
				s.MeanAUC = aucs[0]
			} else {
				s.MeanAUC, s.StdAUC = stat.MeanStdDev(aucs, nil)
				s.StdErrAUC = s.StdAUC / math.Sqrt(float64(n))
			}
			s.MeanSensitivity = stat.Mean(sens, nil)
			s.MeanSpecificity = stat.Mean(spec, nil)
		}

		switch {
		case cr.Excluded:
			s.Invalid = true
			s.InvalidReason = cr.ExclusionReason
		case s.SuccessfulFolds == 0:
			s.Invalid = true
			s.InvalidReason = "no successful folds"
		}
		summaries[i] = s
	}
	return summaries
}
