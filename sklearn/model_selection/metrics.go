package model_selection

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cell results recorded in gbtune_cv_cells_total.
const (
	cellResultSuccess   = "success"
	cellResultFailure   = "failure"
	cellResultCancelled = "cancelled"
)

var (
	// cvCellsTotal counts evaluated (configuration, fold) cells by result
	cvCellsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gbtune_cv_cells_total",
		Help: "Cross-validation cells evaluated, by result",
	}, []string{"result"})

	// cvFitDuration tracks trainer latency per cell
	cvFitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gbtune_cv_fit_duration_seconds",
		Help:    "Trainer fit duration per cross-validation cell in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~33s
	})

	// configsExcluded counts configurations dropped for exceeding the failure tolerance
	configsExcluded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gbtune_cv_configs_excluded_total",
		Help: "Configurations excluded for exceeding the fold failure tolerance",
	})

	// selectedMeanAUC holds the cross-validated AUC of the last selected configuration
	selectedMeanAUC = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gbtune_search_selected_mean_auc",
		Help: "Mean cross-validated AUC of the most recently selected configuration",
	})
)

func observeCell(result string, fit time.Duration) {
	cvCellsTotal.WithLabelValues(result).Inc()
	if result != cellResultCancelled {
		cvFitDuration.Observe(fit.Seconds())
	}
}
