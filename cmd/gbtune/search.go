package main

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/gbtune/pipeline"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
	"github.com/YuminosukeSato/gbtune/pkg/log"
	"github.com/YuminosukeSato/gbtune/report"
	ms "github.com/YuminosukeSato/gbtune/sklearn/model_selection"
)

type searchFlags struct {
	config          string
	grid            string
	logLevel        string
	metricsTextfile string
}

func newSearchCmd() *cobra.Command {
	var (
		flags searchFlags
		cfg   = pipeline.DefaultRunConfig()
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Cross-validate a hyperparameter grid, refit the best configuration and evaluate it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level, err := log.ParseLevel(flags.logLevel)
			if err != nil {
				return err
			}
			log.SetOutput(cmd.ErrOrStderr())
			log.SetLevel(level)

			resolved, err := resolveConfig(cmd, flags, cfg)
			if err != nil {
				return err
			}
			err = runSearch(cmd, resolved)
			if flags.metricsTextfile != "" {
				if werr := prometheus.WriteToTextfile(flags.metricsTextfile, prometheus.DefaultGatherer); werr != nil && err == nil {
					err = errors.Wrap(werr, "write metrics textfile")
				}
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.config, "config", "", "YAML run config; flags override its values")
	f.StringVar(&flags.grid, "grid", "", "YAML grid spec, replacing the config's grid")
	f.StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	f.StringVar(&flags.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file")

	f.StringVar(&cfg.Train, "train", "", "training CSV")
	f.StringVar(&cfg.Test, "test", "", "test CSV; when empty the training file is split")
	f.Float64Var(&cfg.TestFraction, "test-fraction", cfg.TestFraction, "share of records held out when --test is empty")
	f.StringVar(&cfg.Label, "label", "", "label column name")
	f.StringVar(&cfg.Positive, "positive", "", "label value of the positive class")
	f.IntVar(&cfg.K, "k", cfg.K, "number of folds")
	f.IntVar(&cfg.Repeats, "repeats", cfg.Repeats, "number of repeated fold partitions")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for fold assignment and the test split")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent training jobs; 0 means one per CPU")
	f.IntVar(&cfg.FailureTolerance, "failure-tolerance", cfg.FailureTolerance, "failed folds a configuration may have and stay eligible")
	f.Float64Var(&cfg.Epsilon, "epsilon", cfg.Epsilon, "mean AUC difference treated as a tie")
	f.Float64Var(&cfg.Threshold, "threshold", cfg.Threshold, "probability at or above which a record is predicted positive")
	f.StringVar(&cfg.Out, "out", "", "write the evaluation report JSON here")
	f.StringVar(&cfg.ROCPlot, "roc-plot", "", "write the ROC curve image here (.png, .svg, .pdf)")
	f.StringVar(&cfg.ResultsDB, "results-db", "", "record the run in this SQLite ledger")
	f.StringVar(&cfg.ModelOut, "model-out", "", "write the refitted final model (gob) here")
	return cmd
}

// resolveConfig layers the config file under the flags the user set
// explicitly.
func resolveConfig(cmd *cobra.Command, flags searchFlags, fromFlags *pipeline.RunConfig) (*pipeline.RunConfig, error) {
	cfg := pipeline.DefaultRunConfig()
	if flags.config != "" {
		loaded, err := pipeline.LoadRunConfig(flags.config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	set := cmd.Flags().Changed
	override := func(name string, apply func()) {
		if set(name) || flags.config == "" {
			apply()
		}
	}
	override("train", func() { cfg.Train = fromFlags.Train })
	override("test", func() { cfg.Test = fromFlags.Test })
	override("test-fraction", func() { cfg.TestFraction = fromFlags.TestFraction })
	override("label", func() { cfg.Label = fromFlags.Label })
	override("positive", func() { cfg.Positive = fromFlags.Positive })
	override("k", func() { cfg.K = fromFlags.K })
	override("repeats", func() { cfg.Repeats = fromFlags.Repeats })
	override("seed", func() { cfg.Seed = fromFlags.Seed })
	override("workers", func() { cfg.Workers = fromFlags.Workers })
	override("failure-tolerance", func() { cfg.FailureTolerance = fromFlags.FailureTolerance })
	override("epsilon", func() { cfg.Epsilon = fromFlags.Epsilon })
	override("threshold", func() { cfg.Threshold = fromFlags.Threshold })
	override("out", func() { cfg.Out = fromFlags.Out })
	override("roc-plot", func() { cfg.ROCPlot = fromFlags.ROCPlot })
	override("results-db", func() { cfg.ResultsDB = fromFlags.ResultsDB })
	override("model-out", func() { cfg.ModelOut = fromFlags.ModelOut })

	if flags.grid != "" {
		grid, err := ms.LoadGridSpec(flags.grid)
		if err != nil {
			return nil, err
		}
		cfg.Grid = grid
	}
	if cfg.Grid == nil {
		return nil, errors.NewConfigurationError("grid", "a grid is required (--grid or the config's grid key)", nil)
	}
	return cfg, cfg.Validate()
}

func runSearch(cmd *cobra.Command, cfg *pipeline.RunConfig) error {
	train, test, err := pipeline.LoadData(cfg)
	if err != nil {
		return err
	}
	trainer, err := cfg.NewTrainer()
	if err != nil {
		return err
	}
	rep, _, err := pipeline.Run(cmd.Context(), cfg, train, test, trainer)
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), rep)
	return nil
}

func printSummary(w io.Writer, rep *report.EvaluationReport) {
	fmt.Fprintf(w, "run %s\n", rep.RunID)
	fmt.Fprintf(w, "selected config #%d:", rep.Selected.Index)
	for _, p := range rep.Selected.Params {
		fmt.Fprintf(w, " %s=%g", p.Name, p.Value)
	}
	fmt.Fprintf(w, " (cv auc %.4f ± %.4f)\n", rep.Selected.MeanAUC, rep.Selected.StdAUC)
	fmt.Fprintf(w, "test auc %.4f [%.4f, %.4f] (%s, %.0f%%)\n",
		rep.AUC.AUC, rep.AUC.Lower, rep.AUC.Upper, rep.AUC.Method, rep.AUC.Level*100)
	fmt.Fprintf(w, "threshold %.2f: sensitivity %.4f specificity %.4f precision %.4f\n",
		rep.Threshold, rep.Rates.Sensitivity, rep.Rates.Specificity, rep.Rates.Precision)
	fmt.Fprintf(w, "youden optimal threshold %.4f (J %.4f)\n", rep.Optimal.Threshold, rep.Optimal.YoudenJ)
	for _, warning := range rep.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}
