// Package gbtune selects hyperparameters for a gradient-boosted binary
// classifier by exhaustive grid search scored with repeated stratified
// k-fold ROC AUC, refits the winning configuration on the full training set
// and evaluates it once on a held-out test set.
//
// # Packages
//
//   - dataset: labeled records, CSV loading and the upstream train/test split
//   - sklearn/model_selection: fold generation, grid enumeration, parallel
//     cross-validation, aggregation, selection and the final refit
//   - sklearn/lightgbm: the default gradient-boosting Trainer
//   - metrics: ROC AUC with DeLong intervals, ROC curves, confusion matrices
//   - report: the EvaluationReport, its JSON form and the ROC plot
//   - store: a SQLite ledger of runs
//   - pipeline: YAML run configuration and the end-to-end run
//   - cmd/gbtune: the command-line interface
//
// # Quick Start
//
//	cfg := pipeline.DefaultRunConfig()
//	cfg.Grid = model_selection.GridSpec{
//	    {Name: "n_estimators", Values: []float64{50, 100}},
//	    {Name: "max_depth", Values: []float64{3, 5}},
//	}
//	trainer, err := cfg.NewTrainer()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rep, _, err := pipeline.Run(ctx, cfg, train, test, trainer)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("test AUC %.3f [%.3f, %.3f]\n", rep.AUC.AUC, rep.AUC.Lower, rep.AUC.Upper)
//
// The same run from the command line:
//
//	gbtune search --train train.csv --label outcome --positive yes \
//	    --grid grid.yaml --k 5 --repeats 2 --seed 42 --out report.json
//
// # Reproducibility
//
// Fold assignment, the test split and training are seeded, and results are
// collected in enumeration order regardless of the worker count, so equal
// inputs produce byte-identical reports with the same run id.
package gbtune
