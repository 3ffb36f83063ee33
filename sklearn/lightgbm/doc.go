// Package lightgbm provides a pure Go gradient-boosted decision tree trainer
// for binary classification, exposed as a model.Trainer so it can be plugged
// into the grid search harness.
//
// Trees are grown depth-first with exact greedy splits on the binary log-loss
// gradients, following LightGBM's parameter names and defaults. Common
// LightGBM and scikit-learn aliases are accepted:
//
//	trainer := lightgbm.NewTrainer(lightgbm.DefaultParams())
//	m, err := trainer.Fit(ctx, train, model.MapParams{
//	    "n_estimators": 200,
//	    "max_depth":    4,
//	    "eta":          0.05,
//	})
//	p, err := m.PredictProbability(x)
//
// Training is deterministic for a given seed: row and feature subsampling
// draw from a PCG source keyed by (seed, iteration).
package lightgbm
