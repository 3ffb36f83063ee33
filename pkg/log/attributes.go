package log

// Standard attribute keys. Keys follow a dotted hierarchy ("cv.fold",
// "data.samples") so records can be filtered per stage.

// Model and operation context.
const (
	// ModelNameKey identifies the trainer implementation, e.g. "lightgbm".
	ModelNameKey = "model.name"

	// OperationKey names the operation: "fit", "predict", "score", "search".
	OperationKey = "ml.operation"

	// ComponentKey identifies the emitting package.
	ComponentKey = "ml.component"

	// PhaseKey indicates the stage of a search run.
	PhaseKey = "ml.phase"

	// RunIDKey carries the deterministic run identifier.
	RunIDKey = "run.id"
)

// Data shape.
const (
	SamplesKey   = "data.samples"
	FeaturesKey  = "data.features"
	PositivesKey = "data.positives"
	NegativesKey = "data.negatives"
)

// Cross-validation coordinates.
const (
	ConfigIndexKey = "cv.config_index"
	ConfigKey      = "cv.config"
	RepeatKey      = "cv.repeat"
	FoldKey        = "cv.fold"
	FoldsKey       = "cv.folds"
	RepeatsKey     = "cv.repeats"
	CellsKey       = "cv.cells"
	FailuresKey    = "cv.failures"
	WorkersKey     = "cv.workers"
)

// Performance and metrics.
const (
	DurationMsKey = "perf.duration_ms"
	AUCKey        = "metrics.auc"
	AUCStdKey     = "metrics.auc_std"
	LossKey       = "metrics.loss"
	IterationKey  = "training.iteration"
	ThresholdKey  = "preds.threshold"
)

// Error context.
const (
	ErrorKey      = "error"
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
	ReasonKey     = "error.reason"
)

// Configuration.
const (
	HyperParamsKey  = "model.hyperparams"
	LearningRateKey = "hyperparams.learning_rate"
	RandomSeedKey   = "config.random_seed"
	OutputPathKey   = "output.path"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"
	OperationSearch  = "search"

	PhaseFolding     = "folding"
	PhaseValidation  = "validation"
	PhaseAggregation = "aggregation"
	PhaseSelection   = "selection"
	PhaseRefit       = "refit"
	PhaseTesting     = "testing"
	PhasePersist     = "persist"
)
