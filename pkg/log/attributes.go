// Package log defines standard attribute keys for stream ensemble operations.
//
// Using these keys keeps drift, replacement and failure events greppable across
// every ensemble variant. Keys follow a hierarchical naming convention
// (e.g., "ensemble.name", "member.index") for structured filtering.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model or ensemble.
	// Examples: "OzaBag", "LeveragingBag", "GaussianNB"
	ModelNameKey = "model.name"

	// EstimatorIDKey provides a unique identifier for a specific model instance.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "train", "predict", "combine", "chunk"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "ensemble", "drift", "evaluation"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the stream lifecycle.
	PhaseKey = "ml.phase"
)

// Ensemble and Member Context
const (
	// EnsembleSizeKey records the configured pool capacity.
	EnsembleSizeKey = "ensemble.size"

	// MemberIndexKey records the slot of a member within the pool.
	MemberIndexKey = "member.index"

	// MemberIDKey records the unique id assigned to a member when it was spawned.
	MemberIDKey = "member.id"

	// MemberAgeKey records how many instances a member has existed for.
	MemberAgeKey = "member.age"

	// MemberWeightKey records the voting weight of a member.
	MemberWeightKey = "member.weight"

	// DetectorKey names the drift detector that raised a signal.
	DetectorKey = "drift.detector"

	// EstimateKey records the estimator value at the time of an event.
	EstimateKey = "drift.estimate"

	// ActionKey records the pool action taken in response to a signal.
	// Standard values: "reset", "promote", "background", "replace", "add"
	ActionKey = "pool.action"

	// ChunkKey records the index of a processed chunk.
	ChunkKey = "chunk.index"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of instances processed so far.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features per instance.
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of classes observed.
	ClassesKey = "data.classes"

	// BatchSizeKey indicates the size of a processing chunk.
	BatchSizeKey = "data.batch_size"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records prequential accuracy.
	AccuracyKey = "metrics.accuracy"

	// KappaKey records Cohen's kappa.
	KappaKey = "metrics.kappa"

	// LossKey records a loss or error estimate.
	LossKey = "metrics.loss"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// FailuresKey records the accumulated member failure count.
	FailuresKey = "error.failures"

	// ToleranceKey records the configured failure tolerance.
	ToleranceKey = "error.tolerance"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Hyperparameters and Configuration
const (
	// LambdaKey records the Poisson rate used for resampling.
	LambdaKey = "hyperparams.lambda"

	// DeltaKey records a drift detector confidence.
	DeltaKey = "hyperparams.delta"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationTrain   = "train"
	OperationPredict = "predict"
	OperationCombine = "combine"
	OperationChunk   = "chunk"

	PhaseTraining  = "training"
	PhaseInference = "inference"

	ActionReset      = "reset"
	ActionPromote    = "promote"
	ActionBackground = "background"
	ActionReplace    = "replace"
	ActionAdd        = "add"
	ActionReuse      = "reuse"

	ErrorMemberFailure  = "MEMBER_FAILURE"
	ErrorFailureBudget  = "FAILURE_BUDGET"
	ErrorSingularMatrix = "SINGULAR_MATRIX"
	ErrorInvalidInput   = "INVALID_INPUT"
)
