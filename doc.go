// Package scistream provides online ensemble learning over data streams for Go,
// designed for services that learn continuously from arriving instances.
//
// scistream combines pluggable incremental base learners into bagging,
// boosting, chunk-based and drift-adaptive ensembles. Every ensemble is itself
// a learner, trained one instance at a time and queried for a class-score
// vote at any moment.
//
// # Features
//
//   - Online bagging and boosting: OzaBag, OzaBagADWIN, LeveragingBag, OzaBoost, ADOB
//   - Chunk-based weighting: AWE, AUE, GOOWE
//   - Drift-adaptive pools: SRP (background learners), DACC, RCD (recurring concepts)
//   - ADWIN, DDM and sliding-window performance estimators
//   - Reproducible randomness: every member draws from its own seeded generator
//   - Bounded parallel member updates with a failure budget
//   - Structured errors (cockroachdb/errors) and logging (slog or zerolog)
//   - Prometheus collectors for ensemble events
//
// # Installation
//
//	go get github.com/YuminosukeSato/scistream
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//
//	    "github.com/YuminosukeSato/scistream/core/model"
//	    "github.com/YuminosukeSato/scistream/ensemble"
//	    "github.com/YuminosukeSato/scistream/evaluation"
//	    "github.com/YuminosukeSato/scistream/learner"
//	    "github.com/YuminosukeSato/scistream/stream"
//	)
//
//	func main() {
//	    src, _ := stream.NewSEAGenerator(42, stream.WithSEADriftEvery(2500), stream.WithSEALimit(10000))
//	    bag, _ := ensemble.NewLeveragingBag(
//	        func() model.Learner { return learner.NewGaussianNB() },
//	        ensemble.WithEnsembleSize(10),
//	    )
//	    pq, _ := evaluation.NewPrequential(bag)
//	    res, _ := pq.Run(context.Background(), src)
//	    fmt.Println("accuracy:", res.Final().Accuracy)
//	}
//
// # Packages
//
//   - core/model: Instance, the Learner capability, factories and stream helpers
//   - core/parallel: bounded per-member worker pool
//   - learner: base learners (GaussianNB, PassiveAggressive, MajorityClass) and their registry
//   - drift: ADWIN, DDM and windowed estimators, KS test
//   - ensemble: pool manager, resampling policies, aggregation and the ensemble algorithms
//   - stream: slice, CSV, .npy and SEA sources
//   - preprocessing: online standard and min-max scalers, learner pipelines
//   - metrics: streaming classification and regression metrics
//   - evaluation: prequential evaluation and learning-curve plots
//   - pkg/errors, pkg/log, pkg/telemetry: error types, logging, Prometheus metrics
//   - cmd/scistream: command line runner
//
// # Configuration
//
// Ensembles use functional options:
//
//	srp, err := ensemble.NewStreamingRandomPatches(factory,
//	    ensemble.WithEnsembleSize(10),
//	    ensemble.WithSubspaceMode(ensemble.RandomPatches),
//	    ensemble.WithSubspaceSize(0.6),
//	    ensemble.WithWorkers(4),
//	)
//
// or are built by name from configuration through ensemble.New and ensemble.Settings.
//
// # License
//
// scistream is released under the MIT License.
package scistream
