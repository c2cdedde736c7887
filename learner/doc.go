// Package learner provides incremental base learners for ensemble members and a
// registry that resolves learner names into typed factories.
//
// Every learner implements model.Learner. An untrained learner returns an empty
// vote rather than an error, so a freshly spawned or reset member simply
// abstains until it has seen data.
package learner
