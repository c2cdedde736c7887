// Package model provides the instance type, the learner capability shared by
// every ensemble member, and state management for base learners.
package model

import (
	"sync"

	"github.com/cockroachdb/errors"

	scierrors "github.com/YuminosukeSato/scistream/pkg/errors"
)

// ErrNotFitted is returned by learners asked to predict before any training.
var ErrNotFitted = errors.New("scistream: learner has not been trained yet")

// StateManager tracks the trained state of a base learner in a thread-safe manner.
//
// It records the feature count fixed by the first instance, the number of
// instances and the total weight seen, and the number of classes observed.
type StateManager struct {
	mu sync.RWMutex

	fitted      bool
	nFeatures   int
	nClasses    int
	nSamples    int64
	totalWeight float64
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether at least one instance has been observed.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// Observe records a trained instance. The first call fixes the feature count;
// later instances with a different width return a dimension error.
func (s *StateManager) Observe(inst Instance, weight float64) error {
	const op = "Train"
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fitted && len(inst.X) != s.nFeatures {
		return scierrors.NewDimensionError(op, s.nFeatures, len(inst.X), 1)
	}
	if !s.fitted {
		s.fitted = true
		s.nFeatures = len(inst.X)
	}
	if c := inst.Class(); c+1 > s.nClasses {
		s.nClasses = c + 1
	}
	s.nSamples++
	s.totalWeight += weight
	return nil
}

// CheckWidth returns an error if the learner is trained and inst has a different width.
func (s *StateManager) CheckWidth(inst Instance) error {
	const op = "Predict"
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.fitted {
		return errors.WithStack(ErrNotFitted)
	}
	if len(inst.X) != s.nFeatures {
		return scierrors.NewDimensionError(op, s.nFeatures, len(inst.X), 1)
	}
	return nil
}

// Reset resets the trained state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nClasses = 0
	s.nSamples = 0
	s.totalWeight = 0
}

// Dimensions returns the number of features and classes observed.
func (s *StateManager) Dimensions() (nFeatures, nClasses int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nClasses
}

// Seen returns the number of instances and their total weight.
func (s *StateManager) Seen() (n int64, weight float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nSamples, s.totalWeight
}

// State represents the complete state of a learner for debugging and logs.
type State struct {
	Fitted      bool    `json:"fitted"`
	NFeatures   int     `json:"n_features,omitempty"`
	NClasses    int     `json:"n_classes,omitempty"`
	NSamples    int64   `json:"n_samples,omitempty"`
	TotalWeight float64 `json:"total_weight,omitempty"`
}

// GetState returns the current state as a State struct.
func (s *StateManager) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Fitted:      s.fitted,
		NFeatures:   s.nFeatures,
		NClasses:    s.nClasses,
		NSamples:    s.nSamples,
		TotalWeight: s.totalWeight,
	}
}

// WithState executes fn with the state locked for reading.
func (s *StateManager) WithState(fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}

// WithStateMut executes fn with the state locked for writing.
func (s *StateManager) WithStateMut(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}
