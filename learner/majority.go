package learner

import (
	"sync"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/pkg/errors"
)

// MajorityClass votes with the weighted class counts it has observed.
type MajorityClass struct {
	mu     sync.RWMutex
	counts []float64
}

// NewMajorityClass creates an empty MajorityClass learner.
func NewMajorityClass() *MajorityClass {
	return &MajorityClass{}
}

// Name implements model.Named.
func (m *MajorityClass) Name() string { return "MajorityClass" }

// Train adds weight to the count of the instance's class.
func (m *MajorityClass) Train(inst model.Instance, weight float64) error {
	if weight <= 0 {
		return nil
	}
	y := inst.Class()
	if y < 0 {
		return errors.NewValidationError("y", "classification label must be a non-negative integer", inst.Y)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.counts) <= y {
		m.counts = append(m.counts, 0)
	}
	m.counts[y] += weight
	return nil
}

// Predict returns a copy of the class counts.
func (m *MajorityClass) Predict(model.Instance) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]float64(nil), m.counts...), nil
}

// Reset clears the counts.
func (m *MajorityClass) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = nil
}

// Clone returns an empty MajorityClass.
func (m *MajorityClass) Clone() model.Learner { return NewMajorityClass() }
