package ensemble

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/drift"
)

// Member is one slot of an ensemble pool. The learner and estimators are
// exclusively owned by the member; workers only ever touch their own member.
type Member struct {
	// ID is unique per spawned learner and survives promotion.
	ID uuid.UUID
	// Seq numbers members in spawn order and seeds their generator.
	Seq int

	Learner model.Learner
	// Estimator tracks the member's error (or accuracy, depending on the ensemble).
	Estimator drift.Estimator
	// Detector signals drift; Warning signals the warning zone.
	Detector drift.Estimator
	Warning  drift.Estimator

	Weight    float64
	CreatedAt int64

	// Background is a shadow learner trained during a warning. It never votes.
	Background *Member
	// Subspace restricts the features the learner sees (SRP). Nil means all.
	Subspace []int

	background bool

	// Boosting sums of cascade weight on correct and wrong predictions.
	scm, swm float64
	// instances trained on since the member was created (DACC maturity).
	seen int64

	rng     *rand.Rand
	poisson *Poisson
}

// IsBackground reports whether the member is a shadow learner.
func (m *Member) IsBackground() bool { return m.background }

// Rand returns the member's private generator.
func (m *Member) Rand() *rand.Rand { return m.rng }

// Draw returns a Poisson multiplicity at the pool's rate.
func (m *Member) Draw() int { return m.poisson.Draw() }

// Age returns how many instances have passed since the member was created.
func (m *Member) Age(now int64) int64 { return now - m.CreatedAt }

// Accuracy returns scm / (scm + swm), or 0 before any boosting update.
func (m *Member) Accuracy() float64 {
	if m.scm+m.swm == 0 {
		return 0
	}
	return m.scm / (m.scm + m.swm)
}

// BoostSums returns the boosting sums of correct and wrong weight.
func (m *Member) BoostSums() (scm, swm float64) { return m.scm, m.swm }

// view returns the instance as the learner sees it.
func (m *Member) view(inst model.Instance) model.Instance {
	if m.Subspace == nil {
		return inst
	}
	return inst.Project(m.Subspace)
}

// Snapshot is a copy of the member state used by tests and diagnostics.
type Snapshot struct {
	ID        uuid.UUID
	Seq       int
	Weight    float64
	CreatedAt int64
	Estimate  float64
	Width     int
	Subspace  []int
}

// Snapshot captures the member state.
func (m *Member) Snapshot() Snapshot {
	s := Snapshot{
		ID:        m.ID,
		Seq:       m.Seq,
		Weight:    m.Weight,
		CreatedAt: m.CreatedAt,
		Subspace:  append([]int(nil), m.Subspace...),
	}
	if m.Estimator != nil {
		s.Estimate = m.Estimator.Estimate()
		s.Width = m.Estimator.Width()
	}
	return s
}
