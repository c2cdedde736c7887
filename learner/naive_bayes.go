package learner

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/pkg/errors"
)

// GaussianNB is an incremental Gaussian naive Bayes classifier.
//
// Per class and feature it keeps a weighted running mean and sum of squared
// deviations (West's weighted Welford update). Votes are posterior
// probabilities over the classes seen so far.
type GaussianNB struct {
	state *model.StateManager

	// varSmoothing is added to every variance, scaled by the largest variance seen.
	varSmoothing float64

	classWeight []float64
	mean        [][]float64
	m2          [][]float64

	mu sync.RWMutex
}

// GaussianNBOption configures a GaussianNB.
type GaussianNBOption func(*GaussianNB)

// WithVarSmoothing sets the portion of the largest variance added to all variances.
func WithVarSmoothing(v float64) GaussianNBOption {
	return func(nb *GaussianNB) {
		if v >= 0 {
			nb.varSmoothing = v
		}
	}
}

// NewGaussianNB creates an untrained GaussianNB.
func NewGaussianNB(opts ...GaussianNBOption) *GaussianNB {
	nb := &GaussianNB{
		state:        model.NewStateManager(),
		varSmoothing: 1e-9,
	}
	for _, opt := range opts {
		opt(nb)
	}
	return nb
}

// Name implements model.Named.
func (nb *GaussianNB) Name() string { return "GaussianNB" }

// Train adds the instance with the given weight to its class statistics.
func (nb *GaussianNB) Train(inst model.Instance, weight float64) error {
	if weight <= 0 {
		return nil
	}
	y := inst.Class()
	if y < 0 {
		return errors.NewValidationError("y", "classification label must be a non-negative integer", inst.Y)
	}
	if err := checkFinite("Train", inst.X); err != nil {
		return err
	}
	if err := nb.state.Observe(inst, weight); err != nil {
		return err
	}

	nb.mu.Lock()
	defer nb.mu.Unlock()
	for len(nb.classWeight) <= y {
		nb.classWeight = append(nb.classWeight, 0)
		nb.mean = append(nb.mean, make([]float64, len(inst.X)))
		nb.m2 = append(nb.m2, make([]float64, len(inst.X)))
	}

	nb.classWeight[y] += weight
	w := nb.classWeight[y]
	for i, x := range inst.X {
		delta := x - nb.mean[y][i]
		nb.mean[y][i] += weight / w * delta
		nb.m2[y][i] += weight * delta * (x - nb.mean[y][i])
	}
	return nil
}

// Predict returns class posterior probabilities. An untrained model returns an empty vote.
func (nb *GaussianNB) Predict(inst model.Instance) ([]float64, error) {
	if !nb.state.IsFitted() {
		return nil, nil
	}
	if err := nb.state.CheckWidth(inst); err != nil {
		return nil, err
	}
	if err := checkFinite("Predict", inst.X); err != nil {
		return nil, err
	}

	nb.mu.RLock()
	defer nb.mu.RUnlock()

	total := 0.0
	maxVar := 0.0
	for c, w := range nb.classWeight {
		total += w
		if w <= 0 {
			continue
		}
		for i := range nb.m2[c] {
			maxVar = math.Max(maxVar, nb.m2[c][i]/w)
		}
	}
	eps := nb.varSmoothing * maxVar
	if eps < errors.Epsilon {
		eps = errors.Epsilon
	}

	logJoint := make([]float64, len(nb.classWeight))
	for c, w := range nb.classWeight {
		if w <= 0 {
			logJoint[c] = math.Inf(-1)
			continue
		}
		lp := errors.StabilizeLog(w / total)
		for i, x := range inst.X {
			sigma := math.Sqrt(nb.m2[c][i]/w + eps)
			lp += distuv.Normal{Mu: nb.mean[c][i], Sigma: sigma}.LogProb(x)
		}
		logJoint[c] = lp
	}
	return errors.Softmax(logJoint), nil
}

// Reset forgets all class statistics.
func (nb *GaussianNB) Reset() {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	nb.classWeight = nil
	nb.mean = nil
	nb.m2 = nil
	nb.state.Reset()
}

// Clone returns an untrained GaussianNB with the same smoothing.
func (nb *GaussianNB) Clone() model.Learner {
	return NewGaussianNB(WithVarSmoothing(nb.varSmoothing))
}
