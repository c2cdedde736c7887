package ensemble

import (
	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/pkg/errors"
)

// Chunk is a bounded FIFO of instances with an optional per-instance vote
// cache. It is cleared exactly every Cap instances.
type Chunk struct {
	cap       int
	instances []model.Instance
	votes     [][][]float64
}

// NewChunk returns an empty chunk holding up to size instances.
func NewChunk(size int) *Chunk {
	return &Chunk{cap: size, instances: make([]model.Instance, 0, size)}
}

// Add appends inst and reports whether the chunk is now full.
func (c *Chunk) Add(inst model.Instance) bool {
	c.instances = append(c.instances, inst)
	return len(c.instances) >= c.cap
}

// AddWithVotes appends inst together with the member votes cast for it.
func (c *Chunk) AddWithVotes(inst model.Instance, votes [][]float64) bool {
	c.votes = append(c.votes, votes)
	return c.Add(inst)
}

// Len returns the number of buffered instances.
func (c *Chunk) Len() int { return len(c.instances) }

// Cap returns the chunk size.
func (c *Chunk) Cap() int { return c.cap }

// Instances returns the buffered instances, oldest first.
func (c *Chunk) Instances() []model.Instance { return c.instances }

// Votes returns the cached votes, parallel to Instances. Nil when none were cached.
func (c *Chunk) Votes() [][][]float64 { return c.votes }

// Clear empties the chunk.
func (c *Chunk) Clear() {
	c.instances = c.instances[:0]
	c.votes = nil
}

// ClassDistribution returns the weighted class proportions of the chunk.
// Instances without a valid class are ignored.
func (c *Chunk) ClassDistribution() []float64 {
	var dist []float64
	for _, inst := range c.instances {
		k := inst.Class()
		if k < 0 {
			continue
		}
		for len(dist) <= k {
			dist = append(dist, 0)
		}
		dist[k] += inst.EffectiveWeight()
	}
	if total := floats.Sum(dist); total > 0 {
		floats.Scale(1/total, dist)
	}
	return dist
}

// Fold returns the train and test instances of fold f out of k contiguous folds.
func (c *Chunk) Fold(f, k int) (train, test []model.Instance) {
	n := len(c.instances)
	lo, hi := f*n/k, (f+1)*n/k
	train = make([]model.Instance, 0, n-(hi-lo))
	train = append(train, c.instances[:lo]...)
	train = append(train, c.instances[hi:]...)
	return train, c.instances[lo:hi]
}

// ChunkWeigher computes chunk-level weights relative to the error of a
// random classifier that predicts the chunk's class distribution.
type ChunkWeigher struct {
	Variant ChunkVariant
}

// ReferenceMSE returns mse_r = Σ_c p_c (1 - p_c)².
func (w ChunkWeigher) ReferenceMSE(c *Chunk) float64 {
	mse := 0.0
	for _, p := range c.ClassDistribution() {
		mse += p * (1 - p) * (1 - p)
	}
	return mse
}

// MSE returns the mean of (1 - f_c(x))² over instances, where f_c(x) is the
// normalised probability the learner gives to the true class. An unusable
// vote or a failed prediction counts as an error of 1; fallbacks reports how
// many instances fell back and cause the first failure seen.
func (w ChunkWeigher) MSE(predict func(model.Instance) ([]float64, error), instances []model.Instance) (mse float64, fallbacks int, cause error) {
	if len(instances) == 0 {
		return 0, 0, nil
	}
	for _, inst := range instances {
		vote, err := errors.SafeVote("chunk_weight", func() ([]float64, error) { return predict(inst) })
		if err != nil || !model.UsableVote(vote) {
			mse++
			fallbacks++
			if cause == nil && err != nil {
				cause = err
			}
			continue
		}
		f := model.ProbabilityOf(vote, inst.Class())
		mse += (1 - f) * (1 - f)
	}
	return mse / float64(len(instances)), fallbacks, cause
}

// Weight returns a stored member's weight from its chunk error.
//
//	AccuracyWeighted: max(mse_r - mse, 0)
//	AccuracyUpdated:  1 / (mse_r + mse + ε)
func (w ChunkWeigher) Weight(mseR, mse float64) float64 {
	if w.Variant == AccuracyUpdated {
		return 1 / (mseR + mse + errors.Epsilon)
	}
	return max(mseR-mse, 0)
}

// CandidateWeight returns the weight of a candidate trained on the chunk.
// AWE uses the cross-validated error; AUE assumes a perfect candidate.
func (w ChunkWeigher) CandidateWeight(mseR, cvMSE float64) float64 {
	if w.Variant == AccuracyUpdated {
		return 1 / (mseR + errors.Epsilon)
	}
	return max(mseR-cvMSE, 0)
}
