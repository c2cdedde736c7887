package ensemble

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
)

// GOOWE is the Geometrically Optimum Online Weighted Ensemble (Bonab & Can,
// 2016). Member votes are cached for every instance of a chunk; at the
// boundary the weights minimise the squared distance between the weighted
// vote and the one-hot label, solving the normal equations A·w = d.
// A candidate trained on the chunk then joins the pool. When the pool is full
// it replaces the member with the smallest weight only if its own weight is
// strictly greater; on a tie the existing member stays.
type GOOWE struct {
	base
	chunk     *Chunk
	candidate *Member
	chunks    int
}

// NewGOOWE creates a GOOWE ensemble.
func NewGOOWE(factory model.Factory, opts ...Option) (*GOOWE, error) {
	return newGOOWE(factory, buildConfig(nil, opts))
}

func newGOOWE(factory model.Factory, cfg *config) (*GOOWE, error) {
	if err := cfg.validateChunk(); err != nil {
		return nil, err
	}
	b, err := newBase("GOOWE", factory, cfg, cfg.size)
	if err != nil {
		return nil, err
	}
	e := &GOOWE{base: b, chunk: NewChunk(cfg.chunkSize)}
	if err := e.validateClassification(); err != nil {
		return nil, err
	}
	e.candidate = e.pool.Spawn()
	return e, nil
}

// Train caches the members' votes for the instance, trains the members and
// the candidate, and re-weights the pool at the chunk boundary.
func (e *GOOWE) Train(inst model.Instance, weight float64) error {
	e.pool.Tick()
	votes := make([][]float64, e.pool.Len())
	err := e.pool.Each(log.OperationTrain, func(i int, m *Member) error {
		v, err := e.pool.Predict(m, inst)
		if err != nil {
			return err
		}
		votes[i] = v
		return e.pool.Train(m, inst, weight)
	})
	if err != nil {
		return err
	}
	for i := range votes {
		e.cfg.observer.Trained(e.name, i, weight)
	}

	err = errors.SafeExecute(log.OperationTrain, func() error {
		return e.pool.Train(e.candidate, inst, weight)
	})
	if err != nil {
		if ferr := e.pool.fail(log.OperationTrain, -1, e.candidate, err); ferr != nil {
			return ferr
		}
	}

	if !e.chunk.AddWithVotes(inst, votes) {
		return nil
	}
	defer e.chunk.Clear()
	e.processChunk()
	return nil
}

func (e *GOOWE) processChunk() {
	e.chunks++
	if e.pool.Len() > 0 {
		w := e.solveWeights()
		for i, m := range e.pool.Members() {
			m.Weight = w[i]
		}
	}

	c := e.candidate
	c.Weight = e.candidateWeight()
	slot, replaced := e.pool.ReplaceWeakest(c)
	e.candidate = e.pool.Spawn()

	e.cfg.observer.Chunk(e.name, e.chunks)
	e.pool.logger.Info("chunk processed",
		log.ChunkKey, e.chunks,
		log.SamplesKey, e.chunk.Len(),
		log.MemberIndexKey, slot,
		log.MemberWeightKey, c.Weight,
		"replaced", replaced)
}

// candidateWeight is the mean of the positive member weights, or 1.
func (e *GOOWE) candidateWeight() float64 {
	sum, n := 0.0, 0
	for _, m := range e.pool.Members() {
		if m.Weight > 0 {
			sum += m.Weight
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}

// solveWeights builds A_jk = Σ_i s_ij·s_ik and d_j = Σ_i s_ij·y_i from the
// cached votes of the chunk and solves A·w = d. A singular or ill-posed
// system falls back to uniform weights.
func (e *GOOWE) solveWeights() []float64 {
	n := e.pool.Len()
	instances := e.chunk.Instances()
	cached := e.chunk.Votes()

	classes := 0
	for i, inst := range instances {
		classes = max(classes, inst.Class()+1)
		for _, v := range cached[i] {
			classes = max(classes, len(v))
		}
	}

	a := mat.NewDense(n, n, nil)
	d := mat.NewVecDense(n, nil)
	s := make([][]float64, n)
	for j := range s {
		s[j] = make([]float64, classes)
	}
	y := make([]float64, classes)
	for i, inst := range instances {
		for j := 0; j < n; j++ {
			normalized(s[j], voteAt(cached[i], j))
		}
		clear(y)
		if k := inst.Class(); k >= 0 {
			y[k] = 1
		}
		for j := 0; j < n; j++ {
			d.SetVec(j, d.AtVec(j)+floats.Dot(s[j], y))
			for k := j; k < n; k++ {
				v := a.At(j, k) + floats.Dot(s[j], s[k])
				a.Set(j, k, v)
				a.Set(k, j, v)
			}
		}
	}

	var w mat.VecDense
	err := w.SolveVec(a, d)
	out := make([]float64, n)
	if err == nil {
		copy(out, w.RawVector().Data)
	}
	if err != nil || !errors.IsFinite(out) {
		e.pool.logger.Warn("weight system is singular, using uniform weights",
			log.ErrorCodeKey, log.ErrorSingularMatrix,
			log.ChunkKey, e.chunks,
			"cause", errors.Wrap(errors.ErrSingularMatrix, errorString(err)).Error())
		for j := range out {
			out[j] = 1
		}
	}
	return out
}

func voteAt(votes [][]float64, j int) []float64 {
	if j < len(votes) {
		return votes[j]
	}
	return nil
}

// normalized writes v scaled to sum 1 into dst, or zeros for an unusable vote.
func normalized(dst, v []float64) {
	clear(dst)
	if !model.UsableVote(v) {
		return
	}
	sum := floats.Sum(v)
	for c := 0; c < len(v) && c < len(dst); c++ {
		dst[c] = v[c] / sum
	}
}

func errorString(err error) string {
	if err == nil {
		return "non-finite solution"
	}
	return err.Error()
}

// Chunks returns how many chunks have been processed.
func (e *GOOWE) Chunks() int { return e.chunks }

// Predict combines the member votes with the solved weights. Members with a
// non-positive weight do not vote. It returns nil before the first chunk.
func (e *GOOWE) Predict(inst model.Instance) ([]float64, error) {
	members := e.pool.Members()
	if len(members) == 0 {
		return nil, nil
	}
	votes, err := e.pool.Votes(inst)
	if err != nil {
		return nil, err
	}
	return e.combine(votes, func(i int) float64 { return members[i].Weight }), nil
}

// Reset drops every member and the buffered chunk.
func (e *GOOWE) Reset() {
	*e = *must(newGOOWE(e.factory, e.cfg))
}

// Clone returns an untrained ensemble with the same configuration.
func (e *GOOWE) Clone() model.Learner {
	return must(newGOOWE(e.factory, e.cfg))
}
