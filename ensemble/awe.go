package ensemble

import (
	"sort"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
)

// AccuracyWeightedEnsemble is the chunk-based ensemble of Wang et al. (2003)
// and its updated variant AUE (Brzezinski & Stefanowski, 2011).
//
// Instances are buffered into chunks. At each chunk boundary a candidate is
// trained on the chunk, every stored member is re-weighted from its error on
// the chunk, the candidate enters storage (replacing the weakest member when
// storage is full and the candidate is strictly better), and the best
// WithEnsembleSize members form the active voting set. AUE additionally
// keeps training the stored members on every chunk.
type AccuracyWeightedEnsemble struct {
	base
	chunk   *Chunk
	weigher ChunkWeigher
	active  []int
	chunks  int
}

// NewAccuracyWeightedEnsemble creates an AWE (default) or AUE ensemble.
func NewAccuracyWeightedEnsemble(factory model.Factory, opts ...Option) (*AccuracyWeightedEnsemble, error) {
	return newAWE(factory, buildConfig(nil, opts))
}

func newAWE(factory model.Factory, cfg *config) (*AccuracyWeightedEnsemble, error) {
	name := "AWE"
	if cfg.variant == AccuracyUpdated {
		name = "AUE"
	}
	if err := cfg.validateChunk(); err != nil {
		return nil, err
	}
	if cfg.variant != AccuracyWeighted && cfg.variant != AccuracyUpdated {
		return nil, errors.NewValidationError("chunk_variant", "must be awe or aue", string(cfg.variant))
	}
	if cfg.folds < 1 {
		return nil, errors.NewValidationError("folds", "must be at least 1", cfg.folds)
	}
	b, err := newBase(name, factory, cfg, cfg.stored)
	if err != nil {
		return nil, err
	}
	e := &AccuracyWeightedEnsemble{
		base:    b,
		chunk:   NewChunk(cfg.chunkSize),
		weigher: ChunkWeigher{Variant: cfg.variant},
	}
	if err := e.validateClassification(); err != nil {
		return nil, err
	}
	return e, nil
}

// Train buffers the instance and processes the chunk when it is full.
func (e *AccuracyWeightedEnsemble) Train(inst model.Instance, weight float64) error {
	e.pool.Tick()
	inst.Weight = weight
	if !e.chunk.Add(inst) {
		return nil
	}
	defer e.chunk.Clear()
	return e.processChunk()
}

func (e *AccuracyWeightedEnsemble) processChunk() error {
	e.chunks++
	mseR := e.weigher.ReferenceMSE(e.chunk)
	instances := e.chunk.Instances()

	cvMSE := 0.0
	if e.cfg.variant == AccuracyWeighted {
		cvMSE = e.crossValidate()
	}

	// Stored members are weighed before the candidate joins them.
	members := e.pool.Members()
	mses := make([]float64, len(members))
	fallbacks := make([]int, len(members))
	causes := make([]error, len(members))
	err := e.pool.Each(log.OperationChunk, func(i int, m *Member) error {
		mses[i], fallbacks[i], causes[i] = e.weigher.MSE(func(inst model.Instance) ([]float64, error) {
			return m.Learner.Predict(m.view(inst))
		}, instances)
		return nil
	})
	if err != nil {
		return err
	}
	for i, m := range members {
		if fallbacks[i] > 0 {
			errors.Warn(errors.NewFallbackWarning("chunk_weight", i, float64(fallbacks[i]), causes[i]))
		}
		m.Weight = e.weigher.Weight(mseR, mses[i])
	}

	candidate := e.pool.Spawn()
	for _, inst := range instances {
		err := errors.SafeExecute(log.OperationTrain, func() error {
			return e.pool.Train(candidate, inst, inst.EffectiveWeight())
		})
		if err != nil {
			if ferr := e.pool.fail(log.OperationTrain, e.pool.Len(), candidate, err); ferr != nil {
				return ferr
			}
			break
		}
	}
	candidate.Weight = e.weigher.CandidateWeight(mseR, cvMSE)

	if e.cfg.variant == AccuracyUpdated {
		err := e.pool.Each(log.OperationTrain, func(i int, m *Member) error {
			for _, inst := range instances {
				if err := e.pool.Train(m, inst, inst.EffectiveWeight()); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	slot, added := e.pool.ReplaceWeakest(candidate)
	e.selectActive()
	e.cfg.observer.Chunk(e.name, e.chunks)
	e.pool.logger.Info("chunk processed",
		log.ChunkKey, e.chunks,
		log.SamplesKey, len(instances),
		log.LossKey, mseR,
		log.MemberIndexKey, slot,
		log.MemberWeightKey, candidate.Weight,
		"candidate_added", added,
		"stored", e.pool.Len(),
		"active", len(e.active))
	return nil
}

// crossValidate returns the candidate error estimated by k-fold cross
// validation on the current chunk. With fewer than two folds the candidate
// is scored on the data it was trained on.
func (e *AccuracyWeightedEnsemble) crossValidate() float64 {
	instances := e.chunk.Instances()
	k := min(e.cfg.folds, len(instances))
	if k < 2 {
		return e.foldMSE(instances, instances)
	}
	total := 0.0
	for f := 0; f < k; f++ {
		train, test := e.chunk.Fold(f, k)
		total += e.foldMSE(train, test)
	}
	return total / float64(k)
}

func (e *AccuracyWeightedEnsemble) foldMSE(train, test []model.Instance) float64 {
	l := e.factory()
	err := errors.SafeExecute(log.OperationTrain, func() error {
		for _, inst := range train {
			if err := l.Train(inst, inst.EffectiveWeight()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		errors.Warn(errors.NewFallbackWarning("cross_validation", -1, 1, err))
		return 1
	}
	mse, fallbacks, cause := e.weigher.MSE(l.Predict, test)
	if fallbacks > 0 {
		errors.Warn(errors.NewFallbackWarning("cross_validation", -1, float64(fallbacks), cause))
	}
	return mse
}

// selectActive keeps the WithEnsembleSize stored members with the largest
// weights, ties broken by slot.
func (e *AccuracyWeightedEnsemble) selectActive() {
	members := e.pool.Members()
	idx := make([]int, len(members))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return members[idx[a]].Weight > members[idx[b]].Weight
	})
	if len(idx) > e.cfg.size {
		idx = idx[:e.cfg.size]
	}
	sort.Ints(idx)
	e.active = idx
}

// Active returns the slots of the voting members.
func (e *AccuracyWeightedEnsemble) Active() []int {
	return append([]int(nil), e.active...)
}

// Chunks returns how many chunks have been processed.
func (e *AccuracyWeightedEnsemble) Chunks() int { return e.chunks }

// Predict combines the active members' votes by weight, scaled by 1/(K+1).
// It returns nil before the first chunk completes.
func (e *AccuracyWeightedEnsemble) Predict(inst model.Instance) ([]float64, error) {
	if len(e.active) == 0 {
		return nil, nil
	}
	members := make([]*Member, len(e.active))
	for i, slot := range e.active {
		members[i] = e.pool.Member(slot)
	}
	votes := make([][]float64, len(members))
	err := e.pool.each(log.OperationPredict, e.active, func(i int, m *Member) error {
		v, err := e.pool.Predict(m, inst)
		votes[i] = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return e.combine(votes, func(i int) float64 { return members[i].Weight }, WithOverflowGuard(e.cfg.size)), nil
}

// Reset drops every member and the buffered chunk.
func (e *AccuracyWeightedEnsemble) Reset() {
	*e = *must(newAWE(e.factory, e.cfg))
}

// Clone returns an untrained ensemble with the same configuration.
func (e *AccuracyWeightedEnsemble) Clone() model.Learner {
	return must(newAWE(e.factory, e.cfg))
}
