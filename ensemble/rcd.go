package ensemble

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/drift"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
)

// sample is a bounded FIFO of feature vectors describing a concept.
type sample struct {
	cap  int
	rows [][]float64
}

func (s *sample) add(x []float64) {
	if len(s.rows) == s.cap {
		copy(s.rows, s.rows[1:])
		s.rows = s.rows[:s.cap-1]
	}
	s.rows = append(s.rows, append([]float64(nil), x...))
}

// RCD handles recurring concept drift (Gonçalves & Barros, 2013). One
// member is active at a time and each member keeps a sample of the data it
// was trained on. A DDM warning starts buffering the new data; on drift the
// buffer is compared concurrently with every stored concept using
// per-feature KS tests. A similar concept's learner is reused, otherwise a
// new learner trained on the buffer joins the pool, evicting the oldest
// member at capacity.
type RCD struct {
	base
	current int
	samples map[uuid.UUID]*sample
	buffer  []model.Instance
}

// NewRCD creates a recurring concept drift ensemble. WithEnsembleSize bounds
// the number of stored concepts.
func NewRCD(factory model.Factory, opts ...Option) (*RCD, error) {
	return newRCD(factory, buildConfig(nil, opts))
}

func newRCD(factory model.Factory, cfg *config) (*RCD, error) {
	if cfg.maxComparisons < 1 {
		return nil, errors.NewValidationError("max_comparisons", "must be at least 1", cfg.maxComparisons)
	}
	if cfg.bufferSize < 1 {
		return nil, errors.NewValidationError("buffer_size", "must be at least 1", cfg.bufferSize)
	}
	if !(cfg.alpha > 0 && cfg.alpha < 1) {
		return nil, errors.NewValidationError("significance", "must be in the open interval (0, 1)", cfg.alpha)
	}
	if cfg.timeout < 0 {
		return nil, errors.NewValidationError("comparison_timeout", "must be non-negative", cfg.timeout)
	}
	b, err := newBase("RCD", factory, cfg, cfg.size)
	if err != nil {
		return nil, err
	}
	e := &RCD{base: b, samples: make(map[uuid.UUID]*sample)}
	if err := e.validateClassification(); err != nil {
		return nil, err
	}
	detector := cfg.detector
	if detector == nil {
		detector = drift.DDMFactory()
	}
	if _, ok := detector().(drift.WarningDetector); !ok {
		return nil, errors.NewValidationError("detector", "must report a warning zone", nil)
	}
	e.pool.detector = detector
	first := e.pool.Spawn()
	e.pool.seed(first)
	e.samples[first.ID] = &sample{cap: cfg.bufferSize}
	return e, nil
}

// Current returns the slot of the active concept.
func (e *RCD) Current() int { return e.current }

// Train feeds the active member's error to its detector. During a warning the
// instance is buffered; on drift the active concept is switched.
func (e *RCD) Train(inst model.Instance, weight float64) error {
	e.pool.Tick()
	cur := e.pool.Member(e.current)

	vote, err := e.pool.Predict(cur, inst)
	if err != nil {
		if ferr := e.pool.fail(log.OperationPredict, e.current, cur, err); ferr != nil {
			return ferr
		}
	}
	det := cur.Detector.(drift.WarningDetector)
	estimate := det.Estimate()
	drifted := det.Update(errorValue(vote, inst))

	switch {
	case drifted:
		e.drifts++
		e.buffer = e.appendBuffer(inst)
		if err := e.switchConcept(estimate); err != nil {
			return err
		}
		e.buffer = e.buffer[:0]
	case det.InWarning():
		e.buffer = e.appendBuffer(inst)
	default:
		e.buffer = e.buffer[:0]
	}

	cur = e.pool.Member(e.current)
	if drifted {
		// The new concept has already seen this instance through the buffer.
		return nil
	}
	return e.trainActive(cur, inst, weight)
}

func (e *RCD) appendBuffer(inst model.Instance) []model.Instance {
	if len(e.buffer) == e.cfg.bufferSize {
		copy(e.buffer, e.buffer[1:])
		e.buffer = e.buffer[:len(e.buffer)-1]
	}
	return append(e.buffer, inst)
}

func (e *RCD) trainActive(m *Member, inst model.Instance, weight float64) error {
	err := errors.SafeExecute(log.OperationTrain, func() error {
		return e.pool.Train(m, inst, weight)
	})
	if err != nil {
		return e.pool.fail(log.OperationTrain, e.current, m, err)
	}
	e.cfg.observer.Trained(e.name, e.current, weight)
	e.samples[m.ID].add(inst.X)
	return nil
}

// switchConcept reuses the first stored concept similar to the buffered
// data, or trains a new one on it.
func (e *RCD) switchConcept(estimate float64) error {
	fresh := make([][]float64, len(e.buffer))
	for i, inst := range e.buffer {
		fresh[i] = inst.X
	}
	similar, err := e.compare(fresh)
	if err != nil {
		return err
	}

	for slot, ok := range similar {
		if !ok {
			continue
		}
		m := e.pool.Member(slot)
		m.Detector.Reset()
		e.current = slot
		e.pool.drifted(slot, "DDM", estimate, log.ActionReuse)
		e.cfg.observer.Replaced(e.name, slot, log.ActionReuse)
		return nil
	}

	m := e.pool.Spawn()
	s := &sample{cap: e.cfg.bufferSize}
	for _, inst := range e.buffer {
		err := errors.SafeExecute(log.OperationTrain, func() error {
			return e.pool.Train(m, inst, inst.EffectiveWeight())
		})
		if err != nil {
			if ferr := e.pool.fail(log.OperationTrain, -1, m, err); ferr != nil {
				return ferr
			}
			break
		}
		s.add(inst.X)
	}
	e.samples[m.ID] = s

	if e.pool.Len() < e.pool.Capacity() {
		if err := e.pool.Add(m); err != nil {
			return err
		}
		e.current = e.pool.Len() - 1
		e.pool.drifted(e.current, "DDM", estimate, log.ActionAdd)
		return nil
	}
	oldest := e.oldest()
	delete(e.samples, e.pool.Member(oldest).ID)
	e.pool.drifted(oldest, "DDM", estimate, log.ActionReplace)
	e.pool.Replace(oldest, m)
	e.current = oldest
	return nil
}

// oldest returns the first slot with the smallest creation index.
func (e *RCD) oldest() int {
	created := make([]float64, e.pool.Len())
	for i, m := range e.pool.Members() {
		created[i] = float64(m.CreatedAt)
	}
	return SelectBest(created, false)
}

// compare tests the fresh data against every stored concept except the
// active one, running at most maxComparisons tests at a time. The timeout
// bounds the whole call: comparisons stop at the next feature and compare
// returns without waiting for them. A timeout or a failed comparison is
// returned as a ConcurrencyError.
func (e *RCD) compare(fresh [][]float64) ([]bool, error) {
	members := e.pool.Members()
	similar := make([]bool, len(members))
	if len(fresh) == 0 {
		return similar, nil
	}

	type task struct {
		slot int
		rows [][]float64
	}
	var tasks []task
	for i, m := range members {
		if i == e.current {
			continue
		}
		stored := e.samples[m.ID]
		if stored == nil || len(stored.rows) == 0 {
			continue
		}
		// sample.add shifts rows in place, so workers get their own slice.
		tasks = append(tasks, task{slot: i, rows: slices.Clone(stored.rows)})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if e.cfg.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.cfg.timeout)
		defer cancel()
	}
	result := make([]bool, len(members))
	done := make(chan error, 1)
	go func() {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.maxComparisons)
		for _, t := range tasks {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return errors.SafeExecute("concept_comparison", func() error {
					ok, err := drift.SimilarSamplesContext(gctx, t.rows, fresh, e.cfg.alpha)
					result[t.slot] = ok
					return err
				})
			})
		}
		done <- g.Wait()
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		return nil, errors.NewConcurrencyError("concept_comparison", err)
	}
	copy(similar, result)
	return similar, nil
}

// Predict returns the active concept's vote.
func (e *RCD) Predict(inst model.Instance) ([]float64, error) {
	m := e.pool.Member(e.current)
	v, err := e.pool.Predict(m, inst)
	if err != nil {
		if ferr := e.pool.fail(log.OperationPredict, e.current, m, err); ferr != nil {
			return nil, ferr
		}
		return nil, nil
	}
	return v, nil
}

// Reset drops every stored concept.
func (e *RCD) Reset() {
	*e = *must(newRCD(e.factory, e.cfg))
}

// Clone returns an untrained ensemble with the same configuration.
func (e *RCD) Clone() model.Learner {
	return must(newRCD(e.factory, e.cfg))
}
