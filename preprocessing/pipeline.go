package preprocessing

import (
	"github.com/cockroachdb/errors"

	"github.com/YuminosukeSato/scistream/core/model"
)

// Pipeline chains an online transformer in front of a learner. Training
// updates the transformer first and then trains the learner on the
// transformed instance; prediction only transforms.
type Pipeline struct {
	transformer model.Transformer
	learner     model.Learner
}

// NewPipeline wraps l behind t.
func NewPipeline(t model.Transformer, l model.Learner) *Pipeline {
	return &Pipeline{transformer: t, learner: l}
}

// Train updates the transformer and trains the learner.
func (p *Pipeline) Train(inst model.Instance, weight float64) error {
	if err := p.transformer.Learn(inst); err != nil {
		return errors.Wrap(err, "pipeline transform")
	}
	scaled, err := p.transformer.Transform(inst)
	if err != nil {
		return errors.Wrap(err, "pipeline transform")
	}
	return p.learner.Train(scaled, weight)
}

// Predict transforms inst and asks the learner. An untrained pipeline abstains.
func (p *Pipeline) Predict(inst model.Instance) ([]float64, error) {
	scaled, err := p.transformer.Transform(inst)
	if errors.Is(err, model.ErrNotFitted) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p.learner.Predict(scaled)
}

// Reset clears both stages.
func (p *Pipeline) Reset() {
	p.transformer.Reset()
	p.learner.Reset()
}

// Clone returns an untrained pipeline with the same configuration.
func (p *Pipeline) Clone() model.Learner {
	return &Pipeline{transformer: p.transformer.Clone(), learner: p.learner.Clone()}
}

// Name reports the wrapped learner's name.
func (p *Pipeline) Name() string { return model.NameOf(p.learner) }
