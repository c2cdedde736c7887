package stream

import (
	"context"
	"io"
	"math/rand/v2"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/pkg/errors"
)

// seaThresholds are the four SEA concepts: label 1 iff x0 + x1 <= threshold.
var seaThresholds = [4]float64{8, 9, 7, 9.5}

// SEAGenerator emits the SEA concepts stream: three features uniform in
// [0, 10), the third one irrelevant. Every driftEvery instances the concept
// advances to the next threshold, producing abrupt drift.
type SEAGenerator struct {
	rng        *rand.Rand
	concept    int
	noise      float64
	driftEvery int
	limit      int
	emitted    int
}

// SEAOption configures a SEAGenerator.
type SEAOption func(*SEAGenerator)

// WithSEAConcept sets the starting concept (0..3).
func WithSEAConcept(c int) SEAOption {
	return func(g *SEAGenerator) { g.concept = c }
}

// WithSEANoise flips each label with probability p.
func WithSEANoise(p float64) SEAOption {
	return func(g *SEAGenerator) { g.noise = p }
}

// WithSEADriftEvery switches concept every n instances; 0 disables drift.
func WithSEADriftEvery(n int) SEAOption {
	return func(g *SEAGenerator) { g.driftEvery = n }
}

// WithSEALimit ends the stream after n instances; 0 means unbounded.
func WithSEALimit(n int) SEAOption {
	return func(g *SEAGenerator) { g.limit = n }
}

// NewSEAGenerator creates a generator seeded with seed.
func NewSEAGenerator(seed uint64, opts ...SEAOption) (*SEAGenerator, error) {
	g := &SEAGenerator{rng: rand.New(rand.NewPCG(seed, 0x5ea))}
	for _, opt := range opts {
		opt(g)
	}
	switch {
	case g.concept < 0 || g.concept >= len(seaThresholds):
		return nil, errors.NewValidationError("concept", "must be in [0, 3]", g.concept)
	case g.noise < 0 || g.noise > 1:
		return nil, errors.NewValidationError("noise", "must be in [0, 1]", g.noise)
	case g.driftEvery < 0:
		return nil, errors.NewValidationError("drift_every", "must be non-negative", g.driftEvery)
	case g.limit < 0:
		return nil, errors.NewValidationError("limit", "must be non-negative", g.limit)
	}
	return g, nil
}

// Concept returns the index of the concept the next instance is drawn from.
func (g *SEAGenerator) Concept() int { return g.concept }

// Next draws the next instance.
func (g *SEAGenerator) Next(ctx context.Context) (model.Instance, error) {
	if err := ctx.Err(); err != nil {
		return model.Instance{}, err
	}
	if g.limit > 0 && g.emitted >= g.limit {
		return model.Instance{}, io.EOF
	}
	if g.driftEvery > 0 && g.emitted > 0 && g.emitted%g.driftEvery == 0 {
		g.concept = (g.concept + 1) % len(seaThresholds)
	}
	g.emitted++

	x := []float64{g.rng.Float64() * 10, g.rng.Float64() * 10, g.rng.Float64() * 10}
	y := 0.0
	if x[0]+x[1] <= seaThresholds[g.concept] {
		y = 1
	}
	if g.noise > 0 && g.rng.Float64() < g.noise {
		y = 1 - y
	}
	return model.Instance{X: x, Y: y}, nil
}
