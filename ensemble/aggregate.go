package ensemble

import (
	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/pkg/errors"
)

// Vote is one member's class distribution and its voting weight.
type Vote struct {
	Scores []float64
	Weight float64
}

type combineConfig struct {
	guard     int
	normalize bool
}

// CombineOption configures Combine.
type CombineOption func(*combineConfig)

// WithOverflowGuard scales every contribution by 1/(n+1), where n is the
// ensemble size. Chunk ensembles use it to keep sums bounded on long streams.
func WithOverflowGuard(n int) CombineOption {
	return func(c *combineConfig) { c.guard = n }
}

// WithFinalNormalize normalises the combined vector to sum 1.
func WithFinalNormalize() CombineOption {
	return func(c *combineConfig) { c.normalize = true }
}

// Combine normalises each usable vote to sum 1, scales it by its weight and
// accumulates it. Unusable votes and non-positive weights contribute nothing.
// The result is nil when no vote contributed.
func Combine(votes []Vote, opts ...CombineOption) []float64 {
	cfg := combineConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	scale := 1.0
	if cfg.guard > 0 {
		scale = 1 / float64(cfg.guard+1)
	}

	var out []float64
	for _, v := range votes {
		if !model.UsableVote(v.Scores) || !(v.Weight > 0) {
			continue
		}
		sum := floats.Sum(v.Scores)
		for len(out) < len(v.Scores) {
			out = append(out, 0)
		}
		floats.AddScaled(out[:len(v.Scores)], errors.FiniteOrMax(v.Weight*scale/sum), v.Scores)
	}
	if out == nil {
		return nil
	}
	for i := range out {
		out[i] = errors.FiniteOrMax(out[i])
	}
	if cfg.normalize {
		if total := floats.Sum(out); total > 0 {
			floats.Scale(1/total, out)
		}
	}
	return out
}

// Average returns the weighted mean of single-output votes as a one-element
// vector, or nil when no vote has positive weight.
func Average(votes []Vote) []float64 {
	num, den := 0.0, 0.0
	for _, v := range votes {
		if len(v.Scores) == 0 || !errors.IsFinite(v.Scores) || !(v.Weight > 0) {
			continue
		}
		num += v.Weight * v.Scores[0]
		den += v.Weight
	}
	if den == 0 {
		return nil
	}
	return []float64{num / den}
}

// SelectBest returns the first index holding the maximal (or minimal) value,
// or -1 for an empty slice. NaN values are never selected.
func SelectBest(values []float64, maximize bool) int {
	best := -1
	for i, v := range values {
		if v != v {
			continue
		}
		if best < 0 || (maximize && v > values[best]) || (!maximize && v < values[best]) {
			best = i
		}
	}
	return best
}
