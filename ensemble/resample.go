package ensemble

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/scistream/pkg/errors"
)

// newMemberRNG derives a member's generator from the master seed and the
// member's sequence number, so members never share random state.
func newMemberRNG(seed uint64, seq int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(seq)))
}

// Poisson draws training multiplicities k ~ Poisson(λ) from a private source.
type Poisson struct {
	dist distuv.Poisson
}

// NewPoisson returns a Poisson sampler reading from src.
func NewPoisson(lambda float64, src rand.Source) *Poisson {
	return &Poisson{dist: distuv.Poisson{Lambda: lambda, Src: src}}
}

// Lambda returns the rate.
func (p *Poisson) Lambda() float64 { return p.dist.Lambda }

// Draw returns the next multiplicity. A non-positive rate always yields 0.
func (p *Poisson) Draw() int {
	if p.dist.Lambda <= 0 {
		return 0
	}
	return int(p.dist.Rand())
}

// DrawWith draws once with a different rate, reusing the same source.
func (p *Poisson) DrawWith(lambda float64) int {
	if lambda <= 0 || math.IsNaN(lambda) {
		return 0
	}
	return int(distuv.Poisson{Lambda: lambda, Src: p.dist.Src}.Rand())
}

// cascade tracks the boosting weight λ of one instance as it moves through
// the members. λ starts at the instance weight; W is the total weight seen.
type cascade struct {
	lambda float64
	total  float64
}

// update applies the online boosting recurrence for member m after it saw
// the instance with the current λ, and returns the new λ.
//
//	correct: scm += λ; λ *= W / (2·scm)
//	wrong:   swm += λ; λ *= W / (2·swm)
func (c *cascade) update(m *Member, correct bool) float64 {
	if correct {
		m.scm += c.lambda
		c.lambda *= errors.FlooredDivide(c.total, 2*m.scm)
	} else {
		m.swm += c.lambda
		c.lambda *= errors.FlooredDivide(c.total, 2*m.swm)
	}
	if math.IsNaN(c.lambda) {
		c.lambda = 0
	}
	c.lambda = errors.ClipValue(c.lambda, 0, math.MaxFloat64)
	return c.lambda
}
