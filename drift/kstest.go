package drift

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// KSTest runs the two-sample Kolmogorov-Smirnov test on a and b and returns the
// statistic d and the asymptotic p-value. Inputs are not modified.
// Empty samples give d = 0 and p = 1.
func KSTest(a, b []float64) (d, p float64) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 1
	}
	x := append([]float64(nil), a...)
	y := append([]float64(nil), b...)
	sort.Float64s(x)
	sort.Float64s(y)

	d = stat.KolmogorovSmirnov(x, nil, y, nil)

	na, nb := float64(len(x)), float64(len(y))
	ne := math.Sqrt(na * nb / (na + nb))
	return d, kolmogorovQ((ne + 0.12 + 0.11/ne) * d)
}

// kolmogorovQ evaluates Q_KS(λ) = 2 Σ_{j≥1} (-1)^{j-1} exp(-2 j² λ²).
func kolmogorovQ(lambda float64) float64 {
	if lambda < 1e-3 {
		return 1
	}
	const maxTerms = 100
	a2 := -2 * lambda * lambda
	sum, sign, prev := 0.0, 1.0, 0.0
	for j := 1; j <= maxTerms; j++ {
		term := sign * 2 * math.Exp(a2*float64(j*j))
		sum += term
		if math.Abs(term) <= 1e-3*prev || math.Abs(term) <= 1e-8*math.Abs(sum) {
			return clampProbability(sum)
		}
		sign = -sign
		prev = math.Abs(term)
	}
	// The series failed to converge, which only happens for tiny λ.
	return 1
}

func clampProbability(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// SimilarSamples compares two multivariate samples feature by feature and
// reports whether no feature rejects equality at level alpha after a
// Bonferroni correction over the number of features.
func SimilarSamples(a, b [][]float64, alpha float64) bool {
	ok, _ := SimilarSamplesContext(context.Background(), a, b, alpha)
	return ok
}

// SimilarSamplesContext is SimilarSamples checking ctx before every feature.
// A cancelled comparison returns ctx's error.
func SimilarSamplesContext(ctx context.Context, a, b [][]float64, alpha float64) (bool, error) {
	if len(a) == 0 || len(b) == 0 {
		return false, nil
	}
	nf := len(a[0])
	if nf == 0 {
		return true, nil
	}
	level := alpha / float64(nf)
	col := func(rows [][]float64, f int) []float64 {
		out := make([]float64, 0, len(rows))
		for _, r := range rows {
			if f < len(r) {
				out = append(out, r[f])
			}
		}
		return out
	}
	for f := 0; f < nf; f++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if _, p := KSTest(col(a, f), col(b, f)); p < level {
			return false, nil
		}
	}
	return true, nil
}
