package model

import (
	"math"
)

// Learner はアンサンブルのメンバーとなる逐次学習器の能力インターフェースです。
//
// Train は失敗を黙って無視してはならず、必ずerrorとして返します。
// Predict の戻り値はクラススコア（回帰では要素1つ）で、全てゼロやNaNを含む
// ベクトルは呼び出し側で「有効な投票なし」として扱われます（UsableVote）。
// Clone は同じ設定で学習状態が空の独立したインスタンスを返し、内部の可変状態を
// 共有してはいけません。
type Learner interface {
	Train(inst Instance, weight float64) error
	Predict(inst Instance) ([]float64, error)
	Reset()
	Clone() Learner
}

// Factory builds a fresh learner. Factories are resolved once at configuration
// time and called whenever a member is spawned or replaced.
type Factory func() Learner

// FactoryOf returns a Factory that clones prototype on every call.
func FactoryOf(prototype Learner) Factory {
	return func() Learner { return prototype.Clone() }
}

// Named is implemented by learners that report a display name for logs and metrics.
type Named interface {
	Name() string
}

// NameOf returns l.Name() when available and "learner" otherwise.
func NameOf(l Learner) string {
	if n, ok := l.(Named); ok {
		return n.Name()
	}
	return "learner"
}

// UsableVote reports whether v can take part in a combination: non-empty,
// finite and with a non-zero sum.
func UsableVote(v []float64) bool {
	if len(v) == 0 {
		return false
	}
	sum := 0.0
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
		sum += x
	}
	return sum != 0
}

// ArgMax returns the first index holding the maximum value, or 0 for an empty vector.
func ArgMax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// ProbabilityOf returns v[class] after normalising v to sum 1, or 0 when the
// vote is unusable or too short.
func ProbabilityOf(v []float64, class int) float64 {
	if !UsableVote(v) || class < 0 || class >= len(v) {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return v[class] / sum
}
