package model

import (
	"math"
	"strconv"
)

// Instance はストリームから到着する1件のラベル付きデータです。
//
// 分類ではYがクラスインデックス（0..numClasses-1）、回帰ではYが目的変数そのものです。
// Weightは0のとき1として扱われます。
type Instance struct {
	X      []float64
	Y      float64
	Weight float64
}

// Class returns Y as a class index. Non-finite or negative labels map to -1.
func (in Instance) Class() int {
	if math.IsNaN(in.Y) || math.IsInf(in.Y, 0) || in.Y < 0 {
		return -1
	}
	return int(in.Y)
}

// EffectiveWeight returns the instance weight, treating the zero value as 1.
func (in Instance) EffectiveWeight() float64 {
	if in.Weight == 0 {
		return 1
	}
	return in.Weight
}

// NumFeatures returns len(X).
func (in Instance) NumFeatures() int { return len(in.X) }

// Project returns a copy of the instance restricted to the given feature indices.
// Indices outside X are skipped.
func (in Instance) Project(features []int) Instance {
	x := make([]float64, 0, len(features))
	for _, f := range features {
		if f >= 0 && f < len(in.X) {
			x = append(x, in.X[f])
		}
	}
	return Instance{X: x, Y: in.Y, Weight: in.Weight}
}

func (in Instance) String() string {
	return "Instance{y=" + strconv.FormatFloat(in.Y, 'g', -1, 64) +
		", d=" + strconv.Itoa(len(in.X)) + "}"
}
