// Package metrics provides batch and streaming evaluation metrics for
// online learners. Streaming metrics are updated one prediction at a time
// and weigh each observation by its instance weight.
package metrics

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/scistream/pkg/errors"
)

func checkPair(op string, yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return errors.NewValueError(op, "empty vector")
	}
	if len(yPred) != len(yTrue) {
		return errors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MSE", yTrue, yPred); err != nil {
		return 0, err
	}
	diff := make([]float64, len(yTrue))
	floats.SubTo(diff, yTrue, yPred)
	return floats.Dot(diff, diff) / float64(len(diff)), nil
}

// RMSE は平均二乗誤差の平方根を計算する
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MAE", yTrue, yPred); err != nil {
		return 0, err
	}
	diff := make([]float64, len(yTrue))
	floats.SubTo(diff, yTrue, yPred)
	return floats.Norm(diff, 1) / float64(len(diff)), nil
}

// R2Score は決定係数を計算する。yTrueが定数の場合は未定義で、
// 予測が完全一致なら1、それ以外は0を返して警告する
func R2Score(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}
	mean := stat.Mean(yTrue, nil)
	var ssRes, ssTot float64
	for i, y := range yTrue {
		ssRes += (y - yPred[i]) * (y - yPred[i])
		ssTot += (y - mean) * (y - mean)
	}
	return r2(ssRes, ssTot), nil
}

func r2(ssRes, ssTot float64) float64 {
	if ssTot == 0 {
		result := 0.0
		if ssRes == 0 {
			result = 1
		}
		errors.Warn(errors.NewUndefinedMetricWarning("R2", "constant target", result))
		return result
	}
	return 1 - ssRes/ssTot
}

// RegressionMetrics は予測を1件ずつ受け取り、重み付きのMSE、MAE、R²を逐次計算する
type RegressionMetrics struct {
	mu sync.Mutex

	weight float64
	sse    float64
	sae    float64
	// 目的変数の重み付きWelford統計量（R²の全平方和）
	mean float64
	m2   float64
}

// NewRegressionMetrics は空のRegressionMetricsを作成する
func NewRegressionMetrics() *RegressionMetrics {
	return &RegressionMetrics{}
}

// Update は1件の予測を記録する。重みが0以下の観測は無視する
func (r *RegressionMetrics) Update(yTrue, yPred, weight float64) {
	if weight <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	diff := yTrue - yPred
	r.weight += weight
	r.sse += weight * diff * diff
	r.sae += weight * math.Abs(diff)
	delta := yTrue - r.mean
	r.mean += delta * weight / r.weight
	r.m2 += weight * delta * (yTrue - r.mean)
}

// Weight は記録済みの重みの合計を返す
func (r *RegressionMetrics) Weight() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.weight
}

// MSE は重み付き平均二乗誤差を返す
func (r *RegressionMetrics) MSE() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.SafeDivide(r.sse, r.weight)
}

// RMSE は重み付き平均二乗誤差の平方根を返す
func (r *RegressionMetrics) RMSE() float64 {
	return math.Sqrt(r.MSE())
}

// MAE は重み付き平均絶対誤差を返す
func (r *RegressionMetrics) MAE() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.SafeDivide(r.sae, r.weight)
}

// R2 は重み付き決定係数を返す
func (r *RegressionMetrics) R2() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.weight == 0 {
		return 0
	}
	return r2(r.sse, r.m2)
}

// Reset は全ての統計量を消去する
func (r *RegressionMetrics) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weight, r.sse, r.sae, r.mean, r.m2 = 0, 0, 0, 0, 0
}
