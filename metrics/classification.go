package metrics

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scistream/drift"
	"github.com/YuminosukeSato/scistream/pkg/errors"
)

// DefaultWindow は窓付き正解率のデフォルト窓幅
const DefaultWindow = 1000

// ClassificationMetrics は重み付き混同行列を逐次更新し、正解率、Cohenのκ、
// 直近の窓での正解率を計算する。クラス数は観測に応じて拡張される
type ClassificationMetrics struct {
	mu sync.Mutex

	// confusion[t][p] は正解t、予測pの重み合計
	confusion [][]float64
	weight    float64
	correct   float64
	window    *drift.WindowEstimator
}

// NewClassificationMetrics は窓幅windowのClassificationMetricsを作成する。
// window が1未満ならDefaultWindowを使う
func NewClassificationMetrics(window int) *ClassificationMetrics {
	if window < 1 {
		window = DefaultWindow
	}
	return &ClassificationMetrics{window: drift.NewWindowEstimator(window)}
}

func (c *ClassificationMetrics) grow(k int) {
	for len(c.confusion) <= k {
		c.confusion = append(c.confusion, nil)
	}
	n := len(c.confusion)
	for i := range c.confusion {
		if len(c.confusion[i]) < n {
			c.confusion[i] = append(c.confusion[i], make([]float64, n-len(c.confusion[i]))...)
		}
	}
}

// Update は1件の予測を記録する。負のクラスは無効なラベルとして扱い、
// 重みが0以下の観測は無視する。予測なし（-1）は誤りとして窓に入る
func (c *ClassificationMetrics) Update(yTrue, yPred int, weight float64) error {
	if yTrue < 0 {
		return errors.NewValueError("ClassificationMetrics.Update", "true class must be non-negative")
	}
	if weight <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	hit := 0.0
	if yPred == yTrue {
		hit = 1
	}
	c.window.Update(hit)
	c.weight += weight
	c.correct += hit * weight
	if yPred < 0 {
		c.grow(yTrue)
		return nil
	}
	c.grow(max(yTrue, yPred))
	c.confusion[yTrue][yPred] += weight
	return nil
}

// Weight は記録済みの重みの合計を返す
func (c *ClassificationMetrics) Weight() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

// Accuracy は重み付き正解率を返す
func (c *ClassificationMetrics) Accuracy() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.SafeDivide(c.correct, c.weight)
}

// WindowedAccuracy は直近の窓での（重みなし）正解率を返す
func (c *ClassificationMetrics) WindowedAccuracy() float64 {
	return c.window.Estimate()
}

// Kappa はCohenのκ = (p0 - pe) / (1 - pe) を返す。pe = 1 のときは未定義で0を返し警告する
func (c *ClassificationMetrics) Kappa() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.weight == 0 {
		return 0
	}
	n := len(c.confusion)
	rows := make([]float64, n)
	cols := make([]float64, n)
	for t, row := range c.confusion {
		for p, w := range row {
			rows[t] += w
			cols[p] += w
		}
	}
	pe := 0.0
	for k := 0; k < n; k++ {
		pe += (rows[k] / c.weight) * (cols[k] / c.weight)
	}
	p0 := c.correct / c.weight
	if pe >= 1 {
		errors.Warn(errors.NewUndefinedMetricWarning("Kappa", "chance agreement is 1", 0))
		return 0
	}
	return (p0 - pe) / (1 - pe)
}

// Recall はクラスkの再現率を返す。正解kの観測がなければ0
func (c *ClassificationMetrics) Recall(k int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if k < 0 || k >= len(c.confusion) {
		return 0
	}
	total := 0.0
	for _, w := range c.confusion[k] {
		total += w
	}
	return errors.SafeDivide(c.confusion[k][k], total)
}

// Precision はクラスkの適合率を返す。kと予測された観測がなければ0
func (c *ClassificationMetrics) Precision(k int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if k < 0 || k >= len(c.confusion) {
		return 0
	}
	total := 0.0
	for _, row := range c.confusion {
		total += row[k]
	}
	return errors.SafeDivide(c.confusion[k][k], total)
}

// Confusion は混同行列のコピーを返す（行が正解、列が予測）。観測がなければnil
func (c *ClassificationMetrics) Confusion() *mat.Dense {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.confusion)
	if n == 0 {
		return nil
	}
	m := mat.NewDense(n, n, nil)
	for t, row := range c.confusion {
		m.SetRow(t, row)
	}
	return m
}

// Reset は全ての統計量を消去する
func (c *ClassificationMetrics) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confusion = nil
	c.weight, c.correct = 0, 0
	c.window.Reset()
}
