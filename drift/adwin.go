package drift

import (
	"math"
	"sync"
)

const (
	defaultADWINDelta      = 0.002
	defaultADWINClock      = 32
	defaultADWINMaxBuckets = 5
	// Cut tests only run once the window is wider than this.
	defaultADWINMinWidth = 10
	// Each side of a cut must hold more than minSubWindow+1 values.
	defaultADWINMinSubWindow = 5
)

// ADWIN (Adaptive Windowing) はアダプティブウィンドウによるドリフト検出器です。
// A. Bifet, R. Gavalda (2007) "Learning from time-changing data with adaptive windowing"
//
// ウィンドウは指数ヒストグラムで圧縮されます。行iのバケットは2^i個の値を要約し、
// 各行は最大maxBuckets個のバケットを持ちます。メモリと更新コストはO(log W)です。
// clock回の更新ごとに全ての分割点を検定し、古い部分ウィンドウと新しい部分ウィンドウの
// 平均差が境界を超えた場合は最も古いバケットを捨てて検定を繰り返します。
type ADWIN struct {
	// Hyperparameters
	delta        float64
	clock        int
	maxBuckets   int
	minWidth     int
	minSubWindow int

	// rows[0] holds the newest singleton buckets; within a row index 0 is the oldest.
	rows     []adwinRow
	width    int
	total    float64
	variance float64 // sum of squared deviations, not divided by width

	time       int64
	detections int

	mu sync.RWMutex
}

type adwinRow struct {
	total    []float64
	variance []float64
}

func (r *adwinRow) size() int { return len(r.total) }

func (r *adwinRow) push(total, variance float64) {
	r.total = append(r.total, total)
	r.variance = append(r.variance, variance)
}

// drop removes the n oldest buckets of the row.
func (r *adwinRow) drop(n int) {
	r.total = append(r.total[:0], r.total[n:]...)
	r.variance = append(r.variance[:0], r.variance[n:]...)
}

// ADWINOption はADWINの設定オプション
type ADWINOption func(*ADWIN)

// WithADWINDelta は信頼度パラメータを設定（小さいほど鈍感）
func WithADWINDelta(delta float64) ADWINOption {
	return func(a *ADWIN) {
		a.delta = delta
	}
}

// WithADWINClock sets how many updates pass between cut tests.
func WithADWINClock(clock int) ADWINOption {
	return func(a *ADWIN) {
		if clock > 0 {
			a.clock = clock
		}
	}
}

// WithADWINMaxBuckets は各行の最大バケット数を設定
func WithADWINMaxBuckets(max int) ADWINOption {
	return func(a *ADWIN) {
		if max > 1 {
			a.maxBuckets = max
		}
	}
}

// NewADWIN は新しいADWINを作成
func NewADWIN(options ...ADWINOption) *ADWIN {
	a := &ADWIN{
		delta:        defaultADWINDelta,
		clock:        defaultADWINClock,
		maxBuckets:   defaultADWINMaxBuckets,
		minWidth:     defaultADWINMinWidth,
		minSubWindow: defaultADWINMinSubWindow,
	}
	for _, opt := range options {
		opt(a)
	}
	a.rows = []adwinRow{{}}
	return a
}

// Update は新しい値でADWINを更新し、ウィンドウを縮小した場合にtrueを返す
func (a *ADWIN) Update(value float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.time++
	a.insert(value)

	changed := false
	if a.time%int64(a.clock) != 0 || a.width <= a.minWidth {
		return false
	}
	for a.cut() {
		changed = true
	}
	if changed {
		a.detections++
	}
	return changed
}

func (a *ADWIN) insert(value float64) {
	a.width++
	a.rows[0].push(value, 0)
	if a.width > 1 {
		w := float64(a.width)
		d := value - a.total/(w-1)
		a.variance += (w - 1) * d * d / w
	}
	a.total += value
	a.compress()
}

// compress merges the two oldest buckets of every overfull row into the next row.
func (a *ADWIN) compress() {
	for i := 0; i < len(a.rows); i++ {
		if a.rows[i].size() <= a.maxBuckets {
			return
		}
		if i+1 == len(a.rows) {
			a.rows = append(a.rows, adwinRow{})
		}
		row := &a.rows[i]
		n := math.Ldexp(1, i)
		u1 := row.total[0] / n
		u2 := row.total[1] / n
		inc := n * n * (u1 - u2) * (u1 - u2) / (n + n)
		a.rows[i+1].push(row.total[0]+row.total[1], row.variance[0]+row.variance[1]+inc)
		row.drop(2)
	}
}

// cut scans split points from the oldest bucket to the newest and drops the
// oldest bucket at the first split whose means differ by more than the bound.
func (a *ADWIN) cut() bool {
	n0, n1 := 0.0, float64(a.width)
	u0, u1 := 0.0, a.total
	v0, v1 := 0.0, a.variance
	minSide := float64(a.minSubWindow + 1)

	for i := len(a.rows) - 1; i >= 0; i-- {
		row := &a.rows[i]
		n2 := math.Ldexp(1, i)
		for k := 0; k < row.size(); k++ {
			u2 := row.total[k]
			if n0 > 0 {
				d := u0/n0 - u2/n2
				v0 += row.variance[k] + n0*n2*d*d/(n0+n2)
			}
			if n1 > 0 {
				d := u1/n1 - u2/n2
				v1 -= row.variance[k] + n1*n2*d*d/(n1+n2)
			}
			n0 += n2
			n1 -= n2
			u0 += u2
			u1 -= u2
			if i == 0 && k == row.size()-1 {
				return false
			}
			if n0 > minSide && n1 > minSide && a.cutExpression(n0, n1, u0/n0-u1/n1) {
				a.dropOldest()
				return true
			}
		}
	}
	return false
}

func (a *ADWIN) cutExpression(n0, n1, diff float64) bool {
	n := float64(a.width)
	dd := math.Log(2 * math.Log(n) / a.delta)
	v := a.variance / n
	offset := float64(a.minSubWindow) - 1
	m := 1/(n0-offset) + 1/(n1-offset)
	eps := math.Sqrt(2*m*v*dd) + 2.0/3.0*dd*m
	return math.Abs(diff) > eps
}

func (a *ADWIN) dropOldest() {
	last := len(a.rows) - 1
	row := &a.rows[last]
	n1 := math.Ldexp(1, last)
	a.width -= int(n1)
	a.total -= row.total[0]
	if a.width > 0 {
		w := float64(a.width)
		u1 := row.total[0] / n1
		d := u1 - a.total/w
		a.variance -= row.variance[0] + n1*w*d*d/(n1+w)
	} else {
		a.variance = 0
		a.total = 0
	}
	if a.variance < 0 {
		a.variance = 0
	}
	row.drop(1)
	if row.size() == 0 && last > 0 {
		a.rows = a.rows[:last]
	}
}

// Estimate は現在のウィンドウの平均を返す
func (a *ADWIN) Estimate() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.width == 0 {
		return 0
	}
	return a.total / float64(a.width)
}

// Variance returns the variance of the values in the current window.
func (a *ADWIN) Variance() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.width == 0 {
		return 0
	}
	return a.variance / float64(a.width)
}

// Width は現在のウィンドウ幅を返す
func (a *ADWIN) Width() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.width
}

// Detections returns how many updates reported a change.
func (a *ADWIN) Detections() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detections
}

// NumBuckets returns the number of buckets currently stored.
func (a *ADWIN) NumBuckets() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for i := range a.rows {
		n += a.rows[i].size()
	}
	return n
}

// Reset はADWINをリセット
func (a *ADWIN) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = []adwinRow{{}}
	a.width = 0
	a.total = 0
	a.variance = 0
	a.time = 0
	a.detections = 0
}

// Clone returns a deep copy of the detector, histogram included.
func (a *ADWIN) Clone() Estimator {
	a.mu.RLock()
	defer a.mu.RUnlock()
	c := &ADWIN{
		delta:        a.delta,
		clock:        a.clock,
		maxBuckets:   a.maxBuckets,
		minWidth:     a.minWidth,
		minSubWindow: a.minSubWindow,
		rows:         make([]adwinRow, len(a.rows)),
		width:        a.width,
		total:        a.total,
		variance:     a.variance,
		time:         a.time,
		detections:   a.detections,
	}
	for i, r := range a.rows {
		c.rows[i] = adwinRow{
			total:    append([]float64(nil), r.total...),
			variance: append([]float64(nil), r.variance...),
		}
	}
	return c
}

// Delta returns the confidence parameter.
func (a *ADWIN) Delta() float64 { return a.delta }
