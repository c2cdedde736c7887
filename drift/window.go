package drift

import "sync"

// WindowEstimator keeps the mean of the last size values in a ring buffer.
// It never signals change.
type WindowEstimator struct {
	mu     sync.RWMutex
	values []float64
	next   int
	filled int
	sum    float64
}

// NewWindowEstimator creates a sliding window estimator. Sizes below 1 are raised to 1.
func NewWindowEstimator(size int) *WindowEstimator {
	if size < 1 {
		size = 1
	}
	return &WindowEstimator{values: make([]float64, size)}
}

// Update adds value, evicting the oldest value once the window is full.
func (w *WindowEstimator) Update(value float64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.filled == len(w.values) {
		w.sum -= w.values[w.next]
	} else {
		w.filled++
	}
	w.values[w.next] = value
	w.sum += value
	w.next = (w.next + 1) % len(w.values)
	return false
}

// Estimate returns the window mean, or 0 when empty.
func (w *WindowEstimator) Estimate() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.filled == 0 {
		return 0
	}
	return w.sum / float64(w.filled)
}

// Width returns the number of values currently held.
func (w *WindowEstimator) Width() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.filled
}

// Size returns the window capacity.
func (w *WindowEstimator) Size() int { return len(w.values) }

// Reset empties the window.
func (w *WindowEstimator) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.values {
		w.values[i] = 0
	}
	w.next, w.filled, w.sum = 0, 0, 0
}

// Clone returns a deep copy.
func (w *WindowEstimator) Clone() Estimator {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return &WindowEstimator{
		values: append([]float64(nil), w.values...),
		next:   w.next,
		filled: w.filled,
		sum:    w.sum,
	}
}
