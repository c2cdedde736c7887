// Package drift provides online performance estimators and concept drift detectors.
//
// Every estimator consumes a stream of 0/1 errors (or bounded real values) and
// exposes its current mean. ADWIN and DDM additionally signal change; DDM also
// reports a warning zone used to start background learners.
package drift

import (
	"math"

	scierrors "github.com/YuminosukeSato/scistream/pkg/errors"
)

// Estimator はストリーム上の性能推定器の共通インターフェースです。
type Estimator interface {
	// Update は値を1つ追加し、変化を検出した場合にtrueを返します。
	Update(value float64) bool

	// Estimate は現在保持しているウィンドウの平均を返します。
	Estimate() float64

	// Reset は推定器を初期状態に戻します。
	Reset()

	// Width は現在のウィンドウ幅（保持しているサンプル数）を返します。
	Width() int

	// Clone は内部状態を共有しない完全なコピーを返します。
	Clone() Estimator
}

// WarningDetector is an estimator that also reports an intermediate warning zone.
type WarningDetector interface {
	Estimator
	InWarning() bool
}

// Factory builds a fresh estimator. Factories are validated when they are
// created so that a bad confidence or window size fails at configuration time.
type Factory func() Estimator

// ValidateDelta checks that a confidence parameter lies in (0, 1).
func ValidateDelta(name string, delta float64) error {
	if math.IsNaN(delta) || delta <= 0 || delta >= 1 {
		return scierrors.NewValidationError(name, "must be in the open interval (0, 1)", delta)
	}
	return nil
}

// ADWINFactory returns a factory of ADWIN estimators with confidence delta.
func ADWINFactory(delta float64, opts ...ADWINOption) (Factory, error) {
	if err := ValidateDelta("delta", delta); err != nil {
		return nil, err
	}
	opts = append([]ADWINOption{WithADWINDelta(delta)}, opts...)
	return func() Estimator { return NewADWIN(opts...) }, nil
}

// WindowFactory returns a factory of fixed-size sliding window estimators.
func WindowFactory(size int) (Factory, error) {
	if size < 1 {
		return nil, scierrors.NewValidationError("window_size", "must be at least 1", size)
	}
	return func() Estimator { return NewWindowEstimator(size) }, nil
}

// DDMFactory returns a factory of DDM detectors.
func DDMFactory(opts ...DDMOption) Factory {
	return func() Estimator { return NewDDM(opts...) }
}
