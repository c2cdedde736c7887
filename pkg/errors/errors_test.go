package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Train", 4, 3, 1)

	want := "scistream: Train: dimension mismatch on axis 1 (features). Expected 4, got 3"
	assert.Equal(t, want, err.Error())

	var dimErr *DimensionError
	require.True(t, As(err, &dimErr))
	assert.Equal(t, 4, dimErr.Expected)

	// スタックトレースの存在確認
	formatted := fmt.Sprintf("%+v", err)
	assert.True(t, strings.Contains(formatted, "errors_test.go"), "expected stack trace in %q", formatted)
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("delta", "must lie in (0, 1)", 1.5)

	var vErr *ValidationError
	require.True(t, As(err, &vErr))
	assert.Equal(t, "delta", vErr.ParamName)
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "delta")
}

func TestTrainingErrorUnwrap(t *testing.T) {
	cause := New("malformed instance")
	err := NewTrainingError("train", 2, "m-2", cause)

	assert.True(t, Is(err, cause))
	assert.False(t, IsFatal(err))

	var tErr *TrainingError
	require.True(t, As(err, &tErr))
	assert.Equal(t, 2, tErr.Member)
}

func TestFailureBudgetError(t *testing.T) {
	var combined error
	combined = Append(combined, New("first"))
	combined = Append(combined, New("second"))

	err := NewFailureBudgetError(3, 2, combined)
	assert.True(t, IsFatal(err))

	var budget *FailureBudgetError
	require.True(t, As(err, &budget))
	assert.Len(t, budget.Causes(), 2)
	assert.Contains(t, err.Error(), "exceed tolerance 2")
}

func TestConcurrencyError(t *testing.T) {
	cause := New("deadline exceeded")
	err := NewConcurrencyError("concept comparison", cause)
	assert.True(t, IsFatal(err))
	assert.True(t, Is(err, cause))
}

func TestWarnUsesHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(error) {})

	Warn(NewModelDriftWarning("ADWIN", 1, 0.4, "reset", 120))
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Error(), "member 1")
}

func TestWrapAndIs(t *testing.T) {
	base := New("base")
	wrapped := Wrapf(Wrap(base, "layer one"), "layer %d", 2)
	assert.True(t, Is(wrapped, base))
	assert.Contains(t, wrapped.Error(), "layer 2")
}

func TestNumericalHelpers(t *testing.T) {
	assert.Equal(t, 0.0, SafeDivide(1, 0))
	assert.False(t, math.IsInf(FlooredDivide(1, 0), 0))
	assert.Equal(t, math.MaxFloat64, FiniteOrMax(math.Inf(1)))
	assert.Equal(t, 0.0, FiniteOrMax(math.NaN()))
	assert.Error(t, CheckScalar("op", math.NaN(), 0))
	assert.NoError(t, CheckNumericalStability("op", []float64{1, 2}, 0))
	assert.False(t, IsFinite([]float64{1, math.Inf(-1)}))
	assert.Equal(t, math.MaxFloat64, ClipValue(math.Inf(1), 0, math.MaxFloat64))
	assert.Equal(t, 0.0, ClipValue(-3, 0, 1))
	assert.Equal(t, math.Log(Epsilon), StabilizeLog(0))
	assert.InDelta(t, math.Log(0.5), StabilizeLog(0.5), 1e-15)

	p := Softmax([]float64{1000, 1000})
	assert.InDelta(t, 0.5, p[0], 1e-12)
	assert.InDelta(t, 1.0, p[0]+p[1], 1e-12)
}
