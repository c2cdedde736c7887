package drift

import (
	"math"
	"sync"
)

// DDM (Drift Detection Method) is a concept drift detection method
// Proposed in J. Gama, P. Medas, G. Castillo, P. Rodrigues (2004)
// "Learning with Drift Detection"
//
// DDM watches the error rate p and its standard deviation s. It reports a
// warning when p+s exceeds pmin + warningLevel*smin and drift when it exceeds
// pmin + outControlLevel*smin, then restarts its statistics.
type DDM struct {
	// Hyperparameters
	minNumInstances int     // Minimum number of instances
	warningLevel    float64 // Warning level
	outControlLevel float64 // Out of control level

	// Statistics
	numInstances int     // Number of instances
	numErrors    float64 // Sum of error values
	errorRate    float64 // Error rate
	stdDev       float64 // Standard deviation

	// Reference values (minimum values since the last drift)
	minErrorRate float64
	minStdDev    float64

	// State
	warningDetected bool
	driftDetected   bool

	mu sync.RWMutex
}

// DriftDetectionResult represents the result of drift detection
type DriftDetectionResult struct {
	WarningDetected bool    // Whether warning was detected
	DriftDetected   bool    // Whether drift was detected
	ErrorRate       float64 // Current error rate
	ConfidenceLevel float64 // (p+s) / (pmin+smin)
}

// NewDDM creates a new DDM instance
func NewDDM(options ...DDMOption) *DDM {
	ddm := &DDM{
		minNumInstances: 30,
		warningLevel:    2.0, // μ + 2σ
		outControlLevel: 3.0, // μ + 3σ
		minErrorRate:    math.Inf(1),
		minStdDev:       math.Inf(1),
	}
	for _, opt := range options {
		opt(ddm)
	}
	return ddm
}

// DDMOption is a DDM configuration option
type DDMOption func(*DDM)

// WithDDMMinNumInstances sets the minimum number of samples
func WithDDMMinNumInstances(n int) DDMOption {
	return func(ddm *DDM) {
		ddm.minNumInstances = n
	}
}

// WithDDMWarningLevel sets the warning level
func WithDDMWarningLevel(level float64) DDMOption {
	return func(ddm *DDM) {
		ddm.warningLevel = level
	}
}

// WithDDMOutControlLevel sets the out-of-control level
func WithDDMOutControlLevel(level float64) DDMOption {
	return func(ddm *DDM) {
		ddm.outControlLevel = level
	}
}

// Update feeds one error value (1 for a mistake, 0 for a correct prediction)
// and reports whether drift was detected.
func (ddm *DDM) Update(errValue float64) bool {
	return ddm.observe(errValue).DriftDetected
}

// Check updates the detector with a prediction outcome.
func (ddm *DDM) Check(correct bool) *DriftDetectionResult {
	if correct {
		return ddm.observe(0)
	}
	return ddm.observe(1)
}

func (ddm *DDM) observe(errValue float64) *DriftDetectionResult {
	ddm.mu.Lock()
	defer ddm.mu.Unlock()

	ddm.numInstances++
	ddm.numErrors += errValue
	ddm.errorRate = ddm.numErrors / float64(ddm.numInstances)
	ddm.stdDev = math.Sqrt(ddm.errorRate * (1.0 - ddm.errorRate) / float64(ddm.numInstances))

	result := &DriftDetectionResult{ErrorRate: ddm.errorRate}
	if ddm.numInstances < ddm.minNumInstances {
		return result
	}

	// 基準値の更新（最小エラー率とその時の標準偏差）
	currentLevel := ddm.errorRate + ddm.stdDev
	if currentLevel <= ddm.minErrorRate+ddm.minStdDev {
		ddm.minErrorRate = ddm.errorRate
		ddm.minStdDev = ddm.stdDev
	}

	if ref := ddm.minErrorRate + ddm.minStdDev; ref > 0 {
		result.ConfidenceLevel = currentLevel / ref
	} else {
		result.ConfidenceLevel = 1.0
	}

	// ドリフトレベルの検出
	if currentLevel > ddm.minErrorRate+ddm.outControlLevel*ddm.minStdDev {
		result.DriftDetected = true
		result.WarningDetected = true
		ddm.restart()
		ddm.driftDetected = true
		return result
	}
	ddm.driftDetected = false

	// 警告レベルの検出
	ddm.warningDetected = currentLevel > ddm.minErrorRate+ddm.warningLevel*ddm.minStdDev
	result.WarningDetected = ddm.warningDetected
	return result
}

// InWarning reports whether the last update fell in the warning zone.
func (ddm *DDM) InWarning() bool {
	ddm.mu.RLock()
	defer ddm.mu.RUnlock()
	return ddm.warningDetected
}

// Estimate returns the current error rate.
func (ddm *DDM) Estimate() float64 {
	ddm.mu.RLock()
	defer ddm.mu.RUnlock()
	return ddm.errorRate
}

// Width returns the number of instances seen since the last drift.
func (ddm *DDM) Width() int {
	ddm.mu.RLock()
	defer ddm.mu.RUnlock()
	return ddm.numInstances
}

// Reset はドリフト検出器をリセット
func (ddm *DDM) Reset() {
	ddm.mu.Lock()
	defer ddm.mu.Unlock()
	ddm.restart()
	ddm.driftDetected = false
}

// restart clears the statistics after a drift. Callers hold the lock.
func (ddm *DDM) restart() {
	ddm.numInstances = 0
	ddm.numErrors = 0
	ddm.errorRate = 0
	ddm.stdDev = 0
	ddm.minErrorRate = math.Inf(1)
	ddm.minStdDev = math.Inf(1)
	ddm.warningDetected = false
}

// Clone returns a deep copy.
func (ddm *DDM) Clone() Estimator {
	ddm.mu.RLock()
	defer ddm.mu.RUnlock()
	return &DDM{
		minNumInstances: ddm.minNumInstances,
		warningLevel:    ddm.warningLevel,
		outControlLevel: ddm.outControlLevel,
		numInstances:    ddm.numInstances,
		numErrors:       ddm.numErrors,
		errorRate:       ddm.errorRate,
		stdDev:          ddm.stdDev,
		minErrorRate:    ddm.minErrorRate,
		minStdDev:       ddm.minStdDev,
		warningDetected: ddm.warningDetected,
		driftDetected:   ddm.driftDetected,
	}
}

// GetStatistics は現在の統計情報を返す
func (ddm *DDM) GetStatistics() DDMStatistics {
	ddm.mu.RLock()
	defer ddm.mu.RUnlock()
	return DDMStatistics{
		NumInstances:    ddm.numInstances,
		NumErrors:       ddm.numErrors,
		ErrorRate:       ddm.errorRate,
		StdDev:          ddm.stdDev,
		MinErrorRate:    ddm.minErrorRate,
		MinStdDev:       ddm.minStdDev,
		WarningDetected: ddm.warningDetected,
		DriftDetected:   ddm.driftDetected,
	}
}

// DDMStatistics はDDMの統計情報
type DDMStatistics struct {
	NumInstances    int     // サンプル数
	NumErrors       float64 // エラー値の合計
	ErrorRate       float64 // エラー率
	StdDev          float64 // 標準偏差
	MinErrorRate    float64 // 最小エラー率
	MinStdDev       float64 // 最小標準偏差
	WarningDetected bool    // 警告検出フラグ
	DriftDetected   bool    // ドリフト検出フラグ
}
