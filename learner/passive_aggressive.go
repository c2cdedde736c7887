package learner

import (
	"math"
	"sync"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// PassiveAggressiveClassifier は受動的攻撃的分類モデル（one-vs-rest）の逐次版です。
//
// クラスは到着したラベルに応じて動的に追加されます。投票はクラススコアの
// softmaxで、合計1の確率ベクトルになります。
type PassiveAggressiveClassifier struct {
	state *model.StateManager

	// ハイパーパラメータ
	C            float64 // 正則化パラメータ
	fitIntercept bool    // 切片を学習するか
	loss         string  // 損失関数: "hinge" (PA-I), "squared_hinge" (PA-II)

	// 学習パラメータ
	coef      [][]float64 // 重み係数（クラス数 x 特徴数）
	intercept []float64   // 切片（クラス数）
	t         int64       // 総ステップ数

	mu sync.RWMutex
}

// PassiveAggressiveRegressor は受動的攻撃的回帰モデル
type PassiveAggressiveRegressor struct {
	state *model.StateManager

	// ハイパーパラメータ
	C            float64 // 正則化パラメータ
	fitIntercept bool    // 切片を学習するか
	loss         string  // 損失関数: "epsilon_insensitive", "squared_epsilon_insensitive"
	epsilon      float64 // epsilon-insensitive損失のepsilon

	// 学習パラメータ
	coef      []float64
	intercept float64
	t         int64

	mu sync.RWMutex
}

// PassiveAggressiveOption は設定オプション
type PassiveAggressiveOption func(interface{})

// NewPassiveAggressiveClassifier は新しいPassiveAggressiveClassifierを作成
func NewPassiveAggressiveClassifier(options ...PassiveAggressiveOption) *PassiveAggressiveClassifier {
	pa := &PassiveAggressiveClassifier{
		state:        model.NewStateManager(),
		C:            1.0,
		fitIntercept: true,
		loss:         "hinge",
	}
	for _, opt := range options {
		opt(pa)
	}
	return pa
}

// NewPassiveAggressiveRegressor は新しいPassiveAggressiveRegressorを作成
func NewPassiveAggressiveRegressor(options ...PassiveAggressiveOption) *PassiveAggressiveRegressor {
	pa := &PassiveAggressiveRegressor{
		state:        model.NewStateManager(),
		C:            1.0,
		fitIntercept: true,
		loss:         "epsilon_insensitive",
		epsilon:      0.1,
	}
	for _, opt := range options {
		opt(pa)
	}
	return pa
}

// WithPAC は正則化パラメータを設定
func WithPAC(c float64) PassiveAggressiveOption {
	return func(pa interface{}) {
		switch p := pa.(type) {
		case *PassiveAggressiveRegressor:
			p.C = c
		case *PassiveAggressiveClassifier:
			p.C = c
		}
	}
}

// WithPAFitIntercept は切片学習の有無を設定
func WithPAFitIntercept(fit bool) PassiveAggressiveOption {
	return func(pa interface{}) {
		switch p := pa.(type) {
		case *PassiveAggressiveRegressor:
			p.fitIntercept = fit
		case *PassiveAggressiveClassifier:
			p.fitIntercept = fit
		}
	}
}

// WithPALoss は損失関数を設定
func WithPALoss(loss string) PassiveAggressiveOption {
	return func(pa interface{}) {
		switch p := pa.(type) {
		case *PassiveAggressiveRegressor:
			p.loss = loss
		case *PassiveAggressiveClassifier:
			p.loss = loss
		}
	}
}

// WithPAEpsilon sets the insensitivity margin of the regressor.
func WithPAEpsilon(eps float64) PassiveAggressiveOption {
	return func(pa interface{}) {
		if p, ok := pa.(*PassiveAggressiveRegressor); ok {
			p.epsilon = eps
		}
	}
}

// Name implements model.Named.
func (pa *PassiveAggressiveClassifier) Name() string { return "PassiveAggressiveClassifier" }

// Train updates the weights on one instance. The weight scales the aggressiveness C.
func (pa *PassiveAggressiveClassifier) Train(inst model.Instance, weight float64) error {
	if weight <= 0 {
		return nil
	}
	y := inst.Class()
	if y < 0 {
		return errors.NewValidationError("y", "classification label must be a non-negative integer", inst.Y)
	}
	if err := checkFinite("Train", inst.X); err != nil {
		return err
	}
	if err := pa.state.Observe(inst, weight); err != nil {
		return err
	}

	pa.mu.Lock()
	defer pa.mu.Unlock()

	for len(pa.coef) <= y {
		pa.coef = append(pa.coef, make([]float64, len(inst.X)))
		pa.intercept = append(pa.intercept, 0)
	}

	c := pa.C * weight
	norm := floats.Dot(inst.X, inst.X)
	if pa.fitIntercept {
		norm++
	}
	for k := range pa.coef {
		target := -1.0
		if k == y {
			target = 1.0
		}
		margin := target * pa.score(k, inst.X)
		if margin >= 1 {
			continue
		}
		hinge := 1 - margin
		var tau float64
		switch pa.loss {
		case "squared_hinge":
			tau = hinge / (norm + 1.0/(2.0*c))
		default:
			tau = math.Min(c, hinge/math.Max(norm, errors.Epsilon))
		}
		tau *= target
		for i, xi := range inst.X {
			pa.coef[k][i] += tau * xi
		}
		if pa.fitIntercept {
			pa.intercept[k] += tau
		}
	}
	pa.t++
	return nil
}

func (pa *PassiveAggressiveClassifier) score(k int, x []float64) float64 {
	return pa.intercept[k] + floats.Dot(pa.coef[k], x)
}

// Predict returns the softmax of the per-class scores. An untrained model
// returns an empty vote.
func (pa *PassiveAggressiveClassifier) Predict(inst model.Instance) ([]float64, error) {
	if !pa.state.IsFitted() {
		return nil, nil
	}
	if err := pa.state.CheckWidth(inst); err != nil {
		return nil, err
	}
	pa.mu.RLock()
	defer pa.mu.RUnlock()

	if len(pa.coef) == 1 {
		// Only one class seen so far.
		return []float64{1}, nil
	}
	scores := make([]float64, len(pa.coef))
	for k := range pa.coef {
		scores[k] = pa.score(k, inst.X)
	}
	return errors.Softmax(scores), nil
}

// Reset forgets all learned weights.
func (pa *PassiveAggressiveClassifier) Reset() {
	pa.mu.Lock()
	defer pa.mu.Unlock()
	pa.coef = nil
	pa.intercept = nil
	pa.t = 0
	pa.state.Reset()
}

// Clone returns an untrained classifier with the same hyperparameters.
func (pa *PassiveAggressiveClassifier) Clone() model.Learner {
	return NewPassiveAggressiveClassifier(WithPAC(pa.C), WithPAFitIntercept(pa.fitIntercept), WithPALoss(pa.loss))
}

// Name implements model.Named.
func (pa *PassiveAggressiveRegressor) Name() string { return "PassiveAggressiveRegressor" }

// Train updates the weights on one instance. The weight scales C.
func (pa *PassiveAggressiveRegressor) Train(inst model.Instance, weight float64) error {
	if weight <= 0 {
		return nil
	}
	if err := checkFinite("Train", inst.X); err != nil {
		return err
	}
	if err := errors.CheckScalar("Train", inst.Y, 0); err != nil {
		return err
	}
	if err := pa.state.Observe(inst, weight); err != nil {
		return err
	}

	pa.mu.Lock()
	defer pa.mu.Unlock()

	if pa.coef == nil {
		pa.coef = make([]float64, len(inst.X))
	}
	pred := pa.intercept + floats.Dot(pa.coef, inst.X)
	diff := inst.Y - pred
	loss := math.Abs(diff) - pa.epsilon
	if loss > 0 {
		c := pa.C * weight
		norm := floats.Dot(inst.X, inst.X)
		if pa.fitIntercept {
			norm++
		}
		var tau float64
		switch pa.loss {
		case "squared_epsilon_insensitive":
			tau = loss / (norm + 1.0/(2.0*c))
		default:
			tau = math.Min(c, loss/math.Max(norm, errors.Epsilon))
		}
		if diff < 0 {
			tau = -tau
		}
		for i, xi := range inst.X {
			pa.coef[i] += tau * xi
		}
		if pa.fitIntercept {
			pa.intercept += tau
		}
	}
	pa.t++
	return nil
}

// Predict returns a single-element vote holding the regression estimate.
func (pa *PassiveAggressiveRegressor) Predict(inst model.Instance) ([]float64, error) {
	if !pa.state.IsFitted() {
		return nil, nil
	}
	if err := pa.state.CheckWidth(inst); err != nil {
		return nil, err
	}
	pa.mu.RLock()
	defer pa.mu.RUnlock()
	return []float64{pa.intercept + floats.Dot(pa.coef, inst.X)}, nil
}

// Reset forgets all learned weights.
func (pa *PassiveAggressiveRegressor) Reset() {
	pa.mu.Lock()
	defer pa.mu.Unlock()
	pa.coef = nil
	pa.intercept = 0
	pa.t = 0
	pa.state.Reset()
}

// Clone returns an untrained regressor with the same hyperparameters.
func (pa *PassiveAggressiveRegressor) Clone() model.Learner {
	return NewPassiveAggressiveRegressor(WithPAC(pa.C), WithPAFitIntercept(pa.fitIntercept),
		WithPALoss(pa.loss), WithPAEpsilon(pa.epsilon))
}

func checkFinite(op string, x []float64) error {
	return errors.CheckNumericalStability(op, x, 0)
}
