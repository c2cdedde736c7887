// Package preprocessing provides online feature transformers that update
// their statistics one instance at a time.
package preprocessing

import (
	"fmt"
	"math"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/YuminosukeSato/scistream/core/model"
	scierrors "github.com/YuminosukeSato/scistream/pkg/errors"
)

// minScale 未満の標準偏差・レンジは1として扱う（ゼロ除算を避ける）
const minScale = 1e-8

// OnlineStandardScaler はインスタンス重み付きのWelford法で平均・分散を逐次更新し、
// 特徴量を平均0、標準偏差1に変換する
type OnlineStandardScaler struct {
	model.BaseEstimator
	mu sync.RWMutex

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool

	mean   []float64
	m2     []float64
	weight float64
}

// NewOnlineStandardScaler は新しいOnlineStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewOnlineStandardScaler(true, true)
//	_ = scaler.Learn(inst)
//	scaled, err := scaler.Transform(inst)
func NewOnlineStandardScaler(withMean, withStd bool) *OnlineStandardScaler {
	return &OnlineStandardScaler{WithMean: withMean, WithStd: withStd}
}

// NewOnlineStandardScalerDefault はデフォルト設定でOnlineStandardScalerを作成する
func NewOnlineStandardScalerDefault() *OnlineStandardScaler {
	return NewOnlineStandardScaler(true, true)
}

// Learn は1件のインスタンスで平均と二乗偏差和を更新する
func (s *OnlineStandardScaler) Learn(inst model.Instance) error {
	if err := scierrors.CheckNumericalStability("OnlineStandardScaler.Learn", inst.X, 0); err != nil {
		return err
	}
	w := inst.EffectiveWeight()
	if w <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mean == nil {
		s.mean = make([]float64, len(inst.X))
		s.m2 = make([]float64, len(inst.X))
	} else if len(inst.X) != len(s.mean) {
		return scierrors.NewDimensionError("OnlineStandardScaler.Learn", len(s.mean), len(inst.X), 1)
	}
	s.weight += w
	for j, x := range inst.X {
		delta := x - s.mean[j]
		s.mean[j] += delta * w / s.weight
		s.m2[j] += w * delta * (x - s.mean[j])
	}
	s.SetFitted()
	return nil
}

// Mean は各特徴量の現在の平均値を返す
func (s *OnlineStandardScaler) Mean() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]float64(nil), s.mean...)
}

// Scale は各特徴量の現在の標準偏差を返す（母分散ベース、ほぼ0の場合は1）
func (s *OnlineStandardScaler) Scale() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scale()
}

func (s *OnlineStandardScaler) scale() []float64 {
	out := make([]float64, len(s.m2))
	for j, m2 := range s.m2 {
		out[j] = math.Sqrt(scierrors.SafeDivide(m2, s.weight))
		if out[j] < minScale {
			out[j] = 1
		}
	}
	return out
}

// Transform は現在の統計量でインスタンスを標準化する
func (s *OnlineStandardScaler) Transform(inst model.Instance) (model.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.IsFitted() {
		return inst, errors.WithStack(model.ErrNotFitted)
	}
	if len(inst.X) != len(s.mean) {
		return inst, scierrors.NewDimensionError("OnlineStandardScaler.Transform", len(s.mean), len(inst.X), 1)
	}
	scale := s.scale()
	x := make([]float64, len(inst.X))
	for j, v := range inst.X {
		if s.WithMean {
			v -= s.mean[j]
		}
		if s.WithStd {
			v /= scale[j]
		}
		x[j] = v
	}
	return model.Instance{X: x, Y: inst.Y, Weight: inst.Weight}, nil
}

// InverseTransform は標準化されたインスタンスを元のスケールに戻す
func (s *OnlineStandardScaler) InverseTransform(inst model.Instance) (model.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.IsFitted() {
		return inst, errors.WithStack(model.ErrNotFitted)
	}
	if len(inst.X) != len(s.mean) {
		return inst, scierrors.NewDimensionError("OnlineStandardScaler.InverseTransform", len(s.mean), len(inst.X), 1)
	}
	scale := s.scale()
	x := make([]float64, len(inst.X))
	for j, v := range inst.X {
		if s.WithStd {
			v *= scale[j]
		}
		if s.WithMean {
			v += s.mean[j]
		}
		x[j] = v
	}
	return model.Instance{X: x, Y: inst.Y, Weight: inst.Weight}, nil
}

// Reset は統計量を初期状態に戻す
func (s *OnlineStandardScaler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BaseEstimator.Reset()
	s.mean, s.m2, s.weight = nil, nil, 0
}

// Clone は同じ設定で統計量が空のスケーラーを返す
func (s *OnlineStandardScaler) Clone() model.Transformer {
	return NewOnlineStandardScaler(s.WithMean, s.WithStd)
}

// String はスケーラーの文字列表現を返す
func (s *OnlineStandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("OnlineStandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("OnlineStandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, len(s.mean))
}

// OnlineMinMaxScaler はこれまでに観測した最小値・最大値で特徴量を
// 指定した範囲（デフォルト[0,1]）にスケーリングする。範囲外の値はクリップしない
type OnlineMinMaxScaler struct {
	model.BaseEstimator
	mu sync.RWMutex

	// FeatureRange はスケーリング後の範囲 [min, max]
	FeatureRange [2]float64

	dataMin []float64
	dataMax []float64
}

// NewOnlineMinMaxScaler は新しいOnlineMinMaxScalerを作成する
func NewOnlineMinMaxScaler(featureRange [2]float64) (*OnlineMinMaxScaler, error) {
	if featureRange[0] >= featureRange[1] {
		return nil, scierrors.NewValidationError("feature_range", "minimum must be less than maximum", featureRange)
	}
	return &OnlineMinMaxScaler{FeatureRange: featureRange}, nil
}

// NewOnlineMinMaxScalerDefault はデフォルト設定([0,1]範囲)でOnlineMinMaxScalerを作成する
func NewOnlineMinMaxScalerDefault() *OnlineMinMaxScaler {
	return &OnlineMinMaxScaler{FeatureRange: [2]float64{0, 1}}
}

// Learn は最小値・最大値を更新する
func (m *OnlineMinMaxScaler) Learn(inst model.Instance) error {
	if err := scierrors.CheckNumericalStability("OnlineMinMaxScaler.Learn", inst.X, 0); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dataMin == nil {
		m.dataMin = append([]float64(nil), inst.X...)
		m.dataMax = append([]float64(nil), inst.X...)
		m.SetFitted()
		return nil
	}
	if len(inst.X) != len(m.dataMin) {
		return scierrors.NewDimensionError("OnlineMinMaxScaler.Learn", len(m.dataMin), len(inst.X), 1)
	}
	for j, x := range inst.X {
		m.dataMin[j] = math.Min(m.dataMin[j], x)
		m.dataMax[j] = math.Max(m.dataMax[j], x)
	}
	return nil
}

// Transform は現在の最小値・最大値でスケーリングする
func (m *OnlineMinMaxScaler) Transform(inst model.Instance) (model.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.IsFitted() {
		return inst, errors.WithStack(model.ErrNotFitted)
	}
	if len(inst.X) != len(m.dataMin) {
		return inst, scierrors.NewDimensionError("OnlineMinMaxScaler.Transform", len(m.dataMin), len(inst.X), 1)
	}
	featureRange := m.FeatureRange[1] - m.FeatureRange[0]
	x := make([]float64, len(inst.X))
	for j, v := range inst.X {
		span := m.dataMax[j] - m.dataMin[j]
		if span < minScale {
			// 定数特徴量は下限に写す
			span = 1
		}
		x[j] = (v-m.dataMin[j])/span*featureRange + m.FeatureRange[0]
	}
	return model.Instance{X: x, Y: inst.Y, Weight: inst.Weight}, nil
}

// Reset は統計量を初期状態に戻す
func (m *OnlineMinMaxScaler) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BaseEstimator.Reset()
	m.dataMin, m.dataMax = nil, nil
}

// Clone は同じ設定で統計量が空のスケーラーを返す
func (m *OnlineMinMaxScaler) Clone() model.Transformer {
	return &OnlineMinMaxScaler{FeatureRange: m.FeatureRange}
}

// String はスケーラーの文字列表現を返す
func (m *OnlineMinMaxScaler) String() string {
	return fmt.Sprintf("OnlineMinMaxScaler(feature_range=[%.1f, %.1f])",
		m.FeatureRange[0], m.FeatureRange[1])
}
