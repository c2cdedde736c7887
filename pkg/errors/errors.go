// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// アンサンブル学習の各段階（設定検証、メンバー学習、並列比較）で発生する失敗を
// 構造化されたエラー型として表現し、cockroachdb/errors でスタックトレースを付与します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("scistream-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// ModelDriftWarning はアンサンブルメンバーでドリフトが検出された場合の警告です。
type ModelDriftWarning struct {
	Detector   string  // 使用したドリフト検出器（例: "DDM", "ADWIN"）
	Member     int     // 対象メンバーのプール内インデックス
	DriftScore float64 // ドリフトスコア（検出器の推定誤差）
	Action     string  // 実施したアクション（"reset", "promote", "replace"）
	Instance   int64   // 検出時のインスタンス番号
}

func (w *ModelDriftWarning) Error() string {
	return fmt.Sprintf("drift detected by %s on member %d at instance %d: score=%.4f, action=%s",
		w.Detector, w.Member, w.Instance, w.DriftScore, w.Action)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ModelDriftWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("detector", w.Detector).
		Int("member", w.Member).
		Float64("score", w.DriftScore).
		Str("action", w.Action).
		Int64("instance", w.Instance).
		Str("type", "ModelDriftWarning")
}

// NewModelDriftWarning は新しいModelDriftWarningを作成します。
func NewModelDriftWarning(detector string, member int, score float64, action string, instance int64) *ModelDriftWarning {
	return &ModelDriftWarning{
		Detector:   detector,
		Member:     member,
		DriftScore: score,
		Action:     action,
		Instance:   instance,
	}
}

// FallbackWarning は計算の失敗を最悪値で置き換えた場合の警告です。
// チャンク重み計算で投票が得られなかったメンバーに誤差 1 を加算する挙動などが該当します。
type FallbackWarning struct {
	Op       string
	Member   int
	Fallback float64
	Cause    error
}

func (w *FallbackWarning) Error() string {
	if w.Cause != nil {
		return fmt.Sprintf("%s: member %d fell back to %g: %v", w.Op, w.Member, w.Fallback, w.Cause)
	}
	return fmt.Sprintf("%s: member %d fell back to %g", w.Op, w.Member, w.Fallback)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *FallbackWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("operation", w.Op).
		Int("member", w.Member).
		Float64("fallback", w.Fallback).
		Str("type", "FallbackWarning")
	if w.Cause != nil {
		e.Str("cause", w.Cause.Error())
	}
}

// NewFallbackWarning は新しいFallbackWarningを作成します。
func NewFallbackWarning(op string, member int, fallback float64, cause error) *FallbackWarning {
	return &FallbackWarning{Op: op, Member: member, Fallback: fallback, Cause: cause}
}

// UndefinedMetricWarning は評価指標が計算できない場合に発生する警告です。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // この条件で返される値
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// NewUndefinedMetricWarning は新しいUndefinedMetricWarningを作成します。
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("scistream: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
// アンサンブルの設定エラーは初期化時にこの型で即座に返されます。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scistream: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("scistream: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// TrainingError はベース学習器の学習・予測が失敗した場合のエラーです。
// プールマネージャーが局所的に回復し、失敗回数として計上します。
type TrainingError struct {
	Op     string // "train" または "predict"
	Member int    // プール内インデックス
	ID     string // メンバーID
	Err    error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("scistream: %s failed on member %d (%s): %v", e.Op, e.Member, e.ID, e.Err)
}

func (e *TrainingError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *TrainingError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("member", e.Member).
		Str("member_id", e.ID).
		Str("type", "TrainingError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewTrainingError は新しいTrainingErrorを作成し、スタックトレースを付与します。
func NewTrainingError(op string, member int, id string, err error) error {
	return errors.WithStack(&TrainingError{Op: op, Member: member, ID: id, Err: err})
}

// FailureBudgetError は許容回数を超えてメンバーの失敗が蓄積した場合の致命的エラーです。
// ストリーム処理はこのエラーで停止しなければなりません。
type FailureBudgetError struct {
	Failures  int
	Tolerance int
	Err       error // 直近の失敗（multierrで結合）
}

func (e *FailureBudgetError) Error() string {
	return fmt.Sprintf("scistream: member failure budget exhausted: %d failures exceed tolerance %d: %v",
		e.Failures, e.Tolerance, e.Err)
}

func (e *FailureBudgetError) Unwrap() error {
	return e.Err
}

// Causes は結合された個々の失敗を返します。
func (e *FailureBudgetError) Causes() []error {
	return multierr.Errors(e.Err)
}

// NewFailureBudgetError は新しいFailureBudgetErrorを作成します。
func NewFailureBudgetError(failures, tolerance int, err error) error {
	return errors.WithStack(&FailureBudgetError{Failures: failures, Tolerance: tolerance, Err: err})
}

// ConcurrencyError は並列タスクが中断・タイムアウトした場合のエラーです。
// 部分的な結果は使用されず、呼び出し元へ致命的エラーとして伝播します。
type ConcurrencyError struct {
	Op  string
	Err error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("scistream: %s interrupted: %v", e.Op, e.Err)
}

func (e *ConcurrencyError) Unwrap() error {
	return e.Err
}

// NewConcurrencyError は新しいConcurrencyErrorを作成します。
func NewConcurrencyError(op string, err error) error {
	return errors.WithStack(&ConcurrencyError{Op: op, Err: err})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// Append は複数のエラーを一つに結合します。
func Append(left, right error) error {
	return multierr.Append(left, right)
}

// IsFatal はストリーム処理を停止すべきエラーかどうかを判定します。
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var budget *FailureBudgetError
	var conc *ConcurrencyError
	var validation *ValidationError
	return errors.As(err, &budget) || errors.As(err, &conc) || errors.As(err, &validation)
}

// ===========================================================================
//
//	数値計算のエラー型
//
// ===========================================================================

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Inf、オーバーフロー、アンダーフローなどを検出します。
type NumericalInstabilityError struct {
	Operation string                 // 発生した操作（例: "cascade_weight", "vote_combine"）
	Values    []float64              // 問題のある値
	Context   map[string]interface{} // デバッグ用の追加コンテキスト情報
	Iteration int                    // 発生したイテレーション番号
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("scistream: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
		Context:   make(map[string]interface{}),
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")

	// ErrPoolFull はプールが容量に達している場合のエラーです。
	ErrPoolFull = New("ensemble pool is full")
)
