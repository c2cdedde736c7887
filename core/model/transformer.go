package model

// Transformer はストリーム上で統計量を逐次更新する特徴量変換のインターフェース
type Transformer interface {
	// Learn は1件のインスタンスで統計量を更新する
	Learn(inst Instance) error

	// Transform は現在の統計量でインスタンスの特徴量を変換する。
	// 何も学習していない場合は ErrNotFitted を返す
	Transform(inst Instance) (Instance, error)

	Reset()
	Clone() Transformer
}
