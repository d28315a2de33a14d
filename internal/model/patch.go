package model

import "encoding/json"

// Optional はJSONの部分更新で使う3状態のフィールド。
//   - フィールドなし: Set=false
//   - null:          Set=true, Null=true
//   - 値あり:        Set=true, Null=false, Value=値
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some は値ありのOptionalを生成する。
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null はnull指定のOptionalを生成する。
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// UnmarshalJSON はjson.Unmarshalerを実装する。
// フィールドが存在する場合のみ呼ばれるため、呼ばれた時点でSetとなる。
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// Get は値が指定されている場合にその値とtrueを返す。未指定とnullはfalse。
func (o Optional[T]) Get() (T, bool) {
	if !o.Set || o.Null {
		var zero T
		return zero, false
	}
	return o.Value, true
}
