package service

import "encoding/json"

// Optional distinguishes an absent JSON key from an explicit null.
// Set is true whenever the key was present; Null marks an explicit null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		var zero T
		o.Null = true
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}
