package model

import "encoding/json"

// Field is the three-state optional used by partial updates. A field absent
// from the request body leaves the stored value unchanged, an explicit JSON
// null clears it, and a concrete value replaces it. The zero Field means
// "absent", so patch structs need no pointers and no magic sentinel strings.
type Field[T any] struct {
	present bool
	null    bool
	value   T
}

// NewField returns a set field carrying value.
func NewField[T any](value T) Field[T] {
	return Field[T]{present: true, value: value}
}

// NullField returns an explicit-clear field.
func NullField[T any]() Field[T] {
	return Field[T]{present: true, null: true}
}

// Present reports whether the field appeared in the request at all.
func (f Field[T]) Present() bool { return f.present }

// Null reports whether the field was an explicit JSON null.
func (f Field[T]) Null() bool { return f.present && f.null }

// Value returns the carried value and whether one was set.
func (f Field[T]) Value() (T, bool) {
	if !f.present || f.null {
		var zero T
		return zero, false
	}
	return f.value, true
}

// Apply merges the field into current: value when set, zero T when cleared,
// current when absent.
func (f Field[T]) Apply(current T) T {
	if !f.present {
		return current
	}
	if f.null {
		var zero T
		return zero
	}
	return f.value
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.present = true
	if string(data) == "null" {
		f.null = true
		return nil
	}
	return json.Unmarshal(data, &f.value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.present || f.null {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}
