package storage

import (
	"math"
	"sort"
)

// Fields maps column names to values. Stored values are always one of
// nil, string, int64 or float64; Value converts other inputs.
type Fields map[string]any

// Row is a stored record with its primary key.
type Row struct {
	ID int64
	Fields
}

// Value converts v to the canonical stored representation. Nil pointers map
// to nil.
func Value(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, int64, float64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case []byte:
		return string(x)
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case *int:
		if x == nil {
			return nil
		}
		return int64(*x)
	case *int64:
		if x == nil {
			return nil
		}
		return *x
	case *float64:
		if x == nil {
			return nil
		}
		return *x
	default:
		return x
	}
}

// Normalized returns a copy of f with every value passed through Value.
func (f Fields) Normalized() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = Value(v)
	}
	return out
}

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsNull reports whether key is absent or null.
func (f Fields) IsNull(key string) bool {
	v, ok := f[key]
	return !ok || v == nil
}

// String returns the string value of key.
func (f Fields) String(key string) (string, bool) {
	switch v := f[key].(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

// StringPtr returns the value of key as a pointer, nil when null.
func (f Fields) StringPtr(key string) *string {
	if s, ok := f.String(key); ok {
		return &s
	}
	return nil
}

// Int returns the integer value of key. Whole floats are accepted.
func (f Fields) Int(key string) (int64, bool) {
	switch v := f[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		if v == math.Trunc(v) {
			return int64(v), true
		}
	}
	return 0, false
}

// IntPtr returns the value of key as an *int, nil when null.
func (f Fields) IntPtr(key string) *int {
	if n, ok := f.Int(key); ok {
		v := int(n)
		return &v
	}
	return nil
}

// Float returns the numeric value of key.
func (f Fields) Float(key string) (float64, bool) {
	switch v := f[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Equal reports whether the stored value v equals want after Value.
func Equal(v, want any) bool {
	v, want = Value(v), Value(want)
	if v == nil || want == nil {
		return v == nil && want == nil
	}
	switch a := v.(type) {
	case int64:
		if b, ok := want.(float64); ok {
			return float64(a) == b
		}
	case float64:
		if b, ok := want.(int64); ok {
			return a == float64(b)
		}
	}
	return v == want
}
