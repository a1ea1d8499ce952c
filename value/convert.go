package value

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"time"
)

// FromGo converts a plain Go value into a host Value. It accepts nil, bool,
// all integer and float kinds, string, []byte, numeric slices (as buffers),
// []any and other slices (as arrays), time.Time, *regexp.Regexp, and Value
// itself.
func FromGo(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(x), nil
	case int8:
		return Int(x), nil
	case int16:
		return Int(x), nil
	case int32:
		return Int(x), nil
	case int64:
		return Int(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, fmt.Errorf("uint %d overflows int64", x)
		}
		return Int(x), nil
	case uint8:
		return Int(x), nil
	case uint16:
		return Int(x), nil
	case uint32:
		return Int(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("uint64 %d overflows int64", x)
		}
		return Int(x), nil
	case float32:
		return Float(x), nil
	case float64:
		return Float(x), nil
	case string:
		return String(x), nil
	case []byte:
		return Bytes(x), nil
	case []int8:
		return NewBuffer(x), nil
	case []int16:
		return NewBuffer(x), nil
	case []uint16:
		return NewBuffer(x), nil
	case []int32:
		return NewBuffer(x), nil
	case []uint32:
		return NewBuffer(x), nil
	case []float32:
		return NewBuffer(x), nil
	case []float64:
		return NewBuffer(x), nil
	case time.Time:
		return NewDate(x), nil
	case *regexp.Regexp:
		return Regex(x.String()), nil
	case []any:
		out := make(Array, len(x))
		for i, el := range x {
			hv, err := FromGo(el)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = hv
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make(Array, rv.Len())
		for i := range out {
			hv, err := FromGo(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = hv
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported Go type %T", v)
}

// MustFromGo is FromGo for literals known to convert.
func MustFromGo(v any) Value {
	hv, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return hv
}

// ToGo converts a Value into plain Go data: nil, bool, int64, float64,
// string, []any, the buffer's backing slice, time.Time, string pattern for
// regexes, and *Ref unchanged.
func ToGo(v Value) any {
	switch x := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(x)
	case Int:
		return int64(x)
	case Float:
		return float64(x)
	case String:
		return string(x)
	case Regex:
		return string(x)
	case Date:
		return x.Time()
	case *Buffer:
		return x.Data()
	case *Ref:
		return x
	case Array:
		out := make([]any, len(x))
		for i, el := range x {
			out[i] = ToGo(el)
		}
		return out
	}
	return nil
}

// Equal reports deep equality of two host values. Buffers compare by element
// type, dims and contents; floats compare with ==, so NaN never equals NaN.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Array:
		y := b.(Array)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Buffer:
		y := b.(*Buffer)
		if x.elem != y.elem || x.Len() != y.Len() {
			return false
		}
		xd, yd := x.Dims(), y.Dims()
		if len(xd) != len(yd) {
			return false
		}
		for i := range xd {
			if xd[i] != yd[i] {
				return false
			}
		}
		for i := 0; i < x.Len(); i++ {
			if x.Float(i) != y.Float(i) {
				return false
			}
		}
		return true
	case *Ref:
		y := b.(*Ref)
		return x.handle == y.handle && x.owner == y.owner
	}
	return a == b
}
