package engine

import "math"

// toInt accepts integer values of any width except Bool.
func toInt(v Value) (int64, bool) {
	switch x := v.(type) {
	case int8:
		return int64(x), true
	case uint8:
		return int64(x), true
	case int16:
		return int64(x), true
	case uint16:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint32:
		return int64(x), true
	case int64:
		return x, true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	}
	return 0, false
}

// toFloat accepts any numeric value, Bool included.
func toFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

// asInt64 reinterprets any numeric value as a two's complement int64.
func asInt64(v Value) int64 {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case uint64:
		return int64(x)
	case float32:
		return int64(x)
	case float64:
		return int64(x)
	}
	i, _ := toInt(v)
	return i
}

func asUint64(v Value) uint64 {
	if u, ok := v.(uint64); ok {
		return u
	}
	return uint64(asInt64(v))
}

func asFloat64(v Value) float64 {
	f, _ := toFloat(v)
	return f
}

// fromInt narrows i to t, wrapping like fixed-width arithmetic.
func fromInt(t *DataType, i int64) Value {
	switch t {
	case BoolType:
		return i != 0
	case Int8Type:
		return int8(i)
	case UInt8Type:
		return uint8(i)
	case Int16Type:
		return int16(i)
	case UInt16Type:
		return uint16(i)
	case Int32Type:
		return int32(i)
	case UInt32Type:
		return uint32(i)
	case UInt64Type:
		return uint64(i)
	case Float32Type:
		return float32(i)
	case Float64Type:
		return float64(i)
	}
	return i
}

func fromUint(t *DataType, u uint64) Value {
	switch t {
	case UInt64Type:
		return u
	case Float32Type:
		return float32(u)
	case Float64Type:
		return float64(u)
	}
	return fromInt(t, int64(u))
}

func fromFloat(t *DataType, f float64) Value {
	if t == Float32Type {
		return float32(f)
	}
	return f
}

// numCompare orders two numbers exactly where both are integers. ok is
// false when either side is NaN.
func numCompare(a, b Value) (c int, ok bool) {
	ta, tb := TypeOf(a), TypeOf(b)
	switch {
	case isFloatType(ta) || isFloatType(tb):
		x, y := asFloat64(a), asFloat64(b)
		if math.IsNaN(x) || math.IsNaN(y) {
			return 0, false
		}
		return cmp3(x < y, x > y), true
	case ta.SubtypeOf(UnsignedType) && tb.SubtypeOf(UnsignedType):
		x, y := asUint64(a), asUint64(b)
		return cmp3(x < y, x > y), true
	case ta.SubtypeOf(UnsignedType):
		y := asInt64(b)
		if y < 0 {
			return 1, true
		}
		x := asUint64(a)
		return cmp3(x < uint64(y), x > uint64(y)), true
	case tb.SubtypeOf(UnsignedType):
		c, ok := numCompare(b, a)
		return -c, ok
	}
	x, y := asInt64(a), asInt64(b)
	return cmp3(x < y, x > y), true
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func isNumber(v Value) bool { return isNumericType(TypeOf(v)) }

func isStringish(v Value) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case SubString:
		return x.String(), true
	}
	return "", false
}
