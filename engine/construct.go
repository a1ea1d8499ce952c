package engine

import (
	"math"
	"time"
)

// construct calls a type as a function.
func (e *Engine) construct(t *DataType, args []Value) (Value, error) {
	switch {
	case t.IsComposite() || t == VersionNumberType:
		if len(args) != len(t.Fields) {
			return nil, e.methodError(t.Name, args)
		}
		return &Struct{Type: t, Fields: append([]Value(nil), args...)}, nil

	case isNumericType(t):
		if len(args) != 1 {
			return nil, e.methodError(t.Name, args)
		}
		return e.convertTo(t, args[0])

	case t == StringType || t == AbstractStringType:
		s := ""
		for _, a := range args {
			s += display(a)
		}
		return s, nil

	case t == ArrayType:
		// Array(T, dims...)
		if len(args) == 0 {
			return nil, e.methodError(t.Name, args)
		}
		elem, ok := args[0].(*DataType)
		if !ok {
			return nil, e.methodError(t.Name, args)
		}
		dims, err := e.dimsOf("Array", args[1:])
		if err != nil {
			return nil, err
		}
		return NewArray(elem, dims...), nil

	case t.Elem() != nil:
		// Array{T,N}(dims...)
		dims, err := e.dimsOf(t.Name, args)
		if err != nil {
			return nil, err
		}
		if len(dims) != t.NDims() {
			return nil, e.methodError(t.Name, args)
		}
		return NewArray(t.Elem(), dims...), nil

	case t == DateTimeType:
		return e.newDateTime(args)

	case t == RegexType:
		if len(args) != 1 {
			return nil, e.methodError(t.Name, args)
		}
		p, ok := isStringish(args[0])
		if !ok {
			return nil, e.methodError(t.Name, args)
		}
		re, err := NewRegex(p)
		if err != nil {
			return nil, e.throw("ErrorException", "invalid regex %q: %v", p, err)
		}
		return re, nil

	case t == TupleType:
		return Tuple(append([]Value(nil), args...)), nil
	}
	return nil, e.methodError(t.Name, args)
}

func (e *Engine) dimsOf(fn string, args []Value) ([]int, error) {
	// A single tuple argument is also accepted: zeros((2, 3)).
	if len(args) == 1 {
		if tup, ok := args[0].(Tuple); ok {
			args = tup
		}
	}
	dims := make([]int, len(args))
	for i, a := range args {
		n, ok := toInt(a)
		if !ok {
			return nil, e.methodError(fn, args)
		}
		if n < 0 {
			return nil, e.throw("ArgumentError", "invalid Array dimensions")
		}
		dims[i] = int(n)
	}
	return dims, nil
}

func (e *Engine) newDateTime(args []Value) (Value, error) {
	if len(args) == 0 || len(args) > 7 {
		return nil, e.methodError("DateTime", args)
	}
	parts := [7]int{1, 1, 1, 0, 0, 0, 0}
	for i, a := range args {
		n, ok := toInt(a)
		if !ok {
			return nil, e.methodError("DateTime", args)
		}
		parts[i] = int(n)
	}
	if parts[1] < 1 || parts[1] > 12 {
		return nil, e.throw("ArgumentError", "Month: %d out of range (1:12)", parts[1])
	}
	t := time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5],
		parts[6]*int(time.Millisecond), time.UTC)
	return DateTime(t.UnixMilli()), nil
}

// convertTo converts v to t. Values already of type t (or of an abstract
// supertype target) pass through; numeric narrowing checks exactness.
func (e *Engine) convertTo(t *DataType, v Value) (Value, error) {
	vt := TypeOf(v)
	if vt == t || (t.Abstract && vt.SubtypeOf(t)) {
		return v, nil
	}
	if isNumericType(t) && isNumericType(vt) {
		return e.convertNumber(t, v)
	}
	switch t {
	case StringType:
		if s, ok := isStringish(v); ok {
			return s, nil
		}
	case AnyType:
		return v, nil
	}
	return nil, e.throw("MethodError", "Cannot `convert` an object of type %s to an object of type %s", vt.Name, t.Name)
}

func (e *Engine) convertNumber(t *DataType, v Value) (Value, error) {
	switch {
	case isFloatType(t):
		if u, ok := v.(uint64); ok {
			return fromFloat(t, float64(u)), nil
		}
		return fromFloat(t, asFloat64(v)), nil

	case t == BoolType:
		f := asFloat64(v)
		if f != 0 && f != 1 {
			return nil, e.inexact(t, v)
		}
		return f == 1, nil
	}

	vt := TypeOf(v)
	if isFloatType(vt) {
		f := asFloat64(v)
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, e.inexact(t, v)
		}
		if t == UInt64Type {
			if f < 0 || f >= 18446744073709551616.0 {
				return nil, e.inexact(t, v)
			}
			return uint64(f), nil
		}
		if f < -9223372036854775808.0 || f >= 9223372036854775808.0 {
			return nil, e.inexact(t, v)
		}
		return e.narrow(t, int64(f), v)
	}
	if vt == UInt64Type {
		u := asUint64(v)
		if t == UInt64Type {
			return u, nil
		}
		if u > math.MaxInt64 {
			return nil, e.inexact(t, v)
		}
		return e.narrow(t, int64(u), v)
	}
	return e.narrow(t, asInt64(v), v)
}

// narrow range-checks i against the integer type t.
func (e *Engine) narrow(t *DataType, i int64, orig Value) (Value, error) {
	lo, hi := intRange(t)
	if t == UInt64Type {
		if i < 0 {
			return nil, e.inexact(t, orig)
		}
		return uint64(i), nil
	}
	if i < lo || i > hi {
		return nil, e.inexact(t, orig)
	}
	return fromInt(t, i), nil
}

func intRange(t *DataType) (lo, hi int64) {
	switch t {
	case Int8Type:
		return math.MinInt8, math.MaxInt8
	case UInt8Type:
		return 0, math.MaxUint8
	case Int16Type:
		return math.MinInt16, math.MaxInt16
	case UInt16Type:
		return 0, math.MaxUint16
	case Int32Type:
		return math.MinInt32, math.MaxInt32
	case UInt32Type:
		return 0, math.MaxUint32
	case BoolType:
		return 0, 1
	}
	return math.MinInt64, math.MaxInt64
}

func (e *Engine) getfield(obj Value, name string) (Value, error) {
	switch x := obj.(type) {
	case *Module:
		v, ok := x.Lookup(name)
		if !ok {
			return nil, e.undefVar(name)
		}
		return v, nil
	case *Struct:
		if v, ok := x.Field(name); ok {
			return v, nil
		}
	case *RegexMatch:
		switch name {
		case "match":
			return x.Match, nil
		case "captures":
			return &Array{Elem: AnyType, Dims: []int{len(x.Captures)}, Data: append([]Value(nil), x.Captures...)}, nil
		case "offset":
			return int64(x.Offset), nil
		}
	case *Regex:
		if name == "pattern" {
			return x.Pattern, nil
		}
	case *DataType:
		switch name {
		case "name":
			return x.Name, nil
		case "super":
			if x.Super == nil {
				return AnyType, nil
			}
			return x.Super, nil
		}
	case *Range:
		switch name {
		case "start":
			return x.Start, nil
		case "step":
			return x.Step, nil
		case "stop":
			return x.Stop, nil
		}
	}
	return nil, e.throw("ErrorException", "type %s has no field %s", TypeOf(obj).Name, name)
}

func (e *Engine) setfield(obj Value, name string, v Value) error {
	s, ok := obj.(*Struct)
	if !ok {
		return e.throw("ErrorException", "type %s has no field %s", TypeOf(obj).Name, name)
	}
	if !s.Type.Mutable {
		return e.throw("ErrorException", "type %s is immutable", s.Type.Name)
	}
	for i, f := range s.Type.Fields {
		if f == name {
			s.Fields[i] = v
			return nil
		}
	}
	return e.throw("ErrorException", "type %s has no field %s", s.Type.Name, name)
}
