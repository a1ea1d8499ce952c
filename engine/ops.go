package engine

import (
	"math"
	"strings"
)

func isComparison(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

// binop applies an infix operator. Dotted operators apply elementwise;
// plain + and - on arrays of equal shape do too, and * on two arrays is a
// matrix product.
func (e *Engine) binop(op string, x, y Value) (Value, error) {
	switch op {
	case "==":
		return valuesEqual(x, y), nil
	case "!=":
		return !valuesEqual(x, y), nil
	case "===":
		return identical(x, y), nil
	case "!==":
		return !identical(x, y), nil
	case "<", "<=", ">", ">=":
		return e.order(op, x, y)
	case "<:":
		a, aok := x.(*DataType)
		b, bok := y.(*DataType)
		if !aok || !bok {
			return nil, e.methodError("<:", []Value{x, y})
		}
		return a.SubtypeOf(b), nil
	}

	dotted := len(op) > 1 && op[0] == '.'
	base := op
	if dotted {
		base = op[1:]
	}
	xa, xok := arrayLike(x)
	ya, yok := arrayLike(y)
	if !xok && !yok {
		return e.scalarOp(base, x, y)
	}
	if !dotted {
		switch base {
		case "*":
			if xok && yok {
				return e.matmul(xa, ya)
			}
		case "/":
			if yok {
				return nil, e.methodError("/", []Value{x, y})
			}
		case "^":
			return nil, e.methodError("^", []Value{x, y})
		case "==", "!=", "<", "<=", ">", ">=":
			return nil, e.methodError(op, []Value{x, y})
		}
	}
	return e.broadcast(base, x, xa, xok, y, ya, yok)
}

func (e *Engine) scalarOp(op string, x, y Value) (Value, error) {
	switch op {
	case "==":
		return valuesEqual(x, y), nil
	case "!=":
		return !valuesEqual(x, y), nil
	case "<", "<=", ">", ">=":
		return e.order(op, x, y)
	}
	return e.arith(op, x, y)
}

func (e *Engine) broadcast(op string, x Value, xa *Array, xok bool, y Value, ya *Array, yok bool) (Value, error) {
	var dims []int
	var fallback *DataType
	switch {
	case xok && yok:
		if !sameDims(xa.Dims, ya.Dims) {
			return nil, e.throw("DimensionMismatch", "dimensions must match: a has dims %s, b has dims %s",
				formatDims(xa.Dims), formatDims(ya.Dims))
		}
		dims = xa.Dims
		fallback = promoteType(xa.Elem, ya.Elem)
	case xok:
		dims = xa.Dims
		fallback = promoteType(xa.Elem, TypeOf(y))
	default:
		dims = ya.Dims
		fallback = promoteType(TypeOf(x), ya.Elem)
	}
	switch {
	case isComparison(op):
		fallback = BoolType
	case op == "/":
		fallback = Float64Type
	}

	n := 1
	for _, d := range dims {
		n *= d
	}
	out := make([]Value, n)
	for i := range out {
		l, r := x, y
		if xok {
			l = xa.Data[i]
		}
		if yok {
			r = ya.Data[i]
		}
		v, err := e.scalarOp(op, l, r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return &Array{Elem: inferElem(out, fallback), Dims: append([]int(nil), dims...), Data: out}, nil
}

func (e *Engine) arith(op string, x, y Value) (Value, error) {
	tx, ty := TypeOf(x), TypeOf(y)
	if isNumericType(tx) && isNumericType(ty) {
		return e.numArith(op, x, y, tx, ty)
	}

	if a, ok := isStringish(x); ok {
		if b, ok := isStringish(y); ok && op == "*" {
			return a + b, nil
		}
		if n, ok := toInt(y); ok && op == "^" {
			if n < 0 {
				return nil, e.throw("ArgumentError", "can't repeat a string %d times", n)
			}
			return strings.Repeat(a, int(n)), nil
		}
	}

	if a, ok := x.(DateTime); ok {
		switch b := y.(type) {
		case DateTime:
			if op == "-" {
				return int64(a - b), nil
			}
		default:
			if ms, ok := toInt(b); ok {
				switch op {
				case "+":
					return a + DateTime(ms), nil
				case "-":
					return a - DateTime(ms), nil
				}
			}
		}
	}
	return nil, e.methodError(op, []Value{x, y})
}

func (e *Engine) numArith(op string, x, y Value, tx, ty *DataType) (Value, error) {
	rt := promoteType(tx, ty)
	if rt == BoolType {
		rt = Int64Type
	}
	switch op {
	case "/":
		ft := Float64Type
		if rt == Float32Type {
			ft = Float32Type
		}
		return fromFloat(ft, asFloat64(x)/asFloat64(y)), nil
	case "^":
		return e.power(x, y, rt)
	}

	switch {
	case isFloatType(rt):
		a, b := asFloat64(x), asFloat64(y)
		var r float64
		switch op {
		case "+":
			r = a + b
		case "-":
			r = a - b
		case "*":
			r = a * b
		case "%":
			r = math.Mod(a, b)
		default:
			return nil, e.methodError(op, []Value{x, y})
		}
		return fromFloat(rt, r), nil

	case rt.SubtypeOf(UnsignedType):
		a, b := asUint64(x), asUint64(y)
		var r uint64
		switch op {
		case "+":
			r = a + b
		case "-":
			r = a - b
		case "*":
			r = a * b
		case "%":
			if b == 0 {
				return nil, e.throw("DivideError", "integer division error")
			}
			r = a % b
		default:
			return nil, e.methodError(op, []Value{x, y})
		}
		return fromUint(rt, r), nil
	}

	a, b := asInt64(x), asInt64(y)
	var r int64
	switch op {
	case "+":
		r = a + b
	case "-":
		r = a - b
	case "*":
		r = a * b
	case "%":
		if b == 0 {
			return nil, e.throw("DivideError", "integer division error")
		}
		r = a % b
	default:
		return nil, e.methodError(op, []Value{x, y})
	}
	return fromInt(rt, r), nil
}

func (e *Engine) power(x, y Value, rt *DataType) (Value, error) {
	_, xi := toInt(x)
	_, yi := toInt(y)
	if _, ok := x.(bool); ok {
		xi = true
	}
	if !xi || !yi {
		ft := Float64Type
		if rt == Float32Type {
			ft = Float32Type
		}
		base, exp := asFloat64(x), asFloat64(y)
		if base < 0 && exp != math.Trunc(exp) {
			return nil, e.throw("DomainError", "%s ^ %s", show(x), show(y))
		}
		return fromFloat(ft, math.Pow(base, exp)), nil
	}

	rt = TypeOf(x)
	if rt == BoolType {
		rt = Int64Type
	}
	base, n := asInt64(x), asInt64(y)
	if n < 0 {
		switch base {
		case 1:
			return fromInt(rt, 1), nil
		case -1:
			if n%2 == 0 {
				return fromInt(rt, 1), nil
			}
			return fromInt(rt, -1), nil
		}
		return nil, e.throw("DomainError", "cannot raise an integer %d to a negative power %d", base, n)
	}
	r := int64(1)
	for n > 0 {
		if n&1 == 1 {
			r *= base
		}
		base *= base
		n >>= 1
	}
	if rt.SubtypeOf(UnsignedType) {
		return fromUint(rt, uint64(r)), nil
	}
	return fromInt(rt, r), nil
}

func (e *Engine) negate(v Value) (Value, error) {
	switch x := v.(type) {
	case bool:
		return -asInt64(x), nil
	case float32:
		return -x, nil
	case float64:
		return -x, nil
	case *Array, *Range:
		a, _ := arrayLike(x)
		out := make([]Value, len(a.Data))
		for i, el := range a.Data {
			n, err := e.negate(el)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return &Array{Elem: inferElem(out, a.Elem), Dims: append([]int(nil), a.Dims...), Data: out}, nil
	}
	t := TypeOf(v)
	switch {
	case t.SubtypeOf(UnsignedType):
		return fromUint(t, -asUint64(v)), nil
	case isIntType(t):
		return fromInt(t, -asInt64(v)), nil
	}
	return nil, e.methodError("-", []Value{v})
}

func (e *Engine) order(op string, x, y Value) (Value, error) {
	var c int
	switch {
	case isNumber(x) && isNumber(y):
		var ok bool
		if c, ok = numCompare(x, y); !ok {
			return false, nil
		}
	default:
		a, aok := isStringish(x)
		b, bok := isStringish(y)
		if aok && bok {
			c = strings.Compare(a, b)
			break
		}
		da, aok := x.(DateTime)
		db, bok := y.(DateTime)
		if aok && bok {
			c = cmp3(da < db, da > db)
			break
		}
		return nil, e.methodError("isless", []Value{x, y})
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	}
	return c >= 0, nil
}

// valuesEqual is ==: numbers compare by value across types, strings by
// content, containers elementwise.
func valuesEqual(x, y Value) bool {
	if isNumber(x) && isNumber(y) {
		c, ok := numCompare(x, y)
		return ok && c == 0
	}
	if a, ok := isStringish(x); ok {
		b, ok := isStringish(y)
		return ok && a == b
	}
	switch a := x.(type) {
	case Tuple:
		b, ok := y.(Tuple)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !valuesEqual(a[i], b[i]) {
				return false
			}
		}
		return true
	case *Array, *Range:
		xa, _ := arrayLike(a)
		ya, ok := arrayLike(y)
		if !ok || !sameDims(xa.Dims, ya.Dims) {
			return false
		}
		for i := range xa.Data {
			if !valuesEqual(xa.Data[i], ya.Data[i]) {
				return false
			}
		}
		return true
	case *Regex:
		b, ok := y.(*Regex)
		return ok && a.Pattern == b.Pattern
	case *Struct:
		b, ok := y.(*Struct)
		if !ok || a.Type != b.Type {
			return false
		}
		if a.Type.Mutable {
			return a == b
		}
		for i := range a.Fields {
			if !valuesEqual(a.Fields[i], b.Fields[i]) {
				return false
			}
		}
		return true
	}
	return identical(x, y)
}

// identical is ===.
func identical(x, y Value) bool {
	switch a := x.(type) {
	case Tuple:
		b, ok := y.(Tuple)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !identical(a[i], b[i]) {
				return false
			}
		}
		return true
	case *Struct:
		b, ok := y.(*Struct)
		if !ok || a.Type != b.Type {
			return false
		}
		if a.Type.Mutable {
			return a == b
		}
		for i := range a.Fields {
			if !identical(a.Fields[i], b.Fields[i]) {
				return false
			}
		}
		return true
	}
	if TypeOf(x) != TypeOf(y) {
		return false
	}
	return x == y
}

func (e *Engine) matmul(a, b *Array) (Value, error) {
	if len(a.Dims) > 2 || len(b.Dims) > 2 {
		return nil, e.methodError("*", []Value{a, b})
	}
	m, k := a.Dims[0], 1
	if len(a.Dims) == 2 {
		k = a.Dims[1]
	}
	k2, n := b.Dims[0], 1
	if len(b.Dims) == 2 {
		n = b.Dims[1]
	}
	if k != k2 {
		return nil, e.throw("DimensionMismatch", "matrix A has dimensions (%d,%d), matrix B has dimensions (%d,%d)", m, k, k2, n)
	}

	rt := promoteType(a.Elem, b.Elem)
	if rt == BoolType {
		rt = Int64Type
	}
	out := make([]Value, m*n)
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			v, err := e.dotRowCol(a, b, rt, i, j, m, k)
			if err != nil {
				return nil, err
			}
			out[i+j*m] = v
		}
	}

	dims := []int{m, n}
	if len(b.Dims) == 1 {
		dims = []int{m}
	}
	if !isNumericType(rt) {
		rt = inferElem(out, AnyType)
	}
	return &Array{Elem: rt, Dims: dims, Data: out}, nil
}

func (e *Engine) dotRowCol(a, b *Array, rt *DataType, i, j, m, k int) (Value, error) {
	switch {
	case isFloatType(rt):
		var s float64
		for p := 0; p < k; p++ {
			s += asFloat64(a.Data[i+p*m]) * asFloat64(b.Data[p+j*k])
		}
		return fromFloat(rt, s), nil
	case rt.SubtypeOf(UnsignedType):
		var s uint64
		for p := 0; p < k; p++ {
			s += asUint64(a.Data[i+p*m]) * asUint64(b.Data[p+j*k])
		}
		return fromUint(rt, s), nil
	case isIntType(rt):
		var s int64
		for p := 0; p < k; p++ {
			s += asInt64(a.Data[i+p*m]) * asInt64(b.Data[p+j*k])
		}
		return fromInt(rt, s), nil
	}

	var acc Value = int64(0)
	for p := 0; p < k; p++ {
		prod, err := e.arith("*", a.Data[i+p*m], b.Data[p+j*k])
		if err != nil {
			return nil, err
		}
		if acc, err = e.arith("+", acc, prod); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (e *Engine) transpose(v Value) (Value, error) {
	if isNumber(v) {
		return v, nil
	}
	a, ok := arrayLike(v)
	if !ok {
		return nil, e.methodError("transpose", []Value{v})
	}
	switch len(a.Dims) {
	case 1:
		return &Array{Elem: a.Elem, Dims: []int{1, a.Dims[0]}, Data: append([]Value(nil), a.Data...)}, nil
	case 2:
		m, n := a.Dims[0], a.Dims[1]
		out := make([]Value, len(a.Data))
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				out[j+i*n] = a.Data[i+j*m]
			}
		}
		return &Array{Elem: a.Elem, Dims: []int{n, m}, Data: out}, nil
	}
	return nil, e.methodError("transpose", []Value{v})
}
