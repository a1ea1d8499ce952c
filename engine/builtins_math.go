package engine

import "math"

// elementwise applies fn to a scalar, or to each element of an array or
// range.
func (e *Engine) elementwise(v Value, fn func(Value) (Value, error)) (Value, error) {
	a, ok := arrayLike(v)
	if !ok {
		return fn(v)
	}
	out := make([]Value, len(a.Data))
	for i, el := range a.Data {
		r, err := fn(el)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return &Array{Elem: inferElem(out, a.Elem), Dims: append([]int(nil), a.Dims...), Data: out}, nil
}

func (e *Engine) floatFunc(b *Module, name string, f func(float64) float64, domain func(float64) bool, domainMsg string) {
	e.def(b, name, func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		return e.elementwise(args[0], func(v Value) (Value, error) {
			x, ok := toFloat(v)
			if !ok {
				return nil, e.methodError(name, []Value{v})
			}
			if domain != nil && !domain(x) {
				return nil, e.throw("DomainError", "%s", domainMsg)
			}
			if TypeOf(v) == Float32Type {
				return float32(f(x)), nil
			}
			return f(x), nil
		})
	})
}

func (e *Engine) installMath(b *Module) {
	nonNeg := func(x float64) bool { return x >= 0 || math.IsNaN(x) }
	e.floatFunc(b, "sqrt", math.Sqrt, nonNeg,
		"sqrt will only return a complex result if called with a complex argument.")
	e.floatFunc(b, "log", math.Log, nonNeg,
		"log will only return a complex result if called with a complex argument.")
	e.floatFunc(b, "log2", math.Log2, nonNeg,
		"log2 will only return a complex result if called with a complex argument.")
	e.floatFunc(b, "log10", math.Log10, nonNeg,
		"log10 will only return a complex result if called with a complex argument.")
	e.floatFunc(b, "exp", math.Exp, nil, "")
	e.floatFunc(b, "sin", math.Sin, nil, "")
	e.floatFunc(b, "cos", math.Cos, nil, "")
	e.floatFunc(b, "tan", math.Tan, nil, "")
	e.floatFunc(b, "atan", math.Atan, nil, "")

	e.roundFunc(b, "floor", math.Floor)
	e.roundFunc(b, "ceil", math.Ceil)
	e.roundFunc(b, "round", math.RoundToEven)
	e.roundFunc(b, "trunc", math.Trunc)

	e.def(b, "abs", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("abs", args, 1, 1); err != nil {
			return nil, err
		}
		return e.elementwise(args[0], func(v Value) (Value, error) {
			switch x := v.(type) {
			case float64:
				return math.Abs(x), nil
			case float32:
				return float32(math.Abs(float64(x))), nil
			case bool:
				return x, nil
			}
			t := TypeOf(v)
			if !isIntType(t) {
				return nil, e.methodError("abs", []Value{v})
			}
			if t.SubtypeOf(UnsignedType) || asInt64(v) >= 0 {
				return v, nil
			}
			return e.negate(v)
		})
	})
	e.def(b, "sign", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("sign", args, 1, 1); err != nil {
			return nil, err
		}
		return e.elementwise(args[0], func(v Value) (Value, error) {
			c, ok := numCompare(v, int64(0))
			t := TypeOf(v)
			if !isNumericType(t) {
				return nil, e.methodError("sign", []Value{v})
			}
			if !ok {
				return v, nil
			}
			if isFloatType(t) {
				return fromFloat(t, float64(c)), nil
			}
			return fromInt(t, int64(c)), nil
		})
	})

	e.def(b, "div", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("div", args, 2, 2); err != nil {
			return nil, err
		}
		return e.intDivide("div", args[0], args[1], false)
	})
	e.def(b, "fld", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("fld", args, 2, 2); err != nil {
			return nil, err
		}
		return e.intDivide("fld", args[0], args[1], true)
	})
	e.def(b, "mod", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("mod", args, 2, 2); err != nil {
			return nil, err
		}
		return e.modulo(args[0], args[1])
	})
	e.def(b, "rem", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("rem", args, 2, 2); err != nil {
			return nil, err
		}
		return e.binop("%", args[0], args[1])
	})

	e.def(b, "float", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("float", args, 1, 1); err != nil {
			return nil, err
		}
		return e.elementwise(args[0], func(v Value) (Value, error) {
			switch x := v.(type) {
			case float64, float32:
				return x, nil
			}
			f, ok := toFloat(v)
			if !ok {
				if s, isStr := isStringish(v); isStr {
					return e.parseNumber([]Value{Float64Type, s})
				}
				return nil, e.methodError("float", []Value{v})
			}
			return f, nil
		})
	})

	e.def(b, "max", func(_ *callCtx, args []Value) (Value, error) {
		return e.extremum("max", args, ">")
	})
	e.def(b, "min", func(_ *callCtx, args []Value) (Value, error) {
		return e.extremum("min", args, "<")
	})

	pred := func(name string, fn func(float64) bool) {
		e.def(b, name, func(_ *callCtx, args []Value) (Value, error) {
			if err := e.arity(name, args, 1, 1); err != nil {
				return nil, err
			}
			return e.elementwise(args[0], func(v Value) (Value, error) {
				x, ok := toFloat(v)
				if !ok {
					return nil, e.methodError(name, []Value{v})
				}
				return fn(x), nil
			})
		})
	}
	pred("isnan", math.IsNaN)
	pred("isinf", func(x float64) bool { return math.IsInf(x, 0) })
	pred("isfinite", func(x float64) bool { return !math.IsInf(x, 0) && !math.IsNaN(x) })

	e.def(b, "iseven", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("iseven", args, 1, 1); err != nil {
			return nil, err
		}
		n, ok := toInt(args[0])
		if !ok {
			return nil, e.methodError("iseven", args)
		}
		return n%2 == 0, nil
	})
	e.def(b, "isodd", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("isodd", args, 1, 1); err != nil {
			return nil, err
		}
		n, ok := toInt(args[0])
		if !ok {
			return nil, e.methodError("isodd", args)
		}
		return n%2 != 0, nil
	})
}

// roundFunc binds f(x) and f(T, x).
func (e *Engine) roundFunc(b *Module, name string, f func(float64) float64) {
	e.def(b, name, func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity(name, args, 1, 2); err != nil {
			return nil, err
		}
		var target *DataType
		if len(args) == 2 {
			t, ok := args[0].(*DataType)
			if !ok {
				return nil, e.methodError(name, args)
			}
			target = t
			args = args[1:]
		}
		return e.elementwise(args[0], func(v Value) (Value, error) {
			var r Value
			switch x := v.(type) {
			case float64:
				r = f(x)
			case float32:
				r = float32(f(float64(x)))
			default:
				if !isIntType(TypeOf(v)) {
					return nil, e.methodError(name, []Value{v})
				}
				r = v
			}
			if target != nil {
				return e.convertTo(target, r)
			}
			return r, nil
		})
	})
}

func (e *Engine) intDivide(name string, x, y Value, floor bool) (Value, error) {
	tx, ty := TypeOf(x), TypeOf(y)
	if !isNumericType(tx) || !isNumericType(ty) {
		return nil, e.methodError(name, []Value{x, y})
	}
	rt := promoteType(tx, ty)
	if isFloatType(rt) {
		q := asFloat64(x) / asFloat64(y)
		if floor {
			return fromFloat(rt, math.Floor(q)), nil
		}
		return fromFloat(rt, math.Trunc(q)), nil
	}
	if rt == BoolType {
		rt = Int64Type
	}
	if rt.SubtypeOf(UnsignedType) {
		d := asUint64(y)
		if d == 0 {
			return nil, e.throw("DivideError", "integer division error")
		}
		return fromUint(rt, asUint64(x)/d), nil
	}
	a, d := asInt64(x), asInt64(y)
	if d == 0 {
		return nil, e.throw("DivideError", "integer division error")
	}
	if a == math.MinInt64 && d == -1 {
		return nil, e.throw("DivideError", "integer division error")
	}
	q := a / d
	if floor && (a%d != 0) && ((a < 0) != (d < 0)) {
		q--
	}
	return fromInt(rt, q), nil
}

// modulo takes the sign of the divisor.
func (e *Engine) modulo(x, y Value) (Value, error) {
	tx, ty := TypeOf(x), TypeOf(y)
	if !isNumericType(tx) || !isNumericType(ty) {
		return nil, e.methodError("mod", []Value{x, y})
	}
	rt := promoteType(tx, ty)
	if isFloatType(rt) {
		a, d := asFloat64(x), asFloat64(y)
		r := math.Mod(a, d)
		if r != 0 && (r < 0) != (d < 0) {
			r += d
		}
		return fromFloat(rt, r), nil
	}
	if rt == BoolType {
		rt = Int64Type
	}
	if rt.SubtypeOf(UnsignedType) {
		d := asUint64(y)
		if d == 0 {
			return nil, e.throw("DivideError", "integer division error")
		}
		return fromUint(rt, asUint64(x)%d), nil
	}
	a, d := asInt64(x), asInt64(y)
	if d == 0 {
		return nil, e.throw("DivideError", "integer division error")
	}
	r := a % d
	if r != 0 && (r < 0) != (d < 0) {
		r += d
	}
	return fromInt(rt, r), nil
}

func (e *Engine) extremum(name string, args []Value, op string) (Value, error) {
	if err := e.arity(name, args, 2, -1); err != nil {
		return nil, err
	}
	best := args[0]
	for _, v := range args {
		if f, ok := toFloat(v); ok && math.IsNaN(f) {
			return v, nil
		}
		better, err := e.order(op, v, best)
		if err != nil {
			return nil, err
		}
		if better.(bool) {
			best = v
		}
	}
	return best, nil
}
