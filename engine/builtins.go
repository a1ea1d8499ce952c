package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func (e *Engine) def(m *Module, name string, fn builtinFunc) *Function {
	f := &Function{Name: name, Module: m, builtin: fn}
	m.Set(name, f)
	return f
}

func (e *Engine) arity(name string, args []Value, lo, hi int) error {
	if len(args) < lo || (hi >= 0 && len(args) > hi) {
		return e.methodError(name, args)
	}
	return nil
}

func typeBindings() map[string]*DataType {
	return map[string]*DataType{
		"Any":            AnyType,
		"Number":         NumberType,
		"Real":           RealType,
		"Integer":        IntegerType,
		"Signed":         SignedType,
		"Unsigned":       UnsignedType,
		"AbstractFloat":  AbstractFloatType,
		"FloatingPoint":  AbstractFloatType,
		"AbstractString": AbstractStringType,
		"AbstractArray":  AbstractArrayType,
		"Function":       FunctionType,
		"Bool":           BoolType,
		"Int8":           Int8Type,
		"UInt8":          UInt8Type,
		"Int16":          Int16Type,
		"UInt16":         UInt16Type,
		"Int32":          Int32Type,
		"UInt32":         UInt32Type,
		"Int64":          Int64Type,
		"UInt64":         UInt64Type,
		"Float32":        Float32Type,
		"Float64":        Float64Type,
		"String":         StringType,
		"SubString":      SubStringType,
		"Nothing":        NothingType,
		"Tuple":          TupleType,
		"Array":          ArrayType,
		"UnitRange":      RangeType,
		"StepRange":      StepRangeType,
		"Regex":          RegexType,
		"RegexMatch":     RegexMatchType,
		"Module":         ModuleType,
		"DataType":       DataTypeType,
		"VersionNumber":  VersionNumberType,

		// legacy spellings
		"Int":         Int64Type,
		"UInt":        UInt64Type,
		"Uint8":       UInt8Type,
		"Uint16":      UInt16Type,
		"Uint32":      UInt32Type,
		"Uint64":      UInt64Type,
		"Void":        NothingType,
		"ASCIIString": StringType,
		"UTF8String":  StringType,
		"ByteString":  StringType,
	}
}

func (e *Engine) installCore() {
	core := e.core
	for name, t := range typeBindings() {
		core.Set(name, t)
	}
	e.def(core, "typeof", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("typeof", args, 1, 1); err != nil {
			return nil, err
		}
		return TypeOf(args[0]), nil
	})
	e.def(core, "isa", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("isa", args, 2, 2); err != nil {
			return nil, err
		}
		t, ok := args[1].(*DataType)
		if !ok {
			return nil, e.typeError("isa", "Type", args[1])
		}
		return Isa(args[0], t), nil
	})
	e.def(core, "tuple", func(_ *callCtx, args []Value) (Value, error) {
		return Tuple(append([]Value(nil), args...)), nil
	})
	e.def(core, "include", func(c *callCtx, args []Value) (Value, error) {
		if err := e.arity("include", args, 1, 1); err != nil {
			return nil, err
		}
		path, ok := isStringish(args[0])
		if !ok {
			return nil, e.methodError("include", args)
		}
		return c.in.include(path, c.mod)
	})
}

func (e *Engine) installBase() {
	b := e.base
	for name, t := range typeBindings() {
		b.Set(name, t)
	}
	for _, name := range []string{"typeof", "isa", "tuple", "include"} {
		f, _ := e.core.Get(name)
		b.Set(name, f)
	}

	b.Set("nothing", Nothing{})
	b.Set("Inf", math.Inf(1))
	b.Set("NaN", math.NaN())
	b.Set("Inf32", float32(math.Inf(1)))
	b.Set("NaN32", float32(math.NaN()))
	b.Set("pi", math.Pi)
	b.Set("VERSION", &Struct{Type: VersionNumberType, Fields: []Value{
		int64(e.version.Major()), int64(e.version.Minor()), int64(e.version.Patch()),
	}})

	e.installReflection(b)
	e.installOperators(b)
	e.installMath(b)
	e.installArrays(b)
	e.installStrings(b)
	e.installLinAlg(b)
	e.installDates(b)
}

func (e *Engine) installReflection(b *Module) {
	e.def(b, "identity", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("identity", args, 1, 1); err != nil {
			return nil, err
		}
		return args[0], nil
	})
	e.def(b, "eltype", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("eltype", args, 1, 1); err != nil {
			return nil, err
		}
		switch x := args[0].(type) {
		case *Array:
			return x.Elem, nil
		case *Range:
			return Int64Type, nil
		case Tuple:
			return AnyType, nil
		case string, SubString:
			return StringType, nil
		case *DataType:
			if x.Elem() != nil {
				return x.Elem(), nil
			}
			return x, nil
		}
		return TypeOf(args[0]), nil
	})
	e.def(b, "convert", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("convert", args, 2, 2); err != nil {
			return nil, err
		}
		t, ok := args[0].(*DataType)
		if !ok {
			return nil, e.methodError("convert", args)
		}
		return e.convertTo(t, args[1])
	})
	e.def(b, "string", func(_ *callCtx, args []Value) (Value, error) {
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(display(a))
		}
		return sb.String(), nil
	})
	e.def(b, "repr", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("repr", args, 1, 1); err != nil {
			return nil, err
		}
		return show(args[0]), nil
	})
	e.def(b, "print", func(_ *callCtx, args []Value) (Value, error) {
		for _, a := range args {
			fmt.Fprint(e.out, display(a))
		}
		return Nothing{}, nil
	})
	e.def(b, "println", func(_ *callCtx, args []Value) (Value, error) {
		for _, a := range args {
			fmt.Fprint(e.out, display(a))
		}
		fmt.Fprintln(e.out)
		return Nothing{}, nil
	})
	e.def(b, "error", func(_ *callCtx, args []Value) (Value, error) {
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(display(a))
		}
		return nil, e.throw("ErrorException", "%s", sb.String())
	})
	e.def(b, "fieldnames", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("fieldnames", args, 1, 1); err != nil {
			return nil, err
		}
		t, ok := args[0].(*DataType)
		if !ok {
			t = TypeOf(args[0])
		}
		vals := make([]Value, len(t.Fields))
		for i, f := range t.Fields {
			vals[i] = f
		}
		return &Array{Elem: StringType, Dims: []int{len(vals)}, Data: vals}, nil
	})
	e.def(b, "typemax", func(_ *callCtx, args []Value) (Value, error) {
		return e.typeLimit("typemax", args, true)
	})
	e.def(b, "typemin", func(_ *callCtx, args []Value) (Value, error) {
		return e.typeLimit("typemin", args, false)
	})
	e.def(b, "parse", func(_ *callCtx, args []Value) (Value, error) {
		return e.parseNumber(args)
	})
	e.def(b, "isnothing", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("isnothing", args, 1, 1); err != nil {
			return nil, err
		}
		_, ok := args[0].(Nothing)
		return ok, nil
	})
}

func (e *Engine) typeLimit(name string, args []Value, max bool) (Value, error) {
	if err := e.arity(name, args, 1, 1); err != nil {
		return nil, err
	}
	t, ok := args[0].(*DataType)
	if !ok {
		return nil, e.methodError(name, args)
	}
	switch {
	case t == UInt64Type:
		if max {
			return uint64(math.MaxUint64), nil
		}
		return uint64(0), nil
	case isIntType(t):
		lo, hi := intRange(t)
		if max {
			return fromInt(t, hi), nil
		}
		return fromInt(t, lo), nil
	case isFloatType(t):
		if max {
			return fromFloat(t, math.Inf(1)), nil
		}
		return fromFloat(t, math.Inf(-1)), nil
	}
	return nil, e.methodError(name, args)
}

func (e *Engine) parseNumber(args []Value) (Value, error) {
	if err := e.arity("parse", args, 1, 2); err != nil {
		return nil, err
	}
	t := (*DataType)(nil)
	if len(args) == 2 {
		var ok bool
		if t, ok = args[0].(*DataType); !ok {
			return nil, e.methodError("parse", args)
		}
		args = args[1:]
	}
	s, ok := isStringish(args[0])
	if !ok {
		return nil, e.methodError("parse", args)
	}
	s = strings.TrimSpace(s)

	if t == nil || isIntType(t) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			if t == nil {
				return i, nil
			}
			return e.convertTo(t, i)
		}
		if t != nil {
			return nil, e.throw("ArgumentError", "invalid base 10 digit in %q", s)
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, e.throw("ArgumentError", "cannot parse %q as a number", s)
	}
	if t != nil {
		return e.convertTo(t, f)
	}
	return f, nil
}

// installOperators binds the infix operators as callable functions so the
// bridge can invoke them by name.
func (e *Engine) installOperators(b *Module) {
	for _, op := range []string{"+", "*"} {
		e.def(b, op, func(_ *callCtx, args []Value) (Value, error) {
			if op == "+" && len(args) == 1 {
				return args[0], nil
			}
			if err := e.arity(op, args, 2, -1); err != nil {
				return nil, err
			}
			acc := args[0]
			for _, a := range args[1:] {
				var err error
				if acc, err = e.binop(op, acc, a); err != nil {
					return nil, err
				}
			}
			return acc, nil
		})
	}
	e.def(b, "-", func(_ *callCtx, args []Value) (Value, error) {
		if len(args) == 1 {
			return e.negate(args[0])
		}
		if err := e.arity("-", args, 2, 2); err != nil {
			return nil, err
		}
		return e.binop("-", args[0], args[1])
	})
	for _, op := range []string{"/", "^", "%", "==", "!=", "===", "!==", "<", "<=", ">", ">=",
		".+", ".-", ".*", "./", ".^", ".==", ".!=", ".<", ".<=", ".>", ".>=", "<:"} {
		e.def(b, op, func(_ *callCtx, args []Value) (Value, error) {
			if err := e.arity(op, args, 2, 2); err != nil {
				return nil, err
			}
			return e.binop(op, args[0], args[1])
		})
	}
	e.def(b, "!", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("!", args, 1, 1); err != nil {
			return nil, err
		}
		v, ok := args[0].(bool)
		if !ok {
			return nil, e.methodError("!", args)
		}
		return !v, nil
	})
}
