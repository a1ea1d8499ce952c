package engine

import (
	"slices"
	"unicode/utf8"
)

func (e *Engine) elements(name string, v Value) ([]Value, *DataType, error) {
	switch x := v.(type) {
	case *Array:
		return x.Data, x.Elem, nil
	case *Range:
		return x.collect().Data, Int64Type, nil
	case Tuple:
		return x, inferElem(x, AnyType), nil
	}
	if isNumber(v) {
		return []Value{v}, TypeOf(v), nil
	}
	return nil, nil, e.methodError(name, []Value{v})
}

func (e *Engine) installArrays(b *Module) {
	e.def(b, "length", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("length", args, 1, 1); err != nil {
			return nil, err
		}
		switch x := args[0].(type) {
		case *Array:
			return int64(len(x.Data)), nil
		case *Range:
			return int64(x.Len()), nil
		case Tuple:
			return int64(len(x)), nil
		case string:
			return int64(utf8.RuneCountInString(x)), nil
		case SubString:
			return int64(utf8.RuneCountInString(x.String())), nil
		}
		if isNumber(args[0]) {
			return int64(1), nil
		}
		return nil, e.methodError("length", args)
	})
	e.def(b, "size", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("size", args, 1, 2); err != nil {
			return nil, err
		}
		var dims []int
		switch x := args[0].(type) {
		case *Array:
			dims = x.Dims
		case *Range:
			dims = []int{x.Len()}
		case Tuple:
			dims = []int{len(x)}
		default:
			if !isNumber(args[0]) {
				return nil, e.methodError("size", args)
			}
		}
		if len(args) == 2 {
			k, ok := toInt(args[1])
			if !ok || k < 1 {
				return nil, e.throw("ArgumentError", "dimension out of range")
			}
			if int(k) > len(dims) {
				return int64(1), nil
			}
			return int64(dims[k-1]), nil
		}
		out := make(Tuple, len(dims))
		for i, d := range dims {
			out[i] = int64(d)
		}
		return out, nil
	})
	e.def(b, "ndims", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("ndims", args, 1, 1); err != nil {
			return nil, err
		}
		switch x := args[0].(type) {
		case *Array:
			return int64(len(x.Dims)), nil
		case *Range:
			return int64(1), nil
		}
		if isNumber(args[0]) {
			return int64(0), nil
		}
		return nil, e.methodError("ndims", args)
	})

	e.def(b, "sum", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("sum", args, 1, 1); err != nil {
			return nil, err
		}
		return e.sum(args[0])
	})
	e.def(b, "prod", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("prod", args, 1, 1); err != nil {
			return nil, err
		}
		vals, elem, err := e.elements("prod", args[0])
		if err != nil {
			return nil, err
		}
		var acc Value = int64(1)
		if isFloatType(elem) {
			acc = fromFloat(elem, 1)
		}
		for _, v := range vals {
			if acc, err = e.arith("*", acc, v); err != nil {
				return nil, err
			}
		}
		return acc, nil
	})
	e.def(b, "maximum", func(_ *callCtx, args []Value) (Value, error) {
		return e.reduceExtremum("maximum", args, ">")
	})
	e.def(b, "minimum", func(_ *callCtx, args []Value) (Value, error) {
		return e.reduceExtremum("minimum", args, "<")
	})
	e.def(b, "mean", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("mean", args, 1, 1); err != nil {
			return nil, err
		}
		vals, _, err := e.elements("mean", args[0])
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			return nil, e.throw("ArgumentError", "mean of empty collection undefined")
		}
		s, err := e.sum(args[0])
		if err != nil {
			return nil, err
		}
		return e.arith("/", s, int64(len(vals)))
	})
	e.def(b, "cumsum", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("cumsum", args, 1, 1); err != nil {
			return nil, err
		}
		vals, elem, err := e.elements("cumsum", args[0])
		if err != nil {
			return nil, err
		}
		out := make([]Value, len(vals))
		var acc Value
		for i, v := range vals {
			if i == 0 {
				acc = v
			} else if acc, err = e.arith("+", acc, v); err != nil {
				return nil, err
			}
			out[i] = acc
		}
		return &Array{Elem: inferElem(out, elem), Dims: []int{len(out)}, Data: out}, nil
	})
	e.def(b, "any", func(_ *callCtx, args []Value) (Value, error) {
		return e.boolReduce("any", args, true)
	})
	e.def(b, "all", func(_ *callCtx, args []Value) (Value, error) {
		return e.boolReduce("all", args, false)
	})

	e.def(b, "reshape", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("reshape", args, 2, -1); err != nil {
			return nil, err
		}
		dims, err := e.dimsOf("reshape", args[1:])
		if err != nil {
			return nil, err
		}
		return e.reshape(args[0], dims)
	})
	e.def(b, "zeros", func(_ *callCtx, args []Value) (Value, error) {
		return e.filled("zeros", args, func(t *DataType) (Value, error) { return e.convertTo(t, int64(0)) })
	})
	e.def(b, "ones", func(_ *callCtx, args []Value) (Value, error) {
		return e.filled("ones", args, func(t *DataType) (Value, error) { return e.convertTo(t, int64(1)) })
	})
	e.def(b, "fill", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("fill", args, 1, -1); err != nil {
			return nil, err
		}
		dims, err := e.dimsOf("fill", args[1:])
		if err != nil {
			return nil, err
		}
		a := NewArray(TypeOf(args[0]), dims...)
		for i := range a.Data {
			a.Data[i] = args[0]
		}
		return a, nil
	})
	e.def(b, "eye", func(_ *callCtx, args []Value) (Value, error) {
		elem := Float64Type
		if len(args) > 0 {
			if t, ok := args[0].(*DataType); ok {
				elem = t
				args = args[1:]
			}
		}
		if err := e.arity("eye", args, 1, 2); err != nil {
			return nil, err
		}
		dims, err := e.dimsOf("eye", args)
		if err != nil {
			return nil, err
		}
		if len(dims) == 1 {
			dims = append(dims, dims[0])
		}
		one, err := e.convertTo(elem, int64(1))
		if err != nil {
			return nil, err
		}
		a := NewArray(elem, dims...)
		for i := 0; i < dims[0] && i < dims[1]; i++ {
			a.Data[i+i*dims[0]] = one
		}
		return a, nil
	})
	e.def(b, "linspace", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("linspace", args, 2, 3); err != nil {
			return nil, err
		}
		start, ok1 := toFloat(args[0])
		stop, ok2 := toFloat(args[1])
		n := int64(50)
		ok3 := true
		if len(args) == 3 {
			n, ok3 = toInt(args[2])
		}
		if !ok1 || !ok2 || !ok3 || n < 0 {
			return nil, e.methodError("linspace", args)
		}
		data := make([]Value, n)
		for i := range data {
			if n == 1 {
				data[i] = start
				continue
			}
			data[i] = start + (stop-start)*float64(i)/float64(n-1)
		}
		return &Array{Elem: Float64Type, Dims: []int{int(n)}, Data: data}, nil
	})

	e.def(b, "rand", func(_ *callCtx, args []Value) (Value, error) {
		return e.random("rand", args, e.rng.Float64)
	})
	e.def(b, "randn", func(_ *callCtx, args []Value) (Value, error) {
		return e.random("randn", args, e.rng.NormFloat64)
	})

	e.def(b, "collect", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("collect", args, 1, 1); err != nil {
			return nil, err
		}
		return e.collect(args[0])
	})
	e.def(b, "vec", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("vec", args, 1, 1); err != nil {
			return nil, err
		}
		a, ok := arrayLike(args[0])
		if !ok {
			return nil, e.methodError("vec", args)
		}
		return &Array{Elem: a.Elem, Dims: []int{len(a.Data)}, Data: a.Data}, nil
	})
	e.def(b, "copy", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("copy", args, 1, 1); err != nil {
			return nil, err
		}
		switch x := args[0].(type) {
		case *Array:
			return x.clone(), nil
		case *Struct:
			return &Struct{Type: x.Type, Fields: slices.Clone(x.Fields)}, nil
		}
		return args[0], nil
	})

	e.def(b, "push!", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("push!", args, 1, -1); err != nil {
			return nil, err
		}
		a, err := e.vector("push!", args[0])
		if err != nil {
			return nil, err
		}
		for _, v := range args[1:] {
			c, err := e.convertTo(a.Elem, v)
			if err != nil {
				return nil, err
			}
			a.Data = append(a.Data, c)
		}
		a.Dims[0] = len(a.Data)
		return a, nil
	})
	e.def(b, "append!", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("append!", args, 2, 2); err != nil {
			return nil, err
		}
		a, err := e.vector("append!", args[0])
		if err != nil {
			return nil, err
		}
		err = e.each(args[1], func(v Value) error {
			c, err := e.convertTo(a.Elem, v)
			if err != nil {
				return err
			}
			a.Data = append(a.Data, c)
			return nil
		})
		if err != nil {
			return nil, err
		}
		a.Dims[0] = len(a.Data)
		return a, nil
	})
	e.def(b, "pop!", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("pop!", args, 1, 1); err != nil {
			return nil, err
		}
		a, err := e.vector("pop!", args[0])
		if err != nil {
			return nil, err
		}
		if len(a.Data) == 0 {
			return nil, e.throw("ArgumentError", "array must be non-empty")
		}
		v := a.Data[len(a.Data)-1]
		a.Data = a.Data[:len(a.Data)-1]
		a.Dims[0] = len(a.Data)
		return v, nil
	})

	e.def(b, "getindex", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("getindex", args, 1, -1); err != nil {
			return nil, err
		}
		return e.getindex(args[0], args[1:])
	})
	e.def(b, "setindex!", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("setindex!", args, 3, -1); err != nil {
			return nil, err
		}
		if err := e.setindex(args[0], args[1], args[2:]); err != nil {
			return nil, err
		}
		return args[0], nil
	})
	e.def(b, "first", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("first", args, 1, 1); err != nil {
			return nil, err
		}
		return e.getindex(args[0], []Value{int64(1)})
	})
	e.def(b, "last", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("last", args, 1, 1); err != nil {
			return nil, err
		}
		return e.getindex(args[0], []Value{int64(endOf(args[0], 0, 1))})
	})
	e.def(b, "isempty", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("isempty", args, 1, 1); err != nil {
			return nil, err
		}
		switch x := args[0].(type) {
		case *Array:
			return len(x.Data) == 0, nil
		case *Range:
			return x.Len() == 0, nil
		case Tuple:
			return len(x) == 0, nil
		case string:
			return x == "", nil
		case SubString:
			return x.Length == 0, nil
		}
		return nil, e.methodError("isempty", args)
	})

	e.def(b, "map", func(c *callCtx, args []Value) (Value, error) {
		if err := e.arity("map", args, 2, 2); err != nil {
			return nil, err
		}
		fn := args[0]
		apply := func(v Value) (Value, error) { return c.in.call(fn, []Value{v}, c.mod) }
		switch x := args[1].(type) {
		case Tuple:
			out := make(Tuple, len(x))
			for i, v := range x {
				r, err := apply(v)
				if err != nil {
					return nil, err
				}
				out[i] = r
			}
			return out, nil
		case *Array, *Range:
			a, _ := arrayLike(x)
			out := make([]Value, len(a.Data))
			for i, v := range a.Data {
				r, err := apply(v)
				if err != nil {
					return nil, err
				}
				out[i] = r
			}
			return &Array{Elem: inferElem(out, AnyType), Dims: slices.Clone(a.Dims), Data: out}, nil
		}
		return apply(args[1])
	})
	e.def(b, "filter", func(c *callCtx, args []Value) (Value, error) {
		if err := e.arity("filter", args, 2, 2); err != nil {
			return nil, err
		}
		vals, elem, err := e.elements("filter", args[1])
		if err != nil {
			return nil, err
		}
		var out []Value
		for _, v := range vals {
			keep, err := c.in.call(args[0], []Value{v}, c.mod)
			if err != nil {
				return nil, err
			}
			ok, isBool := keep.(bool)
			if !isBool {
				return nil, e.throw("TypeError", "non-boolean (%s) used in boolean context", TypeOf(keep).Name)
			}
			if ok {
				out = append(out, v)
			}
		}
		return &Array{Elem: elem, Dims: []int{len(out)}, Data: out}, nil
	})
	e.def(b, "sort", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("sort", args, 1, 1); err != nil {
			return nil, err
		}
		vals, elem, err := e.elements("sort", args[0])
		if err != nil {
			return nil, err
		}
		out := slices.Clone(vals)
		var sortErr error
		slices.SortStableFunc(out, func(x, y Value) int {
			less, err := e.order("<", x, y)
			if err != nil {
				sortErr = err
				return 0
			}
			if less.(bool) {
				return -1
			}
			greater, _ := e.order(">", x, y)
			if greater == true {
				return 1
			}
			return 0
		})
		if sortErr != nil {
			return nil, sortErr
		}
		return &Array{Elem: elem, Dims: []int{len(out)}, Data: out}, nil
	})
	e.def(b, "reverse", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("reverse", args, 1, 1); err != nil {
			return nil, err
		}
		if s, ok := isStringish(args[0]); ok {
			r := []rune(s)
			slices.Reverse(r)
			return string(r), nil
		}
		if t, ok := args[0].(Tuple); ok {
			out := slices.Clone(t)
			slices.Reverse(out)
			return out, nil
		}
		vals, elem, err := e.elements("reverse", args[0])
		if err != nil {
			return nil, err
		}
		out := slices.Clone(vals)
		slices.Reverse(out)
		return &Array{Elem: elem, Dims: []int{len(out)}, Data: out}, nil
	})
	e.def(b, "vcat", func(_ *callCtx, args []Value) (Value, error) {
		var out []Value
		for _, a := range args {
			if err := e.each(a, func(v Value) error {
				out = append(out, v)
				return nil
			}); err != nil {
				return nil, err
			}
		}
		return e.vect(out, AnyType)
	})
	e.def(b, "hcat", func(_ *callCtx, args []Value) (Value, error) {
		if len(args) == 0 {
			return &Array{Elem: AnyType, Dims: []int{0, 0}}, nil
		}
		rows := -1
		var out []Value
		for _, a := range args {
			vals, _, err := e.elements("hcat", a)
			if err != nil {
				return nil, err
			}
			if rows >= 0 && len(vals) != rows {
				return nil, e.throw("DimensionMismatch", "vectors must have same lengths")
			}
			rows = len(vals)
			out = append(out, vals...)
		}
		v, err := e.vect(out, AnyType)
		if err != nil {
			return nil, err
		}
		v.Dims = []int{rows, len(args)}
		return v, nil
	})
}

func (e *Engine) vector(name string, v Value) (*Array, error) {
	a, ok := v.(*Array)
	if !ok || len(a.Dims) != 1 {
		return nil, e.methodError(name, []Value{v})
	}
	return a, nil
}

// sum widens narrow integers to 64 bits and sums floats pairwise.
func (e *Engine) sum(v Value) (Value, error) {
	if r, ok := v.(*Range); ok {
		n := int64(r.Len())
		if n == 0 {
			return int64(0), nil
		}
		return n * (r.Start + r.Stop) / 2, nil
	}
	vals, elem, err := e.elements("sum", v)
	if err != nil {
		return nil, err
	}
	switch {
	case isFloatType(elem):
		fs := make([]float64, len(vals))
		for i, x := range vals {
			fs[i] = asFloat64(x)
		}
		return fromFloat(elem, pairwiseSum(fs)), nil
	case elem.SubtypeOf(UnsignedType) && isIntType(elem):
		var s uint64
		for _, x := range vals {
			s += asUint64(x)
		}
		return s, nil
	case isIntType(elem):
		var s int64
		for _, x := range vals {
			s += asInt64(x)
		}
		return s, nil
	}
	if len(vals) == 0 {
		return int64(0), nil
	}
	acc := vals[0]
	for _, x := range vals[1:] {
		if acc, err = e.arith("+", acc, x); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func pairwiseSum(xs []float64) float64 {
	if len(xs) <= 128 {
		var s float64
		for _, x := range xs {
			s += x
		}
		return s
	}
	mid := len(xs) / 2
	return pairwiseSum(xs[:mid]) + pairwiseSum(xs[mid:])
}

func (e *Engine) reduceExtremum(name string, args []Value, op string) (Value, error) {
	if err := e.arity(name, args, 1, 1); err != nil {
		return nil, err
	}
	vals, _, err := e.elements(name, args[0])
	if err != nil {
		return nil, err
	}
	switch len(vals) {
	case 0:
		return nil, e.throw("ArgumentError", "reducing over an empty collection is not allowed")
	case 1:
		return vals[0], nil
	}
	return e.extremum(name, vals, op)
}

func (e *Engine) boolReduce(name string, args []Value, want bool) (Value, error) {
	if err := e.arity(name, args, 1, 1); err != nil {
		return nil, err
	}
	vals, _, err := e.elements(name, args[0])
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		b, ok := v.(bool)
		if !ok {
			return nil, e.throw("TypeError", "non-boolean (%s) used in boolean context", TypeOf(v).Name)
		}
		if b == want {
			return want, nil
		}
	}
	return !want, nil
}

// filled implements zeros/ones: f([T,] dims...).
func (e *Engine) filled(name string, args []Value, value func(*DataType) (Value, error)) (Value, error) {
	elem := Float64Type
	if len(args) > 0 {
		if t, ok := args[0].(*DataType); ok {
			elem = t
			args = args[1:]
		}
	}
	dims, err := e.dimsOf(name, args)
	if err != nil {
		return nil, err
	}
	v, err := value(elem)
	if err != nil {
		return nil, err
	}
	a := NewArray(elem, dims...)
	for i := range a.Data {
		a.Data[i] = v
	}
	return a, nil
}

// random implements rand/randn: f(), f(T), f(collection), f([T,] dims...).
func (e *Engine) random(name string, args []Value, gen func() float64) (Value, error) {
	elem := Float64Type
	if len(args) > 0 {
		if t, ok := args[0].(*DataType); ok {
			elem = t
			args = args[1:]
		}
	}
	one := func() (Value, error) {
		switch {
		case elem == BoolType:
			return e.rng.IntN(2) == 1, nil
		case isIntType(elem):
			return fromUint(elem, e.rng.Uint64()), nil
		case isFloatType(elem):
			return fromFloat(elem, gen()), nil
		}
		return nil, e.methodError(name, []Value{elem})
	}

	if len(args) == 1 {
		switch x := args[0].(type) {
		case *Range, *Array, Tuple:
			vals, _, err := e.elements(name, x)
			if err != nil {
				return nil, err
			}
			if len(vals) == 0 {
				return nil, e.throw("ArgumentError", "collection must be non-empty")
			}
			return vals[e.rng.IntN(len(vals))], nil
		}
	}
	if len(args) == 0 {
		return one()
	}
	dims, err := e.dimsOf(name, args)
	if err != nil {
		return nil, err
	}
	a := NewArray(elem, dims...)
	for i := range a.Data {
		if a.Data[i], err = one(); err != nil {
			return nil, err
		}
	}
	return a, nil
}
