package engine

import "math"

func (e *Engine) installLinAlg(b *Module) {
	linalg := NewModule("LinAlg", b)
	linalg.exportAll = true
	blas := NewModule("BLAS", linalg)
	blas.exportAll = true
	b.Set("LinAlg", linalg)
	linalg.Set("BLAS", blas)

	shared := func(name string, fn builtinFunc) {
		f := e.def(linalg, name, fn)
		b.Set(name, f)
	}

	shared("dot", e.dot)
	blas.Set("dot", &Function{Name: "dot", Module: blas, builtin: e.dot})

	shared("transpose", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("transpose", args, 1, 1); err != nil {
			return nil, err
		}
		return e.transpose(args[0])
	})
	ct, _ := linalg.Get("transpose")
	linalg.Set("ctranspose", ct)
	b.Set("ctranspose", ct)

	shared("inv", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("inv", args, 1, 1); err != nil {
			return nil, err
		}
		if isNumber(args[0]) {
			return e.arith("/", 1.0, args[0])
		}
		m, n, data, err := e.matrix("inv", args[0])
		if err != nil {
			return nil, err
		}
		if m != n {
			return nil, e.throw("DimensionMismatch", "matrix is not square: dimensions are (%d,%d)", m, n)
		}
		inv, err := e.invert(n, data)
		if err != nil {
			return nil, err
		}
		return floatMatrix(n, n, inv), nil
	})
	shared("det", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("det", args, 1, 1); err != nil {
			return nil, err
		}
		m, n, data, err := e.matrix("det", args[0])
		if err != nil {
			return nil, err
		}
		if m != n {
			return nil, e.throw("DimensionMismatch", "matrix is not square: dimensions are (%d,%d)", m, n)
		}
		return determinant(n, data), nil
	})
	shared("trace", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("trace", args, 1, 1); err != nil {
			return nil, err
		}
		a, ok := args[0].(*Array)
		if !ok || len(a.Dims) != 2 {
			return nil, e.methodError("trace", args)
		}
		var acc Value = int64(0)
		for i := 0; i < a.Dims[0] && i < a.Dims[1]; i++ {
			var err error
			if acc, err = e.arith("+", acc, a.Data[i+i*a.Dims[0]]); err != nil {
				return nil, err
			}
		}
		return acc, nil
	})
	shared("norm", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("norm", args, 1, 2); err != nil {
			return nil, err
		}
		p := 2.0
		if len(args) == 2 {
			var ok bool
			if p, ok = toFloat(args[1]); !ok {
				return nil, e.methodError("norm", args)
			}
		}
		if isNumber(args[0]) {
			return math.Abs(asFloat64(args[0])), nil
		}
		_, _, data, err := e.matrix("norm", args[0])
		if err != nil {
			return nil, err
		}
		return pnorm(data, p), nil
	})
}

func (e *Engine) dot(_ *callCtx, args []Value) (Value, error) {
	if err := e.arity("dot", args, 2, 2); err != nil {
		return nil, err
	}
	x, xok := arrayLike(args[0])
	y, yok := arrayLike(args[1])
	if !xok || !yok {
		if isNumber(args[0]) && isNumber(args[1]) {
			return e.arith("*", args[0], args[1])
		}
		return nil, e.methodError("dot", args)
	}
	if len(x.Data) != len(y.Data) {
		return nil, e.throw("DimensionMismatch", "dot product arguments have lengths %d and %d", len(x.Data), len(y.Data))
	}
	rt := promoteType(x.Elem, y.Elem)
	if isIntType(rt) {
		var s int64
		for i := range x.Data {
			s += asInt64(x.Data[i]) * asInt64(y.Data[i])
		}
		return s, nil
	}
	var s float64
	for i := range x.Data {
		a, aok := toFloat(x.Data[i])
		b, bok := toFloat(y.Data[i])
		if !aok || !bok {
			return nil, e.methodError("dot", args)
		}
		s += a * b
	}
	return fromFloat(rt, s), nil
}

// matrix converts a numeric array to column-major float64 data. Vectors
// are m x 1.
func (e *Engine) matrix(name string, v Value) (m, n int, data []float64, err error) {
	a, ok := arrayLike(v)
	if !ok || len(a.Dims) > 2 {
		return 0, 0, nil, e.methodError(name, []Value{v})
	}
	m, n = a.Dims[0], 1
	if len(a.Dims) == 2 {
		n = a.Dims[1]
	}
	data = make([]float64, len(a.Data))
	for i, el := range a.Data {
		f, ok := toFloat(el)
		if !ok {
			return 0, 0, nil, e.methodError(name, []Value{v})
		}
		data[i] = f
	}
	return m, n, data, nil
}

func floatMatrix(m, n int, data []float64) *Array {
	out := make([]Value, len(data))
	for i, f := range data {
		out[i] = f
	}
	return &Array{Elem: Float64Type, Dims: []int{m, n}, Data: out}
}

// invert runs Gauss-Jordan elimination with partial pivoting on a
// column-major n x n matrix.
func (e *Engine) invert(n int, a []float64) ([]float64, error) {
	at := func(i, j int) *float64 { return &a[i+j*n] }
	inv := make([]float64, n*n)
	for i := 0; i < n; i++ {
		inv[i+i*n] = 1
	}
	iv := func(i, j int) *float64 { return &inv[i+j*n] }

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(*at(r, col)) > math.Abs(*at(pivot, col)) {
				pivot = r
			}
		}
		if *at(pivot, col) == 0 {
			return nil, e.throw("SingularException", "%d", col+1)
		}
		if pivot != col {
			for j := 0; j < n; j++ {
				*at(col, j), *at(pivot, j) = *at(pivot, j), *at(col, j)
				*iv(col, j), *iv(pivot, j) = *iv(pivot, j), *iv(col, j)
			}
		}
		p := *at(col, col)
		for j := 0; j < n; j++ {
			*at(col, j) /= p
			*iv(col, j) /= p
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			f := *at(r, col)
			if f == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				*at(r, j) -= f * *at(col, j)
				*iv(r, j) -= f * *iv(col, j)
			}
		}
	}
	return inv, nil
}

func determinant(n int, a []float64) float64 {
	if n == 0 {
		return 1
	}
	m := append([]float64(nil), a...)
	at := func(i, j int) *float64 { return &m[i+j*n] }
	det := 1.0
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(*at(r, col)) > math.Abs(*at(pivot, col)) {
				pivot = r
			}
		}
		if *at(pivot, col) == 0 {
			return 0
		}
		if pivot != col {
			for j := 0; j < n; j++ {
				*at(col, j), *at(pivot, j) = *at(pivot, j), *at(col, j)
			}
			det = -det
		}
		p := *at(col, col)
		det *= p
		for r := col + 1; r < n; r++ {
			f := *at(r, col) / p
			for j := col; j < n; j++ {
				*at(r, j) -= f * *at(col, j)
			}
		}
	}
	return det
}

func pnorm(xs []float64, p float64) float64 {
	switch {
	case math.IsInf(p, 1):
		var m float64
		for _, x := range xs {
			m = math.Max(m, math.Abs(x))
		}
		return m
	case p == 1:
		var s float64
		for _, x := range xs {
			s += math.Abs(x)
		}
		return s
	}
	var s float64
	for _, x := range xs {
		s += math.Pow(math.Abs(x), p)
	}
	return math.Pow(s, 1/p)
}
