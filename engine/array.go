package engine

import (
	"math"
	"slices"
	"strings"
	"unicode/utf8"
)

// Array is a dense n-dimensional array stored column-major: element
// (i1, i2, ...) lives at i1 + i2*d1 + i3*d1*d2 + ... (0-based).
type Array struct {
	Elem *DataType
	Dims []int
	Data []Value
}

// NewArray allocates a zero-filled array.
func NewArray(elem *DataType, dims ...int) *Array {
	n := 1
	for _, d := range dims {
		n *= d
	}
	data := make([]Value, n)
	z := zeroOf(elem)
	for i := range data {
		data[i] = z
	}
	return &Array{Elem: elem, Dims: slices.Clone(dims), Data: data}
}

// Len returns the element count.
func (a *Array) Len() int { return len(a.Data) }

// At returns the element at 0-based cartesian coordinates.
func (a *Array) At(idx ...int) Value {
	lin, stride := 0, 1
	for k, i := range idx {
		lin += i * stride
		if k < len(a.Dims) {
			stride *= a.Dims[k]
		}
	}
	return a.Data[lin]
}

func (a *Array) clone() *Array {
	return &Array{Elem: a.Elem, Dims: slices.Clone(a.Dims), Data: slices.Clone(a.Data)}
}

func zeroOf(t *DataType) Value {
	switch t {
	case BoolType:
		return false
	case Int8Type:
		return int8(0)
	case UInt8Type:
		return uint8(0)
	case Int16Type:
		return int16(0)
	case UInt16Type:
		return uint16(0)
	case Int32Type:
		return int32(0)
	case UInt32Type:
		return uint32(0)
	case Int64Type:
		return int64(0)
	case UInt64Type:
		return uint64(0)
	case Float32Type:
		return float32(0)
	case Float64Type:
		return float64(0)
	case StringType, AbstractStringType:
		return ""
	}
	return Nothing{}
}

func (r *Range) collect() *Array {
	n := r.Len()
	data := make([]Value, n)
	for i := range data {
		data[i] = r.At(i)
	}
	return &Array{Elem: Int64Type, Dims: []int{n}, Data: data}
}

// arrayLike views ranges as arrays.
func arrayLike(v Value) (*Array, bool) {
	switch x := v.(type) {
	case *Array:
		return x, true
	case *Range:
		return x.collect(), true
	}
	return nil, false
}

// vect builds a vector literal, promoting numeric elements to a common type.
func (e *Engine) vect(vals []Value, empty *DataType) (*Array, error) {
	return e.typedVect(inferElem(vals, empty), vals)
}

func (e *Engine) typedVect(elem *DataType, vals []Value) (*Array, error) {
	data := make([]Value, len(vals))
	for i, v := range vals {
		c, err := e.convertTo(elem, v)
		if err != nil {
			return nil, err
		}
		data[i] = c
	}
	return &Array{Elem: elem, Dims: []int{len(vals)}, Data: data}, nil
}

func (e *Engine) makeRange(start, step, stop Value) (Value, error) {
	a, aok := toInt(start)
	s, sok := toInt(step)
	b, bok := toInt(stop)
	if aok && sok && bok {
		if s == 0 {
			return nil, e.throw("ArgumentError", "step cannot be zero")
		}
		return newRange(a, s, b), nil
	}

	fa, ok1 := toFloat(start)
	fs, ok2 := toFloat(step)
	fb, ok3 := toFloat(stop)
	if !ok1 || !ok2 || !ok3 {
		return nil, e.methodError("colon", []Value{start, step, stop})
	}
	if fs == 0 {
		return nil, e.throw("ArgumentError", "range step cannot be zero")
	}
	n := int(math.Floor((fb-fa)/fs+1e-10)) + 1
	if n < 0 {
		n = 0
	}
	data := make([]Value, n)
	for i := range data {
		data[i] = fa + float64(i)*fs
	}
	return &Array{Elem: Float64Type, Dims: []int{n}, Data: data}, nil
}

// extent is the size of axis k when an array is indexed with n indices;
// the last index spans all remaining axes.
func extent(a *Array, k, n int) int {
	if n == 1 {
		return len(a.Data)
	}
	if k >= len(a.Dims) {
		return 1
	}
	if k == n-1 {
		size := 1
		for _, d := range a.Dims[k:] {
			size *= d
		}
		return size
	}
	return a.Dims[k]
}

func (e *Engine) linear(a *Array, idx []int) (int, error) {
	lin, stride := 0, 1
	for k, i := range idx {
		ext := extent(a, k, len(idx))
		if i < 1 || i > ext {
			return 0, e.boundsError(a, idx)
		}
		lin += (i - 1) * stride
		stride *= ext
	}
	return lin, nil
}

func scalarIndices(idx []Value) ([]int, bool) {
	out := make([]int, len(idx))
	for k, v := range idx {
		i, ok := toInt(v)
		if !ok {
			return nil, false
		}
		out[k] = int(i)
	}
	return out, true
}

func (e *Engine) getindex(obj Value, idx []Value) (Value, error) {
	switch x := obj.(type) {
	case *Array:
		return e.arrayIndex(x, idx)
	case *Range:
		if len(idx) == 1 {
			if i, ok := toInt(idx[0]); ok {
				if i < 1 || int(i) > x.Len() {
					return nil, e.boundsError(x, []int{int(i)})
				}
				return x.At(int(i) - 1), nil
			}
		}
		return e.arrayIndex(x.collect(), idx)
	case Tuple:
		if len(idx) == 1 {
			if i, ok := toInt(idx[0]); ok {
				if i < 1 || int(i) > len(x) {
					return nil, e.boundsError(x, []int{int(i)})
				}
				return x[i-1], nil
			}
		}
	case SubString:
		return e.getindex(x.String(), idx)
	case string:
		if len(idx) != 1 {
			break
		}
		if i, ok := toInt(idx[0]); ok {
			if i < 1 || int(i) > len(x) {
				return nil, e.boundsError(x, []int{int(i)})
			}
			r, _ := utf8.DecodeRuneInString(x[i-1:])
			return string(r), nil
		}
		if r, ok := idx[0].(*Range); ok && r.Step == 1 {
			if r.Len() == 0 {
				return "", nil
			}
			if r.Start < 1 || int(r.Stop) > len(x) {
				return nil, e.boundsError(x, []int{int(r.Start), int(r.Stop)})
			}
			return x[r.Start-1 : r.Stop], nil
		}
	}
	return nil, e.methodError("getindex", append([]Value{obj}, idx...))
}

func (e *Engine) arrayIndex(a *Array, idx []Value) (Value, error) {
	if len(idx) == 0 {
		if len(a.Data) == 1 {
			return a.Data[0], nil
		}
		return nil, e.boundsError(a, nil)
	}
	if ints, ok := scalarIndices(idx); ok {
		lin, err := e.linear(a, ints)
		if err != nil {
			return nil, err
		}
		return a.Data[lin], nil
	}

	sets := make([][]int, len(idx))
	var shape []int
	for k, v := range idx {
		ext := extent(a, k, len(idx))
		var pos []int
		switch x := v.(type) {
		case colon:
			pos = make([]int, ext)
			for i := range pos {
				pos[i] = i + 1
			}
			shape = append(shape, ext)
		case *Range:
			pos = make([]int, x.Len())
			for i := range pos {
				pos[i] = int(x.At(i))
			}
			shape = append(shape, len(pos))
		case *Array:
			for _, el := range x.Data {
				i, ok := toInt(el)
				if !ok {
					return nil, e.throw("ArgumentError", "invalid index: %s", show(el))
				}
				pos = append(pos, int(i))
			}
			shape = append(shape, len(pos))
		default:
			i, ok := toInt(v)
			if !ok {
				return nil, e.throw("ArgumentError", "invalid index: %s", show(v))
			}
			pos = []int{int(i)}
		}
		for _, p := range pos {
			if p < 1 || p > ext {
				return nil, e.boundsError(a, []int{p})
			}
		}
		sets[k] = pos
	}

	total := 1
	for _, s := range sets {
		total *= len(s)
	}
	out := make([]Value, 0, total)
	if total > 0 {
		counter := make([]int, len(sets))
		for {
			lin, stride := 0, 1
			for k, s := range sets {
				lin += (s[counter[k]] - 1) * stride
				stride *= extent(a, k, len(idx))
			}
			out = append(out, a.Data[lin])

			k := 0
			for ; k < len(counter); k++ {
				counter[k]++
				if counter[k] < len(sets[k]) {
					break
				}
				counter[k] = 0
			}
			if k == len(counter) {
				break
			}
		}
	}
	return &Array{Elem: a.Elem, Dims: shape, Data: out}, nil
}

func (e *Engine) setindex(obj, val Value, idx []Value) error {
	a, ok := obj.(*Array)
	if !ok {
		return e.methodError("setindex!", append([]Value{obj, val}, idx...))
	}
	ints, ok := scalarIndices(idx)
	if !ok {
		return e.methodError("setindex!", append([]Value{obj, val}, idx...))
	}
	lin, err := e.linear(a, ints)
	if err != nil {
		return err
	}
	v, err := e.convertTo(a.Elem, val)
	if err != nil {
		return err
	}
	a.Data[lin] = v
	return nil
}

// each iterates a collection. Numbers iterate once, as themselves.
func (e *Engine) each(v Value, fn func(Value) error) error {
	switch x := v.(type) {
	case *Array:
		for _, el := range x.Data {
			if err := fn(el); err != nil {
				return err
			}
		}
		return nil
	case *Range:
		for i := 0; i < x.Len(); i++ {
			if err := fn(x.At(i)); err != nil {
				return err
			}
		}
		return nil
	case Tuple:
		for _, el := range x {
			if err := fn(el); err != nil {
				return err
			}
		}
		return nil
	case SubString:
		return e.each(x.String(), fn)
	case string:
		for _, r := range x {
			if err := fn(string(r)); err != nil {
				return err
			}
		}
		return nil
	}
	if isNumericType(TypeOf(v)) {
		return fn(v)
	}
	return e.methodError("start", []Value{v})
}

func (e *Engine) collect(v Value) (*Array, error) {
	if a, ok := v.(*Array); ok {
		return a.clone(), nil
	}
	var vals []Value
	if err := e.each(v, func(el Value) error {
		vals = append(vals, el)
		return nil
	}); err != nil {
		return nil, err
	}
	return e.vect(vals, AnyType)
}

func (e *Engine) reshape(v Value, dims []int) (*Array, error) {
	a, ok := arrayLike(v)
	if !ok {
		return nil, e.methodError("reshape", []Value{v})
	}
	n := 1
	for _, d := range dims {
		if d < 0 {
			return nil, e.throw("ArgumentError", "dimension size must be ≥ 0, got %d", d)
		}
		n *= d
	}
	if n != len(a.Data) {
		return nil, e.throw("DimensionMismatch", "new dimensions %s must be consistent with array size %d",
			formatDims(dims), len(a.Data))
	}
	// Reshaped arrays share storage with the source.
	return &Array{Elem: a.Elem, Dims: slices.Clone(dims), Data: a.Data}, nil
}

func formatDims(dims []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = show(int64(d))
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func sameDims(a, b []int) bool { return slices.Equal(a, b) }
