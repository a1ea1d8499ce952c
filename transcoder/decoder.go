package transcoder

import (
	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/errors"
	"github.com/wippyai/numbridge/value"
)

// Decoder converts runtime values into host values. Values with no host
// form become references through the References table.
type Decoder struct {
	refs References
}

// NewDecoder creates a decoder. With nil refs, opaque runtime values fail
// to decode with an unsupported error.
func NewDecoder(refs References) *Decoder {
	return &Decoder{refs: refs}
}

// Decode converts one runtime value.
func (d *Decoder) Decode(v engine.Value) (value.Value, error) {
	if hv, ok := decodeScalar(v); ok {
		return hv, nil
	}
	switch x := v.(type) {
	case engine.Tuple:
		return d.decodeTuple(x)
	case *engine.Array:
		return d.decodeArray(x)
	case *engine.Range:
		out := make(value.Array, x.Len())
		for i := range out {
			out[i] = value.Int(x.At(i))
		}
		return out, nil
	case *engine.Struct, *engine.Function, *engine.Module, *engine.DataType, *engine.RegexMatch:
		if d.refs == nil {
			return nil, unsupported(errors.PhaseDecode, v)
		}
		return d.refs.Wrap(v)
	}
	return nil, unsupported(errors.PhaseDecode, v)
}

// decodeTuple flattens nested tuples. The empty tuple is Null and a
// one-element tuple is its element.
func (d *Decoder) decodeTuple(t engine.Tuple) (value.Value, error) {
	flat := flatten(nil, t)
	switch len(flat) {
	case 0:
		return value.Null{}, nil
	case 1:
		return d.Decode(flat[0])
	}
	out := make(value.Array, len(flat))
	for i, el := range flat {
		hv, err := d.Decode(el)
		if err != nil {
			return nil, err
		}
		out[i] = hv
	}
	return out, nil
}

func flatten(dst []engine.Value, t engine.Tuple) []engine.Value {
	for _, el := range t {
		if inner, ok := el.(engine.Tuple); ok {
			dst = flatten(dst, inner)
			continue
		}
		dst = append(dst, el)
	}
	return dst
}

// decodeArray re-nests column-major storage by walking the runtime axes
// first to last, so host [i1][i2]... reads element i1 + d1*(i2 + ...).
// Fixed-width numeric element types produce a typed buffer at the
// innermost level.
func (d *Decoder) decodeArray(a *engine.Array) (value.Value, error) {
	if len(a.Dims) == 0 {
		if len(a.Data) == 0 {
			return value.Null{}, nil
		}
		return d.Decode(a.Data[0])
	}
	_, typed := elemOf(a.Elem)
	return d.level(a, typed, 0, 0, 1)
}

func (d *Decoder) level(a *engine.Array, typed bool, axis, off, stride int) (value.Value, error) {
	n := a.Dims[axis]
	if axis == len(a.Dims)-1 {
		if typed {
			return d.buffer(a, off, stride)
		}
		out := make(value.Array, n)
		for i := range out {
			hv, err := d.Decode(a.Data[off+i*stride])
			if err != nil {
				return nil, err
			}
			out[i] = hv
		}
		return out, nil
	}
	out := make(value.Array, n)
	for i := range out {
		hv, err := d.level(a, typed, axis+1, off+i*stride, stride*n)
		if err != nil {
			return nil, err
		}
		out[i] = hv
	}
	return out, nil
}

func (d *Decoder) buffer(a *engine.Array, off, stride int) (value.Value, error) {
	n := a.Dims[len(a.Dims)-1]
	vals := make([]engine.Value, n)
	for i := range vals {
		vals[i] = a.Data[off+i*stride]
	}
	var (
		b  *value.Buffer
		ok bool
	)
	switch a.Elem {
	case engine.Int8Type:
		b, ok = typedBuffer[int8](vals)
	case engine.UInt8Type:
		b, ok = typedBuffer[uint8](vals)
	case engine.Int16Type:
		b, ok = typedBuffer[int16](vals)
	case engine.UInt16Type:
		b, ok = typedBuffer[uint16](vals)
	case engine.Int32Type:
		b, ok = typedBuffer[int32](vals)
	case engine.UInt32Type:
		b, ok = typedBuffer[uint32](vals)
	case engine.Float32Type:
		b, ok = typedBuffer[float32](vals)
	case engine.Float64Type:
		b, ok = typedBuffer[float64](vals)
	}
	if !ok {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			RuntimeType(engine.TypeOf(a).String()).
			Detail("array elements do not match element type %s", a.Elem).
			Build()
	}
	return b, nil
}

func typedBuffer[T value.Number](vals []engine.Value) (*value.Buffer, bool) {
	out := make([]T, len(vals))
	for i, v := range vals {
		x, ok := v.(T)
		if !ok {
			return nil, false
		}
		out[i] = x
	}
	return value.NewBuffer(out), true
}

// elemOf reports the buffer element type for runtime array element types
// that decode to typed buffers.
func elemOf(t *engine.DataType) (value.ElemType, bool) {
	switch t {
	case engine.Int8Type:
		return value.Int8, true
	case engine.UInt8Type:
		return value.Uint8, true
	case engine.Int16Type:
		return value.Int16, true
	case engine.UInt16Type:
		return value.Uint16, true
	case engine.Int32Type:
		return value.Int32, true
	case engine.UInt32Type:
		return value.Uint32, true
	case engine.Float32Type:
		return value.Float32, true
	case engine.Float64Type:
		return value.Float64, true
	}
	return 0, false
}
