package transcoder

import (
	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/errors"
	"github.com/wippyai/numbridge/transcoder/internal/shape"
	"github.com/wippyai/numbridge/value"
)

// Encoder converts host values into runtime values. Arrays are checked for
// rectangularity and a uniform element kind, then allocated column-major.
type Encoder struct {
	refs References
}

// NewEncoder creates an encoder. refs may be nil when no references are
// expected; encoding a *value.Ref then fails with ReferenceInvalid.
func NewEncoder(refs References) *Encoder {
	return &Encoder{refs: refs}
}

// Encode converts one host value.
func (e *Encoder) Encode(v value.Value) (engine.Value, error) {
	if rv, ok, err := encodeScalar(v); ok {
		return rv, err
	}
	switch x := v.(type) {
	case *value.Ref:
		return e.resolve(x)
	case *value.Buffer:
		s, err := shape.Explicit(x)
		if err != nil {
			return nil, err
		}
		data := make([]engine.Value, x.Len())
		for i := range data {
			data[i] = bufferElem(x, i)
		}
		return &engine.Array{Elem: elemType(s.Kind), Dims: s.Dims, Data: data}, nil
	case value.Array:
		return e.encodeArray(x)
	}
	return nil, errors.New(errors.PhaseEncode, errors.KindUnsupported).
		Detail("unsupported host value %T", v).
		Build()
}

// EncodeAll converts call arguments in order, stopping at the first error.
func (e *Encoder) EncodeAll(vs []value.Value) ([]engine.Value, error) {
	out := make([]engine.Value, len(vs))
	for i, v := range vs {
		rv, err := e.Encode(v)
		if err != nil {
			return nil, err
		}
		out[i] = rv
	}
	return out, nil
}

func (e *Encoder) resolve(ref *value.Ref) (engine.Value, error) {
	if e.refs == nil {
		return nil, errors.ReferenceInvalid(ref.Handle())
	}
	return e.refs.Resolve(ref)
}

func (e *Encoder) encodeArray(a value.Array) (engine.Value, error) {
	s, err := shape.Resolve(a)
	if err != nil {
		return nil, err
	}
	f := &filler{enc: e, kind: s.Kind, dims: s.Dims, data: make([]engine.Value, s.Len())}
	for i, el := range a {
		if err := f.fill(el, 1, i); err != nil {
			return nil, err
		}
	}
	return &engine.Array{Elem: elemType(s.Kind), Dims: s.Dims, Data: f.data}, nil
}

// filler writes host elements into column-major storage. Host index
// (i1..in) lands at i1 + d1*(i2 + d2*(...)).
type filler struct {
	enc  *Encoder
	data []engine.Value
	dims []int
	kind shape.Kind
}

// fill places v, found at the given depth, whose linear offset so far is
// off. stride is the product of the dims above depth.
func (f *filler) fill(v value.Value, depth, off int) error {
	stride := 1
	for _, d := range f.dims[:depth] {
		stride *= d
	}
	switch x := v.(type) {
	case value.Array:
		for i, el := range x {
			if err := f.fill(el, depth+1, off+i*stride); err != nil {
				return err
			}
		}
		return nil
	case *value.Buffer:
		for i := 0; i < x.Len(); i++ {
			f.data[off+i*stride] = f.bufferLeaf(x, i)
		}
		return nil
	}
	rv, err := f.leaf(v)
	if err != nil {
		return err
	}
	f.data[off] = rv
	return nil
}

func (f *filler) leaf(v value.Value) (engine.Value, error) {
	switch f.kind {
	case shape.KindInt:
		switch x := v.(type) {
		case value.Bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		case value.Int:
			return int64(x), nil
		}
	case shape.KindFloat:
		switch x := v.(type) {
		case value.Bool:
			if x {
				return 1.0, nil
			}
			return 0.0, nil
		case value.Int:
			return float64(x), nil
		case value.Float:
			return float64(x), nil
		}
	case shape.KindRef:
		if ref, ok := v.(*value.Ref); ok {
			return f.enc.resolve(ref)
		}
	}
	rv, _, err := encodeScalar(v)
	return rv, err
}

func (f *filler) bufferLeaf(b *value.Buffer, i int) engine.Value {
	switch {
	case f.kind == shape.KindInt:
		return b.Int(i)
	case f.kind == shape.KindFloat:
		return b.Float(i)
	}
	return bufferElem(b, i)
}

// bufferElem returns element i at the buffer's own width.
func bufferElem(b *value.Buffer, i int) engine.Value {
	switch d := b.Data().(type) {
	case []int8:
		return d[i]
	case []uint8:
		return d[i]
	case []int16:
		return d[i]
	case []uint16:
		return d[i]
	case []int32:
		return d[i]
	case []uint32:
		return d[i]
	case []float32:
		return d[i]
	case []float64:
		return d[i]
	}
	return nil
}

func elemType(k shape.Kind) *engine.DataType {
	switch k {
	case shape.KindBool:
		return engine.BoolType
	case shape.KindInt:
		return engine.Int64Type
	case shape.KindFloat:
		return engine.Float64Type
	case shape.KindString:
		return engine.StringType
	case shape.KindNull:
		return engine.NothingType
	case shape.KindDate:
		return engine.DateTimeType
	case shape.KindRegex:
		return engine.RegexType
	case shape.KindInt8:
		return engine.Int8Type
	case shape.KindUint8:
		return engine.UInt8Type
	case shape.KindInt16:
		return engine.Int16Type
	case shape.KindUint16:
		return engine.UInt16Type
	case shape.KindInt32:
		return engine.Int32Type
	case shape.KindUint32:
		return engine.UInt32Type
	case shape.KindFloat32:
		return engine.Float32Type
	case shape.KindFloat64:
		return engine.Float64Type
	}
	return engine.AnyType
}
