package value

import (
	"strconv"
	"strings"
)

// ElemType is the fixed element width of a typed buffer.
type ElemType uint8

const (
	Int8 ElemType = iota + 1
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
)

var elemNames = [...]string{
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Float32: "float32",
	Float64: "float64",
}

func (e ElemType) String() string {
	if e > 0 && int(e) < len(elemNames) {
		return elemNames[e]
	}
	return "unknown"
}

// IsFloat reports whether the element type is a floating point width.
func (e ElemType) IsFloat() bool {
	return e == Float32 || e == Float64
}

// Size returns the element width in bytes.
func (e ElemType) Size() int {
	switch e {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// Number is the set of Go element types a Buffer can hold.
type Number interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | float32 | float64
}

// Buffer is a flat typed numeric buffer. Without explicit dims it is
// one-dimensional; with dims its elements are in the runtime's column-major
// order.
type Buffer struct {
	data any
	dims []int
	elem ElemType
}

// NewBuffer wraps data without copying.
func NewBuffer[T Number](data []T) *Buffer {
	var elem ElemType
	switch any(data).(type) {
	case []int8:
		elem = Int8
	case []uint8:
		elem = Uint8
	case []int16:
		elem = Int16
	case []uint16:
		elem = Uint16
	case []int32:
		elem = Int32
	case []uint32:
		elem = Uint32
	case []float32:
		elem = Float32
	case []float64:
		elem = Float64
	}
	return &Buffer{elem: elem, data: data}
}

// Bytes wraps a byte slice as a one-dimensional uint8 buffer.
func Bytes(b []byte) *Buffer {
	return &Buffer{elem: Uint8, data: b}
}

// MakeBuffer allocates a zeroed buffer of n elements.
func MakeBuffer(elem ElemType, n int) *Buffer {
	var data any
	switch elem {
	case Int8:
		data = make([]int8, n)
	case Uint8:
		data = make([]uint8, n)
	case Int16:
		data = make([]int16, n)
	case Uint16:
		data = make([]uint16, n)
	case Int32:
		data = make([]int32, n)
	case Uint32:
		data = make([]uint32, n)
	case Float32:
		data = make([]float32, n)
	case Float64:
		data = make([]float64, n)
	default:
		return nil
	}
	return &Buffer{elem: elem, data: data}
}

// Reshape returns a buffer sharing b's storage with explicit dims. The dims
// are validated when the buffer is converted.
func (b *Buffer) Reshape(dims ...int) *Buffer {
	d := make([]int, len(dims))
	copy(d, dims)
	return &Buffer{elem: b.elem, data: b.data, dims: d}
}

// Elem returns the element type.
func (b *Buffer) Elem() ElemType { return b.elem }

// Data returns the backing slice ([]int8, []uint8, ... []float64).
func (b *Buffer) Data() any { return b.data }

// Explicit reports whether caller-supplied dims are attached.
func (b *Buffer) Explicit() bool { return b.dims != nil }

// Dims returns the dims, defaulting to one dimension of Len().
func (b *Buffer) Dims() []int {
	if b.dims == nil {
		return []int{b.Len()}
	}
	return b.dims
}

// Len returns the number of elements.
func (b *Buffer) Len() int {
	switch d := b.data.(type) {
	case []int8:
		return len(d)
	case []uint8:
		return len(d)
	case []int16:
		return len(d)
	case []uint16:
		return len(d)
	case []int32:
		return len(d)
	case []uint32:
		return len(d)
	case []float32:
		return len(d)
	case []float64:
		return len(d)
	}
	return 0
}

// Float returns element i widened to float64.
func (b *Buffer) Float(i int) float64 {
	switch d := b.data.(type) {
	case []int8:
		return float64(d[i])
	case []uint8:
		return float64(d[i])
	case []int16:
		return float64(d[i])
	case []uint16:
		return float64(d[i])
	case []int32:
		return float64(d[i])
	case []uint32:
		return float64(d[i])
	case []float32:
		return float64(d[i])
	case []float64:
		return d[i]
	}
	return 0
}

// Int returns element i as int64. Float elements are truncated.
func (b *Buffer) Int(i int) int64 {
	switch d := b.data.(type) {
	case []int8:
		return int64(d[i])
	case []uint8:
		return int64(d[i])
	case []int16:
		return int64(d[i])
	case []uint16:
		return int64(d[i])
	case []int32:
		return int64(d[i])
	case []uint32:
		return int64(d[i])
	case []float32:
		return int64(d[i])
	case []float64:
		return int64(d[i])
	}
	return 0
}

// At returns element i as a scalar Value.
func (b *Buffer) At(i int) Value {
	if b.elem.IsFloat() {
		return Float(b.Float(i))
	}
	return Int(b.Int(i))
}

// Bytes returns the backing bytes of a uint8 buffer, or nil.
func (b *Buffer) Bytes() []byte {
	if d, ok := b.data.([]uint8); ok {
		return d
	}
	return nil
}

func (*Buffer) Kind() Kind { return KindBuffer }
func (*Buffer) isValue()   {}

func (b *Buffer) String() string {
	var s strings.Builder
	s.WriteString(b.elem.String())
	if b.dims != nil {
		s.WriteByte('<')
		for i, d := range b.dims {
			if i > 0 {
				s.WriteByte('x')
			}
			s.WriteString(strconv.Itoa(d))
		}
		s.WriteByte('>')
	}
	s.WriteByte('[')
	for i := 0; i < b.Len(); i++ {
		if i > 0 {
			s.WriteString(", ")
		}
		s.WriteString(b.At(i).String())
	}
	s.WriteByte(']')
	return s.String()
}
