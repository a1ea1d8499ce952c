package transcoder

import (
	"context"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/errors"
	"github.com/wippyai/numbridge/value"
)

type fakeRefs struct {
	vals map[uint32]engine.Value
	next uint32
}

func newFakeRefs() *fakeRefs {
	return &fakeRefs{vals: map[uint32]engine.Value{}}
}

func (f *fakeRefs) Wrap(v engine.Value) (*value.Ref, error) {
	f.next++
	f.vals[f.next] = v
	return value.NewRef(f.next, f), nil
}

func (f *fakeRefs) Resolve(ref *value.Ref) (engine.Value, error) {
	v, ok := f.vals[ref.Handle()]
	if !ok {
		return nil, errors.ReferenceInvalid(ref.Handle())
	}
	return v, nil
}

func arr(vs ...value.Value) value.Array { return value.Array(vs) }

func ints(xs ...int64) value.Array {
	out := make(value.Array, len(xs))
	for i, x := range xs {
		out[i] = value.Int(x)
	}
	return out
}

func TestScalarRoundTrip(t *testing.T) {
	refs := newFakeRefs()
	enc, dec := NewEncoder(refs), NewDecoder(refs)

	tests := []struct {
		name string
		in   value.Value
	}{
		{"null", value.Null{}},
		{"true", value.Bool(true)},
		{"false", value.Bool(false)},
		{"zero", value.Int(0)},
		{"max safe", value.Int(value.MaxSafeInt)},
		{"min safe", value.Int(-value.MaxSafeInt)},
		{"max int64", value.Int(math.MaxInt64)},
		{"min int64", value.Int(math.MinInt64)},
		{"max float", value.Float(math.MaxFloat64)},
		{"smallest denormal", value.Float(math.SmallestNonzeroFloat64)},
		{"pi", value.Float(math.Pi)},
		{"+inf", value.Float(math.Inf(1))},
		{"-inf", value.Float(math.Inf(-1))},
		{"string", value.String("hello")},
		{"unicode", value.String("héllo, 世界")},
		{"empty string", value.String("")},
		{"date", value.NewDate(time.Date(2016, 1, 2, 3, 4, 5, 6e6, time.UTC))},
		{"regex", value.Regex(`(\d+)-(\w+)`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rv, err := enc.Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := dec.Decode(rv)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !value.Equal(got, tt.in) {
				t.Errorf("round trip = %v, want %v", got, tt.in)
			}
		})
	}
}

func TestNaNRoundTrip(t *testing.T) {
	enc, dec := NewEncoder(nil), NewDecoder(nil)
	rv, err := enc.Encode(value.Float(math.NaN()))
	if err != nil {
		t.Fatal(err)
	}
	got, err := dec.Decode(rv)
	if err != nil {
		t.Fatal(err)
	}
	f, ok := got.(value.Float)
	if !ok || !math.IsNaN(float64(f)) {
		t.Errorf("got %v, want NaN", got)
	}
}

func TestDecodeScalars(t *testing.T) {
	dec := NewDecoder(nil)
	tests := []struct {
		name string
		in   engine.Value
		want value.Value
	}{
		{"nothing", engine.Nothing{}, value.Null{}},
		{"int8", int8(-3), value.Int(-3)},
		{"uint8", uint8(255), value.Int(255)},
		{"int16", int16(-300), value.Int(-300)},
		{"uint32", uint32(math.MaxUint32), value.Int(math.MaxUint32)},
		{"uint64 small", uint64(7), value.Int(7)},
		{"uint64 large", uint64(math.MaxUint64), value.Float(float64(uint64(math.MaxUint64)))},
		{"float32", float32(1.5), value.Float(1.5)},
		{"substring", engine.SubString{Parent: "hello world", Offset: 6, Length: 5}, value.String("world")},
		{"datetime", engine.DateTime(1000), value.DateFromUnixMilli(1000)},
		{"empty tuple", engine.Tuple{}, value.Null{}},
		{"one tuple", engine.Tuple{int64(4)}, value.Int(4)},
		{"pair", engine.Tuple{int64(1), "a"}, arr(value.Int(1), value.String("a"))},
		{"nested tuple", engine.Tuple{int64(1), engine.Tuple{int64(2), int64(3)}}, ints(1, 2, 3)},
		{"nested empty", engine.Tuple{engine.Tuple{}}, value.Null{}},
		{"range", &engine.Range{Start: 1, Step: 1, Stop: 3}, ints(1, 2, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dec.Decode(tt.in)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !value.Equal(got, tt.want) {
				t.Errorf("Decode = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncodeArrayLayout(t *testing.T) {
	enc := NewEncoder(nil)
	tests := []struct {
		name string
		in   value.Value
		elem *engine.DataType
		dims []int
		data []engine.Value
	}{
		{"vector", ints(1, 2, 3), engine.Int64Type, []int{3}, []engine.Value{int64(1), int64(2), int64(3)}},
		{"matrix", arr(ints(1, 2, 3), ints(4, 5, 6)), engine.Int64Type, []int{2, 3},
			[]engine.Value{int64(1), int64(4), int64(2), int64(5), int64(3), int64(6)}},
		{"bool int", arr(value.Bool(true), value.Int(1)), engine.Int64Type, []int{2},
			[]engine.Value{int64(1), int64(1)}},
		{"bool float", arr(value.Bool(true), value.Float(1.1)), engine.Float64Type, []int{2},
			[]engine.Value{1.0, 1.1}},
		{"int float", arr(value.Int(1), value.Float(1.1)), engine.Float64Type, []int{2},
			[]engine.Value{1.0, 1.1}},
		{"bools", arr(value.Bool(true), value.Bool(false)), engine.BoolType, []int{2},
			[]engine.Value{true, false}},
		{"strings", arr(value.String("a"), value.String("b")), engine.StringType, []int{2},
			[]engine.Value{"a", "b"}},
		{"nulls", arr(value.Null{}, value.Null{}), engine.NothingType, []int{2},
			[]engine.Value{engine.Nothing{}, engine.Nothing{}}},
		{"empty", arr(), engine.AnyType, []int{0}, []engine.Value{}},
		{"bytes", value.Bytes([]byte{0, 1, 2}), engine.UInt8Type, []int{3},
			[]engine.Value{uint8(0), uint8(1), uint8(2)}},
		{"explicit dims", value.Bytes([]byte{0, 1, 2, 3, 4, 5}).Reshape(2, 3), engine.UInt8Type, []int{2, 3},
			[]engine.Value{uint8(0), uint8(1), uint8(2), uint8(3), uint8(4), uint8(5)}},
		{"buffer rows", arr(value.NewBuffer([]int16{1, 2}), value.NewBuffer([]int16{3, 4})), engine.Int16Type, []int{2, 2},
			[]engine.Value{int16(1), int16(3), int16(2), int16(4)}},
		{"mixed buffer rows", arr(value.NewBuffer([]int16{1, 2}), value.NewBuffer([]float32{3, 4})), engine.Float64Type, []int{2, 2},
			[]engine.Value{1.0, 3.0, 2.0, 4.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rv, err := enc.Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			a, ok := rv.(*engine.Array)
			if !ok {
				t.Fatalf("Encode returned %T", rv)
			}
			if a.Elem != tt.elem {
				t.Errorf("elem = %s, want %s", a.Elem, tt.elem)
			}
			if !slices.Equal(a.Dims, tt.dims) {
				t.Errorf("dims = %v, want %v", a.Dims, tt.dims)
			}
			if !slices.Equal(a.Data, tt.data) {
				t.Errorf("data = %v, want %v", a.Data, tt.data)
			}
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	enc := NewEncoder(nil)
	tests := []struct {
		name string
		in   value.Value
		kind errors.Kind
	}{
		{"jagged", arr(ints(1, 2, 3), ints(4, 5)), errors.KindMalformedArray},
		{"jagged deep", arr(ints(1, 2, 3), arr(ints(4, 5, 6), ints(2))), errors.KindMalformedArray},
		{"bool string", arr(value.Bool(true), value.String("x"), value.Int(1), value.Float(1.1)), errors.KindUnsupportedElementKind},
		{"bool null", arr(value.Bool(true), value.Null{}, value.Int(1), value.Float(1.1)), errors.KindUnsupportedElementKind},
		{"bad dims", value.Bytes([]byte{1, 2, 3}).Reshape(2, 2), errors.KindMalformedArray},
		{"overflowing dims", value.Bytes(nil).Reshape(1<<62, 4), errors.KindMalformedArray},
		{"bad regex", value.Regex("("), errors.KindInvalidInput},
		{"ref without table", value.NewRef(1, nil), errors.KindReferenceInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Encode(tt.in)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.KindOf(err); got != tt.kind {
				t.Errorf("kind = %q, want %q (%v)", got, tt.kind, err)
			}
		})
	}
}

func TestMalformedMessage(t *testing.T) {
	_, err := NewEncoder(nil).Encode(arr(ints(1, 2, 3), ints(4, 5)))
	e, ok := err.(*errors.Error)
	if !ok {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if e.Phase != errors.PhaseShape {
		t.Errorf("phase = %s", e.Phase)
	}
}

func TestDecodeArrays(t *testing.T) {
	dec := NewDecoder(nil)
	u8 := func(xs ...uint8) []engine.Value {
		out := make([]engine.Value, len(xs))
		for i, x := range xs {
			out[i] = x
		}
		return out
	}
	tests := []struct {
		name string
		in   *engine.Array
		want value.Value
	}{
		{"bytes 1-d", &engine.Array{Elem: engine.UInt8Type, Dims: []int{3}, Data: u8(1, 2, 3)},
			value.Bytes([]byte{1, 2, 3})},
		{"reshape 2x3", &engine.Array{Elem: engine.UInt8Type, Dims: []int{2, 3}, Data: u8(0, 1, 2, 3, 4, 5)},
			arr(value.Bytes([]byte{0, 2, 4}), value.Bytes([]byte{1, 3, 5}))},
		{"float64 vector", &engine.Array{Elem: engine.Float64Type, Dims: []int{2}, Data: []engine.Value{1.5, 2.5}},
			value.NewBuffer([]float64{1.5, 2.5})},
		{"int64 matrix", &engine.Array{Elem: engine.Int64Type, Dims: []int{2, 2},
			Data: []engine.Value{int64(1), int64(3), int64(2), int64(4)}},
			arr(ints(1, 2), ints(3, 4))},
		{"uint64 vector", &engine.Array{Elem: engine.UInt64Type, Dims: []int{2},
			Data: []engine.Value{uint64(1), uint64(math.MaxUint64)}},
			arr(value.Int(1), value.Float(float64(uint64(math.MaxUint64))))},
		{"bools", &engine.Array{Elem: engine.BoolType, Dims: []int{2}, Data: []engine.Value{true, false}},
			arr(value.Bool(true), value.Bool(false))},
		{"substrings", &engine.Array{Elem: engine.SubStringType, Dims: []int{2}, Data: []engine.Value{
			engine.SubString{Parent: "a b", Offset: 0, Length: 1},
			engine.SubString{Parent: "a b", Offset: 2, Length: 1},
		}}, arr(value.String("a"), value.String("b"))},
		{"empty any", &engine.Array{Elem: engine.AnyType, Dims: []int{0}}, arr()},
		{"empty float", &engine.Array{Elem: engine.Float64Type, Dims: []int{0}}, value.NewBuffer([]float64{})},
		{"empty rows", &engine.Array{Elem: engine.Int64Type, Dims: []int{2, 0}}, arr(arr(), arr())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dec.Decode(tt.in)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !value.Equal(got, tt.want) {
				t.Errorf("Decode = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeFourDims(t *testing.T) {
	data := make([]engine.Value, 16)
	for i := range data {
		data[i] = uint8(i)
	}
	got, err := NewDecoder(nil).Decode(&engine.Array{Elem: engine.UInt8Type, Dims: []int{2, 2, 2, 2}, Data: data})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				buf := got.(value.Array)[i].(value.Array)[j].(value.Array)[k].(*value.Buffer)
				for l := 0; l < 2; l++ {
					want := i + 2*j + 4*k + 8*l
					if int(buf.Int(l)) != want {
						t.Errorf("[%d][%d][%d][%d] = %d, want %d", i, j, k, l, buf.Int(l), want)
					}
				}
			}
		}
	}
}

func TestDecodeMismatchedElements(t *testing.T) {
	a := &engine.Array{Elem: engine.Int8Type, Dims: []int{2}, Data: []engine.Value{int8(1), int64(2)}}
	if _, err := NewDecoder(nil).Decode(a); !errors.HasKind(err, errors.KindInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestReferences(t *testing.T) {
	refs := newFakeRefs()
	enc, dec := NewEncoder(refs), NewDecoder(refs)

	typ := &engine.DataType{Name: "P", Fields: []string{"x"}}
	s := &engine.Struct{Type: typ, Fields: []engine.Value{int64(1)}}

	hv, err := dec.Decode(s)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ref, ok := hv.(*value.Ref)
	if !ok {
		t.Fatalf("Decode returned %T, want *value.Ref", hv)
	}

	rv, err := enc.Encode(ref)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if rv != s {
		t.Errorf("Encode(ref) = %v, want the wrapped struct", rv)
	}

	rv, err = enc.Encode(arr(ref, ref))
	if err != nil {
		t.Fatalf("Encode array of refs: %v", err)
	}
	a := rv.(*engine.Array)
	if a.Elem != engine.AnyType || a.Data[0] != s || a.Data[1] != s {
		t.Errorf("array of refs = %+v", a)
	}

	stale := value.NewRef(99, refs)
	if _, err := enc.Encode(stale); !errors.HasKind(err, errors.KindReferenceInvalid) {
		t.Errorf("expected reference invalid, got %v", err)
	}

	if _, err := NewDecoder(nil).Decode(s); !errors.HasKind(err, errors.KindUnsupported) {
		t.Errorf("expected unsupported without a table, got %v", err)
	}
}

func TestEngineRoundTrip(t *testing.T) {
	e, err := engine.New()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	call := func(name string, args ...engine.Value) engine.Value {
		t.Helper()
		fn, ok := e.Base().Get(name)
		if !ok {
			t.Fatalf("%s not defined", name)
		}
		rv, err := e.Call(ctx, fn, args)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		return rv
	}
	enc, dec := NewEncoder(nil), NewDecoder(nil)

	inputs := []value.Value{
		arr(ints(1, 2, 3), ints(4, 5, 6)),
		arr(arr(value.String("a"), value.String("b")), arr(value.String("c"), value.String("d"))),
		arr(arr(ints(1, 2), ints(3, 4)), arr(ints(5, 6), ints(7, 8))),
		value.Bytes([]byte{0, 1, 2, 3, 255}),
	}
	for _, in := range inputs {
		rv, err := enc.Encode(in)
		if err != nil {
			t.Fatalf("Encode(%v): %v", in, err)
		}
		got, err := dec.Decode(call("identity", rv))
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !value.Equal(got, in) {
			t.Errorf("identity(%v) = %v", in, got)
		}
	}

	bytes, _ := enc.Encode(value.Bytes([]byte{0, 1, 2, 3, 4, 5}))
	got, err := dec.Decode(call("reshape", bytes, int64(2), int64(3)))
	if err != nil {
		t.Fatal(err)
	}
	want := arr(value.Bytes([]byte{0, 2, 4}), value.Bytes([]byte{1, 3, 5}))
	if !value.Equal(got, want) {
		t.Errorf("reshape = %v, want %v", got, want)
	}
}
