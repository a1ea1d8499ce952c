package value

import (
	"math"
	"regexp"
	"testing"
	"time"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Null{}, "null"},
		{Bool(true), "bool"},
		{Int(1), "int"},
		{Float(1), "float"},
		{String("x"), "string"},
		{Array{}, "array"},
		{Bytes(nil), "buffer"},
		{NewDate(time.Unix(0, 0)), "date"},
		{Regex("a"), "regex"},
		{NewRef(1, nil), "reference"},
	}
	for _, tt := range tests {
		if got := tt.v.Kind().String(); got != tt.want {
			t.Errorf("%T kind = %q, want %q", tt.v, got, tt.want)
		}
	}
	if Kind(200).String() != "unknown" {
		t.Error("out of range kind should be unknown")
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Null{}, "null"},
		{Int(-42), "-42"},
		{Float(1), "1.0"},
		{Float(0.1), "0.1"},
		{Float(math.Inf(1)), "+Inf"},
		{String("a\"b"), `"a\"b"`},
		{Array{Int(1), Array{Bool(false)}}, "[1, [false]]"},
		{NewBuffer([]float64{1, 2.5}), "float64[1.0, 2.5]"},
		{Bytes([]byte{0, 1, 2, 3}).Reshape(2, 2), "uint8<2x2>[0, 1, 2, 3]"},
		{Regex("a+"), "/a+/"},
		{DateFromUnixMilli(1500), "1970-01-01T00:00:01.500Z"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestBuffer(t *testing.T) {
	b := NewBuffer([]int16{-1, 2, 300})
	if b.Elem() != Int16 {
		t.Fatalf("Elem = %v, want int16", b.Elem())
	}
	if b.Len() != 3 {
		t.Fatalf("Len = %d", b.Len())
	}
	if b.Explicit() {
		t.Error("new buffer should not carry explicit dims")
	}
	if d := b.Dims(); len(d) != 1 || d[0] != 3 {
		t.Errorf("Dims = %v, want [3]", d)
	}
	if b.Int(2) != 300 || b.Float(0) != -1 {
		t.Errorf("element access wrong: %d %f", b.Int(2), b.Float(0))
	}
	if b.At(1) != Int(2) {
		t.Errorf("At(1) = %v", b.At(1))
	}
	if b.Bytes() != nil {
		t.Error("Bytes() on int16 buffer should be nil")
	}

	r := b.Reshape(3, 1)
	if !r.Explicit() || r.Dims()[0] != 3 || r.Dims()[1] != 1 {
		t.Errorf("Reshape dims = %v", r.Dims())
	}

	f := NewBuffer([]float32{1.5})
	if f.At(0) != Float(1.5) {
		t.Errorf("float32 At = %v", f.At(0))
	}

	m := MakeBuffer(Uint32, 4)
	if m.Len() != 4 || m.Elem() != Uint32 {
		t.Errorf("MakeBuffer = %v", m)
	}
	if MakeBuffer(ElemType(0), 1) != nil {
		t.Error("MakeBuffer with invalid elem should be nil")
	}
}

func TestElemType(t *testing.T) {
	sizes := map[ElemType]int{
		Int8: 1, Uint8: 1, Int16: 2, Uint16: 2,
		Int32: 4, Uint32: 4, Float32: 4, Float64: 8,
	}
	for e, want := range sizes {
		if e.Size() != want {
			t.Errorf("%v size = %d, want %d", e, e.Size(), want)
		}
	}
	if !Float32.IsFloat() || Int32.IsFloat() {
		t.Error("IsFloat wrong")
	}
}

func TestFromGo(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	tests := []struct {
		in   any
		want Value
	}{
		{nil, Null{}},
		{true, Bool(true)},
		{7, Int(7)},
		{int64(MaxSafeInt), Int(MaxSafeInt)},
		{uint32(5), Int(5)},
		{2.5, Float(2.5)},
		{"s", String("s")},
		{[]any{1, "a", nil}, Array{Int(1), String("a"), Null{}}},
		{[]string{"a", "b"}, Array{String("a"), String("b")}},
		{[]byte{1, 2}, Bytes([]byte{1, 2})},
		{[]float64{1}, NewBuffer([]float64{1})},
		{now, DateFromUnixMilli(1700000000123)},
		{regexp.MustCompile("a|b"), Regex("a|b")},
		{Int(3), Int(3)},
	}
	for _, tt := range tests {
		got, err := FromGo(tt.in)
		if err != nil {
			t.Fatalf("FromGo(%v): %v", tt.in, err)
		}
		if !Equal(got, tt.want) {
			t.Errorf("FromGo(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := FromGo(uint64(math.MaxUint64)); err == nil {
		t.Error("expected overflow error for MaxUint64")
	}
	if _, err := FromGo(map[string]int{}); err == nil {
		t.Error("expected error for map")
	}
	if _, err := FromGo([]any{1, struct{}{}}); err == nil {
		t.Error("expected error for nested unsupported element")
	}
}

func TestToGo(t *testing.T) {
	in := Array{Int(1), Float(2), String("x"), Null{}, Bool(true), Regex("r")}
	got := ToGo(in).([]any)
	want := []any{int64(1), 2.0, "x", nil, true, "r"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ToGo[%d] = %#v, want %#v", i, got[i], want[i])
		}
	}
	d := ToGo(DateFromUnixMilli(0)).(time.Time)
	if !d.Equal(time.Unix(0, 0)) {
		t.Errorf("ToGo(date) = %v", d)
	}
	b := ToGo(Bytes([]byte{9})).([]byte)
	if len(b) != 1 || b[0] != 9 {
		t.Errorf("ToGo(bytes) = %v", b)
	}
}

func TestEqual(t *testing.T) {
	owner := new(int)
	tests := []struct {
		a, b Value
		want bool
	}{
		{Int(1), Int(1), true},
		{Int(1), Float(1), false},
		{Float(math.NaN()), Float(math.NaN()), false},
		{Array{Int(1)}, Array{Int(1)}, true},
		{Array{Int(1)}, Array{Int(1), Int(2)}, false},
		{NewBuffer([]float64{1, 2}), NewBuffer([]float64{1, 2}), true},
		{NewBuffer([]float64{1, 2}), NewBuffer([]float32{1, 2}), false},
		{Bytes([]byte{1, 2}), Bytes([]byte{1, 2}).Reshape(1, 2), false},
		{NewRef(1, owner), NewRef(1, owner), true},
		{NewRef(1, owner), NewRef(2, owner), false},
		{nil, nil, true},
		{nil, Null{}, false},
	}
	for i, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("case %d: Equal(%v, %v) = %v, want %v", i, tt.a, tt.b, got, tt.want)
		}
	}
}
