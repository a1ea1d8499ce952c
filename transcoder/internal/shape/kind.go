package shape

import "github.com/wippyai/numbridge/value"

// Kind is the element kind of a resolved array. Kinds form a small join
// lattice: Bool < Int < Float, typed buffer widths widen to Int or Float,
// and every other kind joins only with itself.
type Kind uint8

const (
	KindEmpty Kind = iota // no leaves seen; joins with anything
	KindBool
	KindInt
	KindFloat
	KindString
	KindNull
	KindDate
	KindRegex
	KindRef
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindFloat32
	KindFloat64
	KindNone // failed join
)

var kindNames = [...]string{
	KindEmpty:   "empty",
	KindBool:    "bool",
	KindInt:     "int",
	KindFloat:   "float",
	KindString:  "string",
	KindNull:    "null",
	KindDate:    "date",
	KindRegex:   "regex",
	KindRef:     "reference",
	KindInt8:    "int8",
	KindUint8:   "uint8",
	KindInt16:   "int16",
	KindUint16:  "uint16",
	KindInt32:   "int32",
	KindUint32:  "uint32",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindNone:    "none",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsTyped reports whether k is a fixed-width buffer element kind.
func (k Kind) IsTyped() bool {
	return k >= KindInt8 && k <= KindFloat64
}

// Elem returns the buffer element type of a typed kind.
func (k Kind) Elem() (value.ElemType, bool) {
	if !k.IsTyped() {
		return 0, false
	}
	return value.ElemType(k-KindInt8) + value.Int8, true
}

// FromElem returns the typed kind of a buffer element type.
func FromElem(e value.ElemType) Kind {
	return KindInt8 + Kind(e-value.Int8)
}

// numeric maps Bool/Int/Float and typed kinds onto the ordered numeric
// scale, 0 for non-numeric kinds.
func (k Kind) numeric() int {
	switch {
	case k == KindBool:
		return 1
	case k == KindInt:
		return 2
	case k == KindFloat:
		return 3
	case k == KindFloat32 || k == KindFloat64:
		return 3
	case k.IsTyped():
		return 2
	}
	return 0
}

// Join returns the least kind covering a and b, or KindNone.
func Join(a, b Kind) Kind {
	switch {
	case a == b:
		return a
	case a == KindEmpty:
		return b
	case b == KindEmpty:
		return a
	case a == KindNone || b == KindNone:
		return KindNone
	}
	na, nb := a.numeric(), b.numeric()
	if na == 0 || nb == 0 {
		return KindNone
	}
	switch max(na, nb) {
	case 3:
		return KindFloat
	case 2:
		return KindInt
	}
	return KindBool
}

// Of returns the leaf kind of a scalar host value. Arrays and buffers are
// not leaves and report KindNone.
func Of(v value.Value) Kind {
	switch v.(type) {
	case value.Null:
		return KindNull
	case value.Bool:
		return KindBool
	case value.Int:
		return KindInt
	case value.Float:
		return KindFloat
	case value.String:
		return KindString
	case value.Date:
		return KindDate
	case value.Regex:
		return KindRegex
	case *value.Ref:
		return KindRef
	}
	return KindNone
}
