package value

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindBuffer
	KindDate
	KindRegex
	KindReference
)

var kindNames = [...]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindInt:       "int",
	KindFloat:     "float",
	KindString:    "string",
	KindArray:     "array",
	KindBuffer:    "buffer",
	KindDate:      "date",
	KindRegex:     "regex",
	KindReference: "reference",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a host-side value exchanged with the runtime. The set of
// implementations is closed; switch on the concrete type or on Kind().
type Value interface {
	Kind() Kind
	String() string
	isValue()
}

// MaxSafeInt is the largest integer magnitude every host numeric path
// represents exactly (2^53).
const MaxSafeInt = 1 << 53

// Null is the absent value. It maps to the runtime's nothing/() singleton.
type Null struct{}

// Bool is a host boolean.
type Bool bool

// Int is a host integer.
type Int int64

// Float is a host double.
type Float float64

// String is a host string.
type String string

// Array is a nested host array. Rectangularity is checked on conversion,
// not on construction.
type Array []Value

// Regex is a regular expression carried by its pattern text.
type Regex string

// Date is a point in time with millisecond precision, the resolution the
// runtime stores.
type Date struct {
	ms int64
}

// NewDate truncates t to milliseconds.
func NewDate(t time.Time) Date {
	return Date{ms: t.UnixMilli()}
}

// DateFromUnixMilli builds a Date from milliseconds since the Unix epoch.
func DateFromUnixMilli(ms int64) Date {
	return Date{ms: ms}
}

// UnixMilli returns milliseconds since the Unix epoch.
func (d Date) UnixMilli() int64 { return d.ms }

// Time returns the date as a UTC time.Time.
func (d Date) Time() time.Time { return time.UnixMilli(d.ms).UTC() }

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Int) Kind() Kind    { return KindInt }
func (Float) Kind() Kind  { return KindFloat }
func (String) Kind() Kind { return KindString }
func (Array) Kind() Kind  { return KindArray }
func (Regex) Kind() Kind  { return KindRegex }
func (Date) Kind() Kind   { return KindDate }

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Int) isValue()    {}
func (Float) isValue()  {}
func (String) isValue() {}
func (Array) isValue()  {}
func (Regex) isValue()  {}
func (Date) isValue()   {}

func (Null) String() string { return "null" }

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

func (f Float) String() string {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (s String) String() string { return strconv.Quote(string(s)) }

func (r Regex) String() string { return "/" + string(r) + "/" }

func (d Date) String() string { return d.Time().Format("2006-01-02T15:04:05.000Z") }

func (a Array) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, el := range a {
		if i > 0 {
			b.WriteString(", ")
		}
		if el == nil {
			b.WriteString("<nil>")
			continue
		}
		b.WriteString(el.String())
	}
	b.WriteByte(']')
	return b.String()
}

// Ref is an opaque proxy for a runtime-resident object with no host
// representation. It can only be passed back into calls or released.
type Ref struct {
	owner  any
	handle uint32
}

// NewRef is used by the reference manager to mint proxies.
func NewRef(handle uint32, owner any) *Ref {
	return &Ref{handle: handle, owner: owner}
}

// Handle returns the table handle backing the proxy.
func (r *Ref) Handle() uint32 { return r.handle }

// Owner returns the manager that issued the proxy.
func (r *Ref) Owner() any { return r.owner }

func (*Ref) Kind() Kind { return KindReference }
func (*Ref) isValue()   {}

func (r *Ref) String() string {
	return "Ref(" + strconv.FormatUint(uint64(r.handle), 10) + ")"
}
