// Package value defines the host-side values exchanged with the embedded
// runtime.
//
// A Value is one of a closed set of variants:
//
//	Null      nothing / ()
//	Bool      bool
//	Int       int64, exact over the full range
//	Float     float64
//	String    string
//	Array     nested []Value, rectangular when converted
//	*Buffer   flat typed numeric buffer (int8 .. float64), optional dims
//	Date      millisecond timestamp
//	Regex     pattern text
//	*Ref      opaque proxy for a runtime-resident object
//
// Code converting values switches on the concrete type and handles every
// variant explicitly; nothing is coerced implicitly.
//
// FromGo and ToGo bridge plain Go data (for example decoded YAML or JSON) to
// and from Values:
//
//	v, err := value.FromGo([]any{1, 2.5, "x"})
//	back := value.ToGo(v) // []any{int64(1), 2.5, "x"}
package value
