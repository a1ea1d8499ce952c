// Package transcoder converts values between the host model (package value)
// and the runtime model (package engine).
//
// # Scalars
//
//	Host             Runtime
//	─────────────────────────────────────────
//	Null             nothing, ()
//	Bool             Bool
//	Int              Int64 (Int8..UInt32 decode to Int)
//	Float            Float64 (Float32 decodes to Float)
//	String           String, SubString (copied)
//	Date             DateTime (milliseconds)
//	Regex            Regex (pattern kept verbatim)
//	*Ref             any value without a host form
//
// UInt64 values above the int64 range decode to Float. Tuples flatten: the
// empty tuple is Null, a one-element tuple is its element, longer tuples
// become arrays.
//
// # Arrays
//
// Host arrays nest outermost axis first and the runtime stores them
// column-major, so host A[i][j] is runtime A(i,j). Before allocation the
// encoder resolves the array shape: sibling sub-arrays must agree in length
// (MalformedArray) and leaf kinds must join (UnsupportedElementKind):
//
//	bool + int   -> int
//	int + float  -> float
//	string + int -> unsupported
//	null + int   -> unsupported
//
// Typed buffers keep their width. A one-dimensional runtime array of a
// fixed-width numeric type decodes to a *value.Buffer; an n-dimensional
// one decodes to nested arrays with buffers at the innermost level. Int64,
// Bool, String and Any arrays decode to plain arrays.
//
// # Thread Safety
//
// Encoder and Decoder hold no state of their own. Decoding may mint
// references, so it runs where the References implementation allows
// runtime access.
package transcoder
