// Package engine provides the reference runtime host: a small interpreter
// for a Julia-flavoured numeric language that the bridge drives.
//
// # Architecture
//
// The engine is single-threaded. One Engine owns a module tree and a
// retain table; the bridge serializes every call onto one goroutine.
//
//	Core              builtin types, typeof, isa, tuple, include
//	Base              standard library, operators as functions, VERSION
//	Base.LinAlg       dot, inv, det, norm, transpose
//	Base.LinAlg.BLAS  dot
//	Base.Dates        now, DateTime, datetime2unix, unix2datetime
//	Main              user code; uses Base and Core
//
// # Values
//
// Runtime values are plain Go values: bool, the sized integer and float
// types, string, and the engine's own types (Nothing, SubString, Tuple,
// *Array, *Range, DateTime, *Regex, *RegexMatch, *Struct, *Function,
// *Module, *DataType).
//
// Arrays are column-major: the element at 1-based (i, j) of an m x n array
// lives at Data[(i-1) + (j-1)*m].
//
// # Diagnostics
//
// Runtime errors are *Exception values rendered the way the runtime prints
// them, "UndefVarError: x not defined". Engines created with a version
// below 0.4 use the older constructor style, UndefVarError("x not defined").
//
// # Execution
//
// Execute parses source and evaluates it in a module; Call invokes a
// function or type constructor with converted arguments. Both honor
// context cancellation inside loops and calls.
package engine
