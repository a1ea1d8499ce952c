// Package numbridge is a bidirectional value-marshaling and invocation
// bridge between Go and an embedded numeric runtime.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	numbridge/           Root package, documentation only
//	├── runtime/         Public API: Eval, Invoke, Import, scripts, threading
//	├── engine/          Reference runtime host (Julia-flavoured interpreter)
//	├── linker/          Dotted-path name resolution with a resolution cache
//	├── transcoder/      Value conversion between Go and the runtime
//	│   └── internal/shape/  Array shape and element kind resolution
//	├── resource/        Opaque reference handle table and lifecycle
//	├── value/           Host value model (scalars, arrays, typed buffers)
//	├── loader/          Source lookup by path
//	├── config/          YAML configuration and logger construction
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
//	eng, _ := engine.New()
//	rt, err := runtime.New(eng)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	v, err := rt.Invoke(ctx, "sum", value.Array{value.Int(1), value.Int(2)})
//	fmt.Println(v) // 3
//
// # Value Model
//
// Host values are null, bool, int, float, string, date, regex, nested
// arrays, typed numeric buffers and opaque references:
//
//   - Nested arrays must be rectangular; their element kinds join
//     bool < int < float, anything else must match exactly
//   - Arrays are laid out column-major in the runtime: host [i][j] of an
//     m x n array is element i + m*j
//   - One-dimensional runtime arrays of narrow numeric types come back as
//     typed buffers
//   - Runtime values with no host form come back as references that pin
//     the value until released
//
// # Thread Safety
//
// Runtime is safe for concurrent use. All host interaction is serialized
// onto one worker goroutine; the engine itself is not thread-safe.
package numbridge
