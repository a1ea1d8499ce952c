// Package errors provides structured error types for the bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: element path, host/runtime type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindOverflow).
//		Path("arg", "0").
//		HostType("int").
//		RuntimeType("Int8").
//		Detail("value out of range").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MalformedArray(path, "sibling length 2, want 3")
//	err := errors.UndefinedBinding("Base.nope", nil)
//
// Runtime diagnostics and module-not-found errors render the runtime's message
// unchanged; every other kind renders as "[phase] kind at path: detail".
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
