package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode    Phase = "encode"    // host to runtime
	PhaseDecode    Phase = "decode"    // runtime to host
	PhaseShape     Phase = "shape"     // array shape resolution
	PhaseResolve   Phase = "resolve"   // namespace name resolution
	PhaseReference Phase = "reference" // opaque reference lifecycle
	PhaseRuntime   Phase = "runtime"   // runtime execution
	PhaseLoad      Phase = "load"      // script and module loading
	PhaseConfig    Phase = "config"    // configuration
)

// Kind categorizes the error
type Kind string

const (
	KindMalformedArray         Kind = "malformed_array"
	KindUnsupportedElementKind Kind = "unsupported_element_kind"
	KindUndefinedBinding       Kind = "undefined_binding"
	KindRuntimeDiagnostic      Kind = "runtime_diagnostic"
	KindReferenceInvalid       Kind = "reference_invalid"
	KindModuleNotFound         Kind = "module_not_found"
	KindUnsupported            Kind = "unsupported"
	KindOverflow               Kind = "overflow"
	KindInvalidInput           Kind = "invalid_input"
	KindNotInitialized         Kind = "not_initialized"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value       any
	Cause       error
	Phase       Phase
	Kind        Kind
	HostType    string
	RuntimeType string
	Detail      string
	Path        []string
}

// Verbatim reports whether the error renders the runtime's own message
// unchanged. Diagnostics raised by the runtime and module-not-found
// conditions keep the runtime's wording, which varies across versions.
func (e *Error) Verbatim() bool {
	return (e.Kind == KindRuntimeDiagnostic || e.Kind == KindModuleNotFound) && e.Detail != ""
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Verbatim() {
		return e.Detail
	}

	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.HostType != "" || e.RuntimeType != "" {
		b.WriteString(": ")
		if e.HostType != "" && e.RuntimeType != "" {
			b.WriteString("host type ")
			b.WriteString(e.HostType)
			b.WriteString(", runtime type ")
			b.WriteString(e.RuntimeType)
		} else if e.HostType != "" {
			b.WriteString("host type ")
			b.WriteString(e.HostType)
		} else {
			b.WriteString("runtime type ")
			b.WriteString(e.RuntimeType)
		}
	}

	if e.Detail != "" {
		if e.HostType != "" || e.RuntimeType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	// Resolution names the full requested path; the failing segment stays
	// reachable through Unwrap only.
	if e.Cause != nil && e.Kind != KindUndefinedBinding {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HasKind reports whether err carries the given kind, regardless of phase.
func HasKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the element path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// HostType sets the host type name
func (b *Builder) HostType(t string) *Builder {
	b.err.HostType = t
	return b
}

// RuntimeType sets the runtime type name
func (b *Builder) RuntimeType(t string) *Builder {
	b.err.RuntimeType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// MalformedArray creates a jagged or mis-dimensioned array error
func MalformedArray(path []string, detail string) *Error {
	return &Error{
		Phase:  PhaseShape,
		Kind:   KindMalformedArray,
		Path:   path,
		Detail: detail,
	}
}

// UnsupportedElementKind creates an error for an element-kind join that has
// no runtime array representation
func UnsupportedElementKind(path []string, left, right string) *Error {
	return &Error{
		Phase:  PhaseShape,
		Kind:   KindUnsupportedElementKind,
		Path:   path,
		Detail: fmt.Sprintf("cannot join element kinds %s and %s", left, right),
	}
}

// UndefinedBinding creates a name resolution error. The message always names
// the full requested path; cause is not rendered.
func UndefinedBinding(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUndefinedBinding,
		Detail: fmt.Sprintf("method %s is undefined", path),
		Value:  path,
		Cause:  cause,
	}
}

// Diagnostic wraps an error raised by the runtime. The runtime's message is
// kept as is.
func Diagnostic(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindRuntimeDiagnostic,
		Detail: cause.Error(),
		Cause:  cause,
	}
}

// ReferenceInvalid creates an error for use of a released or unknown handle
func ReferenceInvalid(handle uint32) *Error {
	return &Error{
		Phase:  PhaseReference,
		Kind:   KindReferenceInvalid,
		Detail: fmt.Sprintf("reference %d is no longer valid", handle),
		Value:  handle,
	}
}

// ModuleNotFound wraps a loader not-found condition, keeping its message.
func ModuleNotFound(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindModuleNotFound,
		Detail: cause.Error(),
		Cause:  cause,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:       phase,
		Kind:        KindOverflow,
		Path:        path,
		RuntimeType: targetType,
		Detail:      fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:       value,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotInitialized creates an error for use of a closed or missing component
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}
