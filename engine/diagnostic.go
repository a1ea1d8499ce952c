package engine

import (
	"fmt"
	"strconv"
)

// Exception is a runtime diagnostic. Its message is what the runtime
// itself would print, and the bridge passes it through unchanged.
type Exception struct {
	Type   string
	Msg    string
	legacy bool
}

// Error renders "Type: msg", or the pre-0.4 constructor style
// Type("msg"). ErrorException prints its message alone.
func (x *Exception) Error() string {
	if x.Type == "ErrorException" {
		return x.Msg
	}
	if x.legacy {
		return x.Type + "(" + strconv.Quote(x.Msg) + ")"
	}
	if x.Msg == "" {
		return x.Type + ":"
	}
	return x.Type + ": " + x.Msg
}

func (e *Engine) throw(typ, format string, args ...any) error {
	return &Exception{Type: typ, Msg: fmt.Sprintf(format, args...), legacy: e.legacy}
}

// FormatDiagnostic renders a diagnostic of the given type in this engine's
// version-dependent style.
func (e *Engine) FormatDiagnostic(typ, msg string) string {
	return (&Exception{Type: typ, Msg: msg, legacy: e.legacy}).Error()
}

func (e *Engine) undefVar(name string) error {
	return e.throw("UndefVarError", "%s not defined", name)
}

func (e *Engine) methodError(name string, args []Value) error {
	sig := ""
	for i, a := range args {
		if i > 0 {
			sig += ", "
		}
		sig += "::" + TypeOf(a).Name
	}
	return e.throw("MethodError", "no method matching %s(%s)", name, sig)
}

func (e *Engine) boundsError(v Value, idx []int) error {
	s := ""
	for i, x := range idx {
		if i > 0 {
			s += ","
		}
		s += strconv.Itoa(x)
	}
	return e.throw("BoundsError", "attempt to access %s at index [%s]", TypeOf(v).Name, s)
}

func (e *Engine) typeError(fn, expected string, got Value) error {
	return e.throw("TypeError", "%s: expected %s, got %s", fn, expected, TypeOf(got).Name)
}

func (e *Engine) inexact(t *DataType, v Value) error {
	return e.throw("InexactError", "%s(%s)", t.Name, show(v))
}

// control flow signals
type breakSignal struct{}

func (breakSignal) Error() string { return "break outside a loop" }

type continueSignal struct{}

func (continueSignal) Error() string { return "continue outside a loop" }

type returnSignal struct {
	v Value
}

func (returnSignal) Error() string { return "return outside a function" }
