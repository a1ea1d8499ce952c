package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/wippyai/numbridge/engine/internal/ast"
)

// sprintf implements printf-style formatting with the conversions
// d i u x X o c f F e E g G s and %%.
func (e *Engine) sprintf(format string, args []Value) (string, error) {
	var b strings.Builder
	next := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			b.WriteByte('%')
			i++
			continue
		}

		j := i + 1
		for j < len(format) && strings.IndexByte("-+ #0123456789.", format[j]) >= 0 {
			j++
		}
		if j >= len(format) {
			return "", e.throw("ArgumentError", "invalid format string: %q", format)
		}
		flags, verb := format[i+1:j], format[j]
		i = j

		if next >= len(args) {
			return "", e.throw("ArgumentError", "@sprintf: wrong number of arguments")
		}
		arg := args[next]
		next++

		s, err := e.formatOne(flags, verb, arg)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	if next != len(args) {
		return "", e.throw("ArgumentError", "@sprintf: wrong number of arguments")
	}
	return b.String(), nil
}

func (e *Engine) formatOne(flags string, verb byte, arg Value) (string, error) {
	switch verb {
	case 'd', 'i', 'u':
		n, err := e.formatInt(arg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%"+flags+"d", n), nil
	case 'x', 'X', 'o':
		n, err := e.formatInt(arg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%"+flags+string(verb), n), nil
	case 'c':
		n, err := e.formatInt(arg)
		if err != nil {
			if s, ok := isStringish(arg); ok {
				return fmt.Sprintf("%"+flags+"s", s), nil
			}
			return "", err
		}
		return fmt.Sprintf("%"+flags+"c", rune(n)), nil
	case 'f', 'F', 'e', 'E', 'g', 'G':
		f, ok := toFloat(arg)
		if !ok {
			return "", e.throw("ArgumentError", "@sprintf: %%%c requires a number, got %s", verb, TypeOf(arg).Name)
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Sprintf("%"+strings.TrimRight(flags, ".0123456789")+"s", formatFloat(f)), nil
		}
		if verb == 'F' {
			verb = 'f'
		}
		return fmt.Sprintf("%"+flags+string(verb), f), nil
	case 's':
		return fmt.Sprintf("%"+flags+"s", display(arg)), nil
	}
	return "", e.throw("ArgumentError", "@sprintf: invalid conversion %%%c", verb)
}

func (e *Engine) formatInt(arg Value) (int64, error) {
	if n, ok := toInt(arg); ok {
		return n, nil
	}
	switch x := arg.(type) {
	case bool:
		return asInt64(x), nil
	case uint64:
		return int64(x), nil
	case float32, float64:
		f := asFloat64(x)
		if f == math.Trunc(f) {
			return int64(f), nil
		}
		return 0, e.inexact(Int64Type, arg)
	}
	return 0, e.throw("ArgumentError", "@sprintf: integer conversion of %s", TypeOf(arg).Name)
}

// macro evaluates the macros the runtime provides: @sprintf, @printf and
// a few pass-through ones.
func (in *interp) macro(x *ast.MacroCall, s *scope) (Value, error) {
	switch x.Name {
	case "sprintf", "printf":
		if len(x.Args) == 0 {
			return nil, in.e.throw("ArgumentError", "@%s: called with zero arguments", x.Name)
		}
		lit, ok := x.Args[0].(*ast.StringLit)
		if !ok {
			return nil, in.e.throw("ArgumentError", "@%s: first argument must be a format string", x.Name)
		}
		args, err := in.evalArgs(x.Args[1:], s)
		if err != nil {
			return nil, err
		}
		out, err := in.e.sprintf(lit.Value, args)
		if err != nil {
			return nil, err
		}
		if x.Name == "printf" {
			fmt.Fprint(in.e.out, out)
			return Nothing{}, nil
		}
		return out, nil
	case "time", "inbounds", "inline", "fastmath", "simd":
		if len(x.Args) != 1 {
			return nil, in.e.throw("ArgumentError", "@%s expects one expression", x.Name)
		}
		return in.eval(x.Args[0], s)
	}
	return nil, in.e.throw("UndefVarError", "@%s not defined", x.Name)
}
