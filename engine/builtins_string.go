package engine

import (
	"strings"
	"unicode"
)

func (e *Engine) installStrings(b *Module) {
	e.def(b, "split", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("split", args, 1, 2); err != nil {
			return nil, err
		}
		s, ok := isStringish(args[0])
		if !ok {
			return nil, e.methodError("split", args)
		}
		if len(args) == 1 {
			return e.splitFields(s), nil
		}
		switch d := args[1].(type) {
		case *Regex:
			return e.splitRegex(s, d), nil
		default:
			sep, ok := isStringish(d)
			if !ok {
				return nil, e.methodError("split", args)
			}
			return e.splitString(s, sep), nil
		}
	})
	e.def(b, "join", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("join", args, 1, 2); err != nil {
			return nil, err
		}
		sep := ""
		if len(args) == 2 {
			var ok bool
			if sep, ok = isStringish(args[1]); !ok {
				return nil, e.methodError("join", args)
			}
		}
		var parts []string
		if err := e.each(args[0], func(v Value) error {
			parts = append(parts, display(v))
			return nil
		}); err != nil {
			return nil, err
		}
		return strings.Join(parts, sep), nil
	})
	e.def(b, "match", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("match", args, 2, 3); err != nil {
			return nil, err
		}
		re, ok := args[0].(*Regex)
		s, sok := isStringish(args[1])
		if !ok || !sok {
			return nil, e.methodError("match", args)
		}
		start := 0
		if len(args) == 3 {
			i, ok := toInt(args[2])
			if !ok || i < 1 || int(i) > len(s)+1 {
				return nil, e.boundsError(s, []int{int(i)})
			}
			start = int(i) - 1
		}
		return regexMatch(re, s, start), nil
	})
	e.def(b, "ismatch", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("ismatch", args, 2, 2); err != nil {
			return nil, err
		}
		re, ok := args[0].(*Regex)
		s, sok := isStringish(args[1])
		if !ok || !sok {
			return nil, e.methodError("ismatch", args)
		}
		return re.re.MatchString(s), nil
	})
	e.def(b, "replace", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("replace", args, 3, 3); err != nil {
			return nil, err
		}
		s, ok := isStringish(args[0])
		repl, rok := isStringish(args[2])
		if !ok || !rok {
			return nil, e.methodError("replace", args)
		}
		if re, ok := args[1].(*Regex); ok {
			return re.re.ReplaceAllLiteralString(s, repl), nil
		}
		pat, ok := isStringish(args[1])
		if !ok {
			return nil, e.methodError("replace", args)
		}
		return strings.ReplaceAll(s, pat, repl), nil
	})

	strFunc := func(name string, fn func(string) string) {
		e.def(b, name, func(_ *callCtx, args []Value) (Value, error) {
			if err := e.arity(name, args, 1, 1); err != nil {
				return nil, err
			}
			s, ok := isStringish(args[0])
			if !ok {
				return nil, e.methodError(name, args)
			}
			return fn(s), nil
		})
	}
	strFunc("uppercase", strings.ToUpper)
	strFunc("lowercase", strings.ToLower)
	strFunc("strip", strings.TrimSpace)
	strFunc("lstrip", func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) })
	strFunc("rstrip", func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) })
	strFunc("chomp", func(s string) string { return strings.TrimSuffix(strings.TrimSuffix(s, "\n"), "\r") })

	strPred := func(name string, fn func(s, t string) bool) {
		e.def(b, name, func(_ *callCtx, args []Value) (Value, error) {
			if err := e.arity(name, args, 2, 2); err != nil {
				return nil, err
			}
			s, ok := isStringish(args[0])
			t, tok := isStringish(args[1])
			if !ok || !tok {
				return nil, e.methodError(name, args)
			}
			return fn(s, t), nil
		})
	}
	strPred("startswith", strings.HasPrefix)
	strPred("endswith", strings.HasSuffix)
	strPred("contains", strings.Contains)

	e.def(b, "repeat", func(_ *callCtx, args []Value) (Value, error) {
		if err := e.arity("repeat", args, 2, 2); err != nil {
			return nil, err
		}
		return e.arith("^", args[0], args[1])
	})
}

func substrings(parent string, bounds [][2]int) *Array {
	data := make([]Value, len(bounds))
	for i, b := range bounds {
		data[i] = SubString{Parent: parent, Offset: b[0], Length: b[1] - b[0]}
	}
	return &Array{Elem: SubStringType, Dims: []int{len(data)}, Data: data}
}

// splitString keeps empty fields, like strings.Split.
func (e *Engine) splitString(s, sep string) *Array {
	var bounds [][2]int
	if sep == "" {
		for i := range s {
			bounds = append(bounds, [2]int{i, i})
		}
		for k := range bounds {
			end := len(s)
			if k+1 < len(bounds) {
				end = bounds[k+1][0]
			}
			bounds[k][1] = end
		}
		return substrings(s, bounds)
	}
	start := 0
	for {
		i := strings.Index(s[start:], sep)
		if i < 0 {
			bounds = append(bounds, [2]int{start, len(s)})
			break
		}
		bounds = append(bounds, [2]int{start, start + i})
		start += i + len(sep)
	}
	return substrings(s, bounds)
}

// splitFields splits on runs of whitespace and drops empty fields.
func (e *Engine) splitFields(s string) *Array {
	var bounds [][2]int
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				bounds = append(bounds, [2]int{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		bounds = append(bounds, [2]int{start, len(s)})
	}
	return substrings(s, bounds)
}

func (e *Engine) splitRegex(s string, re *Regex) *Array {
	var bounds [][2]int
	start := 0
	for _, loc := range re.re.FindAllStringIndex(s, -1) {
		bounds = append(bounds, [2]int{start, loc[0]})
		start = loc[1]
	}
	bounds = append(bounds, [2]int{start, len(s)})
	return substrings(s, bounds)
}

func regexMatch(re *Regex, s string, start int) Value {
	loc := re.re.FindStringSubmatchIndex(s[start:])
	if loc == nil {
		return Nothing{}
	}
	m := &RegexMatch{
		Match:  SubString{Parent: s, Offset: start + loc[0], Length: loc[1] - loc[0]},
		Offset: start + loc[0] + 1,
	}
	for g := 1; 2*g+1 < len(loc); g++ {
		a, b := loc[2*g], loc[2*g+1]
		if a < 0 {
			m.Captures = append(m.Captures, Nothing{})
			continue
		}
		m.Captures = append(m.Captures, SubString{Parent: s, Offset: start + a, Length: b - a})
	}
	return m
}
