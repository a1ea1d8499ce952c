package engine

import (
	"context"

	"github.com/wippyai/numbridge/engine/internal/ast"
)

type interp struct {
	e     *Engine
	ctx   context.Context
	ends  []int
	depth int
}

// scope holds local variables. A scope with nil vars is module scope and
// assignments go to the module.
type scope struct {
	mod     *Module
	vars    map[string]Value
	parent  *scope
	globals map[string]bool
}

type callCtx struct {
	in  *interp
	mod *Module
}

func (s *scope) local() bool { return s.vars != nil }

func (s *scope) isGlobal(name string) bool {
	for cur := s; cur != nil && cur.local(); cur = cur.parent {
		if cur.globals[name] {
			return true
		}
	}
	return false
}

func (s *scope) lookup(name string) (Value, bool) {
	if !s.isGlobal(name) {
		for cur := s; cur != nil && cur.local(); cur = cur.parent {
			if v, ok := cur.vars[name]; ok {
				return v, true
			}
		}
	}
	return s.mod.Lookup(name)
}

func (s *scope) assign(name string, v Value) {
	if !s.local() || s.isGlobal(name) {
		s.mod.Set(name, v)
		return
	}
	for cur := s; cur != nil && cur.local(); cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			cur.vars[name] = v
			return
		}
	}
	s.vars[name] = v
}

func (in *interp) interrupted() error {
	if in.ctx == nil {
		return nil
	}
	if in.ctx.Err() != nil {
		return in.e.throw("InterruptException", "")
	}
	return nil
}

func (in *interp) evalBlock(b *ast.Block, s *scope) (Value, error) {
	var last Value = Nothing{}
	for _, stmt := range b.Stmts {
		v, err := in.eval(stmt, s)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (in *interp) eval(n ast.Node, s *scope) (Value, error) {
	switch x := n.(type) {
	case *ast.IntLit:
		return x.Value, nil
	case *ast.FloatLit:
		if x.Single {
			return float32(x.Value), nil
		}
		return x.Value, nil
	case *ast.StringLit:
		return x.Value, nil
	case *ast.RegexLit:
		re, err := NewRegex(x.Pattern)
		if err != nil {
			return nil, in.e.throw("ErrorException", "invalid regex %q: %v", x.Pattern, err)
		}
		return re, nil
	case *ast.BoolLit:
		return x.Value, nil
	case *ast.NothingLit:
		return Nothing{}, nil

	case *ast.Ident:
		v, ok := s.lookup(x.Name)
		if !ok {
			return nil, in.e.undefVar(x.Name)
		}
		return v, nil

	case *ast.EndIndex:
		if len(in.ends) == 0 {
			return nil, in.e.throw("ErrorException", "end used outside of an index")
		}
		return int64(in.ends[len(in.ends)-1]), nil

	case *ast.Colon:
		return colon{}, nil

	case *ast.Tuple:
		vals, err := in.evalArgs(x.Elems, s)
		if err != nil {
			return nil, err
		}
		return Tuple(vals), nil

	case *ast.Vector:
		vals, err := in.evalArgs(x.Elems, s)
		if err != nil {
			return nil, err
		}
		return in.e.vect(vals, AnyType)

	case *ast.Range:
		return in.evalRange(x, s)

	case *ast.Field:
		obj, err := in.eval(x.X, s)
		if err != nil {
			return nil, err
		}
		return in.e.getfield(obj, x.Name)

	case *ast.Call:
		fn, err := in.eval(x.Fn, s)
		if err != nil {
			return nil, err
		}
		args, err := in.evalArgs(x.Args, s)
		if err != nil {
			return nil, err
		}
		return in.call(fn, args, s.mod)

	case *ast.MacroCall:
		return in.macro(x, s)

	case *ast.Index:
		return in.evalIndex(x, s)

	case *ast.Splat:
		return nil, in.e.throw("ErrorException", "splatting is only allowed in calls and tuples")

	case *ast.Typed:
		return in.eval(x.X, s)

	case *ast.Unary:
		v, err := in.eval(x.X, s)
		if err != nil {
			return nil, err
		}
		return in.unary(x.Op, v)

	case *ast.Binary:
		return in.evalBinary(x, s)

	case *ast.Ternary:
		c, err := in.condition(x.Cond, s)
		if err != nil {
			return nil, err
		}
		if c {
			return in.eval(x.Then, s)
		}
		return in.eval(x.Else, s)

	case *ast.Assign:
		return in.evalAssign(x, s)

	case *ast.Block:
		return in.evalBlock(x, s)

	case *ast.If:
		c, err := in.condition(x.Cond, s)
		if err != nil {
			return nil, err
		}
		if c {
			return in.evalBlock(x.Then, s)
		}
		if x.Else != nil {
			return in.eval(x.Else, s)
		}
		return Nothing{}, nil

	case *ast.For:
		return in.evalFor(x, s)

	case *ast.While:
		return in.evalWhile(x, s)

	case *ast.Break:
		return nil, breakSignal{}
	case *ast.Continue:
		return nil, continueSignal{}
	case *ast.Return:
		var v Value = Nothing{}
		if x.Value != nil {
			var err error
			if v, err = in.eval(x.Value, s); err != nil {
				return nil, err
			}
		}
		return nil, returnSignal{v: v}

	case *ast.FuncDef:
		return in.define(x, s), nil

	case *ast.ModuleDef:
		return in.defineModule(x, s)

	case *ast.Export:
		s.mod.Export(x.Names...)
		return Nothing{}, nil

	case *ast.TypeDef:
		dt := &DataType{
			Name:    x.Name,
			Super:   AnyType,
			Fields:  x.Fields,
			Mutable: x.Mutable,
			Module:  s.mod,
		}
		s.mod.Set(x.Name, dt)
		return Nothing{}, nil

	case *ast.Import:
		return in.evalImport(x, s)

	case *ast.Scope:
		return in.evalScope(x, s)
	}
	return nil, in.e.throw("ErrorException", "unsupported expression %T", n)
}

func (in *interp) evalArgs(nodes []ast.Node, s *scope) ([]Value, error) {
	out := make([]Value, 0, len(nodes))
	for _, n := range nodes {
		if sp, ok := n.(*ast.Splat); ok {
			v, err := in.eval(sp.X, s)
			if err != nil {
				return nil, err
			}
			err = in.e.each(v, func(el Value) error {
				out = append(out, el)
				return nil
			})
			if err != nil {
				return nil, err
			}
			continue
		}
		v, err := in.eval(n, s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (in *interp) condition(n ast.Node, s *scope) (bool, error) {
	v, err := in.eval(n, s)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, in.e.throw("TypeError", "non-boolean (%s) used in boolean context", TypeOf(v).Name)
	}
	return b, nil
}

func (in *interp) evalBinary(x *ast.Binary, s *scope) (Value, error) {
	switch x.Op {
	case "&&", "||":
		l, err := in.condition(x.X, s)
		if err != nil {
			return nil, err
		}
		if (x.Op == "&&") != l {
			return l, nil
		}
		return in.eval(x.Y, s)
	}
	l, err := in.eval(x.X, s)
	if err != nil {
		return nil, err
	}
	r, err := in.eval(x.Y, s)
	if err != nil {
		return nil, err
	}
	return in.e.binop(x.Op, l, r)
}

func (in *interp) unary(op string, v Value) (Value, error) {
	switch op {
	case "+":
		return v, nil
	case "-":
		return in.e.negate(v)
	case "!":
		b, ok := v.(bool)
		if !ok {
			return nil, in.e.methodError("!", []Value{v})
		}
		return !b, nil
	case "'":
		return in.e.transpose(v)
	}
	return nil, in.e.throw("ErrorException", "unknown operator %s", op)
}

func (in *interp) evalRange(x *ast.Range, s *scope) (Value, error) {
	start, err := in.eval(x.Start, s)
	if err != nil {
		return nil, err
	}
	stop, err := in.eval(x.Stop, s)
	if err != nil {
		return nil, err
	}
	var step Value = int64(1)
	if x.Step != nil {
		if step, err = in.eval(x.Step, s); err != nil {
			return nil, err
		}
	}
	return in.e.makeRange(start, step, stop)
}

func (in *interp) evalIndex(x *ast.Index, s *scope) (Value, error) {
	obj, err := in.eval(x.X, s)
	if err != nil {
		return nil, err
	}

	// Float64[1, 2] builds a typed vector.
	if dt, ok := obj.(*DataType); ok {
		vals, err := in.evalArgs(x.Indices, s)
		if err != nil {
			return nil, err
		}
		return in.e.typedVect(dt, vals)
	}

	idx := make([]Value, len(x.Indices))
	for k, n := range x.Indices {
		in.ends = append(in.ends, endOf(obj, k, len(x.Indices)))
		v, err := in.eval(n, s)
		in.ends = in.ends[:len(in.ends)-1]
		if err != nil {
			return nil, err
		}
		idx[k] = v
	}
	return in.e.getindex(obj, idx)
}

func (in *interp) evalAssign(x *ast.Assign, s *scope) (Value, error) {
	val, err := in.eval(x.Value, s)
	if err != nil {
		return nil, err
	}

	if x.Op != "=" {
		cur, err := in.eval(x.Target, s)
		if err != nil {
			return nil, err
		}
		if val, err = in.e.binop(x.Op[:len(x.Op)-1], cur, val); err != nil {
			return nil, err
		}
	}

	switch t := x.Target.(type) {
	case *ast.Ident:
		s.assign(t.Name, val)
	case *ast.Index:
		obj, err := in.eval(t.X, s)
		if err != nil {
			return nil, err
		}
		idx := make([]Value, len(t.Indices))
		for k, n := range t.Indices {
			in.ends = append(in.ends, endOf(obj, k, len(t.Indices)))
			v, err := in.eval(n, s)
			in.ends = in.ends[:len(in.ends)-1]
			if err != nil {
				return nil, err
			}
			idx[k] = v
		}
		if err := in.e.setindex(obj, val, idx); err != nil {
			return nil, err
		}
	case *ast.Field:
		obj, err := in.eval(t.X, s)
		if err != nil {
			return nil, err
		}
		if err := in.e.setfield(obj, t.Name, val); err != nil {
			return nil, err
		}
	case *ast.Tuple:
		var vals []Value
		if err := in.e.each(val, func(v Value) error {
			vals = append(vals, v)
			return nil
		}); err != nil {
			return nil, err
		}
		if len(vals) < len(t.Elems) {
			return nil, in.e.throw("BoundsError", "attempt to access %s at index [%d]", TypeOf(val).Name, len(vals)+1)
		}
		for i, el := range t.Elems {
			id, ok := el.(*ast.Ident)
			if !ok {
				return nil, in.e.throw("ErrorException", "invalid destructuring target")
			}
			s.assign(id.Name, vals[i])
		}
	}
	return val, nil
}

func (in *interp) evalFor(x *ast.For, s *scope) (Value, error) {
	iter, err := in.eval(x.Iter, s)
	if err != nil {
		return nil, err
	}
	err = in.e.each(iter, func(v Value) error {
		if err := in.interrupted(); err != nil {
			return err
		}
		s.assign(x.Var, v)
		_, err := in.evalBlock(x.Body, s)
		if _, ok := err.(continueSignal); ok {
			return nil
		}
		return err
	})
	if _, ok := err.(breakSignal); ok {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return Nothing{}, nil
}

func (in *interp) evalWhile(x *ast.While, s *scope) (Value, error) {
	for {
		if err := in.interrupted(); err != nil {
			return nil, err
		}
		c, err := in.condition(x.Cond, s)
		if err != nil {
			return nil, err
		}
		if !c {
			return Nothing{}, nil
		}
		_, err = in.evalBlock(x.Body, s)
		switch err.(type) {
		case nil, continueSignal:
		case breakSignal:
			return Nothing{}, nil
		default:
			return nil, err
		}
	}
}

func (in *interp) define(x *ast.FuncDef, s *scope) *Function {
	m := &method{params: x.Params, vararg: x.Vararg, body: x.Body, mod: s.mod}
	if s.local() {
		m.closure = s
	}

	if x.Name == "" {
		f := &Function{Name: "#anon", Module: s.mod}
		f.addMethod(m)
		return f
	}

	var existing Value
	var ok bool
	if s.local() {
		existing, ok = s.vars[x.Name]
	} else {
		existing, ok = s.mod.Get(x.Name)
	}
	if f, isFn := existing.(*Function); ok && isFn && !f.IsBuiltin() && f.Module == s.mod {
		f.addMethod(m)
		return f
	}

	f := &Function{Name: x.Name, Module: s.mod}
	f.addMethod(m)
	if s.local() {
		s.vars[x.Name] = f
	} else {
		s.mod.Set(x.Name, f)
	}
	return f
}

func (in *interp) defineModule(x *ast.ModuleDef, s *scope) (Value, error) {
	m := NewModule(x.Name, s.mod)
	if !x.Bare {
		m.Use(in.e.base)
	}
	m.Use(in.e.core)
	m.Set(x.Name, m)
	s.mod.Set(x.Name, m)

	body := &scope{mod: m}
	if _, err := in.evalBlock(x.Body, body); err != nil {
		return nil, err
	}
	return m, nil
}

func (in *interp) evalImport(x *ast.Import, s *scope) (Value, error) {
	for _, path := range x.Paths {
		v, err := in.resolveImport(path, s)
		if err != nil {
			return nil, err
		}
		name := path[len(path)-1]
		if mod, ok := v.(*Module); ok && x.Using {
			s.mod.Use(mod)
		}
		if _, exists := s.mod.Get(name); !exists || x.Using {
			s.mod.Set(name, v)
		}
	}
	return Nothing{}, nil
}

func (in *interp) resolveImport(path []string, s *scope) (Value, error) {
	head, ok := s.lookup(path[0])
	if !ok {
		head, ok = in.e.main.Get(path[0])
	}
	if !ok {
		mod, err := in.require(path[0])
		if err != nil {
			return nil, err
		}
		head = mod
	}
	cur := head
	for _, seg := range path[1:] {
		mod, ok := cur.(*Module)
		if !ok {
			return nil, in.e.throw("ArgumentError", "%s is not a module", show(cur))
		}
		if cur, ok = mod.Get(seg); !ok {
			return nil, in.e.throw("UndefVarError", "%s not defined", seg)
		}
	}
	if _, ok := cur.(*Module); !ok && len(path) == 1 {
		return nil, in.e.throw("ArgumentError", "%s not found in path", path[0])
	}
	return cur, nil
}

func (in *interp) evalScope(x *ast.Scope, s *scope) (Value, error) {
	switch x.Kind {
	case "global":
		if s.local() {
			if s.globals == nil {
				s.globals = make(map[string]bool)
			}
			for _, n := range x.Names {
				s.globals[n] = true
			}
			if a, ok := x.X.(*ast.Assign); ok {
				if id, ok := a.Target.(*ast.Ident); ok {
					s.globals[id.Name] = true
				}
			}
		}
	case "local":
		if s.local() {
			for _, n := range x.Names {
				s.vars[n] = Nothing{}
			}
			if a, ok := x.X.(*ast.Assign); ok {
				if id, ok := a.Target.(*ast.Ident); ok {
					s.vars[id.Name] = Nothing{}
				}
			}
		}
	}
	if x.X == nil {
		return Nothing{}, nil
	}
	return in.eval(x.X, s)
}

// call dispatches fn with args. mod is the caller's module, which
// builtins such as include evaluate in.
func (in *interp) call(fn Value, args []Value, mod *Module) (Value, error) {
	if err := in.interrupted(); err != nil {
		return nil, err
	}
	switch f := fn.(type) {
	case *Function:
		if f.builtin != nil {
			return f.builtin(&callCtx{in: in, mod: mod}, args)
		}
		m := f.lookup(len(args))
		if m == nil {
			return nil, in.e.methodError(f.Name, args)
		}
		return in.invoke(m, args)
	case *DataType:
		return in.e.construct(f, args)
	}
	return nil, in.e.throw("MethodError", "objects of type %s are not callable", TypeOf(fn).Name)
}

func (in *interp) invoke(m *method, args []Value) (Value, error) {
	in.depth++
	defer func() { in.depth-- }()
	if in.depth > maxCallDepth {
		return nil, in.e.throw("StackOverflowError", "")
	}

	s := &scope{mod: m.mod, vars: make(map[string]Value, len(m.params)), parent: m.closure}
	n := len(m.params)
	if m.vararg {
		n--
		s.vars[m.params[n]] = Tuple(append([]Value(nil), args[n:]...))
	}
	for i := 0; i < n; i++ {
		s.vars[m.params[i]] = args[i]
	}

	v, err := in.evalBlock(m.body, s)
	switch sig := err.(type) {
	case nil:
		return v, nil
	case returnSignal:
		return sig.v, nil
	case breakSignal, continueSignal:
		return nil, in.e.throw("ErrorException", "%s", err.Error())
	}
	return nil, err
}

func endOf(obj Value, k, n int) int {
	switch x := obj.(type) {
	case *Array:
		return extent(x, k, n)
	case *Range:
		return x.Len()
	case Tuple:
		return len(x)
	case string:
		return len(x)
	}
	return 1
}
