package runtime

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/errors"
	"github.com/wippyai/numbridge/transcoder"
	"github.com/wippyai/numbridge/value"
)

// Script is a source file evaluated in its own module. The file's last
// expression is the entry point; Exec calls it.
type Script struct {
	rt     *Runtime
	fn     engine.Value
	path   string
	module string
	id     uint64
	once   sync.Once
}

// NewScript loads path into a fresh module named njIsoMod<N>. Nothing it
// defines is visible from Main.
func (r *Runtime) NewScript(ctx context.Context, path string) (*Script, error) {
	res, err := r.w.call(ctx, r.scriptTask(path), nil)
	if err != nil {
		return nil, err
	}
	return res.(*Script), nil
}

func (r *Runtime) scriptTask(path string) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		src, err := r.readSource(path)
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("njIsoMod%d", r.scripts.Add(1))
		mod := r.host.NewModule(name)
		rv, err := r.host.Execute(ctx, mod, src)
		if err != nil {
			return nil, errors.Diagnostic(err)
		}
		if !engine.IsCallable(rv) {
			return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
				Path(path).
				RuntimeType(engine.TypeOf(rv).Name).
				Detail("script %s does not end in a function", path).
				Build()
		}
		Logger().Debug("script loaded", zap.String("path", path), zap.String("module", name))
		return &Script{rt: r, fn: rv, path: path, module: name, id: r.host.Retain(rv)}, nil
	}
}

// Path returns the path the script was loaded from.
func (s *Script) Path() string { return s.path }

// ModuleName returns the name of the script's module.
func (s *Script) ModuleName() string { return s.module }

// Exec calls the script's entry point.
func (s *Script) Exec(ctx context.Context, args ...value.Value) (value.Value, error) {
	run, abort := s.execTask(args)
	return result(s.rt.w.call(ctx, run, abort))
}

// ExecAsync is Exec with the outcome delivered to cb.
func (s *Script) ExecAsync(cb Callback, args ...value.Value) {
	run, abort := s.execTask(args)
	s.rt.w.callAsync(context.Background(), run, abort, deliverValue(cb))
}

func (s *Script) execTask(args []value.Value) (func(context.Context) (any, error), func()) {
	sess := s.rt.refs.Session()
	rargs, err := transcoder.NewEncoder(sess).EncodeAll(args)
	if err != nil {
		sess.Close()
		return fail(err), nil
	}
	return func(ctx context.Context) (any, error) {
		defer sess.Close()
		return s.rt.call(ctx, s.fn, rargs)
	}, sess.Close
}

// Close unpins the entry point in the runtime.
func (s *Script) Close() {
	s.once.Do(func() {
		s.rt.schedule(func() { s.rt.host.Release(s.id) })
	})
}
