package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"path"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/errors"
	"github.com/wippyai/numbridge/loader"
	"github.com/wippyai/numbridge/value"
)

// ModuleProxy is an imported module. Its members are the module's exported
// callables; calls go through the runtime's queue like Invoke.
type ModuleProxy struct {
	rt      *Runtime
	name    string
	path    string
	members []string
}

// Name returns the module's name in Main.
func (m *ModuleProxy) Name() string { return m.name }

// Path returns the path the module was imported from.
func (m *ModuleProxy) Path() string { return m.path }

// Members returns the exported callables, sorted.
func (m *ModuleProxy) Members() []string {
	return append([]string(nil), m.members...)
}

// Has reports whether name is an exported callable.
func (m *ModuleProxy) Has(name string) bool {
	return lo.Contains(m.members, name)
}

// Call invokes an exported member.
func (m *ModuleProxy) Call(ctx context.Context, name string, args ...value.Value) (value.Value, error) {
	return m.rt.Invoke(ctx, m.name+"."+name, args...)
}

// CallAsync is Call with the outcome delivered to cb.
func (m *ModuleProxy) CallAsync(name string, cb Callback, args ...value.Value) {
	m.rt.InvokeAsync(m.name+"."+name, cb, args...)
}

// Import loads the source at path, executes it in Main and returns the
// module it defines. The module is named after the path's base name.
// Importing the same module again replaces it.
func (r *Runtime) Import(ctx context.Context, path string) (*ModuleProxy, error) {
	res, err := r.w.call(ctx, r.importTask(path), nil)
	if err != nil {
		return nil, err
	}
	return res.(*ModuleProxy), nil
}

// ImportAsync is Import with the outcome delivered to cb.
func (r *Runtime) ImportAsync(path string, cb func(*ModuleProxy, error)) {
	r.w.callAsync(context.Background(), r.importTask(path), nil, func(res any, err error) {
		m, _ := res.(*ModuleProxy)
		cb(m, err)
	})
}

func (r *Runtime) importTask(p string) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		src, err := r.readSource(p)
		if err != nil {
			return nil, err
		}
		rv, err := r.host.Execute(ctx, r.host.Main(), src)
		r.resolver.Invalidate("")
		if err != nil {
			return nil, errors.Diagnostic(err)
		}

		name := moduleName(p)
		mod, ok := rv.(*engine.Module)
		if !ok {
			if v, found := r.host.Main().Get(name); found {
				mod, ok = v.(*engine.Module)
			}
		}
		if !ok {
			return nil, errors.InvalidInput(errors.PhaseLoad,
				fmt.Sprintf("%s does not define module %s", p, name))
		}

		members := lo.Filter(mod.Exports(), func(n string, _ int) bool {
			v, ok := mod.Get(n)
			return ok && engine.IsCallable(v)
		})
		for _, n := range members {
			fn, _ := mod.Get(n)
			r.resolver.Preload(mod.Name+"."+n, fn)
		}

		Logger().Debug("module imported",
			zap.String("path", p),
			zap.String("module", mod.Name),
			zap.Strings("members", members))
		return &ModuleProxy{rt: r, name: mod.Name, path: p, members: members}, nil
	}
}

// readSource runs on the runtime thread. A missing source keeps the
// loader's message.
func (r *Runtime) readSource(p string) (string, error) {
	if r.loader == nil {
		return "", errors.NotInitialized(errors.PhaseLoad, "loader")
	}
	src, err := r.loader.ReadSource(p)
	if err != nil {
		if stderrors.Is(err, loader.ErrNotFound) {
			return "", errors.ModuleNotFound(err)
		}
		return "", errors.Load("read "+p, err)
	}
	return src, nil
}

func moduleName(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
