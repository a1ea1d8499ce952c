package runtime

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/errors"
	"github.com/wippyai/numbridge/linker"
	"github.com/wippyai/numbridge/loader"
	"github.com/wippyai/numbridge/resource"
	"github.com/wippyai/numbridge/transcoder"
	"github.com/wippyai/numbridge/value"
)

// Host is the embedded runtime the bridge drives. Implementations need not
// be safe for concurrent use: the Runtime calls them from one goroutine.
// *engine.Engine satisfies it.
type Host interface {
	Main() *engine.Module
	NewModule(name string) *engine.Module
	Execute(ctx context.Context, mod *engine.Module, src string) (engine.Value, error)
	Call(ctx context.Context, fn engine.Value, args []engine.Value) (engine.Value, error)
	Retain(v engine.Value) uint64
	Release(id uint64)
}

// Callback receives the outcome of an asynchronous call. Exactly one of
// result and err is meaningful.
type Callback func(result value.Value, err error)

// Runtime serializes all access to a Host onto a single worker goroutine
// and converts values at the boundary.
type Runtime struct {
	host      Host
	loader    loader.Loader
	refs      *resource.Manager
	resolver  *linker.Resolver
	w         *worker
	observers []resource.Observer
	scripts   atomic.Uint64
	deferred  []func()
	mu        sync.Mutex
	cleanup   bool
	closed    bool
	shut      bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLoader sets the source loader used by Import and NewScript.
func WithLoader(l loader.Loader) Option {
	return func(r *Runtime) {
		r.loader = l
	}
}

// WithCleanup releases references whose proxies the host side dropped
// without calling Release.
func WithCleanup() Option {
	return func(r *Runtime) {
		r.cleanup = true
	}
}

// WithObserver subscribes o to reference lifecycle events.
func WithObserver(o resource.Observer) Option {
	return func(r *Runtime) {
		r.observers = append(r.observers, o)
	}
}

// New starts a runtime thread for host.
func New(host Host, opts ...Option) (*Runtime, error) {
	if host == nil {
		return nil, errors.NotInitialized(errors.PhaseRuntime, "host")
	}
	r := &Runtime{host: host}
	for _, opt := range opts {
		opt(r)
	}

	r.w = newWorker(r.shutdown)

	mopts := []resource.Option{resource.WithScheduler(r.schedule)}
	if r.cleanup {
		mopts = append(mopts, resource.WithCleanup())
	}
	for _, o := range r.observers {
		mopts = append(mopts, resource.WithObserver(o))
	}
	r.refs = resource.NewManager(host, mopts...)
	r.resolver = linker.NewResolver(host.Main())

	Logger().Debug("runtime started", zap.Bool("cleanup", r.cleanup), zap.Bool("loader", r.loader != nil))
	return r, nil
}

// schedule runs fn on the runtime thread. Work arriving after the queue
// closed is left for shutdown; once shutdown finished the host is idle and
// fn runs inline.
func (r *Runtime) schedule(fn func()) {
	if r.w.post(fn) {
		return
	}
	r.mu.Lock()
	if !r.shut {
		r.deferred = append(r.deferred, fn)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	fn()
}

// shutdown runs on the runtime thread after the queue drained.
func (r *Runtime) shutdown() {
	if err := r.refs.Close(); err != nil {
		Logger().Warn("close references", zap.Error(err))
	}
	for {
		r.mu.Lock()
		fns := r.deferred
		r.deferred = nil
		if len(fns) == 0 {
			r.shut = true
			r.mu.Unlock()
			break
		}
		r.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}
	r.resolver.Invalidate("")
}

// Close drains queued calls, releases every outstanding reference and
// stops the worker. Calls made after Close fail with NotInitialized.
// Called from a callback, Close returns once the runtime thread stopped and
// the remaining outcomes are delivered after the callback returns.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.w.stop()
	if err := r.w.wait(ctx); err != nil {
		return err
	}
	Logger().Debug("runtime stopped")
	return nil
}

// Eval executes src in Main and converts the value of its last expression.
// Source ending in a function or type definition yields Null; the new
// binding is reached by name, not through a reference.
func (r *Runtime) Eval(ctx context.Context, src string) (value.Value, error) {
	return result(r.w.call(ctx, r.evalTask(src), nil))
}

// EvalAsync is Eval with the outcome delivered to cb.
func (r *Runtime) EvalAsync(src string, cb Callback) {
	r.w.callAsync(context.Background(), r.evalTask(src), nil, deliverValue(cb))
}

func (r *Runtime) evalTask(src string) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		rv, err := r.host.Execute(ctx, r.host.Main(), src)
		// Source may rebind anything reachable from Main.
		r.resolver.Invalidate("")
		if err != nil {
			return nil, errors.Diagnostic(err)
		}
		if engine.IsCallable(rv) && engine.IsDefinition(src) {
			return value.Null{}, nil
		}
		return r.decode(rv)
	}
}

// Invoke calls the function or type constructor bound at the dotted path
// with the converted arguments.
func (r *Runtime) Invoke(ctx context.Context, path string, args ...value.Value) (value.Value, error) {
	run, abort := r.invokeTask(path, args)
	return result(r.w.call(ctx, run, abort))
}

// InvokeAsync is Invoke with the outcome delivered to cb.
func (r *Runtime) InvokeAsync(path string, cb Callback, args ...value.Value) {
	run, abort := r.invokeTask(path, args)
	r.w.callAsync(context.Background(), run, abort, deliverValue(cb))
}

// invokeTask converts args on the calling goroutine so references are
// pinned before the call is queued. The returned abort returns the borrows
// of a call that never ran.
func (r *Runtime) invokeTask(path string, args []value.Value) (func(context.Context) (any, error), func()) {
	sess := r.refs.Session()
	rargs, err := transcoder.NewEncoder(sess).EncodeAll(args)
	if err != nil {
		sess.Close()
		return fail(err), nil
	}
	return func(ctx context.Context) (any, error) {
		defer sess.Close()
		fn, err := r.resolver.Resolve(path)
		if err != nil {
			return nil, err
		}
		Logger().Debug("invoke", zap.String("path", path), zap.Int("args", len(rargs)))
		return r.call(ctx, fn, rargs)
	}, sess.Close
}

// call runs on the runtime thread.
func (r *Runtime) call(ctx context.Context, fn engine.Value, args []engine.Value) (value.Value, error) {
	rv, err := r.host.Call(ctx, fn, args)
	if err != nil {
		return nil, errors.Diagnostic(err)
	}
	return r.decode(rv)
}

func (r *Runtime) decode(rv engine.Value) (value.Value, error) {
	return transcoder.NewDecoder(r.refs).Decode(rv)
}

// Release gives up a reference proxy. Releasing twice is a no-op; the
// runtime value is freed once no queued call still uses it.
func (r *Runtime) Release(ref *value.Ref) error {
	return r.refs.Release(ref)
}

// References returns the number of live reference handles.
func (r *Runtime) References() int {
	return r.refs.Len()
}

// Pending returns the number of queued tasks not yet started.
func (r *Runtime) Pending() int {
	return r.w.pending()
}

// ResolverStats reports name resolution cache hits and misses.
func (r *Runtime) ResolverStats() (hits, misses uint64) {
	return r.resolver.Stats()
}

func fail(err error) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		return nil, err
	}
}

func result(res any, err error) (value.Value, error) {
	if err != nil {
		return nil, err
	}
	v, _ := res.(value.Value)
	return v, nil
}

func deliverValue(cb Callback) func(any, error) {
	return func(res any, err error) {
		v, err := result(res, err)
		cb(v, err)
	}
}
