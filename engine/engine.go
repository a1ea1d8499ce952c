package engine

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/wippyai/numbridge/engine/internal/ast"
	"github.com/wippyai/numbridge/engine/internal/parser"
	"github.com/wippyai/numbridge/loader"
)

// DefaultVersion is the language version reported by VERSION.
const DefaultVersion = "0.4.0"

const maxCallDepth = 4096

// Engine is the reference runtime host: a single-threaded interpreter with
// a module tree rooted at Main. Callers must serialize access; the bridge
// runs every operation on one worker goroutine.
type Engine struct {
	main     *Module
	base     *Module
	core     *Module
	version  *semver.Version
	loader   loader.Loader
	out      io.Writer
	rng      *rand.Rand
	retained map[uint64]Value
	mu       sync.Mutex
	nextID   uint64
	legacy   bool
}

// Option configures an Engine.
type Option func(*Engine) error

// WithVersion sets the reported language version. Versions below 0.4 use
// the constructor diagnostic style, e.g. ArgumentError("x not found in path").
func WithVersion(v string) Option {
	return func(e *Engine) error {
		ver, err := semver.NewVersion(v)
		if err != nil {
			return fmt.Errorf("invalid engine version %q: %w", v, err)
		}
		e.version = ver
		return nil
	}
}

// WithLoader sets the loader used by include and using.
func WithLoader(l loader.Loader) Option {
	return func(e *Engine) error {
		e.loader = l
		return nil
	}
}

// WithOutput directs print and println.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) error {
		e.out = w
		return nil
	}
}

// WithSeed makes rand deterministic.
func WithSeed(seed uint64) Option {
	return func(e *Engine) error {
		e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		return nil
	}
}

// New creates an engine with Main, Base and Core populated.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		out:      io.Discard,
		retained: make(map[uint64]Value),
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	e.version = semver.MustParse(DefaultVersion)
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.legacy = e.version.LessThan(semver.MustParse("0.4.0"))

	e.core = NewModule("Core", nil)
	e.base = NewModule("Base", nil)
	e.main = NewModule("Main", nil)
	e.base.exportAll = true
	e.core.exportAll = true

	e.installCore()
	e.installBase()

	e.main.Use(e.base)
	e.main.Use(e.core)
	e.main.Set("Main", e.main)
	e.main.Set("Base", e.base)
	e.main.Set("Core", e.core)

	Logger().Debug("engine created",
		zap.String("version", e.version.String()),
		zap.Bool("legacy_diagnostics", e.legacy))
	return e, nil
}

// Version returns the reported language version.
func (e *Engine) Version() *semver.Version { return e.version }

// Main returns the root module.
func (e *Engine) Main() *Module { return e.main }

// Base returns the standard library module.
func (e *Engine) Base() *Module { return e.base }

// NewModule creates an isolated child of Main that uses Base and Core. It
// is not bound in Main.
func (e *Engine) NewModule(name string) *Module {
	m := NewModule(name, e.main)
	m.Use(e.base)
	m.Use(e.core)
	return m
}

// Execute parses src and evaluates it in mod, returning the value of the
// last expression.
func (e *Engine) Execute(ctx context.Context, mod *Module, src string) (Value, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return nil, e.throw("ParseError", "%s", err.Error())
	}
	Logger().Debug("execute", zap.String("module", mod.FullName()), zap.Int("statements", len(prog.Stmts)))
	in := &interp{e: e, ctx: ctx}
	return in.run(prog, mod)
}

// IsDefinition reports whether the last statement of src defines a named
// function or a type. Sources that do not parse are not definitions.
func IsDefinition(src string) bool {
	prog, err := parser.Parse(src)
	if err != nil || len(prog.Stmts) == 0 {
		return false
	}
	last := prog.Stmts[len(prog.Stmts)-1]
	if sc, ok := last.(*ast.Scope); ok {
		last = sc.X
	}
	switch x := last.(type) {
	case *ast.FuncDef:
		return x.Name != ""
	case *ast.TypeDef:
		return true
	}
	return false
}

// Call invokes a callable with already converted arguments.
func (e *Engine) Call(ctx context.Context, fn Value, args []Value) (Value, error) {
	in := &interp{e: e, ctx: ctx}
	return in.call(fn, args, e.main)
}

// Retain pins v and returns its id.
func (e *Engine) Retain(v Value) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.retained[e.nextID] = v
	return e.nextID
}

// Release unpins a value. Unknown ids are ignored.
func (e *Engine) Release(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.retained, id)
}

// Retained returns the number of pinned values.
func (e *Engine) Retained() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.retained)
}

func (in *interp) run(prog *ast.Block, mod *Module) (Value, error) {
	v, err := in.evalBlock(prog, &scope{mod: mod})
	if err != nil {
		switch sig := err.(type) {
		case returnSignal:
			return sig.v, nil
		case breakSignal, continueSignal:
			return nil, in.e.throw("ErrorException", "%s", err.Error())
		}
		return nil, err
	}
	return v, nil
}

// include evaluates a source file in mod.
func (in *interp) include(path string, mod *Module) (Value, error) {
	if in.e.loader == nil {
		return nil, in.e.throw("SystemError", "opening file %s: No such file or directory", path)
	}
	src, err := in.e.loader.ReadSource(path)
	if err != nil {
		return nil, in.e.throw("SystemError", "opening file %s: No such file or directory", path)
	}
	prog, err := parser.Parse(src)
	if err != nil {
		return nil, in.e.throw("ParseError", "%s: %s", path, err.Error())
	}
	Logger().Debug("include", zap.String("path", path), zap.String("module", mod.FullName()))
	return in.run(prog, mod)
}

// require loads a top-level module by name through the loader, the way
// `using X` does for a module not yet defined.
func (in *interp) require(name string) (*Module, error) {
	notFound := in.e.throw("ArgumentError", "%s not found in path", name)
	if in.e.loader == nil {
		return nil, notFound
	}
	src, err := in.e.loader.ReadSource(name)
	if err != nil {
		return nil, notFound
	}
	prog, err := parser.Parse(src)
	if err != nil {
		return nil, in.e.throw("ParseError", "%s: %s", name, err.Error())
	}
	if _, err := in.run(prog, in.e.main); err != nil {
		return nil, err
	}
	if m, ok := in.e.main.Get(name); ok {
		if mod, ok := m.(*Module); ok {
			return mod, nil
		}
	}
	return nil, notFound
}
