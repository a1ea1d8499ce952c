package runtime

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/errors"
	"github.com/wippyai/numbridge/loader"
	"github.com/wippyai/numbridge/resource"
	"github.com/wippyai/numbridge/value"
)

type outcome struct {
	v   value.Value
	err error
}

func newRuntime(t *testing.T, opts ...Option) (*Runtime, *engine.Engine) {
	t.Helper()
	fl := loader.NewFileLoader("testdata")
	eng, err := engine.New(engine.WithSeed(1), engine.WithLoader(fl))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	fl.Message = func(p string) string {
		return eng.FormatDiagnostic("ArgumentError", p+" not found in path")
	}
	rt, err := New(eng, append([]Option{WithLoader(fl)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt, eng
}

func eval(t *testing.T, rt *Runtime, src string) value.Value {
	t.Helper()
	v, err := rt.Eval(context.Background(), src)
	if err != nil {
		t.Fatalf("Eval(%q): %v", src, err)
	}
	return v
}

func invoke(t *testing.T, rt *Runtime, path string, args ...value.Value) value.Value {
	t.Helper()
	v, err := rt.Invoke(context.Background(), path, args...)
	if err != nil {
		t.Fatalf("Invoke(%s): %v", path, err)
	}
	return v
}

// invokeAsync waits for the callback so tests can compare both modes.
func invokeAsync(rt *Runtime, path string, args ...value.Value) outcome {
	ch := make(chan outcome, 1)
	rt.InvokeAsync(path, func(v value.Value, err error) {
		ch <- outcome{v, err}
	}, args...)
	return <-ch
}

func TestNewRequiresHost(t *testing.T) {
	if _, err := New(nil); !errors.HasKind(err, errors.KindNotInitialized) {
		t.Fatalf("New(nil) = %v", err)
	}
}

func TestEvalScalars(t *testing.T) {
	rt, _ := newRuntime(t)

	tests := []struct {
		src  string
		want value.Value
	}{
		{"()", value.Null{}},
		{"nothing", value.Null{}},
		{"true", value.Bool(true)},
		{"0", value.Int(0)},
		{"4294967296", value.Int(4294967296)},
		{"9007199254740992", value.Int(9007199254740992)},
		{"-9007199254740992", value.Int(-9007199254740992)},
		{"1.0", value.Float(1)},
		{strconv.FormatFloat(math.MaxFloat64, 'g', -1, 64), value.Float(math.MaxFloat64)},
		{`"x"`, value.String("x")},
		{`("x", "y")`, value.Array{value.String("x"), value.String("y")}},
		{"VERSION.minor", value.Int(4)},
		{`match(r"(a)", "a").match`, value.String("a")},
		{`@sprintf("x")`, value.String("x")},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := eval(t, rt, tt.src)
			if !value.Equal(got, tt.want) {
				t.Errorf("Eval(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	rt, _ := newRuntime(t)
	now := value.DateFromUnixMilli(time.Date(2015, 3, 1, 12, 30, 0, 250e6, time.UTC).UnixMilli())

	tests := []struct {
		name string
		in   value.Value
	}{
		{"null", value.Null{}},
		{"bool", value.Bool(true)},
		{"int", value.Int(1)},
		{"max safe", value.Int(value.MaxSafeInt)},
		{"min safe", value.Int(-value.MaxSafeInt)},
		{"float", value.Float(0.1)},
		{"string", value.String("x")},
		{"regex", value.Regex("a+b")},
		{"date", now},
		{"dates", value.Array{now, value.DateFromUnixMilli(now.UnixMilli() - 20)}},
		{"regexes", value.Array{value.Regex("a"), value.Regex("b|c")}},
		{"bytes", value.Bytes([]byte{0, 1, 2, 3, 4, 5})},
		{"float32 buffer", value.NewBuffer([]float32{1.5, -2, 3})},
		{"int16 buffer", value.NewBuffer([]int16{-32768, 0, 32767})},
		{"bool array", value.Array{value.Bool(true), value.Bool(false)}},
		{"string array", value.Array{value.String("a"), value.String("")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := invoke(t, rt, "identity", tt.in)
			if !value.Equal(got, tt.in) {
				t.Errorf("identity(%v) = %v", tt.in, got)
			}
			async := invokeAsync(rt, "identity", tt.in)
			if async.err != nil || !value.Equal(async.v, tt.in) {
				t.Errorf("async identity(%v) = %v, %v", tt.in, async.v, async.err)
			}
		})
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	rt, _ := newRuntime(t)

	a := invoke(t, rt, "rand", value.Int(4), value.Int(3))
	rows, ok := a.(value.Array)
	if !ok || len(rows) != 4 {
		t.Fatalf("rand(4, 3) = %v", a)
	}
	for _, r := range rows {
		b, ok := r.(*value.Buffer)
		if !ok || b.Len() != 3 || b.Elem() != value.Float64 {
			t.Fatalf("row = %v", r)
		}
	}
	if got := invoke(t, rt, "identity", a); !value.Equal(got, a) {
		t.Errorf("identity(rand(4, 3)) = %v, want %v", got, a)
	}

	eye := invoke(t, rt, "eye", value.Int(3))
	inv := invoke(t, rt, "inv", eye)
	if !value.Equal(eye, inv) {
		t.Errorf("inv(eye(3)) = %v", inv)
	}
}

func TestIncludeAndCall(t *testing.T) {
	rt, _ := newRuntime(t)

	if got := eval(t, rt, `Core.include("inc1.jl")`); !value.Equal(got, value.Bool(true)) {
		t.Fatalf("include inc1 = %v", got)
	}
	if got := invoke(t, rt, "include", value.String("inc2.jl")); !value.Equal(got, value.Bool(true)) {
		t.Fatalf("include inc2 = %v", got)
	}
	f := invoke(t, rt, "f", value.Int(100))
	g := invoke(t, rt, "g", value.Int(100))
	if !value.Equal(f, g) || !value.Equal(f, value.Int(201)) {
		t.Errorf("f(100) = %v, g(100) = %v", f, g)
	}
}

func TestTypecheckArray(t *testing.T) {
	rt, _ := newRuntime(t)
	eval(t, rt, `include("inc4.jl")`)

	tests := []struct {
		name string
		in   value.Array
		want string
		kind errors.Kind
	}{
		{"null", value.Array{value.Null{}}, "void", ""},
		{"bool", value.Array{value.Bool(true), value.Bool(false), value.Bool(true)}, "boolean", ""},
		{"int", value.Array{value.Int(1), value.Int(1234), value.Int(-9000)}, "int", ""},
		{"float", value.Array{value.Float(1.1), value.Float(6e26), value.Float(0.000001)}, "float", ""},
		{"string", value.Array{value.String("abcd"), value.String("000000"), value.String("")}, "string", ""},
		{"bool int", value.Array{value.Bool(true), value.Int(1)}, "int", ""},
		{"bool float", value.Array{value.Bool(true), value.Float(1.1)}, "float", ""},
		{"int float", value.Array{value.Int(1), value.Float(1.1)}, "float", ""},
		{"float int", value.Array{value.Float(1.1), value.Int(1)}, "float", ""},
		{"bool string", value.Array{value.Bool(true), value.String("")}, "", errors.KindUnsupportedElementKind},
		{"mixed string", value.Array{value.Bool(true), value.String("x"), value.Int(1), value.Float(1.1)}, "", errors.KindUnsupportedElementKind},
		{"mixed null", value.Array{value.Bool(true), value.Null{}, value.Int(1), value.Float(1.1)}, "", errors.KindUnsupportedElementKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rt.Invoke(context.Background(), "typecheckArray", tt.in)
			async := invokeAsync(rt, "typecheckArray", tt.in)
			if tt.kind != "" {
				if !errors.HasKind(err, tt.kind) {
					t.Fatalf("err = %v, want kind %s", err, tt.kind)
				}
				if async.err == nil || async.err.Error() != err.Error() {
					t.Errorf("async err = %v, sync err = %v", async.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("typecheckArray: %v", err)
			}
			if !value.Equal(got, value.String(tt.want)) {
				t.Errorf("sync = %v, want %q", got, tt.want)
			}
			if async.err != nil || !value.Equal(async.v, value.String(tt.want)) {
				t.Errorf("async = %v, %v, want %q", async.v, async.err, tt.want)
			}
		})
	}

	got := invoke(t, rt, "concat", value.Array{value.String("a"), value.String("b"), value.String("c")})
	if !value.Equal(got, value.String("abc")) {
		t.Errorf("concat = %v", got)
	}
}

func TestArithmetic(t *testing.T) {
	rt, _ := newRuntime(t)

	if got := invoke(t, rt, "sum", value.Array{value.Int(1), value.Int(2), value.Int(3)}); !value.Equal(got, value.Int(6)) {
		t.Errorf("sum ints = %v", got)
	}
	got := invoke(t, rt, "sum", value.Array{value.Float(1.5), value.Float(2.6), value.Float(3.7)})
	if f, ok := got.(value.Float); !ok || math.Abs(float64(f)-7.8) > 1e-9 {
		t.Errorf("sum floats = %v", got)
	}
	split := invoke(t, rt, "split", value.String("a b c"), value.String(" "))
	want := value.Array{value.String("a"), value.String("b"), value.String("c")}
	if !value.Equal(split, want) {
		t.Errorf("split = %v", split)
	}
	dot := invoke(t, rt, "Base.LinAlg.BLAS.dot",
		value.NewBuffer([]float64{1, 2, 3}), value.NewBuffer([]float64{4, 5, 6}))
	if !value.Equal(dot, value.Float(32)) {
		t.Errorf("dot = %v", dot)
	}
	if got := invoke(t, rt, "Base.identity", value.Int(10)); !value.Equal(got, value.Int(10)) {
		t.Errorf("Base.identity = %v", got)
	}
}

func TestErrorsMatchAcrossModes(t *testing.T) {
	rt, _ := newRuntime(t)

	tests := []struct {
		name     string
		path     string
		args     []value.Value
		kind     errors.Kind
		contains string
		exact    bool
	}{
		{"malformed", "identity", []value.Value{value.Array{
			value.Array{value.Int(1), value.Int(2), value.Int(3)},
			value.Array{value.Int(4), value.Int(5)},
		}}, errors.KindMalformedArray, "malformed input array", false},
		{"malformed nested", "identity", []value.Value{value.Array{
			value.Array{value.Int(1), value.Int(2), value.Int(3)},
			value.Array{value.Array{value.Int(4), value.Int(5), value.Int(6)}, value.Array{value.Int(2)}},
		}}, errors.KindMalformedArray, "malformed input array", false},
		{"malformed transpose", "transpose", []value.Value{value.Array{
			value.Array{value.Int(1), value.Int(2), value.Int(3)},
			value.Array{value.Int(4), value.Int(5)},
		}}, errors.KindMalformedArray, "malformed input array", false},
		{"overflowing dims", "identity", []value.Value{value.Bytes(nil).Reshape(1<<62, 4)},
			errors.KindMalformedArray, "malformed input array", false},
		{"undefined", "a", nil, errors.KindUndefinedBinding,
			"[resolve] undefined_binding: method a is undefined", true},
		{"undefined member", "a.b", nil, errors.KindUndefinedBinding,
			"[resolve] undefined_binding: method a.b is undefined", true},
		{"undefined deep", "Base.LinAlg.x.y", nil, errors.KindUndefinedBinding,
			"[resolve] undefined_binding: method Base.LinAlg.x.y is undefined", true},
		{"not a module", "identity.x", nil, errors.KindUndefinedBinding,
			"[resolve] undefined_binding: method identity.x is undefined", true},
		{"diagnostic", "sqrt", []value.Value{value.String("x")}, errors.KindRuntimeDiagnostic, "MethodError", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rt.Invoke(context.Background(), tt.path, tt.args...)
			if !errors.HasKind(err, tt.kind) {
				t.Fatalf("Invoke err = %v, want kind %s", err, tt.kind)
			}
			if tt.exact && err.Error() != tt.contains {
				t.Errorf("err = %q, want %q", err, tt.contains)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("err = %q, want it to contain %q", err, tt.contains)
			}
			async := invokeAsync(rt, tt.path, tt.args...)
			if async.v != nil {
				t.Errorf("async result = %v alongside error", async.v)
			}
			if async.err == nil || async.err.Error() != err.Error() {
				t.Errorf("async err = %v, sync err = %v", async.err, err)
			}
		})
	}
}

func TestEvalDiagnosticVerbatim(t *testing.T) {
	rt, _ := newRuntime(t)

	_, err := rt.Eval(context.Background(), "lkasjdlkajsda")
	if err == nil || err.Error() != "UndefVarError: lkasjdlkajsda not defined" {
		t.Fatalf("Eval err = %v", err)
	}
	ch := make(chan error, 1)
	rt.EvalAsync("lkasjdlkajsda", func(_ value.Value, err error) { ch <- err })
	if aerr := <-ch; aerr == nil || aerr.Error() != err.Error() {
		t.Errorf("EvalAsync err = %v", aerr)
	}
}

func TestEvalHonorsContext(t *testing.T) {
	rt, _ := newRuntime(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rt.Eval(ctx, "i = 0\nwhile true\n  i += 1\nend")
	if !errors.HasKind(err, errors.KindRuntimeDiagnostic) || !strings.Contains(err.Error(), "InterruptException") {
		t.Fatalf("Eval with cancelled context = %v", err)
	}
	if got := eval(t, rt, "1 + 1"); !value.Equal(got, value.Int(2)) {
		t.Errorf("runtime unusable after interrupt: %v", got)
	}
}

func TestEvalRebindInvalidatesResolution(t *testing.T) {
	rt, _ := newRuntime(t)

	eval(t, rt, "h(x) = x + 1")
	if got := invoke(t, rt, "h", value.Int(1)); !value.Equal(got, value.Int(2)) {
		t.Fatalf("h(1) = %v", got)
	}
	eval(t, rt, "h = x -> x * 10")
	if got := invoke(t, rt, "h", value.Int(1)); !value.Equal(got, value.Int(10)) {
		t.Errorf("h(1) after rebind = %v", got)
	}
}

func TestEvalDefinitionsYieldNull(t *testing.T) {
	rt, eng := newRuntime(t)

	for _, src := range []string{
		"f(x) = x + 1",
		"function g(x)\n  2 * x\nend",
		"type P\n  a\nend",
	} {
		if got := eval(t, rt, src); !value.Equal(got, value.Null{}) {
			t.Errorf("Eval(%q) = %v, want null", src, got)
		}
	}
	if n := rt.References(); n != 0 {
		t.Errorf("definitions pinned %d references", n)
	}
	if n := eng.Retained(); n != 0 {
		t.Errorf("engine retains %d values after definitions", n)
	}
	if got := invoke(t, rt, "g", invoke(t, rt, "f", value.Int(1))); !value.Equal(got, value.Int(4)) {
		t.Errorf("g(f(1)) = %v", got)
	}

	lambda, ok := eval(t, rt, "x -> x").(*value.Ref)
	if !ok {
		t.Fatal("anonymous function did not decode to a reference")
	}
	if err := rt.Release(lambda); err != nil {
		t.Errorf("Release: %v", err)
	}
}

func TestAsyncDeliveryOrder(t *testing.T) {
	rt, _ := newRuntime(t)

	const n = 100
	var (
		mu  sync.Mutex
		got []int64
		wg  sync.WaitGroup
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		rt.InvokeAsync("identity", func(v value.Value, err error) {
			defer wg.Done()
			if err != nil {
				t.Errorf("identity: %v", err)
				return
			}
			mu.Lock()
			got = append(got, int64(v.(value.Int)))
			mu.Unlock()
		}, value.Int(i))
	}
	wg.Wait()
	for i, v := range got {
		if v != int64(i) {
			t.Fatalf("delivery %d carried %d", i, v)
		}
	}
}

func TestReferences(t *testing.T) {
	rt, eng := newRuntime(t)
	eval(t, rt, `include("inc5.jl")`)

	obj, ok := eval(t, rt, "T1(5, [3, 4, 5, 6, 7, 8])").(*value.Ref)
	if !ok {
		t.Fatal("struct did not decode to a reference")
	}
	got := invoke(t, rt, "t1Mult", obj)
	want := value.NewBuffer([]float64{15, 20, 25, 30, 35, 40})
	if !value.Equal(got, want) {
		t.Errorf("t1Mult = %v, want %v", got, want)
	}

	cons, ok := invoke(t, rt, "t1Cons", value.Int(5), value.Array{value.Int(1), value.Int(2), value.Int(3)}).(*value.Ref)
	if !ok {
		t.Fatal("t1Cons did not return a reference")
	}
	got = invoke(t, rt, "t1Mult", cons)
	if !value.Equal(got, value.NewBuffer([]float64{5, 10, 15})) {
		t.Errorf("t1Mult(t1Cons) = %v", got)
	}

	if rt.References() != 2 {
		t.Errorf("References = %d, want 2", rt.References())
	}
	if err := rt.Release(obj); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := rt.Release(obj); err != nil {
		t.Errorf("second Release: %v", err)
	}
	if _, err := rt.Invoke(context.Background(), "t1Mult", obj); !errors.HasKind(err, errors.KindReferenceInvalid) {
		t.Errorf("use after release = %v", err)
	}
	async := invokeAsync(rt, "t1Mult", obj)
	if !errors.HasKind(async.err, errors.KindReferenceInvalid) {
		t.Errorf("async use after release = %v", async.err)
	}

	if err := rt.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := eng.Retained(); n != 0 {
		t.Errorf("engine still retains %d values after Close", n)
	}
}

func TestReleaseDuringQueuedCall(t *testing.T) {
	rt, _ := newRuntime(t)
	eval(t, rt, `include("inc5.jl")`)
	ref := eval(t, rt, "T1(2, [1, 2])").(*value.Ref)

	// The call is queued behind a slow task; the release that follows must
	// not pull the value out from under it.
	block := make(chan struct{})
	rt.w.post(func() { <-block })
	ch := make(chan outcome, 1)
	rt.InvokeAsync("t1Mult", func(v value.Value, err error) { ch <- outcome{v, err} }, ref)
	if err := rt.Release(ref); err != nil {
		t.Fatalf("Release: %v", err)
	}
	close(block)

	out := <-ch
	if out.err != nil || !value.Equal(out.v, value.NewBuffer([]float64{2, 4})) {
		t.Fatalf("queued call = %v, %v", out.v, out.err)
	}
	if _, err := rt.Invoke(context.Background(), "t1Mult", ref); !errors.HasKind(err, errors.KindReferenceInvalid) {
		t.Errorf("call after release = %v", err)
	}
}

// countingHost records releases reaching the engine.
type countingHost struct {
	*engine.Engine
	released atomic.Int32
}

func (h *countingHost) Release(id uint64) {
	h.released.Add(1)
	h.Engine.Release(id)
}

func TestReleaseWhileClosing(t *testing.T) {
	eng, err := engine.New()
	if err != nil {
		t.Fatal(err)
	}
	host := &countingHost{Engine: eng}
	rt, err := New(host)
	if err != nil {
		t.Fatal(err)
	}
	eval(t, rt, "type Pair\n  a\n  b\nend")
	ref := invoke(t, rt, "Pair", value.Int(1), value.Int(2)).(*value.Ref)

	block := make(chan struct{})
	rt.w.post(func() { <-block })
	closed := make(chan error, 1)
	go func() { closed <- rt.Close(context.Background()) }()
	for rt.w.post(func() {}) {
		time.Sleep(time.Millisecond)
	}

	// The runtime thread is still busy; the release must wait for it.
	if err := rt.Release(ref); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if n := host.released.Load(); n != 0 {
		t.Fatalf("host released %d values while the runtime thread was busy", n)
	}
	close(block)
	if err := <-closed; err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := host.released.Load(); n != 1 {
		t.Errorf("host released %d values, want 1", n)
	}
	if n := eng.Retained(); n != 0 {
		t.Errorf("engine still retains %d values", n)
	}
}

func TestCloseFromCallback(t *testing.T) {
	rt, _ := newRuntime(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	gate := make(chan struct{})
	rt.w.post(func() { <-gate })
	closed := make(chan error, 1)
	rt.EvalAsync("1", func(value.Value, error) { closed <- rt.Close(ctx) })
	later := make(chan outcome, 1)
	rt.EvalAsync("2", func(v value.Value, err error) { later <- outcome{v, err} })
	close(gate)

	if err := <-closed; err != nil {
		t.Fatalf("Close from callback = %v", err)
	}
	select {
	case out := <-later:
		if out.err != nil || !value.Equal(out.v, value.Int(2)) {
			t.Errorf("later callback = %v, %v", out.v, out.err)
		}
	case <-ctx.Done():
		t.Fatal("later callback never delivered")
	}
	if _, err := rt.Eval(ctx, "3"); !errors.HasKind(err, errors.KindNotInitialized) {
		t.Errorf("Eval after Close = %v", err)
	}
}

func TestRejectedCallReturnsBorrows(t *testing.T) {
	rt, _ := newRuntime(t)
	eval(t, rt, `include("inc5.jl")`)
	ref := eval(t, rt, "T1(2, [1, 2])").(*value.Ref)

	// Hold the runtime thread so references stay live while the queue is
	// already closed: arguments encode, the task is rejected.
	gate := make(chan struct{})
	rt.w.post(func() { <-gate })
	rt.w.stop()
	if _, err := rt.Invoke(context.Background(), "t1Mult", ref); !errors.HasKind(err, errors.KindNotInitialized) {
		t.Fatalf("Invoke on stopped worker = %v", err)
	}
	ch := make(chan error, 1)
	rt.InvokeAsync("t1Mult", func(_ value.Value, err error) { ch <- err }, ref)
	if err := <-ch; !errors.HasKind(err, errors.KindNotInitialized) {
		t.Fatalf("InvokeAsync on stopped worker = %v", err)
	}

	if err := rt.Release(ref); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if n := rt.refs.Pending(); n != 0 {
		t.Errorf("release still pinned by %d rejected calls", n)
	}
	close(gate)
}

func TestConcurrentReferences(t *testing.T) {
	var (
		mu     sync.Mutex
		events = map[resource.EventType]int{}
	)
	rt, eng := newRuntime(t, WithObserver(resource.ObserverFunc(func(e resource.Event) {
		mu.Lock()
		events[e.Type]++
		mu.Unlock()
	})))
	eval(t, rt, `include("inc5.jl")`)

	const n = 400
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := rt.Invoke(context.Background(), "t1Cons", value.Int(i), value.NewBuffer([]float64{1, 2}))
			if err != nil {
				t.Errorf("t1Cons: %v", err)
				return
			}
			ref := v.(*value.Ref)
			if i%2 == 0 {
				if _, err := rt.Invoke(context.Background(), "t1Mult", ref); err != nil {
					t.Errorf("t1Mult: %v", err)
				}
			}
			if err := rt.Release(ref); err != nil {
				t.Errorf("Release: %v", err)
			}
			_ = rt.Release(ref)
		}(i)
	}
	wg.Wait()

	// Host-side releases are queued; a round trip flushes them.
	eval(t, rt, "nothing")
	if rt.References() != 0 {
		t.Errorf("References = %d after releasing all", rt.References())
	}
	if got := eng.Retained(); got != 0 {
		t.Errorf("engine retains %d values", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if events[resource.EventCreated] != n || events[resource.EventReleased] != n {
		t.Errorf("events = %v, want %d created and released", events, n)
	}
}

func TestClose(t *testing.T) {
	rt, _ := newRuntime(t)

	var wg sync.WaitGroup
	results := make([]outcome, 20)
	for i := range results {
		wg.Add(1)
		rt.InvokeAsync("identity", func(v value.Value, err error) {
			results[i] = outcome{v, err}
			wg.Done()
		}, value.Int(i))
	}
	if err := rt.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	wg.Wait()
	for i, r := range results {
		if r.err != nil || !value.Equal(r.v, value.Int(i)) {
			t.Errorf("queued call %d = %v, %v", i, r.v, r.err)
		}
	}

	if _, err := rt.Eval(context.Background(), "1"); !errors.HasKind(err, errors.KindNotInitialized) {
		t.Errorf("Eval after Close = %v", err)
	}
	ch := make(chan error, 1)
	rt.EvalAsync("1", func(_ value.Value, err error) { ch <- err })
	if err := <-ch; !errors.HasKind(err, errors.KindNotInitialized) {
		t.Errorf("EvalAsync after Close = %v", err)
	}
	if err := rt.Close(context.Background()); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestTypedBufferSums(t *testing.T) {
	rt, _ := newRuntime(t)

	i8 := make([]int8, 256)
	u8 := make([]byte, 256)
	for i := range i8 {
		i8[i] = int8(i)
		u8[i] = byte(i)
	}
	i16 := make([]int16, 65536)
	u16 := make([]uint16, 65536)
	for i := range i16 {
		i16[i] = int16(i)
		u16[i] = uint16(i)
	}

	exact := []struct {
		name string
		in   value.Value
		want value.Value
	}{
		{"int8", value.NewBuffer(i8), value.Int(-128)},
		{"uint8", value.Bytes(u8), value.Int(32640)},
		{"int16", value.NewBuffer(i16), value.Int(-32768)},
		{"uint16", value.NewBuffer(u16), value.Int(2147450880)},
	}
	for _, tt := range exact {
		t.Run(tt.name, func(t *testing.T) {
			if got := invoke(t, rt, "sum", tt.in); !value.Equal(got, tt.want) {
				t.Errorf("sum = %v, want %v", got, tt.want)
			}
		})
	}

	// Accumulation order is the runtime's; only bounded agreement holds.
	f32 := make([]float32, 1000)
	for i := range f32 {
		f32[i] = 1234.5678
	}
	got, ok := invoke(t, rt, "sum", value.NewBuffer(f32)).(value.Float)
	if !ok || math.Abs(float64(got)-1.2345678e6) > 50 {
		t.Errorf("float32 sum = %v", got)
	}
}
