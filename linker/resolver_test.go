package linker

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/errors"
)

func newResolver(t *testing.T) (*engine.Engine, *Resolver) {
	t.Helper()
	e, err := engine.New()
	if err != nil {
		t.Fatal(err)
	}
	return e, NewResolver(e.Main())
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		input  string
		want   []string
		wantOk bool
	}{
		{"identity", []string{"identity"}, true},
		{"Base.identity", []string{"Base", "identity"}, true},
		{"Base.LinAlg.BLAS.dot", []string{"Base", "LinAlg", "BLAS", "dot"}, true},
		{"", nil, false},
		{"a..b", nil, false},
		{".a", nil, false},
		{"a.", nil, false},
	}
	for _, tt := range tests {
		got, ok := SplitPath(tt.input)
		if ok != tt.wantOk {
			t.Errorf("SplitPath(%q) ok = %v, want %v", tt.input, ok, tt.wantOk)
			continue
		}
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("SplitPath(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	e, r := newResolver(t)
	paths := []string{
		"identity",
		"Base.identity",
		"Base.LinAlg.BLAS.dot",
		"Base.LinAlg.dot",
		"Base.Dates.now",
		"Core.typeof",
		"Int8",
		"+",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			fn, err := r.Resolve(p)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", p, err)
			}
			if !engine.IsCallable(fn) {
				t.Fatalf("Resolve(%q) = %T, not callable", p, fn)
			}
		})
	}

	fn, _ := r.Resolve("Base.LinAlg.BLAS.dot")
	a := &engine.Array{Elem: engine.Float64Type, Dims: []int{2}, Data: []engine.Value{1.0, 2.0}}
	b := &engine.Array{Elem: engine.Float64Type, Dims: []int{2}, Data: []engine.Value{3.0, 4.0}}
	got, err := e.Call(context.Background(), fn, []engine.Value{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if got != 11.0 {
		t.Errorf("BLAS.dot = %v, want 11", got)
	}
}

func TestResolveUndefined(t *testing.T) {
	_, r := newResolver(t)
	tests := []struct {
		path string
		want string
	}{
		{"a", "method a is undefined"},
		{"a.b", "method a.b is undefined"},
		{"Base.nope", "method Base.nope is undefined"},
		{"Base.identity.x", "method Base.identity.x is undefined"},
		{"Base.pi", "method Base.pi is undefined"},
		{"Base..identity", "method Base..identity is undefined"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := r.Resolve(tt.path)
			if !errors.HasKind(err, errors.KindUndefinedBinding) {
				t.Fatalf("expected undefined binding, got %v", err)
			}
			if got := err.Error(); got != "[resolve] undefined_binding: "+tt.want {
				t.Errorf("error = %q, want %q", got, tt.want)
			}
			if stderrors.Unwrap(err) == nil {
				t.Error("failing segment not kept as cause")
			}
		})
	}
	if r.Len() != 0 {
		t.Errorf("failed resolutions were cached: %d", r.Len())
	}
}

func TestResolveCache(t *testing.T) {
	e, r := newResolver(t)
	ctx := context.Background()

	if _, err := e.Execute(ctx, e.Main(), "module M\nexport f\nf(x) = x + 1\ng(x) = x\nend"); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"M.f", "M.g", "identity"} {
		if _, err := r.Resolve(p); err != nil {
			t.Fatalf("Resolve(%q): %v", p, err)
		}
	}
	if _, err := r.Resolve("M.f"); err != nil {
		t.Fatal(err)
	}
	hits, misses := r.Stats()
	if hits != 1 || misses != 3 {
		t.Errorf("hits=%d misses=%d", hits, misses)
	}

	if n := r.Invalidate("M"); n != 2 {
		t.Errorf("Invalidate(M) dropped %d, want 2", n)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}

	r.Preload("M.h", e.Main())
	if n := r.Invalidate("Mx"); n != 0 {
		t.Errorf("Invalidate(Mx) dropped %d", n)
	}
	if n := r.Invalidate(""); n != 2 {
		t.Errorf("Invalidate(\"\") dropped %d, want 2", n)
	}
}

func TestPreload(t *testing.T) {
	e, r := newResolver(t)
	id, _ := e.Base().Get("identity")
	r.Preload("alias.identity", id)

	fn, err := r.Resolve("alias.identity")
	if err != nil || fn != id {
		t.Fatalf("Resolve after Preload = %v, %v", fn, err)
	}
}
