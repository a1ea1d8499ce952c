package runtime

import (
	"context"
	"slices"
	"testing"

	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/errors"
	"github.com/wippyai/numbridge/value"
)

func TestImport(t *testing.T) {
	rt, _ := newRuntime(t)

	mod, err := rt.Import(context.Background(), "testMod")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if mod.Name() != "testMod" || mod.Path() != "testMod" {
		t.Errorf("module = %s from %s", mod.Name(), mod.Path())
	}
	if got := mod.Members(); !slices.Equal(got, []string{"test", "twice"}) {
		t.Errorf("Members = %v", got)
	}
	if mod.Has("hidden") {
		t.Error("unexported function listed as a member")
	}

	got, err := mod.Call(context.Background(), "test", value.Int(100))
	if err != nil || !value.Equal(got, value.Int(5050)) {
		t.Fatalf("test(100) = %v, %v", got, err)
	}
	if got := invoke(t, rt, "testMod.twice", value.Int(4)); !value.Equal(got, value.Int(8)) {
		t.Errorf("testMod.twice(4) = %v", got)
	}

	ch := make(chan outcome, 1)
	mod.CallAsync("test", func(v value.Value, err error) { ch <- outcome{v, err} }, value.Int(10))
	if out := <-ch; out.err != nil || !value.Equal(out.v, value.Int(55)) {
		t.Errorf("async test(10) = %v, %v", out.v, out.err)
	}
}

func TestImportAsync(t *testing.T) {
	rt, _ := newRuntime(t)

	type result struct {
		mod *ModuleProxy
		err error
	}
	ch := make(chan result, 1)
	rt.ImportAsync("testMod.jl", func(m *ModuleProxy, err error) { ch <- result{m, err} })
	r := <-ch
	if r.err != nil {
		t.Fatalf("ImportAsync: %v", r.err)
	}
	got, err := r.mod.Call(context.Background(), "test", value.Int(100))
	if err != nil || !value.Equal(got, value.Int(5050)) {
		t.Errorf("test(100) = %v, %v", got, err)
	}
}

func TestReimportReplacesModule(t *testing.T) {
	rt, _ := newRuntime(t)

	if _, err := rt.Import(context.Background(), "testMod"); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got := invoke(t, rt, "testMod.test", value.Int(3)); !value.Equal(got, value.Int(6)) {
		t.Fatalf("test(3) = %v", got)
	}
	eval(t, rt, "module testMod\nexport test\ntest(n) = n\nend")
	if got := invoke(t, rt, "testMod.test", value.Int(3)); !value.Equal(got, value.Int(3)) {
		t.Errorf("test(3) after redefinition = %v", got)
	}
	mod, err := rt.Import(context.Background(), "testMod")
	if err != nil {
		t.Fatalf("re-Import: %v", err)
	}
	if got, _ := mod.Call(context.Background(), "test", value.Int(3)); !value.Equal(got, value.Int(6)) {
		t.Errorf("test(3) after re-import = %v", got)
	}
}

func TestImportErrors(t *testing.T) {
	rt, _ := newRuntime(t)

	tests := []struct {
		name string
		path string
		kind errors.Kind
		msg  string
	}{
		{"missing", "nope", errors.KindModuleNotFound, "ArgumentError: nope not found in path"},
		{"missing with dir", "test/nope", errors.KindModuleNotFound, "ArgumentError: test/nope not found in path"},
		{"no module", "notmod.jl", errors.KindInvalidInput, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rt.Import(context.Background(), tt.path)
			if !errors.HasKind(err, tt.kind) {
				t.Fatalf("Import(%s) = %v, want kind %s", tt.path, err, tt.kind)
			}
			if tt.msg != "" && err.Error() != tt.msg {
				t.Errorf("message = %q, want %q", err.Error(), tt.msg)
			}
			ch := make(chan error, 1)
			rt.ImportAsync(tt.path, func(m *ModuleProxy, err error) {
				if m != nil {
					t.Errorf("async module = %v alongside error", m)
				}
				ch <- err
			})
			if aerr := <-ch; aerr == nil || aerr.Error() != err.Error() {
				t.Errorf("async err = %v, sync err = %v", aerr, err)
			}
		})
	}
}

func TestImportWithoutLoader(t *testing.T) {
	eng, err := engine.New()
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	rt, err := New(eng)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Close(context.Background())

	if _, err := rt.Import(context.Background(), "testMod"); !errors.HasKind(err, errors.KindNotInitialized) {
		t.Errorf("Import without loader = %v", err)
	}
	if _, err := rt.NewScript(context.Background(), "inc3.jl"); !errors.HasKind(err, errors.KindNotInitialized) {
		t.Errorf("NewScript without loader = %v", err)
	}
}

func TestModuleName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"testMod", "testMod"},
		{"test/testMod", "testMod"},
		{"test/testMod.jl", "testMod"},
		{`test\testMod.jl`, "testMod"},
		{"a.b.jl", "a.b"},
	}
	for _, tt := range tests {
		if got := moduleName(tt.path); got != tt.want {
			t.Errorf("moduleName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
