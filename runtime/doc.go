// Package runtime is the bridge's public API: it owns the runtime thread,
// converts values at the boundary and resolves names to callables.
//
// # Quick Start
//
//	eng, _ := engine.New()
//	rt, err := runtime.New(eng, runtime.WithLoader(loader.NewFileLoader(".")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	v, err := rt.Eval(ctx, "1 + 1")              // value.Int(2)
//	v, err = rt.Invoke(ctx, "Base.identity", value.String("x"))
//
//	rt.InvokeAsync("sum", func(v value.Value, err error) {
//	    // delivered in submission order
//	}, value.Array{value.Int(1), value.Int(2)})
//
// # Threading
//
// The host is single-threaded. Every Eval, Invoke, Import and Exec becomes
// a task on one worker goroutine; synchronous variants block until their
// task ran, asynchronous ones return at once and receive the outcome on a
// delivery goroutine. Arguments are converted on the caller's goroutine
// before the task is queued, so a reference released after submission
// stays valid for that call.
//
// # Errors
//
// Every failure is an *errors.Error. The same value is returned by the
// synchronous call and passed to the callback of the asynchronous one.
// Runtime diagnostics and missing modules keep the runtime's own message.
//
// # Modules and Scripts
//
// Import executes a source file in Main and returns a proxy whose members
// are the module's exported callables. NewScript evaluates a file in a
// fresh module named njIsoMod<N>; the file's final value is the entry
// point called by Exec.
package runtime
