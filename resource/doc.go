// Package resource manages opaque references to runtime values.
//
// Values the host cannot represent (composite structs, functions, modules,
// types, match objects) stay in the runtime. The host receives a
// *value.Ref proxy backed by a handle in a mutex-guarded table.
//
// # Lifecycle
//
//	Created   Wrap retains the value in the runtime and inserts it
//	Active    Resolve and Acquire return the value
//	Released  Release drops the entry; outstanding borrows defer the
//	          runtime-side release until the last one returns
//	Invalid   every later use fails with ReferenceInvalid
//
// Release is idempotent. Freed slots are reused, but each slot remembers
// the proxy it was issued to, so a stale proxy never resolves to a newer
// value.
//
// # Borrows
//
// A call pins every reference among its arguments when it is submitted:
//
//	s := manager.Session()
//	args, err := transcoder.NewEncoder(s).EncodeAll(hostArgs)
//	// ... run the call on the runtime thread ...
//	s.Close()
//
// A Release issued while the call is queued only marks the entry; the
// value stays retained until the session closes.
//
// # Garbage Collection
//
// WithCleanup registers a runtime.AddCleanup hook per proxy that releases
// the entry once the proxy is unreachable. Correctness never depends on
// it; explicit Release remains the contract.
//
// # Observers
//
// Observers receive created, borrowed, borrow_returned, released and
// collected events:
//
//	m := resource.NewManager(host, resource.WithObserver(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s handle=%d type=%s", e.Type, e.Handle, e.TypeName)
//	})))
package resource
