// Package linker resolves dotted names in the runtime namespace.
//
// A path is split on "." and walked from the root module:
//
//	Base.LinAlg.BLAS.dot
//	└─ Base ── LinAlg ── BLAS ── dot
//	   module   module   module   callable
//
// Lookups at each level see the module's own bindings and the exports of
// the modules it uses, so "identity" resolves from Main and "Base.identity"
// through the Base module.
//
// # Errors
//
// Any failure reports UndefinedBinding naming the full requested path,
// "method a.b is undefined", with the failing segment in the cause.
//
// # Caching
//
// Successful resolutions are cached under the full path. Callers invalidate
// entries when modules are reloaded or user code may have rebound names:
//
//	r.Invalidate("testMod") // testMod and testMod.*
//	r.Invalidate("")        // everything
package linker
