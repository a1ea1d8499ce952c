// Package shape resolves the dimensions and element kind of host arrays
// before they are allocated in the runtime.
//
// Implicit mode walks a nested value.Array; explicit mode trusts the dims
// attached to a typed buffer and only checks that they cover it.
//
// This package is internal to the transcoder.
package shape
