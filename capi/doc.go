// Package capi describes the C-ABI boundary between the client and a native
// tensor runtime.
//
// Everything here mirrors c_runtime_api.h: the 8-byte Value union, the
// TypeCode discriminants, the DLTensor descriptor, and the Runtime
// interface whose methods map one-to-one onto the runtime's exported entry
// points. Entry points report failure through a non-zero Status and the
// runtime's last-error string, exactly like the C API.
//
// Two implementations exist:
//
//	native/        in-process Go runtime (default, used by tests and the CLI)
//	capi/libtvm/   cgo binding to libtvm_runtime (build tag "tvm")
//
// Application code should not use this package directly; the root tvm
// package wraps it with owning handle types and typed values.
package capi
