// Package tvm is a Go client for the packed-function interface of a tensor
// runtime.
//
// Every call crosses the boundary as an array of 8-byte values with a
// parallel array of type codes. The package wraps that convention in typed
// values and move-only handles:
//
//	ArgValue / RetValue   tagged values passed to and returned from calls
//	Function              packed function handle (global or owned)
//	CallBuilder           positional arguments plus an optional output slot
//	Module                loaded module with imports and an entry function
//	NDArray               tensor handle (owning or view)
//	Registry              per-client cache of global function handles
//
// The runtime itself sits behind capi.Runtime. The native package provides
// an in-process implementation; capi/libtvm binds libtvm_runtime with cgo
// under the "tvm" build tag.
//
// # Quick Start
//
//	rt := native.New()
//	defer rt.Close(ctx)
//	client := tvm.New(rt)
//
//	err := client.RegisterFunc("sum", func(args []tvm.ArgValue) (tvm.RetValue, error) {
//		var total int64
//		for _, a := range args {
//			v, err := a.ToInt()
//			if err != nil {
//				return tvm.RetValue{}, err
//			}
//			total += v
//		}
//		return tvm.Ret(tvm.Int(total)), nil
//	}, false)
//
//	ret, err := client.Builder().
//		GetFunction("sum", false).
//		Args(tvm.Int(10), tvm.Int(20), tvm.Int(30)).
//		Invoke()
//
// # Ownership
//
// Handles returned by the runtime are owned by the wrapper that first takes
// them and are freed exactly once, by Release or by a GC finalizer as a last
// resort. Global functions and array views are never freed by the client.
// Using a wrapper after Release panics.
//
// # Errors
//
// Errors are *errors.Error values carrying a phase and a kind. Runtime
// failures surface as call_failed with the runtime's last-error message.
package tvm
