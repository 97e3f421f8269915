//go:build tvm

package libtvm

/*
#include <tvm/runtime/c_runtime_api.h>
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"

	"github.com/wippyai/tvm-go/capi"
)

//export goTVMPackedCall
func goTVMPackedCall(args *C.TVMValue, codes *C.int, n C.int, ret C.TVMRetValueHandle, resource unsafe.Pointer) C.int {
	cb := cgo.Handle(uintptr(resource)).Value().(capi.PackedCallback)
	var values []capi.Value
	var tcodes []capi.TypeCode
	if n > 0 {
		values = unsafe.Slice((*capi.Value)(unsafe.Pointer(args)), int(n))
		tcodes = unsafe.Slice((*capi.TypeCode)(unsafe.Pointer(codes)), int(n))
	}
	return C.int(cb.Call(values, tcodes, capi.ReturnHandle(uintptr(unsafe.Pointer(ret)))))
}

//export goTVMPackedFinalize
func goTVMPackedFinalize(resource unsafe.Pointer) {
	h := cgo.Handle(uintptr(resource))
	h.Value().(capi.PackedCallback).Finalize()
	h.Delete()
}
