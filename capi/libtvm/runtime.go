//go:build tvm

package libtvm

/*
#cgo LDFLAGS: -ltvm_runtime
#include <stdlib.h>
#include <string.h>
#include <stdint.h>
#include <tvm/runtime/c_runtime_api.h>

extern int goTVMPackedCall(TVMValue* args, int* codes, int n, TVMRetValueHandle ret, void* resource);
extern void goTVMPackedFinalize(void* resource);

static inline int createFromGo(uintptr_t h, TVMFunctionHandle* out) {
	return TVMFuncCreateFromCFunc(goTVMPackedCall, (void*)h, goTVMPackedFinalize, out);
}

// allocBytes places a TVMByteArray header and its payload in one block.
static inline TVMByteArray* allocBytes(const void* data, size_t n) {
	TVMByteArray* arr = malloc(sizeof(TVMByteArray) + n);
	char* payload = (char*)(arr + 1);
	if (n > 0) {
		memcpy(payload, data, n);
	}
	arr->data = payload;
	arr->size = n;
	return arr;
}
*/
import "C"

import (
	"runtime"
	"runtime/cgo"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/tvm-go/capi"
)

// Runtime binds the process-wide libtvm_runtime.
type Runtime struct {
	log     *zap.Logger
	lastErr string
	mu      sync.Mutex
}

var _ capi.Runtime = (*Runtime)(nil)

// New returns a runtime backed by the linked libtvm_runtime.
func New() *Runtime {
	return &Runtime{log: Logger()}
}

// call runs fn with the goroutine locked to its thread so the runtime's
// thread-local error message can be read before anything else runs there.
func (r *Runtime) call(fn func() C.int) capi.Status {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if rc := fn(); rc != 0 {
		msg := C.GoString(C.TVMGetLastError())
		r.mu.Lock()
		r.lastErr = msg
		r.mu.Unlock()
		r.log.Debug("runtime call failed", zap.String("error", msg))
		return capi.StatusFail
	}
	return capi.StatusOK
}

func (r *Runtime) GetLastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *Runtime) SetLastError(msg string) {
	cs := C.CString(msg)
	defer C.free(unsafe.Pointer(cs))
	C.TVMAPISetLastError(cs)
	r.mu.Lock()
	r.lastErr = msg
	r.mu.Unlock()
}

func handle(p unsafe.Pointer) capi.Handle { return capi.Handle(uintptr(p)) }

func ptr(h capi.Handle) unsafe.Pointer {
	// handles are C addresses owned by the runtime
	return *(*unsafe.Pointer)(unsafe.Pointer(&h))
}

func valuesPtr(v []capi.Value) *C.TVMValue {
	if len(v) == 0 {
		return nil
	}
	return (*C.TVMValue)(unsafe.Pointer(&v[0]))
}

func codesPtr(c []capi.TypeCode) *C.int {
	if len(c) == 0 {
		return nil
	}
	return (*C.int)(unsafe.Pointer(&c[0]))
}

func (r *Runtime) AllocString(s string) capi.Handle {
	return handle(unsafe.Pointer(C.CString(s)))
}

func (r *Runtime) AllocBytes(b []byte) capi.Handle {
	var p unsafe.Pointer
	if len(b) > 0 {
		p = unsafe.Pointer(&b[0])
	}
	return handle(unsafe.Pointer(C.allocBytes(p, C.size_t(len(b)))))
}

func (r *Runtime) Free(h capi.Handle) {
	C.free(ptr(h))
}

func (r *Runtime) ReadString(h capi.Handle) string {
	if h == 0 {
		return ""
	}
	return C.GoString((*C.char)(ptr(h)))
}

func (r *Runtime) ReadBytes(h capi.Handle) []byte {
	if h == 0 {
		return nil
	}
	arr := (*C.TVMByteArray)(ptr(h))
	return C.GoBytes(unsafe.Pointer(arr.data), C.int(arr.size))
}

func (r *Runtime) FuncCall(fn capi.Handle, args []capi.Value, codes []capi.TypeCode, ret *capi.Value, retCode *capi.TypeCode) capi.Status {
	var rv C.TVMValue
	var rc C.int
	st := r.call(func() C.int {
		return C.TVMFuncCall(C.TVMFunctionHandle(ptr(fn)), valuesPtr(args), codesPtr(codes), C.int(len(args)), &rv, &rc)
	})
	runtime.KeepAlive(args)
	runtime.KeepAlive(codes)
	if st.OK() {
		if ret != nil {
			*ret = *(*capi.Value)(unsafe.Pointer(&rv))
		}
		if retCode != nil {
			*retCode = capi.TypeCode(rc)
		}
	}
	return st
}

func (r *Runtime) FuncGetGlobal(name string, out *capi.Handle) capi.Status {
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))
	var h C.TVMFunctionHandle
	st := r.call(func() C.int { return C.TVMFuncGetGlobal(cs, &h) })
	*out = handle(unsafe.Pointer(h))
	return st
}

func (r *Runtime) FuncListGlobalNames(out *[]string) capi.Status {
	var n C.int
	var arr **C.char
	st := r.call(func() C.int { return C.TVMFuncListGlobalNames(&n, &arr) })
	if !st.OK() {
		return st
	}
	names := make([]string, 0, int(n))
	for _, p := range unsafe.Slice(arr, int(n)) {
		names = append(names, C.GoString(p))
	}
	*out = names
	return st
}

func (r *Runtime) FuncRegisterGlobal(name string, fn capi.Handle, override bool) capi.Status {
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))
	ov := C.int(0)
	if override {
		ov = 1
	}
	return r.call(func() C.int { return C.TVMFuncRegisterGlobal(cs, C.TVMFunctionHandle(ptr(fn)), ov) })
}

func (r *Runtime) FuncCreateFromHost(cb capi.PackedCallback, out *capi.Handle) capi.Status {
	h := cgo.NewHandle(cb)
	var fn C.TVMFunctionHandle
	st := r.call(func() C.int { return C.createFromGo(C.uintptr_t(h), &fn) })
	if !st.OK() {
		h.Delete()
		return st
	}
	*out = handle(unsafe.Pointer(fn))
	return st
}

func (r *Runtime) FuncFree(fn capi.Handle) capi.Status {
	return r.call(func() C.int { return C.TVMFuncFree(C.TVMFunctionHandle(ptr(fn))) })
}

func (r *Runtime) CFuncSetReturn(ret capi.ReturnHandle, v []capi.Value, codes []capi.TypeCode) capi.Status {
	return r.call(func() C.int {
		return C.TVMCFuncSetReturn(C.TVMRetValueHandle(ptr(capi.Handle(ret))), valuesPtr(v), codesPtr(codes), C.int(len(v)))
	})
}

func (r *Runtime) CbArgToReturn(v *capi.Value, code capi.TypeCode) capi.Status {
	return r.call(func() C.int { return C.TVMCbArgToReturn((*C.TVMValue)(unsafe.Pointer(v)), C.int(code)) })
}

func (r *Runtime) ModLoadFromFile(path, format string, out *capi.Handle) capi.Status {
	cp, cf := C.CString(path), C.CString(format)
	defer C.free(unsafe.Pointer(cp))
	defer C.free(unsafe.Pointer(cf))
	var m C.TVMModuleHandle
	st := r.call(func() C.int { return C.TVMModLoadFromFile(cp, cf, &m) })
	*out = handle(unsafe.Pointer(m))
	return st
}

func (r *Runtime) ModImport(mod, dep capi.Handle) capi.Status {
	return r.call(func() C.int { return C.TVMModImport(C.TVMModuleHandle(ptr(mod)), C.TVMModuleHandle(ptr(dep))) })
}

func (r *Runtime) ModGetFunction(mod capi.Handle, name string, queryImports bool, out *capi.Handle) capi.Status {
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))
	q := C.int(0)
	if queryImports {
		q = 1
	}
	var fn C.TVMFunctionHandle
	st := r.call(func() C.int { return C.TVMModGetFunction(C.TVMModuleHandle(ptr(mod)), cs, q, &fn) })
	*out = handle(unsafe.Pointer(fn))
	return st
}

func (r *Runtime) ModFree(mod capi.Handle) capi.Status {
	return r.call(func() C.int { return C.TVMModFree(C.TVMModuleHandle(ptr(mod))) })
}

func (r *Runtime) ArrayAlloc(shape []int64, dtype capi.DataType, ctx capi.Context, out *capi.Handle) capi.Status {
	var sp *C.tvm_index_t
	if len(shape) > 0 {
		sp = (*C.tvm_index_t)(unsafe.Pointer(&shape[0]))
	}
	var arr C.TVMArrayHandle
	st := r.call(func() C.int {
		return C.TVMArrayAlloc(sp, C.int(len(shape)),
			C.int(dtype.Code), C.int(dtype.Bits), C.int(dtype.Lanes),
			C.int(ctx.DeviceType), C.int(ctx.DeviceID), &arr)
	})
	runtime.KeepAlive(shape)
	*out = handle(unsafe.Pointer(arr))
	return st
}

func (r *Runtime) ArrayFree(h capi.Handle) capi.Status {
	return r.call(func() C.int { return C.TVMArrayFree(C.TVMArrayHandle(ptr(h))) })
}

func (r *Runtime) ArrayCopyFromTo(from, to capi.Handle) capi.Status {
	return r.call(func() C.int {
		return C.TVMArrayCopyFromTo(C.TVMArrayHandle(ptr(from)), C.TVMArrayHandle(ptr(to)), nil)
	})
}

func (r *Runtime) ArrayCopyFromBytes(h capi.Handle, data []byte) capi.Status {
	var p unsafe.Pointer
	if len(data) > 0 {
		p = unsafe.Pointer(&data[0])
	}
	st := r.call(func() C.int { return C.TVMArrayCopyFromBytes(C.TVMArrayHandle(ptr(h)), p, C.size_t(len(data))) })
	runtime.KeepAlive(data)
	return st
}

func (r *Runtime) ArrayCopyToBytes(h capi.Handle, data []byte) capi.Status {
	var p unsafe.Pointer
	if len(data) > 0 {
		p = unsafe.Pointer(&data[0])
	}
	st := r.call(func() C.int { return C.TVMArrayCopyToBytes(C.TVMArrayHandle(ptr(h)), p, C.size_t(len(data))) })
	runtime.KeepAlive(data)
	return st
}

// ArrayDescriptor reinterprets the handle: a TVMArrayHandle is a DLTensor
// pointer.
func (r *Runtime) ArrayDescriptor(h capi.Handle) *capi.Tensor {
	if h == 0 {
		return nil
	}
	return (*capi.Tensor)(ptr(h))
}

func (r *Runtime) ObjectFree(h capi.Handle) capi.Status {
	return r.call(func() C.int { return C.TVMObjectFree(C.TVMObjectHandle(ptr(h))) })
}

func (r *Runtime) Synchronize(ctx capi.Context) capi.Status {
	return r.call(func() C.int { return C.TVMSynchronize(C.int(ctx.DeviceType), C.int(ctx.DeviceID), nil) })
}
