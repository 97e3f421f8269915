package capi

// Status is the return code of every runtime entry point. Zero is success;
// on failure the message is available from GetLastError until the next
// failing call on the same thread.
type Status int32

const (
	StatusOK   Status = 0
	StatusFail Status = -1
)

// OK reports whether the status is success.
func (s Status) OK() bool { return s == StatusOK }

// Memory pins out-of-line payloads for the duration of a call and copies
// runtime-owned payloads back into Go memory.
type Memory interface {
	// AllocString copies s into runtime-visible memory as a NUL-terminated
	// string and returns its address.
	AllocString(s string) Handle
	// AllocBytes copies b and returns the address of a ByteArray describing it.
	AllocBytes(b []byte) Handle
	// Free releases memory returned by AllocString or AllocBytes.
	Free(h Handle)
	// ReadString copies the NUL-terminated string at h.
	ReadString(h Handle) string
	// ReadBytes copies the contents of the ByteArray at h.
	ReadBytes(h Handle) []byte
}

// PackedCallback is the host side of a function created with
// FuncCreateFromHost. The runtime calls Call for each invocation and
// Finalize exactly once, when the last reference to the function is freed.
type PackedCallback interface {
	Call(args []Value, codes []TypeCode, ret ReturnHandle) Status
	Finalize()
}

// Runtime is the full set of runtime entry points the client uses.
//
// Handles written through out parameters are owned by the caller unless the
// method says otherwise and must be released with the matching Free call.
type Runtime interface {
	Memory

	// FuncCall invokes fn. The return value is written to ret and retCode.
	FuncCall(fn Handle, args []Value, codes []TypeCode, ret *Value, retCode *TypeCode) Status
	// FuncGetGlobal resolves a registered global. The handle is borrowed
	// from the registry: it must not be freed. Unknown names yield a null
	// handle and StatusOK.
	FuncGetGlobal(name string, out *Handle) Status
	FuncListGlobalNames(out *[]string) Status
	// FuncRegisterGlobal adds a reference to fn under name. Registering an
	// existing name fails unless override is set.
	FuncRegisterGlobal(name string, fn Handle, override bool) Status
	FuncCreateFromHost(cb PackedCallback, out *Handle) Status
	FuncFree(fn Handle) Status

	// CFuncSetReturn stores the callback result. Object handles in v are
	// moved into the return slot.
	CFuncSetReturn(ret ReturnHandle, v []Value, codes []TypeCode) Status
	// CbArgToReturn takes a reference on an object argument so the callback
	// may keep it past its own return.
	CbArgToReturn(v *Value, code TypeCode) Status

	ModLoadFromFile(path, format string, out *Handle) Status
	ModImport(mod, dep Handle) Status
	// ModGetFunction yields a null handle when name is not found.
	ModGetFunction(mod Handle, name string, queryImports bool, out *Handle) Status
	ModFree(mod Handle) Status

	ArrayAlloc(shape []int64, dtype DataType, ctx Context, out *Handle) Status
	ArrayFree(h Handle) Status
	ArrayCopyFromTo(from, to Handle) Status
	ArrayCopyFromBytes(h Handle, data []byte) Status
	ArrayCopyToBytes(h Handle, data []byte) Status
	// ArrayDescriptor returns the DLTensor behind an array handle. The
	// pointer stays valid until the array is freed.
	ArrayDescriptor(h Handle) *Tensor

	ObjectFree(h Handle) Status
	Synchronize(ctx Context) Status

	GetLastError() string
	SetLastError(msg string)
}
