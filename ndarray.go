package tvm

import (
	"fmt"
	goruntime "runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/exp/constraints"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/errors"
)

// Element is a scalar type that can back array contents.
type Element interface {
	constraints.Integer | constraints.Float
}

// NDArray is a tensor handle. An owning array frees its handle on Release;
// a view never frees and keeps its owner reachable.
type NDArray struct {
	client   *Client
	owner    *NDArray
	handle   capi.Handle
	view     bool
	released atomic.Bool
}

func (c *Client) ownedArray(h capi.Handle) *NDArray {
	a := &NDArray{client: c, handle: h}
	goruntime.SetFinalizer(a, (*NDArray).finalize)
	return a
}

func (c *Client) viewArray(h capi.Handle, owner *NDArray) *NDArray {
	return &NDArray{client: c, handle: h, view: true, owner: owner}
}

// Empty allocates an uninitialized compact array.
func (c *Client) Empty(shape []int64, ctx Context, dtype DataType) (*NDArray, error) {
	var h capi.Handle
	if st := c.rt.ArrayAlloc(shape, dtype.raw(), ctx.raw(), &h); !st.OK() {
		return nil, c.lastError(errors.PhaseAlloc, "array alloc")
	}
	return c.ownedArray(h), nil
}

// Handle returns the raw handle. It panics after Release.
func (a *NDArray) Handle() capi.Handle {
	if a.released.Load() {
		panic("tvm: use of released array")
	}
	return a.handle
}

// IsView reports whether a borrows its handle.
func (a *NDArray) IsView() bool { return a.view }

// IsReleased reports whether Release or Move has been called.
func (a *NDArray) IsReleased() bool { return a.released.Load() }

// tensor returns the runtime's descriptor. Callers must keep a reachable
// while they read it.
func (a *NDArray) tensor() *capi.Tensor {
	t := a.client.rt.ArrayDescriptor(a.Handle())
	if t == nil {
		panic("tvm: array handle has no descriptor")
	}
	return t
}

// Shape returns a copy of the dimensions.
func (a *NDArray) Shape() []int64 {
	defer goruntime.KeepAlive(a)
	return append([]int64(nil), a.tensor().ShapeSlice()...)
}

// Strides returns a copy of the strides in elements, or nil for a compact
// row-major array.
func (a *NDArray) Strides() []int64 {
	defer goruntime.KeepAlive(a)
	s := a.tensor().StridesSlice()
	if s == nil {
		return nil
	}
	return append([]int64(nil), s...)
}

func (a *NDArray) NDim() int {
	defer goruntime.KeepAlive(a)
	return int(a.tensor().Ndim)
}

func (a *NDArray) Size() int64 {
	defer goruntime.KeepAlive(a)
	return a.tensor().NumElements()
}

func (a *NDArray) ByteOffset() uint64 {
	defer goruntime.KeepAlive(a)
	return a.tensor().ByteOffset
}

func (a *NDArray) Ctx() Context {
	defer goruntime.KeepAlive(a)
	return contextFrom(a.tensor().Ctx)
}

func (a *NDArray) DType() DataType {
	defer goruntime.KeepAlive(a)
	return dataTypeFrom(a.tensor().Dtype)
}

func (a *NDArray) NBytes() int64 {
	defer goruntime.KeepAlive(a)
	return a.tensor().NBytes()
}

// IsContiguous reports whether the elements are laid out row-major without
// gaps.
func (a *NDArray) IsContiguous() bool {
	defer goruntime.KeepAlive(a)
	t := a.tensor()
	strides := t.StridesSlice()
	if strides == nil {
		return true
	}
	shape := t.ShapeSlice()
	want := int64(1)
	for i := len(shape) - 1; i >= 0; i-- {
		if shape[i] != 1 && strides[i] != want {
			return false
		}
		want *= shape[i]
	}
	return true
}

// CopyFromBytes fills the array from raw little-endian bytes. len(b) must
// equal NBytes.
func (a *NDArray) CopyFromBytes(b []byte) error {
	defer goruntime.KeepAlive(a)
	if st := a.client.rt.ArrayCopyFromBytes(a.Handle(), b); !st.OK() {
		return a.client.lastError(errors.PhaseCopy, "copy from bytes")
	}
	return nil
}

// ToByteArray copies the contents out as raw bytes.
func (a *NDArray) ToByteArray() (ByteArray, error) {
	defer goruntime.KeepAlive(a)
	b := make([]byte, a.NBytes())
	if st := a.client.rt.ArrayCopyToBytes(a.Handle(), b); !st.OK() {
		return ByteArray{}, a.client.lastError(errors.PhaseCopy, "copy to bytes")
	}
	return ByteArray{data: b}, nil
}

// CopyTo copies a into target. The element types must match; shapes are
// not compared, only the byte counts checked by the runtime.
func (a *NDArray) CopyTo(target *NDArray) error {
	src, dst := a.DType(), target.DType()
	if src != dst {
		return errors.TypeMismatch(errors.PhaseCopy, src.String(), dst.String())
	}
	defer goruntime.KeepAlive(a)
	defer goruntime.KeepAlive(target)
	if st := a.client.rt.ArrayCopyFromTo(a.Handle(), target.Handle()); !st.OK() {
		return a.client.lastError(errors.PhaseCopy, "copy array")
	}
	return nil
}

// CopyToContext allocates a compact array on ctx and copies a into it.
func (a *NDArray) CopyToContext(ctx Context) (*NDArray, error) {
	if a.Size() == 0 {
		return nil, errors.EmptyArray(errors.PhaseCopy)
	}
	out, err := a.client.Empty(a.Shape(), ctx, a.DType())
	if err != nil {
		return nil, err
	}
	if err := a.CopyTo(out); err != nil {
		out.Release()
		return nil, err
	}
	return out, nil
}

// Release frees an owning array. Views are only marked released.
func (a *NDArray) Release() {
	if !a.released.CompareAndSwap(false, true) {
		return
	}
	goruntime.SetFinalizer(a, nil)
	if !a.view {
		a.client.freeHandle(a.handle, CodeArrayHandle)
	}
	a.owner = nil
}

// Move transfers the handle to a new wrapper of the same kind.
func (a *NDArray) Move() *NDArray {
	h := a.Handle()
	if !a.released.CompareAndSwap(false, true) {
		panic("tvm: concurrent move of array")
	}
	goruntime.SetFinalizer(a, nil)
	if a.view {
		return a.client.viewArray(h, a.owner)
	}
	return a.client.ownedArray(h)
}

func (a *NDArray) finalize() {
	if !a.view && a.released.CompareAndSwap(false, true) {
		a.client.log.Warn("array released by finalizer")
		a.client.freeHandle(a.handle, CodeArrayHandle)
	}
}

func elemBytes[T Element](xs []T) []byte {
	if len(xs) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&xs[0])), len(xs)*int(unsafe.Sizeof(zero)))
}

// CopyFromBuffer fills a from data. Only the byte size is checked: the
// element type of data is not compared with the array's dtype.
func CopyFromBuffer[T Element](a *NDArray, data []T) error {
	err := a.CopyFromBytes(elemBytes(data))
	goruntime.KeepAlive(data)
	return err
}

// ToVec copies the array's elements into a new slice. The data goes through
// a compact cpu scratch array, so strided views and device arrays work.
// T must match the dtype's element size.
func ToVec[T Element](a *NDArray) ([]T, error) {
	n := a.Size()
	if a.NDim() == 0 || n == 0 {
		return nil, errors.EmptyArray(errors.PhaseCopy)
	}
	var zero T
	if int64(unsafe.Sizeof(zero))*int64(a.DType().Lanes) != int64(a.DType().ElemBytes()) {
		return nil, errors.TypeMismatch(errors.PhaseCopy, a.DType().String(), fmt.Sprintf("%T", zero))
	}
	scratch, err := a.CopyToContext(CPU(0))
	if err != nil {
		return nil, err
	}
	defer scratch.Release()

	out := make([]T, n*int64(a.DType().Lanes))
	if st := a.client.rt.ArrayCopyToBytes(scratch.Handle(), elemBytes(out)); !st.OK() {
		return nil, a.client.lastError(errors.PhaseCopy, "copy to vec")
	}
	return out, nil
}

// FromSlice allocates a 1-D cpu array of dtype and fills it from data.
func FromSlice[T Element](c *Client, dtype DataType, data []T) (*NDArray, error) {
	a, err := c.Empty([]int64{int64(len(data))}, CPU(0), dtype)
	if err != nil {
		return nil, err
	}
	if err := CopyFromBuffer(a, data); err != nil {
		a.Release()
		return nil, err
	}
	return a, nil
}
