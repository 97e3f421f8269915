package native

import (
	"fmt"
	"unsafe"

	"golang.org/x/exp/constraints"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/errors"
	"github.com/wippyai/tvm-go/resource"
)

// maxArrayBytes bounds a single host allocation.
const maxArrayBytes = int64(1) << 40

// array owns host memory described by a DLTensor. Views share the memory
// of a base array and hold a reference to it.
type array struct {
	rt      *Runtime
	words   []uint64 // backing store, 8-byte aligned
	shape   []int64
	strides []int64
	tensor  capi.Tensor
	size    int64 // bytes reachable from tensor.Data
	base    resource.Handle
}

func (a *array) Drop() {
	if a.base != 0 {
		a.rt.objects.Release(a.base)
	}
}

// ArrayAlloc allocates a compact row-major array on a known device.
func (r *Runtime) ArrayAlloc(shape []int64, dtype capi.DataType, ctx capi.Context, out *capi.Handle) capi.Status {
	if _, ok := r.device(ctx); !ok {
		return r.fail(errors.New(errors.PhaseAlloc, errors.KindNotFound).
			Detail("device %d(%d) not found", ctx.DeviceType, ctx.DeviceID).
			Build())
	}
	if dtype.Bits == 0 || dtype.Lanes == 0 {
		return r.fail(errors.InvalidInput(errors.PhaseAlloc, fmt.Sprintf("invalid dtype code=%d bits=%d lanes=%d", dtype.Code, dtype.Bits, dtype.Lanes)))
	}

	n := int64(1)
	for _, d := range shape {
		if d < 0 {
			return r.fail(errors.InvalidInput(errors.PhaseAlloc, fmt.Sprintf("negative dimension %d", d)))
		}
		if d != 0 && n > maxArrayBytes/d {
			return r.fail(errors.New(errors.PhaseAlloc, errors.KindAllocation).
				Detail("shape %v exceeds the array size limit", shape).
				Build())
		}
		n *= d
	}
	elem := dtype.ElemBytes()
	if n > 0 && elem > maxArrayBytes/n {
		return r.fail(errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Detail("%d elements of %d bytes exceed the array size limit", n, elem).
			Build())
	}
	nbytes := n * elem

	a := &array{
		rt:    r,
		words: make([]uint64, (nbytes+7)/8),
		shape: append([]int64(nil), shape...),
	}
	a.size = int64(len(a.words)) * 8
	a.tensor = capi.Tensor{
		Ctx:   ctx,
		Ndim:  int32(len(shape)),
		Dtype: dtype,
	}
	if len(a.words) > 0 {
		a.tensor.Data = unsafe.Pointer(&a.words[0])
	}
	if len(a.shape) > 0 {
		a.tensor.Shape = &a.shape[0]
	}

	*out = capi.Handle(r.objects.Insert(kindArray, a))
	return capi.StatusOK
}

// ArrayView creates an array sharing base's memory with its own shape,
// strides (in elements, nil for compact) and byte offset. The view keeps
// base alive.
func (r *Runtime) ArrayView(base capi.Handle, shape, strides []int64, byteOffset uint64) (capi.Handle, error) {
	v, ok := r.objects.GetTyped(resource.Handle(base), kindArray)
	if !ok {
		return 0, errors.NullHandle(errors.PhaseAlloc, "array")
	}
	b := v.(*array)
	if strides != nil && len(strides) != len(shape) {
		return 0, errors.InvalidInput(errors.PhaseAlloc, "strides and shape differ in length")
	}

	view := &array{
		rt:      r,
		shape:   append([]int64(nil), shape...),
		strides: append([]int64(nil), strides...),
		size:    b.size,
		base:    resource.Handle(base),
	}
	view.tensor = capi.Tensor{
		Data:       b.tensor.Data,
		Ctx:        b.tensor.Ctx,
		Ndim:       int32(len(shape)),
		Dtype:      b.tensor.Dtype,
		ByteOffset: b.tensor.ByteOffset + byteOffset,
	}
	if len(view.shape) > 0 {
		view.tensor.Shape = &view.shape[0]
	}
	if len(view.strides) > 0 {
		view.tensor.Strides = &view.strides[0]
	}

	if end := int64(view.tensor.ByteOffset) + span(&view.tensor); view.tensor.NumElements() > 0 && end > b.size {
		return 0, errors.InvalidInput(errors.PhaseAlloc, fmt.Sprintf("view extends past base array (%d > %d bytes)", end, b.size))
	}

	r.objects.Retain(resource.Handle(base))
	return capi.Handle(r.objects.Insert(kindArray, view)), nil
}

// ArrayFree releases an array reference.
func (r *Runtime) ArrayFree(h capi.Handle) capi.Status {
	return r.free(h, kindArray)
}

// ArrayDescriptor returns the DLTensor of an array, nil for bad handles.
func (r *Runtime) ArrayDescriptor(h capi.Handle) *capi.Tensor {
	v, ok := r.objects.GetTyped(resource.Handle(h), kindArray)
	if !ok {
		return nil
	}
	return &v.(*array).tensor
}

// ArrayCopyFromTo copies element data. Sizes must match exactly; dtypes are
// not compared.
func (r *Runtime) ArrayCopyFromTo(from, to capi.Handle) capi.Status {
	src := r.ArrayDescriptor(from)
	dst := r.ArrayDescriptor(to)
	if src == nil || dst == nil {
		return r.fail(errors.NullHandle(errors.PhaseCopy, "array"))
	}
	if src.NBytes() != dst.NBytes() {
		return r.fail(errors.New(errors.PhaseCopy, errors.KindInvalidInput).
			Detail("size mismatch: %d bytes into %d bytes", src.NBytes(), dst.NBytes()).
			Build())
	}
	if src.Dtype.ElemBytes() != dst.Dtype.ElemBytes() {
		return r.fail(errors.InvalidInput(errors.PhaseCopy, "element size mismatch"))
	}
	scatter(dst, gather(src))
	return capi.StatusOK
}

// ArrayCopyFromBytes fills an array from host bytes of exactly its size.
func (r *Runtime) ArrayCopyFromBytes(h capi.Handle, data []byte) capi.Status {
	t := r.ArrayDescriptor(h)
	if t == nil {
		return r.fail(errors.NullHandle(errors.PhaseCopy, "array"))
	}
	if int64(len(data)) != t.NBytes() {
		return r.fail(errors.New(errors.PhaseCopy, errors.KindInvalidInput).
			Detail("size mismatch: %d bytes into array of %d bytes", len(data), t.NBytes()).
			Build())
	}
	scatter(t, data)
	return capi.StatusOK
}

// ArrayCopyToBytes copies an array into host bytes of exactly its size.
func (r *Runtime) ArrayCopyToBytes(h capi.Handle, data []byte) capi.Status {
	t := r.ArrayDescriptor(h)
	if t == nil {
		return r.fail(errors.NullHandle(errors.PhaseCopy, "array"))
	}
	if int64(len(data)) != t.NBytes() {
		return r.fail(errors.New(errors.PhaseCopy, errors.KindInvalidInput).
			Detail("size mismatch: array of %d bytes into %d bytes", t.NBytes(), len(data)).
			Build())
	}
	copy(data, gather(t))
	return capi.StatusOK
}

// Element is a scalar type that can back a tensor.
type Element interface {
	constraints.Integer | constraints.Float
}

// TensorData views a compact tensor's elements in place. It returns nil for
// strided or empty tensors and when T does not match the element size.
func TensorData[T Element](t *capi.Tensor) []T {
	var zero T
	if t.Data == nil || !compact(t) || int64(unsafe.Sizeof(zero)) != t.Dtype.ElemBytes() {
		return nil
	}
	n := t.NumElements()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Add(t.Data, t.ByteOffset)), n)
}

func compact(t *capi.Tensor) bool {
	strides := t.StridesSlice()
	if strides == nil {
		return true
	}
	shape := t.ShapeSlice()
	expect := int64(1)
	for i := len(shape) - 1; i >= 0; i-- {
		if shape[i] != 1 && strides[i] != expect {
			return false
		}
		expect *= shape[i]
	}
	return true
}

// span is the number of bytes from the first element to the end of the
// furthest one.
func span(t *capi.Tensor) int64 {
	eb := t.Dtype.ElemBytes()
	if compact(t) {
		return t.NBytes()
	}
	shape, strides := t.ShapeSlice(), t.StridesSlice()
	last := int64(0)
	for i := range shape {
		if shape[i] > 0 {
			last += (shape[i] - 1) * strides[i]
		}
	}
	return (last + 1) * eb
}

func raw(t *capi.Tensor) []byte {
	if t.Data == nil {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Add(t.Data, t.ByteOffset)), span(t))
}

// elemOffsets calls fn with the byte offset of every element in row-major
// order.
func elemOffsets(t *capi.Tensor, fn func(off int64)) {
	shape, strides := t.ShapeSlice(), t.StridesSlice()
	eb := t.Dtype.ElemBytes()
	n := t.NumElements()
	idx := make([]int64, len(shape))
	for k := int64(0); k < n; k++ {
		off := int64(0)
		for d := range idx {
			off += idx[d] * strides[d]
		}
		fn(off * eb)
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}
}

// gather returns the tensor's elements packed row-major.
func gather(t *capi.Tensor) []byte {
	src := raw(t)
	if compact(t) {
		out := make([]byte, t.NBytes())
		copy(out, src)
		return out
	}
	eb := t.Dtype.ElemBytes()
	out := make([]byte, 0, t.NBytes())
	elemOffsets(t, func(off int64) {
		out = append(out, src[off:off+eb]...)
	})
	return out
}

// scatter writes row-major packed elements into the tensor.
func scatter(t *capi.Tensor, data []byte) {
	dst := raw(t)
	if compact(t) {
		copy(dst, data)
		return
	}
	eb := t.Dtype.ElemBytes()
	pos := int64(0)
	elemOffsets(t, func(off int64) {
		copy(dst[off:off+eb], data[pos:pos+eb])
		pos += eb
	})
}
