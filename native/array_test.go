package native

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/wippyai/tvm-go/capi"
)

var (
	float32Type = capi.DataType{Code: capi.DTypeFloat, Bits: 32, Lanes: 1}
	int32Type   = capi.DataType{Code: capi.DTypeInt, Bits: 32, Lanes: 1}
	cpu0        = capi.Context{DeviceType: DeviceCPU, DeviceID: 0}
)

func alloc(t *testing.T, rt *Runtime, shape []int64, dtype capi.DataType) capi.Handle {
	t.Helper()
	var h capi.Handle
	if st := rt.ArrayAlloc(shape, dtype, cpu0, &h); !st.OK() {
		t.Fatalf("ArrayAlloc: %s", rt.GetLastError())
	}
	t.Cleanup(func() { rt.ArrayFree(h) })
	return h
}

func float32Bytes(vals ...float32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func TestArrayAlloc(t *testing.T) {
	rt := newTestRuntime(t)
	h := alloc(t, rt, []int64{2, 3}, float32Type)

	desc := rt.ArrayDescriptor(h)
	if desc == nil {
		t.Fatal("nil descriptor")
	}
	if desc.Ndim != 2 || desc.ShapeSlice()[0] != 2 || desc.ShapeSlice()[1] != 3 {
		t.Fatalf("shape = %v", desc.ShapeSlice())
	}
	if desc.Dtype != float32Type || desc.Ctx != cpu0 {
		t.Fatalf("dtype/ctx = %+v %+v", desc.Dtype, desc.Ctx)
	}
	if desc.Strides != nil || desc.ByteOffset != 0 {
		t.Fatal("fresh arrays are compact with no offset")
	}
	if uintptr(desc.Data)%8 != 0 {
		t.Fatal("data not 8-byte aligned")
	}

	tests := []struct {
		name  string
		shape []int64
		dtype capi.DataType
		ctx   capi.Context
		want  string
	}{
		{"unknown device", []int64{1}, float32Type, capi.Context{DeviceType: DeviceGPU}, "not found"},
		{"negative dim", []int64{-1}, float32Type, cpu0, "negative dimension"},
		{"zero bits", []int64{1}, capi.DataType{Code: capi.DTypeInt, Lanes: 1}, cpu0, "invalid dtype"},
		{"shape overflow", []int64{1 << 62, 3}, float32Type, cpu0, "size limit"},
		{"byte overflow", []int64{1 << 39, 1 << 1}, float32Type, cpu0, "size limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out capi.Handle
			if rt.ArrayAlloc(tt.shape, tt.dtype, tt.ctx, &out).OK() {
				t.Fatal("expected failure")
			}
			if !strings.Contains(rt.GetLastError(), tt.want) {
				t.Fatalf("last error %q missing %q", rt.GetLastError(), tt.want)
			}
		})
	}
}

func TestArrayBytesRoundTrip(t *testing.T) {
	rt := newTestRuntime(t)
	h := alloc(t, rt, []int64{4}, float32Type)

	in := float32Bytes(1, 2, 3, 4)
	if st := rt.ArrayCopyFromBytes(h, in); !st.OK() {
		t.Fatal(rt.GetLastError())
	}
	if got := TensorData[float32](rt.ArrayDescriptor(h)); len(got) != 4 || got[2] != 3 {
		t.Fatalf("TensorData = %v", got)
	}

	out := make([]byte, len(in))
	if st := rt.ArrayCopyToBytes(h, out); !st.OK() {
		t.Fatal(rt.GetLastError())
	}
	if string(out) != string(in) {
		t.Fatalf("round trip mismatch")
	}

	if rt.ArrayCopyFromBytes(h, in[:8]).OK() {
		t.Fatal("short buffer accepted")
	}
	if rt.ArrayCopyToBytes(h, make([]byte, 20)).OK() {
		t.Fatal("long buffer accepted")
	}
	if TensorData[float64](rt.ArrayDescriptor(h)) != nil {
		t.Fatal("TensorData ignored element size")
	}
}

func TestArrayCopyFromTo(t *testing.T) {
	rt := newTestRuntime(t)
	src := alloc(t, rt, []int64{2, 2}, float32Type)
	dst := alloc(t, rt, []int64{4}, int32Type)
	small := alloc(t, rt, []int64{3}, float32Type)

	rt.ArrayCopyFromBytes(src, float32Bytes(1, 2, 3, 4))
	// same byte size and element size: copies even across dtypes
	if st := rt.ArrayCopyFromTo(src, dst); !st.OK() {
		t.Fatal(rt.GetLastError())
	}
	raw := TensorData[int32](rt.ArrayDescriptor(dst))
	if math.Float32frombits(uint32(raw[3])) != 4 {
		t.Fatalf("copy lost data: %v", raw)
	}

	if rt.ArrayCopyFromTo(src, small).OK() {
		t.Fatal("size mismatch accepted")
	}
	if !strings.Contains(rt.GetLastError(), "size mismatch") {
		t.Fatalf("last error = %q", rt.GetLastError())
	}
}

func TestArrayStridedView(t *testing.T) {
	rt := newTestRuntime(t)
	base := alloc(t, rt, []int64{2, 3}, float32Type)
	rt.ArrayCopyFromBytes(base, float32Bytes(0, 1, 2, 3, 4, 5))

	// transpose: shape 3x2, strides (1, 3)
	view, err := rt.ArrayView(base, []int64{3, 2}, []int64{1, 3}, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer rt.ArrayFree(view)

	if TensorData[float32](rt.ArrayDescriptor(view)) != nil {
		t.Fatal("strided view should not be viewable in place")
	}

	out := make([]byte, 24)
	if st := rt.ArrayCopyToBytes(view, out); !st.OK() {
		t.Fatal(rt.GetLastError())
	}
	if string(out) != string(float32Bytes(0, 3, 1, 4, 2, 5)) {
		t.Fatal("transposed copy wrong")
	}

	// write through the view lands in the base
	rt.ArrayCopyFromBytes(view, float32Bytes(10, 13, 11, 14, 12, 15))
	got := TensorData[float32](rt.ArrayDescriptor(base))
	want := []float32{10, 11, 12, 13, 14, 15}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("base = %v, want %v", got, want)
		}
	}

	// offset view of the second row
	row, err := rt.ArrayView(base, []int64{3}, nil, 12)
	if err != nil {
		t.Fatal(err)
	}
	defer rt.ArrayFree(row)
	if r := TensorData[float32](rt.ArrayDescriptor(row)); r[0] != 13 {
		t.Fatalf("row = %v", r)
	}

	if _, err := rt.ArrayView(base, []int64{4}, nil, 12); err == nil {
		t.Fatal("out of bounds view accepted")
	}
}

func TestArrayViewKeepsBase(t *testing.T) {
	rt := newTestRuntime(t)
	drops := dropCounter{}
	rt.Objects().Subscribe(drops)

	var base capi.Handle
	rt.ArrayAlloc([]int64{4}, float32Type, cpu0, &base)
	view, err := rt.ArrayView(base, []int64{2}, nil, 0)
	if err != nil {
		t.Fatal(err)
	}

	rt.ArrayFree(base)
	if drops[resourceHandle(base)] != 0 {
		t.Fatal("base dropped while view alive")
	}
	rt.ArrayFree(view)
	if drops[resourceHandle(base)] != 1 {
		t.Fatalf("base dropped %d times", drops[resourceHandle(base)])
	}
}
