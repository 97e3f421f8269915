package capi

import (
	"math"
	"testing"
	"unsafe"
)

func TestValueRoundTrip(t *testing.T) {
	ints := []int64{0, 1, -1, math.MaxInt64, math.MinInt64, 42}
	for _, v := range ints {
		if got := IntValue(v).Int64(); got != v {
			t.Errorf("IntValue(%d).Int64() = %d", v, got)
		}
	}

	floats := []float64{0, -0.5, math.Pi, math.Inf(1), math.MaxFloat64}
	for _, v := range floats {
		if got := FloatValue(v).Float64(); got != v {
			t.Errorf("FloatValue(%v).Float64() = %v", v, got)
		}
	}
	if got := FloatValue(math.NaN()).Float64(); !math.IsNaN(got) {
		t.Errorf("NaN did not survive: %v", got)
	}

	if got := HandleValue(0xdeadbeef).Handle(); got != 0xdeadbeef {
		t.Errorf("handle = %#x", got)
	}
}

func TestValueDataTypeContext(t *testing.T) {
	dt := DataType{Code: DTypeFloat, Bits: 32, Lanes: 4}
	if got := DataTypeValue(dt).DataType(); got != dt {
		t.Errorf("DataType round trip = %+v", got)
	}
	// low byte is the code, matching the C union layout
	if DataTypeValue(dt).Bits()&0xff != uint64(DTypeFloat) {
		t.Errorf("code not in low byte: %#x", DataTypeValue(dt).Bits())
	}

	ctx := Context{DeviceType: 2, DeviceID: -1}
	if got := ContextValue(ctx).Context(); got != ctx {
		t.Errorf("Context round trip = %+v", got)
	}
}

func TestTypeCodeString(t *testing.T) {
	tests := []struct {
		code TypeCode
		want string
	}{
		{CodeInt, "int"},
		{CodeUInt, "uint"},
		{CodeFloat, "float"},
		{CodeHandle, "handle"},
		{CodeNull, "null"},
		{CodeDataType, "type"},
		{CodeContext, "context"},
		{CodeArrayHandle, "array handle"},
		{CodeNodeHandle, "node handle"},
		{CodeModuleHandle, "module handle"},
		{CodeFuncHandle, "function handle"},
		{CodeStr, "string"},
		{CodeBytes, "bytes"},
		{TypeCode(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("TypeCode(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
	if TypeCode(13).Valid() || !CodeBytes.Valid() {
		t.Error("Valid range wrong")
	}
	if !CodeFuncHandle.IsObject() || CodeArrayHandle.IsObject() {
		t.Error("IsObject wrong")
	}
}

func TestTensorLayout(t *testing.T) {
	var tn Tensor
	offsets := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"ctx", unsafe.Offsetof(tn.Ctx), 8},
		{"ndim", unsafe.Offsetof(tn.Ndim), 16},
		{"dtype", unsafe.Offsetof(tn.Dtype), 20},
		{"shape", unsafe.Offsetof(tn.Shape), 24},
		{"strides", unsafe.Offsetof(tn.Strides), 32},
		{"byte_offset", unsafe.Offsetof(tn.ByteOffset), 40},
	}
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("layout checked on 64-bit targets only")
	}
	for _, o := range offsets {
		if o.got != o.want {
			t.Errorf("offset of %s = %d, want %d", o.name, o.got, o.want)
		}
	}
	if unsafe.Sizeof(Value{}) != 8 {
		t.Errorf("Value size = %d", unsafe.Sizeof(Value{}))
	}
}

func TestTensorShape(t *testing.T) {
	shape := []int64{2, 3, 4}
	tn := Tensor{
		Ndim:  3,
		Shape: &shape[0],
		Dtype: DataType{Code: DTypeFloat, Bits: 64, Lanes: 1},
	}
	if got := tn.NumElements(); got != 24 {
		t.Errorf("NumElements = %d", got)
	}
	if got := tn.NBytes(); got != 192 {
		t.Errorf("NBytes = %d", got)
	}
	if tn.StridesSlice() != nil {
		t.Error("expected nil strides")
	}
	if got := (DataType{Code: DTypeUInt, Bits: 1, Lanes: 1}).ElemBytes(); got != 1 {
		t.Errorf("bool ElemBytes = %d", got)
	}
}
