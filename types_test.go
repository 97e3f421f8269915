package tvm

import "testing"

func TestParseDataType(t *testing.T) {
	tests := []struct {
		in   string
		want DataType
		str  string
	}{
		{"int", Int32, "int"},
		{"int32", Int32, "int"},
		{"uint", Uint32, "uint"},
		{"float", Float32, "float"},
		{"float32", Float32, "float"},
		{"handle", Handle, "handle"},
		{"bool", BoolType, "bool"},
		{"int8", Int8, "int8"},
		{"int64", Int64, "int64"},
		{"uint16", Uint16, "uint16"},
		{"float64", Float64, "float64"},
		{"float32x4", DataType{Code: Float32.Code, Bits: 32, Lanes: 4}, "float32x4"},
		{"int8x16", DataType{Code: Int8.Code, Bits: 8, Lanes: 16}, "int8x16"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDataType(tt.in)
			if err != nil {
				t.Fatalf("ParseDataType: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseDataType(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if s := got.String(); s != tt.str {
				t.Errorf("String() = %q, want %q", s, tt.str)
			}
		})
	}
}

func TestParseDataTypeErrors(t *testing.T) {
	for _, in := range []string{"", "int0", "float32x0", "complex64", "int999", "uintx"} {
		if _, err := ParseDataType(in); err == nil {
			t.Errorf("ParseDataType(%q) should fail", in)
		}
	}
}

func TestElemBytes(t *testing.T) {
	tests := []struct {
		t    DataType
		want int
	}{
		{BoolType, 1},
		{Int8, 1},
		{Float32, 4},
		{Float64, 8},
		{MustParseDataType("float32x4"), 16},
	}
	for _, tt := range tests {
		if got := tt.t.ElemBytes(); got != tt.want {
			t.Errorf("%s.ElemBytes() = %d, want %d", tt.t, got, tt.want)
		}
	}
}

func TestParseDeviceType(t *testing.T) {
	tests := []struct {
		in   string
		want DeviceType
	}{
		{"cpu", DeviceCPU},
		{"llvm", DeviceCPU},
		{"stackvm", DeviceCPU},
		{"gpu", DeviceGPU},
		{"cuda", DeviceGPU},
		{"nvptx", DeviceGPU},
		{"cpu_pinned", DeviceCPUPinned},
		{"cl", DeviceOpenCL},
		{"opencl", DeviceOpenCL},
		{"metal", DeviceMetal},
		{"vpi", DeviceVPI},
		{"rocm", DeviceROCm},
		{"CUDA", DeviceGPU},
	}
	for _, tt := range tests {
		got, err := ParseDeviceType(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseDeviceType(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseDeviceType("tpu"); err == nil {
		t.Error("ParseDeviceType(tpu) should fail")
	}
}

func TestContextString(t *testing.T) {
	tests := []struct {
		ctx  Context
		want string
	}{
		{CPU(0), "cpu(0)"},
		{GPU(2), "gpu(2)"},
		{CPUPinned(0), "cpu_pinned(0)"},
		{OpenCL(1), "opencl(1)"},
		{Metal(0), "metal(0)"},
		{VPI(0), "vpi(0)"},
		{ROCm(3), "rocm(3)"},
		{Context{DeviceType: 99}, "rpc(0)"},
	}
	for _, tt := range tests {
		if got := tt.ctx.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestContextRawLayout(t *testing.T) {
	raw := GPU(7).raw()
	if raw.DeviceType != 2 || raw.DeviceID != 7 {
		t.Errorf("raw = %+v", raw)
	}
	if back := contextFrom(raw); back != GPU(7) {
		t.Errorf("contextFrom(raw) = %v", back)
	}
}
