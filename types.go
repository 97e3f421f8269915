package tvm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/errors"
)

// TypeCode is the discriminant carried next to every packed value.
type TypeCode = capi.TypeCode

const (
	CodeInt          = capi.CodeInt
	CodeUInt         = capi.CodeUInt
	CodeFloat        = capi.CodeFloat
	CodeHandle       = capi.CodeHandle
	CodeNull         = capi.CodeNull
	CodeDataType     = capi.CodeDataType
	CodeContext      = capi.CodeContext
	CodeArrayHandle  = capi.CodeArrayHandle
	CodeNodeHandle   = capi.CodeNodeHandle
	CodeModuleHandle = capi.CodeModuleHandle
	CodeFuncHandle   = capi.CodeFuncHandle
	CodeStr          = capi.CodeStr
	CodeBytes        = capi.CodeBytes
)

// DataType is a tensor element type: code, bit width and vector lanes.
type DataType struct {
	Code  uint8
	Bits  uint8
	Lanes uint16
}

// Common element types.
var (
	Int8     = DataType{Code: capi.DTypeInt, Bits: 8, Lanes: 1}
	Int16    = DataType{Code: capi.DTypeInt, Bits: 16, Lanes: 1}
	Int32    = DataType{Code: capi.DTypeInt, Bits: 32, Lanes: 1}
	Int64    = DataType{Code: capi.DTypeInt, Bits: 64, Lanes: 1}
	Uint8    = DataType{Code: capi.DTypeUInt, Bits: 8, Lanes: 1}
	Uint16   = DataType{Code: capi.DTypeUInt, Bits: 16, Lanes: 1}
	Uint32   = DataType{Code: capi.DTypeUInt, Bits: 32, Lanes: 1}
	Uint64   = DataType{Code: capi.DTypeUInt, Bits: 64, Lanes: 1}
	Float32  = DataType{Code: capi.DTypeFloat, Bits: 32, Lanes: 1}
	Float64  = DataType{Code: capi.DTypeFloat, Bits: 64, Lanes: 1}
	BoolType = DataType{Code: capi.DTypeUInt, Bits: 1, Lanes: 1}
	Handle   = DataType{Code: capi.DTypeHandle, Bits: 64, Lanes: 1}
)

var dtypeCodeNames = map[uint8]string{
	capi.DTypeInt:    "int",
	capi.DTypeUInt:   "uint",
	capi.DTypeFloat:  "float",
	capi.DTypeHandle: "handle",
}

// ParseDataType parses "int", "uint", "float" (32-bit), "handle" (64-bit),
// "bool", or a code name followed by bits and optional lanes such as
// "int8", "float64" or "float32x4".
func ParseDataType(s string) (DataType, error) {
	switch s {
	case "int":
		return Int32, nil
	case "uint":
		return Uint32, nil
	case "float":
		return Float32, nil
	case "handle":
		return Handle, nil
	case "bool":
		return BoolType, nil
	}

	for code, name := range dtypeCodeNames {
		if !strings.HasPrefix(s, name) {
			continue
		}
		rest := s[len(name):]
		if rest == "" || rest[0] < '0' || rest[0] > '9' {
			continue
		}
		bitsStr, lanesStr, hasLanes := strings.Cut(rest, "x")
		bits, err := strconv.ParseUint(bitsStr, 10, 8)
		if err != nil || bits == 0 {
			break
		}
		lanes := uint64(1)
		if hasLanes {
			lanes, err = strconv.ParseUint(lanesStr, 10, 16)
			if err != nil || lanes == 0 {
				break
			}
		}
		return DataType{Code: code, Bits: uint8(bits), Lanes: uint16(lanes)}, nil
	}
	return DataType{}, errors.InvalidInput(errors.PhaseEncode, fmt.Sprintf("unsupported data type %q", s))
}

// MustParseDataType is ParseDataType that panics on error.
func MustParseDataType(s string) DataType {
	t, err := ParseDataType(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String renders the canonical short names for int, uint and float (32-bit)
// and handle, and the long form otherwise.
func (t DataType) String() string {
	switch t {
	case Int32:
		return "int"
	case Uint32:
		return "uint"
	case Float32:
		return "float"
	case Handle:
		return "handle"
	case BoolType:
		return "bool"
	}
	name, ok := dtypeCodeNames[t.Code]
	if !ok {
		name = fmt.Sprintf("code%d_", t.Code)
	}
	s := name + strconv.Itoa(int(t.Bits))
	if t.Lanes > 1 {
		s += "x" + strconv.Itoa(int(t.Lanes))
	}
	return s
}

// ElemBytes is the storage size of one element.
func (t DataType) ElemBytes() int {
	return (int(t.Bits)*int(t.Lanes) + 7) / 8
}

func (t DataType) raw() capi.DataType {
	return capi.DataType{Code: t.Code, Bits: t.Bits, Lanes: t.Lanes}
}

func dataTypeFrom(t capi.DataType) DataType {
	return DataType{Code: t.Code, Bits: t.Bits, Lanes: t.Lanes}
}

// DeviceType identifies a device kind.
type DeviceType int32

const (
	DeviceCPU       DeviceType = 1
	DeviceGPU       DeviceType = 2
	DeviceCPUPinned DeviceType = 3
	DeviceOpenCL    DeviceType = 4
	DeviceMetal     DeviceType = 8
	DeviceVPI       DeviceType = 9
	DeviceROCm      DeviceType = 10
)

var deviceTypeNames = map[string]DeviceType{
	"cpu":        DeviceCPU,
	"llvm":       DeviceCPU,
	"stackvm":    DeviceCPU,
	"gpu":        DeviceGPU,
	"cuda":       DeviceGPU,
	"nvptx":      DeviceGPU,
	"cpu_pinned": DeviceCPUPinned,
	"cl":         DeviceOpenCL,
	"opencl":     DeviceOpenCL,
	"metal":      DeviceMetal,
	"vpi":        DeviceVPI,
	"rocm":       DeviceROCm,
}

// ParseDeviceType maps a device or target name ("llvm", "cuda", ...) to a
// device type.
func ParseDeviceType(s string) (DeviceType, error) {
	if t, ok := deviceTypeNames[strings.ToLower(s)]; ok {
		return t, nil
	}
	return 0, errors.InvalidInput(errors.PhaseEncode, fmt.Sprintf("unsupported device %q", s))
}

func (d DeviceType) String() string {
	switch d {
	case DeviceCPU:
		return "cpu"
	case DeviceGPU:
		return "gpu"
	case DeviceCPUPinned:
		return "cpu_pinned"
	case DeviceOpenCL:
		return "opencl"
	case DeviceMetal:
		return "metal"
	case DeviceVPI:
		return "vpi"
	case DeviceROCm:
		return "rocm"
	}
	return "rpc"
}

// Context is a device type and ordinal.
type Context struct {
	DeviceType DeviceType
	DeviceID   int32
}

func CPU(id int32) Context       { return Context{DeviceCPU, id} }
func GPU(id int32) Context       { return Context{DeviceGPU, id} }
func CPUPinned(id int32) Context { return Context{DeviceCPUPinned, id} }
func OpenCL(id int32) Context    { return Context{DeviceOpenCL, id} }
func Metal(id int32) Context     { return Context{DeviceMetal, id} }
func VPI(id int32) Context       { return Context{DeviceVPI, id} }
func ROCm(id int32) Context      { return Context{DeviceROCm, id} }

func (c Context) String() string {
	return fmt.Sprintf("%s(%d)", c.DeviceType, c.DeviceID)
}

func (c Context) raw() capi.Context {
	return capi.Context{DeviceType: int32(c.DeviceType), DeviceID: c.DeviceID}
}

func contextFrom(c capi.Context) Context {
	return Context{DeviceType: DeviceType(c.DeviceType), DeviceID: c.DeviceID}
}

// ByteArray is an immutable byte payload passed with the bytes type code.
type ByteArray struct {
	data []byte
}

// NewByteArray wraps b without copying.
func NewByteArray(b []byte) ByteArray { return ByteArray{data: b} }

func (b ByteArray) Len() int       { return len(b.data) }
func (b ByteArray) Data() []byte   { return b.data }
func (b ByteArray) String() string { return string(b.data) }
