package capi

import (
	"math"
	"unsafe"
)

// Handle is an opaque runtime pointer. The client never interprets it.
// Zero is the null handle.
type Handle uintptr

// ReturnHandle identifies the return slot of a callback invocation.
type ReturnHandle Handle

// TypeCode is the discriminant paired with every Value.
type TypeCode int32

const (
	CodeInt TypeCode = iota
	CodeUInt
	CodeFloat
	CodeHandle
	CodeNull
	CodeDataType
	CodeContext
	CodeArrayHandle
	CodeNodeHandle
	CodeModuleHandle
	CodeFuncHandle
	CodeStr
	CodeBytes
)

var typeCodeNames = [...]string{
	CodeInt:          "int",
	CodeUInt:         "uint",
	CodeFloat:        "float",
	CodeHandle:       "handle",
	CodeNull:         "null",
	CodeDataType:     "type",
	CodeContext:      "context",
	CodeArrayHandle:  "array handle",
	CodeNodeHandle:   "node handle",
	CodeModuleHandle: "module handle",
	CodeFuncHandle:   "function handle",
	CodeStr:          "string",
	CodeBytes:        "bytes",
}

func (c TypeCode) String() string {
	if c >= 0 && int(c) < len(typeCodeNames) {
		return typeCodeNames[c]
	}
	return "unknown"
}

// Valid reports whether c is one of the defined discriminants.
func (c TypeCode) Valid() bool {
	return c >= CodeInt && c <= CodeBytes
}

// IsObject reports whether values of this code carry a reference-counted
// runtime object that a callback must acknowledge before keeping it.
func (c TypeCode) IsObject() bool {
	return c == CodeNodeHandle || c == CodeModuleHandle || c == CodeFuncHandle
}

// Value is the 8-byte TVMValue union. Which reading is valid is decided by
// the TypeCode stored next to it; the accessors do not check.
//
// DataType and Context readings assume a little-endian layout of the C
// union, which holds for every platform the runtime ships on.
type Value struct {
	bits uint64
}

func IntValue(v int64) Value     { return Value{bits: uint64(v)} }
func FloatValue(v float64) Value { return Value{bits: math.Float64bits(v)} }
func HandleValue(h Handle) Value { return Value{bits: uint64(h)} }
func DataTypeValue(t DataType) Value {
	return Value{bits: uint64(t.Code) | uint64(t.Bits)<<8 | uint64(t.Lanes)<<16}
}
func ContextValue(c Context) Value {
	return Value{bits: uint64(uint32(c.DeviceType)) | uint64(uint32(c.DeviceID))<<32}
}

func (v Value) Int64() int64     { return int64(v.bits) }
func (v Value) Float64() float64 { return math.Float64frombits(v.bits) }
func (v Value) Handle() Handle   { return Handle(v.bits) }
func (v Value) DataType() DataType {
	return DataType{Code: uint8(v.bits), Bits: uint8(v.bits >> 8), Lanes: uint16(v.bits >> 16)}
}
func (v Value) Context() Context {
	return Context{DeviceType: int32(uint32(v.bits)), DeviceID: int32(uint32(v.bits >> 32))}
}

// Bits returns the raw word.
func (v Value) Bits() uint64 { return v.bits }

// DataType is DLDataType: type code, bit width and vector lanes.
type DataType struct {
	Code  uint8
	Bits  uint8
	Lanes uint16
}

// DLDataType codes.
const (
	DTypeInt    uint8 = 0
	DTypeUInt   uint8 = 1
	DTypeFloat  uint8 = 2
	DTypeHandle uint8 = 3
)

// ElemBytes is the storage size of one element, lanes included.
func (t DataType) ElemBytes() int64 {
	return (int64(t.Bits)*int64(t.Lanes) + 7) / 8
}

// Context is DLContext: device kind and ordinal.
type Context struct {
	DeviceType int32
	DeviceID   int32
}

// Tensor mirrors DLTensor field for field. Handles returned by ArrayAlloc
// point at one of these; the layout must not change.
type Tensor struct {
	Data       unsafe.Pointer
	Ctx        Context
	Ndim       int32
	Dtype      DataType
	Shape      *int64
	Strides    *int64
	ByteOffset uint64
}

// ShapeSlice views the shape array. The result aliases runtime memory.
func (t *Tensor) ShapeSlice() []int64 {
	if t.Shape == nil || t.Ndim <= 0 {
		return nil
	}
	return unsafe.Slice(t.Shape, int(t.Ndim))
}

// StridesSlice views the strides array, nil for compact row-major tensors.
func (t *Tensor) StridesSlice() []int64 {
	if t.Strides == nil || t.Ndim <= 0 {
		return nil
	}
	return unsafe.Slice(t.Strides, int(t.Ndim))
}

// NumElements is the product of the shape.
func (t *Tensor) NumElements() int64 {
	n := int64(1)
	for _, d := range t.ShapeSlice() {
		n *= d
	}
	return n
}

// NBytes is the size of the tensor's logical contents.
func (t *Tensor) NBytes() int64 {
	return t.NumElements() * t.Dtype.ElemBytes()
}

// ByteArray mirrors TVMByteArray.
type ByteArray struct {
	Data *byte
	Size uint64
}
