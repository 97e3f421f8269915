package tvm

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/errors"
)

// slot is one packed value in decoded form. ArgValue and RetValue share it.
type slot struct {
	word   capi.Value
	str    string
	bytes  []byte
	fn     *Function
	mod    *Module
	arr    *NDArray
	ref    *handleRef
	client *Client
	code   TypeCode
	set    bool
}

// ArgValue is an argument to a packed call. It borrows whatever it refers
// to: the referenced Function, Module, NDArray, string or byte slice must
// stay alive until the call returns.
type ArgValue struct {
	slot
}

// RetValue is the result of a packed call. It owns copies of returned
// strings and bytes and the reference to any returned object until that
// reference is moved out by ToFunction, ToModule or ToNDArray, or freed by
// Release.
type RetValue struct {
	slot
}

func newSlot(v capi.Value, code TypeCode) slot {
	return slot{word: v, code: code, set: true}
}

func Int(v int64) ArgValue     { return ArgValue{newSlot(capi.IntValue(v), CodeInt)} }
func Uint(v uint64) ArgValue   { return ArgValue{newSlot(capi.IntValue(int64(v)), CodeUInt)} }
func Float(v float64) ArgValue { return ArgValue{newSlot(capi.FloatValue(v), CodeFloat)} }
func Null() ArgValue           { return ArgValue{newSlot(capi.Value{}, CodeNull)} }

// Bool encodes b as the int 0 or 1.
func Bool(b bool) ArgValue {
	if b {
		return Int(1)
	}
	return Int(0)
}

// Integer encodes any integer type: signed types with the int code,
// unsigned types with the uint code.
func Integer[T constraints.Integer](v T) ArgValue {
	var zero T
	if zero-1 < zero {
		return Int(int64(v))
	}
	return Uint(uint64(v))
}

// Floating encodes any float type with the float code.
func Floating[T constraints.Float](v T) ArgValue {
	return Float(float64(v))
}

// String passes s by pointer for the duration of the call.
func String(s string) ArgValue {
	return ArgValue{slot{str: s, code: CodeStr, set: true}}
}

// Bytes passes b as a byte array for the duration of the call.
func Bytes(b []byte) ArgValue {
	return ArgValue{slot{bytes: b, code: CodeBytes, set: true}}
}

func ByteArrayArg(b ByteArray) ArgValue { return Bytes(b.data) }

func TypeArg(t DataType) ArgValue {
	return ArgValue{newSlot(capi.DataTypeValue(t.raw()), CodeDataType)}
}

func ContextArg(ctx Context) ArgValue {
	return ArgValue{newSlot(capi.ContextValue(ctx.raw()), CodeContext)}
}

// DeviceTypeArg passes a device type as a plain int.
func DeviceTypeArg(t DeviceType) ArgValue { return Int(int64(t)) }

// HandleArg passes an opaque pointer.
func HandleArg(h capi.Handle) ArgValue {
	return ArgValue{newSlot(capi.HandleValue(h), CodeHandle)}
}

func FuncArg(f *Function) ArgValue { return ArgValue{slot{fn: f, code: CodeFuncHandle, set: true}} }
func ModuleArg(m *Module) ArgValue  { return ArgValue{slot{mod: m, code: CodeModuleHandle, set: true}} }
func ArrayArg(a *NDArray) ArgValue { return ArgValue{slot{arr: a, code: CodeArrayHandle, set: true}} }

// ValueOf converts a Go value to an ArgValue. Supported: nil, every integer
// and float type, bool, string, []byte, ByteArray, DataType, Context,
// DeviceType, *Function, *Module, *NDArray, ArgValue and RetValue.
func ValueOf(v any) (ArgValue, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case ArgValue:
		return x, nil
	case RetValue:
		return x.Arg(), nil
	case int:
		return Integer(x), nil
	case int8:
		return Integer(x), nil
	case int16:
		return Integer(x), nil
	case int32:
		return Integer(x), nil
	case int64:
		return Integer(x), nil
	case uint:
		return Integer(x), nil
	case uint8:
		return Integer(x), nil
	case uint16:
		return Integer(x), nil
	case uint32:
		return Integer(x), nil
	case uint64:
		return Integer(x), nil
	case float32:
		return Floating(x), nil
	case float64:
		return Floating(x), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case []byte:
		return Bytes(x), nil
	case ByteArray:
		return ByteArrayArg(x), nil
	case DataType:
		return TypeArg(x), nil
	case Context:
		return ContextArg(x), nil
	case DeviceType:
		return DeviceTypeArg(x), nil
	case *Function:
		if x == nil {
			return Null(), nil
		}
		return FuncArg(x), nil
	case *Module:
		if x == nil {
			return Null(), nil
		}
		return ModuleArg(x), nil
	case *NDArray:
		if x == nil {
			return Null(), nil
		}
		return ArrayArg(x), nil
	}
	return ArgValue{}, errors.New(errors.PhaseEncode, errors.KindUnsupported).
		Value(v).
		Detail("cannot pass %T as a packed argument", v).
		Build()
}

// Ret builds a callback result from an argument value.
func Ret(a ArgValue) RetValue { return RetValue{a.slot} }

// Arg forwards a result as an argument to another call.
func (r RetValue) Arg() ArgValue { return ArgValue{r.slot} }

// Release frees the returned object reference if it has not been moved out.
// Scalar results need no release. Safe to call more than once.
func (r RetValue) Release() {
	if r.ref != nil {
		r.ref.release()
	}
}

// Code returns the type code.
func (s slot) Code() TypeCode { return s.code }

// IsNull reports whether the value is the null value.
func (s slot) IsNull() bool { return s.code == CodeNull }

func (s slot) mismatch(expected TypeCode) error {
	return errors.TypeMismatch(errors.PhaseDecode, expected.String(), s.code.String())
}

// ToInt returns an int value. Null reads as 0.
func (s slot) ToInt() (int64, error) {
	switch s.code {
	case CodeInt:
		return s.word.Int64(), nil
	case CodeNull:
		return 0, nil
	}
	return 0, s.mismatch(CodeInt)
}

// ToUint returns a uint value.
func (s slot) ToUint() (uint64, error) {
	if s.code != CodeUInt {
		return 0, s.mismatch(CodeUInt)
	}
	return uint64(s.word.Int64()), nil
}

// ToBool interprets an int value as a boolean. Null reads as false.
func (s slot) ToBool() (bool, error) {
	v, err := s.ToInt()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (s slot) ToFloat() (float64, error) {
	if s.code != CodeFloat {
		return 0, s.mismatch(CodeFloat)
	}
	return s.word.Float64(), nil
}

func (s slot) ToString() (string, error) {
	if s.code != CodeStr {
		return "", s.mismatch(CodeStr)
	}
	return s.str, nil
}

func (s slot) ToBytes() ([]byte, error) {
	if s.code != CodeBytes {
		return nil, s.mismatch(CodeBytes)
	}
	return s.bytes, nil
}

func (s slot) ToByteArray() (ByteArray, error) {
	b, err := s.ToBytes()
	return ByteArray{data: b}, err
}

func (s slot) ToType() (DataType, error) {
	if s.code != CodeDataType {
		return DataType{}, s.mismatch(CodeDataType)
	}
	return dataTypeFrom(s.word.DataType()), nil
}

func (s slot) ToContext() (Context, error) {
	if s.code != CodeContext {
		return Context{}, s.mismatch(CodeContext)
	}
	return contextFrom(s.word.Context()), nil
}

// ToHandle returns an opaque pointer value.
func (s slot) ToHandle() (capi.Handle, error) {
	if s.code != CodeHandle {
		return 0, s.mismatch(CodeHandle)
	}
	return s.word.Handle(), nil
}

// ToFunction returns the function the value refers to. The first
// extraction of a returned function takes ownership; later extractions
// return non-owning wrappers.
func (s slot) ToFunction() (*Function, error) {
	if s.code != CodeFuncHandle {
		return nil, s.mismatch(CodeFuncHandle)
	}
	if s.fn != nil {
		return s.fn, nil
	}
	h := s.word.Handle()
	if h == 0 || s.client == nil {
		return nil, errors.NullHandle(errors.PhaseDecode, "function")
	}
	if s.ref != nil && s.ref.take() {
		return s.client.ownedFunction(h, ""), nil
	}
	return s.client.globalFunction(h, ""), nil
}

// ToModule returns the module the value refers to, with the same ownership
// rule as ToFunction.
func (s slot) ToModule() (*Module, error) {
	if s.code != CodeModuleHandle {
		return nil, s.mismatch(CodeModuleHandle)
	}
	if s.mod != nil {
		return s.mod, nil
	}
	h := s.word.Handle()
	if h == 0 || s.client == nil {
		return nil, errors.NullHandle(errors.PhaseDecode, "module")
	}
	if s.ref != nil && s.ref.take() {
		return s.client.ownedModule(h), nil
	}
	return s.client.borrowedModule(h), nil
}

// ToNDArray returns the array the value refers to. A returned array is owned
// by the first extraction; arrays received as callback arguments are views.
func (s slot) ToNDArray() (*NDArray, error) {
	if s.code != CodeArrayHandle {
		return nil, s.mismatch(CodeArrayHandle)
	}
	if s.arr != nil {
		return s.arr, nil
	}
	h := s.word.Handle()
	if h == 0 || s.client == nil {
		return nil, errors.NullHandle(errors.PhaseDecode, "array")
	}
	if s.ref != nil && s.ref.take() {
		return s.client.ownedArray(h), nil
	}
	return s.client.viewArray(h, nil), nil
}

// String renders the value for display.
func (s slot) String() string {
	switch s.code {
	case CodeInt:
		return fmt.Sprintf("%d", s.word.Int64())
	case CodeUInt:
		return fmt.Sprintf("%d", uint64(s.word.Int64()))
	case CodeFloat:
		return fmt.Sprintf("%g", s.word.Float64())
	case CodeNull:
		return "null"
	case CodeStr:
		return fmt.Sprintf("%q", s.str)
	case CodeBytes:
		return fmt.Sprintf("bytes[%d]", len(s.bytes))
	case CodeDataType:
		return dataTypeFrom(s.word.DataType()).String()
	case CodeContext:
		return contextFrom(s.word.Context()).String()
	}
	return fmt.Sprintf("%s(%#x)", s.code, uintptr(s.word.Handle()))
}

// encode produces the wire form. Strings and bytes are pinned; the caller
// frees everything appended to pins once the call returns.
func (s *slot) encode(c *Client, pins *[]capi.Handle) (capi.Value, TypeCode) {
	switch s.code {
	case CodeStr:
		h := c.rt.AllocString(s.str)
		*pins = append(*pins, h)
		return capi.HandleValue(h), CodeStr
	case CodeBytes:
		h := c.rt.AllocBytes(s.bytes)
		*pins = append(*pins, h)
		return capi.HandleValue(h), CodeBytes
	case CodeFuncHandle:
		if s.fn != nil {
			return capi.HandleValue(s.fn.Handle()), CodeFuncHandle
		}
	case CodeModuleHandle:
		if s.mod != nil {
			return capi.HandleValue(s.mod.Handle()), CodeModuleHandle
		}
	case CodeArrayHandle:
		if s.arr != nil {
			return capi.HandleValue(s.arr.Handle()), CodeArrayHandle
		}
	}
	return s.word, s.code
}

// decodeRet converts a call result into a RetValue. Object results become
// owned references.
func (c *Client) decodeRet(v capi.Value, code TypeCode) RetValue {
	s := slot{word: v, code: code, client: c, set: true}
	switch code {
	case CodeStr:
		s.str = c.rt.ReadString(v.Handle())
	case CodeBytes:
		s.bytes = c.rt.ReadBytes(v.Handle())
	case CodeFuncHandle, CodeModuleHandle, CodeArrayHandle, CodeNodeHandle:
		if h := v.Handle(); h != 0 {
			s.ref = newHandleRef(c, h, code)
		}
	}
	return RetValue{s}
}
