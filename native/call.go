package native

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/errors"
	"github.com/wippyai/tvm-go/resource"
)

// Func is a packed function implemented in Go. Arguments are read and the
// result written through the Call.
type Func func(c *Call) error

// Call carries one invocation's arguments and result.
type Call struct {
	rt    *Runtime
	Args  []capi.Value
	Codes []capi.TypeCode
	ret   capi.Value
	code  capi.TypeCode
}

// Runtime returns the runtime executing the call.
func (c *Call) Runtime() *Runtime { return c.rt }

// Len returns the number of arguments.
func (c *Call) Len() int { return len(c.Args) }

func (c *Call) check(i int) error {
	if i < 0 || i >= len(c.Args) {
		return errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			Detail("argument %d out of range, have %d", i, len(c.Args)).Build()
	}
	return nil
}

func (c *Call) mismatch(i int, expected string) error {
	return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
		Name(fmt.Sprintf("arg%d", i)).
		Types(expected, c.Codes[i].String()).
		Build()
}

// Int reads argument i as a signed integer. Null reads as 0.
func (c *Call) Int(i int) (int64, error) {
	if err := c.check(i); err != nil {
		return 0, err
	}
	switch c.Codes[i] {
	case capi.CodeInt, capi.CodeUInt:
		return c.Args[i].Int64(), nil
	case capi.CodeNull:
		return 0, nil
	}
	return 0, c.mismatch(i, "int")
}

// Uint reads argument i as an unsigned integer, rejecting negative ints.
func (c *Call) Uint(i int) (uint64, error) {
	if err := c.check(i); err != nil {
		return 0, err
	}
	switch c.Codes[i] {
	case capi.CodeUInt:
		return uint64(c.Args[i].Int64()), nil
	case capi.CodeInt:
		v := c.Args[i].Int64()
		if v < 0 {
			return 0, errors.InvalidInput(errors.PhaseDecode, fmt.Sprintf("arg%d: negative value %d for unsigned parameter", i, v))
		}
		return uint64(v), nil
	}
	return 0, c.mismatch(i, "uint")
}

// Float reads argument i as a float. Integer arguments are converted.
func (c *Call) Float(i int) (float64, error) {
	if err := c.check(i); err != nil {
		return 0, err
	}
	switch c.Codes[i] {
	case capi.CodeFloat:
		return c.Args[i].Float64(), nil
	case capi.CodeInt:
		return float64(c.Args[i].Int64()), nil
	case capi.CodeUInt:
		return float64(uint64(c.Args[i].Int64())), nil
	}
	return 0, c.mismatch(i, "float")
}

// String reads argument i as a string.
func (c *Call) String(i int) (string, error) {
	if err := c.check(i); err != nil {
		return "", err
	}
	if c.Codes[i] != capi.CodeStr {
		return "", c.mismatch(i, "string")
	}
	b, ok := c.rt.blob(c.Args[i].Handle())
	if !ok {
		return "", errors.NullHandle(errors.PhaseDecode, fmt.Sprintf("arg%d", i))
	}
	return string(b.data), nil
}

// Bytes reads argument i as a byte slice. The slice is a copy.
func (c *Call) Bytes(i int) ([]byte, error) {
	if err := c.check(i); err != nil {
		return nil, err
	}
	if c.Codes[i] != capi.CodeBytes {
		return nil, c.mismatch(i, "bytes")
	}
	b, ok := c.rt.blob(c.Args[i].Handle())
	if !ok {
		return nil, errors.NullHandle(errors.PhaseDecode, fmt.Sprintf("arg%d", i))
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

// Array returns the tensor descriptor behind argument i.
func (c *Call) Array(i int) (*capi.Tensor, error) {
	if err := c.check(i); err != nil {
		return nil, err
	}
	if c.Codes[i] != capi.CodeArrayHandle {
		return nil, c.mismatch(i, "array handle")
	}
	t := c.rt.ArrayDescriptor(c.Args[i].Handle())
	if t == nil {
		return nil, errors.NullHandle(errors.PhaseDecode, fmt.Sprintf("arg%d", i))
	}
	return t, nil
}

// Handle returns the raw handle of an object argument.
func (c *Call) Handle(i int, code capi.TypeCode) (capi.Handle, error) {
	if err := c.check(i); err != nil {
		return 0, err
	}
	if c.Codes[i] != code {
		return 0, c.mismatch(i, code.String())
	}
	return c.Args[i].Handle(), nil
}

// DataType reads argument i as a dtype.
func (c *Call) DataType(i int) (capi.DataType, error) {
	if err := c.check(i); err != nil {
		return capi.DataType{}, err
	}
	if c.Codes[i] != capi.CodeDataType {
		return capi.DataType{}, c.mismatch(i, "type")
	}
	return c.Args[i].DataType(), nil
}

// Context reads argument i as a device context.
func (c *Call) Context(i int) (capi.Context, error) {
	if err := c.check(i); err != nil {
		return capi.Context{}, err
	}
	if c.Codes[i] != capi.CodeContext {
		return capi.Context{}, c.mismatch(i, "context")
	}
	return c.Args[i].Context(), nil
}

func (c *Call) set(v capi.Value, code capi.TypeCode) {
	c.rt.releaseValue(c.ret, c.code)
	c.ret, c.code = v, code
}

func (c *Call) ReturnInt(v int64)     { c.set(capi.IntValue(v), capi.CodeInt) }
func (c *Call) ReturnUint(v uint64)   { c.set(capi.IntValue(int64(v)), capi.CodeUInt) }
func (c *Call) ReturnFloat(v float64) { c.set(capi.FloatValue(v), capi.CodeFloat) }
func (c *Call) ReturnNull()           { c.set(capi.Value{}, capi.CodeNull) }

func (c *Call) ReturnBool(v bool) {
	if v {
		c.ReturnInt(1)
		return
	}
	c.ReturnInt(0)
}

func (c *Call) ReturnString(s string) {
	c.set(capi.HandleValue(c.rt.returnBlob([]byte(s), false)), capi.CodeStr)
}

func (c *Call) ReturnBytes(b []byte) {
	data := make([]byte, len(b))
	copy(data, b)
	c.set(capi.HandleValue(c.rt.returnBlob(data, true)), capi.CodeBytes)
}

// ReturnObject moves ownership of an object handle to the caller.
func (c *Call) ReturnObject(h capi.Handle, code capi.TypeCode) {
	c.set(capi.HandleValue(h), code)
}

// ReturnFunc returns a new function wrapping fn.
func (c *Call) ReturnFunc(name string, fn Func) {
	h := c.rt.objects.Insert(kindFunction, &function{impl: fn, rt: c.rt, name: name})
	c.set(capi.HandleValue(capi.Handle(h)), capi.CodeFuncHandle)
}

// FuncCall invokes fn and writes the single result to ret and retCode.
// Object results are owned by the caller.
func (r *Runtime) FuncCall(fn capi.Handle, args []capi.Value, codes []capi.TypeCode, ret *capi.Value, retCode *capi.TypeCode) capi.Status {
	if len(args) != len(codes) {
		return r.fail(errors.InvalidInput(errors.PhaseCall, "argument and type code counts differ"))
	}
	v, ok := r.objects.GetTyped(resource.Handle(fn), kindFunction)
	if !ok {
		return r.fail(errors.NullHandle(errors.PhaseCall, "function"))
	}
	f := v.(*function)

	if f.host != nil {
		return r.callHost(f, args, codes, ret, retCode)
	}

	c := &Call{rt: r, Args: args, Codes: codes, code: capi.CodeNull}
	if err := r.invoke(f, c); err != nil {
		r.releaseValue(c.ret, c.code)
		return r.fail(err)
	}
	if ret == nil {
		r.releaseValue(c.ret, c.code)
		return capi.StatusOK
	}
	*ret = c.ret
	if retCode != nil {
		*retCode = c.code
	}
	return capi.StatusOK
}

func (r *Runtime) invoke(f *function, c *Call) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Warn("packed function panicked", zap.String("function", f.name), zap.Any("panic", p))
			err = errors.New(errors.PhaseCall, errors.KindCallFailed).
				Name(f.name).
				Detail("panic: %v", p).
				Build()
		}
	}()
	if err := f.impl(c); err != nil {
		if f.name != "" {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		return err
	}
	return nil
}

func (r *Runtime) callHost(f *function, args []capi.Value, codes []capi.TypeCode, ret *capi.Value, retCode *capi.TypeCode) capi.Status {
	slot := &retSlot{rt: r, code: capi.CodeNull}
	sh := r.objects.Insert(kindReturn, slot)
	defer r.objects.Release(sh)

	if st := f.host.Call(args, codes, capi.ReturnHandle(sh)); !st.OK() {
		// the callback set the last error itself
		return st
	}

	if ret == nil {
		return capi.StatusOK
	}
	slot.taken = true
	*ret = slot.value
	if retCode != nil {
		*retCode = slot.code
	}
	return capi.StatusOK
}

// CFuncSetReturn stores a callback's result. Strings and byte arrays are
// copied; object handles are moved into the slot.
func (r *Runtime) CFuncSetReturn(ret capi.ReturnHandle, v []capi.Value, codes []capi.TypeCode) capi.Status {
	if len(v) != 1 || len(codes) != 1 {
		return r.fail(errors.Unsupported(errors.PhaseHost, fmt.Sprintf("%d return values, only one is supported", len(v))))
	}
	s, ok := r.objects.GetTyped(resource.Handle(ret), kindReturn)
	if !ok {
		return r.fail(errors.NullHandle(errors.PhaseHost, "return slot"))
	}
	slot := s.(*retSlot)

	val, code := v[0], codes[0]
	switch code {
	case capi.CodeStr, capi.CodeBytes:
		b, ok := r.blob(val.Handle())
		if !ok {
			return r.fail(errors.NullHandle(errors.PhaseHost, code.String()))
		}
		data := make([]byte, len(b.data))
		copy(data, b.data)
		val = capi.HandleValue(r.returnBlob(data, code == capi.CodeBytes))
	}

	r.releaseValue(slot.value, slot.code)
	slot.value, slot.code = val, code
	return capi.StatusOK
}

// CbArgToReturn takes an extra reference on an object argument.
func (r *Runtime) CbArgToReturn(v *capi.Value, code capi.TypeCode) capi.Status {
	kind, ok := kindOf(code)
	if !ok {
		return capi.StatusOK
	}
	h := resource.Handle(v.Handle())
	if _, ok := r.objects.GetTyped(h, kind); !ok {
		return r.fail(errors.NullHandle(errors.PhaseHost, kindName(kind)))
	}
	r.objects.Retain(h)
	return capi.StatusOK
}
