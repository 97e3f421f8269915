package tvm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/errors"
)

// HostFunc is a Go function callable from the runtime. Returning the zero
// RetValue returns null.
type HostFunc func(args []ArgValue) (RetValue, error)

// hostCallback adapts a HostFunc to capi.PackedCallback.
type hostCallback struct {
	client *Client
	fn     HostFunc
	name   string
}

var _ capi.PackedCallback = (*hostCallback)(nil)

// Call decodes the arguments, runs the closure and writes its result.
// Object arguments are acknowledged first so the closure may keep them;
// references the closure did not move into a wrapper are freed on return.
func (cb *hostCallback) Call(values []capi.Value, codes []capi.TypeCode, ret capi.ReturnHandle) capi.Status {
	c := cb.client
	args := make([]ArgValue, len(values))
	var acked []*handleRef
	defer func() {
		for _, r := range acked {
			r.release()
		}
	}()

	for i := range values {
		v, code := values[i], codes[i]
		s := slot{word: v, code: code, client: c, set: true}
		switch code {
		case CodeStr:
			s.str = c.rt.ReadString(v.Handle())
		case CodeBytes:
			s.bytes = c.rt.ReadBytes(v.Handle())
		case CodeFuncHandle, CodeModuleHandle, CodeNodeHandle:
			if st := c.rt.CbArgToReturn(&v, code); !st.OK() {
				return st
			}
			s.word = v
			s.ref = newHandleRef(c, v.Handle(), code)
			acked = append(acked, s.ref)
		}
		args[i] = ArgValue{s}
	}

	result, err := cb.invoke(args)
	if err != nil {
		c.rt.SetLastError(err.Error())
		return capi.StatusFail
	}
	return cb.setReturn(result, ret)
}

func (cb *hostCallback) invoke(args []ArgValue) (result RetValue, err error) {
	defer func() {
		if p := recover(); p != nil {
			cb.client.log.Warn("host function panicked", zap.String("function", cb.name), zap.Any("panic", p))
			err = errors.New(errors.PhaseHost, errors.KindCallFailed).
				Name(cb.name).
				Detail("panic: %v", p).
				Build()
		}
	}()
	return cb.fn(args)
}

// setReturn writes result into the runtime's return slot. Object results
// need an owned reference: an unclaimed one is handed over, otherwise a new
// one is taken with CbArgToReturn.
func (cb *hostCallback) setReturn(result RetValue, ret capi.ReturnHandle) capi.Status {
	c := cb.client
	if !result.set {
		result = Ret(Null())
	}

	var pins []capi.Handle
	defer func() {
		for _, h := range pins {
			c.rt.Free(h)
		}
	}()
	v, code := result.encode(c, &pins)

	if code.IsObject() || code == CodeArrayHandle {
		handedOver := result.ref != nil && result.ref.take()
		if !handedOver {
			if st := c.rt.CbArgToReturn(&v, code); !st.OK() {
				return st
			}
		}
	}
	return c.rt.CFuncSetReturn(ret, []capi.Value{v}, []capi.TypeCode{code})
}

// Finalize drops the closure once the runtime frees the function.
func (cb *hostCallback) Finalize() {
	cb.client.log.Debug("host function finalized", zap.String("function", cb.name))
	cb.fn = nil
}

// NewFunction wraps fn as an owned runtime function.
func (c *Client) NewFunction(fn HostFunc) (*Function, error) {
	return c.newFunction("", fn)
}

func (c *Client) newFunction(name string, fn HostFunc) (*Function, error) {
	if fn == nil {
		return nil, errors.InvalidInput(errors.PhaseHost, "nil host function")
	}
	var h capi.Handle
	if st := c.rt.FuncCreateFromHost(&hostCallback{client: c, fn: fn, name: name}, &h); !st.OK() {
		return nil, c.lastError(errors.PhaseHost, "create function")
	}
	return c.ownedFunction(h, name), nil
}

// RegisterFunc registers fn as a global function under name.
func (c *Client) RegisterFunc(name string, fn HostFunc, override bool) error {
	f, err := c.newFunction(name, fn)
	if err != nil {
		return err
	}
	// the registry holds its own reference
	defer f.Release()
	return c.RegisterGlobal(name, f, override)
}

// RegisterGlobal registers f under name. The runtime takes its own
// reference; f is unaffected.
func (c *Client) RegisterGlobal(name string, f *Function, override bool) error {
	if st := c.rt.FuncRegisterGlobal(name, f.Handle(), override); !st.OK() {
		return c.lastError(errors.PhaseHost, fmt.Sprintf("register %s", name))
	}
	c.registry.forget(name)
	c.log.Debug("registered global function", zap.String("name", name))
	return nil
}
