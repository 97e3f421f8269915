package tvm

import (
	goruntime "runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/errors"
)

// Ownership says whether a wrapper frees its handle.
type Ownership uint8

const (
	// Global handles belong to the runtime's registry or to another owner
	// and are never freed by the wrapper.
	Global Ownership = iota
	// Owned handles are freed exactly once by Release or the finalizer.
	Owned
)

func (o Ownership) String() string {
	if o == Owned {
		return "owned"
	}
	return "global"
}

// Function is a packed function handle.
type Function struct {
	client    *Client
	name      string
	handle    capi.Handle
	ownership Ownership
	released  atomic.Bool
}

func (c *Client) ownedFunction(h capi.Handle, name string) *Function {
	f := &Function{client: c, handle: h, name: name, ownership: Owned}
	goruntime.SetFinalizer(f, (*Function).finalize)
	return f
}

func (c *Client) globalFunction(h capi.Handle, name string) *Function {
	return &Function{client: c, handle: h, name: name, ownership: Global}
}

// Handle returns the raw handle. It panics after Release.
func (f *Function) Handle() capi.Handle {
	if f.released.Load() {
		panic("tvm: use of released function " + f.describe())
	}
	return f.handle
}

// Name returns the name the function was resolved by, if any.
func (f *Function) Name() string { return f.name }

// Ownership reports whether the wrapper frees its handle.
func (f *Function) Ownership() Ownership { return f.ownership }

// IsReleased reports whether Release or Move has been called.
func (f *Function) IsReleased() bool { return f.released.Load() }

// Release frees an owned handle. Global handles are only marked released.
// Further calls do nothing.
func (f *Function) Release() {
	if !f.released.CompareAndSwap(false, true) {
		return
	}
	goruntime.SetFinalizer(f, nil)
	if f.ownership == Owned {
		f.client.freeHandle(f.handle, CodeFuncHandle)
	}
}

// Move transfers the handle to a new wrapper and marks f released without
// freeing anything.
func (f *Function) Move() *Function {
	h := f.Handle()
	if !f.released.CompareAndSwap(false, true) {
		panic("tvm: concurrent move of function " + f.describe())
	}
	goruntime.SetFinalizer(f, nil)
	if f.ownership == Owned {
		return f.client.ownedFunction(h, f.name)
	}
	return f.client.globalFunction(h, f.name)
}

// ReturnFunc moves f into a callback result. An owned f is marked released
// and its reference goes to the caller of the callback; a global f is
// returned by reference.
func ReturnFunc(f *Function) RetValue {
	if f.ownership != Owned {
		return Ret(FuncArg(f))
	}
	h := f.Handle()
	if !f.released.CompareAndSwap(false, true) {
		panic("tvm: concurrent move of function " + f.describe())
	}
	goruntime.SetFinalizer(f, nil)
	s := newSlot(capi.HandleValue(h), CodeFuncHandle)
	s.client = f.client
	s.ref = newHandleRef(f.client, h, CodeFuncHandle)
	return RetValue{s}
}

func (f *Function) finalize() {
	if f.ownership == Owned && f.released.CompareAndSwap(false, true) {
		f.client.log.Warn("function released by finalizer", zap.String("function", f.describe()))
		f.client.freeHandle(f.handle, CodeFuncHandle)
	}
}

func (f *Function) describe() string {
	if f.name != "" {
		return f.name
	}
	return "<anonymous>"
}

// Builder starts a call of f.
func (f *Function) Builder() *CallBuilder {
	return &CallBuilder{client: f.client, fn: f}
}

// Invoke calls f with args.
func (f *Function) Invoke(args ...ArgValue) (RetValue, error) {
	return f.Builder().Args(args...).Invoke()
}

// Call converts each Go value with ValueOf and calls f.
func (f *Function) Call(args ...any) (RetValue, error) {
	b := f.Builder()
	for _, a := range args {
		v, err := ValueOf(a)
		if err != nil {
			return RetValue{}, err
		}
		b.Arg(v)
	}
	return b.Invoke()
}

// CallBuilder accumulates positional arguments and an optional output slot
// for one packed call.
type CallBuilder struct {
	client *Client
	fn     *Function
	err    error
	output *ArgValue
	args   []ArgValue
}

// Builder returns an empty call builder. Set the function with Func or
// GetFunction.
func (c *Client) Builder() *CallBuilder {
	return &CallBuilder{client: c}
}

// Func sets the function to call.
func (b *CallBuilder) Func(f *Function) *CallBuilder {
	b.fn, b.err = f, nil
	return b
}

// GetFunction resolves name as a global function and sets it. Lookup
// errors are reported by Invoke. With allowMissing a missing name leaves
// the builder without a function.
func (b *CallBuilder) GetFunction(name string, allowMissing bool) *CallBuilder {
	fn, err := b.client.GetGlobalFunc(name, allowMissing)
	if err != nil {
		b.fn, b.err = nil, err
		return b
	}
	b.fn, b.err = fn, nil
	return b
}

// Arg appends one argument.
func (b *CallBuilder) Arg(a ArgValue) *CallBuilder {
	b.args = append(b.args, a)
	return b
}

// Args appends arguments in order.
func (b *CallBuilder) Args(as ...ArgValue) *CallBuilder {
	b.args = append(b.args, as...)
	return b
}

// SetOutput registers the output slot, passed after all other arguments.
func (b *CallBuilder) SetOutput(a ArgValue) *CallBuilder {
	b.output = &a
	return b
}

// Invoke performs the call. Pinned strings and byte arrays are freed on
// every return path.
func (b *CallBuilder) Invoke() (RetValue, error) {
	if b.err != nil {
		return RetValue{}, b.err
	}
	if b.fn == nil {
		return RetValue{}, errors.NoFunction()
	}
	defer goruntime.KeepAlive(b)
	c := b.client
	if c == nil {
		c = b.fn.client
	}

	n := len(b.args)
	if b.output != nil {
		n++
	}
	values := make([]capi.Value, n)
	codes := make([]TypeCode, n)

	var pins []capi.Handle
	defer func() {
		for _, h := range pins {
			c.rt.Free(h)
		}
	}()

	for i := range b.args {
		values[i], codes[i] = b.args[i].encode(c, &pins)
	}
	if b.output != nil {
		values[n-1], codes[n-1] = b.output.encode(c, &pins)
	}

	fn := b.fn.Handle()
	var ret capi.Value
	retCode := CodeNull
	if st := c.rt.FuncCall(fn, values, codes, &ret, &retCode); !st.OK() {
		return RetValue{}, c.lastError(errors.PhaseCall, b.fn.describe())
	}
	return c.decodeRet(ret, retCode), nil
}
