package tvm

import (
	"go.uber.org/zap"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/errors"
)

// Client binds the typed API to one runtime. It owns the name registry for
// global functions. A Client is safe for concurrent use if its runtime is.
type Client struct {
	rt       capi.Runtime
	log      *zap.Logger
	registry *Registry
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client's logger. The default is the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client for rt.
func New(rt capi.Runtime, opts ...Option) *Client {
	c := &Client{rt: rt, log: Logger()}
	for _, opt := range opts {
		opt(c)
	}
	c.registry = newRegistry(c)
	return c
}

// Runtime returns the underlying runtime.
func (c *Client) Runtime() capi.Runtime { return c.rt }

// Registry returns the client's global function cache.
func (c *Client) Registry() *Registry { return c.registry }

// lastError builds a CallFailed error from the runtime's last-error slot.
// The message is copied before any other runtime call.
func (c *Client) lastError(phase errors.Phase, op string) error {
	msg := c.rt.GetLastError()
	return errors.CallFailed(phase, op, msg)
}

// Version returns the runtime's version string.
func (c *Client) Version() (string, error) {
	fn, err := c.GetGlobalFunc("runtime.GetVersion", false)
	if err != nil {
		return "", err
	}
	ret, err := fn.Invoke()
	if err != nil {
		return "", err
	}
	return ret.ToString()
}

// Sync blocks until all work queued on ctx has completed.
func (c *Client) Sync(ctx Context) error {
	if st := c.rt.Synchronize(ctx.raw()); !st.OK() {
		return c.lastError(errors.PhaseRuntime, "synchronize")
	}
	return nil
}

// DeviceAttrKind selects a device attribute.
type DeviceAttrKind int64

const (
	AttrExist DeviceAttrKind = iota
	AttrMaxThreadsPerBlock
	AttrWarpSize
	AttrMaxSharedMemoryPerBlock
	AttrComputeVersion
	AttrDeviceName
	AttrMaxClockRate
	AttrMultiProcessorCount
	AttrMaxThreadDimensions
)

// DeviceAttr queries an attribute of ctx through _GetDeviceAttr. String
// attributes (compute version, device name, thread dimensions) come back
// with the string type code.
func (c *Client) DeviceAttr(ctx Context, kind DeviceAttrKind) (RetValue, error) {
	fn, err := c.GetGlobalFunc("_GetDeviceAttr", false)
	if err != nil {
		return RetValue{}, err
	}
	return fn.Invoke(Int(int64(ctx.DeviceType)), Int(int64(ctx.DeviceID)), Int(int64(kind)))
}

// DeviceExists reports whether the runtime has the device.
func (c *Client) DeviceExists(ctx Context) bool {
	ret, err := c.DeviceAttr(ctx, AttrExist)
	if err != nil {
		return false
	}
	ok, err := ret.ToBool()
	return err == nil && ok
}
