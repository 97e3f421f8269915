package native

import (
	"github.com/wippyai/tvm-go/capi"
)

func (r *Runtime) registerBuiltins() {
	builtins := map[string]Func{
		"module._Enabled": func(c *Call) error {
			target, err := c.String(0)
			if err != nil {
				return err
			}
			t, ok := DeviceTypeOf(target)
			c.ReturnBool(ok && r.hasDeviceType(t))
			return nil
		},
		"_GetDeviceAttr": r.deviceAttr,
		"runtime.SystemLib": func(c *Call) error {
			c.ReturnObject(r.systemModule(), capi.CodeModuleHandle)
			return nil
		},
		"runtime.GetVersion": func(c *Call) error {
			c.ReturnString(Version)
			return nil
		},
		"runtime.GetDeviceCount": func(c *Call) error {
			t, err := c.Int(0)
			if err != nil {
				return err
			}
			n := int64(0)
			r.mu.RLock()
			for ctx := range r.devices {
				if int64(ctx.DeviceType) == t {
					n++
				}
			}
			r.mu.RUnlock()
			c.ReturnInt(n)
			return nil
		},
	}
	for name, fn := range builtins {
		// fresh runtime, names cannot collide
		_ = r.Register(name, fn, false)
	}
}
