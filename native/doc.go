// Package native is an in-process tensor runtime implementing capi.Runtime.
//
// It exists so the client can run without libtvm: tests, the tvmcall CLI and
// embedders that only need host-side packed functions use it directly.
//
//	rt := native.New()
//	defer rt.Close(ctx)
//
//	rt.Register("add_one", func(c *native.Call) error {
//	    x, err := c.Int(0)
//	    if err != nil {
//	        return err
//	    }
//	    c.ReturnInt(x + 1)
//	    return nil
//	}, false)
//
// # Objects
//
// Functions, modules, arrays and pinned strings live in a reference-counted
// resource.Table. Handles are never reused, so use after free fails lookup
// instead of touching another object. A function obtained from a module
// holds a reference to that module; a module holds references to the
// modules it imports.
//
// # Modules
//
// ModLoadFromFile picks a Loader by format. The built-in "wasm" loader
// compiles core WebAssembly with wazero and exposes every exported function
// as a packed function over scalar arguments:
//
//	i32, i64  <- int / uint arguments
//	f32, f64  <- float arguments (ints are converted)
//
// A sidecar file with the same base name and a .wit extension may type the
// exports, e.g. "count: func(n: u32) -> u32". Unsigned parameters reject
// negative ints, unsigned results come back with the uint type code and bool
// results as 0/1 ints.
//
// Other formats are added with RegisterLoader. Functions registered with
// RegisterSystemSymbol form the module returned by the runtime.SystemLib
// global.
//
// # Devices
//
// cpu(0) always exists. Config.Devices adds simulated devices; their memory
// is host memory and their attributes are whatever the config says.
//
// # Globals
//
// The runtime registers module._Enabled, _GetDeviceAttr, runtime.SystemLib,
// runtime.GetVersion and runtime.GetDeviceCount on creation.
package native
