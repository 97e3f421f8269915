package native

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/tvm-go/errors"
)

// loadWasm compiles and instantiates a core wasm module. Every exported
// function becomes a packed function taking scalar arguments. An optional
// .wit sidecar refines argument checking and result type codes.
func (r *Runtime) loadWasm(path string) (*ModuleDef, error) {
	ctx := context.Background()

	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}

	engine, err := r.wasmRuntime()
	if err != nil {
		return nil, err
	}

	compiled, err := engine.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}

	// anonymous so the same file can be loaded more than once
	inst, err := engine.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("instantiate failed: %w", err)
	}

	sigs, err := loadWitSidecar(path)
	if err != nil {
		_ = inst.Close(ctx)
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("wit sidecar: %w", err)
	}

	// wasm instances are not safe for concurrent calls
	mu := &sync.Mutex{}
	def := &ModuleDef{
		Funcs: make(map[string]Func),
		Close: func() error {
			if err := inst.Close(ctx); err != nil {
				return err
			}
			return compiled.Close(ctx)
		},
	}

	for name, fd := range compiled.ExportedFunctions() {
		sig := sigs[name]
		if sig != nil && len(sig.params) != len(fd.ParamTypes()) {
			r.log.Warn("ignoring wit signature with wrong arity",
				zap.String("function", name),
				zap.Int("wit_params", len(sig.params)),
				zap.Int("wasm_params", len(fd.ParamTypes())))
			sig = nil
		}
		def.Funcs[name] = wasmExport(name, inst.ExportedFunction(name), fd, sig, mu)
	}
	return def, nil
}

func wasmExport(name string, fn api.Function, fd api.FunctionDefinition, sig *witSignature, mu *sync.Mutex) Func {
	params := fd.ParamTypes()
	results := fd.ResultTypes()

	return func(c *Call) error {
		if c.Len() != len(params) {
			return errors.New(errors.PhaseCall, errors.KindInvalidInput).
				Name(name).
				Detail("expected %d arguments, got %d", len(params), c.Len()).
				Build()
		}

		stack := make([]uint64, len(params))
		for i, vt := range params {
			var witType wit.Type
			if sig != nil {
				witType = sig.params[i]
			}
			v, err := encodeWasmArg(c, i, vt, witType)
			if err != nil {
				return err
			}
			stack[i] = v
		}

		mu.Lock()
		out, err := fn.Call(context.Background(), stack...)
		mu.Unlock()
		if err != nil {
			return errors.Wrap(errors.PhaseCall, errors.KindCallFailed, err, "wasm trap")
		}

		switch len(results) {
		case 0:
			c.ReturnNull()
			return nil
		case 1:
		default:
			return errors.Unsupported(errors.PhaseCall, "multi-value wasm results")
		}

		var witType wit.Type
		if sig != nil && len(sig.results) == 1 {
			witType = sig.results[0]
		}
		decodeWasmResult(c, out[0], results[0], witType)
		return nil
	}
}

func encodeWasmArg(c *Call, i int, vt api.ValueType, witType wit.Type) (uint64, error) {
	switch vt {
	case api.ValueTypeI32, api.ValueTypeI64:
		var n int64
		if witType != nil && witUnsigned(witType) {
			u, err := c.Uint(i)
			if err != nil {
				return 0, err
			}
			n = int64(u)
		} else {
			v, err := c.Int(i)
			if err != nil {
				return 0, err
			}
			n = v
		}
		if vt == api.ValueTypeI32 {
			return api.EncodeI32(int32(n)), nil
		}
		return api.EncodeI64(n), nil
	case api.ValueTypeF32:
		f, err := c.Float(i)
		if err != nil {
			return 0, err
		}
		return api.EncodeF32(float32(f)), nil
	case api.ValueTypeF64:
		f, err := c.Float(i)
		if err != nil {
			return 0, err
		}
		return api.EncodeF64(f), nil
	}
	return 0, errors.Unsupported(errors.PhaseCall, "wasm parameter type "+api.ValueTypeName(vt))
}

func decodeWasmResult(c *Call, raw uint64, vt api.ValueType, witType wit.Type) {
	switch vt {
	case api.ValueTypeF32:
		c.ReturnFloat(float64(api.DecodeF32(raw)))
		return
	case api.ValueTypeF64:
		c.ReturnFloat(api.DecodeF64(raw))
		return
	}

	switch {
	case witType != nil && witBool(witType):
		c.ReturnBool(raw != 0)
	case witType != nil && witUnsigned(witType):
		if vt == api.ValueTypeI32 {
			c.ReturnUint(uint64(api.DecodeU32(raw)))
		} else {
			c.ReturnUint(raw)
		}
	default:
		if vt == api.ValueTypeI32 {
			c.ReturnInt(int64(api.DecodeI32(raw)))
		} else {
			c.ReturnInt(int64(raw))
		}
	}
}
