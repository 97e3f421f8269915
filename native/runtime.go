package native

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/errors"
	"github.com/wippyai/tvm-go/resource"
)

// Version is reported by the runtime.GetVersion global.
const Version = "0.1.0-native"

// Runtime is an in-process implementation of capi.Runtime. Every object it
// hands out lives in a reference-counted table; handles are table indices.
//
// The last-error slot is shared by all goroutines using the runtime, unlike
// libtvm where it is thread-local. Callers that need the message must read
// it before issuing another failing call.
type Runtime struct {
	wasmErr    error
	log        *zap.Logger
	objects    *resource.Table
	wasm       wazero.Runtime
	globals    map[string]resource.Handle
	loaders    map[string]Loader
	devices    map[capi.Context]DeviceInfo
	imports    *simple.DirectedGraph
	systemLib  *ModuleDef
	lastErr    string
	pending    []resource.Handle
	cfg        Config
	systemMu   sync.Mutex
	systemMod  resource.Handle
	mu         sync.RWMutex
	errMu      sync.Mutex
	pendingMu  sync.Mutex
	graphMu    sync.Mutex
	wasmOnce   sync.Once
	maxPending int
}

var _ capi.Runtime = (*Runtime)(nil)

// New creates a runtime with default configuration.
func New() *Runtime {
	return NewWithConfig(nil)
}

// NewWithConfig creates a runtime with custom configuration.
func NewWithConfig(cfg *Config) *Runtime {
	r := &Runtime{
		objects:   resource.NewTable(),
		globals:   make(map[string]resource.Handle),
		loaders:   make(map[string]Loader),
		devices:   make(map[capi.Context]DeviceInfo),
		imports:   simple.NewDirectedGraph(),
		systemLib: &ModuleDef{Name: "system_lib", Funcs: make(map[string]Func)},
	}
	if cfg != nil {
		r.cfg = *cfg
	}
	r.log = r.cfg.Logger
	if r.log == nil {
		r.log = Logger()
	}
	r.maxPending = r.cfg.MaxPendingReturns
	if r.maxPending <= 0 {
		r.maxPending = defaultMaxPendingReturns
	}

	cpu := cpuDevice()
	r.devices[cpu.Ctx] = cpu
	for _, d := range r.cfg.Devices {
		r.devices[d.Ctx] = d
	}

	r.loaders["wasm"] = LoaderFunc(r.loadWasm)
	r.registerBuiltins()
	return r
}

// Objects exposes the object table, mainly so tests can observe lifecycle
// events.
func (r *Runtime) Objects() *resource.Table {
	return r.objects
}

// Close drops every remaining object and shuts down the wasm engine.
func (r *Runtime) Close(ctx context.Context) error {
	if err := r.objects.Close(); err != nil {
		return err
	}
	if r.wasm != nil {
		return r.wasm.Close(ctx)
	}
	return nil
}

// GetLastError returns the message of the most recent failure.
func (r *Runtime) GetLastError() string {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.lastErr
}

// SetLastError stores msg as the most recent failure.
func (r *Runtime) SetLastError(msg string) {
	r.errMu.Lock()
	r.lastErr = msg
	r.errMu.Unlock()
}

func (r *Runtime) fail(err error) capi.Status {
	r.SetLastError(err.Error())
	r.log.Debug("runtime call failed", zap.Error(err))
	return capi.StatusFail
}

func (r *Runtime) wasmRuntime() (wazero.Runtime, error) {
	r.wasmOnce.Do(func() {
		cfg := wazero.NewRuntimeConfig()
		if r.cfg.MemoryLimitPages > 0 {
			cfg = cfg.WithMemoryLimitPages(r.cfg.MemoryLimitPages)
		}
		r.wasm = wazero.NewRuntimeWithConfig(context.Background(), cfg)
		if r.wasm == nil {
			r.wasmErr = errors.Unsupported(errors.PhaseLoad, "wasm engine unavailable")
		}
	})
	return r.wasm, r.wasmErr
}
