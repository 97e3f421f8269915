package tvm

import (
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/errors"
)

// EntryFuncName is the symbol a compiled module exposes as its entry point.
const EntryFuncName = "__tvm_main__"

// Module is a loaded runtime module.
type Module struct {
	client    *Client
	entry     *Function
	handle    capi.Handle
	ownership Ownership
	entryMu   sync.Mutex
	released  atomic.Bool
}

func (c *Client) ownedModule(h capi.Handle) *Module {
	m := &Module{client: c, handle: h, ownership: Owned}
	goruntime.SetFinalizer(m, (*Module).finalize)
	return m
}

func (c *Client) borrowedModule(h capi.Handle) *Module {
	return &Module{client: c, handle: h, ownership: Global}
}

// LoadModule loads a module file. The format is the file extension.
func (c *Client) LoadModule(path string) (*Module, error) {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		return nil, errors.InvalidInput(errors.PhaseLoad, "cannot infer module format from "+path)
	}
	var h capi.Handle
	if st := c.rt.ModLoadFromFile(path, format, &h); !st.OK() {
		return nil, c.lastError(errors.PhaseLoad, path)
	}
	c.log.Debug("loaded module", zap.String("path", path), zap.String("format", format))
	return c.ownedModule(h), nil
}

// SystemLib returns the runtime's statically linked module.
func (c *Client) SystemLib() (*Module, error) {
	fn, err := c.GetGlobalFunc("runtime.SystemLib", false)
	if err != nil {
		return nil, err
	}
	ret, err := fn.Invoke()
	if err != nil {
		return nil, err
	}
	return ret.ToModule()
}

// Handle returns the raw handle. It panics after Release.
func (m *Module) Handle() capi.Handle {
	if m.released.Load() {
		panic("tvm: use of released module")
	}
	return m.handle
}

// Ownership reports whether the wrapper frees its handle.
func (m *Module) Ownership() Ownership { return m.ownership }

// IsReleased reports whether Release or Move has been called.
func (m *Module) IsReleased() bool { return m.released.Load() }

// Move transfers the handle to a new wrapper. The cached entry function
// moves with it.
func (m *Module) Move() *Module {
	h := m.Handle()
	if !m.released.CompareAndSwap(false, true) {
		panic("tvm: concurrent move of module")
	}
	goruntime.SetFinalizer(m, nil)
	var out *Module
	if m.ownership == Owned {
		out = m.client.ownedModule(h)
	} else {
		out = m.client.borrowedModule(h)
	}
	m.entryMu.Lock()
	out.entry, m.entry = m.entry, nil
	m.entryMu.Unlock()
	return out
}

// GetFunction resolves name in the module, and in its imports when
// queryImports is set. The function is owned by the caller.
func (m *Module) GetFunction(name string, queryImports bool) (*Function, error) {
	defer goruntime.KeepAlive(m)
	var h capi.Handle
	if st := m.client.rt.ModGetFunction(m.Handle(), name, queryImports, &h); !st.OK() {
		return nil, m.client.lastError(errors.PhaseLookup, name)
	}
	if h == 0 {
		return nil, errors.NullHandle(errors.PhaseLookup, name)
	}
	return m.client.ownedFunction(h, name), nil
}

// Import makes dep's functions reachable from m. Ownership of dep does not
// change.
func (m *Module) Import(dep *Module) error {
	defer goruntime.KeepAlive(m)
	defer goruntime.KeepAlive(dep)
	if st := m.client.rt.ModImport(m.Handle(), dep.Handle()); !st.OK() {
		return m.client.lastError(errors.PhaseLoad, "import module")
	}
	return nil
}

// EntryFunc returns the module's entry function, resolving it on first use.
// The function belongs to the module and is released with it.
func (m *Module) EntryFunc() (*Function, error) {
	m.entryMu.Lock()
	defer m.entryMu.Unlock()
	if m.entry == nil {
		fn, err := m.GetFunction(EntryFuncName, false)
		if err != nil {
			return nil, err
		}
		m.entry = fn
	}
	return m.entry, nil
}

// Enabled reports whether the runtime supports target ("llvm", "cuda", ...).
func (c *Client) Enabled(target string) (bool, error) {
	fn, err := c.GetGlobalFunc("module._Enabled", false)
	if err != nil {
		return false, err
	}
	ret, err := fn.Invoke(String(target))
	if err != nil {
		return false, err
	}
	return ret.ToBool()
}

// Enabled is Client.Enabled for the module's client.
func (m *Module) Enabled(target string) (bool, error) {
	return m.client.Enabled(target)
}

// Release frees the module handle and the cached entry function.
func (m *Module) Release() {
	if !m.released.CompareAndSwap(false, true) {
		return
	}
	goruntime.SetFinalizer(m, nil)
	m.entryMu.Lock()
	if m.entry != nil {
		m.entry.Release()
		m.entry = nil
	}
	m.entryMu.Unlock()
	if m.ownership == Owned {
		m.client.freeHandle(m.handle, CodeModuleHandle)
	}
}

func (m *Module) finalize() {
	if m.ownership == Owned && m.released.CompareAndSwap(false, true) {
		m.client.log.Warn("module released by finalizer")
		m.client.freeHandle(m.handle, CodeModuleHandle)
	}
}
