package native

import (
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/errors"
	"github.com/wippyai/tvm-go/resource"
)

// ModuleDef is the function table of a module.
type ModuleDef struct {
	// Close runs when the last reference to the module is released.
	Close func() error
	Funcs map[string]Func
	Name  string
	mu    sync.RWMutex
}

func (d *ModuleDef) get(name string) (Func, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn, ok := d.Funcs[name]
	return fn, ok
}

func (d *ModuleDef) set(name string, fn Func) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Funcs == nil {
		d.Funcs = make(map[string]Func)
	}
	d.Funcs[name] = fn
}

// Loader builds a module from a file.
type Loader interface {
	Load(path string) (*ModuleDef, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) (*ModuleDef, error)

func (f LoaderFunc) Load(path string) (*ModuleDef, error) { return f(path) }

// RegisterLoader installs a loader for a format name, the file extension
// without the dot. A later registration replaces an earlier one.
func (r *Runtime) RegisterLoader(format string, l Loader) {
	r.mu.Lock()
	r.loaders[strings.ToLower(format)] = l
	r.mu.Unlock()
}

// NewModule wraps def in a module object and returns an owned handle.
func (r *Runtime) NewModule(def *ModuleDef) capi.Handle {
	return capi.Handle(r.newModule(def, "go"))
}

func (r *Runtime) newModule(def *ModuleDef, format string) resource.Handle {
	m := &module{def: def, rt: r, format: format}
	h := r.objects.Insert(kindModule, m)
	m.self = h
	return h
}

// RegisterSystemSymbol adds fn to the system library returned by the
// runtime.SystemLib global.
func (r *Runtime) RegisterSystemSymbol(name string, fn Func) {
	r.systemLib.set(name, fn)
}

// systemModule returns a new reference to the system library module.
func (r *Runtime) systemModule() capi.Handle {
	r.systemMu.Lock()
	defer r.systemMu.Unlock()
	if r.systemMod == 0 || r.objects.Refs(r.systemMod) == 0 {
		r.systemMod = r.newModule(r.systemLib, "system")
	}
	r.objects.Retain(r.systemMod)
	return capi.Handle(r.systemMod)
}

// ModLoadFromFile loads path with the loader registered for format, or for
// the file extension when format is empty.
func (r *Runtime) ModLoadFromFile(path, format string, out *capi.Handle) capi.Status {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	format = strings.ToLower(format)

	r.mu.RLock()
	l, ok := r.loaders[format]
	r.mu.RUnlock()
	if !ok {
		return r.fail(errors.New(errors.PhaseLoad, errors.KindUnsupported).
			Name(path).
			Detail("no loader for format %q", format).
			Build())
	}

	def, err := l.Load(path)
	if err != nil {
		return r.fail(errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "load "+path))
	}
	if def.Name == "" {
		def.Name = filepath.Base(path)
	}

	h := r.newModule(def, format)
	r.log.Debug("loaded module",
		zap.String("path", path),
		zap.String("format", format),
		zap.Int("functions", len(def.Funcs)))
	*out = capi.Handle(h)
	return capi.StatusOK
}

func (r *Runtime) module(h capi.Handle) (*module, bool) {
	v, ok := r.objects.GetTyped(resource.Handle(h), kindModule)
	if !ok {
		return nil, false
	}
	return v.(*module), true
}

// ModImport makes dep's functions visible to lookups on mod that query
// imports. mod keeps a reference to dep. Cyclic imports are rejected.
func (r *Runtime) ModImport(mod, dep capi.Handle) capi.Status {
	m, ok := r.module(mod)
	if !ok {
		return r.fail(errors.NullHandle(errors.PhaseLoad, "module"))
	}
	if _, ok := r.module(dep); !ok {
		return r.fail(errors.NullHandle(errors.PhaseLoad, "import"))
	}
	if mod == dep {
		return r.fail(errors.InvalidInput(errors.PhaseLoad, "module cannot import itself"))
	}

	r.graphMu.Lock()
	defer r.graphMu.Unlock()

	from := r.graphNode(int64(mod))
	to := r.graphNode(int64(dep))
	if r.imports.HasEdgeFromTo(from.ID(), to.ID()) {
		return capi.StatusOK
	}
	if topo.PathExistsIn(r.imports, to, from) {
		return r.fail(errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Name(m.def.Name).
			Detail("import would create a cycle").
			Build())
	}
	r.imports.SetEdge(r.imports.NewEdge(from, to))
	r.objects.Retain(resource.Handle(dep))
	m.imports = append(m.imports, resource.Handle(dep))
	return capi.StatusOK
}

// graphNode must be called with graphMu held.
func (r *Runtime) graphNode(id int64) simple.Node {
	if r.imports.Node(id) == nil {
		r.imports.AddNode(simple.Node(id))
	}
	return simple.Node(id)
}

func (r *Runtime) forgetModule(h resource.Handle) {
	r.graphMu.Lock()
	defer r.graphMu.Unlock()
	if r.imports.Node(int64(h)) != nil {
		r.imports.RemoveNode(int64(h))
	}
}

// ModGetFunction looks name up in mod and, when queryImports is set, in its
// imports depth first. The returned function holds a reference to the
// module that defines it.
func (r *Runtime) ModGetFunction(mod capi.Handle, name string, queryImports bool, out *capi.Handle) capi.Status {
	m, ok := r.module(mod)
	if !ok {
		return r.fail(errors.NullHandle(errors.PhaseLookup, "module"))
	}

	owner, fn := r.findFunc(m, name, queryImports, make(map[resource.Handle]bool))
	if fn == nil {
		*out = 0
		return capi.StatusOK
	}

	r.objects.Retain(owner.self)
	h := r.objects.Insert(kindFunction, &function{
		impl:   fn,
		rt:     r,
		name:   name,
		module: owner.self,
	})
	*out = capi.Handle(h)
	return capi.StatusOK
}

func (r *Runtime) findFunc(m *module, name string, queryImports bool, seen map[resource.Handle]bool) (*module, Func) {
	if fn, ok := m.def.get(name); ok {
		return m, fn
	}
	if !queryImports {
		return nil, nil
	}
	seen[m.self] = true

	r.graphMu.Lock()
	deps := append([]resource.Handle(nil), m.imports...)
	r.graphMu.Unlock()

	for _, dh := range deps {
		if seen[dh] {
			continue
		}
		dep, ok := r.module(capi.Handle(dh))
		if !ok {
			continue
		}
		if owner, fn := r.findFunc(dep, name, true, seen); fn != nil {
			return owner, fn
		}
	}
	return nil, nil
}

// ModFree releases a module reference.
func (r *Runtime) ModFree(mod capi.Handle) capi.Status {
	return r.free(mod, kindModule)
}
