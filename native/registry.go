package native

import (
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/errors"
	"github.com/wippyai/tvm-go/resource"
)

// Register adds a Go function to the global registry.
func (r *Runtime) Register(name string, fn Func, override bool) error {
	h := r.objects.Insert(kindFunction, &function{impl: fn, rt: r, name: name})
	defer r.objects.Release(h)
	if st := r.FuncRegisterGlobal(name, capi.Handle(h), override); !st.OK() {
		return errors.New(errors.PhaseHost, errors.KindCallFailed).
			Name(name).
			Detail("%s", r.GetLastError()).
			Build()
	}
	return nil
}

// FuncGetGlobal resolves name. The handle is borrowed from the registry.
func (r *Runtime) FuncGetGlobal(name string, out *capi.Handle) capi.Status {
	r.mu.RLock()
	h := r.globals[name]
	r.mu.RUnlock()
	*out = capi.Handle(h)
	return capi.StatusOK
}

// FuncListGlobalNames returns the registered names in sorted order.
func (r *Runtime) FuncListGlobalNames(out *[]string) capi.Status {
	r.mu.RLock()
	names := maps.Keys(r.globals)
	r.mu.RUnlock()
	slices.Sort(names)
	*out = names
	return capi.StatusOK
}

// FuncRegisterGlobal stores a new reference to fn under name.
func (r *Runtime) FuncRegisterGlobal(name string, fn capi.Handle, override bool) capi.Status {
	h := resource.Handle(fn)
	if _, ok := r.objects.GetTyped(h, kindFunction); !ok {
		return r.fail(errors.NullHandle(errors.PhaseHost, name))
	}

	r.mu.Lock()
	old, exists := r.globals[name]
	if exists && !override {
		r.mu.Unlock()
		return r.fail(errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Name(name).
			Detail("global function already registered").
			Build())
	}
	r.objects.Retain(h)
	r.globals[name] = h
	r.mu.Unlock()

	if exists {
		r.objects.Release(old)
	}
	r.log.Debug("registered global function", zap.String("name", name), zap.Bool("override", exists))
	return capi.StatusOK
}

// FuncCreateFromHost wraps a host callback in a function object. The
// callback is finalized when the last reference is released.
func (r *Runtime) FuncCreateFromHost(cb capi.PackedCallback, out *capi.Handle) capi.Status {
	if cb == nil {
		return r.fail(errors.InvalidInput(errors.PhaseHost, "nil callback"))
	}
	*out = capi.Handle(r.objects.Insert(kindFunction, &function{host: cb, rt: r}))
	return capi.StatusOK
}

// FuncFree releases a function reference.
func (r *Runtime) FuncFree(fn capi.Handle) capi.Status {
	return r.free(fn, kindFunction)
}

// ObjectFree releases a reference to any object.
func (r *Runtime) ObjectFree(h capi.Handle) capi.Status {
	if !r.objects.Release(resource.Handle(h)) {
		return r.fail(errors.NullHandle(errors.PhaseRuntime, "object"))
	}
	return capi.StatusOK
}

func (r *Runtime) free(h capi.Handle, kind uint32) capi.Status {
	rh := resource.Handle(h)
	if _, ok := r.objects.GetTyped(rh, kind); !ok {
		return r.fail(errors.NullHandle(errors.PhaseRuntime, kindName(kind)))
	}
	r.objects.Release(rh)
	r.log.Debug("released handle", zap.String("kind", kindName(kind)), zap.Uint64("handle", uint64(rh)))
	return capi.StatusOK
}
