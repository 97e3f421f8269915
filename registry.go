package tvm

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/errors"
)

// Registry caches global function handles by name. Each name is looked up in
// the runtime at most once; later resolutions return the same handle.
type Registry struct {
	client  *Client
	handles map[string]capi.Handle
	lookups map[string]int
	mu      sync.RWMutex
}

func newRegistry(c *Client) *Registry {
	return &Registry{
		client:  c,
		handles: make(map[string]capi.Handle),
		lookups: make(map[string]int),
	}
}

// Resolve returns the handle registered under name, or 0 if there is none.
// Missing names are not cached so a later registration is seen.
func (r *Registry) Resolve(name string) (capi.Handle, error) {
	r.mu.RLock()
	h, ok := r.handles[name]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[name]; ok {
		return h, nil
	}

	r.lookups[name]++
	if st := r.client.rt.FuncGetGlobal(name, &h); !st.OK() {
		return 0, r.client.lastError(errors.PhaseLookup, name)
	}
	if h != 0 {
		r.handles[name] = h
		r.client.log.Debug("resolved global function", zap.String("name", name))
	}
	return h, nil
}

// Lookups returns how many times name was looked up in the runtime.
func (r *Registry) Lookups(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookups[name]
}

func (r *Registry) forget(name string) {
	r.mu.Lock()
	delete(r.handles, name)
	r.mu.Unlock()
}

// GetGlobalFunc returns the global function registered under name. A
// missing name is a NullHandle error, or nil with no error when
// allowMissing is set. Global functions are never freed.
func (c *Client) GetGlobalFunc(name string, allowMissing bool) (*Function, error) {
	h, err := c.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	if h == 0 {
		if allowMissing {
			return nil, nil
		}
		return nil, errors.NullHandle(errors.PhaseLookup, name)
	}
	return c.globalFunction(h, name), nil
}

// ListGlobalFuncNames returns every registered global name.
func (c *Client) ListGlobalFuncNames() ([]string, error) {
	var names []string
	if st := c.rt.FuncListGlobalNames(&names); !st.OK() {
		return nil, c.lastError(errors.PhaseLookup, "list global functions")
	}
	return names, nil
}
