package native

import (
	"go.uber.org/zap"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/resource"
)

// Object kinds stored in the table.
const (
	kindFunction uint32 = iota + 1
	kindModule
	kindArray
	kindBlob
	kindReturn
	kindNode
)

func kindName(k uint32) string {
	switch k {
	case kindFunction:
		return "function"
	case kindModule:
		return "module"
	case kindArray:
		return "array"
	case kindBlob:
		return "blob"
	case kindReturn:
		return "return slot"
	case kindNode:
		return "node"
	}
	return "unknown"
}

func kindOf(code capi.TypeCode) (uint32, bool) {
	switch code {
	case capi.CodeFuncHandle:
		return kindFunction, true
	case capi.CodeModuleHandle:
		return kindModule, true
	case capi.CodeArrayHandle:
		return kindArray, true
	case capi.CodeNodeHandle:
		return kindNode, true
	}
	return 0, false
}

// function is either a Go function or a host callback. Functions resolved
// from a module keep the module alive.
type function struct {
	impl   Func
	host   capi.PackedCallback
	rt     *Runtime
	name   string
	module resource.Handle
}

func (f *function) Drop() {
	if f.host != nil {
		f.host.Finalize()
	}
	if f.module != 0 {
		f.rt.objects.Release(f.module)
	}
}

// module is a loaded function table plus the modules it imports.
type module struct {
	def     *ModuleDef
	rt      *Runtime
	format  string
	imports []resource.Handle
	self    resource.Handle
}

func (m *module) Drop() {
	m.rt.forgetModule(m.self)
	for _, dep := range m.imports {
		m.rt.objects.Release(dep)
	}
	if m.def.Close != nil {
		if err := m.def.Close(); err != nil {
			m.rt.log.Warn("module close failed", zap.String("module", m.def.Name), zap.Error(err))
		}
	}
}

// blob is pinned string or byte-array memory.
type blob struct {
	data  []byte
	bytes bool
	ret   bool // returned by a call, dropped after the first read
}

// retSlot receives a host callback's result.
type retSlot struct {
	rt    *Runtime
	value capi.Value
	code  capi.TypeCode
	taken bool
}

func (s *retSlot) Drop() {
	if s.taken {
		return
	}
	s.rt.releaseValue(s.value, s.code)
}

// node is an opaque object created by Go code and handed to callers.
type node struct {
	value any
}

func (n *node) Drop() {
	if d, ok := n.value.(resource.Dropper); ok {
		d.Drop()
	}
}

// releaseValue drops the reference a value carries, if any.
func (r *Runtime) releaseValue(v capi.Value, code capi.TypeCode) {
	switch code {
	case capi.CodeFuncHandle, capi.CodeModuleHandle, capi.CodeArrayHandle,
		capi.CodeNodeHandle, capi.CodeStr, capi.CodeBytes:
		if h := v.Handle(); h != 0 {
			r.objects.Release(resource.Handle(h))
		}
	}
}

// NewObject stores value as a node object and returns an owned handle.
// If value implements resource.Dropper it is dropped with the last reference.
func (r *Runtime) NewObject(value any) capi.Handle {
	return capi.Handle(r.objects.Insert(kindNode, &node{value: value}))
}

// Object returns the value behind a node handle.
func (r *Runtime) Object(h capi.Handle) (any, bool) {
	v, ok := r.objects.GetTyped(resource.Handle(h), kindNode)
	if !ok {
		return nil, false
	}
	return v.(*node).value, true
}
