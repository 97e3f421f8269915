package native

import (
	"go.uber.org/zap"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/resource"
)

// AllocString pins a copy of s. The handle is the string's address as far
// as callers are concerned.
func (r *Runtime) AllocString(s string) capi.Handle {
	return capi.Handle(r.objects.Insert(kindBlob, &blob{data: []byte(s)}))
}

// AllocBytes pins a copy of b.
func (r *Runtime) AllocBytes(b []byte) capi.Handle {
	data := make([]byte, len(b))
	copy(data, b)
	return capi.Handle(r.objects.Insert(kindBlob, &blob{data: data, bytes: true}))
}

// Free releases pinned memory.
func (r *Runtime) Free(h capi.Handle) {
	r.objects.Release(resource.Handle(h))
}

// ReadString copies the string at h. Returned strings are released by the
// read.
func (r *Runtime) ReadString(h capi.Handle) string {
	b, ok := r.blob(h)
	if !ok {
		r.log.Warn("string read from a freed or evicted handle", zap.Uintptr("handle", uintptr(h)))
		return ""
	}
	s := string(b.data)
	r.consume(h, b)
	return s
}

// ReadBytes copies the byte array at h.
func (r *Runtime) ReadBytes(h capi.Handle) []byte {
	b, ok := r.blob(h)
	if !ok {
		r.log.Warn("bytes read from a freed or evicted handle", zap.Uintptr("handle", uintptr(h)))
		return nil
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	r.consume(h, b)
	return out
}

func (r *Runtime) blob(h capi.Handle) (*blob, bool) {
	v, ok := r.objects.GetTyped(resource.Handle(h), kindBlob)
	if !ok {
		return nil, false
	}
	return v.(*blob), true
}

func (r *Runtime) consume(h capi.Handle, b *blob) {
	if b.ret {
		r.objects.Release(resource.Handle(h))
	}
}

// returnBlob stores a call result. It stays readable until read once or
// until maxPending newer results have been produced.
func (r *Runtime) returnBlob(data []byte, bytes bool) capi.Handle {
	h := r.objects.Insert(kindBlob, &blob{data: data, bytes: bytes, ret: true})

	r.pendingMu.Lock()
	r.pending = append(r.pending, h)
	var evict []resource.Handle
	if over := len(r.pending) - r.maxPending; over > 0 {
		evict = append(evict, r.pending[:over]...)
		r.pending = append(r.pending[:0:0], r.pending[over:]...)
	}
	r.pendingMu.Unlock()

	// already-read entries are gone from the table; Release is a no-op
	for _, old := range evict {
		r.objects.Release(old)
	}
	return capi.Handle(h)
}
