package tvm

import (
	goruntime "runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/tvm-go/capi"
)

// handleRef is one owned reference to a runtime object that has not yet been
// moved into a wrapper. Whoever wins take() is responsible for the free.
type handleRef struct {
	client *Client
	h      capi.Handle
	code   TypeCode
	taken  atomic.Bool
}

func newHandleRef(c *Client, h capi.Handle, code TypeCode) *handleRef {
	r := &handleRef{client: c, h: h, code: code}
	goruntime.SetFinalizer(r, (*handleRef).finalize)
	return r
}

func (r *handleRef) take() bool {
	return r.taken.CompareAndSwap(false, true)
}

func (r *handleRef) release() {
	if r.take() {
		r.client.freeHandle(r.h, r.code)
	}
}

func (r *handleRef) finalize() {
	if r.take() {
		r.client.log.Warn("releasing unclaimed handle from finalizer",
			zap.Stringer("code", r.code),
			zap.Uintptr("handle", uintptr(r.h)))
		r.client.freeHandle(r.h, r.code)
	}
}

// freeHandle returns one reference to the runtime with the free routine that
// matches code.
func (c *Client) freeHandle(h capi.Handle, code TypeCode) {
	if h == 0 {
		return
	}
	var st capi.Status
	switch code {
	case CodeFuncHandle:
		st = c.rt.FuncFree(h)
	case CodeModuleHandle:
		st = c.rt.ModFree(h)
	case CodeArrayHandle:
		st = c.rt.ArrayFree(h)
	default:
		st = c.rt.ObjectFree(h)
	}
	if !st.OK() {
		c.log.Error("free failed",
			zap.Stringer("code", code),
			zap.Uintptr("handle", uintptr(h)),
			zap.String("error", c.rt.GetLastError()))
		return
	}
	c.log.Debug("freed handle", zap.Stringer("code", code), zap.Uintptr("handle", uintptr(h)))
}
