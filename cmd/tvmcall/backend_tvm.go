//go:build tvm

package main

import (
	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/capi/libtvm"
)

func newRuntime() (capi.Runtime, func()) {
	return libtvm.New(), func() {}
}
