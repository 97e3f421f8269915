//go:build !tvm

package main

import (
	"context"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/native"
)

func newRuntime() (capi.Runtime, func()) {
	rt := native.New()
	return rt, func() { _ = rt.Close(context.Background()) }
}
