// Package libtvm implements capi.Runtime on top of libtvm_runtime through
// cgo. It is only built with the "tvm" build tag:
//
//	CGO_CFLAGS=-I$TVM_HOME/include CGO_LDFLAGS=-L$TVM_HOME/lib go build -tags tvm
//
// Host functions are passed to the runtime as cgo.Handle values and
// dispatched through exported trampolines.
package libtvm
