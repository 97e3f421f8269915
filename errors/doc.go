// Package errors provides structured error types for the tvm-go client.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the symbol name, the expected/found type names for
// mismatches, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLookup, errors.KindNullHandle).
//		Name("__tvm_main__").
//		Detail("module has no entry function").
//		Build()
//
// Or use convenience constructors for the client taxonomy:
//
//	err := errors.TypeMismatch(errors.PhaseCopy, "float", "int")
//	err := errors.CallFailed(errors.PhaseCall, "TVMFuncCall", lastError)
//
// All errors implement the standard error interface and support errors.Is/As.
// HasKind matches a Kind anywhere in a wrap chain.
package errors
