package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode  Phase = "encode"  // Go value to packed argument
	PhaseDecode  Phase = "decode"  // packed return to Go value
	PhaseCall    Phase = "call"    // packed function invocation
	PhaseLookup  Phase = "lookup"  // function/module symbol resolution
	PhaseLoad    Phase = "load"    // module loading
	PhaseAlloc   Phase = "alloc"   // tensor allocation
	PhaseCopy    Phase = "copy"    // tensor data movement
	PhaseHost    Phase = "host"    // host callback registration and dispatch
	PhaseRuntime Phase = "runtime" // runtime bookkeeping
)

// Kind categorizes the error
type Kind string

const (
	KindEmptyArray   Kind = "empty_array"
	KindNullHandle   Kind = "null_handle"
	KindNoFunction   Kind = "no_function"
	KindTypeMismatch Kind = "type_mismatch"
	KindCallFailed   Kind = "call_failed"
	KindInvalidInput Kind = "invalid_input"
	KindUnsupported  Kind = "unsupported"
	KindNotFound     Kind = "not_found"
	KindAllocation   Kind = "allocation"
	KindInvalidData  Kind = "invalid_data"
)

// Error is the structured error type used throughout the client.
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Name     string // symbol or operation the error refers to
	Expected string
	Found    string
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Name != "" {
		b.WriteString(" `")
		b.WriteString(e.Name)
		b.WriteByte('`')
	}

	if e.Expected != "" || e.Found != "" {
		b.WriteString(": expected type `")
		b.WriteString(e.Expected)
		b.WriteString("`, but found `")
		b.WriteString(e.Found)
		b.WriteByte('`')
	}

	if e.Detail != "" {
		if e.Expected != "" || e.Found != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// HasKind reports whether err is, or wraps, an *Error of the given kind.
func HasKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Name sets the symbol name
func (b *Builder) Name(name string) *Builder {
	b.err.Name = name
	return b
}

// Types sets the expected and found type names
func (b *Builder) Types(expected, found string) *Builder {
	b.err.Expected = expected
	b.err.Found = found
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the client error taxonomy

// EmptyArray reports an introspection or conversion on a tensor without
// shape or backing data.
func EmptyArray(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEmptyArray,
		Detail: "cannot convert from empty array",
	}
}

// NullHandle reports a by-name resolution that returned no handle.
func NullHandle(phase Phase, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNullHandle,
		Name:   name,
		Detail: "requested handle is null",
	}
}

// NoFunction reports an invocation on a builder without a function.
func NoFunction() *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindNoFunction,
		Detail: "function was not set in call builder",
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, expected, found string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Expected: expected,
		Found:    found,
	}
}

// CallFailed wraps the runtime's last-error message. msg must already be a
// copy; the runtime buffer is reused by the next call.
func CallFailed(phase Phase, op, msg string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCallFailed,
		Name:   op,
		Detail: msg,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Name:   name,
		Detail: fmt.Sprintf("%s not found", what),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, nbytes int64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", nbytes),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
