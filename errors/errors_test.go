package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "type mismatch",
			err: &Error{
				Phase:    PhaseCopy,
				Kind:     KindTypeMismatch,
				Expected: "float",
				Found:    "int",
				Detail:   "dtype differs",
			},
			contains: []string{"[copy]", "type_mismatch", "expected type `float`", "found `int`", "dtype differs"},
		},
		{
			name:     "null handle",
			err:      NullHandle(PhaseLookup, "__tvm_main__"),
			contains: []string{"[lookup]", "null_handle", "`__tvm_main__`", "requested handle is null"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindEmptyArray,
			},
			contains: []string{"[decode]", "empty_array"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindInvalidData,
				Detail: "bad module",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[load]", "invalid_data", "bad module", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !containsSubstring(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseCall,
		Kind:  KindCallFailed,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:    PhaseDecode,
		Kind:     KindTypeMismatch,
		Expected: "int",
		Found:    "float",
	}

	if !err.Is(&Error{Phase: PhaseDecode, Kind: KindTypeMismatch}) {
		t.Error("Is should match same phase and kind")
	}

	if err.Is(&Error{Phase: PhaseCopy, Kind: KindTypeMismatch}) {
		t.Error("Is should not match different phase")
	}

	if err.Is(&Error{Phase: PhaseDecode, Kind: KindEmptyArray}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseDecode, Kind: KindTypeMismatch}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestHasKind(t *testing.T) {
	inner := CallFailed(PhaseCall, "sum", "boom")
	wrapped := fmt.Errorf("invoke: %w", inner)

	if !HasKind(wrapped, KindCallFailed) {
		t.Error("HasKind should see through fmt wrapping")
	}
	if HasKind(wrapped, KindNullHandle) {
		t.Error("HasKind matched the wrong kind")
	}
	if HasKind(nil, KindCallFailed) {
		t.Error("HasKind(nil) should be false")
	}
	if HasKind(errors.New("plain"), KindCallFailed) {
		t.Error("HasKind on a plain error should be false")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseLookup, KindNullHandle).
		Name("add").
		Types("function", "null").
		Value(42).
		Cause(cause).
		Detail("module %s has no %s", "lib", "add").
		Build()

	if err.Phase != PhaseLookup {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseLookup)
	}
	if err.Kind != KindNullHandle {
		t.Errorf("Kind = %v, want %v", err.Kind, KindNullHandle)
	}
	if err.Name != "add" {
		t.Errorf("Name = %v, want add", err.Name)
	}
	if err.Expected != "function" || err.Found != "null" {
		t.Errorf("Expected=%v Found=%v", err.Expected, err.Found)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "module lib has no add" {
		t.Errorf("Detail = %v, want 'module lib has no add'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("EmptyArray", func(t *testing.T) {
		err := EmptyArray(PhaseDecode)
		if err.Kind != KindEmptyArray {
			t.Errorf("Kind = %v, want %v", err.Kind, KindEmptyArray)
		}
	})

	t.Run("NoFunction", func(t *testing.T) {
		err := NoFunction()
		if err.Kind != KindNoFunction || err.Phase != PhaseCall {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseCopy, "float", "int")
		if err.Kind != KindTypeMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
		}
		if err.Expected != "float" || err.Found != "int" {
			t.Errorf("Expected=%v Found=%v", err.Expected, err.Found)
		}
	})

	t.Run("CallFailed", func(t *testing.T) {
		err := CallFailed(PhaseCall, "TVMFuncCall", "division by zero")
		if err.Kind != KindCallFailed {
			t.Errorf("Kind = %v, want %v", err.Kind, KindCallFailed)
		}
		if err.Detail != "division by zero" {
			t.Errorf("Detail = %q, want verbatim runtime message", err.Detail)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseAlloc, 1024)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !containsSubstring(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseLoad, "loader", "so")
		if err.Kind != KindNotFound || err.Name != "so" {
			t.Errorf("got kind %v name %q", err.Kind, err.Name)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhaseEncode, "channel arguments")
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("disk")
		err := Wrap(PhaseLoad, KindInvalidData, cause, "read module")
		if !errors.Is(err, cause) {
			t.Error("Wrap should keep the cause reachable")
		}
	})
}

func containsSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
