package tvm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/wippyai/tvm-go/errors"
)

func TestWrap(t *testing.T) {
	c, _ := newClient(t)

	tests := []struct {
		name string
		fn   any
		args []ArgValue
		want string
	}{
		{
			name: "ints",
			fn:   func(a, b int32) int64 { return int64(a) * int64(b) },
			args: []ArgValue{Int(6), Int(7)},
			want: "42",
		},
		{
			name: "uint from int",
			fn:   func(n uint8) uint16 { return uint16(n) + 1 },
			args: []ArgValue{Int(254)},
			want: "255",
		},
		{
			name: "float from int",
			fn:   func(x float64) float64 { return x / 2 },
			args: []ArgValue{Int(3)},
			want: "1.5",
		},
		{
			name: "string and bool",
			fn: func(s string, upper bool) string {
				if upper {
					return strings.ToUpper(s)
				}
				return s
			},
			args: []ArgValue{String("abc"), Bool(true)},
			want: `"ABC"`,
		},
		{
			name: "value and error",
			fn:   func(b []byte) (int, error) { return len(b), nil },
			args: []ArgValue{Bytes([]byte("four"))},
			want: "4",
		},
		{
			name: "no result",
			fn:   func(DataType, Context) {},
			args: []ArgValue{TypeArg(Float32), ContextArg(CPU(0))},
			want: "null",
		},
		{
			name: "variadic",
			fn: func(sep string, rest ...ArgValue) string {
				parts := make([]string, len(rest))
				for i, a := range rest {
					parts[i] = a.String()
				}
				return strings.Join(parts, sep)
			},
			args: []ArgValue{String("+"), Int(1), Float(2.5)},
			want: `"1+2.5"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Wrap(tt.fn)
			if err != nil {
				t.Fatalf("Wrap: %v", err)
			}
			fn, err := c.NewFunction(h)
			if err != nil {
				t.Fatalf("NewFunction: %v", err)
			}
			defer fn.Release()

			ret, err := fn.Invoke(tt.args...)
			if err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			if got := ret.String(); got != tt.want {
				t.Errorf("result = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWrapErrors(t *testing.T) {
	bad := []any{
		42,
		func() (int, int) { return 0, 0 },
		func(map[string]int) {},
		func(...int) {},
	}
	for _, fn := range bad {
		if _, err := Wrap(fn); err == nil {
			t.Errorf("Wrap(%T) should fail", fn)
		}
	}
}

func TestWrapCallErrors(t *testing.T) {
	h, err := Wrap(func(a int8, s string) (string, error) {
		if s == "" {
			return "", fmt.Errorf("empty")
		}
		return s, nil
	})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	tests := []struct {
		name string
		args []ArgValue
		kind errors.Kind
	}{
		{"arity", []ArgValue{Int(1)}, errors.KindInvalidInput},
		{"overflow", []ArgValue{Int(300), String("x")}, errors.KindTypeMismatch},
		{"wrong tag", []ArgValue{Float(1), String("x")}, errors.KindTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h(tt.args)
			wantKind(t, err, tt.kind)
		})
	}

	if _, err := h([]ArgValue{Int(1), String("")}); err == nil || err.Error() != "empty" {
		t.Errorf("function error = %v, want empty", err)
	}
}

type mathHost struct{ offset int64 }

func (mathHost) Namespace() string { return "math" }

func (h mathHost) AddOffset(v int64) int64 { return v + h.offset }

func (mathHost) GetHTTPStatus() int { return 200 }

func TestRegisterHost(t *testing.T) {
	c, _ := newClient(t)
	if err := c.RegisterHost(mathHost{offset: 10}, false); err != nil {
		t.Fatalf("RegisterHost: %v", err)
	}

	ret, err := c.Builder().GetFunction("math.add_offset", false).Arg(Int(5)).Invoke()
	if err != nil {
		t.Fatalf("math.add_offset: %v", err)
	}
	if v, _ := ret.ToInt(); v != 15 {
		t.Errorf("add_offset(5) = %d, want 15", v)
	}

	if fn, _ := c.GetGlobalFunc("math.get_http_status", true); fn == nil {
		t.Error("math.get_http_status not registered")
	}
	if fn, _ := c.GetGlobalFunc("math.namespace", true); fn != nil {
		t.Error("Namespace should not be registered")
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Add":           "add",
		"AddOne":        "add_one",
		"GetHTTPURL":    "get_httpurl",
		"GetHTTPServer": "get_http_server",
		"HTTPServer":    "http_server",
		"ParseJSONData": "parse_json_data",
		"X":             "x",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
