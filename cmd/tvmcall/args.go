package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/tvm-go"
)

// parseArgs splits a comma-separated argument list. Quoted strings may
// contain commas.
func parseArgs(s string) ([]tvm.ArgValue, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var (
		out    []tvm.ArgValue
		cur    strings.Builder
		quoted bool
	)
	flush := func() error {
		a, err := parseArg(strings.TrimSpace(cur.String()))
		if err != nil {
			return err
		}
		out = append(out, a)
		cur.Reset()
		return nil
	}
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case r == ',' && !quoted:
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			cur.WriteRune(r)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated string in %q", s)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// parseArg types a literal: "text" is a string, null, true/false, 12u is
// uint, integers and floats by syntax, dtype names like float32, device
// contexts like gpu(1). Anything else is a bare string.
func parseArg(s string) (tvm.ArgValue, error) {
	switch {
	case len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"':
		v, err := strconv.Unquote(s)
		if err != nil {
			return tvm.ArgValue{}, fmt.Errorf("bad string %s: %w", s, err)
		}
		return tvm.String(v), nil
	case s == "null":
		return tvm.Null(), nil
	case s == "true" || s == "false":
		return tvm.Bool(s == "true"), nil
	}

	if strings.HasSuffix(s, "u") {
		if v, err := strconv.ParseUint(strings.TrimSuffix(s, "u"), 0, 64); err == nil {
			return tvm.Uint(v), nil
		}
	}
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return tvm.Int(v), nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return tvm.Float(v), nil
	}
	if t, err := tvm.ParseDataType(s); err == nil {
		return tvm.TypeArg(t), nil
	}
	if ctx, ok := parseContext(s); ok {
		return tvm.ContextArg(ctx), nil
	}
	return tvm.String(s), nil
}

func parseContext(s string) (tvm.Context, bool) {
	name, rest, ok := strings.Cut(s, "(")
	if !ok || !strings.HasSuffix(rest, ")") {
		return tvm.Context{}, false
	}
	dev, err := tvm.ParseDeviceType(name)
	if err != nil {
		return tvm.Context{}, false
	}
	id, err := strconv.ParseInt(strings.TrimSuffix(rest, ")"), 10, 32)
	if err != nil {
		return tvm.Context{}, false
	}
	return tvm.Context{DeviceType: dev, DeviceID: int32(id)}, true
}

func formatArgs(args []tvm.ArgValue) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}
