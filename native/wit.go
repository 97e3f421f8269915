package native

import (
	"os"
	"regexp"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/tvm-go/errors"
)

// witSignature types a wasm export from a .wit sidecar.
type witSignature struct {
	params  []wit.Type
	results []wit.Type
}

var witFuncPattern = regexp.MustCompile(`(?:export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// loadWitSidecar reads <base>.wit next to a wasm file. A missing sidecar is
// not an error.
func loadWitSidecar(wasmPath string) (map[string]*witSignature, error) {
	path := strings.TrimSuffix(wasmPath, ".wasm") + ".wit"
	text, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return parseWitFunctions(string(text))
}

// parseWitFunctions extracts function signatures from WIT text.
// Pattern: [export] name: func(params) -> result;
func parseWitFunctions(witText string) (map[string]*witSignature, error) {
	funcs := make(map[string]*witSignature)

	for _, match := range witFuncPattern.FindAllStringSubmatch(witText, -1) {
		name := match[1]
		paramsStr := strings.TrimSpace(match[2])
		resultStr := strings.TrimSpace(match[3])

		sig := &witSignature{}
		for _, p := range splitParams(paramsStr) {
			typStr := p
			if idx := strings.LastIndex(p, ":"); idx != -1 {
				typStr = p[idx+1:]
			}
			t, err := parseWitType(typStr)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "parse param type "+typStr)
			}
			sig.params = append(sig.params, t)
		}

		if resultStr != "" && resultStr != "()" {
			t, err := parseWitType(resultStr)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "parse result type "+resultStr)
			}
			sig.results = []wit.Type{t}
		}

		funcs[name] = sig
	}

	if len(funcs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "no functions found in WIT text")
	}
	return funcs, nil
}

func splitParams(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseWitType(s string) (wit.Type, error) {
	return wit.ParseType(strings.TrimSpace(s))
}

// witUnsigned reports whether t is an unsigned integer type.
func witUnsigned(t wit.Type) bool {
	switch t.(type) {
	case wit.U8, wit.U16, wit.U32, wit.U64:
		return true
	}
	return false
}

func witBool(t wit.Type) bool {
	_, ok := t.(wit.Bool)
	return ok
}
