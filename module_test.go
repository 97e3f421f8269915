package tvm

import (
	"testing"

	"github.com/wippyai/tvm-go/capi"
	"github.com/wippyai/tvm-go/errors"
	"github.com/wippyai/tvm-go/native"
)

// addKernel adds two float32 arrays into the third.
func addKernel(c *native.Call) error {
	var data [3][]float32
	for i := range data {
		t, err := c.Array(i)
		if err != nil {
			return err
		}
		data[i] = native.TensorData[float32](t)
	}
	if len(data[0]) != len(data[1]) || len(data[0]) != len(data[2]) {
		return errors.InvalidInput(errors.PhaseCall, "operand sizes differ")
	}
	for i := range data[2] {
		data[2][i] = data[0][i] + data[1][i]
	}
	return nil
}

// registerAddLoader makes files with the "addlib" extension load as a module
// whose entry function is addKernel.
func registerAddLoader(rt *native.Runtime, closed *int) {
	rt.RegisterLoader("addlib", native.LoaderFunc(func(path string) (*native.ModuleDef, error) {
		return &native.ModuleDef{
			Name: path,
			Funcs: map[string]native.Func{
				EntryFuncName: addKernel,
				"scale": func(c *native.Call) error {
					v, err := c.Float(0)
					c.ReturnFloat(v * 2)
					return err
				},
			},
			Close: func() error {
				if closed != nil {
					*closed++
				}
				return nil
			},
		}, nil
	}))
}

func TestTensorAdd(t *testing.T) {
	c, rt := newClient(t)
	registerAddLoader(rt, nil)

	mod, err := c.LoadModule("/models/add.addlib")
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	defer mod.Release()

	a, err := FromSlice(c, Float32, []float32{3, 4})
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	defer a.Release()
	b, err := FromSlice(c, Float32, []float32{3, 4})
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	defer b.Release()
	out, err := c.Empty([]int64{2}, CPU(0), Float32)
	if err != nil {
		t.Fatalf("Empty: %v", err)
	}
	defer out.Release()

	entry, err := mod.EntryFunc()
	if err != nil {
		t.Fatalf("EntryFunc: %v", err)
	}
	if _, err := entry.Builder().Args(ArrayArg(a), ArrayArg(b)).SetOutput(ArrayArg(out)).Invoke(); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	got, err := ToVec[float32](out)
	if err != nil {
		t.Fatalf("ToVec: %v", err)
	}
	if len(got) != 2 || got[0] != 6 || got[1] != 8 {
		t.Errorf("a+b = %v, want [6 8]", got)
	}

	again, _ := mod.EntryFunc()
	if again != entry {
		t.Error("EntryFunc should be cached")
	}
}

func TestModuleGetFunction(t *testing.T) {
	c, rt := newClient(t)
	registerAddLoader(rt, nil)

	mod, err := c.LoadModule("lib.addlib")
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	defer mod.Release()

	scale, err := mod.GetFunction("scale", false)
	if err != nil {
		t.Fatalf("GetFunction: %v", err)
	}
	defer scale.Release()
	ret, err := scale.Invoke(Float(1.5))
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	if v, _ := ret.ToFloat(); v != 3 {
		t.Errorf("scale(1.5) = %g, want 3", v)
	}

	_, err = mod.GetFunction("missing", false)
	e := wantKind(t, err, errors.KindNullHandle)
	if e.Name != "missing" {
		t.Errorf("error name = %q, want missing", e.Name)
	}
}

func TestLoadModuleErrors(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.LoadModule("no-extension")
	wantKind(t, err, errors.KindInvalidInput)

	_, err = c.LoadModule("model.unknownfmt")
	e := wantKind(t, err, errors.KindCallFailed)
	if e.Phase != errors.PhaseLoad {
		t.Errorf("phase = %s, want load", e.Phase)
	}
}

func TestModuleImports(t *testing.T) {
	c, rt := newClient(t)
	registerAddLoader(rt, nil)

	mainMod := c.ownedModule(capi.Handle(rt.NewModule(&native.ModuleDef{Name: "main"})))
	defer mainMod.Release()
	dep, err := c.LoadModule("dep.addlib")
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}

	if err := mainMod.Import(dep); err != nil {
		t.Fatalf("Import: %v", err)
	}
	// the importer keeps dep alive
	dep.Release()

	if _, err := mainMod.GetFunction("scale", false); err == nil {
		t.Error("scale should not resolve without queryImports")
	}
	fn, err := mainMod.GetFunction("scale", true)
	if err != nil {
		t.Fatalf("GetFunction via imports: %v", err)
	}
	defer fn.Release()
	ret, err := fn.Invoke(Float(4))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if v, _ := ret.ToFloat(); v != 8 {
		t.Errorf("scale(4) = %g, want 8", v)
	}

	err = mainMod.Import(mainMod)
	wantKind(t, err, errors.KindCallFailed)
}

func TestFunctionKeepsModuleAlive(t *testing.T) {
	c, rt := newClient(t)
	closed := 0
	registerAddLoader(rt, &closed)

	mod, err := c.LoadModule("lib.addlib")
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	fn, err := mod.GetFunction("scale", false)
	if err != nil {
		t.Fatalf("GetFunction: %v", err)
	}
	mod.Release()
	if closed != 0 {
		t.Fatal("module closed while a function still references it")
	}
	if _, err := fn.Invoke(Float(1)); err != nil {
		t.Fatalf("Invoke after module release: %v", err)
	}
	fn.Release()
	if closed != 1 {
		t.Errorf("module closed %d times, want 1", closed)
	}
}

func TestModuleReleaseFreesEntry(t *testing.T) {
	c, rt := newClient(t)
	closed := 0
	registerAddLoader(rt, &closed)

	mod, err := c.LoadModule("lib.addlib")
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	if _, err := mod.EntryFunc(); err != nil {
		t.Fatalf("EntryFunc: %v", err)
	}
	mod.Release()
	mod.Release()
	if closed != 1 {
		t.Errorf("module closed %d times, want 1", closed)
	}
}

func TestSystemLib(t *testing.T) {
	c, rt := newClient(t)
	rt.RegisterSystemSymbol("add_one", func(call *native.Call) error {
		v, err := call.Int(0)
		call.ReturnInt(v + 1)
		return err
	})

	lib, err := c.SystemLib()
	if err != nil {
		t.Fatalf("SystemLib: %v", err)
	}
	defer lib.Release()
	if lib.Ownership() != Owned {
		t.Errorf("system lib ownership = %s, want owned", lib.Ownership())
	}

	fn, err := lib.GetFunction("add_one", false)
	if err != nil {
		t.Fatalf("GetFunction: %v", err)
	}
	defer fn.Release()
	ret, err := fn.Invoke(Int(41))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if v, _ := ret.ToInt(); v != 42 {
		t.Errorf("add_one(41) = %d, want 42", v)
	}
}

func TestEnabled(t *testing.T) {
	c, _ := newClient(t)
	tests := []struct {
		target string
		want   bool
	}{
		{"llvm", true},
		{"cpu", true},
		{"cuda", false},
		{"opencl", false},
		{"bogus", false},
	}
	for _, tt := range tests {
		got, err := c.Enabled(tt.target)
		if err != nil {
			t.Fatalf("Enabled(%s): %v", tt.target, err)
		}
		if got != tt.want {
			t.Errorf("Enabled(%s) = %v, want %v", tt.target, got, tt.want)
		}
	}
}
