package tvm

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/wippyai/tvm-go/errors"
)

// Host is a struct whose exported methods are registered as global
// functions named "<namespace>.<method_name>".
type Host interface {
	Namespace() string
}

var (
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	argValueType = reflect.TypeOf(ArgValue{})
	retValueType = reflect.TypeOf(RetValue{})
	bytesType    = reflect.TypeOf([]byte(nil))
	dataTypeType = reflect.TypeOf(DataType{})
	contextType  = reflect.TypeOf(Context{})
	funcPtrType  = reflect.TypeOf((*Function)(nil))
	modPtrType   = reflect.TypeOf((*Module)(nil))
	arrayPtrType = reflect.TypeOf((*NDArray)(nil))
)

// Wrap adapts an ordinary Go function to a HostFunc. Parameters are
// converted from the packed arguments by their Go type; the function may
// return nothing, a value, an error, or a value and an error. A trailing
// variadic []ArgValue parameter receives the remaining arguments.
func Wrap(fn any) (HostFunc, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			Value(fn).
			Detail("handler must be a function, got %T", fn).
			Build()
	}
	ft := rv.Type()

	convs := make([]func(ArgValue) (reflect.Value, error), ft.NumIn())
	for i := range convs {
		in := ft.In(i)
		if ft.IsVariadic() && i == ft.NumIn()-1 {
			if in.Elem() != argValueType {
				return nil, errors.Unsupported(errors.PhaseHost, "variadic parameter must be ...ArgValue")
			}
			continue
		}
		conv, err := argConverter(in)
		if err != nil {
			return nil, err
		}
		convs[i] = conv
	}

	nout := ft.NumOut()
	if nout > 2 || (nout == 2 && ft.Out(1) != errorType) {
		return nil, errors.Unsupported(errors.PhaseHost, "results must be (), (T), (error) or (T, error)")
	}

	fixed := ft.NumIn()
	if ft.IsVariadic() {
		fixed--
	}

	return func(args []ArgValue) (RetValue, error) {
		if len(args) < fixed || (!ft.IsVariadic() && len(args) != fixed) {
			want := strconv.Itoa(fixed)
			if ft.IsVariadic() {
				want = "at least " + want
			}
			return RetValue{}, errors.InvalidInput(errors.PhaseHost,
				fmt.Sprintf("expected %s arguments, got %d", want, len(args)))
		}
		in := make([]reflect.Value, 0, len(args))
		for i := 0; i < fixed; i++ {
			v, err := convs[i](args[i])
			if err != nil {
				return RetValue{}, errors.Wrap(errors.PhaseHost, errors.KindTypeMismatch, err, "argument "+strconv.Itoa(i))
			}
			in = append(in, v)
		}
		for _, a := range args[fixed:] {
			in = append(in, reflect.ValueOf(a))
		}

		out := rv.Call(in)
		switch {
		case nout == 0:
			return RetValue{}, nil
		case nout == 1 && ft.Out(0) == errorType:
			err, _ := out[0].Interface().(error)
			return RetValue{}, err
		case nout == 2:
			if err, _ := out[1].Interface().(error); err != nil {
				return RetValue{}, err
			}
		}
		return retFromValue(out[0])
	}, nil
}

func argConverter(t reflect.Type) (func(ArgValue) (reflect.Value, error), error) {
	switch t {
	case argValueType:
		return func(a ArgValue) (reflect.Value, error) { return reflect.ValueOf(a), nil }, nil
	case bytesType:
		return func(a ArgValue) (reflect.Value, error) {
			b, err := a.ToBytes()
			return reflect.ValueOf(b), err
		}, nil
	case dataTypeType:
		return func(a ArgValue) (reflect.Value, error) {
			d, err := a.ToType()
			return reflect.ValueOf(d), err
		}, nil
	case contextType:
		return func(a ArgValue) (reflect.Value, error) {
			c, err := a.ToContext()
			return reflect.ValueOf(c), err
		}, nil
	case funcPtrType:
		return func(a ArgValue) (reflect.Value, error) {
			f, err := a.ToFunction()
			return reflect.ValueOf(f), err
		}, nil
	case modPtrType:
		return func(a ArgValue) (reflect.Value, error) {
			m, err := a.ToModule()
			return reflect.ValueOf(m), err
		}, nil
	case arrayPtrType:
		return func(a ArgValue) (reflect.Value, error) {
			arr, err := a.ToNDArray()
			return reflect.ValueOf(arr), err
		}, nil
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(a ArgValue) (reflect.Value, error) {
			n, err := a.ToInt()
			if err != nil && a.Code() == CodeUInt {
				var u uint64
				u, err = a.ToUint()
				n = int64(u)
			}
			v := reflect.New(t).Elem()
			if err == nil && v.OverflowInt(n) {
				err = errors.InvalidInput(errors.PhaseDecode, fmt.Sprintf("%d overflows %s", n, t))
			}
			v.SetInt(n)
			return v, err
		}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(a ArgValue) (reflect.Value, error) {
			u, err := a.ToUint()
			if err != nil && a.Code() == CodeInt {
				var n int64
				n, err = a.ToInt()
				if n < 0 {
					err = errors.InvalidInput(errors.PhaseDecode, fmt.Sprintf("%d is negative", n))
				}
				u = uint64(n)
			}
			v := reflect.New(t).Elem()
			if err == nil && v.OverflowUint(u) {
				err = errors.InvalidInput(errors.PhaseDecode, "value overflows "+t.String())
			}
			v.SetUint(u)
			return v, err
		}, nil
	case reflect.Float32, reflect.Float64:
		return func(a ArgValue) (reflect.Value, error) {
			f, err := a.ToFloat()
			if err != nil && a.Code() == CodeInt {
				var n int64
				n, err = a.ToInt()
				f = float64(n)
			}
			v := reflect.New(t).Elem()
			v.SetFloat(f)
			return v, err
		}, nil
	case reflect.Bool:
		return func(a ArgValue) (reflect.Value, error) {
			b, err := a.ToBool()
			return reflect.ValueOf(b).Convert(t), err
		}, nil
	case reflect.String:
		return func(a ArgValue) (reflect.Value, error) {
			s, err := a.ToString()
			return reflect.ValueOf(s).Convert(t), err
		}, nil
	}
	return nil, errors.Unsupported(errors.PhaseHost, "cannot receive "+t.String()+" from a packed argument")
}

func retFromValue(v reflect.Value) (RetValue, error) {
	switch v.Type() {
	case retValueType:
		return v.Interface().(RetValue), nil
	case argValueType:
		return Ret(v.Interface().(ArgValue)), nil
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Ret(Int(v.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Ret(Uint(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Ret(Float(v.Float())), nil
	case reflect.Bool:
		return Ret(Bool(v.Bool())), nil
	case reflect.String:
		return Ret(String(v.String())), nil
	}
	a, err := ValueOf(v.Interface())
	if err != nil {
		return RetValue{}, err
	}
	return Ret(a), nil
}

// RegisterGoFunc wraps fn with Wrap and registers it under name.
func (c *Client) RegisterGoFunc(name string, fn any, override bool) error {
	h, err := Wrap(fn)
	if err != nil {
		return err
	}
	return c.RegisterFunc(name, h, override)
}

// RegisterHost registers every exported method of h except Namespace. Method
// names are converted to snake case: AddOne becomes "<ns>.add_one".
func (c *Client) RegisterHost(h Host, override bool) error {
	ns := h.Namespace()
	if ns == "" {
		return errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}
	rv := reflect.ValueOf(h)
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		m := rt.Method(i)
		if !m.IsExported() || m.Name == "Namespace" {
			continue
		}
		if err := c.RegisterGoFunc(ns+"."+toSnakeCase(m.Name), rv.Method(i).Interface(), override); err != nil {
			return err
		}
	}
	return nil
}

// toSnakeCase converts PascalCase to snake_case, keeping a run of capitals
// as one word: GetHTTPServer becomes get_http_server and GetHTTPURL becomes
// get_httpurl.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		end := i + 1
		for end < len(runes) && unicode.IsUpper(runes[end]) {
			end++
		}
		// last capital before a lowercase run starts the next word
		if end > i+1 && end < len(runes) && unicode.IsLower(runes[end]) {
			end--
		}
		if i > 0 {
			b.WriteByte('_')
		}
		for j := i; j < end; j++ {
			b.WriteRune(unicode.ToLower(runes[j]))
		}
		i = end - 1
	}
	return b.String()
}
