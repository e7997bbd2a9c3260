package starlark

import (
	"fmt"

	"github.com/leapstack-labs/b2genn/internal/device"
	"github.com/leapstack-labs/b2genn/internal/network"
	"github.com/leapstack-labs/b2genn/pkg/core"
	"go.starlark.net/starlark"
)

// builtins binds the setup functions to one device and model.
type builtins struct {
	dev   *device.Device
	model *network.Model
}

// Predeclared returns the globals available to setup scripts:
// insert_code, start_run_func, end_run_func, run_code_object, fill,
// set_values, run and network.
func Predeclared(dev *device.Device, model *network.Model) starlark.StringDict {
	b := &builtins{dev: dev, model: model}
	globals := starlark.StringDict{
		"insert_code":     starlark.NewBuiltin("insert_code", b.insertCode),
		"start_run_func":  starlark.NewBuiltin("start_run_func", b.startRunFunc),
		"end_run_func":    starlark.NewBuiltin("end_run_func", b.endRunFunc),
		"run_code_object": starlark.NewBuiltin("run_code_object", b.runCodeObject),
		"fill":            starlark.NewBuiltin("fill", b.fill),
		"set_values":      starlark.NewBuiltin("set_values", b.setValues),
		"run":             starlark.NewBuiltin("run", b.run),
	}
	if info := NetworkInfoFromModel(model); info != nil {
		globals["network"] = info.ToStarlark()
	}
	return globals
}

func (b *builtins) insertCode(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var code string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "code", &code); err != nil {
		return nil, err
	}
	return starlark.None, b.dev.InsertCode(code)
}

func (b *builtins) startRunFunc(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	include := true
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "include_in_parent?", &include); err != nil {
		return nil, err
	}
	return starlark.None, b.dev.StartRunFunc(name, include)
}

func (b *builtins) endRunFunc(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name); err != nil {
		return nil, err
	}
	return starlark.None, b.dev.EndRunFunc(name)
}

func (b *builtins) runCodeObject(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name); err != nil {
		return nil, err
	}
	if _, ok := b.dev.CodeObject(name); !ok {
		return nil, fmt.Errorf("unknown code object %q", name)
	}
	return starlark.None, b.dev.RunCodeObject(name)
}

func (b *builtins) fill(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var group, variable string
	var values starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "group", &group, "variable", &variable, "values", &values); err != nil {
		return nil, err
	}
	v, err := b.variable(group, variable)
	if err != nil {
		return nil, err
	}
	floats, err := ToFloats(values)
	if err != nil {
		return nil, fmt.Errorf("values: %w", err)
	}
	return starlark.None, b.dev.FillWithArray(v, core.Array{DType: v.Info().DType, Values: floats})
}

func (b *builtins) setValues(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var group, variable string
	var indices, values starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"group", &group, "variable", &variable, "indices", &indices, "values", &values); err != nil {
		return nil, err
	}
	v, err := b.variable(group, variable)
	if err != nil {
		return nil, err
	}
	idx, err := ToFloats(indices)
	if err != nil {
		return nil, fmt.Errorf("indices: %w", err)
	}
	floats, err := ToFloats(values)
	if err != nil {
		return nil, fmt.Errorf("values: %w", err)
	}
	return starlark.None, b.dev.SetArrayByArray(v,
		core.Array{DType: core.Int32, Values: idx},
		core.Array{DType: v.Info().DType, Values: floats})
}

func (b *builtins) run(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var duration starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "duration", &duration); err != nil {
		return nil, err
	}
	seconds, ok := starlark.AsFloat(duration)
	if !ok {
		return nil, fmt.Errorf("duration must be a number, got %s", duration.Type())
	}
	var net *core.Network
	if b.model != nil {
		net = b.model.Network
	}
	return starlark.None, b.dev.NetworkRun(net, seconds)
}

func (b *builtins) variable(group, name string) (core.Variable, error) {
	if b.model == nil {
		return nil, fmt.Errorf("no network has been prepared")
	}
	v, ok := b.model.Variable(group, name)
	if !ok {
		return nil, fmt.Errorf("unknown variable %s.%s", group, name)
	}
	return v, nil
}
