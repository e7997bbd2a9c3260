package device

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/b2genn/internal/staticdata"
	"github.com/leapstack-labs/b2genn/pkg/core"
)

// Value is a retrieved variable value. Shape has one entry for 1-D data and
// two (rows, cols) for 2-D data.
type Value struct {
	Data  core.Array
	Shape []int
}

// MarkRun records that the project in dir has been run, so results can be
// read back with GetValue.
func (d *Device) MarkRun(dir string) {
	d.projectDir = dir
	d.hasBeenRun = true
}

// GetValue returns the value of v. Constant, read-only variables with
// explicit or arange initial values are answered from build-time data. Any
// other variable can only be read from the results directory after a run.
// The second argument is ignored: results are keyed by the container name.
func (d *Device) GetValue(v core.Variable, _ bool) (*Value, error) {
	name, err := d.arrays.Resolve(v, false)
	if err != nil {
		return nil, err
	}
	info := v.Info()
	size := variableSize(v)

	if info.Constant && info.ReadOnly {
		if arr, ok := d.static.Lookup(name); ok {
			return &Value{Data: arr, Shape: []int{arr.Len()}}, nil
		}
		if start, ok := d.arrays.ArangeStart(v); ok {
			values := make([]float64, size)
			for i := range values {
				values[i] = float64(start + i)
			}
			return &Value{Data: core.Array{DType: info.DType, Values: values}, Shape: []int{size}}, nil
		}
	}

	if !d.hasBeenRun {
		return nil, fmt.Errorf("cannot retrieve the values of %s.%s before the simulation has been run: %w",
			info.Owner, info.Name, core.ErrNotImplemented)
	}

	path := filepath.Join(d.projectDir, ResultsDir, name)
	raw, err := os.ReadFile(path) //nolint:gosec // results are read from the project directory
	if err != nil {
		return nil, fmt.Errorf("failed to read results for %s: %w", name, err)
	}
	data, err := staticdata.Decode(raw, info.DType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode results for %s: %w", name, err)
	}

	dyn, ok := v.(*core.DynamicArrayVariable)
	if !ok || dyn.Dimensions != 2 {
		return &Value{Data: data, Shape: []int{data.Len()}}, nil
	}
	shape, err := reshape(dyn.Rows, dyn.Cols, data.Len())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &Value{Data: data, Shape: shape}, nil
}

// reshape infers the shape of a 2-D result. 2-D dynamic arrays only grow
// along one axis, so a zero extent is inferred from the data length.
func reshape(rows, cols, n int) ([]int, error) {
	switch {
	case rows*cols == n && (rows != 0 || cols != 0):
		return []int{rows, cols}, nil
	case rows == 0 && cols > 0 && n%cols == 0:
		return []int{n / cols, cols}, nil
	case cols == 0 && rows > 0 && n%rows == 0:
		return []int{rows, n / rows}, nil
	case rows == 0 && cols == 0:
		return nil, fmt.Errorf("cannot infer the shape of a 0x0 array with %d elements on disk", n)
	default:
		return nil, fmt.Errorf("do not know how to deal with a 2d array of size (%d, %d), the array on disk has length %d", rows, cols, n)
	}
}

// GetSubexpression evaluates a subexpression for an index array. It is not
// available for generated projects.
func (d *Device) GetSubexpression(variable string) error {
	return fmt.Errorf("cannot evaluate subexpression %s in standalone scripts: %w", variable, core.ErrNotImplemented)
}

// GetWithExpression reads values selected by a string expression. It is not
// available for generated projects.
func (d *Device) GetWithExpression(variable, expr string) error {
	return fmt.Errorf("cannot retrieve the values of %s with string expression %q in standalone scripts: %w",
		variable, expr, core.ErrNotImplemented)
}
