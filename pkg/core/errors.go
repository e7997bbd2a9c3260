package core

import (
	"errors"
	"fmt"
)

// ErrNotImplemented is returned for operations the generated project cannot
// serve, such as reading live variable values before a run.
var ErrNotImplemented = errors.New("not implemented for this execution mode")

// ConstructionError reports a malformed action sequence.
type ConstructionError struct {
	Op      string
	Message string
}

func (e *ConstructionError) Error() string {
	if e.Op == "" {
		return "construction error: " + e.Message
	}
	return fmt.Sprintf("construction error in %s: %s", e.Op, e.Message)
}

// ModelError reports an invalid network model.
type ModelError struct {
	// Subject names the offending network, group or object.
	Subject string
	Message string
}

func (e *ModelError) Error() string {
	if e.Subject == "" {
		return "model error: " + e.Message
	}
	return fmt.Sprintf("model error: %s: %s", e.Subject, e.Message)
}

// UnsupportedVariableError is returned when no name can be derived for a
// variable kind (e.g. attribute variables or constants).
type UnsupportedVariableError struct {
	Variable Variable
}

func (e *UnsupportedVariableError) Error() string {
	if e.Variable == nil {
		return "do not have a name for a nil variable"
	}
	info := e.Variable.Info()
	return fmt.Sprintf("do not have a name for variable %s.%s of type %T", info.Owner, info.Name, e.Variable)
}

// DimensionError is returned for dynamic arrays that are neither 1-D nor 2-D.
type DimensionError struct {
	Owner      string
	Name       string
	Dimensions int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("did not expect a dynamic array with %d dimensions (%s.%s)", e.Dimensions, e.Owner, e.Name)
}
