package core

import "fmt"

// Action is a deferred setup or run step recorded while the network is
// prepared and replayed, in order, when the runner is generated.
// Implementations: RunCodeObject, RunNetwork, SetByArray, SetArrayByArray,
// InsertCode, StartRunFunc, EndRunFunc.
type Action interface {
	// Kind returns a short name used in logs and errors.
	Kind() string
	// Validate checks the payload is well formed.
	Validate() error
	isAction()
}

// RunCodeObject calls the generated run function of a code object.
type RunCodeObject struct {
	CodeObject string
}

// RunNetwork splices a network's already-generated run statements.
type RunNetwork struct {
	Network string
	Lines   []string
}

// SetByArray copies every element of a static array into Array.
type SetByArray struct {
	Array       string
	StaticArray string
}

// SetArrayByArray writes Values[i] into Array[Indices[i]].
type SetArrayByArray struct {
	Array   string
	Indices string
	Values  string
}

// InsertCode inserts raw text verbatim.
type InsertCode struct {
	Code string
}

// StartRunFunc opens a named procedure scope. When IncludeInParent is set a
// call to the procedure is emitted in the enclosing scope first.
type StartRunFunc struct {
	Name            string
	IncludeInParent bool
}

// EndRunFunc closes the current procedure scope.
type EndRunFunc struct {
	Name string
}

func (RunCodeObject) Kind() string   { return "run_code_object" }
func (RunNetwork) Kind() string      { return "run_network" }
func (SetByArray) Kind() string      { return "set_by_array" }
func (SetArrayByArray) Kind() string { return "set_array_by_array" }
func (InsertCode) Kind() string      { return "insert_code" }
func (StartRunFunc) Kind() string    { return "start_run_func" }
func (EndRunFunc) Kind() string      { return "end_run_func" }

func (a RunCodeObject) Validate() error {
	return requireNames(a, a.CodeObject)
}

func (a RunNetwork) Validate() error {
	return requireNames(a, a.Network)
}

func (a SetByArray) Validate() error {
	return requireNames(a, a.Array, a.StaticArray)
}

func (a SetArrayByArray) Validate() error {
	return requireNames(a, a.Array, a.Indices, a.Values)
}

func (InsertCode) Validate() error { return nil }

func (a StartRunFunc) Validate() error {
	return requireNames(a, a.Name)
}

func (a EndRunFunc) Validate() error {
	return requireNames(a, a.Name)
}

func (RunCodeObject) isAction()   {}
func (RunNetwork) isAction()      {}
func (SetByArray) isAction()      {}
func (SetArrayByArray) isAction() {}
func (InsertCode) isAction()      {}
func (StartRunFunc) isAction()    {}
func (EndRunFunc) isAction()      {}

func requireNames(a Action, names ...string) error {
	for i, n := range names {
		if n == "" {
			return &ConstructionError{
				Op:      a.Kind(),
				Message: fmt.Sprintf("argument %d must not be empty", i+1),
			}
		}
	}
	return nil
}
