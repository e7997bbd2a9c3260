// Package network loads YAML network descriptions and replays them onto a
// device.
//
// A description lists the clocks, groups, code objects and deferred actions
// of one network:
//
//	name: net
//	duration: 0.5
//	clocks:
//	  - {name: defaultclock, dt: 0.0001}
//	neurons:
//	  - name: exc
//	    n: 4
//	    variables:
//	      - {name: v, init: {zeros: true}}
//	code_objects:
//	  - name: exc_stateupdater_codeobject
//	    owner: exc
//	    template: stateupdate
//	    fragment: "v = v * 0.9;"
//	    namespace:
//	      - {name: v, ref: exc.v}
//	runners:
//	  - {name: exc_stateupdater, code_object: exc_stateupdater_codeobject}
package network

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Variable kinds.
const (
	KindArray     = "array"
	KindDynamic   = "dynamic"
	KindConstant  = "constant"
	KindAttribute = "attribute"
)

// Description is a decoded network description.
type Description struct {
	Name        string           `yaml:"name"`
	Duration    *float64         `yaml:"duration"`
	Clocks      []ClockDesc      `yaml:"clocks"`
	Neurons     []GroupDesc      `yaml:"neurons"`
	Synapses    []SynapseDesc    `yaml:"synapses"`
	Monitors    []GroupDesc      `yaml:"monitors"`
	CodeObjects []CodeObjectDesc `yaml:"code_objects"`
	Runners     []RunnerDesc     `yaml:"runners"`
	Actions     []ActionDesc     `yaml:"actions"`
}

// ClockDesc describes a clock.
type ClockDesc struct {
	Name string  `yaml:"name"`
	DT   float64 `yaml:"dt"`
}

// GroupDesc describes a neuron group or a monitor.
type GroupDesc struct {
	Name      string         `yaml:"name"`
	N         int            `yaml:"n"`
	Variables []VariableDesc `yaml:"variables"`
}

// SynapseDesc describes a synapse group.
type SynapseDesc struct {
	Name      string         `yaml:"name"`
	Source    string         `yaml:"source"`
	Target    string         `yaml:"target"`
	N         int            `yaml:"n"`
	Variables []VariableDesc `yaml:"variables"`
}

// VariableDesc describes one state variable.
type VariableDesc struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`  // array (default), dynamic, constant, attribute
	DType string `yaml:"dtype"` // default float64

	// Size of an array; defaults to the group's N.
	Size int `yaml:"size"`
	// Dimensions of a dynamic array (default 1) and its current shape.
	Dimensions int `yaml:"dimensions"`
	Rows       int `yaml:"rows"`
	Cols       int `yaml:"cols"`

	// Value of a constant or attribute.
	Value *float64 `yaml:"value"`
	// Object and Attribute name the accessor of an attribute variable.
	Object    string `yaml:"object"`
	Attribute string `yaml:"attribute"`

	Scalar   bool `yaml:"scalar"`
	Constant bool `yaml:"constant"`
	ReadOnly bool `yaml:"read_only"`

	Init *InitDesc `yaml:"init"`
}

// InitDesc selects how an array is initialised. At most one field is set.
type InitDesc struct {
	Zeros  bool      `yaml:"zeros"`
	Arange *int      `yaml:"arange"`
	Values []float64 `yaml:"values"`
	Fill   []float64 `yaml:"fill"`
}

// CodeObjectDesc describes a code object. Model code carries a fragment,
// user code a cpp/h pair.
type CodeObjectDesc struct {
	Name         string        `yaml:"name"`
	Owner        string        `yaml:"owner"`
	Template     string        `yaml:"template"`
	Class        string        `yaml:"class"`
	Fragment     string        `yaml:"fragment"`
	CPP          string        `yaml:"cpp"`
	H            string        `yaml:"h"`
	MainFinalise string        `yaml:"main_finalise"`
	Namespace    []BindingDesc `yaml:"namespace"`
}

// BindingDesc binds a short identifier. Exactly one source is set.
type BindingDesc struct {
	Name string `yaml:"name"`
	// Ref names a group variable as "group.variable".
	Ref string `yaml:"ref"`
	// Clock names a clock attribute as "clock.t" or "clock.dt".
	Clock string `yaml:"clock"`
	// Value binds a named constant.
	Value *float64 `yaml:"value"`
	// Number binds a bare number; Int selects integer formatting.
	Number *float64 `yaml:"number"`
	Int    bool     `yaml:"int"`
	// Variable declares a variable local to the code object.
	Variable *VariableDesc `yaml:"variable"`
}

// RunnerDesc attaches a code object to the network under a runner name.
type RunnerDesc struct {
	Name       string `yaml:"name"`
	CodeObject string `yaml:"code_object"`
}

// ActionDesc is one deferred action. Exactly one field is set.
type ActionDesc struct {
	RunCodeObject   string               `yaml:"run_code_object"`
	RunNetwork      *RunNetworkDesc      `yaml:"run_network"`
	InsertCode      *string              `yaml:"insert_code"`
	StartRunFunc    *StartRunFuncDesc    `yaml:"start_run_func"`
	EndRunFunc      string               `yaml:"end_run_func"`
	SetByArray      *SetByArrayDesc      `yaml:"set_by_array"`
	SetArrayByArray *SetArrayByArrayDesc `yaml:"set_array_by_array"`
}

// RunNetworkDesc splices statements into main.
type RunNetworkDesc struct {
	Network string   `yaml:"network"`
	Lines   []string `yaml:"lines"`
}

// StartRunFuncDesc opens a procedure. IncludeInParent defaults to true.
type StartRunFuncDesc struct {
	Name            string `yaml:"name"`
	IncludeInParent *bool  `yaml:"include_in_parent"`
}

// SetByArrayDesc copies values into a group variable.
type SetByArrayDesc struct {
	Variable string    `yaml:"variable"`
	Values   []float64 `yaml:"values"`
}

// SetArrayByArrayDesc scatters values into a group variable.
type SetArrayByArrayDesc struct {
	Variable string    `yaml:"variable"`
	Indices  []float64 `yaml:"indices"`
	Values   []float64 `yaml:"values"`
}

// ParseError reports an invalid network description.
type ParseError struct {
	File    string
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// Load reads and parses a network description file.
func Load(path string) (*Description, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read network description: %w", err)
	}
	desc, err := Parse(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.File = path
		}
		return nil, err
	}
	return desc, nil
}

// Parse decodes a network description. Unknown fields are rejected.
func Parse(data []byte) (*Description, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var desc Description
	if err := dec.Decode(&desc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Message: "empty network description"}
		}
		return nil, &ParseError{Message: fmt.Sprintf("invalid network description: %v", err)}
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &desc, nil
}

// Validate checks the structural rules that decoding cannot express.
// References between objects are checked when the network is built.
func (d *Description) Validate() error {
	if d.Name == "" {
		return &ParseError{Message: "network name is required"}
	}
	if d.Duration != nil && *d.Duration < 0 {
		return &ParseError{Message: fmt.Sprintf("duration must not be negative, got %g", *d.Duration)}
	}

	seen := make(map[string]string)
	claim := func(kind, name string) error {
		if name == "" {
			return &ParseError{Message: kind + " name is required"}
		}
		if prev, ok := seen[name]; ok {
			return &ParseError{Message: fmt.Sprintf("%s %q clashes with %s of the same name", kind, name, prev)}
		}
		seen[name] = kind
		return nil
	}

	for _, c := range d.Clocks {
		if err := claim("clock", c.Name); err != nil {
			return err
		}
		if c.DT <= 0 {
			return &ParseError{Message: fmt.Sprintf("clock %q needs a positive dt", c.Name)}
		}
	}
	for _, g := range d.Neurons {
		if err := claim("neuron group", g.Name); err != nil {
			return err
		}
		if err := validateVariables(g.Name, g.Variables); err != nil {
			return err
		}
	}
	for _, s := range d.Synapses {
		if err := claim("synapse group", s.Name); err != nil {
			return err
		}
		if s.Source == "" || s.Target == "" {
			return &ParseError{Message: fmt.Sprintf("synapse group %q needs a source and a target", s.Name)}
		}
		if err := validateVariables(s.Name, s.Variables); err != nil {
			return err
		}
	}
	for _, m := range d.Monitors {
		if err := claim("monitor", m.Name); err != nil {
			return err
		}
		if err := validateVariables(m.Name, m.Variables); err != nil {
			return err
		}
	}

	codeObjects := make(map[string]bool)
	for _, co := range d.CodeObjects {
		if co.Name == "" {
			return &ParseError{Message: "code object name is required"}
		}
		if codeObjects[co.Name] {
			return &ParseError{Message: fmt.Sprintf("duplicate code object %q", co.Name)}
		}
		codeObjects[co.Name] = true
		for _, b := range co.Namespace {
			if err := validateBinding(co.Name, b); err != nil {
				return err
			}
		}
	}
	for _, r := range d.Runners {
		if r.Name == "" || r.CodeObject == "" {
			return &ParseError{Message: "runner needs a name and a code object"}
		}
	}
	for i, a := range d.Actions {
		if n := a.count(); n != 1 {
			return &ParseError{Message: fmt.Sprintf("action %d must set exactly one field, found %d", i, n)}
		}
	}
	return nil
}

func validateVariables(owner string, vars []VariableDesc) error {
	names := make(map[string]bool)
	for _, v := range vars {
		if v.Name == "" {
			return &ParseError{Message: fmt.Sprintf("%s: variable name is required", owner)}
		}
		if names[v.Name] {
			return &ParseError{Message: fmt.Sprintf("%s: duplicate variable %q", owner, v.Name)}
		}
		names[v.Name] = true
		if err := validateVariable(owner, v); err != nil {
			return err
		}
	}
	return nil
}

func validateVariable(owner string, v VariableDesc) error {
	fail := func(format string, args ...any) error {
		return &ParseError{Message: fmt.Sprintf("%s.%s: ", owner, v.Name) + fmt.Sprintf(format, args...)}
	}
	switch v.Kind {
	case "", KindArray, KindDynamic:
	case KindConstant, KindAttribute:
		if v.Value == nil {
			return fail("%s variables need a value", v.Kind)
		}
		if v.Init != nil {
			return fail("%s variables cannot be initialised", v.Kind)
		}
		if v.Kind == KindAttribute && (v.Object == "" || v.Attribute == "") {
			return fail("attribute variables need an object and an attribute")
		}
	default:
		return fail("unknown kind %q", v.Kind)
	}
	if v.Kind == KindDynamic && v.Dimensions != 0 && v.Dimensions != 1 && v.Dimensions != 2 {
		return fail("dynamic arrays have 1 or 2 dimensions, got %d", v.Dimensions)
	}
	if v.Init != nil {
		if n := v.Init.count(); n != 1 {
			return fail("init must set exactly one of zeros, arange, values, fill")
		}
	}
	return nil
}

func validateBinding(codeObject string, b BindingDesc) error {
	if b.Name == "" {
		return &ParseError{Message: fmt.Sprintf("code object %q: binding name is required", codeObject)}
	}
	n := 0
	for _, set := range []bool{b.Ref != "", b.Clock != "", b.Value != nil, b.Number != nil, b.Variable != nil} {
		if set {
			n++
		}
	}
	if n != 1 {
		return &ParseError{Message: fmt.Sprintf(
			"code object %q: binding %q must set exactly one of ref, clock, value, number, variable", codeObject, b.Name)}
	}
	if b.Variable != nil {
		v := *b.Variable
		if v.Name == "" {
			v.Name = b.Name
		}
		if v.Init != nil {
			return &ParseError{Message: fmt.Sprintf("code object %q: local variable %q cannot be initialised", codeObject, b.Name)}
		}
		return validateVariable(codeObject, v)
	}
	return nil
}

func (a ActionDesc) count() int {
	n := 0
	for _, set := range []bool{
		a.RunCodeObject != "",
		a.RunNetwork != nil,
		a.InsertCode != nil,
		a.StartRunFunc != nil,
		a.EndRunFunc != "",
		a.SetByArray != nil,
		a.SetArrayByArray != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func (i InitDesc) count() int {
	n := 0
	for _, set := range []bool{i.Zeros, i.Arange != nil, i.Values != nil, i.Fill != nil} {
		if set {
			n++
		}
	}
	return n
}

// splitRef splits "group.variable".
func splitRef(ref string) (string, string, bool) {
	group, name, ok := strings.Cut(ref, ".")
	if !ok || group == "" || name == "" {
		return "", "", false
	}
	return group, name, true
}
