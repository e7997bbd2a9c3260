package core

// CodeKind distinguishes the two classes of generated code objects.
type CodeKind int

const (
	// CodeKindModel code is a fragment that becomes part of a GeNN model
	// description (state update, threshold, reset, synaptic events).
	CodeKindModel CodeKind = iota
	// CodeKindUser code is a standalone .cpp/.h pair run from the runner.
	CodeKindUser
)

// String returns "model" or "user".
func (k CodeKind) String() string {
	if k == CodeKindModel {
		return "model"
	}
	return "user"
}

// modelTemplates are the template names whose code objects are model fragments.
var modelTemplates = map[string]bool{
	"stateupdate": true,
	"threshold":   true,
	"reset":       true,
	"synapses":    true,
}

// KindForTemplate returns the code kind used for a template name.
func KindForTemplate(template string) CodeKind {
	if modelTemplates[template] {
		return CodeKindModel
	}
	return CodeKindUser
}

// SourcePair is a paired definition/declaration result of one template.
type SourcePair struct {
	CPP string
	H   string
}

// CodeObject is a compiled per-phase piece of code produced by the front-end.
type CodeObject struct {
	Name     string
	Owner    string
	Template string
	Kind     CodeKind
	// Fragment is the code text of a model code object.
	Fragment string
	// Source holds the rendered files of a user code object.
	Source *SourcePair
	// MainFinalise is an optional statement appended to the end of main.
	MainFinalise string
	// Variables maps short identifiers used in the code to variables.
	Variables Namespace
}

// Text returns the code text searched when deciding which variables a phase uses.
func (c *CodeObject) Text() string {
	if c.Source != nil {
		return c.Source.CPP
	}
	return c.Fragment
}

// NeuronGroup is a homogeneous population of units.
type NeuronGroup struct {
	Name string
	N    int
	// Variables is the group's full ordered namespace.
	Variables Namespace
}

// SynapseGroup connects a source to a target neuron group.
type SynapseGroup struct {
	Name   string
	Source string
	Target string
	N      int
	// Variables is the group's full ordered namespace.
	Variables Namespace
}

// Runner is a network object that executes one code object
// (e.g. "neurongroup_stateupdater", "synapses_pre").
type Runner struct {
	Name       string
	CodeObject *CodeObject
}

// Network is a top-level simulation network.
type Network struct {
	Name     string
	Neurons  []*NeuronGroup
	Synapses []*SynapseGroup
	Runners  []*Runner
}

// Runner returns the runner with the given name.
func (n *Network) Runner(name string) (*Runner, bool) {
	for _, r := range n.Runners {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// NeuronGroup returns the neuron group with the given name.
func (n *Network) NeuronGroup(name string) (*NeuronGroup, bool) {
	for _, g := range n.Neurons {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// Clock is a simulation clock with a fixed timestep.
type Clock struct {
	Name string
	DT   float64
}

// Array is a typed numeric buffer.
type Array struct {
	DType  DType
	Values []float64
}

// Len returns the number of elements.
func (a Array) Len() int {
	return len(a.Values)
}

// Clone returns an independent copy of a.
func (a Array) Clone() Array {
	values := make([]float64, len(a.Values))
	copy(values, a.Values)
	return Array{DType: a.DType, Values: values}
}

// As returns an independent copy of a with every value cast to d.
func (a Array) As(d DType) Array {
	values := make([]float64, len(a.Values))
	for i, v := range a.Values {
		values[i] = d.Cast(v)
	}
	return Array{DType: d, Values: values}
}
