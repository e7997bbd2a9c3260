package core

// NeuronModel describes one neuron population for the GeNN model definition.
type NeuronModel struct {
	Name string
	N    int
	// Variables and VariableTypes are parallel lists.
	Variables     []string
	VariableTypes []string
	// Parameters and ParameterValues are parallel lists.
	Parameters      []string
	ParameterValues []string
	// Code fragments, decorated and escaped for a C string literal.
	Code          []string
	ThresholdCode []string
	ResetCode     []string
}

// SynapseModel describes one synapse population for the GeNN model definition.
type SynapseModel struct {
	Name    string
	Source  string
	SourceN int
	Target  string
	TargetN int
	N       int

	Variables       []string
	VariableTypes   []string
	Parameters      []string
	ParameterValues []string
	PreCode         []string
	PostCode        []string

	PostsynVariables       []string
	PostsynVariableTypes   []string
	PostsynParameters      []string
	PostsynParameterValues []string
	PostsynCode            []string
}

// HasVariable reports whether name is already in the primary variable list.
func (m *SynapseModel) HasVariable(name string) bool {
	return contains(m.Variables, name)
}

// HasParameter reports whether name is already in the primary parameter list.
func (m *SynapseModel) HasParameter(name string) bool {
	return contains(m.Parameters, name)
}

// HasParameter reports whether name is already in the parameter list.
func (m *NeuronModel) HasParameter(name string) bool {
	return contains(m.Parameters, name)
}

// StaticArraySpec is one entry of the static array manifest.
type StaticArraySpec struct {
	Name  string
	CType string
	Size  int
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
