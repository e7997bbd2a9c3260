// Package assembler turns a prepared network into GeNN model descriptors.
// It walks the network's groups in dependency order, separates constants from
// array-backed variables and rewrites each phase's code into the GeNN
// code-generation syntax.
package assembler

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/b2genn/internal/codegen"
	"github.com/leapstack-labs/b2genn/internal/dag"
	"github.com/leapstack-labs/b2genn/pkg/core"
)

// Phase suffixes of the runner objects that make up a model.
const (
	PhaseStateUpdater = "_stateupdater"
	PhaseThresholder  = "_thresholder"
	PhaseResetter     = "_resetter"
	PhasePre          = "_pre"
	PhasePost         = "_post"
)

// ModelSuffix is appended to the network name to form the model name.
const ModelSuffix = "_model"

// neuronExcluded are group variables that GeNN provides itself.
var neuronExcluded = map[string]bool{"_spikespace": true, "t": true, "dt": true}

// synapseExcluded additionally drops the event timestamp.
var synapseExcluded = map[string]bool{"_spikespace": true, "t": true, "dt": true, "lastupdate": true}

// Result holds the descriptors of one network.
type Result struct {
	// ModelName is "<network>_model".
	ModelName string
	// DTDefine is the "#define DT <value>" line, empty when no phase uses dt.
	DTDefine string
	Neurons  []core.NeuronModel
	Synapses []core.SynapseModel
	// Groups lists every group in build order with its connections.
	Groups []Group
}

// Group kinds.
const (
	KindNeuron  = "neuron"
	KindSynapse = "synapse"
)

// Group describes how one group is connected. A synapse group depends on
// the neuron groups it connects.
type Group struct {
	Name string
	Kind string
	// Inputs are the groups this group depends on.
	Inputs []string
	// Outputs are the groups that depend on this group.
	Outputs []string
	// Root is set for groups without inputs.
	Root bool
}

// Assembler builds model descriptors.
type Assembler struct {
	logger *slog.Logger
}

// New creates an assembler. A nil logger discards output.
func New(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Assembler{logger: logger}
}

// Assemble builds the descriptors for the single network in networks.
func (a *Assembler) Assemble(networks []*core.Network) (*Result, error) {
	if len(networks) != 1 {
		return nil, &core.ModelError{
			Subject: "network",
			Message: fmt.Sprintf("GeNN only supports a single network object, found %d", len(networks)),
		}
	}
	net := networks[0]

	graph, err := groupGraph(net)
	if err != nil {
		return nil, err
	}
	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, &core.ModelError{Subject: net.Name, Message: err.Error()}
	}

	res := &Result{ModelName: net.Name + ModelSuffix, Groups: describeGroups(graph, order)}
	for _, node := range order {
		switch g := node.Data.(type) {
		case *core.NeuronGroup:
			model, dtDefine := a.neuronModel(net, g)
			if dtDefine != "" {
				res.DTDefine = dtDefine
			}
			res.Neurons = append(res.Neurons, model)
		case *core.SynapseGroup:
			res.Synapses = append(res.Synapses, a.synapseModel(net, g))
		}
	}

	a.logger.Debug("assembled models",
		"model", res.ModelName,
		"groups", graph.NodeCount(),
		"neuron_models", len(res.Neurons),
		"synapse_models", len(res.Synapses))
	return res, nil
}

// groupGraph links every synapse group to the neuron groups it connects.
func groupGraph(net *core.Network) (*dag.Graph, error) {
	g := dag.NewGraph()
	for _, n := range net.Neurons {
		g.AddNode(n.Name, n)
	}
	for _, s := range net.Synapses {
		if _, exists := g.GetNode(s.Name); exists {
			return nil, &core.ModelError{
				Subject: s.Name,
				Message: fmt.Sprintf("group name is used twice in network %q", net.Name),
			}
		}
		g.AddNode(s.Name, s)
	}
	for _, s := range net.Synapses {
		for _, end := range []string{s.Source, s.Target} {
			if _, ok := net.NeuronGroup(end); !ok {
				return nil, &core.ModelError{
					Subject: s.Name,
					Message: fmt.Sprintf("references group %q which is not part of network %q", end, net.Name),
				}
			}
			if err := g.AddEdge(end, s.Name); err != nil {
				return nil, &core.ModelError{Subject: s.Name, Message: err.Error()}
			}
		}
	}
	return g, nil
}

func describeGroups(g *dag.Graph, order []*dag.Node) []Group {
	roots := make(map[string]bool)
	for _, id := range g.GetRoots() {
		roots[id] = true
	}
	groups := make([]Group, 0, len(order))
	for _, node := range order {
		kind := KindNeuron
		if _, ok := node.Data.(*core.SynapseGroup); ok {
			kind = KindSynapse
		}
		groups = append(groups, Group{
			Name:    node.ID,
			Kind:    kind,
			Inputs:  append([]string{}, g.GetParents(node.ID)...),
			Outputs: append([]string{}, g.GetChildren(node.ID)...),
			Root:    roots[node.ID],
		})
	}
	return groups
}

func (a *Assembler) neuronModel(net *core.Network, g *core.NeuronGroup) (core.NeuronModel, string) {
	m := core.NeuronModel{Name: g.Name, N: g.N}
	for _, b := range g.Variables {
		if neuronExcluded[b.Name] || !core.IsArrayBacked(b.Var) {
			continue
		}
		m.Variables = append(m.Variables, b.Name)
		m.VariableTypes = append(m.VariableTypes, b.Var.Info().DType.CType())
	}

	var dtDefine string
	phases := []struct {
		suffix string
		lines  *[]string
	}{
		{PhaseStateUpdater, &m.Code},
		{PhaseThresholder, &m.ThresholdCode},
		{PhaseResetter, &m.ResetCode},
	}
	for _, phase := range phases {
		runner, ok := net.Runner(g.Name + phase.suffix)
		if !ok || runner.CodeObject == nil {
			continue
		}
		co := runner.CodeObject
		for _, b := range co.Variables {
			if b.Name == "dt" {
				if v, ok := knownValue(b); ok {
					dtDefine = "#define " + codegen.TimestepMacro + " " + core.FormatFloat(v)
				}
				continue
			}
			c, ok := b.Var.(*core.Constant)
			if !ok || m.HasParameter(b.Name) {
				continue
			}
			m.Parameters = append(m.Parameters, b.Name)
			m.ParameterValues = append(m.ParameterValues, core.FormatLiteral(c.Value, c.DType))
		}

		code := codegen.Freeze(co.Text(), co.Variables)
		*phase.lines = append(*phase.lines, codegen.Decorate(code, m.Variables, m.Parameters))
	}

	a.logger.Debug("assembled neuron model",
		"group", g.Name,
		"variables", len(m.Variables),
		"parameters", len(m.Parameters))
	return m, dtDefine
}

func (a *Assembler) synapseModel(net *core.Network, s *core.SynapseGroup) core.SynapseModel {
	src, _ := net.NeuronGroup(s.Source)
	trg, _ := net.NeuronGroup(s.Target)
	m := core.SynapseModel{
		Name:    s.Name,
		Source:  src.Name,
		SourceN: src.N,
		Target:  trg.Name,
		TargetN: trg.N,
		N:       s.N,
	}

	for _, phase := range []struct {
		suffix string
		lines  *[]string
	}{
		{PhasePre, &m.PreCode},
		{PhasePost, &m.PostCode},
	} {
		runner, ok := net.Runner(s.Name + phase.suffix)
		if !ok || runner.CodeObject == nil {
			continue
		}
		co := runner.CodeObject
		text := co.Text()
		for _, b := range co.Variables {
			if synapseExcluded[b.Name] {
				continue
			}
			switch v := b.Var.(type) {
			case *core.Constant:
				if !m.HasParameter(b.Name) {
					m.Parameters = append(m.Parameters, b.Name)
					m.ParameterValues = append(m.ParameterValues, core.FormatLiteral(v.Value, v.DType))
				}
			case *core.ArrayVariable, *core.DynamicArrayVariable:
				if codegen.ContainsWord(text, b.Name) && !m.HasVariable(b.Name) {
					m.Variables = append(m.Variables, b.Name)
					m.VariableTypes = append(m.VariableTypes, v.Info().DType.CType())
				}
			}
		}
		*phase.lines = append(*phase.lines, codegen.Decorate(text, m.Variables, m.Parameters))
	}

	if runner, ok := net.Runner(s.Name + PhaseStateUpdater); ok && runner.CodeObject != nil {
		co := runner.CodeObject
		text := co.Text()
		for _, b := range co.Variables {
			if synapseExcluded[b.Name] {
				continue
			}
			switch v := b.Var.(type) {
			case *core.Constant:
				if !m.HasParameter(b.Name) && !contains(m.PostsynParameters, b.Name) {
					m.PostsynParameters = append(m.PostsynParameters, b.Name)
					m.PostsynParameterValues = append(m.PostsynParameterValues, core.FormatLiteral(v.Value, v.DType))
				}
			case *core.ArrayVariable, *core.DynamicArrayVariable:
				if codegen.ContainsWord(text, b.Name) && !m.HasVariable(b.Name) && !contains(m.PostsynVariables, b.Name) {
					m.PostsynVariables = append(m.PostsynVariables, b.Name)
					m.PostsynVariableTypes = append(m.PostsynVariableTypes, v.Info().DType.CType())
				}
			}
		}
		m.PostsynCode = append(m.PostsynCode, codegen.Decorate(text, m.PostsynVariables, m.PostsynParameters))
	}

	a.logger.Debug("assembled synapse model",
		"group", s.Name,
		"source", s.Source,
		"target", s.Target,
		"variables", len(m.Variables),
		"postsyn_variables", len(m.PostsynVariables))
	return m
}

func knownValue(b core.Binding) (float64, bool) {
	if b.Num != nil {
		return b.Num.Value, true
	}
	if b.Var == nil {
		return 0, false
	}
	return core.KnownValue(b.Var)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
