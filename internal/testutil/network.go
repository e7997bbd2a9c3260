package testutil

import (
	"github.com/leapstack-labs/b2genn/pkg/core"
)

// Fixture is a small two-population network with one synapse group.
//
//	exc (N=4) ---syn (N=8)---> inh (N=2)
//
// exc carries state updater, thresholder and resetter phases; syn carries a
// pre phase and a post-synaptic state updater; monitor is a user code object.
type Fixture struct {
	Network *core.Network
	Clock   core.Clock

	ExcV    *core.ArrayVariable
	ExcGE   *core.ArrayVariable
	InhV    *core.ArrayVariable
	SynW    *core.DynamicArrayVariable
	SynLast *core.DynamicArrayVariable
	SynPre  *core.DynamicArrayVariable
	Spikes  *core.DynamicArrayVariable

	Tau   *core.Constant
	VRest *core.Constant
	DT    *core.AttributeVariable

	CodeObjects []*core.CodeObject
	Monitor     *core.CodeObject
}

// Array returns a fixed-size float64 array variable.
func Array(owner, name string, size int) *core.ArrayVariable {
	return &core.ArrayVariable{
		VarInfo: core.VarInfo{Name: name, Owner: owner, DType: core.Float64},
		Size:    size,
	}
}

// Dynamic returns a float64 dynamic array variable.
func Dynamic(owner, name string, dims int) *core.DynamicArrayVariable {
	return &core.DynamicArrayVariable{
		VarInfo:    core.VarInfo{Name: name, Owner: owner, DType: core.Float64},
		Dimensions: dims,
	}
}

// Const returns a scalar, read-only float64 constant.
func Const(name string, value float64) *core.Constant {
	return &core.Constant{
		VarInfo: core.VarInfo{Name: name, DType: core.Float64, Scalar: true, Constant: true, ReadOnly: true},
		Value:   value,
	}
}

// NewFixture builds a fresh fixture. Every call returns new variables.
func NewFixture() *Fixture {
	f := &Fixture{
		Clock:   core.Clock{Name: "defaultclock", DT: 0.0001},
		ExcV:    Array("exc", "v", 4),
		ExcGE:   Array("exc", "ge", 4),
		InhV:    Array("inh", "v", 2),
		SynW:    Dynamic("syn", "w", 1),
		SynLast: Dynamic("syn", "lastupdate", 1),
		SynPre:  Dynamic("syn", "_synaptic_pre", 1),
		Spikes:  Dynamic("monitor", "i", 1),
		Tau:     Const("tau", 0.01),
		VRest:   Const("v_rest", -0.06),
	}
	f.SynPre.DType = core.Int32
	f.Spikes.DType = core.Int32
	f.SynW.Rows = 8
	f.DT = &core.AttributeVariable{
		VarInfo:   core.VarInfo{Name: "dt", DType: core.Float64, Scalar: true, Constant: true, ReadOnly: true},
		Object:    f.Clock.Name,
		Attribute: "dt_",
		Value:     f.Clock.DT,
	}
	spikespace := Array("exc", "_spikespace", 5)
	spikespace.DType = core.Int32
	t := &core.AttributeVariable{
		VarInfo:   core.VarInfo{Name: "t", DType: core.Float64, Scalar: true},
		Object:    f.Clock.Name,
		Attribute: "t_",
	}

	exc := &core.NeuronGroup{
		Name: "exc",
		N:    4,
		Variables: core.Namespace{
			{Name: "v", Var: f.ExcV},
			{Name: "ge", Var: f.ExcGE},
			{Name: "_spikespace", Var: spikespace},
			{Name: "t", Var: t},
			{Name: "dt", Var: f.DT},
			{Name: "tau", Var: f.Tau},
		},
	}
	inh := &core.NeuronGroup{
		Name:      "inh",
		N:         2,
		Variables: core.Namespace{{Name: "v", Var: f.InhV}},
	}
	syn := &core.SynapseGroup{
		Name:   "syn",
		Source: "exc",
		Target: "inh",
		N:      8,
		Variables: core.Namespace{
			{Name: "w", Var: f.SynW},
			{Name: "lastupdate", Var: f.SynLast},
			{Name: "_synaptic_pre", Var: f.SynPre},
		},
	}

	stateupdater := &core.CodeObject{
		Name:     "exc_stateupdater_codeobject",
		Owner:    "exc",
		Template: "stateupdate",
		Kind:     core.CodeKindModel,
		Fragment: "v = v_rest + (v - v_rest) * exp(-dt/tau) + ge;",
		Variables: core.Namespace{
			{Name: "v", Var: f.ExcV},
			{Name: "ge", Var: f.ExcGE},
			{Name: "v_rest", Var: f.VRest},
			{Name: "tau", Var: f.Tau},
			{Name: "dt", Var: f.DT},
		},
	}
	thresholder := &core.CodeObject{
		Name:     "exc_thresholder_codeobject",
		Owner:    "exc",
		Template: "threshold",
		Kind:     core.CodeKindModel,
		Fragment: "v > -0.05",
		Variables: core.Namespace{
			{Name: "v", Var: f.ExcV},
			{Name: "_spikespace", Var: spikespace},
		},
	}
	resetter := &core.CodeObject{
		Name:     "exc_resetter_codeobject",
		Owner:    "exc",
		Template: "reset",
		Kind:     core.CodeKindModel,
		Fragment: "v = v_rest;",
		Variables: core.Namespace{
			{Name: "v", Var: f.ExcV},
			{Name: "v_rest", Var: f.VRest},
		},
	}
	pre := &core.CodeObject{
		Name:     "syn_pre_codeobject",
		Owner:    "syn",
		Template: "synapses",
		Kind:     core.CodeKindModel,
		Fragment: "addtoinSyn = w;\nlastupdate = t;",
		Variables: core.Namespace{
			{Name: "w", Var: f.SynW},
			{Name: "lastupdate", Var: f.SynLast},
			{Name: "_synaptic_pre", Var: f.SynPre},
			{Name: "t", Var: t},
			{Name: "tau", Var: f.Tau},
		},
	}
	post := &core.CodeObject{
		Name:     "syn_stateupdater_codeobject",
		Owner:    "syn",
		Template: "stateupdate",
		Kind:     core.CodeKindModel,
		Fragment: "inSyn *= exp(-dt/tau_post);\nge_post = inSyn;",
		Variables: core.Namespace{
			{Name: "inSyn", Var: Array("syn", "inSyn", 2)},
			{Name: "ge_post", Var: f.InhV},
			{Name: "tau_post", Var: Const("tau_post", 0.005)},
			{Name: "tau", Var: f.Tau},
			{Name: "dt", Var: f.DT},
		},
	}
	f.Monitor = &core.CodeObject{
		Name:     "monitor_codeobject",
		Owner:    "monitor",
		Template: "spikemonitor",
		Kind:     core.CodeKindUser,
		Source: &core.SourcePair{
			CPP: "void _run_monitor_codeobject() {\n%CONSTANTS%\n}\n",
			H:   "void _run_monitor_codeobject();\n",
		},
		MainFinalise: "_debugmsg_monitor_codeobject();",
		Variables: core.Namespace{
			{Name: "i", Var: f.Spikes},
			{Name: "v", Var: f.ExcV},
			{Name: "_clock_t", Var: t},
			{Name: "_source_v", Var: f.ExcV},
		},
	}

	f.CodeObjects = []*core.CodeObject{stateupdater, thresholder, resetter, pre, post, f.Monitor}
	f.Network = &core.Network{
		Name:     "net",
		Neurons:  []*core.NeuronGroup{exc, inh},
		Synapses: []*core.SynapseGroup{syn},
		Runners: []*core.Runner{
			{Name: "exc_stateupdater", CodeObject: stateupdater},
			{Name: "exc_thresholder", CodeObject: thresholder},
			{Name: "exc_resetter", CodeObject: resetter},
			{Name: "syn_pre", CodeObject: pre},
			{Name: "syn_stateupdater", CodeObject: post},
			{Name: "monitor", CodeObject: f.Monitor},
		},
	}
	return f
}
