package assembler

import (
	"testing"

	"github.com/leapstack-labs/b2genn/internal/testutil"
	"github.com/leapstack-labs/b2genn/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(t *testing.T, nets ...*core.Network) *Result {
	t.Helper()
	res, err := New(testutil.NewTestLogger(t)).Assemble(nets)
	require.NoError(t, err)
	return res
}

func TestAssemble_NeuronModel(t *testing.T) {
	f := testutil.NewFixture()
	res := assemble(t, f.Network)

	assert.Equal(t, "net_model", res.ModelName)
	assert.Equal(t, "#define DT 0.0001", res.DTDefine)
	require.Len(t, res.Neurons, 2)

	exc := res.Neurons[0]
	assert.Equal(t, "exc", exc.Name)
	assert.Equal(t, 4, exc.N)
	assert.Equal(t, []string{"v", "ge"}, exc.Variables)
	assert.Equal(t, []string{"double", "double"}, exc.VariableTypes)
	assert.Equal(t, []string{"v_rest", "tau"}, exc.Parameters)
	assert.Equal(t, []string{"-0.06", "0.01"}, exc.ParameterValues)
	assert.Equal(t, []string{"$(v) = (-0.06) + ($(v) - (-0.06)) * exp(-DT/0.01) + $(ge);"}, exc.Code)
	assert.Equal(t, []string{"$(v) > -0.05"}, exc.ThresholdCode)
	assert.Equal(t, []string{"$(v) = (-0.06);"}, exc.ResetCode)

	inh := res.Neurons[1]
	assert.Equal(t, "inh", inh.Name)
	assert.Equal(t, []string{"v"}, inh.Variables)
	assert.Empty(t, inh.Parameters)
	assert.Empty(t, inh.Code)
}

func TestAssemble_SynapseModel(t *testing.T) {
	f := testutil.NewFixture()
	res := assemble(t, f.Network)

	require.Len(t, res.Synapses, 1)
	syn := res.Synapses[0]
	assert.Equal(t, "syn", syn.Name)
	assert.Equal(t, "exc", syn.Source)
	assert.Equal(t, 4, syn.SourceN)
	assert.Equal(t, "inh", syn.Target)
	assert.Equal(t, 2, syn.TargetN)
	assert.Equal(t, 8, syn.N)

	// lastupdate and t are excluded, _synaptic_pre is not referenced by the code
	assert.Equal(t, []string{"w"}, syn.Variables)
	assert.Equal(t, []string{"double"}, syn.VariableTypes)
	assert.Equal(t, []string{"tau"}, syn.Parameters)
	assert.Equal(t, []string{"0.01"}, syn.ParameterValues)
	assert.Equal(t, []string{`addtoinSyn = $(w);\n\` + "\n" + `lastupdate = t;`}, syn.PreCode)
	assert.Empty(t, syn.PostCode)

	assert.Equal(t, []string{"inSyn", "ge_post"}, syn.PostsynVariables)
	assert.Equal(t, []string{"double", "double"}, syn.PostsynVariableTypes)
	// tau is already a primary parameter
	assert.Equal(t, []string{"tau_post"}, syn.PostsynParameters)
	assert.Equal(t, []string{"0.005"}, syn.PostsynParameterValues)
	assert.Equal(t,
		[]string{`$(inSyn) *= exp(-DT/$(tau_post));\n\` + "\n" + `$(ge_post) = $(inSyn);`},
		syn.PostsynCode)
}

func TestAssemble_SynapsesFollowTheirGroups(t *testing.T) {
	f := testutil.NewFixture()
	// declare the target after the synapse group's source
	f.Network.Neurons = []*core.NeuronGroup{f.Network.Neurons[1], f.Network.Neurons[0]}
	res := assemble(t, f.Network)

	require.Len(t, res.Neurons, 2)
	assert.Equal(t, "inh", res.Neurons[0].Name)
	assert.Equal(t, "exc", res.Neurons[1].Name)
	require.Len(t, res.Synapses, 1)
}

func TestAssemble_Groups(t *testing.T) {
	f := testutil.NewFixture()
	res := assemble(t, f.Network)

	assert.Equal(t, []Group{
		{Name: "exc", Kind: KindNeuron, Inputs: []string{}, Outputs: []string{"syn"}, Root: true},
		{Name: "inh", Kind: KindNeuron, Inputs: []string{}, Outputs: []string{"syn"}, Root: true},
		{Name: "syn", Kind: KindSynapse, Inputs: []string{"exc", "inh"}, Outputs: []string{}},
	}, res.Groups)
}

func TestAssemble_Errors(t *testing.T) {
	tests := []struct {
		name    string
		nets    func() []*core.Network
		subject string
		msg     string
	}{
		{
			name:    "no network",
			nets:    func() []*core.Network { return nil },
			subject: "network",
			msg:     "found 0",
		},
		{
			name: "two networks",
			nets: func() []*core.Network {
				return []*core.Network{testutil.NewFixture().Network, testutil.NewFixture().Network}
			},
			subject: "network",
			msg:     "found 2",
		},
		{
			name: "unknown group",
			nets: func() []*core.Network {
				net := testutil.NewFixture().Network
				net.Synapses[0].Target = "missing"
				return []*core.Network{net}
			},
			subject: "syn",
			msg:     `"missing"`,
		},
		{
			name: "synapse named like a neuron group",
			nets: func() []*core.Network {
				net := testutil.NewFixture().Network
				net.Synapses[0].Name = "inh"
				return []*core.Network{net}
			},
			subject: "inh",
			msg:     "used twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil).Assemble(tt.nets())
			require.Error(t, err)
			var merr *core.ModelError
			require.ErrorAs(t, err, &merr)
			assert.Equal(t, tt.subject, merr.Subject)
			assert.Contains(t, merr.Message, tt.msg)
		})
	}
}

func TestAssemble_FirstParameterWins(t *testing.T) {
	f := testutil.NewFixture()
	runner, ok := f.Network.Runner("exc_resetter")
	require.True(t, ok)
	// same name, different value: the state updater's binding is kept
	runner.CodeObject.Variables = append(runner.CodeObject.Variables,
		core.Binding{Name: "tau", Var: testutil.Const("tau", 0.5)})

	res := assemble(t, f.Network)
	exc := res.Neurons[0]
	assert.Equal(t, []string{"v_rest", "tau"}, exc.Parameters)
	assert.Equal(t, []string{"-0.06", "0.01"}, exc.ParameterValues)
}
