package templates

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/b2genn/internal/mainqueue"
	"github.com/leapstack-labs/b2genn/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	return r
}

func TestObjects(t *testing.T) {
	r := newRenderer(t)
	pair, err := r.Objects(ObjectsData{
		NetworkName:   "net",
		Arrays:        []ArraySpec{{Name: "_array_v_exc", CType: "double", Size: 4}},
		DynamicArrays: []ArraySpec{{Name: "_dynamic_array_w_syn", CType: "double"}},
		ZeroArrays:    []ArraySpec{{Name: "_array_v_exc", Size: 4}},
		ArangeArrays:  []ArraySpec{{Name: "_array_i_exc", Size: 4, Start: 2}},
		StaticArrays:  []core.StaticArraySpec{{Name: "_static_array_x", CType: "int32_t", Size: 3}},
		Clocks:        []core.Clock{{Name: "defaultclock", DT: 0.0001}},
	})
	require.NoError(t, err)

	assert.Contains(t, pair.CPP, "double *_array_v_exc;")
	assert.Contains(t, pair.CPP, "const int _num__array_v_exc = 4;")
	assert.Contains(t, pair.CPP, "std::vector<double> _dynamic_array_w_syn;")
	assert.Contains(t, pair.CPP, "for(int i=0; i<4; i++) _array_v_exc[i] = 0;")
	assert.Contains(t, pair.CPP, "for(int i=0; i<4; i++) _array_i_exc[i] = 2 + i;")
	assert.Contains(t, pair.CPP, `"static_arrays/_static_array_x"`)
	assert.Contains(t, pair.CPP, "Clock defaultclock(0.0001);")
	assert.Contains(t, pair.CPP, `"results/_array_v_exc"`)

	assert.Contains(t, pair.H, "extern double *_array_v_exc;")
	assert.Contains(t, pair.H, "extern const int _num__static_array_x;")
	assert.Contains(t, pair.H, "extern Clock defaultclock;")
}

func TestModel(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Model(ModelData{
		ModelName: "net_model",
		DTDefine:  "#define DT 0.0001",
		Neurons: []core.NeuronModel{{
			Name:            "exc",
			N:               4,
			Variables:       []string{"v"},
			VariableTypes:   []string{"double"},
			Parameters:      []string{"tau"},
			ParameterValues: []string{"0.01"},
			Code:            []string{"$(v) = 0.0;"},
			ThresholdCode:   []string{"$(v) > 1.0"},
		}},
		Synapses: []core.SynapseModel{{
			Name: "syn", Source: "exc", Target: "exc",
			Variables: []string{"w"}, VariableTypes: []string{"float"},
			PreCode: []string{"addtoinSyn = $(w);"},
		}},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "// GeNN model definition for net_model\n#define DT 0.0001\n"))
	assert.Contains(t, out, `exc_model.varNames.push_back(tS("v"));`)
	assert.Contains(t, out, `exc_model.varTypes.push_back(tS("double"));`)
	assert.Contains(t, out, `exc_model.pNames.push_back(tS("tau"));`)
	assert.Contains(t, out, `exc_model.simCode = tS("$(v) = 0.0;");`)
	assert.Contains(t, out, `exc_model.thresholdConditionCode = tS("$(v) > 1.0");`)
	assert.Contains(t, out, `model.addNeuronPopulation("exc", 4, excNEURON, exc_p, exc_ini);`)
	assert.Contains(t, out, `syn_weightupdate.varTypes.push_back(tS("float"));`)
	assert.Contains(t, out, `"exc", "exc", syn_ini, syn_p, syn_postsyn_ini, syn_postsynp);`)
	assert.Contains(t, out, `model.setName("net_model");`)
}

func TestModel_DefaultTimestep(t *testing.T) {
	out, err := newRenderer(t).Model(ModelData{ModelName: "m"})
	require.NoError(t, err)
	assert.Contains(t, out, "#define DT 0.0001\n")
}

func TestRunner(t *testing.T) {
	pair, err := newRenderer(t).Runner(RunnerData{
		ModelName:   "net_model",
		MainLines:   []string{"step();", "_run_monitor();"},
		Procedures:  []mainqueue.Procedure{{Name: "step", Lines: []string{"_run_a();"}}},
		HeaderFiles: []string{"objects.h"},
		SourceFiles: []string{"objects.cpp", "code_objects/monitor.cpp"},
	})
	require.NoError(t, err)

	assert.Contains(t, pair.CPP, `#include "net_model.cc"`)
	assert.Contains(t, pair.CPP, `#include "code_objects/monitor.cpp"`)
	assert.Contains(t, pair.CPP, "void step()\n{\n\t_run_a();\n}")
	assert.Contains(t, pair.CPP, "\tstep();\n\t_run_monitor();\n")
	assert.Contains(t, pair.H, "void step();")
	assert.Contains(t, pair.H, "#define NET_MODEL_RUNNER")
}

func TestEngineAndMakefile(t *testing.T) {
	r := newRenderer(t)
	pair, err := r.Engine(EngineData{
		ModelName: "net_model",
		Neurons:   []core.NeuronModel{{Name: "exc"}},
	})
	require.NoError(t, err)
	assert.Contains(t, pair.CPP, "pullexcStateFromDevice();")
	assert.Contains(t, pair.H, "class engine")

	mk, err := r.Makefile(MakefileData{ModelName: "net_model", RootDir: "/tmp/out"})
	require.NoError(t, err)
	assert.Contains(t, mk, "ROOTDIR := /tmp/out")
	assert.Contains(t, mk, "SOURCES := runner.cu")
}

func TestLibraryFiles(t *testing.T) {
	files, err := LibraryFiles()
	require.NoError(t, err)

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
		assert.NotEmpty(t, f.Content, f.Path)
	}
	assert.Contains(t, paths, "brianlib/clocks.h")
	assert.Contains(t, paths, "brianlib/common_math.cpp")
	assert.Contains(t, paths, "b2glib/convert_synapses.cc")
	assert.Contains(t, paths, "b2glib/convert_synapses.h")
	assert.True(t, strings.HasPrefix(paths[0], "brianlib/"))
}
