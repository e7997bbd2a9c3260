package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/b2genn/internal/cli/config"
	"github.com/leapstack-labs/b2genn/internal/cli/output"
	clitestutil "github.com/leapstack-labs/b2genn/internal/cli/testutil"
	"github.com/leapstack-labs/b2genn/internal/device"
	"github.com/leapstack-labs/b2genn/internal/state"
	"github.com/leapstack-labs/b2genn/internal/staticdata"
	"github.com/leapstack-labs/b2genn/internal/testutil"
	"github.com/leapstack-labs/b2genn/pkg/core"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		name    string
		cmd     *cobra.Command
		use     string
		hasFlag string
	}{
		{"build", NewBuildCommand(), "build", ""},
		{"inspect", NewInspectCommand(), "inspect", "results"},
		{"watch", NewWatchCommand(), "watch", ""},
		{"history", NewHistoryCommand(), "history [build-id]", "limit"},
		{"init", NewInitCommand(), "init [directory]", "force"},
		{"version", NewVersionCommand("1.2.3"), "version", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			if tt.hasFlag != "" {
				assert.NotNil(t, tt.cmd.Flags().Lookup(tt.hasFlag))
			}
		})
	}
}

// setupProject creates a test project, makes it the working directory and
// loads its configuration with the given output mode. Toolchain commands are
// recorded by the returned fake.
func setupProject(t *testing.T, mode output.Mode) (string, *config.Config, *testutil.FakeCommands) {
	t.Helper()
	dir := clitestutil.SetupTestProject(t)
	clitestutil.Chdir(t, dir)

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	cfg.Output = string(mode)

	cmds := &testutil.FakeCommands{}
	old := NewCommandRunner
	NewCommandRunner = func(io.Writer, io.Writer) device.CommandRunner { return cmds }
	t.Cleanup(func() { NewCommandRunner = old })

	return dir, cfg, cmds
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildCommand_JSON(t *testing.T) {
	dir, _, cmds := setupProject(t, output.ModeJSON)

	out, err := execute(t, NewBuildCommand())
	require.NoError(t, err)

	var first BuildJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Equal(t, "net_model", first.Model)
	assert.Equal(t, filepath.Join(dir, "output"), first.ProjectDir)
	assert.NotEmpty(t, first.BuildID)
	assert.Contains(t, first.Written, "objects.cpp")
	assert.True(t, first.Compiled)
	assert.True(t, first.Ran)
	assert.Equal(t, []string{"buildmodel net_model", "make", "bin/linux/release/runner test 0.5 1"}, cmds.Calls())

	out, err = execute(t, NewBuildCommand())
	require.NoError(t, err)
	var second BuildJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.Empty(t, second.Written)
	assert.Equal(t, len(first.Written), second.Unchanged)
	assert.NotEqual(t, first.BuildID, second.BuildID)
}

func TestBuildCommand_Markdown(t *testing.T) {
	_, cfg, cmds := setupProject(t, output.ModeMarkdown)
	cfg.Compile = false

	out, err := execute(t, NewBuildCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "# Build")
	assert.Contains(t, out, "- **Model:** net_model")
	assert.Contains(t, out, "- **Compiled:** false")
	clitestutil.AssertNoANSI(t, out)
	clitestutil.AssertValidMarkdown(t, out)
	assert.Empty(t, cmds.Calls())
}

func TestBuildCommand_ToolchainFailure(t *testing.T) {
	_, _, cmds := setupProject(t, output.ModeJSON)
	cmds.FailOn = "make"

	_, err := execute(t, NewBuildCommand())
	var terr *device.ToolchainError
	require.ErrorAs(t, err, &terr)

	out, err := execute(t, NewHistoryCommand())
	require.NoError(t, err)
	var builds []state.Build
	require.NoError(t, json.Unmarshal([]byte(out), &builds))
	require.Len(t, builds, 1)
	assert.Equal(t, state.BuildStatusFailed, builds[0].Status)
	assert.Contains(t, builds[0].Error, "make")
}

func TestBuildCommand_MissingNetwork(t *testing.T) {
	_, cfg, _ := setupProject(t, output.ModeJSON)
	cfg.Network = ""

	_, err := execute(t, NewBuildCommand())
	assert.ErrorContains(t, err, "network is required")
}

func TestInspectCommand_JSON(t *testing.T) {
	dir, _, cmds := setupProject(t, output.ModeJSON)

	out, err := execute(t, NewInspectCommand())
	require.NoError(t, err)

	var got InspectOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "net", got.Network)
	assert.Equal(t, "net_model", got.Model)
	assert.NotEmpty(t, got.Arrays)
	assert.Contains(t, got.Actions, `insert_code "// user setup"`)
	assert.Contains(t, got.Actions, "end_run_func record")

	kinds := map[string]string{}
	for _, m := range got.Models {
		kinds[m.Name] = m.Kind
	}
	assert.Equal(t, "neuron", kinds["exc"])
	assert.Equal(t, "synapse", kinds["syn"])

	groups := map[string]GroupInfo{}
	for _, g := range got.Groups {
		groups[g.Name] = g
	}
	assert.True(t, groups["exc"].Root)
	assert.Equal(t, []string{"syn"}, groups["exc"].Outputs)
	assert.Equal(t, []string{"exc", "inh"}, groups["syn"].Inputs)
	assert.False(t, groups["syn"].Root)
	assert.Nil(t, got.Results, "results are only read on request")

	// inspecting neither writes the project nor runs the toolchain
	assert.NoDirExists(t, filepath.Join(dir, "output"))
	assert.Empty(t, cmds.Calls())
}

func TestInspectCommand_Text(t *testing.T) {
	setupProject(t, output.ModeText)

	out, err := execute(t, NewInspectCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "Arrays")
	assert.Contains(t, out, "_array_v_exc")
	assert.Contains(t, out, "Actions")
}

func TestInspectCommand_Results(t *testing.T) {
	dir, _, _ := setupProject(t, output.ModeJSON)

	results := filepath.Join(dir, "output", device.ResultsDir)
	require.NoError(t, os.MkdirAll(results, 0750))
	data, err := staticdata.Encode(core.Array{DType: core.Float64, Values: []float64{-0.06, -0.055, -0.05, -0.045}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(results, "_array_v_exc"), data, 0600))

	out, err := execute(t, NewInspectCommand(), "--results")
	require.NoError(t, err)

	var got InspectOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	byName := map[string]ResultInfo{}
	for _, r := range got.Results {
		byName[r.Name] = r
	}

	v := byName["_array_v_exc"]
	assert.Empty(t, v.Error)
	assert.Equal(t, []int{4}, v.Shape)
	assert.Equal(t, []float64{-0.06, -0.055, -0.05, -0.045}, v.Values)

	// constant arange arrays are answered without a results file
	assert.Equal(t, []float64{0, 1, 2, 3}, byName["_array_i_exc"].Values)

	assert.Contains(t, byName["_array_ge_exc"].Error, "failed to read results")
}

func TestInspectCommand_ResultsText(t *testing.T) {
	setupProject(t, output.ModeText)

	out, err := execute(t, NewInspectCommand(), "--results")
	require.NoError(t, err)
	assert.Contains(t, out, "Groups")
	assert.Contains(t, out, "Results")
	assert.Contains(t, out, "failed to read results")
}

func TestHistoryCommand(t *testing.T) {
	setupProject(t, output.ModeJSON)

	_, err := execute(t, NewBuildCommand())
	require.NoError(t, err)

	out, err := execute(t, NewHistoryCommand(), "--limit", "5")
	require.NoError(t, err)
	var builds []state.Build
	require.NoError(t, json.Unmarshal([]byte(out), &builds))
	require.Len(t, builds, 1)
	assert.Equal(t, state.BuildStatusCompleted, builds[0].Status)
	assert.Positive(t, builds[0].Artifacts)

	out, err = execute(t, NewHistoryCommand(), builds[0].ID)
	require.NoError(t, err)
	var artifacts []state.Artifact
	require.NoError(t, json.Unmarshal([]byte(out), &artifacts))
	assert.Len(t, artifacts, builds[0].Artifacts)

	out, err = execute(t, NewHistoryCommand(), "--artifacts")
	require.NoError(t, err)
	var latest []state.Artifact
	require.NoError(t, json.Unmarshal([]byte(out), &latest))
	assert.Len(t, latest, len(artifacts))

	_, err = execute(t, NewHistoryCommand(), "missing")
	assert.ErrorContains(t, err, "build not found: missing")
}

func TestHistoryCommand_Markdown(t *testing.T) {
	setupProject(t, output.ModeMarkdown)

	out, err := execute(t, NewHistoryCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "# Builds")
	assert.Contains(t, out, "(0 rows)")

	_, err = execute(t, NewBuildCommand())
	require.NoError(t, err)

	out, err = execute(t, NewHistoryCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "| Completed |")
	clitestutil.AssertValidMarkdown(t, out)
}

func TestHistoryCommand_Disabled(t *testing.T) {
	_, cfg, _ := setupProject(t, output.ModeJSON)
	cfg.StatePath = ""

	_, err := execute(t, NewHistoryCommand())
	assert.ErrorContains(t, err, "build history is disabled")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, NewVersionCommand("1.2.3"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "b2genn v1.2.3\n"))
}

func TestInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string)
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name:      "init empty directory",
			wantFiles: []string{"b2genn.yaml", "network.yaml", "setup.star", ".gitignore"},
		},
		{
			name: "init existing config without force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "b2genn.yaml"), []byte("existing"), 0600))
			},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "b2genn.yaml"), []byte("existing"), 0600))
			},
			args:      []string{"--force"},
			wantFiles: []string{"b2genn.yaml", "network.yaml"},
		},
		{
			name:      "init new directory",
			args:      []string{"nested/project"},
			wantFiles: []string{"nested/project/b2genn.yaml", "nested/project/setup.star"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			clitestutil.Chdir(t, tmpDir)
			config.ResetConfig()
			t.Cleanup(config.ResetConfig)

			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			_, err := execute(t, NewInitCommand(), tt.args...)
			if tt.wantErr {
				assert.ErrorContains(t, err, "already exists")
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				assert.FileExists(t, filepath.Join(tmpDir, f))
			}
			content, err := os.ReadFile(filepath.Join(tmpDir, tt.wantFiles[0]))
			require.NoError(t, err)
			assert.NotEqual(t, "existing", string(content))
		})
	}
}

func TestInitCommand_ProjectBuilds(t *testing.T) {
	tmpDir := t.TempDir()
	clitestutil.Chdir(t, tmpDir)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	_, err := execute(t, NewInitCommand())
	require.NoError(t, err)

	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	cfg.Output = string(output.ModeJSON)

	cmds := &testutil.FakeCommands{}
	old := NewCommandRunner
	NewCommandRunner = func(io.Writer, io.Writer) device.CommandRunner { return cmds }
	t.Cleanup(func() { NewCommandRunner = old })

	out, err := execute(t, NewBuildCommand())
	require.NoError(t, err)
	var got BuildJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "demo_model", got.Model)
	assert.Equal(t, []string{"buildmodel demo_model", "make", "bin/linux/release/runner test 1.0 0"}, cmds.Calls())
}
