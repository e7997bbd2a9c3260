package commands

import (
	"fmt"

	"github.com/leapstack-labs/b2genn/internal/cli/output"
	"github.com/leapstack-labs/b2genn/internal/engine"
	"github.com/leapstack-labs/b2genn/internal/writer"
	"github.com/spf13/cobra"
)

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate, compile and run a GeNN project",
		Long: `Generate a GeNN project from a network description.

The network file (and optional Starlark setup script) are replayed onto a
fresh build context, the project is written to the project directory and,
unless disabled, compiled with buildmodel and make and run for the recorded
duration. Unchanged files are not rewritten.`,
		Example: `  # Build, compile and run on the GPU
  b2genn build --network net.yaml

  # Only generate the sources
  b2genn build --network net.yaml --no-compile

  # Run on the CPU for 2 seconds with a setup script
  b2genn build --network net.yaml --setup setup.star --use-gpu=false --duration 2`,
		Args: cobra.NoArgs,
		RunE: runBuild,
	}
	return cmd
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := cmdCtx.Engine.Build(cmd.Context())
	if err != nil {
		if res != nil && res.Build != nil {
			cmdCtx.Renderer.Muted(fmt.Sprintf("build %s recorded as failed", res.Build.ID))
		}
		return err
	}
	return renderBuild(cmdCtx.Renderer, res)
}

// BuildJSONOutput is the JSON output structure of a build.
type BuildJSONOutput struct {
	BuildID      string   `json:"build_id,omitempty"`
	ProjectDir   string   `json:"project_dir"`
	Model        string   `json:"model"`
	Written      []string `json:"written"`
	Unchanged    int      `json:"unchanged"`
	StaticArrays int      `json:"static_arrays"`
	Compiled     bool     `json:"compiled"`
	Ran          bool     `json:"ran"`
	DurationMS   int64    `json:"duration_ms"`
}

func buildOutput(res *engine.Result) BuildJSONOutput {
	out := BuildJSONOutput{
		ProjectDir:   res.Output.ProjectDir,
		Model:        res.Output.ModelName,
		Written:      []string{},
		StaticArrays: len(res.Output.StaticArrays),
		Compiled:     res.Output.Compiled,
		Ran:          res.Output.Ran,
		DurationMS:   res.Output.Duration.Milliseconds(),
	}
	if res.Build != nil {
		out.BuildID = res.Build.ID
	}
	for _, a := range res.Output.Artifacts {
		if a.Outcome == writer.OutcomeWritten {
			out.Written = append(out.Written, a.Path)
		} else {
			out.Unchanged++
		}
	}
	return out
}

func renderBuild(r *output.Renderer, res *engine.Result) error {
	out := buildOutput(res)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Build"))
		r.Println("")
		r.Println(output.FormatKeyValue("Model", out.Model))
		r.Println(output.FormatKeyValue("Project", out.ProjectDir))
		r.Println(output.FormatKeyValue("Written", fmt.Sprintf("%d", len(out.Written))))
		r.Println(output.FormatKeyValue("Unchanged", fmt.Sprintf("%d", out.Unchanged)))
		r.Println(output.FormatKeyValue("Static arrays", fmt.Sprintf("%d", out.StaticArrays)))
		r.Println(output.FormatKeyValue("Compiled", fmt.Sprintf("%t", out.Compiled)))
		r.Println(output.FormatKeyValue("Ran", fmt.Sprintf("%t", out.Ran)))
		if out.BuildID != "" {
			r.Println(output.FormatKeyValue("Build", out.BuildID))
		}
		return nil
	default:
		for _, p := range out.Written {
			r.StatusLine(p, "success", "written")
		}
		if out.Unchanged > 0 {
			r.Muted(fmt.Sprintf("  %d files unchanged", out.Unchanged))
		}
		r.Println("")
		r.Success(fmt.Sprintf("Built %s in %s (%dms)", out.Model, out.ProjectDir, out.DurationMS))
		if out.Compiled {
			r.StatusLine("compiled", "success", "")
		}
		if out.Ran {
			r.StatusLine("ran", "success", "")
		}
		return nil
	}
}
