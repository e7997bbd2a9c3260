package commands

import (
	"errors"
	"strconv"
	"time"

	"github.com/leapstack-labs/b2genn/internal/cli/output"
	"github.com/leapstack-labs/b2genn/internal/state"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit     int
	Artifacts bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [build-id]",
		Short: "List recent builds or the artifacts of one build",
		Example: `  # Recent builds
  b2genn history

  # Files written by one build
  b2genn history 2f1c9a4e-...

  # Latest recorded version of every generated file
  b2genn history --artifacts`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Number of builds to show")
	cmd.Flags().BoolVar(&opts.Artifacts, "artifacts", false, "Show the latest recorded version of every artifact")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string, opts *HistoryOptions) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	if cmdCtx.Cfg.StatePath == "" {
		return errors.New("build history is disabled (state_path is empty)")
	}

	store := state.NewSQLiteStore(cmdCtx.Logger)
	if err := store.Open(cmdCtx.Cfg.StatePath); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	if err := store.Migrate(); err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch {
	case len(args) == 1:
		b, err := store.GetBuild(args[0])
		if err != nil {
			return err
		}
		artifacts, err := store.ListArtifacts(b.ID)
		if err != nil {
			return err
		}
		return renderArtifacts(r, "Build "+b.ID, artifacts)
	case opts.Artifacts:
		artifacts, err := store.ArtifactHistory()
		if err != nil {
			return err
		}
		return renderArtifacts(r, "Artifacts", artifacts)
	default:
		builds, err := store.ListBuilds(opts.Limit)
		if err != nil {
			return err
		}
		return renderBuilds(r, builds)
	}
}

func renderBuilds(r *output.Renderer, builds []*state.Build) error {
	if r.EffectiveMode() == output.ModeJSON {
		if builds == nil {
			builds = []*state.Build{}
		}
		return r.JSON(builds)
	}

	r.Header(1, "Builds")
	title := cases.Title(language.English)
	rows := make([][]string, 0, len(builds))
	for _, b := range builds {
		took := "-"
		if b.CompletedAt != nil {
			took = b.CompletedAt.Sub(b.StartedAt).Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			b.ID,
			b.StartedAt.Local().Format(time.DateTime),
			title.String(string(b.Status)),
			b.Network,
			strconv.Itoa(b.Artifacts),
			took,
			b.Error,
		})
	}
	r.Table([]string{"id", "started", "status", "network", "artifacts", "took", "error"}, rows)
	return nil
}

func renderArtifacts(r *output.Renderer, title string, artifacts []*state.Artifact) error {
	if r.EffectiveMode() == output.ModeJSON {
		if artifacts == nil {
			artifacts = []*state.Artifact{}
		}
		return r.JSON(artifacts)
	}

	r.Header(1, title)
	rows := make([][]string, 0, len(artifacts))
	for _, a := range artifacts {
		hash := a.Hash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		rows = append(rows, []string{a.Path, string(a.Role), string(a.Outcome), strconv.Itoa(a.Size), hash})
	}
	r.Table([]string{"path", "role", "outcome", "bytes", "sha256"}, rows)
	return nil
}
