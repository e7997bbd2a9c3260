package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/b2genn/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/b2genn/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new b2genn project",
		Long: `Initialize a new b2genn project.

This creates:
  - b2genn.yaml configuration file
  - network.yaml, a small network description
  - setup.star, a setup script that initialises state and sets the run duration`,
		Example: `  # Initialize in current directory
  b2genn init

  # Initialize in a new directory
  b2genn init my-network

  # Force overwrite existing files
  b2genn init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, sharedcfg.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", sharedcfg.ConfigFileName)
	}

	if err := copyTemplate("minimal", dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles("minimal")
	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("b2genn project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  b2genn inspect               Show arrays and queued actions")
	r.Println("  b2genn build --no-compile    Emit the GeNN project")
	r.Println("  b2genn watch                 Rebuild on every change")
	return nil
}
