package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/simplest/internal/build"
	"github.com/conneroisu/simplest/internal/config"
	"github.com/conneroisu/simplest/internal/logging"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build the site from scratch",
	Long: `Build the site into the output directory. The output root is removed
first, so the result only holds what the current input produces.

Examples:
  simplest build                  # Build src/ into build/
  simplest build -i site -o dist  # Build site/ into dist/
  simplest build --incremental    # Keep the output and rebuild what changed`,
	RunE: runBuild,
}

var buildIncremental bool

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVar(&buildIncremental, "incremental", false, "keep the output tree and only rebuild stale files")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	mode := build.ModeBuild
	if buildIncremental {
		mode = build.ModeWatch
	}

	return buildOnce(cmd, cfg, logger, mode)
}

// buildOnce runs one build and prints its summary or failure.
func buildOnce(cmd *cobra.Command, cfg *config.Config, logger logging.Logger, mode build.Mode) error {
	report, err := build.New(cfg, build.WithLogger(logger)).Build(cmd.Context(), mode)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), renderError(err))
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(report))
	return nil
}
