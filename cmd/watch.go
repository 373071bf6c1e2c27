package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/simplest/internal/build"
	"github.com/conneroisu/simplest/internal/config"
	"github.com/conneroisu/simplest/internal/logging"
	"github.com/conneroisu/simplest/internal/metrics"
	"github.com/conneroisu/simplest/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Build, then rebuild whenever the input changes",
	Long: `Build the site incrementally and keep watching the input directory.
Changes are debounced into a single rebuild; a change arriving during a
rebuild schedules exactly one more. Deleting an input removes its output
right away.

Examples:
  simplest watch                  # Watch src/
  simplest watch --debounce 250ms # Wait longer for editors to settle`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("debounce", 0, "quiet period before a rebuild (default 100ms)")
	bindFlags(watchCmd.Flags(), map[string]string{"debounce": "watch.debounce"})
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return watchSite(cmd, cfg, newLogger(cfg, cmd.ErrOrStderr()), nil, nil)
}

// watchSite runs an incremental build and then rebuilds on every change
// until the command's context is done. after runs following every
// successful build.
func watchSite(cmd *cobra.Command, cfg *config.Config, logger logging.Logger, rec metrics.Recorder,
	after func(context.Context, *build.Report)) error {
	ctx := cmd.Context()
	b := build.New(cfg, build.WithLogger(logger), build.WithMetrics(rec))

	rebuild := func(ctx context.Context) error {
		report, err := b.Build(ctx, build.ModeWatch)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), renderError(err))
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderSummary(report))
		if after != nil {
			after(ctx, report)
		}
		return nil
	}

	// a broken first build is reported; fixing the input triggers the next one
	_ = rebuild(ctx)

	driver, err := watcher.NewDriver(watcher.Options{
		Root:     cfg.Input,
		Debounce: cfg.Watch.Debounce,
		Ignore:   cfg.Watch.Ignore,
		Build:    rebuild,
		Remove:   b.RemoveOutput,
		Logger:   logger,
		Metrics:  rec,
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	return driver.Run(ctx)
}
