package cmd

import (
	"context"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/simplest/internal/build"
	"github.com/conneroisu/simplest/internal/metrics"
	"github.com/conneroisu/simplest/internal/server"
)

var devCmd = &cobra.Command{
	Use:     "dev",
	Aliases: []string{"serve", "s"},
	Short:   "Watch, serve the output and reload the browser after each rebuild",
	Long: `Run watch mode and a development server for the output directory.
HTML responses get a small live-reload client that reloads the page after
every rebuild that changed something. With --proxy the server forwards
requests to an upstream server instead, for example a PHP runtime serving
the output directory.

Examples:
  simplest dev                               # Serve on localhost:3000
  simplest dev --port 8080 --open            # Open a browser tab
  simplest dev --proxy http://localhost:8000 # Proxy a PHP server`,
	RunE: runDev,
}

func init() {
	rootCmd.AddCommand(devCmd)

	flags := devCmd.Flags()
	flags.IntP("port", "p", 3000, "port to serve on")
	flags.String("host", "localhost", "host to bind to")
	flags.Bool("open", false, "open a browser tab")
	flags.String("proxy", "", "upstream URL to proxy instead of serving the output")
	flags.Bool("live-reload", true, "inject the live-reload client")

	bindFlags(flags, map[string]string{
		"port":        "server.port",
		"host":        "server.host",
		"open":        "server.open",
		"proxy":       "server.proxy",
		"live-reload": "server.live_reload",
	})
	addFlagValidation(devCmd, "port", validatePort)
	addFlagValidation(devCmd, "proxy", validateUpstream)
}

func runDev(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)

	srv, err := server.New(cfg, server.WithLogger(logger), server.WithRegistry(reg))
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	cmd.SetContext(ctx)

	g.Go(func() error {
		return srv.Start(ctx)
	})
	g.Go(func() error {
		return watchSite(cmd, cfg, logger, rec, func(ctx context.Context, report *build.Report) {
			if report.Changed() {
				srv.NotifyReload(ctx, changedPaths(report))
			}
		})
	})

	return g.Wait()
}

// changedPaths lists the outputs a build rewrote.
func changedPaths(report *build.Report) []string {
	var paths []string
	for _, action := range []build.Action{build.ActionTemplate, build.ActionWritten, build.ActionCopied} {
		paths = append(paths, report.Paths(action)...)
	}
	return paths
}
