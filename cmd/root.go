package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/simplest/internal/config"
	"github.com/conneroisu/simplest/internal/logging"
)

var cfgFile string

// envKeys are the scalar settings that can be overridden from the
// environment, as SIMPLEST_ followed by the upper-cased key with dots
// replaced by underscores.
var envKeys = []string{
	"input", "output", "template", "verbose",
	"build.workers",
	"watch.debounce",
	"server.host", "server.port", "server.live_reload", "server.open", "server.proxy",
	"log.level", "log.format",
}

var rootCmd = &cobra.Command{
	Use:   "simplest",
	Short: "An incremental static site builder",
	Long: `simplest builds a static site from an input tree into an output tree.

Pages are spliced into the nearest template.html, Markdown and stylesheets
are compiled, local asset references get content hashes, and every run only
rebuilds what changed since the last one.

Quick Start:
  simplest build                  Build src/ into build/
  simplest watch                  Rebuild on every change
  simplest dev                    Rebuild, serve and live-reload`,
	SilenceUsage: true,
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .simplest.yml, can also use SIMPLEST_CONFIG_FILE env var)")
	flags.StringP("input", "i", "", "input directory (default \"src\")")
	flags.StringP("output", "o", "", "output directory (default \"build\")")
	flags.BoolP("verbose", "v", false, "log every file action")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")

	bindFlags(flags, map[string]string{
		"input":      "input",
		"output":     "output",
		"verbose":    "verbose",
		"log-level":  "log.level",
		"log-format": "log.format",
	})
	addFlagValidation(rootCmd, "log-level", validateLogLevel)
	addFlagValidation(rootCmd, "log-format", validateLogFormat)
}

// initConfig wires the configuration sources into the global viper
// instance.
func initConfig() {
	// a missing .env is fine
	_ = godotenv.Load()

	switch {
	case cfgFile != "":
		viper.SetConfigFile(cfgFile)
	case os.Getenv("SIMPLEST_CONFIG_FILE") != "":
		viper.SetConfigFile(os.Getenv("SIMPLEST_CONFIG_FILE"))
	default:
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".simplest")
	}

	viper.SetEnvPrefix("SIMPLEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) logging.Logger {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using info\n", err)
	}
	if cfg.Verbose && level > logging.LevelInfo {
		level = logging.LevelInfo
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    w,
		Component: "simplest",
	})
}
