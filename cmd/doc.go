// Package cmd provides the simplest command-line interface.
//
// # Available Commands
//
//   - build: full build, removing the output root first
//   - watch: incremental build, then rebuild on every change
//   - dev: watch and serve the output with live reload
//   - clean: remove the output root
//   - version: print version information
//
// # Configuration
//
// Settings are read, highest priority first, from command-line flags,
// SIMPLEST_* environment variables (SIMPLEST_OUTPUT, SIMPLEST_SERVER_PORT),
// a .env file in the working directory, and the configuration file: the
// --config flag, then SIMPLEST_CONFIG_FILE, then .simplest.yml.
package cmd
