// Package internal contains the implementation packages of the simplest CLI.
//
// # Package Organization
//
//   - build: the build orchestrator, file set, template map and report
//   - plugins: the plugin protocol, chain and per-run context
//   - compiler: markdown and external-process compilers behind a table
//   - cachebust: content hashing and in-place asset reference rewriting
//   - layout: page block extraction and template slot filling
//   - config: viper-backed configuration with defaults and validation
//   - watcher: fsnotify watching, debouncing and rebuild scheduling
//   - server: development server with live reload and proxy mode
//   - metrics: build metrics recorder and Prometheus exposition
//   - errors: typed build errors
//   - logging: structured logging over log/slog
//   - fsutil, version: small helpers
package internal
