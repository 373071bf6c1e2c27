// Package metrics defines the Recorder used by the builder, watcher and dev
// server, with a no-op default and a Prometheus backed implementation.
package metrics
