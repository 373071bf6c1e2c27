package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/simplest/internal/logging"
	"github.com/conneroisu/simplest/internal/metrics"
)

// Options configures a Driver.
type Options struct {
	// Root is the input directory to watch.
	Root     string
	Debounce time.Duration
	// Ignore holds glob patterns for files that never trigger a rebuild.
	Ignore []string
	Build  BuildFunc
	// Remove deletes the output mirrored from an input-relative path.
	Remove  func(rel string) error
	Logger  logging.Logger
	Metrics metrics.Recorder
}

// Driver rebuilds whenever the watched tree changes. Deleted inputs have
// their output removed right away; everything else is debounced into a
// scheduled rebuild.
type Driver struct {
	opts      Options
	root      string
	watcher   *FileWatcher
	scheduler *Scheduler
	logger    logging.Logger
	ready     chan struct{}
}

// NewDriver prepares a driver for opts.Root.
func NewDriver(opts Options) (*Driver, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.Ignore == nil {
		opts.Ignore = DefaultIgnore
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}

	fw, err := NewFileWatcher(opts.Debounce, opts.Logger)
	if err != nil {
		return nil, err
	}
	fw.AddFilter(NoGitFilter)
	fw.AddFilter(IgnoreFilter(root, opts.Ignore))

	return &Driver{
		opts:    opts,
		root:    root,
		watcher: fw,
		logger:  opts.Logger.WithComponent("watch"),
		ready:   make(chan struct{}),
	}, nil
}

// Run watches until ctx is done, then waits for any running build.
func (d *Driver) Run(ctx context.Context) error {
	d.scheduler = NewScheduler(ctx, d.opts.Build, d.opts.Logger, d.opts.Metrics)

	d.watcher.AddImmediateHandler(func(events []ChangeEvent) error {
		return d.removeOutputs(ctx, events)
	})
	d.watcher.AddHandler(func(events []ChangeEvent) error {
		for _, e := range events {
			d.logger.Debug(ctx, "File "+e.Type.String(), "path", d.rel(e.Path))
		}
		d.scheduler.Trigger()
		return nil
	})

	if err := d.watcher.AddRecursive(d.root); err != nil {
		_ = d.watcher.Stop()
		return err
	}
	if err := d.watcher.Start(ctx); err != nil {
		_ = d.watcher.Stop()
		return err
	}
	d.logger.Info(ctx, "Watching for changes", "root", d.root)
	close(d.ready)

	<-ctx.Done()
	d.scheduler.Stop()
	return d.watcher.Stop()
}

// Ready is closed once the tree is being watched.
func (d *Driver) Ready() <-chan struct{} {
	return d.ready
}

func (d *Driver) removeOutputs(ctx context.Context, events []ChangeEvent) error {
	if d.opts.Remove == nil {
		return nil
	}
	for _, e := range events {
		// a rename reports the old name; the file may have come back already
		if _, err := os.Lstat(e.Path); err == nil {
			continue
		}
		rel := d.rel(e.Path)
		if rel == "" {
			continue
		}
		if err := d.opts.Remove(rel); err != nil {
			return err
		}
		d.logger.Info(ctx, "Removed output", "path", rel)
	}
	return nil
}

// rel maps an absolute path under the root to a slash separated relative
// path, or "" when it lies outside.
func (d *Driver) rel(path string) string {
	r, err := filepath.Rel(d.root, path)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(r)
}
