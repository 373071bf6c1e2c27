package build

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/simplest/internal/compiler"
	"github.com/conneroisu/simplest/internal/config"
	"github.com/conneroisu/simplest/internal/errors"
	"github.com/conneroisu/simplest/internal/logging"
	"github.com/conneroisu/simplest/internal/metrics"
	"github.com/conneroisu/simplest/internal/plugins"
	"github.com/conneroisu/simplest/internal/plugins/builtin"
)

// Mode selects how a build treats the existing output tree.
type Mode int

const (
	// ModeBuild removes the output root before building.
	ModeBuild Mode = iota
	// ModeWatch keeps the output tree and relies on staleness.
	ModeWatch
)

func (m Mode) String() string {
	switch m {
	case ModeBuild:
		return "build"
	case ModeWatch:
		return "watch"
	default:
		return "unknown"
	}
}

// Builder runs builds for one configuration. Builds are serialized.
type Builder struct {
	cfg       *config.Config
	logger    logging.Logger
	metrics   metrics.Recorder
	compilers *compiler.Table
	extra     []plugins.Plugin
	chain     *plugins.Chain

	mu sync.Mutex
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(b *Builder) {
		b.metrics = metrics.OrNoop(rec)
	}
}

// WithCompilers replaces the default compiler table.
func WithCompilers(table *compiler.Table) Option {
	return func(b *Builder) {
		if table != nil {
			b.compilers = table
		}
	}
}

// WithPlugins inserts plugins after the user plugins and before the
// built-in chain.
func WithPlugins(ps ...plugins.Plugin) Option {
	return func(b *Builder) {
		b.extra = append(b.extra, ps...)
	}
}

// WithChain replaces the whole plugin chain.
func WithChain(chain *plugins.Chain) Option {
	return func(b *Builder) {
		b.chain = chain
	}
}

// New creates a builder for cfg.
func New(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{
		cfg:       cfg,
		logger:    logging.NewNopLogger(),
		metrics:   metrics.NoopRecorder{},
		compilers: compiler.Defaults(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.WithComponent("build")

	builtin.RegisterCommands(cfg, b.compilers)

	if b.chain == nil {
		defaults := builtin.Defaults(cfg)
		n := len(cfg.Plugins)
		chain := append([]plugins.Plugin(nil), defaults[:n]...)
		chain = append(chain, b.extra...)
		chain = append(chain, defaults[n:]...)
		b.chain = plugins.NewChain(chain...)
	}

	return b
}

// Config returns the builder's configuration.
func (b *Builder) Config() *config.Config {
	return b.cfg
}

// Chain returns the plugin chain.
func (b *Builder) Chain() *plugins.Chain {
	return b.chain
}

// Build runs one build and reports the terminal state of every file.
func (b *Builder) Build(ctx context.Context, mode Mode) (*Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	run := plugins.NewRun(b.cfg, b.compilers, b.logger, b.metrics)
	report := newReport(run.ID, mode)

	perf := logging.StartOperation(run.Logger, "build")
	err := b.build(ctx, run, mode, report)
	report.Duration = time.Since(start)
	b.metrics.ObserveBuildDuration(report.Duration)

	if err != nil {
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			b.metrics.IncBuildOutcome(metrics.OutcomeCanceled)
		} else {
			b.metrics.IncBuildOutcome(metrics.OutcomeFailed)
		}
		perf.EndWithError(ctx, err)
		return report, err
	}

	b.metrics.IncBuildOutcome(metrics.OutcomeSuccess)
	counts := report.Counts()
	perf.End(ctx,
		"mode", mode.String(),
		"written", counts[ActionWritten]+counts[ActionTemplate],
		"copied", counts[ActionCopied],
		"up_to_date", counts[ActionUpToDate],
		"removed", counts[ActionRemoved],
	)
	return report, nil
}

func (b *Builder) build(ctx context.Context, run *plugins.Run, mode Mode, report *Report) error {
	if mode == ModeBuild {
		if err := os.RemoveAll(b.cfg.Output); err != nil {
			return errors.ErrIO("remove output", b.cfg.Output, err)
		}
	}
	if err := os.MkdirAll(b.cfg.Output, 0o755); err != nil {
		return errors.ErrIO("create output", b.cfg.Output, err)
	}

	files, err := discover(ctx, b.cfg.Input)
	if err != nil {
		return err
	}

	set := NewFileSet(run.Logger)
	var templates, passThrough []string
	for _, rel := range files {
		switch {
		case b.cfg.IsTemplate(rel):
			templates = append(templates, rel)
		case b.cfg.IsPassThrough(rel):
			passThrough = append(passThrough, rel)
		default:
			set.Add(rel)
		}
	}
	if len(templates) == 0 {
		return errors.ErrTemplateNotFound(filepath.Join(b.cfg.Input, b.cfg.Template))
	}

	run.Phase = plugins.PhaseTemplate
	tmap, err := b.buildTemplates(ctx, run, set, templates, report)
	if err != nil {
		return err
	}

	run.Phase = plugins.PhaseContent
	if err := b.processFiles(ctx, run, set, tmap, report); err != nil {
		return err
	}

	jobs, err := b.plan(ctx, run, set, tmap, passThrough, report)
	if err != nil {
		return err
	}
	if err := b.execute(ctx, run, jobs, report); err != nil {
		return err
	}

	for _, f := range run.Emitted() {
		if f.Written {
			b.record(ctx, run, report, f.Path, ActionWritten)
		} else {
			b.record(ctx, run, report, f.Path, ActionUpToDate)
		}
	}
	return nil
}

// discover lists every file under root as sorted, slash separated relative
// paths.
func discover(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(p)
			if err != nil || info.IsDir() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.ErrIO("walk", root, err)
	}

	sort.Strings(files)
	return files, nil
}

func (b *Builder) record(ctx context.Context, run *plugins.Run, report *Report, rel string, action Action) {
	report.record(rel, action)
	b.metrics.IncFileAction(string(action))
	if b.cfg.Verbose {
		run.Logger.Info(ctx, "File "+string(action), "path", rel)
	} else {
		run.Logger.Debug(ctx, "File "+string(action), "path", rel)
	}
}

// RemoveOutput deletes the output mirrored from the input-relative path rel,
// including the renamed output the plugin chain would have produced for it.
func (b *Builder) RemoveOutput(rel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rel = path.Clean(filepath.ToSlash(rel))
	targets := []string{rel}
	if t := b.chain.Target(rel); t != rel {
		targets = append(targets, t)
	}

	for _, t := range targets {
		p := filepath.Join(b.cfg.Output, filepath.FromSlash(t))
		if err := os.RemoveAll(p); err != nil {
			return errors.ErrIO("remove", p, err)
		}
	}
	return nil
}

// Clean removes the output root.
func (b *Builder) Clean() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := os.RemoveAll(b.cfg.Output); err != nil {
		return errors.ErrIO("remove output", b.cfg.Output, err)
	}
	return nil
}
