package plugins

import (
	"context"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/conneroisu/simplest/internal/cachebust"
	"github.com/conneroisu/simplest/internal/compiler"
	"github.com/conneroisu/simplest/internal/config"
	"github.com/conneroisu/simplest/internal/errors"
	"github.com/conneroisu/simplest/internal/fsutil"
	"github.com/conneroisu/simplest/internal/logging"
	"github.com/conneroisu/simplest/internal/metrics"
)

// Phase tells plugins whether templates or content files are being built.
type Phase int

const (
	PhaseTemplate Phase = iota
	PhaseContent
)

// Run is the context shared by all plugins during one build.
type Run struct {
	ID        string
	Config    *config.Config
	Phase     Phase
	Compilers *compiler.Table
	Logger    logging.Logger
	Metrics   metrics.Recorder
	Memo      *cachebust.Memo
	Artifacts *cachebust.Artifacts
	Rewriter  *cachebust.Rewriter

	mu       sync.Mutex
	compiled map[string][]byte
	emitted  map[string]bool
}

// NewRun creates the context for one build. A nil logger or recorder is
// replaced by a no-op one.
func NewRun(cfg *config.Config, compilers *compiler.Table, logger logging.Logger, rec metrics.Recorder) *Run {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	rec = metrics.OrNoop(rec)
	if compilers == nil {
		compilers = compiler.NewTable()
	}

	id := uuid.NewString()
	memo := cachebust.NewMemo()
	artifacts := cachebust.NewArtifacts()
	runLogger := logger.With("run_id", id)

	return &Run{
		ID:        id,
		Config:    cfg,
		Phase:     PhaseTemplate,
		Compilers: compilers,
		Logger:    runLogger,
		Metrics:   rec,
		Memo:      memo,
		Artifacts: artifacts,
		Rewriter: &cachebust.Rewriter{
			InputRoot:  cfg.Input,
			OutputRoot: cfg.Output,
			Memo:       memo,
			Artifacts:  artifacts,
			Logger:     runLogger.WithComponent("cachebust"),
			Metrics:    rec,
		},
		compiled: make(map[string][]byte),
		emitted:  make(map[string]bool),
	}
}

// InputPath maps an input-relative path to the file system.
func (r *Run) InputPath(rel string) string {
	return filepath.Join(r.Config.Input, filepath.FromSlash(rel))
}

// OutputPath maps an output-relative path to the file system.
func (r *Run) OutputPath(rel string) string {
	return filepath.Join(r.Config.Output, filepath.FromSlash(rel))
}

// Emit writes a file produced as a side effect of another file, such as a
// stylesheet compiled for a template. The bytes become visible to the
// cache-bust rewriter immediately. It reports whether the output changed.
func (r *Run) Emit(rel string, data []byte) (bool, error) {
	rel = path.Clean(rel)
	written, err := fsutil.WriteIfChanged(r.OutputPath(rel), data)
	if err != nil {
		return false, errors.ErrIO("write", rel, err)
	}

	r.Artifacts.Put(rel, data)
	r.Memo.Forget(rel)

	r.mu.Lock()
	r.emitted[rel] = r.emitted[rel] || written
	r.mu.Unlock()

	return written, nil
}

// Emitted returns every path emitted in this run and whether its output
// was rewritten, sorted by path.
func (r *Run) Emitted() []EmittedFile {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]EmittedFile, 0, len(r.emitted))
	for rel, written := range r.emitted {
		out = append(out, EmittedFile{Path: rel, Written: written})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// WasEmitted reports whether rel was emitted in this run.
func (r *Run) WasEmitted(rel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.emitted[path.Clean(rel)]
	return ok
}

// EmittedFile is one side-effect output of a run.
type EmittedFile struct {
	Path    string
	Written bool
}

// Compile runs the compiler called name over content. Failures are wrapped
// with the file path and compiler name.
func (r *Run) Compile(ctx context.Context, name, rel string, content []byte) (compiler.Result, error) {
	c, err := r.Compilers.Get(name)
	if err != nil {
		return compiler.Result{}, errors.ErrCompileFailed(rel, name, err)
	}

	dir := filepath.Dir(r.InputPath(rel))
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	res, err := c.Compile(ctx, compiler.Source{
		Path:    rel,
		Dir:     dir,
		Content: content,
		Options: compiler.Options(r.Config.CompilerOptionsFor(name)),
	})
	if err != nil {
		return compiler.Result{}, errors.ErrCompileFailed(rel, name, err)
	}
	return res, nil
}

// Memoize returns the bytes cached under key for this run, computing them
// with fn on first use. Errors are not cached.
func (r *Run) Memoize(key string, fn func() ([]byte, error)) ([]byte, error) {
	r.mu.Lock()
	data, ok := r.compiled[key]
	r.mu.Unlock()
	if ok {
		return data, nil
	}

	data, err := fn()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.compiled[key] = data
	r.mu.Unlock()
	return data, nil
}
