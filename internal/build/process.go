package build

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/simplest/internal/errors"
	"github.com/conneroisu/simplest/internal/fsutil"
	"github.com/conneroisu/simplest/internal/plugins"
)

// subject is a file being threaded through the chain.
type subject struct {
	entry     *Entry // nil for templates
	path      string
	content   []byte
	processed bool
	removed   bool
}

// buildTemplates processes every template and writes the ones whose output
// is stale or differs.
func (b *Builder) buildTemplates(ctx context.Context, run *plugins.Run, set *FileSet, templates []string, report *Report) (*TemplateMap, error) {
	tmap := NewTemplateMap(b.cfg.Template)

	for _, rel := range templates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := os.ReadFile(run.InputPath(rel))
		if err != nil {
			return nil, errors.ErrIO("read", rel, err)
		}

		s := &subject{path: rel, content: content}
		if err := b.process(ctx, run, set, report, s, plugins.File{Path: rel, Source: rel}); err != nil {
			return nil, err
		}

		tmpl := &Template{Dir: path.Dir(rel), Path: rel, Content: s.content}
		changed, err := b.writeTemplate(run, tmpl)
		if err != nil {
			return nil, err
		}
		tmpl.Changed = changed
		tmap.Set(tmpl)

		if changed {
			b.record(ctx, run, report, rel, ActionTemplate)
		} else {
			b.record(ctx, run, report, rel, ActionUpToDate)
		}
	}

	return tmap, nil
}

func (b *Builder) writeTemplate(run *plugins.Run, tmpl *Template) (bool, error) {
	src, dst := run.InputPath(tmpl.Path), run.OutputPath(tmpl.Path)

	newer, err := IsNewer(src, dst)
	if err != nil {
		return false, errors.ErrIO("stat", tmpl.Path, err)
	}
	if !newer {
		existing, err := os.ReadFile(dst)
		if err == nil && bytes.Equal(existing, tmpl.Content) {
			return false, nil
		}
	}

	if err := fsutil.WriteFile(dst, tmpl.Content); err != nil {
		return false, errors.ErrIO("write", tmpl.Path, err)
	}
	return true, nil
}

// processFiles runs the chain over every stale content file.
func (b *Builder) processFiles(ctx context.Context, run *plugins.Run, set *FileSet, tmap *TemplateMap, report *Report) error {
	// files predicted to land on the same output always run, so the rename
	// collision resolves the same way in every mode
	claims := make(map[string]int)
	for _, e := range set.Entries() {
		claims[b.chain.Target(e.Path)]++
	}

	for _, e := range set.Entries() {
		if err := ctx.Err(); err != nil {
			return err
		}
		// removed as a side effect of an earlier file
		if e.removed || !b.chain.Accepts(e.Path) {
			continue
		}

		tmpl, err := tmap.Resolve(e.Source)
		if err != nil {
			return err
		}
		e.template = tmpl

		target := b.chain.Target(e.Path)
		if !tmpl.Changed && claims[target] < 2 {
			newer, err := IsNewer(run.InputPath(e.Source), run.OutputPath(target))
			if err != nil {
				return errors.ErrIO("stat", e.Source, err)
			}
			if !newer {
				e.upToDate = true
				e.target = target
				continue
			}
		}

		content, err := os.ReadFile(run.InputPath(e.Source))
		if err != nil {
			return errors.ErrIO("read", e.Source, err)
		}

		s := &subject{entry: e, path: e.Path, content: content}
		file := plugins.File{Path: e.Path, Source: e.Source, Template: tmpl.Content}
		if err := b.process(ctx, run, set, report, s, file); err != nil {
			return err
		}
		if s.removed {
			continue
		}
		if s.processed {
			e.Content = s.content
			e.Processed = true
		}
	}
	return nil
}

// process threads s through the chain in one forward pass. After a rename
// only the plugins later in the chain that accept the new identity run.
func (b *Builder) process(ctx context.Context, run *plugins.Run, set *FileSet, report *Report, s *subject, file plugins.File) error {
	for _, p := range b.chain.Plugins() {
		if !plugins.Accepts(p, s.path) {
			continue
		}

		file.Path = s.path
		action, err := p.Parse(ctx, run, file, s.content)
		if err != nil {
			var buildErr *errors.BuildError
			if stderrors.As(err, &buildErr) {
				return err
			}
			return errors.ErrCompileFailed(s.path, p.Name(), err)
		}

		if err := b.apply(ctx, run, set, report, s, action); err != nil {
			return err
		}
		if s.removed {
			return nil
		}
	}
	return nil
}

func (b *Builder) apply(ctx context.Context, run *plugins.Run, set *FileSet, report *Report, s *subject, action plugins.Action) error {
	switch a := action.(type) {
	case nil, plugins.Keep:
	case plugins.Content:
		s.content = a.Data
		s.processed = true
	case plugins.Rename:
		to := path.Clean(a.Path)
		if s.entry != nil {
			if replaced := set.Rename(s.entry, to); replaced != nil {
				b.record(ctx, run, report, replaced.Source, ActionRemoved)
			}
		}
		s.path = to
		s.content = a.Data
		s.processed = true
	case plugins.Remove:
		target := path.Clean(a.Path)
		if target == s.path {
			s.removed = true
			if s.entry != nil {
				set.Remove(target)
				b.record(ctx, run, report, s.entry.Source, ActionRemoved)
			}
			return nil
		}
		if e, ok := set.Remove(target); ok {
			b.record(ctx, run, report, e.Source, ActionRemoved)
		}
	case plugins.Batch:
		for _, member := range a {
			if err := b.apply(ctx, run, set, report, s, member); err != nil {
				return err
			}
			if s.removed {
				return nil
			}
		}
	default:
		return errors.NewInternalError(errors.ErrCodeUnknownAction,
			fmt.Sprintf("unknown plugin action %T", action), nil).WithFile(s.path)
	}
	return nil
}

type job struct {
	action Action
	path   string // output-relative
	source string // input path
	data   []byte
}

// plan decides the terminal state of every live file. Nothing is written
// until every file has been processed, so files removed as a side effect
// are never written.
func (b *Builder) plan(ctx context.Context, run *plugins.Run, set *FileSet, tmap *TemplateMap, passThrough []string, report *Report) ([]job, error) {
	var jobs []job

	for _, e := range set.Entries() {
		switch {
		case e.upToDate:
			b.record(ctx, run, report, e.target, ActionUpToDate)
		case e.Processed && run.WasEmitted(e.Path):
			// already written while processing another file, recorded with
			// the emitted outputs
		case e.Processed:
			jobs = append(jobs, job{action: ActionWritten, path: e.Path, source: run.InputPath(e.Source), data: e.Content})
		case b.cfg.IsIgnored(e.Path):
			b.record(ctx, run, report, e.Source, ActionIgnored)
		default:
			forced := false
			if e.template != nil {
				forced = e.template.Changed
			} else if tmpl, err := tmap.Resolve(e.Source); err == nil {
				forced = tmpl.Changed
			}
			stale, err := b.stale(run, e.Source, e.Path, forced)
			if err != nil {
				return nil, err
			}
			if !stale {
				b.record(ctx, run, report, e.Path, ActionUpToDate)
				continue
			}
			jobs = append(jobs, job{action: ActionCopied, path: e.Path, source: run.InputPath(e.Source)})
		}
	}

	for _, rel := range passThrough {
		stale, err := b.stale(run, rel, rel, false)
		if err != nil {
			return nil, err
		}
		if !stale {
			b.record(ctx, run, report, rel, ActionUpToDate)
			continue
		}
		jobs = append(jobs, job{action: ActionCopied, path: rel, source: run.InputPath(rel)})
	}

	return jobs, nil
}

func (b *Builder) stale(run *plugins.Run, source, target string, forced bool) (bool, error) {
	if forced {
		return true, nil
	}
	newer, err := IsNewer(run.InputPath(source), run.OutputPath(target))
	if err != nil {
		return false, errors.ErrIO("stat", source, err)
	}
	return newer, nil
}

// execute performs the planned writes concurrently.
func (b *Builder) execute(ctx context.Context, run *plugins.Run, jobs []job, report *Report) error {
	workers := b.cfg.Build.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			dst := run.OutputPath(j.path)
			switch j.action {
			case ActionCopied:
				if err := fsutil.CopyFile(j.source, dst); err != nil {
					return errors.ErrIO("copy", j.path, err)
				}
				b.record(gctx, run, report, j.path, ActionCopied)
			default:
				written, err := fsutil.WriteIfChanged(dst, j.data)
				if err != nil {
					return errors.ErrIO("write", j.path, err)
				}
				if written {
					b.record(gctx, run, report, j.path, ActionWritten)
					break
				}
				if err := freshen(j.source, dst); err != nil {
					return errors.ErrIO("touch", j.path, err)
				}
				b.record(gctx, run, report, j.path, ActionUpToDate)
			}
			return nil
		})
	}

	return g.Wait()
}
