package builtin

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/conneroisu/simplest/internal/cachebust"
	"github.com/conneroisu/simplest/internal/errors"
	"github.com/conneroisu/simplest/internal/plugins"
)

// compilers by stylesheet extension
var styleCompilers = map[string]string{
	".sass": "sass",
	".scss": "scss",
	".less": "less",
}

var styleExtensions = []string{".sass", ".scss", ".less"}

// Style compiles Sass, SCSS and Less. Standalone stylesheets are renamed to
// .css. In HTML files, <link href> references to stylesheet sources are
// compiled, emitted as .css next to the source and repointed at the result;
// the referenced source is then removed from the build.
type Style struct {
	HTMLExtensions []string
}

func (s *Style) Name() string { return "style" }

func (s *Style) Extensions() []string {
	return append(append([]string(nil), styleExtensions...), s.HTMLExtensions...)
}

// Target maps site.scss to site.css and leaves HTML files alone.
func (s *Style) Target(path string) string {
	return plugins.ReplaceExtension(path, styleExtensions, ".css")
}

func (s *Style) Parse(ctx context.Context, run *plugins.Run, file plugins.File, content []byte) (plugins.Action, error) {
	if styleExtension(file.Path) == "" {
		return s.rewriteLinks(ctx, run, file, content)
	}

	// partials only exist to be imported
	if strings.HasPrefix(path.Base(file.Path), "_") {
		return plugins.Remove{Path: file.Path}, nil
	}

	css, err := s.compile(ctx, run, file.Path, content)
	if err != nil {
		return nil, err
	}
	return plugins.Rename{Path: s.Target(file.Path), Data: css}, nil
}

func (s *Style) rewriteLinks(ctx context.Context, run *plugins.Run, file plugins.File, content []byte) (plugins.Action, error) {
	var edits []cachebust.Edit
	var removed []plugins.Action

	for _, ref := range cachebust.Scan(content, map[string]string{"link": "href"}) {
		if !cachebust.IsLocal(ref.Value) {
			continue
		}
		value := ref.Value
		if i := strings.IndexByte(value, '#'); i >= 0 {
			value = value[:i]
		}
		ext := styleExtension(value)
		if ext == "" {
			continue
		}

		rel, ok := cachebust.Resolve(file.Path, ref.Value)
		if !ok {
			continue
		}
		source, err := os.ReadFile(run.InputPath(rel))
		if err != nil {
			if os.IsNotExist(err) {
				run.Logger.Warn(ctx, nil, "Stylesheet source not found, leaving link unchanged",
					"file", file.Path, "reference", ref.Value)
				continue
			}
			return nil, errors.ErrIO("read", rel, err)
		}

		if _, err := s.compile(ctx, run, rel, source); err != nil {
			return nil, err
		}

		// value is a prefix of ref.Value, so the extension sits right before
		// any fragment
		extStart := ref.Start + len(value) - len(ext)
		edits = append(edits, cachebust.Edit{
			Start:       extStart,
			End:         extStart + len(ext),
			Replacement: []byte(".css"),
		})
		removed = append(removed, plugins.Remove{Path: rel})
	}

	if len(edits) == 0 {
		return plugins.Keep{}, nil
	}

	out, err := cachebust.ApplyEdits(content, edits)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "rewriting stylesheet links", err).
			WithFile(file.Path)
	}

	batch := plugins.Batch{plugins.Content{Data: out}}
	return append(batch, removed...), nil
}

// compile runs the stylesheet compiler for rel once per build, emits the
// css and any artifacts next to it and returns the css.
func (s *Style) compile(ctx context.Context, run *plugins.Run, rel string, source []byte) ([]byte, error) {
	cssRel := s.Target(rel)
	return run.Memoize("style:"+rel, func() ([]byte, error) {
		res, err := run.Compile(ctx, styleCompilers[styleExtension(rel)], rel, source)
		if err != nil {
			return nil, err
		}
		if _, err := run.Emit(cssRel, res.Output); err != nil {
			return nil, err
		}
		for name, data := range res.Artifacts {
			if _, err := run.Emit(path.Join(path.Dir(cssRel), name), data); err != nil {
				return nil, err
			}
		}
		return res.Output, nil
	})
}

func styleExtension(p string) string {
	lower := strings.ToLower(p)
	for _, ext := range styleExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}
