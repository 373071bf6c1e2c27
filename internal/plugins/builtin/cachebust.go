package builtin

import (
	"context"

	"github.com/conneroisu/simplest/internal/errors"
	"github.com/conneroisu/simplest/internal/plugins"
)

// CacheBust appends content hashes to local asset references in HTML files.
type CacheBust struct {
	HTMLExtensions []string
}

func (c *CacheBust) Name() string         { return "cachebust" }
func (c *CacheBust) Extensions() []string { return c.HTMLExtensions }

func (c *CacheBust) Parse(ctx context.Context, run *plugins.Run, file plugins.File, content []byte) (plugins.Action, error) {
	out, changed, err := run.Rewriter.Rewrite(ctx, content, file.Path)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "rewriting asset references", err).
			WithFile(file.Path).
			WithPlugin(c.Name())
	}
	if !changed {
		return plugins.Keep{}, nil
	}
	return plugins.Content{Data: out}, nil
}
