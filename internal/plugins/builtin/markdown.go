// Package builtin provides the plugins every build runs: Markdown pages,
// stylesheet compilation, cache busting, template splicing and plugins
// backed by user configured commands.
package builtin

import (
	"context"
	"fmt"
	"html"

	"github.com/conneroisu/simplest/internal/compiler"
	"github.com/conneroisu/simplest/internal/errors"
	"github.com/conneroisu/simplest/internal/layout"
	"github.com/conneroisu/simplest/internal/plugins"
)

var markdownExtensions = []string{".md", ".markdown"}

// Markdown renders Markdown files to template-driven HTML pages. Front
// matter keys become page variables.
type Markdown struct{}

func (Markdown) Name() string         { return "markdown" }
func (Markdown) Extensions() []string { return markdownExtensions }

// Target maps page.md to page.html.
func (Markdown) Target(path string) string {
	return plugins.ReplaceExtension(path, markdownExtensions, ".html")
}

func (m Markdown) Parse(ctx context.Context, run *plugins.Run, file plugins.File, content []byte) (plugins.Action, error) {
	vars, body, err := compiler.SplitFrontMatter(content)
	if err != nil {
		return nil, errors.ErrCompileFailed(file.Path, m.Name(), err)
	}

	res, err := run.Compile(ctx, "markdown", file.Path, body)
	if err != nil {
		return nil, err
	}

	page := layout.Compose(pageVars(vars), res.Output)
	return plugins.Rename{Path: m.Target(file.Path), Data: page}, nil
}

func pageVars(vars map[string]interface{}) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = html.EscapeString(fmt.Sprint(v))
	}
	return out
}
