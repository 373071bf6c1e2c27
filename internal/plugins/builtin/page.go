package builtin

import (
	"context"

	"github.com/conneroisu/simplest/internal/layout"
	"github.com/conneroisu/simplest/internal/plugins"
)

// Page splices template-driven pages into their directory template. It is
// inactive while templates themselves are built.
type Page struct {
	HTMLExtensions []string
}

func (p *Page) Name() string         { return "page" }
func (p *Page) Extensions() []string { return p.HTMLExtensions }

func (p *Page) Parse(_ context.Context, run *plugins.Run, file plugins.File, content []byte) (plugins.Action, error) {
	if run.Phase == plugins.PhaseTemplate || file.Template == nil || !layout.IsPage(content) {
		return plugins.Keep{}, nil
	}
	return plugins.Content{Data: layout.Render(file.Template, content)}, nil
}
