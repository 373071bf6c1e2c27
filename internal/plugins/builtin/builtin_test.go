package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/simplest/internal/compiler"
	"github.com/conneroisu/simplest/internal/config"
	"github.com/conneroisu/simplest/internal/errors"
	"github.com/conneroisu/simplest/internal/plugins"
)

// fakeCSS stands in for an external stylesheet compiler.
var fakeCSS = compiler.Func(func(_ context.Context, src compiler.Source) (compiler.Result, error) {
	if strings.Contains(string(src.Content), "error") {
		return compiler.Result{}, fmt.Errorf("Error: expected \"}\"")
	}
	return compiler.Result{
		Output:    []byte(strings.ReplaceAll(string(src.Content), "$c", "red")),
		Artifacts: map[string][]byte{"site.css.map": []byte("{}")},
	}, nil
})

func newRun(t *testing.T) *plugins.Run {
	t.Helper()
	cfg := config.Default()
	cfg.Input = t.TempDir()
	cfg.Output = t.TempDir()

	table := compiler.Defaults()
	table.Register("scss", fakeCSS)
	return plugins.NewRun(cfg, table, nil, nil)
}

func writeInput(t *testing.T, run *plugins.Run, rel, content string) {
	t.Helper()
	path := run.InputPath(rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestMarkdown(t *testing.T) {
	run := newRun(t)
	run.Phase = plugins.PhaseContent
	md := Markdown{}

	assert.Equal(t, "blog/post.html", md.Target("blog/post.md"))
	assert.Equal(t, "notes.html", md.Target("notes.markdown"))

	action, err := md.Parse(context.Background(), run,
		plugins.File{Path: "blog/post.md", Source: "blog/post.md"},
		[]byte("---\ntitle: Fish & Chips\n---\n# Hello\n"))
	require.NoError(t, err)

	rename, ok := action.(plugins.Rename)
	require.True(t, ok)
	assert.Equal(t, "blog/post.html", rename.Path)
	assert.Equal(t,
		"<!-- build:title -->Fish &amp; Chips<!-- /build:title -->\n"+
			"<!-- build:content --><h1 id=\"hello\">Hello</h1>\n<!-- /build:content -->\n",
		string(rename.Data))
}

func TestMarkdownBadFrontMatter(t *testing.T) {
	run := newRun(t)
	_, err := Markdown{}.Parse(context.Background(), run,
		plugins.File{Path: "a.md"}, []byte("---\ntitle: x\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCompilerError(err))
}

func TestStyleStandalone(t *testing.T) {
	run := newRun(t)
	style := &Style{HTMLExtensions: run.Config.HTMLExtensions}

	action, err := style.Parse(context.Background(), run,
		plugins.File{Path: "css/site.scss"}, []byte("body{color:$c}"))
	require.NoError(t, err)
	assert.Equal(t, plugins.Rename{Path: "css/site.css", Data: []byte("body{color:red}")}, action)

	mapData, err := os.ReadFile(run.OutputPath("css/site.css.map"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(mapData))

	action, err = style.Parse(context.Background(), run,
		plugins.File{Path: "css/_vars.scss"}, []byte("$c: red;"))
	require.NoError(t, err)
	assert.Equal(t, plugins.Remove{Path: "css/_vars.scss"}, action)
}

func TestStyleCompileFailure(t *testing.T) {
	run := newRun(t)
	style := &Style{HTMLExtensions: run.Config.HTMLExtensions}

	_, err := style.Parse(context.Background(), run,
		plugins.File{Path: "site.scss"}, []byte("error"))
	require.Error(t, err)
	assert.True(t, errors.IsCompilerError(err))
	assert.Contains(t, err.Error(), "site.scss")
}

func TestStyleRewritesLinks(t *testing.T) {
	run := newRun(t)
	writeInput(t, run, "style.scss", "body{color:$c}")
	style := &Style{HTMLExtensions: run.Config.HTMLExtensions}

	doc := `<head><link rel="stylesheet" href="style.scss"><link href="missing.scss"><link href="plain.css"></head>`
	action, err := style.Parse(context.Background(), run,
		plugins.File{Path: "template.html"}, []byte(doc))
	require.NoError(t, err)

	batch, ok := action.(plugins.Batch)
	require.True(t, ok)
	require.Len(t, batch, 2)
	assert.Equal(t,
		plugins.Content{Data: []byte(`<head><link rel="stylesheet" href="style.css"><link href="missing.scss"><link href="plain.css"></head>`)},
		batch[0])
	assert.Equal(t, plugins.Remove{Path: "style.scss"}, batch[1])

	css, err := os.ReadFile(run.OutputPath("style.css"))
	require.NoError(t, err)
	assert.Equal(t, "body{color:red}", string(css))

	artifact, ok := run.Artifacts.Get("style.css")
	require.True(t, ok)
	assert.Equal(t, "body{color:red}", string(artifact))
}

func TestStyleKeepsHTMLWithoutStylesheetSources(t *testing.T) {
	run := newRun(t)
	style := &Style{HTMLExtensions: run.Config.HTMLExtensions}

	action, err := style.Parse(context.Background(), run,
		plugins.File{Path: "index.html"}, []byte(`<link href="a.css">`))
	require.NoError(t, err)
	assert.Equal(t, plugins.Keep{}, action)
}

func TestCacheBust(t *testing.T) {
	run := newRun(t)
	writeInput(t, run, "style.css", "body{color:red}")
	cb := &CacheBust{HTMLExtensions: run.Config.HTMLExtensions}

	action, err := cb.Parse(context.Background(), run,
		plugins.File{Path: "index.html"}, []byte(`<link href="style.css">`))
	require.NoError(t, err)
	assert.Equal(t, plugins.Content{Data: []byte(`<link href="style.css?20im5j">`)}, action)

	action, err = cb.Parse(context.Background(), run,
		plugins.File{Path: "index.html"}, []byte(`<p>no assets</p>`))
	require.NoError(t, err)
	assert.Equal(t, plugins.Keep{}, action)
}

func TestPage(t *testing.T) {
	run := newRun(t)
	page := &Page{HTMLExtensions: run.Config.HTMLExtensions}
	template := []byte("<main><!-- build:content --></main>")
	content := []byte("<!-- build:content -->Hello<!-- /build:content -->")

	action, err := page.Parse(context.Background(), run,
		plugins.File{Path: "index.html", Template: template}, content)
	require.NoError(t, err)
	assert.Equal(t, plugins.Keep{}, action, "inactive while templates are built")

	run.Phase = plugins.PhaseContent
	action, err = page.Parse(context.Background(), run,
		plugins.File{Path: "index.html", Template: template}, content)
	require.NoError(t, err)
	assert.Equal(t, plugins.Content{Data: []byte("<main>Hello</main>")}, action)

	action, err = page.Parse(context.Background(), run,
		plugins.File{Path: "raw.html", Template: template}, []byte("<p>raw</p>"))
	require.NoError(t, err)
	assert.Equal(t, plugins.Keep{}, action)
}

func TestCommand(t *testing.T) {
	run := newRun(t)
	cfg := config.PluginConfig{Name: "pug", Extensions: []string{".pug"}, Command: "pug", OutputExtension: ".html"}
	run.Compilers.Register("pug", compiler.Func(func(_ context.Context, src compiler.Source) (compiler.Result, error) {
		return compiler.Result{Output: []byte("<p>" + string(src.Content) + "</p>")}, nil
	}))

	cmd := &Command{Config: cfg}
	assert.Equal(t, "pug", cmd.Name())
	assert.Equal(t, "a/b.html", cmd.Target("a/b.pug"))

	action, err := cmd.Parse(context.Background(), run, plugins.File{Path: "a/b.pug"}, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, plugins.Rename{Path: "a/b.html", Data: []byte("<p>hi</p>")}, action)

	inPlace := &Command{Config: config.PluginConfig{Name: "pug", Extensions: []string{".pug"}}}
	action, err = inPlace.Parse(context.Background(), run, plugins.File{Path: "a/b.pug"}, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, plugins.Content{Data: []byte("<p>hi</p>")}, action)
}

func TestDefaultsOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Plugins = []config.PluginConfig{{Name: "pug", Extensions: []string{".pug"}, Command: "pug"}}

	var names []string
	for _, p := range Defaults(cfg) {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"pug", "markdown", "style", "cachebust", "page"}, names)

	table := compiler.NewTable()
	RegisterCommands(cfg, table)
	_, err := table.Get("pug")
	assert.NoError(t, err)
}

func TestRegisterCommandsKeepsExisting(t *testing.T) {
	cfg := config.Default()
	cfg.Plugins = []config.PluginConfig{{Name: "pug", Extensions: []string{".pug"}, Command: "pug"}}

	table := compiler.NewTable()
	table.Register("pug", fakeCSS)
	RegisterCommands(cfg, table)

	c, err := table.Get("pug")
	require.NoError(t, err)
	_, isExec := c.(*compiler.Exec)
	assert.False(t, isExec)
}
