package compiler

import (
	"bytes"
	"context"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// Markdown renders CommonMark to HTML with goldmark. Options: gfm (default
// true), unsafe raw HTML (default true), typographer, heading_ids (default
// true), hard_wraps and xhtml.
type Markdown struct{}

// Compile renders src.Content, which must already have its front matter
// removed.
func (Markdown) Compile(_ context.Context, src Source) (Result, error) {
	opts := src.Options

	var exts []goldmark.Extender
	if opts.Bool("gfm", true) {
		exts = append(exts, extension.GFM)
	}
	if opts.Bool("typographer", false) {
		exts = append(exts, extension.Typographer)
	}

	var parserOpts []parser.Option
	if opts.Bool("heading_ids", true) {
		parserOpts = append(parserOpts, parser.WithAutoHeadingID())
	}

	var rendererOpts []renderer.Option
	if opts.Bool("unsafe", true) {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}
	if opts.Bool("hard_wraps", false) {
		rendererOpts = append(rendererOpts, html.WithHardWraps())
	}
	if opts.Bool("xhtml", false) {
		rendererOpts = append(rendererOpts, html.WithXHTML())
	}

	md := goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parserOpts...),
		goldmark.WithRendererOptions(rendererOpts...),
	)

	var buf bytes.Buffer
	if err := md.Convert(src.Content, &buf); err != nil {
		return Result{}, err
	}
	return Result{Output: buf.Bytes()}, nil
}
