/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package content

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// RenderOptions configures one rendering pass.
type RenderOptions struct {
	// Extensions names goldmark extensions to enable. Empty means the
	// defaults: gfm, linkify, tasklist.
	Extensions []string

	// HardWraps renders single newlines as <br>.
	HardWraps bool

	// AllowHTML passes raw HTML blocks through. Corpus articles embed the
	// occasional <details> block, so the engine defaults this to true; feeds
	// built from untrusted input must leave it false.
	AllowHTML bool

	// ImageRewrite, when set, maps every image destination before rendering.
	// Used to point relative corpus paths at the CDN.
	ImageRewrite func(string) string
}

// Renderer turns article Markdown into HTML. It is stateless; one instance
// serves all requests without locking.
type Renderer struct {
	defaults RenderOptions
}

// NewRenderer constructs a renderer with the given default options.
func NewRenderer(defaults RenderOptions) *Renderer {
	return &Renderer{defaults: defaults}
}

// Render converts Markdown to HTML using the renderer's defaults.
func (r *Renderer) Render(source []byte) ([]byte, error) {
	return r.RenderWithOptions(source, r.defaults)
}

// RenderWithOptions converts Markdown to HTML using the provided options.
func (r *Renderer) RenderWithOptions(source []byte, opts RenderOptions) ([]byte, error) {
	engine := newEngine(opts)
	var buf bytes.Buffer
	if err := engine.Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	return buf.Bytes(), nil
}

func newEngine(opts RenderOptions) goldmark.Markdown {
	parserOptions := []parser.Option{
		parser.WithAutoHeadingID(),
	}
	if opts.ImageRewrite != nil {
		parserOptions = append(parserOptions, parser.WithASTTransformers(
			util.Prioritized(&imageRewriter{rewrite: opts.ImageRewrite}, 100),
		))
	}

	var rendererOptions []renderer.Option
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if opts.AllowHTML {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	engineOptions := []goldmark.Option{
		goldmark.WithParserOptions(parserOptions...),
	}
	if len(rendererOptions) > 0 {
		engineOptions = append(engineOptions, goldmark.WithRendererOptions(rendererOptions...))
	}
	if exts := collectExtensions(opts.Extensions); len(exts) > 0 {
		engineOptions = append(engineOptions, goldmark.WithExtensions(exts...))
	}

	return goldmark.New(engineOptions...)
}

// imageRewriter rewrites image destinations during parsing, before the HTML
// renderer sees them.
type imageRewriter struct {
	rewrite func(string) string
}

func (t *imageRewriter) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			img.Destination = []byte(t.rewrite(string(img.Destination)))
		}
		return ast.WalkContinue, nil
	})
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
}

func collectExtensions(names []string) []goldmark.Extender {
	if len(names) == 0 {
		return []goldmark.Extender{
			extension.GFM,
			extension.Linkify,
			extension.TaskList,
		}
	}

	var extenders []goldmark.Extender
	seen := map[string]struct{}{}
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		ext, ok := extensionRegistry[key]
		if !ok {
			continue
		}
		extenders = append(extenders, ext)
		seen[key] = struct{}{}
	}
	return extenders
}
