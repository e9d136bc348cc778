// Package demobox renders Markdown pages that embed live component demos.
//
// A demo is written as a <demo> tag or a ::: demo container naming Vue,
// React or plain HTML sources:
//
//	<demo vue="./Button.vue" title="Button" description="A basic button" />
//
// Each demo compiles to an invocation of the wrapper component, carrying the
// sources, their highlighted markup and the settings of the online
// playgrounds. Imports the demos need are collected per document and
// emitted as a single <script setup> block.
//
// The goldmark extension can be registered with any goldmark instance;
// Markdown bundles it with GFM and chroma highlighting.
package demobox

import (
	"bytes"
	"context"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/livetemplate/demobox/internal/compiler"
	"github.com/livetemplate/demobox/internal/config"
	"github.com/livetemplate/demobox/internal/highlight"
)

// Markdown renders pages with the demo extension.
type Markdown struct {
	md   goldmark.Markdown
	ext  *Extension
	opts options
}

// Result is a rendered page.
type Result struct {
	HTML        string
	Frontmatter Frontmatter
	// Demos is the number of demos compiled.
	Demos       int
	Diagnostics []*compiler.Diagnostic
}

// New returns a renderer for cfg.
func New(cfg config.Resolved, opts ...Option) *Markdown {
	o := newOptions(opts)
	ext := newExtension(cfg, o)
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(o.style),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
			ext,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
	return &Markdown{md: md, ext: ext, opts: o}
}

// Goldmark returns the underlying goldmark instance.
func (m *Markdown) Goldmark() goldmark.Markdown { return m.md }

// Compiler returns the demo compiler.
func (m *Markdown) Compiler() *compiler.Compiler { return m.ext.compiler }

// Style returns the chroma style name code blocks are highlighted with.
func (m *Markdown) Style() string { return m.opts.style }

// Render renders src synchronously. It satisfies highlight.Renderer.
func (m *Markdown) Render(src string) (string, error) {
	return m.ext.render(src)
}

var _ highlight.Renderer = (*Markdown)(nil)

// ConvertOption configures a single Convert call.
type ConvertOption func(*compiler.Document)

// ConfineTo drops demo sources that resolve outside root and the configured
// demo directory. Use it for Markdown that comes from untrusted clients.
func ConfineTo(root string) ConvertOption {
	return func(d *compiler.Document) { d.Root = root }
}

// Convert renders the page src located at documentPath. Frontmatter is
// parsed and stripped; in async mode the deferred highlights are resolved
// before Convert returns.
func (m *Markdown) Convert(ctx context.Context, src []byte, documentPath string, opts ...ConvertOption) (*Result, error) {
	fm, body, offset, err := extractFrontmatter(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	pc := withLineOffset(NewContext(documentPath), offset)
	for _, opt := range opts {
		opt(DocumentFrom(pc))
	}
	var pending *highlight.Pending
	if m.opts.async {
		pending = highlight.NewPending(m.opts.logger)
		WithPending(pc, pending)
	}

	var buf bytes.Buffer
	if err := m.md.Convert(body, &buf, parser.WithContext(pc)); err != nil {
		return nil, fmt.Errorf("failed to render HTML: %w", err)
	}

	doc := DocumentFrom(pc)
	return &Result{
		HTML:        ResolvePlaceholders(ctx, buf.String(), pending),
		Frontmatter: *fm,
		Demos:       doc.Index(),
		Diagnostics: doc.Diagnostics(),
	}, nil
}
