package demobox

import (
	"bytes"
	"errors"
	"log/slog"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/livetemplate/demobox/internal/cache"
	"github.com/livetemplate/demobox/internal/compiler"
	"github.com/livetemplate/demobox/internal/config"
	"github.com/livetemplate/demobox/internal/highlight"
	"github.com/livetemplate/demobox/internal/paths"
)

const (
	blockParserPriority = 850
	transformerPriority = 100
	rendererPriority    = 100
)

var errNotExtended = errors.New("demobox: extension is not registered with a goldmark instance")

type options struct {
	logger      *slog.Logger
	cache       cache.Cache
	cacheTTL    time.Duration
	async       bool
	scriptSetup bool
	inline      bool
	style       string
	namer       *paths.Namer
}

// Option configures an Extension or a Markdown renderer.
type Option func(*options)

// WithLogger sets the logger diagnostics are written to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCache memoizes highlighted demo sources in c.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(o *options) {
		o.cache = c
		o.cacheTTL = ttl
	}
}

// WithAsyncHighlight defers code highlighting to a concurrent pass that runs
// after the document has been rendered.
func WithAsyncHighlight(async bool) Option {
	return func(o *options) { o.async = async }
}

// WithScriptSetup controls whether the script setup block is appended to
// documents that contain demos. It is on by default.
func WithScriptSetup(enabled bool) Option {
	return func(o *options) { o.scriptSetup = enabled }
}

// WithInlineHighlights carries highlighted markup in the wrapper's attributes
// instead of hidden stash nodes.
func WithInlineHighlights(inline bool) Option {
	return func(o *options) { o.inline = inline }
}

// WithHighlightStyle sets the chroma style used by Markdown.
func WithHighlightStyle(style string) Option {
	return func(o *options) { o.style = style }
}

// WithNamer shares the component name registry across extensions.
func WithNamer(n *paths.Namer) Option {
	return func(o *options) { o.namer = n }
}

func newOptions(opts []Option) options {
	o := options{
		logger:      slog.Default(),
		cacheTTL:    cache.DefaultTTL,
		scriptSetup: true,
		style:       "github",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Extension is a goldmark extension that compiles demo blocks.
//
// Demo sources are highlighted by the goldmark instance the extension is
// registered with, so an Extension belongs to exactly one instance.
type Extension struct {
	opts     options
	compiler *compiler.Compiler
	md       goldmark.Markdown
}

// NewExtension returns an extension compiling demos with cfg.
func NewExtension(cfg config.Resolved, opts ...Option) *Extension {
	return newExtension(cfg, newOptions(opts))
}

func newExtension(cfg config.Resolved, o options) *Extension {
	e := &Extension{opts: o}
	hopts := []highlight.Option{highlight.WithLogger(o.logger)}
	if o.cache != nil {
		hopts = append(hopts, highlight.WithCache(o.cache, o.cacheTTL))
	}
	copts := []compiler.Option{
		compiler.WithLogger(o.logger),
		compiler.WithInlineHighlights(o.inline),
	}
	if o.namer != nil {
		copts = append(copts, compiler.WithNamer(o.namer))
	}
	e.compiler = compiler.New(cfg, highlight.NewCollector(highlight.RendererFunc(e.render), hopts...), copts...)
	return e
}

// Compiler returns the compiler the extension uses.
func (e *Extension) Compiler() *compiler.Compiler { return e.compiler }

// Extend implements goldmark.Extender.
func (e *Extension) Extend(m goldmark.Markdown) {
	e.md = m
	m.Parser().AddOptions(
		parser.WithBlockParsers(
			util.Prioritized(&tagParser{}, blockParserPriority),
			util.Prioritized(&containerParser{}, blockParserPriority),
		),
		parser.WithASTTransformers(
			util.Prioritized(&transformer{ext: e}, transformerPriority),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(&nodeRenderer{ext: e}, rendererPriority),
		),
	)
}

// render highlights a synthetic fence through the goldmark instance.
func (e *Extension) render(src string) (string, error) {
	return e.convert(src, parser.NewContext())
}

// renderDeferred renders src so that its code blocks become placeholders of
// pending.
func (e *Extension) renderDeferred(src string, pending *highlight.Pending) (string, error) {
	return e.convert(src, WithPending(parser.NewContext(), pending))
}

func (e *Extension) convert(src string, pc parser.Context) (string, error) {
	if e.md == nil {
		return "", errNotExtended
	}
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(src), &buf, parser.WithContext(pc)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var (
	documentKey = parser.NewContextKey()
	pendingKey  = parser.NewContextKey()
	offsetKey   = parser.NewContextKey()
)

// NewContext returns a parser context for the document at documentPath.
// Relative demo paths resolve against the document's directory.
func NewContext(documentPath string) parser.Context {
	pc := parser.NewContext()
	pc.Set(documentKey, compiler.NewDocument(documentPath, nil))
	return pc
}

// DocumentFrom returns the compilation state carried by pc. A context made
// without NewContext gets a document with no path.
func DocumentFrom(pc parser.Context) *compiler.Document {
	if doc, ok := pc.Get(documentKey).(*compiler.Document); ok {
		return doc
	}
	doc := compiler.NewDocument("", nil)
	pc.Set(documentKey, doc)
	return doc
}

// WithPending makes documents parsed with pc defer their highlighting to
// pending. It returns pc.
func WithPending(pc parser.Context, pending *highlight.Pending) parser.Context {
	pc.Set(pendingKey, pending)
	return pc
}

func pendingFrom(pc parser.Context) *highlight.Pending {
	p, _ := pc.Get(pendingKey).(*highlight.Pending)
	return p
}

// withLineOffset shifts reported line numbers by n, the lines removed from
// the top of the source before parsing.
func withLineOffset(pc parser.Context, n int) parser.Context {
	pc.Set(offsetKey, n)
	return pc
}

func lineOffset(pc parser.Context) int {
	n, _ := pc.Get(offsetKey).(int)
	return n
}
