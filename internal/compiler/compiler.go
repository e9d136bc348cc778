// Package compiler turns a demo annotation into the markup of a wrapper
// component invocation plus the script setup statements it depends on.
package compiler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/livetemplate/demobox/internal/attrs"
	"github.com/livetemplate/demobox/internal/config"
	"github.com/livetemplate/demobox/internal/highlight"
	"github.com/livetemplate/demobox/internal/inject"
	"github.com/livetemplate/demobox/internal/paths"
)

// Modules imported into pages that contain demos.
const (
	WrapperModule      = "vitepress-better-demo-plugin/theme/default"
	WrapperStyleModule = "vitepress-better-demo-plugin/theme/default/style"
	WrapperBindings    = "{ VitepressDemoPlaceholder, VitepressDemoBox }"
	VueBindings        = "{ ref, shallowRef, onMounted }"
	ReactBindings      = "{ createElement as reactCreateElement, useLayoutEffect as reactUseLayoutEffect }"
	ReactDOMBindings   = "{ createRoot as reactCreateRoot }"
)

// Compiler compiles demo annotations. It is safe for concurrent use as long
// as each goroutine works on its own Document.
type Compiler struct {
	cfg       config.Resolved
	collector *highlight.Collector
	namer     *paths.Namer
	logger    *slog.Logger
	inline    bool
	stat      func(string) (os.FileInfo, error)
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger diagnostics are written to.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithNamer shares a component name registry between compilers.
func WithNamer(n *paths.Namer) Option {
	return func(c *Compiler) { c.namer = n }
}

// WithInlineHighlights carries highlighted markup inside the encoded
// attributes instead of hidden stash nodes.
func WithInlineHighlights(inline bool) Option {
	return func(c *Compiler) { c.inline = inline }
}

// New returns a compiler for cfg that highlights through collector.
func New(cfg config.Resolved, collector *highlight.Collector, opts ...Option) *Compiler {
	c := &Compiler{
		cfg:       cfg,
		collector: collector,
		namer:     paths.NewNamer(),
		logger:    slog.Default(),
		stat:      os.Stat,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the resolved configuration.
func (c *Compiler) Config() config.Resolved { return c.cfg }

// demo is the working state of one compilation.
type demo struct {
	doc   *Document
	line  int
	index int
	attrs *attrs.Attributes
	ssg   bool

	name         string
	paths        map[attrs.ComponentType]string
	bindings     map[attrs.ComponentType]string
	codeVars     map[attrs.ComponentType]string
	placeholder  string
	files        Files
	highlights   LangMap
	domKeys      LangMap
	slots        map[attrs.ComponentType]string
	stash        []stashNode
	collector    *highlight.Collector
	wrapperName  string
	placeholderC string
}

// fileScope prefixes the stash ids of extra files so a file named "inline"
// cannot share an id with the component source.
const fileScope = "file:"

type stashNode struct {
	id   string
	html string
}

// Compile compiles one annotation for doc.
func (c *Compiler) Compile(doc *Document, annotation string) string {
	return c.CompileAt(doc, annotation, 0)
}

// CompileAt is Compile for an annotation starting at line of the document.
// It never fails: problems are recorded as diagnostics on doc and the
// affected values are left empty.
func (c *Compiler) CompileAt(doc *Document, annotation string, line int) (out string) {
	d := &demo{doc: doc, line: line, index: doc.NextIndex()}
	defer func() {
		if r := recover(); r != nil {
			c.report(d, slog.LevelError, "demo could not be compiled", fmt.Errorf("panic: %v", r))
			out = ""
		}
	}()

	d.attrs = attrs.Parse(annotation, c.cfg.Defaults())
	d.ssg = c.cfg.SSGFor(d.attrs)
	d.wrapperName = c.cfg.WrapperName(d.attrs)
	d.placeholderC = c.cfg.PlaceholderName(d.attrs)
	d.collector = c.collector
	if doc.Renderer != nil && d.collector != nil {
		d.collector = d.collector.WithRenderer(doc.Renderer)
	}

	c.resolvePaths(d)
	c.injectImports(d)
	c.collectHighlights(d)
	c.collectFiles(d)
	return c.markup(d)
}

// resolvePaths resolves the component paths and names the demo.
func (c *Compiler) resolvePaths(d *demo) {
	d.paths = make(map[attrs.ComponentType]string)
	for _, t := range attrs.ComponentTypes {
		v, ok := d.attrs.Get(string(t))
		if !ok || v.Kind != attrs.KindString || strings.TrimSpace(v.Str) == "" {
			continue
		}
		p := paths.Resolve(v.Str, c.cfg.DemoDir, d.doc.Path)
		if !c.confined(d, p) {
			continue
		}
		if _, err := c.stat(p); err != nil {
			c.report(d, slog.LevelWarn, fmt.Sprintf("%s component %s not found", t, v.Str), err)
			continue
		}
		d.paths[t] = p
	}

	// The vue path names the demo, then html, then react.
	anchor := ""
	for _, t := range []attrs.ComponentType{attrs.Vue, attrs.HTML, attrs.React} {
		if p := d.paths[t]; p != "" {
			anchor = p
			break
		}
	}
	if anchor == "" {
		anchor = paths.Resolve(".", c.cfg.DemoDir, d.doc.Path)
	}
	d.name = c.namer.ComponentName(anchor)

	d.bindings = make(map[attrs.ComponentType]string)
	d.codeVars = make(map[attrs.ComponentType]string)
	for t := range d.paths {
		b := d.name
		if t == attrs.React {
			b = "react" + d.name
		}
		if d.ssg {
			b = paths.SSGName(b)
		}
		d.bindings[t] = b
		d.codeVars[t] = codeVar(t, d.name)
	}
	if !d.ssg {
		d.placeholder = fmt.Sprintf("__placeholder_visible_%s_%d__", d.name, d.index)
	}
}

func codeVar(t attrs.ComponentType, name string) string {
	switch t {
	case attrs.React:
		return "TempCodeReact" + name
	case attrs.HTML:
		return "TempCodeHtml" + name
	default:
		return "TempCodeVue" + name
	}
}

// injectImports requests every script setup statement the markup uses.
func (c *Compiler) injectImports(d *demo) {
	inj := d.doc.Injector
	if c.cfg.AutoImportWrapper {
		inj.Inject(WrapperModule, WrapperBindings, inject.Static)
		inj.Inject(WrapperStyleModule, "", inject.Static)
	}
	inj.Inject("vue", VueBindings, inject.Static)

	mode := inject.Dynamic
	if d.ssg {
		mode = inject.Static
	}
	if p := d.paths[attrs.Vue]; p != "" {
		inj.Inject(p, d.bindings[attrs.Vue], mode)
	}
	if p := d.paths[attrs.React]; p != "" {
		inj.Inject("react", ReactBindings, inject.Static)
		inj.Inject("react-dom/client", ReactDOMBindings, inject.Static)
		inj.Inject(p, d.bindings[attrs.React], mode)
	}

	if d.placeholder != "" {
		inj.Inject(d.placeholder, "const "+d.placeholder+" = ref(true);", inject.Raw)
	}

	for _, t := range []attrs.ComponentType{attrs.HTML, attrs.React, attrs.Vue} {
		if p := d.paths[t]; p != "" {
			inj.Inject(p+"?raw", d.codeVars[t], inject.Static)
		}
	}
}

// collectHighlights renders the component sources.
func (c *Compiler) collectHighlights(d *demo) {
	d.slots = make(map[attrs.ComponentType]string)
	if d.collector == nil {
		return
	}
	for _, t := range attrs.ComponentTypes {
		p := d.paths[t]
		if p == "" {
			continue
		}
		meta := c.cfg.Meta(t, d.attrs)
		src, ok := d.collector.File(p, meta)
		if !ok {
			continue
		}
		if src.Err != nil {
			c.report(d, slog.LevelWarn, fmt.Sprintf("highlighting %s failed", p), src.Err)
		}
		if src.HTML == "" {
			continue
		}
		switch {
		case highlight.IsTypeHintMode(meta):
			d.slots[t] = src.HTML
		case c.inline:
			d.highlights.Set(t, src.HTML)
		default:
			id := highlight.DomID(d.name, d.index, string(t), "inline")
			d.domKeys.Set(t, id)
			d.stash = append(d.stash, stashNode{id: id, html: src.HTML})
		}
	}
}

// collectFiles builds the files payload. Entries whose file is missing or
// empty are dropped.
func (c *Compiler) collectFiles(d *demo) {
	for _, t := range attrs.ComponentTypes {
		listing := d.attrs.Files(t.FilesKey())
		if len(listing) == 0 {
			continue
		}
		meta := c.cfg.Meta(t, d.attrs)
		fm := d.files.For(t)
		for _, f := range listing {
			abs := paths.Resolve(f.Path, c.cfg.DemoDir, d.doc.Path)
			if !c.confined(d, abs) {
				continue
			}
			entry := CodeFile{Filename: f.Path}
			if d.collector == nil {
				data, err := os.ReadFile(abs)
				if err != nil || len(data) == 0 {
					c.report(d, slog.LevelDebug, fmt.Sprintf("file %s omitted", f.Path), err)
					continue
				}
				entry.Code = string(data)
				*fm = append(*fm, NamedFile{Name: f.Name, File: entry})
				continue
			}
			src, ok := d.collector.File(abs, meta)
			if !ok {
				c.report(d, slog.LevelDebug, fmt.Sprintf("file %s omitted", f.Path), nil)
				continue
			}
			if src.Err != nil {
				c.report(d, slog.LevelWarn, fmt.Sprintf("highlighting %s failed", f.Path), src.Err)
			}
			entry.Code = src.Code
			if src.HTML != "" {
				if highlight.IsTypeHintMode(meta) || c.inline {
					entry.HTML = src.HTML
				} else {
					entry.HTMLDomKey = highlight.DomID(d.name, d.index, string(t), fileScope+f.Name)
					d.stash = append(d.stash, stashNode{id: entry.HTMLDomKey, html: src.HTML})
				}
			}
			*fm = append(*fm, NamedFile{Name: f.Name, File: entry})
		}
	}
}

// locale returns the encoded locale table. A locale attribute replaces the
// configured table; one that is not a JSON object encodes as "".
func (c *Compiler) locale(d *demo) string {
	if v, ok := d.attrs.Get("locale"); ok {
		raw := strings.TrimSpace(v.Text())
		var table map[string]any
		if err := json.Unmarshal([]byte(raw), &table); err != nil {
			c.report(d, slog.LevelWarn, "locale attribute is not a JSON object", err).
				WithHint(`write it as locale={{"zh-CN":{"copy":"复制"}}}`)
			return ""
		}
		return EncodeComponent(table)
	}
	if len(c.cfg.Locale) == 0 {
		return ""
	}
	return EncodeComponent(c.cfg.Locale)
}

// confined reports whether the document may read p, recording a diagnostic
// when it may not.
func (c *Compiler) confined(d *demo, p string) bool {
	root := d.doc.Root
	if root == "" || paths.Within(root, p) || (c.cfg.DemoDir != "" && paths.Within(c.cfg.DemoDir, p)) {
		return true
	}
	c.report(d, slog.LevelWarn, fmt.Sprintf("source %s is outside the allowed directories", filepath.Base(p)), nil)
	return false
}

func (c *Compiler) report(d *demo, level slog.Level, msg string, err error) *Diagnostic {
	diag := &Diagnostic{
		File:    d.doc.Path,
		Line:    d.line,
		Demo:    d.index,
		Level:   level,
		Message: msg,
		Err:     err,
	}
	d.doc.report(c.logger, diag)
	return diag
}
