package compiler

import (
	"context"
	"log/slog"

	"github.com/livetemplate/demobox/internal/highlight"
	"github.com/livetemplate/demobox/internal/inject"
)

// Document is the compilation state of one Markdown document. It lives for
// a single render pass and is not safe for concurrent use.
type Document struct {
	// Path is the document's file path; relative demo paths resolve against
	// its directory when no demo directory is configured.
	Path string
	// Injector receives the script setup statements of every demo.
	Injector inject.Injector
	// Renderer, when set, replaces the compiler's highlight renderer for
	// this document.
	Renderer highlight.Renderer
	// Root, when set, confines demo sources to this directory and the
	// configured demo directory. Sources elsewhere are dropped with a
	// diagnostic.
	Root string

	index       int
	diagnostics []*Diagnostic
}

// NewDocument returns the state for a fresh document. A nil injector gets a
// new inject.Table.
func NewDocument(path string, injector inject.Injector) *Document {
	if injector == nil {
		injector = inject.NewTable()
	}
	return &Document{Path: path, Injector: injector}
}

// NextIndex advances the demo counter. The first demo is 1.
func (d *Document) NextIndex() int {
	d.index++
	return d.index
}

// Index returns the number of demos compiled so far.
func (d *Document) Index() int { return d.index }

// Diagnostics returns what went wrong so far, in order.
func (d *Document) Diagnostics() []*Diagnostic {
	return append([]*Diagnostic(nil), d.diagnostics...)
}

// ScriptSetup renders the injected statements when the injector is the
// default table.
func (d *Document) ScriptSetup() string {
	if t, ok := d.Injector.(*inject.Table); ok {
		return t.ScriptSetup()
	}
	return ""
}

func (d *Document) report(logger *slog.Logger, diag *Diagnostic) {
	d.diagnostics = append(d.diagnostics, diag)
	logger.Log(context.Background(), diag.Level, diag.Message, "diagnostic", diag)
}
