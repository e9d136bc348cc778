package demobox

import (
	"bytes"
	"strconv"

	"github.com/yuin/goldmark/ast"

	"github.com/livetemplate/demobox/internal/compiler"
	"github.com/livetemplate/demobox/internal/highlight"
)

// KindDemo is the node kind of a demo block.
var KindDemo = ast.NewNodeKind("Demo")

// Demo is a demo annotation found in the document. It starts out as the
// raw tag or container text and carries the compiled markup once the
// transformer has run.
type Demo struct {
	ast.BaseBlock

	// Annotation is the <demo ... /> tag text.
	Annotation string
	// Info is the container info string, for ::: demo blocks.
	Info string
	// Container marks blocks written as ::: demo containers.
	Container bool
	// Line is the 1-based source line of the block.
	Line int
	// Output is the compiled markup.
	Output string

	// before and after hold the HTML around a tag found inside an HTML
	// block.
	before, after string

	start    int
	complete bool
}

// NewDemo returns an empty demo node.
func NewDemo() *Demo { return &Demo{} }

// Kind implements ast.Node.
func (n *Demo) Kind() ast.NodeKind { return KindDemo }

// IsRaw implements ast.Node.
func (n *Demo) IsRaw() bool { return true }

// Dump implements ast.Node.
func (n *Demo) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Annotation": n.Annotation,
		"Line":       strconv.Itoa(n.Line),
	}, nil)
}

// KindAsyncFence is the node kind of a fenced code block highlighted after
// rendering.
var KindAsyncFence = ast.NewNodeKind("AsyncFence")

// AsyncFence is a fenced code block whose highlighting is deferred to the
// placeholder post-pass.
type AsyncFence struct {
	ast.FencedCodeBlock
	pending *highlight.Pending
}

// Kind implements ast.Node.
func (n *AsyncFence) Kind() ast.NodeKind { return KindAsyncFence }

// IsRaw implements ast.Node.
func (n *AsyncFence) IsRaw() bool { return true }

// Code returns the block's content.
func (n *AsyncFence) Code(source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

// Meta returns the info string after the language.
func (n *AsyncFence) Meta(source []byte) string {
	if n.Info == nil {
		return ""
	}
	info := bytes.TrimSpace(n.Info.Value(source))
	if i := bytes.IndexAny(info, " \t"); i >= 0 {
		return string(bytes.TrimSpace(info[i:]))
	}
	return ""
}

// KindScriptSetup is the node kind of the document's script setup block.
var KindScriptSetup = ast.NewNodeKind("ScriptSetup")

// ScriptSetup renders the statements demos injected into their document.
type ScriptSetup struct {
	ast.BaseBlock
	doc *compiler.Document
}

// Kind implements ast.Node.
func (n *ScriptSetup) Kind() ast.NodeKind { return KindScriptSetup }

// IsRaw implements ast.Node.
func (n *ScriptSetup) IsRaw() bool { return true }

// Dump implements ast.Node.
func (n *ScriptSetup) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}
