package demobox

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/livetemplate/demobox/internal/attrs"
	"github.com/livetemplate/demobox/internal/highlight"
)

// transformer turns demo annotations into compiled Demo nodes and, in async
// mode, fenced code blocks into AsyncFence nodes.
type transformer struct {
	ext *Extension
}

type replacement struct {
	old ast.Node
	new ast.Node
}

func (t *transformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	src := reader.Source()
	pending := pendingFrom(pc)

	var demos []*Demo
	var swaps []replacement
	var drops []ast.Node
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *Demo:
			demos = append(demos, v)
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			if d := demoFromHTMLBlock(v, src); d != nil {
				demos = append(demos, d)
				swaps = append(swaps, replacement{old: v, new: d})
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			d := demoFromRawHTML(v, src)
			if d == nil {
				return ast.WalkContinue, nil
			}
			demos = append(demos, d)
			if closing := closingTag(v, src); closing != nil {
				drops = append(drops, closing)
			}
			if p, ok := v.Parent().(*ast.Paragraph); ok && soleContent(p, v, src) {
				swaps = append(swaps, replacement{old: p, new: d})
				return ast.WalkSkipChildren, nil
			}
			swaps = append(swaps, replacement{old: v, new: d})
		case *ast.FencedCodeBlock:
			if pending != nil {
				af := &AsyncFence{pending: pending}
				af.Info = v.Info
				af.SetLines(v.Lines())
				swaps = append(swaps, replacement{old: v, new: af})
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, n := range drops {
		if p := n.Parent(); p != nil {
			p.RemoveChild(p, n)
		}
	}
	for _, r := range swaps {
		if p := r.old.Parent(); p != nil {
			p.ReplaceChild(p, r.old, r.new)
		}
	}
	if len(demos) == 0 {
		return
	}

	doc := DocumentFrom(pc)
	if pending != nil && doc.Renderer == nil {
		doc.Renderer = highlight.RendererFunc(func(s string) (string, error) {
			return t.ext.renderDeferred(s, pending)
		})
	}
	offset := lineOffset(pc)
	for _, d := range demos {
		d.Line = bytes.Count(src[:d.start], []byte("\n")) + 1 + offset
		d.Output = t.ext.compiler.CompileAt(doc, d.Annotation, d.Line)
	}
	if t.ext.opts.scriptSetup {
		node.AppendChild(node, &ScriptSetup{doc: doc})
	}
}

func demoFromHTMLBlock(n *ast.HTMLBlock, src []byte) *Demo {
	lines := n.Lines()
	if lines.Len() == 0 {
		return nil
	}
	var buf bytes.Buffer
	buf.Write(lines.Value(src))
	if n.HasClosure() {
		buf.Write(n.ClosureLine.Value(src))
	}
	content := attrs.StripComments(buf.String())
	at := attrs.TagStart(content)
	if at < 0 {
		return nil
	}
	d := NewDemo()
	d.start = lines.At(0).Start + at
	d.before = content[:at]
	if end := attrs.TagEnd(content); end >= 0 {
		d.Annotation = content[at:end]
		d.after = content[end:]
	} else {
		d.Annotation = content[at:]
	}
	return d
}

func demoFromRawHTML(n *ast.RawHTML, src []byte) *Demo {
	if n.Segments.Len() == 0 {
		return nil
	}
	content := string(n.Segments.Value(src))
	if !attrs.Matches(content) {
		return nil
	}
	d := NewDemo()
	d.Annotation = attrs.StripComments(content)
	d.start = n.Segments.At(0).Start
	return d
}

// closingTag returns the </demo> that follows an inline opening tag.
func closingTag(n *ast.RawHTML, src []byte) ast.Node {
	if strings.HasSuffix(strings.TrimSpace(string(n.Segments.Value(src))), "/>") {
		return nil
	}
	for s := n.NextSibling(); s != nil; s = s.NextSibling() {
		raw, ok := s.(*ast.RawHTML)
		if !ok {
			if isBlankText(s, src) {
				continue
			}
			return nil
		}
		if strings.TrimSpace(string(raw.Segments.Value(src))) == "</demo>" {
			return raw
		}
		return nil
	}
	return nil
}

// soleContent reports whether raw, and possibly its closing tag, is all
// there is in p.
func soleContent(p *ast.Paragraph, raw *ast.RawHTML, src []byte) bool {
	for c := p.FirstChild(); c != nil; c = c.NextSibling() {
		if c == raw || isBlankText(c, src) {
			continue
		}
		if r, ok := c.(*ast.RawHTML); ok && strings.TrimSpace(string(r.Segments.Value(src))) == "</demo>" {
			continue
		}
		return false
	}
	return true
}

func isBlankText(n ast.Node, src []byte) bool {
	t, ok := n.(*ast.Text)
	return ok && len(bytes.TrimSpace(t.Segment.Value(src))) == 0
}
