package demobox

import (
	"context"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/livetemplate/demobox/internal/highlight"
)

type nodeRenderer struct {
	ext *Extension
}

func (r *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindDemo, r.renderDemo)
	reg.Register(KindAsyncFence, r.renderAsyncFence)
	reg.Register(KindScriptSetup, r.renderScriptSetup)
}

func (r *nodeRenderer) renderDemo(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	n := node.(*Demo)
	_, _ = w.WriteString(n.before)
	writeBlock(w, n.Output)
	_, _ = w.WriteString(n.after)
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderAsyncFence(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	n := node.(*AsyncFence)
	code := n.Code(source)
	lang := string(n.Language(source))
	meta := n.Meta(source)
	ext := r.ext
	placeholder := n.pending.Add(code, lang, func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return ext.render(highlight.Fence(code, lang, meta))
	})
	writeBlock(w, placeholder)
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderScriptSetup(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	n := node.(*ScriptSetup)
	writeBlock(w, n.doc.ScriptSetup())
	return ast.WalkSkipChildren, nil
}

func writeBlock(w util.BufWriter, s string) {
	if s == "" {
		return
	}
	_, _ = w.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		_ = w.WriteByte('\n')
	}
}
