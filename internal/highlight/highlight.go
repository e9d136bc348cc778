// Package highlight turns demo source files into highlighted markup.
//
// Sources are wrapped in a synthetic Markdown fence and handed to a
// Renderer, normally the same goldmark instance that renders the page, so
// demo code looks exactly like the page's own code blocks.
package highlight

import (
	"encoding/base64"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var aliases = map[string]string{
	"htm": "html",
	"mjs": "js",
	"cjs": "js",
}

// Language returns the highlight language for a file path, derived from its
// extension.
func Language(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if alias, ok := aliases[ext]; ok {
		return alias
	}
	return ext
}

// Fence wraps code in a fenced block. The fence is longer than any backtick
// run inside code.
func Fence(code, lang, meta string) string {
	n := 3
	run := 0
	for i := 0; i < len(code); i++ {
		if code[i] == '`' {
			run++
			if run >= n {
				n = run + 1
			}
			continue
		}
		run = 0
	}
	fence := strings.Repeat("`", n)
	info := lang
	if meta = strings.TrimSpace(meta); meta != "" {
		info += " " + meta
	}
	if !strings.HasSuffix(code, "\n") {
		code += "\n"
	}
	return fence + info + "\n" + code + fence + "\n"
}

var typeHintRe = regexp.MustCompile(`(?:^|\s)twoslash(?:\s|$)`)

// IsTypeHintMode reports whether meta asks for type-hint annotations. Such
// markup is projected through a slot instead of the DOM stash.
func IsTypeHintMode(meta string) bool {
	return typeHintRe.MatchString(meta)
}

// DomIDPrefix starts every stash node id.
const DomIDPrefix = "vp-demo-hl-"

// DomID names the hidden node that carries pre-rendered markup for one
// language (or one file, when scope is a file name) of one demo.
func DomID(componentName string, index int, lang, scope string) string {
	key := componentName + "-" + strconv.Itoa(index) + "-" + lang + "-" + scope
	return DomIDPrefix + base64.RawURLEncoding.EncodeToString([]byte(key))
}

// Renderer renders Markdown source to HTML.
type Renderer interface {
	Render(src string) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(src string) (string, error)

// Render calls f.
func (f RendererFunc) Render(src string) (string, error) { return f(src) }
