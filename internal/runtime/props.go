package runtime

import (
	"strings"

	"github.com/livetemplate/demobox/internal/attrs"
)

// Props are the inputs of a demo box as the wrapper component receives them.
// Encoded props hold the percent-encoded JSON produced by the compiler.
type Props struct {
	Title       string
	Description string
	Select      attrs.ComponentType
	Order       string
	Github      string
	Gitlab      string
	// CodeFold is the initial fold state; nil means folded.
	CodeFold *bool
	// HTMLWriteWay is "write" to write the preview document directly,
	// anything else assigns srcdoc.
	HTMLWriteWay string

	VueCode   string
	ReactCode string
	HTMLCode  string

	Files                string
	CodeHighlights       string
	CodeHighlightDomKeys string
	Stackblitz           string
	Codesandbox          string
	Locale               string

	// Slots holds the markup of #code-<lang> template slots.
	Slots map[attrs.ComponentType]string

	ReactComponent any
}

// Code returns the inline source of t.
func (p Props) Code(t attrs.ComponentType) string {
	switch t {
	case attrs.React:
		return p.ReactCode
	case attrs.HTML:
		return p.HTMLCode
	default:
		return p.VueCode
	}
}

// order returns the tab order, falling back to vue, react, html.
func (p Props) order() []attrs.ComponentType {
	if strings.TrimSpace(p.Order) == "" {
		return defaultOrder
	}
	var out []attrs.ComponentType
	for _, item := range strings.Split(p.Order, ",") {
		out = append(out, attrs.ComponentType(strings.TrimSpace(item)))
	}
	return out
}
