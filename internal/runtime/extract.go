package runtime

import (
	"encoding/json"
	"strings"

	"golang.org/x/net/html"

	"github.com/livetemplate/demobox/internal/attrs"
)

// FindDemos returns the wrapper elements named tag under n in document order.
func FindDemos(n *html.Node, tag string) []*html.Node {
	tag = strings.ToLower(tag)
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// PropsFromNode reads the props of a compiled wrapper element. Bound props
// such as :vueCode carry an expression; resolve maps it to its value and may
// be nil, in which case the expression itself is kept.
func PropsFromNode(n *html.Node, resolve func(expr string) string) Props {
	if resolve == nil {
		resolve = func(expr string) string { return expr }
	}
	var p Props
	for _, a := range n.Attr {
		switch a.Key {
		case "v-bind":
			rest(&p, a.Val)
		case "files":
			p.Files = a.Val
		case "codehighlights":
			p.CodeHighlights = a.Val
		case "codehighlightdomkeys":
			p.CodeHighlightDomKeys = a.Val
		case "stackblitz":
			p.Stackblitz = a.Val
		case "codesandbox":
			p.Codesandbox = a.Val
		case "locale":
			p.Locale = a.Val
		case ":vuecode":
			p.VueCode = resolve(a.Val)
		case ":reactcode":
			p.ReactCode = resolve(a.Val)
		case ":htmlcode":
			p.HTMLCode = resolve(a.Val)
		case ":reactcomponent":
			p.ReactComponent = a.Val
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "template" {
			continue
		}
		for _, t := range attrs.ComponentTypes {
			if hasAttr(c, "#code-"+string(t)) {
				if p.Slots == nil {
					p.Slots = make(map[attrs.ComponentType]string)
				}
				p.Slots[t] = slotMarkup(c)
			}
		}
	}
	return p
}

// slotMarkup unwraps the v-pre container the compiler puts around slots.
func slotMarkup(tmpl *html.Node) string {
	if c := tmpl.FirstChild; c != nil && c == tmpl.LastChild && c.Type == html.ElementNode && hasAttr(c, "v-pre") {
		return InnerHTML(c)
	}
	return InnerHTML(tmpl)
}

// rest applies the pass-through props the runtime understands.
func rest(p *Props, raw string) {
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return
	}
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	p.Title = str("title")
	p.Description = str("description")
	p.Select = attrs.ComponentType(str("select"))
	p.Order = str("order")
	p.Github = str("github")
	p.Gitlab = str("gitlab")
	p.HTMLWriteWay = str("htmlWriteWay")
	if v, ok := m["codeFold"].(bool); ok {
		p.CodeFold = &v
	}
}
