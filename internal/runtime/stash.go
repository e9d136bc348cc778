package runtime

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// DocumentStash is a Stash over a parsed HTML document. Each node is handed
// over at most once: Take detaches it from the tree.
type DocumentStash struct {
	mu  sync.Mutex
	doc *html.Node
}

// NewDocumentStash wraps doc.
func NewDocumentStash(doc *html.Node) *DocumentStash {
	return &DocumentStash{doc: doc}
}

// ParseStash parses r as an HTML document.
func ParseStash(r io.Reader) (*DocumentStash, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return NewDocumentStash(doc), nil
}

// Take implements Stash.
func (s *DocumentStash) Take(id string) string {
	if id == "" {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := FindByID(s.doc, id)
	if n == nil {
		return ""
	}
	inner := InnerHTML(n)
	n.Parent.RemoveChild(n)
	return inner
}

// Render writes the remaining document.
func (s *DocumentStash) Render(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return html.Render(w, s.doc)
}

// Root returns the document node.
func (s *DocumentStash) Root() *html.Node { return s.doc }

// FindByID returns the first element under n whose id is id.
func FindByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && attr(n, "id") == id && n.Parent != nil {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FindByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

func attr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	key = strings.ToLower(key)
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
