package demobox

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"gopkg.in/yaml.v3"

	"github.com/livetemplate/demobox/internal/attrs"
)

// Frontmatter is the YAML block at the top of a page.
type Frontmatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// extractFrontmatter splits YAML frontmatter from content. It returns the
// remaining content and the number of lines removed.
func extractFrontmatter(content []byte) (*Frontmatter, []byte, int, error) {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return &Frontmatter{}, content, 0, nil
	}

	endIdx := bytes.Index(content[4:], []byte("\n---\n"))
	if endIdx == -1 {
		return nil, nil, 0, fmt.Errorf("unclosed frontmatter")
	}

	yamlContent := content[4 : 4+endIdx]
	remaining := content[4+endIdx+5:]

	var fm Frontmatter
	if err := yaml.Unmarshal(yamlContent, &fm); err != nil {
		return nil, nil, 0, fmt.Errorf("failed to parse YAML: %w", err)
	}
	lines := bytes.Count(content[:4+endIdx+5], []byte("\n"))
	return &fm, remaining, lines, nil
}

var demoOpenRe = regexp.MustCompile(`^<demo(?:\s|/?>|$)`)

// tagParser reads <demo ...> tags that start a line, including tags whose
// attributes span several lines.
type tagParser struct{}

func (p *tagParser) Trigger() []byte { return []byte{'<'} }

func (p *tagParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	if pc.BlockIndent() > 3 {
		return nil, parser.NoChildren
	}
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pos >= len(line) || !demoOpenRe.Match(bytes.TrimRight(line[pos:], "\r\n")) {
		return nil, parser.NoChildren
	}
	node := NewDemo()
	node.start = segment.Start
	node.Lines().Append(segment)
	node.complete = attrs.TagEnd(string(line[pos:])) >= 0
	reader.AdvanceToEOL()
	return node, parser.NoChildren
}

func (p *tagParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	n := node.(*Demo)
	if n.complete {
		return parser.Close
	}
	line, segment := reader.PeekLine()
	if util.IsBlank(line) {
		return parser.Close
	}
	n.Lines().Append(segment)
	n.complete = attrs.TagEnd(string(n.Lines().Value(reader.Source()))) >= 0
	reader.AdvanceToEOL()
	return parser.Continue | parser.NoChildren
}

func (p *tagParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {
	n := node.(*Demo)
	n.Annotation = string(n.Lines().Value(reader.Source()))
}

func (p *tagParser) CanInterruptParagraph() bool { return true }

func (p *tagParser) CanAcceptIndentedLine() bool { return false }

// containerParser reads ::: demo containers. The info text after the marker
// becomes the description and every body line is an attribute expression.
type containerParser struct{}

type containerData struct {
	fence int
}

var containerKey = parser.NewContextKey()

func (p *containerParser) Trigger() []byte { return []byte{':'} }

func (p *containerParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	if pc.BlockIndent() > 3 {
		return nil, parser.NoChildren
	}
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 {
		return nil, parser.NoChildren
	}
	rest := line[pos:]
	fence := 0
	for fence < len(rest) && rest[fence] == ':' {
		fence++
	}
	if fence < 3 {
		return nil, parser.NoChildren
	}
	info := string(bytes.TrimSpace(rest[fence:]))
	if !attrs.IsContainerInfo(info) {
		return nil, parser.NoChildren
	}
	node := NewDemo()
	node.Container = true
	node.Info = info
	pc.Set(containerKey, &containerData{fence: fence})
	node.start = segment.Start
	reader.AdvanceToEOL()
	return node, parser.NoChildren
}

func (p *containerParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, segment := reader.PeekLine()
	if line == nil {
		return parser.Close
	}
	data, _ := pc.Get(containerKey).(*containerData)
	trimmed := bytes.TrimSpace(line)
	if data != nil && len(trimmed) >= data.fence && len(bytes.Trim(trimmed, ":")) == 0 {
		reader.AdvanceToEOL()
		return parser.Close
	}
	node.Lines().Append(segment)
	reader.AdvanceToEOL()
	return parser.Continue | parser.NoChildren
}

func (p *containerParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {
	n := node.(*Demo)
	src := reader.Source()
	var body []string
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		body = append(body, string(bytes.TrimRight(seg.Value(src), "\r\n")))
	}
	n.Annotation = attrs.ContainerAnnotation(n.Info, body)
	pc.Set(containerKey, nil)
}

func (p *containerParser) CanInterruptParagraph() bool { return true }

func (p *containerParser) CanAcceptIndentedLine() bool { return false }
