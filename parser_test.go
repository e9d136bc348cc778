package demobox

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/livetemplate/demobox/internal/config"
)

func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantFM    Frontmatter
		wantBody  string
		wantLines int
	}{
		{
			name: "complete frontmatter",
			content: `---
title: "Buttons"
description: Every button we ship
---

# Hello World`,
			wantFM:    Frontmatter{Title: "Buttons", Description: "Every button we ship"},
			wantBody:  "# Hello World",
			wantLines: 4,
		},
		{
			name: "no frontmatter",
			content: `# Hello World

Some content`,
			wantBody: "# Hello World\n\nSome content",
		},
		{
			name:      "windows line endings",
			content:   "---\r\ntitle: Simple\r\n---\r\nContent",
			wantFM:    Frontmatter{Title: "Simple"},
			wantBody:  "Content",
			wantLines: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, remaining, lines, err := extractFrontmatter([]byte(tt.content))
			if err != nil {
				t.Fatalf("extractFrontmatter() error = %v", err)
			}

			if fm.Title != tt.wantFM.Title {
				t.Errorf("Title = %q, want %q", fm.Title, tt.wantFM.Title)
			}
			if fm.Description != tt.wantFM.Description {
				t.Errorf("Description = %q, want %q", fm.Description, tt.wantFM.Description)
			}
			if lines != tt.wantLines {
				t.Errorf("lines = %d, want %d", lines, tt.wantLines)
			}

			body := strings.TrimSpace(string(remaining))
			want := strings.TrimSpace(tt.wantBody)
			if body != want {
				t.Errorf("remaining body = %q, want %q", body, want)
			}
		})
	}
}

func TestParseFrontmatterErrors(t *testing.T) {
	for _, content := range []string{
		"---\ntitle: open\n",
		"---\ntitle: [unbalanced\n---\nbody",
	} {
		if _, _, _, err := extractFrontmatter([]byte(content)); err == nil {
			t.Errorf("extractFrontmatter(%q) expected an error", content)
		}
	}
}

// parseDemos parses src and returns its demo nodes.
func parseDemos(t *testing.T, src string) []*Demo {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	md := goldmark.New(goldmark.WithExtensions(NewExtension(config.Normalize(config.PluginConfig{}), WithLogger(quiet))))

	doc := md.Parser().Parse(text.NewReader([]byte(src)))
	var demos []*Demo
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if d, ok := n.(*Demo); ok && entering {
			demos = append(demos, d)
		}
		return ast.WalkContinue, nil
	})
	return demos
}

func TestParseDemoBlocks(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantCount int
		wantAnnot string
		wantLine  int
	}{
		{
			name:      "self-closing tag",
			src:       "intro\n\n<demo vue=\"./A.vue\" />\n",
			wantCount: 1,
			wantAnnot: `<demo vue="./A.vue" />`,
			wantLine:  3,
		},
		{
			name:      "tag across lines",
			src:       "<demo\n  vue=\"./A.vue\"\n/>\n\nnext\n",
			wantCount: 1,
			wantAnnot: "<demo\n  vue=\"./A.vue\"\n/>",
			wantLine:  1,
		},
		{
			name:      "container",
			src:       "text\n\n::: demo Shows A\nvue=\"./A.vue\"\n:::\n",
			wantCount: 1,
			wantAnnot: `<demo vue="./A.vue" description="Shows A" />`,
			wantLine:  3,
		},
		{
			name:      "indented code is not a demo",
			src:       "    <demo vue=\"./A.vue\" />\n",
			wantCount: 0,
		},
		{
			name:      "fenced code is not a demo",
			src:       "```html\n<demo vue=\"./A.vue\" />\n```\n",
			wantCount: 0,
		},
		{
			name:      "other containers are left alone",
			src:       "::: tip\nhello\n:::\n",
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			demos := parseDemos(t, tt.src)
			if len(demos) != tt.wantCount {
				t.Fatalf("got %d demos, want %d", len(demos), tt.wantCount)
			}
			if tt.wantCount == 0 {
				return
			}
			d := demos[0]
			if got := strings.TrimSpace(d.Annotation); got != tt.wantAnnot {
				t.Errorf("Annotation = %q, want %q", got, tt.wantAnnot)
			}
			if d.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", d.Line, tt.wantLine)
			}
		})
	}
}
