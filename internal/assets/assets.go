// Package assets embeds the dev server's page shell and client files.
package assets

import (
	"bytes"
	"embed"
	"html/template"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
)

//go:embed client/*
var clientFS embed.FS

//go:embed templates/*
var templateFS embed.FS

// GetReloadJS returns the live reload client.
func GetReloadJS() ([]byte, error) {
	return clientFS.ReadFile("client/reload.js")
}

// GetPageCSS returns the page stylesheet.
func GetPageCSS() ([]byte, error) {
	return clientFS.ReadFile("client/page.css")
}

// GetChromaCSS returns the stylesheet for class-based highlighting in the
// named chroma style. Unknown names fall back to chroma's default style.
func GetChromaCSS(style string) ([]byte, error) {
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(style)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PageTemplate parses the page shell.
func PageTemplate() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/page.html")
}
