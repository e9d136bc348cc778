package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/livetemplate/demobox/internal/config"
)

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand("1.2.3")
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

// setupDocs writes a page with one HTML demo and returns its path.
func setupDocs(t *testing.T, page string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"demo.html": "<div class=\"box\">hello</div>\n",
		"page.md":   page,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return filepath.Join(dir, "page.md")
}

const demoPage = "---\ntitle: Boxes\n---\n# Boxes\n\n<demo html=\"./demo.html\" title=\"Box\" />\n"

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "demobox version 1.2.3\n" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestRenderCommand(t *testing.T) {
	page := setupDocs(t, demoPage)

	out, err := execute(t, "render", page)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(out, "<"+config.DefaultWrapperComponentName) {
		t.Error("output has no demo box")
	}
	if strings.Contains(out, "<!DOCTYPE html>") {
		t.Error("fragment output was wrapped in a page")
	}
}

func TestRenderCommandToFile(t *testing.T) {
	page := setupDocs(t, demoPage)
	target := filepath.Join(t.TempDir(), "out.html")

	out, err := execute(t, "render", page, "-o", target, "--page")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if out != "" {
		t.Errorf("stdout should be empty, got %q", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	html := string(data)
	for _, want := range []string{"<!DOCTYPE html>", "<title>Boxes | demobox</title>", "<style>", ".chroma"} {
		if !strings.Contains(html, want) {
			t.Errorf("page is missing %q", want)
		}
	}
	if strings.Contains(html, "/assets/page.css") {
		t.Error("standalone page links server assets")
	}
}

func TestRenderCommandSSG(t *testing.T) {
	page := setupDocs(t, demoPage)

	out, err := execute(t, "render", page, "--ssg")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if strings.Contains(out, "<"+config.DefaultPlaceholderComponentName) {
		t.Error("ssg output still uses the placeholder")
	}
}

func TestRenderCommandErrors(t *testing.T) {
	if _, err := execute(t, "render"); err == nil {
		t.Error("expected an error without a file")
	}

	_, err := execute(t, "render", "/nonexistent/page.md")
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("expected 'does not exist' error, got: %v", err)
	}

	page := setupDocs(t, "<demo vue=\"./Missing.vue\" />\n")
	if _, err := execute(t, "render", page); err != nil {
		t.Errorf("diagnostics should not fail a plain render: %v", err)
	}
	if _, err := execute(t, "render", page, "--strict"); err == nil {
		t.Error("expected --strict to fail on diagnostics")
	}

	_, err = execute(t, "render", page, "--config", "/nonexistent/demobox.yaml")
	if err == nil || !strings.Contains(err.Error(), "config file does not exist") {
		t.Errorf("expected missing config error, got: %v", err)
	}
}

func TestRenderCommandConfigFromDir(t *testing.T) {
	page := setupDocs(t, demoPage)
	cfg := "wrapperComponentName: my-demo-box\n"
	if err := os.WriteFile(filepath.Join(filepath.Dir(page), "demobox.yaml"), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "render", page)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(out, "<my-demo-box") {
		t.Error("wrapper name from demobox.yaml was not used")
	}
}

func TestInspectCommand(t *testing.T) {
	page := setupDocs(t, demoPage)

	out, err := execute(t, "inspect", page)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	for _, want := range []string{": 1 demos", "selected: html"} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "init", dir, "--demo-dir", "../demos")
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	target := filepath.Join(dir, config.FileNames[0])
	if !strings.Contains(out, target) {
		t.Errorf("unexpected output: %q", out)
	}

	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if want := filepath.Join(dir, "..", "demos"); cfg.DemoDir != want {
		t.Errorf("DemoDir = %q, want %q", cfg.DemoDir, want)
	}
	if got := config.Normalize(*cfg).WrapperComponentName; got != config.DefaultWrapperComponentName {
		t.Errorf("WrapperComponentName = %q", got)
	}

	if _, err := execute(t, "init", dir); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected 'already exists' error, got: %v", err)
	}
	if _, err := execute(t, "init", dir, "--force"); err != nil {
		t.Errorf("--force should overwrite: %v", err)
	}
}

func TestServeCommandMissingDir(t *testing.T) {
	_, err := execute(t, "serve", "/nonexistent/docs")
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("expected 'does not exist' error, got: %v", err)
	}
}
