package highlight

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/livetemplate/demobox/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguage(t *testing.T) {
	tests := map[string]string{
		"/a/Button.vue":   "vue",
		"/a/page.HTM":     "html",
		"/a/page.html":    "html",
		"/a/util.mjs":     "js",
		"/a/util.cjs":     "js",
		"/a/App.tsx":      "tsx",
		"/a/Makefile":     "",
		"C:/x/styles.CSS": "css",
	}
	for in, want := range tests {
		assert.Equal(t, want, Language(in), in)
	}
}

func TestFence(t *testing.T) {
	assert.Equal(t, "```vue\n<template/>\n```\n", Fence("<template/>", "vue", ""))
	assert.Equal(t, "```ts twoslash\nconst a = 1\n```\n", Fence("const a = 1\n", "ts", " twoslash "))

	code := "const s = `a` + ```b```"
	got := Fence(code, "js", "")
	assert.True(t, strings.HasPrefix(got, "````js\n"), got)
	assert.True(t, strings.HasSuffix(got, "\n````\n"), got)
}

func TestIsTypeHintMode(t *testing.T) {
	assert.True(t, IsTypeHintMode("twoslash"))
	assert.True(t, IsTypeHintMode("{1,3} twoslash"))
	assert.False(t, IsTypeHintMode("twoslashy"))
	assert.False(t, IsTypeHintMode(""))
}

func TestDomID(t *testing.T) {
	id := DomID("DemoButton1a2b3c4d", 2, "vue", "App.vue")
	require.True(t, strings.HasPrefix(id, DomIDPrefix))

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(id, DomIDPrefix))
	require.NoError(t, err)
	assert.Equal(t, "DemoButton1a2b3c4d-2-vue-App.vue", string(raw))
	assert.Equal(t, id, DomID("DemoButton1a2b3c4d", 2, "vue", "App.vue"))
	assert.NotEqual(t, id, DomID("DemoButton1a2b3c4d", 3, "vue", "App.vue"))
	assert.NotContains(t, id, "=")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestCollectorFile(t *testing.T) {
	dir := t.TempDir()
	vue := writeFile(t, dir, "Button.vue", "<template><button/></template>")
	empty := writeFile(t, dir, "empty.ts", "")

	var seen []string
	col := NewCollector(RendererFunc(func(src string) (string, error) {
		seen = append(seen, src)
		return "<pre>ok</pre>", nil
	}))

	src, ok := col.File(vue, "")
	require.True(t, ok)
	assert.Equal(t, "vue", src.Lang)
	assert.Equal(t, "<template><button/></template>", src.Code)
	assert.Equal(t, "<pre>ok</pre>", src.HTML)
	assert.NoError(t, src.Err)
	assert.Equal(t, []string{"```vue\n<template><button/></template>\n```\n"}, seen)

	_, ok = col.File(empty, "")
	assert.False(t, ok, "empty files are omitted")

	_, ok = col.File(filepath.Join(dir, "missing.ts"), "")
	assert.False(t, ok, "missing files are omitted")
}

func TestCollectorDegradesOnFailure(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.ts", "let a = 1")

	failing := NewCollector(RendererFunc(func(string) (string, error) {
		return "<pre>partial</pre>", errors.New("boom")
	}))
	src, ok := failing.File(p, "")
	require.True(t, ok)
	assert.Equal(t, "", src.HTML)
	assert.ErrorContains(t, src.Err, "boom")

	panicking := NewCollector(RendererFunc(func(string) (string, error) {
		panic("renderer bug")
	}))
	src, ok = panicking.File(p, "")
	require.True(t, ok)
	assert.Equal(t, "", src.HTML)
	assert.ErrorContains(t, src.Err, "renderer bug")
	assert.Equal(t, "let a = 1", src.Code)
}

func TestCollectorCache(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Stop()

	calls := 0
	col := NewCollector(RendererFunc(func(string) (string, error) {
		calls++
		return "<pre>x</pre>", nil
	}), WithCache(c, time.Minute))

	for i := 0; i < 3; i++ {
		html, err := col.Render("a", "ts", "")
		require.NoError(t, err)
		assert.Equal(t, "<pre>x</pre>", html)
	}
	assert.Equal(t, 1, calls)

	_, _ = col.Render("a", "ts", "twoslash")
	assert.Equal(t, 2, calls, "meta is part of the key")

	other := col.WithRenderer(RendererFunc(func(string) (string, error) {
		calls++
		return "<pre>y</pre>", nil
	}))
	html, _ := other.Render("a", "ts", "")
	assert.Equal(t, "<pre>x</pre>", html, "copies share the cache")
	assert.Equal(t, 2, calls)
}

func TestCollectorDoesNotCachePlaceholders(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Stop()

	p := NewPending(nil)
	col := NewCollector(RendererFunc(func(string) (string, error) {
		return p.Add("a", "ts", nil), nil
	}), WithCache(c, time.Minute))

	_, err := col.Render("a", "ts", "")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestCollectorReadFileOverride(t *testing.T) {
	col := NewCollector(RendererFunc(func(src string) (string, error) { return src, nil }),
		WithReadFile(func(p string) ([]byte, error) {
			if p == "/virtual/a.mjs" {
				return []byte("export {}"), nil
			}
			return nil, os.ErrNotExist
		}))

	src, ok := col.File("/virtual/a.mjs", "")
	require.True(t, ok)
	assert.Equal(t, "js", src.Lang)
	assert.Contains(t, src.HTML, "```js")
}
