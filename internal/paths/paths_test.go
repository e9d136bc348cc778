package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	root := t.TempDir()
	slashRoot := filepath.ToSlash(root)
	doc := filepath.Join(root, "docs", "guide", "page.md")

	tests := []struct {
		name    string
		value   string
		demoDir string
		want    string
	}{
		{"document relative", "./Button.vue", "", slashRoot + "/docs/guide/Button.vue"},
		{"parent of document", "../demos/Button.vue", "", slashRoot + "/docs/demos/Button.vue"},
		{"demo dir wins", "./Button.vue", filepath.Join(root, "demos"), slashRoot + "/demos/Button.vue"},
		{"nested", "react/App.tsx", filepath.Join(root, "demos"), slashRoot + "/demos/react/App.tsx"},
		{"absolute stays", slashRoot + "/abs/x.vue", filepath.Join(root, "demos"), slashRoot + "/abs/x.vue"},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.value, tt.demoDir, doc))
		})
	}
}

func TestWithin(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "demos"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.vue"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.vue"), filepath.Join(root, "demos", "link.vue")))

	tests := []struct {
		name string
		p    string
		want bool
	}{
		{"root itself", root, true},
		{"nested", filepath.Join(root, "demos", "Button.vue"), true},
		{"missing file inside", filepath.Join(root, "nope.vue"), true},
		{"slash form", filepath.ToSlash(filepath.Join(root, "demos", "x.vue")), true},
		{"parent escape", filepath.Join(root, "demos", "..", "..", "etc", "passwd"), false},
		{"other dir", filepath.Join(outside, "secret.vue"), false},
		{"sibling prefix", root + "-other/x.vue", false},
		{"symlink out", filepath.Join(root, "demos", "link.vue"), false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Within(root, tt.p))
		})
	}
}

func TestComponentNameShape(t *testing.T) {
	n := NewNamer()
	name := n.ComponentName("/site/demos/my-button.vue")

	assert.Regexp(t, regexp.MustCompile(`^DemoMyButton[0-9a-f]{8}$`), name)
	assert.Equal(t, name, n.ComponentName("/site/demos/my-button.vue"))
	assert.Equal(t, name, NewNamer().ComponentName("/site/demos/my-button.vue"), "names are stable across registries")
}

func TestComponentNamesNeverCollide(t *testing.T) {
	n := NewNamer()
	seen := make(map[string]string)
	for i := 0; i < 200; i++ {
		p := fmt.Sprintf("/site/demos/%d/Button.vue", i)
		name := n.ComponentName(p)
		if other, dup := seen[name]; dup {
			t.Fatalf("%s and %s share %s", other, p, name)
		}
		seen[name] = p
	}
}

func TestComponentNameClashGetsSuffix(t *testing.T) {
	n := NewNamer()
	a := n.ComponentName("/x/a.vue")

	// Force a clash by registering a different path under a's name.
	n.byName[a] = "/x/other.vue"
	delete(n.byPath, "/x/a.vue")

	b := n.ComponentName("/x/a.vue")
	assert.Equal(t, a+"2", b)
	assert.Equal(t, b, n.ComponentName("/x/a.vue"))
}

func TestComponentNameConcurrent(t *testing.T) {
	n := NewNamer()
	var wg sync.WaitGroup
	names := make([]string, 16)
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			names[i] = n.ComponentName("/same/path.tsx")
		}(i)
	}
	wg.Wait()
	for _, name := range names {
		require.Equal(t, names[0], name)
	}
}

func TestPascalCase(t *testing.T) {
	tests := map[string]string{
		"button":        "Button",
		"my-button":     "MyButton",
		"my_fancy.demo": "MyFancyDemo",
		"App":           "App",
		"2col layout":   "2colLayout",
		"按钮":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, PascalCase(in), in)
	}
}

func TestSSGName(t *testing.T) {
	assert.Equal(t, "DemoButtonabcdef12Ssg", SSGName("DemoButtonabcdef12"))
}
