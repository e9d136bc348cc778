// Package paths resolves author-written demo paths and derives the component
// identifiers generated code refers to them by.
package paths

import (
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
)

// Resolve anchors value at demoDir, or at the directory of documentPath when
// demoDir is empty. The result is a clean absolute path with forward slashes.
func Resolve(value, demoDir, documentPath string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = filepath.FromSlash(value)
	if !filepath.IsAbs(value) {
		base := demoDir
		if base == "" {
			base = filepath.Dir(documentPath)
		}
		value = filepath.Join(base, value)
	}
	if abs, err := filepath.Abs(value); err == nil {
		value = abs
	}
	return filepath.ToSlash(filepath.Clean(value))
}

// Within reports whether p lies inside root. Both are made absolute and
// symlinks are followed where they exist, so a link inside root that points
// elsewhere is outside.
func Within(root, p string) bool {
	if root == "" || p == "" {
		return false
	}
	root, p = realPath(root), realPath(p)
	if root == p {
		return true
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func realPath(p string) string {
	p = filepath.FromSlash(p)
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if real, err := filepath.EvalSymlinks(p); err == nil {
		return real
	}
	// A missing file still sits in a directory that may be a link.
	if dir, err := filepath.EvalSymlinks(filepath.Dir(p)); err == nil {
		return filepath.Join(dir, filepath.Base(p))
	}
	return filepath.Clean(p)
}

// Namer hands out component identifiers. The same path always maps to the
// same name and two paths never share one. Safe for concurrent use.
type Namer struct {
	mu     sync.Mutex
	byPath map[string]string
	byName map[string]string
}

// NewNamer returns an empty registry.
func NewNamer() *Namer {
	return &Namer{
		byPath: make(map[string]string),
		byName: make(map[string]string),
	}
}

// ComponentName returns the identifier for absPath: "Demo", the PascalCase
// file stem and eight hex digits of a name-based UUID of the path.
func (n *Namer) ComponentName(absPath string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if name, ok := n.byPath[absPath]; ok {
		return name
	}
	base := baseName(absPath)
	name := base
	for i := 2; ; i++ {
		owner, taken := n.byName[name]
		if !taken || owner == absPath {
			break
		}
		name = base + strconv.Itoa(i)
	}
	n.byPath[absPath] = name
	n.byName[name] = absPath
	return name
}

func baseName(absPath string) string {
	stem := strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
	sum := strings.ReplaceAll(uuid.NewSHA1(uuid.NameSpaceURL, []byte(absPath)).String(), "-", "")
	return "Demo" + PascalCase(stem) + sum[:8]
}

// SSGName is the identifier of the eagerly imported variant of name.
func SSGName(name string) string { return name + "Ssg" }

// PascalCase joins the alphanumeric runs of s, each starting upper case.
func PascalCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) || r > unicode.MaxASCII {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
