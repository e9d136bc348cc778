// Package inject collects the import and setup statements demo blocks need in
// their page's <script setup> region.
package inject

import (
	"strings"
	"sync"
)

// Mode selects how a module is brought into the page.
type Mode int

const (
	// Static emits an eager import declaration.
	Static Mode = iota
	// Dynamic loads the module's default export after mount.
	Dynamic
	// Raw inserts the binding text as a statement; module is only its key.
	Raw
)

func (m Mode) String() string {
	switch m {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	case Raw:
		return "inject"
	}
	return "unknown"
}

// Injector adds statements to a document's script setup region. Injecting the
// same module and binding twice must be a no-op.
type Injector interface {
	Inject(module, binding string, mode Mode)
}

// Entry is one recorded injection.
type Entry struct {
	Module  string
	Binding string
	Mode    Mode
}

type key struct{ module, binding string }

// Table is the default Injector. It keeps injections in first-seen order.
type Table struct {
	mu      sync.Mutex
	entries []Entry
	seen    map[key]bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{seen: make(map[key]bool)}
}

// Inject records an injection unless the same module and binding is present.
func (t *Table) Inject(module, binding string, mode Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key{module, binding}
	if t.seen[k] {
		return
	}
	t.seen[k] = true
	t.entries = append(t.entries, Entry{Module: module, Binding: binding, Mode: mode})
}

// Entries returns a copy of the recorded injections.
func (t *Table) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// Len returns the number of recorded injections.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Statements renders the injections: static imports first, then raw
// statements, then the lazy loaders.
func (t *Table) Statements() []string {
	entries := t.Entries()
	var static, raw, dynamic []string
	var loaders []string
	for _, e := range entries {
		switch e.Mode {
		case Static:
			if e.Binding == "" {
				static = append(static, "import "+quote(e.Module)+";")
			} else {
				static = append(static, "import "+e.Binding+" from "+quote(e.Module)+";")
			}
		case Raw:
			raw = append(raw, e.Binding)
		case Dynamic:
			dynamic = append(dynamic, "const "+e.Binding+" = shallowRef(null);")
			loaders = append(loaders, "  "+e.Binding+".value = (await import("+quote(e.Module)+")).default;")
		}
	}
	out := append(static, raw...)
	out = append(out, dynamic...)
	if len(loaders) > 0 {
		out = append(out, "onMounted(async () => {\n"+strings.Join(loaders, "\n")+"\n});")
	}
	return out
}

// ScriptSetup renders the table as a <script setup> block, or "" when empty.
func (t *Table) ScriptSetup() string {
	stmts := t.Statements()
	if len(stmts) == 0 {
		return ""
	}
	return "<script setup>\n" + strings.Join(stmts, "\n") + "\n</script>\n"
}

func quote(module string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, "'", `\'`).Replace(module) + "'"
}
