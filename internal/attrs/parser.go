package attrs

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

var (
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	demoTagRe = regexp.MustCompile(`<demo(?:\s|/?>|$)`)
)

// recognized lists the keys the compiler consumes. Everything else is
// handed to the wrapper component untouched.
var recognized = map[string]bool{
	"vue":                      true,
	"html":                     true,
	"react":                    true,
	"vueFiles":                 true,
	"reactFiles":               true,
	"htmlFiles":                true,
	"ssg":                      true,
	"stackblitz":               true,
	"codesandbox":              true,
	"wrapperComponentName":     true,
	"placeholderComponentName": true,
	"codeMeta":                 true,
	"vueMeta":                  true,
	"reactMeta":                true,
	"htmlMeta":                 true,
	"locale":                   true,
}

// IsRecognized reports whether key is consumed by the compiler.
func IsRecognized(key string) bool { return recognized[key] }

func isFilesKey(key string) bool {
	return key == Vue.FilesKey() || key == React.FilesKey() || key == HTML.FilesKey()
}

// StripComments removes HTML comments so commented-out demos stay inert.
func StripComments(s string) string {
	return commentRe.ReplaceAllString(s, "")
}

// Matches reports whether content holds an active demo tag.
func Matches(content string) bool {
	return demoTagRe.MatchString(StripComments(content))
}

// Entry is a key with its parsed value.
type Entry struct {
	Key   string
	Value Value
}

// Attributes is an ordered attribute set.
type Attributes struct {
	entries []Entry
	index   map[string]int
}

// New returns an empty attribute set.
func New() *Attributes {
	return &Attributes{index: make(map[string]int)}
}

// Set stores v under key. Repeated *Files keys concatenate, all other keys
// keep the last value.
func (a *Attributes) Set(key string, v Value) {
	if i, ok := a.index[key]; ok {
		prev := a.entries[i].Value
		if isFilesKey(key) && prev.Kind == KindFiles && v.Kind == KindFiles {
			v = FilesValue(prev.Files.Merge(v.Files))
		}
		a.entries[i].Value = v
		return
	}
	a.index[key] = len(a.entries)
	a.entries = append(a.entries, Entry{Key: key, Value: v})
}

// Get returns the value for key.
func (a *Attributes) Get(key string) (Value, bool) {
	i, ok := a.index[key]
	if !ok {
		return Value{}, false
	}
	return a.entries[i].Value, true
}

// Has reports whether key is present.
func (a *Attributes) Has(key string) bool {
	_, ok := a.index[key]
	return ok
}

// String returns the text form of key, or "" when absent.
func (a *Attributes) String(key string) string {
	v, ok := a.Get(key)
	if !ok {
		return ""
	}
	return v.Text()
}

// Bool returns the boolean reading of key. ok is false when the key is
// absent or does not spell a boolean.
func (a *Attributes) Bool(key string) (value, ok bool) {
	v, present := a.Get(key)
	if !present {
		return false, false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool, true
	case KindString:
		switch strings.TrimSpace(v.Str) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// Files returns the file listing stored under key.
func (a *Attributes) Files(key string) FileList {
	v, ok := a.Get(key)
	if !ok {
		return nil
	}
	if v.Kind == KindFiles {
		return v.Files
	}
	fl, _ := ParseFileList(v.Text())
	return fl
}

// Entries returns all entries in parse order.
func (a *Attributes) Entries() []Entry {
	return append([]Entry(nil), a.entries...)
}

// Rest returns the entries the compiler does not consume.
func (a *Attributes) Rest() []Entry {
	var out []Entry
	for _, e := range a.entries {
		if !recognized[e.Key] {
			out = append(out, e)
		}
	}
	return out
}

// RestJSON encodes the pass-through entries as a JSON object in parse order.
func (a *Attributes) RestJSON() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range a.Rest() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(e.Key)
		v, err := json.Marshal(e.Value.Interface())
		if err != nil {
			v = []byte(`""`)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.String()
}

// Format serializes the set back into key="value" pairs.
func (a *Attributes) Format() string {
	parts := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		if e.Value.Kind == KindBool && e.Value.Bool {
			parts = append(parts, e.Key)
			continue
		}
		parts = append(parts, e.Key+`="`+strings.ReplaceAll(e.Value.Text(), `"`, "&quot;")+`"`)
	}
	return strings.Join(parts, " ")
}

// Parse reads the attributes of the first demo tag in raw. Keys in defaults
// are filled in only when the annotation does not set them.
func Parse(raw string, defaults map[string]Value) *Attributes {
	raw = StripComments(raw)
	if loc := demoTagRe.FindStringIndex(raw); loc != nil {
		raw = raw[loc[0]+len("<demo"):]
	}
	a := New()
	s := &scanner{src: raw}
	for {
		s.skipSpace()
		if s.done() || s.atTagEnd() {
			break
		}
		key := s.name()
		if key == "" {
			s.pos++
			continue
		}
		s.skipSpace()
		if !s.consume('=') {
			a.Set(key, BoolValue(true))
			continue
		}
		s.skipSpace()
		text, form := s.value()
		a.Set(key, interpret(key, text, form))
	}
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !a.Has(k) {
			a.Set(k, defaults[k])
		}
	}
	return a
}

type valueForm int

const (
	formBare valueForm = iota
	formQuoted
	formBraced
)

func interpret(key, text string, form valueForm) Value {
	if isFilesKey(key) {
		candidate := text
		if form == formBraced {
			candidate = strings.TrimSpace(text)
			if _, ok := ParseFileList(candidate); !ok {
				candidate = strings.TrimSpace(text[1 : len(text)-1])
			}
		}
		if fl, ok := ParseFileList(candidate); ok {
			return FilesValue(fl)
		}
		return StringValue(text)
	}
	if form != formBraced {
		return coerce(text)
	}
	if json.Valid([]byte(text)) {
		return StringValue(text)
	}
	inner := strings.TrimSpace(text[1 : len(text)-1])
	if len(inner) >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[len(inner)-1] == inner[0] {
		return StringValue(inner[1 : len(inner)-1])
	}
	return coerce(inner)
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) done() bool { return s.pos >= len(s.src) }

func (s *scanner) skipSpace() {
	for !s.done() && isSpace(s.src[s.pos]) {
		s.pos++
	}
}

func (s *scanner) atTagEnd() bool {
	rest := s.src[s.pos:]
	return strings.HasPrefix(rest, "/>") || strings.HasPrefix(rest, ">")
}

func (s *scanner) consume(c byte) bool {
	if !s.done() && s.src[s.pos] == c {
		s.pos++
		return true
	}
	return false
}

func (s *scanner) name() string {
	start := s.pos
	for !s.done() {
		c := s.src[s.pos]
		if isSpace(c) || c == '=' || c == '>' || c == '"' || c == '\'' || (c == '/' && strings.HasPrefix(s.src[s.pos:], "/>")) {
			break
		}
		s.pos++
	}
	return s.src[start:s.pos]
}

// value reads a quoted, braced or bare value. An unterminated quote or brace
// swallows the rest of the input as an opaque string.
func (s *scanner) value() (string, valueForm) {
	if s.done() {
		return "", formBare
	}
	switch c := s.src[s.pos]; c {
	case '"', '\'':
		s.pos++
		end := strings.IndexByte(s.src[s.pos:], c)
		if end < 0 {
			text := s.src[s.pos:]
			s.pos = len(s.src)
			return text, formQuoted
		}
		text := s.src[s.pos : s.pos+end]
		s.pos += end + 1
		return text, formQuoted
	case '{', '[':
		start := s.pos
		if end, ok := balancedEnd(s.src, start); ok {
			s.pos = end
			text := s.src[start:end]
			if c == '[' {
				return text, formBare
			}
			return text, formBraced
		}
		s.pos = len(s.src)
		return s.src[start:], formBare
	}
	start := s.pos
	for !s.done() {
		c := s.src[s.pos]
		if isSpace(c) || c == '>' || (c == '/' && strings.HasPrefix(s.src[s.pos:], "/>")) {
			break
		}
		s.pos++
	}
	return s.src[start:s.pos], formBare
}

// balancedEnd returns the index just past the bracket group opening at
// start. Brackets inside string literals do not count.
func balancedEnd(src string, start int) (int, bool) {
	depth := 0
	var quote byte
	for i := start; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// EscapeAttributeValue escapes s for use inside a double-quoted attribute.
func EscapeAttributeValue(s string) string {
	r := strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")
	return r.Replace(s)
}

// TagStart returns the index of the first demo tag in s, or -1.
func TagStart(s string) int {
	loc := demoTagRe.FindStringIndex(s)
	if loc == nil {
		return -1
	}
	return loc[0]
}

// TagEnd returns the index just past the first demo tag in s, including a
// closing </demo> when the tag is not self-closing. It returns -1 while the
// tag is still incomplete.
func TagEnd(s string) int {
	loc := demoTagRe.FindStringIndex(s)
	if loc == nil {
		return -1
	}
	sc := &scanner{src: s, pos: loc[0] + len("<demo")}
	for {
		sc.skipSpace()
		if sc.done() {
			return -1
		}
		if strings.HasPrefix(sc.src[sc.pos:], "/>") {
			return sc.pos + 2
		}
		if sc.consume('>') {
			end := strings.Index(sc.src[sc.pos:], "</demo>")
			if end < 0 {
				return -1
			}
			return sc.pos + end + len("</demo>")
		}
		if sc.name() == "" {
			sc.pos++
			continue
		}
		sc.skipSpace()
		if sc.consume('=') {
			sc.skipSpace()
			sc.value()
		}
	}
}
