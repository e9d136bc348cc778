package compiler

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/livetemplate/demobox/internal/attrs"
	"github.com/livetemplate/demobox/internal/uricomp"
)

// CodeFile is one entry of the files payload.
type CodeFile struct {
	Filename   string `json:"filename"`
	Code       string `json:"code"`
	HTML       string `json:"html,omitempty"`
	HTMLDomKey string `json:"htmlDomKey,omitempty"`
}

// NamedFile pairs a display name with its file.
type NamedFile struct {
	Name string
	File CodeFile
}

// FileMap is an ordered name to file mapping. It encodes as a JSON object
// whose keys keep their order.
type FileMap []NamedFile

// Keys returns the display names in order.
func (m FileMap) Keys() []string {
	out := make([]string, 0, len(m))
	for _, f := range m {
		out = append(out, f.Name)
	}
	return out
}

// Get returns the file named name.
func (m FileMap) Get(name string) (CodeFile, bool) {
	for _, f := range m {
		if f.Name == name {
			return f.File, true
		}
	}
	return CodeFile{}, false
}

// MarshalJSON implements json.Marshaler.
func (m FileMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := uricomp.MarshalJSON(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := uricomp.MarshalJSON(f.File)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping key order.
func (m *FileMap) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return errors.New("files: expected object")
	}
	var out FileMap
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		var f CodeFile
		if err := dec.Decode(&f); err != nil {
			return err
		}
		out = append(out, NamedFile{Name: keyTok.(string), File: f})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// Files is the files payload, one map per component type.
type Files struct {
	Vue   FileMap `json:"vue"`
	React FileMap `json:"react"`
	HTML  FileMap `json:"html"`
}

// For returns the map of component type t.
func (f *Files) For(t attrs.ComponentType) *FileMap {
	switch t {
	case attrs.React:
		return &f.React
	case attrs.HTML:
		return &f.HTML
	default:
		return &f.Vue
	}
}

// LangMap holds one string per component type.
type LangMap struct {
	Vue   string `json:"vue"`
	React string `json:"react"`
	HTML  string `json:"html"`
}

// Get returns the value for t.
func (l LangMap) Get(t attrs.ComponentType) string {
	switch t {
	case attrs.React:
		return l.React
	case attrs.HTML:
		return l.HTML
	default:
		return l.Vue
	}
}

// Set stores v for t.
func (l *LangMap) Set(t attrs.ComponentType, v string) {
	switch t {
	case attrs.React:
		l.React = v
	case attrs.HTML:
		l.HTML = v
	default:
		l.Vue = v
	}
}

// EncodeComponent percent-encodes v as JSON for an attribute value.
func EncodeComponent(v any) string { return uricomp.EncodeJSON(v) }

// DecodeComponent reverses EncodeComponent. It reports false for empty or
// malformed input; callers fall back to defaults.
func DecodeComponent(s string, v any) bool {
	raw := uricomp.Decode(s)
	if raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}
