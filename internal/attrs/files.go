package attrs

import (
	"bytes"
	"encoding/json"
	"path"
	"strings"
)

// File is one entry of a multi-file listing.
type File struct {
	Name string
	Path string
}

// FileList is the canonical form of a *Files attribute. The attribute may be
// written as an array of paths or as an object of display name to path;
// both collapse into this ordered list.
type FileList []File

// ParseFileList decodes the JSON form of a *Files attribute. Object keys keep
// their source order. A plain string that is not JSON is read as a comma
// separated list of paths.
func ParseFileList(text string) (FileList, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	switch text[0] {
	case '[':
		var paths []any
		if err := json.Unmarshal([]byte(text), &paths); err != nil {
			return nil, false
		}
		var fl FileList
		for _, p := range paths {
			s, ok := p.(string)
			if !ok || s == "" {
				continue
			}
			fl = fl.With(File{Name: path.Base(strings.ReplaceAll(s, `\`, "/")), Path: s})
		}
		return fl, true
	case '{':
		return decodeOrderedObject(text)
	}
	var fl FileList
	for _, p := range strings.Split(text, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fl = fl.With(File{Name: path.Base(strings.ReplaceAll(p, `\`, "/")), Path: p})
	}
	return fl, len(fl) > 0
}

func decodeOrderedObject(text string) (FileList, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil, false
	}
	var fl FileList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, false
		}
		var p string
		if err := json.Unmarshal(raw, &p); err != nil || key == "" || p == "" {
			continue
		}
		fl = fl.With(File{Name: key, Path: p})
	}
	if _, err := dec.Token(); err != nil {
		return nil, false
	}
	return fl, true
}

// With returns the list with f added. An entry with the same name is
// replaced in place.
func (fl FileList) With(f File) FileList {
	for i := range fl {
		if fl[i].Name == f.Name {
			out := append(FileList(nil), fl...)
			out[i] = f
			return out
		}
	}
	return append(fl, f)
}

// Merge appends other onto fl with With semantics.
func (fl FileList) Merge(other FileList) FileList {
	out := append(FileList(nil), fl...)
	for _, f := range other {
		out = out.With(f)
	}
	return out
}

// Paths returns the file paths in order.
func (fl FileList) Paths() []string {
	out := make([]string, 0, len(fl))
	for _, f := range fl {
		out = append(out, f.Path)
	}
	return out
}

// Map returns the list as display name to path.
func (fl FileList) Map() map[string]string {
	out := make(map[string]string, len(fl))
	for _, f := range fl {
		out[f.Name] = f.Path
	}
	return out
}
