// Package attrs parses the attribute annotations of demo blocks.
//
// An annotation is the inner text of a <demo ... /> tag, or the attribute
// lines of a ::: demo container rewritten into that form. Parsing never
// fails: fragments that do not fit the grammar survive as opaque strings.
package attrs

import (
	"encoding/json"
	"math"
	"strconv"
)

// ComponentType is one of the preview flavours a demo can carry.
type ComponentType string

const (
	Vue   ComponentType = "vue"
	React ComponentType = "react"
	HTML  ComponentType = "html"
)

// ComponentTypes lists the component types in tab order.
var ComponentTypes = []ComponentType{Vue, React, HTML}

// FilesKey is the attribute holding the extra files of this type, e.g. vueFiles.
func (t ComponentType) FilesKey() string { return string(t) + "Files" }

// MetaKey is the attribute holding the per-language code meta, e.g. vueMeta.
func (t ComponentType) MetaKey() string { return string(t) + "Meta" }

// Kind tags the variant held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindNumber
	KindFiles
)

// Value is a single parsed attribute value.
type Value struct {
	Kind  Kind
	Str   string
	Bool  bool
	Num   float64
	Files FileList
}

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func FilesValue(fl FileList) Value { return Value{Kind: KindFiles, Files: fl} }

// Text returns the value in attribute-string form.
func (v Value) Text() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindFiles:
		data, _ := json.Marshal(v.Files.Paths())
		return string(data)
	default:
		return v.Str
	}
}

// Truthy reports whether the value would enable a flag.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num != 0
	case KindFiles:
		return len(v.Files) > 0
	default:
		return v.Str != ""
	}
}

// Interface returns the value as a plain Go value suitable for JSON.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num
	case KindFiles:
		return v.Files.Map()
	default:
		return v.Str
	}
}

// coerce turns an attribute string into a bool or number when it is the
// canonical spelling of one, so re-serializing never changes the text.
func coerce(s string) Value {
	switch s {
	case "true":
		return BoolValue(true)
	case "false":
		return BoolValue(false)
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		if strconv.FormatFloat(n, 'f', -1, 64) == s {
			return NumberValue(n)
		}
	}
	return StringValue(s)
}
