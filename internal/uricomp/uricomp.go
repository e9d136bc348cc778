// Package uricomp implements the percent-encoding used for payloads carried
// in component attributes. Encode matches JavaScript's encodeURIComponent so
// the browser side can decode with decodeURIComponent.
package uricomp

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
)

const hex = "0123456789ABCDEF"

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// Encode percent-encodes every byte of s outside the unreserved set.
func Encode(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

// Decode reverses Encode. Malformed input decodes to "".
func Decode(s string) string {
	out, err := url.PathUnescape(s)
	if err != nil {
		return ""
	}
	return out
}

// EncodeJSON marshals v and percent-encodes the result. HTML characters are
// kept literal so markup inside the payload stays searchable after encoding.
// Values that cannot be marshaled encode as "".
func EncodeJSON(v any) string {
	data, err := MarshalJSON(v)
	if err != nil {
		return ""
	}
	return Encode(string(data))
}

// MarshalJSON is json.Marshal without HTML escaping.
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DecodeJSON reverses EncodeJSON into v. An empty payload leaves v untouched
// and is not an error.
func DecodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	raw := Decode(s)
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}
