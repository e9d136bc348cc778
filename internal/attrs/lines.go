package attrs

import (
	"regexp"
	"strings"
)

var (
	containerInfoRe = regexp.MustCompile(`^demo\b\s*(.*)$`)
	descriptionRe   = regexp.MustCompile(`(?:^|\s)description\s*=`)
)

// NormalizeLines turns the body of a ::: demo container into attribute
// expressions. A value whose quotes or brackets are still open at the end
// of a line continues on the next one.
func NormalizeLines(lines []string) []string {
	body := StripComments(strings.Join(lines, "\n"))
	var out []string
	var cur strings.Builder
	for _, line := range strings.Split(body, "\n") {
		if cur.Len() == 0 && strings.TrimSpace(line) == "" {
			continue
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
		if open(cur.String()) {
			continue
		}
		out = append(out, strings.TrimSpace(cur.String()))
		cur.Reset()
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

// open reports whether s ends inside a string literal or bracket group.
func open(s string) bool {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
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
		case '"', '\'':
			quote = c
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		}
	}
	return quote != 0 || depth > 0
}

// ContainerDescription returns the free text after the demo marker of a
// container info string.
func ContainerDescription(info string) string {
	m := containerInfoRe.FindStringSubmatch(strings.TrimSpace(info))
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// IsContainerInfo reports whether a container info string opens a demo.
func IsContainerInfo(info string) bool {
	return strings.HasPrefix(strings.TrimSpace(info), "demo")
}

// HasDescription reports whether any attribute line sets description.
func HasDescription(lines []string) bool {
	for _, l := range lines {
		if descriptionRe.MatchString(l) {
			return true
		}
	}
	return false
}

// ContainerAnnotation rewrites a container into the tag form understood by
// Parse. The info text becomes the description unless one is set already.
func ContainerAnnotation(info string, body []string) string {
	lines := NormalizeLines(body)
	if desc := ContainerDescription(info); desc != "" && !HasDescription(lines) {
		lines = append(lines, "description="+quote(desc))
	}
	if len(lines) == 0 {
		return "<demo />"
	}
	return "<demo " + strings.Join(lines, " ") + " />"
}

// quote wraps s in whichever quote character it does not contain.
func quote(s string) string {
	switch {
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	case !strings.Contains(s, "'"):
		return "'" + s + "'"
	}
	return `"` + strings.ReplaceAll(s, `"`, "'") + `"`
}
