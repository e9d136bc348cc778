package compiler

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Diagnostic describes something a demo block could not do. Compilation
// continues past every diagnostic; the affected value is left empty.
type Diagnostic struct {
	File    string     // Markdown document path
	Line    int        // Line of the demo block (1-indexed, 0 if unknown)
	Demo    int        // Demo index within the document
	Level   slog.Level // Severity
	Message string     // What went wrong
	Hint    string     // Helpful suggestion
	Err     error      // Underlying cause, if any
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	msg := fmt.Sprintf("%s: demo %d: %s", d.File, d.Demo, d.Message)
	if d.Line > 0 {
		msg = fmt.Sprintf("%s:%d: demo %d: %s", d.File, d.Line, d.Demo, d.Message)
	}
	if d.Err != nil {
		msg += ": " + d.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (d *Diagnostic) Unwrap() error { return d.Err }

// Format returns a readable report with the surrounding source lines.
func (d *Diagnostic) Format() string {
	var b strings.Builder

	icon := "⚠️"
	if d.Level >= slog.LevelError {
		icon = "❌"
	}
	b.WriteString(fmt.Sprintf("%s Demo %d in %s\n\n", icon, d.Demo, d.File))

	if d.Line > 0 {
		b.WriteString(fmt.Sprintf("Line %d: %s\n", d.Line, d.Message))
	} else {
		b.WriteString(d.Message + "\n")
	}
	if d.Err != nil {
		b.WriteString(fmt.Sprintf("  cause: %v\n", d.Err))
	}

	if ctx := d.codeContext(); ctx != "" {
		b.WriteString(ctx)
	}

	if d.Hint != "" {
		b.WriteString(fmt.Sprintf("\n💡 Tip: %s\n", d.Hint))
	}

	return b.String()
}

// codeContext shows two lines either side of the demo line.
func (d *Diagnostic) codeContext() string {
	if d.File == "" || d.Line < 1 {
		return ""
	}

	file, err := os.Open(d.File)
	if err != nil {
		return ""
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if d.Line > len(lines) {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	start := max(1, d.Line-2)
	end := min(len(lines), d.Line+2)
	for i := start; i <= end; i++ {
		marker := " "
		if i == d.Line {
			marker = ">"
		}
		b.WriteString(fmt.Sprintf("%s %2d | %s\n", marker, i, lines[i-1]))
	}
	return b.String()
}

// WithHint adds a helpful hint to the diagnostic.
func (d *Diagnostic) WithHint(hint string) *Diagnostic {
	d.Hint = hint
	return d
}

// WithErr attaches the underlying cause.
func (d *Diagnostic) WithErr(err error) *Diagnostic {
	d.Err = err
	return d
}

// LogValue groups the diagnostic for structured logs.
func (d *Diagnostic) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("file", d.File),
		slog.Int("demo", d.Demo),
	}
	if d.Line > 0 {
		attrs = append(attrs, slog.Int("line", d.Line))
	}
	if d.Err != nil {
		attrs = append(attrs, slog.String("error", d.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}
