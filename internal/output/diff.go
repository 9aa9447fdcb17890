package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/shahbajlive/templar/internal/template"
)

// TemplateDiff is the result of comparing two templates.
type TemplateDiff struct {
	// Identical is true when the serialized templates match exactly.
	Identical bool

	// Unified is a line-based +/- rendering of the change.
	Unified string

	// Added and Removed count changed lines.
	Added   int
	Removed int
}

// DiffTemplates compares two templates by their YAML serialization,
// line by line. Timestamps are cleared first so regenerating an
// otherwise unchanged template diffs clean.
func DiffTemplates(before, after *template.Template) (*TemplateDiff, error) {
	left, err := canonicalYAML(before)
	if err != nil {
		return nil, fmt.Errorf("serialize old template: %w", err)
	}
	right, err := canonicalYAML(after)
	if err != nil {
		return nil, fmt.Errorf("serialize new template: %w", err)
	}

	if left == right {
		return &TemplateDiff{Identical: true}, nil
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(left, right)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	result := &TemplateDiff{}
	var out strings.Builder
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				fmt.Fprintf(&out, "+ %s\n", line)
				result.Added++
			case diffmatchpatch.DiffDelete:
				fmt.Fprintf(&out, "- %s\n", line)
				result.Removed++
			default:
				fmt.Fprintf(&out, "  %s\n", line)
			}
		}
	}
	result.Unified = out.String()
	return result, nil
}

// RenderDiff writes a diff with +/- lines colored when enabled.
func RenderDiff(diff *TemplateDiff, mode ColorMode) string {
	if diff.Identical {
		return "templates are identical\n"
	}
	if !useColor(mode) {
		return diff.Unified
	}

	p := newPalette(true)
	var out strings.Builder
	for _, line := range splitLines(diff.Unified) {
		switch {
		case strings.HasPrefix(line, "+"):
			out.WriteString(p.good.Render(line))
		case strings.HasPrefix(line, "-"):
			out.WriteString(p.bad.Render(line))
		default:
			out.WriteString(line)
		}
		out.WriteByte('\n')
	}
	return out.String()
}

// canonicalYAML marshals a template with its timestamp zeroed.
func canonicalYAML(t *template.Template) (string, error) {
	copied := *t
	copied.GeneratedAt = time.Time{}
	data, err := copied.Marshal()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// splitLines splits on newlines, dropping a trailing empty segment.
func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
