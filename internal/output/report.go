package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/shahbajlive/templar/internal/learn"
)

// MarkdownReport builds a self-contained markdown document describing a
// learning run, suitable for checking into a repo or posting to a
// tracker.
func MarkdownReport(result *learn.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Template learning report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", result.RunID)
	fmt.Fprintf(&b, "- Generated: %s\n", result.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Examples: %d analyzed, %d skipped\n", len(result.ExampleIDs), len(result.Skipped))
	fmt.Fprintf(&b, "- Confidence: **%.0f/100 (%s)**\n\n", result.Confidence.Overall, result.Confidence.Level)

	if len(result.Skipped) > 0 {
		fmt.Fprintf(&b, "## Skipped examples\n\n")
		for _, s := range result.Skipped {
			fmt.Fprintf(&b, "- `%s`: %s\n", s.ID, s.Reason)
		}
		fmt.Fprintln(&b)
	}

	fmt.Fprintf(&b, "## Learned template: %s\n\n", result.Template.Name)
	fmt.Fprintf(&b, "| # | Task | Share | Activity |\n")
	fmt.Fprintf(&b, "|---|------|-------|----------|\n")
	for i, task := range result.Template.Tasks {
		fmt.Fprintf(&b, "| %d | %s | %.0f%% | %s |\n", i+1, task.Title, task.EstimationPercent, task.Activity)
	}
	fmt.Fprintln(&b)

	if result.Patterns != nil {
		fmt.Fprintf(&b, "## Detected patterns\n\n")
		for _, p := range result.Patterns.CommonTasks {
			fmt.Fprintf(&b, "- **%s**: %d/%d examples", p.CanonicalTitle, p.Frequency, result.Patterns.ExampleCount)
			if len(p.Variants) > 1 {
				fmt.Fprintf(&b, " (%d wordings)", len(p.Variants))
			}
			fmt.Fprintln(&b)
		}
		fmt.Fprintf(&b, "\nEstimation style: %s", result.Patterns.Estimation.DetectedStyle)
		if !result.Patterns.Estimation.IsConsistent {
			fmt.Fprintf(&b, " (inconsistent across examples)")
		}
		fmt.Fprintf(&b, "\n\n")
	}

	if len(result.Outliers) > 0 {
		fmt.Fprintf(&b, "## Outliers\n\n")
		for _, o := range result.Outliers {
			where := ""
			if o.ExampleID != "" {
				where = fmt.Sprintf(" (`%s`)", o.ExampleID)
			}
			fmt.Fprintf(&b, "- %s%s: %s\n", o.Kind, where, o.Message)
		}
		fmt.Fprintln(&b)
	}

	if len(result.Suggestions) > 0 {
		fmt.Fprintf(&b, "## Suggestions\n\n")
		for _, s := range result.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		fmt.Fprintln(&b)
	}

	return b.String()
}

// RenderMarkdown renders a markdown document for the terminal. Falls
// back to the raw markdown when styling is off or rendering fails.
func RenderMarkdown(markdown string, mode ColorMode) string {
	if !useColor(mode) {
		return markdown
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(defaultWidth),
	)
	if err != nil {
		return markdown
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}
