package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/shahbajlive/templar/internal/confidence"
	"github.com/shahbajlive/templar/internal/learn"
	"github.com/shahbajlive/templar/internal/outliers"
)

// defaultWidth is used when no terminal width is known.
const defaultWidth = 100

// maxTitleWidth caps the title column so long task names cannot push
// the numeric columns off screen.
const maxTitleWidth = 42

// Renderer writes human-oriented views of a learning result.
type Renderer struct {
	w       io.Writer
	width   int
	palette palette
}

// NewRenderer creates a renderer for the given writer.
func NewRenderer(w io.Writer, mode ColorMode) *Renderer {
	return &Renderer{
		w:       w,
		width:   defaultWidth,
		palette: newPalette(useColor(mode)),
	}
}

// Result renders the full run: summary, patterns, outliers, confidence
// factors, and suggestions.
func (r *Renderer) Result(result *learn.Result) {
	r.summary(result)
	r.patterns(result)
	r.outliers(result.Outliers)
	r.confidence(result.Confidence)
	r.suggestions(result.Suggestions)
}

func (r *Renderer) summary(result *learn.Result) {
	p := r.palette
	fmt.Fprintln(r.w, p.title.Render("Learning run "+result.RunID))
	fmt.Fprintf(r.w, "  examples: %d analyzed", len(result.ExampleIDs))
	if len(result.Skipped) > 0 {
		fmt.Fprintf(r.w, ", %d skipped", len(result.Skipped))
	}
	fmt.Fprintln(r.w)
	for _, s := range result.Skipped {
		fmt.Fprintf(r.w, "  %s\n", p.dim.Render(fmt.Sprintf("skipped %s: %s", s.ID, s.Reason)))
	}
	fmt.Fprintf(r.w, "  template: %s (%d tasks)\n\n", result.Template.Name, len(result.Template.Tasks))
}

func (r *Renderer) patterns(result *learn.Result) {
	p := r.palette
	if result.Patterns == nil || len(result.Patterns.CommonTasks) == 0 {
		fmt.Fprintln(r.w, p.dim.Render("no recurring task patterns detected"))
		fmt.Fprintln(r.w)
		return
	}

	fmt.Fprintln(r.w, p.header.Render("Common tasks"))
	fmt.Fprintf(r.w, "  %s  %7s  %9s  %-12s\n",
		pad("TASK", maxTitleWidth), "SEEN IN", "AVG SHARE", "ACTIVITY")
	for _, pattern := range result.Patterns.CommonTasks {
		seen := fmt.Sprintf("%d/%d", pattern.Frequency, result.Patterns.ExampleCount)
		fmt.Fprintf(r.w, "  %s  %7s  %8.1f%%  %-12s\n",
			pad(pattern.CanonicalTitle, maxTitleWidth),
			seen,
			pattern.AvgEstimationPercent,
			pattern.Activity,
		)
	}

	est := result.Patterns.Estimation
	status := p.good.Render("consistent")
	if !est.IsConsistent {
		status = p.warn.Render("inconsistent")
	}
	fmt.Fprintf(r.w, "  estimation style: %s (%s)\n\n", est.DetectedStyle, status)
}

func (r *Renderer) outliers(found []outliers.Outlier) {
	p := r.palette
	if len(found) == 0 {
		fmt.Fprintln(r.w, p.good.Render("no outliers detected"))
		fmt.Fprintln(r.w)
		return
	}

	fmt.Fprintln(r.w, p.header.Render("Outliers"))
	sorted := make([]outliers.Outlier, len(found))
	copy(sorted, found)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity > sorted[j].Severity
	})

	for _, o := range sorted {
		marker := p.warn.Render("!")
		if o.Severity >= 0.8 {
			marker = p.bad.Render("!!")
		}
		where := ""
		if o.ExampleID != "" {
			where = " [" + o.ExampleID + "]"
		}
		line := fmt.Sprintf("%s %s%s: %s (severity %.2f)", marker, o.Kind, where, o.Message, o.Severity)
		fmt.Fprintln(r.w, indent(wordwrap.String(line, r.width-2), "  "))
	}
	fmt.Fprintln(r.w)
}

func (r *Renderer) confidence(score confidence.Score) {
	p := r.palette
	fmt.Fprintln(r.w, p.header.Render("Confidence"))

	level := p.good
	switch score.Level {
	case confidence.LevelLow:
		level = p.bad
	case confidence.LevelMedium:
		level = p.warn
	}
	fmt.Fprintf(r.w, "  %s %s\n",
		p.emphasis.Render(fmt.Sprintf("%.0f/100", score.Overall)),
		level.Render(string(score.Level)),
	)

	for _, f := range score.Factors {
		bar := gauge(f.Score, 20)
		fmt.Fprintf(r.w, "  %s %s %5.1f  %s\n",
			pad(f.Name, 24), bar, f.Score, p.dim.Render(f.Description))
	}
	fmt.Fprintln(r.w)
}

func (r *Renderer) suggestions(suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	p := r.palette
	fmt.Fprintln(r.w, p.header.Render("Suggestions"))
	for _, s := range suggestions {
		fmt.Fprintln(r.w, indent(wordwrap.String("- "+s, r.width-2), "  "))
	}
	fmt.Fprintln(r.w)
}

// pad truncates or pads a cell to the given display width, respecting
// wide runes.
func pad(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

// gauge renders a fixed-width bar for a 0-100 value.
func gauge(value float64, width int) string {
	filled := int(value / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// indent prefixes every line of a block.
func indent(block, prefix string) string {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
