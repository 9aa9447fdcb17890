package learn

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shahbajlive/templar/internal/confidence"
	"github.com/shahbajlive/templar/internal/model"
	"github.com/shahbajlive/templar/internal/outliers"
	"github.com/shahbajlive/templar/internal/patterns"
)

// nearUniversalRatio is the frequency ratio above which an activity's
// patterns are considered a fixture of the breakdown.
const nearUniversalRatio = 0.8

// noisyVariantRatio is the frequency ratio above which a pattern with
// many title variants is worth a naming cleanup.
const noisyVariantRatio = 0.5

// maxVariants is how many differently-worded titles a strong pattern
// may have before a naming suggestion fires.
const maxVariants = 2

// buildSuggestions derives human-readable improvement hints from the
// run's findings. Purely advisory; an empty list is a fine outcome.
func buildSuggestions(
	examples []model.StoryAnalysis,
	detection *patterns.Detection,
	found []outliers.Outlier,
	score confidence.Score,
) []string {
	var out []string

	if score.Level == confidence.LevelLow && len(examples) < 3 {
		out = append(out, fmt.Sprintf(
			"Only %d usable example(s) produced a low-confidence template; add more completed stories before relying on it.",
			len(examples)))
	}

	if detection != nil && !detection.Estimation.IsConsistent {
		out = append(out, fmt.Sprintf(
			"Examples mix estimation conventions (dominant: %s); standardize on one unit so estimation shares become comparable.",
			detection.Estimation.DetectedStyle))
	}

	if extras := extraTaskTitles(found); len(extras) > 0 {
		out = append(out, fmt.Sprintf(
			"These tasks appear in a single example each and may be story-specific rather than template material: %s.",
			strings.Join(extras, ", ")))
	}

	if detection != nil {
		for _, p := range detection.CommonTasks {
			if len(p.Variants) > maxVariants && p.FrequencyRatio >= noisyVariantRatio {
				out = append(out, fmt.Sprintf(
					"%q is written %d different ways across examples; agree on one wording to sharpen future matching.",
					p.CanonicalTitle, len(p.Variants)))
			}
		}
	}

	if detection != nil && hasUniversalActivityPair(detection, "Design", "Development") {
		out = append(out, "Design and development tasks both recur in nearly every example; consider an explicit dependency from the design task to the development task in the template.")
	}

	return out
}

// extraTaskTitles collects the titles named by extra-task findings,
// sorted for stable output.
func extraTaskTitles(found []outliers.Outlier) []string {
	var titles []string
	for _, o := range found {
		if o.Kind != outliers.KindExtraTask {
			continue
		}
		// Extra-task messages lead with the quoted title.
		if title := quotedPrefix(o.Message); title != "" {
			titles = append(titles, fmt.Sprintf("%q", title))
		}
	}
	sort.Strings(titles)
	return titles
}

// quotedPrefix extracts the leading double-quoted segment of a message.
func quotedPrefix(msg string) string {
	if !strings.HasPrefix(msg, `"`) {
		return ""
	}
	rest := msg[1:]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// hasUniversalActivityPair reports whether both activities have at least
// one near-universal pattern.
func hasUniversalActivityPair(detection *patterns.Detection, a, b string) bool {
	seen := map[string]bool{}
	for _, p := range detection.CommonTasks {
		if p.FrequencyRatio >= nearUniversalRatio {
			seen[p.Activity] = true
		}
	}
	return seen[a] && seen[b]
}
