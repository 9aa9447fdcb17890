// Package analyze converts a raw story and its child tasks into the
// shared StoryAnalysis shape the learning engine consumes: concrete
// story references become placeholders, estimations become percentages
// of the story estimate, and activities are inferred from keywords.
package analyze

import (
	"fmt"
	"math"
	"strings"

	"github.com/shahbajlive/templar/internal/model"
)

// activityKeywords maps an activity category to the keywords that
// suggest it. Title and description are both searched; first match in
// this order wins.
var activityKeywords = []struct {
	activity string
	words    []string
}{
	{"Design", []string{"design", "architecture", "wireframe", "mockup", "schema", "diagram"}},
	{"Testing", []string{"test", "qa", "verify", "validation", "regression", "e2e"}},
	{"Documentation", []string{"document", "docs", "readme", "changelog", "guide"}},
	{"Deployment", []string{"deploy", "release", "rollout", "publish", "infrastructure", "pipeline"}},
	{"Requirements", []string{"requirement", "refine", "clarify", "acceptance criteria"}},
	{"Development", []string{"implement", "build", "create", "develop", "fix", "refactor", "integrate"}},
}

// Convert builds a StoryAnalysis from a story and its children. It
// never fails: problems that do not prevent analysis (no story
// estimation, zero-effort children) are recorded as warnings.
func Convert(story model.WorkItem, children []model.WorkItem) model.StoryAnalysis {
	analysis := model.StoryAnalysis{
		SourceID: story.ID,
		Story:    story,
	}

	if story.Estimation <= 0 {
		analysis.Warnings = append(analysis.Warnings,
			"story has no estimation; task shares derived from child totals")
	}

	var childTotal float64
	for _, child := range children {
		childTotal += child.Estimation
	}

	for _, child := range children {
		task := model.TaskDefinition{
			Title:    ExtractTitlePattern(child.Title, story),
			Activity: InferActivity(child.Title, child.Description),
			Tags:     child.Tags,
		}
		if child.Priority > 0 {
			p := child.Priority
			task.Priority = &p
		}

		task.EstimationPercent = sharePercent(child.Estimation, story.Estimation, childTotal)
		if child.Estimation == 0 {
			analysis.Warnings = append(analysis.Warnings,
				fmt.Sprintf("task %q has no estimation", child.Title))
		}

		analysis.Tasks = append(analysis.Tasks, task)
		analysis.RawEstimations = append(analysis.RawEstimations, child.Estimation)
	}

	return analysis
}

// sharePercent converts a child estimation into a percentage of the
// story. When the story carries no estimate the children's own total is
// the reference, so relative weights survive even without an anchor.
func sharePercent(child, story, childTotal float64) float64 {
	reference := story
	if reference <= 0 {
		reference = childTotal
	}
	if reference <= 0 || child <= 0 {
		return 0
	}
	share := child / reference * 100
	if share > 100 {
		share = 100
	}
	return math.Round(share*100) / 100
}

// ExtractTitlePattern replaces concrete story references in a task
// title with reusable placeholders, so "Implement Checkout API" learned
// under story "Checkout" generalizes to "Implement {{story.title}} API".
func ExtractTitlePattern(title string, story model.WorkItem) string {
	pattern := title
	if story.Title != "" {
		pattern = replaceFold(pattern, story.Title, "{{story.title}}")
	}
	if story.ID != "" {
		pattern = replaceFold(pattern, story.ID, "{{story.id}}")
	}
	return pattern
}

// replaceFold replaces every case-insensitive occurrence of old with new.
func replaceFold(s, old, new string) string {
	if old == "" {
		return s
	}
	var b strings.Builder
	lower := strings.ToLower(s)
	lowerOld := strings.ToLower(old)
	for {
		i := strings.Index(lower, lowerOld)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteString(new)
		s = s[i+len(old):]
		lower = lower[i+len(lowerOld):]
	}
}

// InferActivity guesses the activity category from keyword heuristics
// over the task's title and description. Unmatched tasks default to
// Development.
func InferActivity(title, description string) string {
	haystack := strings.ToLower(title + " " + description)
	for _, entry := range activityKeywords {
		for _, word := range entry.words {
			if strings.Contains(haystack, word) {
				return entry.activity
			}
		}
	}
	return "Development"
}
