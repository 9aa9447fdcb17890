// Package merge consolidates equivalent tasks from different examples
// into single task definitions with full source provenance. It reclusters
// the raw occurrences independently of the pattern detector, at a lower
// threshold tuned for consolidation rather than reporting.
package merge

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/shahbajlive/templar/internal/model"
	"github.com/shahbajlive/templar/internal/patterns"
	"github.com/shahbajlive/templar/internal/similarity"
)

// DefaultConsolidationThreshold is the clustering threshold for merging.
// Lower than the reporting threshold: consolidation favors one clean,
// deduplicated task list over precision.
const DefaultConsolidationThreshold = 0.45

// maxSlugLen bounds synthesized task IDs.
const maxSlugLen = 30

// Config controls task merging.
type Config struct {
	// ConsolidationThreshold is the complete-linkage clustering threshold
	// used when merging. Default: 0.45
	ConsolidationThreshold float64 `json:"consolidation_threshold" yaml:"consolidation_threshold"`

	// Similarity configures the underlying text similarity blend.
	Similarity similarity.Config `json:"similarity" yaml:"similarity"`
}

// DefaultConfig returns the standard merge configuration.
func DefaultConfig() Config {
	return Config{
		ConsolidationThreshold: DefaultConsolidationThreshold,
		Similarity:             similarity.DefaultConfig(),
	}
}

// TaskSource records where one member of a merged task came from.
type TaskSource struct {
	// ExampleID is the source example.
	ExampleID string `json:"example_id" yaml:"example_id"`

	// OriginalTitle is the title as it appeared in that example.
	OriginalTitle string `json:"original_title" yaml:"original_title"`
}

// MergedTask is one consolidated task definition plus provenance. It is
// the unit assembled into the output template's task list.
type MergedTask struct {
	// Task is the consolidated definition.
	Task model.TaskDefinition `json:"task" yaml:"task"`

	// Sources lists every contributing example and original title.
	// Always non-empty.
	Sources []TaskSource `json:"sources" yaml:"sources"`

	// Similarity is the cluster cohesion: the average pairwise similarity
	// among the members' normalized titles, 1.0 for singletons.
	Similarity float64 `json:"similarity" yaml:"similarity"`
}

// ExampleCount returns the number of distinct examples backing the task.
func (m *MergedTask) ExampleCount() int {
	seen := make(map[string]struct{}, len(m.Sources))
	for _, s := range m.Sources {
		seen[s.ExampleID] = struct{}{}
	}
	return len(seen)
}

// Merger consolidates tasks across examples.
type Merger struct {
	cfg Config
}

// NewMerger creates a merger with the given configuration.
func NewMerger(cfg Config) *Merger {
	return &Merger{cfg: cfg}
}

// Merge reclusters all task occurrences and emits one merged task per
// cluster. The detection result is accepted for interface symmetry with
// the other stages; merging clusters the raw occurrences itself.
//
// Output ordering is a presentation contract: descending distinct-example
// count, ties broken by descending estimation share. Deterministic for
// reproducible templates.
func (m *Merger) Merge(examples []model.StoryAnalysis, _ *patterns.Detection) []MergedTask {
	occurrences := patterns.Flatten(examples)
	if len(occurrences) == 0 {
		return nil
	}

	slog.Info("task merge starting",
		"occurrences", len(occurrences),
		"threshold", m.cfg.ConsolidationThreshold,
	)

	clusters := similarity.Cluster(occurrences,
		func(o patterns.Occurrence) string { return o.NormalizedTitle },
		m.cfg.ConsolidationThreshold, m.cfg.Similarity)

	merged := make([]MergedTask, 0, len(clusters))
	for _, cluster := range clusters {
		merged = append(merged, m.buildMergedTask(cluster))
	}

	sort.Slice(merged, func(i, j int) bool {
		ci, cj := merged[i].ExampleCount(), merged[j].ExampleCount()
		if ci != cj {
			return ci > cj
		}
		if merged[i].Task.EstimationPercent != merged[j].Task.EstimationPercent {
			return merged[i].Task.EstimationPercent > merged[j].Task.EstimationPercent
		}
		return merged[i].Task.Title < merged[j].Task.Title
	})

	// Slug collisions and empty slugs fall back to positional IDs.
	assignIDs(merged)

	slog.Info("task merge completed",
		"input_occurrences", len(occurrences),
		"merged_tasks", len(merged),
	)

	return merged
}

// buildMergedTask consolidates one cluster into a single definition.
func (m *Merger) buildMergedTask(cluster []patterns.Occurrence) MergedTask {
	titles := make([]string, len(cluster))
	normalized := make([]string, len(cluster))
	for i, o := range cluster {
		titles[i] = o.OriginalTitle
		normalized[i] = o.NormalizedTitle
	}

	canonical := patterns.CanonicalTitle(titles)

	var shareSum float64
	var prioritySum, priorityCount int
	activityCounts := map[string]int{}
	tagSet := map[string]struct{}{}
	sources := make([]TaskSource, 0, len(cluster))

	for _, o := range cluster {
		shareSum += o.EstimationPercent
		activityCounts[o.Activity]++
		for _, tag := range o.Tags {
			tagSet[tag] = struct{}{}
		}
		if o.Priority != nil {
			prioritySum += *o.Priority
			priorityCount++
		}
		sources = append(sources, TaskSource{
			ExampleID:     o.SourceID,
			OriginalTitle: o.OriginalTitle,
		})
	}

	task := model.TaskDefinition{
		Title:             canonical,
		EstimationPercent: math.Round(shareSum / float64(len(cluster))),
		Activity:          dominant(activityCounts),
		Tags:              sortedTags(tagSet),
	}
	if priorityCount > 0 {
		p := int(math.Round(float64(prioritySum) / float64(priorityCount)))
		task.Priority = &p
	}

	return MergedTask{
		Task:       task,
		Sources:    sources,
		Similarity: similarity.AveragePairwise(normalized, m.cfg.Similarity),
	}
}

// slugRe collapses everything that is not alphanumeric into hyphens.
var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug synthesizes a stable task ID from a canonical title: lower-cased,
// placeholders and verb prefix stripped, non-alphanumerics collapsed to
// hyphens, truncated to 30 characters. Empty result means the caller
// must fall back to a positional ID.
func Slug(title string) string {
	s := similarity.NormalizeTitle(title)
	s = slugRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.Trim(s[:maxSlugLen], "-")
	}
	return s
}

// assignIDs sets each merged task's ID from its title slug, falling back
// to task-{n} on empty or duplicate slugs.
func assignIDs(merged []MergedTask) {
	seen := map[string]struct{}{}
	for i := range merged {
		id := Slug(merged[i].Task.Title)
		if id == "" {
			id = fmt.Sprintf("task-%d", i+1)
		}
		if _, dup := seen[id]; dup {
			id = fmt.Sprintf("%s-%d", id, i+1)
		}
		seen[id] = struct{}{}
		merged[i].Task.ID = id
	}
}

// dominant returns the most frequent key, ties broken alphabetically.
func dominant(counts map[string]int) string {
	best, bestCount := "", -1
	for k, n := range counts {
		if n > bestCount || (n == bestCount && k < best) {
			best, bestCount = k, n
		}
	}
	return best
}

// sortedTags converts a tag set to a sorted slice, nil when empty.
func sortedTags(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
