// Package learn orchestrates a multi-source learning run: it fetches and
// converts examples concurrently, sequences pattern detection, task
// merging, outlier detection, and confidence scoring, and assembles the
// consensus template. The package computes and returns data; it never
// prints or touches files itself.
package learn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shahbajlive/templar/internal/analyze"
	"github.com/shahbajlive/templar/internal/confidence"
	"github.com/shahbajlive/templar/internal/merge"
	"github.com/shahbajlive/templar/internal/model"
	"github.com/shahbajlive/templar/internal/outliers"
	"github.com/shahbajlive/templar/internal/patterns"
	"github.com/shahbajlive/templar/internal/source"
	"github.com/shahbajlive/templar/internal/template"
)

// ErrNoExamples is returned when every requested example ends up
// skipped: there is nothing to learn from.
var ErrNoExamples = errors.New("no analyzable examples")

// DefaultCoreRatio is the share of examples a merged task must appear
// in to make the "core" template variation.
const DefaultCoreRatio = 0.6

// Config bundles the stage configurations for one learning run.
type Config struct {
	// TemplateName names the learned template. Default: "learned-template"
	TemplateName string `json:"template_name" yaml:"template_name"`

	// CoreRatio is the distinct-example share required for the core
	// variation. Default: 0.6
	CoreRatio float64 `json:"core_ratio" yaml:"core_ratio"`

	Patterns patterns.Config    `json:"patterns" yaml:"patterns"`
	Merge    merge.Config       `json:"merge" yaml:"merge"`
	Outliers outliers.Config    `json:"outliers" yaml:"outliers"`
	Weights  confidence.Weights `json:"weights" yaml:"weights"`
}

// DefaultConfig returns the standard learning configuration.
func DefaultConfig() Config {
	return Config{
		TemplateName: "learned-template",
		CoreRatio:    DefaultCoreRatio,
		Patterns:     patterns.DefaultConfig(),
		Merge:        merge.DefaultConfig(),
		Outliers:     outliers.DefaultConfig(),
		Weights:      confidence.DefaultWeights(),
	}
}

// Phase identifies a stage of a learning run, for progress reporting.
type Phase string

const (
	PhaseFetching   Phase = "fetching"
	PhaseDetecting  Phase = "detecting"
	PhaseMerging    Phase = "merging"
	PhaseOutliers   Phase = "outliers"
	PhaseScoring    Phase = "scoring"
	PhaseAssembling Phase = "assembling"
	PhaseDone       Phase = "done"
)

// ProgressFunc receives phase transitions during a run. Optional; used
// by the API server to stream progress and by the watcher for logging.
type ProgressFunc func(phase Phase, detail string)

// Skipped records an example excluded from the run and why.
type Skipped struct {
	ID     string `json:"id" yaml:"id"`
	Reason string `json:"reason" yaml:"reason"`
}

// Variation is an alternative cut of the learned template.
type Variation struct {
	// Name distinguishes the cut: "core" or "comprehensive".
	Name string `json:"name" yaml:"name"`

	// Template is the variation's task list.
	Template template.Template `json:"template" yaml:"template"`

	// Confidence is scored independently for the variation.
	Confidence confidence.Score `json:"confidence" yaml:"confidence"`
}

// Result is the complete artifact of one learning run.
type Result struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id" yaml:"run_id"`

	// GeneratedAt is when the run finished.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	// ExampleIDs are the accepted examples, in request order.
	ExampleIDs []string `json:"example_ids" yaml:"example_ids"`

	// Skipped are the excluded examples with reasons.
	Skipped []Skipped `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	// Template is the consensus template built from the merged tasks.
	Template template.Template `json:"template" yaml:"template"`

	// Patterns is the detection output.
	Patterns *patterns.Detection `json:"patterns" yaml:"patterns"`

	// MergedTasks carry the consolidated tasks with provenance.
	MergedTasks []merge.MergedTask `json:"merged_tasks" yaml:"merged_tasks"`

	// Outliers are the advisory anomaly findings.
	Outliers []outliers.Outlier `json:"outliers,omitempty" yaml:"outliers,omitempty"`

	// Confidence summarizes how trustworthy the template is.
	Confidence confidence.Score `json:"confidence" yaml:"confidence"`

	// Suggestions are human-readable improvement hints.
	Suggestions []string `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`

	// Variations are alternative template cuts.
	Variations []Variation `json:"variations" yaml:"variations"`
}

// Learner runs learning batches against a source.
type Learner struct {
	src      source.Source
	cfg      Config
	progress ProgressFunc
}

// New creates a learner over the given source.
func New(src source.Source, cfg Config) *Learner {
	return &Learner{src: src, cfg: cfg}
}

// OnProgress registers a progress callback. Must be set before Learn.
func (l *Learner) OnProgress(fn ProgressFunc) {
	l.progress = fn
}

func (l *Learner) report(phase Phase, detail string) {
	if l.progress != nil {
		l.progress(phase, detail)
	}
}

// Learn fetches the requested examples and runs the full pipeline. An
// example that cannot be fetched or has no child tasks is skipped with
// a reason, not fatal; the run fails only when nothing at all survives.
func (l *Learner) Learn(ctx context.Context, ids []string) (*Result, error) {
	start := time.Now()
	l.report(PhaseFetching, fmt.Sprintf("%d examples", len(ids)))

	analyses, skipped := l.fetchAll(ctx, ids)
	if len(analyses) == 0 {
		return nil, fmt.Errorf("%w: all %d requested examples were skipped", ErrNoExamples, len(ids))
	}

	slog.Info("learning run starting",
		"requested", len(ids),
		"accepted", len(analyses),
		"skipped", len(skipped),
	)

	l.report(PhaseDetecting, fmt.Sprintf("%d examples", len(analyses)))
	detection := patterns.NewDetector(l.cfg.Patterns).Detect(analyses)

	l.report(PhaseMerging, fmt.Sprintf("%d patterns", len(detection.CommonTasks)))
	merged := merge.NewMerger(l.cfg.Merge).Merge(analyses, detection)

	l.report(PhaseOutliers, "")
	found := outliers.NewDetector(l.cfg.Outliers).Detect(analyses, detection)

	l.report(PhaseScoring, "")
	score := confidence.NewScorer(l.cfg.Weights).Compute(analyses, detection, merged, found)

	l.report(PhaseAssembling, "")
	result := &Result{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now(),
		Skipped:     skipped,
		Template:    l.buildTemplate(analyses, merged),
		Patterns:    detection,
		MergedTasks: merged,
		Outliers:    found,
		Confidence:  score,
		Suggestions: buildSuggestions(analyses, detection, found, score),
		Variations:  l.buildVariations(analyses, detection, merged, found),
	}
	for _, a := range analyses {
		result.ExampleIDs = append(result.ExampleIDs, a.SourceID)
	}

	l.report(PhaseDone, result.RunID)
	slog.Info("learning run completed",
		"run_id", result.RunID,
		"merged_tasks", len(merged),
		"confidence", score.Overall,
		"duration", time.Since(start),
	)

	return result, nil
}

// LearnAll learns from every example the source lists.
func (l *Learner) LearnAll(ctx context.Context) (*Result, error) {
	ids, err := l.src.ListExamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("list examples: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNoExamples
	}
	return l.Learn(ctx, ids)
}

// fetchAll fetches and converts every example concurrently. Failures
// are isolated per example; accepted analyses keep request order.
func (l *Learner) fetchAll(ctx context.Context, ids []string) ([]model.StoryAnalysis, []Skipped) {
	type slot struct {
		analysis *model.StoryAnalysis
		skip     *Skipped
	}

	slots := make([]slot, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()

			ex, err := l.src.GetExample(ctx, id)
			if err != nil {
				slots[i].skip = &Skipped{ID: id, Reason: fmt.Sprintf("fetch failed: %v", err)}
				return
			}
			if len(ex.Children) == 0 {
				slots[i].skip = &Skipped{ID: id, Reason: "no child tasks"}
				return
			}

			analysis := analyze.Convert(ex.Story, ex.Children)
			if analysis.SourceID == "" {
				analysis.SourceID = id
			}
			slots[i].analysis = &analysis
		}(i, id)
	}
	wg.Wait()

	var analyses []model.StoryAnalysis
	var skipped []Skipped
	for _, s := range slots {
		switch {
		case s.analysis != nil:
			analyses = append(analyses, *s.analysis)
		case s.skip != nil:
			skipped = append(skipped, *s.skip)
			slog.Warn("example skipped", "id", s.skip.ID, "reason", s.skip.Reason)
		}
	}
	return analyses, skipped
}

// buildTemplate assembles the consensus template from the merged tasks.
func (l *Learner) buildTemplate(analyses []model.StoryAnalysis, merged []merge.MergedTask) template.Template {
	name := l.cfg.TemplateName
	if name == "" {
		name = "learned-template"
	}

	tpl := template.Template{
		Name:                name,
		Description:         fmt.Sprintf("learned from %d examples", len(analyses)),
		WorkItemType:        dominantType(analyses),
		TagFilters:          unionStoryTags(analyses),
		ReferenceEstimation: averageEstimation(analyses),
		GeneratedAt:         time.Now(),
	}
	for _, mt := range merged {
		tpl.Tasks = append(tpl.Tasks, mt.Task)
	}
	return tpl
}

// dominantType returns the most frequent story work-item type, ties
// broken alphabetically.
func dominantType(analyses []model.StoryAnalysis) string {
	counts := map[string]int{}
	for _, a := range analyses {
		if a.Story.Type != "" {
			counts[a.Story.Type]++
		}
	}
	best, bestCount := "", 0
	for typ, n := range counts {
		if n > bestCount || (n == bestCount && typ < best) {
			best, bestCount = typ, n
		}
	}
	return best
}

// unionStoryTags unions all story tags, deduplicated and sorted.
func unionStoryTags(analyses []model.StoryAnalysis) []string {
	set := map[string]struct{}{}
	for _, a := range analyses {
		for _, tag := range a.Story.Tags {
			set[tag] = struct{}{}
		}
	}
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

// averageEstimation is the mean story estimation, rounded to 2 decimals.
func averageEstimation(analyses []model.StoryAnalysis) float64 {
	if len(analyses) == 0 {
		return 0
	}
	var sum float64
	for _, a := range analyses {
		sum += a.Story.Estimation
	}
	return math.Round(sum/float64(len(analyses))*100) / 100
}
