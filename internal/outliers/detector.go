// Package outliers flags statistically anomalous examples and
// example-specific noise tasks using robust (median/MAD) statistics.
// Everything it reports is advisory data for the caller to surface; no
// finding is ever an error.
package outliers

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/shahbajlive/templar/internal/model"
	"github.com/shahbajlive/templar/internal/patterns"
	"github.com/shahbajlive/templar/internal/similarity"
)

// Kind is the category of an outlier. Closed set: switches over it
// should enumerate every value.
type Kind string

const (
	// KindEstimation flags an example whose total estimation is far from
	// the batch.
	KindEstimation Kind = "estimation"

	// KindTaskCount flags an example with an unusual number of tasks.
	KindTaskCount Kind = "task-count"

	// KindMissingTask flags an example lacking a near-universal pattern.
	KindMissingTask Kind = "missing-task"

	// KindExtraTask flags a pattern that looks like example-specific
	// noise.
	KindExtraTask Kind = "extra-task"
)

// Config controls outlier detection.
type Config struct {
	// ZThreshold is the Modified Z-Score magnitude beyond which a value
	// is anomalous. Default: 3.5
	ZThreshold float64 `json:"z_threshold" yaml:"z_threshold"`

	// MissingRatio is the frequency ratio at or above which a pattern is
	// near-universal and its absence is reportable. Default: 0.8
	MissingRatio float64 `json:"missing_ratio" yaml:"missing_ratio"`

	// MissingMatchThreshold is the similarity a task must reach against
	// a pattern's canonical title to count as present. Default: 0.5
	MissingMatchThreshold float64 `json:"missing_match_threshold" yaml:"missing_match_threshold"`

	// ExtraRatio is the frequency ratio below which a single-example
	// pattern is candidate noise. Default: 0.5
	ExtraRatio float64 `json:"extra_ratio" yaml:"extra_ratio"`

	// Similarity configures the underlying text similarity blend.
	Similarity similarity.Config `json:"similarity" yaml:"similarity"`
}

// DefaultConfig returns the standard outlier detection configuration.
func DefaultConfig() Config {
	return Config{
		ZThreshold:            3.5,
		MissingRatio:          0.8,
		MissingMatchThreshold: 0.5,
		ExtraRatio:            0.5,
		Similarity:            similarity.DefaultConfig(),
	}
}

// Range is a closed numeric interval.
type Range struct {
	Lo float64 `json:"lo" yaml:"lo"`
	Hi float64 `json:"hi" yaml:"hi"`
}

// Outlier is one advisory finding.
type Outlier struct {
	// Kind categorizes the finding.
	Kind Kind `json:"kind" yaml:"kind"`

	// ExampleID is the implicated example. For extra-task findings it is
	// the single example the stray task came from.
	ExampleID string `json:"example_id,omitempty" yaml:"example_id,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message" yaml:"message"`

	// Value is the observed value, when numeric.
	Value float64 `json:"value,omitempty" yaml:"value,omitempty"`

	// Expected is the unremarkable band the value fell outside of, for
	// the statistical kinds.
	Expected *Range `json:"expected,omitempty" yaml:"expected,omitempty"`

	// Severity is in (0,1]; higher means more worth a look.
	Severity float64 `json:"severity" yaml:"severity"`
}

// Detector finds anomalies in a batch of examples.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector with the given configuration.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect runs all four outlier checks. Fewer than two examples yields
// nothing: a single sample has no spread to test against.
func (d *Detector) Detect(examples []model.StoryAnalysis, detection *patterns.Detection) []Outlier {
	if len(examples) < 2 {
		return nil
	}

	var outliers []Outlier
	outliers = append(outliers, d.estimationOutliers(examples)...)
	outliers = append(outliers, d.taskCountOutliers(examples)...)
	if detection != nil {
		outliers = append(outliers, d.missingTaskOutliers(examples, detection)...)
		outliers = append(outliers, d.extraTaskOutliers(detection)...)
	}

	slog.Info("outlier detection completed",
		"examples", len(examples),
		"outliers", len(outliers),
	)

	return outliers
}

// estimationOutliers tests per-example total estimation among examples
// that carry a positive story estimate.
func (d *Detector) estimationOutliers(examples []model.StoryAnalysis) []Outlier {
	var estimated []model.StoryAnalysis
	var totals []float64
	for _, ex := range examples {
		if ex.Story.Estimation > 0 {
			estimated = append(estimated, ex)
			totals = append(totals, ex.Story.Estimation)
		}
	}
	if len(totals) < 2 {
		return nil
	}

	median := Median(totals)
	mad := MAD(totals)

	var outliers []Outlier
	for i, ex := range estimated {
		z := ModifiedZ(totals[i], median, mad)
		if math.Abs(z) <= d.cfg.ZThreshold {
			continue
		}
		lo, hi := expectedRange(median, mad, d.cfg.ZThreshold)
		outliers = append(outliers, Outlier{
			Kind:      KindEstimation,
			ExampleID: ex.SourceID,
			Message: fmt.Sprintf("total estimation %.1f is far from the batch (expected %.1f-%.1f)",
				totals[i], lo, hi),
			Value:    totals[i],
			Expected: &Range{Lo: lo, Hi: hi},
			Severity: severityFromZ(z, d.cfg.ZThreshold),
		})
	}
	return outliers
}

// taskCountOutliers applies the same robust test to per-example task
// counts, with no estimation filter.
func (d *Detector) taskCountOutliers(examples []model.StoryAnalysis) []Outlier {
	counts := make([]float64, len(examples))
	for i, ex := range examples {
		counts[i] = float64(len(ex.Tasks))
	}

	median := Median(counts)
	mad := MAD(counts)

	var outliers []Outlier
	for i, ex := range examples {
		z := ModifiedZ(counts[i], median, mad)
		if math.Abs(z) <= d.cfg.ZThreshold {
			continue
		}
		lo, hi := expectedRange(median, mad, d.cfg.ZThreshold)
		outliers = append(outliers, Outlier{
			Kind:      KindTaskCount,
			ExampleID: ex.SourceID,
			Message: fmt.Sprintf("%d tasks is far from the batch (expected %.0f-%.0f)",
				len(ex.Tasks), lo, hi),
			Value:    counts[i],
			Expected: &Range{Lo: lo, Hi: hi},
			Severity: severityFromZ(z, d.cfg.ZThreshold),
		})
	}
	return outliers
}

// missingTaskOutliers reports examples lacking any task similar to a
// near-universal pattern. More universal patterns produce higher
// severity misses.
func (d *Detector) missingTaskOutliers(examples []model.StoryAnalysis, detection *patterns.Detection) []Outlier {
	var outliers []Outlier
	for _, pattern := range detection.CommonTasks {
		if pattern.FrequencyRatio < d.cfg.MissingRatio {
			continue
		}
		canonical := similarity.NormalizeTitle(pattern.CanonicalTitle)
		for _, ex := range examples {
			if d.hasSimilarTask(ex, canonical) {
				continue
			}
			outliers = append(outliers, Outlier{
				Kind:      KindMissingTask,
				ExampleID: ex.SourceID,
				Message: fmt.Sprintf("missing %q, present in %.0f%% of examples",
					pattern.CanonicalTitle, pattern.FrequencyRatio*100),
				Severity: pattern.FrequencyRatio,
			})
		}
	}
	return outliers
}

// hasSimilarTask reports whether the example contains a task whose
// normalized title is close enough to the canonical title.
func (d *Detector) hasSimilarTask(ex model.StoryAnalysis, canonical string) bool {
	for _, task := range ex.Tasks {
		normalized := similarity.NormalizeTitle(task.Title)
		if similarity.ScoreWithConfig(normalized, canonical, d.cfg.Similarity) >= d.cfg.MissingMatchThreshold {
			return true
		}
	}
	return false
}

// extraTaskOutliers flags rare single-example patterns as candidate
// noise that probably should not generalize into the template.
func (d *Detector) extraTaskOutliers(detection *patterns.Detection) []Outlier {
	var outliers []Outlier
	for _, pattern := range detection.CommonTasks {
		if pattern.Frequency != 1 || pattern.FrequencyRatio >= d.cfg.ExtraRatio {
			continue
		}
		var exampleID string
		if len(pattern.Examples) > 0 {
			exampleID = pattern.Examples[0]
		}
		outliers = append(outliers, Outlier{
			Kind:      KindExtraTask,
			ExampleID: exampleID,
			Message: fmt.Sprintf("%q appears in only one example and may be story-specific",
				pattern.CanonicalTitle),
			Severity: 1 - pattern.FrequencyRatio,
		})
	}
	return outliers
}

// severityFromZ maps a z-score past the threshold into (0,1]: severity
// grows with how far past the threshold the value sits and saturates at
// twice the threshold.
func severityFromZ(z, threshold float64) float64 {
	excess := math.Abs(z) / threshold
	if excess > 2 {
		excess = 2
	}
	return excess / 2
}
