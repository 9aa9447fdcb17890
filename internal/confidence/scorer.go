// Package confidence condenses a learning run into a single 0-100
// trustworthiness score built from documented, individually inspectable
// factors.
package confidence

import (
	"log/slog"
	"math"

	"github.com/shahbajlive/templar/internal/merge"
	"github.com/shahbajlive/templar/internal/model"
	"github.com/shahbajlive/templar/internal/outliers"
	"github.com/shahbajlive/templar/internal/patterns"
)

// Level is the coarse qualitative bucket of a score.
type Level string

const (
	// LevelLow is a score below 50.
	LevelLow Level = "low"

	// LevelMedium is a score from 50 through 79.
	LevelMedium Level = "medium"

	// LevelHigh is a score of 80 or above.
	LevelHigh Level = "high"
)

// levelFor buckets an overall score.
func levelFor(score float64) Level {
	switch {
	case score >= 80:
		return LevelHigh
	case score >= 50:
		return LevelMedium
	default:
		return LevelLow
	}
}

// saturationExamples is the sample size beyond which more examples stop
// adding confidence.
const saturationExamples = 5

// Weights are the relative factor weights in the overall average. They
// are product calibration, not algorithmic necessity, which is why they
// are configuration instead of constants buried in the formula.
type Weights struct {
	// SampleSize weights how many examples were analyzed. Default: 0.25
	SampleSize float64 `json:"sample_size" yaml:"sample_size"`

	// EstimationConsistency weights unit agreement. Default: 0.2
	EstimationConsistency float64 `json:"estimation_consistency" yaml:"estimation_consistency"`

	// PatternStrength weights how universal the detected patterns are.
	// Default: 0.35
	PatternStrength float64 `json:"pattern_strength" yaml:"pattern_strength"`

	// OutlierDensity weights how many examples look anomalous.
	// Default: 0.2
	OutlierDensity float64 `json:"outlier_density" yaml:"outlier_density"`
}

// DefaultWeights returns the standard factor weights.
func DefaultWeights() Weights {
	return Weights{
		SampleSize:            0.25,
		EstimationConsistency: 0.2,
		PatternStrength:       0.35,
		OutlierDensity:        0.2,
	}
}

// Factor is one normalized scoring input.
type Factor struct {
	// Name identifies the factor.
	Name string `json:"name" yaml:"name"`

	// Score is the factor's normalized value, 0-100.
	Score float64 `json:"score" yaml:"score"`

	// Weight is the factor's share of the overall average.
	Weight float64 `json:"weight" yaml:"weight"`

	// Description explains what was measured.
	Description string `json:"description" yaml:"description"`
}

// Score is the scorer's output.
type Score struct {
	// Overall is the weighted average of the factors, 0-100.
	Overall float64 `json:"overall" yaml:"overall"`

	// Factors are the individual inputs, for display.
	Factors []Factor `json:"factors" yaml:"factors"`

	// Level is the coarse bucket: low (<50), medium (50-79), high (>=80).
	Level Level `json:"level" yaml:"level"`
}

// Scorer combines the learning stages' outputs into a Score.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Compute builds the four factors and their weighted average. The
// outlier slice may be nil when detection was skipped.
func (s *Scorer) Compute(
	examples []model.StoryAnalysis,
	detection *patterns.Detection,
	merged []merge.MergedTask,
	found []outliers.Outlier,
) Score {
	factors := []Factor{
		s.sampleSizeFactor(len(examples)),
		s.estimationFactor(detection),
		s.patternStrengthFactor(detection),
		s.outlierFactor(examples, found),
	}

	var weighted, totalWeight float64
	for _, f := range factors {
		weighted += f.Score * f.Weight
		totalWeight += f.Weight
	}

	overall := 0.0
	if totalWeight > 0 {
		overall = math.Round(weighted / totalWeight)
	}

	score := Score{
		Overall: overall,
		Factors: factors,
		Level:   levelFor(overall),
	}

	slog.Info("confidence computed",
		"overall", overall,
		"level", score.Level,
		"examples", len(examples),
		"merged_tasks", len(merged),
	)

	return score
}

// sampleSizeFactor scores example count with diminishing returns: full
// marks at saturationExamples and beyond.
func (s *Scorer) sampleSizeFactor(count int) Factor {
	score := float64(count) / saturationExamples * 100
	if score > 100 {
		score = 100
	}
	return Factor{
		Name:        "sample-size",
		Score:       math.Round(score),
		Weight:      s.weights.SampleSize,
		Description: "number of analyzable examples, saturating at 5",
	}
}

// estimationFactor scores unit agreement across examples.
func (s *Scorer) estimationFactor(detection *patterns.Detection) Factor {
	score := 0.0
	desc := "examples disagree on estimation units"
	if detection != nil && detection.Estimation.IsConsistent {
		score = 100
		desc = "all examples share one estimation convention"
	}
	return Factor{
		Name:        "estimation-consistency",
		Score:       score,
		Weight:      s.weights.EstimationConsistency,
		Description: desc,
	}
}

// patternStrengthFactor scores the mean frequency ratio of detected
// patterns: templates learned from universal patterns deserve more
// trust than ones stitched from one-offs.
func (s *Scorer) patternStrengthFactor(detection *patterns.Detection) Factor {
	score := 0.0
	if detection != nil && len(detection.CommonTasks) > 0 {
		var sum float64
		for _, p := range detection.CommonTasks {
			sum += p.FrequencyRatio
		}
		score = sum / float64(len(detection.CommonTasks)) * 100
	}
	return Factor{
		Name:        "pattern-strength",
		Score:       math.Round(score),
		Weight:      s.weights.PatternStrength,
		Description: "mean share of examples backing each detected pattern",
	}
}

// outlierFactor scores down by the fraction of examples implicated in
// at least one batch-deviation outlier. Extra-task findings fault one
// stray task rather than the example's overall shape, so they do not
// count against the example.
func (s *Scorer) outlierFactor(examples []model.StoryAnalysis, found []outliers.Outlier) Factor {
	score := 100.0
	if len(examples) > 0 {
		implicated := map[string]struct{}{}
		for _, o := range found {
			if o.Kind == outliers.KindExtraTask {
				continue
			}
			if o.ExampleID != "" {
				implicated[o.ExampleID] = struct{}{}
			}
		}
		score = (1 - float64(len(implicated))/float64(len(examples))) * 100
	}
	return Factor{
		Name:        "outlier-density",
		Score:       math.Round(score),
		Weight:      s.weights.OutlierDensity,
		Description: "share of examples free of anomalies",
	}
}
