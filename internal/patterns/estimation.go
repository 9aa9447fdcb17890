package patterns

import (
	"math"

	"github.com/shahbajlive/templar/internal/model"
)

// EstimationStyle is the estimation convention an example uses. It is a
// closed set: switch statements over it should enumerate every value.
type EstimationStyle string

const (
	// StylePercentage means per-task values are fractions summing to ~1.
	StylePercentage EstimationStyle = "percentage"

	// StylePoints means values are drawn from the planning-poker set.
	StylePoints EstimationStyle = "points"

	// StyleHours means raw effort values against a story estimate.
	StyleHours EstimationStyle = "hours"

	// StyleMixed means examples disagree on the convention.
	StyleMixed EstimationStyle = "mixed"

	// StyleUnknown means the example carried no classifiable values.
	StyleUnknown EstimationStyle = "unknown"
)

// percentageSumTolerance is the absolute tolerance when checking whether
// fractional values sum to 1.
const percentageSumTolerance = 0.1

// pointsScale is the Fibonacci-like planning-poker scale.
var pointsScale = map[float64]struct{}{
	1: {}, 2: {}, 3: {}, 5: {}, 8: {}, 13: {}, 21: {}, 34: {},
}

// EstimationPattern describes the dominant estimation convention across
// a batch of examples.
type EstimationPattern struct {
	// DetectedStyle is the shared style, or StyleMixed on disagreement.
	DetectedStyle EstimationStyle `json:"detected_style" yaml:"detected_style"`

	// IsConsistent is true when every classifiable example agrees.
	IsConsistent bool `json:"is_consistent" yaml:"is_consistent"`

	// AverageTotal is the mean story estimation across examples, for
	// diagnostic display.
	AverageTotal float64 `json:"average_total" yaml:"average_total"`

	// PerExample maps example ID to its classified style.
	PerExample map[string]EstimationStyle `json:"per_example,omitempty" yaml:"per_example,omitempty"`
}

// DetectEstimationPattern classifies every example's raw estimation
// values and aggregates the result. Examples that cannot be classified
// (no values, no story estimate) are reported as unknown and ignored
// when judging consistency.
func DetectEstimationPattern(examples []model.StoryAnalysis) EstimationPattern {
	pattern := EstimationPattern{
		DetectedStyle: StyleUnknown,
		PerExample:    map[string]EstimationStyle{},
	}
	if len(examples) == 0 {
		return pattern
	}

	var totalSum float64
	for _, ex := range examples {
		totalSum += ex.Story.Estimation
	}
	pattern.AverageTotal = round2(totalSum / float64(len(examples)))

	var classified []EstimationStyle
	for _, ex := range examples {
		style := ClassifyEstimation(ex.RawEstimations, ex.Story.Estimation)
		pattern.PerExample[ex.SourceID] = style
		if style != StyleUnknown {
			classified = append(classified, style)
		}
	}

	if len(classified) == 0 {
		return pattern
	}

	shared := classified[0]
	for _, style := range classified[1:] {
		if style != shared {
			pattern.DetectedStyle = StyleMixed
			pattern.IsConsistent = false
			return pattern
		}
	}

	pattern.DetectedStyle = shared
	pattern.IsConsistent = true
	return pattern
}

// ClassifyEstimation decides which convention a single example's raw
// per-task values follow:
//
//   - percentage: every value ≤ 1 and the values sum to 1 within 0.1
//   - points: every value on the planning-poker scale
//   - hours: anything else, when a story estimate exists
//   - unknown: no values, or no story estimate to anchor hours against
func ClassifyEstimation(values []float64, storyEstimation float64) EstimationStyle {
	if len(values) == 0 {
		return StyleUnknown
	}

	allFractional := true
	sum := 0.0
	for _, v := range values {
		if v > 1 {
			allFractional = false
		}
		sum += v
	}
	if allFractional && math.Abs(sum-1) <= percentageSumTolerance {
		return StylePercentage
	}

	allPoints := true
	for _, v := range values {
		if _, ok := pointsScale[v]; !ok {
			allPoints = false
			break
		}
	}
	if allPoints {
		return StylePoints
	}

	if storyEstimation > 0 {
		return StyleHours
	}
	return StyleUnknown
}
