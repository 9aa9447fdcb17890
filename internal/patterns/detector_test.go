package patterns

import (
	"math"
	"slices"
	"testing"

	"github.com/shahbajlive/templar/internal/model"
)

// makeExample builds a StoryAnalysis with evenly split task shares.
func makeExample(t *testing.T, id string, estimation float64, titles ...string) model.StoryAnalysis {
	t.Helper()
	share := 0.0
	if len(titles) > 0 {
		share = 100.0 / float64(len(titles))
	}
	ex := model.StoryAnalysis{
		SourceID: id,
		Story: model.WorkItem{
			ID:         id,
			Title:      "Story " + id,
			Type:       "User Story",
			Estimation: estimation,
		},
	}
	for _, title := range titles {
		ex.Tasks = append(ex.Tasks, model.TaskDefinition{
			Title:             title,
			EstimationPercent: share,
		})
	}
	return ex
}

func TestDetectZeroExamples(t *testing.T) {
	t.Parallel()

	det := NewDetector(DefaultConfig()).Detect(nil)

	if det.ExampleCount != 0 {
		t.Errorf("ExampleCount = %d, want 0", det.ExampleCount)
	}
	if len(det.CommonTasks) != 0 {
		t.Errorf("CommonTasks = %v, want empty", det.CommonTasks)
	}
	if det.TaskCounts.Mean != 0 || det.TaskCounts.StdDev != 0 {
		t.Errorf("TaskCounts = %+v, want zeros", det.TaskCounts)
	}
	if det.Estimation.DetectedStyle != StyleUnknown {
		t.Errorf("DetectedStyle = %q, want unknown", det.Estimation.DetectedStyle)
	}
}

func TestDetectIdenticalTaskAcrossExamples(t *testing.T) {
	t.Parallel()

	examples := []model.StoryAnalysis{
		makeExample(t, "s1", 10, "Implement login API"),
		makeExample(t, "s2", 12, "Implement login API"),
		makeExample(t, "s3", 8, "Implement login API"),
	}

	det := NewDetector(DefaultConfig()).Detect(examples)

	if len(det.CommonTasks) != 1 {
		t.Fatalf("expected exactly 1 pattern, got %d: %+v", len(det.CommonTasks), det.CommonTasks)
	}
	p := det.CommonTasks[0]
	if p.Frequency != 3 {
		t.Errorf("Frequency = %d, want 3", p.Frequency)
	}
	if p.FrequencyRatio != 1.0 {
		t.Errorf("FrequencyRatio = %f, want 1.0", p.FrequencyRatio)
	}
	if p.CanonicalTitle != "Implement login API" {
		t.Errorf("CanonicalTitle = %q", p.CanonicalTitle)
	}
	if p.AvgEstimationPercent != 100 {
		t.Errorf("AvgEstimationPercent = %f, want 100", p.AvgEstimationPercent)
	}
	if p.EstimationStdDev != 0 {
		t.Errorf("EstimationStdDev = %f, want 0", p.EstimationStdDev)
	}
	if p.Activity != DefaultActivity {
		t.Errorf("Activity = %q, want %q", p.Activity, DefaultActivity)
	}
	if want := []string{"s1", "s2", "s3"}; !slices.Equal(p.Examples, want) {
		t.Errorf("Examples = %v, want %v", p.Examples, want)
	}
}

func TestDetectFrequencyCountsDistinctExamples(t *testing.T) {
	t.Parallel()

	// One example lists the same-sounding task twice; it must count once.
	ex := makeExample(t, "s1", 10, "Write tests", "Write tests")
	other := makeExample(t, "s2", 10, "Write tests")

	det := NewDetector(DefaultConfig()).Detect([]model.StoryAnalysis{ex, other})

	if len(det.CommonTasks) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(det.CommonTasks))
	}
	if got := det.CommonTasks[0].Frequency; got != 2 {
		t.Errorf("Frequency = %d, want 2 (distinct examples)", got)
	}
	if got := len(det.CommonTasks[0].Variants); got != 1 {
		t.Errorf("Variants = %v, want deduplicated to 1", det.CommonTasks[0].Variants)
	}
}

func TestDetectFrequencyInvariant(t *testing.T) {
	t.Parallel()

	examples := []model.StoryAnalysis{
		makeExample(t, "s1", 10, "Implement login API", "Write tests", "Deploy to staging"),
		makeExample(t, "s2", 12, "Implement login API", "Write unit tests"),
		makeExample(t, "s3", 8, "Update documentation"),
	}

	det := NewDetector(DefaultConfig()).Detect(examples)

	for _, p := range det.CommonTasks {
		if p.Frequency > len(examples) {
			t.Errorf("pattern %q frequency %d exceeds example count %d",
				p.CanonicalTitle, p.Frequency, len(examples))
		}
		if p.FrequencyRatio < 0 || p.FrequencyRatio > 1 {
			t.Errorf("pattern %q ratio %f out of [0,1]", p.CanonicalTitle, p.FrequencyRatio)
		}
		if len(p.Examples) != p.Frequency {
			t.Errorf("pattern %q lists %d examples for frequency %d",
				p.CanonicalTitle, len(p.Examples), p.Frequency)
		}
	}
}

func TestCanonicalTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		titles []string
		want   string
	}{
		{name: "most_frequent_wins", titles: []string{"Write tests", "Write tests", "Write unit tests"}, want: "Write tests"},
		{name: "tie_broken_by_longest", titles: []string{"Write tests", "Write unit tests"}, want: "Write unit tests"},
		{name: "single", titles: []string{"Deploy"}, want: "Deploy"},
		{name: "empty", titles: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CanonicalTitle(tt.titles); got != tt.want {
				t.Fatalf("CanonicalTitle(%v) = %q, want %q", tt.titles, got, tt.want)
			}
		})
	}
}

func TestActivityDistribution(t *testing.T) {
	t.Parallel()

	ex := model.StoryAnalysis{
		SourceID: "s1",
		Story:    model.WorkItem{ID: "s1", Estimation: 10},
		Tasks: []model.TaskDefinition{
			{Title: "Design schema", Activity: "Design", EstimationPercent: 25},
			{Title: "Implement API", Activity: "Development", EstimationPercent: 50},
			{Title: "Implement UI", Activity: "Development", EstimationPercent: 15},
			{Title: "Write tests", Activity: "Testing", EstimationPercent: 10},
		},
	}

	det := NewDetector(DefaultConfig()).Detect([]model.StoryAnalysis{ex})

	if got := det.ActivityDistribution["Development"]; got != 50 {
		t.Errorf("Development share = %f, want 50", got)
	}
	if got := det.ActivityDistribution["Design"]; got != 25 {
		t.Errorf("Design share = %f, want 25", got)
	}

	var sum float64
	for _, v := range det.ActivityDistribution {
		sum += v
	}
	if math.Abs(sum-100) > 0.5 {
		t.Errorf("activity shares sum to %f, want ~100", sum)
	}
}

func TestTaskCountStats(t *testing.T) {
	t.Parallel()

	examples := []model.StoryAnalysis{
		makeExample(t, "s1", 10, "a", "b", "c", "d"),
		makeExample(t, "s2", 10, "e", "f"),
	}

	det := NewDetector(DefaultConfig()).Detect(examples)

	if det.TaskCounts.Mean != 3 {
		t.Errorf("Mean = %f, want 3", det.TaskCounts.Mean)
	}
	if det.TaskCounts.StdDev != 1 {
		t.Errorf("StdDev = %f, want 1", det.TaskCounts.StdDev)
	}
}

func TestClassifyEstimation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		total  float64
		want   EstimationStyle
	}{
		{name: "percentages", values: []float64{0.5, 0.3, 0.2}, total: 10, want: StylePercentage},
		{name: "percentages_within_tolerance", values: []float64{0.5, 0.45}, total: 10, want: StylePercentage},
		{name: "points", values: []float64{1, 2, 3, 5, 8}, total: 19, want: StylePoints},
		{name: "hours", values: []float64{4, 6, 8}, total: 18, want: StyleHours},
		{name: "hours_need_story_estimate", values: []float64{4.5, 6.5}, total: 0, want: StyleUnknown},
		{name: "no_values", values: nil, total: 10, want: StyleUnknown},
		{name: "fractions_not_summing", values: []float64{0.1, 0.2}, total: 10, want: StyleHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyEstimation(tt.values, tt.total); got != tt.want {
				t.Fatalf("ClassifyEstimation(%v, %f) = %q, want %q", tt.values, tt.total, got, tt.want)
			}
		})
	}
}

func TestDetectEstimationPatternMixed(t *testing.T) {
	t.Parallel()

	// Three examples report fractions summing to ~1, two report raw
	// hours: the batch is mixed and inconsistent.
	percent := []float64{0.5, 0.3, 0.2}
	hours := []float64{4, 6, 8}

	var examples []model.StoryAnalysis
	for i, raw := range [][]float64{percent, percent, percent, hours, hours} {
		ex := makeExample(t, string(rune('a'+i)), 16, "Implement feature", "Write tests", "Deploy")
		ex.RawEstimations = raw
		examples = append(examples, ex)
	}

	pattern := DetectEstimationPattern(examples)

	if pattern.IsConsistent {
		t.Error("IsConsistent = true, want false")
	}
	if pattern.DetectedStyle != StyleMixed {
		t.Errorf("DetectedStyle = %q, want mixed", pattern.DetectedStyle)
	}
}

func TestDetectEstimationPatternConsistent(t *testing.T) {
	t.Parallel()

	var examples []model.StoryAnalysis
	for i := 0; i < 3; i++ {
		ex := makeExample(t, string(rune('a'+i)), 20, "Implement feature", "Write tests")
		ex.RawEstimations = []float64{3, 5}
		examples = append(examples, ex)
	}

	pattern := DetectEstimationPattern(examples)

	if !pattern.IsConsistent {
		t.Error("IsConsistent = false, want true")
	}
	if pattern.DetectedStyle != StylePoints {
		t.Errorf("DetectedStyle = %q, want points", pattern.DetectedStyle)
	}
	if pattern.AverageTotal != 20 {
		t.Errorf("AverageTotal = %f, want 20", pattern.AverageTotal)
	}
}
