// Package patterns detects recurring task patterns across analyzed
// examples: which tasks show up in most breakdowns, how estimation is
// expressed, and how task counts are distributed.
package patterns

import (
	"log/slog"
	"math"
	"sort"

	"github.com/shahbajlive/templar/internal/model"
	"github.com/shahbajlive/templar/internal/similarity"
)

// DefaultReportingThreshold is the clustering threshold used when
// detecting common-task patterns. It is deliberately higher than the
// merger's consolidation threshold: reporting favors fewer, more
// confident patterns.
const DefaultReportingThreshold = 0.6

// DefaultActivity is assumed when a task carries no activity category.
const DefaultActivity = "Development"

// Config controls pattern detection.
type Config struct {
	// ReportingThreshold is the complete-linkage clustering threshold for
	// common-task patterns. Default: 0.6
	ReportingThreshold float64 `json:"reporting_threshold" yaml:"reporting_threshold"`

	// Similarity configures the underlying text similarity blend.
	Similarity similarity.Config `json:"similarity" yaml:"similarity"`
}

// DefaultConfig returns the standard detection configuration.
func DefaultConfig() Config {
	return Config{
		ReportingThreshold: DefaultReportingThreshold,
		Similarity:         similarity.DefaultConfig(),
	}
}

// Occurrence is one task from one example, flattened into the working
// set the clusterer operates on. It exists only transiently during
// detection and merging.
type Occurrence struct {
	NormalizedTitle   string
	OriginalTitle     string
	EstimationPercent float64
	Activity          string
	Tags              []string
	Priority          *int
	SourceID          string
}

// CommonTaskPattern is one recurring task detected across examples.
// Rebuilt on every detection run, never mutated in place.
type CommonTaskPattern struct {
	// CanonicalTitle is the representative title for the cluster: the
	// most frequent original title, ties broken by longest.
	CanonicalTitle string `json:"canonical_title" yaml:"canonical_title"`

	// Variants are the de-duplicated original titles seen for this task.
	Variants []string `json:"variants" yaml:"variants"`

	// Frequency is the number of distinct source examples containing the
	// task. An example listing a similar-sounding task twice counts once.
	Frequency int `json:"frequency" yaml:"frequency"`

	// FrequencyRatio is Frequency divided by the number of examples.
	FrequencyRatio float64 `json:"frequency_ratio" yaml:"frequency_ratio"`

	// Examples are the distinct source example IDs containing the task,
	// sorted. len(Examples) == Frequency.
	Examples []string `json:"examples" yaml:"examples"`

	// AvgEstimationPercent is the mean estimation share over the
	// cluster's occurrences, rounded to 2 decimals.
	AvgEstimationPercent float64 `json:"avg_estimation_percent" yaml:"avg_estimation_percent"`

	// EstimationStdDev is the population standard deviation of the
	// cluster's estimation shares, rounded to 2 decimals.
	EstimationStdDev float64 `json:"estimation_std_dev" yaml:"estimation_std_dev"`

	// Activity is the most frequent activity category in the cluster.
	Activity string `json:"activity" yaml:"activity"`
}

// TaskCountStats summarizes per-example task counts.
type TaskCountStats struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
}

// Detection is the output of a detection run.
type Detection struct {
	// ExampleCount is the number of examples analyzed.
	ExampleCount int `json:"example_count" yaml:"example_count"`

	// CommonTasks are the detected recurring task patterns, broadest
	// first.
	CommonTasks []CommonTaskPattern `json:"common_tasks" yaml:"common_tasks"`

	// ActivityDistribution is the percentage breakdown of task activity
	// categories across all examples, rounded to 2 decimals.
	ActivityDistribution map[string]float64 `json:"activity_distribution" yaml:"activity_distribution"`

	// TaskCounts holds mean and standard deviation of per-example task
	// counts.
	TaskCounts TaskCountStats `json:"task_counts" yaml:"task_counts"`

	// Estimation describes the dominant estimation convention.
	Estimation EstimationPattern `json:"estimation" yaml:"estimation"`
}

// Detector runs pattern detection over a batch of examples.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector with the given configuration.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect clusters all tasks across examples and derives the recurring
// patterns plus batch-level statistics. Zero examples yields an empty
// zero-valued result rather than an error.
func (d *Detector) Detect(examples []model.StoryAnalysis) *Detection {
	det := &Detection{
		ExampleCount:         len(examples),
		ActivityDistribution: map[string]float64{},
	}
	if len(examples) == 0 {
		return det
	}

	occurrences := Flatten(examples)

	slog.Info("pattern detection starting",
		"examples", len(examples),
		"occurrences", len(occurrences),
		"threshold", d.cfg.ReportingThreshold,
	)

	clusters := similarity.Cluster(occurrences, occurrenceKey, d.cfg.ReportingThreshold, d.cfg.Similarity)

	for _, cluster := range clusters {
		det.CommonTasks = append(det.CommonTasks, d.buildPattern(cluster, len(examples)))
	}

	// Broadest patterns first, then by estimation share, then title for a
	// stable order.
	sort.Slice(det.CommonTasks, func(i, j int) bool {
		a, b := det.CommonTasks[i], det.CommonTasks[j]
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		if a.AvgEstimationPercent != b.AvgEstimationPercent {
			return a.AvgEstimationPercent > b.AvgEstimationPercent
		}
		return a.CanonicalTitle < b.CanonicalTitle
	})

	det.ActivityDistribution = activityDistribution(occurrences)
	det.TaskCounts = taskCountStats(examples)
	det.Estimation = DetectEstimationPattern(examples)

	slog.Info("pattern detection completed",
		"patterns", len(det.CommonTasks),
		"style", det.Estimation.DetectedStyle,
		"consistent", det.Estimation.IsConsistent,
	)

	return det
}

// Flatten expands every example's task list into occurrences tagged with
// their normalized title and source example.
func Flatten(examples []model.StoryAnalysis) []Occurrence {
	var occurrences []Occurrence
	for _, ex := range examples {
		for _, task := range ex.Tasks {
			activity := task.Activity
			if activity == "" {
				activity = DefaultActivity
			}
			occurrences = append(occurrences, Occurrence{
				NormalizedTitle:   similarity.NormalizeTitle(task.Title),
				OriginalTitle:     task.Title,
				EstimationPercent: task.EstimationPercent,
				Activity:          activity,
				Tags:              task.Tags,
				Priority:          task.Priority,
				SourceID:          ex.SourceID,
			})
		}
	}
	return occurrences
}

// occurrenceKey is the clustering key for an occurrence.
func occurrenceKey(o Occurrence) string {
	return o.NormalizedTitle
}

// buildPattern derives a CommonTaskPattern from one cluster.
func (d *Detector) buildPattern(cluster []Occurrence, exampleCount int) CommonTaskPattern {
	titles := make([]string, len(cluster))
	shares := make([]float64, len(cluster))
	for i, o := range cluster {
		titles[i] = o.OriginalTitle
		shares[i] = o.EstimationPercent
	}

	mean, stddev := meanStdDev(shares)
	sources := sourceIDs(cluster)

	return CommonTaskPattern{
		CanonicalTitle:       CanonicalTitle(titles),
		Variants:             dedupe(titles),
		Frequency:            len(sources),
		FrequencyRatio:       float64(len(sources)) / float64(exampleCount),
		Examples:             sources,
		AvgEstimationPercent: round2(mean),
		EstimationStdDev:     round2(stddev),
		Activity:             dominantActivity(cluster),
	}
}

// CanonicalTitle picks the representative title: the most frequent one,
// ties broken by the longest string. Shared with the merger so both
// stages agree on representatives.
func CanonicalTitle(titles []string) string {
	if len(titles) == 0 {
		return ""
	}
	counts := make(map[string]int, len(titles))
	for _, t := range titles {
		counts[t]++
	}
	best := titles[0]
	for t, n := range counts {
		if n > counts[best] {
			best = t
			continue
		}
		if n == counts[best] {
			if len(t) > len(best) || (len(t) == len(best) && t < best) {
				best = t
			}
		}
	}
	return best
}

// sourceIDs returns the distinct example IDs in a cluster, sorted.
func sourceIDs(cluster []Occurrence) []string {
	seen := make(map[string]struct{}, len(cluster))
	for _, o := range cluster {
		seen[o.SourceID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// dominantActivity returns the most frequent activity in a cluster,
// ties broken alphabetically for determinism.
func dominantActivity(cluster []Occurrence) string {
	counts := map[string]int{}
	for _, o := range cluster {
		counts[o.Activity]++
	}
	best, bestCount := DefaultActivity, 0
	for activity, n := range counts {
		if n > bestCount || (n == bestCount && activity < best) {
			best, bestCount = activity, n
		}
	}
	return best
}

// dedupe removes duplicate titles preserving first-seen order.
func dedupe(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// activityDistribution computes the percentage share of each activity
// across all occurrences, rounded to 2 decimals.
func activityDistribution(occurrences []Occurrence) map[string]float64 {
	dist := map[string]float64{}
	if len(occurrences) == 0 {
		return dist
	}
	counts := map[string]int{}
	for _, o := range occurrences {
		counts[o.Activity]++
	}
	for activity, n := range counts {
		dist[activity] = round2(float64(n) / float64(len(occurrences)) * 100)
	}
	return dist
}

// taskCountStats computes mean and population standard deviation of the
// per-example task counts.
func taskCountStats(examples []model.StoryAnalysis) TaskCountStats {
	counts := make([]float64, len(examples))
	for i, ex := range examples {
		counts[i] = float64(len(ex.Tasks))
	}
	mean, stddev := meanStdDev(counts)
	return TaskCountStats{Mean: round2(mean), StdDev: round2(stddev)}
}

// meanStdDev returns the mean and population standard deviation of a
// sample. Empty samples yield (0, 0).
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// round2 rounds to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
