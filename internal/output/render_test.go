package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shahbajlive/templar/internal/confidence"
	"github.com/shahbajlive/templar/internal/learn"
	"github.com/shahbajlive/templar/internal/model"
	"github.com/shahbajlive/templar/internal/outliers"
	"github.com/shahbajlive/templar/internal/patterns"
	"github.com/shahbajlive/templar/internal/template"
)

func sampleResult() *learn.Result {
	return &learn.Result{
		RunID:       "run-abc",
		GeneratedAt: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		ExampleIDs:  []string{"s1", "s2", "s3"},
		Skipped:     []learn.Skipped{{ID: "s4", Reason: "no child tasks"}},
		Template: template.Template{
			Name: "learned-template",
			Tasks: []model.TaskDefinition{
				{ID: "payment-flow", Title: "Implement payment flow", EstimationPercent: 47, Activity: "Development"},
				{ID: "write-tests", Title: "Write tests", EstimationPercent: 47, Activity: "Development"},
			},
		},
		Patterns: &patterns.Detection{
			ExampleCount: 3,
			CommonTasks: []patterns.CommonTaskPattern{
				{CanonicalTitle: "Implement payment flow", Frequency: 3, FrequencyRatio: 1.0, AvgEstimationPercent: 47.22, Activity: "Development", Variants: []string{"Implement payment flow"}},
			},
			Estimation: patterns.EstimationPattern{DetectedStyle: patterns.StylePoints, IsConsistent: true},
		},
		Outliers: []outliers.Outlier{
			{Kind: outliers.KindExtraTask, Message: `"Fix typo in readme" appears in only one example and may be story-specific`, Severity: 0.67},
		},
		Confidence: confidence.Score{
			Overall: 82,
			Level:   confidence.LevelHigh,
			Factors: []confidence.Factor{
				{Name: "sample-size", Score: 60, Weight: 0.25, Description: "number of analyzable examples, saturating at 5"},
			},
		},
		Suggestions: []string{"Agree on one wording for recurring tasks."},
	}
}

func TestRendererResult(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewRenderer(&buf, ColorNever).Result(sampleResult())
	out := buf.String()

	for _, want := range []string{
		"run-abc",
		"3 analyzed, 1 skipped",
		"skipped s4: no child tasks",
		"Implement payment flow",
		"3/3",
		"estimation style: points",
		"82/100",
		"high",
		"sample-size",
		"Fix typo in readme",
		"Agree on one wording",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// ColorNever must not emit escape sequences.
	if strings.Contains(out, "\x1b[") {
		t.Error("plain output contains ANSI escapes")
	}
}

func TestRendererEmptySections(t *testing.T) {
	t.Parallel()

	result := sampleResult()
	result.Patterns = &patterns.Detection{}
	result.Outliers = nil
	result.Suggestions = nil

	var buf bytes.Buffer
	NewRenderer(&buf, ColorNever).Result(result)
	out := buf.String()

	if !strings.Contains(out, "no recurring task patterns") {
		t.Errorf("missing empty-patterns note:\n%s", out)
	}
	if !strings.Contains(out, "no outliers detected") {
		t.Errorf("missing empty-outliers note:\n%s", out)
	}
	if strings.Contains(out, "Suggestions") {
		t.Error("suggestions header should be omitted when empty")
	}
}

func TestPad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"abc", 5, "abc  "},
		{"abcdef", 4, "abc…"},
		{"", 3, "   "},
	}
	for _, tt := range tests {
		if got := pad(tt.in, tt.width); got != tt.want {
			t.Errorf("pad(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestGauge(t *testing.T) {
	t.Parallel()

	if got := gauge(50, 10); got != "[#####.....]" {
		t.Errorf("gauge(50, 10) = %q", got)
	}
	if got := gauge(0, 4); got != "[....]" {
		t.Errorf("gauge(0, 4) = %q", got)
	}
	if got := gauge(150, 4); got != "[####]" {
		t.Errorf("gauge(150, 4) = %q", got)
	}
}

func TestMarkdownReport(t *testing.T) {
	t.Parallel()

	report := MarkdownReport(sampleResult())

	for _, want := range []string{
		"# Template learning report",
		"`run-abc`",
		"**82/100 (high)**",
		"| 1 | Implement payment flow | 47% | Development |",
		"## Skipped examples",
		"## Outliers",
		"## Suggestions",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestRenderMarkdownPlain(t *testing.T) {
	t.Parallel()

	md := "# Title\n\nbody\n"
	if got := RenderMarkdown(md, ColorNever); got != md {
		t.Errorf("plain render altered markdown: %q", got)
	}
}

func TestConfirmWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		opts   ConfirmOptions
		want   bool
	}{
		{"yes", "y\n", ConfirmOptions{}, true},
		{"full yes", "yes\n", ConfirmOptions{}, true},
		{"no", "n\n", ConfirmOptions{}, false},
		{"empty default no", "\n", ConfirmOptions{}, false},
		{"empty default yes", "\n", ConfirmOptions{Default: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			got := ConfirmWriter(&buf, strings.NewReader(tt.input), "proceed?", tt.opts)
			if got != tt.want {
				t.Errorf("ConfirmWriter = %v, want %v", got, tt.want)
			}
			if !strings.Contains(buf.String(), "proceed?") {
				t.Errorf("prompt not written: %q", buf.String())
			}
		})
	}
}
