package merge

import (
	"testing"

	"github.com/shahbajlive/templar/internal/model"
)

func intPtr(v int) *int { return &v }

func analysis(id string, tasks ...model.TaskDefinition) model.StoryAnalysis {
	return model.StoryAnalysis{
		SourceID: id,
		Story:    model.WorkItem{ID: id, Title: "Story " + id, Estimation: 10},
		Tasks:    tasks,
	}
}

func TestMergeEmpty(t *testing.T) {
	t.Parallel()

	merger := NewMerger(DefaultConfig())
	if got := merger.Merge(nil, nil); got != nil {
		t.Fatalf("Merge(nil) = %v, want nil", got)
	}
}

func TestMergeConsolidatesSimilarTasks(t *testing.T) {
	t.Parallel()

	examples := []model.StoryAnalysis{
		analysis("s1", model.TaskDefinition{Title: "Implement login API", EstimationPercent: 40, Tags: []string{"backend"}}),
		analysis("s2", model.TaskDefinition{Title: "Implement the login API", EstimationPercent: 50, Tags: []string{"auth"}}),
		analysis("s3", model.TaskDefinition{Title: "Implement login API", EstimationPercent: 45}),
	}

	merged := NewMerger(DefaultConfig()).Merge(examples, nil)

	if len(merged) != 1 {
		t.Fatalf("expected 1 merged task, got %d: %+v", len(merged), merged)
	}

	mt := merged[0]
	if len(mt.Sources) != 3 {
		t.Fatalf("Sources = %d, want 3", len(mt.Sources))
	}
	if mt.ExampleCount() != 3 {
		t.Errorf("ExampleCount = %d, want 3", mt.ExampleCount())
	}

	// Mean of 40, 50, 45 rounded to nearest integer percent.
	if mt.Task.EstimationPercent != 45 {
		t.Errorf("EstimationPercent = %f, want 45", mt.Task.EstimationPercent)
	}

	// Union of tags, deduplicated and sorted.
	wantTags := []string{"auth", "backend"}
	if len(mt.Task.Tags) != len(wantTags) {
		t.Fatalf("Tags = %v, want %v", mt.Task.Tags, wantTags)
	}
	for i, tag := range wantTags {
		if mt.Task.Tags[i] != tag {
			t.Errorf("Tags[%d] = %q, want %q", i, mt.Task.Tags[i], tag)
		}
	}

	if mt.Similarity <= 0 || mt.Similarity > 1 {
		t.Errorf("Similarity = %f, want in (0,1]", mt.Similarity)
	}
}

func TestMergePriority(t *testing.T) {
	t.Parallel()

	withPriority := []model.StoryAnalysis{
		analysis("s1", model.TaskDefinition{Title: "Write tests", EstimationPercent: 20, Priority: intPtr(1)}),
		analysis("s2", model.TaskDefinition{Title: "Write tests", EstimationPercent: 20, Priority: intPtr(2)}),
		analysis("s3", model.TaskDefinition{Title: "Write tests", EstimationPercent: 20}),
	}

	merged := NewMerger(DefaultConfig()).Merge(withPriority, nil)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged task, got %d", len(merged))
	}
	if merged[0].Task.Priority == nil || *merged[0].Task.Priority != 2 {
		t.Errorf("Priority = %v, want 2 (rounded mean of 1 and 2)", merged[0].Task.Priority)
	}

	without := []model.StoryAnalysis{
		analysis("s1", model.TaskDefinition{Title: "Write tests", EstimationPercent: 20}),
	}
	merged = NewMerger(DefaultConfig()).Merge(without, nil)
	if merged[0].Task.Priority != nil {
		t.Errorf("Priority = %v, want nil when no member sets one", merged[0].Task.Priority)
	}
}

func TestMergeOrdering(t *testing.T) {
	t.Parallel()

	// "Write tests" appears in all three examples, "Deploy" in one with a
	// larger share, "Update changelog" in one with a smaller share.
	examples := []model.StoryAnalysis{
		analysis("s1",
			model.TaskDefinition{Title: "Write tests", EstimationPercent: 30},
			model.TaskDefinition{Title: "Deploy to staging cluster", EstimationPercent: 60},
		),
		analysis("s2",
			model.TaskDefinition{Title: "Write tests", EstimationPercent: 30},
			model.TaskDefinition{Title: "Update changelog", EstimationPercent: 10},
		),
		analysis("s3", model.TaskDefinition{Title: "Write tests", EstimationPercent: 30}),
	}

	merged := NewMerger(DefaultConfig()).Merge(examples, nil)

	if len(merged) != 3 {
		t.Fatalf("expected 3 merged tasks, got %d: %+v", len(merged), merged)
	}
	if merged[0].Task.Title != "Write tests" {
		t.Errorf("first task = %q, want the broadest pattern", merged[0].Task.Title)
	}
	if merged[1].Task.Title != "Deploy to staging cluster" {
		t.Errorf("second task = %q, want the higher-share singleton", merged[1].Task.Title)
	}

	// Round-trip: the distinct-example count used for ordering must be
	// re-derivable from the recorded sources.
	for _, mt := range merged {
		if len(mt.Sources) == 0 {
			t.Fatalf("merged task %q has no sources", mt.Task.Title)
		}
		seen := map[string]struct{}{}
		for _, s := range mt.Sources {
			seen[s.ExampleID] = struct{}{}
		}
		if len(seen) != mt.ExampleCount() {
			t.Errorf("task %q: sources imply %d examples, ExampleCount() = %d",
				mt.Task.Title, len(seen), mt.ExampleCount())
		}
	}
}

func TestMergeSingletonCohesion(t *testing.T) {
	t.Parallel()

	examples := []model.StoryAnalysis{
		analysis("s1", model.TaskDefinition{Title: "One of a kind", EstimationPercent: 100}),
	}
	merged := NewMerger(DefaultConfig()).Merge(examples, nil)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged task, got %d", len(merged))
	}
	if merged[0].Similarity != 1.0 {
		t.Errorf("singleton Similarity = %f, want 1.0", merged[0].Similarity)
	}
}

func TestSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "simple", title: "Write tests", want: "write-tests"},
		{name: "verb_prefix_stripped", title: "Implement login API", want: "login-api"},
		{name: "placeholder_stripped", title: "Build {{story.title}} docs", want: "docs"},
		{name: "special_chars", title: "Fix auth & session (v2)", want: "auth-session-v2"},
		{name: "truncated", title: "Create an extremely long task title that keeps going", want: "an-extremely-long-task-title-t"},
		{name: "empty_after_strip", title: "{{story.title}}", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Slug(tt.title); got != tt.want {
				t.Fatalf("Slug(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestMergeAssignsFallbackID(t *testing.T) {
	t.Parallel()

	examples := []model.StoryAnalysis{
		analysis("s1", model.TaskDefinition{Title: "{{story.title}}", EstimationPercent: 100}),
	}
	merged := NewMerger(DefaultConfig()).Merge(examples, nil)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged task, got %d", len(merged))
	}
	if merged[0].Task.ID != "task-1" {
		t.Errorf("ID = %q, want task-1 fallback", merged[0].Task.ID)
	}
}
