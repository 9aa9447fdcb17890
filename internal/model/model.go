// Package model defines the shared work-item shapes passed between the
// source layer, the converter, and the learning engine. Values of these
// types are treated as read-only once constructed.
package model

import "time"

// WorkItem is a story or child task as returned by a work-item source.
type WorkItem struct {
	// ID is the source-assigned identifier (e.g. "PROJ-123").
	ID string `json:"id" yaml:"id"`

	// Title is the item's display title.
	Title string `json:"title" yaml:"title"`

	// Description is optional free text.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Type is the work-item type (e.g. "User Story", "Task").
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Estimation is the item's estimate in whatever unit the source uses
	// (hours, points, or a fraction). Zero means no estimate recorded.
	Estimation float64 `json:"estimation,omitempty" yaml:"estimation,omitempty"`

	// Tags are free-form labels attached to the item.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Priority is the source priority, 0 when unset.
	Priority int `json:"priority,omitempty" yaml:"priority,omitempty"`

	// CreatedAt is when the item was created, if the source reports it.
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// TaskDefinition is one task in the shared template shape. Both the
// per-example derived tasks and the learned template's tasks use it.
type TaskDefinition struct {
	// Title is the task title, possibly containing {{story.*}} placeholders.
	Title string `json:"title" yaml:"title"`

	// ID is a stable slug identifier. Optional on per-example tasks.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// EstimationPercent is the task's share of the story estimation,
	// expressed as a percentage (0-100).
	EstimationPercent float64 `json:"estimation_percent" yaml:"estimation_percent"`

	// Activity is the task's activity category (e.g. "Development").
	Activity string `json:"activity,omitempty" yaml:"activity,omitempty"`

	// Tags are labels carried onto created tasks.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Priority is the task priority; nil when unspecified.
	Priority *int `json:"priority,omitempty" yaml:"priority,omitempty"`

	// DependsOn lists IDs of tasks that must precede this one.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`

	// Condition is an optional boolean expression deciding whether the
	// task is instantiated for a given story.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// StoryAnalysis is one analyzed example: a story, its child tasks
// normalized into the template shape, and any conversion warnings.
// Built once per example by the analyze package; read-only afterwards.
type StoryAnalysis struct {
	// SourceID identifies the example (normally the story ID).
	SourceID string `json:"source_id" yaml:"source_id"`

	// Story is the parent record.
	Story WorkItem `json:"story" yaml:"story"`

	// Tasks are the child tasks in the shared template shape.
	Tasks []TaskDefinition `json:"tasks" yaml:"tasks"`

	// RawEstimations are the children's estimation values in the source's
	// original unit, parallel to Tasks. Used for estimation-style
	// detection, never for template building.
	RawEstimations []float64 `json:"raw_estimations,omitempty" yaml:"raw_estimations,omitempty"`

	// Warnings are non-fatal conversion notes (e.g. missing estimation).
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// TaskCount returns the number of derived tasks.
func (a *StoryAnalysis) TaskCount() int {
	return len(a.Tasks)
}

// TotalEstimation returns the story's recorded estimation, or 0.
func (a *StoryAnalysis) TotalEstimation() float64 {
	return a.Story.Estimation
}
