// Package template defines the human-editable breakdown template format:
// its YAML serialization, declarative validation, dependency ordering,
// and per-task inclusion conditions.
package template

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shahbajlive/templar/internal/model"
)

// knownActivities are the activity categories a validated template may
// use. Empty activity is allowed and treated as Development downstream.
var knownActivities = map[string]struct{}{
	"Design":        {},
	"Development":   {},
	"Testing":       {},
	"Documentation": {},
	"Deployment":    {},
	"Requirements":  {},
}

// Template is a reusable story breakdown.
type Template struct {
	// Name is the template's display name.
	Name string `json:"name" yaml:"name"`

	// Description is optional free text.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// WorkItemType restricts which story types the template applies to.
	WorkItemType string `json:"work_item_type,omitempty" yaml:"work_item_type,omitempty"`

	// TagFilters restricts application to stories carrying these tags.
	TagFilters []string `json:"tag_filters,omitempty" yaml:"tag_filters,omitempty"`

	// ReferenceEstimation is the story estimation the task shares were
	// calibrated against, for display only.
	ReferenceEstimation float64 `json:"reference_estimation,omitempty" yaml:"reference_estimation,omitempty"`

	// Tasks are the breakdown's task definitions.
	Tasks []model.TaskDefinition `json:"tasks" yaml:"tasks"`

	// GeneratedAt is set when a template is produced by learning.
	GeneratedAt time.Time `json:"generated_at,omitempty" yaml:"generated_at,omitempty"`
}

// Marshal serializes the template to its YAML file format.
func (t *Template) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal template: %w", err)
	}
	return data, nil
}

// Load reads and validates a template from a YAML file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a template from YAML bytes.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Save validates and writes the template to a YAML file.
func (t *Template) Save(path string) error {
	if err := t.Validate(); err != nil {
		return err
	}
	data, err := t.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}

// Validate checks the template's declarative shape rules: non-empty name
// and task list, unique task IDs, estimation shares within 0-100, known
// activities, resolvable dependency references, and parsable conditions.
func (t *Template) Validate() error {
	var problems []string

	if strings.TrimSpace(t.Name) == "" {
		problems = append(problems, "template name is required")
	}
	if len(t.Tasks) == 0 {
		problems = append(problems, "template has no tasks")
	}

	ids := map[string]int{}
	for i, task := range t.Tasks {
		ref := task.ID
		if ref == "" {
			ref = fmt.Sprintf("#%d", i+1)
		}
		if strings.TrimSpace(task.Title) == "" {
			problems = append(problems, fmt.Sprintf("task %s: title is required", ref))
		}
		if task.EstimationPercent < 0 || task.EstimationPercent > 100 {
			problems = append(problems, fmt.Sprintf("task %s: estimation share %.1f outside 0-100", ref, task.EstimationPercent))
		}
		if task.Activity != "" {
			if _, ok := knownActivities[task.Activity]; !ok {
				problems = append(problems, fmt.Sprintf("task %s: unknown activity %q", ref, task.Activity))
			}
		}
		if task.ID != "" {
			ids[task.ID]++
		}
		if task.Condition != "" {
			if _, err := ParseCondition(task.Condition); err != nil {
				problems = append(problems, fmt.Sprintf("task %s: %v", ref, err))
			}
		}
	}

	for id, n := range ids {
		if n > 1 {
			problems = append(problems, fmt.Sprintf("duplicate task id %q", id))
		}
	}

	for _, task := range t.Tasks {
		for _, dep := range task.DependsOn {
			if _, ok := ids[dep]; !ok {
				problems = append(problems, fmt.Sprintf("task %s: depends on unknown task %q", task.ID, dep))
			}
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("invalid template: %s", strings.Join(problems, "; "))
	}
	return nil
}
