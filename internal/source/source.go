// Package source fetches stories and their child tasks from wherever
// completed work lives. The learning engine only sees the Source
// interface; whether an example comes from a directory of YAML files, a
// work-item tracker's REST API, or a test double is invisible to it.
package source

import (
	"context"

	"github.com/shahbajlive/templar/internal/model"
)

// Example is one raw unit of work: a story and its already-created
// child tasks, before any analysis.
type Example struct {
	Story    model.WorkItem   `json:"story" yaml:"story"`
	Children []model.WorkItem `json:"children" yaml:"children"`
}

// Source resolves example IDs to raw examples.
type Source interface {
	// GetExample fetches one story and its children. A missing or
	// unreadable example is an error; the caller decides whether that
	// skips the example or fails the batch.
	GetExample(ctx context.Context, id string) (*Example, error)

	// ListExamples enumerates the IDs the source can serve, for callers
	// that want "learn from everything here".
	ListExamples(ctx context.Context) ([]string, error)
}

// Static is an in-memory Source, mainly for tests and fixtures.
type Static map[string]*Example

// GetExample implements Source.
func (s Static) GetExample(_ context.Context, id string) (*Example, error) {
	ex, ok := s[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return ex, nil
}

// ListExamples implements Source.
func (s Static) ListExamples(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids, nil
}

// NotFoundError reports an example the source does not know.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return "example not found: " + e.ID
}
