package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DirSource reads examples from a directory of YAML files, one example
// per file, named {id}.yaml or {id}.yml.
type DirSource struct {
	dir string
}

// NewDirSource creates a source over the given directory.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// GetExample implements Source.
func (s *DirSource) GetExample(_ context.Context, id string) (*Example, error) {
	path, err := s.resolve(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read example %s: %w", id, err)
	}

	var ex Example
	if err := yaml.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("parse example %s: %w", id, err)
	}
	if ex.Story.ID == "" {
		ex.Story.ID = id
	}
	return &ex, nil
}

// resolve finds the file backing an example ID.
func (s *DirSource) resolve(id string) (string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(s.dir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", &NotFoundError{ID: id}
}

// ListExamples implements Source: every YAML file in the directory is
// an example, identified by its base name.
func (s *DirSource) ListExamples(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list examples in %s: %w", s.dir, err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}
