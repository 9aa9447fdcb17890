package template

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shahbajlive/templar/internal/model"
)

// Order returns the template's tasks sorted so every task follows its
// declared predecessors. Kahn's algorithm with a sorted frontier, so the
// ordering is deterministic: among ready tasks the original template
// order is kept. A dependency cycle is an error naming the tasks stuck
// in it.
func (t *Template) Order() ([]model.TaskDefinition, error) {
	byID := map[string]int{}
	for i, task := range t.Tasks {
		if task.ID != "" {
			byID[task.ID] = i
		}
	}

	indegree := make([]int, len(t.Tasks))
	dependents := make([][]int, len(t.Tasks))
	for i, task := range t.Tasks {
		for _, dep := range task.DependsOn {
			j, ok := byID[dep]
			if !ok {
				return nil, fmt.Errorf("task %q depends on unknown task %q", task.ID, dep)
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	// Frontier of ready tasks, kept in template order.
	var ready []int
	for i, deg := range indegree {
		if deg == 0 {
			ready = append(ready, i)
		}
	}

	ordered := make([]model.TaskDefinition, 0, len(t.Tasks))
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]

		ordered = append(ordered, t.Tasks[next])
		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(ordered) != len(t.Tasks) {
		var stuck []string
		for i, deg := range indegree {
			if deg > 0 {
				name := t.Tasks[i].ID
				if name == "" {
					name = t.Tasks[i].Title
				}
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("dependency cycle involving: %s", strings.Join(stuck, ", "))
	}

	return ordered, nil
}
