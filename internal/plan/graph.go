package plan

import (
	"fmt"

	"github.com/gammazero/toposort"
)

// DuplicateTaskIDError reports a task ID that appears more than once in a plan.
type DuplicateTaskIDError struct {
	TaskID string
}

func (e *DuplicateTaskIDError) Error() string {
	return fmt.Sprintf("duplicate task ID %q", e.TaskID)
}

// UnknownDependencyError reports a dependency on a task ID not present in the plan.
type UnknownDependencyError struct {
	TaskID       string
	DependencyID string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("task %q depends on non-existent task %q", e.TaskID, e.DependencyID)
}

// CyclicDependencyError reports a dependency cycle, including self-dependencies.
type CyclicDependencyError struct {
	Detail string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", e.Detail)
}

// Validate checks the structural integrity of a plan: unique task IDs,
// dependencies that reference existing tasks, and an acyclic dependency
// relation. Pure function, called before any scheduling.
func Validate(p *Plan) error {
	seen := make(map[string]*Task, len(p.Tasks))
	for _, t := range p.Tasks {
		if _, dup := seen[t.ID]; dup {
			return &DuplicateTaskIDError{TaskID: t.ID}
		}
		seen[t.ID] = t
	}

	for _, t := range p.Tasks {
		for _, depID := range t.DependsOn {
			if depID == t.ID {
				return &CyclicDependencyError{Detail: fmt.Sprintf("task %q depends on itself", t.ID)}
			}
			if _, ok := seen[depID]; !ok {
				return &UnknownDependencyError{TaskID: t.ID, DependencyID: depID}
			}
		}
	}

	// Edge (dep, task) means dep must come before task. Tasks without
	// dependencies get a nil-source edge so the sort still sees them.
	var edges []toposort.Edge
	for _, t := range p.Tasks {
		if len(t.DependsOn) == 0 {
			edges = append(edges, toposort.Edge{nil, t.ID})
			continue
		}
		for _, depID := range t.DependsOn {
			edges = append(edges, toposort.Edge{depID, t.ID})
		}
	}

	if _, err := toposort.Toposort(edges); err != nil {
		return &CyclicDependencyError{Detail: err.Error()}
	}

	return nil
}
