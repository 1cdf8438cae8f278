// Package planner defines the collaborator that decomposes a high-level
// goal into a task plan. Planning itself (LLM-backed or otherwise) lives
// behind the Planner interface; the core consumes plans, it does not
// generate them.
package planner

import (
	"context"
	"fmt"

	"github.com/opsloop/opsloop/internal/plan"
)

// PlanningError reports a goal that could not be decomposed into tasks.
// It is fatal: the orchestrator aborts before any task starts.
type PlanningError struct {
	Goal string
	Err  error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("cannot plan goal %q: %v", e.Goal, e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// Planner turns a goal into an executable plan.
type Planner interface {
	Plan(ctx context.Context, goal string, ec *plan.ExecutionContext) (*plan.Plan, error)
}

// Static serves fixed plans from memory, keyed by goal. Used in tests and
// demos where planning is not under examination.
type Static struct {
	Plans map[string][]*plan.Task
}

// NewStatic creates a static planner with no plans registered.
func NewStatic() *Static {
	return &Static{Plans: make(map[string][]*plan.Task)}
}

// Add registers the task set for a goal.
func (s *Static) Add(goal string, tasks []*plan.Task) {
	s.Plans[goal] = tasks
}

// Plan returns a fresh plan for the goal. Tasks are cloned so consecutive
// runs never share execution state.
func (s *Static) Plan(_ context.Context, goal string, _ *plan.ExecutionContext) (*plan.Plan, error) {
	tasks, ok := s.Plans[goal]
	if !ok {
		return nil, &PlanningError{Goal: goal, Err: fmt.Errorf("no plan registered")}
	}

	cloned := make([]*plan.Task, len(tasks))
	for i, t := range tasks {
		cloned[i] = t.Clone()
	}
	return plan.New(goal, cloned), nil
}
