package orchestrator

import (
	"github.com/opsloop/opsloop/internal/plan"
)

// TaskOutcome summarizes how one task ended. A task still PENDING when the
// run terminates was skipped: a dependency failed, or the plan halted
// before its batch started.
type TaskOutcome struct {
	TaskID   string
	Status   plan.Status
	Attempts int
	Err      error
	Skipped  bool
}

// PlanResult is returned by Run regardless of per-task outcomes, so
// partial progress is always inspectable.
type PlanResult struct {
	Plan     *plan.Plan
	Status   plan.Status
	Outcomes map[string]TaskOutcome
}

// Counts returns the number of succeeded, failed, rolled-back, and skipped
// tasks.
func (r *PlanResult) Counts() (succeeded, failed, rolledBack, skipped int) {
	for _, out := range r.Outcomes {
		switch {
		case out.Skipped:
			skipped++
		case out.Status == plan.StatusSuccess:
			succeeded++
		case out.Status == plan.StatusFailed:
			failed++
		case out.Status == plan.StatusRolledBack:
			rolledBack++
		}
	}
	return
}

func buildResult(p *plan.Plan) *PlanResult {
	outcomes := make(map[string]TaskOutcome, len(p.Tasks))
	for _, t := range p.Tasks {
		outcomes[t.ID] = TaskOutcome{
			TaskID:   t.ID,
			Status:   t.Status,
			Attempts: t.Attempts,
			Err:      t.Error,
			Skipped:  t.Status == plan.StatusPending,
		}
	}
	return &PlanResult{Plan: p, Status: p.Status, Outcomes: outcomes}
}
