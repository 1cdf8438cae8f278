// Package policy implements the pre-execution authorization gate. An
// engine is consulted once per task, after its dependencies are satisfied
// and before it is handed to the execution engine. Evaluation must be
// idempotent and side-effect free: engines read the task, never mutate it.
package policy

import (
	"context"
	"fmt"

	"github.com/opsloop/opsloop/internal/plan"
)

// DeniedError is the terminal error set on a task the gate rejected.
// Denied tasks never retry.
type DeniedError struct {
	TaskID string
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("policy denied task %q: %s", e.TaskID, e.Reason)
}

// Effect is the outcome class of a policy decision.
type Effect string

const (
	EffectAllow   Effect = "allow"
	EffectDeny    Effect = "deny"
	EffectApprove Effect = "approve" // allowed only with out-of-band approval
)

// Decision is the result of evaluating one task against policy.
type Decision struct {
	Effect    Effect
	Reason    string
	RiskScore int
}

// Allowed reports whether execution may proceed without further input.
func (d Decision) Allowed() bool { return d.Effect == EffectAllow }

// Engine evaluates tasks against a policy. An evaluation error is treated
// by the orchestrator as a denial.
type Engine interface {
	Evaluate(ctx context.Context, task *plan.Task, snap plan.Snapshot) (Decision, error)
}

// AllowAll is the permissive engine: every task is allowed with zero risk.
type AllowAll struct{}

// Evaluate always allows.
func (AllowAll) Evaluate(_ context.Context, _ *plan.Task, _ plan.Snapshot) (Decision, error) {
	return Decision{Effect: EffectAllow}, nil
}
