// Package orchestrator composes the planner, policy gate, batcher, and
// execution engine into the control loop: one thread of authority drives
// batches sequentially while tasks inside a batch fan out concurrently.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opsloop/opsloop/internal/audit"
	"github.com/opsloop/opsloop/internal/engine"
	"github.com/opsloop/opsloop/internal/events"
	"github.com/opsloop/opsloop/internal/plan"
	"github.com/opsloop/opsloop/internal/planner"
	"github.com/opsloop/opsloop/internal/policy"
	"github.com/opsloop/opsloop/internal/scheduler"
)

// Config configures the control loop.
type Config struct {
	MaxParallel int // Max in-flight tasks within a batch (default 4)
}

// Orchestrator owns a plan for the duration of one run. It is the only
// writer of plan-level status; task-level transitions belong to the engine.
type Orchestrator struct {
	cfg       Config
	planner   planner.Planner
	policy    policy.Engine
	approvals *policy.ApprovalChannel
	engine    *engine.Engine
	auditor   audit.Recorder
	bus       *events.Bus
}

// New creates an orchestrator. The recorder is wrapped so audit failures
// are reported as warnings, never to callers. bus may be nil.
func New(cfg Config, pl planner.Planner, pe policy.Engine, eng *engine.Engine, rec audit.Recorder, bus *events.Bus) *Orchestrator {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 4
	}
	if pe == nil {
		pe = policy.AllowAll{}
	}
	var auditor audit.Recorder
	if rec != nil {
		auditor = audit.NewFailsafe(rec)
	}

	return &Orchestrator{
		cfg:     cfg,
		planner: pl,
		policy:  pe,
		engine:  eng,
		auditor: auditor,
		bus:     bus,
	}
}

// WithApprovals routes EffectApprove decisions through ch. Without it,
// approval-gated tasks are denied.
func (o *Orchestrator) WithApprovals(ch *policy.ApprovalChannel) *Orchestrator {
	o.approvals = ch
	return o
}

// Run executes the goal end to end and returns the aggregate result.
// Per-task failures are contained in the result; only planning and
// structural plan defects surface as a returned error.
func (o *Orchestrator) Run(ctx context.Context, goal string, ec *plan.ExecutionContext) (*PlanResult, error) {
	p, err := o.planner.Plan(ctx, goal, ec)
	if err != nil {
		return nil, err
	}

	if err := plan.Validate(p); err != nil {
		o.record(ctx, p.ID, "", audit.KindPlanAborted, map[string]any{"error": err.Error()})
		return nil, err
	}

	detail := map[string]any{"goal": p.Goal, "task_count": len(p.Tasks)}
	if fp, err := p.Fingerprint(); err == nil {
		detail["fingerprint"] = fp
	}
	o.record(ctx, p.ID, "", audit.KindPlanCreated, detail)

	batches, err := scheduler.Resolve(p)
	if err != nil {
		o.record(ctx, p.ID, "", audit.KindPlanAborted, map[string]any{"error": err.Error()})
		return nil, err
	}

	// Successful tasks in completion order; rollback walks this backwards.
	var completed []*plan.Task
	halted := false
	cancelled := false

	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			cancelled = true
			break
		}

		p.Status = plan.StatusRunning
		snap := ec.Snapshot()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.cfg.MaxParallel)
		for _, t := range batch {
			t := t
			g.Go(func() error {
				o.runTask(gctx, p, t, snap)
				return nil
			})
		}
		// Task failures live on the tasks themselves; Wait only reflects
		// context cancellation.
		_ = g.Wait()

		for _, t := range batch {
			if t.Status == plan.StatusSuccess {
				completed = append(completed, t)
				// Expose upstream results to later batches. The only
				// shared-state writes of a run happen here, between
				// batches.
				ec.SetShared("result:"+t.ID, t.Result)
			}
		}

		o.publishProgress(p)

		for _, t := range batch {
			if t.Status == plan.StatusFailed && t.FailureMode == plan.FailHard {
				halted = true
			}
		}
		if halted {
			break
		}
	}

	// Cancellation arriving mid-batch makes the in-flight tasks fail,
	// which would otherwise read as a halt: check the context first so
	// the abort reason stays truthful and no rollback runs on a dead
	// context.
	switch {
	case cancelled || ctx.Err() != nil:
		p.Status = plan.StatusFailed
		o.record(ctx, p.ID, "", audit.KindPlanAborted, map[string]any{"reason": "cancelled"})

	case halted:
		incomplete := o.rollback(ctx, p, completed, ec)
		if incomplete {
			p.Status = plan.StatusFailed
		} else {
			p.Status = plan.StatusRolledBack
		}
		o.record(ctx, p.ID, "", audit.KindPlanAborted, map[string]any{
			"reason":              "task failure",
			"rollback_incomplete": incomplete,
		})

	default:
		p.Status = plan.StatusSuccess
		for _, t := range p.Tasks {
			if t.Status != plan.StatusSuccess {
				// Tolerated (soft) failures and their skipped dependents
				// leave the plan completed but not successful.
				p.Status = plan.StatusFailed
				break
			}
		}
		o.record(ctx, p.ID, "", audit.KindPlanCompleted, map[string]any{
			"status": p.Status.String(),
		})
	}

	o.publishProgress(p)
	return buildResult(p), nil
}

// runTask takes one task through the gate and the engine. Tasks whose
// dependencies did not succeed are skipped: they stay PENDING and never
// reach the policy gate or an executor.
func (o *Orchestrator) runTask(ctx context.Context, p *plan.Plan, t *plan.Task, snap plan.Snapshot) {
	for _, depID := range t.DependsOn {
		dep, ok := p.Task(depID)
		if !ok || dep.Status != plan.StatusSuccess {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}

	decision, err := o.policy.Evaluate(ctx, t, snap)
	if err != nil {
		o.deny(ctx, p, t, fmt.Sprintf("policy evaluation failed: %v", err))
		return
	}

	switch decision.Effect {
	case policy.EffectDeny:
		o.deny(ctx, p, t, decision.Reason)
		return

	case policy.EffectApprove:
		if o.approvals == nil {
			o.deny(ctx, p, t, "approval required but no approver is configured")
			return
		}
		granted, err := o.approvals.Ask(ctx, t.ID, t.Action, decision.Reason)
		if err != nil {
			o.deny(ctx, p, t, fmt.Sprintf("approval failed: %v", err))
			return
		}
		if !granted {
			o.deny(ctx, p, t, "approval refused")
			return
		}
	}

	if err := o.engine.Run(ctx, p, t, snap); err != nil {
		log.Printf("ERROR: engine rejected task %q: %v", t.ID, err)
	}
}

func (o *Orchestrator) deny(ctx context.Context, p *plan.Plan, t *plan.Task, reason string) {
	if err := o.engine.Deny(ctx, p, t, reason); err != nil {
		log.Printf("ERROR: engine rejected denial of task %q: %v", t.ID, err)
	}
}

// rollback compensates every successful task in reverse completion order.
// A failing rollback is reported and skipped over, never retried; the
// return value notes whether any compensation was left incomplete.
func (o *Orchestrator) rollback(ctx context.Context, p *plan.Plan, completed []*plan.Task, ec *plan.ExecutionContext) (incomplete bool) {
	snap := ec.Snapshot()
	for i := len(completed) - 1; i >= 0; i-- {
		t := completed[i]
		if err := o.engine.Rollback(ctx, p, t, snap); err != nil {
			log.Printf("WARNING: rollback of task %q failed: %v", t.ID, err)
			incomplete = true
		}
	}
	return incomplete
}

func (o *Orchestrator) record(ctx context.Context, planID, taskID string, kind audit.Kind, detail map[string]any) {
	if o.auditor == nil {
		return
	}
	_ = o.auditor.Record(ctx, audit.NewEvent(planID, taskID, kind, detail))
}

func (o *Orchestrator) publishProgress(p *plan.Plan) {
	if o.bus == nil {
		return
	}

	ev := events.PlanProgressEvent{
		PlanID:    p.ID,
		Status:    p.Status,
		Total:     len(p.Tasks),
		Timestamp: time.Now(),
	}
	for _, t := range p.Tasks {
		switch t.Status {
		case plan.StatusSuccess:
			ev.Succeeded++
		case plan.StatusFailed:
			ev.Failed++
		case plan.StatusPending:
			ev.Pending++
		}
	}
	o.bus.Publish(events.TopicPlan, ev)
}
