// Package engine drives the task state machine. The engine is the only
// component that writes a task's status, result, or error: the
// orchestrator decides what happens, the engine makes it so.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/opsloop/opsloop/internal/audit"
	"github.com/opsloop/opsloop/internal/events"
	"github.com/opsloop/opsloop/internal/plan"
	"github.com/opsloop/opsloop/internal/policy"
	"github.com/opsloop/opsloop/internal/scheduler"
)

// Executor runs tasks for one action type. Execute must respect the
// context deadline; the engine imposes a per-attempt timeout through it.
// Rollback compensates a previously successful Execute and should be
// idempotent (a no-op rollback is valid).
type Executor interface {
	Execute(ctx context.Context, task *plan.Task, snap plan.Snapshot) (map[string]any, error)
	Rollback(ctx context.Context, task *plan.Task, snap plan.Snapshot) error
}

// ExecutionError wraps an executor failure after the retry budget is spent.
type ExecutionError struct {
	Action string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("executing action %q: %v", e.Action, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// RollbackError wraps a failed compensating rollback. It is reported and
// never retried.
type RollbackError struct {
	TaskID string
	Err    error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rolling back task %q: %v", e.TaskID, e.Err)
}

func (e *RollbackError) Unwrap() error { return e.Err }

// Engine executes tasks through per-action executors with resource
// locking, bounded retry, and circuit breaker protection.
type Engine struct {
	executors map[string]Executor
	fallback  Executor
	locks     *scheduler.ResourceLockManager
	breakers  *BreakerRegistry
	retry     RetryConfig
	auditor   audit.Recorder
	bus       *events.Bus
}

// New creates an engine. auditor must never fail its callers; wrap stores
// in audit.NewFailsafe before passing them here. bus may be nil.
func New(retry RetryConfig, auditor audit.Recorder, bus *events.Bus) *Engine {
	return &Engine{
		executors: make(map[string]Executor),
		locks:     scheduler.NewResourceLockManager(),
		breakers:  NewBreakerRegistry(),
		retry:     retry.withDefaults(),
		auditor:   auditor,
		bus:       bus,
	}
}

// Register maps an action to an executor. Tasks whose action has no
// executor (and no fallback) fail without consuming any attempt.
func (e *Engine) Register(action string, ex Executor) {
	e.executors[action] = ex
}

// RegisterDefault sets the executor used for actions with no explicit
// registration.
func (e *Engine) RegisterDefault(ex Executor) {
	e.fallback = ex
}

func (e *Engine) executor(action string) (Executor, bool) {
	if ex, ok := e.executors[action]; ok {
		return ex, true
	}
	if e.fallback != nil {
		return e.fallback, true
	}
	return nil, false
}

// Run executes one task: PENDING -> RUNNING -> {SUCCESS, FAILED}. Retries
// re-enter RUNNING and count against the attempt budget. The returned
// error reports misuse (task not pending); executor failures land on the
// task itself.
func (e *Engine) Run(ctx context.Context, p *plan.Plan, t *plan.Task, snap plan.Snapshot) error {
	if t.Status != plan.StatusPending {
		return fmt.Errorf("task %q is not pending (status %s)", t.ID, t.Status)
	}

	t.Status = plan.StatusRunning
	started := time.Now()
	e.record(ctx, p.ID, t.ID, audit.KindTaskStarted, map[string]any{
		"action": t.Action,
		"name":   t.Name,
	})
	e.publish(events.TopicTask, events.TaskStartedEvent{
		ID: t.ID, Name: t.Name, Action: t.Action, Attempt: 1, Timestamp: started,
	})

	ex, ok := e.executor(t.Action)
	if !ok {
		e.fail(ctx, p, t, &ExecutionError{
			Action: t.Action,
			Err:    fmt.Errorf("no executor registered"),
		}, started)
		return nil
	}

	e.locks.LockAll(t.Resources)
	defer e.locks.UnlockAll(t.Resources)

	cb := e.breakers.Get(t.Action)
	result, err := executeWithRetry(ctx, cb, e.retry, func(attemptCtx context.Context) (map[string]any, error) {
		t.Attempts++
		return ex.Execute(attemptCtx, t, snap)
	})
	if err != nil {
		e.fail(ctx, p, t, &ExecutionError{Action: t.Action, Err: err}, started)
		return nil
	}

	t.Status = plan.StatusSuccess
	t.Result = result
	e.record(ctx, p.ID, t.ID, audit.KindTaskSucceeded, map[string]any{
		"attempts": t.Attempts,
	})
	e.publish(events.TopicTask, events.TaskSucceededEvent{
		ID: t.ID, Attempts: t.Attempts, Duration: time.Since(started), Timestamp: time.Now(),
	})
	return nil
}

// Deny finalizes a task the policy gate rejected: PENDING -> FAILED with
// the deny reason, one TASK_POLICY_DENIED audit event, no executor
// involvement and no retry.
func (e *Engine) Deny(ctx context.Context, p *plan.Plan, t *plan.Task, reason string) error {
	if t.Status != plan.StatusPending {
		return fmt.Errorf("task %q is not pending (status %s)", t.ID, t.Status)
	}

	t.Status = plan.StatusFailed
	t.Error = &policy.DeniedError{TaskID: t.ID, Reason: reason}
	e.record(ctx, p.ID, t.ID, audit.KindTaskPolicyDenied, map[string]any{
		"action": t.Action,
		"reason": reason,
	})
	e.publish(events.TopicTask, events.TaskDeniedEvent{
		ID: t.ID, Reason: reason, Timestamp: time.Now(),
	})
	return nil
}

// Rollback applies the compensating action for a previously successful
// task: SUCCESS -> ROLLED_BACK. A failing rollback is reported through the
// audit trail and the returned RollbackError but is never retried; the
// task keeps StatusSuccess so the incomplete compensation stays visible.
func (e *Engine) Rollback(ctx context.Context, p *plan.Plan, t *plan.Task, snap plan.Snapshot) error {
	if t.Status != plan.StatusSuccess {
		return fmt.Errorf("task %q is not rollback-eligible (status %s)", t.ID, t.Status)
	}

	ex, ok := e.executor(t.Action)
	if !ok {
		// Nothing to compensate with; treat as a no-op rollback.
		t.Status = plan.StatusRolledBack
		e.record(ctx, p.ID, t.ID, audit.KindTaskRolledBack, map[string]any{"noop": true})
		e.publish(events.TopicTask, events.TaskRolledBackEvent{ID: t.ID, Timestamp: time.Now()})
		return nil
	}

	rbCtx := ctx
	if e.retry.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		rbCtx, cancel = context.WithTimeout(ctx, e.retry.AttemptTimeout)
		defer cancel()
	}

	if err := ex.Rollback(rbCtx, t, snap); err != nil {
		rbErr := &RollbackError{TaskID: t.ID, Err: err}
		e.record(ctx, p.ID, t.ID, audit.KindTaskRolledBack, map[string]any{
			"error": rbErr.Error(),
		})
		e.publish(events.TopicTask, events.TaskRolledBackEvent{
			ID: t.ID, Err: rbErr, Timestamp: time.Now(),
		})
		return rbErr
	}

	t.Status = plan.StatusRolledBack
	e.record(ctx, p.ID, t.ID, audit.KindTaskRolledBack, nil)
	e.publish(events.TopicTask, events.TaskRolledBackEvent{ID: t.ID, Timestamp: time.Now()})
	return nil
}

func (e *Engine) fail(ctx context.Context, p *plan.Plan, t *plan.Task, err error, started time.Time) {
	t.Status = plan.StatusFailed
	t.Error = err
	e.record(ctx, p.ID, t.ID, audit.KindTaskFailed, map[string]any{
		"attempts": t.Attempts,
		"error":    err.Error(),
	})
	e.publish(events.TopicTask, events.TaskFailedEvent{
		ID: t.ID, Err: err, Attempts: t.Attempts, Duration: time.Since(started), Timestamp: time.Now(),
	})
}

func (e *Engine) record(ctx context.Context, planID, taskID string, kind audit.Kind, detail map[string]any) {
	if e.auditor == nil {
		return
	}
	_ = e.auditor.Record(ctx, audit.NewEvent(planID, taskID, kind, detail))
}

func (e *Engine) publish(topic string, ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(topic, ev)
	}
}
