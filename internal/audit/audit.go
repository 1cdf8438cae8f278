// Package audit defines the immutable event contract for the orchestration
// trail and the recorders that persist it. Recording is a pure sink: no
// recorder outcome ever influences control flow in the orchestrator or the
// execution engine.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the decision or transition an event records.
type Kind string

const (
	KindPlanCreated      Kind = "plan.created"
	KindTaskPolicyDenied Kind = "task.policy_denied"
	KindTaskStarted      Kind = "task.started"
	KindTaskSucceeded    Kind = "task.succeeded"
	KindTaskFailed       Kind = "task.failed"
	KindTaskRolledBack   Kind = "task.rolled_back"
	KindPlanCompleted    Kind = "plan.completed"
	KindPlanAborted      Kind = "plan.aborted"
)

// Event is one immutable entry in the audit trail. TaskID is empty for
// plan-level events. Detail carries kind-specific fields (reason, attempts,
// fingerprint) and is never mutated after recording.
type Event struct {
	ID        string
	Timestamp time.Time
	PlanID    string
	TaskID    string
	Kind      Kind
	Detail    map[string]any
}

// NewEvent creates a timestamped event with a fresh event ID.
func NewEvent(planID, taskID string, kind Kind, detail map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		PlanID:    planID,
		TaskID:    taskID,
		Kind:      kind,
		Detail:    detail,
	}
}

// Recorder appends events to a trail. Implementations must tolerate
// concurrent Record calls and must preserve the order of events recorded
// for a single task; cross-task ordering is best-effort.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}
