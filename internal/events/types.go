package events

import (
	"time"

	"github.com/opsloop/opsloop/internal/plan"
)

// Event is the base interface for all bus events.
type Event interface {
	EventType() string
	TaskID() string
}

// Topic constants
const (
	TopicTask = "task"
	TopicPlan = "plan"
)

// Event type constants
const (
	EventTypeTaskStarted    = "task.started"
	EventTypeTaskSucceeded  = "task.succeeded"
	EventTypeTaskFailed     = "task.failed"
	EventTypeTaskDenied     = "task.denied"
	EventTypeTaskRolledBack = "task.rolled_back"
	EventTypePlanProgress   = "plan.progress"
)

// TaskStartedEvent is published when a task enters execution.
type TaskStartedEvent struct {
	ID        string
	Name      string
	Action    string
	Attempt   int
	Timestamp time.Time
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }
func (e TaskStartedEvent) TaskID() string    { return e.ID }

// TaskSucceededEvent is published when a task reaches StatusSuccess.
type TaskSucceededEvent struct {
	ID        string
	Attempts  int
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskSucceededEvent) EventType() string { return EventTypeTaskSucceeded }
func (e TaskSucceededEvent) TaskID() string    { return e.ID }

// TaskFailedEvent is published when a task exhausts its attempt budget.
type TaskFailedEvent struct {
	ID        string
	Err       error
	Attempts  int
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskFailedEvent) EventType() string { return EventTypeTaskFailed }
func (e TaskFailedEvent) TaskID() string    { return e.ID }

// TaskDeniedEvent is published when the policy gate rejects a task.
type TaskDeniedEvent struct {
	ID        string
	Reason    string
	Timestamp time.Time
}

func (e TaskDeniedEvent) EventType() string { return EventTypeTaskDenied }
func (e TaskDeniedEvent) TaskID() string    { return e.ID }

// TaskRolledBackEvent is published when a compensating rollback completes.
type TaskRolledBackEvent struct {
	ID        string
	Err       error // non-nil when the rollback itself failed
	Timestamp time.Time
}

func (e TaskRolledBackEvent) EventType() string { return EventTypeTaskRolledBack }
func (e TaskRolledBackEvent) TaskID() string    { return e.ID }

// PlanProgressEvent is published after every batch with aggregate counts.
type PlanProgressEvent struct {
	PlanID    string
	Status    plan.Status
	Total     int
	Succeeded int
	Failed    int
	Pending   int
	Timestamp time.Time
}

func (e PlanProgressEvent) EventType() string { return EventTypePlanProgress }
func (e PlanProgressEvent) TaskID() string    { return "" }
