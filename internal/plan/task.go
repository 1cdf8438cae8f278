package plan

// Status represents the lifecycle state of a task or a plan.
type Status int

const (
	StatusPending    Status = iota // Waiting for dependencies or not yet started
	StatusRunning                  // Currently executing
	StatusSuccess                  // Finished successfully
	StatusFailed                   // Finished with an error (or policy denial)
	StatusRolledBack               // Compensating rollback applied after a later failure
)

// String returns the lowercase name used in audit details and persistence.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition may leave this status.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusRolledBack
}

// FailureMode determines how a task's failure affects the rest of the plan.
type FailureMode int

const (
	// FailHard halts the plan and triggers rollback of prior successes.
	FailHard FailureMode = iota
	// FailSoft lets the plan proceed; direct dependents are still skipped.
	FailSoft
)

// String returns the lowercase name used in persistence and audit details.
func (m FailureMode) String() string {
	if m == FailSoft {
		return "soft"
	}
	return "hard"
}

// Task represents a single unit of work in a plan.
type Task struct {
	ID          string         // Unique within the plan, stable for its lifetime
	Name        string         // Human-readable label
	Action      string         // Operation identifier, interpreted by an executor
	Params      map[string]any // Passed verbatim to the executor
	DependsOn   []string       // Task IDs that must reach StatusSuccess first
	Resources   []string       // Resource IDs held exclusively while executing
	FailureMode FailureMode
	Status      Status
	Attempts    int            // Executor attempts consumed, including retries
	Result      map[string]any // Populated only on StatusSuccess
	Error       error          // Populated only on StatusFailed
}

// Clone returns a defensive copy of the task. Nested param and result
// values are shared; the executor treats them as read-only.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.DependsOn != nil {
		cp.DependsOn = append([]string(nil), t.DependsOn...)
	}
	if t.Resources != nil {
		cp.Resources = append([]string(nil), t.Resources...)
	}
	return &cp
}
