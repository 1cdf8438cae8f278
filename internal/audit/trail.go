package audit

import (
	"context"
	"sync"
)

// Trail is an in-memory append-only recorder. A single mutex serializes
// appends, which gives per-task ordering for free: all events for one task
// are recorded from the goroutine executing it.
type Trail struct {
	mu     sync.Mutex
	events []Event
}

// NewTrail creates an empty trail.
func NewTrail() *Trail {
	return &Trail{}
}

// Record appends the event. Never fails.
func (t *Trail) Record(_ context.Context, ev Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
	return nil
}

// Events returns a copy of all recorded events in append order.
func (t *Trail) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

// TaskEvents returns the events recorded for one task, in append order.
func (t *Trail) TaskEvents(taskID string) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Event
	for _, ev := range t.events {
		if ev.TaskID == taskID {
			out = append(out, ev)
		}
	}
	return out
}

// Kinds returns the kind sequence of all recorded events, in append order.
// Convenience for assertions over the trail shape.
func (t *Trail) Kinds() []Kind {
	t.mu.Lock()
	defer t.mu.Unlock()

	kinds := make([]Kind, len(t.events))
	for i, ev := range t.events {
		kinds[i] = ev.Kind
	}
	return kinds
}
