package audit

import (
	"context"
	"errors"
	"log"
)

// Failsafe wraps a recorder so that a persistence failure can never abort
// or roll back an in-flight task. Failed records are reported on a side
// channel (the process log) and swallowed.
type Failsafe struct {
	next Recorder
}

// NewFailsafe wraps next in failure suppression.
func NewFailsafe(next Recorder) *Failsafe {
	return &Failsafe{next: next}
}

// Record forwards to the wrapped recorder and always returns nil.
func (f *Failsafe) Record(ctx context.Context, ev Event) error {
	if err := f.next.Record(ctx, ev); err != nil {
		log.Printf("WARNING: audit record %s (plan %s, task %q) not persisted: %v",
			ev.Kind, ev.PlanID, ev.TaskID, err)
	}
	return nil
}

// Multi fans one Record call out to several recorders, e.g. an in-memory
// trail plus a SQLite store. Errors are joined so Failsafe can report all
// of them at once.
type Multi []Recorder

// Record forwards the event to every recorder, returning the joined errors.
func (m Multi) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
