package audit

import (
	"context"
	"errors"
	"testing"
)

type failingRecorder struct {
	err   error
	calls int
}

func (f *failingRecorder) Record(_ context.Context, _ Event) error {
	f.calls++
	return f.err
}

// TestFailsafeSwallowsErrors verifies a broken recorder never fails the caller.
func TestFailsafeSwallowsErrors(t *testing.T) {
	inner := &failingRecorder{err: errors.New("disk full")}
	fs := NewFailsafe(inner)

	if err := fs.Record(context.Background(), NewEvent("p", "t", KindTaskStarted, nil)); err != nil {
		t.Errorf("Failsafe returned error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected inner recorder called once, got %d", inner.calls)
	}
}

func TestFailsafeForwardsSuccess(t *testing.T) {
	trail := NewTrail()
	fs := NewFailsafe(trail)

	_ = fs.Record(context.Background(), NewEvent("p", "", KindPlanCreated, nil))

	if len(trail.Events()) != 1 {
		t.Errorf("expected event forwarded, got %d events", len(trail.Events()))
	}
}

// TestMultiFanOut verifies every recorder sees the event even when one fails.
func TestMultiFanOut(t *testing.T) {
	trail := NewTrail()
	broken := &failingRecorder{err: errors.New("unreachable")}
	second := NewTrail()

	m := Multi{trail, broken, second}
	err := m.Record(context.Background(), NewEvent("p", "", KindPlanCreated, nil))

	if err == nil {
		t.Error("expected Multi to surface the failure")
	}
	if len(trail.Events()) != 1 || len(second.Events()) != 1 {
		t.Error("recorders after a failure must still receive the event")
	}
	if broken.calls != 1 {
		t.Errorf("expected broken recorder called once, got %d", broken.calls)
	}
}

// TestMultiJoinsAllErrors verifies every failing recorder shows up in the
// returned error, not just the first.
func TestMultiJoinsAllErrors(t *testing.T) {
	errA := errors.New("disk full")
	errB := errors.New("unreachable")
	m := Multi{&failingRecorder{err: errA}, NewTrail(), &failingRecorder{err: errB}}

	err := m.Record(context.Background(), NewEvent("p", "", KindPlanCreated, nil))

	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected both failures in joined error, got %v", err)
	}
}
