package controlplane

import (
	"context"
	"testing"

	"github.com/opsloop/opsloop/internal/plan"
)

func newApplyFixture(t *testing.T) (*ApplyExecutor, *Memory) {
	t.Helper()

	mem := NewMemory()
	reg := NewRegistry()
	if err := reg.Register("mem", mem); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return NewApplyExecutor(reg, "mem"), mem
}

func TestApplyExecutorExecute(t *testing.T) {
	ex, mem := newApplyFixture(t)

	task := &plan.Task{
		ID:     "t1",
		Action: "apply",
		Params: map[string]any{
			"kind": "vm",
			"spec": map[string]any{"id": "vm-1", "size": "small"},
		},
	}

	result, err := ex.Execute(context.Background(), task, plan.Snapshot{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result["kind"] != "vm" || result["resource_id"] != "vm-1" || result["provider"] != "mem" {
		t.Errorf("unexpected result: %v", result)
	}
	if mem.Len() != 1 {
		t.Errorf("expected 1 resource applied, got %d", mem.Len())
	}
}

func TestApplyExecutorMissingKind(t *testing.T) {
	ex, _ := newApplyFixture(t)

	task := &plan.Task{ID: "t1", Action: "apply", Params: map[string]any{}}
	if _, err := ex.Execute(context.Background(), task, plan.Snapshot{}); err == nil {
		t.Error("expected error for missing kind")
	}
}

func TestApplyExecutorUnknownProvider(t *testing.T) {
	ex, _ := newApplyFixture(t)

	task := &plan.Task{
		ID:     "t1",
		Action: "apply",
		Params: map[string]any{"provider": "aws", "kind": "vm"},
	}
	if _, err := ex.Execute(context.Background(), task, plan.Snapshot{}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestApplyExecutorRollback(t *testing.T) {
	ex, mem := newApplyFixture(t)

	task := &plan.Task{
		ID:     "t1",
		Action: "apply",
		Params: map[string]any{
			"kind": "vm",
			"spec": map[string]any{"id": "vm-1"},
		},
	}

	result, err := ex.Execute(context.Background(), task, plan.Snapshot{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	task.Result = result

	if err := ex.Rollback(context.Background(), task, plan.Snapshot{}); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if mem.Len() != 0 {
		t.Errorf("expected resource deleted, %d left", mem.Len())
	}

	// Second rollback of the same task stays clean
	if err := ex.Rollback(context.Background(), task, plan.Snapshot{}); err != nil {
		t.Errorf("repeated rollback failed: %v", err)
	}
}

func TestApplyExecutorRollbackWithoutResult(t *testing.T) {
	ex, _ := newApplyFixture(t)

	task := &plan.Task{ID: "t1", Action: "apply", Params: map[string]any{"kind": "vm"}}
	if err := ex.Rollback(context.Background(), task, plan.Snapshot{}); err != nil {
		t.Errorf("rollback with no recorded result must be a no-op, got %v", err)
	}
}
