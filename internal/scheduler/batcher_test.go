package scheduler

import (
	"errors"
	"reflect"
	"testing"

	"github.com/opsloop/opsloop/internal/plan"
)

func task(id string, deps ...string) *plan.Task {
	return &plan.Task{ID: id, Name: id, Action: "noop", DependsOn: deps}
}

func batchIDs(batches []Batch) [][]string {
	if batches == nil {
		return nil
	}
	out := make([][]string, len(batches))
	for i, b := range batches {
		out[i] = b.IDs()
	}
	return out
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		tasks []*plan.Task
		want  [][]string
	}{
		{
			name:  "Empty plan resolves to zero batches",
			tasks: nil,
			want:  nil,
		},
		{
			name:  "Single task",
			tasks: []*plan.Task{task("a")},
			want:  [][]string{{"a"}},
		},
		{
			name:  "Independent tasks share one batch",
			tasks: []*plan.Task{task("a"), task("b"), task("c")},
			want:  [][]string{{"a", "b", "c"}},
		},
		{
			name:  "Linear chain gets one batch per task",
			tasks: []*plan.Task{task("a"), task("b", "a"), task("c", "b")},
			want:  [][]string{{"a"}, {"b"}, {"c"}},
		},
		{
			name: "Diamond fans out in the middle",
			tasks: []*plan.Task{
				task("a"),
				task("b", "a"),
				task("c", "a"),
				task("d", "b", "c"),
			},
			want: [][]string{{"a"}, {"b", "c"}, {"d"}},
		},
		{
			name: "Task waits for its deepest dependency",
			tasks: []*plan.Task{
				task("a"),
				task("b", "a"),
				task("c", "a", "b"),
			},
			want: [][]string{{"a"}, {"b"}, {"c"}},
		},
		{
			name: "Ties broken by plan order",
			tasks: []*plan.Task{
				task("z"),
				task("m"),
				task("a"),
			},
			want: [][]string{{"z", "m", "a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches, err := Resolve(plan.New("test", tt.tasks))
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if got := batchIDs(batches); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected batches %v, got %v", tt.want, got)
			}
		})
	}
}

// TestResolveDeterministic verifies the same plan always yields the same
// batch sequence.
func TestResolveDeterministic(t *testing.T) {
	tasks := []*plan.Task{
		task("a"),
		task("b"),
		task("c", "a"),
		task("d", "a", "b"),
		task("e", "c", "d"),
	}

	first, err := Resolve(plan.New("test", tasks))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		next, err := Resolve(plan.New("test", tasks))
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if !reflect.DeepEqual(batchIDs(first), batchIDs(next)) {
			t.Fatalf("run %d differs: %v != %v", i, batchIDs(first), batchIDs(next))
		}
	}
}

func TestResolveRejectsInvalidPlans(t *testing.T) {
	tests := []struct {
		name  string
		tasks []*plan.Task
	}{
		{
			name:  "Cycle",
			tasks: []*plan.Task{task("a", "b"), task("b", "a")},
		},
		{
			name:  "Self dependency",
			tasks: []*plan.Task{task("a", "a")},
		},
		{
			name:  "Unknown dependency",
			tasks: []*plan.Task{task("a", "ghost")},
		},
		{
			name:  "Duplicate IDs",
			tasks: []*plan.Task{task("a"), task("a")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Resolve(plan.New("test", tt.tasks)); err == nil {
				t.Error("expected structural error, got nil")
			}
		})
	}
}

func TestResolveCycleErrorType(t *testing.T) {
	_, err := Resolve(plan.New("test", []*plan.Task{task("a", "b"), task("b", "a")}))

	var cycErr *plan.CyclicDependencyError
	if !errors.As(err, &cycErr) {
		t.Errorf("expected CyclicDependencyError, got %T: %v", err, err)
	}
}
