package plan

import (
	"errors"
	"testing"
)

func task(id string, deps ...string) *Task {
	return &Task{ID: id, Name: id, Action: "noop", DependsOn: deps}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tasks   []*Task
		wantErr error
	}{
		{
			name:  "Empty plan is valid",
			tasks: nil,
		},
		{
			name:  "Single task no dependencies",
			tasks: []*Task{task("a")},
		},
		{
			name:  "Linear chain",
			tasks: []*Task{task("a"), task("b", "a"), task("c", "b")},
		},
		{
			name:  "Diamond",
			tasks: []*Task{task("a"), task("b", "a"), task("c", "a"), task("d", "b", "c")},
		},
		{
			name:    "Duplicate task ID",
			tasks:   []*Task{task("a"), task("a")},
			wantErr: &DuplicateTaskIDError{},
		},
		{
			name:    "Unknown dependency",
			tasks:   []*Task{task("a", "ghost")},
			wantErr: &UnknownDependencyError{},
		},
		{
			name:    "Self dependency",
			tasks:   []*Task{task("a", "a")},
			wantErr: &CyclicDependencyError{},
		},
		{
			name:    "Direct cycle",
			tasks:   []*Task{task("a", "b"), task("b", "a")},
			wantErr: &CyclicDependencyError{},
		},
		{
			name:    "Transitive cycle",
			tasks:   []*Task{task("a", "c"), task("b", "a"), task("c", "b")},
			wantErr: &CyclicDependencyError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(New("test", tt.tasks))

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error of type %T, got nil", tt.wantErr)
			}

			switch tt.wantErr.(type) {
			case *DuplicateTaskIDError:
				var target *DuplicateTaskIDError
				if !errors.As(err, &target) {
					t.Errorf("expected DuplicateTaskIDError, got %T: %v", err, err)
				}
			case *UnknownDependencyError:
				var target *UnknownDependencyError
				if !errors.As(err, &target) {
					t.Errorf("expected UnknownDependencyError, got %T: %v", err, err)
				}
			case *CyclicDependencyError:
				var target *CyclicDependencyError
				if !errors.As(err, &target) {
					t.Errorf("expected CyclicDependencyError, got %T: %v", err, err)
				}
			}
		})
	}
}

func TestValidateUnknownDependencyDetail(t *testing.T) {
	p := New("test", []*Task{task("deploy", "provision")})

	err := Validate(p)
	var depErr *UnknownDependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("expected UnknownDependencyError, got %v", err)
	}
	if depErr.TaskID != "deploy" || depErr.DependencyID != "provision" {
		t.Errorf("expected deploy/provision, got %s/%s", depErr.TaskID, depErr.DependencyID)
	}
}
