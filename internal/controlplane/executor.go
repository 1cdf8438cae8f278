package controlplane

import (
	"context"
	"fmt"

	"github.com/opsloop/opsloop/internal/plan"
)

// ApplyExecutor runs declarative apply-style tasks against a registered
// control plane. Task params:
//
//	provider  provider name in the registry (optional, falls back to default)
//	kind      resource kind, required
//	spec      desired state map (optional)
//
// Execute records the applied resource in the task result; Rollback
// deletes that resource again, and tolerates it already being gone.
type ApplyExecutor struct {
	registry        *Registry
	defaultProvider string
}

// NewApplyExecutor creates an executor resolving providers from registry.
func NewApplyExecutor(registry *Registry, defaultProvider string) *ApplyExecutor {
	return &ApplyExecutor{registry: registry, defaultProvider: defaultProvider}
}

// Execute applies the resource described by the task params.
func (e *ApplyExecutor) Execute(ctx context.Context, task *plan.Task, _ plan.Snapshot) (map[string]any, error) {
	cp, provider, err := e.resolve(task)
	if err != nil {
		return nil, err
	}

	kind, _ := task.Params["kind"].(string)
	if kind == "" {
		return nil, fmt.Errorf("task %q: missing kind param", task.ID)
	}
	spec, _ := task.Params["spec"].(map[string]any)

	res, err := cp.Apply(ctx, kind, spec)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"provider":    provider,
		"kind":        res.Kind,
		"resource_id": res.ID,
		"status":      res.Status,
	}, nil
}

// Rollback deletes the resource created by a successful Execute.
func (e *ApplyExecutor) Rollback(ctx context.Context, task *plan.Task, _ plan.Snapshot) error {
	cp, _, err := e.resolve(task)
	if err != nil {
		return err
	}

	kind, _ := task.Result["kind"].(string)
	id, _ := task.Result["resource_id"].(string)
	if kind == "" || id == "" {
		// Nothing recorded, nothing to undo.
		return nil
	}

	_, err = cp.Delete(ctx, kind, id)
	return err
}

func (e *ApplyExecutor) resolve(task *plan.Task) (ControlPlane, string, error) {
	provider := e.defaultProvider
	if p, ok := task.Params["provider"].(string); ok && p != "" {
		provider = p
	}

	cp, err := e.registry.Get(provider)
	if err != nil {
		return nil, "", err
	}
	return cp, provider, nil
}
