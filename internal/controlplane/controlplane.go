// Package controlplane abstracts the infrastructure layer that executors
// act on. A control plane follows a declarative model: resources are
// identified by kind and ID and managed through specs describing desired
// state, so the execution engine stays provider-agnostic.
package controlplane

import (
	"context"
	"fmt"
)

// Resource is the state of one managed infrastructure resource.
type Resource struct {
	Kind   string
	ID     string
	Spec   map[string]any
	Status string // "ready" once applied, provider-specific otherwise
}

// ControlPlane manages the lifecycle of infrastructure resources.
type ControlPlane interface {
	// Apply idempotently creates or updates a resource to match spec.
	// When spec carries an "id" the existing resource is updated;
	// otherwise the control plane assigns one.
	Apply(ctx context.Context, kind string, spec map[string]any) (*Resource, error)

	// Get returns the current state of a resource.
	Get(ctx context.Context, kind, id string) (*Resource, error)

	// Delete removes a resource. Returns false when it did not exist,
	// so rollback of a partially applied task stays idempotent.
	Delete(ctx context.Context, kind, id string) (bool, error)
}

// NotFoundError reports a Get or Delete against an unknown resource.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}
