package controlplane

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process control plane: resources live in a map keyed by
// kind/id. It backs tests, demos, and dry runs where tasks should go
// through the full gate/execute/rollback cycle without touching real
// infrastructure.
type Memory struct {
	mu        sync.RWMutex
	resources map[string]*Resource // key: kind + "/" + id
	failKinds map[string]error     // kinds forced to fail, for tests
}

// NewMemory creates an empty in-memory control plane.
func NewMemory() *Memory {
	return &Memory{
		resources: make(map[string]*Resource),
		failKinds: make(map[string]error),
	}
}

// FailKind makes every Apply for the given kind return err. Test hook.
func (m *Memory) FailKind(kind string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failKinds[kind] = err
}

// Apply creates or updates a resource. A spec without an "id" entry gets a
// generated one.
func (m *Memory) Apply(ctx context.Context, kind string, spec map[string]any) (*Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failKinds[kind]; ok {
		return nil, err
	}

	id, _ := spec["id"].(string)
	if id == "" {
		id = uuid.NewString()
	}

	specCopy := make(map[string]any, len(spec))
	for k, v := range spec {
		specCopy[k] = v
	}

	res := &Resource{Kind: kind, ID: id, Spec: specCopy, Status: "ready"}
	m.resources[key(kind, id)] = res

	out := *res
	return &out, nil
}

// Get returns the current state of a resource.
func (m *Memory) Get(ctx context.Context, kind, id string) (*Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	res, ok := m.resources[key(kind, id)]
	if !ok {
		return nil, &NotFoundError{Kind: kind, ID: id}
	}
	out := *res
	return &out, nil
}

// Delete removes a resource, reporting whether it existed.
func (m *Memory) Delete(ctx context.Context, kind, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(kind, id)
	if _, ok := m.resources[k]; !ok {
		return false, nil
	}
	delete(m.resources, k)
	return true, nil
}

// Len returns the number of live resources.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.resources)
}

func key(kind, id string) string {
	return fmt.Sprintf("%s/%s", kind, id)
}
