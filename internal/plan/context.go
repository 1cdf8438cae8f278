package plan

import (
	"sync"

	"github.com/google/uuid"
)

// ExecutionContext carries the environment for one orchestrator run:
// tenant/region/env identity, a correlation trace ID, static metadata, and
// a shared scratch area for cross-task state. Only the orchestrator writes
// the shared area, and only between batches; policy engines and executors
// receive an immutable Snapshot.
type ExecutionContext struct {
	Tenant   string
	Region   string
	Env      string
	TraceID  string
	Metadata map[string]string

	mu     sync.RWMutex
	shared map[string]any
}

// NewExecutionContext creates a context with a fresh trace ID.
func NewExecutionContext(tenant, region, env string) *ExecutionContext {
	return &ExecutionContext{
		Tenant:   tenant,
		Region:   region,
		Env:      env,
		TraceID:  uuid.NewString(),
		Metadata: make(map[string]string),
		shared:   make(map[string]any),
	}
}

// SetShared stores a cross-task value. Called by the orchestrator between
// batches to expose upstream results to later tasks.
func (c *ExecutionContext) SetShared(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shared == nil {
		c.shared = make(map[string]any)
	}
	c.shared[key] = value
}

// Shared returns the value stored under key, or false if absent.
func (c *ExecutionContext) Shared(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.shared[key]
	return v, ok
}

// Snapshot is the immutable view of an ExecutionContext handed to policy
// engines and executors.
type Snapshot struct {
	Tenant   string
	Region   string
	Env      string
	TraceID  string
	Metadata map[string]string
	Shared   map[string]any
}

// Snapshot copies the current state of the context. The maps in the
// returned value are owned by the caller.
func (c *ExecutionContext) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	meta := make(map[string]string, len(c.Metadata))
	for k, v := range c.Metadata {
		meta[k] = v
	}
	shared := make(map[string]any, len(c.shared))
	for k, v := range c.shared {
		shared[k] = v
	}

	return Snapshot{
		Tenant:   c.Tenant,
		Region:   c.Region,
		Env:      c.Env,
		TraceID:  c.TraceID,
		Metadata: meta,
		Shared:   shared,
	}
}
