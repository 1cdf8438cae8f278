package scheduler

import (
	"sort"
	"sync"
)

// ResourceLockManager provides per-resource mutual exclusion for tasks
// executing in the same batch. Each resource ID gets its own mutex, so
// tasks touching disjoint resources proceed concurrently while tasks
// declaring the same resource serialize.
type ResourceLockManager struct {
	mu    sync.Mutex             // Guards the locks map itself
	locks map[string]*sync.Mutex // Per-resource mutexes
}

// NewResourceLockManager creates an empty ResourceLockManager.
func NewResourceLockManager() *ResourceLockManager {
	return &ResourceLockManager{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for a single resource ID, creating it on first use.
func (r *ResourceLockManager) Lock(resource string) {
	r.mu.Lock()
	lock, ok := r.locks[resource]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[resource] = lock
	}
	r.mu.Unlock()

	// Acquired outside the manager lock so waiting on a busy resource
	// does not block unrelated lock lookups.
	lock.Lock()
}

// Unlock releases the mutex for a single resource ID.
func (r *ResourceLockManager) Unlock(resource string) {
	r.mu.Lock()
	lock, ok := r.locks[resource]
	r.mu.Unlock()

	if ok {
		lock.Unlock()
	}
}

// LockAll acquires every listed resource in lexicographic order. Sorted
// acquisition keeps two tasks with overlapping resource sets from
// deadlocking each other. Repeated IDs in the list are acquired once, so
// a task declaring the same resource twice cannot block on itself.
func (r *ResourceLockManager) LockAll(resources []string) {
	for _, res := range sortedUnique(resources) {
		r.Lock(res)
	}
}

// UnlockAll releases every listed resource in reverse sorted order.
func (r *ResourceLockManager) UnlockAll(resources []string) {
	sorted := sortedUnique(resources)
	for i := len(sorted) - 1; i >= 0; i-- {
		r.Unlock(sorted[i])
	}
}

func sortedUnique(resources []string) []string {
	if len(resources) == 0 {
		return nil
	}

	sorted := append([]string(nil), resources...)
	sort.Strings(sorted)

	unique := sorted[:1]
	for _, res := range sorted[1:] {
		if res != unique[len(unique)-1] {
			unique = append(unique, res)
		}
	}
	return unique
}
