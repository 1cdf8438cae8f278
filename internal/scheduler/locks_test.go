package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestResourceLockManager_BasicLockUnlock verifies basic lock/unlock operations.
func TestResourceLockManager_BasicLockUnlock(t *testing.T) {
	mgr := NewResourceLockManager()

	// Lock and unlock should not panic
	mgr.Lock("db/orders")
	mgr.Unlock("db/orders")

	// Should be able to lock again after unlock
	mgr.Lock("db/orders")
	mgr.Unlock("db/orders")
}

// TestResourceLockManager_SameResourceBlocks verifies that locking the same
// resource blocks concurrent access.
func TestResourceLockManager_SameResourceBlocks(t *testing.T) {
	mgr := NewResourceLockManager()
	orderChan := make(chan int, 2)

	// Goroutine A locks the resource first
	go func() {
		mgr.Lock("db/orders")
		orderChan <- 1
		time.Sleep(50 * time.Millisecond) // Hold the lock briefly
		mgr.Unlock("db/orders")
	}()

	// Give goroutine A time to acquire the lock
	time.Sleep(10 * time.Millisecond)

	// Goroutine B tries to lock the same resource - should block
	go func() {
		mgr.Lock("db/orders")
		orderChan <- 2
		mgr.Unlock("db/orders")
	}()

	// Verify ordering: A acquired first, then B
	first := <-orderChan
	second := <-orderChan

	if first != 1 || second != 2 {
		t.Errorf("Expected order [1, 2], got [%d, %d]", first, second)
	}
}

// TestResourceLockManager_DifferentResourcesConcurrent verifies that locking
// different resources doesn't block.
func TestResourceLockManager_DifferentResourcesConcurrent(t *testing.T) {
	mgr := NewResourceLockManager()
	var wg sync.WaitGroup
	var aLocked, bLocked atomic.Bool

	wg.Add(2)

	go func() {
		defer wg.Done()
		mgr.Lock("net/lb-1")
		aLocked.Store(true)
		time.Sleep(20 * time.Millisecond)
		mgr.Unlock("net/lb-1")
	}()

	go func() {
		defer wg.Done()
		mgr.Lock("net/lb-2")
		bLocked.Store(true)
		time.Sleep(20 * time.Millisecond)
		mgr.Unlock("net/lb-2")
	}()

	// Both should acquire their locks quickly since resources differ
	time.Sleep(10 * time.Millisecond)
	if !aLocked.Load() || !bLocked.Load() {
		t.Error("Expected both resources to be locked concurrently")
	}

	wg.Wait()
}

// TestResourceLockManager_LockAllSorted verifies that overlapping resource
// sets acquired through LockAll do not deadlock.
func TestResourceLockManager_LockAllSorted(t *testing.T) {
	mgr := NewResourceLockManager()
	var wg sync.WaitGroup
	done := make(chan struct{})

	// Two goroutines lock overlapping sets in opposite declaration order.
	// Sorted acquisition means they cannot deadlock.
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			mgr.LockAll([]string{"db/users", "db/orders"})
			mgr.UnlockAll([]string{"db/users", "db/orders"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			mgr.LockAll([]string{"db/orders", "db/users"})
			mgr.UnlockAll([]string{"db/orders", "db/users"})
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout: overlapping LockAll calls deadlocked")
	}
}

// TestResourceLockManager_LockAllDuplicateIDs verifies a resource list
// naming the same ID more than once acquires it once instead of blocking
// on itself.
func TestResourceLockManager_LockAllDuplicateIDs(t *testing.T) {
	mgr := NewResourceLockManager()
	done := make(chan struct{})

	go func() {
		mgr.LockAll([]string{"db/main", "db/main"})
		mgr.UnlockAll([]string{"db/main", "db/main"})
		mgr.LockAll([]string{"db/main", "net/lb-1", "db/main", "net/lb-1"})
		mgr.UnlockAll([]string{"db/main", "net/lb-1", "db/main", "net/lb-1"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout: LockAll blocked on a repeated resource ID")
	}

	// The resource is actually released again
	mgr.Lock("db/main")
	mgr.Unlock("db/main")
}

// TestResourceLockManager_LockAllEmpty verifies empty resource lists are a no-op.
func TestResourceLockManager_LockAllEmpty(t *testing.T) {
	mgr := NewResourceLockManager()
	mgr.LockAll(nil)
	mgr.UnlockAll(nil)
	mgr.LockAll([]string{})
	mgr.UnlockAll([]string{})
}

// TestResourceLockManager_MutualExclusionCounter verifies the lock actually
// serializes a critical section.
func TestResourceLockManager_MutualExclusionCounter(t *testing.T) {
	mgr := NewResourceLockManager()
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				mgr.Lock("counter")
				counter++
				mgr.Unlock("counter")
			}
		}()
	}
	wg.Wait()

	if counter != 1000 {
		t.Errorf("Expected counter 1000, got %d", counter)
	}
}
