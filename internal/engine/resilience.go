package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// RetryConfig bounds the attempt budget and shapes the backoff between
// attempts. Retries re-enter the running state; they never reset a task to
// pending.
type RetryConfig struct {
	MaxAttempts         int           // Total attempts per task, including the first (default 3)
	AttemptTimeout      time.Duration // Per-attempt deadline; 0 disables
	InitialInterval     time.Duration // First backoff interval (default 100ms)
	MaxInterval         time.Duration // Backoff ceiling (default 10s)
	Multiplier          float64       // Backoff multiplier (default 2.0)
	RandomizationFactor float64       // Jitter factor (default 0.5)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:         3,
		AttemptTimeout:      30 * time.Second,
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         10 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 100 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 10 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.RandomizationFactor < 0 {
		c.RandomizationFactor = 0.5
	}
	return c
}

// BreakerRegistry manages one circuit breaker per action type. A backend
// failing consistently for one action trips that action's breaker without
// affecting others.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBreakerRegistry creates an empty registry.
func NewBreakerRegistry() *BreakerRegistry {
	return &BreakerRegistry{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Get returns the breaker for an action, creating it on first use.
func (r *BreakerRegistry) Get(action string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[action]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        action,
		MaxRequests: 3,                // Test requests allowed in half-open state
		Interval:    0,                // Never clear counts automatically
		Timeout:     30 * time.Second, // Open duration before probing recovery
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %q: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			// Cancellation is the caller's choice, not an executor failure.
			if err == nil {
				return true
			}
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})

	r.breakers[action] = cb
	return cb
}

// executeWithRetry runs one attempt function under the action's circuit
// breaker, retrying with exponential backoff up to the attempt budget.
// attempt returns the executor result for a single try.
func executeWithRetry(ctx context.Context, cb *gobreaker.CircuitBreaker, cfg RetryConfig, attempt func(context.Context) (map[string]any, error)) (map[string]any, error) {
	cfg = cfg.withDefaults()

	var result map[string]any

	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		attemptCtx := ctx
		if cfg.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.AttemptTimeout)
			defer cancel()
		}

		out, err := cb.Execute(func() (interface{}, error) {
			return attempt(attemptCtx)
		})
		if err != nil {
			// Open breaker means the backend is down; retrying now
			// only burns the budget.
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		result, _ = out.(map[string]any)
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.InitialInterval
	policy.MaxInterval = cfg.MaxInterval
	policy.Multiplier = cfg.Multiplier
	policy.RandomizationFactor = cfg.RandomizationFactor

	bounded := backoff.WithMaxRetries(policy, uint64(cfg.MaxAttempts-1))
	err := backoff.Retry(operation, backoff.WithContext(bounded, ctx))
	return result, err
}
