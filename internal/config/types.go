package config

import (
	"time"

	"github.com/opsloop/opsloop/internal/engine"
	"github.com/opsloop/opsloop/internal/policy"
)

// OrchestratorConfig tunes the control loop.
type OrchestratorConfig struct {
	MaxParallel int `json:"max_parallel"` // Max in-flight tasks per batch
}

// RetryConfig tunes the execution engine's attempt budget and backoff.
// Durations are expressed in milliseconds for JSON friendliness.
type RetryConfig struct {
	MaxAttempts         int     `json:"max_attempts"`
	AttemptTimeoutMS    int     `json:"attempt_timeout_ms"`
	InitialIntervalMS   int     `json:"initial_interval_ms"`
	MaxIntervalMS       int     `json:"max_interval_ms"`
	Multiplier          float64 `json:"multiplier"`
	RandomizationFactor float64 `json:"randomization_factor"`
}

// Engine converts the JSON representation to the engine's native config.
func (c RetryConfig) Engine() engine.RetryConfig {
	return engine.RetryConfig{
		MaxAttempts:         c.MaxAttempts,
		AttemptTimeout:      time.Duration(c.AttemptTimeoutMS) * time.Millisecond,
		InitialInterval:     time.Duration(c.InitialIntervalMS) * time.Millisecond,
		MaxInterval:         time.Duration(c.MaxIntervalMS) * time.Millisecond,
		Multiplier:          c.Multiplier,
		RandomizationFactor: c.RandomizationFactor,
	}
}

// ContextConfig seeds the execution context for a run.
type ContextConfig struct {
	Tenant string `json:"tenant"`
	Region string `json:"region"`
	Env    string `json:"env"`
}

// AuditConfig configures trail persistence.
type AuditConfig struct {
	DBPath string `json:"db_path"` // SQLite database; empty keeps the trail in memory only
}

// PlannerConfig configures plan discovery.
type PlannerConfig struct {
	PlanDir string `json:"plan_dir"` // Directory of plan JSON documents
}

// Config is the top-level configuration.
type Config struct {
	Orchestrator OrchestratorConfig `json:"orchestrator"`
	Retry        RetryConfig        `json:"retry"`
	Policy       policy.Rules       `json:"policy"`
	Context      ContextConfig      `json:"context"`
	Audit        AuditConfig        `json:"audit"`
	Planner      PlannerConfig      `json:"planner"`
}
