package config

import (
	"github.com/opsloop/opsloop/internal/policy"
)

// DefaultConfig returns the built-in configuration: permissive policy,
// modest parallelism, three attempts per task.
func DefaultConfig() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			MaxParallel: 4,
		},
		Retry: RetryConfig{
			MaxAttempts:         3,
			AttemptTimeoutMS:    30_000,
			InitialIntervalMS:   100,
			MaxIntervalMS:       10_000,
			Multiplier:          2.0,
			RandomizationFactor: 0.5,
		},
		Policy: policy.Rules{
			DefaultRisk:     1,
			ProdRiskPenalty: 2,
		},
		Context: ContextConfig{
			Tenant: "default",
			Region: "local",
			Env:    "dev",
		},
		Audit: AuditConfig{
			DBPath: ".opsloop/audit.db",
		},
		Planner: PlannerConfig{
			PlanDir: ".opsloop/plans",
		},
	}
}
