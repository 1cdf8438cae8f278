package policy

import (
	"context"
	"testing"

	"github.com/opsloop/opsloop/internal/plan"
)

func evaluate(t *testing.T, rules Rules, action, env string) Decision {
	t.Helper()

	engine := NewRuleEngine(rules)
	decision, err := engine.Evaluate(context.Background(), &plan.Task{ID: "t1", Action: action}, plan.Snapshot{Env: env})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	return decision
}

func TestRuleEngineEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		rules      Rules
		action     string
		env        string
		wantEffect Effect
		wantRisk   int
	}{
		{
			name:       "Empty rules allow everything",
			rules:      Rules{},
			action:     "apply",
			env:        "dev",
			wantEffect: EffectAllow,
		},
		{
			name:       "Denied list wins",
			rules:      Rules{DeniedActions: []string{"destroy"}, AllowedActions: []string{"destroy"}},
			action:     "destroy",
			env:        "dev",
			wantEffect: EffectDeny,
		},
		{
			name:       "Action outside allowed set is denied",
			rules:      Rules{AllowedActions: []string{"apply"}},
			action:     "destroy",
			env:        "dev",
			wantEffect: EffectDeny,
		},
		{
			name:       "Action inside allowed set passes",
			rules:      Rules{AllowedActions: []string{"apply"}},
			action:     "apply",
			env:        "dev",
			wantEffect: EffectAllow,
		},
		{
			name:       "Risk above ceiling is denied",
			rules:      Rules{ActionRisk: map[string]int{"destroy": 8}, MaxRisk: 5},
			action:     "destroy",
			env:        "dev",
			wantEffect: EffectDeny,
			wantRisk:   8,
		},
		{
			name:       "Risk at ceiling passes",
			rules:      Rules{ActionRisk: map[string]int{"destroy": 5}, MaxRisk: 5},
			action:     "destroy",
			env:        "dev",
			wantEffect: EffectAllow,
			wantRisk:   5,
		},
		{
			name:       "Prod penalty pushes risk over the ceiling",
			rules:      Rules{ActionRisk: map[string]int{"apply": 4}, MaxRisk: 5, ProdRiskPenalty: 2},
			action:     "apply",
			env:        "prod",
			wantEffect: EffectDeny,
			wantRisk:   6,
		},
		{
			name:       "Prod penalty not applied outside prod",
			rules:      Rules{ActionRisk: map[string]int{"apply": 4}, MaxRisk: 5, ProdRiskPenalty: 2},
			action:     "apply",
			env:        "staging",
			wantEffect: EffectAllow,
			wantRisk:   4,
		},
		{
			name:       "Default risk for unlisted action",
			rules:      Rules{DefaultRisk: 7, MaxRisk: 5},
			action:     "anything",
			env:        "dev",
			wantEffect: EffectDeny,
			wantRisk:   7,
		},
		{
			name:       "Approval list yields approve effect",
			rules:      Rules{ApprovalActions: []string{"destroy"}},
			action:     "destroy",
			env:        "dev",
			wantEffect: EffectApprove,
		},
		{
			name:       "Risk ceiling checked before approval",
			rules:      Rules{ApprovalActions: []string{"destroy"}, ActionRisk: map[string]int{"destroy": 9}, MaxRisk: 5},
			action:     "destroy",
			env:        "dev",
			wantEffect: EffectDeny,
			wantRisk:   9,
		},
		{
			name:       "Zero MaxRisk disables the ceiling",
			rules:      Rules{ActionRisk: map[string]int{"destroy": 100}},
			action:     "destroy",
			env:        "prod",
			wantEffect: EffectAllow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := evaluate(t, tt.rules, tt.action, tt.env)

			if decision.Effect != tt.wantEffect {
				t.Errorf("expected effect %s, got %s (reason: %s)", tt.wantEffect, decision.Effect, decision.Reason)
			}
			if tt.wantRisk != 0 && decision.RiskScore != tt.wantRisk {
				t.Errorf("expected risk %d, got %d", tt.wantRisk, decision.RiskScore)
			}
			if decision.Effect != EffectAllow && decision.Reason == "" {
				t.Error("non-allow decision must carry a reason")
			}
		})
	}
}

func TestDecisionAllowed(t *testing.T) {
	if !(Decision{Effect: EffectAllow}).Allowed() {
		t.Error("allow must report Allowed")
	}
	if (Decision{Effect: EffectDeny}).Allowed() {
		t.Error("deny must not report Allowed")
	}
	if (Decision{Effect: EffectApprove}).Allowed() {
		t.Error("approve needs out-of-band input, must not report Allowed")
	}
}

func TestAllowAll(t *testing.T) {
	decision, err := AllowAll{}.Evaluate(context.Background(), &plan.Task{ID: "t1", Action: "anything"}, plan.Snapshot{})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if decision.Effect != EffectAllow {
		t.Errorf("expected allow, got %s", decision.Effect)
	}
}

// TestEvaluateDoesNotMutateTask verifies evaluation is side-effect free.
func TestEvaluateDoesNotMutateTask(t *testing.T) {
	task := &plan.Task{ID: "t1", Action: "destroy"}
	engine := NewRuleEngine(Rules{DeniedActions: []string{"destroy"}})

	if _, err := engine.Evaluate(context.Background(), task, plan.Snapshot{}); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if task.Status != plan.StatusPending || task.Error != nil {
		t.Error("evaluation mutated the task")
	}
}
