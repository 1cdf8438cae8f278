package policy

import (
	"context"
	"fmt"

	"github.com/opsloop/opsloop/internal/plan"
)

// Rules configures a RuleEngine. Action lists are exact-match on
// Task.Action. An empty AllowedActions list means every action not denied
// is allowed.
type Rules struct {
	AllowedActions  []string       `json:"allowed_actions,omitempty"`
	DeniedActions   []string       `json:"denied_actions,omitempty"`
	ApprovalActions []string       `json:"approval_actions,omitempty"` // require out-of-band approval
	ActionRisk      map[string]int `json:"action_risk,omitempty"`      // risk score per action
	DefaultRisk     int            `json:"default_risk,omitempty"`     // risk for unlisted actions
	MaxRisk         int            `json:"max_risk,omitempty"`         // deny above this; 0 disables the ceiling
	ProdRiskPenalty int            `json:"prod_risk_penalty,omitempty"`
}

// RuleEngine evaluates tasks against a static rule set: explicit
// deny/allow action lists, a per-action risk score with an optional
// ceiling, and an approval list for actions needing a human in the loop.
type RuleEngine struct {
	rules Rules
}

// NewRuleEngine creates an engine for the given rules.
func NewRuleEngine(rules Rules) *RuleEngine {
	return &RuleEngine{rules: rules}
}

// Evaluate applies the rule set in order: denied list, allowed list, risk
// ceiling, approval list.
func (e *RuleEngine) Evaluate(_ context.Context, task *plan.Task, snap plan.Snapshot) (Decision, error) {
	if contains(e.rules.DeniedActions, task.Action) {
		return Decision{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("action %q is denied by policy", task.Action),
		}, nil
	}

	if len(e.rules.AllowedActions) > 0 && !contains(e.rules.AllowedActions, task.Action) {
		return Decision{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("action %q is not in the allowed set", task.Action),
		}, nil
	}

	risk := e.rules.DefaultRisk
	if r, ok := e.rules.ActionRisk[task.Action]; ok {
		risk = r
	}
	if snap.Env == "prod" {
		risk += e.rules.ProdRiskPenalty
	}

	if e.rules.MaxRisk > 0 && risk > e.rules.MaxRisk {
		return Decision{
			Effect:    EffectDeny,
			Reason:    fmt.Sprintf("risk score %d exceeds ceiling %d", risk, e.rules.MaxRisk),
			RiskScore: risk,
		}, nil
	}

	if contains(e.rules.ApprovalActions, task.Action) {
		return Decision{
			Effect:    EffectApprove,
			Reason:    fmt.Sprintf("action %q requires approval", task.Action),
			RiskScore: risk,
		}, nil
	}

	return Decision{Effect: EffectAllow, RiskScore: risk}, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
