package models

import "strings"

// AgentAction is the trading agent's decision at an observation.
type AgentAction string

const (
	ActionNone AgentAction = ""
	ActionBuy  AgentAction = "BUY"
	ActionSell AgentAction = "SELL"
	ActionHold AgentAction = "HOLD"
)

// ParseAgentAction normalizes a wire value; anything unrecognized is absent.
func ParseAgentAction(s string) AgentAction {
	switch AgentAction(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionBuy:
		return ActionBuy
	case ActionSell:
		return ActionSell
	case ActionHold:
		return ActionHold
	default:
		return ActionNone
	}
}

// IsTrade reports whether the action moves the position.
func (a AgentAction) IsTrade() bool { return a == ActionBuy || a == ActionSell }

// Observation is one data point for an entity. Optional numerics are nil when
// the frame did not carry them.
type Observation struct {
	Timestamp      string      `json:"timestamp"`
	Step           *int        `json:"step,omitempty"`
	Actual         *float64    `json:"actual,omitempty"`
	Adaptive       *float64    `json:"adaptive,omitempty"`
	EnsembleMean   *float64    `json:"ensemble_mean,omitempty"`
	BestExpert     *float64    `json:"best_expert,omitempty"`
	Weights        []float64   `json:"weights,omitempty"`
	ModelPreds     []float64   `json:"model_preds,omitempty"`
	AgentAction    AgentAction `json:"agent_action,omitempty"`
	AgentAmount    *float64    `json:"agent_amount,omitempty"`
	PortfolioValue *float64    `json:"portfolio_value,omitempty"`
}

// Float returns a pointer to v; handy for building observations.
func Float(v float64) *float64 { return &v }

// ValueOr dereferences p or returns def when p is nil.
func ValueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
