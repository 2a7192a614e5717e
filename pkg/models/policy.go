package models

// Mode selects how the urgency term of the candidate score is derived.
type Mode string

const (
	// ModeMandatory drives urgency by how many services the student still lacks.
	ModeMandatory Mode = "mandatory"
	// ModeSimple drives urgency by how much of a bottleneck the service is.
	ModeSimple Mode = "simple"
)

// Weights are the coefficients of the candidate score. They must sum to 1.
type Weights struct {
	Availability float64 `json:"availability" yaml:"availability"`
	Capacity     float64 `json:"capacity" yaml:"capacity"`
	Urgency      float64 `json:"urgency" yaml:"urgency"`
	Duration     float64 `json:"duration" yaml:"duration"`
	Delay        float64 `json:"delay" yaml:"delay"`
}

// Sum returns the total of all coefficients.
func (w Weights) Sum() float64 {
	return w.Availability + w.Capacity + w.Urgency + w.Duration + w.Delay
}

// IsZero reports whether no coefficient was set.
func (w Weights) IsZero() bool {
	return w == Weights{}
}

// Policy holds the numeric knobs of a planning run. Zero fields take defaults.
type Policy struct {
	Mode                      Mode    `json:"mode,omitempty" yaml:"mode"`
	MaxConcurrentPerService   int     `json:"max_concurrent_per_service" yaml:"max_concurrent_per_service"`
	BreakDaysBetweenRotations int     `json:"break_days_between_rotations" yaml:"break_days_between_rotations"`
	SearchHorizonDays         int     `json:"search_horizon_days" yaml:"search_horizon_days"`
	HorizonExtensionDays      int     `json:"horizon_extension_days" yaml:"horizon_extension_days"`
	MaxRollbackBatch          int     `json:"max_rollback_batch" yaml:"max_rollback_batch"`
	IterationBudget           int     `json:"iteration_budget" yaml:"iteration_budget"`
	BudgetMultiplier          int     `json:"budget_multiplier" yaml:"budget_multiplier"`
	LoadBalanceThreshold      float64 `json:"load_balance_threshold" yaml:"load_balance_threshold"`
	LowUtilizationThreshold   float64 `json:"low_utilization_threshold" yaml:"low_utilization_threshold"`
	Strict                    bool    `json:"strict" yaml:"strict"`
	Weights                   Weights `json:"weights" yaml:"weights"`
}

// EffectiveCapacity applies the policy-wide cap to a service capacity.
func (p Policy) EffectiveCapacity(s Service) int {
	if p.MaxConcurrentPerService > 0 && p.MaxConcurrentPerService < s.Capacity {
		return p.MaxConcurrentPerService
	}
	return s.Capacity
}
