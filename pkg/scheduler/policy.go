package scheduler

import (
	"math"

	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
)

const (
	DefaultSearchHorizonDays       = 365
	SimpleSearchHorizonDays        = 90
	DefaultMaxRollbackBatch        = 10
	DefaultBudgetMultiplier        = 3
	DefaultLoadBalanceThreshold    = 0.5
	DefaultLowUtilizationThreshold = 0.25

	// MaxPlanningDays bounds every day count taken from input: service
	// durations, break days and horizon lengths.
	MaxPlanningDays = 3660

	// delayWindowDays is the delay at which the delay term reaches zero.
	delayWindowDays = 30.0
	weightTolerance = 1e-6
	// spanBuffer is the slack added on top of the lower-bound span estimate.
	spanBuffer = 0.3
)

// DefaultWeights is the fixed score split used unless a policy overrides it.
var DefaultWeights = models.Weights{
	Availability: 0.30,
	Capacity:     0.20,
	Urgency:      0.25,
	Duration:     0.10,
	Delay:        0.15,
}

// ResolvePolicy fills every zero field of p with its default.
func ResolvePolicy(p models.Policy) models.Policy {
	if p.Mode == "" {
		p.Mode = models.ModeMandatory
	}
	if p.SearchHorizonDays == 0 {
		p.SearchHorizonDays = DefaultSearchHorizonDays
		if p.Mode == models.ModeSimple {
			p.SearchHorizonDays = SimpleSearchHorizonDays
		}
	}
	if p.HorizonExtensionDays == 0 {
		p.HorizonExtensionDays = p.SearchHorizonDays
	}
	if p.MaxRollbackBatch == 0 {
		p.MaxRollbackBatch = DefaultMaxRollbackBatch
	}
	if p.BudgetMultiplier == 0 {
		p.BudgetMultiplier = DefaultBudgetMultiplier
	}
	if p.LoadBalanceThreshold == 0 {
		p.LoadBalanceThreshold = DefaultLoadBalanceThreshold
	}
	if p.LowUtilizationThreshold == 0 {
		p.LowUtilizationThreshold = DefaultLowUtilizationThreshold
	}
	if p.Weights.IsZero() {
		p.Weights = DefaultWeights
	}
	return p
}

// IterationBudget is the hard round limit for a run over the given sizes.
func IterationBudget(p models.Policy, students, services int) int {
	if p.IterationBudget > 0 {
		return p.IterationBudget
	}
	return students * services * p.BudgetMultiplier
}

// EstimateSpan returns the expected calendar length of a plan: the longest
// serialized service run, plus a buffer for breaks and contention.
func EstimateSpan(students int, services []models.Service, p models.Policy) int {
	longest := 0
	for _, svc := range services {
		capacity := p.EffectiveCapacity(svc)
		if capacity <= 0 {
			continue
		}
		runs := (students + capacity - 1) / capacity
		if d := runs * svc.DurationDays; d > longest {
			longest = d
		}
	}
	return int(math.Ceil(float64(longest) * (1 + spanBuffer)))
}

// ValidatePolicy checks a resolved policy.
func ValidatePolicy(p models.Policy) error {
	switch p.Mode {
	case models.ModeMandatory, models.ModeSimple:
	default:
		return invalid("policy.mode", "unknown mode %q", p.Mode)
	}
	if p.MaxConcurrentPerService < 0 {
		return invalid("policy.max_concurrent_per_service", "must be >= 0, got %d", p.MaxConcurrentPerService)
	}
	if p.BreakDaysBetweenRotations < 0 || p.BreakDaysBetweenRotations > MaxPlanningDays {
		return invalid("policy.break_days_between_rotations", "must be within 0-%d, got %d", MaxPlanningDays, p.BreakDaysBetweenRotations)
	}
	if p.SearchHorizonDays < 1 || p.SearchHorizonDays > MaxPlanningDays {
		return invalid("policy.search_horizon_days", "must be within 1-%d, got %d", MaxPlanningDays, p.SearchHorizonDays)
	}
	if p.HorizonExtensionDays < 1 || p.HorizonExtensionDays > MaxPlanningDays {
		return invalid("policy.horizon_extension_days", "must be within 1-%d, got %d", MaxPlanningDays, p.HorizonExtensionDays)
	}
	if p.MaxRollbackBatch < 1 {
		return invalid("policy.max_rollback_batch", "must be positive, got %d", p.MaxRollbackBatch)
	}
	if p.IterationBudget < 0 || p.BudgetMultiplier < 1 {
		return invalid("policy.iteration_budget", "budget and multiplier must be positive")
	}
	w := p.Weights
	terms := []struct {
		name  string
		value float64
	}{
		{"availability", w.Availability},
		{"capacity", w.Capacity},
		{"urgency", w.Urgency},
		{"duration", w.Duration},
		{"delay", w.Delay},
	}
	for _, term := range terms {
		if term.value < 0 {
			return invalid("policy.weights."+term.name, "must be >= 0, got %g", term.value)
		}
	}
	if math.Abs(w.Sum()-1) > weightTolerance {
		return invalid("policy.weights", "must sum to 1, got %g", w.Sum())
	}
	return nil
}

// ValidateInput rejects inputs the engine cannot run on. It is called by New,
// and exposed for callers that only want the check.
func ValidateInput(students []models.Student, services []models.Service, p models.Policy) error {
	if len(students) == 0 {
		return invalid("students", "at least one student is required")
	}
	if len(services) == 0 {
		return invalid("services", "at least one service is required")
	}
	seen := make(map[string]bool, len(students))
	for i, st := range students {
		if st.ID == "" {
			return invalid("students", "student #%d has no id", i+1)
		}
		if seen[st.ID] {
			return invalid("students", "duplicate student id %s", st.ID)
		}
		seen[st.ID] = true
	}
	seen = make(map[string]bool, len(services))
	for i, svc := range services {
		if svc.ID == "" {
			return invalid("services", "service #%d has no id", i+1)
		}
		if seen[svc.ID] {
			return invalid("services", "duplicate service id %s", svc.ID)
		}
		seen[svc.ID] = true
		if svc.Capacity <= 0 {
			return invalid("services", "service %s has non-positive capacity %d", svc.ID, svc.Capacity)
		}
		if svc.DurationDays <= 0 {
			return invalid("services", "service %s has non-positive duration %d", svc.ID, svc.DurationDays)
		}
		if svc.DurationDays > MaxPlanningDays {
			return invalid("services", "service %s duration %d exceeds %d days", svc.ID, svc.DurationDays, MaxPlanningDays)
		}
	}
	return ValidatePolicy(p)
}
