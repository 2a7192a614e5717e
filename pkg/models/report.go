package models

// ValidationReport is the outcome of the post-hoc plan sweep.
type ValidationReport struct {
	IsValid  bool           `json:"is_valid"`
	Errors   []string       `json:"errors"`
	Warnings []string       `json:"warnings"`
	Metrics  QualityMetrics `json:"metrics"`
}

// QualityMetrics summarises the balance of a plan. All scores are in [0,1]
// except LoadBalanceScore, where lower is better.
type QualityMetrics struct {
	// LoadBalanceScore is the coefficient of variation (population standard
	// deviation over mean) of the assignment count per service.
	LoadBalanceScore      float64 `json:"load_balance_score"`
	AvgServiceUtilization float64 `json:"avg_service_utilization"`
	AvgDurationPerStudent float64 `json:"avg_duration_per_student"`
	QualityScore          float64 `json:"quality_score"`
}

// ServiceOccupancy holds per-service efficiency figures.
type ServiceOccupancy struct {
	UtilizationRate       float64 `json:"utilization_rate"`
	ActiveDays            int     `json:"active_days"`
	AverageDailyOccupancy float64 `json:"average_daily_occupancy"`
	PeakOccupancy         int     `json:"peak_occupancy"`
	TotalAssignments      int     `json:"total_assignments"`
}

// EfficiencyReport describes how tightly a plan uses the calendar.
type EfficiencyReport struct {
	TotalSpanDays int                         `json:"total_span_days"`
	StartDate     Date                        `json:"start_date"`
	EndDate       Date                        `json:"end_date"`
	RotationCount int                         `json:"rotation_count"`
	PerService    map[string]ServiceOccupancy `json:"per_service"`
}
