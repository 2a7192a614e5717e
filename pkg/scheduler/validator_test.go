package scheduler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
)

func rotation(student, service string, startOffset, days, order int) models.Assignment {
	start := jan1.AddDays(startOffset)
	return models.Assignment{
		ID:            AssignmentID(student, service, start),
		StudentID:     student,
		ServiceID:     service,
		StartDate:     start,
		EndDate:       start.AddDays(days - 1),
		SequenceOrder: order,
	}
}

func TestValidateCleanPlan(t *testing.T) {
	sts := []models.Student{{ID: "a"}, {ID: "b"}}
	svcs := []models.Service{{ID: "s1", Capacity: 3, DurationDays: 5}, {ID: "s2", Capacity: 3, DurationDays: 5}}
	plan := []models.Assignment{
		rotation("a", "s1", 0, 5, 1),
		rotation("a", "s2", 5, 5, 2),
		rotation("b", "s1", 0, 5, 1),
		rotation("b", "s2", 5, 5, 2),
	}

	report := Validate(plan, sts, svcs, models.Policy{})
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, 0.0, report.Metrics.LoadBalanceScore)
	assert.InDelta(t, 2.0/3.0, report.Metrics.AvgServiceUtilization, 1e-9)
	assert.InDelta(t, 10.0, report.Metrics.AvgDurationPerStudent, 1e-9)
	assert.InDelta(t, (3+2.0/3.0)/4, report.Metrics.QualityScore, 1e-9)
}

func TestValidateFlagsSaturatedService(t *testing.T) {
	sts := []models.Student{{ID: "a"}, {ID: "b"}}
	svcs := []models.Service{{ID: "s1", Capacity: 1, DurationDays: 5}}
	plan := []models.Assignment{
		rotation("a", "s1", 0, 5, 1),
		rotation("b", "s1", 5, 5, 1),
	}

	report := Validate(plan, sts, svcs, models.Policy{})
	assert.True(t, report.IsValid)
	assert.Equal(t, []string{"service s1 is a bottleneck: at capacity on 10 of 10 days"}, report.Warnings)
}

func TestValidateCapacityOverrun(t *testing.T) {
	sts := []models.Student{{ID: "a"}, {ID: "b"}}
	svcs := []models.Service{{ID: "s1", Capacity: 1, DurationDays: 5}}
	plan := []models.Assignment{
		rotation("a", "s1", 0, 5, 1),
		rotation("b", "s1", 2, 5, 1),
	}

	report := Validate(plan, sts, svcs, models.Policy{})
	require.False(t, report.IsValid)
	assert.Equal(t, []string{"service s1 exceeds capacity 1 on 3 days (first 2025-01-03, peak 2)"}, report.Errors)
}

func TestValidateEffectiveCapacity(t *testing.T) {
	sts := []models.Student{{ID: "a"}, {ID: "b"}}
	svcs := []models.Service{{ID: "s1", Capacity: 3, DurationDays: 5}}
	plan := []models.Assignment{
		rotation("a", "s1", 0, 5, 1),
		rotation("b", "s1", 0, 5, 1),
	}

	assert.True(t, Validate(plan, sts, svcs, models.Policy{}).IsValid)
	assert.False(t, Validate(plan, sts, svcs, models.Policy{MaxConcurrentPerService: 1}).IsValid)
}

func TestValidateStudentErrors(t *testing.T) {
	sts := []models.Student{{ID: "a"}, {ID: "b"}}
	svcs := []models.Service{{ID: "s1", Capacity: 2, DurationDays: 5}, {ID: "s2", Capacity: 2, DurationDays: 5}}
	plan := []models.Assignment{
		rotation("a", "s1", 0, 5, 1),
		rotation("a", "s2", 3, 5, 2),
		rotation("b", "s1", 0, 5, 1),
		rotation("b", "s1", 10, 5, 2),
		rotation("ghost", "s1", 0, 5, 1),
	}

	report := Validate(plan, sts, svcs, models.Policy{})
	require.False(t, report.IsValid)
	assert.Contains(t, report.Errors, "assignment "+plan[4].ID+" references unknown student ghost")
	assert.Contains(t, report.Errors, "student a has overlapping rotations in s1 and s2")
	assert.Contains(t, report.Errors, "student b is assigned service s1 2 times")
	assert.Contains(t, report.Errors, "student b is missing services s2")
}

func TestValidateSequenceOrder(t *testing.T) {
	sts := []models.Student{{ID: "a"}}
	svcs := []models.Service{{ID: "s1", Capacity: 1, DurationDays: 5}, {ID: "s2", Capacity: 1, DurationDays: 5}}

	swapped := []models.Assignment{
		rotation("a", "s1", 0, 5, 2),
		rotation("a", "s2", 5, 5, 1),
	}
	report := Validate(swapped, sts, svcs, models.Policy{})
	assert.Contains(t, report.Errors, "student a sequence order does not follow start dates")

	unordered := []models.Assignment{
		rotation("a", "s1", 0, 5, 0),
		rotation("a", "s2", 5, 5, 0),
	}
	assert.True(t, Validate(unordered, sts, svcs, models.Policy{}).IsValid)
}

func TestValidateWarnings(t *testing.T) {
	sts := []models.Student{{ID: "a"}}
	svcs := []models.Service{
		{ID: "s1", Capacity: 1, DurationDays: 5},
		{ID: "s2", Capacity: 1, DurationDays: 5},
		{ID: "s3", Capacity: 1, DurationDays: 5},
	}
	plan := []models.Assignment{
		rotation("a", "s1", 0, 5, 1),
		rotation("a", "s2", 10, 5, 2),
	}

	report := Validate(plan, sts, svcs, models.Policy{BreakDaysBetweenRotations: 1})
	assert.Contains(t, report.Warnings, "student a waits 5 days between s1 and s2 (break policy 1)")
	assert.Contains(t, report.Warnings, "service s3 has no assignments")
	assert.Contains(t, report.Warnings, "poor load balance across services: score 0.71 exceeds 0.50")
	assert.Less(t, report.Metrics.QualityScore, 1.0)
}

func TestValidateGapFollowsBreakPolicy(t *testing.T) {
	sts := []models.Student{{ID: "a"}}
	svcs := []models.Service{
		{ID: "s1", Capacity: 1, DurationDays: 5},
		{ID: "s2", Capacity: 1, DurationDays: 5},
	}
	// s1 ends on day 4, so a two-day break starts s2 on day 6.
	onTime := []models.Assignment{rotation("a", "s1", 0, 5, 1), rotation("a", "s2", 6, 5, 2)}
	report := Validate(onTime, sts, svcs, models.Policy{BreakDaysBetweenRotations: 2})
	assert.NotContains(t, strings.Join(report.Warnings, "\n"), "waits")

	late := []models.Assignment{rotation("a", "s1", 0, 5, 1), rotation("a", "s2", 7, 5, 2)}
	report = Validate(late, sts, svcs, models.Policy{BreakDaysBetweenRotations: 2})
	assert.Contains(t, report.Warnings, "student a waits 2 days between s1 and s2 (break policy 2)")
}

func TestValidateIsIdempotent(t *testing.T) {
	sts := students(6)
	svcs := []models.Service{
		{ID: "a", Capacity: 2, DurationDays: 3},
		{ID: "b", Capacity: 1, DurationDays: 4},
	}
	res := run(t, sts, svcs, models.Policy{})

	first := Validate(res.Assignments, sts, svcs, models.Policy{})
	second := Validate(res.Assignments, sts, svcs, models.Policy{})
	assert.Equal(t, first, second)
	assert.Equal(t, res.Validation, first)
}

func TestAnalyzeEfficiency(t *testing.T) {
	svcs := []models.Service{{ID: "s1", Capacity: 2, DurationDays: 4}, {ID: "s2", Capacity: 2, DurationDays: 4}}
	plan := []models.Assignment{
		rotation("a", "s1", 0, 4, 1),
		rotation("b", "s1", 2, 4, 1),
	}

	eff := AnalyzeEfficiency(plan, svcs, models.Policy{})
	assert.Equal(t, 6, eff.TotalSpanDays)
	assert.Equal(t, "2025-01-01", eff.StartDate.String())
	assert.Equal(t, "2025-01-06", eff.EndDate.String())
	assert.Equal(t, 2, eff.RotationCount)

	s1 := eff.PerService["s1"]
	assert.Equal(t, 6, s1.ActiveDays)
	assert.Equal(t, 2, s1.PeakOccupancy)
	assert.InDelta(t, 8.0/6.0, s1.AverageDailyOccupancy, 1e-9)
	assert.InDelta(t, 8.0/12.0, s1.UtilizationRate, 1e-9)
	assert.Equal(t, models.ServiceOccupancy{}, eff.PerService["s2"])

	empty := AnalyzeEfficiency(nil, svcs, models.Policy{})
	assert.Equal(t, 0, empty.TotalSpanDays)
	assert.True(t, empty.StartDate.IsZero())
}

func TestValidateReversedDatesDoNotPanic(t *testing.T) {
	sts := []models.Student{{ID: "a"}}
	svcs := []models.Service{{ID: "s1", Capacity: 1, DurationDays: 5}}
	reversed := rotation("a", "s1", 10, 5, 1)
	reversed.EndDate = reversed.StartDate.AddDays(-3)

	var report models.ValidationReport
	require.NotPanics(t, func() {
		report = Validate([]models.Assignment{reversed}, sts, svcs, models.Policy{})
	})
	assert.False(t, report.IsValid)
	assert.Contains(t, report.Errors[0], "before it starts")

	eff := AnalyzeEfficiency([]models.Assignment{reversed}, svcs, models.Policy{})
	assert.Equal(t, 0, eff.TotalSpanDays)
	assert.Equal(t, 0.0, eff.PerService["s1"].UtilizationRate)
}
