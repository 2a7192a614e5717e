package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
)

var jan1 = models.MustParseDate("2025-01-01")

func students(n int) []models.Student {
	out := make([]models.Student, n)
	for i := range out {
		out[i] = models.Student{ID: fmt.Sprintf("st%02d", i), Name: fmt.Sprintf("Student %d", i)}
	}
	return out
}

func run(t *testing.T, sts []models.Student, svcs []models.Service, p models.Policy) *Result {
	t.Helper()
	s, err := New(sts, svcs, jan1, p)
	require.NoError(t, err)
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	return res
}

// assertPlanInvariants checks completeness, capacity and per-student ordering.
func assertPlanInvariants(t *testing.T, res *Result, sts []models.Student, svcs []models.Service, p models.Policy) {
	t.Helper()
	p = ResolvePolicy(p)

	held := map[string]map[string]int{}
	for _, a := range res.Assignments {
		if held[a.StudentID] == nil {
			held[a.StudentID] = map[string]int{}
		}
		held[a.StudentID][a.ServiceID]++
	}
	for _, st := range sts {
		for _, svc := range svcs {
			assert.Equal(t, 1, held[st.ID][svc.ID], "student %s service %s", st.ID, svc.ID)
		}
	}

	for _, svc := range svcs {
		perDay := map[string]int{}
		for _, a := range res.Assignments {
			if a.ServiceID != svc.ID {
				continue
			}
			for d := a.StartDate; !d.After(a.EndDate); d = d.AddDays(1) {
				perDay[d.String()]++
				assert.LessOrEqual(t, perDay[d.String()], p.EffectiveCapacity(svc), "service %s on %s", svc.ID, d)
			}
		}
	}

	for _, sched := range StudentSchedules(res.Assignments) {
		for i, r := range sched.Rotations {
			assert.Equal(t, i+1, r.SequenceOrder)
			if i > 0 {
				assert.True(t, sched.Rotations[i-1].EndDate.Before(r.StartDate), "student %s overlaps", sched.StudentID)
			}
		}
	}
}

func TestScenarioThreeByThree(t *testing.T) {
	sts := students(3)
	svcs := []models.Service{
		{ID: "s1", Name: "Surgery", Capacity: 2, DurationDays: 5},
		{ID: "s2", Name: "Pediatrics", Capacity: 2, DurationDays: 5},
		{ID: "s3", Name: "Cardiology", Capacity: 2, DurationDays: 5},
	}
	res := run(t, sts, svcs, models.Policy{})

	assert.Equal(t, StateComplete, res.Status)
	assert.True(t, res.Complete())
	assert.Len(t, res.Assignments, 9)
	assert.Empty(t, res.Unresolved)
	assertPlanInvariants(t, res, sts, svcs, models.Policy{})

	saturated := 0
	for _, svc := range svcs {
		occ := res.Efficiency.PerService[svc.ID]
		assert.LessOrEqual(t, occ.PeakOccupancy, 2, "service %s", svc.ID)
		assert.Equal(t, 3, occ.TotalAssignments)
		if occ.PeakOccupancy == 2 {
			saturated++
		}
	}
	assert.Positive(t, saturated, "at least one service reaches its capacity")
	assert.Equal(t, 15, res.Efficiency.TotalSpanDays)
	assert.Equal(t, "2025-01-15", res.Efficiency.EndDate.String())
	assert.True(t, res.Validation.IsValid)
	assert.Empty(t, res.Validation.Errors)
	assert.Equal(t, 3, res.Stats.Rounds)
}

func TestScenarioSingleBottleneckSerializes(t *testing.T) {
	sts := students(5)
	svcs := []models.Service{{ID: "s1", Capacity: 1, DurationDays: 10}}
	res := run(t, sts, svcs, models.Policy{})

	require.Equal(t, StateComplete, res.Status)
	require.Len(t, res.Assignments, 5)
	for i, a := range res.Assignments {
		assert.Equal(t, sts[i].ID, a.StudentID)
		assert.Equal(t, jan1.AddDays(10*i), a.StartDate)
		assert.Equal(t, jan1.AddDays(10*i+9), a.EndDate)
	}
	assertPlanInvariants(t, res, sts, svcs, models.Policy{})
}

func TestScenarioZeroCapacityRejected(t *testing.T) {
	svcs := []models.Service{
		{ID: "s1", Capacity: 2, DurationDays: 5},
		{ID: "s2", Capacity: 0, DurationDays: 5},
	}
	s, err := New(students(3), svcs, jan1, models.Policy{})
	assert.Nil(t, s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var inputErr *InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "services", inputErr.Field)

	res, err := Plan(context.Background(), models.ScheduleInput{Students: students(3), Services: svcs, StartDate: jan1})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestScenarioBottleneckStretchesSpan(t *testing.T) {
	sts := students(10)
	svcs := []models.Service{
		{ID: "bottleneck", Capacity: 1, DurationDays: 5},
		{ID: "ward", Capacity: 5, DurationDays: 5},
	}
	res := run(t, sts, svcs, models.Policy{})

	require.Equal(t, StateComplete, res.Status)
	assertPlanInvariants(t, res, sts, svcs, models.Policy{})
	assert.GreaterOrEqual(t, res.Efficiency.TotalSpanDays, 50, "ten serialized five-day rotations")
	assert.Empty(t, res.Validation.Errors)
	assert.Contains(t, res.Validation.Warnings, "service bottleneck is a bottleneck: at capacity on 50 of 50 days")
	assert.InDelta(t, 1.0, res.Efficiency.PerService["bottleneck"].UtilizationRate, 1e-9)
}

func TestScenarioBudgetExhausted(t *testing.T) {
	sts := students(3)
	svcs := []models.Service{
		{ID: "s1", Capacity: 2, DurationDays: 5},
		{ID: "s2", Capacity: 2, DurationDays: 5},
		{ID: "s3", Capacity: 2, DurationDays: 5},
	}
	res := run(t, sts, svcs, models.Policy{IterationBudget: 1})

	assert.Equal(t, StateAbortedBudgetExceeded, res.Status)
	assert.Equal(t, 1, res.Stats.Rounds)
	assert.Len(t, res.Assignments, 3)
	require.Len(t, res.Unresolved, 3)
	assert.Equal(t, "st00", res.Unresolved[0].StudentID)
	assert.Len(t, res.Unresolved[0].MissingServiceIDs, 2)
	assert.False(t, res.Validation.IsValid)
}

func TestStrictPolicyRejectsIncompletePlan(t *testing.T) {
	svcs := []models.Service{
		{ID: "s1", Capacity: 2, DurationDays: 5},
		{ID: "s2", Capacity: 2, DurationDays: 5},
	}
	s, err := New(students(3), svcs, jan1, models.Policy{IterationBudget: 1, Strict: true})
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrRejected)
	require.NotNil(t, res, "the partial plan is still returned")
	assert.Equal(t, StateAbortedBudgetExceeded, res.Status)
}

func TestStagnationRollsBackThenExtendsHorizon(t *testing.T) {
	sts := students(3)
	svcs := []models.Service{{ID: "s1", Capacity: 1, DurationDays: 10}}
	p := models.Policy{SearchHorizonDays: 5, IterationBudget: 50}
	res := run(t, sts, svcs, p)

	require.Equal(t, StateComplete, res.Status)
	assert.Equal(t, 2, res.Stats.Rollbacks)
	assert.Equal(t, 4, res.Stats.HorizonExtensions)
	assert.Equal(t, 25, res.Stats.FinalHorizonDays)
	assertPlanInvariants(t, res, sts, svcs, p)
	assert.Equal(t, jan1.AddDays(20), res.Assignments[2].StartDate)
}

func TestBreakDaysDelayNextRotation(t *testing.T) {
	sts := students(1)
	svcs := []models.Service{
		{ID: "s1", Capacity: 1, DurationDays: 3},
		{ID: "s2", Capacity: 1, DurationDays: 3},
	}
	p := models.Policy{BreakDaysBetweenRotations: 2}
	res := run(t, sts, svcs, p)

	require.Len(t, res.Assignments, 2)
	// First rotation ends on day 2; the next starts break days later.
	assert.Equal(t, jan1.AddDays(4), res.Assignments[1].StartDate)
	assert.Empty(t, res.Validation.Warnings)
}

func TestBreakOfOneDayIsBackToBack(t *testing.T) {
	sts := students(1)
	svcs := []models.Service{
		{ID: "s1", Capacity: 1, DurationDays: 3},
		{ID: "s2", Capacity: 1, DurationDays: 3},
	}
	for _, brk := range []int{0, 1} {
		res := run(t, sts, svcs, models.Policy{BreakDaysBetweenRotations: brk})
		require.Len(t, res.Assignments, 2)
		assert.Equal(t, jan1.AddDays(3), res.Assignments[1].StartDate, "break %d", brk)
		assert.Empty(t, res.Validation.Warnings, "break %d", brk)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	sts := students(12)
	svcs := []models.Service{
		{ID: "er", Capacity: 3, DurationDays: 7},
		{ID: "icu", Capacity: 1, DurationDays: 4},
		{ID: "peds", Capacity: 2, DurationDays: 10},
		{ID: "surg", Capacity: 4, DurationDays: 14},
	}
	first := run(t, sts, svcs, models.Policy{BreakDaysBetweenRotations: 1})
	second := run(t, sts, svcs, models.Policy{BreakDaysBetweenRotations: 1})

	require.Equal(t, StateComplete, first.Status)
	assert.Equal(t, first.Assignments, second.Assignments)
	assert.Equal(t, first.Validation, second.Validation)
	assertPlanInvariants(t, first, sts, svcs, models.Policy{BreakDaysBetweenRotations: 1})
}

func TestMaxConcurrentCapsCapacity(t *testing.T) {
	sts := students(4)
	svcs := []models.Service{{ID: "s1", Capacity: 4, DurationDays: 5}}
	p := models.Policy{MaxConcurrentPerService: 2}
	res := run(t, sts, svcs, p)

	require.Equal(t, StateComplete, res.Status)
	assert.Equal(t, 2, res.Efficiency.PerService["s1"].PeakOccupancy)
	assertPlanInvariants(t, res, sts, svcs, p)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	s, err := New(students(2), []models.Service{{ID: "s1", Capacity: 1, DurationDays: 2}}, jan1, models.Policy{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssignmentIDsAreStable(t *testing.T) {
	a := AssignmentID("st01", "s1", jan1)
	assert.Equal(t, a, AssignmentID("st01", "s1", jan1))
	assert.NotEqual(t, a, AssignmentID("st01", "s1", jan1.AddDays(1)))
	assert.Len(t, a, 36)
}

type recorderFunc func(status string, stats models.RunStats, elapsed time.Duration)

func (f recorderFunc) ObserveRun(status string, stats models.RunStats, elapsed time.Duration) {
	f(status, stats, elapsed)
}

func TestRecorderObservesRun(t *testing.T) {
	var got string
	var rounds int
	rec := recorderFunc(func(status string, stats models.RunStats, _ time.Duration) {
		got, rounds = status, stats.Rounds
	})
	s, err := New(students(2), []models.Service{{ID: "s1", Capacity: 2, DurationDays: 2}}, jan1, models.Policy{}, WithRecorder(rec))
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "COMPLETE", got)
	assert.Equal(t, 1, rounds)
}

func TestNewRejectsBadInput(t *testing.T) {
	svc := []models.Service{{ID: "s1", Capacity: 1, DurationDays: 1}}
	tests := []struct {
		name     string
		students []models.Student
		services []models.Service
		start    models.Date
		policy   models.Policy
		field    string
	}{
		{"no students", nil, svc, jan1, models.Policy{}, "students"},
		{"no services", students(1), nil, jan1, models.Policy{}, "services"},
		{"duplicate student", []models.Student{{ID: "a"}, {ID: "a"}}, svc, jan1, models.Policy{}, "students"},
		{"zero duration", students(1), []models.Service{{ID: "s1", Capacity: 1}}, jan1, models.Policy{}, "services"},
		{"missing start", students(1), svc, models.Date{}, models.Policy{}, "start_date"},
		{"negative break", students(1), svc, jan1, models.Policy{BreakDaysBetweenRotations: -1}, "policy.break_days_between_rotations"},
		{"unknown mode", students(1), svc, jan1, models.Policy{Mode: "fast"}, "policy.mode"},
		{"duration too long", students(1), []models.Service{{ID: "s1", Capacity: 1, DurationDays: 400_000_000}}, jan1, models.Policy{}, "services"},
		{"horizon too long", students(1), svc, jan1, models.Policy{SearchHorizonDays: MaxPlanningDays + 1}, "policy.search_horizon_days"},
		{"extension too long", students(1), svc, jan1, models.Policy{HorizonExtensionDays: MaxPlanningDays + 1}, "policy.horizon_extension_days"},
		{"break too long", students(1), svc, jan1, models.Policy{BreakDaysBetweenRotations: MaxPlanningDays + 1}, "policy.break_days_between_rotations"},
		{"weights off", students(1), svc, jan1, models.Policy{Weights: models.Weights{Availability: 0.5}}, "policy.weights"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.students, tt.services, tt.start, tt.policy)
			var inputErr *InputError
			require.True(t, errors.As(err, &inputErr), "got %v", err)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}
}

// expiringCtx reports cancellation once its first checks are used up.
type expiringCtx struct {
	context.Context
	checks int
}

func (c *expiringCtx) Err() error {
	if c.checks > 0 {
		c.checks--
		return nil
	}
	return context.Canceled
}

func TestRunStopsWithinRound(t *testing.T) {
	s, err := New(students(5), []models.Service{{ID: "s1", Capacity: 5, DurationDays: 5}}, jan1, models.Policy{})
	require.NoError(t, err)

	// One check passes the round loop and one lets the first student commit.
	res, err := s.Run(&expiringCtx{Context: context.Background(), checks: 2})
	assert.Nil(t, res)
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "round 1")
}

func TestLongestAllowedDurationPlans(t *testing.T) {
	svcs := []models.Service{{ID: "s1", Capacity: 1, DurationDays: MaxPlanningDays}}
	res := run(t, students(1), svcs, models.Policy{})
	require.Equal(t, StateComplete, res.Status)
	assert.Equal(t, MaxPlanningDays, res.Efficiency.TotalSpanDays)
}

func TestEstimateSpan(t *testing.T) {
	svcs := []models.Service{
		{ID: "a", Capacity: 1, DurationDays: 5},
		{ID: "b", Capacity: 5, DurationDays: 5},
	}
	// ten students through a single seat: 50 days plus 30%
	assert.Equal(t, 65, EstimateSpan(10, svcs, ResolvePolicy(models.Policy{})))
}
