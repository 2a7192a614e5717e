package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arnavshah/rotation-scheduler-api/pkg/logger"
	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
)

// State is the phase of a planning run.
type State string

const (
	StateRunning               State = "RUNNING"
	StateStagnated             State = "STAGNATED"
	StateComplete              State = "COMPLETE"
	StateAbortedBudgetExceeded State = "ABORTED_BUDGET_EXCEEDED"
)

// progressEvery is how often, in rounds, a debug progress line is logged.
const progressEvery = 10

// assignmentNamespace seeds the name-based assignment ids.
var assignmentNamespace = uuid.MustParse("6f1c2a8e-4b7d-5e39-9a0c-3d2e1f4b5a60")

// Recorder observes finished runs. pkg/metrics provides the Prometheus one.
type Recorder interface {
	ObserveRun(status string, stats models.RunStats, elapsed time.Duration)
}

// Result is the outcome of one run. Aborted runs carry the partial plan and
// the unresolved students.
type Result struct {
	Status      State
	StartDate   models.Date
	Assignments []models.Assignment
	Unresolved  []models.Unresolved
	Validation  models.ValidationReport
	Efficiency  models.EfficiencyReport
	Stats       models.RunStats
}

// Complete reports whether every student received every service.
func (r *Result) Complete() bool { return r.Status == StateComplete }

// Response converts the result into the API payload.
func (r *Result) Response() models.ScheduleResponse {
	return models.ScheduleResponse{
		Status:           string(r.Status),
		Assignments:      r.Assignments,
		Unresolved:       r.Unresolved,
		ValidationReport: r.Validation,
		EfficiencyReport: r.Efficiency,
		Stats:            r.Stats,
	}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for progress and outcome messages.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRecorder sets the observer notified when a run finishes.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// Scheduler places every student in every service. One Scheduler may be run
// any number of times; each Run owns fresh state.
type Scheduler struct {
	students []models.Student
	services []models.Service
	start    models.Date
	policy   models.Policy
	log      logger.Logger
	recorder Recorder
}

// New resolves the policy defaults and rejects unusable input before any
// planning happens.
func New(students []models.Student, services []models.Service, start models.Date, policy models.Policy, opts ...Option) (*Scheduler, error) {
	policy = ResolvePolicy(policy)
	if err := ValidateInput(students, services, policy); err != nil {
		return nil, err
	}
	if start.IsZero() {
		return nil, invalid("start_date", "a start date is required")
	}
	s := &Scheduler{
		students: students,
		services: services,
		start:    start,
		policy:   policy,
		log:      logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Policy returns the resolved policy the scheduler runs with.
func (s *Scheduler) Policy() models.Policy { return s.policy }

// Plan validates input and runs the engine once.
func Plan(ctx context.Context, input models.ScheduleInput, opts ...Option) (*Result, error) {
	var policy models.Policy
	if input.Policy != nil {
		policy = *input.Policy
	}
	s, err := New(input.Students, input.Services, input.StartDate, policy, opts...)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}

// state is the mutable planning state of one run.
type state struct {
	ledger    *Ledger
	tracker   *Tracker
	evaluator *Evaluator
	next      []int
	history   []commit
	horizon   int
	breakDays int
}

func (s *Scheduler) newState() *state {
	ledger := NewLedger(len(s.services))
	tracker := NewTracker(len(s.students), len(s.services))
	return &state{
		ledger:    ledger,
		tracker:   tracker,
		evaluator: NewEvaluator(s.services, s.policy, ledger, tracker),
		next:      make([]int, len(s.students)),
		horizon:   s.policy.SearchHorizonDays,
		breakDays: s.policy.BreakDaysBetweenRotations,
	}
}

// Run executes the planning loop. Budget exhaustion is reported through
// Result.Status; an error is returned only for cancellation or, with a strict
// policy, a plan that failed validation.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	began := time.Now()
	st := s.newState()
	budget := IterationBudget(s.policy, len(s.students), len(s.services))
	stats := models.RunStats{
		IterationBudget:   budget,
		EstimatedSpanDays: EstimateSpan(len(s.students), s.services, s.policy),
	}

	status := StateRunning
	// highWater is the longest history seen; a rollback may only be retried
	// once the plan grows past it.
	highWater := 0
	rolledBack := false
	for {
		if st.tracker.AllComplete() {
			status = StateComplete
			break
		}
		if stats.Rounds >= budget {
			status = StateAbortedBudgetExceeded
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("planning stopped after %d rounds: %w", stats.Rounds, err)
		}

		stats.Rounds++
		commits := st.round(ctx, s.order(st))
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("planning stopped in round %d: %w", stats.Rounds, err)
		}
		if stats.Rounds%progressEvery == 0 {
			s.log.Debugw("planning progress", map[string]any{
				"round":       stats.Rounds,
				"assignments": len(st.history),
				"horizon":     st.horizon,
			})
		}

		if commits > 0 {
			status = StateRunning
			if len(st.history) > highWater {
				highWater = len(st.history)
				rolledBack = false
			}
			continue
		}

		status = StateStagnated
		// A round that commits nothing leaves the state untouched, so the next
		// round would stagnate too; roll back right away.
		if !rolledBack && len(st.history) > 0 {
			n := st.rollback(rollbackSize(len(st.history), s.policy.MaxRollbackBatch))
			stats.Rollbacks++
			stats.RolledBackAssignments += n
			rolledBack = true
			s.log.Debugf("round %d stagnated, rolled back %d assignments", stats.Rounds, n)
			continue
		}
		st.horizon += s.policy.HorizonExtensionDays
		stats.HorizonExtensions++
		s.log.Debugf("round %d stagnated, search horizon extended to %d days", stats.Rounds, st.horizon)
	}
	stats.FinalHorizonDays = st.horizon

	res := &Result{
		Status:      status,
		StartDate:   s.start,
		Assignments: s.assignments(st),
		Unresolved:  s.unresolved(st),
		Stats:       stats,
	}
	res.Validation = Validate(res.Assignments, s.students, s.services, s.policy)
	res.Efficiency = AnalyzeEfficiency(res.Assignments, s.services, s.policy)

	if status == StateComplete {
		s.log.Infof("planned %d rotations for %d students in %d rounds (span %d days)",
			len(res.Assignments), len(s.students), stats.Rounds, res.Efficiency.TotalSpanDays)
	} else {
		s.log.Warnf("iteration budget of %d rounds exhausted with %d students unresolved",
			budget, len(res.Unresolved))
		for _, u := range res.Unresolved {
			s.log.Warnf("student %s is missing %s", u.StudentID, strings.Join(u.MissingServiceIDs, ", "))
		}
	}
	if s.recorder != nil {
		s.recorder.ObserveRun(string(status), stats, time.Since(began))
	}

	if s.policy.Strict && !res.Validation.IsValid {
		return res, fmt.Errorf("%w: %s", ErrRejected, strings.Join(res.Validation.Errors, "; "))
	}
	return res, nil
}

// order returns the incomplete students for the next round: fewest completed
// services first, then earliest next available day, then input position.
func (s *Scheduler) order(st *state) []int {
	pending := make([]int, 0, len(s.students))
	for i := range s.students {
		if !st.tracker.IsFullyScheduled(i) {
			pending = append(pending, i)
		}
	}
	sort.SliceStable(pending, func(a, b int) bool {
		i, j := pending[a], pending[b]
		if ci, cj := st.tracker.Completed(i), st.tracker.Completed(j); ci != cj {
			return ci < cj
		}
		return st.next[i] < st.next[j]
	})
	return pending
}

// round gives each student in order one chance to take its best candidate
// and returns the number of commits. It stops early once ctx is done.
func (st *state) round(ctx context.Context, order []int) int {
	commits := 0
	for _, student := range order {
		if ctx.Err() != nil {
			break
		}
		c, ok := st.evaluator.Best(student, st.next[student], st.horizon)
		if !ok {
			continue
		}
		duration := c.End - c.Start + 1
		st.ledger.Reserve(c.Service, c.Start, duration)
		st.tracker.MarkComplete(student, c.Service)
		st.history = append(st.history, commit{
			student: student,
			service: c.Service,
			start:   c.Start,
			end:     c.End,
			order:   st.tracker.Completed(student),
		})
		st.next[student] = st.nextAfter(c.End)
		commits++
	}
	return commits
}

// assignments materializes the history, grouped by student in input order
// and then by sequence order.
func (s *Scheduler) assignments(st *state) []models.Assignment {
	commits := make([]commit, len(st.history))
	copy(commits, st.history)
	sort.SliceStable(commits, func(a, b int) bool {
		if commits[a].student != commits[b].student {
			return commits[a].student < commits[b].student
		}
		return commits[a].order < commits[b].order
	})

	out := make([]models.Assignment, 0, len(commits))
	for _, c := range commits {
		student, service := s.students[c.student], s.services[c.service]
		start := s.start.AddDays(c.start)
		out = append(out, models.Assignment{
			ID:            AssignmentID(student.ID, service.ID, start),
			StudentID:     student.ID,
			StudentName:   student.Name,
			ServiceID:     service.ID,
			ServiceName:   service.Name,
			StartDate:     start,
			EndDate:       s.start.AddDays(c.end),
			SequenceOrder: c.order,
		})
	}
	return out
}

func (s *Scheduler) unresolved(st *state) []models.Unresolved {
	var out []models.Unresolved
	for i, student := range s.students {
		remaining := st.tracker.Remaining(i)
		if len(remaining) == 0 {
			continue
		}
		missing := make([]string, len(remaining))
		for k, svc := range remaining {
			missing[k] = s.services[svc].ID
		}
		out = append(out, models.Unresolved{
			StudentID:         student.ID,
			StudentName:       student.Name,
			MissingServiceIDs: missing,
		})
	}
	return out
}

// AssignmentID derives a stable id from the placement itself, so identical
// runs yield identical ids.
func AssignmentID(studentID, serviceID string, start models.Date) string {
	name := studentID + "|" + serviceID + "|" + start.String()
	return uuid.NewSHA1(assignmentNamespace, []byte(name)).String()
}
