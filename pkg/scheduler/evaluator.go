package scheduler

import (
	"math"

	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
)

// scoreEpsilon treats scores closer than this as equal so the tie-break
// rule decides.
const scoreEpsilon = 1e-9

// Candidate is a feasible placement of one student in one service.
type Candidate struct {
	Service int
	Start   int
	End     int
	Delay   int
	Score   float64
}

// Evaluator finds and scores the earliest feasible slot of each service for
// a student. It only reads the ledger and tracker.
type Evaluator struct {
	services    []models.Service
	capacity    []int
	maxCapacity int
	maxDuration int
	weights     models.Weights
	mode        models.Mode
	ledger      *Ledger
	tracker     *Tracker
}

// NewEvaluator prepares an evaluator over the catalog using effective capacities.
func NewEvaluator(services []models.Service, p models.Policy, ledger *Ledger, tracker *Tracker) *Evaluator {
	e := &Evaluator{
		services: services,
		capacity: make([]int, len(services)),
		weights:  p.Weights,
		mode:     p.Mode,
		ledger:   ledger,
		tracker:  tracker,
	}
	for i, svc := range services {
		e.capacity[i] = p.EffectiveCapacity(svc)
		if e.capacity[i] > e.maxCapacity {
			e.maxCapacity = e.capacity[i]
		}
		if svc.DurationDays > e.maxDuration {
			e.maxDuration = svc.DurationDays
		}
	}
	return e
}

// Evaluate scans forward from earliest for at most horizon start days and
// scores the first start at which svc has room for its whole duration.
func (e *Evaluator) Evaluate(student, svc, earliest, horizon int) (Candidate, bool) {
	duration := e.services[svc].DurationDays
	capacity := e.capacity[svc]
	limit := earliest + horizon
	for start := earliest; start < limit; {
		blocked := e.ledger.lastFull(svc, start, duration, capacity)
		if blocked < 0 {
			delay := start - earliest
			return Candidate{
				Service: svc,
				Start:   start,
				End:     start + duration - 1,
				Delay:   delay,
				Score:   e.score(student, svc, start, delay),
			}, true
		}
		start = blocked + 1
	}
	return Candidate{}, false
}

// Best evaluates every remaining service of student and returns the winner:
// highest score, then lowest service id, then earliest start.
func (e *Evaluator) Best(student, earliest, horizon int) (Candidate, bool) {
	var best Candidate
	found := false
	for _, svc := range e.tracker.Remaining(student) {
		c, ok := e.Evaluate(student, svc, earliest, horizon)
		if !ok {
			continue
		}
		if !found || e.better(c, best) {
			best = c
			found = true
		}
	}
	return best, found
}

func (e *Evaluator) better(a, b Candidate) bool {
	if math.Abs(a.Score-b.Score) > scoreEpsilon {
		return a.Score > b.Score
	}
	aID, bID := e.services[a.Service].ID, e.services[b.Service].ID
	if aID != bID {
		return aID < bID
	}
	return a.Start < b.Start
}

func (e *Evaluator) score(student, svc, start, delay int) float64 {
	w := e.weights
	capacity := float64(e.capacity[svc])
	maxCapacity := float64(e.maxCapacity)

	// mean free share over the whole window
	duration := e.services[svc].DurationDays
	free := 0.0
	for day := start; day < start+duration; day++ {
		free += (capacity - float64(e.ledger.Occupancy(svc, day))) / capacity
	}
	availability := free / float64(duration)

	capacityRank := capacity / maxCapacity

	var urgency float64
	switch e.mode {
	case models.ModeSimple:
		urgency = (maxCapacity - capacity + 1) / maxCapacity
	default:
		total := float64(len(e.services))
		urgency = (total - float64(e.tracker.Completed(student))) / total
	}

	durationRank := float64(duration) / float64(e.maxDuration)
	delayTerm := math.Max(0, 1-float64(delay)/delayWindowDays)

	return w.Availability*availability +
		w.Capacity*capacityRank +
		w.Urgency*urgency +
		w.Duration*durationRank +
		w.Delay*delayTerm
}
