package scheduler

// Tracker records which services each student has been assigned.
type Tracker struct {
	services int
	done     [][]bool
	counts   []int
}

// NewTracker creates a tracker with every student incomplete.
func NewTracker(students, services int) *Tracker {
	done := make([][]bool, students)
	for i := range done {
		done[i] = make([]bool, services)
	}
	return &Tracker{services: services, done: done, counts: make([]int, students)}
}

// Has reports whether student already holds svc.
func (t *Tracker) Has(student, svc int) bool {
	return t.done[student][svc]
}

// MarkComplete records svc for student. Repeated calls are no-ops.
func (t *Tracker) MarkComplete(student, svc int) {
	if !t.done[student][svc] {
		t.done[student][svc] = true
		t.counts[student]++
	}
}

// MarkIncomplete removes svc from student's set.
func (t *Tracker) MarkIncomplete(student, svc int) {
	if t.done[student][svc] {
		t.done[student][svc] = false
		t.counts[student]--
	}
}

// Completed returns how many services student holds.
func (t *Tracker) Completed(student int) int {
	return t.counts[student]
}

// Remaining lists the catalog indexes student still needs, ascending.
func (t *Tracker) Remaining(student int) []int {
	out := make([]int, 0, t.services-t.counts[student])
	for svc, ok := range t.done[student] {
		if !ok {
			out = append(out, svc)
		}
	}
	return out
}

// IsFullyScheduled reports whether student holds every service.
func (t *Tracker) IsFullyScheduled(student int) bool {
	return t.counts[student] == t.services
}

// AllComplete reports whether every student is fully scheduled.
func (t *Tracker) AllComplete() bool {
	for i := range t.counts {
		if !t.IsFullyScheduled(i) {
			return false
		}
	}
	return true
}
