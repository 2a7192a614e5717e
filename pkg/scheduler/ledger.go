package scheduler

// Ledger counts the students present in each service on each day. Services
// are addressed by catalog index and days by offset from the plan start, so
// lookups never touch date strings.
type Ledger struct {
	days [][]int
}

// NewLedger creates an empty ledger for the given number of services.
func NewLedger(services int) *Ledger {
	return &Ledger{days: make([][]int, services)}
}

// Occupancy returns the head count of service svc on day.
func (l *Ledger) Occupancy(svc, day int) int {
	row := l.days[svc]
	if day < 0 || day >= len(row) {
		return 0
	}
	return row[day]
}

// IsAvailable reports whether every day of [start, start+duration-1] has
// occupancy strictly below capacity.
func (l *Ledger) IsAvailable(svc, start, duration, capacity int) bool {
	return l.lastFull(svc, start, duration, capacity) < 0
}

// lastFull returns the latest day in the window that is already at capacity,
// or -1. Any start up to and including that day would overlap it.
func (l *Ledger) lastFull(svc, start, duration, capacity int) int {
	for day := start + duration - 1; day >= start; day-- {
		if l.Occupancy(svc, day) >= capacity {
			return day
		}
	}
	return -1
}

// Reserve adds one occupant to every day of the window. Callers check
// IsAvailable first; Reserve does not.
func (l *Ledger) Reserve(svc, start, duration int) {
	end := start + duration
	if end > len(l.days[svc]) {
		grown := make([]int, end)
		copy(grown, l.days[svc])
		l.days[svc] = grown
	}
	for day := start; day < end; day++ {
		l.days[svc][day]++
	}
}

// Release removes one occupant from every day of the window.
func (l *Ledger) Release(svc, start, duration int) {
	row := l.days[svc]
	for day := start; day < start+duration && day < len(row); day++ {
		if row[day] > 0 {
			row[day]--
		}
	}
}

// Peak returns the highest daily occupancy recorded for svc.
func (l *Ledger) Peak(svc int) int {
	peak := 0
	for _, n := range l.days[svc] {
		if n > peak {
			peak = n
		}
	}
	return peak
}
