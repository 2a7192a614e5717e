package scheduler

// commit is one assignment held in the run's LIFO history.
type commit struct {
	student int
	service int
	start   int
	end     int
	order   int
}

func (c commit) duration() int { return c.end - c.start + 1 }

// rollbackSize is how many commits a stagnation rollback removes: a third of
// the history capped at maxBatch, and at least one when history is non-empty.
func rollbackSize(history, maxBatch int) int {
	n := history / 3
	if n < 1 {
		n = 1
	}
	if n > maxBatch {
		n = maxBatch
	}
	if n > history {
		n = history
	}
	return n
}

// rollback destroys the count most recent assignments, freeing their ledger
// capacity and completion entries, and rewinds each affected student's next
// available day. It returns how many assignments were removed.
func (st *state) rollback(count int) int {
	removed := 0
	for ; removed < count && len(st.history) > 0; removed++ {
		last := st.history[len(st.history)-1]
		st.history = st.history[:len(st.history)-1]

		st.ledger.Release(last.service, last.start, last.duration())
		st.tracker.MarkIncomplete(last.student, last.service)
		st.next[last.student] = st.resumeDay(last.student)
	}
	return removed
}

// resumeDay is the first day student may start a new rotation given the
// assignments still in history.
func (st *state) resumeDay(student int) int {
	latest := -1
	for _, c := range st.history {
		if c.student == student && c.end > latest {
			latest = c.end
		}
	}
	if latest < 0 {
		return 0
	}
	return st.nextAfter(latest)
}

// nextAfter is the first day a student may start after a rotation ending on
// end: the following day, or break days later when a break is configured.
func (st *state) nextAfter(end int) int {
	return end + max(1, st.breakDays)
}
