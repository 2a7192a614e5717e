package scheduler

import (
	"sort"

	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
)

// StudentSchedule is one student's rotations in sequence order.
type StudentSchedule struct {
	StudentID   string              `json:"student_id"`
	StudentName string              `json:"student_name,omitempty"`
	Rotations   []models.Assignment `json:"rotations"`
	TotalDays   int                 `json:"total_days"`
	StartDate   models.Date         `json:"start_date"`
	EndDate     models.Date         `json:"end_date"`
}

// StudentSchedules groups assignments per student, keeping the order in
// which students first appear.
func StudentSchedules(assignments []models.Assignment) []StudentSchedule {
	index := make(map[string]int)
	var out []StudentSchedule
	for _, a := range assignments {
		i, ok := index[a.StudentID]
		if !ok {
			i = len(out)
			index[a.StudentID] = i
			out = append(out, StudentSchedule{StudentID: a.StudentID, StudentName: a.StudentName})
		}
		out[i].Rotations = append(out[i].Rotations, a)
	}
	for i := range out {
		s := &out[i]
		sort.SliceStable(s.Rotations, func(a, b int) bool {
			ra, rb := s.Rotations[a], s.Rotations[b]
			if ra.SequenceOrder != rb.SequenceOrder {
				return ra.SequenceOrder < rb.SequenceOrder
			}
			return ra.StartDate.Before(rb.StartDate)
		})
		for _, r := range s.Rotations {
			s.TotalDays += r.DurationDays()
			if s.StartDate.IsZero() || r.StartDate.Before(s.StartDate) {
				s.StartDate = r.StartDate
			}
			if r.EndDate.After(s.EndDate) {
				s.EndDate = r.EndDate
			}
		}
	}
	return out
}

// ScheduleFor returns the schedule of one student, if it has any rotations.
func ScheduleFor(assignments []models.Assignment, studentID string) (StudentSchedule, bool) {
	var own []models.Assignment
	for _, a := range assignments {
		if a.StudentID == studentID {
			own = append(own, a)
		}
	}
	if len(own) == 0 {
		return StudentSchedule{}, false
	}
	return StudentSchedules(own)[0], true
}
