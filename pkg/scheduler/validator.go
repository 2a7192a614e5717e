package scheduler

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
)

const (
	// bottleneckCoverage is the share of the plan span a service must spend at
	// capacity to be flagged as a bottleneck.
	bottleneckCoverage = 0.8
	warningPenalty     = 0.1
)

// Validate sweeps a finished assignment list. Errors break the plan; warnings
// only describe its quality. The report depends only on its arguments.
func Validate(assignments []models.Assignment, students []models.Student, services []models.Service, p models.Policy) models.ValidationReport {
	p = ResolvePolicy(p)
	report := models.ValidationReport{Errors: []string{}, Warnings: []string{}}

	studentIdx := make(map[string]int, len(students))
	for i, st := range students {
		studentIdx[st.ID] = i
	}
	serviceIdx := make(map[string]int, len(services))
	for i, svc := range services {
		serviceIdx[svc.ID] = i
	}

	perStudent := make([][]models.Assignment, len(students))
	perService := make([][]models.Assignment, len(services))
	for _, a := range assignments {
		si, okStudent := studentIdx[a.StudentID]
		vi, okService := serviceIdx[a.ServiceID]
		if !okStudent {
			report.Errors = append(report.Errors, fmt.Sprintf("assignment %s references unknown student %s", a.ID, a.StudentID))
		}
		if !okService {
			report.Errors = append(report.Errors, fmt.Sprintf("assignment %s references unknown service %s", a.ID, a.ServiceID))
		}
		if a.EndDate.Before(a.StartDate) {
			report.Errors = append(report.Errors, fmt.Sprintf("assignment %s ends %s before it starts %s", a.ID, a.EndDate, a.StartDate))
			continue
		}
		if !okStudent || !okService {
			continue
		}
		if got, want := a.DurationDays(), services[vi].DurationDays; got != want {
			report.Warnings = append(report.Warnings, fmt.Sprintf("student %s rotation in %s lasts %d days, service duration is %d", a.StudentID, a.ServiceID, got, want))
		}
		perStudent[si] = append(perStudent[si], a)
		perService[vi] = append(perService[vi], a)
	}

	for vi, svc := range services {
		if msg := capacityOverrun(svc, p.EffectiveCapacity(svc), perService[vi]); msg != "" {
			report.Errors = append(report.Errors, msg)
		}
	}

	totalDays := make([]float64, 0, len(students))
	for si, st := range students {
		errs, warns, days := checkStudent(st, services, perStudent[si], p.BreakDaysBetweenRotations)
		report.Errors = append(report.Errors, errs...)
		report.Warnings = append(report.Warnings, warns...)
		totalDays = append(totalDays, float64(days))
	}

	counts := make([]float64, len(services))
	for vi, svc := range services {
		counts[vi] = float64(len(perService[vi]))
		if len(perService[vi]) == 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("service %s has no assignments", svc.ID))
		}
	}

	// Coefficient of variation of per-service counts; 0 is perfectly even.
	var loadBalance float64
	if mean := stat.Mean(counts, nil); mean > 0 {
		loadBalance = stat.PopStdDev(counts, nil) / mean
	}
	if loadBalance > p.LoadBalanceThreshold {
		report.Warnings = append(report.Warnings, fmt.Sprintf("poor load balance across services: score %.2f exceeds %.2f", loadBalance, p.LoadBalanceThreshold))
	}

	eff := AnalyzeEfficiency(assignments, services, p)
	report.Warnings = append(report.Warnings, utilizationWarnings(eff, services, perService, p)...)

	utilization := make([]float64, 0, len(services))
	for _, svc := range services {
		if occ, ok := eff.PerService[svc.ID]; ok && occ.TotalAssignments > 0 {
			utilization = append(utilization, occ.UtilizationRate)
		}
	}
	var avgUtilization, avgDuration float64
	if len(utilization) > 0 {
		avgUtilization = stat.Mean(utilization, nil)
	}
	if len(totalDays) > 0 {
		avgDuration = stat.Mean(totalDays, nil)
	}

	report.IsValid = len(report.Errors) == 0
	noErrors := 0.0
	if report.IsValid {
		noErrors = 1
	}
	factors := []float64{
		noErrors,
		math.Max(0, 1-loadBalance),
		math.Min(1, avgUtilization),
		math.Max(0, 1-warningPenalty*float64(len(report.Warnings))),
	}
	report.Metrics = models.QualityMetrics{
		LoadBalanceScore:      loadBalance,
		AvgServiceUtilization: avgUtilization,
		AvgDurationPerStudent: avgDuration,
		QualityScore:          stat.Mean(factors, nil),
	}
	return report
}

// capacityOverrun summarises the days on which svc holds more than capacity
// students, or returns "" when there are none.
func capacityOverrun(svc models.Service, capacity int, rotations []models.Assignment) string {
	if len(rotations) == 0 {
		return ""
	}
	origin, days := occupancy(rotations)
	over, peak, first := 0, 0, -1
	for day, n := range days {
		if n > capacity {
			over++
			if first < 0 {
				first = day
			}
		}
		if n > peak {
			peak = n
		}
	}
	if over == 0 {
		return ""
	}
	return fmt.Sprintf("service %s exceeds capacity %d on %d days (first %s, peak %d)",
		svc.ID, capacity, over, origin.AddDays(first), peak)
}

// occupancy lays the rotations out as a per-day head count starting at the
// earliest start date.
func occupancy(rotations []models.Assignment) (models.Date, []int) {
	origin, last := rotations[0].StartDate, rotations[0].EndDate
	for _, a := range rotations[1:] {
		if a.StartDate.Before(origin) {
			origin = a.StartDate
		}
		if a.EndDate.After(last) {
			last = a.EndDate
		}
	}
	if last.Before(origin) {
		return origin, nil
	}
	days := make([]int, last.DaysSince(origin)+1)
	for _, a := range rotations {
		from, to := a.StartDate.DaysSince(origin), a.EndDate.DaysSince(origin)
		for d := from; d <= to; d++ {
			days[d]++
		}
	}
	return origin, days
}

func checkStudent(st models.Student, services []models.Service, rotations []models.Assignment, breakDays int) (errs, warns []string, days int) {
	held := make(map[string]int, len(rotations))
	for _, a := range rotations {
		held[a.ServiceID]++
		days += a.DurationDays()
	}
	var missing []string
	for _, svc := range services {
		switch n := held[svc.ID]; {
		case n == 0:
			missing = append(missing, svc.ID)
		case n > 1:
			errs = append(errs, fmt.Sprintf("student %s is assigned service %s %d times", st.ID, svc.ID, n))
		}
	}
	if len(missing) > 0 {
		errs = append(errs, fmt.Sprintf("student %s is missing services %s", st.ID, strings.Join(missing, ", ")))
	}

	sorted := make([]models.Assignment, len(rotations))
	copy(sorted, rotations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate.Before(sorted[j].StartDate)
	})
	ordered := true
	for i, a := range sorted {
		if a.SequenceOrder != i+1 {
			ordered = false
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if !a.StartDate.After(prev.EndDate) {
			errs = append(errs, fmt.Sprintf("student %s has overlapping rotations in %s and %s", st.ID, prev.ServiceID, a.ServiceID))
			continue
		}
		if gap := a.StartDate.DaysSince(prev.EndDate) - 1; gap > max(0, breakDays-1) {
			warns = append(warns, fmt.Sprintf("student %s waits %d days between %s and %s (break policy %d)", st.ID, gap, prev.ServiceID, a.ServiceID, breakDays))
		}
	}
	if !ordered && hasSequence(sorted) {
		errs = append(errs, fmt.Sprintf("student %s sequence order does not follow start dates", st.ID))
	}
	return errs, warns, days
}

// hasSequence reports whether the caller filled in sequence orders at all.
func hasSequence(rotations []models.Assignment) bool {
	for _, a := range rotations {
		if a.SequenceOrder <= 0 {
			return false
		}
	}
	return len(rotations) > 0
}

func utilizationWarnings(eff models.EfficiencyReport, services []models.Service, perService [][]models.Assignment, p models.Policy) []string {
	if eff.TotalSpanDays == 0 {
		return nil
	}
	span := float64(eff.TotalSpanDays)
	var warns []string
	for vi, svc := range services {
		if len(perService[vi]) == 0 {
			continue
		}
		capacity := p.EffectiveCapacity(svc)
		_, days := occupancy(perService[vi])
		studentDays, saturated := 0, 0
		for _, n := range days {
			studentDays += n
			if n >= capacity {
				saturated++
			}
		}
		spanUtilization := float64(studentDays) / (float64(capacity) * span)
		switch {
		case float64(saturated)/span >= bottleneckCoverage:
			warns = append(warns, fmt.Sprintf("service %s is a bottleneck: at capacity on %d of %d days", svc.ID, saturated, eff.TotalSpanDays))
		case spanUtilization < p.LowUtilizationThreshold:
			warns = append(warns, fmt.Sprintf("service %s is under-used: %.0f%% of capacity over the plan span", svc.ID, spanUtilization*100))
		}
	}
	return warns
}

// AnalyzeEfficiency measures how the plan occupies the calendar overall and
// per service.
func AnalyzeEfficiency(assignments []models.Assignment, services []models.Service, p models.Policy) models.EfficiencyReport {
	p = ResolvePolicy(p)
	report := models.EfficiencyReport{
		RotationCount: len(assignments),
		PerService:    make(map[string]models.ServiceOccupancy, len(services)),
	}
	if len(assignments) > 0 {
		origin, last := assignments[0].StartDate, assignments[0].EndDate
		for _, a := range assignments[1:] {
			if a.StartDate.Before(origin) {
				origin = a.StartDate
			}
			if a.EndDate.After(last) {
				last = a.EndDate
			}
		}
		report.StartDate = origin
		report.EndDate = last
		report.TotalSpanDays = max(0, last.DaysSince(origin)+1)
	}

	byService := make(map[string][]models.Assignment, len(services))
	for _, a := range assignments {
		byService[a.ServiceID] = append(byService[a.ServiceID], a)
	}
	for _, svc := range services {
		rotations := byService[svc.ID]
		occ := models.ServiceOccupancy{TotalAssignments: len(rotations)}
		if len(rotations) > 0 {
			_, days := occupancy(rotations)
			active := make([]float64, 0, len(days))
			for _, n := range days {
				if n > 0 {
					active = append(active, float64(n))
				}
				if n > occ.PeakOccupancy {
					occ.PeakOccupancy = n
				}
			}
			occ.ActiveDays = len(active)
			if len(active) > 0 {
				occ.AverageDailyOccupancy = stat.Mean(active, nil)
				occ.UtilizationRate = occ.AverageDailyOccupancy / float64(p.EffectiveCapacity(svc))
			}
		}
		report.PerService[svc.ID] = occ
	}
	return report
}
