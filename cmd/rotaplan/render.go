package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/arnavshah/rotation-scheduler-api/pkg/export"
	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(w io.Writer, assignments []models.Assignment) error {
	return export.WriteAssignments(w, assignments)
}

func assignmentTable(assignments []models.Assignment) string {
	rows := make([][]string, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, []string{
			a.StudentID,
			a.ServiceID,
			a.StartDate.String(),
			a.EndDate.String(),
			strconv.Itoa(a.DurationDays()),
			strconv.Itoa(a.SequenceOrder),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers("STUDENT", "SERVICE", "START", "END", "DAYS", "ORDER").
		Rows(rows...).
		Render()
}

func writePretty(w io.Writer, resp models.ScheduleResponse) error {
	eff := resp.EfficiencyReport
	if _, err := fmt.Fprintf(w, "%s\n%s\n",
		titleStyle.Render(fmt.Sprintf("%s: %d rotations over %d days (%s to %s), %d rounds",
			resp.Status, len(resp.Assignments), eff.TotalSpanDays, eff.StartDate, eff.EndDate, resp.Stats.Rounds)),
		assignmentTable(resp.Assignments)); err != nil {
		return err
	}
	for _, u := range resp.Unresolved {
		if _, err := fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("unresolved: %s missing %v", u.StudentID, u.MissingServiceIDs))); err != nil {
			return err
		}
	}
	return writeReport(w, resp.ValidationReport)
}

func writeReport(w io.Writer, r models.ValidationReport) error {
	_, err := fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("valid: %t  quality: %.2f  load balance: %.2f  utilization: %.2f",
		r.IsValid, r.Metrics.QualityScore, r.Metrics.LoadBalanceScore, r.Metrics.AvgServiceUtilization)))
	if err != nil {
		return err
	}
	for _, e := range r.Errors {
		if _, err := fmt.Fprintln(w, errorStyle.Render("error: "+e)); err != nil {
			return err
		}
	}
	for _, msg := range r.Warnings {
		if _, err := fmt.Fprintln(w, warnStyle.Render("warning: "+msg)); err != nil {
			return err
		}
	}
	return nil
}
