package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
)

// AssignmentHeaders are the columns of an exported plan.
var AssignmentHeaders = []string{
	"student_id", "student_name", "service_id", "service_name",
	"start_date", "end_date", "duration_days", "sequence_order",
}

// AssignmentsCSV renders assignments as CSV bytes.
func AssignmentsCSV(assignments []models.Assignment) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := WriteAssignments(buf, assignments); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteAssignments writes assignments as CSV to w.
func WriteAssignments(w io.Writer, assignments []models.Assignment) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(AssignmentHeaders); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	for _, a := range assignments {
		record := []string{
			a.StudentID,
			a.StudentName,
			a.ServiceID,
			a.ServiceName,
			a.StartDate.String(),
			a.EndDate.String(),
			strconv.Itoa(a.DurationDays()),
			strconv.Itoa(a.SequenceOrder),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// table reads a CSV with a header row into per-row column maps.
func table(r io.Reader, required ...string) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("csv is missing column %q", name)
		}
	}

	var rows []map[string]string
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		row := make(map[string]string, len(cols))
		for name, i := range cols {
			if i < len(record) {
				row[name] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadStudents parses a students CSV with columns id and name.
func ReadStudents(r io.Reader) ([]models.Student, error) {
	rows, err := table(r, "id")
	if err != nil {
		return nil, err
	}
	out := make([]models.Student, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Student{ID: row["id"], Name: row["name"]})
	}
	return out, nil
}

// ReadServices parses a services CSV with columns id, name, capacity and
// duration_days.
func ReadServices(r io.Reader) ([]models.Service, error) {
	rows, err := table(r, "id", "capacity", "duration_days")
	if err != nil {
		return nil, err
	}
	out := make([]models.Service, 0, len(rows))
	for i, row := range rows {
		capacity, err := strconv.Atoi(row["capacity"])
		if err != nil {
			return nil, fmt.Errorf("service row %d: capacity: %w", i+1, err)
		}
		duration, err := strconv.Atoi(row["duration_days"])
		if err != nil {
			return nil, fmt.Errorf("service row %d: duration_days: %w", i+1, err)
		}
		out = append(out, models.Service{
			ID:           row["id"],
			Name:         row["name"],
			Capacity:     capacity,
			DurationDays: duration,
		})
	}
	return out, nil
}

// ReadAssignments parses a CSV in the AssignmentHeaders layout. The
// duration_days column is ignored.
func ReadAssignments(r io.Reader) ([]models.Assignment, error) {
	rows, err := table(r, "student_id", "service_id", "start_date", "end_date")
	if err != nil {
		return nil, err
	}
	out := make([]models.Assignment, 0, len(rows))
	for i, row := range rows {
		start, err := models.ParseDate(row["start_date"])
		if err != nil {
			return nil, fmt.Errorf("assignment row %d: %w", i+1, err)
		}
		end, err := models.ParseDate(row["end_date"])
		if err != nil {
			return nil, fmt.Errorf("assignment row %d: %w", i+1, err)
		}
		order := 0
		if v := row["sequence_order"]; v != "" {
			if order, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("assignment row %d: sequence_order: %w", i+1, err)
			}
		}
		out = append(out, models.Assignment{
			StudentID:     row["student_id"],
			StudentName:   row["student_name"],
			ServiceID:     row["service_id"],
			ServiceName:   row["service_name"],
			StartDate:     start,
			EndDate:       end,
			SequenceOrder: order,
		})
	}
	return out, nil
}
