package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
)

func TestAssignmentsCSVRoundTrip(t *testing.T) {
	start := models.MustParseDate("2025-01-01")
	in := []models.Assignment{
		{StudentID: "st1", StudentName: "Ada, L.", ServiceID: "s1", ServiceName: "Surgery", StartDate: start, EndDate: start.AddDays(4), SequenceOrder: 1},
	}
	out, err := AssignmentsCSV(in)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "student_id,student_name,service_id,service_name,start_date,end_date,duration_days,sequence_order", lines[0])
	assert.Equal(t, `st1,"Ada, L.",s1,Surgery,2025-01-01,2025-01-05,5,1`, lines[1])

	back, err := ReadAssignments(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, in, back)
}

func TestReadStudentsAndServices(t *testing.T) {
	students, err := ReadStudents(strings.NewReader("id,name\nst1,Ada\nst2,Bo\n"))
	require.NoError(t, err)
	assert.Equal(t, []models.Student{{ID: "st1", Name: "Ada"}, {ID: "st2", Name: "Bo"}}, students)

	services, err := ReadServices(strings.NewReader("ID,Name,Capacity,Duration_Days\ns1,Surgery,2,5\n"))
	require.NoError(t, err)
	assert.Equal(t, []models.Service{{ID: "s1", Name: "Surgery", Capacity: 2, DurationDays: 5}}, services)

	_, err = ReadServices(strings.NewReader("id,name\ns1,x\n"))
	assert.ErrorContains(t, err, `missing column "capacity"`)

	_, err = ReadServices(strings.NewReader("id,capacity,duration_days\ns1,two,5\n"))
	assert.ErrorContains(t, err, "capacity")
}
