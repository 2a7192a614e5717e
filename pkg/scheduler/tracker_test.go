package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker(t *testing.T) {
	tr := NewTracker(2, 3)
	assert.Equal(t, []int{0, 1, 2}, tr.Remaining(0))
	assert.False(t, tr.AllComplete())

	tr.MarkComplete(0, 1)
	tr.MarkComplete(0, 1)
	assert.True(t, tr.Has(0, 1))
	assert.Equal(t, 1, tr.Completed(0))
	assert.Equal(t, []int{0, 2}, tr.Remaining(0))

	tr.MarkComplete(0, 0)
	tr.MarkComplete(0, 2)
	assert.True(t, tr.IsFullyScheduled(0))
	assert.Empty(t, tr.Remaining(0))
	assert.False(t, tr.AllComplete())

	tr.MarkIncomplete(0, 2)
	tr.MarkIncomplete(0, 2)
	assert.Equal(t, 2, tr.Completed(0))
	assert.Equal(t, []int{2}, tr.Remaining(0))
	assert.Equal(t, 0, tr.Completed(1))
}
