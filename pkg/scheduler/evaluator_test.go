package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
)

func newTestEvaluator(services []models.Service, p models.Policy) (*Evaluator, *Ledger, *Tracker) {
	p = ResolvePolicy(p)
	l := NewLedger(len(services))
	tr := NewTracker(1, len(services))
	return NewEvaluator(services, p, l, tr), l, tr
}

func TestEvaluateSkipsPastFullDays(t *testing.T) {
	services := []models.Service{{ID: "s1", Capacity: 1, DurationDays: 3}}
	e, l, _ := newTestEvaluator(services, models.Policy{})
	l.Reserve(0, 0, 3)

	c, ok := e.Evaluate(0, 0, 0, 10)
	require.True(t, ok)
	assert.Equal(t, 3, c.Start)
	assert.Equal(t, 5, c.End)
	assert.Equal(t, 3, c.Delay)
	// availability 1, capacity 1, urgency 1, duration 1, delay 0.9
	assert.InDelta(t, 0.985, c.Score, 1e-9)
}

func TestEvaluateRespectsHorizon(t *testing.T) {
	services := []models.Service{{ID: "s1", Capacity: 1, DurationDays: 3}}
	e, l, _ := newTestEvaluator(services, models.Policy{})
	l.Reserve(0, 0, 3)

	_, ok := e.Evaluate(0, 0, 0, 3)
	assert.False(t, ok)
	_, ok = e.Evaluate(0, 0, 0, 4)
	assert.True(t, ok)
}

func TestEvaluateUsesEffectiveCapacity(t *testing.T) {
	services := []models.Service{{ID: "s1", Capacity: 4, DurationDays: 2}}
	e, l, _ := newTestEvaluator(services, models.Policy{MaxConcurrentPerService: 1})
	l.Reserve(0, 0, 2)

	c, ok := e.Evaluate(0, 0, 0, 30)
	require.True(t, ok)
	assert.Equal(t, 2, c.Start)
}

func TestBestBreaksTiesByServiceID(t *testing.T) {
	services := []models.Service{
		{ID: "b", Capacity: 2, DurationDays: 5},
		{ID: "a", Capacity: 2, DurationDays: 5},
	}
	e, _, _ := newTestEvaluator(services, models.Policy{})

	c, ok := e.Best(0, 0, 30)
	require.True(t, ok)
	assert.Equal(t, 1, c.Service, "equal scores go to the lowest id")
}

func TestBestPrefersFreeService(t *testing.T) {
	services := []models.Service{
		{ID: "a", Capacity: 2, DurationDays: 5},
		{ID: "b", Capacity: 2, DurationDays: 5},
	}
	e, l, tr := newTestEvaluator(services, models.Policy{})
	l.Reserve(0, 0, 5)

	c, ok := e.Best(0, 0, 30)
	require.True(t, ok)
	assert.Equal(t, 1, c.Service)

	tr.MarkComplete(0, 1)
	c, ok = e.Best(0, 0, 30)
	require.True(t, ok)
	assert.Equal(t, 0, c.Service, "completed services are not offered again")
}

func TestSimpleModeFavoursBottlenecks(t *testing.T) {
	services := []models.Service{
		{ID: "a", Capacity: 4, DurationDays: 5},
		{ID: "b", Capacity: 1, DurationDays: 5},
	}
	e, _, _ := newTestEvaluator(services, models.Policy{
		Mode:    models.ModeSimple,
		Weights: models.Weights{Availability: 0.4, Capacity: 0.0, Urgency: 0.5, Duration: 0.1},
	})

	c, ok := e.Best(0, 0, 30)
	require.True(t, ok)
	assert.Equal(t, "b", services[c.Service].ID)
}
