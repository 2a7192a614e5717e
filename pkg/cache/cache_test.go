package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/rotation-scheduler-api/pkg/config"
	"github.com/arnavshah/rotation-scheduler-api/pkg/logger"
	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
)

func TestKeyIsStable(t *testing.T) {
	in := models.ScheduleInput{
		Students:  []models.Student{{ID: "a"}},
		Services:  []models.Service{{ID: "s1", Capacity: 1, DurationDays: 3}},
		StartDate: models.MustParseDate("2025-01-01"),
	}
	k1, err := Key(in)
	require.NoError(t, err)
	k2, err := Key(in)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)

	in.StartDate = in.StartDate.AddDays(1)
	k3, err := Key(in)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}

func TestNopCache(t *testing.T) {
	c := New(config.CacheConfig{}, logger.NopLogger{})
	require.IsType(t, NopCache{}, c)

	assert.NoError(t, c.Set(context.Background(), "k", 1))
	var out int
	assert.ErrorIs(t, c.Get(context.Background(), "k", &out), ErrMiss)
}

func TestUnreachableRedisFallsBack(t *testing.T) {
	cfg := config.CacheConfig{Addr: "127.0.0.1:1"}
	cfg.SetDefaults()

	_, err := NewRedis(cfg)
	assert.Error(t, err)
	assert.IsType(t, NopCache{}, New(cfg, logger.NopLogger{}))
}
