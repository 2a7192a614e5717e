package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
)

// DefaultSettings are the values a fresh settings row starts with.
func DefaultSettings() PlanningSettings {
	return PlanningSettings{
		Mode:                      string(models.ModeMandatory),
		MaxConcurrentPerService:   2,
		BreakDaysBetweenRotations: 2,
		SearchHorizonDays:         365,
		MaxRollbackBatch:          10,
	}
}

// Apply overlays the stored knobs on base. Knobs the table does not hold,
// such as the score weights, keep the values of base.
func (s PlanningSettings) Apply(base models.Policy) models.Policy {
	if s.Mode != "" {
		base.Mode = models.Mode(s.Mode)
	}
	base.MaxConcurrentPerService = s.MaxConcurrentPerService
	base.BreakDaysBetweenRotations = s.BreakDaysBetweenRotations
	if s.SearchHorizonDays > 0 {
		base.SearchHorizonDays = s.SearchHorizonDays
	}
	if s.MaxRollbackBatch > 0 {
		base.MaxRollbackBatch = s.MaxRollbackBatch
	}
	base.Strict = s.Strict
	return base
}

// Settings returns the stored planning settings, creating the default row
// on first access.
func (s *Store) Settings(ctx context.Context) (PlanningSettings, error) {
	var settings PlanningSettings
	err := s.db.WithContext(ctx).Order("id").First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = DefaultSettings()
		if err := s.db.WithContext(ctx).Create(&settings).Error; err != nil {
			return PlanningSettings{}, fmt.Errorf("create settings: %w", err)
		}
		return settings, nil
	}
	if err != nil {
		return PlanningSettings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings overwrites the stored settings.
func (s *Store) UpdateSettings(ctx context.Context, in PlanningSettings) (PlanningSettings, error) {
	current, err := s.Settings(ctx)
	if err != nil {
		return PlanningSettings{}, err
	}
	in.ID = current.ID
	if in.Mode == "" {
		in.Mode = current.Mode
	}
	if err := s.db.WithContext(ctx).Save(&in).Error; err != nil {
		return PlanningSettings{}, fmt.Errorf("update settings: %w", err)
	}
	return s.Settings(ctx)
}
