package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

const rotationBatchSize = 200

// Store wraps the database for the handlers.
type Store struct {
	db *gorm.DB
}

// NewStore returns a Store over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection.
func (s *Store) DB() *gorm.DB { return s.db }

// planReport is the JSON document stored in plans.report.
type planReport struct {
	Unresolved       []models.Unresolved     `json:"unresolved,omitempty"`
	ValidationReport models.ValidationReport `json:"validation_report"`
	EfficiencyReport models.EfficiencyReport `json:"efficiency_report"`
	Stats            models.RunStats         `json:"stats"`
}

// SavePlan writes the plan and all its rotations in one transaction. A
// non-empty label replaces any plan previously saved under it.
func (s *Store) SavePlan(ctx context.Context, label string, policy models.Policy, students, services int, resp models.ScheduleResponse) (*Plan, error) {
	policyJSON, err := json.Marshal(policy)
	if err != nil {
		return nil, fmt.Errorf("encode policy: %w", err)
	}
	reportJSON, err := json.Marshal(planReport{
		Unresolved:       resp.Unresolved,
		ValidationReport: resp.ValidationReport,
		EfficiencyReport: resp.EfficiencyReport,
		Stats:            resp.Stats,
	})
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	plan := &Plan{
		ID:            uuid.NewString(),
		Label:         label,
		Status:        resp.Status,
		StartDate:     resp.EfficiencyReport.StartDate.String(),
		EndDate:       resp.EfficiencyReport.EndDate.String(),
		SpanDays:      resp.EfficiencyReport.TotalSpanDays,
		StudentCount:  students,
		ServiceCount:  services,
		RotationCount: len(resp.Assignments),
		IsValid:       resp.ValidationReport.IsValid,
		Policy:        policyJSON,
		Report:        reportJSON,
	}
	rotations := make([]Rotation, len(resp.Assignments))
	for i, a := range resp.Assignments {
		rotations[i] = Rotation{
			PlanID:        plan.ID,
			AssignmentID:  a.ID,
			StudentID:     a.StudentID,
			StudentName:   a.StudentName,
			ServiceID:     a.ServiceID,
			ServiceName:   a.ServiceName,
			StartDate:     a.StartDate.String(),
			EndDate:       a.EndDate.String(),
			SequenceOrder: a.SequenceOrder,
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if label != "" {
			var old []string
			if err := tx.Model(&Plan{}).Where("label = ?", label).Pluck("id", &old).Error; err != nil {
				return err
			}
			if err := deletePlans(tx, old); err != nil {
				return err
			}
		}
		if err := tx.Create(plan).Error; err != nil {
			return err
		}
		if len(rotations) == 0 {
			return nil
		}
		return tx.CreateInBatches(rotations, rotationBatchSize).Error
	})
	if err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	plan.Rotations = rotations
	return plan, nil
}

func deletePlans(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("plan_id IN ?", ids).Delete(&Rotation{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&Plan{}).Error
}

// GetPlan loads a plan with its rotations in student then sequence order.
func (s *Store) GetPlan(ctx context.Context, id string) (*Plan, error) {
	var plan Plan
	err := s.db.WithContext(ctx).
		Preload("Rotations", func(db *gorm.DB) *gorm.DB {
			return db.Order("id")
		}).
		First(&plan, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", id, err)
	}
	return &plan, nil
}

// StudentRotations returns one student's rotations of a plan.
func (s *Store) StudentRotations(ctx context.Context, planID, studentID string) ([]Rotation, error) {
	var rotations []Rotation
	err := s.db.WithContext(ctx).
		Where("plan_id = ? AND student_id = ?", planID, studentID).
		Order("sequence_order").
		Find(&rotations).Error
	if err != nil {
		return nil, fmt.Errorf("load rotations: %w", err)
	}
	if len(rotations) == 0 {
		return nil, ErrNotFound
	}
	return rotations, nil
}

// DeletePlan removes a plan and its rotations.
func (s *Store) DeletePlan(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Plan{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return deletePlans(tx, []string{id})
	})
}

// Response rebuilds the API payload of a stored plan.
func (p *Plan) Response() (models.ScheduleResponse, error) {
	var report planReport
	if len(p.Report) > 0 {
		if err := json.Unmarshal(p.Report, &report); err != nil {
			return models.ScheduleResponse{}, fmt.Errorf("decode report of plan %s: %w", p.ID, err)
		}
	}
	assignments, err := Assignments(p.Rotations)
	if err != nil {
		return models.ScheduleResponse{}, err
	}
	return models.ScheduleResponse{
		PlanID:           p.ID,
		Status:           p.Status,
		Assignments:      assignments,
		Unresolved:       report.Unresolved,
		ValidationReport: report.ValidationReport,
		EfficiencyReport: report.EfficiencyReport,
		Stats:            report.Stats,
	}, nil
}

// Assignments converts stored rotations back into assignments.
func Assignments(rotations []Rotation) ([]models.Assignment, error) {
	out := make([]models.Assignment, 0, len(rotations))
	for _, r := range rotations {
		start, err := models.ParseDate(r.StartDate)
		if err != nil {
			return nil, fmt.Errorf("rotation %d: %w", r.ID, err)
		}
		end, err := models.ParseDate(r.EndDate)
		if err != nil {
			return nil, fmt.Errorf("rotation %d: %w", r.ID, err)
		}
		out = append(out, models.Assignment{
			ID:            r.AssignmentID,
			StudentID:     r.StudentID,
			StudentName:   r.StudentName,
			ServiceID:     r.ServiceID,
			ServiceName:   r.ServiceName,
			StartDate:     start,
			EndDate:       end,
			SequenceOrder: r.SequenceOrder,
		})
	}
	return out, nil
}

// RecordUsage adds one request to today's usage row of the key.
func (s *Store) RecordUsage(ctx context.Context, keyID uint, students, services int) error {
	today := time.Now().Format("2006-01-02")

	// Use OnConflict for a single-query upsert (supported by both Postgres and SQLite)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":  gorm.Expr("request_count + ?", 1),
			"total_students": gorm.Expr("total_students + ?", students),
			"total_services": gorm.Expr("total_services + ?", services),
		}),
	}).Create(&APIUsage{
		KeyID:         keyID,
		Date:          today,
		RequestCount:  1,
		TotalStudents: students,
		TotalServices: services,
	}).Error
}

// Usage returns the latest 30 days of usage of a key, newest first.
func (s *Store) Usage(ctx context.Context, keyID uint) ([]APIUsage, error) {
	var usage []APIUsage
	if err := s.db.WithContext(ctx).Where("key_id = ?", keyID).Order("date desc").Limit(30).Find(&usage).Error; err != nil {
		return nil, fmt.Errorf("load usage: %w", err)
	}
	return usage, nil
}
