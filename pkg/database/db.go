package database

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/arnavshah/rotation-scheduler-api/pkg/config"
)

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table
type APIUsage struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	KeyID         uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date          string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount  int    `gorm:"default:0" json:"request_count"`
	TotalStudents int    `gorm:"default:0" json:"total_students"`
	TotalServices int    `gorm:"default:0" json:"total_services"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Plan represents the plans table: one stored planning run.
type Plan struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	Label         string         `gorm:"index" json:"label,omitempty"`
	Status        string         `gorm:"not null" json:"status"`
	StartDate     string         `gorm:"size:10" json:"start_date"`
	EndDate       string         `gorm:"size:10" json:"end_date"`
	SpanDays      int            `json:"span_days"`
	StudentCount  int            `json:"student_count"`
	ServiceCount  int            `json:"service_count"`
	RotationCount int            `json:"rotation_count"`
	IsValid       bool           `json:"is_valid"`
	Policy        datatypes.JSON `json:"policy"`
	Report        datatypes.JSON `json:"report"`
	CreatedAt     time.Time      `json:"created_at"`
	Rotations     []Rotation     `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE" json:"rotations,omitempty"`
}

// Rotation represents the rotations table: one assignment of a stored plan.
type Rotation struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	PlanID        string `gorm:"index:idx_plan_student;size:36;not null" json:"plan_id"`
	AssignmentID  string `gorm:"size:36;not null" json:"assignment_id"`
	StudentID     string `gorm:"index:idx_plan_student;not null" json:"student_id"`
	StudentName   string `json:"student_name"`
	ServiceID     string `gorm:"not null" json:"service_id"`
	ServiceName   string `json:"service_name"`
	StartDate     string `gorm:"size:10;not null" json:"start_date"`
	EndDate       string `gorm:"size:10;not null" json:"end_date"`
	SequenceOrder int    `json:"sequence_order"`
}

// PlanningSettings represents the planning_settings table. A single row holds
// the policy used when a request carries none.
type PlanningSettings struct {
	ID                        uint      `gorm:"primaryKey" json:"-"`
	Mode                      string    `gorm:"default:mandatory" json:"mode"`
	MaxConcurrentPerService   int       `json:"max_concurrent_per_service"`
	BreakDaysBetweenRotations int       `json:"break_days_between_rotations"`
	SearchHorizonDays         int       `json:"search_horizon_days"`
	MaxRollbackBatch          int       `json:"max_rollback_batch"`
	Strict                    bool      `json:"strict"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// Open connects to Postgres when a URL is configured and to SQLite otherwise,
// then migrates the schema.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	if cfg.URL != "" {
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.URL,
			PreferSimpleProtocol: true,
		})
		gormCfg.PrepareStmt = false
	} else {
		dialector = sqlite.Open(cfg.Path)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", cfg.Driver(), err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&APIKey{}, &APIUsage{}, &MasterUser{}, &Plan{}, &Rotation{}, &PlanningSettings{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
