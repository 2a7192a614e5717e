package models

// Student is one member of the cohort to be placed. The engine never mutates it.
type Student struct {
	ID   string `json:"id" yaml:"id" validate:"required"`
	Name string `json:"name" yaml:"name"`
}

// Service is a rotation site with a daily head-count limit and a fixed length.
type Service struct {
	ID           string `json:"id" yaml:"id" validate:"required"`
	Name         string `json:"name" yaml:"name"`
	Capacity     int    `json:"capacity" yaml:"capacity" validate:"gt=0"`
	DurationDays int    `json:"duration_days" yaml:"duration_days" validate:"gt=0"`
}

// Assignment places one student in one service for a contiguous date range.
type Assignment struct {
	ID            string `json:"id" yaml:"id"`
	StudentID     string `json:"student_id" yaml:"student_id" validate:"required"`
	StudentName   string `json:"student_name,omitempty" yaml:"student_name,omitempty"`
	ServiceID     string `json:"service_id" yaml:"service_id" validate:"required"`
	ServiceName   string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	StartDate     Date   `json:"start_date" yaml:"start_date"`
	EndDate       Date   `json:"end_date" yaml:"end_date"`
	SequenceOrder int    `json:"sequence_order" yaml:"sequence_order"`
}

// DurationDays returns the inclusive length of the assignment.
func (a Assignment) DurationDays() int {
	return a.EndDate.DaysSince(a.StartDate) + 1
}

// Unresolved lists the services a student still lacks when a run stops early.
type Unresolved struct {
	StudentID         string   `json:"student_id"`
	StudentName       string   `json:"student_name,omitempty"`
	MissingServiceIDs []string `json:"missing_service_ids"`
}

// ScheduleInput is the data structure for the scheduling endpoint
type ScheduleInput struct {
	Label     string    `json:"label,omitempty" yaml:"label"`
	Students  []Student `json:"students" yaml:"students" validate:"required,min=1,dive"`
	Services  []Service `json:"services" yaml:"services" validate:"required,min=1,dive"`
	StartDate Date      `json:"start_date" yaml:"start_date"`
	Policy    *Policy   `json:"policy,omitempty" yaml:"policy"`
	Save      bool      `json:"save,omitempty" yaml:"save"`
}

// CheckInput carries an existing assignment list for re-validation.
type CheckInput struct {
	Students    []Student    `json:"students" yaml:"students" validate:"required,min=1,dive"`
	Services    []Service    `json:"services" yaml:"services" validate:"required,min=1,dive"`
	Assignments []Assignment `json:"assignments" yaml:"assignments" validate:"dive"`
	Policy      *Policy      `json:"policy,omitempty" yaml:"policy"`
}

// RunStats describes how the engine got to its result.
type RunStats struct {
	Rounds                int `json:"rounds"`
	Rollbacks             int `json:"rollbacks"`
	RolledBackAssignments int `json:"rolled_back_assignments"`
	HorizonExtensions     int `json:"horizon_extensions"`
	FinalHorizonDays      int `json:"final_horizon_days"`
	IterationBudget       int `json:"iteration_budget"`
	EstimatedSpanDays     int `json:"estimated_span_days"`
}

// ScheduleResponse is the data structure for the scheduling result
type ScheduleResponse struct {
	PlanID           string           `json:"plan_id,omitempty"`
	Status           string           `json:"status"`
	Assignments      []Assignment     `json:"assignments"`
	Unresolved       []Unresolved     `json:"unresolved,omitempty"`
	ValidationReport ValidationReport `json:"validation_report"`
	EfficiencyReport EfficiencyReport `json:"efficiency_report"`
	Stats            RunStats         `json:"stats"`
}

// CheckResponse is returned by the re-validation endpoint.
type CheckResponse struct {
	ValidationReport ValidationReport `json:"validation_report"`
	EfficiencyReport EfficiencyReport `json:"efficiency_report"`
}
