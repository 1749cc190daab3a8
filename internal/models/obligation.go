package models

import "time"

// TeachingObligation binds one subject, taught by one teacher, to a
// department section with its weekly load requirements.
type TeachingObligation struct {
	ID               string    `db:"id" json:"id"`
	DepartmentID     string    `db:"department_id" json:"department_id"`
	Section          string    `db:"section" json:"section"`
	SubjectID        string    `db:"subject_id" json:"subject_id"`
	TeacherID        string    `db:"teacher_id" json:"teacher_id"`
	IsLab            bool      `db:"is_lab" json:"is_lab"`
	PeriodsPerWeek   int       `db:"periods_per_week" json:"periods_per_week"`
	MaxPeriodsPerDay int       `db:"max_periods_per_day" json:"max_periods_per_day"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// TeachingObligationDetail joins an obligation with display names for reads.
type TeachingObligationDetail struct {
	TeachingObligation
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// ObligationFilter captures filtering options for listing obligations.
type ObligationFilter struct {
	DepartmentID string
	Section      string
	TeacherID    string
	IsLab        *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
