package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Timetable is one generated weekly schedule for a department section. New
// generations supersede the previous active version; history is kept.
type Timetable struct {
	ID           string         `db:"id" json:"id"`
	DepartmentID string         `db:"department_id" json:"department_id"`
	Section      string         `db:"section" json:"section"`
	Semester     int            `db:"semester" json:"semester"`
	AcademicYear string         `db:"academic_year" json:"academic_year"`
	Version      int            `db:"version" json:"version"`
	IsActive     bool           `db:"is_active" json:"is_active"`
	Relaxations  types.JSONText `db:"relaxations" json:"relaxations"`
	Stats        types.JSONText `db:"stats" json:"stats"`
	GeneratedAt  time.Time      `db:"generated_at" json:"generated_at"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// TimetableSlot is one concrete placement inside a timetable. Lab slots span
// BlockLength contiguous periods starting at Period.
type TimetableSlot struct {
	ID           string    `db:"id" json:"id"`
	TimetableID  string    `db:"timetable_id" json:"timetable_id"`
	ObligationID string    `db:"obligation_id" json:"obligation_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	RoomID       string    `db:"room_id" json:"room_id"`
	Day          int       `db:"day" json:"day"`
	Period       int       `db:"period" json:"period"`
	IsLab        bool      `db:"is_lab" json:"is_lab"`
	BlockLength  int       `db:"block_length" json:"block_length"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TimetableSlotDetail joins a slot with display names for read endpoints.
type TimetableSlotDetail struct {
	TimetableSlot
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	RoomName    string `db:"room_name" json:"room_name"`
}

// TimetableMeta represents lightweight metadata for version list views.
type TimetableMeta struct {
	ID          string         `db:"id" json:"id"`
	Version     int            `db:"version" json:"version"`
	IsActive    bool           `db:"is_active" json:"is_active"`
	Relaxations types.JSONText `db:"relaxations" json:"relaxations"`
	GeneratedAt time.Time      `db:"generated_at" json:"generated_at"`
}

// TimetableFilter captures filtering options for listing timetables.
type TimetableFilter struct {
	DepartmentID string
	Section      string
	ActiveOnly   bool
	Page         int
	PageSize     int
}

// TeacherBooking is one committed (teacher, day, period) cell claimed by an
// active timetable, used to exclude cross-department teacher clashes.
type TeacherBooking struct {
	TeacherID    string `db:"teacher_id" json:"teacher_id"`
	Day          int    `db:"day" json:"day"`
	Period       int    `db:"period" json:"period"`
	TimetableID  string `db:"timetable_id" json:"timetable_id"`
	DepartmentID string `db:"department_id" json:"department_id"`
}
