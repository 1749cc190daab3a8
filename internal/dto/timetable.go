package dto

import (
	"time"

	"github.com/noah-isme/dept-timetable-api/internal/models"
)

// TimetableDetailResponse bundles a timetable with its placements for reads.
type TimetableDetailResponse struct {
	Timetable models.Timetable             `json:"timetable"`
	Slots     []models.TimetableSlotDetail `json:"slots"`
}

// ViolationView describes one broken rule with its grid coordinates.
type ViolationView struct {
	Rule       string   `json:"rule"`
	Day        int      `json:"day"`
	Period     int      `json:"period"`
	RoomID     string   `json:"roomId,omitempty"`
	TeacherID  string   `json:"teacherId,omitempty"`
	SessionIDs []string `json:"sessionIds"`
	Message    string   `json:"message"`
}

// ValidateTimetableResponse reports the audit result for a stored timetable.
type ValidateTimetableResponse struct {
	TimetableID string          `json:"timetableId"`
	Valid       bool            `json:"valid"`
	Violations  []ViolationView `json:"violations"`
	CheckedAt   time.Time       `json:"checkedAt"`
}

// DepartmentCatalogResponse lists a department with its known sections.
type DepartmentCatalogResponse struct {
	Department models.Department `json:"department"`
	Sections   []string          `json:"sections"`
}
