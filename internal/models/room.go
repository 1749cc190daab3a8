package models

import "time"

// RoomType distinguishes ordinary classrooms from laboratories.
type RoomType string

const (
	RoomTypeClassroom  RoomType = "CLASSROOM"
	RoomTypeLaboratory RoomType = "LABORATORY"
)

// Room represents a schedulable room owned by a department.
type Room struct {
	ID           string    `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	Name         string    `db:"name" json:"name"`
	Capacity     int       `db:"capacity" json:"capacity"`
	Type         RoomType  `db:"type" json:"type"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// RoomFilter captures filtering options for listing rooms.
type RoomFilter struct {
	DepartmentID string
	Type         *RoomType
	Active       *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
