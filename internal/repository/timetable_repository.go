package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/dept-timetable-api/internal/models"
)

// TimetableRepository persists versioned weekly timetables and their slots.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a timetable assigning the next version for the
// department-section pair.
func (r *TimetableRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	if timetable == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if timetable.DepartmentID == "" || timetable.Section == "" {
		return fmt.Errorf("department_id and section are required")
	}
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	if len(timetable.Relaxations) == 0 {
		timetable.Relaxations = types.JSONText(`[]`)
	}
	if len(timetable.Stats) == 0 {
		timetable.Stats = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if timetable.GeneratedAt.IsZero() {
		timetable.GeneratedAt = now
	}
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM timetables WHERE department_id = $1 AND section = $2`
	if err := sqlx.GetContext(ctx, target, &timetable.Version, nextVersionQuery, timetable.DepartmentID, timetable.Section); err != nil {
		return fmt.Errorf("compute next timetable version: %w", err)
	}

	const insertQuery = `
INSERT INTO timetables (id, department_id, section, semester, academic_year, version, is_active, relaxations, stats, generated_at, created_at)
VALUES (:id, :department_id, :section, :semester, :academic_year, :version, :is_active, :relaxations, :stats, :generated_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, timetable); err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}
	return nil
}

// InsertSlots bulk-inserts the concrete placements of a timetable.
func (r *TimetableRepository) InsertSlots(ctx context.Context, exec sqlx.ExtContext, timetableID string, slots []models.TimetableSlot) error {
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO timetable_slots (id, timetable_id, obligation_id, subject_id, teacher_id, room_id, day, period, is_lab, block_length, created_at)
VALUES (:id, :timetable_id, :obligation_id, :subject_id, :teacher_id, :room_id, :day, :period, :is_lab, :block_length, :created_at)`
	for i := range slots {
		payload := slots[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		payload.TimetableID = timetableID
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, payload); err != nil {
			return fmt.Errorf("insert timetable slot: %w", err)
		}
	}
	return nil
}

// DeactivatePrevious clears the active flag on every other version of the
// pair. Zero rows affected is fine: the first generation has no previous.
func (r *TimetableRepository) DeactivatePrevious(ctx context.Context, exec sqlx.ExtContext, departmentID, section, keepID string) error {
	target := r.exec(exec)
	const query = `UPDATE timetables SET is_active = FALSE WHERE department_id = $1 AND section = $2 AND is_active = TRUE AND id <> $3`
	if _, err := target.ExecContext(ctx, query, departmentID, section, keepID); err != nil {
		return fmt.Errorf("deactivate previous timetables: %w", err)
	}
	return nil
}

// FindActive loads the active timetable of a department section.
func (r *TimetableRepository) FindActive(ctx context.Context, departmentID, section string) (*models.Timetable, error) {
	const query = `SELECT id, department_id, section, semester, academic_year, version, is_active, relaxations, stats, generated_at, created_at
FROM timetables WHERE department_id = $1 AND section = $2 AND is_active = TRUE`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, departmentID, section); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// FindByID loads a timetable by its identifier.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	const query = `SELECT id, department_id, section, semester, academic_year, version, is_active, relaxations, stats, generated_at, created_at
FROM timetables WHERE id = $1`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// ListVersions returns version metadata for a department section, newest first.
func (r *TimetableRepository) ListVersions(ctx context.Context, departmentID, section string) ([]models.TimetableMeta, error) {
	const query = `SELECT id, version, is_active, relaxations, generated_at
FROM timetables WHERE department_id = $1 AND section = $2 ORDER BY version DESC`
	var versions []models.TimetableMeta
	if err := r.db.SelectContext(ctx, &versions, query, departmentID, section); err != nil {
		return nil, fmt.Errorf("list timetable versions: %w", err)
	}
	return versions, nil
}

// ListActive returns every active timetable across departments.
func (r *TimetableRepository) ListActive(ctx context.Context) ([]models.Timetable, error) {
	const query = `SELECT id, department_id, section, semester, academic_year, version, is_active, relaxations, stats, generated_at, created_at
FROM timetables WHERE is_active = TRUE ORDER BY department_id, section`
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query); err != nil {
		return nil, fmt.Errorf("list active timetables: %w", err)
	}
	return timetables, nil
}

// ListSlots returns the raw placements of a timetable in grid order.
func (r *TimetableRepository) ListSlots(ctx context.Context, timetableID string) ([]models.TimetableSlot, error) {
	const query = `SELECT id, timetable_id, obligation_id, subject_id, teacher_id, room_id, day, period, is_lab, block_length, created_at
FROM timetable_slots WHERE timetable_id = $1 ORDER BY day ASC, period ASC, room_id ASC`
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable slots: %w", err)
	}
	return slots, nil
}

// ListSlotDetails returns placements joined with display names.
func (r *TimetableRepository) ListSlotDetails(ctx context.Context, timetableID string) ([]models.TimetableSlotDetail, error) {
	const query = `
SELECT s.id, s.timetable_id, s.obligation_id, s.subject_id, s.teacher_id, s.room_id, s.day, s.period, s.is_lab, s.block_length, s.created_at,
       sub.code AS subject_code, sub.name AS subject_name, te.full_name AS teacher_name, ro.name AS room_name
FROM timetable_slots s
JOIN subjects sub ON sub.id = s.subject_id
JOIN teachers te ON te.id = s.teacher_id
JOIN rooms ro ON ro.id = s.room_id
WHERE s.timetable_id = $1
ORDER BY s.day ASC, s.period ASC, ro.name ASC`
	var slots []models.TimetableSlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable slot details: %w", err)
	}
	return slots, nil
}
