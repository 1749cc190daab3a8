package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dept-timetable-api/internal/models"
)

// BookingRepository reads the (teacher, day, period) cells already committed
// by active timetables. Lab blocks expand to one row per occupied period.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ListExternal returns every committed teacher booking outside the given
// department section: other departments and sibling sections both count,
// since a teacher can serve several of each.
func (r *BookingRepository) ListExternal(ctx context.Context, departmentID, section string) ([]models.TeacherBooking, error) {
	const query = `
SELECT s.teacher_id, s.day, gs.period, s.timetable_id, t.department_id
FROM timetable_slots s
JOIN timetables t ON t.id = s.timetable_id
CROSS JOIN LATERAL generate_series(s.period, s.period + s.block_length - 1) AS gs(period)
WHERE t.is_active = TRUE AND NOT (t.department_id = $1 AND t.section = $2)
ORDER BY s.teacher_id, s.day, gs.period`
	var bookings []models.TeacherBooking
	if err := r.db.SelectContext(ctx, &bookings, query, departmentID, section); err != nil {
		return nil, fmt.Errorf("list external teacher bookings: %w", err)
	}
	return bookings, nil
}
