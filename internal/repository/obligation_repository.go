package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dept-timetable-api/internal/models"
)

// ObligationRepository handles persistence for teaching obligations.
type ObligationRepository struct {
	db *sqlx.DB
}

// NewObligationRepository creates a new repository instance.
func NewObligationRepository(db *sqlx.DB) *ObligationRepository {
	return &ObligationRepository{db: db}
}

// ListByDepartmentSection returns the obligation snapshot one generation
// works from, in a stable order.
func (r *ObligationRepository) ListByDepartmentSection(ctx context.Context, departmentID, section string) ([]models.TeachingObligation, error) {
	const query = `SELECT id, department_id, section, subject_id, teacher_id, is_lab, periods_per_week, max_periods_per_day, created_at, updated_at
FROM teaching_obligations WHERE department_id = $1 AND section = $2 ORDER BY subject_id ASC, id ASC`
	var obligations []models.TeachingObligation
	if err := r.db.SelectContext(ctx, &obligations, query, departmentID, section); err != nil {
		return nil, fmt.Errorf("list teaching obligations: %w", err)
	}
	return obligations, nil
}

// ListDetails returns obligations joined with display names, filtered and
// paginated for the catalog read surface.
func (r *ObligationRepository) ListDetails(ctx context.Context, filter models.ObligationFilter) ([]models.TeachingObligationDetail, int, error) {
	base := `FROM teaching_obligations o
JOIN subjects sub ON sub.id = o.subject_id
JOIN teachers te ON te.id = o.teacher_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("o.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Section != "" {
		conditions = append(conditions, fmt.Sprintf("o.section = $%d", len(args)+1))
		args = append(args, filter.Section)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("o.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.IsLab != nil {
		conditions = append(conditions, fmt.Sprintf("o.is_lab = $%d", len(args)+1))
		args = append(args, *filter.IsLab)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"section":    "o.section",
		"subject":    "sub.code",
		"teacher":    "te.full_name",
		"created_at": "o.created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "sub.code"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT o.id, o.department_id, o.section, o.subject_id, o.teacher_id, o.is_lab, o.periods_per_week, o.max_periods_per_day, o.created_at, o.updated_at,
sub.code AS subject_code, sub.name AS subject_name, te.full_name AS teacher_name
%s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)
	var obligations []models.TeachingObligationDetail
	if err := r.db.SelectContext(ctx, &obligations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teaching obligation details: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teaching obligations: %w", err)
	}

	return obligations, total, nil
}

// ListSections returns the distinct sections a department offers.
func (r *ObligationRepository) ListSections(ctx context.Context, departmentID string) ([]string, error) {
	const query = `SELECT DISTINCT section FROM teaching_obligations WHERE department_id = $1 ORDER BY section ASC`
	var sections []string
	if err := r.db.SelectContext(ctx, &sections, query, departmentID); err != nil {
		return nil, fmt.Errorf("list department sections: %w", err)
	}
	return sections, nil
}
