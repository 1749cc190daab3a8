package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/dept-timetable-api/internal/dto"
	"github.com/noah-isme/dept-timetable-api/internal/models"
	appErrors "github.com/noah-isme/dept-timetable-api/pkg/errors"
)

type departmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
	List(ctx context.Context, filter models.DepartmentFilter) ([]models.Department, int, error)
}

type obligationCatalogReader interface {
	ListDetails(ctx context.Context, filter models.ObligationFilter) ([]models.TeachingObligationDetail, int, error)
	ListSections(ctx context.Context, departmentID string) ([]string, error)
}

type roomCatalogReader interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
}

// CatalogService serves the scheduling inputs: departments with their
// sections, teaching obligations and rooms.
type CatalogService struct {
	departments departmentRepository
	obligations obligationCatalogReader
	rooms       roomCatalogReader
	logger      *zap.Logger
}

// NewCatalogService constructs the catalog read service.
func NewCatalogService(departments departmentRepository, obligations obligationCatalogReader, rooms roomCatalogReader, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{departments: departments, obligations: obligations, rooms: rooms, logger: logger}
}

// Departments returns paginated departments.
func (s *CatalogService) Departments(ctx context.Context, filter models.DepartmentFilter) ([]models.Department, *models.Pagination, error) {
	departments, total, err := s.departments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return departments, listPagination(filter.Page, filter.PageSize, total), nil
}

// Department returns one department together with the sections that have
// teaching obligations defined.
func (s *CatalogService) Department(ctx context.Context, id string) (*dto.DepartmentCatalogResponse, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department id is required")
	}
	department, err := s.departments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	sections, err := s.obligations.ListSections(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list department sections")
	}
	if sections == nil {
		sections = []string{}
	}
	return &dto.DepartmentCatalogResponse{Department: *department, Sections: sections}, nil
}

// Obligations returns paginated teaching obligations with display names.
func (s *CatalogService) Obligations(ctx context.Context, filter models.ObligationFilter) ([]models.TeachingObligationDetail, *models.Pagination, error) {
	if filter.DepartmentID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "departmentId is required")
	}
	obligations, total, err := s.obligations.ListDetails(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teaching obligations")
	}
	return obligations, listPagination(filter.Page, filter.PageSize, total), nil
}

// Rooms returns paginated rooms.
func (s *CatalogService) Rooms(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error) {
	if filter.DepartmentID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "departmentId is required")
	}
	rooms, total, err := s.rooms.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, listPagination(filter.Page, filter.PageSize, total), nil
}

func listPagination(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
