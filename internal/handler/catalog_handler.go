package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dept-timetable-api/internal/dto"
	"github.com/noah-isme/dept-timetable-api/internal/models"
	appErrors "github.com/noah-isme/dept-timetable-api/pkg/errors"
	"github.com/noah-isme/dept-timetable-api/pkg/response"
)

type catalogReader interface {
	Departments(ctx context.Context, filter models.DepartmentFilter) ([]models.Department, *models.Pagination, error)
	Department(ctx context.Context, id string) (*dto.DepartmentCatalogResponse, error)
	Obligations(ctx context.Context, filter models.ObligationFilter) ([]models.TeachingObligationDetail, *models.Pagination, error)
	Rooms(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error)
}

// CatalogHandler exposes the scheduling inputs: departments, their sections,
// teaching obligations and rooms.
type CatalogHandler struct {
	catalog catalogReader
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(catalog catalogReader) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Departments godoc
// @Summary List departments
// @Tags Catalog
// @Produce json
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *CatalogHandler) Departments(c *gin.Context) {
	if h.catalog == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var filter models.DepartmentFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	departments, pagination, err := h.catalog.Departments(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, departments, pagination)
}

// Department godoc
// @Summary Get one department with its known sections
// @Tags Catalog
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /departments/{id} [get]
func (h *CatalogHandler) Department(c *gin.Context) {
	if h.catalog == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	department, err := h.catalog.Department(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, department, nil)
}

// Obligations godoc
// @Summary List teaching obligations of a department
// @Tags Catalog
// @Produce json
// @Param id path string true "Department ID"
// @Param section query string false "Filter by section"
// @Param teacherId query string false "Filter by teacher"
// @Param isLab query bool false "Filter lab obligations"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /departments/{id}/obligations [get]
func (h *CatalogHandler) Obligations(c *gin.Context) {
	if h.catalog == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	filter := models.ObligationFilter{
		DepartmentID: c.Param("id"),
		Section:      strings.TrimSpace(c.Query("section")),
		TeacherID:    strings.TrimSpace(c.Query("teacherId")),
	}
	if raw := c.Query("isLab"); raw != "" {
		isLab, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "isLab must be true or false"))
			return
		}
		filter.IsLab = &isLab
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	obligations, pagination, err := h.catalog.Obligations(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, obligations, pagination)
}

// Rooms godoc
// @Summary List rooms of a department
// @Tags Catalog
// @Produce json
// @Param id path string true "Department ID"
// @Param type query string false "Filter by room type (CLASSROOM or LABORATORY)"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /departments/{id}/rooms [get]
func (h *CatalogHandler) Rooms(c *gin.Context) {
	if h.catalog == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	filter := models.RoomFilter{DepartmentID: c.Param("id")}
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		roomType := models.RoomType(strings.ToUpper(raw))
		if roomType != models.RoomTypeClassroom && roomType != models.RoomTypeLaboratory {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "type must be CLASSROOM or LABORATORY"))
			return
		}
		filter.Type = &roomType
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active must be true or false"))
			return
		}
		filter.Active = &active
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	rooms, pagination, err := h.catalog.Rooms(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, pagination)
}
