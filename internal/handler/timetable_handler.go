package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dept-timetable-api/internal/dto"
	"github.com/noah-isme/dept-timetable-api/internal/middleware"
	"github.com/noah-isme/dept-timetable-api/internal/models"
	appErrors "github.com/noah-isme/dept-timetable-api/pkg/errors"
	"github.com/noah-isme/dept-timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
}

type timetableValidator interface {
	Validate(ctx context.Context, timetableID string) (*dto.ValidateTimetableResponse, error)
}

type timetableReader interface {
	Active(ctx context.Context, departmentID, section string) (*dto.TimetableDetailResponse, bool, error)
	Get(ctx context.Context, timetableID string) (*dto.TimetableDetailResponse, error)
	Versions(ctx context.Context, departmentID, section string) ([]models.TimetableMeta, bool, error)
}

// TimetableHandler wires the generation, read and validation services to
// HTTP endpoints.
type TimetableHandler struct {
	generator timetableGenerator
	validator timetableValidator
	reader    timetableReader
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(generator timetableGenerator, validator timetableValidator, reader timetableReader) *TimetableHandler {
	return &TimetableHandler{generator: generator, validator: validator, reader: reader}
}

// Generate godoc
// @Summary Generate a new timetable version for a department section
// @Description Runs the constraint search and persists the result as the next active version. Fails with 409 when one is already active and regenerate is not set, or when a generation for the section is already running.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generate timetable payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	if h.generator == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Active godoc
// @Summary Active timetable of a department section
// @Tags Timetables
// @Produce json
// @Param departmentId query string true "Department ID"
// @Param section query string true "Section"
// @Success 200 {object} response.Envelope
// @Router /timetables/active [get]
func (h *TimetableHandler) Active(c *gin.Context) {
	if h.reader == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	departmentID := strings.TrimSpace(c.Query("departmentId"))
	section := strings.TrimSpace(c.Query("section"))
	if departmentID == "" || section == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "departmentId and section are required"))
		return
	}
	start := time.Now()
	detail, cacheHit, err := h.reader.Active(c.Request.Context(), departmentID, section)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, detail, nil, meta)
}

// Get godoc
// @Summary Get one timetable version with its slots
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	if h.reader == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	detail, err := h.reader.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Versions godoc
// @Summary Generation history of a department section, newest first
// @Tags Timetables
// @Produce json
// @Param departmentId query string true "Department ID"
// @Param section query string true "Section"
// @Success 200 {object} response.Envelope
// @Router /timetables/versions [get]
func (h *TimetableHandler) Versions(c *gin.Context) {
	if h.reader == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	departmentID := strings.TrimSpace(c.Query("departmentId"))
	section := strings.TrimSpace(c.Query("section"))
	if departmentID == "" || section == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "departmentId and section are required"))
		return
	}
	start := time.Now()
	versions, cacheHit, err := h.reader.Versions(c.Request.Context(), departmentID, section)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, versions, nil, meta)
}

// Validate godoc
// @Summary Re-check a stored timetable against the full rule set
// @Description Audits the stored slots under the relaxations recorded at generation time and reports every violation with its grid coordinates.
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/validate [post]
func (h *TimetableHandler) Validate(c *gin.Context) {
	if h.validator == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	result, err := h.validator.Validate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
