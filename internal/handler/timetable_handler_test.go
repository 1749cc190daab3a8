package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dept-timetable-api/internal/dto"
	"github.com/noah-isme/dept-timetable-api/internal/models"
	appErrors "github.com/noah-isme/dept-timetable-api/pkg/errors"
)

type fakeTimetableGenerator struct {
	resp    *dto.GenerateTimetableResponse
	err     error
	lastReq dto.GenerateTimetableRequest
}

func (f *fakeTimetableGenerator) Generate(_ context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

type fakeTimetableValidator struct {
	resp   *dto.ValidateTimetableResponse
	err    error
	lastID string
}

func (f *fakeTimetableValidator) Validate(_ context.Context, id string) (*dto.ValidateTimetableResponse, error) {
	f.lastID = id
	return f.resp, f.err
}

type fakeTimetableReader struct {
	detail      *dto.TimetableDetailResponse
	versions    []models.TimetableMeta
	hit         bool
	err         error
	lastDept    string
	lastSection string
	lastID      string
}

func (f *fakeTimetableReader) Active(_ context.Context, departmentID, section string) (*dto.TimetableDetailResponse, bool, error) {
	f.lastDept, f.lastSection = departmentID, section
	return f.detail, f.hit, f.err
}

func (f *fakeTimetableReader) Get(_ context.Context, id string) (*dto.TimetableDetailResponse, error) {
	f.lastID = id
	return f.detail, f.err
}

func (f *fakeTimetableReader) Versions(_ context.Context, departmentID, section string) ([]models.TimetableMeta, bool, error) {
	f.lastDept, f.lastSection = departmentID, section
	return f.versions, f.hit, f.err
}

type timetableEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func TestTimetableHandlerGenerateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	generator := &fakeTimetableGenerator{
		resp: &dto.GenerateTimetableResponse{TimetableID: "tt-1", Version: 1, SlotCount: 5, Relaxations: []string{}},
	}
	handler := NewTimetableHandler(generator, nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body := `{"departmentId":"dept-1","section":"A","semester":3,"academicYear":"2025/2026"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/timetables/generate", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Generate(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "dept-1", generator.lastReq.DepartmentID)
	assert.Equal(t, "A", generator.lastReq.Section)
	assert.Equal(t, 3, generator.lastReq.Semester)
	var envelope timetableEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "tt-1", envelope.Data["timetableId"])
}

func TestTimetableHandlerGenerateRejectsBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&fakeTimetableGenerator{}, nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/timetables/generate", strings.NewReader(`{"departmentId":`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Generate(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimetableHandlerGenerateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	generator := &fakeTimetableGenerator{err: appErrors.ErrGenerationInProgress}
	handler := NewTimetableHandler(generator, nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body := `{"departmentId":"dept-1","section":"A"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/timetables/generate", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Generate(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var envelope timetableEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrGenerationInProgress.Code, envelope.Error.Code)
}

func TestTimetableHandlerActiveRequiresParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(nil, nil, &fakeTimetableReader{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/timetables/active?departmentId=dept-1", nil)

	handler.Active(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimetableHandlerActiveSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reader := &fakeTimetableReader{
		detail: &dto.TimetableDetailResponse{
			Timetable: models.Timetable{ID: "tt-1", DepartmentID: "dept-1", Section: "A", Version: 2},
			Slots:     []models.TimetableSlotDetail{},
		},
		hit: true,
	}
	handler := NewTimetableHandler(nil, nil, reader)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/timetables/active?departmentId=dept-1&section=A", nil)

	handler.Active(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dept-1", reader.lastDept)
	assert.Equal(t, "A", reader.lastSection)
	var envelope timetableEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	timetable, ok := envelope.Data["timetable"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "tt-1", timetable["id"])
}

func TestTimetableHandlerActiveNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reader := &fakeTimetableReader{err: appErrors.Clone(appErrors.ErrNotFound, "no active timetable for this department section")}
	handler := NewTimetableHandler(nil, nil, reader)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/timetables/active?departmentId=dept-1&section=A", nil)

	handler.Active(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTimetableHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reader := &fakeTimetableReader{
		detail: &dto.TimetableDetailResponse{
			Timetable: models.Timetable{ID: "tt-7", Version: 7},
			Slots:     []models.TimetableSlotDetail{},
		},
	}
	handler := NewTimetableHandler(nil, nil, reader)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/timetables/tt-7", nil)
	c.Params = gin.Params{{Key: "id", Value: "tt-7"}}

	handler.Get(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tt-7", reader.lastID)
}

func TestTimetableHandlerVersions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reader := &fakeTimetableReader{
		versions: []models.TimetableMeta{{ID: "tt-2", Version: 2, IsActive: true}, {ID: "tt-1", Version: 1}},
	}
	handler := NewTimetableHandler(nil, nil, reader)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/timetables/versions?departmentId=dept-1&section=A", nil)

	handler.Versions(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []map[string]interface{} `json:"data"`
		Meta map[string]interface{}   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	assert.Equal(t, float64(2), envelope.Data[0]["version"])
	assert.Equal(t, false, envelope.Meta["cache_hit"])
}

func TestTimetableHandlerValidate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := &fakeTimetableValidator{
		resp: &dto.ValidateTimetableResponse{
			TimetableID: "tt-1",
			Valid:       false,
			Violations: []dto.ViolationView{
				{Rule: "room-conflict", Day: 1, Period: 2, RoomID: "room-1", SessionIDs: []string{"slot-1", "slot-2"}, Message: "room room-1 hosts 2 sessions on day 1 period 2"},
			},
		},
	}
	handler := NewTimetableHandler(nil, validator, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/timetables/tt-1/validate", nil)
	c.Params = gin.Params{{Key: "id", Value: "tt-1"}}

	handler.Validate(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tt-1", validator.lastID)
	var envelope timetableEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope.Data["valid"])
	violations, ok := envelope.Data["violations"].([]interface{})
	require.True(t, ok)
	assert.Len(t, violations, 1)
}

func TestTimetableHandlerValidateNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := &fakeTimetableValidator{err: appErrors.Clone(appErrors.ErrNotFound, "timetable not found")}
	handler := NewTimetableHandler(nil, validator, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/timetables/tt-404/validate", nil)
	c.Params = gin.Params{{Key: "id", Value: "tt-404"}}

	handler.Validate(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
