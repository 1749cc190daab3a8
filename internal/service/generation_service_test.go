package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-timetable-api/internal/dto"
	"github.com/noah-isme/dept-timetable-api/internal/engine"
	"github.com/noah-isme/dept-timetable-api/internal/models"
	appErrors "github.com/noah-isme/dept-timetable-api/pkg/errors"
)

type generationFixtureConfig struct {
	department    *models.Department
	departmentErr error
	obligations   []models.TeachingObligation
	rooms         []models.Room
	bookings      []models.TeacherBooking
	active        *models.Timetable
	insertErr     error
	budget        time.Duration
	checkEvery    int
	holdSection   string
}

type generationFixture struct {
	svc         *GenerationService
	store       *timetableStoreStub
	obligations *obligationListerStub
	tx          *txProviderMock
}

func newGenerationServiceFixture(t *testing.T, cfg generationFixtureConfig) *generationFixture {
	t.Helper()
	if cfg.department == nil && cfg.departmentErr == nil {
		cfg.department = &models.Department{ID: "dept-1", Code: "CS", Name: "Computer Science"}
	}
	store := newTimetableStoreStub()
	store.insertErr = cfg.insertErr
	if cfg.active != nil {
		store.seedActive(cfg.active)
	}
	obligations := &obligationListerStub{items: cfg.obligations, holdSection: cfg.holdSection}
	if cfg.holdSection != "" {
		obligations.started = make(chan struct{})
		obligations.release = make(chan struct{})
	}
	tx := newTxProviderMock(t)
	svc := NewGenerationService(GenerationServiceParams{
		Departments: &departmentReaderStub{department: cfg.department, err: cfg.departmentErr},
		Obligations: obligations,
		Rooms:       &roomListerStub{items: cfg.rooms},
		Bookings:    &bookingListerStub{items: cfg.bookings},
		Timetables:  store,
		Tx:          tx,
		Logger:      zap.NewNop(),
		Config: GenerationConfig{
			Budget:     cfg.budget,
			CheckEvery: cfg.checkEvery,
		},
	})
	return &generationFixture{svc: svc, store: store, obligations: obligations, tx: tx}
}

func generateRequest(section string) dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{
		DepartmentID: "dept-1",
		Section:      section,
		Semester:     3,
		AcademicYear: "2025/2026",
	}
}

// sectionObligations returns a small solvable load: four theory periods and
// one three-period lab block, taught by two different teachers.
func sectionObligations(section string) []models.TeachingObligation {
	return []models.TeachingObligation{
		{
			ID:               fmt.Sprintf("ob-%s-1", section),
			DepartmentID:     "dept-1",
			Section:          section,
			SubjectID:        "sub-1",
			TeacherID:        fmt.Sprintf("t-%s-1", section),
			PeriodsPerWeek:   4,
			MaxPeriodsPerDay: 2,
		},
		{
			ID:               fmt.Sprintf("ob-%s-2", section),
			DepartmentID:     "dept-1",
			Section:          section,
			SubjectID:        "sub-2",
			TeacherID:        fmt.Sprintf("t-%s-2", section),
			IsLab:            true,
			PeriodsPerWeek:   3,
			MaxPeriodsPerDay: 3,
		},
	}
}

func departmentRooms() []models.Room {
	return []models.Room{
		{ID: "room-1", Code: "R101", Name: "Room 101", Capacity: 40, Type: models.RoomTypeClassroom, DepartmentID: "dept-1", Active: true},
		{ID: "room-2", Code: "R102", Name: "Room 102", Capacity: 40, Type: models.RoomTypeClassroom, DepartmentID: "dept-1", Active: true},
		{ID: "lab-1", Code: "L1", Name: "Computing Lab", Capacity: 30, Type: models.RoomTypeLaboratory, DepartmentID: "dept-1", Active: true},
	}
}

func TestGenerationServiceGeneratePersistsNewVersion(t *testing.T) {
	fx := newGenerationServiceFixture(t, generationFixtureConfig{
		obligations: sectionObligations("A"),
		rooms:       departmentRooms(),
	})
	fx.tx.mock.ExpectBegin()
	fx.tx.mock.ExpectCommit()

	resp, err := fx.svc.Generate(context.Background(), generateRequest("A"))

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "tt-1", resp.TimetableID)
	assert.Equal(t, 1, resp.Version)
	assert.Equal(t, 5, resp.SlotCount)
	assert.Empty(t, resp.Relaxations)
	require.Len(t, resp.Attempts, 1)
	assert.Equal(t, string(engine.OutcomeSolved), resp.Attempts[0].Outcome)
	assert.Equal(t, 5, resp.Stats.Units)
	assert.Greater(t, resp.Stats.Steps, 0)

	require.Len(t, fx.store.created, 1)
	created := fx.store.created[0]
	assert.True(t, created.IsActive)
	assert.Equal(t, 3, created.Semester)
	assert.Equal(t, "2025/2026", created.AcademicYear)
	assert.JSONEq(t, "[]", string(created.Relaxations))
	assert.NotEmpty(t, created.Stats)
	assert.False(t, created.GeneratedAt.IsZero())

	slots := fx.store.slots[resp.TimetableID]
	require.Len(t, slots, 5)
	labs := 0
	for _, slot := range slots {
		if slot.IsLab {
			labs++
			assert.Equal(t, 3, slot.BlockLength)
			assert.Equal(t, "lab-1", slot.RoomID)
		} else {
			assert.Equal(t, 1, slot.BlockLength)
		}
	}
	assert.Equal(t, 1, labs)
	assert.Equal(t, []string{"tt-1"}, fx.store.deactivated)
	assert.NoError(t, fx.tx.mock.ExpectationsWereMet())
}

func TestGenerationServiceGenerateValidatesRequest(t *testing.T) {
	fx := newGenerationServiceFixture(t, generationFixtureConfig{})

	_, err := fx.svc.Generate(context.Background(), dto.GenerateTimetableRequest{})

	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.NoError(t, fx.tx.mock.ExpectationsWereMet())
}

func TestGenerationServiceGenerateDepartmentNotFound(t *testing.T) {
	fx := newGenerationServiceFixture(t, generationFixtureConfig{departmentErr: sql.ErrNoRows})

	_, err := fx.svc.Generate(context.Background(), generateRequest("A"))

	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestGenerationServiceGenerateNoObligations(t *testing.T) {
	fx := newGenerationServiceFixture(t, generationFixtureConfig{rooms: departmentRooms()})

	_, err := fx.svc.Generate(context.Background(), generateRequest("A"))

	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrNoObligations.Code, appErr.Code)
	assert.Empty(t, fx.store.created)
}

func TestGenerationServiceGenerateNoRooms(t *testing.T) {
	fx := newGenerationServiceFixture(t, generationFixtureConfig{obligations: sectionObligations("A")})

	_, err := fx.svc.Generate(context.Background(), generateRequest("A"))

	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrNoRooms.Code, appErr.Code)
	assert.Empty(t, fx.store.created)
}

func TestGenerationServiceGenerateRequiresRegenerateFlagToSupersede(t *testing.T) {
	active := &models.Timetable{ID: "tt-9", DepartmentID: "dept-1", Section: "A", Version: 3, IsActive: true}
	fx := newGenerationServiceFixture(t, generationFixtureConfig{
		obligations: sectionObligations("A"),
		rooms:       departmentRooms(),
		active:      active,
	})

	_, err := fx.svc.Generate(context.Background(), generateRequest("A"))

	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrAlreadyExists.Code, appErr.Code)
	assert.Empty(t, fx.store.created)

	fx.tx.mock.ExpectBegin()
	fx.tx.mock.ExpectCommit()
	req := generateRequest("A")
	req.Regenerate = true

	resp, err := fx.svc.Generate(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 4, resp.Version)
	assert.Equal(t, []string{resp.TimetableID}, fx.store.deactivated)
	assert.NoError(t, fx.tx.mock.ExpectationsWereMet())
}

func TestGenerationServiceGenerateInfeasibleCarriesDiagnostics(t *testing.T) {
	overload := func(id, teacherID string) models.TeachingObligation {
		return models.TeachingObligation{
			ID:               id,
			DepartmentID:     "dept-1",
			Section:          "A",
			SubjectID:        "sub-" + id,
			TeacherID:        teacherID,
			PeriodsPerWeek:   40,
			MaxPeriodsPerDay: 8,
		}
	}
	fx := newGenerationServiceFixture(t, generationFixtureConfig{
		obligations: []models.TeachingObligation{overload("ob-1", "t-1"), overload("ob-2", "t-2")},
		rooms:       departmentRooms()[:1],
	})

	_, err := fx.svc.Generate(context.Background(), generateRequest("A"))

	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrInfeasible.Code, appErr.Code)
	details, ok := appErr.Details.(dto.InfeasibleDetails)
	require.True(t, ok, "infeasible error should carry capacity diagnostics")
	assert.Equal(t, 80, details.RequiredPeriods)
	assert.Equal(t, 40, details.RoomPeriods)
	assert.Len(t, details.RelaxationsTried, len(engine.DefaultLadder()))
	assert.NotEmpty(t, details.Bottleneck)
	assert.Empty(t, fx.store.created)
	assert.NoError(t, fx.tx.mock.ExpectationsWereMet())
}

func TestGenerationServiceFailedRegenerateKeepsPreviousActive(t *testing.T) {
	previous := &models.Timetable{
		ID:           "tt-prev",
		DepartmentID: "dept-1",
		Section:      "A",
		Version:      2,
		IsActive:     true,
	}
	overload := func(id, teacherID string) models.TeachingObligation {
		return models.TeachingObligation{
			ID:               id,
			DepartmentID:     "dept-1",
			Section:          "A",
			SubjectID:        "sub-" + id,
			TeacherID:        teacherID,
			PeriodsPerWeek:   40,
			MaxPeriodsPerDay: 8,
		}
	}
	fx := newGenerationServiceFixture(t, generationFixtureConfig{
		obligations: []models.TeachingObligation{overload("ob-1", "t-1"), overload("ob-2", "t-2")},
		rooms:       departmentRooms()[:1],
		active:      previous,
	})

	req := generateRequest("A")
	req.Regenerate = true
	_, err := fx.svc.Generate(context.Background(), req)

	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrInfeasible.Code, appErr.Code)
	assert.Empty(t, fx.store.created)
	assert.Empty(t, fx.store.deactivated)
	still, findErr := fx.store.FindActive(context.Background(), "dept-1", "A")
	require.NoError(t, findErr)
	assert.Equal(t, "tt-prev", still.ID)
	assert.True(t, still.IsActive)
	assert.NoError(t, fx.tx.mock.ExpectationsWereMet())
}

func TestGenerationServiceGenerateTimedOut(t *testing.T) {
	fx := newGenerationServiceFixture(t, generationFixtureConfig{
		obligations: sectionObligations("A"),
		rooms:       departmentRooms(),
		budget:      time.Nanosecond,
		checkEvery:  1,
	})

	_, err := fx.svc.Generate(context.Background(), generateRequest("A"))

	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrTimedOut.Code, appErr.Code)
	details, ok := appErr.Details.(dto.GenerationTimeoutDetails)
	require.True(t, ok, "timeout error should carry the attempt log")
	assert.Equal(t, int64(0), details.BudgetMS)
	assert.Empty(t, fx.store.created)
	assert.NoError(t, fx.tx.mock.ExpectationsWereMet())
}

func TestGenerationServiceGenerateRollsBackOnSlotInsertFailure(t *testing.T) {
	fx := newGenerationServiceFixture(t, generationFixtureConfig{
		obligations: sectionObligations("A"),
		rooms:       departmentRooms(),
		insertErr:   errors.New("slot insert failed"),
	})
	fx.tx.mock.ExpectBegin()
	fx.tx.mock.ExpectRollback()

	_, err := fx.svc.Generate(context.Background(), generateRequest("A"))

	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.Equal(t, "failed to persist timetable slots", appErr.Message)
	assert.NoError(t, fx.tx.mock.ExpectationsWereMet())
}

// A held section must reject concurrent requests while other sections keep
// generating independently.
func TestGenerationServiceGenerateSerializesPerSection(t *testing.T) {
	fx := newGenerationServiceFixture(t, generationFixtureConfig{
		obligations: append(sectionObligations("A"), sectionObligations("B")...),
		rooms:       departmentRooms(),
		holdSection: "A",
	})
	fx.tx.mock.ExpectBegin()
	fx.tx.mock.ExpectCommit()
	fx.tx.mock.ExpectBegin()
	fx.tx.mock.ExpectCommit()

	type generateOutcome struct {
		resp *dto.GenerateTimetableResponse
		err  error
	}
	done := make(chan generateOutcome, 1)
	go func() {
		resp, err := fx.svc.Generate(context.Background(), generateRequest("A"))
		done <- generateOutcome{resp: resp, err: err}
	}()

	select {
	case <-fx.obligations.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first generation never reached its snapshot load")
	}

	_, err := fx.svc.Generate(context.Background(), generateRequest("A"))
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrGenerationInProgress.Code, appErr.Code)

	respB, err := fx.svc.Generate(context.Background(), generateRequest("B"))
	require.NoError(t, err, "an unrelated section must not wait on the held one")

	close(fx.obligations.release)
	var first generateOutcome
	select {
	case first = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("held generation never finished")
	}
	require.NoError(t, first.err)
	require.NotNil(t, first.resp)

	assert.NotEqual(t, first.resp.TimetableID, respB.TimetableID)
	assert.Len(t, fx.store.created, 2)
	assert.NoError(t, fx.tx.mock.ExpectationsWereMet())

	// The lock is released with the run: a repeat for the same section now
	// fails only because a version is already active.
	_, err = fx.svc.Generate(context.Background(), generateRequest("A"))
	appErr = appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrAlreadyExists.Code, appErr.Code)
}

type departmentReaderStub struct {
	department *models.Department
	err        error
}

func (s *departmentReaderStub) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.department, nil
}

type obligationListerStub struct {
	items       []models.TeachingObligation
	err         error
	holdSection string
	started     chan struct{}
	release     chan struct{}
	once        sync.Once
}

func (s *obligationListerStub) ListByDepartmentSection(ctx context.Context, departmentID, section string) ([]models.TeachingObligation, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.holdSection != "" && section == s.holdSection {
		s.once.Do(func() { close(s.started) })
		<-s.release
	}
	out := make([]models.TeachingObligation, 0, len(s.items))
	for _, ob := range s.items {
		if ob.DepartmentID == departmentID && ob.Section == section {
			out = append(out, ob)
		}
	}
	return out, nil
}

type roomListerStub struct {
	items []models.Room
	err   error
}

func (s *roomListerStub) ListUsable(ctx context.Context, departmentID string) ([]models.Room, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

type bookingListerStub struct {
	items []models.TeacherBooking
	err   error
}

func (s *bookingListerStub) ListExternal(ctx context.Context, departmentID, section string) ([]models.TeacherBooking, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

type timetableStoreStub struct {
	mu          sync.Mutex
	active      map[string]*models.Timetable
	versions    map[string]int
	created     []*models.Timetable
	slots       map[string][]models.TimetableSlot
	deactivated []string
	insertErr   error
}

func newTimetableStoreStub() *timetableStoreStub {
	return &timetableStoreStub{
		active:   make(map[string]*models.Timetable),
		versions: make(map[string]int),
		slots:    make(map[string][]models.TimetableSlot),
	}
}

func (s *timetableStoreStub) seedActive(timetable *models.Timetable) {
	key := timetable.DepartmentID + ":" + timetable.Section
	s.active[key] = timetable
	s.versions[key] = timetable.Version
}

func (s *timetableStoreStub) FindActive(ctx context.Context, departmentID, section string) (*models.Timetable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timetable, ok := s.active[departmentID+":"+section]; ok {
		return timetable, nil
	}
	return nil, sql.ErrNoRows
}

func (s *timetableStoreStub) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := timetable.DepartmentID + ":" + timetable.Section
	s.versions[key]++
	timetable.ID = fmt.Sprintf("tt-%d", len(s.created)+1)
	timetable.Version = s.versions[key]
	copied := *timetable
	s.created = append(s.created, &copied)
	s.active[key] = &copied
	return nil
}

func (s *timetableStoreStub) InsertSlots(ctx context.Context, exec sqlx.ExtContext, timetableID string, slots []models.TimetableSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.slots[timetableID] = slots
	return nil
}

func (s *timetableStoreStub) DeactivatePrevious(ctx context.Context, exec sqlx.ExtContext, departmentID, section, keepID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deactivated = append(s.deactivated, keepID)
	return nil
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) *txProviderMock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock"), mock: mock}
}

func (m *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, opts)
}
