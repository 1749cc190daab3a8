package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/dept-timetable-api/internal/dto"
	"github.com/noah-isme/dept-timetable-api/internal/engine"
	"github.com/noah-isme/dept-timetable-api/internal/models"
	appErrors "github.com/noah-isme/dept-timetable-api/pkg/errors"
)

type generationDepartmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

type obligationLister interface {
	ListByDepartmentSection(ctx context.Context, departmentID, section string) ([]models.TeachingObligation, error)
}

type usableRoomLister interface {
	ListUsable(ctx context.Context, departmentID string) ([]models.Room, error)
}

type externalBookingLister interface {
	ListExternal(ctx context.Context, departmentID, section string) ([]models.TeacherBooking, error)
}

type timetableWriter interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error
	InsertSlots(ctx context.Context, exec sqlx.ExtContext, timetableID string, slots []models.TimetableSlot) error
	DeactivatePrevious(ctx context.Context, exec sqlx.ExtContext, departmentID, section, keepID string) error
	FindActive(ctx context.Context, departmentID, section string) (*models.Timetable, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// GenerationConfig tunes the constraint search behind timetable generation.
type GenerationConfig struct {
	Grid       engine.GridConfig
	Rules      engine.RuleConfig
	Budget     time.Duration
	CheckEvery int
}

// GenerationService orchestrates timetable generation: it snapshots the
// department's obligations, rooms and cross-department teacher bookings,
// runs the relaxation-laddered search, re-checks the winning assignment and
// persists it as the next active version.
type GenerationService struct {
	departments generationDepartmentReader
	obligations obligationLister
	rooms       usableRoomLister
	bookings    externalBookingLister
	timetables  timetableWriter
	tx          txProvider
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	locks       *generationLock
	now         func() time.Time
	cfg         GenerationConfig
}

// GenerationServiceParams groups constructor dependencies.
type GenerationServiceParams struct {
	Departments generationDepartmentReader
	Obligations obligationLister
	Rooms       usableRoomLister
	Bookings    externalBookingLister
	Timetables  timetableWriter
	Tx          txProvider
	Cache       *CacheService
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Config      GenerationConfig
}

// NewGenerationService wires generation dependencies with sane defaults.
func NewGenerationService(params GenerationServiceParams) *GenerationService {
	cfg := params.Config
	if cfg.Grid.Days == 0 {
		cfg.Grid = engine.DefaultGrid()
	}
	if cfg.Rules.LabBlockLength == 0 {
		cfg.Rules = engine.DefaultRules()
	}
	if cfg.Budget <= 0 {
		cfg.Budget = 60 * time.Second
	}
	if cfg.CheckEvery <= 0 {
		cfg.CheckEvery = engine.DefaultDeadlineCheckEvery
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationService{
		departments: params.Departments,
		obligations: params.Obligations,
		rooms:       params.Rooms,
		bookings:    params.Bookings,
		timetables:  params.Timetables,
		tx:          params.Tx,
		cache:       params.Cache,
		metrics:     params.Metrics,
		validator:   validate,
		logger:      logger,
		locks:       newGenerationLock(),
		now:         time.Now,
		cfg:         cfg,
	}
}

// Generate builds and persists a new timetable version for a department
// section. At most one generation per section runs at a time; a second
// request for a held section fails fast with a conflict.
func (s *GenerationService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}

	key := generationKey(req.DepartmentID, req.Section)
	if !s.locks.TryAcquire(key) {
		return nil, appErrors.ErrGenerationInProgress
	}
	defer s.locks.Release(key)

	if _, err := s.departments.FindByID(ctx, req.DepartmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}

	if !req.Regenerate {
		active, err := s.timetables.FindActive(ctx, req.DepartmentID, req.Section)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for an active timetable")
		}
		if active != nil {
			return nil, appErrors.Clone(appErrors.ErrAlreadyExists, fmt.Sprintf("version %d is already active for this section; pass regenerate to supersede it", active.Version))
		}
	}

	snapshot, err := s.loadSnapshot(ctx, req.DepartmentID, req.Section)
	if err != nil {
		return nil, err
	}
	if len(snapshot.obligations) == 0 {
		return nil, appErrors.ErrNoObligations
	}
	if len(snapshot.rooms) == 0 {
		return nil, appErrors.ErrNoRooms
	}

	model, err := engine.NewModel(s.cfg.Grid, s.cfg.Rules, snapshot.engineObligations(), snapshot.engineRooms(), snapshot.engineBusy())
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	run := engine.RunLadder(ctx, model, engine.DefaultLadder(), s.cfg.Budget, s.cfg.CheckEvery)
	total := run.TotalStats()
	if s.metrics != nil {
		s.metrics.RecordGeneration(string(run.Result.Outcome), total.Elapsed, total.Steps, total.Backtracks)
	}

	switch run.Result.Outcome {
	case engine.OutcomeSolved:
	case engine.OutcomeInfeasible:
		s.logger.Warn("timetable generation infeasible",
			zap.String("department_id", req.DepartmentID),
			zap.String("section", req.Section),
			zap.Strings("relaxations_tried", appliedNames(run.Applied)),
			zap.Int("steps", total.Steps))
		return nil, appErrors.WithDetails(appErrors.ErrInfeasible, infeasibleDetails(run))
	default:
		s.logger.Warn("timetable generation timed out",
			zap.String("department_id", req.DepartmentID),
			zap.String("section", req.Section),
			zap.Duration("budget", s.cfg.Budget),
			zap.Int("steps", total.Steps))
		return nil, appErrors.WithDetails(appErrors.ErrTimedOut, dto.GenerationTimeoutDetails{
			BudgetMS: s.cfg.Budget.Milliseconds(),
			Attempts: attemptViews(run.Attempts),
			Stats:    statsView(total),
		})
	}

	// The winning assignment is re-checked with the validator before anything
	// is written: the search and the checks share one predicate library, so a
	// finding here means they have drifted apart.
	violations := engine.CheckSessions(s.cfg.Grid, s.cfg.Rules, run.Relax, snapshot.engineRooms(), run.Result.Sessions, model.External)
	violations = append(violations, engine.CheckCompleteness(snapshot.engineObligations(), run.Result.Sessions)...)
	if len(violations) > 0 {
		s.logger.Error("generated timetable failed its own audit, refusing to persist",
			zap.String("department_id", req.DepartmentID),
			zap.String("section", req.Section),
			zap.Int("violations", len(violations)))
		return nil, appErrors.WithDetails(appErrors.ErrInconsistent, violationViews(violations))
	}

	timetable, err := s.persist(ctx, req, run)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		pattern := fmt.Sprintf("timetable:*:%s:%s", req.DepartmentID, req.Section)
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			s.logger.Warn("timetable cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}

	s.logger.Info("timetable generated",
		zap.String("timetable_id", timetable.ID),
		zap.String("department_id", req.DepartmentID),
		zap.String("section", req.Section),
		zap.Int("version", timetable.Version),
		zap.Int("slots", len(run.Result.Sessions)),
		zap.Strings("relaxations", appliedNames(run.Applied)),
		zap.Duration("elapsed", total.Elapsed))

	return &dto.GenerateTimetableResponse{
		TimetableID: timetable.ID,
		Version:     timetable.Version,
		SlotCount:   len(run.Result.Sessions),
		Relaxations: appliedNames(run.Applied),
		Attempts:    attemptViews(run.Attempts),
		Stats:       statsView(total),
	}, nil
}

type generationSnapshot struct {
	obligations []models.TeachingObligation
	rooms       []models.Room
	bookings    []models.TeacherBooking
}

// loadSnapshot fetches the three generation inputs in parallel. The search
// runs against this frozen copy, not live tables.
func (s *GenerationService) loadSnapshot(ctx context.Context, departmentID, section string) (*generationSnapshot, error) {
	snapshot := &generationSnapshot{}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.obligations.ListByDepartmentSection(gCtx, departmentID, section)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teaching obligations")
		}
		snapshot.obligations = items
		return nil
	})
	g.Go(func() error {
		items, err := s.rooms.ListUsable(gCtx, departmentID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
		}
		snapshot.rooms = items
		return nil
	})
	g.Go(func() error {
		items, err := s.bookings.ListExternal(gCtx, departmentID, section)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load external teacher bookings")
		}
		snapshot.bookings = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *GenerationService) persist(ctx context.Context, req dto.GenerateTimetableRequest, run engine.RunResult) (timetable *models.Timetable, err error) {
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	relaxJSON, marshalErr := json.Marshal(appliedNames(run.Applied))
	if marshalErr != nil {
		return nil, appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode relaxations")
	}
	statsJSON, marshalErr := json.Marshal(statsView(run.TotalStats()))
	if marshalErr != nil {
		return nil, appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode generation stats")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	timetable = &models.Timetable{
		DepartmentID: req.DepartmentID,
		Section:      req.Section,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		IsActive:     true,
		Relaxations:  types.JSONText(relaxJSON),
		Stats:        types.JSONText(statsJSON),
		GeneratedAt:  s.now().UTC(),
	}
	if err = s.timetables.CreateVersioned(ctx, tx, timetable); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable version")
		return nil, err
	}
	if err = s.timetables.InsertSlots(ctx, tx, timetable.ID, slotsFromSessions(run.Result.Sessions)); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable slots")
		return nil, err
	}
	if err = s.timetables.DeactivatePrevious(ctx, tx, req.DepartmentID, req.Section, timetable.ID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to supersede previous timetable")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
		return nil, err
	}
	return timetable, nil
}

func (s *generationSnapshot) engineObligations() []engine.Obligation {
	return engineObligationsFromModels(s.obligations)
}

func (s *generationSnapshot) engineRooms() []engine.Room {
	return engineRoomsFromModels(s.rooms)
}

func (s *generationSnapshot) engineBusy() []engine.BusyKey {
	out := make([]engine.BusyKey, 0, len(s.bookings))
	for _, booking := range s.bookings {
		out = append(out, engine.BusyKey{
			TeacherID: booking.TeacherID,
			Day:       booking.Day,
			Period:    booking.Period,
		})
	}
	return out
}

func engineObligationsFromModels(items []models.TeachingObligation) []engine.Obligation {
	out := make([]engine.Obligation, 0, len(items))
	for _, ob := range items {
		out = append(out, engine.Obligation{
			ID:               ob.ID,
			SubjectID:        ob.SubjectID,
			TeacherID:        ob.TeacherID,
			IsLab:            ob.IsLab,
			PeriodsPerWeek:   ob.PeriodsPerWeek,
			MaxPeriodsPerDay: ob.MaxPeriodsPerDay,
		})
	}
	return out
}

func engineRoomsFromModels(items []models.Room) []engine.Room {
	out := make([]engine.Room, 0, len(items))
	for _, room := range items {
		out = append(out, engine.Room{
			ID:       room.ID,
			Name:     room.Name,
			Capacity: room.Capacity,
			Type:     engine.RoomType(room.Type),
		})
	}
	return out
}

func slotsFromSessions(sessions []engine.PlacedSession) []models.TimetableSlot {
	slots := make([]models.TimetableSlot, 0, len(sessions))
	for _, session := range sessions {
		slots = append(slots, models.TimetableSlot{
			ObligationID: session.ObligationID,
			SubjectID:    session.SubjectID,
			TeacherID:    session.TeacherID,
			RoomID:       session.RoomID,
			Day:          session.Day,
			Period:       session.Period,
			IsLab:        session.IsLab,
			BlockLength:  session.Length,
		})
	}
	return slots
}

func appliedNames(applied []string) []string {
	if applied == nil {
		return []string{}
	}
	return applied
}

func attemptViews(attempts []engine.Attempt) []dto.AttemptView {
	out := make([]dto.AttemptView, 0, len(attempts))
	for _, attempt := range attempts {
		out = append(out, dto.AttemptView{
			Applied:    appliedNames(attempt.Applied),
			Outcome:    string(attempt.Outcome),
			Steps:      attempt.Stats.Steps,
			Backtracks: attempt.Stats.Backtracks,
			ElapsedMS:  attempt.Stats.Elapsed.Milliseconds(),
		})
	}
	return out
}

func statsView(stats engine.Stats) dto.GenerationStatsView {
	return dto.GenerationStatsView{
		Units:      stats.Units,
		Steps:      stats.Steps,
		Backtracks: stats.Backtracks,
		MaxDepth:   stats.MaxDepth,
		ElapsedMS:  stats.Elapsed.Milliseconds(),
	}
}

func violationViews(violations []engine.Violation) []dto.ViolationView {
	out := make([]dto.ViolationView, 0, len(violations))
	for _, v := range violations {
		ids := v.SessionIDs
		if ids == nil {
			ids = []string{}
		}
		out = append(out, dto.ViolationView{
			Rule:       string(v.Rule),
			Day:        v.Day,
			Period:     v.Period,
			RoomID:     v.RoomID,
			TeacherID:  v.TeacherID,
			SessionIDs: ids,
			Message:    v.Message,
		})
	}
	return out
}

func infeasibleDetails(run engine.RunResult) dto.InfeasibleDetails {
	details := dto.InfeasibleDetails{RelaxationsTried: appliedNames(run.Applied)}
	if diag := run.Result.Diagnostics; diag != nil {
		details.RequiredPeriods = diag.RequiredPeriods
		details.RoomPeriods = diag.RoomPeriods
		details.LabPeriodsRequired = diag.LabPeriodsRequired
		details.LabRoomPeriods = diag.LabRoomPeriods
		details.TheoryPeriodsRequired = diag.TheoryPeriodsRequired
		details.TheoryRoomPeriods = diag.TheoryRoomPeriods
		details.BlockedObligationIDs = diag.BlockedObligationIDs
		details.Bottleneck = diag.Bottleneck
	}
	return details
}
