package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/dept-timetable-api/internal/dto"
	"github.com/noah-isme/dept-timetable-api/internal/engine"
	"github.com/noah-isme/dept-timetable-api/internal/models"
	appErrors "github.com/noah-isme/dept-timetable-api/pkg/errors"
)

type timetableSlotReader interface {
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	ListSlots(ctx context.Context, timetableID string) ([]models.TimetableSlot, error)
}

// ValidationConfig carries the grid and rule parameters stored timetables are
// audited against.
type ValidationConfig struct {
	Grid  engine.GridConfig
	Rules engine.RuleConfig
}

// ValidationService audits stored timetables against the full rule set,
// independent of how they were generated. A timetable is checked under the
// relaxations recorded at its generation; a hand-edited or drifted one
// surfaces each broken rule with its grid coordinates.
type ValidationService struct {
	timetables  timetableSlotReader
	obligations obligationLister
	rooms       usableRoomLister
	bookings    externalBookingLister
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
	cfg         ValidationConfig
}

// NewValidationService wires validator dependencies.
func NewValidationService(
	timetables timetableSlotReader,
	obligations obligationLister,
	rooms usableRoomLister,
	bookings externalBookingLister,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg ValidationConfig,
) *ValidationService {
	if cfg.Grid.Days == 0 {
		cfg.Grid = engine.DefaultGrid()
	}
	if cfg.Rules.LabBlockLength == 0 {
		cfg.Rules = engine.DefaultRules()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValidationService{
		timetables:  timetables,
		obligations: obligations,
		rooms:       rooms,
		bookings:    bookings,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// Validate re-checks every rule for a stored timetable and reports the
// violations found. A valid result carries an empty violation list.
func (s *ValidationService) Validate(ctx context.Context, timetableID string) (*dto.ValidateTimetableResponse, error) {
	if timetableID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}
	timetable, err := s.timetables.FindByID(ctx, timetableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	var (
		slots       []models.TimetableSlot
		rooms       []models.Room
		bookings    []models.TeacherBooking
		obligations []models.TeachingObligation
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.timetables.ListSlots(gCtx, timetable.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable slots")
		}
		slots = items
		return nil
	})
	g.Go(func() error {
		items, err := s.rooms.ListUsable(gCtx, timetable.DepartmentID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
		}
		rooms = items
		return nil
	})
	g.Go(func() error {
		items, err := s.bookings.ListExternal(gCtx, timetable.DepartmentID, timetable.Section)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load external teacher bookings")
		}
		bookings = items
		return nil
	})
	g.Go(func() error {
		items, err := s.obligations.ListByDepartmentSection(gCtx, timetable.DepartmentID, timetable.Section)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teaching obligations")
		}
		obligations = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	relax := engine.RelaxationsFromNames(s.recordedRelaxations(timetable))
	sessions := sessionsFromSlots(slots)

	violations := engine.CheckSessions(s.cfg.Grid, s.cfg.Rules, relax, engineRoomsFromModels(rooms), sessions, externalBusyMap(bookings))
	violations = append(violations, engine.CheckCompleteness(engineObligationsFromModels(obligations), sessions)...)
	if s.metrics != nil {
		s.metrics.RecordValidation(len(violations))
	}
	if len(violations) > 0 {
		s.logger.Warn("timetable failed validation",
			zap.String("timetable_id", timetable.ID),
			zap.String("department_id", timetable.DepartmentID),
			zap.String("section", timetable.Section),
			zap.Int("violations", len(violations)))
	}

	return &dto.ValidateTimetableResponse{
		TimetableID: timetable.ID,
		Valid:       len(violations) == 0,
		Violations:  violationViews(violations),
		CheckedAt:   s.now().UTC(),
	}, nil
}

func (s *ValidationService) recordedRelaxations(timetable *models.Timetable) []string {
	if len(timetable.Relaxations) == 0 {
		return nil
	}
	var names []string
	if err := json.Unmarshal(timetable.Relaxations, &names); err != nil {
		s.logger.Warn("stored relaxations are not valid JSON, validating strictly",
			zap.String("timetable_id", timetable.ID), zap.Error(err))
		return nil
	}
	return names
}

func sessionsFromSlots(slots []models.TimetableSlot) []engine.PlacedSession {
	sessions := make([]engine.PlacedSession, 0, len(slots))
	for _, slot := range slots {
		sessions = append(sessions, engine.PlacedSession{
			SessionID:    slot.ID,
			ObligationID: slot.ObligationID,
			SubjectID:    slot.SubjectID,
			TeacherID:    slot.TeacherID,
			RoomID:       slot.RoomID,
			Day:          slot.Day,
			Period:       slot.Period,
			Length:       slot.BlockLength,
			IsLab:        slot.IsLab,
		})
	}
	return sessions
}

func externalBusyMap(bookings []models.TeacherBooking) map[engine.BusyKey]struct{} {
	busy := make(map[engine.BusyKey]struct{}, len(bookings))
	for _, booking := range bookings {
		busy[engine.BusyKey{TeacherID: booking.TeacherID, Day: booking.Day, Period: booking.Period}] = struct{}{}
	}
	return busy
}
