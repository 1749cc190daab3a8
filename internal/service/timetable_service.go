package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dept-timetable-api/internal/dto"
	"github.com/noah-isme/dept-timetable-api/internal/models"
	appErrors "github.com/noah-isme/dept-timetable-api/pkg/errors"
)

type timetableCatalogReader interface {
	FindActive(ctx context.Context, departmentID, section string) (*models.Timetable, error)
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	ListVersions(ctx context.Context, departmentID, section string) ([]models.TimetableMeta, error)
	ListSlotDetails(ctx context.Context, timetableID string) ([]models.TimetableSlotDetail, error)
}

// TimetableServiceConfig tunes the read side of the timetable API.
type TimetableServiceConfig struct {
	CacheTTL time.Duration
}

// TimetableService serves stored timetables: the active grid of a department
// section, its version history and individual versions by id. Active reads
// are cached; generation invalidates the pair's keys.
type TimetableService struct {
	timetables timetableCatalogReader
	cache      *CacheService
	logger     *zap.Logger
	cfg        TimetableServiceConfig
}

// NewTimetableService constructs the read service.
func NewTimetableService(timetables timetableCatalogReader, cache *CacheService, logger *zap.Logger, cfg TimetableServiceConfig) *TimetableService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{timetables: timetables, cache: cache, logger: logger, cfg: cfg}
}

// Active returns the active timetable of a department section with its slots,
// reporting whether the cache served it.
func (s *TimetableService) Active(ctx context.Context, departmentID, section string) (*dto.TimetableDetailResponse, bool, error) {
	if departmentID == "" || section == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "departmentId and section are required")
	}
	cacheKey := fmt.Sprintf("timetable:active:%s:%s", departmentID, section)
	if s.cache.Enabled() {
		var cached dto.TimetableDetailResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			s.logger.Warn("active timetable cache read failed", zap.String("key", cacheKey), zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	timetable, err := s.timetables.FindActive(ctx, departmentID, section)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "no active timetable for this department section")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active timetable")
	}
	detail, err := s.detail(ctx, timetable)
	if err != nil {
		return nil, false, err
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, detail, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("active timetable cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return detail, false, nil
}

// Get returns one timetable version with its slots.
func (s *TimetableService) Get(ctx context.Context, timetableID string) (*dto.TimetableDetailResponse, error) {
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
	return s.detail(ctx, timetable)
}

// Versions lists the generation history of a department section, newest first.
func (s *TimetableService) Versions(ctx context.Context, departmentID, section string) ([]models.TimetableMeta, bool, error) {
	if departmentID == "" || section == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "departmentId and section are required")
	}
	cacheKey := fmt.Sprintf("timetable:versions:%s:%s", departmentID, section)
	if s.cache.Enabled() {
		var cached []models.TimetableMeta
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			s.logger.Warn("timetable versions cache read failed", zap.String("key", cacheKey), zap.Error(err))
		} else if hit {
			return cached, true, nil
		}
	}

	versions, err := s.timetables.ListVersions(ctx, departmentID, section)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable versions")
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, versions, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("timetable versions cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return versions, false, nil
}

func (s *TimetableService) detail(ctx context.Context, timetable *models.Timetable) (*dto.TimetableDetailResponse, error) {
	slots, err := s.timetables.ListSlotDetails(ctx, timetable.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable slots")
	}
	if slots == nil {
		slots = []models.TimetableSlotDetail{}
	}
	return &dto.TimetableDetailResponse{Timetable: *timetable, Slots: slots}, nil
}
