package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dept-timetable-api/internal/dto"
	"github.com/noah-isme/dept-timetable-api/internal/models"
	"github.com/noah-isme/dept-timetable-api/pkg/jobs"
)

type activeTimetableLister interface {
	ListActive(ctx context.Context) ([]models.Timetable, error)
}

type timetableAuditor interface {
	Validate(ctx context.Context, timetableID string) (*dto.ValidateTimetableResponse, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// AuditServiceConfig governs the periodic revalidation sweep.
type AuditServiceConfig struct {
	Interval time.Duration
}

// AuditService periodically re-audits every active timetable against the
// current obligation book, rooms and cross-department bookings. Data edited
// after generation drifts; the sweep surfaces the drift in the logs and
// metrics before anyone prints a broken grid.
type AuditService struct {
	timetables activeTimetableLister
	auditor    timetableAuditor
	queue      jobDispatcher
	logger     *zap.Logger
	cfg        AuditServiceConfig
}

// NewAuditService constructs the sweep service.
func NewAuditService(timetables activeTimetableLister, auditor timetableAuditor, logger *zap.Logger, cfg AuditServiceConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{timetables: timetables, auditor: auditor, logger: logger, cfg: cfg}
}

// BindQueue attaches the dispatcher the sweep enqueues audits onto. The queue
// itself is built around HandleJob, so binding happens after construction.
func (s *AuditService) BindQueue(queue jobDispatcher) {
	s.queue = queue
}

// Start boots a goroutine that enqueues an audit for every active timetable
// each interval. A non-positive interval disables the sweep.
func (s *AuditService) Start(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
	s.logger.Info("timetable audit sweep started", zap.Duration("interval", s.cfg.Interval))
}

func (s *AuditService) sweep(ctx context.Context) {
	if s.queue == nil {
		return
	}
	timetables, err := s.timetables.ListActive(ctx)
	if err != nil {
		s.logger.Warn("audit sweep failed to list active timetables", zap.Error(err))
		return
	}
	for _, timetable := range timetables {
		job := jobs.Job{ID: timetable.ID, Type: "timetable_audit"}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("audit sweep failed to enqueue", zap.String("timetable_id", timetable.ID), zap.Error(err))
		}
	}
	s.logger.Debug("audit sweep enqueued", zap.Int("timetables", len(timetables)))
}

// HandleJob processes one queued audit. Transient failures return an error so
// the queue retries; findings are logged, not retried.
func (s *AuditService) HandleJob(ctx context.Context, job jobs.Job) error {
	result, err := s.auditor.Validate(ctx, job.ID)
	if err != nil {
		return err
	}
	if result.Valid {
		return nil
	}
	rules := make([]string, 0, len(result.Violations))
	seen := make(map[string]bool, len(result.Violations))
	for _, v := range result.Violations {
		if !seen[v.Rule] {
			seen[v.Rule] = true
			rules = append(rules, v.Rule)
		}
	}
	s.logger.Error("active timetable drifted out of validity",
		zap.String("timetable_id", result.TimetableID),
		zap.Int("violations", len(result.Violations)),
		zap.Strings("rules", rules))
	return nil
}
