package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

// AuditJobType identifies conflict audit jobs on the background queue.
const AuditJobType = "timetable.audit"

type slotLister interface {
	ListDetailsBySchool(ctx context.Context, schoolID string) ([]models.TimetableSlotDetail, error)
}

// ConflictAuditService reports teachers booked in more than one class at the
// same period and weekday. It never modifies slots.
type ConflictAuditService struct {
	slots   slotLister
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewConflictAuditService constructs the auditor service.
func NewConflictAuditService(slots slotLister, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ConflictAuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictAuditService{slots: slots, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// Check audits the persisted slots of a school and refreshes the cached report.
func (s *ConflictAuditService) Check(ctx context.Context, schoolID string) (*dto.ConflictReport, error) {
	slots, err := s.slots.ListDetailsBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable slots")
	}

	report := &dto.ConflictReport{
		SchoolID:  schoolID,
		Conflicts: scheduler.Audit(toAuditSlots(slots)),
		SlotCount: len(slots),
		CheckedAt: s.now().UTC(),
	}

	_ = s.cache.Set(ctx, conflictReportKey(schoolID), report, 0)
	s.metrics.SetTeacherConflicts(schoolID, len(report.Conflicts))
	if len(report.Conflicts) > 0 {
		s.logger.Warn("teacher conflicts detected",
			zap.String("school_id", schoolID),
			zap.Int("conflicts", len(report.Conflicts)),
		)
	}
	return report, nil
}

// Latest serves the cached report when present and audits otherwise.
func (s *ConflictAuditService) Latest(ctx context.Context, schoolID string) (*dto.ConflictReport, error) {
	var cached dto.ConflictReport
	if hit, _ := s.cache.Get(ctx, conflictReportKey(schoolID), &cached); hit {
		return &cached, nil
	}
	return s.Check(ctx, schoolID)
}

// HandleJob runs a queued audit. The payload carries the school id.
func (s *ConflictAuditService) HandleJob(ctx context.Context, job jobs.Job) error {
	schoolID, ok := job.Payload.(string)
	if !ok || schoolID == "" {
		return fmt.Errorf("audit job %s: missing school id", job.ID)
	}
	_, err := s.Check(ctx, schoolID)
	return err
}

// NewAuditJob builds a queue job auditing one school. Jobs for the same
// school coalesce while one is pending.
func NewAuditJob(schoolID string, now time.Time) jobs.Job {
	return jobs.Job{
		ID:       fmt.Sprintf("audit-%s-%d", schoolID, now.UnixNano()),
		Key:      schoolID,
		Type:     AuditJobType,
		Payload:  schoolID,
		Enqueued: now,
	}
}
