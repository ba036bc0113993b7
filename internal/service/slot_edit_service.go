package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type periodFinder interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.Period, error)
}

type allocationFinder interface {
	FindDetailByID(ctx context.Context, classID, id string) (*models.AllocationDetail, error)
}

type slotEditor interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, slot *models.TimetableSlot) error
	DeleteCell(ctx context.Context, exec sqlx.ExtContext, classID, periodID string, dayOfWeek int) (bool, error)
}

type auditEnqueuer interface {
	Enqueue(job jobs.Job) (bool, error)
}

// SlotEditService applies manual corrections to single cells of a class grid.
// Edits are not checked against teacher availability; the conflict auditor
// reports any double booking they introduce.
type SlotEditService struct {
	classes     classFinder
	periods     periodFinder
	allocations allocationFinder
	teachers    teacherReader
	slots       slotEditor
	locker      timetableLocker
	cache       *CacheService
	audits      auditEnqueuer
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSlotEditService constructs the manual edit service. A nil audits queue
// disables post-edit auditing.
func NewSlotEditService(
	classes classFinder,
	periods periodFinder,
	allocations allocationFinder,
	teachers teacherReader,
	slots slotEditor,
	locker timetableLocker,
	cache *CacheService,
	audits auditEnqueuer,
	validate *validator.Validate,
	logger *zap.Logger,
) *SlotEditService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotEditService{
		classes:     classes,
		periods:     periods,
		allocations: allocations,
		teachers:    teachers,
		slots:       slots,
		locker:      locker,
		cache:       cache,
		audits:      audits,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// UpsertSlot writes one cell. A request without a class subject clears it.
func (s *SlotEditService) UpsertSlot(ctx context.Context, schoolID, classID string, req dto.UpsertSlotRequest) (*dto.SlotEditResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	if req.ClassSubjectID == nil || strings.TrimSpace(*req.ClassSubjectID) == "" {
		return s.DeleteSlot(ctx, schoolID, classID, dto.DeleteSlotRequest{PeriodID: req.PeriodID, DayOfWeek: req.DayOfWeek})
	}

	if _, err := findClass(ctx, s.classes, schoolID, classID); err != nil {
		return nil, err
	}
	if err := s.ensureCell(ctx, schoolID, req.PeriodID, req.DayOfWeek); err != nil {
		return nil, err
	}
	if _, err := s.allocations.FindDetailByID(ctx, classID, *req.ClassSubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "allocation does not belong to this class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}
	if req.TeacherID != nil {
		if _, err := s.teachers.FindByID(ctx, schoolID, *req.TeacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "teacher not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
	}

	slot := &models.TimetableSlot{
		SchoolID:       schoolID,
		ClassID:        classID,
		PeriodID:       req.PeriodID,
		DayOfWeek:      req.DayOfWeek,
		ClassSubjectID: req.ClassSubjectID,
		TeacherID:      req.TeacherID,
		RoomNumber:     req.RoomNumber,
	}
	if err := s.saveLocked(ctx, slot); err != nil {
		return nil, err
	}

	s.cache.InvalidateSchool(ctx, schoolID)
	s.logger.Info("timetable slot updated",
		zap.String("school_id", schoolID),
		zap.String("class_id", classID),
		zap.String("period_id", req.PeriodID),
		zap.Int("day_of_week", req.DayOfWeek),
	)
	return &dto.SlotEditResult{Slot: slot, AuditQueued: s.queueAudit(schoolID)}, nil
}

// saveLocked writes the cell under the class lock. The lock is released
// before the caller queues the follow-up audit.
func (s *SlotEditService) saveLocked(ctx context.Context, slot *models.TimetableSlot) error {
	release, err := s.locker.LockClass(ctx, slot.SchoolID, slot.ClassID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.slots.Upsert(ctx, nil, slot); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable slot")
	}
	return nil
}

// DeleteSlot clears one cell. Clearing an empty cell succeeds.
func (s *SlotEditService) DeleteSlot(ctx context.Context, schoolID, classID string, req dto.DeleteSlotRequest) (*dto.SlotEditResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	if _, err := findClass(ctx, s.classes, schoolID, classID); err != nil {
		return nil, err
	}

	deleted, err := s.clearLocked(ctx, schoolID, classID, req)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return &dto.SlotEditResult{Cleared: true}, nil
	}

	s.cache.InvalidateSchool(ctx, schoolID)
	s.logger.Info("timetable slot cleared",
		zap.String("school_id", schoolID),
		zap.String("class_id", classID),
		zap.String("period_id", req.PeriodID),
		zap.Int("day_of_week", req.DayOfWeek),
	)
	return &dto.SlotEditResult{Cleared: true, AuditQueued: s.queueAudit(schoolID)}, nil
}

func (s *SlotEditService) clearLocked(ctx context.Context, schoolID, classID string, req dto.DeleteSlotRequest) (bool, error) {
	release, err := s.locker.LockClass(ctx, schoolID, classID)
	if err != nil {
		return false, err
	}
	defer release()

	deleted, err := s.slots.DeleteCell(ctx, nil, classID, req.PeriodID, req.DayOfWeek)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear timetable slot")
	}
	return deleted, nil
}

func (s *SlotEditService) ensureCell(ctx context.Context, schoolID, periodID string, day int) error {
	if !scheduler.IsWorkingDay(day) {
		return appErrors.Clone(appErrors.ErrValidation, "day of week must be a working day (1-5)")
	}
	period, err := s.periods.FindByID(ctx, schoolID, periodID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "period not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	if period.IsBreak {
		return appErrors.Clone(appErrors.ErrValidation, "break periods cannot hold lessons")
	}
	return nil
}

func (s *SlotEditService) queueAudit(schoolID string) bool {
	if s.audits == nil {
		return false
	}
	// A coalesced job still means an audit of this school is pending.
	if _, err := s.audits.Enqueue(NewAuditJob(schoolID, s.now().UTC())); err != nil {
		s.logger.Warn("failed to queue conflict audit", zap.String("school_id", schoolID), zap.Error(err))
		return false
	}
	return true
}
