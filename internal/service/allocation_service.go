package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type classReader interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.Class, error)
	ListBySchool(ctx context.Context, schoolID string) ([]models.Class, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.Subject, error)
}

type teacherReader interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.Teacher, error)
}

type periodReader interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Period, error)
}

type periodMinutesResolver interface {
	PeriodMinutes(ctx context.Context, schoolID string) (int, error)
}

type allocationStore interface {
	ListDetailsByClass(ctx context.Context, classID string) ([]models.AllocationDetail, error)
	ListDetailsBySchool(ctx context.Context, schoolID string) ([]models.AllocationDetail, error)
	FindDetailByID(ctx context.Context, classID, id string) (*models.AllocationDetail, error)
	ReplaceForClass(ctx context.Context, exec sqlx.ExtContext, classID string, items []models.ClassSubjectAllocation) error
}

// AllocationService manages class subject allocations and reports whether
// they fit the weekly grid.
type AllocationService struct {
	classes     classReader
	subjects    subjectReader
	teachers    teacherReader
	allocations allocationStore
	periods     periodReader
	settings    periodMinutesResolver
	tx          txProvider
	locker      timetableLocker
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAllocationService constructs the allocation service.
func NewAllocationService(
	classes classReader,
	subjects subjectReader,
	teachers teacherReader,
	allocations allocationStore,
	periods periodReader,
	settings periodMinutesResolver,
	tx txProvider,
	locker timetableLocker,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
) *AllocationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{
		classes:     classes,
		subjects:    subjects,
		teachers:    teachers,
		allocations: allocations,
		periods:     periods,
		settings:    settings,
		tx:          tx,
		locker:      locker,
		cache:       cache,
		validator:   validate,
		logger:      logger,
	}
}

// List returns the class's allocations together with the capacity report.
func (s *AllocationService) List(ctx context.Context, schoolID, classID string) (*dto.AllocationsResponse, error) {
	if _, err := findClass(ctx, s.classes, schoolID, classID); err != nil {
		return nil, err
	}
	items, err := s.allocations.ListDetailsByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}
	report, err := s.report(ctx, schoolID, items)
	if err != nil {
		return nil, err
	}
	return &dto.AllocationsResponse{ClassID: classID, Allocations: nonNilAllocations(items), Validation: *report}, nil
}

// Validate reports whether the class's allocations fit its weekly grid. It
// has no side effects.
func (s *AllocationService) Validate(ctx context.Context, schoolID, classID string) (*scheduler.Validation, error) {
	if _, err := findClass(ctx, s.classes, schoolID, classID); err != nil {
		return nil, err
	}
	items, err := s.allocations.ListDetailsByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}
	return s.report(ctx, schoolID, items)
}

// Replace swaps every allocation of the class under the class lock and
// returns the post-save capacity report. Over-allocation is reported, not
// rejected.
func (s *AllocationService) Replace(ctx context.Context, schoolID, classID string, req dto.ReplaceAllocationsRequest) (*dto.AllocationsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allocation payload")
	}
	if _, err := findClass(ctx, s.classes, schoolID, classID); err != nil {
		return nil, err
	}

	records := make([]models.ClassSubjectAllocation, 0, len(req.Allocations))
	seen := make(map[string]struct{}, len(req.Allocations))
	for _, in := range req.Allocations {
		if _, dup := seen[in.SubjectID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s is allocated twice", in.SubjectID))
		}
		seen[in.SubjectID] = struct{}{}
		if err := s.ensureSubject(ctx, schoolID, in.SubjectID); err != nil {
			return nil, err
		}
		if in.TeacherID != nil {
			if err := s.ensureTeacher(ctx, schoolID, *in.TeacherID); err != nil {
				return nil, err
			}
		}
		records = append(records, models.ClassSubjectAllocation{
			SubjectID:    in.SubjectID,
			TeacherID:    in.TeacherID,
			HoursPerWeek: in.HoursPerWeek,
		})
	}

	release, err := s.locker.LockClass(ctx, schoolID, classID)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = s.allocations.ReplaceForClass(ctx, tx, classID, records); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace allocations")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit allocations")
		return nil, err
	}
	s.cache.InvalidateSchool(ctx, schoolID)

	resp, err := s.List(ctx, schoolID, classID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("allocations replaced",
		zap.String("school_id", schoolID),
		zap.String("class_id", classID),
		zap.Int("allocations", len(records)),
		zap.Bool("valid", resp.Validation.IsValid),
	)
	return resp, nil
}

func (s *AllocationService) report(ctx context.Context, schoolID string, items []models.AllocationDetail) (*scheduler.Validation, error) {
	periods, err := s.periods.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}
	minutes, err := s.settings.PeriodMinutes(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	report := scheduler.ValidateAllocations(toEnginePeriods(periods), toEngineAllocations(items), minutes)
	return &report, nil
}

func (s *AllocationService) ensureSubject(ctx context.Context, schoolID, subjectID string) error {
	if _, err := s.subjects.FindByID(ctx, schoolID, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s not found", subjectID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return nil
}

func (s *AllocationService) ensureTeacher(ctx context.Context, schoolID, teacherID string) error {
	if _, err := s.teachers.FindByID(ctx, schoolID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s not found", teacherID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return nil
}

func nonNilAllocations(items []models.AllocationDetail) []models.AllocationDetail {
	if items == nil {
		return []models.AllocationDetail{}
	}
	return items
}
