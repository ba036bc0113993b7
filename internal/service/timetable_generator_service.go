package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type allocationReader interface {
	ListDetailsByClass(ctx context.Context, classID string) ([]models.AllocationDetail, error)
	ListDetailsBySchool(ctx context.Context, schoolID string) ([]models.AllocationDetail, error)
}

type slotWriter interface {
	ListDetailsBySchool(ctx context.Context, schoolID string) ([]models.TimetableSlotDetail, error)
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) error
	DeleteByClass(ctx context.Context, exec sqlx.ExtContext, classID string) (int64, error)
	DeleteBySchool(ctx context.Context, exec sqlx.ExtContext, schoolID string) (int64, error)
}

// TimetableGeneratorService runs the greedy generator against persisted data.
// Every run clears the target slots and rebuilds them inside one transaction
// while holding the school lock.
type TimetableGeneratorService struct {
	classes     classReader
	periods     periodReader
	allocations allocationReader
	slots       slotWriter
	settings    periodMinutesResolver
	tx          txProvider
	locker      timetableLocker
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewTimetableGeneratorService wires generator dependencies.
func NewTimetableGeneratorService(
	classes classReader,
	periods periodReader,
	allocations allocationReader,
	slots slotWriter,
	settings periodMinutesResolver,
	tx txProvider,
	locker timetableLocker,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
) *TimetableGeneratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableGeneratorService{
		classes:     classes,
		periods:     periods,
		allocations: allocations,
		slots:       slots,
		settings:    settings,
		tx:          tx,
		locker:      locker,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// GenerateClass rebuilds one class's timetable. Teachers already busy in
// other classes' persisted slots are treated as unavailable. A missing class
// is the only error; shortfalls are reported in the result.
func (s *TimetableGeneratorService) GenerateClass(ctx context.Context, schoolID, classID string) (*dto.GenerationResult, error) {
	started := s.now()
	class, err := findClass(ctx, s.classes, schoolID, classID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.LockSchool(ctx, schoolID)
	if err != nil {
		s.metrics.RecordLockTimeout(GenerationScopeClass)
		return nil, err
	}
	defer release()

	periods, minutes, err := s.loadGrid(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	allocations, err := s.allocations.ListDetailsByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}
	existing, err := s.slots.ListDetailsBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing slots")
	}

	occ := scheduler.NewOccupancy()
	occ.Seed(toSeededSlots(existing), classID)
	res := scheduler.GenerateClass(scheduler.ClassInput{
		ClassID:     class.ID,
		Name:        class.Name,
		GradeOrder:  class.GradeOrder,
		Section:     class.Section,
		Allocations: toEngineAllocations(allocations),
	}, periods, minutes, occ)

	err = s.persist(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.slots.DeleteByClass(ctx, tx, classID); err != nil {
			return err
		}
		return s.slots.InsertBatch(ctx, tx, toSlotRecords(schoolID, res))
	})
	if err != nil {
		return nil, err
	}

	others := make([]models.TimetableSlotDetail, 0, len(existing))
	for _, slot := range existing {
		if slot.ClassID != classID {
			others = append(others, slot)
		}
	}
	after := append(toAuditSlots(others), scheduler.AuditPlacements([]scheduler.ClassResult{res})...)

	elapsed := s.now().Sub(started)
	s.cache.InvalidateSchool(ctx, schoolID)
	s.metrics.SetTeacherConflicts(schoolID, len(scheduler.Audit(after)))
	s.metrics.ObserveGeneration(GenerationScopeClass, elapsed, res.SlotsCreated(), res.Unplaced)
	s.logger.Info("class timetable generated",
		zap.String("school_id", schoolID),
		zap.String("class_id", classID),
		zap.Int("slots_created", res.SlotsCreated()),
		zap.Int("unplaced", res.Unplaced),
		zap.Int("skipped_allocations", res.Skipped),
	)

	return &dto.GenerationResult{
		Success:            true,
		Message:            res.Message,
		SlotsCreated:       res.SlotsCreated(),
		Unplaced:           res.Unplaced,
		SkippedAllocations: res.Skipped,
		DurationMs:         elapsed.Milliseconds(),
	}, nil
}

// GenerateAll clears every slot of the school and regenerates all classes in
// grade, section and name order against one shared teacher occupancy.
func (s *TimetableGeneratorService) GenerateAll(ctx context.Context, schoolID string) (*dto.GenerationResult, error) {
	started := s.now()
	release, err := s.locker.LockSchool(ctx, schoolID)
	if err != nil {
		s.metrics.RecordLockTimeout(GenerationScopeSchool)
		return nil, err
	}
	defer release()

	classes, err := s.classes.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	periods, minutes, err := s.loadGrid(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	allocations, err := s.allocations.ListDetailsBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}

	byClass := make(map[string][]models.AllocationDetail, len(classes))
	for _, a := range allocations {
		byClass[a.ClassID] = append(byClass[a.ClassID], a)
	}
	names := make(map[string]string, len(classes))
	inputs := make([]scheduler.ClassInput, 0, len(classes))
	for _, c := range classes {
		names[c.ID] = c.Name
		inputs = append(inputs, scheduler.ClassInput{
			ClassID:     c.ID,
			Name:        c.Name,
			GradeOrder:  c.GradeOrder,
			Section:     c.Section,
			Allocations: toEngineAllocations(byClass[c.ID]),
		})
	}

	batch := scheduler.GenerateAll(inputs, periods, minutes)

	err = s.persist(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.slots.DeleteBySchool(ctx, tx, schoolID); err != nil {
			return err
		}
		for _, res := range batch.Classes {
			if err := s.slots.InsertBatch(ctx, tx, toSlotRecords(schoolID, res)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	elapsed := s.now().Sub(started)
	s.cache.InvalidateSchool(ctx, schoolID)
	s.metrics.SetTeacherConflicts(schoolID, len(scheduler.Audit(scheduler.AuditPlacements(batch.Classes))))
	s.metrics.ObserveGeneration(GenerationScopeSchool, elapsed, batch.SlotsCreated, batch.Unplaced)
	s.logger.Info("school timetable generated",
		zap.String("school_id", schoolID),
		zap.Int("classes", len(batch.Classes)),
		zap.Int("slots_created", batch.SlotsCreated),
		zap.Int("unplaced", batch.Unplaced),
		zap.Int("skipped_allocations", batch.Skipped),
	)

	summaries := make([]dto.ClassGenerationSummary, 0, len(batch.Classes))
	for _, res := range batch.Classes {
		summaries = append(summaries, dto.ClassGenerationSummary{
			ClassID:      res.ClassID,
			ClassName:    names[res.ClassID],
			SlotsCreated: res.SlotsCreated(),
			Unplaced:     res.Unplaced,
			Skipped:      res.Skipped,
			Message:      res.Message,
		})
	}
	return &dto.GenerationResult{
		Success:            true,
		Message:            batch.Message,
		SlotsCreated:       batch.SlotsCreated,
		Unplaced:           batch.Unplaced,
		SkippedAllocations: batch.Skipped,
		Classes:            summaries,
		DurationMs:         elapsed.Milliseconds(),
	}, nil
}

func (s *TimetableGeneratorService) loadGrid(ctx context.Context, schoolID string) ([]scheduler.Period, int, error) {
	periods, err := s.periods.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}
	minutes, err := s.settings.PeriodMinutes(ctx, schoolID)
	if err != nil {
		return nil, 0, err
	}
	return toEnginePeriods(periods), minutes, nil
}

func (s *TimetableGeneratorService) persist(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if err := database.InTx(ctx, s.tx, fn); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write timetable slots")
	}
	return nil
}
