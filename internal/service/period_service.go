package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type periodStore interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Period, error)
	ReplaceForSchool(ctx context.Context, exec sqlx.ExtContext, schoolID string, periods []models.Period) ([]models.Period, error)
}

type periodSlotCleaner interface {
	DeleteByPeriods(ctx context.Context, exec sqlx.ExtContext, periodIDs []string) (int64, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// PeriodService manages the daily period catalog of a school.
type PeriodService struct {
	periods   periodStore
	slots     periodSlotCleaner
	tx        txProvider
	locker    timetableLocker
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPeriodService constructs the period catalog service.
func NewPeriodService(periods periodStore, slots periodSlotCleaner, tx txProvider, locker timetableLocker, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *PeriodService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{periods: periods, slots: slots, tx: tx, locker: locker, cache: cache, validator: validate, logger: logger}
}

// List returns the school's periods ordered by sequence.
func (s *PeriodService) List(ctx context.Context, schoolID string) ([]models.Period, error) {
	periods, err := s.periods.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}
	return periods, nil
}

// Replace swaps the whole catalog under the school lock. Slots on removed
// periods or on periods that became breaks are deleted.
func (s *PeriodService) Replace(ctx context.Context, schoolID string, req dto.ReplacePeriodsRequest) ([]models.Period, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period catalog payload")
	}
	if err := validatePeriodInputs(req.Periods); err != nil {
		return nil, err
	}

	release, err := s.locker.LockSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	defer release()

	records := make([]models.Period, 0, len(req.Periods))
	for _, p := range req.Periods {
		records = append(records, models.Period{
			Name:      strings.TrimSpace(p.Name),
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
			Order:     p.Order,
			IsBreak:   p.IsBreak,
		})
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

	periods, err := s.periods.ReplaceForSchool(ctx, tx, schoolID, records)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace periods")
		return nil, err
	}
	breakIDs := make([]string, 0)
	for _, p := range periods {
		if p.IsBreak {
			breakIDs = append(breakIDs, p.ID)
		}
	}
	cleared, err := s.slots.DeleteByPeriods(ctx, tx, breakIDs)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear slots on break periods")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit period catalog")
		return nil, err
	}

	s.cache.InvalidateSchool(ctx, schoolID)
	s.logger.Info("period catalog replaced",
		zap.String("school_id", schoolID),
		zap.Int("periods", len(periods)),
		zap.Int64("break_slots_cleared", cleared),
	)
	return periods, nil
}

func validatePeriodInputs(inputs []dto.PeriodInput) error {
	orders := make(map[int]struct{}, len(inputs))
	names := make(map[string]struct{}, len(inputs))
	sorted := make([]dto.PeriodInput, len(inputs))
	copy(sorted, inputs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	for i, p := range sorted {
		if _, dup := orders[p.Order]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate period order %d", p.Order))
		}
		orders[p.Order] = struct{}{}
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if _, dup := names[name]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate period name %q", p.Name))
		}
		names[name] = struct{}{}
		start, end := clockMinutes(p.StartTime), clockMinutes(p.EndTime)
		if start < 0 || end < 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period %q must use HH:MM times", p.Name))
		}
		if end <= start {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period %q must end after it starts", p.Name))
		}
		if i > 0 && start < clockMinutes(sorted[i-1].EndTime) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period %q overlaps %q", p.Name, sorted[i-1].Name))
		}
	}
	return nil
}

// clockMinutes converts HH:MM into minutes after midnight, or -1.
func clockMinutes(value string) int {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return -1
	}
	return t.Hour()*60 + t.Minute()
}
