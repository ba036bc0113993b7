package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type settingsStore interface {
	Get(ctx context.Context, schoolID string) (*models.SchoolSettings, error)
	Upsert(ctx context.Context, settings *models.SchoolSettings) error
}

// SettingsService resolves the representative period duration of a school.
type SettingsService struct {
	repo           settingsStore
	cache          *CacheService
	defaultMinutes int
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewSettingsService constructs the settings service.
func NewSettingsService(repo settingsStore, cache *CacheService, defaultMinutes int, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultMinutes <= 0 {
		defaultMinutes = scheduler.DefaultPeriodMinutes
	}
	return &SettingsService{repo: repo, cache: cache, defaultMinutes: defaultMinutes, validator: validate, logger: logger}
}

// Get returns the school's settings, falling back to the configured default.
func (s *SettingsService) Get(ctx context.Context, schoolID string) (*dto.SettingsResponse, error) {
	resp := &dto.SettingsResponse{
		PeriodDurationMinutes: s.defaultMinutes,
		WorkingDays:           append([]int(nil), scheduler.Weekdays...),
		Source:                "default",
	}
	settings, err := s.repo.Get(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return resp, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable settings")
	}
	if settings.PeriodDurationMinutes > 0 {
		resp.PeriodDurationMinutes = settings.PeriodDurationMinutes
		resp.Source = "school"
	}
	return resp, nil
}

// PeriodMinutes returns the duration used to convert hours into periods.
func (s *SettingsService) PeriodMinutes(ctx context.Context, schoolID string) (int, error) {
	resp, err := s.Get(ctx, schoolID)
	if err != nil {
		return 0, err
	}
	return resp.PeriodDurationMinutes, nil
}

// Update stores a new period duration. Existing slots are kept; the new
// value applies from the next validation or generation.
func (s *SettingsService) Update(ctx context.Context, schoolID string, req dto.UpdateSettingsRequest) (*dto.SettingsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable settings payload")
	}
	record := &models.SchoolSettings{SchoolID: schoolID, PeriodDurationMinutes: req.PeriodDurationMinutes}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable settings")
	}
	s.cache.InvalidateSchool(ctx, schoolID)
	s.logger.Info("timetable settings updated", zap.String("school_id", schoolID), zap.Int("period_minutes", req.PeriodDurationMinutes))
	return &dto.SettingsResponse{
		PeriodDurationMinutes: req.PeriodDurationMinutes,
		WorkingDays:           append([]int(nil), scheduler.Weekdays...),
		Source:                "school",
	}, nil
}
