package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// SettingsRepository stores per-school timetable settings.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs a settings repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the school's settings or sql.ErrNoRows when none were saved.
func (r *SettingsRepository) Get(ctx context.Context, schoolID string) (*models.SchoolSettings, error) {
	const query = `SELECT school_id, period_duration_minutes, updated_at FROM school_timetable_settings WHERE school_id = $1`
	var settings models.SchoolSettings
	if err := r.db.GetContext(ctx, &settings, query, schoolID); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert saves the school's settings.
func (r *SettingsRepository) Upsert(ctx context.Context, settings *models.SchoolSettings) error {
	settings.UpdatedAt = time.Now().UTC()
	const query = `
INSERT INTO school_timetable_settings (school_id, period_duration_minutes, updated_at)
VALUES (:school_id, :period_duration_minutes, :updated_at)
ON CONFLICT (school_id) DO UPDATE
SET period_duration_minutes = EXCLUDED.period_duration_minutes,
    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert timetable settings: %w", err)
	}
	return nil
}
