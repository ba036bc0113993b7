package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// PeriodRepository persists the daily period catalog of each school.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository constructs a period repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

func (r *PeriodRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const periodColumns = `id, school_id, name, start_time, end_time, sort_order, is_break, created_at, updated_at`

// ListBySchool returns the catalog ordered by sequence.
func (r *PeriodRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Period, error) {
	query := `SELECT ` + periodColumns + ` FROM periods WHERE school_id = $1 ORDER BY sort_order ASC`
	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, query, schoolID); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

// FindByID returns one period of the school or sql.ErrNoRows.
func (r *PeriodRepository) FindByID(ctx context.Context, schoolID, id string) (*models.Period, error) {
	query := `SELECT ` + periodColumns + ` FROM periods WHERE id = $1 AND school_id = $2`
	var period models.Period
	if err := r.db.GetContext(ctx, &period, query, id, schoolID); err != nil {
		return nil, err
	}
	return &period, nil
}

// ReplaceForSchool upserts the catalog keyed by sequence order and removes
// rows whose order is no longer present. Existing period ids survive so slots
// on unchanged positions are kept; slots of removed periods go with them
// through the foreign key. The stored catalog is read back through exec so
// callers inside a transaction see the ids of the rows they wrote.
func (r *PeriodRepository) ReplaceForSchool(ctx context.Context, exec sqlx.ExtContext, schoolID string, periods []models.Period) ([]models.Period, error) {
	target := r.exec(exec)
	now := time.Now().UTC()

	const upsert = `
INSERT INTO periods (id, school_id, name, start_time, end_time, sort_order, is_break, created_at, updated_at)
VALUES (:id, :school_id, :name, :start_time, :end_time, :sort_order, :is_break, :created_at, :updated_at)
ON CONFLICT (school_id, sort_order) DO UPDATE
SET name = EXCLUDED.name,
    start_time = EXCLUDED.start_time,
    end_time = EXCLUDED.end_time,
    is_break = EXCLUDED.is_break,
    updated_at = EXCLUDED.updated_at`

	orders := make([]int64, 0, len(periods))
	for i := range periods {
		p := &periods[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.SchoolID = schoolID
		p.CreatedAt = now
		p.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, upsert, p); err != nil {
			return nil, fmt.Errorf("upsert period: %w", err)
		}
		orders = append(orders, int64(p.Order))
	}

	const prune = `DELETE FROM periods WHERE school_id = $1 AND NOT (sort_order = ANY($2))`
	if _, err := target.ExecContext(ctx, prune, schoolID, pq.Array(orders)); err != nil {
		return nil, fmt.Errorf("prune periods: %w", err)
	}

	query := `SELECT ` + periodColumns + ` FROM periods WHERE school_id = $1 ORDER BY sort_order ASC`
	var stored []models.Period
	if err := sqlx.SelectContext(ctx, target, &stored, query, schoolID); err != nil {
		return nil, fmt.Errorf("reload periods: %w", err)
	}
	return stored, nil
}
