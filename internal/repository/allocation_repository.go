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

// AllocationRepository persists class subject allocations.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository constructs an allocation repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

func (r *AllocationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const allocationDetailSelect = `SELECT a.id, a.class_id, a.subject_id, a.teacher_id, a.hours_per_week, a.created_at, a.updated_at,
s.name AS subject_name, t.full_name AS teacher_name
FROM class_subject_allocations a
LEFT JOIN subjects s ON s.id = a.subject_id AND s.deleted_at IS NULL
LEFT JOIN teachers t ON t.id = a.teacher_id AND t.deleted_at IS NULL`

// ListDetailsByClass returns a class's allocations in insertion order.
func (r *AllocationRepository) ListDetailsByClass(ctx context.Context, classID string) ([]models.AllocationDetail, error) {
	query := allocationDetailSelect + ` WHERE a.class_id = $1 ORDER BY a.created_at ASC, a.id ASC`
	var items []models.AllocationDetail
	if err := r.db.SelectContext(ctx, &items, query, classID); err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	return items, nil
}

// ListDetailsBySchool returns the allocations of every class of a school,
// grouped by class and in insertion order within a class.
func (r *AllocationRepository) ListDetailsBySchool(ctx context.Context, schoolID string) ([]models.AllocationDetail, error) {
	query := allocationDetailSelect + `
JOIN classes c ON c.id = a.class_id
WHERE c.school_id = $1 ORDER BY a.class_id ASC, a.created_at ASC, a.id ASC`
	var items []models.AllocationDetail
	if err := r.db.SelectContext(ctx, &items, query, schoolID); err != nil {
		return nil, fmt.Errorf("list school allocations: %w", err)
	}
	return items, nil
}

// FindDetailByID returns one allocation of the class or sql.ErrNoRows.
func (r *AllocationRepository) FindDetailByID(ctx context.Context, classID, id string) (*models.AllocationDetail, error) {
	query := allocationDetailSelect + ` WHERE a.id = $1 AND a.class_id = $2`
	var item models.AllocationDetail
	if err := r.db.GetContext(ctx, &item, query, id, classID); err != nil {
		return nil, err
	}
	return &item, nil
}

// ReplaceForClass upserts allocations keyed by subject and deletes those whose
// subject was dropped. Allocation ids of kept subjects are preserved so slots
// referencing them stay valid.
func (r *AllocationRepository) ReplaceForClass(ctx context.Context, exec sqlx.ExtContext, classID string, items []models.ClassSubjectAllocation) error {
	target := r.exec(exec)
	now := time.Now().UTC()

	const upsert = `
INSERT INTO class_subject_allocations (id, class_id, subject_id, teacher_id, hours_per_week, created_at, updated_at)
VALUES (:id, :class_id, :subject_id, :teacher_id, :hours_per_week, :created_at, :updated_at)
ON CONFLICT (class_id, subject_id) DO UPDATE
SET teacher_id = EXCLUDED.teacher_id,
    hours_per_week = EXCLUDED.hours_per_week,
    updated_at = EXCLUDED.updated_at`

	subjectIDs := make([]string, 0, len(items))
	for i := range items {
		item := &items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.ClassID = classID
		// Offsets keep insertion order stable for rows written in one statement batch.
		item.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		item.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, upsert, item); err != nil {
			return fmt.Errorf("upsert allocation: %w", err)
		}
		subjectIDs = append(subjectIDs, item.SubjectID)
	}

	const prune = `DELETE FROM class_subject_allocations WHERE class_id = $1 AND NOT (subject_id = ANY($2))`
	if _, err := target.ExecContext(ctx, prune, classID, pq.Array(subjectIDs)); err != nil {
		return fmt.Errorf("prune allocations: %w", err)
	}
	return nil
}
