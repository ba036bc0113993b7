package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ClassRepository reads classes. Class records are owned by the school
// administration service; the timetable only reads them.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `id, school_id, name, grade_order, section, created_at, updated_at`

// FindByID returns a class of the school. It returns sql.ErrNoRows when the
// class does not exist or belongs to another school.
func (r *ClassRepository) FindByID(ctx context.Context, schoolID, id string) (*models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE id = $1 AND school_id = $2`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id, schoolID); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListBySchool returns every class of a school in generation order.
func (r *ClassRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE school_id = $1 ORDER BY grade_order ASC, section ASC, name ASC, id ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, schoolID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}
