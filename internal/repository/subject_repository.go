package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// SubjectRepository reads subjects of a school.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByID returns a live subject or sql.ErrNoRows.
func (r *SubjectRepository) FindByID(ctx context.Context, schoolID, id string) (*models.Subject, error) {
	const query = `SELECT id, school_id, code, name, deleted_at, created_at, updated_at FROM subjects WHERE id = $1 AND school_id = $2 AND deleted_at IS NULL`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id, schoolID); err != nil {
		return nil, err
	}
	return &subject, nil
}
