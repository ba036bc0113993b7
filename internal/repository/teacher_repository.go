package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TeacherRepository reads teachers of a school.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a teacher repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByID returns a live teacher or sql.ErrNoRows.
func (r *TeacherRepository) FindByID(ctx context.Context, schoolID, id string) (*models.Teacher, error) {
	const query = `SELECT id, school_id, full_name, email, deleted_at, created_at, updated_at FROM teachers WHERE id = $1 AND school_id = $2 AND deleted_at IS NULL`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id, schoolID); err != nil {
		return nil, err
	}
	return &teacher, nil
}
