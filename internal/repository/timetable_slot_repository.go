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

// TimetableSlotRepository persists timetable cells keyed by (class, period, weekday).
type TimetableSlotRepository struct {
	db *sqlx.DB
}

// NewTimetableSlotRepository constructs a slot repository.
func NewTimetableSlotRepository(db *sqlx.DB) *TimetableSlotRepository {
	return &TimetableSlotRepository{db: db}
}

func (r *TimetableSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const slotDetailSelect = `SELECT ts.id, ts.school_id, ts.class_id, ts.period_id, ts.day_of_week, ts.class_subject_id, ts.teacher_id, ts.room_number, ts.created_at, ts.updated_at,
c.name AS class_name, p.name AS period_name, p.sort_order AS period_order, p.start_time, p.end_time,
a.subject_id, s.name AS subject_name,
COALESCE(ts.teacher_id, a.teacher_id) AS effective_teacher_id, t.full_name AS teacher_name
FROM timetable_slots ts
JOIN classes c ON c.id = ts.class_id
JOIN periods p ON p.id = ts.period_id
LEFT JOIN class_subject_allocations a ON a.id = ts.class_subject_id
LEFT JOIN subjects s ON s.id = a.subject_id
LEFT JOIN teachers t ON t.id = COALESCE(ts.teacher_id, a.teacher_id)`

// ListDetailsByClass returns the filled cells of one class.
func (r *TimetableSlotRepository) ListDetailsByClass(ctx context.Context, classID string) ([]models.TimetableSlotDetail, error) {
	query := slotDetailSelect + ` WHERE ts.class_id = $1 ORDER BY p.sort_order ASC, ts.day_of_week ASC`
	var slots []models.TimetableSlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, classID); err != nil {
		return nil, fmt.Errorf("list class slots: %w", err)
	}
	return slots, nil
}

// ListDetailsBySchool returns every filled cell of a school.
func (r *TimetableSlotRepository) ListDetailsBySchool(ctx context.Context, schoolID string) ([]models.TimetableSlotDetail, error) {
	query := slotDetailSelect + ` WHERE ts.school_id = $1 ORDER BY ts.day_of_week ASC, p.sort_order ASC, c.name ASC`
	var slots []models.TimetableSlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, schoolID); err != nil {
		return nil, fmt.Errorf("list school slots: %w", err)
	}
	return slots, nil
}

// ListDetailsByTeacher returns the cells where the teacher is the effective teacher.
func (r *TimetableSlotRepository) ListDetailsByTeacher(ctx context.Context, schoolID, teacherID string) ([]models.TimetableSlotDetail, error) {
	query := slotDetailSelect + ` WHERE ts.school_id = $1 AND COALESCE(ts.teacher_id, a.teacher_id) = $2 ORDER BY ts.day_of_week ASC, p.sort_order ASC`
	var slots []models.TimetableSlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, schoolID, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher slots: %w", err)
	}
	return slots, nil
}

// Upsert writes one cell, replacing whatever the class held there.
func (r *TimetableSlotRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, slot *models.TimetableSlot) error {
	target := r.exec(exec)
	now := time.Now().UTC()
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now

	const query = `
INSERT INTO timetable_slots (id, school_id, class_id, period_id, day_of_week, class_subject_id, teacher_id, room_number, created_at, updated_at)
VALUES (:id, :school_id, :class_id, :period_id, :day_of_week, :class_subject_id, :teacher_id, :room_number, :created_at, :updated_at)
ON CONFLICT (class_id, period_id, day_of_week) DO UPDATE
SET class_subject_id = EXCLUDED.class_subject_id,
    teacher_id = EXCLUDED.teacher_id,
    room_number = EXCLUDED.room_number,
    updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, target, query, slot); err != nil {
		return fmt.Errorf("upsert timetable slot: %w", err)
	}
	return nil
}

// InsertBatch writes freshly generated cells.
func (r *TimetableSlotRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) error {
	if len(slots) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO timetable_slots (id, school_id, class_id, period_id, day_of_week, class_subject_id, teacher_id, room_number, created_at, updated_at)
VALUES (:id, :school_id, :class_id, :period_id, :day_of_week, :class_subject_id, :teacher_id, :room_number, :created_at, :updated_at)`

	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.CreatedAt = now
		slot.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, slot); err != nil {
			return fmt.Errorf("insert timetable slot: %w", err)
		}
	}
	return nil
}

// DeleteCell clears one cell and reports whether a row existed.
func (r *TimetableSlotRepository) DeleteCell(ctx context.Context, exec sqlx.ExtContext, classID, periodID string, dayOfWeek int) (bool, error) {
	const query = `DELETE FROM timetable_slots WHERE class_id = $1 AND period_id = $2 AND day_of_week = $3`
	res, err := r.exec(exec).ExecContext(ctx, query, classID, periodID, dayOfWeek)
	if err != nil {
		return false, fmt.Errorf("delete timetable slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete timetable slot rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteByClass clears every cell of a class.
func (r *TimetableSlotRepository) DeleteByClass(ctx context.Context, exec sqlx.ExtContext, classID string) (int64, error) {
	const query = `DELETE FROM timetable_slots WHERE class_id = $1`
	res, err := r.exec(exec).ExecContext(ctx, query, classID)
	if err != nil {
		return 0, fmt.Errorf("clear class slots: %w", err)
	}
	return res.RowsAffected()
}

// DeleteBySchool clears every cell of a school.
func (r *TimetableSlotRepository) DeleteBySchool(ctx context.Context, exec sqlx.ExtContext, schoolID string) (int64, error) {
	const query = `DELETE FROM timetable_slots WHERE school_id = $1`
	res, err := r.exec(exec).ExecContext(ctx, query, schoolID)
	if err != nil {
		return 0, fmt.Errorf("clear school slots: %w", err)
	}
	return res.RowsAffected()
}

// DeleteByPeriods clears cells on the given periods, used when periods turn into breaks.
func (r *TimetableSlotRepository) DeleteByPeriods(ctx context.Context, exec sqlx.ExtContext, periodIDs []string) (int64, error) {
	if len(periodIDs) == 0 {
		return 0, nil
	}
	const query = `DELETE FROM timetable_slots WHERE period_id = ANY($1)`
	res, err := r.exec(exec).ExecContext(ctx, query, pq.Array(periodIDs))
	if err != nil {
		return 0, fmt.Errorf("clear period slots: %w", err)
	}
	return res.RowsAffected()
}
