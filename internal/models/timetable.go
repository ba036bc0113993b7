package models

import "time"

// TimetableSlot is one filled cell of a class grid, keyed by (class, period, weekday).
type TimetableSlot struct {
	ID             string    `db:"id" json:"id"`
	SchoolID       string    `db:"school_id" json:"school_id"`
	ClassID        string    `db:"class_id" json:"class_id"`
	PeriodID       string    `db:"period_id" json:"period_id"`
	DayOfWeek      int       `db:"day_of_week" json:"day_of_week"`
	ClassSubjectID *string   `db:"class_subject_id" json:"class_subject_id,omitempty"`
	TeacherID      *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	RoomNumber     *string   `db:"room_number" json:"room_number,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// TimetableSlotDetail is a slot joined with the names a reader needs. The
// effective teacher is the slot override when present, else the allocation teacher.
type TimetableSlotDetail struct {
	TimetableSlot
	ClassName          string  `db:"class_name" json:"class_name"`
	PeriodName         string  `db:"period_name" json:"period_name"`
	PeriodOrder        int     `db:"period_order" json:"period_order"`
	StartTime          string  `db:"start_time" json:"start_time"`
	EndTime            string  `db:"end_time" json:"end_time"`
	SubjectID          *string `db:"subject_id" json:"subject_id,omitempty"`
	SubjectName        *string `db:"subject_name" json:"subject_name,omitempty"`
	EffectiveTeacherID *string `db:"effective_teacher_id" json:"effective_teacher_id,omitempty"`
	TeacherName        *string `db:"teacher_name" json:"teacher_name,omitempty"`
}
