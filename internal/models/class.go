package models

import "time"

// Class represents a teaching group (grade plus section) within a school.
type Class struct {
	ID         string    `db:"id" json:"id"`
	SchoolID   string    `db:"school_id" json:"school_id"`
	Name       string    `db:"name" json:"name"`
	GradeOrder int       `db:"grade_order" json:"grade_order"`
	Section    string    `db:"section" json:"section"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ClassSubjectAllocation pairs a class with a subject and its weekly time budget.
type ClassSubjectAllocation struct {
	ID           string    `db:"id" json:"id"`
	ClassID      string    `db:"class_id" json:"class_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	TeacherID    *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	HoursPerWeek float64   `db:"hours_per_week" json:"hours_per_week"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// AllocationDetail joins an allocation with its subject and teacher names.
// A nil SubjectName means the subject was removed; a non-nil TeacherID with a
// nil TeacherName means the teacher was removed.
type AllocationDetail struct {
	ClassSubjectAllocation
	SubjectName *string `db:"subject_name" json:"subject_name,omitempty"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// Orphaned reports whether the allocation points at a removed subject or teacher.
func (a AllocationDetail) Orphaned() bool {
	if a.SubjectName == nil {
		return true
	}
	return a.TeacherID != nil && a.TeacherName == nil
}
