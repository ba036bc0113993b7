package models

import "time"

// Period is one row of a school's daily grid.
type Period struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Name      string    `db:"name" json:"name"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Order     int       `db:"sort_order" json:"order"`
	IsBreak   bool      `db:"is_break" json:"is_break"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolSettings holds timetable tuning values for a school.
type SchoolSettings struct {
	SchoolID              string    `db:"school_id" json:"school_id"`
	PeriodDurationMinutes int       `db:"period_duration_minutes" json:"period_duration_minutes"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}
