package models

import "time"

// Teacher represents an instructor record.
type Teacher struct {
	ID        string     `db:"id" json:"id"`
	SchoolID  string     `db:"school_id" json:"school_id"`
	FullName  string     `db:"full_name" json:"full_name"`
	Email     string     `db:"email" json:"email"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
