package dto

import (
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
)

// PeriodInput describes one catalog row in a bulk replace.
type PeriodInput struct {
	Name      string `json:"name" validate:"required,max=64"`
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"required,datetime=15:04"`
	Order     int    `json:"order" validate:"min=1"`
	IsBreak   bool   `json:"isBreak"`
}

// ReplacePeriodsRequest replaces a school's whole period catalog.
type ReplacePeriodsRequest struct {
	Periods []PeriodInput `json:"periods" validate:"required,min=1,dive"`
}

// UpdateSettingsRequest changes the representative period duration.
type UpdateSettingsRequest struct {
	PeriodDurationMinutes int `json:"periodDurationMinutes" validate:"required,min=1,max=240"`
}

// SettingsResponse exposes timetable settings. Source is "school" when the
// school stored its own value and "default" otherwise.
type SettingsResponse struct {
	PeriodDurationMinutes int    `json:"periodDurationMinutes"`
	WorkingDays           []int  `json:"workingDays"`
	Source                string `json:"source"`
}

// AllocationInput is one (subject, teacher, hours) entry for a class.
type AllocationInput struct {
	SubjectID    string  `json:"subjectId" validate:"required"`
	TeacherID    *string `json:"teacherId" validate:"omitempty,min=1"`
	HoursPerWeek float64 `json:"hoursPerWeek" validate:"gte=0,lte=60"`
}

// ReplaceAllocationsRequest replaces every allocation of a class. An empty
// list clears them.
type ReplaceAllocationsRequest struct {
	Allocations []AllocationInput `json:"allocations" validate:"dive"`
}

// AllocationsResponse lists a class's allocations with the capacity report.
type AllocationsResponse struct {
	ClassID     string                    `json:"classId"`
	Allocations []models.AllocationDetail `json:"allocations"`
	Validation  scheduler.Validation      `json:"validation"`
}

// GenerateQuery guards destructive regeneration behind explicit confirmation.
type GenerateQuery struct {
	Confirm bool `form:"confirm"`
}

// ClassGenerationSummary reports one class within a generation run.
type ClassGenerationSummary struct {
	ClassID      string `json:"classId"`
	ClassName    string `json:"className"`
	SlotsCreated int    `json:"slotsCreated"`
	Unplaced     int    `json:"unplaced"`
	Skipped      int    `json:"skippedAllocations"`
	Message      string `json:"message"`
}

// GenerationResult is returned by single class and whole school generation.
// Shortfalls are reported through Unplaced and Message, never as errors.
type GenerationResult struct {
	Success            bool                     `json:"success"`
	Message            string                   `json:"message"`
	SlotsCreated       int                      `json:"slotsCreated"`
	Unplaced           int                      `json:"unplaced"`
	SkippedAllocations int                      `json:"skippedAllocations"`
	Classes            []ClassGenerationSummary `json:"classes,omitempty"`
	DurationMs         int64                    `json:"durationMs"`
}

// ConflictReport is the auditor output for a school.
type ConflictReport struct {
	SchoolID  string               `json:"schoolId"`
	Conflicts []scheduler.Conflict `json:"conflicts"`
	SlotCount int                  `json:"slotCount"`
	CheckedAt time.Time            `json:"checkedAt"`
}

// UpsertSlotRequest writes one cell of a class grid. Leaving ClassSubjectID
// empty clears the cell.
type UpsertSlotRequest struct {
	PeriodID       string  `json:"periodId" validate:"required"`
	DayOfWeek      int     `json:"dayOfWeek" validate:"min=0,max=6"`
	ClassSubjectID *string `json:"classSubjectId" validate:"omitempty,min=1"`
	TeacherID      *string `json:"teacherId" validate:"omitempty,min=1"`
	RoomNumber     *string `json:"roomNumber" validate:"omitempty,max=32"`
}

// DeleteSlotRequest addresses one cell to clear.
type DeleteSlotRequest struct {
	PeriodID  string `form:"periodId" json:"periodId" validate:"required"`
	DayOfWeek int    `form:"dayOfWeek" json:"dayOfWeek" validate:"min=0,max=6"`
}

// SlotEditResult reports a manual edit. Slot is nil when the cell was cleared.
type SlotEditResult struct {
	Slot        *models.TimetableSlot `json:"slot"`
	Cleared     bool                  `json:"cleared"`
	AuditQueued bool                  `json:"auditQueued"`
}

// TimetableCell is one filled cell of a rendered grid.
type TimetableCell struct {
	SlotID         string  `json:"slotId"`
	DayOfWeek      int     `json:"dayOfWeek"`
	ClassSubjectID *string `json:"classSubjectId,omitempty"`
	SubjectName    *string `json:"subjectName,omitempty"`
	TeacherID      *string `json:"teacherId,omitempty"`
	TeacherName    *string `json:"teacherName,omitempty"`
	RoomNumber     *string `json:"roomNumber,omitempty"`
}

// TimetableRow is one period of a rendered grid. Cells holds one entry per
// working day, Monday first; empty cells are null.
type TimetableRow struct {
	PeriodID  string           `json:"periodId"`
	Name      string           `json:"name"`
	StartTime string           `json:"startTime"`
	EndTime   string           `json:"endTime"`
	Order     int              `json:"order"`
	IsBreak   bool             `json:"isBreak"`
	Cells     []*TimetableCell `json:"cells"`
}

// ClassTimetable is the read model of one class grid.
type ClassTimetable struct {
	ClassID   string         `json:"classId"`
	ClassName string         `json:"className"`
	Days      []int          `json:"days"`
	Rows      []TimetableRow `json:"rows"`
}

// TeacherTimetableEntry is one cell taught by a teacher.
type TeacherTimetableEntry struct {
	ClassID     string  `json:"classId"`
	ClassName   string  `json:"className"`
	PeriodID    string  `json:"periodId"`
	PeriodName  string  `json:"periodName"`
	PeriodOrder int     `json:"periodOrder"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	DayOfWeek   int     `json:"dayOfWeek"`
	SubjectName *string `json:"subjectName,omitempty"`
	RoomNumber  *string `json:"roomNumber,omitempty"`
}

// TeacherTimetable lists every cell where the teacher is the effective teacher.
type TeacherTimetable struct {
	TeacherID   string                  `json:"teacherId"`
	TeacherName string                  `json:"teacherName"`
	Entries     []TeacherTimetableEntry `json:"entries"`
}

// ExportQuery selects the export format.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
