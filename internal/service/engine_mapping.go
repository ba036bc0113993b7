package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type classFinder interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.Class, error)
}

// findClass is the one hard failure of the timetable operations: a class
// that does not exist in the caller's school.
func findClass(ctx context.Context, classes classFinder, schoolID, classID string) (*models.Class, error) {
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id is required")
	}
	class, err := classes.FindByID(ctx, schoolID, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

func toEnginePeriods(periods []models.Period) []scheduler.Period {
	result := make([]scheduler.Period, 0, len(periods))
	for _, p := range periods {
		result = append(result, scheduler.Period{ID: p.ID, Order: p.Order, IsBreak: p.IsBreak})
	}
	return result
}

func toEngineAllocations(items []models.AllocationDetail) []scheduler.Allocation {
	result := make([]scheduler.Allocation, 0, len(items))
	for _, a := range items {
		result = append(result, scheduler.Allocation{
			ID:           a.ID,
			SubjectID:    a.SubjectID,
			TeacherID:    deref(a.TeacherID),
			HoursPerWeek: a.HoursPerWeek,
			Orphaned:     a.Orphaned(),
		})
	}
	return result
}

func toSeededSlots(slots []models.TimetableSlotDetail) []scheduler.SeededSlot {
	result := make([]scheduler.SeededSlot, 0, len(slots))
	for _, s := range slots {
		result = append(result, scheduler.SeededSlot{
			ClassID:   s.ClassID,
			TeacherID: deref(s.EffectiveTeacherID),
			Cell:      scheduler.Cell{PeriodID: s.PeriodID, DayOfWeek: s.DayOfWeek},
		})
	}
	return result
}

func toAuditSlots(slots []models.TimetableSlotDetail) []scheduler.AuditSlot {
	result := make([]scheduler.AuditSlot, 0, len(slots))
	for _, s := range slots {
		result = append(result, scheduler.AuditSlot{
			ClassID:     s.ClassID,
			ClassName:   s.ClassName,
			SubjectName: deref(s.SubjectName),
			TeacherID:   deref(s.EffectiveTeacherID),
			TeacherName: deref(s.TeacherName),
			PeriodID:    s.PeriodID,
			PeriodOrder: s.PeriodOrder,
			DayOfWeek:   s.DayOfWeek,
		})
	}
	return result
}

func toSlotRecords(schoolID string, res scheduler.ClassResult) []models.TimetableSlot {
	records := make([]models.TimetableSlot, 0, len(res.Placements))
	for _, p := range res.Placements {
		allocationID := p.AllocationID
		records = append(records, models.TimetableSlot{
			SchoolID:       schoolID,
			ClassID:        res.ClassID,
			PeriodID:       p.PeriodID,
			DayOfWeek:      p.DayOfWeek,
			ClassSubjectID: &allocationID,
			TeacherID:      optional(p.TeacherID),
		})
	}
	return records
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
