package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type slotReader interface {
	ListDetailsByClass(ctx context.Context, classID string) ([]models.TimetableSlotDetail, error)
	ListDetailsByTeacher(ctx context.Context, schoolID, teacherID string) ([]models.TimetableSlotDetail, error)
}

// TimetableQueryService renders class and teacher timetables.
type TimetableQueryService struct {
	classes  classFinder
	teachers teacherReader
	periods  periodReader
	slots    slotReader
	cache    *CacheService
	logger   *zap.Logger
}

// NewTimetableQueryService constructs the read side.
func NewTimetableQueryService(classes classFinder, teachers teacherReader, periods periodReader, slots slotReader, cache *CacheService, logger *zap.Logger) *TimetableQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableQueryService{classes: classes, teachers: teachers, periods: periods, slots: slots, cache: cache, logger: logger}
}

// ClassTimetable returns the period by weekday grid of a class, breaks included.
func (s *TimetableQueryService) ClassTimetable(ctx context.Context, schoolID, classID string) (*dto.ClassTimetable, error) {
	class, err := findClass(ctx, s.classes, schoolID, classID)
	if err != nil {
		return nil, err
	}

	key := classTimetableKey(schoolID, classID)
	var cached dto.ClassTimetable
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	periods, err := s.periods.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}
	slots, err := s.slots.ListDetailsByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class slots")
	}

	grid := buildClassGrid(class, periods, slots)
	_ = s.cache.Set(ctx, key, grid, 0)
	return grid, nil
}

// TeacherTimetable lists every cell where the teacher is the effective teacher.
func (s *TimetableQueryService) TeacherTimetable(ctx context.Context, schoolID, teacherID string) (*dto.TeacherTimetable, error) {
	teacher, err := s.teachers.FindByID(ctx, schoolID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	key := teacherTimetableKey(schoolID, teacherID)
	var cached dto.TeacherTimetable
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	slots, err := s.slots.ListDetailsByTeacher(ctx, schoolID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher slots")
	}

	resp := &dto.TeacherTimetable{
		TeacherID:   teacher.ID,
		TeacherName: teacher.FullName,
		Entries:     make([]dto.TeacherTimetableEntry, 0, len(slots)),
	}
	for _, slot := range slots {
		resp.Entries = append(resp.Entries, dto.TeacherTimetableEntry{
			ClassID:     slot.ClassID,
			ClassName:   slot.ClassName,
			PeriodID:    slot.PeriodID,
			PeriodName:  slot.PeriodName,
			PeriodOrder: slot.PeriodOrder,
			StartTime:   slot.StartTime,
			EndTime:     slot.EndTime,
			DayOfWeek:   slot.DayOfWeek,
			SubjectName: slot.SubjectName,
			RoomNumber:  slot.RoomNumber,
		})
	}
	_ = s.cache.Set(ctx, key, resp, 0)
	return resp, nil
}

func buildClassGrid(class *models.Class, periods []models.Period, slots []models.TimetableSlotDetail) *dto.ClassTimetable {
	type cellKey struct {
		periodID string
		day      int
	}
	filled := make(map[cellKey]models.TimetableSlotDetail, len(slots))
	for _, slot := range slots {
		filled[cellKey{slot.PeriodID, slot.DayOfWeek}] = slot
	}

	grid := &dto.ClassTimetable{
		ClassID:   class.ID,
		ClassName: class.Name,
		Days:      append([]int(nil), scheduler.Weekdays...),
		Rows:      make([]dto.TimetableRow, 0, len(periods)),
	}
	for _, p := range periods {
		row := dto.TimetableRow{
			PeriodID:  p.ID,
			Name:      p.Name,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
			Order:     p.Order,
			IsBreak:   p.IsBreak,
			Cells:     make([]*dto.TimetableCell, len(scheduler.Weekdays)),
		}
		if !p.IsBreak {
			for i, day := range scheduler.Weekdays {
				slot, ok := filled[cellKey{p.ID, day}]
				if !ok {
					continue
				}
				row.Cells[i] = &dto.TimetableCell{
					SlotID:         slot.ID,
					DayOfWeek:      day,
					ClassSubjectID: slot.ClassSubjectID,
					SubjectName:    slot.SubjectName,
					TeacherID:      slot.EffectiveTeacherID,
					TeacherName:    slot.TeacherName,
					RoomNumber:     slot.RoomNumber,
				}
			}
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}
