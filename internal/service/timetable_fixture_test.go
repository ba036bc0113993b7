package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

const testSchool = "school-1"

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type classStoreStub struct {
	classes []models.Class
}

func (s *classStoreStub) FindByID(ctx context.Context, schoolID, id string) (*models.Class, error) {
	for _, c := range s.classes {
		if c.ID == id && c.SchoolID == schoolID {
			class := c
			return &class, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *classStoreStub) ListBySchool(ctx context.Context, schoolID string) ([]models.Class, error) {
	var result []models.Class
	for _, c := range s.classes {
		if c.SchoolID == schoolID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (s *classStoreStub) name(id string) string {
	for _, c := range s.classes {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

type subjectStoreStub struct {
	subjects map[string]models.Subject
}

func (s *subjectStoreStub) FindByID(ctx context.Context, schoolID, id string) (*models.Subject, error) {
	subject, ok := s.subjects[id]
	if !ok || subject.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	return &subject, nil
}

type teacherStoreStub struct {
	teachers map[string]models.Teacher
}

func (s *teacherStoreStub) FindByID(ctx context.Context, schoolID, id string) (*models.Teacher, error) {
	teacher, ok := s.teachers[id]
	if !ok || teacher.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	return &teacher, nil
}

type periodStoreStub struct {
	periods  []models.Period
	replaced []models.Period
	err      error
}

func (s *periodStoreStub) ListBySchool(ctx context.Context, schoolID string) ([]models.Period, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.Period(nil), s.periods...), nil
}

func (s *periodStoreStub) FindByID(ctx context.Context, schoolID, id string) (*models.Period, error) {
	for _, p := range s.periods {
		if p.ID == id {
			period := p
			return &period, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *periodStoreStub) ReplaceForSchool(ctx context.Context, exec sqlx.ExtContext, schoolID string, periods []models.Period) ([]models.Period, error) {
	s.replaced = periods
	next := make([]models.Period, 0, len(periods))
	for _, p := range periods {
		p.ID = fmt.Sprintf("period-%d", p.Order)
		p.SchoolID = schoolID
		next = append(next, p)
	}
	sort.Slice(next, func(i, j int) bool { return next[i].Order < next[j].Order })
	s.periods = next
	return append([]models.Period(nil), next...), nil
}

type allocationStoreStub struct {
	items    []models.AllocationDetail
	subjects *subjectStoreStub
	teachers *teacherStoreStub
}

func (s *allocationStoreStub) ListDetailsByClass(ctx context.Context, classID string) ([]models.AllocationDetail, error) {
	var result []models.AllocationDetail
	for _, a := range s.items {
		if a.ClassID == classID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (s *allocationStoreStub) ListDetailsBySchool(ctx context.Context, schoolID string) ([]models.AllocationDetail, error) {
	return append([]models.AllocationDetail(nil), s.items...), nil
}

func (s *allocationStoreStub) FindDetailByID(ctx context.Context, classID, id string) (*models.AllocationDetail, error) {
	for _, a := range s.items {
		if a.ID == id && a.ClassID == classID {
			item := a
			return &item, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *allocationStoreStub) ReplaceForClass(ctx context.Context, exec sqlx.ExtContext, classID string, items []models.ClassSubjectAllocation) error {
	kept := make([]models.AllocationDetail, 0, len(s.items))
	for _, a := range s.items {
		if a.ClassID != classID {
			kept = append(kept, a)
		}
	}
	for i, item := range items {
		item.ID = fmt.Sprintf("%s-alloc-%d", classID, i+1)
		item.ClassID = classID
		kept = append(kept, s.detail(item))
	}
	s.items = kept
	return nil
}

func (s *allocationStoreStub) add(item models.ClassSubjectAllocation) {
	s.items = append(s.items, s.detail(item))
}

func (s *allocationStoreStub) detail(item models.ClassSubjectAllocation) models.AllocationDetail {
	d := models.AllocationDetail{ClassSubjectAllocation: item}
	if subject, ok := s.subjects.subjects[item.SubjectID]; ok {
		name := subject.Name
		d.SubjectName = &name
	}
	if item.TeacherID != nil {
		if teacher, ok := s.teachers.teachers[*item.TeacherID]; ok {
			name := teacher.FullName
			d.TeacherName = &name
		}
	}
	return d
}

func (s *allocationStoreStub) find(id string) (models.AllocationDetail, bool) {
	for _, a := range s.items {
		if a.ID == id {
			return a, true
		}
	}
	return models.AllocationDetail{}, false
}

// slotStoreStub keeps slots in memory and joins details the way the SQL
// repository does.
type slotStoreStub struct {
	mu          sync.Mutex
	slots       []models.TimetableSlot
	classes     *classStoreStub
	periods     *periodStoreStub
	allocations *allocationStoreStub
	teachers    *teacherStoreStub
	seq         int
}

func (s *slotStoreStub) details(filter func(models.TimetableSlotDetail) bool) []models.TimetableSlotDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.TimetableSlotDetail
	for _, slot := range s.slots {
		d := models.TimetableSlotDetail{TimetableSlot: slot, ClassName: s.classes.name(slot.ClassID)}
		if p, err := s.periods.FindByID(context.Background(), slot.SchoolID, slot.PeriodID); err == nil {
			d.PeriodName, d.PeriodOrder, d.StartTime, d.EndTime = p.Name, p.Order, p.StartTime, p.EndTime
		}
		d.EffectiveTeacherID = slot.TeacherID
		if slot.ClassSubjectID != nil {
			if a, ok := s.allocations.find(*slot.ClassSubjectID); ok {
				subjectID := a.SubjectID
				d.SubjectID = &subjectID
				d.SubjectName = a.SubjectName
				if d.EffectiveTeacherID == nil {
					d.EffectiveTeacherID = a.TeacherID
				}
			}
		}
		if d.EffectiveTeacherID != nil {
			if t, ok := s.teachers.teachers[*d.EffectiveTeacherID]; ok {
				name := t.FullName
				d.TeacherName = &name
			}
		}
		if filter(d) {
			result = append(result, d)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].DayOfWeek != result[j].DayOfWeek {
			return result[i].DayOfWeek < result[j].DayOfWeek
		}
		return result[i].PeriodOrder < result[j].PeriodOrder
	})
	return result
}

func (s *slotStoreStub) ListDetailsByClass(ctx context.Context, classID string) ([]models.TimetableSlotDetail, error) {
	return s.details(func(d models.TimetableSlotDetail) bool { return d.ClassID == classID }), nil
}

func (s *slotStoreStub) ListDetailsBySchool(ctx context.Context, schoolID string) ([]models.TimetableSlotDetail, error) {
	return s.details(func(d models.TimetableSlotDetail) bool { return d.SchoolID == schoolID }), nil
}

func (s *slotStoreStub) ListDetailsByTeacher(ctx context.Context, schoolID, teacherID string) ([]models.TimetableSlotDetail, error) {
	return s.details(func(d models.TimetableSlotDetail) bool {
		return d.SchoolID == schoolID && d.EffectiveTeacherID != nil && *d.EffectiveTeacherID == teacherID
	}), nil
}

func (s *slotStoreStub) Upsert(ctx context.Context, exec sqlx.ExtContext, slot *models.TimetableSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.slots {
		if existing.ClassID == slot.ClassID && existing.PeriodID == slot.PeriodID && existing.DayOfWeek == slot.DayOfWeek {
			slot.ID = existing.ID
			s.slots[i] = *slot
			return nil
		}
	}
	s.seq++
	slot.ID = fmt.Sprintf("slot-%d", s.seq)
	s.slots = append(s.slots, *slot)
	return nil
}

func (s *slotStoreStub) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range slots {
		for _, existing := range s.slots {
			if existing.ClassID == slot.ClassID && existing.PeriodID == slot.PeriodID && existing.DayOfWeek == slot.DayOfWeek {
				return fmt.Errorf("duplicate cell %s/%s/%d", slot.ClassID, slot.PeriodID, slot.DayOfWeek)
			}
		}
		s.seq++
		slot.ID = fmt.Sprintf("slot-%d", s.seq)
		s.slots = append(s.slots, slot)
	}
	return nil
}

func (s *slotStoreStub) DeleteCell(ctx context.Context, exec sqlx.ExtContext, classID, periodID string, dayOfWeek int) (bool, error) {
	removed := s.remove(func(slot models.TimetableSlot) bool {
		return slot.ClassID == classID && slot.PeriodID == periodID && slot.DayOfWeek == dayOfWeek
	})
	return removed > 0, nil
}

func (s *slotStoreStub) DeleteByClass(ctx context.Context, exec sqlx.ExtContext, classID string) (int64, error) {
	return s.remove(func(slot models.TimetableSlot) bool { return slot.ClassID == classID }), nil
}

func (s *slotStoreStub) DeleteBySchool(ctx context.Context, exec sqlx.ExtContext, schoolID string) (int64, error) {
	return s.remove(func(slot models.TimetableSlot) bool { return slot.SchoolID == schoolID }), nil
}

func (s *slotStoreStub) DeleteByPeriods(ctx context.Context, exec sqlx.ExtContext, periodIDs []string) (int64, error) {
	ids := make(map[string]struct{}, len(periodIDs))
	for _, id := range periodIDs {
		ids[id] = struct{}{}
	}
	return s.remove(func(slot models.TimetableSlot) bool {
		_, ok := ids[slot.PeriodID]
		return ok
	}), nil
}

func (s *slotStoreStub) remove(match func(models.TimetableSlot) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.slots[:0]
	var removed int64
	for _, slot := range s.slots {
		if match(slot) {
			removed++
			continue
		}
		kept = append(kept, slot)
	}
	s.slots = kept
	return removed
}

func (s *slotStoreStub) count(classID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, slot := range s.slots {
		if slot.ClassID == classID {
			n++
		}
	}
	return n
}

type settingsStoreStub struct {
	settings *models.SchoolSettings
	err      error
}

func (s *settingsStoreStub) Get(ctx context.Context, schoolID string) (*models.SchoolSettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.settings == nil {
		return nil, sql.ErrNoRows
	}
	return s.settings, nil
}

func (s *settingsStoreStub) Upsert(ctx context.Context, settings *models.SchoolSettings) error {
	if s.err != nil {
		return s.err
	}
	s.settings = settings
	return nil
}

type auditQueueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *auditQueueStub) Enqueue(job jobs.Job) (bool, error) {
	if q.err != nil {
		return false, q.err
	}
	q.jobs = append(q.jobs, job)
	return true, nil
}

// timetableFixture wires in-memory stores for one school.
type timetableFixture struct {
	classes     *classStoreStub
	subjects    *subjectStoreStub
	teachers    *teacherStoreStub
	periods     *periodStoreStub
	allocations *allocationStoreStub
	slots       *slotStoreStub
	settings    *SettingsService
	locker      *MemoryLocker
	metrics     *MetricsService
}

func newTimetableFixture(teachingPeriods int) *timetableFixture {
	classes := &classStoreStub{}
	subjects := &subjectStoreStub{subjects: map[string]models.Subject{}}
	teachers := &teacherStoreStub{teachers: map[string]models.Teacher{}}
	periods := &periodStoreStub{}
	for i := 1; i <= teachingPeriods; i++ {
		start := time.Date(0, 1, 1, 7, 0, 0, 0, time.UTC).Add(time.Duration(i-1) * 45 * time.Minute)
		periods.periods = append(periods.periods, models.Period{
			ID:        fmt.Sprintf("period-%d", i),
			SchoolID:  testSchool,
			Name:      fmt.Sprintf("Period %d", i),
			StartTime: start.Format("15:04"),
			EndTime:   start.Add(45 * time.Minute).Format("15:04"),
			Order:     i,
		})
	}
	allocations := &allocationStoreStub{subjects: subjects, teachers: teachers}
	slots := &slotStoreStub{classes: classes, periods: periods, allocations: allocations, teachers: teachers}
	return &timetableFixture{
		classes:     classes,
		subjects:    subjects,
		teachers:    teachers,
		periods:     periods,
		allocations: allocations,
		slots:       slots,
		settings:    NewSettingsService(&settingsStoreStub{}, nil, 45, nil, nil),
		locker:      NewMemoryLocker(200*time.Millisecond, time.Millisecond),
		metrics:     NewMetricsService(),
	}
}

func (f *timetableFixture) addClass(id, name string, grade int, section string) {
	f.classes.classes = append(f.classes.classes, models.Class{ID: id, SchoolID: testSchool, Name: name, GradeOrder: grade, Section: section})
}

func (f *timetableFixture) addSubject(id, name string) {
	f.subjects.subjects[id] = models.Subject{ID: id, SchoolID: testSchool, Name: name}
}

func (f *timetableFixture) addTeacher(id, name string) {
	f.teachers.teachers[id] = models.Teacher{ID: id, SchoolID: testSchool, FullName: name}
}

// allocate adds an allocation whose hours map to exactly periods at 45 minutes.
func (f *timetableFixture) allocate(id, classID, subjectID, teacherID string, periods int) {
	var teacher *string
	if teacherID != "" {
		teacher = &teacherID
	}
	f.allocations.add(models.ClassSubjectAllocation{
		ID:           id,
		ClassID:      classID,
		SubjectID:    subjectID,
		TeacherID:    teacher,
		HoursPerWeek: float64(periods) * 0.75,
	})
}

func (f *timetableFixture) generator(tx txProvider) *TimetableGeneratorService {
	return NewTimetableGeneratorService(f.classes, f.periods, f.allocations, f.slots, f.settings, tx, f.locker, nil, f.metrics, nil)
}

func (f *timetableFixture) auditor() *ConflictAuditService {
	return NewConflictAuditService(f.slots, nil, f.metrics, nil)
}

func strPtr(v string) *string {
	return &v
}
