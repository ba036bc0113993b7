package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestTimetableGeneratorServiceSimpleClass(t *testing.T) {
	f := newTimetableFixture(6)
	f.addClass("class-a", "X-A", 10, "A")
	f.addSubject("math", "Math")
	f.addSubject("english", "English")
	f.addTeacher("t1", "Teacher One")
	f.addTeacher("t2", "Teacher Two")
	f.allocate("alloc-math", "class-a", "math", "t1", 5)
	f.allocate("alloc-english", "class-a", "english", "t2", 5)

	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	res, err := f.generator(tx).GenerateClass(context.Background(), testSchool, "class-a")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 10, res.SlotsCreated)
	assert.Equal(t, 0, res.Unplaced)
	assert.Equal(t, 10, f.slots.count("class-a"))

	perDay := map[string]map[int]int{}
	details, err := f.slots.ListDetailsByClass(context.Background(), "class-a")
	require.NoError(t, err)
	for _, d := range details {
		require.NotNil(t, d.SubjectName)
		if perDay[*d.SubjectName] == nil {
			perDay[*d.SubjectName] = map[int]int{}
		}
		perDay[*d.SubjectName][d.DayOfWeek]++
	}
	for _, subject := range []string{"Math", "English"} {
		for day := 1; day <= 5; day++ {
			assert.Equal(t, 1, perDay[subject][day], "%s on day %d", subject, day)
		}
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableGeneratorServiceMissingClass(t *testing.T) {
	f := newTimetableFixture(6)
	tx, _ := newTxProviderMock(t)

	_, err := f.generator(tx).GenerateClass(context.Background(), testSchool, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTimetableGeneratorServiceRegenerationIsIdempotent(t *testing.T) {
	f := newTimetableFixture(6)
	f.addClass("class-a", "X-A", 10, "A")
	f.addSubject("math", "Math")
	f.addTeacher("t1", "Teacher One")
	f.allocate("alloc-math", "class-a", "math", "t1", 7)

	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc := f.generator(tx)

	first, err := svc.GenerateClass(context.Background(), testSchool, "class-a")
	require.NoError(t, err)
	firstCells := occupiedCells(t, f, "class-a")

	second, err := svc.GenerateClass(context.Background(), testSchool, "class-a")
	require.NoError(t, err)

	assert.Equal(t, first.SlotsCreated, second.SlotsCreated)
	assert.Equal(t, firstCells, occupiedCells(t, f, "class-a"))
	assert.Equal(t, 7, f.slots.count("class-a"))
}

func TestTimetableGeneratorServiceAvoidsTeachersBusyElsewhere(t *testing.T) {
	f := newTimetableFixture(1)
	f.addClass("class-a", "X-A", 10, "A")
	f.addClass("class-b", "X-B", 10, "B")
	f.addSubject("math", "Math")
	f.addTeacher("t1", "Teacher One")
	f.allocate("a-math", "class-a", "math", "t1", 5)
	f.allocate("b-math", "class-b", "math", "t1", 5)

	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc := f.generator(tx)

	_, err := svc.GenerateClass(context.Background(), testSchool, "class-a")
	require.NoError(t, err)
	res, err := svc.GenerateClass(context.Background(), testSchool, "class-b")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 0, res.SlotsCreated)
	assert.Equal(t, 5, res.Unplaced)
	assert.Contains(t, res.Message, "could not be placed")

	report, err := f.auditor().Check(context.Background(), testSchool)
	require.NoError(t, err)
	assert.Empty(t, report.Conflicts)
}

func TestTimetableGeneratorServiceGenerateAllSharesOccupancy(t *testing.T) {
	f := newTimetableFixture(5)
	f.addClass("class-b", "X-B", 10, "B")
	f.addClass("class-a", "X-A", 10, "A")
	f.addSubject("math", "Math")
	f.addTeacher("t1", "Teacher One")
	f.allocate("b-math", "class-b", "math", "t1", 5)
	f.allocate("a-math", "class-a", "math", "t1", 5)

	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	res, err := f.generator(tx).GenerateAll(context.Background(), testSchool)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 10, res.SlotsCreated)
	assert.Equal(t, 0, res.Unplaced)
	require.Len(t, res.Classes, 2)
	assert.Equal(t, "class-a", res.Classes[0].ClassID)
	assert.Equal(t, "X-A", res.Classes[0].ClassName)

	report, err := f.auditor().Check(context.Background(), testSchool)
	require.NoError(t, err)
	assert.Empty(t, report.Conflicts)
	assert.Equal(t, 10, report.SlotCount)
	assert.Equal(t, float64(10), testutil.ToFloat64(f.metrics.slotsCreated.WithLabelValues(GenerationScopeSchool)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableGeneratorServiceGenerateAllReportsShortfall(t *testing.T) {
	f := newTimetableFixture(1)
	f.addClass("class-a", "X-A", 10, "A")
	f.addClass("class-b", "X-B", 10, "B")
	f.addSubject("math", "Math")
	f.addTeacher("t1", "Teacher One")
	f.allocate("a-math", "class-a", "math", "t1", 5)
	f.allocate("b-math", "class-b", "math", "t1", 5)

	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	res, err := f.generator(tx).GenerateAll(context.Background(), testSchool)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 5, res.SlotsCreated)
	assert.Equal(t, 5, res.Unplaced)
	assert.Equal(t, 5, f.slots.count("class-a"))
	assert.Equal(t, 0, f.slots.count("class-b"))
}

func TestTimetableGeneratorServiceHonoursSchoolLock(t *testing.T) {
	f := newTimetableFixture(5)
	f.addClass("class-a", "X-A", 10, "A")
	tx, _ := newTxProviderMock(t)

	release, err := f.locker.LockSchool(context.Background(), testSchool)
	require.NoError(t, err)
	defer release()

	_, err = f.generator(tx).GenerateAll(context.Background(), testSchool)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrLocked)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.lockTimeouts.WithLabelValues(GenerationScopeSchool)))
}

func TestTimetableGeneratorServiceRollsBackOnWriteFailure(t *testing.T) {
	f := newTimetableFixture(5)
	f.addClass("class-a", "X-A", 10, "A")
	f.addSubject("math", "Math")
	f.addTeacher("t1", "Teacher One")
	f.allocate("a-math", "class-a", "math", "t1", 2)

	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	svc := NewTimetableGeneratorService(f.classes, f.periods, f.allocations, failingSlotWriter{f.slots}, f.settings, tx, f.locker, nil, nil, nil)
	_, err := svc.GenerateClass(context.Background(), testSchool, "class-a")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	require.NoError(t, mock.ExpectationsWereMet())
}

type failingSlotWriter struct {
	*slotStoreStub
}

func (failingSlotWriter) DeleteByClass(ctx context.Context, exec sqlx.ExtContext, classID string) (int64, error) {
	return 0, errors.New("connection reset")
}

func occupiedCells(t *testing.T, f *timetableFixture, classID string) map[string]struct{} {
	t.Helper()
	details, err := f.slots.ListDetailsByClass(context.Background(), classID)
	require.NoError(t, err)
	cells := make(map[string]struct{}, len(details))
	for _, d := range details {
		cells[fmt.Sprintf("%s/%d", d.PeriodID, d.DayOfWeek)] = struct{}{}
	}
	return cells
}

func TestTimetableGeneratorServiceGenerateAllResetsConflictGauge(t *testing.T) {
	f := newTimetableFixture(5)
	f.addClass("class-a", "X-A", 10, "A")
	f.addClass("class-b", "X-B", 10, "B")
	f.addSubject("math", "Math")
	f.addTeacher("t1", "Teacher One")
	f.allocate("a-math", "class-a", "math", "t1", 3)
	f.allocate("b-math", "class-b", "math", "t1", 3)
	f.metrics.SetTeacherConflicts(testSchool, 3)

	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	_, err := f.generator(tx).GenerateAll(context.Background(), testSchool)
	require.NoError(t, err)

	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.teacherConflicts.WithLabelValues(testSchool)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableGeneratorServiceGenerateClassPublishesRemainingConflicts(t *testing.T) {
	f := newTimetableFixture(5)
	f.addClass("class-a", "X-A", 10, "A")
	f.addClass("class-b", "X-B", 10, "B")
	f.addClass("class-c", "X-C", 10, "C")
	f.addSubject("math", "Math")
	f.addSubject("art", "Art")
	f.addTeacher("t1", "Teacher One")
	f.addTeacher("t2", "Teacher Two")
	f.allocate("a-math", "class-a", "math", "t2", 5)
	f.allocate("b-art", "class-b", "art", "t1", 1)
	f.allocate("c-art", "class-c", "art", "t1", 1)

	edits := NewSlotEditService(f.classes, f.periods, f.allocations, f.teachers, f.slots, f.locker, nil, nil, nil, nil)
	for classID, allocationID := range map[string]string{"class-b": "b-art", "class-c": "c-art"} {
		_, err := edits.UpsertSlot(context.Background(), testSchool, classID, dto.UpsertSlotRequest{
			PeriodID: "period-1", DayOfWeek: 1, ClassSubjectID: strPtr(allocationID),
		})
		require.NoError(t, err)
	}

	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc := f.generator(tx)

	_, err := svc.GenerateClass(context.Background(), testSchool, "class-a")
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.teacherConflicts.WithLabelValues(testSchool)))

	_, err = edits.DeleteSlot(context.Background(), testSchool, "class-c", dto.DeleteSlotRequest{PeriodID: "period-1", DayOfWeek: 1})
	require.NoError(t, err)
	_, err = svc.GenerateClass(context.Background(), testSchool, "class-a")
	require.NoError(t, err)
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.teacherConflicts.WithLabelValues(testSchool)))
	require.NoError(t, mock.ExpectationsWereMet())
}
