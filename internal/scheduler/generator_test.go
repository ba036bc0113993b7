package scheduler

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hoursFor returns the weekly hours that convert to exactly n periods of 45 minutes.
func hoursFor(n int) float64 {
	return float64(n) * 45 / 60
}

func TestGenerateClassSimpleScenario(t *testing.T) {
	in := ClassInput{
		ClassID: "10A",
		Allocations: []Allocation{
			{ID: "math", SubjectID: "math", TeacherID: "T1", HoursPerWeek: hoursFor(5)},
			{ID: "eng", SubjectID: "eng", TeacherID: "T2", HoursPerWeek: hoursFor(5)},
		},
	}
	res := GenerateClass(in, catalog(6), 45, NewOccupancy())

	assert.Equal(t, 10, res.SlotsCreated())
	assert.Equal(t, 0, res.Unplaced)
	perDay := map[string]map[int]int{}
	for _, p := range res.Placements {
		if perDay[p.SubjectID] == nil {
			perDay[p.SubjectID] = map[int]int{}
		}
		perDay[p.SubjectID][p.DayOfWeek]++
	}
	for _, subject := range []string{"math", "eng"} {
		for _, day := range Weekdays {
			assert.Equal(t, 1, perDay[subject][day], "%s on day %d", subject, day)
		}
	}
	assert.Equal(t, "generated 10 slots", res.Message)
}

func TestGenerateClassOrdersByDemandThenInsertion(t *testing.T) {
	in := ClassInput{
		ClassID: "10A",
		Allocations: []Allocation{
			{ID: "art", SubjectID: "art", HoursPerWeek: hoursFor(1)},
			{ID: "bio", SubjectID: "bio", HoursPerWeek: hoursFor(2)},
			{ID: "chem", SubjectID: "chem", HoursPerWeek: hoursFor(2)},
		},
	}
	res := GenerateClass(in, catalog(2), 45, nil)
	require.Len(t, res.Placements, 5)

	got := make([]string, 0, len(res.Placements))
	for _, p := range res.Placements {
		got = append(got, p.AllocationID)
	}
	assert.Equal(t, []string{"bio", "bio", "chem", "chem", "art"}, got)
	assert.Equal(t, Cell{PeriodID: "p1", DayOfWeek: 1}, res.Placements[0].Cell)
	assert.Equal(t, Cell{PeriodID: "p1", DayOfWeek: 5}, res.Placements[4].Cell)
}

func TestGenerateClassRespectsSeededOccupancy(t *testing.T) {
	occ := NewOccupancy()
	occ.Seed([]SeededSlot{{ClassID: "10B", TeacherID: "T1", Cell: Cell{PeriodID: "p1", DayOfWeek: 1}}}, "10A")

	res := GenerateClass(ClassInput{
		ClassID:     "10A",
		Allocations: []Allocation{{ID: "math", TeacherID: "T1", HoursPerWeek: hoursFor(1)}},
	}, catalog(1), 45, occ)

	require.Len(t, res.Placements, 1)
	assert.Equal(t, Cell{PeriodID: "p1", DayOfWeek: 2}, res.Placements[0].Cell)
}

func TestGenerateClassCountsUnplacedAndSkipsOrphans(t *testing.T) {
	in := ClassInput{
		ClassID: "10A",
		Allocations: []Allocation{
			{ID: "math", TeacherID: "T1", HoursPerWeek: hoursFor(7)},
			{ID: "gone", TeacherID: "T9", HoursPerWeek: hoursFor(2), Orphaned: true},
		},
	}
	res := GenerateClass(in, catalog(1), 45, NewOccupancy())
	assert.Equal(t, 5, res.SlotsCreated())
	assert.Equal(t, 2, res.Unplaced)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 7, res.Demand)
	assert.Contains(t, res.Message, "2 periods could not be placed")
	assert.Contains(t, res.Message, "1 allocations skipped")
}

func TestGenerateClassWithoutInputs(t *testing.T) {
	res := GenerateClass(ClassInput{ClassID: "10A"}, catalog(6), 45, nil)
	assert.Equal(t, 0, res.SlotsCreated())
	assert.Contains(t, res.Message, "nothing to schedule")

	res = GenerateClass(ClassInput{
		ClassID:     "10A",
		Allocations: []Allocation{{ID: "math", HoursPerWeek: hoursFor(3)}},
	}, []Period{{ID: "brk", IsBreak: true}}, 45, nil)
	assert.Equal(t, 0, res.SlotsCreated())
	assert.Equal(t, 3, res.Unplaced)
	assert.Contains(t, res.Message, "no teaching periods")
}

func TestGenerateClassIsIdempotent(t *testing.T) {
	in := ClassInput{
		ClassID: "10A",
		Allocations: []Allocation{
			{ID: "math", TeacherID: "T1", HoursPerWeek: 4},
			{ID: "eng", TeacherID: "T2", HoursPerWeek: 2.25},
			{ID: "pe", HoursPerWeek: 1.5},
		},
	}
	first := GenerateClass(in, catalog(7, 3), 45, NewOccupancy())
	second := GenerateClass(in, catalog(7, 3), 45, NewOccupancy())
	assert.Equal(t, first.SlotsCreated(), second.SlotsCreated())
	assert.Equal(t, first.Placements, second.Placements)
}

func TestGenerateAllAvoidsCrossClassConflicts(t *testing.T) {
	classes := []ClassInput{
		{ClassID: "b", Name: "10B", GradeOrder: 10, Section: "B", Allocations: []Allocation{{ID: "b-math", TeacherID: "T1", HoursPerWeek: hoursFor(5)}}},
		{ClassID: "a", Name: "10A", GradeOrder: 10, Section: "A", Allocations: []Allocation{{ID: "a-math", TeacherID: "T1", HoursPerWeek: hoursFor(5)}}},
	}
	batch := GenerateAll(classes, catalog(5), 45)

	require.Len(t, batch.Classes, 2)
	assert.Equal(t, "a", batch.Classes[0].ClassID)
	assert.Equal(t, 10, batch.SlotsCreated)
	assert.Equal(t, 0, batch.Unplaced)
	for _, p := range batch.Classes[0].Placements {
		assert.Equal(t, "p1", p.PeriodID)
	}
	for _, p := range batch.Classes[1].Placements {
		assert.Equal(t, "p2", p.PeriodID)
	}
	assert.Empty(t, Audit(AuditPlacements(batch.Classes)))
}

func TestGenerateAllReportsUnplacedWhenGridTooSmall(t *testing.T) {
	classes := []ClassInput{
		{ClassID: "a", GradeOrder: 10, Section: "A", Allocations: []Allocation{{ID: "a-math", TeacherID: "T1", HoursPerWeek: hoursFor(5)}}},
		{ClassID: "b", GradeOrder: 10, Section: "B", Allocations: []Allocation{{ID: "b-math", TeacherID: "T1", HoursPerWeek: hoursFor(5)}}},
	}
	batch := GenerateAll(classes, catalog(1), 45)
	assert.Equal(t, 5, batch.SlotsCreated)
	assert.Equal(t, 5, batch.Unplaced)
	assert.Equal(t, 5, batch.Classes[1].Unplaced)
	assert.Empty(t, Audit(AuditPlacements(batch.Classes)))
	assert.Contains(t, batch.Message, "2 classes")
}

func TestManualEditConflictIsCaughtByAudit(t *testing.T) {
	classes := []ClassInput{
		{ClassID: "a", Name: "10A", GradeOrder: 10, Section: "A", Allocations: []Allocation{{ID: "a-math", SubjectID: "math", TeacherID: "T1", HoursPerWeek: hoursFor(5)}}},
		{ClassID: "b", Name: "10B", GradeOrder: 10, Section: "B", Allocations: []Allocation{{ID: "b-math", SubjectID: "math", TeacherID: "T1", HoursPerWeek: hoursFor(5)}}},
	}
	batch := GenerateAll(classes, catalog(5), 45)
	slots := AuditPlacements(batch.Classes)
	slots = append(slots, AuditSlot{ClassID: "b", ClassName: "b", TeacherID: "T1", PeriodID: "p1", DayOfWeek: 1})

	conflicts := Audit(slots)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "T1", conflicts[0].TeacherID)
	assert.Equal(t, "p1", conflicts[0].PeriodID)
	assert.Equal(t, 1, conflicts[0].DayOfWeek)
	require.Len(t, conflicts[0].Classes, 2)
	assert.Equal(t, "a", conflicts[0].Classes[0].ClassID)
	assert.Equal(t, "b", conflicts[0].Classes[1].ClassID)
}

func TestSortClassesIsStable(t *testing.T) {
	ordered := SortClasses([]ClassInput{
		{ClassID: "3", GradeOrder: 11, Section: "A", Name: "11A"},
		{ClassID: "2", GradeOrder: 10, Section: "B", Name: "10B"},
		{ClassID: "1", GradeOrder: 10, Section: "A", Name: "10A-2"},
		{ClassID: "0", GradeOrder: 10, Section: "A", Name: "10A-1"},
	})
	ids := []string{ordered[0].ClassID, ordered[1].ClassID, ordered[2].ClassID, ordered[3].ClassID}
	assert.Equal(t, []string{"0", "1", "2", "3"}, ids)
}

func TestGenerateAllNeverDoubleBooksTeachers(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			periods := catalog(4+rng.Intn(5), 3)
			teachers := 1 + rng.Intn(6)
			classCount := 1 + rng.Intn(8)
			minutes := []int{35, 40, 45, 60}[rng.Intn(4)]

			classes := make([]ClassInput, 0, classCount)
			for c := 0; c < classCount; c++ {
				subjects := 1 + rng.Intn(6)
				allocs := make([]Allocation, 0, subjects)
				for s := 0; s < subjects; s++ {
					teacher := ""
					if rng.Intn(5) > 0 {
						teacher = fmt.Sprintf("T%d", rng.Intn(teachers))
					}
					allocs = append(allocs, Allocation{
						ID:           fmt.Sprintf("c%d-s%d", c, s),
						SubjectID:    fmt.Sprintf("s%d", s),
						TeacherID:    teacher,
						HoursPerWeek: float64(rng.Intn(17)) * 0.25,
					})
				}
				classes = append(classes, ClassInput{
					ClassID:     fmt.Sprintf("class-%d", c),
					GradeOrder:  rng.Intn(3),
					Section:     string(rune('A' + rng.Intn(3))),
					Allocations: allocs,
				})
			}

			batch := GenerateAll(classes, periods, minutes)
			assert.Empty(t, Audit(AuditPlacements(batch.Classes)))

			capacity := NewGrid(periods).Capacity()
			for _, res := range batch.Classes {
				assert.LessOrEqual(t, res.SlotsCreated(), capacity)
				assert.Equal(t, res.Demand, res.SlotsCreated()+res.Unplaced)
				cells := map[Cell]struct{}{}
				for _, p := range res.Placements {
					_, dup := cells[p.Cell]
					assert.False(t, dup)
					cells[p.Cell] = struct{}{}
				}
			}
		})
	}
}
