package scheduler

import (
	"fmt"
	"sort"
	"strings"
)

// ClassInput is everything the generator needs for one class.
type ClassInput struct {
	ClassID     string
	Name        string
	GradeOrder  int
	Section     string
	Allocations []Allocation
}

// ClassResult reports the outcome of generating one class.
type ClassResult struct {
	ClassID    string
	Placements []Placement
	// Demand is the number of instances the usable allocations asked for.
	Demand   int
	Unplaced int
	Skipped  int
	Message  string
}

// SlotsCreated is the number of placements made.
func (r ClassResult) SlotsCreated() int {
	return len(r.Placements)
}

type instance struct {
	allocation Allocation
	needed     int
}

// GenerateClass fills one class grid greedily. Instances are ordered by
// descending periods needed with allocation order breaking ties, and each is
// put in the first candidate cell that is free for the class and whose
// teacher is free in occ. Instances that fit nowhere are counted as
// unplaced. Placed cells are reserved in occ so later classes in the same
// run see them.
func GenerateClass(in ClassInput, periods []Period, periodMinutes int, occ *Occupancy) ClassResult {
	if occ == nil {
		occ = NewOccupancy()
	}
	result := ClassResult{ClassID: in.ClassID}
	grid := NewGrid(periods)

	queue := make([]instance, 0, len(in.Allocations))
	for _, a := range in.Allocations {
		if a.Orphaned {
			result.Skipped++
			continue
		}
		needed := PeriodsNeeded(a.HoursPerWeek, periodMinutes)
		if needed == 0 {
			continue
		}
		queue = append(queue, instance{allocation: a, needed: needed})
		result.Demand += needed
	}
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].needed > queue[j].needed
	})

	switch {
	case len(in.Allocations) == 0:
		result.Message = "no allocations for class; nothing to schedule"
		return result
	case grid.Capacity() == 0:
		result.Unplaced = result.Demand
		result.Message = "no teaching periods configured; nothing to schedule"
		return result
	}

	candidates := grid.Candidates()
	for _, item := range queue {
		a := item.allocation
		for n := 0; n < item.needed; n++ {
			placed := false
			for _, cell := range candidates {
				if grid.Filled(cell) || !occ.IsFree(a.TeacherID, cell) {
					continue
				}
				// Place cannot fail here: the cell came from the grid and is unfilled.
				_ = grid.Place(Placement{Cell: cell, AllocationID: a.ID, SubjectID: a.SubjectID, TeacherID: a.TeacherID})
				occ.Reserve(a.TeacherID, cell, in.ClassID)
				placed = true
				break
			}
			if !placed {
				result.Unplaced++
			}
		}
	}

	result.Placements = grid.Placements()
	result.Message = summarize(result.SlotsCreated(), result.Unplaced, result.Skipped)
	return result
}

// BatchResult aggregates a run over every class of a school.
type BatchResult struct {
	Classes      []ClassResult
	SlotsCreated int
	Unplaced     int
	Skipped      int
	Message      string
}

// GenerateAll generates every class against one fresh shared occupancy, in
// the order given by SortClasses, so earlier classes claim teachers first.
func GenerateAll(classes []ClassInput, periods []Period, periodMinutes int) BatchResult {
	ordered := SortClasses(classes)
	occ := NewOccupancy()
	batch := BatchResult{Classes: make([]ClassResult, 0, len(ordered))}
	for _, class := range ordered {
		res := GenerateClass(class, periods, periodMinutes, occ)
		batch.Classes = append(batch.Classes, res)
		batch.SlotsCreated += res.SlotsCreated()
		batch.Unplaced += res.Unplaced
		batch.Skipped += res.Skipped
	}
	if len(ordered) == 0 {
		batch.Message = "no classes found; nothing to schedule"
		return batch
	}
	batch.Message = fmt.Sprintf("%d classes: %s", len(ordered), summarize(batch.SlotsCreated, batch.Unplaced, batch.Skipped))
	return batch
}

// SortClasses returns classes ordered by grade, section, name and id.
func SortClasses(classes []ClassInput) []ClassInput {
	ordered := make([]ClassInput, len(classes))
	copy(ordered, classes)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.GradeOrder != b.GradeOrder {
			return a.GradeOrder < b.GradeOrder
		}
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ClassID < b.ClassID
	})
	return ordered
}

func summarize(created, unplaced, skipped int) string {
	parts := []string{fmt.Sprintf("generated %d slots", created)}
	if unplaced > 0 {
		parts = append(parts, fmt.Sprintf("%d periods could not be placed", unplaced))
	}
	if skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d allocations skipped (missing subject or teacher)", skipped))
	}
	return strings.Join(parts, "; ")
}
