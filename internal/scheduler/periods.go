package scheduler

import (
	"math"
	"sort"
)

// Weekdays are the working days filled by the generator, Monday to Friday,
// using 0 = Sunday numbering.
var Weekdays = []int{1, 2, 3, 4, 5}

// WorkingDays is the number of schedulable days per week.
const WorkingDays = 5

// DefaultPeriodMinutes applies when a school has no explicit period duration.
const DefaultPeriodMinutes = 45

// Period is the engine's view of a catalog row.
type Period struct {
	ID      string
	Order   int
	IsBreak bool
}

// Allocation is one (class, subject) weekly budget. TeacherID is empty when no
// teacher is assigned. Orphaned marks allocations whose subject or teacher no
// longer exists; the generator skips them.
type Allocation struct {
	ID           string
	SubjectID    string
	TeacherID    string
	HoursPerWeek float64
	Orphaned     bool
}

// PeriodsNeeded converts weekly hours into a period count, rounding half away
// from zero.
func PeriodsNeeded(hoursPerWeek float64, periodMinutes int) int {
	if hoursPerWeek <= 0 || periodMinutes <= 0 {
		return 0
	}
	return int(math.Round(hoursPerWeek * 60 / float64(periodMinutes)))
}

// IsWorkingDay reports whether day is one of Weekdays.
func IsWorkingDay(day int) bool {
	return day >= 1 && day <= WorkingDays
}

// teachingPeriods returns the non-break periods in catalog order.
func teachingPeriods(periods []Period) []Period {
	result := make([]Period, 0, len(periods))
	for _, p := range periods {
		if !p.IsBreak {
			result = append(result, p)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Order < result[j].Order
	})
	return result
}
