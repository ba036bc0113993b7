package scheduler

import "fmt"

// Validation summarises whether a class's allocations fit its weekly grid.
type Validation struct {
	IsValid             bool    `json:"isValid"`
	Message             string  `json:"message"`
	TotalAvailableSlots int     `json:"totalAvailableSlots"`
	TotalAllocatedHours float64 `json:"totalAllocatedHours"`
	TotalPeriodsNeeded  int     `json:"totalPeriodsNeeded"`
}

// ValidateAllocations compares the periods the allocations need with the
// teaching cells available in a week. Over-allocation is reported, never
// rejected.
func ValidateAllocations(periods []Period, allocations []Allocation, periodMinutes int) Validation {
	available := len(teachingPeriods(periods)) * WorkingDays
	result := Validation{TotalAvailableSlots: available}
	if len(allocations) == 0 {
		result.IsValid = true
		result.Message = "no allocations defined; nothing to schedule"
		return result
	}

	for _, a := range allocations {
		result.TotalAllocatedHours += a.HoursPerWeek
		result.TotalPeriodsNeeded += PeriodsNeeded(a.HoursPerWeek, periodMinutes)
	}

	result.IsValid = result.TotalPeriodsNeeded <= available
	if result.IsValid {
		result.Message = fmt.Sprintf("allocations fit: %d of %d available periods needed", result.TotalPeriodsNeeded, available)
	} else {
		result.Message = fmt.Sprintf("allocations exceed capacity: %d periods needed but only %d available", result.TotalPeriodsNeeded, available)
	}
	return result
}
