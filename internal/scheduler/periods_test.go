package scheduler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPeriodsNeeded(t *testing.T) {
	cases := []struct {
		hours   float64
		minutes int
		want    int
	}{
		{2.25, 45, 3},
		{1.0, 40, 2},
		{2.5, 45, 3},
		{0, 45, 0},
		{-1, 45, 0},
		{3, 0, 0},
		{0.375, 45, 1},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%v_%d", tc.hours, tc.minutes), func(t *testing.T) {
			assert.Equal(t, tc.want, PeriodsNeeded(tc.hours, tc.minutes))
		})
	}
}

func catalog(teaching int, breaks ...int) []Period {
	periods := make([]Period, 0, teaching+len(breaks))
	isBreak := make(map[int]bool, len(breaks))
	for _, b := range breaks {
		isBreak[b] = true
	}
	order := 1
	for n := 0; n < teaching; order++ {
		if isBreak[order] {
			periods = append(periods, Period{ID: fmt.Sprintf("break-%d", order), Order: order, IsBreak: true})
			continue
		}
		periods = append(periods, Period{ID: fmt.Sprintf("p%d", order), Order: order})
		n++
	}
	return periods
}

func TestValidateAllocationsBoundary(t *testing.T) {
	periods := catalog(8, 4)

	// 40 periods of 45 minutes = 30 hours.
	fits := []Allocation{{ID: "a", HoursPerWeek: 22.5}, {ID: "b", HoursPerWeek: 7.5}}
	res := ValidateAllocations(periods, fits, 45)
	assert.True(t, res.IsValid)
	assert.Equal(t, 40, res.TotalAvailableSlots)
	assert.Equal(t, 40, res.TotalPeriodsNeeded)
	assert.InDelta(t, 30.0, res.TotalAllocatedHours, 0.0001)

	over := append(fits, Allocation{ID: "c", HoursPerWeek: 0.75})
	res = ValidateAllocations(periods, over, 45)
	assert.False(t, res.IsValid)
	assert.Equal(t, 40, res.TotalAvailableSlots)
	assert.Equal(t, 41, res.TotalPeriodsNeeded)
	assert.Contains(t, res.Message, "exceed")
}

func TestValidateAllocationsEmptyIsTriviallyValid(t *testing.T) {
	res := ValidateAllocations(catalog(6), nil, 45)
	assert.True(t, res.IsValid)
	assert.Equal(t, 0, res.TotalPeriodsNeeded)
	assert.Equal(t, 30, res.TotalAvailableSlots)
	assert.Contains(t, res.Message, "nothing to schedule")
}
