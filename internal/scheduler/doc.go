// Package scheduler holds the timetable engine: hour to period conversion,
// the per-class slot grid, the shared teacher occupancy index, the greedy
// generator and the conflict auditor. It performs no I/O; callers load
// periods, allocations and slots and persist the placements it returns.
package scheduler
