package scheduler

import "sort"

// AuditSlot is a persisted slot as the auditor sees it. TeacherID is the
// effective teacher; slots without one are ignored.
type AuditSlot struct {
	ClassID     string
	ClassName   string
	SubjectName string
	TeacherID   string
	TeacherName string
	PeriodID    string
	PeriodOrder int
	DayOfWeek   int
}

// ConflictClass is one class involved in a double booking.
type ConflictClass struct {
	ClassID     string `json:"classId"`
	ClassName   string `json:"className"`
	SubjectName string `json:"subjectName"`
}

// Conflict is a teacher booked by more than one class in the same cell.
type Conflict struct {
	TeacherID   string          `json:"teacherId"`
	TeacherName string          `json:"teacherName"`
	PeriodID    string          `json:"periodId"`
	DayOfWeek   int             `json:"dayOfWeek"`
	Classes     []ConflictClass `json:"classes"`

	periodOrder int
}

type auditKey struct {
	teacherID string
	cell      Cell
}

// Audit groups slots by (teacher, period, weekday) and reports every group
// spanning more than one distinct class. Output is ordered by teacher, day
// and period.
func Audit(slots []AuditSlot) []Conflict {
	groups := make(map[auditKey]*Conflict)
	seen := make(map[auditKey]map[string]struct{})
	for _, s := range slots {
		if s.TeacherID == "" {
			continue
		}
		key := auditKey{teacherID: s.TeacherID, cell: Cell{PeriodID: s.PeriodID, DayOfWeek: s.DayOfWeek}}
		group, ok := groups[key]
		if !ok {
			group = &Conflict{
				TeacherID:   s.TeacherID,
				TeacherName: s.TeacherName,
				PeriodID:    s.PeriodID,
				DayOfWeek:   s.DayOfWeek,
				periodOrder: s.PeriodOrder,
			}
			groups[key] = group
			seen[key] = make(map[string]struct{})
		}
		if _, dup := seen[key][s.ClassID]; dup {
			continue
		}
		seen[key][s.ClassID] = struct{}{}
		group.Classes = append(group.Classes, ConflictClass{ClassID: s.ClassID, ClassName: s.ClassName, SubjectName: s.SubjectName})
	}

	conflicts := make([]Conflict, 0)
	for _, group := range groups {
		if len(group.Classes) < 2 {
			continue
		}
		sort.Slice(group.Classes, func(i, j int) bool {
			if group.Classes[i].ClassName != group.Classes[j].ClassName {
				return group.Classes[i].ClassName < group.Classes[j].ClassName
			}
			return group.Classes[i].ClassID < group.Classes[j].ClassID
		})
		conflicts = append(conflicts, *group)
	}
	sort.Slice(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.TeacherID != b.TeacherID {
			return a.TeacherID < b.TeacherID
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		if a.periodOrder != b.periodOrder {
			return a.periodOrder < b.periodOrder
		}
		return a.PeriodID < b.PeriodID
	})
	return conflicts
}

// AuditPlacements converts generated placements into audit input, which lets
// callers verify a run before persisting it.
func AuditPlacements(results []ClassResult) []AuditSlot {
	slots := make([]AuditSlot, 0)
	for _, r := range results {
		for _, p := range r.Placements {
			slots = append(slots, AuditSlot{
				ClassID:   r.ClassID,
				ClassName: r.ClassID,
				TeacherID: p.TeacherID,
				PeriodID:  p.PeriodID,
				DayOfWeek: p.DayOfWeek,
			})
		}
	}
	return slots
}
