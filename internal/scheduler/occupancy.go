package scheduler

// Occupancy records which (period, weekday) cells each teacher already
// teaches during one generation run. It is built fresh per run and shared by
// every class generated in that run.
type Occupancy struct {
	busy map[string]map[Cell]string
}

// NewOccupancy returns an empty index.
func NewOccupancy() *Occupancy {
	return &Occupancy{busy: make(map[string]map[Cell]string)}
}

// IsFree reports whether the teacher has nothing at cell. An empty teacher id
// is always free.
func (o *Occupancy) IsFree(teacherID string, cell Cell) bool {
	if teacherID == "" {
		return true
	}
	_, taken := o.busy[teacherID][cell]
	return !taken
}

// Reserve marks the cell busy for the teacher on behalf of classID.
func (o *Occupancy) Reserve(teacherID string, cell Cell, classID string) {
	if teacherID == "" {
		return
	}
	cells, ok := o.busy[teacherID]
	if !ok {
		cells = make(map[Cell]string)
		o.busy[teacherID] = cells
	}
	if _, taken := cells[cell]; !taken {
		cells[cell] = classID
	}
}

// Holder returns the class that reserved the cell for the teacher.
func (o *Occupancy) Holder(teacherID string, cell Cell) (string, bool) {
	classID, ok := o.busy[teacherID][cell]
	return classID, ok
}

// Load returns how many cells the teacher holds.
func (o *Occupancy) Load(teacherID string) int {
	return len(o.busy[teacherID])
}

// SeededSlot is an existing persisted slot used to rebuild occupancy.
type SeededSlot struct {
	ClassID   string
	TeacherID string
	Cell
}

// Seed reserves the cells of persisted slots, ignoring those of skipClassID.
func (o *Occupancy) Seed(slots []SeededSlot, skipClassID string) {
	for _, s := range slots {
		if s.ClassID == skipClassID {
			continue
		}
		o.Reserve(s.TeacherID, s.Cell, s.ClassID)
	}
}
