package scheduler

import "fmt"

// Cell addresses one (period, weekday) position of a grid.
type Cell struct {
	PeriodID  string
	DayOfWeek int
}

// Placement is an assignment of one allocation instance to a cell.
type Placement struct {
	Cell
	AllocationID string
	SubjectID    string
	TeacherID    string
}

// Grid is the period by weekday assignment surface of one class. Only
// non-break periods on working days are part of it.
type Grid struct {
	periods []Period
	index   map[string]int
	cells   map[Cell]Placement
}

// NewGrid builds an empty grid over the teaching periods of the catalog.
func NewGrid(periods []Period) *Grid {
	teaching := teachingPeriods(periods)
	index := make(map[string]int, len(teaching))
	for i, p := range teaching {
		index[p.ID] = i
	}
	return &Grid{
		periods: teaching,
		index:   index,
		cells:   make(map[Cell]Placement),
	}
}

// Capacity is the number of assignable cells.
func (g *Grid) Capacity() int {
	return len(g.periods) * WorkingDays
}

// Candidates lists every cell in fill order: periods outer, weekdays inner.
// A subject needing several periods therefore lands on different days
// before it repeats a period.
func (g *Grid) Candidates() []Cell {
	cells := make([]Cell, 0, g.Capacity())
	for _, p := range g.periods {
		for _, day := range Weekdays {
			cells = append(cells, Cell{PeriodID: p.ID, DayOfWeek: day})
		}
	}
	return cells
}

// Contains reports whether the cell is an assignable position of this grid.
func (g *Grid) Contains(cell Cell) bool {
	_, ok := g.index[cell.PeriodID]
	return ok && IsWorkingDay(cell.DayOfWeek)
}

// Filled reports whether the class already holds an assignment at cell.
func (g *Grid) Filled(cell Cell) bool {
	_, ok := g.cells[cell]
	return ok
}

// Place stores an assignment, refusing cells outside the grid or already taken.
func (g *Grid) Place(p Placement) error {
	if !g.Contains(p.Cell) {
		return fmt.Errorf("cell %s/%d is not assignable", p.PeriodID, p.DayOfWeek)
	}
	if g.Filled(p.Cell) {
		return fmt.Errorf("cell %s/%d already filled", p.PeriodID, p.DayOfWeek)
	}
	g.cells[p.Cell] = p
	return nil
}

// Len returns the number of filled cells.
func (g *Grid) Len() int {
	return len(g.cells)
}

// Placements returns the filled cells in fill order.
func (g *Grid) Placements() []Placement {
	result := make([]Placement, 0, len(g.cells))
	for _, cell := range g.Candidates() {
		if p, ok := g.cells[cell]; ok {
			result = append(result, p)
		}
	}
	return result
}
