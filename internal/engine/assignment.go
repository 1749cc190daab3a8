package engine

import (
	"fmt"
	"sort"
)

type roomCell struct {
	Day    int
	Period int
	RoomID string
}

type teacherCell struct {
	Day       int
	Period    int
	TeacherID string
}

type obligationDay struct {
	ObligationID string
	Day          int
}

type teacherDay struct {
	TeacherID string
	Day       int
}

// Placement fixes one session unit to a start cell and a room.
type Placement struct {
	Day    int
	Period int
	RoomID string
}

// Assignment is the single mutable search state. It is owned by exactly one
// search at a time and mutated in place through Place/Unplace, so backtracking
// never copies the occupancy maps.
type Assignment struct {
	model *Model

	placed    []Placement
	hasPlaced []bool

	roomBusy        map[roomCell]int
	teacherBusy     map[teacherCell]int
	dailyLoad       map[obligationDay]int
	teacherSessions map[teacherDay]int
	placedCount     int
	periodsByDay    []int
}

// NewAssignment returns an empty assignment over the model's units.
func NewAssignment(m *Model) *Assignment {
	return &Assignment{
		model:           m,
		placed:          make([]Placement, len(m.Units)),
		hasPlaced:       make([]bool, len(m.Units)),
		roomBusy:        make(map[roomCell]int),
		teacherBusy:     make(map[teacherCell]int),
		dailyLoad:       make(map[obligationDay]int),
		teacherSessions: make(map[teacherDay]int),
		periodsByDay:    make([]int, m.Grid.Days),
	}
}

// Complete reports whether every session unit has a placement.
func (a *Assignment) Complete() bool {
	return a.placedCount == len(a.model.Units)
}

// Place records a placement for the unit and updates every occupancy index.
// The caller must have verified the placement with CanPlace first.
func (a *Assignment) Place(unit *SessionUnit, p Placement) {
	if a.hasPlaced[unit.Index] {
		panic(fmt.Sprintf("engine: unit %d placed twice", unit.Index))
	}
	ob := unit.Obligation
	for offset := 0; offset < unit.Length; offset++ {
		period := p.Period + offset
		a.roomBusy[roomCell{Day: p.Day, Period: period, RoomID: p.RoomID}] = unit.Index
		a.teacherBusy[teacherCell{Day: p.Day, Period: period, TeacherID: ob.TeacherID}] = unit.Index
	}
	a.dailyLoad[obligationDay{ObligationID: ob.ID, Day: p.Day}] += unit.Length
	a.teacherSessions[teacherDay{TeacherID: ob.TeacherID, Day: p.Day}]++
	a.periodsByDay[p.Day] += unit.Length
	a.placed[unit.Index] = p
	a.hasPlaced[unit.Index] = true
	a.placedCount++
}

// Unplace reverses a Place call during backtracking.
func (a *Assignment) Unplace(unit *SessionUnit) {
	if !a.hasPlaced[unit.Index] {
		panic(fmt.Sprintf("engine: unit %d not placed", unit.Index))
	}
	p := a.placed[unit.Index]
	ob := unit.Obligation
	for offset := 0; offset < unit.Length; offset++ {
		period := p.Period + offset
		delete(a.roomBusy, roomCell{Day: p.Day, Period: period, RoomID: p.RoomID})
		delete(a.teacherBusy, teacherCell{Day: p.Day, Period: period, TeacherID: ob.TeacherID})
	}
	a.dailyLoad[obligationDay{ObligationID: ob.ID, Day: p.Day}] -= unit.Length
	a.teacherSessions[teacherDay{TeacherID: ob.TeacherID, Day: p.Day}]--
	a.periodsByDay[p.Day] -= unit.Length
	a.hasPlaced[unit.Index] = false
	a.placedCount--
}

// obligationPeriodsOn returns how many periods of the obligation are already
// placed on the day. Used both for the daily cap and for day-spread ordering.
func (a *Assignment) obligationPeriodsOn(obligationID string, day int) int {
	return a.dailyLoad[obligationDay{ObligationID: obligationID, Day: day}]
}

// teacherSessionsOn counts the session units (a lab block counts once) the
// teacher already holds on the day.
func (a *Assignment) teacherSessionsOn(teacherID string, day int) int {
	return a.teacherSessions[teacherDay{TeacherID: teacherID, Day: day}]
}

// Sessions exports the completed assignment as placed sessions in a stable
// order: day, period, then room. Session identifiers are synthesized from the
// obligation and the cell so repeated exports agree.
func (a *Assignment) Sessions() []PlacedSession {
	out := make([]PlacedSession, 0, a.placedCount)
	for i, unit := range a.model.Units {
		if !a.hasPlaced[i] {
			continue
		}
		p := a.placed[i]
		ob := unit.Obligation
		out = append(out, PlacedSession{
			SessionID:    fmt.Sprintf("%s@d%dp%d", ob.ID, p.Day, p.Period),
			ObligationID: ob.ID,
			SubjectID:    ob.SubjectID,
			TeacherID:    ob.TeacherID,
			RoomID:       p.RoomID,
			Day:          p.Day,
			Period:       p.Period,
			Length:       unit.Length,
			IsLab:        ob.IsLab,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		if out[i].Period != out[j].Period {
			return out[i].Period < out[j].Period
		}
		return out[i].RoomID < out[j].RoomID
	})
	return out
}
