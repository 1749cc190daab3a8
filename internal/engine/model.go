package engine

import (
	"fmt"
	"sort"
)

// RoomType distinguishes ordinary classrooms from laboratories.
type RoomType string

const (
	RoomTypeClassroom  RoomType = "CLASSROOM"
	RoomTypeLaboratory RoomType = "LABORATORY"
)

// GridConfig describes the weekly slot coordinate space. Periods
// [0, MorningSpan) form the morning half of a day, the rest the evening half.
type GridConfig struct {
	Days          int
	PeriodsPerDay int
	MorningSpan   int
}

// DefaultGrid returns the 5x8 grid with a 4-period morning half.
func DefaultGrid() GridConfig {
	return GridConfig{Days: 5, PeriodsPerDay: 8, MorningSpan: 4}
}

// TotalPeriods returns the number of (day, period) cells in the grid.
func (g GridConfig) TotalPeriods() int {
	return g.Days * g.PeriodsPerDay
}

// HalfBounds returns the [start, end) period range of the half-day containing
// the given period.
func (g GridConfig) HalfBounds(period int) (int, int) {
	if period < g.MorningSpan {
		return 0, g.MorningSpan
	}
	return g.MorningSpan, g.PeriodsPerDay
}

func (g GridConfig) validate() error {
	if g.Days <= 0 || g.PeriodsPerDay <= 0 {
		return fmt.Errorf("grid must have positive days and periods, got %dx%d", g.Days, g.PeriodsPerDay)
	}
	if g.MorningSpan <= 0 || g.MorningSpan >= g.PeriodsPerDay {
		return fmt.Errorf("morning span %d must split %d periods into two non-empty halves", g.MorningSpan, g.PeriodsPerDay)
	}
	return nil
}

// RuleConfig carries the tunable rule parameters. The original system shipped
// these as constants that drifted between iterations, so they are explicit
// inputs here with the last observed values as defaults only.
type RuleConfig struct {
	LabBlockLength   int
	TeacherDailyCap  int
	RestrictedStarts []int
	// RelaxedDailyCapBonus is added to TeacherDailyCap when the daily cap
	// relaxation is active.
	RelaxedDailyCapBonus int
}

// DefaultRules returns the rule parameters observed in production.
func DefaultRules() RuleConfig {
	return RuleConfig{
		LabBlockLength:       3,
		TeacherDailyCap:      2,
		RestrictedStarts:     []int{0, 4},
		RelaxedDailyCapBonus: 1,
	}
}

func (r RuleConfig) restrictedStart(period int) bool {
	for _, p := range r.RestrictedStarts {
		if p == period {
			return true
		}
	}
	return false
}

// Relaxations toggles the strictness of individual rules. The zero value is
// the fully strict rule set.
type Relaxations struct {
	LabInClassroom     bool
	TheoryInLab        bool
	LabRestrictedStart bool
	RaisedTeacherCap   bool
}

// Room is the engine's snapshot of a schedulable room.
type Room struct {
	ID       string
	Name     string
	Capacity int
	Type     RoomType
}

// Obligation is the engine's read-only snapshot of one teaching obligation.
type Obligation struct {
	ID               string
	SubjectID        string
	TeacherID        string
	IsLab            bool
	PeriodsPerWeek   int
	MaxPeriodsPerDay int
}

// SessionUnit is one atomic placement variable: a single theory period or one
// contiguous lab block derived from an obligation.
type SessionUnit struct {
	Index      int
	Obligation *Obligation
	Length     int
}

// BusyKey identifies one externally committed (teacher, day, period) cell from
// another department's active timetable.
type BusyKey struct {
	TeacherID string
	Day       int
	Period    int
}

// PlacedSession is one concrete scheduled cell-block, the shape that is
// persisted and validated.
type PlacedSession struct {
	SessionID    string
	ObligationID string
	SubjectID    string
	TeacherID    string
	RoomID       string
	Day          int
	Period       int
	Length       int
	IsLab        bool
}

// Model is the immutable constraint problem handed to the search: the session
// units to place, the rooms they may occupy, and the cross-department teacher
// bookings that already hold.
type Model struct {
	Grid     GridConfig
	Rules    RuleConfig
	Units    []*SessionUnit
	Rooms    []Room
	External map[BusyKey]struct{}
}

// NewModel validates inputs and decomposes obligations into session units.
// Lab obligations split into blocks of LabBlockLength periods; theory
// obligations split into single-period units.
func NewModel(grid GridConfig, rules RuleConfig, obligations []Obligation, rooms []Room, external []BusyKey) (*Model, error) {
	if err := grid.validate(); err != nil {
		return nil, err
	}
	if rules.LabBlockLength < 1 {
		return nil, fmt.Errorf("lab block length must be >= 1, got %d", rules.LabBlockLength)
	}
	if rules.LabBlockLength > grid.MorningSpan || rules.LabBlockLength > grid.PeriodsPerDay-grid.MorningSpan {
		return nil, fmt.Errorf("lab block length %d does not fit in a half-day of the %dx%d grid", rules.LabBlockLength, grid.Days, grid.PeriodsPerDay)
	}
	if rules.TeacherDailyCap < 1 {
		return nil, fmt.Errorf("teacher daily cap must be >= 1, got %d", rules.TeacherDailyCap)
	}
	for _, p := range rules.RestrictedStarts {
		if p < 0 || p >= grid.PeriodsPerDay {
			return nil, fmt.Errorf("restricted start period %d outside grid", p)
		}
	}

	m := &Model{
		Grid:     grid,
		Rules:    rules,
		Rooms:    append([]Room(nil), rooms...),
		External: make(map[BusyKey]struct{}, len(external)),
	}
	for _, b := range external {
		m.External[BusyKey{TeacherID: b.TeacherID, Day: b.Day, Period: b.Period}] = struct{}{}
	}

	// Smallest compatible room first keeps large rooms free for large groups.
	sort.Slice(m.Rooms, func(i, j int) bool {
		if m.Rooms[i].Capacity != m.Rooms[j].Capacity {
			return m.Rooms[i].Capacity < m.Rooms[j].Capacity
		}
		return m.Rooms[i].ID < m.Rooms[j].ID
	})

	for i := range obligations {
		ob := obligations[i]
		if ob.PeriodsPerWeek < 1 {
			return nil, fmt.Errorf("obligation %s requires %d periods/week, must be >= 1", ob.ID, ob.PeriodsPerWeek)
		}
		if ob.MaxPeriodsPerDay < 1 {
			return nil, fmt.Errorf("obligation %s allows %d periods/day, must be >= 1", ob.ID, ob.MaxPeriodsPerDay)
		}
		if ob.IsLab {
			if ob.PeriodsPerWeek < rules.LabBlockLength {
				return nil, fmt.Errorf("lab obligation %s requires %d periods/week, below the block length %d", ob.ID, ob.PeriodsPerWeek, rules.LabBlockLength)
			}
			if ob.PeriodsPerWeek%rules.LabBlockLength != 0 {
				return nil, fmt.Errorf("lab obligation %s requires %d periods/week, not a multiple of the block length %d", ob.ID, ob.PeriodsPerWeek, rules.LabBlockLength)
			}
			if ob.MaxPeriodsPerDay < rules.LabBlockLength {
				return nil, fmt.Errorf("lab obligation %s caps %d periods/day, below the block length %d", ob.ID, ob.MaxPeriodsPerDay, rules.LabBlockLength)
			}
		}
		if ob.PeriodsPerWeek > ob.MaxPeriodsPerDay*grid.Days {
			return nil, fmt.Errorf("obligation %s requires %d periods/week but its daily cap admits at most %d", ob.ID, ob.PeriodsPerWeek, ob.MaxPeriodsPerDay*grid.Days)
		}

		count := ob.PeriodsPerWeek
		length := 1
		if ob.IsLab {
			count = ob.PeriodsPerWeek / rules.LabBlockLength
			length = rules.LabBlockLength
		}
		obCopy := ob
		for n := 0; n < count; n++ {
			m.Units = append(m.Units, &SessionUnit{
				Index:      len(m.Units),
				Obligation: &obCopy,
				Length:     length,
			})
		}
	}
	return m, nil
}

// RequiredPeriods sums the periods demanded by all session units.
func (m *Model) RequiredPeriods() int {
	total := 0
	for _, u := range m.Units {
		total += u.Length
	}
	return total
}

// roomUsable reports whether a unit may occupy the room under the active
// relaxations. Strictly, labs need laboratories and theory needs classrooms.
func roomUsable(relax Relaxations, isLab bool, room Room) bool {
	if isLab {
		return room.Type == RoomTypeLaboratory || (relax.LabInClassroom && room.Type == RoomTypeClassroom)
	}
	return room.Type == RoomTypeClassroom || (relax.TheoryInLab && room.Type == RoomTypeLaboratory)
}

// usableRoomCount returns how many rooms a lab or theory unit may target.
func (m *Model) usableRoomCount(relax Relaxations, isLab bool) int {
	n := 0
	for _, r := range m.Rooms {
		if roomUsable(relax, isLab, r) {
			n++
		}
	}
	return n
}
