package engine

import (
	"fmt"
	"sort"
	"strings"
)

// RuleID names one scheduling rule in violation reports.
type RuleID string

const (
	RuleRoomConflict    RuleID = "room-conflict"
	RuleTeacherConflict RuleID = "teacher-conflict"
	RuleWeeklyTotal     RuleID = "weekly-total"
	RuleDailyCap        RuleID = "subject-daily-cap"
	RuleLabPlacement    RuleID = "lab-placement"
	RuleLabStart        RuleID = "lab-start-period"
	RuleTeacherDailyCap RuleID = "teacher-daily-cap"
)

// Violation describes one broken rule in a complete timetable, with enough
// coordinates to locate it on the grid.
type Violation struct {
	Rule       RuleID   `json:"rule"`
	Day        int      `json:"day"`
	Period     int      `json:"period"`
	RoomID     string   `json:"room_id,omitempty"`
	TeacherID  string   `json:"teacher_id,omitempty"`
	SessionIDs []string `json:"session_ids"`
	Message    string   `json:"message"`
}

// CanPlace checks every incremental rule for placing the unit at p against
// the current partial assignment: room and teacher exclusivity, the
// per-obligation daily cap, lab block shape and room type, restricted lab
// starts, and the teacher daily load cap. The same predicates back the bulk
// validator so the two can never disagree.
func (a *Assignment) CanPlace(unit *SessionUnit, p Placement, relax Relaxations) bool {
	m := a.model
	ob := unit.Obligation
	if p.Day < 0 || p.Day >= m.Grid.Days {
		return false
	}
	if !fitsBlockShape(m.Grid, unit.IsLab(), unit.Length, p.Period) {
		return false
	}
	if unit.IsLab() && !labStartAllowed(m.Rules, relax, p.Period) {
		return false
	}
	room, ok := m.roomByID(p.RoomID)
	if !ok || !roomUsable(relax, unit.IsLab(), room) {
		return false
	}
	if unit.IsLab() && a.obligationPeriodsOn(ob.ID, p.Day) > 0 {
		// One lab block per obligation per day; a second block on the same
		// day would also stack two half-days.
		return false
	}
	if a.obligationPeriodsOn(ob.ID, p.Day)+unit.Length > ob.MaxPeriodsPerDay {
		return false
	}
	if a.teacherSessionsOn(ob.TeacherID, p.Day)+1 > teacherDailyCap(m.Rules, relax) {
		return false
	}
	for offset := 0; offset < unit.Length; offset++ {
		period := p.Period + offset
		if _, busy := a.roomBusy[roomCell{Day: p.Day, Period: period, RoomID: p.RoomID}]; busy {
			return false
		}
		if _, busy := a.teacherBusy[teacherCell{Day: p.Day, Period: period, TeacherID: ob.TeacherID}]; busy {
			return false
		}
		if _, busy := m.External[BusyKey{TeacherID: ob.TeacherID, Day: p.Day, Period: period}]; busy {
			return false
		}
	}
	return true
}

// IsLab reports whether the unit is a contiguous lab block.
func (u *SessionUnit) IsLab() bool {
	return u.Obligation.IsLab
}

func (m *Model) roomByID(id string) (Room, bool) {
	for _, r := range m.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}

// fitsBlockShape checks the block lies inside the grid and, for labs, inside
// a single half-day.
func fitsBlockShape(grid GridConfig, isLab bool, length, start int) bool {
	if start < 0 || start+length > grid.PeriodsPerDay {
		return false
	}
	if !isLab {
		return true
	}
	halfStart, halfEnd := grid.HalfBounds(start)
	return start >= halfStart && start+length <= halfEnd
}

func labStartAllowed(rules RuleConfig, relax Relaxations, start int) bool {
	if relax.LabRestrictedStart {
		return true
	}
	return !rules.restrictedStart(start)
}

func teacherDailyCap(rules RuleConfig, relax Relaxations) int {
	limit := rules.TeacherDailyCap
	if relax.RaisedTeacherCap {
		limit += rules.RelaxedDailyCapBonus
	}
	return limit
}

// CheckSessions validates a complete timetable in bulk against the rule set,
// honoring the relaxations the timetable was generated under. It reports room
// conflicts, teacher conflicts (including external bookings), lab shape and
// room-type faults, restricted lab starts, and teacher daily overloads, in a
// deterministic order.
func CheckSessions(grid GridConfig, rules RuleConfig, relax Relaxations, rooms []Room, sessions []PlacedSession, external map[BusyKey]struct{}) []Violation {
	roomTypes := make(map[string]RoomType, len(rooms))
	for _, r := range rooms {
		roomTypes[r.ID] = r.Type
	}

	var out []Violation

	roomCells := make(map[roomCell][]string)
	teacherCells := make(map[teacherCell][]string)
	teacherDays := make(map[teacherDay][]string)

	for _, s := range sessions {
		if s.Period < 0 || s.Period+s.Length > grid.PeriodsPerDay || s.Day < 0 || s.Day >= grid.Days {
			out = append(out, Violation{
				Rule:       RuleLabPlacement,
				Day:        s.Day,
				Period:     s.Period,
				RoomID:     s.RoomID,
				TeacherID:  s.TeacherID,
				SessionIDs: []string{s.SessionID},
				Message:    fmt.Sprintf("session %s lies outside the %dx%d grid", s.SessionID, grid.Days, grid.PeriodsPerDay),
			})
			continue
		}
		if s.IsLab {
			if !fitsBlockShape(grid, true, s.Length, s.Period) {
				out = append(out, Violation{
					Rule:       RuleLabPlacement,
					Day:        s.Day,
					Period:     s.Period,
					RoomID:     s.RoomID,
					TeacherID:  s.TeacherID,
					SessionIDs: []string{s.SessionID},
					Message:    fmt.Sprintf("lab block %s crosses the half-day boundary", s.SessionID),
				})
			}
			if !labStartAllowed(rules, relax, s.Period) {
				out = append(out, Violation{
					Rule:       RuleLabStart,
					Day:        s.Day,
					Period:     s.Period,
					RoomID:     s.RoomID,
					TeacherID:  s.TeacherID,
					SessionIDs: []string{s.SessionID},
					Message:    fmt.Sprintf("lab block %s starts in restricted period %d", s.SessionID, s.Period),
				})
			}
		}
		if roomType, known := roomTypes[s.RoomID]; known {
			wantLabRoom := s.IsLab && !relax.LabInClassroom
			wantClassroom := !s.IsLab && !relax.TheoryInLab
			if wantLabRoom && roomType != RoomTypeLaboratory {
				out = append(out, Violation{
					Rule:       RuleLabPlacement,
					Day:        s.Day,
					Period:     s.Period,
					RoomID:     s.RoomID,
					TeacherID:  s.TeacherID,
					SessionIDs: []string{s.SessionID},
					Message:    fmt.Sprintf("lab session %s sits in non-laboratory room %s", s.SessionID, s.RoomID),
				})
			}
			if wantClassroom && roomType != RoomTypeClassroom {
				out = append(out, Violation{
					Rule:       RuleLabPlacement,
					Day:        s.Day,
					Period:     s.Period,
					RoomID:     s.RoomID,
					TeacherID:  s.TeacherID,
					SessionIDs: []string{s.SessionID},
					Message:    fmt.Sprintf("theory session %s sits in non-classroom room %s", s.SessionID, s.RoomID),
				})
			}
		}

		for offset := 0; offset < s.Length; offset++ {
			period := s.Period + offset
			rc := roomCell{Day: s.Day, Period: period, RoomID: s.RoomID}
			roomCells[rc] = append(roomCells[rc], s.SessionID)
			tc := teacherCell{Day: s.Day, Period: period, TeacherID: s.TeacherID}
			teacherCells[tc] = append(teacherCells[tc], s.SessionID)
			if _, busy := external[BusyKey{TeacherID: s.TeacherID, Day: s.Day, Period: period}]; busy {
				out = append(out, Violation{
					Rule:       RuleTeacherConflict,
					Day:        s.Day,
					Period:     period,
					TeacherID:  s.TeacherID,
					SessionIDs: []string{s.SessionID},
					Message:    fmt.Sprintf("teacher %s is booked by another department on day %d period %d", s.TeacherID, s.Day, period),
				})
			}
		}
		td := teacherDay{TeacherID: s.TeacherID, Day: s.Day}
		teacherDays[td] = append(teacherDays[td], s.SessionID)
	}

	for cell, ids := range roomCells {
		if len(ids) > 1 {
			sort.Strings(ids)
			out = append(out, Violation{
				Rule:       RuleRoomConflict,
				Day:        cell.Day,
				Period:     cell.Period,
				RoomID:     cell.RoomID,
				SessionIDs: ids,
				Message:    fmt.Sprintf("room %s hosts %d sessions on day %d period %d", cell.RoomID, len(ids), cell.Day, cell.Period),
			})
		}
	}
	for cell, ids := range teacherCells {
		if len(ids) > 1 {
			sort.Strings(ids)
			out = append(out, Violation{
				Rule:       RuleTeacherConflict,
				Day:        cell.Day,
				Period:     cell.Period,
				TeacherID:  cell.TeacherID,
				SessionIDs: ids,
				Message:    fmt.Sprintf("teacher %s teaches %d sessions on day %d period %d", cell.TeacherID, len(ids), cell.Day, cell.Period),
			})
		}
	}
	limit := teacherDailyCap(rules, relax)
	for td, ids := range teacherDays {
		if len(ids) > limit {
			sort.Strings(ids)
			out = append(out, Violation{
				Rule:       RuleTeacherDailyCap,
				Day:        td.Day,
				TeacherID:  td.TeacherID,
				SessionIDs: ids,
				Message:    fmt.Sprintf("teacher %s carries %d sessions on day %d, cap is %d", td.TeacherID, len(ids), td.Day, limit),
			})
		}
	}

	sortViolations(out)
	return out
}

func sortViolations(violations []Violation) {
	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.RoomID != b.RoomID {
			return a.RoomID < b.RoomID
		}
		if a.TeacherID != b.TeacherID {
			return a.TeacherID < b.TeacherID
		}
		return strings.Join(a.SessionIDs, ",") < strings.Join(b.SessionIDs, ",")
	})
}
