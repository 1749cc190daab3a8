package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Outcome classifies a finished search attempt.
type Outcome string

const (
	OutcomeSolved     Outcome = "SOLVED"
	OutcomeInfeasible Outcome = "INFEASIBLE"
	OutcomeTimedOut   Outcome = "TIMED_OUT"
)

// DefaultDeadlineCheckEvery is how many search steps pass between deadline
// checks when the caller does not set an interval.
const DefaultDeadlineCheckEvery = 256

// Diagnostics explains an infeasible model: aggregate demand against
// capacity, split by room type, plus the obligations that admit no placement
// at all.
type Diagnostics struct {
	RequiredPeriods       int      `json:"required_periods"`
	RoomPeriods           int      `json:"room_periods"`
	LabPeriodsRequired    int      `json:"lab_periods_required"`
	LabRoomPeriods        int      `json:"lab_room_periods"`
	TheoryPeriodsRequired int      `json:"theory_periods_required"`
	TheoryRoomPeriods     int      `json:"theory_room_periods"`
	BlockedObligationIDs  []string `json:"blocked_obligation_ids,omitempty"`
	Bottleneck            string   `json:"bottleneck"`
}

// Stats records the effort one search attempt spent.
type Stats struct {
	Steps      int           `json:"steps"`
	Backtracks int           `json:"backtracks"`
	MaxDepth   int           `json:"max_depth"`
	Units      int           `json:"units"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Result is the outcome of one search attempt. Sessions is populated only
// when Outcome is OutcomeSolved, Diagnostics only when OutcomeInfeasible.
type Result struct {
	Outcome     Outcome
	Sessions    []PlacedSession
	Diagnostics *Diagnostics
	Stats       Stats
}

type searchStatus int

const (
	statusSolved searchStatus = iota
	statusExhausted
	statusDeadline
)

type searcher struct {
	model      *Model
	relax      Relaxations
	assignment *Assignment
	order      []*SessionUnit
	deadline   time.Time
	ctx        context.Context
	checkEvery int

	steps      int
	backtracks int
	maxDepth   int

	labStarts    []int
	theoryStarts []int
	labRooms     []Room
	theoryRooms  []Room
}

// Solve runs one backtracking attempt over the model under the given
// relaxations. A zero deadline means no time limit. Structurally impossible
// models short-circuit to OutcomeInfeasible without searching.
func Solve(ctx context.Context, m *Model, relax Relaxations, deadline time.Time, checkEvery int) Result {
	started := time.Now()
	if checkEvery <= 0 {
		checkEvery = DefaultDeadlineCheckEvery
	}

	if diag, infeasible := analyze(m, relax); infeasible {
		return Result{
			Outcome:     OutcomeInfeasible,
			Diagnostics: diag,
			Stats:       Stats{Units: len(m.Units), Elapsed: time.Since(started)},
		}
	}

	s := &searcher{
		model:      m,
		relax:      relax,
		assignment: NewAssignment(m),
		order:      orderUnits(m),
		deadline:   deadline,
		ctx:        ctx,
		checkEvery: checkEvery,
	}
	s.precomputeDomains()

	status := s.solve(0)
	stats := Stats{
		Steps:      s.steps,
		Backtracks: s.backtracks,
		MaxDepth:   s.maxDepth,
		Units:      len(m.Units),
		Elapsed:    time.Since(started),
	}
	switch status {
	case statusSolved:
		return Result{Outcome: OutcomeSolved, Sessions: s.assignment.Sessions(), Stats: stats}
	case statusDeadline:
		return Result{Outcome: OutcomeTimedOut, Stats: stats}
	default:
		// The tree is exhausted: demand fits capacity in aggregate but no
		// arrangement satisfies every rule together.
		diag := buildDiagnostics(s.model, s.relax, nil)
		diag.Bottleneck = "no arrangement satisfies all rules together; demand fits capacity only in aggregate"
		return Result{Outcome: OutcomeInfeasible, Diagnostics: diag, Stats: stats}
	}
}

func (s *searcher) solve(depth int) searchStatus {
	if depth > s.maxDepth {
		s.maxDepth = depth
	}
	if depth == len(s.order) {
		return statusSolved
	}
	unit := s.order[depth]
	starts := s.theoryStarts
	rooms := s.theoryRooms
	if unit.IsLab() {
		starts = s.labStarts
		rooms = s.labRooms
	}
	for _, day := range s.dayOrder(unit) {
		for _, start := range starts {
			for _, room := range rooms {
				s.steps++
				if s.steps%s.checkEvery == 0 && s.expired() {
					return statusDeadline
				}
				p := Placement{Day: day, Period: start, RoomID: room.ID}
				if !s.assignment.CanPlace(unit, p, s.relax) {
					continue
				}
				s.assignment.Place(unit, p)
				switch s.solve(depth + 1) {
				case statusSolved:
					return statusSolved
				case statusDeadline:
					return statusDeadline
				}
				s.assignment.Unplace(unit)
				s.backtracks++
			}
		}
	}
	return statusExhausted
}

func (s *searcher) expired() bool {
	if s.ctx != nil {
		select {
		case <-s.ctx.Done():
			return true
		default:
		}
	}
	return !s.deadline.IsZero() && time.Now().After(s.deadline)
}

// dayOrder ranks days so the obligation spreads over the week: days it does
// not touch yet come first, then the globally emptiest days.
func (s *searcher) dayOrder(unit *SessionUnit) []int {
	days := make([]int, s.model.Grid.Days)
	for i := range days {
		days[i] = i
	}
	ob := unit.Obligation
	sort.SliceStable(days, func(i, j int) bool {
		di, dj := days[i], days[j]
		oi := s.assignment.obligationPeriodsOn(ob.ID, di)
		oj := s.assignment.obligationPeriodsOn(ob.ID, dj)
		if oi != oj {
			return oi < oj
		}
		ti := s.assignment.periodsByDay[di]
		tj := s.assignment.periodsByDay[dj]
		if ti != tj {
			return ti < tj
		}
		return di < dj
	})
	return days
}

func (s *searcher) precomputeDomains() {
	m := s.model
	for p := 0; p < m.Grid.PeriodsPerDay; p++ {
		s.theoryStarts = append(s.theoryStarts, p)
		if fitsBlockShape(m.Grid, true, m.Rules.LabBlockLength, p) && labStartAllowed(m.Rules, s.relax, p) {
			s.labStarts = append(s.labStarts, p)
		}
	}
	for _, r := range m.Rooms {
		if roomUsable(s.relax, true, r) {
			s.labRooms = append(s.labRooms, r)
		}
		if roomUsable(s.relax, false, r) {
			s.theoryRooms = append(s.theoryRooms, r)
		}
	}
}

// orderUnits fixes the variable order: lab blocks before theory periods, and
// within each class the tighter obligation first. Tightness for a lab is how
// few start positions it has; for theory it is the slack between the weekly
// demand and what the daily cap admits.
func orderUnits(m *Model) []*SessionUnit {
	order := append([]*SessionUnit(nil), m.Units...)
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.IsLab() != b.IsLab() {
			return a.IsLab()
		}
		sa := placementSlack(m, a)
		sb := placementSlack(m, b)
		if sa != sb {
			return sa < sb
		}
		return a.Obligation.ID < b.Obligation.ID
	})
	return order
}

func placementSlack(m *Model, u *SessionUnit) int {
	ob := u.Obligation
	return ob.MaxPeriodsPerDay*m.Grid.Days - ob.PeriodsPerWeek
}

// analyze checks the static necessary conditions: every unit admits at least
// one placement on an empty grid (external bookings included), and demand
// fits the usable room-period capacity per room class and overall.
func analyze(m *Model, relax Relaxations) (*Diagnostics, bool) {
	blocked := blockedObligations(m, relax)
	diag := buildDiagnostics(m, relax, blocked)

	switch {
	case len(blocked) > 0:
		diag.Bottleneck = fmt.Sprintf("obligation(s) %s admit no (day, period, room) under the current rules", strings.Join(blocked, ", "))
		return diag, true
	case diag.LabPeriodsRequired > diag.LabRoomPeriods:
		diag.Bottleneck = fmt.Sprintf("laboratory demand %d periods exceeds laboratory capacity %d", diag.LabPeriodsRequired, diag.LabRoomPeriods)
		return diag, true
	case diag.TheoryPeriodsRequired > diag.TheoryRoomPeriods:
		diag.Bottleneck = fmt.Sprintf("theory demand %d periods exceeds classroom capacity %d", diag.TheoryPeriodsRequired, diag.TheoryRoomPeriods)
		return diag, true
	case diag.RequiredPeriods > diag.RoomPeriods:
		diag.Bottleneck = fmt.Sprintf("total demand %d periods exceeds total room capacity %d", diag.RequiredPeriods, diag.RoomPeriods)
		return diag, true
	}
	return diag, false
}

func buildDiagnostics(m *Model, relax Relaxations, blocked []string) *Diagnostics {
	diag := &Diagnostics{
		RequiredPeriods:      m.RequiredPeriods(),
		RoomPeriods:          len(m.Rooms) * m.Grid.TotalPeriods(),
		LabRoomPeriods:       m.usableRoomCount(relax, true) * m.Grid.TotalPeriods(),
		TheoryRoomPeriods:    m.usableRoomCount(relax, false) * m.Grid.TotalPeriods(),
		BlockedObligationIDs: blocked,
	}
	for _, u := range m.Units {
		if u.IsLab() {
			diag.LabPeriodsRequired += u.Length
		} else {
			diag.TheoryPeriodsRequired += u.Length
		}
	}
	return diag
}

// blockedObligations returns the ids of obligations with at least one unit
// whose static domain is empty: no day, start and room passes the shape,
// room-type, restricted-start and external-booking checks even on an empty
// grid.
func blockedObligations(m *Model, relax Relaxations) []string {
	seen := make(map[string]bool)
	var blocked []string
	for _, u := range m.Units {
		if seen[u.Obligation.ID] {
			continue
		}
		if staticDomainEmpty(m, relax, u) {
			seen[u.Obligation.ID] = true
			blocked = append(blocked, u.Obligation.ID)
		}
	}
	sort.Strings(blocked)
	return blocked
}

func staticDomainEmpty(m *Model, relax Relaxations, u *SessionUnit) bool {
	hasRoom := false
	for _, r := range m.Rooms {
		if roomUsable(relax, u.IsLab(), r) {
			hasRoom = true
			break
		}
	}
	if !hasRoom {
		return true
	}
	for day := 0; day < m.Grid.Days; day++ {
		for start := 0; start+u.Length <= m.Grid.PeriodsPerDay; start++ {
			if !fitsBlockShape(m.Grid, u.IsLab(), u.Length, start) {
				continue
			}
			if u.IsLab() && !labStartAllowed(m.Rules, relax, start) {
				continue
			}
			free := true
			for offset := 0; offset < u.Length; offset++ {
				if _, busy := m.External[BusyKey{TeacherID: u.Obligation.TeacherID, Day: day, Period: start + offset}]; busy {
					free = false
					break
				}
			}
			if free {
				return false
			}
		}
	}
	return true
}
