package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func auditFixture() (GridConfig, RuleConfig, []Room) {
	rooms := []Room{
		{ID: "room-1", Capacity: 40, Type: RoomTypeClassroom},
		{ID: "room-2", Capacity: 40, Type: RoomTypeClassroom},
		{ID: "lab-1", Capacity: 24, Type: RoomTypeLaboratory},
	}
	return DefaultGrid(), DefaultRules(), rooms
}

func theorySession(id, teacherID, roomID string, day, period int) PlacedSession {
	return PlacedSession{
		SessionID:    id,
		ObligationID: "ob-" + id,
		SubjectID:    "sub-" + id,
		TeacherID:    teacherID,
		RoomID:       roomID,
		Day:          day,
		Period:       period,
		Length:       1,
	}
}

func TestCheckSessionsAcceptsCleanTimetable(t *testing.T) {
	grid, rules, rooms := auditFixture()
	sessions := []PlacedSession{
		theorySession("s-1", "t-1", "room-1", 0, 0),
		theorySession("s-2", "t-2", "room-2", 0, 0),
		theorySession("s-3", "t-1", "room-1", 1, 3),
		{SessionID: "s-4", ObligationID: "ob-s-4", SubjectID: "sub-4", TeacherID: "t-3", RoomID: "lab-1", Day: 2, Period: 1, Length: 3, IsLab: true},
	}

	assert.Empty(t, CheckSessions(grid, rules, Relaxations{}, rooms, sessions, nil))
}

func TestCheckSessionsFlagsRoomConflict(t *testing.T) {
	grid, rules, rooms := auditFixture()
	sessions := []PlacedSession{
		theorySession("s-1", "t-1", "room-1", 2, 5),
		theorySession("s-2", "t-2", "room-1", 2, 5),
	}

	violations := CheckSessions(grid, rules, Relaxations{}, rooms, sessions, nil)
	require.Len(t, violations, 1)
	v := violations[0]
	assert.Equal(t, RuleRoomConflict, v.Rule)
	assert.Equal(t, 2, v.Day)
	assert.Equal(t, 5, v.Period)
	assert.Equal(t, "room-1", v.RoomID)
	assert.Equal(t, []string{"s-1", "s-2"}, v.SessionIDs)
}

func TestCheckSessionsFlagsTeacherConflicts(t *testing.T) {
	grid, rules, rooms := auditFixture()

	t.Run("between two sessions", func(t *testing.T) {
		sessions := []PlacedSession{
			theorySession("s-1", "t-1", "room-1", 1, 2),
			theorySession("s-2", "t-1", "room-2", 1, 2),
		}
		violations := CheckSessions(grid, rules, Relaxations{}, rooms, sessions, nil)
		require.Len(t, violations, 1)
		assert.Equal(t, RuleTeacherConflict, violations[0].Rule)
		assert.Equal(t, "t-1", violations[0].TeacherID)
		assert.Equal(t, []string{"s-1", "s-2"}, violations[0].SessionIDs)
	})

	t.Run("against an external booking", func(t *testing.T) {
		sessions := []PlacedSession{theorySession("s-1", "t-1", "room-1", 3, 6)}
		external := map[BusyKey]struct{}{
			{TeacherID: "t-1", Day: 3, Period: 6}: {},
		}
		violations := CheckSessions(grid, rules, Relaxations{}, rooms, sessions, external)
		require.Len(t, violations, 1)
		assert.Equal(t, RuleTeacherConflict, violations[0].Rule)
		assert.Equal(t, 3, violations[0].Day)
		assert.Equal(t, 6, violations[0].Period)
	})
}

func TestCheckSessionsFlagsLabPlacementFaults(t *testing.T) {
	grid, rules, rooms := auditFixture()

	t.Run("block crossing the half-day boundary", func(t *testing.T) {
		sessions := []PlacedSession{
			{SessionID: "s-1", ObligationID: "ob-1", TeacherID: "t-1", RoomID: "lab-1", Day: 0, Period: 2, Length: 3, IsLab: true},
		}
		violations := CheckSessions(grid, rules, Relaxations{}, rooms, sessions, nil)
		require.Len(t, violations, 1)
		assert.Equal(t, RuleLabPlacement, violations[0].Rule)
	})

	t.Run("restricted start period", func(t *testing.T) {
		sessions := []PlacedSession{
			{SessionID: "s-1", ObligationID: "ob-1", TeacherID: "t-1", RoomID: "lab-1", Day: 0, Period: 4, Length: 3, IsLab: true},
		}
		violations := CheckSessions(grid, rules, Relaxations{}, rooms, sessions, nil)
		require.Len(t, violations, 1)
		assert.Equal(t, RuleLabStart, violations[0].Rule)
		assert.Equal(t, 4, violations[0].Period)
	})

	t.Run("lab in a classroom", func(t *testing.T) {
		sessions := []PlacedSession{
			{SessionID: "s-1", ObligationID: "ob-1", TeacherID: "t-1", RoomID: "room-1", Day: 0, Period: 1, Length: 3, IsLab: true},
		}
		violations := CheckSessions(grid, rules, Relaxations{}, rooms, sessions, nil)
		require.Len(t, violations, 1)
		assert.Equal(t, RuleLabPlacement, violations[0].Rule)

		relaxed := CheckSessions(grid, rules, Relaxations{LabInClassroom: true}, rooms, sessions, nil)
		assert.Empty(t, relaxed, "the classroom substitution relaxation legalizes the placement")
	})

	t.Run("theory in a laboratory", func(t *testing.T) {
		sessions := []PlacedSession{theorySession("s-1", "t-1", "lab-1", 0, 0)}
		violations := CheckSessions(grid, rules, Relaxations{}, rooms, sessions, nil)
		require.Len(t, violations, 1)
		assert.Equal(t, RuleLabPlacement, violations[0].Rule)

		relaxed := CheckSessions(grid, rules, Relaxations{TheoryInLab: true}, rooms, sessions, nil)
		assert.Empty(t, relaxed)
	})
}

func TestCheckSessionsFlagsTeacherDailyOverload(t *testing.T) {
	grid, rules, rooms := auditFixture()
	sessions := []PlacedSession{
		theorySession("s-1", "t-1", "room-1", 0, 0),
		theorySession("s-2", "t-1", "room-1", 0, 2),
		theorySession("s-3", "t-1", "room-1", 0, 5),
	}

	violations := CheckSessions(grid, rules, Relaxations{}, rooms, sessions, nil)
	require.Len(t, violations, 1)
	v := violations[0]
	assert.Equal(t, RuleTeacherDailyCap, v.Rule)
	assert.Equal(t, "t-1", v.TeacherID)
	assert.Equal(t, []string{"s-1", "s-2", "s-3"}, v.SessionIDs)

	relaxed := CheckSessions(grid, rules, Relaxations{RaisedTeacherCap: true}, rooms, sessions, nil)
	assert.Empty(t, relaxed, "the raised cap admits three sessions")
}

func TestCheckSessionsOrderIsStable(t *testing.T) {
	grid, rules, rooms := auditFixture()
	sessions := []PlacedSession{
		theorySession("s-1", "t-1", "room-1", 2, 5),
		theorySession("s-2", "t-2", "room-1", 2, 5),
		theorySession("s-3", "t-3", "room-2", 0, 1),
		theorySession("s-4", "t-3", "room-1", 0, 1),
	}
	reversed := []PlacedSession{sessions[3], sessions[2], sessions[1], sessions[0]}

	first := CheckSessions(grid, rules, Relaxations{}, rooms, sessions, nil)
	second := CheckSessions(grid, rules, Relaxations{}, rooms, reversed, nil)
	assert.Equal(t, first, second)
}

func TestCheckCompleteness(t *testing.T) {
	obligations := []Obligation{
		{ID: "ob-1", SubjectID: "sub-1", TeacherID: "t-1", PeriodsPerWeek: 4, MaxPeriodsPerDay: 2},
	}

	t.Run("missing weekly periods", func(t *testing.T) {
		sessions := []PlacedSession{
			{SessionID: "s-1", ObligationID: "ob-1", TeacherID: "t-1", Day: 0, Period: 0, Length: 1},
			{SessionID: "s-2", ObligationID: "ob-1", TeacherID: "t-1", Day: 1, Period: 0, Length: 1},
			{SessionID: "s-3", ObligationID: "ob-1", TeacherID: "t-1", Day: 2, Period: 0, Length: 1},
		}
		violations := CheckCompleteness(obligations, sessions)
		require.Len(t, violations, 1)
		assert.Equal(t, RuleWeeklyTotal, violations[0].Rule)
	})

	t.Run("unknown obligation", func(t *testing.T) {
		sessions := []PlacedSession{
			{SessionID: "s-1", ObligationID: "ob-1", TeacherID: "t-1", Day: 0, Period: 0, Length: 1},
			{SessionID: "s-2", ObligationID: "ob-1", TeacherID: "t-1", Day: 1, Period: 0, Length: 1},
			{SessionID: "s-3", ObligationID: "ob-1", TeacherID: "t-1", Day: 2, Period: 0, Length: 1},
			{SessionID: "s-4", ObligationID: "ob-1", TeacherID: "t-1", Day: 3, Period: 0, Length: 1},
			{SessionID: "s-5", ObligationID: "ob-ghost", TeacherID: "t-9", Day: 4, Period: 0, Length: 1},
		}
		violations := CheckCompleteness(obligations, sessions)
		require.Len(t, violations, 1)
		assert.Equal(t, RuleWeeklyTotal, violations[0].Rule)
		assert.Contains(t, violations[0].Message, "ob-ghost")
	})

	t.Run("daily cap exceeded", func(t *testing.T) {
		sessions := []PlacedSession{
			{SessionID: "s-1", ObligationID: "ob-1", TeacherID: "t-1", Day: 0, Period: 0, Length: 1},
			{SessionID: "s-2", ObligationID: "ob-1", TeacherID: "t-1", Day: 0, Period: 2, Length: 1},
			{SessionID: "s-3", ObligationID: "ob-1", TeacherID: "t-1", Day: 0, Period: 4, Length: 1},
			{SessionID: "s-4", ObligationID: "ob-1", TeacherID: "t-1", Day: 1, Period: 0, Length: 1},
		}
		violations := CheckCompleteness(obligations, sessions)
		require.Len(t, violations, 1)
		assert.Equal(t, RuleDailyCap, violations[0].Rule)
		assert.Equal(t, 0, violations[0].Day)
		assert.Equal(t, []string{"s-1", "s-2", "s-3"}, violations[0].SessionIDs)
	})
}
