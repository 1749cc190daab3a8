package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completenessFixture() []Obligation {
	return []Obligation{
		{ID: "ob-1", SubjectID: "sub-1", TeacherID: "t-1", PeriodsPerWeek: 3, MaxPeriodsPerDay: 2},
		{ID: "ob-2", SubjectID: "sub-2", TeacherID: "t-2", IsLab: true, PeriodsPerWeek: 3, MaxPeriodsPerDay: 3},
	}
}

func placedFor(obligationID, sessionID string, day, period, length int) PlacedSession {
	return PlacedSession{
		SessionID:    sessionID,
		ObligationID: obligationID,
		TeacherID:    "t-x",
		RoomID:       "room-1",
		Day:          day,
		Period:       period,
		Length:       length,
	}
}

func TestCheckCompletenessAcceptsFullPlacement(t *testing.T) {
	sessions := []PlacedSession{
		placedFor("ob-1", "s-1", 0, 0, 1),
		placedFor("ob-1", "s-2", 1, 0, 1),
		placedFor("ob-1", "s-3", 2, 0, 1),
		placedFor("ob-2", "s-4", 3, 4, 3),
	}

	assert.Empty(t, CheckCompleteness(completenessFixture(), sessions))
}

func TestCheckCompletenessFlagsMissingPeriods(t *testing.T) {
	sessions := []PlacedSession{
		placedFor("ob-1", "s-1", 0, 0, 1),
		placedFor("ob-2", "s-4", 3, 4, 3),
	}

	violations := CheckCompleteness(completenessFixture(), sessions)
	require.Len(t, violations, 1)
	assert.Equal(t, RuleWeeklyTotal, violations[0].Rule)
	assert.Equal(t, "t-1", violations[0].TeacherID)
	assert.Equal(t, []string{"s-1"}, violations[0].SessionIDs)
	assert.Contains(t, violations[0].Message, "1 of 3 weekly periods")
}

func TestCheckCompletenessFlagsUnknownObligation(t *testing.T) {
	sessions := []PlacedSession{
		placedFor("ob-1", "s-1", 0, 0, 1),
		placedFor("ob-1", "s-2", 1, 0, 1),
		placedFor("ob-1", "s-3", 2, 0, 1),
		placedFor("ob-2", "s-4", 3, 4, 3),
		placedFor("ob-ghost", "s-9", 4, 0, 1),
	}

	violations := CheckCompleteness(completenessFixture(), sessions)
	require.Len(t, violations, 1)
	assert.Equal(t, RuleWeeklyTotal, violations[0].Rule)
	assert.Equal(t, []string{"s-9"}, violations[0].SessionIDs)
	assert.Contains(t, violations[0].Message, "unknown obligation ob-ghost")
}

func TestCheckCompletenessFlagsObligationDailyOverrun(t *testing.T) {
	// Three singles of ob-1 crammed into one day: weekly total is satisfied
	// but the per-obligation daily cap of 2 is not.
	sessions := []PlacedSession{
		placedFor("ob-1", "s-1", 0, 0, 1),
		placedFor("ob-1", "s-2", 0, 2, 1),
		placedFor("ob-1", "s-3", 0, 5, 1),
		placedFor("ob-2", "s-4", 3, 4, 3),
	}

	violations := CheckCompleteness(completenessFixture(), sessions)
	require.Len(t, violations, 1)
	assert.Equal(t, RuleDailyCap, violations[0].Rule)
	assert.Equal(t, 0, violations[0].Day)
	assert.Equal(t, []string{"s-1", "s-2", "s-3"}, violations[0].SessionIDs)
}
