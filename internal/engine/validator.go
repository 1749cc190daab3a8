package engine

import (
	"fmt"
	"sort"
)

// CheckCompleteness verifies a complete timetable against the obligations it
// was generated from: every obligation's weekly periods are fully placed,
// nothing is placed for unknown obligations, and no obligation exceeds its
// own daily cap. The search guarantees these by construction, so a finding
// here means the stored timetable and the obligation book have drifted apart.
func CheckCompleteness(obligations []Obligation, sessions []PlacedSession) []Violation {
	required := make(map[string]Obligation, len(obligations))
	for _, ob := range obligations {
		required[ob.ID] = ob
	}

	placedWeekly := make(map[string]int)
	placedDaily := make(map[obligationDay]int)
	sessionsByObligation := make(map[string][]string)
	for _, s := range sessions {
		placedWeekly[s.ObligationID] += s.Length
		placedDaily[obligationDay{ObligationID: s.ObligationID, Day: s.Day}] += s.Length
		sessionsByObligation[s.ObligationID] = append(sessionsByObligation[s.ObligationID], s.SessionID)
	}

	var out []Violation
	for id, ob := range required {
		if placedWeekly[id] != ob.PeriodsPerWeek {
			ids := sessionsByObligation[id]
			sort.Strings(ids)
			out = append(out, Violation{
				Rule:       RuleWeeklyTotal,
				TeacherID:  ob.TeacherID,
				SessionIDs: ids,
				Message:    fmt.Sprintf("obligation %s has %d of %d weekly periods placed", id, placedWeekly[id], ob.PeriodsPerWeek),
			})
		}
	}
	for id := range placedWeekly {
		if _, known := required[id]; !known {
			ids := sessionsByObligation[id]
			sort.Strings(ids)
			out = append(out, Violation{
				Rule:       RuleWeeklyTotal,
				SessionIDs: ids,
				Message:    fmt.Sprintf("sessions reference unknown obligation %s", id),
			})
		}
	}
	for key, periods := range placedDaily {
		ob, known := required[key.ObligationID]
		if !known || periods <= ob.MaxPeriodsPerDay {
			continue
		}
		var ids []string
		for _, s := range sessions {
			if s.ObligationID == key.ObligationID && s.Day == key.Day {
				ids = append(ids, s.SessionID)
			}
		}
		sort.Strings(ids)
		out = append(out, Violation{
			Rule:       RuleDailyCap,
			Day:        key.Day,
			TeacherID:  ob.TeacherID,
			SessionIDs: ids,
			Message:    fmt.Sprintf("obligation %s has %d periods on day %d, cap is %d", key.ObligationID, periods, key.Day, ob.MaxPeriodsPerDay),
		})
	}

	sortViolations(out)
	return out
}
