package engine

import (
	"context"
	"time"
)

// Relaxation is one rung of the relaxation ladder: a named, targeted
// loosening of a single rule.
type Relaxation struct {
	Name  string
	Apply func(*Relaxations)
}

// DefaultLadder returns the production ladder, ordered from least to most
// disruptive. Rungs apply cumulatively.
func DefaultLadder() []Relaxation {
	return []Relaxation{
		{Name: "allow_lab_in_classroom", Apply: func(r *Relaxations) { r.LabInClassroom = true }},
		{Name: "allow_theory_in_lab", Apply: func(r *Relaxations) { r.TheoryInLab = true }},
		{Name: "allow_lab_first_period", Apply: func(r *Relaxations) { r.LabRestrictedStart = true }},
		{Name: "raise_teacher_daily_cap", Apply: func(r *Relaxations) { r.RaisedTeacherCap = true }},
	}
}

// RelaxationsFromNames rebuilds the relaxation set a stored timetable was
// generated under from its recorded rung names. Unknown names are ignored.
func RelaxationsFromNames(names []string) Relaxations {
	var relax Relaxations
	for _, rung := range DefaultLadder() {
		for _, name := range names {
			if name == rung.Name {
				rung.Apply(&relax)
				break
			}
		}
	}
	return relax
}

// Attempt records one run of the search at a ladder position.
type Attempt struct {
	Applied []string `json:"applied"`
	Outcome Outcome  `json:"outcome"`
	Stats   Stats    `json:"stats"`
}

// RunResult is the final outcome of a laddered generation run.
type RunResult struct {
	Result   Result
	Applied  []string
	Relax    Relaxations
	Attempts []Attempt
}

// TotalStats sums the effort across every attempt of the run.
func (r RunResult) TotalStats() Stats {
	var total Stats
	for _, a := range r.Attempts {
		total.Steps += a.Stats.Steps
		total.Backtracks += a.Stats.Backtracks
		total.Elapsed += a.Stats.Elapsed
		if a.Stats.MaxDepth > total.MaxDepth {
			total.MaxDepth = a.Stats.MaxDepth
		}
		if a.Stats.Units > total.Units {
			total.Units = a.Stats.Units
		}
	}
	return total
}

// RunLadder searches strictly first, then retries with each ladder rung
// applied cumulatively. The remaining budget splits evenly over the attempts
// still ahead, so an attempt that fails fast hands its unused time to the
// later, more relaxed ones. The first Solved attempt wins; an exhausted
// ladder yields the last attempt's result; an exhausted budget yields
// OutcomeTimedOut.
func RunLadder(ctx context.Context, m *Model, ladder []Relaxation, budget time.Duration, checkEvery int) RunResult {
	overall := time.Now().Add(budget)
	var (
		relax   Relaxations
		applied []string
		rr      RunResult
		last    Result
	)

	for i := 0; i <= len(ladder); i++ {
		if i > 0 {
			ladder[i-1].Apply(&relax)
			applied = append(applied, ladder[i-1].Name)
		}
		remaining := time.Until(overall)
		if remaining <= 0 {
			last = Result{Outcome: OutcomeTimedOut, Stats: rr.TotalStats()}
			break
		}
		attemptsLeft := len(ladder) - i + 1
		deadline := overall
		if i < len(ladder) {
			deadline = time.Now().Add(remaining / time.Duration(attemptsLeft))
		}

		res := Solve(ctx, m, relax, deadline, checkEvery)
		rr.Attempts = append(rr.Attempts, Attempt{
			Applied: append([]string(nil), applied...),
			Outcome: res.Outcome,
			Stats:   res.Stats,
		})
		last = res
		if res.Outcome == OutcomeSolved {
			break
		}
	}

	if last.Outcome == OutcomeTimedOut {
		// Only the whole budget counts as a generation timeout; a timed-out
		// slice with budget left just falls through to the next rung, and the
		// final rung already ran against the overall deadline.
		last.Stats = rr.TotalStats()
	}
	rr.Result = last
	rr.Applied = append([]string(nil), applied...)
	rr.Relax = relax
	return rr
}
