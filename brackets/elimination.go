package brackets

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"

	"github.com/courtside/bracket-engine/models"
)

var ErrNotEnoughTeams = errors.New("not enough teams for an elimination bracket (minimum 2)")

// SeededTeam is one qualifying team together with its 1-based strength rank
// used for slot placement.
type SeededTeam struct {
	EntryID int
	Seed    int
}

// PlannedMatch is one node of a not-yet-persisted elimination tree. Round
// and Position identify the node; the winner of (round r, position p)
// advances to (r+1, p/2), slot p%2+1. The repository ids and forward links
// are wired when the plan is persisted.
type PlannedMatch struct {
	Round       int
	Position    int
	Phase       models.MatchPhase
	MatchNumber int

	Team1EntryID *int
	Team2EntryID *int

	// Byes are decided at build time: the lone team is the winner and the
	// match is born completed, no score entry required.
	WinnerEntryID *int
	Completed     bool

	ThirdPlace bool
}

// EliminationPlan is the full structure of a single-elimination stage.
// Matches are ordered round-major; the optional third-place match is last.
type EliminationPlan struct {
	BracketSize int
	Rounds      int
	TeamCount   int
	Matches     []*PlannedMatch
}

// Match returns the planned match at (round, position), or nil.
func (p *EliminationPlan) Match(round, position int) *PlannedMatch {
	for _, m := range p.Matches {
		if !m.ThirdPlace && m.Round == round && m.Position == position {
			return m
		}
	}
	return nil
}

// ThirdPlaceMatch returns the planned third-place match, or nil.
func (p *EliminationPlan) ThirdPlaceMatch() *PlannedMatch {
	for _, m := range p.Matches {
		if m.ThirdPlace {
			return m
		}
	}
	return nil
}

// BuildEliminationPlan lays out the elimination stage for the given teams.
// The bracket size is the smallest power of two >= len(teams); teams are
// placed by separated seeding, leftover slots become byes whose winners are
// already advanced into the next round. A third-place match is added only
// when the bracket actually has semifinals.
func BuildEliminationPlan(teams []SeededTeam, thirdPlace bool) (*EliminationPlan, error) {
	n := len(teams)
	if n < 2 {
		return nil, ErrNotEnoughTeams
	}

	ordered := make([]SeededTeam, n)
	copy(ordered, teams)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Seed < ordered[j].Seed
	})

	size := NextPowerOfTwo(n)
	rounds := bits.TrailingZeros(uint(size))

	// slots[pos] is the entry occupying first-round position pos, nil for a bye.
	slots := make([]*int, size)
	for i, seed := range SeedingOrder(size) {
		if seed <= n {
			entryID := ordered[seed-1].EntryID
			slots[i] = &entryID
		}
	}

	plan := &EliminationPlan{
		BracketSize: size,
		Rounds:      rounds,
		TeamCount:   n,
	}

	matchNumber := 0
	// next[pos] holds entries already known for round r+1 at build time
	// (bye winners from round r).
	current := slots
	for r := 1; r <= rounds; r++ {
		next := make([]*int, len(current)/2)
		for p := 0; p < len(current)/2; p++ {
			t1 := current[2*p]
			t2 := current[2*p+1]
			matchNumber++
			m := &PlannedMatch{
				Round:        r,
				Position:     p,
				Phase:        models.PhaseForRound(r, rounds),
				MatchNumber:  matchNumber,
				Team1EntryID: t1,
				Team2EntryID: t2,
			}
			if r == 1 {
				switch {
				case t1 != nil && t2 == nil:
					m.WinnerEntryID = t1
					m.Completed = true
					next[p] = t1
				case t1 == nil && t2 != nil:
					m.WinnerEntryID = t2
					m.Completed = true
					next[p] = t2
				case t1 == nil && t2 == nil:
					// Cannot happen with smallest-power sizing: byes are
					// always fewer than half the bracket.
					return nil, fmt.Errorf("bye-only pairing at position %d for %d teams", p, n)
				}
			}
			plan.Matches = append(plan.Matches, m)
		}
		current = next
	}

	if thirdPlace && rounds >= 2 {
		matchNumber++
		plan.Matches = append(plan.Matches, &PlannedMatch{
			Round:       rounds,
			Position:    0,
			Phase:       models.PhaseThirdPlace,
			MatchNumber: matchNumber,
			ThirdPlace:  true,
		})
	}

	return plan, nil
}
