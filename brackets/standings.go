package brackets

import (
	"sort"

	"github.com/courtside/bracket-engine/models"
)

// Standing is one row of a group table, ordered strongest first.
type Standing struct {
	GroupTeamID   int
	EntryID       int
	Wins          int
	Losses        int
	PointsFor     int
	PointsAgainst int
}

func (s Standing) PointDiff() int {
	return s.PointsFor - s.PointsAgainst
}

// Tally recomputes win/loss/points tallies for a group's teams from its
// completed matches. Recomputing from scratch keeps the tallies correct no
// matter how often or in which order results arrive.
func Tally(teams []models.GroupTeam, matches []*models.BracketMatch) []models.GroupTeam {
	out := make([]models.GroupTeam, len(teams))
	byEntry := make(map[int]*models.GroupTeam, len(teams))
	for i, t := range teams {
		t.Wins, t.Losses, t.PointsFor, t.PointsAgainst = 0, 0, 0, 0
		out[i] = t
		byEntry[t.EntryID] = &out[i]
	}

	for _, m := range matches {
		if m.Status != models.MatchStatusCompleted || m.WinnerEntryID == nil {
			continue
		}
		if m.Team1EntryID == nil || m.Team2EntryID == nil ||
			m.Team1Score == nil || m.Team2Score == nil {
			continue
		}
		t1, ok1 := byEntry[*m.Team1EntryID]
		t2, ok2 := byEntry[*m.Team2EntryID]
		if !ok1 || !ok2 {
			continue
		}
		t1.PointsFor += *m.Team1Score
		t1.PointsAgainst += *m.Team2Score
		t2.PointsFor += *m.Team2Score
		t2.PointsAgainst += *m.Team1Score
		if *m.WinnerEntryID == *m.Team1EntryID {
			t1.Wins++
			t2.Losses++
		} else {
			t2.Wins++
			t1.Losses++
		}
	}
	return out
}

// ComputeStandings orders a group's teams by wins, then point difference,
// then head-to-head when exactly two teams remain tied, then points for.
// Ties left after every break keep input order; the fallback is stable on
// purpose, not random.
func ComputeStandings(teams []models.GroupTeam, matches []*models.BracketMatch) []Standing {
	standings := make([]Standing, len(teams))
	for i, t := range teams {
		standings[i] = Standing{
			GroupTeamID:   t.ID,
			EntryID:       t.EntryID,
			Wins:          t.Wins,
			Losses:        t.Losses,
			PointsFor:     t.PointsFor,
			PointsAgainst: t.PointsAgainst,
		}
	}

	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].Wins != standings[j].Wins {
			return standings[i].Wins > standings[j].Wins
		}
		return standings[i].PointDiff() > standings[j].PointDiff()
	})

	// Resolve runs still tied on wins and point difference.
	for start := 0; start < len(standings); {
		end := start + 1
		for end < len(standings) &&
			standings[end].Wins == standings[start].Wins &&
			standings[end].PointDiff() == standings[start].PointDiff() {
			end++
		}
		run := standings[start:end]
		if len(run) == 2 {
			if winner := headToHeadWinner(run[0].EntryID, run[1].EntryID, matches); winner != nil {
				if *winner == run[1].EntryID {
					run[0], run[1] = run[1], run[0]
				}
			} else if run[1].PointsFor > run[0].PointsFor {
				run[0], run[1] = run[1], run[0]
			}
		} else if len(run) > 2 {
			sort.SliceStable(run, func(i, j int) bool {
				return run[i].PointsFor > run[j].PointsFor
			})
		}
		start = end
	}

	return standings
}

// headToHeadWinner returns the winner of the completed match between the two
// entries, or nil when they have not played each other yet.
func headToHeadWinner(entryA, entryB int, matches []*models.BracketMatch) *int {
	for _, m := range matches {
		if m.Status != models.MatchStatusCompleted || m.WinnerEntryID == nil {
			continue
		}
		if m.HasEntry(entryA) && m.HasEntry(entryB) {
			return m.WinnerEntryID
		}
	}
	return nil
}
