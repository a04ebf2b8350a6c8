package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/bracket-engine/models"
)

func intPtr(v int) *int { return &v }

func completedGroupMatch(t1, t2, s1, s2 int) *models.BracketMatch {
	winner := t1
	if s2 > s1 {
		winner = t2
	}
	return &models.BracketMatch{
		Phase:         models.PhasePreliminary,
		Status:        models.MatchStatusCompleted,
		Team1EntryID:  intPtr(t1),
		Team2EntryID:  intPtr(t2),
		Team1Score:    intPtr(s1),
		Team2Score:    intPtr(s2),
		WinnerEntryID: intPtr(winner),
	}
}

func TestTally_RecomputesFromScratch(t *testing.T) {
	teams := []models.GroupTeam{
		{ID: 1, EntryID: 10, Wins: 99, PointsFor: 99},
		{ID: 2, EntryID: 20},
		{ID: 3, EntryID: 30},
	}
	matches := []*models.BracketMatch{
		completedGroupMatch(10, 20, 21, 15),
		completedGroupMatch(20, 30, 21, 18),
		{ // scheduled match must not count
			Status:       models.MatchStatusScheduled,
			Team1EntryID: intPtr(10),
			Team2EntryID: intPtr(30),
		},
	}

	out := Tally(teams, matches)

	assert.Equal(t, 1, out[0].Wins)
	assert.Equal(t, 0, out[0].Losses)
	assert.Equal(t, 21, out[0].PointsFor)
	assert.Equal(t, 15, out[0].PointsAgainst)

	assert.Equal(t, 1, out[1].Wins)
	assert.Equal(t, 1, out[1].Losses)
	assert.Equal(t, 36, out[1].PointsFor)
	assert.Equal(t, 39, out[1].PointsAgainst)

	assert.Equal(t, 0, out[2].Wins)
	assert.Equal(t, 1, out[2].Losses)
}

func TestComputeStandings_WinsThenPointDiff(t *testing.T) {
	teams := []models.GroupTeam{
		{ID: 1, EntryID: 10, Wins: 1, Losses: 2, PointsFor: 40, PointsAgainst: 60},
		{ID: 2, EntryID: 20, Wins: 3, Losses: 0, PointsFor: 63, PointsAgainst: 30},
		{ID: 3, EntryID: 30, Wins: 1, Losses: 2, PointsFor: 50, PointsAgainst: 55},
		{ID: 4, EntryID: 40, Wins: 1, Losses: 2, PointsFor: 45, PointsAgainst: 58},
	}

	standings := ComputeStandings(teams, nil)

	require.Len(t, standings, 4)
	assert.Equal(t, 20, standings[0].EntryID)
	// The three one-win teams order by point difference: -5, -13, -20.
	assert.Equal(t, 30, standings[1].EntryID)
	assert.Equal(t, 40, standings[2].EntryID)
	assert.Equal(t, 10, standings[3].EntryID)
}

func TestComputeStandings_HeadToHeadBreaksTwoWayTie(t *testing.T) {
	// Both 2-1 with identical point difference; entry 20 beat entry 10.
	teams := []models.GroupTeam{
		{ID: 1, EntryID: 10, Wins: 2, Losses: 1, PointsFor: 60, PointsAgainst: 50},
		{ID: 2, EntryID: 20, Wins: 2, Losses: 1, PointsFor: 55, PointsAgainst: 45},
		{ID: 3, EntryID: 30, Wins: 0, Losses: 2, PointsFor: 30, PointsAgainst: 50},
	}
	matches := []*models.BracketMatch{
		completedGroupMatch(10, 20, 18, 21),
	}

	standings := ComputeStandings(teams, matches)

	assert.Equal(t, 20, standings[0].EntryID)
	assert.Equal(t, 10, standings[1].EntryID)
	assert.Equal(t, 30, standings[2].EntryID)
}

func TestComputeStandings_PointsForWhenNoHeadToHead(t *testing.T) {
	teams := []models.GroupTeam{
		{ID: 1, EntryID: 10, Wins: 1, Losses: 1, PointsFor: 40, PointsAgainst: 35},
		{ID: 2, EntryID: 20, Wins: 1, Losses: 1, PointsFor: 48, PointsAgainst: 43},
	}

	// No match between them on record, so points scored decides.
	standings := ComputeStandings(teams, nil)

	assert.Equal(t, 20, standings[0].EntryID)
	assert.Equal(t, 10, standings[1].EntryID)
}

func TestComputeStandings_MultiWayTieUsesPointsFor(t *testing.T) {
	teams := []models.GroupTeam{
		{ID: 1, EntryID: 10, Wins: 1, Losses: 1, PointsFor: 40, PointsAgainst: 38},
		{ID: 2, EntryID: 20, Wins: 1, Losses: 1, PointsFor: 50, PointsAgainst: 48},
		{ID: 3, EntryID: 30, Wins: 1, Losses: 1, PointsFor: 45, PointsAgainst: 43},
	}

	standings := ComputeStandings(teams, nil)

	assert.Equal(t, 20, standings[0].EntryID)
	assert.Equal(t, 30, standings[1].EntryID)
	assert.Equal(t, 10, standings[2].EntryID)
}

func TestComputeStandings_FullTieKeepsInputOrder(t *testing.T) {
	teams := []models.GroupTeam{
		{ID: 1, EntryID: 10, Wins: 1, Losses: 1, PointsFor: 42, PointsAgainst: 42},
		{ID: 2, EntryID: 20, Wins: 1, Losses: 1, PointsFor: 42, PointsAgainst: 42},
		{ID: 3, EntryID: 30, Wins: 1, Losses: 1, PointsFor: 42, PointsAgainst: 42},
	}

	standings := ComputeStandings(teams, nil)

	// Every tie-break is exhausted: input order is the deterministic fallback.
	assert.Equal(t, 10, standings[0].EntryID)
	assert.Equal(t, 20, standings[1].EntryID)
	assert.Equal(t, 30, standings[2].EntryID)
}
