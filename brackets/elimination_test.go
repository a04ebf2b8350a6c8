package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/bracket-engine/models"
)

func seededTeams(entryIDs ...int) []SeededTeam {
	teams := make([]SeededTeam, len(entryIDs))
	for i, id := range entryIDs {
		teams[i] = SeededTeam{EntryID: id, Seed: i + 1}
	}
	return teams
}

func TestBuildEliminationPlan_NotEnoughTeams(t *testing.T) {
	_, err := BuildEliminationPlan(nil, false)
	assert.ErrorIs(t, err, ErrNotEnoughTeams)

	_, err = BuildEliminationPlan(seededTeams(1), false)
	assert.ErrorIs(t, err, ErrNotEnoughTeams)
}

func TestBuildEliminationPlan_TwoTeams(t *testing.T) {
	plan, err := BuildEliminationPlan(seededTeams(11, 22), false)
	require.NoError(t, err)

	assert.Equal(t, 2, plan.BracketSize)
	assert.Equal(t, 1, plan.Rounds)
	require.Len(t, plan.Matches, 1)

	final := plan.Match(1, 0)
	require.NotNil(t, final)
	assert.Equal(t, models.PhaseFinal, final.Phase)
	assert.Equal(t, 11, *final.Team1EntryID)
	assert.Equal(t, 22, *final.Team2EntryID)
	assert.False(t, final.Completed)
	assert.Nil(t, plan.ThirdPlaceMatch())
}

func TestBuildEliminationPlan_FiveTeams(t *testing.T) {
	plan, err := BuildEliminationPlan(seededTeams(101, 102, 103, 104, 105), true)
	require.NoError(t, err)

	assert.Equal(t, 8, plan.BracketSize)
	assert.Equal(t, 3, plan.Rounds)
	assert.Equal(t, 5, plan.TeamCount)
	// 4 quarterfinals, 2 semifinals, final, third place.
	assert.Len(t, plan.Matches, 8)

	// Separated seeding for 8 slots is 1,8,4,5,2,7,3,6; seeds 6-8 are byes.
	qf0 := plan.Match(1, 0)
	require.NotNil(t, qf0)
	assert.Equal(t, 101, *qf0.Team1EntryID)
	assert.Nil(t, qf0.Team2EntryID)
	assert.True(t, qf0.Completed)
	assert.Equal(t, 101, *qf0.WinnerEntryID)

	qf1 := plan.Match(1, 1)
	require.NotNil(t, qf1)
	assert.Equal(t, 104, *qf1.Team1EntryID)
	assert.Equal(t, 105, *qf1.Team2EntryID)
	assert.False(t, qf1.Completed)
	assert.Nil(t, qf1.WinnerEntryID)

	qf2 := plan.Match(1, 2)
	require.NotNil(t, qf2)
	assert.Equal(t, 102, *qf2.Team1EntryID)
	assert.True(t, qf2.Completed)

	qf3 := plan.Match(1, 3)
	require.NotNil(t, qf3)
	assert.Equal(t, 103, *qf3.Team1EntryID)
	assert.True(t, qf3.Completed)

	// Bye winners are advanced into the semifinals at build time.
	sf0 := plan.Match(2, 0)
	require.NotNil(t, sf0)
	assert.Equal(t, models.PhaseSemi, sf0.Phase)
	assert.Equal(t, 101, *sf0.Team1EntryID)
	assert.Nil(t, sf0.Team2EntryID)
	assert.False(t, sf0.Completed)

	sf1 := plan.Match(2, 1)
	require.NotNil(t, sf1)
	assert.Equal(t, 102, *sf1.Team1EntryID)
	assert.Equal(t, 103, *sf1.Team2EntryID)
	assert.False(t, sf1.Completed)

	final := plan.Match(3, 0)
	require.NotNil(t, final)
	assert.Equal(t, models.PhaseFinal, final.Phase)
	assert.Nil(t, final.Team1EntryID)
	assert.Nil(t, final.Team2EntryID)

	third := plan.ThirdPlaceMatch()
	require.NotNil(t, third)
	assert.Equal(t, models.PhaseThirdPlace, third.Phase)
	assert.Nil(t, third.Team1EntryID)
	assert.Nil(t, third.Team2EntryID)
}

func TestBuildEliminationPlan_FullBracketHasNoByes(t *testing.T) {
	teams := seededTeams(1, 2, 3, 4, 5, 6, 7, 8)
	plan, err := BuildEliminationPlan(teams, false)
	require.NoError(t, err)

	assert.Equal(t, 8, plan.BracketSize)
	for p := 0; p < 4; p++ {
		m := plan.Match(1, p)
		require.NotNil(t, m)
		assert.NotNil(t, m.Team1EntryID)
		assert.NotNil(t, m.Team2EntryID)
		assert.False(t, m.Completed)
	}
}

func TestBuildEliminationPlan_SeedOrderIndependentOfInputOrder(t *testing.T) {
	shuffled := []SeededTeam{
		{EntryID: 303, Seed: 3},
		{EntryID: 101, Seed: 1},
		{EntryID: 404, Seed: 4},
		{EntryID: 202, Seed: 2},
	}
	plan, err := BuildEliminationPlan(shuffled, false)
	require.NoError(t, err)

	// Seeding order for 4 slots is 1,4,2,3.
	sf0 := plan.Match(1, 0)
	assert.Equal(t, 101, *sf0.Team1EntryID)
	assert.Equal(t, 404, *sf0.Team2EntryID)
	sf1 := plan.Match(1, 1)
	assert.Equal(t, 202, *sf1.Team1EntryID)
	assert.Equal(t, 303, *sf1.Team2EntryID)
}

func TestBuildEliminationPlan_NoThirdPlaceForTwoTeams(t *testing.T) {
	plan, err := BuildEliminationPlan(seededTeams(1, 2), true)
	require.NoError(t, err)
	assert.Nil(t, plan.ThirdPlaceMatch())
}

func TestBuildEliminationPlan_MatchNumbersRoundMajor(t *testing.T) {
	plan, err := BuildEliminationPlan(seededTeams(1, 2, 3, 4, 5, 6), true)
	require.NoError(t, err)

	last := 0
	for _, m := range plan.Matches {
		assert.Equal(t, last+1, m.MatchNumber)
		last = m.MatchNumber
	}
}
