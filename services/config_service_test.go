package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/bracket-engine/models"
)

func boolPtr(v bool) *bool { return &v }

func TestGetOrCreate_CreatesWithDefaults(t *testing.T) {
	f := newFixture()

	config, err := f.configService.GetOrCreate(context.Background(), 42)
	require.NoError(t, err)

	assert.NotZero(t, config.ID)
	assert.Equal(t, 42, config.DivisionID)
	assert.Equal(t, models.BracketStatusSetup, config.Status)
	assert.False(t, config.HasPreliminaries)
	assert.False(t, config.ThirdPlaceMatch)
	assert.Nil(t, config.BracketSize)
}

func TestGetOrCreate_ReturnsExistingConfig(t *testing.T) {
	f := newFixture()
	existing := f.store.seedConfig(&models.BracketConfig{
		DivisionID:       42,
		HasPreliminaries: true,
		Status:           models.BracketStatusPreliminary,
	})

	config, err := f.configService.GetOrCreate(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, existing.ID, config.ID)
	assert.Equal(t, models.BracketStatusPreliminary, config.Status)
	assert.True(t, config.HasPreliminaries)
}

func TestUpdateConfig_AppliesSettings(t *testing.T) {
	f := newFixture()
	config := f.store.seedConfig(&models.BracketConfig{
		DivisionID: 42,
		Status:     models.BracketStatusSetup,
	})

	updated, err := f.configService.Update(context.Background(), config.ID, UpdateConfigInput{
		HasPreliminaries: boolPtr(true),
		ThirdPlaceMatch:  boolPtr(true),
	})
	require.NoError(t, err)

	assert.True(t, updated.HasPreliminaries)
	assert.True(t, updated.ThirdPlaceMatch)
}

func TestUpdateConfig_RejectedOutsideSetup(t *testing.T) {
	f := newFixture()
	config := f.store.seedConfig(&models.BracketConfig{
		DivisionID: 42,
		Status:     models.BracketStatusMain,
	})

	_, err := f.configService.Update(context.Background(), config.ID, UpdateConfigInput{
		ThirdPlaceMatch: boolPtr(true),
	})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateConfig_PreliminaryFlagFixedOnceGroupsExist(t *testing.T) {
	f := newFixture()
	config := f.store.seedConfig(&models.BracketConfig{
		DivisionID:       42,
		HasPreliminaries: true,
		Status:           models.BracketStatusSetup,
	})
	require.NoError(t, f.groups.CreateGroup(context.Background(), nil, &models.PreliminaryGroup{
		BracketConfigID: config.ID,
		Name:            "Group A",
	}))

	_, err := f.configService.Update(context.Background(), config.ID, UpdateConfigInput{
		HasPreliminaries: boolPtr(false),
	})
	assert.ErrorIs(t, err, ErrInvalidState)

	// Third-place toggling stays allowed while groups exist.
	updated, err := f.configService.Update(context.Background(), config.ID, UpdateConfigInput{
		ThirdPlaceMatch: boolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, updated.ThirdPlaceMatch)
	assert.True(t, updated.HasPreliminaries)
}

func TestUpdateConfig_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.configService.Update(context.Background(), 999, UpdateConfigInput{})
	assert.ErrorIs(t, err, ErrConfigNotFound)
}
