package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/courtside/bracket-engine/models"
	"github.com/courtside/bracket-engine/repositories"
)

// UpdateConfigInput carries the settings an admin may change while the
// bracket is still in setup. Status is deliberately absent: it only moves
// forward through the build operations.
type UpdateConfigInput struct {
	HasPreliminaries *bool `json:"has_preliminaries,omitempty"`
	ThirdPlaceMatch  *bool `json:"third_place_match,omitempty"`
}

type BracketConfigService interface {
	GetOrCreate(ctx context.Context, divisionID int) (*models.BracketConfig, error)
	GetByID(ctx context.Context, configID int) (*models.BracketConfig, error)
	Update(ctx context.Context, configID int, input UpdateConfigInput) (*models.BracketConfig, error)
}

type bracketConfigService struct {
	configRepo repositories.BracketConfigRepository
	groupRepo  repositories.GroupRepository
	db         repositories.SQLExecutor
}

func NewBracketConfigService(
	db repositories.SQLExecutor,
	configRepo repositories.BracketConfigRepository,
	groupRepo repositories.GroupRepository,
) BracketConfigService {
	return &bracketConfigService{
		configRepo: configRepo,
		groupRepo:  groupRepo,
		db:         db,
	}
}

// GetOrCreate returns the division's config, creating one in setup with
// defaults on first access. A concurrent first access loses the insert race
// and falls back to reading the winner's row.
func (s *bracketConfigService) GetOrCreate(ctx context.Context, divisionID int) (*models.BracketConfig, error) {
	config, err := s.configRepo.GetByDivision(ctx, divisionID)
	if err == nil {
		return config, nil
	}
	if !errors.Is(err, repositories.ErrBracketConfigNotFound) {
		return nil, fmt.Errorf("failed to load bracket config for division %d: %w", divisionID, err)
	}

	config = &models.BracketConfig{
		DivisionID: divisionID,
		Status:     models.BracketStatusSetup,
	}
	err = s.configRepo.Create(ctx, s.db, config)
	if errors.Is(err, repositories.ErrBracketConfigExists) {
		return s.configRepo.GetByDivision(ctx, divisionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create bracket config for division %d: %w", divisionID, err)
	}
	return config, nil
}

func (s *bracketConfigService) GetByID(ctx context.Context, configID int) (*models.BracketConfig, error) {
	config, err := s.configRepo.GetByID(ctx, configID)
	if errors.Is(err, repositories.ErrBracketConfigNotFound) {
		return nil, ErrConfigNotFound
	}
	return config, err
}

func (s *bracketConfigService) Update(ctx context.Context, configID int, input UpdateConfigInput) (*models.BracketConfig, error) {
	config, err := s.GetByID(ctx, configID)
	if err != nil {
		return nil, err
	}

	if config.Status != models.BracketStatusSetup {
		return nil, fmt.Errorf("%w: config can only be changed during setup", ErrInvalidState)
	}

	hasPreliminaries := config.HasPreliminaries
	thirdPlaceMatch := config.ThirdPlaceMatch

	if input.HasPreliminaries != nil && *input.HasPreliminaries != config.HasPreliminaries {
		groupCount, err := s.groupRepo.CountByConfig(ctx, configID)
		if err != nil {
			return nil, fmt.Errorf("failed to count groups for config %d: %w", configID, err)
		}
		if groupCount > 0 {
			return nil, fmt.Errorf("%w: preliminary setting is fixed once groups exist", ErrInvalidState)
		}
		hasPreliminaries = *input.HasPreliminaries
	}
	if input.ThirdPlaceMatch != nil {
		thirdPlaceMatch = *input.ThirdPlaceMatch
	}

	if err := s.configRepo.UpdateSettings(ctx, s.db, configID, hasPreliminaries, thirdPlaceMatch); err != nil {
		return nil, fmt.Errorf("failed to update bracket config %d: %w", configID, err)
	}
	return s.GetByID(ctx, configID)
}
