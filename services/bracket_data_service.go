package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/courtside/bracket-engine/models"
	"github.com/courtside/bracket-engine/repositories"
)

// BracketData is the read-only composite a viewer loads once and then
// keeps current from the live channel.
type BracketData struct {
	Config  *models.BracketConfig      `json:"config"`
	Groups  []*models.PreliminaryGroup `json:"groups"`
	Matches []*models.BracketMatch     `json:"matches"`
}

type BracketDataService interface {
	GetBracketData(ctx context.Context, divisionID int) (*BracketData, error)
}

type bracketDataService struct {
	configRepo repositories.BracketConfigRepository
	groupRepo  repositories.GroupRepository
	matchRepo  repositories.MatchRepository
}

func NewBracketDataService(
	configRepo repositories.BracketConfigRepository,
	groupRepo repositories.GroupRepository,
	matchRepo repositories.MatchRepository,
) BracketDataService {
	return &bracketDataService{
		configRepo: configRepo,
		groupRepo:  groupRepo,
		matchRepo:  matchRepo,
	}
}

func (s *bracketDataService) GetBracketData(ctx context.Context, divisionID int) (*BracketData, error) {
	config, err := s.configRepo.GetByDivision(ctx, divisionID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketConfigNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to load bracket config for division %d: %w", divisionID, err)
	}

	data := &BracketData{Config: config}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		groups, err := s.groupRepo.ListByConfig(gCtx, config.ID)
		if err != nil {
			return fmt.Errorf("failed to load groups for config %d: %w", config.ID, err)
		}
		data.Groups = groups
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListByConfig(gCtx, config.ID, nil)
		if err != nil {
			return fmt.Errorf("failed to load matches for config %d: %w", config.ID, err)
		}
		data.Matches = matches
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}
