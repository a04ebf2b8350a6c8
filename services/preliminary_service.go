package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/courtside/bracket-engine/brackets"
	"github.com/courtside/bracket-engine/models"
	"github.com/courtside/bracket-engine/repositories"
)

const defaultGroupSize = 4

// GenerateGroupsOptions tunes the balanced partition; the zero value uses
// groups of four.
type GenerateGroupsOptions struct {
	TargetGroupSize int `json:"target_group_size,omitempty"`
}

type PreliminaryService interface {
	AutoGenerateGroups(ctx context.Context, configID, divisionID int, opts GenerateGroupsOptions) error
	GenerateMatches(ctx context.Context, configID int) error
	GetGroups(ctx context.Context, configID int) ([]*models.PreliminaryGroup, error)
	GetMatches(ctx context.Context, configID int) ([]*models.BracketMatch, error)
	RefreshGroupStandings(ctx context.Context, groupID int) error
}

type preliminaryService struct {
	tx         repositories.Transactor
	configRepo repositories.BracketConfigRepository
	groupRepo  repositories.GroupRepository
	matchRepo  repositories.MatchRepository
	entryRepo  repositories.EntryRepository
	publisher  LivePublisher
	logger     *slog.Logger
}

func NewPreliminaryService(
	tx repositories.Transactor,
	configRepo repositories.BracketConfigRepository,
	groupRepo repositories.GroupRepository,
	matchRepo repositories.MatchRepository,
	entryRepo repositories.EntryRepository,
	publisher LivePublisher,
	logger *slog.Logger,
) PreliminaryService {
	return &preliminaryService{
		tx:         tx,
		configRepo: configRepo,
		groupRepo:  groupRepo,
		matchRepo:  matchRepo,
		entryRepo:  entryRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// AutoGenerateGroups partitions the division's confirmed entries into
// balanced groups. Destructive: any prior groups and their matches are
// dropped first, so callers must confirm before invoking it.
func (s *preliminaryService) AutoGenerateGroups(ctx context.Context, configID, divisionID int, opts GenerateGroupsOptions) error {
	targetSize := opts.TargetGroupSize
	if targetSize <= 0 {
		targetSize = defaultGroupSize
	}

	entries, err := s.entryRepo.ListConfirmedByDivision(ctx, divisionID)
	if err != nil {
		return fmt.Errorf("failed to list confirmed entries for division %d: %w", divisionID, err)
	}
	if len(entries) < 3 {
		return fmt.Errorf("%w: at least 3 confirmed entries required, found %d", ErrInvalidState, len(entries))
	}

	ordered, seeded := orderEntries(entries)
	numGroups := (len(ordered) + targetSize - 1) / targetSize

	return s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		config, err := s.configRepo.GetByIDForUpdate(ctx, exec, configID)
		if err != nil {
			if errors.Is(err, repositories.ErrBracketConfigNotFound) {
				return ErrConfigNotFound
			}
			return err
		}
		if !config.HasPreliminaries {
			return fmt.Errorf("%w: config has no qualifying stage", ErrInvalidState)
		}
		if config.Status != models.BracketStatusSetup && config.Status != models.BracketStatusPreliminary {
			return fmt.Errorf("%w: groups can only be generated during setup or the qualifying stage", ErrInvalidState)
		}

		if err := s.groupRepo.DeleteByConfig(ctx, exec, configID); err != nil {
			return err
		}

		groups := make([]*models.PreliminaryGroup, numGroups)
		for i := range groups {
			groups[i] = &models.PreliminaryGroup{
				BracketConfigID: configID,
				Name:            groupName(i),
				DisplayOrder:    i,
			}
			if err := s.groupRepo.CreateGroup(ctx, exec, groups[i]); err != nil {
				return fmt.Errorf("failed to create group %q: %w", groups[i].Name, err)
			}
		}

		// Round-robin distribution across groups: with seed data present the
		// strongest entries spread evenly instead of stacking one group.
		for i, entry := range ordered {
			team := &models.GroupTeam{
				GroupID: groups[i%numGroups].ID,
				EntryID: entry.EntryID,
			}
			if seeded {
				seed := i + 1
				team.Seed = &seed
			}
			if err := s.groupRepo.CreateGroupTeam(ctx, exec, team); err != nil {
				return fmt.Errorf("failed to add entry %d to group: %w", entry.EntryID, err)
			}
		}

		s.logger.Info("preliminary groups generated",
			slog.Int("bracket_config_id", configID),
			slog.Int("groups", numGroups),
			slog.Int("entries", len(ordered)),
		)
		return nil
	})
}

// GenerateMatches creates the full round robin for every group and moves
// the config into the qualifying stage.
func (s *preliminaryService) GenerateMatches(ctx context.Context, configID int) error {
	var created []*models.BracketMatch

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		config, err := s.configRepo.GetByIDForUpdate(ctx, exec, configID)
		if err != nil {
			if errors.Is(err, repositories.ErrBracketConfigNotFound) {
				return ErrConfigNotFound
			}
			return err
		}
		if !config.HasPreliminaries {
			return fmt.Errorf("%w: config has no qualifying stage", ErrInvalidState)
		}
		// A regenerate after groups were rebuilt arrives with the config
		// already in the qualifying stage; anything later is out of sequence.
		if config.Status != models.BracketStatusSetup && config.Status != models.BracketStatusPreliminary {
			return fmt.Errorf("%w: qualifying matches can only be generated before the main stage", ErrInvalidState)
		}

		exists, err := s.matchRepo.ExistsPreliminary(ctx, configID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: qualifying matches already exist", ErrAlreadyGenerated)
		}

		groups, err := s.groupRepo.ListByConfig(ctx, configID)
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			return fmt.Errorf("%w: generate groups before their matches", ErrInvalidState)
		}

		matchNumber := 0
		for _, group := range groups {
			entryIDs := make([]int, len(group.Teams))
			for i, team := range group.Teams {
				entryIDs[i] = team.EntryID
			}
			groupID := group.ID
			for _, pair := range brackets.RoundRobinPairings(entryIDs) {
				matchNumber++
				team1, team2 := pair[0], pair[1]
				match := &models.BracketMatch{
					BracketConfigID: configID,
					Phase:           models.PhasePreliminary,
					GroupID:         &groupID,
					MatchNumber:     matchNumber,
					Team1EntryID:    &team1,
					Team2EntryID:    &team2,
					Status:          models.MatchStatusScheduled,
				}
				if err := s.matchRepo.Create(ctx, exec, match); err != nil {
					return fmt.Errorf("failed to create qualifying match: %w", err)
				}
				created = append(created, match)
			}
		}

		if config.Status == models.BracketStatusSetup {
			if err := s.configRepo.AdvanceStatus(ctx, exec, configID, models.BracketStatusSetup, models.BracketStatusPreliminary); err != nil {
				if errors.Is(err, repositories.ErrBracketConfigStatusConflict) {
					return fmt.Errorf("%w: bracket advanced concurrently", ErrInvalidState)
				}
				return err
			}
		}

		s.logger.Info("qualifying matches generated",
			slog.Int("bracket_config_id", configID),
			slog.Int("matches", matchNumber),
		)
		return nil
	})
	if err != nil {
		return err
	}

	for _, match := range created {
		s.publisher.PublishMatchCreated(match)
	}
	return nil
}

func (s *preliminaryService) GetGroups(ctx context.Context, configID int) ([]*models.PreliminaryGroup, error) {
	groups, err := s.groupRepo.ListByConfig(ctx, configID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups for config %d: %w", configID, err)
	}
	return groups, nil
}

func (s *preliminaryService) GetMatches(ctx context.Context, configID int) ([]*models.BracketMatch, error) {
	phase := models.PhasePreliminary
	matches, err := s.matchRepo.ListByConfig(ctx, configID, &phase)
	if err != nil {
		return nil, fmt.Errorf("failed to list qualifying matches for config %d: %w", configID, err)
	}
	return matches, nil
}

// RefreshGroupStandings recomputes the group's tallies from its completed
// matches and, once the round robin is finished, assigns final ranks.
// Ranks are write-once, so re-running after a late duplicate event is
// harmless.
func (s *preliminaryService) RefreshGroupStandings(ctx context.Context, groupID int) error {
	teams, err := s.groupRepo.ListTeamsByGroup(ctx, groupID)
	if err != nil {
		return err
	}
	matches, err := s.matchRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return err
	}

	return s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tallied := brackets.Tally(teams, matches)
		for _, team := range tallied {
			if err := s.groupRepo.UpdateTeamTally(ctx, exec, team.ID, team.Wins, team.Losses, team.PointsFor, team.PointsAgainst); err != nil {
				return err
			}
		}

		for _, m := range matches {
			if m.Status != models.MatchStatusCompleted {
				return nil // round robin still running
			}
		}

		standings := brackets.ComputeStandings(tallied, matches)
		for rank, standing := range standings {
			if err := s.groupRepo.SetFinalRank(ctx, exec, standing.GroupTeamID, rank+1); err != nil {
				return err
			}
		}
		return nil
	})
}

// orderEntries returns the entries in distribution order: by seed hint when
// any entry carries one (unseeded entries keep arrival order after the
// seeded ones), plain arrival order otherwise.
func orderEntries(entries []*models.Entry) ([]*models.Entry, bool) {
	seeded := false
	for _, e := range entries {
		if e.SeedHint != nil {
			seeded = true
			break
		}
	}

	ordered := make([]*models.Entry, len(entries))
	copy(ordered, entries)
	if seeded {
		sort.SliceStable(ordered, func(i, j int) bool {
			hi, hj := ordered[i].SeedHint, ordered[j].SeedHint
			switch {
			case hi != nil && hj != nil:
				return *hi < *hj
			case hi != nil:
				return true
			default:
				return false
			}
		})
	}
	return ordered, seeded
}

func groupName(index int) string {
	if index < 26 {
		return fmt.Sprintf("Group %c", 'A'+index)
	}
	return fmt.Sprintf("Group %d", index+1)
}
