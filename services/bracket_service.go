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

const defaultQualifiersPerGroup = 2

// GenerateMainBracketOptions tunes how many finishers advance per group
// when a qualifying stage ran; the zero value takes the top two.
type GenerateMainBracketOptions struct {
	QualifiersPerGroup int `json:"qualifiers_per_group,omitempty"`
}

// MainBracketResult is what the build reports back to the operator.
type MainBracketResult struct {
	BracketSize int `json:"bracket_size"`
	TeamCount   int `json:"team_count"`
}

type MainBracketService interface {
	GenerateMainBracket(ctx context.Context, configID, divisionID int, opts GenerateMainBracketOptions) (*MainBracketResult, error)
	GetMatches(ctx context.Context, configID int) ([]*models.BracketMatch, error)
}

type mainBracketService struct {
	tx         repositories.Transactor
	configRepo repositories.BracketConfigRepository
	groupRepo  repositories.GroupRepository
	matchRepo  repositories.MatchRepository
	entryRepo  repositories.EntryRepository
	publisher  LivePublisher
	logger     *slog.Logger
}

func NewMainBracketService(
	tx repositories.Transactor,
	configRepo repositories.BracketConfigRepository,
	groupRepo repositories.GroupRepository,
	matchRepo repositories.MatchRepository,
	entryRepo repositories.EntryRepository,
	publisher LivePublisher,
	logger *slog.Logger,
) MainBracketService {
	return &mainBracketService{
		tx:         tx,
		configRepo: configRepo,
		groupRepo:  groupRepo,
		matchRepo:  matchRepo,
		entryRepo:  entryRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// GenerateMainBracket seeds the qualifying teams into an elimination tree
// and persists it: first pass creates every match row, second pass wires
// the forward links once database ids exist. One transaction, so a failed
// build leaves nothing behind.
func (s *mainBracketService) GenerateMainBracket(ctx context.Context, configID, divisionID int, opts GenerateMainBracketOptions) (*MainBracketResult, error) {
	qualifiersPerGroup := opts.QualifiersPerGroup
	if qualifiersPerGroup <= 0 {
		qualifiersPerGroup = defaultQualifiersPerGroup
	}

	var (
		created []*models.BracketMatch
		result  *MainBracketResult
	)

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		config, err := s.configRepo.GetByIDForUpdate(ctx, exec, configID)
		if err != nil {
			if errors.Is(err, repositories.ErrBracketConfigNotFound) {
				return ErrConfigNotFound
			}
			return err
		}

		exists, err := s.matchRepo.ExistsElimination(ctx, configID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: main bracket already exists", ErrAlreadyGenerated)
		}

		expectedStatus := models.BracketStatusSetup
		if config.HasPreliminaries {
			expectedStatus = models.BracketStatusPreliminary
		}
		if config.Status != expectedStatus {
			return fmt.Errorf("%w: main bracket cannot be built while status is %s", ErrInvalidState, config.Status)
		}

		teams, err := s.qualifyingTeams(ctx, config, divisionID, qualifiersPerGroup)
		if err != nil {
			return err
		}
		if len(teams) < 2 {
			return fmt.Errorf("%w: found %d", ErrInsufficientEntrants, len(teams))
		}

		plan, err := brackets.BuildEliminationPlan(teams, config.ThirdPlaceMatch)
		if err != nil {
			if errors.Is(err, brackets.ErrNotEnoughTeams) {
				return fmt.Errorf("%w: found %d", ErrInsufficientEntrants, len(teams))
			}
			return err
		}

		created, err = s.persistPlan(ctx, exec, configID, plan)
		if err != nil {
			return err
		}

		if err := s.configRepo.SetBracketSize(ctx, exec, configID, plan.BracketSize); err != nil {
			return err
		}
		if err := s.configRepo.AdvanceStatus(ctx, exec, configID, expectedStatus, models.BracketStatusMain); err != nil {
			if errors.Is(err, repositories.ErrBracketConfigStatusConflict) {
				return fmt.Errorf("%w: bracket advanced concurrently", ErrInvalidState)
			}
			return err
		}

		result = &MainBracketResult{BracketSize: plan.BracketSize, TeamCount: plan.TeamCount}
		s.logger.Info("main bracket generated",
			slog.Int("bracket_config_id", configID),
			slog.Int("bracket_size", plan.BracketSize),
			slog.Int("teams", plan.TeamCount),
			slog.Int("matches", len(created)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, match := range created {
		s.publisher.PublishMatchCreated(match)
	}
	return result, nil
}

func (s *mainBracketService) GetMatches(ctx context.Context, configID int) ([]*models.BracketMatch, error) {
	matches, err := s.matchRepo.ListEliminationByConfig(ctx, configID)
	if err != nil {
		return nil, fmt.Errorf("failed to list main bracket matches for config %d: %w", configID, err)
	}
	return matches, nil
}

// qualifyingTeams resolves who enters the elimination stage: the top-k
// ranked finishers per group after a qualifying stage, otherwise every
// confirmed entry. The returned seeds order the strongest teams first.
func (s *mainBracketService) qualifyingTeams(ctx context.Context, config *models.BracketConfig, divisionID, qualifiersPerGroup int) ([]brackets.SeededTeam, error) {
	if !config.HasPreliminaries {
		entries, err := s.entryRepo.ListConfirmedByDivision(ctx, divisionID)
		if err != nil {
			return nil, fmt.Errorf("failed to list confirmed entries for division %d: %w", divisionID, err)
		}
		ordered, _ := orderEntries(entries)
		teams := make([]brackets.SeededTeam, len(ordered))
		for i, entry := range ordered {
			teams[i] = brackets.SeededTeam{EntryID: entry.EntryID, Seed: i + 1}
		}
		return teams, nil
	}

	groups, err := s.groupRepo.ListByConfig(ctx, config.ID)
	if err != nil {
		return nil, err
	}

	type qualifier struct {
		entryID    int
		rank       int
		groupOrder int
	}
	var qualifiers []qualifier
	for _, group := range groups {
		for _, team := range group.Teams {
			if team.FinalRank == nil {
				return nil, fmt.Errorf("%w: group %q has unfinished matches", ErrInvalidState, group.Name)
			}
			if *team.FinalRank <= qualifiersPerGroup {
				qualifiers = append(qualifiers, qualifier{
					entryID:    team.EntryID,
					rank:       *team.FinalRank,
					groupOrder: group.DisplayOrder,
				})
			}
		}
	}

	// Group winners seed ahead of runners-up; within a rank, group order
	// keeps the result deterministic.
	sort.SliceStable(qualifiers, func(i, j int) bool {
		if qualifiers[i].rank != qualifiers[j].rank {
			return qualifiers[i].rank < qualifiers[j].rank
		}
		return qualifiers[i].groupOrder < qualifiers[j].groupOrder
	})

	teams := make([]brackets.SeededTeam, len(qualifiers))
	for i, q := range qualifiers {
		teams[i] = brackets.SeededTeam{EntryID: q.entryID, Seed: i + 1}
	}
	return teams, nil
}

// persistPlan writes the planned tree: create all rows first, then wire
// next-match and loser links with the ids the inserts produced.
func (s *mainBracketService) persistPlan(ctx context.Context, exec repositories.SQLExecutor, configID int, plan *brackets.EliminationPlan) ([]*models.BracketMatch, error) {
	type nodeKey struct{ round, position int }
	rows := make(map[nodeKey]*models.BracketMatch, len(plan.Matches))
	var thirdPlaceRow *models.BracketMatch
	created := make([]*models.BracketMatch, 0, len(plan.Matches))

	for _, planned := range plan.Matches {
		round := planned.Round
		position := planned.Position
		match := &models.BracketMatch{
			BracketConfigID: configID,
			Phase:           planned.Phase,
			Round:           &round,
			MatchNumber:     planned.MatchNumber,
			Team1EntryID:    planned.Team1EntryID,
			Team2EntryID:    planned.Team2EntryID,
			Status:          models.MatchStatusScheduled,
		}
		if !planned.ThirdPlace {
			match.BracketPosition = &position
		}
		if planned.Completed {
			match.Status = models.MatchStatusCompleted
			match.WinnerEntryID = planned.WinnerEntryID
		}

		if err := s.matchRepo.Create(ctx, exec, match); err != nil {
			return nil, fmt.Errorf("failed to create bracket match (round %d, position %d): %w", round, position, err)
		}
		if planned.ThirdPlace {
			thirdPlaceRow = match
		} else {
			rows[nodeKey{round, position}] = match
		}
		created = append(created, match)
	}

	for _, planned := range plan.Matches {
		if planned.ThirdPlace || planned.Round == plan.Rounds {
			continue
		}
		match := rows[nodeKey{planned.Round, planned.Position}]
		parent := rows[nodeKey{planned.Round + 1, planned.Position / 2}]
		if parent == nil {
			return nil, fmt.Errorf("missing parent for match at round %d, position %d", planned.Round, planned.Position)
		}
		slot := planned.Position%2 + 1

		var loserNextID, loserNextSlot *int
		if thirdPlaceRow != nil && planned.Round == plan.Rounds-1 {
			// Both semifinal losers meet in the third-place match.
			loserNextID = &thirdPlaceRow.ID
			loserSlot := planned.Position%2 + 1
			loserNextSlot = &loserSlot
		}

		if err := s.matchRepo.UpdateLinks(ctx, exec, match.ID, &parent.ID, &slot, loserNextID, loserNextSlot); err != nil {
			return nil, err
		}
		match.NextMatchID = &parent.ID
		match.NextMatchSlot = &slot
		match.LoserNextMatchID = loserNextID
		match.LoserNextMatchSlot = loserNextSlot
	}

	return created, nil
}
