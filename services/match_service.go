package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/courtside/bracket-engine/models"
	"github.com/courtside/bracket-engine/repositories"
)

// ResultInput is one submitted match result. Sets are optional; when
// present each side's set wins must add up to the submitted score.
type ResultInput struct {
	Team1Score int               `json:"team1_score"`
	Team2Score int               `json:"team2_score"`
	Sets       []models.SetScore `json:"sets,omitempty"`
}

type MatchResultService interface {
	// UpdateMatchResult is the admin path: any match, any division.
	UpdateMatchResult(ctx context.Context, matchID int, input ResultInput) error
	// SubmitPlayerScore is the self-service path: the caller must play in
	// the match and the division must still be open.
	SubmitPlayerScore(ctx context.Context, userID, matchID int, input ResultInput) error
	SetCourtLabel(ctx context.Context, matchID int, label string) error
}

type matchResultService struct {
	tx          repositories.Transactor
	configRepo  repositories.BracketConfigRepository
	matchRepo   repositories.MatchRepository
	entryRepo   repositories.EntryRepository
	preliminary PreliminaryService
	publisher   LivePublisher
	snapshots   SnapshotService
	logger      *slog.Logger
}

func NewMatchResultService(
	tx repositories.Transactor,
	configRepo repositories.BracketConfigRepository,
	matchRepo repositories.MatchRepository,
	entryRepo repositories.EntryRepository,
	preliminary PreliminaryService,
	publisher LivePublisher,
	snapshots SnapshotService,
	logger *slog.Logger,
) MatchResultService {
	return &matchResultService{
		tx:          tx,
		configRepo:  configRepo,
		matchRepo:   matchRepo,
		entryRepo:   entryRepo,
		preliminary: preliminary,
		publisher:   publisher,
		snapshots:   snapshots,
		logger:      logger,
	}
}

func (s *matchResultService) UpdateMatchResult(ctx context.Context, matchID int, input ResultInput) error {
	return s.applyResult(ctx, matchID, input)
}

func (s *matchResultService) SubmitPlayerScore(ctx context.Context, userID, matchID int, input ResultInput) error {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}

	config, err := s.configRepo.GetByID(ctx, match.BracketConfigID)
	if err != nil {
		return err
	}
	if config.Status == models.BracketStatusCompleted {
		return fmt.Errorf("%w: the division is closed", ErrForbidden)
	}

	entryIDs, err := s.entryRepo.ListEntryIDsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve entries for user %d: %w", userID, err)
	}
	participates := false
	for _, entryID := range entryIDs {
		if match.HasEntry(entryID) {
			participates = true
			break
		}
	}
	if !participates {
		return fmt.Errorf("%w: caller does not play in this match", ErrForbidden)
	}

	return s.applyResult(ctx, matchID, input)
}

// applyResult is the single mutation path for results. One transaction:
// complete the match, then push winner and loser into their downstream
// slots with null-guarded conditional writes. A retry of the identical
// result is a no-op; a conflicting one fails without touching anything.
func (s *matchResultService) applyResult(ctx context.Context, matchID int, input ResultInput) error {
	setsDetail, err := validateResult(input)
	if err != nil {
		return err
	}

	var (
		completed *models.BracketMatch
		touched   []int // downstream match ids whose slots were filled
	)

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}

		if match.Team1EntryID == nil || match.Team2EntryID == nil {
			return fmt.Errorf("%w: match entries are not decided yet", ErrInvalidState)
		}

		if match.Status == models.MatchStatusCompleted {
			if match.Team1Score != nil && *match.Team1Score == input.Team1Score &&
				match.Team2Score != nil && *match.Team2Score == input.Team2Score {
				return nil // identical resubmission
			}
			return fmt.Errorf("%w: match already completed with a different result", ErrInvalidState)
		}

		winnerID := *match.Team1EntryID
		loserID := *match.Team2EntryID
		if input.Team2Score > input.Team1Score {
			winnerID, loserID = loserID, winnerID
		}

		if err := s.matchRepo.Complete(ctx, exec, matchID, input.Team1Score, input.Team2Score, winnerID, setsDetail); err != nil {
			if errors.Is(err, repositories.ErrMatchAlreadyCompleted) {
				return fmt.Errorf("%w: match already completed", ErrInvalidState)
			}
			return err
		}

		if match.NextMatchID != nil && match.NextMatchSlot != nil {
			if err := s.propagate(ctx, exec, *match.NextMatchID, *match.NextMatchSlot, winnerID); err != nil {
				return err
			}
			touched = append(touched, *match.NextMatchID)
		}
		if match.LoserNextMatchID != nil && match.LoserNextMatchSlot != nil {
			if err := s.propagate(ctx, exec, *match.LoserNextMatchID, *match.LoserNextMatchSlot, loserID); err != nil {
				return err
			}
			touched = append(touched, *match.LoserNextMatchID)
		}

		completed = match
		return nil
	})
	if err != nil {
		return err
	}
	if completed == nil {
		return nil // idempotent retry, nothing changed
	}

	s.afterResult(ctx, completed, append([]int{matchID}, touched...))
	return nil
}

// propagate fills one downstream slot. The null-guard makes retries of the
// same completion no-ops; a slot already holding a different entry means
// the bracket was corrupted or the call raced a conflicting completion.
func (s *matchResultService) propagate(ctx context.Context, exec repositories.SQLExecutor, nextMatchID, slot, entryID int) error {
	assigned, err := s.matchRepo.AssignSlot(ctx, exec, nextMatchID, slot, entryID)
	if err != nil {
		return err
	}
	if assigned {
		return nil
	}

	next, err := s.matchRepo.GetByIDForUpdate(ctx, exec, nextMatchID)
	if err != nil {
		return err
	}
	occupant := next.Team1EntryID
	if slot == 2 {
		occupant = next.Team2EntryID
	}
	if occupant != nil && *occupant == entryID {
		return nil // same winner already propagated
	}
	return fmt.Errorf("%w: downstream slot already decided", ErrInvalidState)
}

// afterResult handles everything outside the transaction: fan-out to
// viewers, standings refresh for qualifying matches, and closing the
// division when the elimination stage is done. None of these may fail the
// submission; problems are logged and reconciled later.
func (s *matchResultService) afterResult(ctx context.Context, match *models.BracketMatch, mutatedIDs []int) {
	for _, id := range mutatedIDs {
		row, err := s.matchRepo.GetByID(ctx, id)
		if err != nil {
			s.logger.Error("failed to reload match for broadcast", slog.Int("match_id", id), slog.Any("error", err))
			continue
		}
		s.publisher.PublishMatchUpdated(row)
	}

	if match.Phase == models.PhasePreliminary && match.GroupID != nil {
		if err := s.preliminary.RefreshGroupStandings(ctx, *match.GroupID); err != nil {
			s.logger.Error("failed to refresh group standings",
				slog.Int("group_id", *match.GroupID), slog.Any("error", err))
		}
		return
	}

	if match.Phase == models.PhaseFinal || match.Phase == models.PhaseThirdPlace {
		if err := s.maybeCompleteBracket(ctx, match.BracketConfigID); err != nil {
			s.logger.Error("failed to finalize bracket",
				slog.Int("bracket_config_id", match.BracketConfigID), slog.Any("error", err))
		}
	}
}

// maybeCompleteBracket advances the config to completed once the final
// (and the third-place match, when configured) has a result, then archives
// a snapshot of the finished bracket.
func (s *matchResultService) maybeCompleteBracket(ctx context.Context, configID int) error {
	config, err := s.configRepo.GetByID(ctx, configID)
	if err != nil {
		return err
	}
	if config.Status != models.BracketStatusMain {
		return nil
	}

	matches, err := s.matchRepo.ListEliminationByConfig(ctx, configID)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if m.Phase != models.PhaseFinal && m.Phase != models.PhaseThirdPlace {
			continue
		}
		if m.Status != models.MatchStatusCompleted {
			return nil
		}
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.configRepo.AdvanceStatus(ctx, exec, configID, models.BracketStatusMain, models.BracketStatusCompleted)
	})
	if errors.Is(err, repositories.ErrBracketConfigStatusConflict) {
		return nil // someone else finalized first
	}
	if err != nil {
		return err
	}

	s.logger.Info("bracket completed", slog.Int("bracket_config_id", configID), slog.Int("division_id", config.DivisionID))

	if s.snapshots != nil {
		if _, err := s.snapshots.ArchiveBracket(ctx, config.DivisionID); err != nil {
			s.logger.Error("failed to archive bracket snapshot",
				slog.Int("division_id", config.DivisionID), slog.Any("error", err))
		}
	}
	return nil
}

func (s *matchResultService) SetCourtLabel(ctx context.Context, matchID int, label string) error {
	if err := s.matchRepo.SetCourtLabel(ctx, matchID, label); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err == nil {
		s.publisher.PublishMatchUpdated(match)
	}
	return nil
}

// validateResult rejects scores that cannot produce a winner and checks
// the optional per-set breakdown against the submitted totals.
func validateResult(input ResultInput) (json.RawMessage, error) {
	if input.Team1Score < 0 || input.Team2Score < 0 {
		return nil, fmt.Errorf("%w: scores must be non-negative", ErrInvalidScore)
	}
	if input.Team1Score == input.Team2Score {
		return nil, fmt.Errorf("%w: a drawn score has no winner", ErrInvalidScore)
	}
	if len(input.Sets) == 0 {
		return nil, nil
	}

	team1Sets, team2Sets := 0, 0
	for _, set := range input.Sets {
		switch {
		case set.Team1 > set.Team2:
			team1Sets++
		case set.Team2 > set.Team1:
			team2Sets++
		default:
			return nil, fmt.Errorf("%w: a set cannot be drawn", ErrInvalidScore)
		}
	}
	if team1Sets != input.Team1Score || team2Sets != input.Team2Score {
		return nil, fmt.Errorf("%w: set breakdown does not match the submitted score", ErrInvalidScore)
	}

	detail, err := json.Marshal(input.Sets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sets detail: %w", err)
	}
	return detail, nil
}
