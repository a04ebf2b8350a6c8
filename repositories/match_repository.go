package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/courtside/bracket-engine/models"
)

var (
	ErrMatchNotFound         = errors.New("bracket match not found")
	ErrMatchAlreadyCompleted = errors.New("bracket match already completed")
	ErrMatchEntryInvalid     = errors.New("bracket match references an unknown entry")
	ErrMatchSlotDuplicate    = errors.New("bracket slot already occupied by another match")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.BracketMatch) error
	GetByID(ctx context.Context, id int) (*models.BracketMatch, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.BracketMatch, error)
	ListByConfig(ctx context.Context, configID int, phase *models.MatchPhase) ([]*models.BracketMatch, error)
	ListEliminationByConfig(ctx context.Context, configID int) ([]*models.BracketMatch, error)
	ListByGroup(ctx context.Context, groupID int) ([]*models.BracketMatch, error)
	ExistsPreliminary(ctx context.Context, configID int) (bool, error)
	ExistsElimination(ctx context.Context, configID int) (bool, error)
	DeleteEliminationByConfig(ctx context.Context, exec SQLExecutor, configID int) error
	UpdateLinks(ctx context.Context, exec SQLExecutor, matchID int, nextID, nextSlot, loserNextID, loserNextSlot *int) error
	Complete(ctx context.Context, exec SQLExecutor, id, team1Score, team2Score, winnerEntryID int, setsDetail json.RawMessage) error
	AssignSlot(ctx context.Context, exec SQLExecutor, matchID, slot, entryID int) (bool, error)
	SetCourtLabel(ctx context.Context, id int, label string) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, bracket_config_id, phase, group_id, bracket_position, round, match_number,
	team1_entry_id, team2_entry_id, team1_score, team2_score, winner_entry_id,
	next_match_id, next_match_slot, loser_next_match_id, loser_next_match_slot,
	status, sets_detail, court_label, scheduled_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.BracketMatch, error) {
	match := &models.BracketMatch{}
	var setsDetail []byte
	err := row.Scan(
		&match.ID,
		&match.BracketConfigID,
		&match.Phase,
		&match.GroupID,
		&match.BracketPosition,
		&match.Round,
		&match.MatchNumber,
		&match.Team1EntryID,
		&match.Team2EntryID,
		&match.Team1Score,
		&match.Team2Score,
		&match.WinnerEntryID,
		&match.NextMatchID,
		&match.NextMatchSlot,
		&match.LoserNextMatchID,
		&match.LoserNextMatchSlot,
		&match.Status,
		&setsDetail,
		&match.CourtLabel,
		&match.ScheduledAt,
		&match.CreatedAt,
		&match.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(setsDetail) > 0 {
		match.SetsDetail = json.RawMessage(setsDetail)
	}
	return match, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.BracketMatch) error {
	query := `
		INSERT INTO bracket_matches
			(bracket_config_id, phase, group_id, bracket_position, round, match_number,
			 team1_entry_id, team2_entry_id, winner_entry_id, status, court_label, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	err := exec.QueryRowContext(ctx, query,
		match.BracketConfigID,
		match.Phase,
		match.GroupID,
		match.BracketPosition,
		match.Round,
		match.MatchNumber,
		match.Team1EntryID,
		match.Team2EntryID,
		match.WinnerEntryID,
		match.Status,
		match.CourtLabel,
		match.ScheduledAt,
	).Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)

	return handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.BracketMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM bracket_matches WHERE id = $1`
	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return match, nil
}

// GetByIDForUpdate locks the match row for the duration of the caller's
// transaction; concurrent result submissions for one match serialize here.
func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.BracketMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM bracket_matches WHERE id = $1 FOR UPDATE`
	match, err := scanMatch(exec.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByConfig(ctx context.Context, configID int, phase *models.MatchPhase) ([]*models.BracketMatch, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM bracket_matches WHERE bracket_config_id = $1`)

	args := []interface{}{configID}
	if phase != nil {
		queryBuilder.WriteString(" AND phase = $" + strconv.Itoa(len(args)+1))
		args = append(args, *phase)
	}
	queryBuilder.WriteString(" ORDER BY match_number ASC, id ASC")

	return r.queryMatches(ctx, queryBuilder.String(), args...)
}

func (r *postgresMatchRepository) ListEliminationByConfig(ctx context.Context, configID int) ([]*models.BracketMatch, error) {
	query := `SELECT ` + matchColumns + `
		FROM bracket_matches
		WHERE bracket_config_id = $1 AND phase <> $2
		ORDER BY round ASC, bracket_position ASC, id ASC`
	return r.queryMatches(ctx, query, configID, models.PhasePreliminary)
}

func (r *postgresMatchRepository) ListByGroup(ctx context.Context, groupID int) ([]*models.BracketMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM bracket_matches WHERE group_id = $1 ORDER BY match_number ASC, id ASC`
	return r.queryMatches(ctx, query, groupID)
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, query string, args ...interface{}) ([]*models.BracketMatch, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.BracketMatch, 0)
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) ExistsPreliminary(ctx context.Context, configID int) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM bracket_matches WHERE bracket_config_id = $1 AND phase = $2)`,
		configID, models.PhasePreliminary)
}

func (r *postgresMatchRepository) ExistsElimination(ctx context.Context, configID int) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM bracket_matches WHERE bracket_config_id = $1 AND phase <> $2)`,
		configID, models.PhasePreliminary)
}

func (r *postgresMatchRepository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check match existence: %w", err)
	}
	return exists, nil
}

func (r *postgresMatchRepository) DeleteEliminationByConfig(ctx context.Context, exec SQLExecutor, configID int) error {
	query := `DELETE FROM bracket_matches WHERE bracket_config_id = $1 AND phase <> $2`
	if _, err := exec.ExecContext(ctx, query, configID, models.PhasePreliminary); err != nil {
		return fmt.Errorf("failed to delete elimination matches for config %d: %w", configID, err)
	}
	return nil
}

func (r *postgresMatchRepository) UpdateLinks(ctx context.Context, exec SQLExecutor, matchID int, nextID, nextSlot, loserNextID, loserNextSlot *int) error {
	query := `
		UPDATE bracket_matches
		SET next_match_id = $1, next_match_slot = $2,
		    loser_next_match_id = $3, loser_next_match_slot = $4,
		    updated_at = NOW()
		WHERE id = $5`

	result, err := exec.ExecContext(ctx, query, nextID, nextSlot, loserNextID, loserNextSlot, matchID)
	if err != nil {
		return fmt.Errorf("failed to update links for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// Complete records the result and winner in one conditional write; a match
// that is already completed is left untouched and reported as such.
func (r *postgresMatchRepository) Complete(ctx context.Context, exec SQLExecutor, id, team1Score, team2Score, winnerEntryID int, setsDetail json.RawMessage) error {
	query := `
		UPDATE bracket_matches
		SET team1_score = $1, team2_score = $2, winner_entry_id = $3,
		    sets_detail = $4, status = $5, updated_at = NOW()
		WHERE id = $6 AND status <> $5`

	var sets interface{}
	if len(setsDetail) > 0 {
		sets = []byte(setsDetail)
	}
	result, err := exec.ExecContext(ctx, query, team1Score, team2Score, winnerEntryID, sets, models.MatchStatusCompleted, id)
	if err != nil {
		return handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchAlreadyCompleted)
}

// AssignSlot fills a team slot only while it is still null. The false
// return is the losing side of a propagation race: some other completion
// already decided the slot.
func (r *postgresMatchRepository) AssignSlot(ctx context.Context, exec SQLExecutor, matchID, slot, entryID int) (bool, error) {
	var query string
	switch slot {
	case 1:
		query = `UPDATE bracket_matches SET team1_entry_id = $1, updated_at = NOW() WHERE id = $2 AND team1_entry_id IS NULL`
	case 2:
		query = `UPDATE bracket_matches SET team2_entry_id = $1, updated_at = NOW() WHERE id = $2 AND team2_entry_id IS NULL`
	default:
		return false, fmt.Errorf("invalid slot %d for match %d", slot, matchID)
	}

	result, err := exec.ExecContext(ctx, query, entryID, matchID)
	if err != nil {
		return false, handleMatchError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *postgresMatchRepository) SetCourtLabel(ctx context.Context, id int, label string) error {
	query := `UPDATE bracket_matches SET court_label = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, label, id)
	if err != nil {
		return fmt.Errorf("failed to set court label for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "bracket_matches_team1_entry_id_fkey",
			"bracket_matches_team2_entry_id_fkey",
			"bracket_matches_winner_entry_id_fkey":
			return ErrMatchEntryInvalid
		case "bracket_matches_config_phase_position_key":
			return ErrMatchSlotDuplicate
		}
	}
	return err
}
