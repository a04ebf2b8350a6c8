package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/courtside/bracket-engine/models"
)

var (
	ErrGroupNotFound     = errors.New("preliminary group not found")
	ErrGroupTeamNotFound = errors.New("group team not found")
)

type GroupRepository interface {
	CreateGroup(ctx context.Context, exec SQLExecutor, group *models.PreliminaryGroup) error
	CreateGroupTeam(ctx context.Context, exec SQLExecutor, team *models.GroupTeam) error
	ListByConfig(ctx context.Context, configID int) ([]*models.PreliminaryGroup, error)
	ListTeamsByGroup(ctx context.Context, groupID int) ([]models.GroupTeam, error)
	CountByConfig(ctx context.Context, configID int) (int, error)
	DeleteByConfig(ctx context.Context, exec SQLExecutor, configID int) error
	UpdateTeamTally(ctx context.Context, exec SQLExecutor, teamID, wins, losses, pointsFor, pointsAgainst int) error
	SetFinalRank(ctx context.Context, exec SQLExecutor, teamID, rank int) error
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) CreateGroup(ctx context.Context, exec SQLExecutor, group *models.PreliminaryGroup) error {
	query := `
		INSERT INTO preliminary_groups (bracket_config_id, name, display_order)
		VALUES ($1, $2, $3)
		RETURNING id`

	return exec.QueryRowContext(ctx, query,
		group.BracketConfigID,
		group.Name,
		group.DisplayOrder,
	).Scan(&group.ID)
}

func (r *postgresGroupRepository) CreateGroupTeam(ctx context.Context, exec SQLExecutor, team *models.GroupTeam) error {
	query := `
		INSERT INTO group_teams (group_id, entry_id, seed)
		VALUES ($1, $2, $3)
		RETURNING id`

	return exec.QueryRowContext(ctx, query,
		team.GroupID,
		team.EntryID,
		team.Seed,
	).Scan(&team.ID)
}

func (r *postgresGroupRepository) ListByConfig(ctx context.Context, configID int) ([]*models.PreliminaryGroup, error) {
	query := `
		SELECT id, bracket_config_id, name, display_order
		FROM preliminary_groups
		WHERE bracket_config_id = $1
		ORDER BY display_order ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, configID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups for config %d: %w", configID, err)
	}
	defer rows.Close()

	groups := make([]*models.PreliminaryGroup, 0)
	for rows.Next() {
		var group models.PreliminaryGroup
		if err := rows.Scan(&group.ID, &group.BracketConfigID, &group.Name, &group.DisplayOrder); err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		groups = append(groups, &group)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during group rows iteration: %w", err)
	}

	for _, group := range groups {
		teams, err := r.ListTeamsByGroup(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		group.Teams = teams
	}
	return groups, nil
}

func (r *postgresGroupRepository) ListTeamsByGroup(ctx context.Context, groupID int) ([]models.GroupTeam, error) {
	query := `
		SELECT id, group_id, entry_id, seed, final_rank, wins, losses, points_for, points_against
		FROM group_teams
		WHERE group_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams for group %d: %w", groupID, err)
	}
	defer rows.Close()

	teams := make([]models.GroupTeam, 0)
	for rows.Next() {
		var team models.GroupTeam
		if err := rows.Scan(
			&team.ID,
			&team.GroupID,
			&team.EntryID,
			&team.Seed,
			&team.FinalRank,
			&team.Wins,
			&team.Losses,
			&team.PointsFor,
			&team.PointsAgainst,
		); err != nil {
			return nil, fmt.Errorf("failed to scan group team row: %w", err)
		}
		teams = append(teams, team)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during group team rows iteration: %w", err)
	}
	return teams, nil
}

func (r *postgresGroupRepository) CountByConfig(ctx context.Context, configID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM preliminary_groups WHERE bracket_config_id = $1`
	if err := r.db.QueryRowContext(ctx, query, configID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count groups for config %d: %w", configID, err)
	}
	return count, nil
}

// DeleteByConfig removes the config's groups; group teams and their group's
// preliminary matches go with them via cascade.
func (r *postgresGroupRepository) DeleteByConfig(ctx context.Context, exec SQLExecutor, configID int) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM preliminary_groups WHERE bracket_config_id = $1`, configID)
	if err != nil {
		return fmt.Errorf("failed to delete groups for config %d: %w", configID, err)
	}
	return nil
}

func (r *postgresGroupRepository) UpdateTeamTally(ctx context.Context, exec SQLExecutor, teamID, wins, losses, pointsFor, pointsAgainst int) error {
	query := `
		UPDATE group_teams
		SET wins = $1, losses = $2, points_for = $3, points_against = $4
		WHERE id = $5`

	result, err := exec.ExecContext(ctx, query, wins, losses, pointsFor, pointsAgainst, teamID)
	if err != nil {
		return fmt.Errorf("failed to update tally for group team %d: %w", teamID, err)
	}
	return checkAffectedRows(result, ErrGroupTeamNotFound)
}

// SetFinalRank writes the rank only once; a second call for the same team
// is a no-op.
func (r *postgresGroupRepository) SetFinalRank(ctx context.Context, exec SQLExecutor, teamID, rank int) error {
	query := `UPDATE group_teams SET final_rank = $1 WHERE id = $2 AND final_rank IS NULL`
	if _, err := exec.ExecContext(ctx, query, rank, teamID); err != nil {
		return fmt.Errorf("failed to set final rank for group team %d: %w", teamID, err)
	}
	return nil
}
