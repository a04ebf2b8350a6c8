package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/courtside/bracket-engine/models"
)

var (
	ErrBracketConfigNotFound       = errors.New("bracket config not found")
	ErrBracketConfigExists         = errors.New("bracket config already exists for division")
	ErrBracketConfigStatusConflict = errors.New("bracket config status changed concurrently")
)

type BracketConfigRepository interface {
	Create(ctx context.Context, exec SQLExecutor, config *models.BracketConfig) error
	GetByID(ctx context.Context, id int) (*models.BracketConfig, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.BracketConfig, error)
	GetByDivision(ctx context.Context, divisionID int) (*models.BracketConfig, error)
	UpdateSettings(ctx context.Context, exec SQLExecutor, id int, hasPreliminaries, thirdPlaceMatch bool) error
	SetBracketSize(ctx context.Context, exec SQLExecutor, id, size int) error
	AdvanceStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.BracketStatus) error
}

type postgresBracketConfigRepository struct {
	db *sql.DB
}

func NewPostgresBracketConfigRepository(db *sql.DB) BracketConfigRepository {
	return &postgresBracketConfigRepository{db: db}
}

const bracketConfigColumns = `id, division_id, has_preliminaries, third_place_match, bracket_size, status, created_at, updated_at`

func scanBracketConfig(row *sql.Row) (*models.BracketConfig, error) {
	config := &models.BracketConfig{}
	err := row.Scan(
		&config.ID,
		&config.DivisionID,
		&config.HasPreliminaries,
		&config.ThirdPlaceMatch,
		&config.BracketSize,
		&config.Status,
		&config.CreatedAt,
		&config.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketConfigNotFound
		}
		return nil, fmt.Errorf("failed to scan bracket config: %w", err)
	}
	return config, nil
}

func (r *postgresBracketConfigRepository) Create(ctx context.Context, exec SQLExecutor, config *models.BracketConfig) error {
	query := `
		INSERT INTO bracket_configs (division_id, has_preliminaries, third_place_match, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := exec.QueryRowContext(ctx, query,
		config.DivisionID,
		config.HasPreliminaries,
		config.ThirdPlaceMatch,
		config.Status,
	).Scan(&config.ID, &config.CreatedAt, &config.UpdatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "bracket_configs_division_id_key" {
		return ErrBracketConfigExists
	}
	return err
}

func (r *postgresBracketConfigRepository) GetByID(ctx context.Context, id int) (*models.BracketConfig, error) {
	query := `SELECT ` + bracketConfigColumns + ` FROM bracket_configs WHERE id = $1`
	return scanBracketConfig(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresBracketConfigRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.BracketConfig, error) {
	// Row lock serializes build operations per division.
	query := `SELECT ` + bracketConfigColumns + ` FROM bracket_configs WHERE id = $1 FOR UPDATE`
	return scanBracketConfig(exec.QueryRowContext(ctx, query, id))
}

func (r *postgresBracketConfigRepository) GetByDivision(ctx context.Context, divisionID int) (*models.BracketConfig, error) {
	query := `SELECT ` + bracketConfigColumns + ` FROM bracket_configs WHERE division_id = $1`
	return scanBracketConfig(r.db.QueryRowContext(ctx, query, divisionID))
}

func (r *postgresBracketConfigRepository) UpdateSettings(ctx context.Context, exec SQLExecutor, id int, hasPreliminaries, thirdPlaceMatch bool) error {
	query := `
		UPDATE bracket_configs
		SET has_preliminaries = $1, third_place_match = $2, updated_at = NOW()
		WHERE id = $3`

	result, err := exec.ExecContext(ctx, query, hasPreliminaries, thirdPlaceMatch, id)
	if err != nil {
		return fmt.Errorf("failed to update bracket config %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrBracketConfigNotFound)
}

func (r *postgresBracketConfigRepository) SetBracketSize(ctx context.Context, exec SQLExecutor, id, size int) error {
	query := `UPDATE bracket_configs SET bracket_size = $1, updated_at = NOW() WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, size, id)
	if err != nil {
		return fmt.Errorf("failed to set bracket size for config %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrBracketConfigNotFound)
}

// AdvanceStatus moves the config forward only when it is still in the
// expected state, so concurrent build attempts cannot both succeed.
func (r *postgresBracketConfigRepository) AdvanceStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.BracketStatus) error {
	query := `UPDATE bracket_configs SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	result, err := exec.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to advance status of config %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrBracketConfigStatusConflict)
}
