package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/courtside/bracket-engine/models"
)

// EntryRepository is the read-only view over the portal's registration
// tables. The bracket engine consumes confirmed entries and never writes
// them.
type EntryRepository interface {
	ListConfirmedByDivision(ctx context.Context, divisionID int) ([]*models.Entry, error)
	ListEntryIDsByUser(ctx context.Context, userID int) ([]int, error)
}

type postgresEntryRepository struct {
	db *sql.DB
}

func NewPostgresEntryRepository(db *sql.DB) EntryRepository {
	return &postgresEntryRepository{db: db}
}

func (r *postgresEntryRepository) ListConfirmedByDivision(ctx context.Context, divisionID int) ([]*models.Entry, error) {
	query := `
		SELECT id, division_id, display_name, club_label, seed_hint
		FROM entries
		WHERE division_id = $1 AND status = 'confirmed'
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, divisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries for division %d: %w", divisionID, err)
	}
	defer rows.Close()

	entries := make([]*models.Entry, 0)
	for rows.Next() {
		var entry models.Entry
		if err := rows.Scan(&entry.EntryID, &entry.DivisionID, &entry.DisplayName, &entry.ClubLabel, &entry.SeedHint); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during entry rows iteration: %w", err)
	}
	return entries, nil
}

// ListEntryIDsByUser returns every entry the user belongs to, across
// divisions. Used to authorize self-service score submission.
func (r *postgresEntryRepository) ListEntryIDsByUser(ctx context.Context, userID int) ([]int, error) {
	query := `
		SELECT e.id
		FROM entries e
		JOIN entry_members em ON em.entry_id = e.id
		WHERE em.user_id = $1`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries for user %d: %w", userID, err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan entry id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during entry id rows iteration: %w", err)
	}
	return ids, nil
}
