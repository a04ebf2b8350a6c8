package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/courtside/bracket-engine/storage"
)

// SnapshotService archives a division's full bracket as a public JSON
// object, so finished tournaments stay viewable without the database.
type SnapshotService interface {
	ArchiveBracket(ctx context.Context, divisionID int) (*storage.UploadResult, error)
}

type bracketSnapshot struct {
	DivisionID int          `json:"division_id"`
	TakenAt    time.Time    `json:"taken_at"`
	Bracket    *BracketData `json:"bracket"`
}

type snapshotService struct {
	data     BracketDataService
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewSnapshotService(data BracketDataService, uploader storage.FileUploader, logger *slog.Logger) SnapshotService {
	return &snapshotService{data: data, uploader: uploader, logger: logger}
}

func (s *snapshotService) ArchiveBracket(ctx context.Context, divisionID int) (*storage.UploadResult, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: snapshot storage is not configured", ErrInvalidState)
	}

	data, err := s.data.GetBracketData(ctx, divisionID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(bracketSnapshot{
		DivisionID: divisionID,
		TakenAt:    time.Now().UTC(),
		Bracket:    data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode bracket snapshot for division %d: %w", divisionID, err)
	}

	key := fmt.Sprintf("brackets/division-%d/%s.json", divisionID, uuid.NewString())
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	s.logger.Info("bracket snapshot archived",
		slog.Int("division_id", divisionID),
		slog.String("key", result.Key),
		slog.String("location", result.Location),
	)
	return result, nil
}
