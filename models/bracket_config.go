package models

import "time"

type BracketStatus string

const (
	BracketStatusSetup       BracketStatus = "setup"
	BracketStatusPreliminary BracketStatus = "preliminary"
	BracketStatusMain        BracketStatus = "main"
	BracketStatusCompleted   BracketStatus = "completed"
)

// BracketConfig is the per-division bracket settings row. One config per
// division, created lazily on first admin access. bracket_size stays null
// until the elimination stage is built.
type BracketConfig struct {
	ID               int           `json:"id"`
	DivisionID       int           `json:"division_id"`
	HasPreliminaries bool          `json:"has_preliminaries"`
	ThirdPlaceMatch  bool          `json:"third_place_match"`
	BracketSize      *int          `json:"bracket_size,omitempty"`
	Status           BracketStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// NextStatus returns the status that follows s in the forward-only
// lifecycle. The preliminary step is skipped when the config has no
// qualifying stage.
func (c *BracketConfig) NextStatus() BracketStatus {
	switch c.Status {
	case BracketStatusSetup:
		if c.HasPreliminaries {
			return BracketStatusPreliminary
		}
		return BracketStatusMain
	case BracketStatusPreliminary:
		return BracketStatusMain
	case BracketStatusMain:
		return BracketStatusCompleted
	}
	return c.Status
}
