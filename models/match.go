package models

import (
	"encoding/json"
	"time"
)

type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
)

type MatchPhase string

const (
	PhasePreliminary MatchPhase = "preliminary"
	PhaseRound128    MatchPhase = "round_128"
	PhaseRound64     MatchPhase = "round_64"
	PhaseRound32     MatchPhase = "round_32"
	PhaseRound16     MatchPhase = "round_16"
	PhaseQuarter     MatchPhase = "quarter"
	PhaseSemi        MatchPhase = "semi"
	PhaseFinal       MatchPhase = "final"
	PhaseThirdPlace  MatchPhase = "third_place"
)

// PhaseForRound maps a 1-based elimination round to its display phase,
// given the total number of rounds in the bracket.
func PhaseForRound(round, totalRounds int) MatchPhase {
	switch totalRounds - round {
	case 0:
		return PhaseFinal
	case 1:
		return PhaseSemi
	case 2:
		return PhaseQuarter
	case 3:
		return PhaseRound16
	case 4:
		return PhaseRound32
	case 5:
		return PhaseRound64
	default:
		return PhaseRound128
	}
}

// SetScore is one set of a multi-set team format, stored as part of the
// sets_detail JSON payload on a match.
type SetScore struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// BracketMatch is one scheduled contest in either stage. Nil entry ids mean
// "not yet decided": the slot is filled exactly once, either at build time
// or when the upstream match feeding it completes.
type BracketMatch struct {
	ID              int        `json:"id"`
	BracketConfigID int        `json:"bracket_config_id"`
	Phase           MatchPhase `json:"phase"`
	GroupID         *int       `json:"group_id,omitempty"`
	BracketPosition *int       `json:"bracket_position,omitempty"`
	Round           *int       `json:"round,omitempty"`
	MatchNumber     int        `json:"match_number"`

	Team1EntryID *int `json:"team1_entry_id,omitempty"`
	Team2EntryID *int `json:"team2_entry_id,omitempty"`

	Team1Score    *int `json:"team1_score,omitempty"`
	Team2Score    *int `json:"team2_score,omitempty"`
	WinnerEntryID *int `json:"winner_entry_id,omitempty"`

	NextMatchID        *int `json:"next_match_id,omitempty"`
	NextMatchSlot      *int `json:"next_match_slot,omitempty"`
	LoserNextMatchID   *int `json:"loser_next_match_id,omitempty"`
	LoserNextMatchSlot *int `json:"loser_next_match_slot,omitempty"`

	Status     MatchStatus     `json:"status"`
	SetsDetail json.RawMessage `json:"sets_detail,omitempty"`
	CourtLabel *string         `json:"court_label,omitempty"`

	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HasEntry reports whether entryID occupies one of the match's two slots.
func (m *BracketMatch) HasEntry(entryID int) bool {
	if m.Team1EntryID != nil && *m.Team1EntryID == entryID {
		return true
	}
	return m.Team2EntryID != nil && *m.Team2EntryID == entryID
}

// LoserEntryID returns the non-winning side of a completed match, or nil.
func (m *BracketMatch) LoserEntryID() *int {
	if m.WinnerEntryID == nil || m.Team1EntryID == nil || m.Team2EntryID == nil {
		return nil
	}
	if *m.WinnerEntryID == *m.Team1EntryID {
		return m.Team2EntryID
	}
	return m.Team1EntryID
}
