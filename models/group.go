package models

// PreliminaryGroup belongs to exactly one BracketConfig and exists only
// while the config has a qualifying stage.
type PreliminaryGroup struct {
	ID              int         `json:"id"`
	BracketConfigID int         `json:"bracket_config_id"`
	Name            string      `json:"name"`
	DisplayOrder    int         `json:"display_order"`
	Teams           []GroupTeam `json:"teams,omitempty"`
}

// GroupTeam joins one entry to one preliminary group, together with its
// round-robin tally. final_rank is write-once, assigned when the group's
// last match completes.
type GroupTeam struct {
	ID            int  `json:"id"`
	GroupID       int  `json:"group_id"`
	EntryID       int  `json:"entry_id"`
	Seed          *int `json:"seed,omitempty"`
	FinalRank     *int `json:"final_rank,omitempty"`
	Wins          int  `json:"wins"`
	Losses        int  `json:"losses"`
	PointsFor     int  `json:"points_for"`
	PointsAgainst int  `json:"points_against"`
}
