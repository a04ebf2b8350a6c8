package models

// Entry is a confirmed participant of a division as exposed by the entry
// roster. This core only reads entries; registration lives elsewhere.
type Entry struct {
	EntryID     int     `json:"entry_id"`
	DivisionID  int     `json:"division_id"`
	DisplayName string  `json:"display_name"`
	ClubLabel   *string `json:"club_label,omitempty"`
	SeedHint    *int    `json:"seed_hint,omitempty"`
}
