package model

// Preference is a seating constraint over a set of guests. The guest set
// lives in `preference_guests`.
type Preference struct {
	ID       uint64   `json:"id"`
	EventID  uint64   `json:"event_id"`
	Kind     string   `json:"kind"`
	Hard     bool     `json:"hard"`
	Severity int      `json:"severity"`
	GuestIDs []uint64 `json:"guest_ids"`
}
