package model

import "time"

// Criteria mirrors seating.Criteria with JSON tags; it is stored in the
// events.criteria JSON column.
type Criteria struct {
	PrioritizeFamilyGroups  bool `json:"prioritize_family_groups"`
	MixSides                bool `json:"mix_sides"`
	BalanceAges             bool `json:"balance_ages"`
	MinimizeEmptySeats      bool `json:"minimize_empty_seats"`
	PreferEvenDistribution  bool `json:"prefer_even_distribution"`
	PrioritizeAccessibility bool `json:"prioritize_accessibility"`
	RespectAllConstraints   bool `json:"respect_all_constraints"`
}

// Event is a wedding owned by a planner. Guests, tables, preferences and
// plans all hang off an event.
type Event struct {
	ID        uint64     `json:"id"`
	OwnerID   uint64     `json:"-"`
	Name      string     `json:"name"`
	EventDate *time.Time `json:"event_date,omitempty"`
	Criteria  Criteria   `json:"criteria"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
