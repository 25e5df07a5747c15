package model

// DiningTable represents a row of the `dining_tables` table.
type DiningTable struct {
	ID         uint64 `json:"id"`
	EventID    uint64 `json:"event_id"`
	Label      string `json:"label"`
	Capacity   int    `json:"capacity"`
	Accessible bool   `json:"accessible"`
	Head       bool   `json:"head"`
}
