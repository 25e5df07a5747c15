package model

import (
	"encoding/json"
	"time"
)

// SeatingPlan is a persisted optimizer result (`seating_plans` plus its
// `plan_assignments`).
type SeatingPlan struct {
	ID          uint64          `json:"id"`
	EventID     uint64          `json:"event_id"`
	JobID       string          `json:"job_id,omitempty"`
	Fitness     float64         `json:"fitness"`
	Breakdown   json.RawMessage `json:"breakdown"`
	Generations int             `json:"generations"`
	StopReason  string          `json:"stop_reason"`
	Seed        int64           `json:"seed"`
	ElapsedMs   int64           `json:"elapsed_ms"`
	Assignments []Assignment    `json:"assignments"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Assignment seats one guest at one table.
type Assignment struct {
	GuestID uint64 `json:"guest_id"`
	TableID uint64 `json:"table_id"`
}
