// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves them.
package queue

import "time"

// Queue names.
const (
	OptimizeQueue = "seating.optimize"
	PlannedQueue  = "seating.planned"
)

// OptimizeRequested asks a worker to optimize the seating of an event.
type OptimizeRequested struct {
	JobID       string    `json:"job_id"`
	EventID     uint64    `json:"event_id"`
	RequestedBy uint64    `json:"requested_by"`
	Seed        int64     `json:"seed,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// PlanReady is published once a plan has been persisted. Downstream
// consumers can notify the planner without querying the database.
type PlanReady struct {
	JobID       string    `json:"job_id"`
	EventID     uint64    `json:"event_id"`
	PlanID      uint64    `json:"plan_id"`
	Fitness     float64   `json:"fitness"`
	Generations int       `json:"generations"`
	StopReason  string    `json:"stop_reason"`
	FinishedAt  time.Time `json:"finished_at"`
}
