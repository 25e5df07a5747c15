package model

import "time"

// Sides of the wedding party as stored in guests.side.
const (
	SideA = "sideA"
	SideB = "sideB"
)

// Guest represents a row of the `guests` table. Age 0 means unknown.
type Guest struct {
	ID                 uint64      `json:"id"`
	EventID            uint64      `json:"event_id"`
	Name               string      `json:"name"`
	Age                int         `json:"age,omitempty"`
	Side               string      `json:"side"`
	NeedsAccessibility bool        `json:"needs_accessibility"`
	Links              []GuestLink `json:"relationships,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// GuestLink is a directed relationship from one guest to another
// (`guest_links` table). Kind is family, friend, colleague or plus_one.
type GuestLink struct {
	GuestID   uint64 `json:"-"`
	RelatedID uint64 `json:"guest_id"`
	Kind      string `json:"kind"`
}
