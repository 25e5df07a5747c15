package seating

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientCapacity is matched by *InsufficientCapacityError.
	ErrInsufficientCapacity = errors.New("seating: insufficient table capacity")
	// ErrInvalidTable indicates a table with a non-positive capacity or no id.
	ErrInvalidTable = errors.New("seating: table capacity must be greater than zero")
	// ErrDuplicateGuest indicates two guests share an identifier.
	ErrDuplicateGuest = errors.New("seating: duplicate guest id")
	// ErrDuplicateTable indicates two tables share an identifier.
	ErrDuplicateTable = errors.New("seating: duplicate table id")
	// ErrEmptyID indicates a guest or table without an identifier.
	ErrEmptyID = errors.New("seating: empty id")
)

// InsufficientCapacityError is returned before any optimization work when
// the tables cannot seat every guest.
type InsufficientCapacityError struct {
	Guests   int
	Capacity int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("seating: insufficient table capacity: %d guests, %d seats", e.Guests, e.Capacity)
}

// Is lets errors.Is(err, ErrInsufficientCapacity) match.
func (e *InsufficientCapacityError) Is(target error) bool {
	return target == ErrInsufficientCapacity
}

// CheckCapacity reports an *InsufficientCapacityError when the combined
// table capacity is smaller than the guest count.
func CheckCapacity(guestCount int, tables []Table) error {
	total := 0
	for _, t := range tables {
		if t.Capacity > 0 {
			total += t.Capacity
		}
	}
	if total < guestCount {
		return &InsufficientCapacityError{Guests: guestCount, Capacity: total}
	}
	return nil
}
