package model

import "time"

// Roles a user can hold.
const (
	RolePlanner = "PLANNER"
	RoleAdmin   = "ADMIN"
)

// User represents a row of the `users` table. Planners own events;
// admins may read any event.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time // nil while active
	CreatedAt time.Time
}
