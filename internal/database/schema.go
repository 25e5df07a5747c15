package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied statement by statement; every statement is
// idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'PLANNER',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		owner_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(255) NOT NULL,
		event_date DATE NULL,
		criteria JSON NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_events_owner_name (owner_id, name),
		FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS guests (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		event_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(255) NOT NULL,
		age INT NOT NULL DEFAULT 0,
		side VARCHAR(8) NOT NULL DEFAULT 'sideA',
		needs_accessibility TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_guests_event (event_id),
		FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS guest_links (
		guest_id BIGINT UNSIGNED NOT NULL,
		related_id BIGINT UNSIGNED NOT NULL,
		kind VARCHAR(16) NOT NULL,
		PRIMARY KEY (guest_id, related_id),
		FOREIGN KEY (guest_id) REFERENCES guests(id) ON DELETE CASCADE,
		FOREIGN KEY (related_id) REFERENCES guests(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS dining_tables (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		event_id BIGINT UNSIGNED NOT NULL,
		label VARCHAR(64) NOT NULL,
		capacity INT NOT NULL,
		accessible TINYINT(1) NOT NULL DEFAULT 0,
		head TINYINT(1) NOT NULL DEFAULT 0,
		UNIQUE KEY uq_tables_event_label (event_id, label),
		FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE,
		CHECK (capacity > 0)
	)`,
	`CREATE TABLE IF NOT EXISTS preferences (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		event_id BIGINT UNSIGNED NOT NULL,
		kind VARCHAR(32) NOT NULL,
		hard TINYINT(1) NOT NULL DEFAULT 0,
		severity INT NOT NULL DEFAULT 50,
		KEY idx_preferences_event (event_id),
		FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS preference_guests (
		preference_id BIGINT UNSIGNED NOT NULL,
		guest_id BIGINT UNSIGNED NOT NULL,
		position INT NOT NULL,
		PRIMARY KEY (preference_id, guest_id),
		FOREIGN KEY (preference_id) REFERENCES preferences(id) ON DELETE CASCADE,
		FOREIGN KEY (guest_id) REFERENCES guests(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS seating_plans (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		event_id BIGINT UNSIGNED NOT NULL,
		job_id VARCHAR(36) NULL,
		fitness DOUBLE NOT NULL,
		breakdown JSON NOT NULL,
		generations INT NOT NULL,
		stop_reason VARCHAR(32) NOT NULL,
		seed BIGINT NOT NULL,
		elapsed_ms BIGINT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_plans_event (event_id, id),
		FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS plan_assignments (
		plan_id BIGINT UNSIGNED NOT NULL,
		guest_id BIGINT UNSIGNED NOT NULL,
		table_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (plan_id, guest_id),
		FOREIGN KEY (plan_id) REFERENCES seating_plans(id) ON DELETE CASCADE
	)`,
}

// Migrate creates missing tables. Existing tables are left untouched.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
