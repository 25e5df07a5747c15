package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/seating-planner/internal/model"
)

// PreferenceRepo stores seating preferences and their guest sets.
type PreferenceRepo struct {
	db *sql.DB
}

func NewPreferenceRepo(db *sql.DB) *PreferenceRepo { return &PreferenceRepo{db: db} }

// Create inserts the preference and its guest memberships in one
// transaction. Every guest must belong to the event.
func (r *PreferenceRepo) Create(ctx context.Context, p *model.Preference) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if len(p.GuestIDs) > 0 {
		var known int
		q := "SELECT COUNT(*) FROM guests WHERE event_id = ? AND id IN (?" + strings.Repeat(",?", len(p.GuestIDs)-1) + ")"
		args := make([]any, 0, len(p.GuestIDs)+1)
		args = append(args, p.EventID)
		for _, id := range p.GuestIDs {
			args = append(args, id)
		}
		if err = tx.QueryRowContext(ctx, q, args...).Scan(&known); err != nil {
			return err
		}
		if known != len(p.GuestIDs) {
			return ErrUnknownGuest
		}
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO preferences (event_id, kind, hard, severity) VALUES (?, ?, ?, ?)",
		p.EventID, p.Kind, p.Hard, p.Severity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	if len(p.GuestIDs) == 0 {
		return nil
	}
	q := "INSERT INTO preference_guests (preference_id, guest_id, position) VALUES "
	args := make([]any, 0, len(p.GuestIDs)*3)
	for i, gid := range p.GuestIDs {
		if i > 0 {
			q += ","
		}
		q += "(?, ?, ?)"
		args = append(args, p.ID, gid, i)
	}
	_, err = tx.ExecContext(ctx, q, args...)
	return err
}

// ListByEvent returns the event's preferences ordered by id, guest ids in
// insertion order.
func (r *PreferenceRepo) ListByEvent(ctx context.Context, eventID uint64) ([]*model.Preference, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.event_id, p.kind, p.hard, p.severity, pg.guest_id
		 FROM preferences p LEFT JOIN preference_guests pg ON pg.preference_id = p.id
		 WHERE p.event_id = ? ORDER BY p.id, pg.position`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Preference{}
	var cur *model.Preference
	for rows.Next() {
		var (
			p   model.Preference
			gid sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.EventID, &p.Kind, &p.Hard, &p.Severity, &gid); err != nil {
			return nil, err
		}
		if cur == nil || cur.ID != p.ID {
			p.GuestIDs = []uint64{}
			cur = &p
			out = append(out, cur)
		}
		if gid.Valid {
			cur.GuestIDs = append(cur.GuestIDs, uint64(gid.Int64))
		}
	}
	return out, rows.Err()
}

// Delete removes a preference of the event.
func (r *PreferenceRepo) Delete(ctx context.Context, eventID, prefID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM preferences WHERE id = ? AND event_id = ?", prefID, eventID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}
