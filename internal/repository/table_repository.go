package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/seating-planner/internal/model"
)

// TableRepo stores the dining tables of an event.
type TableRepo struct {
	db *sql.DB
}

func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

// CreateBulk inserts the tables in a single statement. IDs are filled in
// from the first inserted id; MySQL assigns consecutive ids to a
// multi-row insert under the default auto-increment lock mode.
func (r *TableRepo) CreateBulk(ctx context.Context, eventID uint64, tables []*model.DiningTable) error {
	if len(tables) == 0 {
		return nil
	}
	query := "INSERT INTO dining_tables (event_id, label, capacity, accessible, head) VALUES "
	args := make([]any, 0, len(tables)*5)
	for i, t := range tables {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, eventID, t.Label, t.Capacity, t.Accessible, t.Head)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	first, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i, t := range tables {
		t.ID = uint64(first) + uint64(i)
		t.EventID = eventID
	}
	return nil
}

// ListByEvent returns the event's tables ordered by id.
func (r *TableRepo) ListByEvent(ctx context.Context, eventID uint64) ([]*model.DiningTable, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, event_id, label, capacity, accessible, head FROM dining_tables WHERE event_id = ? ORDER BY id",
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.DiningTable{}
	for rows.Next() {
		t := new(model.DiningTable)
		if err := rows.Scan(&t.ID, &t.EventID, &t.Label, &t.Capacity, &t.Accessible, &t.Head); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Delete removes a table of the event.
func (r *TableRepo) Delete(ctx context.Context, eventID, tableID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM dining_tables WHERE id = ? AND event_id = ?", tableID, eventID)
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
