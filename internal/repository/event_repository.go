package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/seating-planner/internal/model"
)

// EventRepo encapsulates queries on the events table.
type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = "id, owner_id, name, event_date, criteria, created_at, updated_at"

// Create inserts the event and fills in its ID and timestamps.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	crit, err := json.Marshal(e.Criteria)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO events (owner_id, name, event_date, criteria) VALUES (?, ?, ?, ?)",
		e.OwnerID, e.Name, e.EventDate, crit)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*e = *created
	return nil
}

// GetByID fetches an event regardless of owner.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id))
}

// GetOwned fetches an event and checks ownership: a missing event is
// ErrNotFound, someone else's is ErrForbidden.
func (r *EventRepo) GetOwned(ctx context.Context, id, ownerID uint64) (*model.Event, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return e, nil
}

// ListByOwner returns the owner's events, newest first.
func (r *EventRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE owner_id = ? ORDER BY id DESC", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateCriteria replaces the event's optimization criteria.
func (r *EventRepo) UpdateCriteria(ctx context.Context, id, ownerID uint64, c model.Criteria) error {
	crit, err := json.Marshal(c)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE events SET criteria = ? WHERE id = ? AND owner_id = ?", crit, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 rows for an unchanged row too; tell the cases apart.
		if _, err := r.GetOwned(ctx, id, ownerID); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (*model.Event, error) {
	var (
		e    model.Event
		date sql.NullTime
		crit []byte
	)
	if err := s.Scan(&e.ID, &e.OwnerID, &e.Name, &date, &crit, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if date.Valid {
		e.EventDate = &date.Time
	}
	if err := json.Unmarshal(crit, &e.Criteria); err != nil {
		return nil, err
	}
	return &e, nil
}
