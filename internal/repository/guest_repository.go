package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/seating-planner/internal/model"
)

// GuestRepo stores guests and their relationship links.
type GuestRepo struct {
	db *sql.DB
}

func NewGuestRepo(db *sql.DB) *GuestRepo { return &GuestRepo{db: db} }

// NewGuest is one entry of a bulk insert. Ref is a client chosen key that
// Links of the same batch use to point at each other; links may also name
// guests already stored for the event by ID.
type NewGuest struct {
	Ref                string
	Name               string
	Age                int
	Side               string
	NeedsAccessibility bool
	Links              []NewLink
}

// NewLink points at another guest by batch Ref or by stored ID.
type NewLink struct {
	Ref     string
	GuestID uint64
	Kind    string
}

// CreateBulk inserts a batch of guests and their links in one transaction
// and returns the stored guests in input order. A link that resolves to
// no guest of the event fails the whole batch with ErrUnknownGuest.
func (r *GuestRepo) CreateBulk(ctx context.Context, eventID uint64, batch []NewGuest) (out []*model.Guest, err error) {
	if len(batch) == 0 {
		return []*model.Guest{}, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	byRef := make(map[string]uint64, len(batch))
	out = make([]*model.Guest, len(batch))
	for i, ng := range batch {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO guests (event_id, name, age, side, needs_accessibility) VALUES (?, ?, ?, ?, ?)",
			eventID, ng.Name, ng.Age, ng.Side, ng.NeedsAccessibility)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		if ng.Ref != "" {
			byRef[ng.Ref] = uint64(id)
		}
		out[i] = &model.Guest{
			ID: uint64(id), EventID: eventID, Name: ng.Name, Age: ng.Age,
			Side: ng.Side, NeedsAccessibility: ng.NeedsAccessibility,
		}
	}

	var links []model.GuestLink
	for i, ng := range batch {
		for _, l := range ng.Links {
			target := l.GuestID
			if l.Ref != "" {
				target = byRef[l.Ref]
			}
			if target == 0 {
				return nil, ErrUnknownGuest
			}
			link := model.GuestLink{GuestID: out[i].ID, RelatedID: target, Kind: l.Kind}
			links = append(links, link)
			out[i].Links = append(out[i].Links, link)
		}
	}
	if len(links) == 0 {
		return out, nil
	}
	// Stored targets must belong to this event.
	var foreign int
	if err = tx.QueryRowContext(ctx, linkCheckQuery(len(links)), linkCheckArgs(eventID, links)...).Scan(&foreign); err != nil {
		return nil, err
	}
	if foreign > 0 {
		return nil, ErrUnknownGuest
	}

	query := "INSERT IGNORE INTO guest_links (guest_id, related_id, kind) VALUES "
	args := make([]any, 0, len(links)*3)
	for i, l := range links {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, l.GuestID, l.RelatedID, l.Kind)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func linkCheckQuery(n int) string {
	return "SELECT COUNT(*) FROM (SELECT ? AS gid" + strings.Repeat(" UNION ALL SELECT ?", n-1) +
		") t LEFT JOIN guests g ON g.id = t.gid AND g.event_id = ? WHERE g.id IS NULL"
}

func linkCheckArgs(eventID uint64, links []model.GuestLink) []any {
	args := make([]any, 0, len(links)+1)
	for _, l := range links {
		args = append(args, l.RelatedID)
	}
	return append(args, eventID)
}

// ListByEvent returns the event's guests ordered by id, each with its
// outgoing links.
func (r *GuestRepo) ListByEvent(ctx context.Context, eventID uint64) ([]*model.Guest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, name, age, side, needs_accessibility, created_at
		 FROM guests WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Guest{}
	byID := map[uint64]*model.Guest{}
	for rows.Next() {
		g := new(model.Guest)
		if err := rows.Scan(&g.ID, &g.EventID, &g.Name, &g.Age, &g.Side, &g.NeedsAccessibility, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
		byID[g.ID] = g
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lrows, err := r.db.QueryContext(ctx,
		`SELECT l.guest_id, l.related_id, l.kind
		 FROM guest_links l JOIN guests g ON g.id = l.guest_id
		 WHERE g.event_id = ? ORDER BY l.guest_id, l.related_id`, eventID)
	if err != nil {
		return nil, err
	}
	defer lrows.Close()
	for lrows.Next() {
		var l model.GuestLink
		if err := lrows.Scan(&l.GuestID, &l.RelatedID, &l.Kind); err != nil {
			return nil, err
		}
		if g := byID[l.GuestID]; g != nil {
			g.Links = append(g.Links, l)
		}
	}
	return out, lrows.Err()
}

// Delete removes a guest of the event; links and preference memberships
// cascade.
func (r *GuestRepo) Delete(ctx context.Context, eventID, guestID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM guests WHERE id = ? AND event_id = ?", guestID, eventID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of guests of the event.
func (r *GuestRepo) Count(ctx context.Context, eventID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM guests WHERE event_id = ?", eventID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}
