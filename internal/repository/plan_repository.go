package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/seating-planner/internal/model"
)

// PlanRepo persists optimizer results. Plans are append-only; the latest
// plan of an event is the one with the highest id.
type PlanRepo struct {
	db *sql.DB
}

func NewPlanRepo(db *sql.DB) *PlanRepo { return &PlanRepo{db: db} }

// Save inserts the plan and its assignments in one transaction and sets
// p.ID.
func (r *PlanRepo) Save(ctx context.Context, p *model.SeatingPlan) (err error) {
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

	var jobID any
	if p.JobID != "" {
		jobID = p.JobID
	}
	breakdown := p.Breakdown
	if len(breakdown) == 0 {
		breakdown = []byte("{}")
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO seating_plans (event_id, job_id, fitness, breakdown, generations, stop_reason, seed, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.EventID, jobID, p.Fitness, []byte(breakdown), p.Generations, p.StopReason, p.Seed, p.ElapsedMs)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	if len(p.Assignments) == 0 {
		return nil
	}

	query := "INSERT INTO plan_assignments (plan_id, guest_id, table_id) VALUES "
	args := make([]any, 0, len(p.Assignments)*3)
	for i, a := range p.Assignments {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, p.ID, a.GuestID, a.TableID)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// Latest returns the newest plan of the event with its assignments.
func (r *PlanRepo) Latest(ctx context.Context, eventID uint64) (*model.SeatingPlan, error) {
	var (
		p     model.SeatingPlan
		jobID sql.NullString
		bd    []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, event_id, job_id, fitness, breakdown, generations, stop_reason, seed, elapsed_ms, created_at
		 FROM seating_plans WHERE event_id = ? ORDER BY id DESC LIMIT 1`, eventID).
		Scan(&p.ID, &p.EventID, &jobID, &p.Fitness, &bd, &p.Generations, &p.StopReason, &p.Seed, &p.ElapsedMs, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.JobID = jobID.String
	p.Breakdown = bd

	rows, err := r.db.QueryContext(ctx,
		"SELECT guest_id, table_id FROM plan_assignments WHERE plan_id = ? ORDER BY guest_id", p.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	p.Assignments = []model.Assignment{}
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.GuestID, &a.TableID); err != nil {
			return nil, err
		}
		p.Assignments = append(p.Assignments, a)
	}
	return &p, rows.Err()
}
