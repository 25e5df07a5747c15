package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Job states.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// Job is the status of one optimize request, stored as a Redis hash
// under job:<id>.
type Job struct {
	ID        string    `json:"id"`
	EventID   uint64    `json:"event_id"`
	Status    string    `json:"status"`
	PlanID    uint64    `json:"plan_id,omitempty"`
	Fitness   float64   `json:"fitness,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobStore reads and writes job hashes. Every write refreshes the TTL.
type JobStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewJobStore(rdb *redis.Client, ttl time.Duration) *JobStore {
	return &JobStore{rdb: rdb, ttl: ttl, prefix: "seatplan:job:"}
}

// Enabled reports whether a Redis client is configured. Without one jobs
// cannot be tracked and the API only offers synchronous runs.
func (s *JobStore) Enabled() bool { return s != nil && s.rdb != nil }

func (s *JobStore) write(ctx context.Context, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	key := s.prefix + id
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, fields)
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

// Create records a queued job.
func (s *JobStore) Create(ctx context.Context, id string, eventID uint64) error {
	return s.write(ctx, id, map[string]any{
		"event_id": strconv.FormatUint(eventID, 10),
		"status":   JobQueued,
	})
}

// MarkRunning moves a job to running.
func (s *JobStore) MarkRunning(ctx context.Context, id string) error {
	return s.write(ctx, id, map[string]any{"status": JobRunning})
}

// MarkQueued puts a job back to queued, for a run interrupted by a
// worker shutdown whose message returns to the queue.
func (s *JobStore) MarkQueued(ctx context.Context, id string) error {
	return s.write(ctx, id, map[string]any{"status": JobQueued})
}

// MarkDone records the persisted plan of a finished job.
func (s *JobStore) MarkDone(ctx context.Context, id string, planID uint64, fitness float64) error {
	return s.write(ctx, id, map[string]any{
		"status":  JobDone,
		"plan_id": strconv.FormatUint(planID, 10),
		"fitness": strconv.FormatFloat(fitness, 'f', -1, 64),
	})
}

// MarkFailed records why a job failed.
func (s *JobStore) MarkFailed(ctx context.Context, id string, cause error) error {
	return s.write(ctx, id, map[string]any{"status": JobFailed, "error": cause.Error()})
}

// Get returns the job or ErrMiss when it is unknown or expired.
func (s *JobStore) Get(ctx context.Context, id string) (*Job, error) {
	m, err := s.rdb.HGetAll(ctx, s.prefix+id).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, ErrMiss
	}
	j := &Job{ID: id, Status: m["status"], Error: m["error"]}
	j.EventID, _ = strconv.ParseUint(m["event_id"], 10, 64)
	j.PlanID, _ = strconv.ParseUint(m["plan_id"], 10, 64)
	j.Fitness, _ = strconv.ParseFloat(m["fitness"], 64)
	j.UpdatedAt, _ = time.Parse(time.RFC3339Nano, m["updated_at"])
	return j, nil
}
