// Package cache keeps optimizer state in Redis: the latest plan of each
// event and the status of queued optimize jobs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seating-planner/internal/model"
)

// ErrMiss is returned when a key is absent.
var ErrMiss = errors.New("cache: miss")

// PlanCache stores the latest plan per event as JSON under plan:<event>.
// A nil client turns every call into a miss or a no-op.
type PlanCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewPlanCache(rdb *redis.Client, ttl time.Duration) *PlanCache {
	return &PlanCache{rdb: rdb, ttl: ttl, prefix: "seatplan:plan:"}
}

func (c *PlanCache) key(eventID uint64) string {
	return c.prefix + strconv.FormatUint(eventID, 10)
}

// Get returns the cached plan or ErrMiss.
func (c *PlanCache) Get(ctx context.Context, eventID uint64) (*model.SeatingPlan, error) {
	if c.rdb == nil {
		return nil, ErrMiss
	}
	bs, err := c.rdb.Get(ctx, c.key(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var p model.SeatingPlan
	if err := json.Unmarshal(bs, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Set caches p as the latest plan of its event.
func (c *PlanCache) Set(ctx context.Context, p *model.SeatingPlan) error {
	if c.rdb == nil {
		return nil
	}
	bs, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(p.EventID), bs, c.ttl).Err()
}

// Invalidate drops the cached plan, e.g. after the guest list changed.
func (c *PlanCache) Invalidate(ctx context.Context, eventID uint64) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, c.key(eventID)).Err()
}
