// Package service orchestrates the optimizer: it loads an event's seating
// inputs from MySQL, runs the search under a deadline, persists the plan
// and keeps Redis job and plan state in sync.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/seating-planner/internal/cache"
	"github.com/iliyamo/seating-planner/internal/config"
	"github.com/iliyamo/seating-planner/internal/model"
	"github.com/iliyamo/seating-planner/internal/queue"
	"github.com/iliyamo/seating-planner/internal/seating"
	"github.com/iliyamo/seating-planner/internal/snapshot"
)

// ErrJobsUnavailable is returned by Enqueue when no job store is
// configured; callers should fall back to a synchronous run.
var ErrJobsUnavailable = errors.New("service: background jobs unavailable")

// ErrInterrupted is returned by Optimize when the caller's context is
// cancelled during the search. Nothing is saved: a plan cut short by
// shutdown must not replace the event's latest plan.
var ErrInterrupted = errors.New("service: optimization interrupted")

// stateTimeout bounds plan saves and job status writes, which run on a
// context detached from the caller so a finished result is not lost to
// a cancellation arriving at the last moment.
const stateTimeout = 10 * time.Second

func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), stateTimeout)
}

type EventGetter interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
}

type GuestLister interface {
	ListByEvent(ctx context.Context, eventID uint64) ([]*model.Guest, error)
}

type TableLister interface {
	ListByEvent(ctx context.Context, eventID uint64) ([]*model.DiningTable, error)
}

type PreferenceLister interface {
	ListByEvent(ctx context.Context, eventID uint64) ([]*model.Preference, error)
}

type PlanStore interface {
	Save(ctx context.Context, p *model.SeatingPlan) error
	Latest(ctx context.Context, eventID uint64) (*model.SeatingPlan, error)
}

type PlanCache interface {
	Get(ctx context.Context, eventID uint64) (*model.SeatingPlan, error)
	Set(ctx context.Context, p *model.SeatingPlan) error
	Invalidate(ctx context.Context, eventID uint64) error
}

type JobTracker interface {
	Enabled() bool
	Create(ctx context.Context, id string, eventID uint64) error
	MarkRunning(ctx context.Context, id string) error
	MarkQueued(ctx context.Context, id string) error
	MarkDone(ctx context.Context, id string, planID uint64, fitness float64) error
	MarkFailed(ctx context.Context, id string, cause error) error
	Get(ctx context.Context, id string) (*cache.Job, error)
}

type Publisher interface {
	Publish(ctx context.Context, queue string, v any) error
}

// Deps collects the collaborators of a PlannerService.
type Deps struct {
	Events      EventGetter
	Guests      GuestLister
	Tables      TableLister
	Preferences PreferenceLister
	Plans       PlanStore
	Cache       PlanCache
	Jobs        JobTracker
	Publisher   Publisher
	Logger      *zap.Logger
}

// PlannerService runs optimizations for stored events.
type PlannerService struct {
	d   Deps
	cfg config.OptimizerConfig
	log *zap.Logger
}

func NewPlannerService(d Deps, cfg config.OptimizerConfig) *PlannerService {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &PlannerService{d: d, cfg: cfg, log: log}
}

// Load reads the event's guests, tables and preferences.
func (s *PlannerService) Load(ctx context.Context, eventID uint64) (seating.Input, error) {
	ev, err := s.d.Events.GetByID(ctx, eventID)
	if err != nil {
		return seating.Input{}, err
	}
	guests, err := s.d.Guests.ListByEvent(ctx, eventID)
	if err != nil {
		return seating.Input{}, fmt.Errorf("list guests: %w", err)
	}
	tables, err := s.d.Tables.ListByEvent(ctx, eventID)
	if err != nil {
		return seating.Input{}, fmt.Errorf("list tables: %w", err)
	}
	prefs, err := s.d.Preferences.ListByEvent(ctx, eventID)
	if err != nil {
		return seating.Input{}, fmt.Errorf("list preferences: %w", err)
	}
	return buildInput(ev, guests, tables, prefs), nil
}

// CheckCapacity fails with *seating.InsufficientCapacityError when the
// event's tables cannot seat its guests.
func (s *PlannerService) CheckCapacity(ctx context.Context, eventID uint64) error {
	in, err := s.Load(ctx, eventID)
	if err != nil {
		return err
	}
	return seating.CheckCapacity(len(in.Guests), in.Tables)
}

// Enqueue validates capacity, records a queued job and publishes it for
// the worker. It returns the job id.
func (s *PlannerService) Enqueue(ctx context.Context, eventID, userID uint64, seed int64) (string, error) {
	if s.d.Jobs == nil || !s.d.Jobs.Enabled() || s.d.Publisher == nil {
		return "", ErrJobsUnavailable
	}
	if err := s.CheckCapacity(ctx, eventID); err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := s.d.Jobs.Create(ctx, id, eventID); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	msg := queue.OptimizeRequested{
		JobID:       id,
		EventID:     eventID,
		RequestedBy: userID,
		Seed:        seed,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.d.Publisher.Publish(ctx, queue.OptimizeQueue, msg); err != nil {
		_ = s.d.Jobs.MarkFailed(ctx, id, err)
		return "", fmt.Errorf("publish job: %w", err)
	}
	s.log.Info("optimize job queued", zap.String("job_id", id), zap.Uint64("event_id", eventID))
	return id, nil
}

// Optimize runs the search for an event under the configured timeout,
// saves the plan and refreshes the plan cache. A run cut short by the
// configured timeout still yields its best plan; one cut short by ctx
// fails with ErrInterrupted.
func (s *PlannerService) Optimize(ctx context.Context, eventID uint64, jobID string, seed int64) (*model.SeatingPlan, error) {
	in, err := s.Load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	runCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	res, err := s.run(runCtx, in, seed, zap.Uint64("event_id", eventID), zap.String("job_id", jobID))
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w after %d generations: %w", ErrInterrupted, res.Generations, ctx.Err())
	}
	sp, err := toSeatingPlan(eventID, jobID, res)
	if err != nil {
		return nil, err
	}
	store, cancel := detached(ctx)
	defer cancel()
	if err := s.d.Plans.Save(store, sp); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	if s.d.Cache != nil {
		if err := s.d.Cache.Set(store, sp); err != nil {
			s.log.Warn("plan cache set failed", zap.Uint64("event_id", eventID), zap.Error(err))
		}
	}
	return sp, nil
}

func (s *PlannerService) run(ctx context.Context, in seating.Input, seed int64, fields ...zap.Field) (*seating.Result, error) {
	log := s.log.With(fields...)
	cfg := s.cfg.Search
	if seed != 0 {
		cfg.Seed = seed
	}
	obs := seating.ObserverFuncs{OnGeneration: func(st seating.GenerationStats) {
		log.Debug("generation",
			zap.Int("generation", st.Generation),
			zap.Float64("best", st.Best),
			zap.Float64("best_ever", st.BestEver),
			zap.Float64("mean", st.Mean),
			zap.Stringer("state", st.State))
	}}
	res, err := seating.NewOptimizer(cfg, seating.WithLogger(log), seating.WithObserver(obs)).Run(ctx, in)
	if err != nil {
		return nil, err
	}
	log.Info("optimization finished",
		zap.Int("guests", len(in.Guests)),
		zap.Int("generations", res.Generations),
		zap.String("stop_reason", string(res.StopReason)),
		zap.Float64("fitness", res.Plan.Fitness),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// RunJob handles one OptimizeRequested message. Failures are recorded on
// the job and returned so the consumer rejects the message. A run
// interrupted by ctx puts the job back to queued and asks the consumer to
// requeue the message, so another worker picks it up.
func (s *PlannerService) RunJob(ctx context.Context, body []byte) error {
	var msg queue.OptimizeRequested
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if msg.JobID == "" || msg.EventID == 0 {
		return fmt.Errorf("malformed job message: job_id=%q event_id=%d", msg.JobID, msg.EventID)
	}
	log := s.log.With(zap.String("job_id", msg.JobID), zap.Uint64("event_id", msg.EventID))
	if err := s.jobWrite(ctx, func(c context.Context) error { return s.d.Jobs.MarkRunning(c, msg.JobID) }); err != nil {
		log.Warn("mark job running failed", zap.Error(err))
	}

	sp, err := s.Optimize(ctx, msg.EventID, msg.JobID, msg.Seed)
	if err != nil && ctx.Err() != nil {
		if mErr := s.jobWrite(ctx, func(c context.Context) error { return s.d.Jobs.MarkQueued(c, msg.JobID) }); mErr != nil {
			log.Warn("mark job queued failed", zap.Error(mErr))
		}
		log.Info("optimize job interrupted, requeueing", zap.Error(err))
		return fmt.Errorf("job %s: %w: %w", msg.JobID, queue.ErrRequeue, err)
	}
	if err != nil {
		if mErr := s.jobWrite(ctx, func(c context.Context) error { return s.d.Jobs.MarkFailed(c, msg.JobID, err) }); mErr != nil {
			log.Warn("mark job failed failed", zap.Error(mErr))
		}
		return err
	}
	if err := s.jobWrite(ctx, func(c context.Context) error { return s.d.Jobs.MarkDone(c, msg.JobID, sp.ID, sp.Fitness) }); err != nil {
		log.Warn("mark job done failed", zap.Error(err))
	}
	if s.d.Publisher != nil {
		ready := queue.PlanReady{
			JobID:       msg.JobID,
			EventID:     msg.EventID,
			PlanID:      sp.ID,
			Fitness:     sp.Fitness,
			Generations: sp.Generations,
			StopReason:  sp.StopReason,
			FinishedAt:  time.Now().UTC(),
		}
		pubCtx, cancel := detached(ctx)
		defer cancel()
		if err := s.d.Publisher.Publish(pubCtx, queue.PlannedQueue, ready); err != nil {
			log.Warn("publish plan ready failed", zap.Error(err))
		}
	}
	return nil
}

func (s *PlannerService) jobWrite(ctx context.Context, fn func(context.Context) error) error {
	c, cancel := detached(ctx)
	defer cancel()
	return fn(c)
}

// Job returns the status of a queued optimization.
func (s *PlannerService) Job(ctx context.Context, id string) (*cache.Job, error) {
	if s.d.Jobs == nil || !s.d.Jobs.Enabled() {
		return nil, ErrJobsUnavailable
	}
	return s.d.Jobs.Get(ctx, id)
}

// LatestPlan returns the most recent plan of an event, from Redis when
// cached and from MySQL otherwise.
func (s *PlannerService) LatestPlan(ctx context.Context, eventID uint64) (*model.SeatingPlan, error) {
	if s.d.Cache != nil {
		p, err := s.d.Cache.Get(ctx, eventID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn("plan cache get failed", zap.Uint64("event_id", eventID), zap.Error(err))
		}
	}
	p, err := s.d.Plans.Latest(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if s.d.Cache != nil {
		_ = s.d.Cache.Set(ctx, p)
	}
	return p, nil
}

// Invalidate drops the cached plan of an event after its inputs changed.
func (s *PlannerService) Invalidate(ctx context.Context, eventID uint64) {
	if s.d.Cache == nil {
		return
	}
	if err := s.d.Cache.Invalidate(ctx, eventID); err != nil {
		s.log.Warn("plan cache invalidate failed", zap.Uint64("event_id", eventID), zap.Error(err))
	}
}

// OptimizeSnapshot optimizes a standalone snapshot document without
// touching storage.
func (s *PlannerService) OptimizeSnapshot(ctx context.Context, data []byte, seed int64) (*seating.Result, *snapshot.Snapshot, error) {
	snap, err := snapshot.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	res, err := s.run(ctx, snap.Input(), seed, zap.String("source", "snapshot"))
	if err != nil {
		return nil, nil, err
	}
	return res, snap, nil
}
