package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seating-planner/internal/cache"
	"github.com/iliyamo/seating-planner/internal/config"
	"github.com/iliyamo/seating-planner/internal/model"
	"github.com/iliyamo/seating-planner/internal/queue"
	"github.com/iliyamo/seating-planner/internal/repository"
	"github.com/iliyamo/seating-planner/internal/seating"
)

type fakeEvents map[uint64]*model.Event

func (f fakeEvents) GetByID(_ context.Context, id uint64) (*model.Event, error) {
	if e, ok := f[id]; ok {
		return e, nil
	}
	return nil, repository.ErrNotFound
}

type fakeGuests map[uint64][]*model.Guest

func (f fakeGuests) ListByEvent(_ context.Context, id uint64) ([]*model.Guest, error) {
	return f[id], nil
}

type fakeTables map[uint64][]*model.DiningTable

func (f fakeTables) ListByEvent(_ context.Context, id uint64) ([]*model.DiningTable, error) {
	return f[id], nil
}

type fakePrefs map[uint64][]*model.Preference

func (f fakePrefs) ListByEvent(_ context.Context, id uint64) ([]*model.Preference, error) {
	return f[id], nil
}

type fakePlans struct {
	saved []*model.SeatingPlan
}

func (f *fakePlans) Save(ctx context.Context, p *model.SeatingPlan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.ID = uint64(len(f.saved) + 1)
	f.saved = append(f.saved, p)
	return nil
}

func (f *fakePlans) Latest(_ context.Context, eventID uint64) (*model.SeatingPlan, error) {
	for i := len(f.saved) - 1; i >= 0; i-- {
		if f.saved[i].EventID == eventID {
			return f.saved[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeCache struct {
	m    map[uint64]*model.SeatingPlan
	gets int
}

func newFakeCache() *fakeCache { return &fakeCache{m: map[uint64]*model.SeatingPlan{}} }

func (f *fakeCache) Get(_ context.Context, id uint64) (*model.SeatingPlan, error) {
	f.gets++
	if p, ok := f.m[id]; ok {
		return p, nil
	}
	return nil, cache.ErrMiss
}

func (f *fakeCache) Set(_ context.Context, p *model.SeatingPlan) error {
	f.m[p.EventID] = p
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, id uint64) error {
	delete(f.m, id)
	return nil
}

type fakeJobs struct {
	enabled bool
	jobs    map[string]*cache.Job
}

func newFakeJobs() *fakeJobs { return &fakeJobs{enabled: true, jobs: map[string]*cache.Job{}} }

func (f *fakeJobs) Enabled() bool { return f.enabled }

func (f *fakeJobs) Create(_ context.Context, id string, eventID uint64) error {
	f.jobs[id] = &cache.Job{ID: id, EventID: eventID, Status: cache.JobQueued}
	return nil
}

func (f *fakeJobs) MarkRunning(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.jobs[id].Status = cache.JobRunning
	return nil
}

func (f *fakeJobs) MarkQueued(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.jobs[id].Status = cache.JobQueued
	return nil
}

func (f *fakeJobs) MarkDone(ctx context.Context, id string, planID uint64, fitness float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j := f.jobs[id]
	j.Status, j.PlanID, j.Fitness = cache.JobDone, planID, fitness
	return nil
}

func (f *fakeJobs) MarkFailed(ctx context.Context, id string, cause error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j, ok := f.jobs[id]
	if !ok {
		j = &cache.Job{ID: id}
		f.jobs[id] = j
	}
	j.Status, j.Error = cache.JobFailed, cause.Error()
	return nil
}

func (f *fakeJobs) Get(_ context.Context, id string) (*cache.Job, error) {
	if j, ok := f.jobs[id]; ok {
		return j, nil
	}
	return nil, cache.ErrMiss
}

type published struct {
	queue string
	body  []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, q string, v any) error {
	if f.err != nil {
		return f.err
	}
	bs, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.msgs = append(f.msgs, published{queue: q, body: bs})
	return nil
}

type fixture struct {
	svc    *PlannerService
	plans  *fakePlans
	cache  *fakeCache
	jobs   *fakeJobs
	pub    *fakePublisher
	tables fakeTables
}

// newFixture stores event 1: guests 11 and 12 are family, 13 and 14 are
// strangers, two tables of four.
func newFixture() *fixture {
	f := &fixture{
		plans: &fakePlans{},
		cache: newFakeCache(),
		jobs:  newFakeJobs(),
		pub:   &fakePublisher{},
		tables: fakeTables{1: {
			{ID: 21, EventID: 1, Label: "T1", Capacity: 4},
			{ID: 22, EventID: 1, Label: "T2", Capacity: 4},
		}},
	}
	deps := Deps{
		Events: fakeEvents{1: {ID: 1, Name: "A&B", Criteria: FromCriteria(seating.DefaultCriteria())}},
		Guests: fakeGuests{1: {
			{ID: 11, Name: "Ana", Age: 30, Side: model.SideA, Links: []model.GuestLink{{GuestID: 11, RelatedID: 12, Kind: "family"}}},
			{ID: 12, Name: "Ben", Age: 32, Side: model.SideA},
			{ID: 13, Name: "Cy", Age: 40, Side: model.SideB},
			{ID: 14, Name: "Di", Age: 45, Side: model.SideB},
		}},
		Tables:      f.tables,
		Preferences: fakePrefs{},
		Plans:       f.plans,
		Cache:       f.cache,
		Jobs:        f.jobs,
		Publisher:   f.pub,
	}
	cfg := config.OptimizerConfig{
		Search:  seating.Config{PopulationSize: 20, MaxGenerations: 20, Seed: 7},
		Timeout: 10 * time.Second,
	}
	f.svc = NewPlannerService(deps, cfg)
	return f
}

func tableOf(p *model.SeatingPlan, guest uint64) uint64 {
	for _, a := range p.Assignments {
		if a.GuestID == guest {
			return a.TableID
		}
	}
	return 0
}

func TestLoad_ConvertsRows(t *testing.T) {
	f := newFixture()
	in, err := f.svc.Load(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, in.Guests, 4)
	assert.Equal(t, "11", in.Guests[0].ID)
	assert.Equal(t, []seating.Relation{{GuestID: "12", Kind: seating.RelationFamily}}, in.Guests[0].Relations)
	assert.Equal(t, seating.SideB, in.Guests[2].Side)
	assert.Equal(t, []seating.Table{{ID: "21", Capacity: 4}, {ID: "22", Capacity: 4}}, in.Tables)
	assert.Equal(t, seating.DefaultCriteria(), in.Criteria)

	_, err = f.svc.Load(context.Background(), 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOptimize_SavesAndCaches(t *testing.T) {
	f := newFixture()
	sp, err := f.svc.Optimize(context.Background(), 1, "", 0)
	require.NoError(t, err)

	require.Len(t, f.plans.saved, 1)
	assert.Equal(t, uint64(1), sp.ID)
	require.Len(t, sp.Assignments, 4)
	assert.Equal(t, uint64(11), sp.Assignments[0].GuestID)
	assert.Equal(t, tableOf(sp, 11), tableOf(sp, 12))
	assert.Equal(t, int64(7), sp.Seed)
	assert.Same(t, sp, f.cache.m[1])

	var bd seating.Breakdown
	require.NoError(t, json.Unmarshal(sp.Breakdown, &bd))
	assert.Equal(t, sp.Fitness, bd.Total)
}

func TestCheckCapacity_Insufficient(t *testing.T) {
	f := newFixture()
	f.tables[1] = []*model.DiningTable{{ID: 21, Capacity: 3}}

	err := f.svc.CheckCapacity(context.Background(), 1)
	var ce *seating.InsufficientCapacityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 4, ce.Guests)
	assert.Equal(t, 3, ce.Capacity)

	_, err = f.svc.Enqueue(context.Background(), 1, 5, 0)
	assert.ErrorIs(t, err, seating.ErrInsufficientCapacity)
	assert.Empty(t, f.jobs.jobs)
	assert.Empty(t, f.pub.msgs)
}

func TestEnqueueThenRunJob(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	id, err := f.svc.Enqueue(ctx, 1, 5, 3)
	require.NoError(t, err)
	require.Len(t, f.pub.msgs, 1)
	assert.Equal(t, queue.OptimizeQueue, f.pub.msgs[0].queue)
	job, err := f.svc.Job(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, cache.JobQueued, job.Status)

	var msg queue.OptimizeRequested
	require.NoError(t, json.Unmarshal(f.pub.msgs[0].body, &msg))
	assert.Equal(t, id, msg.JobID)
	assert.Equal(t, uint64(5), msg.RequestedBy)

	require.NoError(t, f.svc.RunJob(ctx, f.pub.msgs[0].body))
	job, err = f.svc.Job(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, cache.JobDone, job.Status)
	assert.Equal(t, uint64(1), job.PlanID)
	assert.Equal(t, id, f.plans.saved[0].JobID)
	assert.Equal(t, int64(3), f.plans.saved[0].Seed)

	require.Len(t, f.pub.msgs, 2)
	assert.Equal(t, queue.PlannedQueue, f.pub.msgs[1].queue)
	var ready queue.PlanReady
	require.NoError(t, json.Unmarshal(f.pub.msgs[1].body, &ready))
	assert.Equal(t, uint64(1), ready.PlanID)
}

func TestRunJob_FailureMarksJob(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.jobs.Create(ctx, "j", 99))

	body, _ := json.Marshal(queue.OptimizeRequested{JobID: "j", EventID: 99})
	err := f.svc.RunJob(ctx, body)
	require.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, cache.JobFailed, f.jobs.jobs["j"].Status)
	assert.NotEmpty(t, f.jobs.jobs["j"].Error)

	assert.Error(t, f.svc.RunJob(ctx, []byte("{")))
	assert.Error(t, f.svc.RunJob(ctx, []byte(`{"job_id":""}`)))
}

func TestRunJob_ShutdownRequeuesWithoutSaving(t *testing.T) {
	f := newFixture()
	id, err := f.svc.Enqueue(context.Background(), 1, 5, 0)
	require.NoError(t, err)
	body := f.pub.msgs[0].body

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = f.svc.RunJob(ctx, body)
	require.ErrorIs(t, err, queue.ErrRequeue)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, f.plans.saved)
	assert.Empty(t, f.cache.m)
	assert.Equal(t, cache.JobQueued, f.jobs.jobs[id].Status)
	assert.Len(t, f.pub.msgs, 1)

	// The requeued message runs to completion on the next delivery.
	require.NoError(t, f.svc.RunJob(context.Background(), body))
	assert.Equal(t, cache.JobDone, f.jobs.jobs[id].Status)
	require.Len(t, f.plans.saved, 1)
}

func TestRunJob_ShutdownStateReachesRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := cache.NewJobStore(rdb, time.Hour)

	f := newFixture()
	d := f.svc.d
	d.Jobs = store
	svc := NewPlannerService(d, f.svc.cfg)

	bg := context.Background()
	require.NoError(t, store.Create(bg, "j1", 1))
	require.NoError(t, store.MarkRunning(bg, "j1"))
	body, err := json.Marshal(queue.OptimizeRequested{JobID: "j1", EventID: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(bg)
	cancel()
	require.ErrorIs(t, svc.RunJob(ctx, body), queue.ErrRequeue)

	job, err := store.Get(bg, "j1")
	require.NoError(t, err)
	assert.Equal(t, cache.JobQueued, job.Status)
}

func TestEnqueue_PublishFailureFailsJob(t *testing.T) {
	f := newFixture()
	f.pub.err = errors.New("broker down")

	_, err := f.svc.Enqueue(context.Background(), 1, 5, 0)
	require.Error(t, err)
	require.Len(t, f.jobs.jobs, 1)
	for _, j := range f.jobs.jobs {
		assert.Equal(t, cache.JobFailed, j.Status)
	}
}

func TestEnqueue_JobsDisabled(t *testing.T) {
	f := newFixture()
	f.jobs.enabled = false
	_, err := f.svc.Enqueue(context.Background(), 1, 5, 0)
	assert.ErrorIs(t, err, ErrJobsUnavailable)
	_, err = f.svc.Job(context.Background(), "x")
	assert.ErrorIs(t, err, ErrJobsUnavailable)
}

func TestLatestPlan_CacheThenStore(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.LatestPlan(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	sp, err := f.svc.Optimize(ctx, 1, "", 0)
	require.NoError(t, err)

	f.svc.Invalidate(ctx, 1)
	assert.Empty(t, f.cache.m)

	got, err := f.svc.LatestPlan(ctx, 1)
	require.NoError(t, err)
	assert.Same(t, sp, got)
	assert.Same(t, sp, f.cache.m[1], "store hit refills the cache")
}

func TestOptimizeSnapshot(t *testing.T) {
	f := newFixture()
	doc := []byte(`{"guests":[{"id":"a"},{"id":"b"}],"tables":[{"id":"T","capacity":2}]}`)
	res, snap, err := f.svc.OptimizeSnapshot(context.Background(), doc, 0)
	require.NoError(t, err)
	assert.Len(t, snap.Guests, 2)
	assert.Equal(t, map[string]string{"a": "T", "b": "T"}, res.Plan.Assignments)
	assert.Empty(t, f.plans.saved)

	_, _, err = f.svc.OptimizeSnapshot(context.Background(), []byte(`{"tables":[{"id":"T","capacity":1}],"guests":[{"id":"a"},{"id":"b"}]}`), 0)
	assert.ErrorIs(t, err, seating.ErrInsufficientCapacity)
}
