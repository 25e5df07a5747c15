package seating

import (
	"context"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Config holds the genetic search parameters. Zero values are replaced
// by the defaults of DefaultConfig.
type Config struct {
	PopulationSize  int
	EliteSize       int
	MaxGenerations  int
	StagnationLimit int
	// MutationRate is the chance a child is mutated. Zero keeps the
	// default; any negative value disables mutation.
	MutationRate float64
	// MutationSwapFraction is the share of guests swapped per mutation.
	MutationSwapFraction float64
	TournamentSize       int
	SmartFraction        float64
	// ConvergenceRatio and ConvergenceRounds stop the run once the best
	// plan of the current generation has stayed within ConvergenceRatio of
	// the best-ever fitness for ConvergenceRounds consecutive generations.
	// Inactive while the best-ever fitness is 0.
	ConvergenceRatio  float64
	ConvergenceRounds int
	Workers           int
	// Seed makes runs replayable. 0 picks a time based seed, reported in
	// Result.Seed.
	Seed int64
}

// DefaultConfig returns the stock search parameters.
func DefaultConfig() Config {
	return Config{
		PopulationSize:       100,
		EliteSize:            10,
		MaxGenerations:       200,
		StagnationLimit:      20,
		MutationRate:         0.05,
		MutationSwapFraction: 0.10,
		TournamentSize:       5,
		SmartFraction:        0.20,
		ConvergenceRatio:     0.95,
		ConvergenceRounds:    10,
		Workers:              runtime.GOMAXPROCS(0),
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.PopulationSize < 2 {
		c.PopulationSize = d.PopulationSize
	}
	if c.EliteSize <= 0 {
		c.EliteSize = d.EliteSize
	}
	if c.EliteSize >= c.PopulationSize {
		c.EliteSize = c.PopulationSize - 1
	}
	if c.MaxGenerations <= 0 {
		c.MaxGenerations = d.MaxGenerations
	}
	if c.StagnationLimit <= 0 {
		c.StagnationLimit = d.StagnationLimit
	}
	if c.MutationRate < 0 {
		c.MutationRate = 0
	} else if c.MutationRate == 0 {
		c.MutationRate = d.MutationRate
	} else if c.MutationRate > 1 {
		c.MutationRate = 1
	}
	if c.MutationSwapFraction <= 0 {
		c.MutationSwapFraction = d.MutationSwapFraction
	}
	if c.TournamentSize <= 0 {
		c.TournamentSize = d.TournamentSize
	}
	if c.SmartFraction <= 0 || c.SmartFraction > 1 {
		c.SmartFraction = d.SmartFraction
	}
	if c.ConvergenceRatio <= 0 || c.ConvergenceRatio > 1 {
		c.ConvergenceRatio = d.ConvergenceRatio
	}
	if c.ConvergenceRounds <= 0 {
		c.ConvergenceRounds = d.ConvergenceRounds
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	return c
}

// State is the driver's position in its state machine.
type State int

const (
	StateInitializing State = iota
	StateEvaluating
	StateConverged
	StateMaxGenerations
	StateCancelled
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateEvaluating:
		return "evaluating"
	case StateConverged:
		return "converged"
	case StateMaxGenerations:
		return "max_generations"
	case StateCancelled:
		return "cancelled"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// StopReason explains why a run ended.
type StopReason string

const (
	StopConverged      StopReason = "converged"
	StopMaxGenerations StopReason = "max_generations"
	StopCancelled      StopReason = "cancelled"
	StopNoGuests       StopReason = "no_guests"
)

// GenerationStats is reported to the Observer after every evaluated
// generation.
type GenerationStats struct {
	Generation int
	Best       float64 // best fitness of this generation
	BestEver   float64
	Mean       float64
	Stagnant   int
	State      State
}

// Observer receives progress events from a run. Calls happen on the
// goroutine running the optimizer.
type Observer interface {
	Initialized(population int)
	Generation(stats GenerationStats)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are
// skipped.
type ObserverFuncs struct {
	OnInitialized func(population int)
	OnGeneration  func(stats GenerationStats)
}

func (o ObserverFuncs) Initialized(n int) {
	if o.OnInitialized != nil {
		o.OnInitialized(n)
	}
}

func (o ObserverFuncs) Generation(s GenerationStats) {
	if o.OnGeneration != nil {
		o.OnGeneration(s)
	}
}

// Result is the outcome of a run.
type Result struct {
	Plan        *Plan
	Generations int
	StopReason  StopReason
	History     []float64 // best fitness so far after each generation
	Seed        int64
	Elapsed     time.Duration
}

// Input bundles the read-only snapshot handed to the optimizer.
type Input struct {
	Guests      []Guest
	Tables      []Table
	Preferences []Preference
	Criteria    Criteria
}

// Option customises an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver registers a progress observer.
func WithObserver(obs Observer) Option {
	return func(o *Optimizer) { o.observer = obs }
}

// WithSeed fixes the random seed.
func WithSeed(seed int64) Option {
	return func(o *Optimizer) { o.cfg.Seed = seed }
}

// Optimizer runs the generational search. An Optimizer holds no state
// between runs and may be reused, but not concurrently.
type Optimizer struct {
	cfg      Config
	logger   *zap.Logger
	observer Observer
}

// NewOptimizer returns an optimizer for cfg.
func NewOptimizer(cfg Config, opts ...Option) *Optimizer {
	o := &Optimizer{cfg: cfg, logger: zap.NewNop(), observer: ObserverFuncs{}}
	for _, opt := range opts {
		opt(o)
	}
	o.cfg = o.cfg.normalized()
	return o
}

// Config returns the effective, normalised configuration.
func (o *Optimizer) Config() Config { return o.cfg }

// Optimize seats every guest using the default configuration.
func Optimize(ctx context.Context, guests []Guest, tables []Table, prefs []Preference, criteria Criteria, opts ...Option) (*Plan, error) {
	res, err := NewOptimizer(DefaultConfig(), opts...).Run(ctx, Input{
		Guests:      guests,
		Tables:      tables,
		Preferences: prefs,
		Criteria:    criteria,
	})
	if err != nil {
		return nil, err
	}
	return res.Plan, nil
}

// Run builds the problem arena from in and solves it.
func (o *Optimizer) Run(ctx context.Context, in Input) (*Result, error) {
	p, err := NewProblem(in.Guests, in.Tables, in.Preferences, in.Criteria, o.logger)
	if err != nil {
		return nil, err
	}
	return o.Solve(ctx, p)
}

// Solve runs the search on a prepared problem. The capacity precondition
// is checked before any plan is built. Cancelling ctx stops the run after
// the current generation; the best plan found so far is returned with
// StopCancelled.
func (o *Optimizer) Solve(ctx context.Context, p *Problem) (*Result, error) {
	start := time.Now()
	cfg := o.cfg
	if err := CheckCapacity(len(p.guests), p.tables); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	res := &Result{Seed: seed}

	if len(p.guests) == 0 {
		res.Plan = o.finish(p, nil)
		res.StopReason = StopNoGuests
		res.Elapsed = time.Since(start)
		return res, nil
	}

	rng := rand.New(rand.NewSource(seed))
	pop := p.initialPopulation(rng, cfg.PopulationSize, cfg.SmartFraction)
	o.observer.Initialized(len(pop))

	var best individual
	stagnant, stable := 0, 0
	state := StateEvaluating
	for gen := 1; state == StateEvaluating; gen++ {
		o.score(p, pop)
		sort.SliceStable(pop, func(i, j int) bool { return pop[i].fitness > pop[j].fitness })
		res.Generations = gen

		if best.tableOf == nil || pop[0].fitness > best.fitness {
			best = pop[0].clone()
			stagnant = 0
		} else {
			stagnant++
		}
		mean := 0.0
		for i := range pop {
			mean += pop[i].fitness
		}
		mean /= float64(len(pop))
		if best.fitness > 0 && pop[0].fitness >= cfg.ConvergenceRatio*best.fitness {
			stable++
		} else {
			stable = 0
		}
		res.History = append(res.History, best.fitness)

		switch {
		case stagnant >= cfg.StagnationLimit || stable >= cfg.ConvergenceRounds:
			state = StateConverged
			res.StopReason = StopConverged
		case gen >= cfg.MaxGenerations:
			state = StateMaxGenerations
			res.StopReason = StopMaxGenerations
		case ctx.Err() != nil:
			state = StateCancelled
			res.StopReason = StopCancelled
		}

		stats := GenerationStats{
			Generation: gen,
			Best:       pop[0].fitness,
			BestEver:   best.fitness,
			Mean:       mean,
			Stagnant:   stagnant,
			State:      state,
		}
		o.observer.Generation(stats)
		o.logger.Debug("generation evaluated",
			zap.Int("generation", gen),
			zap.Float64("best", stats.Best),
			zap.Float64("best_ever", stats.BestEver),
			zap.Float64("mean", mean),
			zap.Int("stagnant", stagnant),
			zap.Stringer("state", state))

		if state == StateEvaluating {
			pop = o.breed(rng, p, pop)
		}
	}

	res.Plan = o.finish(p, best.tableOf)
	res.Elapsed = time.Since(start)
	o.logger.Info("seating optimization finished",
		zap.Int("guests", len(p.guests)),
		zap.Int("tables", len(p.tables)),
		zap.Int("generations", res.Generations),
		zap.String("stop_reason", string(res.StopReason)),
		zap.Float64("fitness", res.Plan.Fitness),
		zap.Int64("seed", seed),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// score evaluates every unscored individual. Fitness is pure, so the
// population is split in chunks evaluated concurrently; each goroutine
// writes only to its own chunk.
func (o *Optimizer) score(p *Problem, pop []individual) {
	workers := o.cfg.Workers
	if workers <= 1 || len(pop) < 2*workers {
		scoreChunk(p, pop)
		return
	}
	wp := pool.New().WithMaxGoroutines(workers)
	chunk := (len(pop) + workers - 1) / workers
	for lo := 0; lo < len(pop); lo += chunk {
		hi := min(lo+chunk, len(pop))
		part := pop[lo:hi]
		wp.Go(func() { scoreChunk(p, part) })
	}
	wp.Wait()
}

func scoreChunk(p *Problem, part []individual) {
	for i := range part {
		if !part[i].scored {
			part[i].fitness = p.fitness(part[i].tableOf)
			part[i].scored = true
		}
	}
}

// breed assembles the next generation from a scored, sorted population:
// the elite unchanged, then repaired offspring of tournament-selected
// parent pairs, truncated to the population size.
func (o *Optimizer) breed(rng *rand.Rand, p *Problem, pop []individual) []individual {
	cfg := o.cfg
	size := cfg.PopulationSize
	elite := min(cfg.EliteSize, len(pop))
	next := make([]individual, 0, size)
	for i := 0; i < elite; i++ {
		next = append(next, pop[i].clone())
	}
	parents := selectParents(rng, pop, size-elite, cfg.TournamentSize)
	for i := 0; len(next) < size; i += 2 {
		a := pop[parents[i%len(parents)]].tableOf
		b := pop[parents[(i+1)%len(parents)]].tableOf
		c1, c2 := crossover(rng, a, b)
		for _, child := range [][]int{c1, c2} {
			mutate(rng, child, cfg.MutationRate, cfg.MutationSwapFraction)
			p.repair(child)
			if len(next) < size {
				next = append(next, individual{tableOf: child})
			}
		}
	}
	return next
}

func (o *Optimizer) finish(p *Problem, tableOf []int) *Plan {
	plan := p.decode(tableOf)
	plan.Breakdown = p.evaluate(tableOf)
	plan.Fitness = plan.Breakdown.Total
	return plan
}
