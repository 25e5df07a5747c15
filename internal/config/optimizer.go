package config

import (
	"os"
	"strconv"
	"time"

	"github.com/iliyamo/seating-planner/internal/seating"
)

// OptimizerConfig tunes the seating search and the lifetime of its
// results in Redis.
type OptimizerConfig struct {
	Search  seating.Config
	Timeout time.Duration // deadline of one optimize run
	JobTTL  time.Duration // how long job status hashes live
	PlanTTL time.Duration // how long cached plans live
}

// LoadOptimizerConfig reads OPT_* variables on top of
// seating.DefaultConfig. Unset or malformed values keep the default.
// OPT_MUTATION_RATE=0 turns mutation off.
func LoadOptimizerConfig() OptimizerConfig {
	d := seating.DefaultConfig()
	mutation := envFloat("OPT_MUTATION_RATE", d.MutationRate)
	if mutation <= 0 {
		// seating.Config reads 0 as "use the default".
		mutation = -1
	}
	search := seating.Config{
		PopulationSize:       envInt("OPT_POPULATION_SIZE", d.PopulationSize),
		EliteSize:            envInt("OPT_ELITE_SIZE", d.EliteSize),
		MaxGenerations:       envInt("OPT_MAX_GENERATIONS", d.MaxGenerations),
		StagnationLimit:      envInt("OPT_STAGNATION_LIMIT", d.StagnationLimit),
		MutationRate:         mutation,
		MutationSwapFraction: d.MutationSwapFraction,
		TournamentSize:       envInt("OPT_TOURNAMENT_SIZE", d.TournamentSize),
		SmartFraction:        d.SmartFraction,
		ConvergenceRatio:     d.ConvergenceRatio,
		ConvergenceRounds:    d.ConvergenceRounds,
		Workers:              envInt("OPT_WORKERS", d.Workers),
		Seed:                 envInt64("OPT_SEED", 0),
	}
	return OptimizerConfig{
		Search:  search,
		Timeout: envDur("OPT_TIMEOUT", 30*time.Second),
		JobTTL:  envDur("OPT_JOB_TTL", 24*time.Hour),
		PlanTTL: envDur("OPT_PLAN_TTL", time.Hour),
	}
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}

func envInt64(k string, d int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	return d
}
