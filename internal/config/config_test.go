package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seating-planner/internal/seating"
)

func TestLoadOptimizerConfig_Defaults(t *testing.T) {
	cfg := LoadOptimizerConfig()
	d := seating.DefaultConfig()
	assert.Equal(t, d.PopulationSize, cfg.Search.PopulationSize)
	assert.Equal(t, d.MutationRate, cfg.Search.MutationRate)
	assert.Zero(t, cfg.Search.Seed)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestLoadOptimizerConfig_Overrides(t *testing.T) {
	t.Setenv("OPT_POPULATION_SIZE", "40")
	t.Setenv("OPT_MUTATION_RATE", "0.2")
	t.Setenv("OPT_SEED", "77")
	t.Setenv("OPT_TIMEOUT", "5s")
	t.Setenv("OPT_ELITE_SIZE", "many")

	cfg := LoadOptimizerConfig()
	assert.Equal(t, 40, cfg.Search.PopulationSize)
	assert.Equal(t, 0.2, cfg.Search.MutationRate)
	assert.Equal(t, int64(77), cfg.Search.Seed)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, seating.DefaultConfig().EliteSize, cfg.Search.EliteSize)
}

func TestLoadRateLimitConfig_Shorthands(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 10, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL)

	opt := OptimizeRateLimit(cfg)
	assert.Equal(t, 5, opt.Capacity)
	assert.Equal(t, "seatplan:rl:opt", opt.Prefix)
	assert.Equal(t, 60*time.Second, opt.TTL)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_ENABLED", "off")
	cfg := LoadCacheConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
}

func TestAMQPURL(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://u:p@broker:5672/")
	assert.Equal(t, "amqp://u:p@broker:5672/", AMQPURL())
}

func TestLoadOptimizerConfig_ZeroMutationDisables(t *testing.T) {
	t.Setenv("OPT_MUTATION_RATE", "0")
	cfg := LoadOptimizerConfig()
	assert.Equal(t, -1.0, cfg.Search.MutationRate)

	o := seating.NewOptimizer(cfg.Search)
	assert.Equal(t, 0.0, o.Config().MutationRate)
}

func setServerEnv(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV": "test", "APP_PORT": "8080", "JWT_SECRET": "s",
		"ACCESS_TOKEN_TTL_MIN": "15", "REFRESH_TOKEN_TTL_DAYS": "7", "BCRYPT_COST": "10",
		"DB_USER": "app", "DB_HOST": "db", "DB_PORT": "3306", "DB_NAME": "wedding",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad_Complete(t *testing.T) {
	setServerEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, "wedding", cfg.DB.Name)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	setServerEnv(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("BCRYPT_COST", "ten")

	cfg, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required env var: JWT_SECRET")
	assert.Contains(t, err.Error(), "missing required env var: DB_HOST")
	assert.Contains(t, err.Error(), `invalid int for BCRYPT_COST: "ten"`)
	// The rest is still read, so main can build its logger from it.
	assert.Equal(t, "test", cfg.Env)
}

func TestLoadWorker_NeedsOnlyDatabase(t *testing.T) {
	for _, k := range []string{"APP_ENV", "APP_PORT", "JWT_SECRET"} {
		t.Setenv(k, "")
	}
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "wedding")

	cfg, err := LoadWorker()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)

	t.Setenv("DB_NAME", "")
	_, err = LoadWorker()
	assert.ErrorContains(t, err, "DB_NAME")
}
