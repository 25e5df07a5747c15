// Command worker consumes optimize jobs from RabbitMQ, runs them and
// stores the resulting plans.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/seating-planner/internal/cache"
	"github.com/iliyamo/seating-planner/internal/config"
	"github.com/iliyamo/seating-planner/internal/database"
	"github.com/iliyamo/seating-planner/internal/logging"
	"github.com/iliyamo/seating-planner/internal/queue"
	"github.com/iliyamo/seating-planner/internal/repository"
	"github.com/iliyamo/seating-planner/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg, cfgErr := config.LoadWorker()
	log := logging.Must(cfg.Env, cfg.LogLevel).Named("worker")
	defer func() { _ = log.Sync() }()
	if cfgErr != nil {
		log.Fatal("invalid configuration", zap.Error(cfgErr))
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()
	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.Fatal("schema migration failed", zap.Error(err))
		}
	}

	// Job status lives in Redis; without it the API never queues work.
	rdb, err := config.NewRedisClient()
	if err != nil {
		log.Fatal("redis unavailable", zap.Error(err))
	}
	defer rdb.Close()

	planner := service.NewPlannerService(service.Deps{
		Events:      repository.NewEventRepo(db),
		Guests:      repository.NewGuestRepo(db),
		Tables:      repository.NewTableRepo(db),
		Preferences: repository.NewPreferenceRepo(db),
		Plans:       repository.NewPlanRepo(db),
		Cache:       cache.NewPlanCache(rdb, cfg.Optimizer.PlanTTL),
		Jobs:        cache.NewJobStore(rdb, cfg.Optimizer.JobTTL),
		Publisher:   queue.NewPublisher(cfg.AMQPURL, log),
		Logger:      log,
	}, cfg.Optimizer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One optimization at a time per worker; each already uses every core.
	consumer := queue.NewConsumer(cfg.AMQPURL, queue.OptimizeQueue, planner.RunJob, log).WithPrefetch(1)
	log.Info("worker started", zap.String("queue", queue.OptimizeQueue))
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped", zap.Error(err))
	}
	log.Info("worker stopped")
}
