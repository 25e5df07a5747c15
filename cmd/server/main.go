package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/seating-planner/internal/cache"
	"github.com/iliyamo/seating-planner/internal/config"
	"github.com/iliyamo/seating-planner/internal/database"
	"github.com/iliyamo/seating-planner/internal/handler"
	"github.com/iliyamo/seating-planner/internal/logging"
	"github.com/iliyamo/seating-planner/internal/middleware"
	"github.com/iliyamo/seating-planner/internal/queue"
	"github.com/iliyamo/seating-planner/internal/repository"
	"github.com/iliyamo/seating-planner/internal/router"
	"github.com/iliyamo/seating-planner/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg, cfgErr := config.Load()
	log := logging.Must(cfg.Env, cfg.LogLevel)
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

	rdb, err := config.NewRedisClient()
	if err != nil {
		log.Warn("redis unavailable: caching, rate limiting and background jobs disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	guests := repository.NewGuestRepo(db)
	tables := repository.NewTableRepo(db)
	prefs := repository.NewPreferenceRepo(db)

	planner := service.NewPlannerService(service.Deps{
		Events:      events,
		Guests:      guests,
		Tables:      tables,
		Preferences: prefs,
		Plans:       repository.NewPlanRepo(db),
		Cache:       cache.NewPlanCache(rdb, cfg.Optimizer.PlanTTL),
		Jobs:        cache.NewJobStore(rdb, cfg.Optimizer.JobTTL),
		Publisher:   queue.NewPublisher(cfg.AMQPURL, log),
		Logger:      log,
	}, cfg.Optimizer)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))

	opt := router.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Redis:     rdb,
		Logger:    log,
	}
	router.RegisterRoutes(e, &handler.Readiness{DB: db, Redis: rdb})
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), opt)
	router.RegisterPlanner(e, router.Handlers{
		Events:      handler.NewEventHandler(events, planner),
		Guests:      handler.NewGuestHandler(events, guests, planner),
		Tables:      handler.NewTableHandler(events, tables, planner),
		Preferences: handler.NewPreferenceHandler(events, prefs, planner),
		Plans:       handler.NewPlanHandler(events, planner),
	}, opt)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	// Sync optimizations may run up to the optimizer timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Optimizer.Timeout+5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}
