// Package router wires handlers and middleware onto routes.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/seating-planner/internal/config"
	"github.com/iliyamo/seating-planner/internal/handler"
	"github.com/iliyamo/seating-planner/internal/middleware"
	"github.com/iliyamo/seating-planner/internal/model"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Auth        *handler.AuthHandler
	Events      *handler.EventHandler
	Guests      *handler.GuestHandler
	Tables      *handler.TableHandler
	Preferences *handler.PreferenceHandler
	Plans       *handler.PlanHandler
}

// Options carries the middleware settings.
type Options struct {
	JWTSecret string
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client // nil disables rate limiting and response caching
	Logger    *zap.Logger
}

// RegisterRoutes registers unauthenticated routes. ready may be nil.
func RegisterRoutes(e *echo.Echo, ready *handler.Readiness) {
	e.GET("/healthz", handler.Health)
	if ready != nil {
		e.GET("/readyz", ready.Ready)
	}
}

// RegisterAuth registers account routes. Register, login and refresh are
// public; me and logout need a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, opt Options) {
	pub := e.Group("/v1/auth", middleware.RateLimit(opt.RateLimit, opt.Redis, opt.Logger))
	pub.POST("/register", a.Register)
	pub.POST("/login", a.Login)
	pub.POST("/refresh", a.Refresh)

	priv := e.Group("/v1", middleware.JWTAuth(opt.JWTSecret))
	priv.GET("/me", a.Me)
	priv.POST("/auth/logout", a.Logout)
}

// RegisterPlanner registers the event, guest, table, preference and
// optimization routes for planners and admins.
func RegisterPlanner(e *echo.Echo, h Handlers, opt Options) {
	g := e.Group("/v1",
		middleware.JWTAuth(opt.JWTSecret),
		middleware.RequireRole(model.RolePlanner, model.RoleAdmin),
		middleware.RateLimit(opt.RateLimit, opt.Redis, opt.Logger),
		middleware.EvictOnWrite(opt.Cache, opt.Redis),
	)

	g.POST("/events", h.Events.Create)
	g.GET("/events", h.Events.List)
	g.GET("/events/:id", h.Events.Get)
	g.PUT("/events/:id/criteria", h.Events.UpdateCriteria)

	g.POST("/events/:id/guests", h.Guests.CreateBulk)
	g.GET("/events/:id/guests", h.Guests.List)
	g.DELETE("/events/:id/guests/:guestId", h.Guests.Delete)

	g.POST("/events/:id/tables", h.Tables.Create)
	g.GET("/events/:id/tables", h.Tables.List)
	g.DELETE("/events/:id/tables/:tableId", h.Tables.Delete)

	g.POST("/events/:id/preferences", h.Preferences.Create)
	g.GET("/events/:id/preferences", h.Preferences.List)
	g.DELETE("/events/:id/preferences/:prefId", h.Preferences.Delete)

	// Optimizations are expensive; they get their own tighter bucket.
	heavy := config.OptimizeRateLimit(opt.RateLimit)
	g.POST("/events/:id/optimize", h.Plans.Optimize, middleware.RateLimit(heavy, opt.Redis, opt.Logger))
	g.GET("/jobs/:jobId", h.Plans.Job)
	g.GET("/events/:id/plan", h.Plans.Latest, middleware.ResponseCache(opt.Cache, opt.Redis, opt.Logger))
	g.POST("/optimize", h.Plans.OptimizeSnapshot, middleware.RateLimit(heavy, opt.Redis, opt.Logger))
}
