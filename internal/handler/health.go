package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health is the liveness probe.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Readiness reports whether MySQL and Redis answer. Redis is optional: a
// nil client is reported as "disabled" and does not fail the probe.
type Readiness struct {
	DB    Pinger
	Redis *redis.Client
}

// Ready answers 200 when every required dependency is up, 503 otherwise.
func (r *Readiness) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	out := echo.Map{"mysql": "up", "redis": "disabled"}
	if err := r.DB.PingContext(ctx); err != nil {
		out["mysql"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if r.Redis != nil {
		if err := r.Redis.Ping(ctx).Err(); err != nil {
			// Degraded, not down: the API serves without Redis.
			out["redis"] = err.Error()
		} else {
			out["redis"] = "up"
		}
	}
	return c.JSON(status, out)
}
