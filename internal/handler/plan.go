package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seating-planner/internal/cache"
	"github.com/iliyamo/seating-planner/internal/model"
	"github.com/iliyamo/seating-planner/internal/seating"
	"github.com/iliyamo/seating-planner/internal/service"
	"github.com/iliyamo/seating-planner/internal/snapshot"
)

const maxSnapshotBytes = 4 << 20

// Planner is the part of service.PlannerService the plan endpoints use.
type Planner interface {
	PlanInvalidator
	Enqueue(ctx context.Context, eventID, userID uint64, seed int64) (string, error)
	Optimize(ctx context.Context, eventID uint64, jobID string, seed int64) (*model.SeatingPlan, error)
	Job(ctx context.Context, id string) (*cache.Job, error)
	LatestPlan(ctx context.Context, eventID uint64) (*model.SeatingPlan, error)
	OptimizeSnapshot(ctx context.Context, data []byte, seed int64) (*seating.Result, *snapshot.Snapshot, error)
}

// PlanHandler starts optimizations and serves their results.
type PlanHandler struct {
	Events  EventFinder
	Planner Planner
}

func NewPlanHandler(events EventFinder, p Planner) *PlanHandler {
	return &PlanHandler{Events: events, Planner: p}
}

func seedParam(c echo.Context) (int64, error) {
	s := c.QueryParam("seed")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid seed")
	}
	return n, nil
}

// Optimize queues an optimization of the event and answers 202 with the
// job id. An event whose tables cannot seat its guests fails with 422 on
// either path. ?sync=true, or a deployment without background jobs, runs
// the search inline and returns the plan.
func (h *PlanHandler) Optimize(c echo.Context) error {
	ev, err := eventFor(c, h.Events)
	if err != nil {
		return err
	}
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	seed, err := seedParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if c.QueryParam("sync") != "true" {
		id, err := h.Planner.Enqueue(ctx, ev.ID, uid, seed)
		if err == nil {
			return c.JSON(http.StatusAccepted, echo.Map{"job_id": id, "status": cache.JobQueued})
		}
		if !errors.Is(err, service.ErrJobsUnavailable) {
			return httpError(err)
		}
	}

	// Optimize fails with *seating.InsufficientCapacityError before any
	// search runs.
	plan, err := h.Planner.Optimize(ctx, ev.ID, "", seed)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, plan)
}

// Job reports the status of a queued optimization.
func (h *PlanHandler) Job(c echo.Context) error {
	id := c.Param("jobId")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid jobId")
	}
	job, err := h.Planner.Job(c.Request().Context(), id)
	switch {
	case errors.Is(err, cache.ErrMiss):
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	case errors.Is(err, service.ErrJobsUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "background jobs unavailable")
	case err != nil:
		return httpError(err)
	}
	if _, err := eventForID(c, h.Events, job.EventID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

// Latest returns the newest plan of the event.
func (h *PlanHandler) Latest(c echo.Context) error {
	ev, err := eventFor(c, h.Events)
	if err != nil {
		return err
	}
	plan, err := h.Planner.LatestPlan(c.Request().Context(), ev.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, plan)
}

type snapshotResp struct {
	Assignments map[string]string   `json:"assignments"`
	Tables      map[string][]string `json:"tables"`
	Fitness     float64             `json:"fitness"`
	Breakdown   seating.Breakdown   `json:"breakdown"`
	Generations int                 `json:"generations"`
	StopReason  string              `json:"stop_reason"`
	Seed        int64               `json:"seed"`
	Skipped     int                 `json:"skipped,omitempty"`
}

// OptimizeSnapshot optimizes the snapshot in the request body and returns
// the plan without storing anything.
func (h *PlanHandler) OptimizeSnapshot(c echo.Context) error {
	seed, err := seedParam(c)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSnapshotBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body failed")
	}
	if len(body) > maxSnapshotBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "snapshot too large")
	}
	res, snap, err := h.Planner.OptimizeSnapshot(c.Request().Context(), body, seed)
	if errors.Is(err, snapshot.ErrInvalidJSON) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON")
	}
	if errors.Is(err, seating.ErrInvalidTable) || errors.Is(err, seating.ErrDuplicateGuest) ||
		errors.Is(err, seating.ErrDuplicateTable) || errors.Is(err, seating.ErrEmptyID) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, snapshotResp{
		Assignments: res.Plan.Assignments,
		Tables:      res.Plan.Roster(),
		Fitness:     res.Plan.Fitness,
		Breakdown:   res.Plan.Breakdown,
		Generations: res.Generations,
		StopReason:  string(res.StopReason),
		Seed:        res.Seed,
		Skipped:     snap.Skipped,
	})
}
