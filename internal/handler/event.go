package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seating-planner/internal/model"
	"github.com/iliyamo/seating-planner/internal/repository"
	"github.com/iliyamo/seating-planner/internal/seating"
	"github.com/iliyamo/seating-planner/internal/service"
)

// EventHandler manages wedding events.
type EventHandler struct {
	Events  *repository.EventRepo
	Planner PlanInvalidator
}

// PlanInvalidator drops the cached plan of an event whose inputs changed.
type PlanInvalidator interface {
	Invalidate(ctx context.Context, eventID uint64)
}

func NewEventHandler(events *repository.EventRepo, p PlanInvalidator) *EventHandler {
	return &EventHandler{Events: events, Planner: p}
}

type createEventReq struct {
	Name      string          `json:"name"`
	EventDate string          `json:"event_date"` // YYYY-MM-DD, optional
	Criteria  *model.Criteria `json:"criteria"`
}

// Create stores a new event owned by the caller. Omitted criteria take
// the optimizer defaults.
func (h *EventHandler) Create(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}
	ev := &model.Event{OwnerID: uid, Name: req.Name, Criteria: service.FromCriteria(seating.DefaultCriteria())}
	if req.Criteria != nil {
		ev.Criteria = *req.Criteria
	}
	if req.EventDate != "" {
		d, err := time.Parse(time.DateOnly, req.EventDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "event_date must be YYYY-MM-DD")
		}
		ev.EventDate = &d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Events.Create(ctx, ev); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, ev)
}

// List returns the caller's events.
func (h *EventHandler) List(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	evs, err := h.Events.ListByOwner(ctx, uid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": evs})
}

// Get returns one event.
func (h *EventHandler) Get(c echo.Context) error {
	ev, err := eventFor(c, h.Events)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ev)
}

// UpdateCriteria replaces the scoring criteria of an event.
func (h *EventHandler) UpdateCriteria(c echo.Context) error {
	ev, err := eventFor(c, h.Events)
	if err != nil {
		return err
	}
	var crit model.Criteria
	if err := c.Bind(&crit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Events.UpdateCriteria(ctx, ev.ID, ev.OwnerID, crit); err != nil {
		return httpError(err)
	}
	h.Planner.Invalidate(ctx, ev.ID)
	ev.Criteria = crit
	return c.JSON(http.StatusOK, ev)
}
