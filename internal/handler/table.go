package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seating-planner/internal/model"
	"github.com/iliyamo/seating-planner/internal/repository"
)

// TableHandler manages the dining tables of an event.
type TableHandler struct {
	Events  EventFinder
	Tables  *repository.TableRepo
	Planner PlanInvalidator
}

func NewTableHandler(events EventFinder, tables *repository.TableRepo, p PlanInvalidator) *TableHandler {
	return &TableHandler{Events: events, Tables: tables, Planner: p}
}

type tableReq struct {
	Label      string `json:"label"`
	Capacity   int    `json:"capacity"`
	Accessible bool   `json:"accessible"`
	Head       bool   `json:"head"`
}

// Create adds one or more tables: {"tables": [...]}.
func (h *TableHandler) Create(c echo.Context) error {
	ev, err := eventFor(c, h.Events)
	if err != nil {
		return err
	}
	var req struct {
		Tables []tableReq `json:"tables"`
	}
	if err := c.Bind(&req); err != nil || len(req.Tables) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "tables required")
	}
	tables := make([]*model.DiningTable, len(req.Tables))
	for i, t := range req.Tables {
		label := strings.TrimSpace(t.Label)
		if label == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "table label required")
		}
		if t.Capacity <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "table capacity must be greater than zero")
		}
		tables[i] = &model.DiningTable{EventID: ev.ID, Label: label, Capacity: t.Capacity, Accessible: t.Accessible, Head: t.Head}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Tables.CreateBulk(ctx, ev.ID, tables); err != nil {
		return httpError(err)
	}
	h.Planner.Invalidate(ctx, ev.ID)
	return c.JSON(http.StatusCreated, echo.Map{"tables": tables})
}

// List returns the tables of an event.
func (h *TableHandler) List(c echo.Context) error {
	ev, err := eventFor(c, h.Events)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	tables, err := h.Tables.ListByEvent(ctx, ev.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tables": tables})
}

// Delete removes a table.
func (h *TableHandler) Delete(c echo.Context) error {
	ev, err := eventFor(c, h.Events)
	if err != nil {
		return err
	}
	tid, err := parseID(c, "tableId")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Tables.Delete(ctx, ev.ID, tid); err != nil {
		return httpError(err)
	}
	h.Planner.Invalidate(ctx, ev.ID)
	return c.NoContent(http.StatusNoContent)
}
