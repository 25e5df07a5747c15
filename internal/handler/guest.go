package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seating-planner/internal/repository"
	"github.com/iliyamo/seating-planner/internal/seating"
)

const maxGuestBatch = 1000

// GuestHandler manages the guest list of an event.
type GuestHandler struct {
	Events  EventFinder
	Guests  *repository.GuestRepo
	Planner PlanInvalidator
}

func NewGuestHandler(events EventFinder, guests *repository.GuestRepo, p PlanInvalidator) *GuestHandler {
	return &GuestHandler{Events: events, Guests: guests, Planner: p}
}

type linkReq struct {
	Ref     string `json:"ref"`
	GuestID uint64 `json:"guest_id"`
	Kind    string `json:"kind"`
}

type guestReq struct {
	Ref                string    `json:"ref"`
	Name               string    `json:"name"`
	Age                int       `json:"age"`
	Side               string    `json:"side"`
	NeedsAccessibility bool      `json:"needs_accessibility"`
	Relationships      []linkReq `json:"relationships"`
}

type createGuestsReq struct {
	Guests []guestReq `json:"guests"`
}

// toBatch validates the request and normalises sides and relation kinds.
func (r createGuestsReq) toBatch() ([]repository.NewGuest, error) {
	if len(r.Guests) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "guests required")
	}
	if len(r.Guests) > maxGuestBatch {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "too many guests in one request")
	}
	refs := make(map[string]bool, len(r.Guests))
	batch := make([]repository.NewGuest, len(r.Guests))
	for i, g := range r.Guests {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "guest name required")
		}
		if g.Age < 0 || g.Age > 130 {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid age for "+name)
		}
		if g.Ref != "" {
			if refs[g.Ref] {
				return nil, echo.NewHTTPError(http.StatusBadRequest, "duplicate ref "+g.Ref)
			}
			refs[g.Ref] = true
		}
		ng := repository.NewGuest{
			Ref:                g.Ref,
			Name:               name,
			Age:                g.Age,
			Side:               seating.ParseSide(g.Side).String(),
			NeedsAccessibility: g.NeedsAccessibility,
		}
		for _, l := range g.Relationships {
			if (l.Ref == "") == (l.GuestID == 0) {
				return nil, echo.NewHTTPError(http.StatusBadRequest, "relationship needs exactly one of ref or guest_id")
			}
			kind := seating.ParseRelationKind(l.Kind)
			if kind == seating.RelationUnknown {
				return nil, echo.NewHTTPError(http.StatusBadRequest, "unknown relationship kind "+l.Kind)
			}
			ng.Links = append(ng.Links, repository.NewLink{Ref: l.Ref, GuestID: l.GuestID, Kind: kind.String()})
		}
		batch[i] = ng
	}
	return batch, nil
}

// CreateBulk adds guests and their relationships in one transaction.
func (h *GuestHandler) CreateBulk(c echo.Context) error {
	ev, err := eventFor(c, h.Events)
	if err != nil {
		return err
	}
	var req createGuestsReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	batch, err := req.toBatch()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	guests, err := h.Guests.CreateBulk(ctx, ev.ID, batch)
	if err != nil {
		return httpError(err)
	}
	h.Planner.Invalidate(ctx, ev.ID)
	return c.JSON(http.StatusCreated, echo.Map{"guests": guests})
}

// List returns the guests of an event with their relationships.
func (h *GuestHandler) List(c echo.Context) error {
	ev, err := eventFor(c, h.Events)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	guests, err := h.Guests.ListByEvent(ctx, ev.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"guests": guests})
}

// Delete removes a guest; links and preference memberships cascade.
func (h *GuestHandler) Delete(c echo.Context) error {
	ev, err := eventFor(c, h.Events)
	if err != nil {
		return err
	}
	gid, err := parseID(c, "guestId")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Guests.Delete(ctx, ev.ID, gid); err != nil {
		return httpError(err)
	}
	h.Planner.Invalidate(ctx, ev.ID)
	return c.NoContent(http.StatusNoContent)
}
