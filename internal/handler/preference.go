package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seating-planner/internal/model"
	"github.com/iliyamo/seating-planner/internal/repository"
	"github.com/iliyamo/seating-planner/internal/seating"
)

// PreferenceHandler manages seating preferences.
type PreferenceHandler struct {
	Events      EventFinder
	Preferences *repository.PreferenceRepo
	Planner     PlanInvalidator
}

func NewPreferenceHandler(events EventFinder, prefs *repository.PreferenceRepo, p PlanInvalidator) *PreferenceHandler {
	return &PreferenceHandler{Events: events, Preferences: prefs, Planner: p}
}

type preferenceReq struct {
	Kind     string   `json:"kind"`
	Hard     bool     `json:"hard"`
	Severity *int     `json:"severity"`
	GuestIDs []uint64 `json:"guest_ids"`
}

// validate checks the kind and the guest count it needs and fills the
// default severity: 100 for hard, 50 for soft.
func (r preferenceReq) validate(eventID uint64) (*model.Preference, error) {
	kind := seating.ParsePreferenceKind(r.Kind)
	if kind == seating.KindUnknown {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unknown preference kind "+r.Kind)
	}
	need := 1
	if kind == seating.KindMustSitTogether || kind == seating.KindMustNotSitTogether {
		need = 2
	}
	if len(r.GuestIDs) < need {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "not enough guests for "+kind.String())
	}
	seen := make(map[uint64]bool, len(r.GuestIDs))
	for _, id := range r.GuestIDs {
		if seen[id] {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "duplicate guest id")
		}
		seen[id] = true
	}
	p := &model.Preference{EventID: eventID, Kind: kind.String(), Hard: r.Hard, GuestIDs: r.GuestIDs}
	switch {
	case r.Severity != nil:
		if *r.Severity < 0 || *r.Severity > 100 {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "severity must be within 0..100")
		}
		p.Severity = *r.Severity
	case r.Hard:
		p.Severity = 100
	default:
		p.Severity = 50
	}
	return p, nil
}

// Create stores a preference over guests of the event.
func (h *PreferenceHandler) Create(c echo.Context) error {
	ev, err := eventFor(c, h.Events)
	if err != nil {
		return err
	}
	var req preferenceReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	p, err := req.validate(ev.ID)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Preferences.Create(ctx, p); err != nil {
		return httpError(err)
	}
	h.Planner.Invalidate(ctx, ev.ID)
	return c.JSON(http.StatusCreated, p)
}

// List returns the preferences of an event.
func (h *PreferenceHandler) List(c echo.Context) error {
	ev, err := eventFor(c, h.Events)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	prefs, err := h.Preferences.ListByEvent(ctx, ev.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"preferences": prefs})
}

// Delete removes a preference.
func (h *PreferenceHandler) Delete(c echo.Context) error {
	ev, err := eventFor(c, h.Events)
	if err != nil {
		return err
	}
	pid, err := parseID(c, "prefId")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Preferences.Delete(ctx, ev.ID, pid); err != nil {
		return httpError(err)
	}
	h.Planner.Invalidate(ctx, ev.ID)
	return c.NoContent(http.StatusNoContent)
}
