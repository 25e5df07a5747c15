// Package handler holds the echo HTTP handlers. Handlers bind and validate
// input, call a repository or the planner service and map their sentinel
// errors to status codes.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seating-planner/internal/middleware"
	"github.com/iliyamo/seating-planner/internal/model"
	"github.com/iliyamo/seating-planner/internal/repository"
	"github.com/iliyamo/seating-planner/internal/seating"
)

const dbTimeout = 5 * time.Second

// EventFinder resolves the event named by the :id path parameter.
type EventFinder interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	GetOwned(ctx context.Context, id, ownerID uint64) (*model.Event, error)
}

func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func currentUser(c echo.Context) (uint64, error) {
	uid, ok := middleware.UserID(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return uid, nil
}

// eventFor loads the :id event. Admins see every event, planners only
// their own.
func eventFor(c echo.Context, events EventFinder) (*model.Event, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	return eventForID(c, events, id)
}

func eventForID(c echo.Context, events EventFinder, id uint64) (*model.Event, error) {
	uid, err := currentUser(c)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	var ev *model.Event
	if middleware.Role(c) == model.RoleAdmin {
		ev, err = events.GetByID(ctx, id)
	} else {
		ev, err = events.GetOwned(ctx, id, uid)
	}
	if err != nil {
		return nil, httpError(err)
	}
	return ev, nil
}

// httpError maps repository and optimizer errors to HTTP errors. Errors
// that are already *echo.HTTPError pass through.
func httpError(err error) error {
	var he *echo.HTTPError
	var ce *seating.InsufficientCapacityError
	switch {
	case errors.As(err, &he):
		return he
	case errors.As(err, &ce):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, echo.Map{
			"error":    "insufficient capacity",
			"guests":   ce.Guests,
			"capacity": ce.Capacity,
		})
	case errors.Is(err, repository.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, repository.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "conflict")
	case errors.Is(err, repository.ErrUnknownGuest):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "timeout")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}

// ErrorHandler renders every error as {"error": ...}. Internal causes are
// not exposed.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if !ok {
		he = httpError(err).(*echo.HTTPError)
	}
	body := he.Message
	switch m := he.Message.(type) {
	case string:
		body = echo.Map{"error": m}
	case error:
		body = echo.Map{"error": m.Error()}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, body)
}
