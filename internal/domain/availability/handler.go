package availability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebook/carebook/internal/platform/auth"
	"github.com/carebook/carebook/internal/platform/localtime"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/availability", auth.RequireRole("admin", "therapist", "receptionist"))
	g.GET("/slots", h.ListSlots)
	g.GET("/check", h.Check)
	g.GET("/day", h.Day)
}

// ListSlots returns the bookable slot starts for a location and date.
// therapist_id and duration_minutes are optional filters.
func (h *Handler) ListSlots(c echo.Context) error {
	locationID, err := uuid.Parse(c.QueryParam("location_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid location_id")
	}
	date := c.QueryParam("date")
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}

	therapistID := uuid.Nil
	if raw := c.QueryParam("therapist_id"); raw != "" {
		therapistID, err = uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid therapist_id")
		}
	}
	duration := 0
	if raw := c.QueryParam("duration_minutes"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid duration_minutes")
		}
	}

	slots, err := h.svc.GenerateSlots(c.Request().Context(), locationID, date, therapistID, duration)
	if err != nil {
		return availabilityError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":  date,
		"slots": slots,
		"total": len(slots),
	})
}

// Check validates a single instant for a therapist. start must be RFC 3339.
func (h *Handler) Check(c echo.Context) error {
	therapistID, err := uuid.Parse(c.QueryParam("therapist_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid therapist_id")
	}
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start must be RFC 3339")
	}
	duration := 0
	if raw := c.QueryParam("duration_minutes"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid duration_minutes")
		}
	}

	result, err := h.svc.CheckAvailability(c.Request().Context(), therapistID, start, duration)
	if err != nil {
		return availabilityError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// Day reports whether the therapist has any open slot on the date.
func (h *Handler) Day(c echo.Context) error {
	therapistID, err := uuid.Parse(c.QueryParam("therapist_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid therapist_id")
	}
	locationID, err := uuid.Parse(c.QueryParam("location_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid location_id")
	}
	date := c.QueryParam("date")
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}

	open, err := h.svc.HasAvailability(c.Request().Context(), therapistID, locationID, date)
	if err != nil {
		return availabilityError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":             date,
		"therapist_id":     therapistID,
		"has_availability": open,
	})
}

func availabilityError(err error) error {
	var invalid *localtime.ErrInvalidTimeInput
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidDuration), errors.As(err, &invalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "availability lookup failed")
	}
}
