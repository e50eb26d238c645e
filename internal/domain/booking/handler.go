package booking

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebook/carebook/internal/domain/availability"
	"github.com/carebook/carebook/internal/platform/auth"
	"github.com/carebook/carebook/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "therapist", "receptionist"))
	readGroup.GET("/bookings", h.Search)
	readGroup.GET("/bookings/:id", h.Get)

	writeGroup := api.Group("", auth.RequireRole("admin", "receptionist"))
	writeGroup.POST("/bookings", h.Create)
	writeGroup.POST("/bookings/:id/reschedule", h.Reschedule)
	writeGroup.POST("/bookings/:id/reassign", h.Reassign)
	writeGroup.POST("/bookings/:id/confirm", h.Confirm)
	writeGroup.POST("/bookings/:id/cancel", h.Cancel)
	writeGroup.POST("/bookings/:id/complete", h.Complete)
}

func (h *Handler) Create(c echo.Context) error {
	var b Booking
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &b); err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Search(c echo.Context) error {
	params := SearchParams{}
	if raw := c.QueryParam("therapist_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid therapist_id")
		}
		params.TherapistID = id
	}
	if raw := c.QueryParam("location_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid location_id")
		}
		params.LocationID = id
	}
	params.Status = c.QueryParam("status")
	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "from must be RFC 3339")
		}
		params.From = t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "to must be RFC 3339")
		}
		params.To = t
	}

	page := pagination.FromContext(c)
	params.Limit = page.Limit
	params.Offset = page.Offset

	items, total, err := h.svc.Search(c.Request().Context(), params)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, page.Limit, page.Offset))
}

type rescheduleRequest struct {
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.StartTime.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "start_time is required")
	}
	b, err := h.svc.Reschedule(c.Request().Context(), id, req.StartTime, req.DurationMinutes)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, b)
}

type reassignRequest struct {
	TherapistID uuid.UUID `json:"therapist_id"`
}

func (h *Handler) Reassign(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req reassignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.TherapistID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "therapist_id is required")
	}
	b, err := h.svc.Reassign(c.Request().Context(), id, req.TherapistID)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Confirm(c echo.Context) error  { return h.statusChange(c, h.svc.Confirm) }
func (h *Handler) Cancel(c echo.Context) error   { return h.statusChange(c, h.svc.Cancel) }
func (h *Handler) Complete(c echo.Context) error { return h.statusChange(c, h.svc.Complete) }

func (h *Handler) statusChange(c echo.Context, fn func(ctx context.Context, id uuid.UUID) (*Booking, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := fn(c.Request().Context(), id)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func bookingError(err error) error {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		body := map[string]interface{}{
			"message":      conflict.Error(),
			"therapist_id": conflict.TherapistID,
			"start_time":   conflict.StartTime,
		}
		if conflict.ConflictingBookingID != uuid.Nil {
			body["conflicting_booking_id"] = conflict.ConflictingBookingID
		}
		return echo.NewHTTPError(http.StatusConflict, body)
	case errors.Is(err, ErrNotFound), errors.Is(err, availability.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrTerminalState):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, availability.ErrInvalidDuration):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
