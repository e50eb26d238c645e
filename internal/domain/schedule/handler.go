package schedule

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	readGroup.GET("/locations/:id/hours", h.ListBusinessHours)
	readGroup.GET("/locations/:id/overrides", h.ListOverrides)
	readGroup.GET("/overrides/:id", h.GetOverride)

	writeGroup := api.Group("", auth.RequireRole("admin", "receptionist"))
	writeGroup.POST("/locations/:id/hours", h.AddBusinessHour)
	writeGroup.POST("/hours/:id/deactivate", h.DeactivateBusinessHour)
	writeGroup.POST("/hours/:id/activate", h.ActivateBusinessHour)
	writeGroup.POST("/locations/:id/overrides", h.CreateOverride)
	writeGroup.POST("/overrides/:id/deactivate", h.DeactivateOverride)
	writeGroup.POST("/overrides/:id/slots", h.AddOverrideSlot)
	writeGroup.POST("/overrides/:id/slots/:slotId/deactivate", h.DeactivateOverrideSlot)
}

// -- Business hour handlers --

func (h *Handler) AddBusinessHour(c echo.Context) error {
	locationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var bh BusinessHour
	if err := c.Bind(&bh); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bh.LocationID = locationID
	if err := h.svc.AddBusinessHour(c.Request().Context(), &bh); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, bh)
}

func (h *Handler) ListBusinessHours(c echo.Context) error {
	locationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListBusinessHours(c.Request().Context(), locationID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeactivateBusinessHour(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	bh, err := h.svc.DeactivateBusinessHour(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "business hour not found")
	}
	return c.JSON(http.StatusOK, bh)
}

func (h *Handler) ActivateBusinessHour(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	bh, err := h.svc.ActivateBusinessHour(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, bh)
}

// -- Override handlers --

func (h *Handler) CreateOverride(c echo.Context) error {
	locationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var o DateOverride
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o.LocationID = locationID
	if err := h.svc.CreateOverride(c.Request().Context(), &o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetOverride(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.GetOverride(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "override not found")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListOverrides(c echo.Context) error {
	locationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListOverrides(c.Request().Context(), locationID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeactivateOverride(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.DeactivateOverride(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "override not found")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) AddOverrideSlot(c echo.Context) error {
	overrideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var sl OverrideSlot
	if err := c.Bind(&sl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sl.OverrideID = overrideID
	if err := h.svc.AddOverrideSlot(c.Request().Context(), &sl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sl)
}

func (h *Handler) DeactivateOverrideSlot(c echo.Context) error {
	overrideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	slotID, err := uuid.Parse(c.Param("slotId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid slot id")
	}
	if err := h.svc.DeactivateOverrideSlot(c.Request().Context(), overrideID, slotID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
