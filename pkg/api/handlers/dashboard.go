package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apierrors "github.com/lapublica/leadgen/pkg/api/errors"
	"github.com/lapublica/leadgen/pkg/dashboard"
	"github.com/lapublica/leadgen/pkg/models"
)

// DashboardHandler exposes the admin dashboard aggregations.
type DashboardHandler struct {
	service *dashboard.Service
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(service *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Register mounts the dashboard routes on a group.
func (h *DashboardHandler) Register(g *echo.Group) {
	g.GET("/stats", h.Stats)
	g.GET("/quick-stats", h.QuickStats)
}

// Stats returns the full dashboard aggregation.
func (h *DashboardHandler) Stats(c echo.Context) error {
	stats, err := h.service.GetStats(c.Request().Context())
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{Success: true, Data: stats})
}

// QuickStats returns the lightweight header widget counts.
func (h *DashboardHandler) QuickStats(c echo.Context) error {
	stats, err := h.service.GetQuickStats(c.Request().Context())
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{Success: true, Data: stats})
}
