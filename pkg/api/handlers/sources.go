package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apierrors "github.com/lapublica/leadgen/pkg/api/errors"
	"github.com/lapublica/leadgen/pkg/models"
	"github.com/lapublica/leadgen/pkg/sources"
)

// SourceHandler exposes lead source management endpoints.
type SourceHandler struct {
	service  *sources.Service
	validate *validator.Validate
}

// NewSourceHandler creates a new source handler.
func NewSourceHandler(service *sources.Service, validate *validator.Validate) *SourceHandler {
	return &SourceHandler{service: service, validate: validate}
}

// Register mounts the source routes on a group.
func (h *SourceHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.PATCH("/:id/toggle", h.Toggle)
	g.POST("/:id/execute", h.Execute)
	g.POST("/:id/test", h.Test)
}

// List returns all lead sources.
func (h *SourceHandler) List(c echo.Context) error {
	list, err := h.service.ListSources(c.Request().Context())
	if err != nil {
		return apierrors.Respond(c, err)
	}

	count := int64(len(list))
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    list,
		Count:   &count,
	})
}

// Get returns one source by id.
func (h *SourceHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid source id")
	}

	source, err := h.service.GetSource(c.Request().Context(), id)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{Success: true, Data: source})
}

// Create registers a new lead source.
func (h *SourceHandler) Create(c echo.Context) error {
	var req models.CreateSourceRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apierrors.BadRequest(c, err.Error())
	}

	source, err := h.service.CreateSource(c.Request().Context(), req)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, models.Envelope{
		Success: true,
		Data:    source,
		Message: "Lead source created",
	})
}

// Update applies a partial update to a source.
func (h *SourceHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid source id")
	}

	var req models.UpdateSourceRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apierrors.BadRequest(c, err.Error())
	}

	source, err := h.service.UpdateSource(c.Request().Context(), id, req)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    source,
		Message: "Lead source updated",
	})
}

// Delete removes a source with no leads or jobs.
func (h *SourceHandler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid source id")
	}

	if err := h.service.DeleteSource(c.Request().Context(), id); err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Message: "Lead source deleted",
	})
}

// Toggle flips the source's active flag and its schedule.
func (h *SourceHandler) Toggle(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid source id")
	}

	source, err := h.service.ToggleSource(c.Request().Context(), id)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{Success: true, Data: source})
}

// Execute queues a scraping job for the source and returns it
// immediately; the scrape runs in the background worker.
func (h *SourceHandler) Execute(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid source id")
	}

	var req models.ExecuteSourceRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "invalid request body")
	}

	job, err := h.service.ExecuteSource(c.Request().Context(), id, req)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusAccepted, models.Envelope{
		Success: true,
		Data:    job,
		Message: "Scraping job queued",
	})
}

// Test runs the scraper with a short timeout and small cap, returning
// sample records without persisting them.
func (h *SourceHandler) Test(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid source id")
	}

	sample, err := h.service.TestSource(c.Request().Context(), id)
	if err != nil {
		return apierrors.Respond(c, err)
	}

	count := int64(len(sample))
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    sample,
		Count:   &count,
	})
}
