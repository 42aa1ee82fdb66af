package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apierrors "github.com/lapublica/leadgen/pkg/api/errors"
	"github.com/lapublica/leadgen/pkg/jobs"
	"github.com/lapublica/leadgen/pkg/models"
)

// JobHandler exposes scraping job endpoints.
type JobHandler struct {
	service     *jobs.Service
	validate    *validator.Validate
	cleanupDays int
}

// NewJobHandler creates a new job handler.
func NewJobHandler(service *jobs.Service, validate *validator.Validate, cleanupDays int) *JobHandler {
	return &JobHandler{service: service, validate: validate, cleanupDays: cleanupDays}
}

// Register mounts the job routes on a group. cleanupDays bounds the
// manual cleanup sweep.
func (h *JobHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/active", h.Active)
	g.GET("/stats", h.Stats)
	g.GET("/history", h.History)
	g.DELETE("/cleanup", h.Cleanup)
	g.GET("/:id", h.Get)
	g.POST("/:id/cancel", h.Cancel)
	g.POST("/:id/retry", h.Retry)
	g.DELETE("/:id", h.Delete)
}

// List returns jobs matching the query filter, paginated.
func (h *JobHandler) List(c echo.Context) error {
	var filter models.JobFilter
	if err := c.Bind(&filter); err != nil {
		return apierrors.BadRequest(c, "invalid query parameters")
	}
	if err := h.validate.Struct(filter); err != nil {
		return apierrors.BadRequest(c, err.Error())
	}

	list, total, err := h.service.GetAllJobs(c.Request().Context(), filter)
	if err != nil {
		return apierrors.Respond(c, err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))

	count := int64(len(list))
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    list,
		Count:   &count,
		Pagination: &models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// Active returns pending and running jobs.
func (h *JobHandler) Active(c echo.Context) error {
	list, err := h.service.GetActiveJobs(c.Request().Context())
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

// Stats aggregates the job table, optionally per source.
func (h *JobHandler) Stats(c echo.Context) error {
	stats, err := h.service.GetStats(c.Request().Context(), c.QueryParam("sourceId"))
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{Success: true, Data: stats})
}

// History returns terminal jobs for one source, newest first.
func (h *JobHandler) History(c echo.Context) error {
	sourceID, err := uuid.Parse(c.QueryParam("sourceId"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid or missing sourceId")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	list, err := h.service.GetJobHistory(c.Request().Context(), sourceID, limit)
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

// Cleanup removes terminal jobs older than the configured retention
// window.
func (h *JobHandler) Cleanup(c echo.Context) error {
	days := h.cleanupDays
	if raw := c.QueryParam("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return apierrors.BadRequest(c, "days must be a positive integer")
		}
		days = parsed
	}

	deleted, err := h.service.CleanupOldJobs(c.Request().Context(), days)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    map[string]int64{"deleted": deleted},
		Message: "Old jobs cleaned up",
	})
}

// Get returns one job by id.
func (h *JobHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid job id")
	}

	job, err := h.service.GetJob(c.Request().Context(), id)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{Success: true, Data: job})
}

// Cancel stops a pending or running job.
func (h *JobHandler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid job id")
	}

	job, err := h.service.CancelJob(c.Request().Context(), id)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    job,
		Message: "Job cancelled",
	})
}

// Retry creates a fresh job from a failed or cancelled one.
func (h *JobHandler) Retry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid job id")
	}

	job, err := h.service.RetryJob(c.Request().Context(), id)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, models.Envelope{
		Success: true,
		Data:    job,
		Message: "Job queued for retry",
	})
}

// Delete removes a terminal job.
func (h *JobHandler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid job id")
	}

	if err := h.service.DeleteJob(c.Request().Context(), id); err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Message: "Job deleted",
	})
}
