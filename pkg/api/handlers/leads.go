package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apierrors "github.com/lapublica/leadgen/pkg/api/errors"
	"github.com/lapublica/leadgen/pkg/leads"
	"github.com/lapublica/leadgen/pkg/models"
)

// LeadHandler exposes lead review and CRM pipeline endpoints.
type LeadHandler struct {
	service  *leads.Service
	validate *validator.Validate
}

// NewLeadHandler creates a new lead handler.
func NewLeadHandler(service *leads.Service, validate *validator.Validate) *LeadHandler {
	return &LeadHandler{service: service, validate: validate}
}

// Register mounts the lead routes on a group.
func (h *LeadHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/approve", h.Approve)
	g.POST("/:id/reject", h.Reject)
	g.PATCH("/:id/pipeline", h.MovePipeline)
}

// List returns leads matching the query filter, paginated.
func (h *LeadHandler) List(c echo.Context) error {
	var filter models.LeadFilter
	if err := c.Bind(&filter); err != nil {
		return apierrors.BadRequest(c, "invalid query parameters")
	}
	if err := h.validate.Struct(filter); err != nil {
		return apierrors.BadRequest(c, err.Error())
	}

	result, err := h.service.ListLeads(c.Request().Context(), filter)
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
	totalPages := int((result.Total + int64(limit) - 1) / int64(limit))

	count := int64(len(result.Leads))
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    result.Leads,
		Count:   &count,
		Pagination: &models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      result.Total,
			TotalPages: totalPages,
		},
	})
}

// Get returns one lead by id.
func (h *LeadHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid lead id")
	}

	lead, err := h.service.GetLead(c.Request().Context(), id)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{Success: true, Data: lead})
}

// Update edits a lead's contact fields during review.
func (h *LeadHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid lead id")
	}

	var req models.UpdateLeadRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apierrors.BadRequest(c, err.Error())
	}

	lead, err := h.service.UpdateLead(c.Request().Context(), id, req)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    lead,
		Message: "Lead updated",
	})
}

// Delete removes a lead.
func (h *LeadHandler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid lead id")
	}

	if err := h.service.DeleteLead(c.Request().Context(), id); err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Message: "Lead deleted",
	})
}

// Approve marks a pending lead as reviewed and accepted.
func (h *LeadHandler) Approve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid lead id")
	}

	lead, err := h.service.ApproveLead(c.Request().Context(), id)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    lead,
		Message: "Lead approved",
	})
}

// Reject marks a pending lead as reviewed and discarded.
func (h *LeadHandler) Reject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid lead id")
	}

	lead, err := h.service.RejectLead(c.Request().Context(), id)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    lead,
		Message: "Lead rejected",
	})
}

type movePipelineRequest struct {
	Status models.PipelineStatus `json:"status" validate:"required,oneof=NEW CONTACTED QUALIFIED PROPOSAL NEGOTIATION WON LOST"`
}

// MovePipeline advances a lead through the CRM stages.
func (h *LeadHandler) MovePipeline(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid lead id")
	}

	var req movePipelineRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apierrors.BadRequest(c, err.Error())
	}

	lead, err := h.service.MovePipeline(c.Request().Context(), id, req.Status)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{Success: true, Data: lead})
}
