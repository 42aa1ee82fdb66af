package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apierrors "github.com/lapublica/leadgen/pkg/api/errors"
	"github.com/lapublica/leadgen/pkg/aiprovider"
	"github.com/lapublica/leadgen/pkg/models"
)

// ProviderHandler exposes AI provider management endpoints.
type ProviderHandler struct {
	service  *aiprovider.Service
	validate *validator.Validate
}

// NewProviderHandler creates a new provider handler.
func NewProviderHandler(service *aiprovider.Service, validate *validator.Validate) *ProviderHandler {
	return &ProviderHandler{service: service, validate: validate}
}

// Register mounts the provider routes on a group.
func (h *ProviderHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/test", h.Test)
	g.PATCH("/:id/toggle", h.Toggle)
}

// List returns all configured providers.
func (h *ProviderHandler) List(c echo.Context) error {
	providers, err := h.service.ListProviders(c.Request().Context())
	if err != nil {
		return apierrors.Respond(c, err)
	}

	count := int64(len(providers))
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    providers,
		Count:   &count,
	})
}

// Get returns one provider by id.
func (h *ProviderHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid provider id")
	}

	provider, err := h.service.GetProvider(c.Request().Context(), id)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{Success: true, Data: provider})
}

// Create registers a new provider.
func (h *ProviderHandler) Create(c echo.Context) error {
	var req models.CreateProviderRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return apierrors.BadRequest(c, err.Error())
	}

	provider, err := h.service.CreateProvider(c.Request().Context(), req)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, models.Envelope{
		Success: true,
		Data:    provider,
		Message: "Provider created",
	})
}

// Update applies a partial update. Provider type cannot change.
func (h *ProviderHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid provider id")
	}

	var req models.UpdateProviderRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "invalid request body")
	}

	provider, err := h.service.UpdateProvider(c.Request().Context(), id, req)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data:    provider,
		Message: "Provider updated",
	})
}

// Delete removes a provider not referenced by any lead source.
func (h *ProviderHandler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid provider id")
	}

	if err := h.service.DeleteProvider(c.Request().Context(), id); err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Message: "Provider deleted",
	})
}

// Test runs a live connectivity check. Failures are reported in the
// result payload, not as an HTTP error.
func (h *ProviderHandler) Test(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid provider id")
	}

	result, err := h.service.TestProvider(c.Request().Context(), id)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{Success: true, Data: result})
}

// Toggle flips the provider's active flag.
func (h *ProviderHandler) Toggle(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.BadRequest(c, "invalid provider id")
	}

	provider, err := h.service.ToggleProvider(c.Request().Context(), id)
	if err != nil {
		return apierrors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, models.Envelope{Success: true, Data: provider})
}
