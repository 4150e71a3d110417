package providers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/pagination"
)

// Handler handles HTTP requests for providers
type Handler struct {
	service *Service
}

// NewHandler creates a new provider handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register creates a new provider
// POST /api/v1/providers
func (h *Handler) Register(c *gin.Context) {
	var req RegisterProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindingErrorResponse(c, err, "invalid request body")
		return
	}

	provider, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.CreatedResponse(c, provider)
}

// Get returns a provider
// GET /api/v1/providers/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid provider id")
		return
	}

	provider, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, provider)
}

// Update mutates provider profile fields
// PATCH /api/v1/providers/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid provider id")
		return
	}

	var req UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	provider, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, provider)
}

// Pause takes a provider out of rotation
// POST /api/v1/providers/:id/pause
func (h *Handler) Pause(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid provider id")
		return
	}

	var req PauseProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	provider, err := h.service.Pause(c.Request.Context(), id, &req)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, provider)
}

// Resume puts a paused provider back into rotation
// POST /api/v1/providers/:id/resume
func (h *Handler) Resume(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid provider id")
		return
	}

	provider, err := h.service.Resume(c.Request.Context(), id)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, provider)
}

// List returns providers, optionally filtered by active
// GET /api/v1/providers?active=true&page=1&limit=20
func (h *Handler) List(c *gin.Context) {
	params := pagination.Parse(c, pagination.AdminMaxLimit)

	filter := ListFilter{}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid active filter")
			return
		}
		filter.Active = &active
	}

	providers, total, err := h.service.List(c.Request.Context(), filter, params.Limit, params.Offset())
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponseWithMeta(c, providers, pagination.BuildMeta(params, total))
}

// GetMetrics returns daily metric rows for a provider
// GET /api/v1/providers/:id/metrics?days=7
func (h *Handler) GetMetrics(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid provider id")
		return
	}

	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	metrics, err := h.service.GetMetrics(c.Request.Context(), id, days)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, metrics)
}
