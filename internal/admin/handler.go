package admin

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/pagination"
)

// Handler handles the admin HTTP surface
type Handler struct {
	service *Service
}

// NewHandler creates a new admin handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Dashboard returns the operator landing-page aggregates
// GET /api/v1/admin/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	dashboard, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, dashboard)
}

// Metrics returns platform outcome aggregates
// GET /api/v1/admin/metrics?days=7
func (h *Handler) Metrics(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	metrics, err := h.service.Metrics(c.Request.Context(), days)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, metrics)
}

// EscalatedBookings lists the manual-intervention queue
// GET /api/v1/admin/bookings/escalated?page=1&limit=20
func (h *Handler) EscalatedBookings(c *gin.Context) {
	params := pagination.Parse(c, pagination.AdminMaxLimit)

	bookings, total, err := h.service.EscalatedBookings(c.Request.Context(), params.Limit, params.Offset())
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponseWithMeta(c, bookings, pagination.BuildMeta(params, total))
}

// ActiveBookings lists bookings still in flight
// GET /api/v1/admin/bookings/active?page=1&limit=20
func (h *Handler) ActiveBookings(c *gin.Context) {
	params := pagination.Parse(c, pagination.AdminMaxLimit)

	bookings, total, err := h.service.ActiveBookings(c.Request.Context(), params.Limit, params.Offset())
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponseWithMeta(c, bookings, pagination.BuildMeta(params, total))
}
