package bookings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/middleware"
	"github.com/safarides/safar-backend/pkg/pagination"
)

// Handler handles HTTP requests for bookings
type Handler struct {
	service *Service
}

// NewHandler creates a new booking handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create creates a booking
// POST /api/v1/bookings
func (h *Handler) Create(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindingErrorResponse(c, err, "invalid request body")
		return
	}

	phone, _ := middleware.GetUserPhone(c)
	booking, err := h.service.Create(c.Request.Context(), userID, phone, &req)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.CreatedResponse(c, booking)
}

// List returns the caller's bookings
// GET /api/v1/bookings
func (h *Handler) List(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	params := pagination.Parse(c, pagination.UserMaxLimit)
	bookings, total, err := h.service.List(c.Request.Context(), userID, params.Limit, params.Offset())
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponseWithMeta(c, bookings, pagination.BuildMeta(params, total))
}

// Get returns a booking with its audit trail
// GET /api/v1/bookings/:id
func (h *Handler) Get(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid booking id")
		return
	}

	detail, err := h.service.Get(c.Request.Context(), bookingID, userID, middleware.IsAdmin(c))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, detail)
}

// Cancel cancels a booking
// POST /api/v1/bookings/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid booking id")
		return
	}

	var req CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	booking, err := h.service.Cancel(c.Request.Context(), bookingID, userID, &req)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, booking)
}

// Start marks the trip as underway
// POST /api/v1/bookings/:id/start
func (h *Handler) Start(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := h.service.Start(c.Request.Context(), bookingID, userID, middleware.IsAdmin(c))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, booking)
}

// Complete finishes the trip
// POST /api/v1/bookings/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := h.service.Complete(c.Request.Context(), bookingID, userID, middleware.IsAdmin(c))
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, booking)
}

// ManualConfirm assigns a provider by operator decision
// POST /api/v1/admin/bookings/:id/confirm
func (h *Handler) ManualConfirm(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid booking id")
		return
	}

	var req ManualConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	booking, err := h.service.ManualConfirm(c.Request.Context(), bookingID, &req)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, booking)
}
