package credits

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/middleware"
)

// Handler handles HTTP requests for credits
type Handler struct {
	service *Service
}

// NewHandler creates a new credits handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List returns the caller's credits with the redeemable total
// GET /api/v1/bookings/credits
func (h *Handler) List(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, summary)
}
