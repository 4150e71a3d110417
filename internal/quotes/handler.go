package quotes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safarides/safar-backend/pkg/cache"
	"github.com/safarides/safar-backend/pkg/common"
)

// Handler handles HTTP requests for quotes
type Handler struct {
	service *Service
}

// NewHandler creates a new quote handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetQuotes returns a priced quote sheet
// POST /api/v1/quotes
func (h *Handler) GetQuotes(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindingErrorResponse(c, err, "invalid request body")
		return
	}

	sheet, err := h.service.GetQuotes(c.Request.Context(), &req)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, sheet)
}

// GetSession returns a cached quote sheet by session id
// GET /api/v1/quotes/:sessionId
func (h *Handler) GetSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid session id")
		return
	}

	sheet, err := h.service.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			common.HandleError(c, common.NewNotFoundError("quote session expired or not found"))
			return
		}
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, sheet)
}
