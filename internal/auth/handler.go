package auth

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/safarides/safar-backend/pkg/common"
)

// Handler handles HTTP requests for authentication
type Handler struct {
	service     *Service
	frontendURL string
}

// NewHandler creates a new auth handler. frontendURL is where the OAuth
// callback redirects with the session token.
func NewHandler(service *Service, frontendURL string) *Handler {
	return &Handler{service: service, frontendURL: frontendURL}
}

// SendOTP texts a login code to a phone number
// POST /api/v1/auth/send-otp
func (h *Handler) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindingErrorResponse(c, err, "invalid phone number")
		return
	}

	if err := h.service.SendOTP(c.Request.Context(), req.Phone); err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"message": "code sent"})
}

// VerifyOTP exchanges a login code for a bearer token
// POST /api/v1/auth/verify-otp
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.VerifyOTP(c.Request.Context(), req.Phone, req.OTP)
	if err != nil {
		common.HandleError(c, err)
		return
	}
	common.SuccessResponse(c, resp)
}

// GoogleLogin redirects to the Google consent page
// GET /api/v1/auth/google
func (h *Handler) GoogleLogin(c *gin.Context) {
	if !h.service.GoogleConfigured() {
		common.ErrorResponse(c, http.StatusServiceUnavailable, "google login is not configured")
		return
	}

	authURL, err := h.service.GoogleLoginURL(c.Request.Context())
	if err != nil {
		common.HandleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// GoogleCallback completes the consent round-trip. Success and failure both
// redirect to the frontend, which reads ?token= or ?auth_error=.
// GET /api/v1/auth/google/callback
func (h *Handler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		h.redirectError(c, "missing code or state")
		return
	}

	resp, err := h.service.GoogleCallback(c.Request.Context(), state, code)
	if err != nil {
		h.redirectError(c, err.Error())
		return
	}

	c.Redirect(http.StatusFound, h.frontendURL+"?token="+url.QueryEscape(resp.Token))
}

func (h *Handler) redirectError(c *gin.Context, message string) {
	c.Redirect(http.StatusFound, h.frontendURL+"?auth_error="+url.QueryEscape(message))
}
