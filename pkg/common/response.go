package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Response is the standard API envelope: {success, data?, error?, meta?}.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo carries error details in the envelope.
type ErrorInfo struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
}

// Meta carries pagination metadata.
type Meta struct {
	Page       int   `json:"page,omitempty"`
	Limit      int   `json:"limit,omitempty"`
	Total      int64 `json:"total,omitempty"`
	TotalPages int   `json:"total_pages,omitempty"`
}

// SuccessResponse sends a 200 with data.
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// SuccessResponseWithMeta sends a 200 with data and pagination metadata.
func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta *Meta) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Meta: meta})
}

// CreatedResponse sends a 201 with data.
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// ErrorResponse sends an ad-hoc error with the given status.
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Error:   &ErrorInfo{Code: statusCode, Message: message},
	})
}

// BindingErrorResponse sends a 400 for a failed request bind. Validator
// errors are flattened to per-field messages; anything else (malformed JSON)
// gets the fallback message.
func BindingErrorResponse(c *gin.Context, err error, fallback string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
		ErrorResponse(c, http.StatusBadRequest, strings.Join(details, "; "))
		return
	}
	ErrorResponse(c, http.StatusBadRequest, fallback)
}

// HandleError converts any error to the envelope. AppErrors keep their status
// and code; everything else becomes an opaque 500 so internals don't leak.
func HandleError(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code, Response{
			Success: false,
			Error: &ErrorInfo{
				Code:      appErr.Code,
				ErrorCode: appErr.ErrorCode,
				Message:   appErr.Message,
			},
		})
		return
	}
	ErrorResponse(c, http.StatusInternalServerError, "internal server error")
}
