package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nixxel-company-limited/posprint/apperror"
)

// Response is the envelope of every API reply
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Meta contains metadata about the response
type Meta struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
}

func newMeta(c *gin.Context) *Meta {
	requestID := c.GetString(requestIDKey)
	if requestID == "" {
		requestID = c.GetHeader(RequestIDHeader)
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &Meta{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
	}
}

// OK sends a 200 success response
func OK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    newMeta(c),
	})
}

// Fail sends an error response whose status follows the error kind
func Fail(c *gin.Context, err error, data any) {
	_ = c.Error(err)
	c.JSON(apperror.KindOf(err).HTTPStatus(), Response{
		Success: false,
		Message: err.Error(),
		Data:    data,
		Meta:    newMeta(c),
	})
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Message: message,
		Meta:    newMeta(c),
	})
}
