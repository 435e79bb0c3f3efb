package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every merchant facing endpoint answers with.
type APIResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func envelope(c *gin.Context, status string) APIResponse {
	return APIResponse{
		Status:    status,
		RequestID: c.GetString(ContextKeyRequestID),
		Timestamp: time.Now().UTC(),
	}
}

func respondData(c *gin.Context, statusCode int, message string, data interface{}) {
	resp := envelope(c, StatusSuccess)
	resp.Message = message
	resp.Data = data
	c.JSON(statusCode, resp)
}

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	respondData(c, http.StatusOK, message, data)
}

// AcceptedResponse answers 202 for work the gateway finishes asynchronously.
func AcceptedResponse(c *gin.Context, message string, data interface{}) {
	respondData(c, http.StatusAccepted, message, data)
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	ErrorResponseWithDetails(c, statusCode, code, message, nil)
}

// ErrorResponseWithDetails aborts the handler chain.
func ErrorResponseWithDetails(c *gin.Context, statusCode int, code, message string, details map[string]string) {
	resp := envelope(c, StatusError)
	resp.Error = &APIError{Code: code, Message: message, Details: details}
	c.AbortWithStatusJSON(statusCode, resp)
}

func ValidationErrorResponse(c *gin.Context, details map[string]string) {
	ErrorResponseWithDetails(c, http.StatusBadRequest, CodeValidationError, ErrValidationFailed, details)
}

func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, CodeBadRequest, message)
}

func NotFoundResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, CodeNotFound, message)
}

func BadGatewayResponse(c *gin.Context, code, message string) {
	ErrorResponse(c, http.StatusBadGateway, code, message)
}

func ServiceUnavailableResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusServiceUnavailable, CodeUnavailable, message)
}

func InternalServerErrorResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusInternalServerError, CodeInternalError, ErrInternalServer)
}
