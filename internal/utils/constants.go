package utils

// Context keys set by middleware
const (
	ContextKeyRequestID = "request_id"
)

// Header names
const (
	HeaderRequestID = "X-Request-ID"
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error codes
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeConfigurationError = "CONFIGURATION_ERROR"
	CodeGatewayError       = "GATEWAY_ERROR"
	CodeGatewayAuthError   = "GATEWAY_AUTHORIZATION_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
)

// Error Messages
const (
	ErrInternalServer   = "internal server error"
	ErrValidationFailed = "validation failed"
	ErrInvalidBody      = "invalid request body"
	ErrPaymentNotFound  = "payment not found"
	ErrGatewayFailure   = "mobile money gateway request failed"
	ErrGatewayAuth      = "mobile money gateway refused authorization"
)
