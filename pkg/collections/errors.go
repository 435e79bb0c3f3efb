package collections

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrMissingCallbackURL = errors.New("custom callback host requires an explicit callback URL per request")
	ErrMissingCredentials = errors.New("username, password and subscription key are required")
	ErrMissingAccessToken = errors.New("token response carried no access token")
	ErrInvalidPayer       = errors.New("payer msisdn is empty")
)

// ConfigurationError is a local misconfiguration detected before any request
// is sent.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("collections: configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// AuthorizationError is returned when the token endpoint refuses the
// credentials or answers with something unusable.
type AuthorizationError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthorizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("collections: authorizing collections failed - http status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("collections: authorizing collections failed - http status %d: %s", e.StatusCode, e.Body)
}

func (e *AuthorizationError) Unwrap() error {
	return e.Err
}

// OperationError is any unexpected status from a payment, status or balance
// call. A 401 that survived re-authorization unwraps to ErrUnauthorized.
type OperationError struct {
	Operation   string
	StatusCode  int
	ReferenceID string
	Body        string
}

func (e *OperationError) Error() string {
	if e.ReferenceID != "" {
		return fmt.Sprintf("collections: %s failed - http status %d - reference id %s: %s", e.Operation, e.StatusCode, e.ReferenceID, e.Body)
	}
	return fmt.Sprintf("collections: %s failed - http status %d: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *OperationError) Unwrap() error {
	if e.StatusCode == 401 {
		return ErrUnauthorized
	}
	return nil
}

type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("collections: unknown payment status %q", e.Status)
}

type UnknownCurrencyError struct {
	Code string
}

func (e *UnknownCurrencyError) Error() string {
	return fmt.Sprintf("collections: unknown currency %q", e.Code)
}
