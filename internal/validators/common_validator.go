package validators

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"momo-gateway/pkg/collections"
	"momo-gateway/pkg/msisdn"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("country_code", validateCountryCode)
	validate.RegisterValidation("currency_code", validateCurrencyCode)
	validate.RegisterValidation("amount", validateAmount)
	validate.RegisterValidation("reference_id", validateReferenceID)
	validate.RegisterValidation("payment_status", validatePaymentStatus)
}

var (
	ErrInvalidAmount      = errors.New("amount must be a positive decimal")
	ErrInvalidReferenceID = errors.New("invalid reference id")
)

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Details flattens the errors into a field to message map for API responses.
func (v ValidationErrors) Details() map[string]string {
	details := make(map[string]string, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

// ValidateStruct validates a struct and returns detailed errors
func ValidateStruct(s interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Field: "-", Tag: "invalid", Message: err.Error()}}
	}

	for _, err := range fieldErrors {
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Namespace(),
			Tag:     err.Tag(),
			Value:   fmt.Sprintf("%v", err.Value()),
			Message: getErrorMessage(err),
		})
	}

	return validationErrors
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", err.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", err.Field(), err.Param())
	case "url", "http_url":
		return "Invalid URL"
	case "hostname_rfc1123":
		return "Invalid host name"
	case "country_code":
		return "Unsupported country code"
	case "currency_code":
		return "Unsupported currency"
	case "amount":
		return "Amount must be a positive decimal"
	case "reference_id":
		return "Invalid reference id"
	case "payment_status":
		return "Unknown payment status"
	default:
		return fmt.Sprintf("Validation failed for %s", err.Field())
	}
}

func validateCountryCode(fl validator.FieldLevel) bool {
	_, ok := msisdn.DefaultRegistry().Lookup(fl.Field().String())
	return ok
}

func validateCurrencyCode(fl validator.FieldLevel) bool {
	_, err := collections.ParseCurrency(fl.Field().String())
	return err == nil
}

func validateAmount(fl validator.FieldLevel) bool {
	return IsValidAmount(fl.Field().String())
}

func validateReferenceID(fl validator.FieldLevel) bool {
	return IsValidReferenceID(fl.Field().String())
}

func validatePaymentStatus(fl validator.FieldLevel) bool {
	_, err := collections.ParsePaymentStatus(fl.Field().String())
	return err == nil
}

// ParseAmount accepts a positive decimal string such as "25" or "12.50".
func ParseAmount(value string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

func IsValidAmount(value string) bool {
	_, err := ParseAmount(value)
	return err == nil
}

// ParseReferenceID parses the uuid the gateway uses as X-Reference-Id.
func ParseReferenceID(value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, ErrInvalidReferenceID
	}
	return id, nil
}

func IsValidReferenceID(value string) bool {
	_, err := ParseReferenceID(value)
	return err == nil
}
