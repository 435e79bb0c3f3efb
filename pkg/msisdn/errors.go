package msisdn

import (
	"errors"
	"fmt"
)

var (
	ErrTooFewDigits        = errors.New("too few digits")
	ErrIncorrectDigitCount = errors.New("incorrect digit count")
)

// ValidationError reports a mobile number that cannot be normalized for a country.
type ValidationError struct {
	Input   string
	Country Country
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mobile number %q has %s for %s (prefix %s, %d non prefix digits)",
		e.Input, e.Err, e.Country.Code, e.Country.Prefix, e.Country.NonPrefixDigits)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

type UnknownCountryError struct {
	Code string
}

func (e *UnknownCountryError) Error() string {
	return fmt.Sprintf("unknown country code %q", e.Code)
}
