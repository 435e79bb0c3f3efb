// Package msisdn turns user-entered mobile numbers into the gateway's
// canonical subscriber number: the country prefix followed by the
// subscriber digits, with no leading '+' or zeros.
package msisdn

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`[^0-9]+`)

// Msisdn is a validated subscriber number. The zero value is empty and is
// never returned by Normalize.
type Msisdn struct {
	value string
}

func (m Msisdn) String() string {
	return m.value
}

func (m Msisdn) IsZero() bool {
	return m.value == ""
}

func (m Msisdn) MarshalText() ([]byte, error) {
	return []byte(m.value), nil
}

// Normalize converts raw into a Msisdn. Numbers that already carry the full
// prefix of one of the alternates are accepted verbatim, first match wins;
// everything else is read as a local number of defaultCountry.
func Normalize(raw string, defaultCountry Country, alternates ...Country) (Msisdn, error) {
	digits := nonDigits.ReplaceAllString(raw, "")
	digits = strings.TrimLeft(digits, "0")

	for _, c := range alternates {
		if strings.HasPrefix(digits, c.Prefix) && len(digits) == c.Length() {
			return Msisdn{value: digits}, nil
		}
	}

	switch {
	case len(digits) < defaultCountry.NonPrefixDigits:
		return Msisdn{}, &ValidationError{Input: raw, Country: defaultCountry, Err: ErrTooFewDigits}
	case len(digits) > defaultCountry.NonPrefixDigits:
		for i := 0; i < len(defaultCountry.Prefix); i++ {
			digits = stripLeadingByte(digits, defaultCountry.Prefix[i])
		}
		digits = strings.TrimLeft(digits, "0")

		if len(digits) != defaultCountry.NonPrefixDigits {
			return Msisdn{}, &ValidationError{Input: raw, Country: defaultCountry, Err: ErrIncorrectDigitCount}
		}
	}

	if len(digits) == 0 {
		// only reachable with a synthetic country that has no subscriber digits
		return Msisdn{}, &ValidationError{Input: raw, Country: defaultCountry, Err: ErrTooFewDigits}
	}

	return Msisdn{value: defaultCountry.Prefix + digits}, nil
}

func stripLeadingByte(s string, b byte) string {
	if len(s) > 0 && s[0] == b {
		return s[1:]
	}
	return s
}

// Mask hides all but the last four digits, for logs.
func (m Msisdn) Mask() string {
	if len(m.value) < 4 {
		return m.value
	}
	return strings.Repeat("*", len(m.value)-4) + m.value[len(m.value)-4:]
}
