package collections

import "fmt"

type Currency int

const (
	Cedi Currency = iota + 1
	Naira
)

func (c Currency) String() string {
	switch c {
	case Cedi:
		return "GHS"
	case Naira:
		return "NGN"
	default:
		return fmt.Sprintf("Currency(%d)", int(c))
	}
}

func ParseCurrency(code string) (Currency, error) {
	switch code {
	case "GHS":
		return Cedi, nil
	case "NGN":
		return Naira, nil
	default:
		return 0, &UnknownCurrencyError{Code: code}
	}
}

func (c Currency) MarshalText() ([]byte, error) {
	if c != Cedi && c != Naira {
		return nil, &UnknownCurrencyError{Code: c.String()}
	}
	return []byte(c.String()), nil
}

func (c *Currency) UnmarshalText(text []byte) error {
	parsed, err := ParseCurrency(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// PaymentStatus is the lifecycle state of a request to pay.
type PaymentStatus int

const (
	Resolved PaymentStatus = iota + 1
	Rejected
	Pending
)

func (s PaymentStatus) String() string {
	switch s {
	case Resolved:
		return "SUCCESSFUL"
	case Rejected:
		return "FAILED"
	case Pending:
		return "PENDING"
	default:
		return fmt.Sprintf("PaymentStatus(%d)", int(s))
	}
}

func ParsePaymentStatus(status string) (PaymentStatus, error) {
	switch status {
	case "SUCCESSFUL":
		return Resolved, nil
	case "FAILED":
		return Rejected, nil
	case "PENDING":
		return Pending, nil
	default:
		return 0, &UnknownStatusError{Status: status}
	}
}

// IsFinal reports whether the gateway will no longer change the status.
func (s PaymentStatus) IsFinal() bool {
	return s == Resolved || s == Rejected
}

func (s PaymentStatus) MarshalText() ([]byte, error) {
	if s != Resolved && s != Rejected && s != Pending {
		return nil, &UnknownStatusError{Status: s.String()}
	}
	return []byte(s.String()), nil
}

func (s *PaymentStatus) UnmarshalText(text []byte) error {
	parsed, err := ParsePaymentStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
