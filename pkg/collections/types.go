package collections

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type Payer struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

type requestToPayBody struct {
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	ExternalID   string `json:"externalId"`
	Payer        Payer  `json:"payer"`
	PayerMessage string `json:"payerMessage"`
	PayeeNote    string `json:"payeeNote"`
}

type paymentResponse struct {
	Amount                 string          `json:"amount"`
	Currency               string          `json:"currency"`
	FinancialTransactionID string          `json:"financialTransactionId"`
	ExternalID             string          `json:"externalId"`
	Payer                  Payer           `json:"payer"`
	Status                 string          `json:"status"`
	Reason                 json.RawMessage `json:"reason,omitempty"`
}

// Payment is the gateway's view of a request to pay.
type Payment struct {
	Amount                 string
	Currency               string
	FinancialTransactionID string
	ExternalID             string
	Payer                  Payer
	Status                 PaymentStatus
	Reason                 string
}

// Balance is a snapshot of the collections account; it is never cached.
type Balance struct {
	AvailableBalance string `json:"availableBalance"`
	Currency         string `json:"currency"`
}

func (b Balance) Amount() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(b.AvailableBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("collections: invalid balance amount %q: %w", b.AvailableBalance, err)
	}
	return amount, nil
}

// ReasonText accepts both the plain string and the {code, message} object
// forms the gateway uses for failure reasons.
func ReasonText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(strings.Join([]string{obj.Code, obj.Message}, " "))
	}

	return string(raw)
}
