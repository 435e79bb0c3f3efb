package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"momo-gateway/pkg/collections"
)

// Payment is the local record of a request to pay. ReferenceID doubles as
// the gateway's externalId.
type Payment struct {
	ReferenceID            string                    `json:"reference_id"`
	ExternalID             string                    `json:"external_id"`
	Amount                 decimal.Decimal           `json:"amount"`
	Currency               collections.Currency      `json:"currency"`
	Msisdn                 string                    `json:"msisdn"`
	Status                 collections.PaymentStatus `json:"status"`
	Reason                 string                    `json:"reason,omitempty"`
	FinancialTransactionID string                    `json:"financial_transaction_id,omitempty"`
	CallbackURL            string                    `json:"callback_url,omitempty"`
	CreatedAt              time.Time                 `json:"created_at"`
	UpdatedAt              time.Time                 `json:"updated_at"`
}

type PaymentStatusUpdate struct {
	Status                 collections.PaymentStatus
	Reason                 string
	FinancialTransactionID string
}

type PaymentRequest struct {
	Amount       string `json:"amount" validate:"required,amount"`
	Currency     string `json:"currency" validate:"required,currency_code"`
	MobileNumber string `json:"mobile_number" validate:"required"`
	CallbackURL  string `json:"callback_url" validate:"omitempty,http_url"`
}

type PaymentResponse struct {
	ReferenceID string    `json:"reference_id"`
	Status      string    `json:"status"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Msisdn      string    `json:"msisdn"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewPaymentResponse masks the payer number.
func NewPaymentResponse(p *Payment) *PaymentResponse {
	return &PaymentResponse{
		ReferenceID: p.ReferenceID,
		Status:      p.Status.String(),
		Amount:      p.Amount.String(),
		Currency:    p.Currency.String(),
		Msisdn:      maskNumber(p.Msisdn),
		Reason:      p.Reason,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func maskNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	masked := []byte(number)
	for i := 0; i < len(masked)-4; i++ {
		masked[i] = '*'
	}
	return string(masked)
}

// Callback is the body the gateway PUTs to X-Callback-Url once a request to
// pay settles.
type Callback struct {
	ExternalID             string            `json:"externalId" validate:"required"`
	Amount                 string            `json:"amount"`
	Currency               string            `json:"currency"`
	FinancialTransactionID string            `json:"financialTransactionId"`
	Payer                  collections.Payer `json:"payer"`
	Status                 string            `json:"status" validate:"required,payment_status"`
	Reason                 json.RawMessage   `json:"reason,omitempty"`
}

// ReasonText flattens the string or {code, message} reason the gateway sends.
func (c *Callback) ReasonText() string {
	return collections.ReasonText(c.Reason)
}

type BalanceResponse struct {
	AvailableBalance string `json:"available_balance"`
	Currency         string `json:"currency"`
}

type ReconcileSummary struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}
