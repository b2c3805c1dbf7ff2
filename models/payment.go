package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssociatedPayment is a cash movement that does not belong to any position:
// dividends, currency conversions, service fees without a parent operation.
// Ticker is empty when the payment is not tied to an instrument.
type AssociatedPayment struct {
	ID          uuid.UUID       `json:"id"`
	Ticker      string          `json:"ticker,omitempty"`
	Description string          `json:"description"`
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	Time        time.Time       `json:"time"`
}

// NewAssociatedPayment creates a payment record with a fresh surrogate id.
func NewAssociatedPayment(ticker, description, currency string, amount decimal.Decimal, at time.Time) *AssociatedPayment {
	return &AssociatedPayment{
		ID:          uuid.New(),
		Ticker:      ticker,
		Description: description,
		Currency:    currency,
		Amount:      amount,
		Time:        at,
	}
}
