package services

import "github.com/shopspring/decimal"

// MoneyValue is the broker's fixed-point amount: an integer units part and a
// fractional part in nanounits (1e-9). Brokers ship money this way to keep
// floating point out of the wire format.
type MoneyValue struct {
	Currency string `json:"currency,omitempty"`
	Units    int64  `json:"units"`
	Nano     int32  `json:"nano"`
}

// Amount collapses the fixed-point pair into a single decimal rounded to two
// places: units + nano*1e-9. The parts are added as-is, so negative units
// with a positive nano pull the value toward zero: (-1, 500_000_000) = -0.50.
func (m MoneyValue) Amount() decimal.Decimal {
	return decimal.NewFromInt(m.Units).Add(decimal.New(int64(m.Nano), -9)).Round(2)
}
