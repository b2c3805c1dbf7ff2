package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Operation is one executed trade leg belonging to a position. The ID is the
// broker-assigned operation id; it is the key fee follow-ups reference as
// their parent. An operation is written once and never changes, except that
// its Fee is set when a later fee operation points at it.
type Operation struct {
	ID         string          `json:"id"`
	Ticker     string          `json:"ticker"`
	PositionID uuid.UUID       `json:"position_id"`
	Side       Side            `json:"side"`
	Time       time.Time       `json:"time"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Fee        decimal.Decimal `json:"fee"`
}

type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// Opposite returns the other trading side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}
