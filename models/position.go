package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// Position is a round-trip (or in-progress) directional trade in one ticker.
// Side is the direction of the opening leg: a Buy-opened position is long, a
// Sell-opened one is short. Operations holds every leg in arrival order;
// the weighted prices are recomputed from that history on every Apply.
type Position struct {
	ID           uuid.UUID       `json:"id"`
	Ticker       string          `json:"ticker"`
	Side         Side            `json:"side"`
	Currency     string          `json:"currency"`
	OpenPrice    decimal.Decimal `json:"open_price"`
	ClosingPrice decimal.Decimal `json:"closing_price"`
	Result       decimal.Decimal `json:"result"`
	Fee          decimal.Decimal `json:"fee"`
	Closed       bool            `json:"closed"`
	Note         string          `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Operations   []Operation     `json:"operations,omitempty"`
}

// NewPosition creates an open position for the first operation of a trade.
func NewPosition(ticker string, side Side, currency string) *Position {
	return &Position{
		ID:           uuid.New(),
		Ticker:       ticker,
		Side:         side,
		Currency:     currency,
		OpenPrice:    decimal.Zero,
		ClosingPrice: decimal.Zero,
		Result:       decimal.Zero,
		Fee:          decimal.Zero,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// Apply records a trade leg on the position and recomputes the weighted
// entry/exit price. payment is the signed net cash movement reported by the
// broker for the leg. When the closing side's quantity reaches the opening
// side's, the position transitions to closed; it never reopens.
func (p *Position) Apply(op Operation, payment decimal.Decimal) {
	op.PositionID = p.ID
	p.Operations = append(p.Operations, op)

	sameSideQty := p.QuantityOnSide(op.Side)
	total := decimal.NewFromInt(sameSideQty)
	fraction := op.Price.Mul(decimal.NewFromInt(op.Quantity)).Div(total)
	ratio := decimal.NewFromInt(sameSideQty - op.Quantity).Div(total)

	if op.Side == p.Side {
		p.OpenPrice = p.OpenPrice.Mul(ratio).Add(fraction).Round(2)
	} else {
		p.ClosingPrice = p.ClosingPrice.Mul(ratio).Add(fraction).Round(2)
		if p.QuantityOnSide(op.Side.Opposite()) == sameSideQty {
			p.Closed = true
		}
	}

	p.Result = p.Result.Add(payment).Round(2)
	p.UpdatedAt = time.Now()
}

// QuantityOnSide sums the quantity of every leg executed on the given side.
func (p *Position) QuantityOnSide(side Side) int64 {
	var total int64
	for i := range p.Operations {
		if p.Operations[i].Side == side {
			total += p.Operations[i].Quantity
		}
	}
	return total
}

// Size is the cumulative quantity on the opening side.
func (p *Position) Size() int64 {
	return p.QuantityOnSide(p.Side)
}

// Direction reports the position as long or short for display.
func (p *Position) Direction() string {
	if p.Side == SideBuy {
		return "long"
	}
	return "short"
}

// ResultingPercentage is the realized return relative to the opening value,
// defined only once the position is closed.
func (p *Position) ResultingPercentage() decimal.Decimal {
	if !p.Closed {
		return decimal.Zero
	}
	opened := p.OpenPrice.Mul(decimal.NewFromInt(p.Size()))
	if opened.IsZero() {
		return decimal.Zero
	}
	return p.Result.Div(opened).Mul(oneHundred).Round(2)
}

// OpenedAt returns the time of the earliest leg, or the zero time for a
// position with no recorded operations.
func (p *Position) OpenedAt() time.Time {
	var earliest time.Time
	for i := range p.Operations {
		if earliest.IsZero() || p.Operations[i].Time.Before(earliest) {
			earliest = p.Operations[i].Time
		}
	}
	return earliest
}

// ClosedAt returns the time of the latest leg.
func (p *Position) ClosedAt() time.Time {
	var latest time.Time
	for i := range p.Operations {
		if p.Operations[i].Time.After(latest) {
			latest = p.Operations[i].Time
		}
	}
	return latest
}
