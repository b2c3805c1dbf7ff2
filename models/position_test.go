package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func tradeOp(id string, side Side, qty int64, price float64, at time.Time) Operation {
	return Operation{
		ID:       id,
		Ticker:   "HWM",
		Side:     side,
		Time:     at,
		Quantity: qty,
		Price:    decimal.NewFromFloat(price),
		Fee:      decimal.Zero,
	}
}

func TestPosition_Apply_WeightedOpenPrice(t *testing.T) {
	now := time.Now()
	p := NewPosition("HWM", SideBuy, "usd")

	p.Apply(tradeOp("op-1", SideBuy, 10, 100, now), decimal.NewFromInt(-1000))
	if !p.OpenPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("OpenPrice after first leg = %v, want 100", p.OpenPrice)
	}

	p.Apply(tradeOp("op-2", SideBuy, 5, 110, now.Add(time.Minute)), decimal.NewFromInt(-550))
	// (10*100 + 5*110) / 15 = 103.33
	if !p.OpenPrice.Equal(decimal.NewFromFloat(103.33)) {
		t.Errorf("OpenPrice after second leg = %v, want 103.33", p.OpenPrice)
	}
	if p.Closed {
		t.Error("position must stay open with no closing legs")
	}
	if !p.Result.Equal(decimal.NewFromInt(-1550)) {
		t.Errorf("Result = %v, want -1550", p.Result)
	}
}

func TestPosition_Apply_ClosingTransition(t *testing.T) {
	now := time.Now()
	p := NewPosition("HWM", SideBuy, "usd")

	p.Apply(tradeOp("op-1", SideBuy, 10, 100, now), decimal.NewFromInt(-1000))
	if p.Closed {
		t.Fatal("position closed before any closing leg")
	}

	p.Apply(tradeOp("op-2", SideSell, 10, 120, now.Add(time.Hour)), decimal.NewFromInt(1200))
	if !p.Closed {
		t.Error("position must close when closing quantity balances opening quantity")
	}
	if !p.ClosingPrice.Equal(decimal.NewFromInt(120)) {
		t.Errorf("ClosingPrice = %v, want 120", p.ClosingPrice)
	}
	if !p.Result.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Result = %v, want 200", p.Result)
	}
	if !p.ResultingPercentage().Equal(decimal.NewFromInt(20)) {
		t.Errorf("ResultingPercentage = %v, want 20", p.ResultingPercentage())
	}
}

func TestPosition_Apply_PartialCloseStaysOpen(t *testing.T) {
	now := time.Now()
	p := NewPosition("HWM", SideBuy, "usd")

	p.Apply(tradeOp("op-1", SideBuy, 10, 100, now), decimal.NewFromInt(-1000))
	p.Apply(tradeOp("op-2", SideSell, 4, 120, now.Add(time.Hour)), decimal.NewFromInt(480))

	if p.Closed {
		t.Error("partial close must leave the position open")
	}
	if !p.ClosingPrice.Equal(decimal.NewFromInt(120)) {
		t.Errorf("ClosingPrice = %v, want 120", p.ClosingPrice)
	}
	if got := p.QuantityOnSide(SideSell); got != 4 {
		t.Errorf("closing quantity = %d, want 4", got)
	}
	if got := p.QuantityOnSide(SideBuy); got != 10 {
		t.Errorf("opening quantity = %d, want 10", got)
	}
	if !p.ResultingPercentage().IsZero() {
		t.Error("ResultingPercentage is defined only for closed positions")
	}
}

func TestPosition_Apply_WeightedClosingPrice(t *testing.T) {
	now := time.Now()
	p := NewPosition("HWM", SideBuy, "usd")

	p.Apply(tradeOp("op-1", SideBuy, 10, 100, now), decimal.NewFromInt(-1000))
	p.Apply(tradeOp("op-2", SideSell, 4, 120, now.Add(time.Hour)), decimal.NewFromInt(480))
	p.Apply(tradeOp("op-3", SideSell, 6, 110, now.Add(2*time.Hour)), decimal.NewFromInt(660))

	// (4*120 + 6*110) / 10 = 114
	if !p.ClosingPrice.Equal(decimal.NewFromInt(114)) {
		t.Errorf("ClosingPrice = %v, want 114", p.ClosingPrice)
	}
	if !p.Closed {
		t.Error("position must close once quantities balance")
	}
	if !p.Result.Equal(decimal.NewFromInt(140)) {
		t.Errorf("Result = %v, want 140", p.Result)
	}
}

func TestPosition_Apply_ShortSide(t *testing.T) {
	now := time.Now()
	p := NewPosition("OZON", SideSell, "rub")

	p.Apply(tradeOp("op-1", SideSell, 3, 200, now), decimal.NewFromInt(600))
	p.Apply(tradeOp("op-2", SideBuy, 3, 180, now.Add(time.Minute)), decimal.NewFromInt(-540))

	if p.Direction() != "short" {
		t.Errorf("Direction = %q, want short", p.Direction())
	}
	if !p.Closed {
		t.Error("short position must close when buy-back balances the sells")
	}
	if !p.OpenPrice.Equal(decimal.NewFromInt(200)) {
		t.Errorf("OpenPrice = %v, want 200", p.OpenPrice)
	}
	if !p.ClosingPrice.Equal(decimal.NewFromInt(180)) {
		t.Errorf("ClosingPrice = %v, want 180", p.ClosingPrice)
	}
	if !p.Result.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Result = %v, want 60", p.Result)
	}
}

func TestPosition_OpenedAtClosedAt(t *testing.T) {
	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	last := first.Add(48 * time.Hour)

	p := NewPosition("HWM", SideBuy, "usd")
	p.Apply(tradeOp("op-1", SideBuy, 1, 100, first), decimal.NewFromInt(-100))
	p.Apply(tradeOp("op-2", SideSell, 1, 101, last), decimal.NewFromInt(101))

	if !p.OpenedAt().Equal(first) {
		t.Errorf("OpenedAt = %v, want %v", p.OpenedAt(), first)
	}
	if !p.ClosedAt().Equal(last) {
		t.Errorf("ClosedAt = %v, want %v", p.ClosedAt(), last)
	}
}

func TestSide_Opposite(t *testing.T) {
	if SideBuy.Opposite() != SideSell {
		t.Error("Buy.Opposite() must be Sell")
	}
	if SideSell.Opposite() != SideBuy {
		t.Error("Sell.Opposite() must be Buy")
	}
}
