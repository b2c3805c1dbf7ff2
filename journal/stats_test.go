package journal

import (
	"testing"
	"time"

	"trade-journal/models"

	"github.com/shopspring/decimal"
)

func closedPosition(side models.Side, result, fee, openPrice string, qty int64, opened time.Time, held time.Duration) models.Position {
	p := models.NewPosition("TEST", side, "usd")
	p.Closed = true
	p.Result = decimal.RequireFromString(result)
	p.Fee = decimal.RequireFromString(fee)
	p.OpenPrice = decimal.RequireFromString(openPrice)
	p.Operations = []models.Operation{
		{ID: "open", Side: side, Quantity: qty, Time: opened},
		{ID: "close", Side: side.Opposite(), Quantity: qty, Time: opened.Add(held)},
	}
	return *p
}

func TestComputeStats(t *testing.T) {
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	positions := []models.Position{
		closedPosition(models.SideBuy, "100.00", "1.00", "50", 10, start, 2*time.Hour),
		closedPosition(models.SideBuy, "300.00", "2.00", "100", 10, start, 4*time.Hour),
		closedPosition(models.SideBuy, "-50.00", "1.00", "100", 5, start, time.Hour),
		closedPosition(models.SideSell, "80.00", "0.50", "40", 10, start, 30*time.Minute),
	}
	// open positions are excluded
	open := models.NewPosition("OPEN", models.SideBuy, "usd")
	positions = append(positions, *open)

	stats := ComputeStats(positions)
	if len(stats) != 3 {
		t.Fatalf("got %d groups, want 3", len(stats))
	}

	longWins := stats[0]
	if longWins.Side != models.SideBuy || longWins.Outcome != "win" {
		t.Fatalf("first group = %s/%s, want Buy/win", longWins.Side, longWins.Outcome)
	}
	if longWins.Trades != 2 {
		t.Errorf("Buy/win trades = %d, want 2", longWins.Trades)
	}
	if !longWins.TotalResult.Equal(decimal.NewFromInt(400)) {
		t.Errorf("Buy/win total = %s, want 400", longWins.TotalResult)
	}
	if !longWins.AvgResult.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Buy/win avg = %s, want 200", longWins.AvgResult)
	}
	if !longWins.TotalFee.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Buy/win fee = %s, want 3", longWins.TotalFee)
	}
	// (100/500 + 300/1000)/2 * 100 = 25
	if !longWins.AvgPercentage.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Buy/win avg percentage = %s, want 25", longWins.AvgPercentage)
	}
	if longWins.AvgTimeInTrade != "3:00:00" {
		t.Errorf("Buy/win avg time = %q, want 3:00:00", longWins.AvgTimeInTrade)
	}

	longLosses := stats[1]
	if longLosses.Outcome != "loss" || longLosses.Trades != 1 {
		t.Errorf("second group = %s x%d, want loss x1", longLosses.Outcome, longLosses.Trades)
	}

	shortWins := stats[2]
	if shortWins.Side != models.SideSell || shortWins.Trades != 1 {
		t.Errorf("third group = %s x%d, want Sell x1", shortWins.Side, shortWins.Trades)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	if stats := ComputeStats(nil); len(stats) != 0 {
		t.Errorf("ComputeStats(nil) = %v, want empty", stats)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00:00"},
		{5 * time.Second, "0:00:05"},
		{3*time.Hour + 4*time.Minute + 5*time.Second, "3:04:05"},
		{51*time.Hour + 4*time.Minute + 5*time.Second, "2d 3:04:05"},
		{24 * time.Hour, "1d 0:00:00"},
		{-time.Minute, "0:00:00"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
